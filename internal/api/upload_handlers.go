package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hearsayhq/hearsay/internal/middleware"
	"github.com/hearsayhq/hearsay/internal/upload"
)

// SignUploadRequest represents the request body for POST /uploads/figure-portrait.
type SignUploadRequest struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	FigureID    string `json:"figure_id,omitempty"`
}

// SignUploadResponse represents the presigned upload response.
type SignUploadResponse struct {
	URL       string `json:"url"`
	ObjectKey string `json:"object_key"`
	ExpiresAt string `json:"expires_at"`
}

// UploadHandlers holds dependencies for upload HTTP handlers.
type UploadHandlers struct {
	uploadService *upload.Service
}

// NewUploadHandlers creates a new UploadHandlers instance.
func NewUploadHandlers(uploadService *upload.Service) *UploadHandlers {
	return &UploadHandlers{
		uploadService: uploadService,
	}
}

// SignUpload handles POST /uploads/figure-portrait - generates a
// presigned PUT URL for a figure portrait. Requires authentication.
func (h *UploadHandlers) SignUpload(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r.Context()) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "You must be signed in to upload portraits")
		return
	}

	var req SignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.ContentType == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "content_type is required")
		return
	}
	if req.SizeBytes <= 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "size_bytes must be positive")
		return
	}

	signed, err := h.uploadService.GenerateSignedURL(r.Context(), upload.SignedURLRequest{
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		FigureID:    req.FigureID,
	})
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnsupportedType)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnsupportedType,
				"Unsupported content type. Allowed types: image/jpeg, image/png")
		case errors.Is(err, upload.ErrFileTooLarge):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "File size exceeds maximum allowed")
		case errors.Is(err, upload.ErrInvalidFigureID):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid figure ID")
		default:
			slog.ErrorContext(r.Context(), "failed to generate signed URL", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate signed URL")
		}
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, SignUploadResponse{
		URL:       signed.URL,
		ObjectKey: signed.ObjectKey,
		ExpiresAt: signed.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
