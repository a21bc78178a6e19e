package api

import (
	"encoding/json"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hearsayhq/hearsay/internal/example"
	"github.com/hearsayhq/hearsay/internal/figure"
	"github.com/hearsayhq/hearsay/internal/listing"
	"github.com/hearsayhq/hearsay/internal/middleware"
)

// CreateExampleRequest represents the request body for submitting an
// example. VideoURL accepts a full URL or a bare video id.
type CreateExampleRequest struct {
	FigureID     string  `json:"figure_id"`
	VideoURL     string  `json:"video_url"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Note         string  `json:"note,omitempty"`
}

// ExampleHandlers holds dependencies for example HTTP handlers.
type ExampleHandlers struct {
	examples example.Repository
	figures  figure.Repository
	listing  *listing.Service
}

// NewExampleHandlers creates a new ExampleHandlers instance.
func NewExampleHandlers(examples example.Repository, figures figure.Repository, listingService *listing.Service) *ExampleHandlers {
	return &ExampleHandlers{
		examples: examples,
		figures:  figures,
		listing:  listingService,
	}
}

// CreateExample handles POST /examples - submits a new example.
// Requires authentication.
func (h *ExampleHandlers) CreateExample(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "You must be signed in to submit examples")
		return
	}

	var req CreateExampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	videoID := example.ExtractVideoID(strings.TrimSpace(req.VideoURL))
	if videoID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidVideoID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidVideoID, "Could not extract a video ID from the provided URL")
		return
	}

	e := &example.Example{
		FigureID:     strings.TrimSpace(req.FigureID),
		VideoID:      videoID,
		StartSeconds: req.StartSeconds,
		EndSeconds:   req.EndSeconds,
		Note:         html.EscapeString(strings.TrimSpace(req.Note)),
		CreatedBy:    &userID,
	}

	if msg := e.Validate(); msg != "" {
		code := ErrCodeValidation
		if e.StartSeconds >= e.EndSeconds {
			code = ErrCodeInvalidTimeRange
		}
		ctx := middleware.SetErrorCode(r.Context(), code)
		WriteError(w, ctx, http.StatusBadRequest, code, msg)
		return
	}

	// The figure must exist before accepting the example.
	if _, err := h.figures.GetByID(r.Context(), e.FigureID); err != nil {
		WriteAppError(w, r, err)
		return
	}

	if err := h.examples.Create(r.Context(), e); err != nil {
		WriteAppError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "example submitted", "example_id", e.ID, "figure_id", e.FigureID)
	WriteJSON(w, r.Context(), http.StatusCreated, e)
}

// GetExample handles GET /examples/{id}.
func (h *ExampleHandlers) GetExample(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := h.examples.GetByID(r.Context(), id)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, e)
}

// DeleteExample handles DELETE /examples/{id} - creator-only removal.
func (h *ExampleHandlers) DeleteExample(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())

	if err := h.examples.Delete(r.Context(), id, userID); err != nil {
		WriteAppError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "example deleted", "example_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListExamples handles GET /figures/{slug}/examples?page=N - the ranked,
// paginated listing. Page numbering is 1-based; page defaults to 1.
func (h *ExampleHandlers) ListExamples(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	f, err := h.figures.GetBySlug(r.Context(), slug)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "page must be a positive integer")
			return
		}
	}

	viewerID := middleware.GetUserID(r.Context())
	result, err := h.listing.ListPage(r.Context(), f.ID, viewerID, page, 0)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, result)
}
