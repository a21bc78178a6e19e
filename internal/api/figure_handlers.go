package api

import (
	"encoding/json"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hearsayhq/hearsay/internal/figure"
	"github.com/hearsayhq/hearsay/internal/listing"
	"github.com/hearsayhq/hearsay/internal/middleware"
)

// CreateFigureRequest represents the request body for creating a figure.
type CreateFigureRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageKey    *string `json:"image_key,omitempty"`
}

// FigurePageResponse is the payload for a figure detail page: the figure
// plus the first page of its ranked examples, so the page renders in one
// round trip.
type FigurePageResponse struct {
	Figure   *figure.Figure      `json:"figure"`
	Examples *listing.PageResult `json:"examples"`
}

// FigureHandlers holds dependencies for figure HTTP handlers.
type FigureHandlers struct {
	repo    figure.Repository
	listing *listing.Service
}

// NewFigureHandlers creates a new FigureHandlers instance.
func NewFigureHandlers(repo figure.Repository, listingService *listing.Service) *FigureHandlers {
	return &FigureHandlers{
		repo:    repo,
		listing: listingService,
	}
}

// ListFigures handles GET /figures - lists all figures ordered by name.
func (h *FigureHandlers) ListFigures(w http.ResponseWriter, r *http.Request) {
	figures, err := h.repo.ListAll(r.Context())
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"figures": figures})
}

// CreateFigure handles POST /figures - creates a new figure.
// Requires authentication.
func (h *FigureHandlers) CreateFigure(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "You must be signed in to add figures")
		return
	}

	var req CreateFigureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	f := &figure.Figure{
		Name:        html.EscapeString(name),
		Slug:        figure.Slugify(name),
		Description: html.EscapeString(strings.TrimSpace(req.Description)),
		ImageKey:    req.ImageKey,
		CreatedBy:   &userID,
	}

	if msg := f.Validate(); msg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}

	if err := h.repo.Create(r.Context(), f); err != nil {
		WriteAppError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "figure created", "figure_id", f.ID, "slug", f.Slug)
	WriteJSON(w, r.Context(), http.StatusCreated, f)
}

// GetFigure handles GET /figures/{slug} - the figure page loader.
// Returns the figure together with page 1 of its ranked examples, the
// same result the examples endpoint produces for page 1.
func (h *FigureHandlers) GetFigure(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Figure slug is required")
		return
	}

	f, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	viewerID := middleware.GetUserID(r.Context())
	page, err := h.listing.ListPage(r.Context(), f.ID, viewerID, 1, 0)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, FigurePageResponse{
		Figure:   f,
		Examples: page,
	})
}
