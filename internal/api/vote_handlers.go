package api

import (
	"encoding/json"
	"net/http"

	"github.com/hearsayhq/hearsay/internal/example"
	"github.com/hearsayhq/hearsay/internal/middleware"
	"github.com/hearsayhq/hearsay/internal/vote"
)

// CastVoteRequest represents the request body for casting a vote.
type CastVoteRequest struct {
	Kind vote.Kind `json:"kind"`
}

// VoteResponse wraps a vote together with the example's refreshed
// counters, so clients can update the UI without a second fetch.
type VoteResponse struct {
	Vote      *vote.Vote `json:"vote,omitempty"`
	Upvotes   int        `json:"upvotes"`
	Downvotes int        `json:"downvotes"`
	Score     float64    `json:"score"`
}

// VoteHandlers holds dependencies for vote HTTP handlers.
type VoteHandlers struct {
	votes    vote.Repository
	examples example.Repository
}

// NewVoteHandlers creates a new VoteHandlers instance.
func NewVoteHandlers(votes vote.Repository, examples example.Repository) *VoteHandlers {
	return &VoteHandlers{
		votes:    votes,
		examples: examples,
	}
}

// GetVote handles GET /examples/{id}/vote - the viewer's current vote.
// Returns {"vote": null} when the viewer has not voted.
func (h *VoteHandlers) GetVote(w http.ResponseWriter, r *http.Request) {
	exampleID := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())

	v, err := h.votes.Get(r.Context(), exampleID, userID)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"vote": v})
}

// CastVote handles PUT /examples/{id}/vote - upserts the viewer's vote.
// Casting with a new kind replaces the previous vote; casting the same
// kind twice is a no-op on the counters.
func (h *VoteHandlers) CastVote(w http.ResponseWriter, r *http.Request) {
	exampleID := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if !req.Kind.Valid() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidVoteKind)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidVoteKind, "Vote kind must be upvote or downvote")
		return
	}

	// Voting on a missing example is a 404, not a dangling vote row.
	if _, err := h.examples.GetByID(r.Context(), exampleID); err != nil {
		WriteAppError(w, r, err)
		return
	}

	v, err := h.votes.Cast(r.Context(), exampleID, userID, req.Kind)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	h.writeCounters(w, r, exampleID, v)
}

// RemoveVote handles DELETE /examples/{id}/vote.
// Removing an absent vote succeeds; the operation is idempotent.
func (h *VoteHandlers) RemoveVote(w http.ResponseWriter, r *http.Request) {
	exampleID := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())

	if _, err := h.examples.GetByID(r.Context(), exampleID); err != nil {
		WriteAppError(w, r, err)
		return
	}

	if err := h.votes.Remove(r.Context(), exampleID, userID); err != nil {
		WriteAppError(w, r, err)
		return
	}

	h.writeCounters(w, r, exampleID, nil)
}

// writeCounters responds with the example's post-write counters.
func (h *VoteHandlers) writeCounters(w http.ResponseWriter, r *http.Request, exampleID string, v *vote.Vote) {
	e, err := h.examples.GetByID(r.Context(), exampleID)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, VoteResponse{
		Vote:      v,
		Upvotes:   e.Upvotes,
		Downvotes: e.Downvotes,
		Score:     e.Score,
	})
}
