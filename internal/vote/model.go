// Package vote provides models and repository for per-user votes on
// pronunciation examples, enforcing one vote per (example, user) pair.
package vote

import (
	"context"
	"time"
)

// Kind is the direction of a vote.
type Kind string

// Vote kinds. Stored as-is in the kind column.
const (
	KindUpvote   Kind = "upvote"
	KindDownvote Kind = "downvote"
)

// Valid reports whether k is a recognized vote kind.
func (k Kind) Valid() bool {
	return k == KindUpvote || k == KindDownvote
}

// Vote represents a single user's vote on an example. At most one vote
// exists per (example, user) pair; casting again replaces the kind.
type Vote struct {
	ID        string    `json:"id"`
	ExampleID string    `json:"example_id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for vote data operations.
//
// Every write recomputes the example's upvote/downvote counters and
// Wilson score from the vote rows inside the same unit of work, so the
// stored score can never drift from the raw counts.
type Repository interface {
	// Cast upserts the (exampleID, userID) vote with the given kind,
	// replacing any prior kind for that pair. Fails unauthenticated when
	// userID is empty.
	Cast(ctx context.Context, exampleID, userID string, kind Kind) (*Vote, error)

	// Remove deletes the (exampleID, userID) vote if present. Removing an
	// absent vote is a no-op, not an error. Fails unauthenticated when
	// userID is empty.
	Remove(ctx context.Context, exampleID, userID string) error

	// Get returns the current vote for the pair, or nil when none exists.
	// An empty userID degrades to nil rather than erroring: "not voted"
	// is a valid state for anonymous viewers.
	Get(ctx context.Context, exampleID, userID string) (*Vote, error)

	// GetForExamples returns the user's votes for the given example ids in
	// one round trip, keyed by example id. Only examples the user actually
	// voted on appear in the map. An empty userID returns an empty map.
	GetForExamples(ctx context.Context, exampleIDs []string, userID string) (map[string]*Vote, error)
}

// CounterStore receives the recomputed counters after a vote write.
// The in-memory example repository implements it; the Postgres vote
// repository updates the example row directly inside its transaction
// instead.
type CounterStore interface {
	UpdateVoteCounts(ctx context.Context, exampleID string, upvotes, downvotes int, score float64) error
}
