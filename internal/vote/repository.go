package vote

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearsayhq/hearsay/internal/apperr"
	"github.com/hearsayhq/hearsay/internal/scoring"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex. Counter recomputation is pushed to the
// configured CounterStore under the same lock, mirroring the
// single-transaction guarantee of the Postgres implementation.
type InMemoryRepository struct {
	mu       sync.RWMutex
	votes    map[string]*Vote // (exampleID, userID) -> Vote
	params   *scoring.Params
	counters CounterStore // optional
	metrics  *Metrics     // optional
}

// NewInMemoryRepository creates a new in-memory vote repository.
// counters may be nil when counter propagation is not under test.
func NewInMemoryRepository(params *scoring.Params, counters CounterStore) *InMemoryRepository {
	if params == nil {
		params = scoring.DefaultParams()
	}
	return &InMemoryRepository{
		votes:    make(map[string]*Vote),
		params:   params,
		counters: counters,
	}
}

// WithMetrics attaches vote metrics to the repository.
func (r *InMemoryRepository) WithMetrics(m *Metrics) *InMemoryRepository {
	r.metrics = m
	return r
}

// makeKey creates a composite key from example and user ids using a null
// byte separator so no id pair can collide with another.
func makeKey(exampleID, userID string) string {
	return exampleID + "\x00" + userID
}

// Cast upserts the (exampleID, userID) vote with the given kind.
func (r *InMemoryRepository) Cast(ctx context.Context, exampleID, userID string, kind Kind) (*Vote, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated("you must be signed in to vote")
	}
	if !kind.Valid() {
		return nil, apperr.ValidationFailed("invalid vote kind")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	key := makeKey(exampleID, userID)

	// The vote write and the counter update commit together: a counter
	// error rolls the map back, mirroring the Postgres transaction.
	v, exists := r.votes[key]
	if exists {
		prev := *v
		v.Kind = kind
		v.UpdatedAt = now
		if err := r.propagateCountsLocked(ctx, exampleID); err != nil {
			*v = prev
			return nil, err
		}
	} else {
		v = &Vote{
			ID:        uuid.New().String(),
			ExampleID: exampleID,
			UserID:    userID,
			Kind:      kind,
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.votes[key] = v
		if err := r.propagateCountsLocked(ctx, exampleID); err != nil {
			delete(r.votes, key)
			return nil, err
		}
	}

	if r.metrics != nil {
		r.metrics.IncCast(kind)
	}

	voteCopy := *v
	return &voteCopy, nil
}

// Remove deletes the (exampleID, userID) vote if present.
func (r *InMemoryRepository) Remove(ctx context.Context, exampleID, userID string) error {
	if userID == "" {
		return apperr.Unauthenticated("you must be signed in to remove votes")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := makeKey(exampleID, userID)
	v, exists := r.votes[key]
	if !exists {
		// Absent vote: removal is idempotent.
		return nil
	}
	delete(r.votes, key)

	if err := r.propagateCountsLocked(ctx, exampleID); err != nil {
		r.votes[key] = v
		return err
	}

	if r.metrics != nil {
		r.metrics.IncRemoved()
	}
	return nil
}

// Get returns the current vote for the pair, or nil when none exists.
func (r *InMemoryRepository) Get(ctx context.Context, exampleID, userID string) (*Vote, error) {
	if userID == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.votes[makeKey(exampleID, userID)]
	if !exists {
		return nil, nil
	}
	voteCopy := *v
	return &voteCopy, nil
}

// GetForExamples returns the user's votes for the given example ids,
// keyed by example id.
func (r *InMemoryRepository) GetForExamples(ctx context.Context, exampleIDs []string, userID string) (map[string]*Vote, error) {
	result := make(map[string]*Vote)
	if userID == "" {
		return result, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, exampleID := range exampleIDs {
		if v, exists := r.votes[makeKey(exampleID, userID)]; exists {
			voteCopy := *v
			result[exampleID] = &voteCopy
		}
	}
	return result, nil
}

// CountsFor recomputes the counters for an example from the raw vote rows.
// Exposed so tests can verify the stored counters never drift.
func (r *InMemoryRepository) CountsFor(exampleID string) (upvotes, downvotes int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countsLocked(exampleID)
}

func (r *InMemoryRepository) countsLocked(exampleID string) (upvotes, downvotes int) {
	for _, v := range r.votes {
		if v.ExampleID != exampleID {
			continue
		}
		if v.Kind == KindUpvote {
			upvotes++
		} else {
			downvotes++
		}
	}
	return upvotes, downvotes
}

func (r *InMemoryRepository) propagateCountsLocked(ctx context.Context, exampleID string) error {
	if r.counters == nil {
		return nil
	}
	upvotes, downvotes := r.countsLocked(exampleID)
	score := r.params.Score(upvotes, downvotes)
	return r.counters.UpdateVoteCounts(ctx, exampleID, upvotes, downvotes, score)
}
