package example

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearsayhq/hearsay/internal/apperr"
)

// Repository defines the interface for pronunciation example data
// operations. Ranking and pagination live above this layer: ListByFigure
// returns the figure's full example set and the listing service
// partitions, sorts and slices it.
type Repository interface {
	// Create inserts a new example with a generated UUID and zeroed
	// counters.
	Create(ctx context.Context, e *Example) error

	// GetByID retrieves an example by its UUID, with figure and creator
	// summaries attached.
	GetByID(ctx context.Context, id string) (*Example, error)

	// ListByFigure retrieves every example for a figure, visible or not,
	// in no guaranteed order.
	ListByFigure(ctx context.Context, figureID string) ([]*Example, error)

	// Delete removes an example and its votes. Only the creator may
	// delete; userID is checked against created_by.
	Delete(ctx context.Context, id, userID string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex. Used for testing and development.
//
// It also implements vote.CounterStore so an in-memory vote repository
// can push recomputed counters onto the stored examples.
type InMemoryRepository struct {
	mu       sync.RWMutex
	examples map[string]*Example // UUID -> Example
}

// NewInMemoryRepository creates a new in-memory example repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		examples: make(map[string]*Example),
	}
}

// Create inserts a new example. Counters and score start at zero
// regardless of what the caller supplied.
func (r *InMemoryRepository) Create(ctx context.Context, e *Example) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	e.ID = uuid.New().String()
	e.Upvotes = 0
	e.Downvotes = 0
	e.Score = 0
	e.CreatedAt = now
	e.UpdatedAt = now

	exampleCopy := *e
	r.examples[e.ID] = &exampleCopy
	return nil
}

// GetByID retrieves an example by its UUID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Example, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.examples[id]
	if !ok {
		return nil, apperr.NotFound("example not found")
	}
	exampleCopy := *e
	return &exampleCopy, nil
}

// ListByFigure retrieves every example for a figure.
func (r *InMemoryRepository) ListByFigure(ctx context.Context, figureID string) ([]*Example, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*Example, 0)
	for _, e := range r.examples {
		if e.FigureID != figureID {
			continue
		}
		exampleCopy := *e
		results = append(results, &exampleCopy)
	}
	return results, nil
}

// Delete removes an example if userID matches its creator.
func (r *InMemoryRepository) Delete(ctx context.Context, id, userID string) error {
	if userID == "" {
		return apperr.Unauthenticated("you must be signed in to delete examples")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.examples[id]
	if !ok {
		return apperr.NotFound("example not found")
	}
	if e.CreatedBy == nil || *e.CreatedBy != userID {
		return apperr.New(apperr.KindPermissionDenied, "you can only delete your own examples")
	}
	delete(r.examples, id)
	return nil
}

// UpdateVoteCounts implements vote.CounterStore: it stores the counters
// and score recomputed by the vote repository.
func (r *InMemoryRepository) UpdateVoteCounts(ctx context.Context, exampleID string, upvotes, downvotes int, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.examples[exampleID]
	if !ok {
		return apperr.NotFound("example not found")
	}
	e.Upvotes = upvotes
	e.Downvotes = downvotes
	e.Score = score
	e.UpdatedAt = time.Now()
	return nil
}

// SetScore overrides an example's stored score directly. Test hook for
// exercising visibility partitioning on stored scores.
func (r *InMemoryRepository) SetScore(exampleID string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.examples[exampleID]
	if !ok {
		return apperr.NotFound("example not found")
	}
	e.Score = score
	return nil
}

// SetCreatedAt overrides an example's creation time. Test hook for
// exercising the recency tie-break in ranked listings.
func (r *InMemoryRepository) SetCreatedAt(exampleID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.examples[exampleID]
	if !ok {
		return apperr.NotFound("example not found")
	}
	e.CreatedAt = at
	return nil
}
