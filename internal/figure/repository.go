package figure

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearsayhq/hearsay/internal/apperr"
)

// Repository defines the interface for figure data operations.
type Repository interface {
	// Create inserts a new figure with a generated UUID. The slug must be
	// unique; a duplicate surfaces as a conflict error.
	Create(ctx context.Context, f *Figure) error

	// GetByID retrieves a figure by its UUID.
	GetByID(ctx context.Context, id string) (*Figure, error)

	// GetBySlug retrieves a figure by its URL slug.
	GetBySlug(ctx context.Context, slug string) (*Figure, error)

	// ListAll retrieves all figures ordered by name ascending.
	ListAll(ctx context.Context) ([]*Figure, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex. Used for testing and development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	figures map[string]*Figure // UUID -> Figure
	slugs   map[string]string  // slug -> UUID
}

// NewInMemoryRepository creates a new in-memory figure repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		figures: make(map[string]*Figure),
		slugs:   make(map[string]string),
	}
}

// Create inserts a new figure, enforcing slug uniqueness.
func (r *InMemoryRepository) Create(ctx context.Context, f *Figure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slugs[f.Slug]; exists {
		return apperr.New(apperr.KindConflict, "a figure with this name already exists")
	}

	now := time.Now()
	f.ID = uuid.New().String()
	f.CreatedAt = now
	f.UpdatedAt = now

	figureCopy := *f
	r.figures[f.ID] = &figureCopy
	r.slugs[f.Slug] = f.ID
	return nil
}

// GetByID retrieves a figure by its UUID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Figure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.figures[id]
	if !ok {
		return nil, apperr.NotFound("public figure not found")
	}
	figureCopy := *f
	return &figureCopy, nil
}

// GetBySlug retrieves a figure by its URL slug.
func (r *InMemoryRepository) GetBySlug(ctx context.Context, slug string) (*Figure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.slugs[slug]
	if !ok {
		return nil, apperr.NotFound("public figure not found")
	}
	figureCopy := *r.figures[id]
	return &figureCopy, nil
}

// ListAll retrieves all figures ordered by name ascending.
func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*Figure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*Figure, 0, len(r.figures))
	for _, f := range r.figures {
		figureCopy := *f
		results = append(results, &figureCopy)
	}

	sort.Slice(results, func(i, j int) bool {
		return strings.ToLower(results[i].Name) < strings.ToLower(results[j].Name)
	})
	return results, nil
}
