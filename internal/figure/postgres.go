package figure

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hearsayhq/hearsay/internal/apperr"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

const figureColumns = `id, name, slug, description, image_key, created_by, created_at, updated_at`

// Create inserts a new figure. The unique index on slug rejects duplicates;
// the violation surfaces as a conflict error.
func (r *PostgresRepository) Create(ctx context.Context, f *Figure) error {
	f.ID = uuid.New().String()
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now

	query := `
		INSERT INTO public_figures (id, name, slug, description, image_key, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.Name, f.Slug, f.Description, f.ImageKey, f.CreatedBy, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to insert figure",
			slog.String("slug", f.Slug),
			slog.String("error", err.Error()))
		return apperr.FromPostgres(err, "failed to create public figure")
	}

	r.logger.Info("figure created",
		slog.String("figure_id", f.ID),
		slog.String("slug", f.Slug))
	return nil
}

// GetByID retrieves a figure by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Figure, error) {
	query := `SELECT ` + figureColumns + ` FROM public_figures WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves a figure by its URL slug.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Figure, error) {
	query := `SELECT ` + figureColumns + ` FROM public_figures WHERE slug = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

// ListAll retrieves all figures ordered by name ascending.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Figure, error) {
	query := `SELECT ` + figureColumns + ` FROM public_figures ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to list public figures")
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var figures []*Figure
	for rows.Next() {
		f, err := scanFigure(rows)
		if err != nil {
			return nil, apperr.FromPostgres(err, "failed to list public figures")
		}
		figures = append(figures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPostgres(err, "failed to list public figures")
	}
	return figures, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanOne(row scanner) (*Figure, error) {
	f, err := scanFigure(row)
	if err != nil {
		return nil, apperr.FromPostgres(err, "public figure not found")
	}
	return f, nil
}

func scanFigure(s scanner) (*Figure, error) {
	var f Figure
	err := s.Scan(&f.ID, &f.Name, &f.Slug, &f.Description, &f.ImageKey,
		&f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
