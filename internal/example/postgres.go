package example

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hearsayhq/hearsay/internal/apperr"
	"github.com/hearsayhq/hearsay/internal/figure"
	"github.com/hearsayhq/hearsay/internal/tracing"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgreSQL example repository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// exampleSelect joins the figure and creator summaries onto each row.
// The creator join is LEFT: created_by is nullable and the profile row
// may have been deleted.
const exampleSelect = `
	SELECT
		e.id, e.figure_id, e.video_id, e.start_seconds, e.end_seconds, e.note,
		e.upvotes, e.downvotes, e.score,
		e.created_by, e.created_at, e.updated_at,
		f.id, f.name, f.slug, f.image_key,
		p.id, p.username, p.full_name, p.avatar_key
	FROM pronunciation_examples e
	JOIN public_figures f ON f.id = e.figure_id
	LEFT JOIN profiles p ON p.id = e.created_by`

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanExample(s scanner) (*Example, error) {
	var (
		e              Example
		fig            figure.Summary
		creatorID      sql.NullString
		creatorName    sql.NullString
		creatorFull    sql.NullString
		creatorAvatar  sql.NullString
		figureImageKey sql.NullString
	)
	err := s.Scan(
		&e.ID, &e.FigureID, &e.VideoID, &e.StartSeconds, &e.EndSeconds, &e.Note,
		&e.Upvotes, &e.Downvotes, &e.Score,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		&fig.ID, &fig.Name, &fig.Slug, &figureImageKey,
		&creatorID, &creatorName, &creatorFull, &creatorAvatar,
	)
	if err != nil {
		return nil, err
	}

	if figureImageKey.Valid {
		fig.ImageKey = &figureImageKey.String
	}
	e.Figure = &fig

	if creatorID.Valid {
		c := Creator{
			ID:       creatorID.String,
			Username: creatorName.String,
			FullName: creatorFull.String,
		}
		if creatorAvatar.Valid {
			c.AvatarKey = &creatorAvatar.String
		}
		e.Creator = &c
	}
	return &e, nil
}

// Create inserts a new example with zeroed counters.
func (r *PostgresRepository) Create(ctx context.Context, e *Example) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "pronunciation_examples", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	e.ID = uuid.New().String()
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO pronunciation_examples
			(id, figure_id, video_id, start_seconds, end_seconds, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING upvotes, downvotes, score, created_at, updated_at`,
		e.ID, e.FigureID, e.VideoID, e.StartSeconds, e.EndSeconds, e.Note, e.CreatedBy,
	).Scan(&e.Upvotes, &e.Downvotes, &e.Score, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return apperr.FromPostgres(err, "failed to create example")
	}

	r.logger.Info("example created", "example_id", e.ID, "figure_id", e.FigureID)
	return nil
}

// GetByID retrieves an example with its figure and creator summaries.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Example, error) {
	e, err := scanExample(r.db.QueryRowContext(ctx, exampleSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, apperr.FromPostgres(err, "example not found")
	}
	return e, nil
}

// ListByFigure retrieves every example for a figure, visible or not.
func (r *PostgresRepository) ListByFigure(ctx context.Context, figureID string) (_ []*Example, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "pronunciation_examples", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, exampleSelect+` WHERE e.figure_id = $1`, figureID)
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to list examples")
	}
	defer rows.Close()

	results := make([]*Example, 0)
	for rows.Next() {
		e, err := scanExample(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnknown, "failed to scan example", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, "failed to iterate examples", err)
	}
	return results, nil
}

// Delete removes an example if userID matches its creator. Vote rows go
// with it via ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	if userID == "" {
		return apperr.Unauthenticated("you must be signed in to delete examples")
	}

	var createdBy sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT created_by FROM pronunciation_examples WHERE id = $1`, id,
	).Scan(&createdBy)
	if err != nil {
		return apperr.FromPostgres(err, "example not found")
	}
	if !createdBy.Valid || createdBy.String != userID {
		return apperr.New(apperr.KindPermissionDenied, "you can only delete your own examples")
	}

	_, err = r.db.ExecContext(ctx, `DELETE FROM pronunciation_examples WHERE id = $1`, id)
	if err != nil {
		return apperr.FromPostgres(err, "failed to delete example")
	}

	r.logger.Info("example deleted", "example_id", id)
	return nil
}
