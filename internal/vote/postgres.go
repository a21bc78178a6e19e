package vote

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hearsayhq/hearsay/internal/apperr"
	"github.com/hearsayhq/hearsay/internal/scoring"
	"github.com/hearsayhq/hearsay/internal/tracing"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
//
// Counter maintenance happens inside the same transaction as the vote
// write: the vote row is upserted, the counts are recomputed from the
// vote rows, and the example row's counters and score are updated, all
// before commit.
type PostgresRepository struct {
	db      *sql.DB
	params  *scoring.Params
	logger  *slog.Logger
	metrics *Metrics // optional
}

// NewPostgresRepository creates a new PostgreSQL vote repository.
func NewPostgresRepository(db *sql.DB, params *scoring.Params, logger *slog.Logger) *PostgresRepository {
	if params == nil {
		params = scoring.DefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		params: params,
		logger: logger,
	}
}

// WithMetrics attaches vote metrics to the repository.
func (r *PostgresRepository) WithMetrics(m *Metrics) *PostgresRepository {
	r.metrics = m
	return r
}

const voteColumns = `id, example_id, user_id, kind, created_at, updated_at`

// Cast upserts the (exampleID, userID) vote with the given kind.
func (r *PostgresRepository) Cast(ctx context.Context, exampleID, userID string, kind Kind) (_ *Vote, err error) {
	if userID == "" {
		return nil, apperr.Unauthenticated("you must be signed in to vote")
	}
	if !kind.Valid() {
		return nil, apperr.ValidationFailed("invalid vote kind")
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "example_votes", tracing.DBOperationExec)
	defer func() { endSpan(err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var v Vote
	err = tx.QueryRowContext(ctx, `
		INSERT INTO example_votes (id, example_id, user_id, kind)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (example_id, user_id)
		DO UPDATE SET kind = EXCLUDED.kind, updated_at = NOW()
		RETURNING `+voteColumns,
		uuid.New().String(), exampleID, userID, string(kind),
	).Scan(&v.ID, &v.ExampleID, &v.UserID, &v.Kind, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to cast vote")
	}

	if err := r.refreshCountsTx(ctx, tx, exampleID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, "failed to commit vote", err)
	}

	if r.metrics != nil {
		r.metrics.IncCast(kind)
	}
	r.logger.Info("vote cast", "example_id", exampleID, "kind", kind)
	return &v, nil
}

// Remove deletes the (exampleID, userID) vote if present.
func (r *PostgresRepository) Remove(ctx context.Context, exampleID, userID string) (err error) {
	if userID == "" {
		return apperr.Unauthenticated("you must be signed in to remove votes")
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "example_votes", tracing.DBOperationDelete)
	defer func() { endSpan(err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindUnknown, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM example_votes
		WHERE example_id = $1 AND user_id = $2`,
		exampleID, userID,
	)
	if err != nil {
		return apperr.FromPostgres(err, "failed to remove vote")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindUnknown, "failed to read rows affected", err)
	}
	if deleted == 0 {
		// Absent vote: removal is idempotent, counters are untouched.
		return nil
	}

	if err := r.refreshCountsTx(ctx, tx, exampleID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindUnknown, "failed to commit vote removal", err)
	}

	if r.metrics != nil {
		r.metrics.IncRemoved()
	}
	r.logger.Info("vote removed", "example_id", exampleID)
	return nil
}

// Get returns the current vote for the pair, or nil when none exists.
func (r *PostgresRepository) Get(ctx context.Context, exampleID, userID string) (*Vote, error) {
	if userID == "" {
		return nil, nil
	}

	var v Vote
	err := r.db.QueryRowContext(ctx, `
		SELECT `+voteColumns+`
		FROM example_votes
		WHERE example_id = $1 AND user_id = $2`,
		exampleID, userID,
	).Scan(&v.ID, &v.ExampleID, &v.UserID, &v.Kind, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to get vote")
	}
	return &v, nil
}

// GetForExamples returns the user's votes for the given example ids in
// one round trip, keyed by example id.
func (r *PostgresRepository) GetForExamples(ctx context.Context, exampleIDs []string, userID string) (map[string]*Vote, error) {
	result := make(map[string]*Vote)
	if userID == "" || len(exampleIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+voteColumns+`
		FROM example_votes
		WHERE example_id = ANY($1) AND user_id = $2`,
		pq.Array(exampleIDs), userID,
	)
	if err != nil {
		return nil, apperr.FromPostgres(err, "failed to get votes")
	}
	defer rows.Close()

	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ID, &v.ExampleID, &v.UserID, &v.Kind, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindUnknown, "failed to scan vote", err)
		}
		result[v.ExampleID] = &v
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, "failed to iterate votes", err)
	}
	return result, nil
}

// refreshCountsTx recomputes the example's counters from the vote rows
// and writes them, with the recomputed score, onto the example row.
func (r *PostgresRepository) refreshCountsTx(ctx context.Context, tx *sql.Tx, exampleID string) error {
	var upvotes, downvotes int
	err := tx.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'upvote'),
			COUNT(*) FILTER (WHERE kind = 'downvote')
		FROM example_votes
		WHERE example_id = $1`,
		exampleID,
	).Scan(&upvotes, &downvotes)
	if err != nil {
		return apperr.FromPostgres(err, "failed to count votes")
	}

	score := r.params.Score(upvotes, downvotes)
	_, err = tx.ExecContext(ctx, `
		UPDATE pronunciation_examples
		SET upvotes = $2, downvotes = $3, score = $4, updated_at = NOW()
		WHERE id = $1`,
		exampleID, upvotes, downvotes, score,
	)
	if err != nil {
		return apperr.FromPostgres(err, "failed to update vote counts")
	}
	return nil
}
