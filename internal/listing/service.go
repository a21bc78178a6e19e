// Package listing implements the ranked, paginated listing of
// pronunciation examples: visibility partitioning on stored scores,
// deterministic ordering, pagination, and per-viewer vote annotation.
package listing

import (
	"context"
	"log/slog"
	"sort"

	"github.com/hearsayhq/hearsay/internal/apperr"
	"github.com/hearsayhq/hearsay/internal/example"
	"github.com/hearsayhq/hearsay/internal/scoring"
	"github.com/hearsayhq/hearsay/internal/vote"
)

// PageResult is one page of ranked examples plus pagination metadata.
// HiddenExamples is populated only on page 1.
type PageResult struct {
	Examples       []*example.Example `json:"examples"`
	HiddenExamples []*example.Example `json:"hidden_examples"`
	Total          int                `json:"total"`
	HiddenCount    int                `json:"hidden_count"`
	HasMore        bool               `json:"has_more"`
}

// Service assembles ranked pages. Stateless per call: page numbers are
// caller-supplied, never server-tracked.
type Service struct {
	examples example.Repository
	votes    vote.Repository
	params   *scoring.Params
	logger   *slog.Logger
}

// NewService creates a listing service.
func NewService(examples example.Repository, votes vote.Repository, params *scoring.Params, logger *slog.Logger) *Service {
	if params == nil {
		params = scoring.DefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		examples: examples,
		votes:    votes,
		params:   params,
		logger:   logger,
	}
}

// ListPage returns page `page` (1-based) of the figure's visible
// examples, with the full hidden set attached on page 1.
//
// The partition, sort and slice always run over the figure's complete
// example set, in that order, so a page boundary can never fall across
// the visible/hidden split. Both the interactive endpoint and the
// page-loader endpoint go through this method, which is what keeps
// their results identical for the same data.
func (s *Service) ListPage(ctx context.Context, figureID, viewerUserID string, page, pageSize int) (*PageResult, error) {
	if page < 1 {
		return nil, apperr.ValidationFailed("page must be at least 1")
	}
	if pageSize < 1 {
		pageSize = s.params.PageSize
	}

	all, err := s.examples.ListByFigure(ctx, figureID)
	if err != nil {
		return nil, err
	}

	visible := make([]*example.Example, 0, len(all))
	hidden := make([]*example.Example, 0)
	for _, e := range all {
		if s.params.Visible(e.Score) {
			visible = append(visible, e)
		} else {
			hidden = append(hidden, e)
		}
	}

	sortRanked(visible)
	sortRanked(hidden)

	total := len(visible)
	lastPage := total / pageSize
	if total%pageSize != 0 {
		lastPage++
	}

	result := &PageResult{
		Examples:    []*example.Example{},
		Total:       total,
		HiddenCount: len(hidden),
	}
	// Slice bounds are computed only for in-range pages: past the last
	// page the result is empty, and the multiplication below never runs
	// for page numbers large enough to overflow.
	if page <= lastPage {
		start := (page - 1) * pageSize
		end := min(start+pageSize, total)
		result.Examples = visible[start:end]
		result.HasMore = end < total
	}
	if page == 1 {
		result.HiddenExamples = hidden
	} else {
		result.HiddenExamples = []*example.Example{}
	}

	if err := s.annotateVotes(ctx, result, viewerUserID); err != nil {
		return nil, err
	}
	return result, nil
}

// sortRanked orders examples by score descending, then createdAt
// descending. The recency tie-break keeps the order total, so repeated
// calls over the same data always agree.
func sortRanked(examples []*example.Example) {
	sort.SliceStable(examples, func(i, j int) bool {
		if examples[i].Score != examples[j].Score {
			return examples[i].Score > examples[j].Score
		}
		return examples[i].CreatedAt.After(examples[j].CreatedAt)
	})
}

// annotateVotes bulk-fetches the viewer's votes for exactly the
// examples being returned and attaches them. Anonymous viewers get no
// annotation.
func (s *Service) annotateVotes(ctx context.Context, result *PageResult, viewerUserID string) error {
	if viewerUserID == "" {
		return nil
	}

	ids := make([]string, 0, len(result.Examples)+len(result.HiddenExamples))
	for _, e := range result.Examples {
		ids = append(ids, e.ID)
	}
	for _, e := range result.HiddenExamples {
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	votes, err := s.votes.GetForExamples(ctx, ids, viewerUserID)
	if err != nil {
		return err
	}
	for _, e := range result.Examples {
		e.UserVote = votes[e.ID]
	}
	for _, e := range result.HiddenExamples {
		e.UserVote = votes[e.ID]
	}
	return nil
}
