package vote

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hearsayhq/hearsay/internal/apperr"
	"github.com/hearsayhq/hearsay/internal/scoring"
)

// recordingCounterStore captures counter updates for assertions.
type recordingCounterStore struct {
	upvotes   map[string]int
	downvotes map[string]int
	scores    map[string]float64
	calls     int
}

func newRecordingCounterStore() *recordingCounterStore {
	return &recordingCounterStore{
		upvotes:   make(map[string]int),
		downvotes: make(map[string]int),
		scores:    make(map[string]float64),
	}
}

func (s *recordingCounterStore) UpdateVoteCounts(_ context.Context, exampleID string, upvotes, downvotes int, score float64) error {
	s.upvotes[exampleID] = upvotes
	s.downvotes[exampleID] = downvotes
	s.scores[exampleID] = score
	s.calls++
	return nil
}

func TestCast_CreatesVote(t *testing.T) {
	store := newRecordingCounterStore()
	repo := NewInMemoryRepository(nil, store)
	ctx := context.Background()

	v, err := repo.Cast(ctx, "ex1", "user1", KindUpvote)
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if v.ID == "" {
		t.Error("cast should assign an ID")
	}
	if v.Kind != KindUpvote {
		t.Errorf("got kind %q, want upvote", v.Kind)
	}
	if store.upvotes["ex1"] != 1 || store.downvotes["ex1"] != 0 {
		t.Errorf("counters not propagated: up=%d down=%d", store.upvotes["ex1"], store.downvotes["ex1"])
	}
}

func TestCast_SameKindIsIdempotent(t *testing.T) {
	store := newRecordingCounterStore()
	repo := NewInMemoryRepository(nil, store)
	ctx := context.Background()

	first, err := repo.Cast(ctx, "ex1", "user1", KindUpvote)
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	second, err := repo.Cast(ctx, "ex1", "user1", KindUpvote)
	if err != nil {
		t.Fatalf("repeat cast failed: %v", err)
	}

	if second.ID != first.ID {
		t.Error("repeat cast should update in place, not create a new vote")
	}
	if store.upvotes["ex1"] != 1 {
		t.Errorf("got %d upvotes after repeat cast, want 1", store.upvotes["ex1"])
	}
}

func TestCast_ReplacesKind(t *testing.T) {
	store := newRecordingCounterStore()
	repo := NewInMemoryRepository(nil, store)
	ctx := context.Background()

	if _, err := repo.Cast(ctx, "ex1", "user1", KindUpvote); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	v, err := repo.Cast(ctx, "ex1", "user1", KindDownvote)
	if err != nil {
		t.Fatalf("replacing cast failed: %v", err)
	}

	if v.Kind != KindDownvote {
		t.Errorf("got kind %q, want downvote", v.Kind)
	}
	if store.upvotes["ex1"] != 0 || store.downvotes["ex1"] != 1 {
		t.Errorf("switching kind should move the count: up=%d down=%d",
			store.upvotes["ex1"], store.downvotes["ex1"])
	}
	if !v.UpdatedAt.After(v.CreatedAt) && !v.UpdatedAt.Equal(v.CreatedAt) {
		t.Error("updated_at should advance on replacement")
	}
}

func TestCast_InvalidKind(t *testing.T) {
	repo := NewInMemoryRepository(nil, nil)
	if _, err := repo.Cast(context.Background(), "ex1", "user1", Kind("sideways")); !apperr.IsKind(err, apperr.KindValidationFailed) {
		t.Errorf("expected validation failure, got %v", err)
	}
}

func TestCast_RequiresUser(t *testing.T) {
	repo := NewInMemoryRepository(nil, nil)
	ctx := context.Background()

	if _, err := repo.Cast(ctx, "ex1", "", KindUpvote); !apperr.IsKind(err, apperr.KindUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
	if err := repo.Remove(ctx, "ex1", ""); !apperr.IsKind(err, apperr.KindUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}

func TestRemove_DeletesVote(t *testing.T) {
	store := newRecordingCounterStore()
	repo := NewInMemoryRepository(nil, store)
	ctx := context.Background()

	if _, err := repo.Cast(ctx, "ex1", "user1", KindUpvote); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if err := repo.Remove(ctx, "ex1", "user1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if store.upvotes["ex1"] != 0 {
		t.Errorf("got %d upvotes after remove, want 0", store.upvotes["ex1"])
	}
	v, err := repo.Get(ctx, "ex1", "user1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != nil {
		t.Error("vote should be gone after remove")
	}
}

func TestRemove_AbsentVoteIsNoOp(t *testing.T) {
	store := newRecordingCounterStore()
	repo := NewInMemoryRepository(nil, store)

	if err := repo.Remove(context.Background(), "ex1", "user1"); err != nil {
		t.Fatalf("removing an absent vote should succeed, got %v", err)
	}
	if store.calls != 0 {
		t.Error("removing an absent vote should not touch counters")
	}
}

func TestGet_AnonymousReturnsNil(t *testing.T) {
	repo := NewInMemoryRepository(nil, nil)
	ctx := context.Background()

	v, err := repo.Get(ctx, "ex1", "")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != nil {
		t.Error("anonymous get should return nil")
	}

	votes, err := repo.GetForExamples(ctx, []string{"ex1", "ex2"}, "")
	if err != nil {
		t.Fatalf("bulk get failed: %v", err)
	}
	if len(votes) != 0 {
		t.Errorf("anonymous bulk get should be empty, got %d", len(votes))
	}
}

func TestGetForExamples_OnlyVotedAppear(t *testing.T) {
	repo := NewInMemoryRepository(nil, nil)
	ctx := context.Background()

	if _, err := repo.Cast(ctx, "ex1", "user1", KindUpvote); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := repo.Cast(ctx, "ex3", "user1", KindDownvote); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := repo.Cast(ctx, "ex2", "user2", KindUpvote); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	votes, err := repo.GetForExamples(ctx, []string{"ex1", "ex2", "ex3"}, "user1")
	if err != nil {
		t.Fatalf("bulk get failed: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("got %d votes, want 2", len(votes))
	}
	if votes["ex1"].Kind != KindUpvote || votes["ex3"].Kind != KindDownvote {
		t.Error("bulk get returned wrong kinds")
	}
	if _, ok := votes["ex2"]; ok {
		t.Error("bulk get leaked another user's vote")
	}
}

// Counters must always equal a recount of the raw vote rows, and the
// propagated score must equal the score of those counts, no matter the
// operation sequence.
func TestCounters_NeverDrift(t *testing.T) {
	store := newRecordingCounterStore()
	params := scoring.DefaultParams()
	repo := NewInMemoryRepository(params, store)
	ctx := context.Background()

	ops := []struct {
		user   string
		kind   Kind
		remove bool
	}{
		{user: "u1", kind: KindUpvote},
		{user: "u2", kind: KindUpvote},
		{user: "u3", kind: KindDownvote},
		{user: "u1", kind: KindDownvote},
		{user: "u2", remove: true},
		{user: "u4", kind: KindUpvote},
		{user: "u1", remove: true},
		{user: "u1", kind: KindUpvote},
	}

	for i, op := range ops {
		var err error
		if op.remove {
			err = repo.Remove(ctx, "ex1", op.user)
		} else {
			_, err = repo.Cast(ctx, "ex1", op.user, op.kind)
		}
		if err != nil {
			t.Fatalf("op %d failed: %v", i, err)
		}

		up, down := repo.CountsFor("ex1")
		if store.upvotes["ex1"] != up || store.downvotes["ex1"] != down {
			t.Fatalf("op %d: propagated counts (%d,%d) != recount (%d,%d)",
				i, store.upvotes["ex1"], store.downvotes["ex1"], up, down)
		}
		want := params.Score(up, down)
		if math.Abs(store.scores["ex1"]-want) > 1e-12 {
			t.Fatalf("op %d: propagated score %v != recomputed %v", i, store.scores["ex1"], want)
		}
	}

	up, down := repo.CountsFor("ex1")
	if up != 2 || down != 1 {
		t.Errorf("final counts (%d,%d), want (2,1)", up, down)
	}
}

// failingCounterStore succeeds for the first failAfter updates, then
// errors on every call.
type failingCounterStore struct {
	failAfter int
	calls     int
}

var errCountersDown = errors.New("counter store unavailable")

func (s *failingCounterStore) UpdateVoteCounts(context.Context, string, int, int, float64) error {
	s.calls++
	if s.calls > s.failAfter {
		return errCountersDown
	}
	return nil
}

// A counter failure must leave the vote rows untouched: the write and
// the counter update either both land or neither does.
func TestCast_CounterErrorLeavesVotesUnchanged(t *testing.T) {
	store := &failingCounterStore{failAfter: 1}
	repo := NewInMemoryRepository(nil, store)
	ctx := context.Background()

	if _, err := repo.Cast(ctx, "ex1", "user1", KindUpvote); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	// Replacing the kind fails at the counter store; the stored vote
	// must keep its original kind.
	if _, err := repo.Cast(ctx, "ex1", "user1", KindDownvote); !errors.Is(err, errCountersDown) {
		t.Fatalf("expected counter store error, got %v", err)
	}
	v, err := repo.Get(ctx, "ex1", "user1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v == nil || v.Kind != KindUpvote {
		t.Errorf("failed replacement should keep the upvote, got %+v", v)
	}
	if up, down := repo.CountsFor("ex1"); up != 1 || down != 0 {
		t.Errorf("recount after failed replacement = (%d,%d), want (1,0)", up, down)
	}

	// A fresh vote that fails to propagate must not be stored either.
	if _, err := repo.Cast(ctx, "ex2", "user1", KindUpvote); !errors.Is(err, errCountersDown) {
		t.Fatalf("expected counter store error, got %v", err)
	}
	v, err = repo.Get(ctx, "ex2", "user1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != nil {
		t.Errorf("failed fresh cast should store nothing, got %+v", v)
	}
}

func TestRemove_CounterErrorLeavesVotesUnchanged(t *testing.T) {
	store := &failingCounterStore{failAfter: 1}
	repo := NewInMemoryRepository(nil, store)
	ctx := context.Background()

	if _, err := repo.Cast(ctx, "ex1", "user1", KindUpvote); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	if err := repo.Remove(ctx, "ex1", "user1"); !errors.Is(err, errCountersDown) {
		t.Fatalf("expected counter store error, got %v", err)
	}
	v, err := repo.Get(ctx, "ex1", "user1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v == nil || v.Kind != KindUpvote {
		t.Errorf("failed removal should keep the vote, got %+v", v)
	}
}

func TestVotesIsolatedPerExample(t *testing.T) {
	store := newRecordingCounterStore()
	repo := NewInMemoryRepository(nil, store)
	ctx := context.Background()

	if _, err := repo.Cast(ctx, "ex1", "user1", KindUpvote); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := repo.Cast(ctx, "ex2", "user1", KindDownvote); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	if store.upvotes["ex1"] != 1 || store.downvotes["ex1"] != 0 {
		t.Errorf("ex1 counters wrong: up=%d down=%d", store.upvotes["ex1"], store.downvotes["ex1"])
	}
	if store.upvotes["ex2"] != 0 || store.downvotes["ex2"] != 1 {
		t.Errorf("ex2 counters wrong: up=%d down=%d", store.upvotes["ex2"], store.downvotes["ex2"])
	}
}
