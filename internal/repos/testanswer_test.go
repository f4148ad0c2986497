package repos

import (
	"testing"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/types"
)

func TestDedupFirstSeenKeepsRecencyOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	// Recency-ordered scan: a question missed on several tests shows
	// up once per miss; only its most recent sighting may count.
	scan := []uuid.UUID{c, a, c, b, a}
	got := dedupFirstSeen(scan, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 distinct ids, got %d", len(got))
	}
	if got[0] != c || got[1] != a || got[2] != b {
		t.Fatalf("dedup changed the recency order: %v", got)
	}
}

func TestDedupFirstSeenCapTakesMostRecent(t *testing.T) {
	recent, older, oldest := uuid.New(), uuid.New(), uuid.New()

	scan := []uuid.UUID{recent, older, recent, oldest}
	got := dedupFirstSeen(scan, 2)
	if len(got) != 2 {
		t.Fatalf("expected the cap to hold, got %d ids", len(got))
	}
	if got[0] != recent || got[1] != older {
		t.Fatalf("cap must keep the most recent distinct mistakes, got %v", got)
	}
}

func TestDedupFirstSeenEmpty(t *testing.T) {
	if got := dedupFirstSeen(nil, 5); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestDedupQuestionsFirstSeen(t *testing.T) {
	q1 := &types.Question{ID: uuid.New()}
	q2 := &types.Question{ID: uuid.New()}

	got := dedupQuestionsFirstSeen([]*types.Question{q1, q2, q1}, 10)
	if len(got) != 2 || got[0] != q1 || got[1] != q2 {
		t.Fatalf("expected [q1 q2], got %d questions", len(got))
	}

	capped := dedupQuestionsFirstSeen([]*types.Question{q1, q2}, 1)
	if len(capped) != 1 || capped[0] != q1 {
		t.Fatalf("cap must keep the most recent question")
	}
}
