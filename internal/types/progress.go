package types

import "github.com/google/uuid"

// ProgressEntry is ephemeral per-question attempt state held in the
// progress buffer, never in Postgres. The per-question times are
// authoritative for per-question analytics; the instance's running
// total is authoritative for elapsed time. They are not required to
// sum to each other because a user may revisit a question.
type ProgressEntry struct {
	QuestionID         uuid.UUID `json:"question_id"`
	LastAnswer         string    `json:"last_answer"`
	AccumulatedTimeSec int       `json:"accumulated_time_sec"`
}

// TestProgress is the full buffer contents for one test instance.
type TestProgress struct {
	TestInstanceID uuid.UUID       `json:"test_instance_id"`
	Entries        []ProgressEntry `json:"entries"`
	TotalTimeSec   int             `json:"total_time_sec"`
}

func (p *TestProgress) Empty() bool {
	return p == nil || len(p.Entries) == 0
}
