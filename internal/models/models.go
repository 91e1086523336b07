package models

import "time"

// Category distinguishes the two activity logs.
type Category string

const (
	CategoryMindfulness Category = "mindfulness"
	CategoryFitness     Category = "fitness"
)

// NoNote is the note stored when the user skips or cancels note entry.
const NoNote = "no note"

// MindfulnessEntry is one logged moment of awareness.
// Entries are immutable once created: appended by the engine, pruned by the
// retention cleanup, never edited.
// The on-disk layout is owned by the storage layer's record types, so these
// carry no serialization tags.
type MindfulnessEntry struct {
	ID   string
	Time time.Time
	Note string
}

// FitnessEntry is one finalized workout. Duration is nil only for legacy
// entries loaded from snapshots written before durations were recorded.
type FitnessEntry struct {
	ID           string
	StartTime    time.Time
	Note         string
	Duration     *time.Duration
	AutoFinished bool
}

// ActiveSession is an in-progress workout that has not been finalized yet.
// Note carries a note recorded at session start, to be attached to the final
// entry. Reminded is set once the long-session reminder has fired for this
// session; it dies with the session, so a later workout can be reminded again.
type ActiveSession struct {
	UserID    int64
	StartedAt time.Time
	Note      string
	Reminded  bool
}

// Elapsed returns how long the session has been running as of now.
func (s ActiveSession) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// Summary aggregates one user's activity over a window.
// TotalDuration sums only fitness entries that carry a duration.
type Summary struct {
	MindfulCount  int
	FitnessCount  int
	TotalDuration time.Duration
}

// Empty reports whether the window held no activity at all.
func (s Summary) Empty() bool {
	return s.MindfulCount == 0 && s.FitnessCount == 0
}

// Snapshot is the durable subset of the session store: the two activity logs
// keyed by user id. Active sessions, conversation state and the subscription
// set are transient and deliberately excluded.
type Snapshot struct {
	Mindfulness map[int64][]MindfulnessEntry
	Fitness     map[int64][]FitnessEntry
}
