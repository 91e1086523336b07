package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/habit-bot/internal/models"
)

// Store is the authoritative in-memory session store: activity logs, active
// workouts and the daily-prompt subscription set, all keyed by user id.
// A single mutex guards every operation; both the message dispatch path and
// the scheduler loops go through it, which makes read-then-write sequences
// like "check absent, then insert" atomic.
type Store struct {
	mu          sync.Mutex
	mindfulness map[int64][]models.MindfulnessEntry
	fitness     map[int64][]models.FitnessEntry
	active      map[int64]*models.ActiveSession
	subscribers map[int64]struct{}
	dirty       bool
}

func NewStore() *Store {
	return &Store{
		mindfulness: make(map[int64][]models.MindfulnessEntry),
		fitness:     make(map[int64][]models.FitnessEntry),
		active:      make(map[int64]*models.ActiveSession),
		subscribers: make(map[int64]struct{}),
	}
}

// AppendMindfulness records a mindfulness moment for the user.
func (s *Store) AppendMindfulness(userID int64, ts time.Time, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mindfulness[userID] = append(s.mindfulness[userID], models.MindfulnessEntry{
		ID:   uuid.New().String(),
		Time: ts,
		Note: note,
	})
	s.dirty = true
}

// AppendFitness records a finalized workout for the user.
func (s *Store) AppendFitness(userID int64, start time.Time, note string, duration time.Duration, auto bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := duration
	s.fitness[userID] = append(s.fitness[userID], models.FitnessEntry{
		ID:           uuid.New().String(),
		StartTime:    start,
		Note:         note,
		Duration:     &d,
		AutoFinished: auto,
	})
	s.dirty = true
}

// StartSession opens an active workout for the user. At most one may exist
// per user; a second start fails with ErrAlreadyActive.
func (s *Store) StartSession(userID int64, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[userID]; exists {
		return ErrAlreadyActive
	}
	s.active[userID] = &models.ActiveSession{UserID: userID, StartedAt: ts}
	return nil
}

// SetSessionNote attaches a note recorded at session start to the running
// workout. A no-op if the session has already ended.
func (s *Store) SetSessionNote(userID int64, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, exists := s.active[userID]; exists {
		sess.Note = note
	}
}

// EndSession closes the user's active workout and returns its start time,
// any start-flow note, and the elapsed duration. The caller decides when to
// append the finalized entry.
func (s *Store) EndSession(userID int64, end time.Time) (start time.Time, note string, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.active[userID]
	if !exists {
		return time.Time{}, "", 0, ErrNoActiveSession
	}
	delete(s.active, userID)
	return sess.StartedAt, sess.Note, end.Sub(sess.StartedAt), nil
}

// ActiveSessions returns a point-in-time copy of every running workout, so
// the reaper and reminder loops can iterate without holding the lock.
func (s *Store) ActiveSessions() []models.ActiveSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]models.ActiveSession, 0, len(s.active))
	for _, sess := range s.active {
		sessions = append(sessions, *sess)
	}
	return sessions
}

// MarkReminded sets the long-session reminder marker on the user's running
// workout, so the reminder fires at most once per session.
func (s *Store) MarkReminded(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, exists := s.active[userID]; exists {
		sess.Reminded = true
	}
}

// PruneOlderThan drops entries from both logs strictly older than cutoff and
// returns how many were removed. Users left with no entries are removed from
// the maps entirely.
func (s *Store) PruneOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, entries := range s.mindfulness {
		kept := entries[:0]
		for _, e := range entries {
			if e.Time.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(s.mindfulness, userID)
		} else {
			s.mindfulness[userID] = kept
		}
	}
	for userID, entries := range s.fitness {
		kept := entries[:0]
		for _, e := range entries {
			if e.StartTime.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(s.fitness, userID)
		} else {
			s.fitness[userID] = kept
		}
	}
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// MindfulnessSince returns the user's mindfulness entries with timestamp at
// or after since, in insertion (chronological) order.
func (s *Store) MindfulnessSince(userID int64, since time.Time) []models.MindfulnessEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.MindfulnessEntry
	for _, e := range s.mindfulness[userID] {
		if !e.Time.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

// FitnessSince returns the user's fitness entries with start time at or
// after since, in insertion (chronological) order.
func (s *Store) FitnessSince(userID int64, since time.Time) []models.FitnessEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.FitnessEntry
	for _, e := range s.fitness[userID] {
		if !e.StartTime.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

// Aggregate summarizes one user's activity since the given instant.
func (s *Store) Aggregate(userID int64, since time.Time) models.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum models.Summary
	for _, e := range s.mindfulness[userID] {
		if !e.Time.Before(since) {
			sum.MindfulCount++
		}
	}
	for _, e := range s.fitness[userID] {
		if !e.StartTime.Before(since) {
			sum.FitnessCount++
			if e.Duration != nil {
				sum.TotalDuration += *e.Duration
			}
		}
	}
	return sum
}

// UsersWithEntries returns every user id that has at least one entry in
// either log. Used by the daily report.
func (s *Store) UsersWithEntries() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]struct{}, len(s.mindfulness)+len(s.fitness))
	for userID := range s.mindfulness {
		seen[userID] = struct{}{}
	}
	for userID := range s.fitness {
		seen[userID] = struct{}{}
	}
	users := make([]int64, 0, len(seen))
	for userID := range seen {
		users = append(users, userID)
	}
	return users
}

// Subscribe adds the user to the daily-prompt push list.
func (s *Store) Subscribe(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[userID] = struct{}{}
}

// Unsubscribe removes an unreachable user from the push list.
func (s *Store) Unsubscribe(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, userID)
}

// Subscribers returns a copy of the current push list.
func (s *Store) Subscribers() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]int64, 0, len(s.subscribers))
	for userID := range s.subscribers {
		users = append(users, userID)
	}
	return users
}

// Snapshot copies the durable subset of the store for persistence.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		Mindfulness: make(map[int64][]models.MindfulnessEntry, len(s.mindfulness)),
		Fitness:     make(map[int64][]models.FitnessEntry, len(s.fitness)),
	}
	for userID, entries := range s.mindfulness {
		snap.Mindfulness[userID] = append([]models.MindfulnessEntry(nil), entries...)
	}
	for userID, entries := range s.fitness {
		snap.Fitness[userID] = append([]models.FitnessEntry(nil), entries...)
	}
	return snap
}

// Restore replaces the durable subset with a loaded snapshot. Called once at
// startup, before any other access.
func (s *Store) Restore(snap models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mindfulness = make(map[int64][]models.MindfulnessEntry, len(snap.Mindfulness))
	for userID, entries := range snap.Mindfulness {
		if len(entries) > 0 {
			s.mindfulness[userID] = append([]models.MindfulnessEntry(nil), entries...)
		}
	}
	s.fitness = make(map[int64][]models.FitnessEntry, len(snap.Fitness))
	for userID, entries := range snap.Fitness {
		if len(entries) > 0 {
			s.fitness[userID] = append([]models.FitnessEntry(nil), entries...)
		}
	}
	s.dirty = false
}

// Dirty reports whether the durable subset changed since the last ClearDirty.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// ClearDirty resets the debounce marker after a successful save.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}
