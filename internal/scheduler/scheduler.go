package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/xaenox/habit-bot/internal/clock"
	"github.com/xaenox/habit-bot/internal/models"
	"github.com/xaenox/habit-bot/internal/storage"
	"go.uber.org/zap"
)

// ErrUserUnreachable marks a push failure that means the user cannot be
// reached at all (blocked the bot, deleted the account). The daily prompt
// removes such users from the subscription list.
var ErrUserUnreachable = errors.New("user unreachable")

// Notifier pushes a text message to a user outside of any conversation.
type Notifier interface {
	Push(userID int64, text string) error
}

// Config carries the fixed hours and intervals for the six timer loops.
type Config struct {
	PromptHour  int
	ReportHour  int
	CleanupHour int

	CheckInterval    time.Duration
	SnapshotInterval time.Duration

	AutoFinishAfter time.Duration
	RemindAfter     time.Duration
	Retention       time.Duration
}

// DefaultConfig matches the documented schedule: prompt at 10:00, report at
// 23:00, cleanup at 03:00, five-minute session checks, one-minute snapshots,
// three-hour auto-finish, two-hour reminder, 90-day retention.
func DefaultConfig() Config {
	return Config{
		PromptHour:       10,
		ReportHour:       23,
		CleanupHour:      3,
		CheckInterval:    5 * time.Minute,
		SnapshotInterval: time.Minute,
		AutoFinishAfter:  3 * time.Hour,
		RemindAfter:      2 * time.Hour,
		Retention:        90 * 24 * time.Hour,
	}
}

// dailyPrompts is the fixed pool the daily prompt draws from.
var dailyPrompts = []string{
	"Notice how often you breathe today. Take 3 deep breaths every hour.",
	"Feel your feet. Walk barefoot for at least 5 minutes.",
	"Drink your tea or coffee without looking at your phone. Taste it, feel its warmth, smell it.",
	"Pick one routine action today and do it twice as slowly as usual.",
	"Before replying to anyone, pause for one full breath.",
}

// Scheduler runs the six autonomous timer loops against the session store.
// Each loop is an independent goroutine: it computes the time until its next
// trigger through the injectable clock, sleeps, acts, and recomputes. A
// panicking loop body is logged and the loop carries on; loops only exit on
// context cancellation.
type Scheduler struct {
	store    *storage.Store
	persist  storage.Persistence
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger
	cfg      Config
}

func New(store *storage.Store, persist storage.Persistence, notifier Notifier, clk clock.Clock, cfg Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		persist:  persist,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start launches all six loops. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.runDaily(ctx, "daily_prompt", s.cfg.PromptHour, s.sendDailyPrompt)
	go s.runDaily(ctx, "daily_report", s.cfg.ReportHour, s.sendDailyReports)
	go s.runEvery(ctx, "reaper", s.cfg.CheckInterval, s.reapStaleSessions)
	go s.runEvery(ctx, "reminder", s.cfg.CheckInterval, s.remindLongSessions)
	go s.runDaily(ctx, "cleanup", s.cfg.CleanupHour, s.cleanupOldEntries)
	go s.runEvery(ctx, "snapshot", s.cfg.SnapshotInterval, s.saveIfDirty)
}

// runDaily fires once per day at the given hour in the clock's zone.
func (s *Scheduler) runDaily(ctx context.Context, name string, hour int, body func()) {
	for {
		wait := clock.NextAtHour(s.clock.Now(), hour).Sub(s.clock.Now())
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(wait):
		}
		s.guard(name, body)
	}
}

// runEvery fires on a fixed interval.
func (s *Scheduler) runEvery(ctx context.Context, name string, interval time.Duration, body func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(interval):
		}
		s.guard(name, body)
	}
}

// guard keeps a panicking loop body from killing its loop.
func (s *Scheduler) guard(name string, body func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduler loop panicked",
				zap.String("loop", name),
				zap.Any("panic", r))
		}
	}()
	body()
}

func (s *Scheduler) sendDailyPrompt() {
	prompt := dailyPrompts[rand.Intn(len(dailyPrompts))]
	text := "🌅 Today's practice:\n\n" + prompt

	for _, userID := range s.store.Subscribers() {
		if err := s.notifier.Push(userID, text); err != nil {
			if errors.Is(err, ErrUserUnreachable) {
				s.store.Unsubscribe(userID)
				s.logger.Info("Unsubscribed unreachable user", zap.Int64("user_id", userID))
				continue
			}
			s.logger.Warn("Failed to push daily prompt",
				zap.Error(err),
				zap.Int64("user_id", userID))
		}
	}
}

func (s *Scheduler) sendDailyReports() {
	dayStart := clock.StartOfDay(s.clock.Now())

	for _, userID := range s.store.UsersWithEntries() {
		sum := s.store.Aggregate(userID, dayStart)
		if sum.Empty() {
			continue
		}

		total := "0s"
		if sum.TotalDuration > 0 {
			total = clock.FormatDuration(sum.TotalDuration)
		}
		text := fmt.Sprintf("🌙 Daily report\n✨ Mindful moments: %d\n🏋️ Workouts: %d\n⏱ Time training: %s",
			sum.MindfulCount, sum.FitnessCount, total)

		if err := s.notifier.Push(userID, text); err != nil {
			s.logger.Warn("Failed to push daily report",
				zap.Error(err),
				zap.Int64("user_id", userID))
		}
	}
}

// reapStaleSessions force-finishes workouts that ran past the auto-finish
// timeout. A session the user ends between the scan and the end call is
// simply skipped, so reaping is idempotent.
func (s *Scheduler) reapStaleSessions() {
	now := s.clock.Now()

	for _, sess := range s.store.ActiveSessions() {
		if sess.Elapsed(now) <= s.cfg.AutoFinishAfter {
			continue
		}

		start, note, elapsed, err := s.store.EndSession(sess.UserID, now)
		if err != nil {
			continue
		}
		if note == "" {
			note = models.NoNote
		}
		s.store.AppendFitness(sess.UserID, start, note, elapsed, true)

		text := fmt.Sprintf("⚠️ Your workout started at %s was finished automatically.",
			start.Format("15:04"))
		if err := s.notifier.Push(sess.UserID, text); err != nil {
			s.logger.Warn("Failed to push auto-finish notice",
				zap.Error(err),
				zap.Int64("user_id", sess.UserID))
		}
	}
}

// remindLongSessions sends one reminder per session once it crosses the
// reminder threshold. The marker lives on the session, so it resets when the
// session ends and a later workout gets its own reminder.
func (s *Scheduler) remindLongSessions() {
	now := s.clock.Now()

	for _, sess := range s.store.ActiveSessions() {
		elapsed := sess.Elapsed(now)
		if sess.Reminded || elapsed < s.cfg.RemindAfter || elapsed > s.cfg.AutoFinishAfter {
			continue
		}

		text := fmt.Sprintf("🔔 You have been training for %s. Don't forget to finish the session!",
			clock.FormatDuration(s.cfg.RemindAfter))
		if err := s.notifier.Push(sess.UserID, text); err != nil {
			s.logger.Warn("Failed to push long-session reminder",
				zap.Error(err),
				zap.Int64("user_id", sess.UserID))
			continue
		}
		s.store.MarkReminded(sess.UserID)
	}
}

func (s *Scheduler) cleanupOldEntries() {
	cutoff := s.clock.Now().Add(-s.cfg.Retention)
	removed := s.store.PruneOlderThan(cutoff)
	if removed == 0 {
		return
	}

	s.logger.Info("Pruned old entries", zap.Int("removed", removed))
	s.ForceSave()
}

// saveIfDirty persists the durable subset when something changed since the
// last save. A failed save stays dirty and is retried on the next tick.
func (s *Scheduler) saveIfDirty() {
	if !s.store.Dirty() {
		return
	}
	s.ForceSave()
}

// ForceSave persists immediately, bypassing the debounce. Used after cleanup
// and on shutdown.
func (s *Scheduler) ForceSave() {
	if err := s.persist.Save(s.store.Snapshot()); err != nil {
		s.logger.Error("Failed to save snapshot", zap.Error(err))
		return
	}
	s.store.ClearDirty()
}
