package engine

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/habit-bot/internal/assistant"
	"github.com/xaenox/habit-bot/internal/clock"
	"github.com/xaenox/habit-bot/internal/models"
	"github.com/xaenox/habit-bot/internal/storage"
	"go.uber.org/zap"
)

// Fixed user-facing texts. Failures are always a short apologetic line, never
// an error code.
const (
	msgUseMenu          = "Please use the menu buttons 🙂"
	msgMindfulConfirm   = "Moment saved in the draft ✨ Want to add a note?"
	msgWorkoutStarted   = "Workout started 💪 Want to add a note?"
	msgAlreadyActive    = "You already have a workout running. Finish it first 🏁"
	msgNoActiveSession  = "No workout is running right now."
	msgAskNoteText      = "Write your note 📝"
	msgNoteReprompt     = "Add a note, or cancel? 📝"
	msgAskQuestion      = "Write your question for the assistant 📝"
	msgThinking         = "🧠 Thinking..."
	msgCancelled        = "Cancelled."
	msgMindfulSaved     = "Great! Moment saved ✅"
	msgNoteAttached     = "Noted! The workout keeps running 💪"
	msgChooseCategory   = "What statistics would you like?"
	msgChoosePeriod     = "For which period?"
	msgNoData           = "No data for this period 🌱"
	msgAssistantFailed  = "🧠 The assistant could not be reached. Please try again later."
	msgAssistantNoSetup = "🧠 The assistant is not set up. Please contact the developer."
)

// Engine is the per-user conversational state machine. One invocation handles
// one inbound message and returns the replies to send. Top-level menu buttons
// always win: they are matched before any state-specific handling, so a user
// can escape any stuck flow from the main keyboard.
type Engine struct {
	store     *storage.Store
	assistant assistant.Assistant
	clock     clock.Clock
	logger    *zap.Logger

	mu       sync.Mutex
	states   map[int64]conversation
	progress func(userID int64, r Reply)
}

func New(store *storage.Store, gateway assistant.Assistant, clk clock.Clock, logger *zap.Logger) *Engine {
	return &Engine{
		store:     store,
		assistant: gateway,
		clock:     clk,
		logger:    logger,
		states:    make(map[int64]conversation),
	}
}

// SetProgressFunc registers a sink for interim replies that must reach the
// user before a slow call finishes, such as the thinking notice ahead of an
// assistant request. Without a sink interim replies are returned with the
// final batch.
func (e *Engine) SetProgressFunc(fn func(userID int64, r Reply)) {
	e.progress = fn
}

// HandleMessage runs one FSM transition for the user and returns the replies.
func (e *Engine) HandleMessage(userID int64, text string) []Reply {
	text = strings.TrimSpace(text)

	if replies, ok := e.handleTopLevel(userID, text); ok {
		return replies
	}

	switch state := e.state(userID).(type) {
	case awaitingAssistantQuestion:
		return e.handleAssistantQuestion(userID, text)
	case awaitingNoteConfirmation:
		return e.handleNoteConfirmation(userID, state.draft, text)
	case awaitingNoteText:
		return e.handleNoteText(userID, state.draft, text)
	case statCategoryMenu:
		return e.handleStatCategory(userID, text)
	case statPeriodMenu:
		return e.handleStatPeriod(userID, state.category, text)
	default:
		return []Reply{reply(msgUseMenu, MenuMain)}
	}
}

// handleTopLevel matches the main-menu vocabulary before any state handling.
// An in-flight draft is discarded, except a just-finished workout, which is
// committed with its default note first: the workout itself is never lost.
func (e *Engine) handleTopLevel(userID int64, text string) ([]Reply, bool) {
	switch text {
	case BtnMindful, BtnStartWorkout, BtnFinishWorkout, BtnAskAssistant, BtnStatistics:
	default:
		return nil, false
	}

	e.commitAbandonedDraft(userID)
	e.clearState(userID)

	switch text {
	case BtnMindful:
		e.setState(userID, awaitingNoteConfirmation{draft: draft{
			Category:  models.CategoryMindfulness,
			StartedAt: e.clock.Now(),
		}})
		return []Reply{reply(msgMindfulConfirm, MenuNoteConfirm)}, true

	case BtnStartWorkout:
		now := e.clock.Now()
		if err := e.store.StartSession(userID, now); err != nil {
			return []Reply{reply(msgAlreadyActive, MenuMain)}, true
		}
		e.setState(userID, awaitingNoteConfirmation{draft: draft{
			Category:  models.CategoryFitness,
			StartedAt: now,
		}})
		return []Reply{reply(msgWorkoutStarted, MenuNoteConfirm)}, true

	case BtnFinishWorkout:
		start, note, elapsed, err := e.store.EndSession(userID, e.clock.Now())
		if err != nil {
			return []Reply{reply(msgNoActiveSession, MenuMain)}, true
		}
		d := elapsed
		e.setState(userID, awaitingNoteConfirmation{draft: draft{
			Category:    models.CategoryFitness,
			StartedAt:   start,
			Duration:    &d,
			CarriedNote: note,
		}})
		msg := "Workout finished! ⏱ " + clock.FormatDuration(elapsed) + "\nWant to add a note?"
		return []Reply{reply(msg, MenuNoteConfirm)}, true

	case BtnAskAssistant:
		e.setState(userID, awaitingAssistantQuestion{})
		return []Reply{reply(msgAskQuestion, MenuCancel)}, true

	case BtnStatistics:
		e.setState(userID, statCategoryMenu{})
		return []Reply{reply(msgChooseCategory, MenuStatCategory)}, true
	}

	return nil, false
}

func (e *Engine) handleNoteConfirmation(userID int64, d draft, text string) []Reply {
	switch text {
	case BtnAddNote:
		e.setState(userID, awaitingNoteText{draft: d})
		return []Reply{reply(msgAskNoteText, MenuNoteInput)}

	case BtnCancel:
		e.clearState(userID)
		if d.finished() {
			// The workout was already ended; skipping the note must not
			// un-log it.
			return e.commitDraft(userID, d, models.NoNote)
		}
		return []Reply{reply(msgCancelled, MenuMain)}

	default:
		return []Reply{reply(msgNoteReprompt, MenuNoteConfirm)}
	}
}

func (e *Engine) handleNoteText(userID int64, d draft, text string) []Reply {
	e.clearState(userID)

	note := text
	if text == BtnSkipNote || text == BtnCancel {
		note = models.NoNote
	}
	return e.commitDraft(userID, d, note)
}

// commitDraft writes the draft to the store and renders the confirmation.
func (e *Engine) commitDraft(userID int64, d draft, note string) []Reply {
	switch {
	case d.Category == models.CategoryMindfulness:
		e.store.AppendMindfulness(userID, d.StartedAt, note)
		return []Reply{reply(msgMindfulSaved, MenuMain)}

	case d.finished():
		if note == models.NoNote && d.CarriedNote != "" {
			note = d.CarriedNote
		}
		e.store.AppendFitness(userID, d.StartedAt, note, *d.Duration, false)
		text := "Workout saved ✅ ⏱ " + clock.FormatDuration(*d.Duration)
		return []Reply{reply(text, MenuMain)}

	default:
		// Start-flow note: the session keeps running, the note rides along
		// until the workout is finalized.
		if note != models.NoNote {
			e.store.SetSessionNote(userID, note)
		}
		return []Reply{reply(msgNoteAttached, MenuMain)}
	}
}

// commitAbandonedDraft preserves a just-finished workout when its note flow
// is interrupted by a main-menu button.
func (e *Engine) commitAbandonedDraft(userID int64) {
	var d draft
	switch state := e.state(userID).(type) {
	case awaitingNoteConfirmation:
		d = state.draft
	case awaitingNoteText:
		d = state.draft
	default:
		return
	}
	if !d.finished() {
		return
	}
	note := models.NoNote
	if d.CarriedNote != "" {
		note = d.CarriedNote
	}
	e.store.AppendFitness(userID, d.StartedAt, note, *d.Duration, false)
}

func (e *Engine) handleAssistantQuestion(userID int64, text string) []Reply {
	if text == BtnCancel {
		e.clearState(userID)
		return []Reply{reply(msgCancelled, MenuMain)}
	}

	e.clearState(userID)

	// The thinking notice goes out before Ask, which may block for its
	// full timeout; otherwise the user stares at a silent chat.
	var out []Reply
	if e.progress != nil {
		e.progress(userID, reply(msgThinking, MenuNone))
	} else {
		out = append(out, reply(msgThinking, MenuNone))
	}

	answer, err := e.assistant.Ask(text)
	if err != nil {
		e.logger.Warn("Assistant call failed",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return append(out, reply(assistantApology(err), MenuMain))
	}
	return append(out, reply(answer, MenuMain))
}

func assistantApology(err error) string {
	if errors.Is(err, assistant.ErrUnconfigured) {
		return msgAssistantNoSetup
	}
	return msgAssistantFailed
}

func (e *Engine) handleStatCategory(userID int64, text string) []Reply {
	switch text {
	case BtnStatsMindfulness:
		e.setState(userID, statPeriodMenu{category: models.CategoryMindfulness})
		return []Reply{reply(msgChoosePeriod, MenuStatPeriod)}
	case BtnStatsFitness:
		e.setState(userID, statPeriodMenu{category: models.CategoryFitness})
		return []Reply{reply(msgChoosePeriod, MenuStatPeriod)}
	case BtnBack:
		e.clearState(userID)
		return []Reply{reply(msgUseMenu, MenuMain)}
	default:
		return []Reply{reply(msgChooseCategory, MenuStatCategory)}
	}
}

func (e *Engine) handleStatPeriod(userID int64, category models.Category, text string) []Reply {
	now := e.clock.Now()

	var since time.Time
	switch text {
	case BtnPeriodToday:
		since = clock.StartOfDay(now)
	case BtnPeriodWeek:
		since = now.AddDate(0, 0, -7)
	case BtnBack:
		e.setState(userID, statCategoryMenu{})
		return []Reply{reply(msgChooseCategory, MenuStatCategory)}
	default:
		return []Reply{reply(msgChoosePeriod, MenuStatPeriod)}
	}

	e.clearState(userID)
	return []Reply{reply(e.renderReport(userID, category, since), MenuMain)}
}

func (e *Engine) state(userID int64) conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[userID]
}

func (e *Engine) setState(userID int64, state conversation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states[userID] = state
}

func (e *Engine) clearState(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, userID)
}
