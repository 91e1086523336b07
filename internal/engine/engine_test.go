package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/habit-bot/internal/assistant"
	"github.com/xaenox/habit-bot/internal/clock"
	"github.com/xaenox/habit-bot/internal/models"
	"github.com/xaenox/habit-bot/internal/storage"
	"go.uber.org/zap"
)

const testUser int64 = 42

type stubAssistant struct {
	answer string
	err    error
	asked  []string
	onAsk  func()
}

func (s *stubAssistant) Ask(question string) (string, error) {
	s.asked = append(s.asked, question)
	if s.onAsk != nil {
		s.onAsk()
	}
	return s.answer, s.err
}

func newTestEngine(t *testing.T) (*Engine, *storage.Store, *clock.Fake, *stubAssistant) {
	t.Helper()
	store := storage.NewStore()
	clk := clock.NewFake(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))
	stub := &stubAssistant{answer: "Breathe 🌊"}
	return New(store, stub, clk, zap.NewNop()), store, clk, stub
}

func lastReply(t *testing.T, replies []Reply) Reply {
	t.Helper()
	require.NotEmpty(t, replies)
	return replies[len(replies)-1]
}

func TestMindfulnessNoteFlow(t *testing.T) {
	e, store, clk, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnMindful)
	e.HandleMessage(testUser, BtnAddNote)
	r := lastReply(t, e.HandleMessage(testUser, "Felt calm"))

	assert.Equal(t, msgMindfulSaved, r.Text)
	assert.Equal(t, MenuMain, r.Menu)

	entries := store.MindfulnessSince(testUser, time.Time{})
	require.Len(t, entries, 1)
	assert.Equal(t, "Felt calm", entries[0].Note)
	assert.True(t, entries[0].Time.Equal(clk.Now()))
}

func TestMindfulness_CancelDiscardsDraft(t *testing.T) {
	e, store, _, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnMindful)
	r := lastReply(t, e.HandleMessage(testUser, BtnCancel))

	assert.Equal(t, msgCancelled, r.Text)
	assert.Empty(t, store.MindfulnessSince(testUser, time.Time{}))
}

func TestMindfulness_SkipNoteCommitsDefault(t *testing.T) {
	e, store, _, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnMindful)
	e.HandleMessage(testUser, BtnAddNote)
	e.HandleMessage(testUser, BtnSkipNote)

	entries := store.MindfulnessSince(testUser, time.Time{})
	require.Len(t, entries, 1)
	assert.Equal(t, models.NoNote, entries[0].Note)
}

func TestNoteConfirmation_RepromptsOnNoise(t *testing.T) {
	e, store, _, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnMindful)
	r := lastReply(t, e.HandleMessage(testUser, "what?"))

	assert.Equal(t, msgNoteReprompt, r.Text)
	assert.Equal(t, MenuNoteConfirm, r.Menu)
	assert.Empty(t, store.MindfulnessSince(testUser, time.Time{}))

	// The flow is still alive.
	e.HandleMessage(testUser, BtnAddNote)
	e.HandleMessage(testUser, "still here")
	require.Len(t, store.MindfulnessSince(testUser, time.Time{}), 1)
}

func TestStartWorkout_SecondStartRejected(t *testing.T) {
	e, store, _, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnStartWorkout)
	e.HandleMessage(testUser, BtnCancel)
	r := lastReply(t, e.HandleMessage(testUser, BtnStartWorkout))

	assert.Equal(t, msgAlreadyActive, r.Text)
	assert.Len(t, store.ActiveSessions(), 1)
}

func TestWorkout_ExactAccounting(t *testing.T) {
	e, store, clk, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnStartWorkout)
	e.HandleMessage(testUser, BtnCancel)

	clk.Advance(47 * time.Minute)

	e.HandleMessage(testUser, BtnFinishWorkout)
	e.HandleMessage(testUser, BtnSkipNote)

	entries := store.FitnessSince(testUser, time.Time{})
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Duration)
	assert.Equal(t, 47*time.Minute, *entries[0].Duration)
	assert.Empty(t, store.ActiveSessions())
}

func TestFinishWorkout_NoneRunning(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	r := lastReply(t, e.HandleMessage(testUser, BtnFinishWorkout))

	assert.Equal(t, msgNoActiveSession, r.Text)
}

func TestFinishWorkout_CancelNeverLosesWorkout(t *testing.T) {
	e, store, clk, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnStartWorkout)
	e.HandleMessage(testUser, BtnCancel)
	clk.Advance(time.Hour)
	e.HandleMessage(testUser, BtnFinishWorkout)
	e.HandleMessage(testUser, BtnCancel)

	entries := store.FitnessSince(testUser, time.Time{})
	require.Len(t, entries, 1)
	assert.Equal(t, models.NoNote, entries[0].Note)
	require.NotNil(t, entries[0].Duration)
	assert.Equal(t, time.Hour, *entries[0].Duration)
}

func TestStartNote_CarriedIntoFinalEntry(t *testing.T) {
	e, store, clk, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnStartWorkout)
	e.HandleMessage(testUser, BtnAddNote)
	e.HandleMessage(testUser, "morning run")
	clk.Advance(30 * time.Minute)
	e.HandleMessage(testUser, BtnFinishWorkout)
	e.HandleMessage(testUser, BtnSkipNote)

	entries := store.FitnessSince(testUser, time.Time{})
	require.Len(t, entries, 1)
	assert.Equal(t, "morning run", entries[0].Note)
}

func TestMenuInterrupt_AlwaysWins(t *testing.T) {
	e, store, clk, _ := newTestEngine(t)

	// A mindfulness draft is discarded by a menu button.
	e.HandleMessage(testUser, BtnMindful)
	r := lastReply(t, e.HandleMessage(testUser, BtnStatistics))
	assert.Equal(t, msgChooseCategory, r.Text)
	assert.Empty(t, store.MindfulnessSince(testUser, time.Time{}))

	// A just-finished workout draft survives the interrupt.
	e.HandleMessage(testUser, BtnStartWorkout)
	e.HandleMessage(testUser, BtnCancel)
	clk.Advance(20 * time.Minute)
	e.HandleMessage(testUser, BtnFinishWorkout)
	e.HandleMessage(testUser, BtnMindful)

	entries := store.FitnessSince(testUser, time.Time{})
	require.Len(t, entries, 1)
	assert.Equal(t, models.NoNote, entries[0].Note)
}

func TestAssistantFlow(t *testing.T) {
	e, _, _, stub := newTestEngine(t)

	e.HandleMessage(testUser, BtnAskAssistant)
	r := lastReply(t, e.HandleMessage(testUser, "How do I stay calm?"))

	assert.Equal(t, "Breathe 🌊", r.Text)
	assert.Equal(t, []string{"How do I stay calm?"}, stub.asked)
}

func TestAssistantFlow_Cancel(t *testing.T) {
	e, _, _, stub := newTestEngine(t)

	e.HandleMessage(testUser, BtnAskAssistant)
	r := lastReply(t, e.HandleMessage(testUser, BtnCancel))

	assert.Equal(t, msgCancelled, r.Text)
	assert.Empty(t, stub.asked)
}

func TestAssistantFlow_FailureMapsToApology(t *testing.T) {
	e, _, _, stub := newTestEngine(t)
	stub.err = assistant.ErrUnreachable

	e.HandleMessage(testUser, BtnAskAssistant)
	r := lastReply(t, e.HandleMessage(testUser, "hello?"))
	assert.Equal(t, msgAssistantFailed, r.Text)

	stub.err = assistant.ErrUnconfigured
	e.HandleMessage(testUser, BtnAskAssistant)
	r = lastReply(t, e.HandleMessage(testUser, "hello?"))
	assert.Equal(t, msgAssistantNoSetup, r.Text)
}

func TestAssistantFlow_ThinkingNoticePrecedesCall(t *testing.T) {
	e, _, _, stub := newTestEngine(t)

	var events []string
	e.SetProgressFunc(func(userID int64, r Reply) {
		assert.Equal(t, testUser, userID)
		events = append(events, "notice:"+r.Text)
	})
	stub.onAsk = func() { events = append(events, "ask") }

	e.HandleMessage(testUser, BtnAskAssistant)
	replies := e.HandleMessage(testUser, "How do I stay calm?")

	// The notice must go out before Ask, which may block for its full
	// timeout, and must not be duplicated in the returned batch.
	require.Equal(t, []string{"notice:" + msgThinking, "ask"}, events)
	require.Len(t, replies, 1)
	assert.Equal(t, "Breathe 🌊", replies[0].Text)
}

func TestStatistics_NoDataMessage(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnStatistics)
	e.HandleMessage(testUser, BtnStatsFitness)
	r := lastReply(t, e.HandleMessage(testUser, BtnPeriodToday))

	assert.Equal(t, msgNoData, r.Text)
	assert.Equal(t, MenuMain, r.Menu)
}

func TestStatistics_FitnessReportWithTotal(t *testing.T) {
	e, store, clk, _ := newTestEngine(t)

	store.AppendFitness(testUser, clk.Now().Add(-2*time.Hour), "run", 30*time.Minute, false)
	store.AppendFitness(testUser, clk.Now().Add(-time.Hour), models.NoNote, 15*time.Minute, true)

	e.HandleMessage(testUser, BtnStatistics)
	e.HandleMessage(testUser, BtnStatsFitness)
	r := lastReply(t, e.HandleMessage(testUser, BtnPeriodToday))

	assert.Contains(t, r.Text, "Workouts: 2")
	assert.Contains(t, r.Text, "Total time: 45m 0s")
	assert.Contains(t, r.Text, "run")
	assert.Contains(t, r.Text, "auto-finished")
}

func TestStatistics_TodayExcludesYesterday(t *testing.T) {
	e, store, clk, _ := newTestEngine(t)

	store.AppendMindfulness(testUser, clk.Now().Add(-36*time.Hour), "yesterday")
	store.AppendMindfulness(testUser, clk.Now(), "today")

	e.HandleMessage(testUser, BtnStatistics)
	e.HandleMessage(testUser, BtnStatsMindfulness)
	r := lastReply(t, e.HandleMessage(testUser, BtnPeriodToday))

	assert.Contains(t, r.Text, "Mindfulness: 1")
	assert.Contains(t, r.Text, "today")
	assert.NotContains(t, r.Text, "yesterday")
}

func TestStatistics_BackNavigation(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	e.HandleMessage(testUser, BtnStatistics)
	e.HandleMessage(testUser, BtnStatsMindfulness)
	r := lastReply(t, e.HandleMessage(testUser, BtnBack))
	assert.Equal(t, msgChooseCategory, r.Text)

	r = lastReply(t, e.HandleMessage(testUser, BtnBack))
	assert.Equal(t, msgUseMenu, r.Text)
	assert.Equal(t, MenuMain, r.Menu)
}

func TestUnknownInput_PointsToMenu(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	r := lastReply(t, e.HandleMessage(testUser, "hello bot"))

	assert.Equal(t, msgUseMenu, r.Text)
	assert.Equal(t, MenuMain, r.Menu)
}
