package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/habit-bot/internal/clock"
	"github.com/xaenox/habit-bot/internal/engine"
	"github.com/xaenox/habit-bot/internal/models"
	"github.com/xaenox/habit-bot/internal/storage"
)

type stubAssistant struct{}

func (stubAssistant) Ask(question string) (string, error) {
	return "answer", nil
}

// drain enqueues a sentinel task and waits for it; FIFO order guarantees
// every earlier task for that user has finished when it runs.
func drain(t *testing.T, d *dispatcher, userID int64) {
	t.Helper()
	done := make(chan struct{})
	d.enqueue(userID, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not drain in time")
	}
}

func TestDispatcherProcessesInEnqueueOrder(t *testing.T) {
	d := newDispatcher()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		d.enqueue(1, func() { got = append(got, i) })
	}
	drain(t, d, 1)

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestDispatcherUsersDoNotBlockEachOther(t *testing.T) {
	d := newDispatcher()

	started := make(chan struct{})
	release := make(chan struct{})
	d.enqueue(1, func() {
		close(started)
		<-release
	})
	<-started

	other := make(chan struct{})
	d.enqueue(2, func() { close(other) })
	select {
	case <-other:
	case <-time.After(2 * time.Second):
		t.Fatal("second user blocked behind first user's slow task")
	}
	close(release)
}

// A button press followed immediately by the note text must land in the
// engine in that order, or the note is treated as stray input.
func TestDispatcherKeepsConversationOrder(t *testing.T) {
	d := newDispatcher()
	store := storage.NewStore()
	clk := clock.NewFake(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	eng := engine.New(store, stubAssistant{}, clk, zap.NewNop())

	for _, text := range []string{engine.BtnMindful, engine.BtnAddNote, "Felt calm"} {
		text := text
		d.enqueue(7, func() { eng.HandleMessage(7, text) })
	}
	drain(t, d, 7)

	entries := store.MindfulnessSince(7, time.Time{})
	require.Len(t, entries, 1)
	assert.Equal(t, "Felt calm", entries[0].Note)
	assert.NotEqual(t, models.NoNote, entries[0].Note)
}
