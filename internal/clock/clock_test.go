package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"seconds only", 42 * time.Second, "42s"},
		{"minutes and seconds", 5*time.Minute + 3*time.Second, "5m 3s"},
		{"hours", 2*time.Hour + 15*time.Minute + 1*time.Second, "2h 15m 1s"},
		{"zero", 0, "0s"},
		{"negative clamps to zero", -time.Minute, "0s"},
		{"sub-second truncates", 900 * time.Millisecond, "0s"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatDuration(tc.d))
		})
	}
}

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	now := time.Date(2024, time.March, 10, 18, 45, 12, 300, loc)
	want := time.Date(2024, time.March, 10, 0, 0, 0, 0, loc)

	assert.Equal(t, want, StartOfDay(now))
}

func TestNextAtHour(t *testing.T) {
	loc := time.UTC

	t.Run("later today", func(t *testing.T) {
		now := time.Date(2024, time.March, 10, 8, 30, 0, 0, loc)
		want := time.Date(2024, time.March, 10, 10, 0, 0, 0, loc)
		assert.Equal(t, want, NextAtHour(now, 10))
	})

	t.Run("already passed rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2024, time.March, 10, 11, 0, 0, 0, loc)
		want := time.Date(2024, time.March, 11, 10, 0, 0, 0, loc)
		assert.Equal(t, want, NextAtHour(now, 10))
	})

	t.Run("exactly on the hour rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2024, time.March, 10, 10, 0, 0, 0, loc)
		want := time.Date(2024, time.March, 11, 10, 0, 0, 0, loc)
		assert.Equal(t, want, NextAtHour(now, 10))
	})
}

func TestFake_AfterFiresOnAdvance(t *testing.T) {
	f := NewFake(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))

	ch := f.After(10 * time.Minute)

	select {
	case <-ch:
		t.Fatal("fired before advance")
	default:
	}

	f.Advance(5 * time.Minute)
	select {
	case <-ch:
		t.Fatal("fired too early")
	default:
	}

	f.Advance(5 * time.Minute)
	select {
	case <-ch:
	default:
		t.Fatal("did not fire after deadline")
	}
}

func TestFake_AfterZeroFiresImmediately(t *testing.T) {
	f := NewFake(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))

	select {
	case <-f.After(0):
	default:
		t.Fatal("did not fire immediately")
	}
}
