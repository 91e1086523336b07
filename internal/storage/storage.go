package storage

import (
	"errors"

	"github.com/xaenox/habit-bot/internal/models"
)

var (
	// ErrAlreadyActive is returned when a workout is started while another
	// one is still running for the same user.
	ErrAlreadyActive = errors.New("workout already active")

	// ErrNoActiveSession is returned when a workout is ended but none is
	// running for the user.
	ErrNoActiveSession = errors.New("no active workout")
)

// Persistence saves and loads the durable subset of the session store.
// Implementations are best-effort: a failed load yields an empty snapshot,
// a failed save is retried on the next periodic tick.
type Persistence interface {
	Load() (models.Snapshot, error)
	Save(models.Snapshot) error
	Close() error
}
