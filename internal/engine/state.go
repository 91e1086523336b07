package engine

import (
	"time"

	"github.com/xaenox/habit-bot/internal/models"
)

// draft holds the in-flight, uncommitted fields of an entry awaiting note
// confirmation or input. For a finished workout Duration is set and
// CarriedNote holds any note recorded when the session started.
type draft struct {
	Category    models.Category
	StartedAt   time.Time
	Duration    *time.Duration
	CarriedNote string
}

// finished reports whether this is a just-finished workout draft, i.e. one
// whose entry must never be lost to a cancel or a menu interrupt.
func (d draft) finished() bool {
	return d.Category == models.CategoryFitness && d.Duration != nil
}

// conversation is the closed set of per-user dialogue states. Absence from
// the state map means idle. Each variant carries exactly the fields its step
// needs, so partial or contradictory state cannot be represented.
type conversation interface {
	isConversation()
}

type awaitingAssistantQuestion struct{}

type awaitingNoteConfirmation struct {
	draft draft
}

type awaitingNoteText struct {
	draft draft
}

type statCategoryMenu struct{}

type statPeriodMenu struct {
	category models.Category
}

func (awaitingAssistantQuestion) isConversation() {}
func (awaitingNoteConfirmation) isConversation()  {}
func (awaitingNoteText) isConversation()          {}
func (statCategoryMenu) isConversation()          {}
func (statPeriodMenu) isConversation()            {}
