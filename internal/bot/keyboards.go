package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/habit-bot/internal/engine"
)

// Keyboard layouts keyed by conversation menu. The labels come from the
// engine: they are the wire format the FSM matches against.
var (
	mainKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnMindful),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnStartWorkout),
			tgbotapi.NewKeyboardButton(engine.BtnFinishWorkout),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnAskAssistant),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnStatistics),
		),
	)

	noteConfirmKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnAddNote),
			tgbotapi.NewKeyboardButton(engine.BtnCancel),
		),
	)

	noteInputKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnSkipNote),
			tgbotapi.NewKeyboardButton(engine.BtnCancel),
		),
	)

	statCategoryKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnStatsMindfulness),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnStatsFitness),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnBack),
		),
	)

	statPeriodKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnPeriodToday),
			tgbotapi.NewKeyboardButton(engine.BtnPeriodWeek),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnBack),
		),
	)

	cancelKeyboard = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(engine.BtnCancel),
		),
	)
)

func init() {
	for _, kb := range []*tgbotapi.ReplyKeyboardMarkup{
		&mainKeyboard, &noteConfirmKeyboard, &noteInputKeyboard,
		&statCategoryKeyboard, &statPeriodKeyboard, &cancelKeyboard,
	} {
		kb.ResizeKeyboard = true
	}
}

// keyboardFor maps a reply menu to its markup; MenuNone means no keyboard
// change.
func keyboardFor(menu engine.Menu) interface{} {
	switch menu {
	case engine.MenuMain:
		return mainKeyboard
	case engine.MenuNoteConfirm:
		return noteConfirmKeyboard
	case engine.MenuNoteInput:
		return noteInputKeyboard
	case engine.MenuStatCategory:
		return statCategoryKeyboard
	case engine.MenuStatPeriod:
		return statPeriodKeyboard
	case engine.MenuCancel:
		return cancelKeyboard
	default:
		return nil
	}
}
