package engine

// Button labels are the wire format of this bot: the transport renders them
// as reply-keyboard buttons and the engine matches incoming text against
// them. Changing a label breaks every keyboard already on a user's screen.
const (
	BtnMindful       = "✨ I'm mindful!"
	BtnStartWorkout  = "⏱ Start workout"
	BtnFinishWorkout = "🏁 Finish workout"
	BtnAskAssistant  = "🧠 Ask the assistant"
	BtnStatistics    = "📊 Statistics"

	BtnAddNote  = "📝 Add a note"
	BtnCancel   = "❌ Cancel"
	BtnSkipNote = "❌ Skip note"

	BtnStatsMindfulness = "📊 Mindfulness stats"
	BtnStatsFitness     = "📊 Fitness stats"
	BtnPeriodToday      = "📅 Today"
	BtnPeriodWeek       = "📆 This week"
	BtnBack             = "🔙 Back"
)

// Menu selects which keyboard layout accompanies a reply.
type Menu int

const (
	MenuNone Menu = iota
	MenuMain
	MenuNoteConfirm
	MenuNoteInput
	MenuStatCategory
	MenuStatPeriod
	MenuCancel
)

// Reply is one outbound message produced by the engine.
type Reply struct {
	Text string
	Menu Menu
}

func reply(text string, menu Menu) Reply {
	return Reply{Text: text, Menu: menu}
}
