package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/habit-bot/internal/engine"
	"github.com/xaenox/habit-bot/internal/scheduler"
	"github.com/xaenox/habit-bot/internal/storage"
	"go.uber.org/zap"
)

const welcomeMessage = "Hi! Let's grow together 🌱\n\n" +
	"Log mindful moments, track workouts, check your statistics or ask the assistant — all from the menu below."

const helpMessage = `Available commands:
/start - Subscribe to daily practice prompts and show the menu
/help - Show this help message

Everything else works through the menu buttons.`

// Bot wires Telegram long polling to the conversation engine. Messages from
// the same user are handled strictly in arrival order; different users are
// dispatched concurrently and never block each other.
type Bot struct {
	api      *tgbotapi.BotAPI
	engine   *engine.Engine
	store    *storage.Store
	logger   *zap.Logger
	dispatch *dispatcher
}

func New(token string, eng *engine.Engine, store *storage.Store, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		api:      api,
		engine:   eng,
		store:    store,
		logger:   logger,
		dispatch: newDispatcher(),
	}

	// Interim replies (the thinking notice ahead of a slow assistant call)
	// must reach the user before the final answer, so the engine pushes
	// them through here instead of returning them with the final batch.
	eng.SetProgressFunc(func(userID int64, r engine.Reply) {
		b.send(userID, r.Text, keyboardFor(r.Menu))
	})

	return b, nil
}

// Start runs the long-polling loop until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			message := update.Message
			b.dispatch.enqueue(message.From.ID, func() {
				b.handleMessage(message)
			})
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(message)
		return
	}

	replies := b.engine.HandleMessage(message.From.ID, message.Text)
	for _, r := range replies {
		b.send(message.Chat.ID, r.Text, keyboardFor(r.Menu))
	}
}

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.store.Subscribe(message.From.ID)
		b.send(message.Chat.ID, welcomeMessage, mainKeyboard)
	case "help":
		b.send(message.Chat.ID, helpMessage, mainKeyboard)
	default:
		b.send(message.Chat.ID, "Unknown command. Use /help to see available commands.", mainKeyboard)
	}
}

// Push implements scheduler.Notifier. A 403 from Telegram means the user
// blocked the bot; that is reported as ErrUserUnreachable so the caller can
// drop the subscription.
func (b *Bot) Push(userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		if apiErr, ok := err.(*tgbotapi.Error); ok && apiErr.Code == 403 {
			return fmt.Errorf("%w: %v", scheduler.ErrUserUnreachable, err)
		}
		return fmt.Errorf("failed to push message: %w", err)
	}
	return nil
}

func (b *Bot) send(chatID int64, text string, keyboard interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
