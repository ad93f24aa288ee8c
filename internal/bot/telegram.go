package bot

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// updatesAPI is the slice of the bot client the loop needs. *tgbotapi.BotAPI
// satisfies it.
type updatesAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot runs the long-poll update loop and dispatches to a Handler.
type Bot struct {
	api     updatesAPI
	handler *Handler
	logger  *log.Logger
}

// NewBot wires the update loop to a command handler.
func NewBot(api updatesAPI, handler *Handler, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{api: api, handler: handler, logger: logger}
}

// Run consumes updates until the context is canceled or the update channel
// closes. The long poll is stopped before returning.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handle(ctx, upd)
		}
	}
}

func (b *Bot) handle(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	var reply string
	switch {
	case msg.IsCommand():
		reply = b.handler.HandleCommand(ctx, msg.Command(), msg.CommandArguments(), msg.Chat.ID)
	default:
		kind, fileID := attachedMedia(msg)
		if fileID == "" {
			return
		}
		reply = b.handler.HandleMedia(kind, fileID, msg.Chat.ID)
	}
	if reply == "" {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(out); err != nil {
		b.logger.Printf("bot: reply failed: %v", err)
	}
}

// attachedMedia extracts the capture-relevant attachment. Animations arrive
// with a document alongside, so they are checked before photos.
func attachedMedia(msg *tgbotapi.Message) (kind, fileID string) {
	switch {
	case msg.Animation != nil:
		return "animation", msg.Animation.FileID
	case msg.Video != nil:
		return "video", msg.Video.FileID
	case len(msg.Photo) > 0:
		// Telegram sends multiple sizes; the last one is the largest.
		return "photo", msg.Photo[len(msg.Photo)-1].FileID
	}
	return "", ""
}
