package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kaspa-market-watch/internal/state"
)

// telegramAPI is the slice of the bot client the sink needs. *tgbotapi.BotAPI
// satisfies it.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSinkOptions configures a TelegramSink. Zero values fall back to
// sane defaults where one exists.
type TelegramSinkOptions struct {
	API          telegramAPI
	ChatID       int64
	LevelsChatID int64 // falls back to ChatID
	AdminChatID  int64 // falls back to ChatID

	CollectionName  string // falls back to "Bonkey"
	ImageBase       string
	ImagesCID       string
	ShowRarityScore bool

	Logger *log.Logger
}

// TelegramSink publishes events to Telegram chats, with per-event media and
// inline buttons.
type TelegramSink struct {
	api          telegramAPI
	chatID       int64
	levelsChatID int64
	adminChatID  int64

	collection string
	imageBase  string
	imagesCID  string
	showScore  bool

	logger *log.Logger
}

// NewTelegramSink builds a sink from options.
func NewTelegramSink(opts TelegramSinkOptions) *TelegramSink {
	s := &TelegramSink{
		api:          opts.API,
		chatID:       opts.ChatID,
		levelsChatID: opts.LevelsChatID,
		adminChatID:  opts.AdminChatID,
		collection:   opts.CollectionName,
		imageBase:    opts.ImageBase,
		imagesCID:    opts.ImagesCID,
		showScore:    opts.ShowRarityScore,
		logger:       opts.Logger,
	}
	if s.levelsChatID == 0 {
		s.levelsChatID = s.chatID
	}
	if s.adminChatID == 0 {
		s.adminChatID = s.chatID
	}
	if s.collection == "" {
		s.collection = "Bonkey"
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Publish renders the event and sends it with the configured media slot,
// falling back to the collectible image and finally to plain text.
func (s *TelegramSink) Publish(_ context.Context, ev Event) error {
	caption := s.caption(ev)
	chat := s.chatID
	if ev.Kind == KindLevelUpdate {
		chat = s.levelsChatID
	}
	markup := s.buttons(ev)

	if msg := mediaMessage(chat, ev.Media, caption, markup); msg != nil {
		if _, err := s.api.Send(msg); err == nil {
			return nil
		} else {
			s.logger.Printf("notify: media send failed, falling back: %v", err)
		}
	}

	if s.isCollectible(ev) && s.imageBase != "" && s.imagesCID != "" {
		photo := tgbotapi.NewPhoto(chat, tgbotapi.FileURL(ImageURL(s.imageBase, s.imagesCID, ev.TokenID)))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			photo.ReplyMarkup = markup
		}
		if _, err := s.api.Send(photo); err == nil {
			return nil
		} else {
			s.logger.Printf("notify: image send failed, falling back to text: %v", err)
		}
	}

	text := tgbotapi.NewMessage(chat, caption)
	text.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		text.ReplyMarkup = markup
	}
	_, err := s.api.Send(text)
	return err
}

// NotifyAdmin sends operator-facing text to the admin chat.
func (s *TelegramSink) NotifyAdmin(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(s.adminChatID, text)
	_, err := s.api.Send(msg)
	return err
}

func (s *TelegramSink) isCollectible(ev Event) bool {
	switch ev.Kind {
	case KindListed, KindSold, KindLevelUpdate:
		return true
	}
	return false
}

func (s *TelegramSink) caption(ev Event) string {
	switch ev.Kind {
	case KindListed:
		return s.collectibleCaption("🖼 *LISTED*", ev)
	case KindSold:
		return s.collectibleCaption("✅ *SOLD*", ev)
	case KindLevelUpdate:
		return s.levelCaption(ev)
	case KindTokenTrade:
		return s.tokenTradeCaption(ev)
	case KindDexTrade:
		return s.dexTradeCaption(ev)
	}
	return ""
}

func (s *TelegramSink) collectibleCaption(header string, ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s #%s\n", header, s.collection, ev.TokenID)
	fmt.Fprintf(&b, "💰 Price: %s KAS\n", FormatPrice(ev.Price))
	s.appendRarity(&b, ev)
	if lvl := ev.Level; lvl != nil {
		fmt.Fprintf(&b, "🔋 Level: %d\n", *lvl)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *TelegramSink) levelCaption(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⬆️ *LEVEL UPDATE* — %s #%s\n", s.collection, ev.TokenID)
	old, now := "?", "?"
	if ev.OldLevel != nil {
		old = fmt.Sprintf("%d", *ev.OldLevel)
	}
	if ev.Level != nil {
		now = fmt.Sprintf("%d", *ev.Level)
	}
	fmt.Fprintf(&b, "🔋 Level %s → %s\n", old, now)
	s.appendRarity(&b, ev)
	return strings.TrimRight(b.String(), "\n")
}

func (s *TelegramSink) appendRarity(b *strings.Builder, ev Event) {
	r := ev.Rarity
	if r.Rank != nil {
		if s.showScore && r.Score != nil {
			fmt.Fprintf(b, "⭐ Rank: %d | Score: %s\n", *r.Rank, FormatCompact(*r.Score))
		} else {
			fmt.Fprintf(b, "⭐ Rank: %d\n", *r.Rank)
		}
	}
	if r.Continent != "" {
		fmt.Fprintf(b, "🌍 Continent: %s\n", r.Continent)
	}
	if r.Rewards != "" {
		fmt.Fprintf(b, "🎁 Rewards: %s\n", r.Rewards)
	}
}

func (s *TelegramSink) tokenTradeCaption(ev Event) string {
	o := ev.Order
	if o == nil {
		return ""
	}
	ticker := ev.TickerUsed
	if ticker == "" {
		ticker = o.Ticker
	}
	header := "🟢 *KRC20 BUY*"
	if ev.BigBuy {
		header = "🐋 *KRC20 BIG BUY*"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n", header, strings.ToUpper(ticker))
	if o.Amount != nil {
		fmt.Fprintf(&b, "🪙 Amount: %s\n", FormatCompact(*o.Amount))
	}
	if o.PricePerToken != nil {
		fmt.Fprintf(&b, "💱 Price/token: %s KAS\n", FormatCompact(*o.PricePerToken))
	}
	if o.TotalPrice != nil {
		fmt.Fprintf(&b, "💰 Total: %s KAS\n", FormatCompact(*o.TotalPrice))
	}
	if o.Buyer != "" {
		fmt.Fprintf(&b, "👤 Buyer: `%s`\n", ShortAddr(o.Buyer))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *TelegramSink) dexTradeCaption(ev Event) string {
	t := ev.Trade
	if t == nil {
		return ""
	}
	var header string
	switch {
	case ev.BigBuy:
		header = "🐋 *BIG BUY*"
	case t.Direction == "buy":
		header = "🟢 *BUY*"
	default:
		header = "🔴 *SELL*"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s on %s\n", header, t.TokenSymbol, t.Dex)
	fmt.Fprintf(&b, "🪙 %s: %s\n", t.TokenSymbol, FormatDecimal(t.TokenAmount))
	fmt.Fprintf(&b, "💰 %s: %s\n", t.QuoteSymbol, FormatDecimal(t.QuoteAmount))
	if t.HasPrice {
		fmt.Fprintf(&b, "💱 Price: %s %s\n", FormatDecimal(t.PricePerToken), t.QuoteSymbol)
	}
	if t.TxHash != "" {
		fmt.Fprintf(&b, "🔗 Tx: `%s`\n", ShortAddr(t.TxHash))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *TelegramSink) buttons(ev Event) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if ev.URL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("View", ev.URL))
	}
	if ev.BuyLink != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("Buy", ev.BuyLink))
	}
	if len(row) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}

func mediaMessage(chat int64, m *state.MediaRef, caption string, markup *tgbotapi.InlineKeyboardMarkup) tgbotapi.Chattable {
	if m == nil || m.FileID == "" {
		return nil
	}
	switch m.Kind {
	case "photo":
		msg := tgbotapi.NewPhoto(chat, tgbotapi.FileID(m.FileID))
		msg.Caption = caption
		msg.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			msg.ReplyMarkup = markup
		}
		return msg
	case "animation":
		msg := tgbotapi.NewAnimation(chat, tgbotapi.FileID(m.FileID))
		msg.Caption = caption
		msg.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			msg.ReplyMarkup = markup
		}
		return msg
	case "video":
		msg := tgbotapi.NewVideo(chat, tgbotapi.FileID(m.FileID))
		msg.Caption = caption
		msg.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			msg.ReplyMarkup = markup
		}
		return msg
	}
	return nil
}
