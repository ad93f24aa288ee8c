package bot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaspa-market-watch/internal/ingestion"
	"kaspa-market-watch/internal/state"
)

// fakeUpdatesAPI feeds scripted updates and records shutdown.
type fakeUpdatesAPI struct {
	updates chan tgbotapi.Update
	sent    []tgbotapi.Chattable
	stopped bool
}

func (f *fakeUpdatesAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeUpdatesAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeUpdatesAPI) StopReceivingUpdates() { f.stopped = true }

func newLoopBot(t *testing.T, api *fakeUpdatesAPI) *Bot {
	t.Helper()
	store := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	runner := ingestion.NewRunner(ingestion.RunnerOptions{Store: store})
	return NewBot(api, &Handler{Runner: runner, AdminChatID: adminChat}, nil)
}

func commandUpdate(text string, chatID int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func TestRunStopsLongPollOnCancel(t *testing.T) {
	api := &fakeUpdatesAPI{updates: make(chan tgbotapi.Update)}
	b := newLoopBot(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.True(t, api.stopped, "the long poll must be stopped on shutdown")
}

func TestRunStopsLongPollWhenChannelCloses(t *testing.T) {
	api := &fakeUpdatesAPI{updates: make(chan tgbotapi.Update)}
	b := newLoopBot(t, api)

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	close(api.updates)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the update channel closed")
	}
	assert.True(t, api.stopped)
}

func TestRunDispatchesCommandAndReplies(t *testing.T) {
	api := &fakeUpdatesAPI{updates: make(chan tgbotapi.Update, 1)}
	b := newLoopBot(t, api)

	api.updates <- commandUpdate("/ping", adminChat)
	close(api.updates)
	require.NoError(t, b.Run(context.Background()))

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "pong", msg.Text)
	assert.Equal(t, adminChat, msg.ChatID)
}
