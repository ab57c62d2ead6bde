package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/olx-watcher/internal/entity"
	"github.com/user/olx-watcher/internal/usecase"
)

type fakeWatcher struct {
	running  bool
	filters  []entity.Filter
	startErr error
}

func (f *fakeWatcher) Start(ctx context.Context) (bool, error) {
	if f.startErr != nil {
		return false, f.startErr
	}
	if len(f.filters) == 0 {
		return false, usecase.ErrNoFilters
	}
	if f.running {
		return false, nil
	}
	f.running = true
	return true, nil
}

func (f *fakeWatcher) Stop(ctx context.Context) (bool, error) {
	if !f.running {
		return false, nil
	}
	f.running = false
	return true, nil
}

func (f *fakeWatcher) AddFilter(ctx context.Context, model string, maxPrice *int) (entity.Filter, bool, error) {
	if strings.TrimSpace(model) == "" {
		return entity.Filter{}, false, usecase.ErrInvalidFilter
	}
	added := entity.NewFilter(model, maxPrice)
	for i, existing := range f.filters {
		if existing.Model == added.Model {
			f.filters = append(f.filters[:i], f.filters[i+1:]...)
			f.filters = append(f.filters, added)
			return added, true, nil
		}
	}
	f.filters = append(f.filters, added)
	return added, false, nil
}

func (f *fakeWatcher) RemoveFilter(ctx context.Context, model string) (bool, error) {
	for i, existing := range f.filters {
		if existing.Model == model {
			f.filters = append(f.filters[:i], f.filters[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWatcher) ListFilters(ctx context.Context) ([]entity.Filter, error) {
	return f.filters, nil
}

func (f *fakeWatcher) GetStatus(ctx context.Context) (*entity.RunStatus, error) {
	s := entity.DefaultRunStatus(0)
	s.Running = f.running
	s.ModelsTracked = f.filters
	return s, nil
}

func intPtr(v int) *int { return &v }

func TestParseAddArgs(t *testing.T) {
	tests := []struct {
		args      []string
		wantModel string
		wantPrice *int
	}{
		{[]string{"iPhone", "13", "Pro"}, "iPhone 13 Pro", nil},
		{[]string{"iPhone", "11", "500"}, "iPhone 11", intPtr(500)},
		{[]string{"500"}, "500", nil},
		{[]string{"iPhone", "11", "5OO"}, "iPhone 11 5OO", nil},
		{[]string{"iPhone", "11", "-5"}, "iPhone 11 -5", nil},
		{nil, "", nil},
	}
	for _, tt := range tests {
		model, price := ParseAddArgs(tt.args)
		assert.Equal(t, tt.wantModel, model, "args %v", tt.args)
		assert.Equal(t, tt.wantPrice, price, "args %v", tt.args)
	}
}

func TestAddListDelete(t *testing.T) {
	w := &fakeWatcher{}
	h := NewCommandHandler(w, 1)
	ctx := context.Background()

	reply := h.Execute(ctx, "add", nil, "")
	assert.Contains(t, reply.Text, "Please specify")

	reply = h.Execute(ctx, "add", []string{"iPhone", "11", "500"}, "")
	assert.Equal(t, "✅ Added 'iPhone 11' with max price 500 zł to tracked models.\nTotal models tracked: 1", reply.Text)

	reply = h.Execute(ctx, "add", []string{"iPhone", "<13>"}, "")
	assert.Contains(t, reply.Text, "Total models tracked: 2")

	reply = h.Execute(ctx, "list", nil, "")
	assert.True(t, reply.HTML)
	assert.Contains(t, reply.Text, "1. iPhone 11 (Max: 500 zł)\n")
	assert.Contains(t, reply.Text, "2. iPhone &lt;13&gt;\n")
	assert.Contains(t, reply.Text, "Total: 2 models")

	reply = h.Execute(ctx, "delete", []string{"iPhone", "11"}, "")
	assert.Equal(t, "✅ Removed 'iPhone 11' from tracked models.\nTotal models tracked: 1", reply.Text)

	reply = h.Execute(ctx, "delete", []string{"iPhone", "11"}, "")
	assert.Equal(t, "❌ 'iPhone 11' is not tracked.", reply.Text)

	reply = h.Execute(ctx, "delete", nil, "")
	assert.Contains(t, reply.Text, "Usage: /delete <model>")

	h.Execute(ctx, "delete", []string{"iPhone", "<13>"}, "")
	reply = h.Execute(ctx, "list", nil, "")
	assert.Contains(t, reply.Text, "No models are currently being tracked")
}

func TestRunStop(t *testing.T) {
	w := &fakeWatcher{}
	h := NewCommandHandler(w, 1)
	ctx := context.Background()

	assert.Contains(t, h.Execute(ctx, "run", nil, "").Text, "No models to track")

	w.filters = []entity.Filter{{Model: "iPhone 13"}}
	assert.Contains(t, h.Execute(ctx, "run", nil, "").Text, "Scraper started")
	assert.Contains(t, h.Execute(ctx, "run", nil, "").Text, "already running")
	assert.Equal(t, "✅ Scraper stopped.", h.Execute(ctx, "stop", nil, "").Text)
	assert.Equal(t, "⚠️ Scraper is not running.", h.Execute(ctx, "stop", nil, "").Text)

	w.startErr = usecase.ErrLoopBusy
	assert.Contains(t, h.Execute(ctx, "run", nil, "").Text, "still finishing")

	w.startErr = errors.New("chrome missing")
	assert.Contains(t, h.Execute(ctx, "run", nil, "").Text, "Failed to start")
}

func TestFormatStatus(t *testing.T) {
	s := entity.DefaultRunStatus(60)
	s.TotalPostsFound = 4
	s.ModelsTracked = []entity.Filter{{Model: "a"}, {Model: "b"}}

	text := FormatStatus(s)
	assert.Contains(t, text, "• <b>Running:</b> ❌ false\n")
	assert.Contains(t, text, "• <b>Last Check:</b> Never\n")
	assert.Contains(t, text, "• <b>Check Interval:</b> 60 seconds\n")
	assert.Contains(t, text, "• <b>Total Posts Found:</b> 4\n")
	assert.Contains(t, text, "• <b>Models Tracked:</b> 2\n")

	last := time.Date(2025, 5, 6, 7, 8, 9, 0, time.Local)
	s.Running = true
	s.LastCheck = &last
	text = FormatStatus(s)
	assert.Contains(t, text, "✅ true")
	assert.Contains(t, text, "2025-05-06 07:08:09")
}

func TestWelcomeAndUnknown(t *testing.T) {
	h := NewCommandHandler(&fakeWatcher{}, 1)
	assert.True(t, strings.HasPrefix(h.Execute(context.Background(), "start", nil, "Ala").Text, "Hello Ala! 👋"))
	assert.Empty(t, h.Execute(context.Background(), "unknown", nil, "").Text)
}

type fakeBot struct {
	updates chan tgbotapi.Update

	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	stopped bool
}

func (b *fakeBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) StopReceivingUpdates() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) sentMessages() []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), b.sent...)
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{FirstName: "Ala"},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd)},
		},
	}}
}

func TestRunServesConfiguredChatOnly(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update)}
	h := NewCommandHandler(&fakeWatcher{}, 42)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, bot) }()

	bot.updates <- commandUpdate(7, "/list")
	bot.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 42}}}
	bot.updates <- commandUpdate(42, "/status")
	bot.updates <- commandUpdate(42, "/add iPhone 13 1500")

	cancel()
	require.NoError(t, <-done)

	sent := bot.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, int64(42), sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, sent[0].ParseMode)
	assert.Contains(t, sent[0].Text, "Bot Status")
	assert.Contains(t, sent[1].Text, "Added 'iPhone 13' with max price 1500 zł")
	assert.Empty(t, sent[1].ParseMode)

	bot.mu.Lock()
	assert.True(t, bot.stopped)
	bot.mu.Unlock()
}
