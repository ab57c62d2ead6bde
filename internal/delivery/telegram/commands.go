// Package telegram serves the chat command interface of the watcher:
// /start /add /delete /list /status /run /stop.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/olx-watcher/internal/entity"
	"github.com/user/olx-watcher/internal/usecase"
)

const lastCheckLayout = "2006-01-02 15:04:05"

// Bot is the part of *tgbotapi.BotAPI the command loop uses.
type Bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Reply is the answer to one command.
type Reply struct {
	Text string
	HTML bool
}

type CommandHandler struct {
	watcher usecase.Watcher
	chatID  int64
}

// NewCommandHandler serves commands sent from chatID only.
func NewCommandHandler(watcher usecase.Watcher, chatID int64) *CommandHandler {
	return &CommandHandler{watcher: watcher, chatID: chatID}
}

// Run polls for updates until ctx is cancelled.
func (h *CommandHandler) Run(ctx context.Context, bot Bot) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)
	defer bot.StopReceivingUpdates()

	slog.Info("Telegram command loop started", "chat_id", h.chatID)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Telegram command loop stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram updates channel closed")
			}
			h.handleUpdate(ctx, bot, update)
		}
	}
}

func (h *CommandHandler) handleUpdate(ctx context.Context, bot Bot, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	if msg.Chat == nil {
		return
	}
	if msg.Chat.ID != h.chatID {
		slog.Warn("Ignoring command from unknown chat", "command", msg.Command(), "chat_id", msg.Chat.ID)
		return
	}

	name := ""
	if msg.From != nil {
		name = msg.From.FirstName
	}
	reply := h.Execute(ctx, msg.Command(), strings.Fields(msg.CommandArguments()), name)
	if reply.Text == "" {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply.Text)
	if reply.HTML {
		out.ParseMode = tgbotapi.ModeHTML
	}
	if _, err := bot.Send(out); err != nil {
		slog.Error("Failed to send command reply", "command", msg.Command(), "error", err)
	}
}

// Execute runs one command and returns the reply. Unknown commands get no reply.
func (h *CommandHandler) Execute(ctx context.Context, command string, args []string, userName string) Reply {
	slog.Debug("Telegram command", "command", command, "args", args)

	switch command {
	case "start", "help":
		return Reply{Text: welcomeMessage(userName)}
	case "add":
		return h.add(ctx, args)
	case "delete":
		return h.remove(ctx, args)
	case "list":
		return h.list(ctx)
	case "status":
		return h.status(ctx)
	case "run":
		return h.run(ctx)
	case "stop":
		return h.stop(ctx)
	default:
		return Reply{}
	}
}

func (h *CommandHandler) add(ctx context.Context, args []string) Reply {
	model, maxPrice := ParseAddArgs(args)
	if model == "" {
		return Reply{Text: "Please specify an iPhone model to track.\n" +
			"Examples:\n" +
			"• /add iPhone 13 Pro\n" +
			"• /add iPhone 11 500 (to set max price of 500 zł)"}
	}

	filter, _, err := h.watcher.AddFilter(ctx, model, maxPrice)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidFilter) {
			return Reply{Text: fmt.Sprintf("❌ %s", err)}
		}
		slog.Error("Failed to add filter", "model", model, "error", err)
		return Reply{Text: "❌ Failed to add model. Please try again."}
	}

	total := "?"
	if filters, err := h.watcher.ListFilters(ctx); err == nil {
		total = strconv.Itoa(len(filters))
	}
	priceInfo := ""
	if filter.MaxPrice != nil {
		priceInfo = fmt.Sprintf(" with max price %d zł", *filter.MaxPrice)
	}
	return Reply{Text: fmt.Sprintf("✅ Added '%s'%s to tracked models.\nTotal models tracked: %s", filter.Model, priceInfo, total)}
}

func (h *CommandHandler) remove(ctx context.Context, args []string) Reply {
	model := strings.Join(args, " ")
	if model == "" {
		filters, err := h.watcher.ListFilters(ctx)
		if err != nil {
			slog.Error("Failed to list filters", "error", err)
			return Reply{Text: "❌ Failed to load tracked models."}
		}
		if len(filters) == 0 {
			return Reply{Text: "No models are currently being tracked."}
		}
		return Reply{Text: "Usage: /delete <model>\n\n" + FormatFilters(filters), HTML: true}
	}

	removed, err := h.watcher.RemoveFilter(ctx, model)
	if err != nil {
		slog.Error("Failed to remove filter", "model", model, "error", err)
		return Reply{Text: "❌ Failed to remove model. Please try again."}
	}
	if !removed {
		return Reply{Text: fmt.Sprintf("❌ '%s' is not tracked.", model)}
	}

	total := "?"
	if filters, err := h.watcher.ListFilters(ctx); err == nil {
		total = strconv.Itoa(len(filters))
	}
	return Reply{Text: fmt.Sprintf("✅ Removed '%s' from tracked models.\nTotal models tracked: %s", model, total)}
}

func (h *CommandHandler) list(ctx context.Context) Reply {
	filters, err := h.watcher.ListFilters(ctx)
	if err != nil {
		slog.Error("Failed to list filters", "error", err)
		return Reply{Text: "❌ Failed to load tracked models."}
	}
	if len(filters) == 0 {
		return Reply{Text: "No models are currently being tracked. Add one with /add command."}
	}
	return Reply{Text: FormatFilters(filters), HTML: true}
}

func (h *CommandHandler) status(ctx context.Context) Reply {
	status, err := h.watcher.GetStatus(ctx)
	if err != nil {
		slog.Error("Failed to get status", "error", err)
		return Reply{Text: "❌ Failed to load the bot status."}
	}
	return Reply{Text: FormatStatus(status), HTML: true}
}

func (h *CommandHandler) run(ctx context.Context) Reply {
	started, err := h.watcher.Start(ctx)
	switch {
	case errors.Is(err, usecase.ErrNoFilters):
		return Reply{Text: "❌ No models to track. Add models first using /add command."}
	case errors.Is(err, usecase.ErrLoopBusy):
		return Reply{Text: "⏳ The previous scrape is still finishing. Try /run again in a moment."}
	case err != nil:
		slog.Error("Failed to start watcher", "error", err)
		return Reply{Text: "❌ Failed to start the scraper. Check the logs for details."}
	case !started:
		return Reply{Text: "⚠️ Scraper is already running."}
	}
	return Reply{Text: "✅ Scraper started. I'll notify you when new matching iPhone listings appear."}
}

func (h *CommandHandler) stop(ctx context.Context) Reply {
	stopped, err := h.watcher.Stop(ctx)
	if err != nil {
		slog.Error("Failed to stop watcher", "error", err)
		return Reply{Text: "❌ Failed to stop the scraper."}
	}
	if !stopped {
		return Reply{Text: "⚠️ Scraper is not running."}
	}
	return Reply{Text: "✅ Scraper stopped."}
}

// ParseAddArgs splits /add arguments into a model and an optional price. The
// last argument is a price only when it is all digits and is not the only argument.
func ParseAddArgs(args []string) (string, *int) {
	if len(args) > 1 && isDigits(args[len(args)-1]) {
		if price, err := strconv.Atoi(args[len(args)-1]); err == nil {
			return strings.Join(args[:len(args)-1], " "), &price
		}
	}
	return strings.Join(args, " "), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatFilters renders the numbered HTML list of tracked filters.
func FormatFilters(filters []entity.Filter) string {
	var b strings.Builder
	b.WriteString("📱 <b>Tracked iPhone Models:</b>\n\n")
	for i, f := range filters {
		fmt.Fprintf(&b, "%d. %s\n", i+1, html.EscapeString(f.String()))
	}
	fmt.Fprintf(&b, "\nTotal: %d models", len(filters))
	return b.String()
}

// FormatStatus renders the HTML status summary.
func FormatStatus(s *entity.RunStatus) string {
	emoji := "❌"
	if s.Running {
		emoji = "✅"
	}
	lastCheck := "Never"
	if s.LastCheck != nil {
		lastCheck = s.LastCheck.Local().Format(lastCheckLayout)
	}

	var b strings.Builder
	b.WriteString("<b>🤖 Bot Status</b>\n\n")
	fmt.Fprintf(&b, "• <b>Running:</b> %s %t\n", emoji, s.Running)
	fmt.Fprintf(&b, "• <b>Last Check:</b> %s\n", lastCheck)
	fmt.Fprintf(&b, "• <b>Check Interval:</b> %d seconds\n", s.CheckInterval)
	fmt.Fprintf(&b, "• <b>Total Posts Found:</b> %d\n", s.TotalPostsFound)
	fmt.Fprintf(&b, "• <b>Models Tracked:</b> %d\n", len(s.ModelsTracked))
	return b.String()
}

func welcomeMessage(name string) string {
	greeting := "Hello! 👋"
	if name != "" {
		greeting = fmt.Sprintf("Hello %s! 👋", name)
	}
	return greeting + "\n\n" +
		"I'm your iPhone OLX Scraper Bot. I'll help you track new iPhone listings on OLX.pl.\n\n" +
		"Commands you can use:\n" +
		"• /start - Show this welcome message\n" +
		"• /add <model> [max_price] - Add an iPhone model to track (with optional price limit)\n" +
		"• /delete <model> - Delete a tracked model\n" +
		"• /list - Show all tracked models\n" +
		"• /status - Check the bot's status\n" +
		"• /run - Start the scraper\n" +
		"• /stop - Stop the scraper\n\n" +
		"Let's start by adding an iPhone model to track using /add command!"
}
