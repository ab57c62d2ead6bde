// Package telegram delivers match notifications to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/olx-watcher/internal/entity"
	"github.com/user/olx-watcher/internal/repository"
)

// MessageSender is the part of *tgbotapi.BotAPI the notifier uses.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	sender MessageSender
	chatID int64
}

func NewNotifier(sender MessageSender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

func (n *Notifier) Send(ctx context.Context, match entity.Match) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrNotifyFailed, err)
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatMatch(match))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = false

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("%w: listing %s: %v", repository.ErrNotifyFailed, match.Listing.ID, err)
	}
	return nil
}

// FormatMatch renders the HTML notification text for a match.
func FormatMatch(match entity.Match) string {
	l := match.Listing
	title := html.EscapeString(l.Title)

	price := html.EscapeString(l.PriceText)
	if match.Filter.HasCeiling() {
		price += fmt.Sprintf(" (Max: %d zł)", *match.Filter.MaxPrice)
	}

	var b strings.Builder
	b.WriteString("🔔 <b>New iPhone Listing</b> 🔔\n\n")
	fmt.Fprintf(&b, "📱 <b>Model:</b> %s\n", html.EscapeString(match.Filter.Model))
	fmt.Fprintf(&b, "💰 <b>Price:</b> %s\n", price)
	fmt.Fprintf(&b, "📍 <b>Details:</b> %s\n", html.EscapeString(l.LocationAndTime))
	fmt.Fprintf(&b, "🔗 <b>Link:</b> <a href=\"%s\">%s</a>\n\n", html.EscapeString(l.Link), title)
	fmt.Fprintf(&b, "<b>Title:</b> %s", title)
	return b.String()
}
