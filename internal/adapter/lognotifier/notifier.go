// Package lognotifier reports matches through the structured logger. It is
// used when no Telegram bot is configured.
package lognotifier

import (
	"context"
	"log/slog"

	"github.com/user/olx-watcher/internal/entity"
)

type Notifier struct {
	logger *slog.Logger
}

// New returns a notifier writing to logger, or to the default logger when nil.
func New(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

func (n *Notifier) Send(ctx context.Context, match entity.Match) error {
	n.logger.InfoContext(ctx, "New matching listing",
		"id", match.Listing.ID,
		"model", match.Filter.Model,
		"title", match.Listing.Title,
		"price", match.Listing.PriceText,
		"price_value", match.Listing.PriceValue,
		"location", match.Listing.LocationAndTime,
		"link", match.Listing.Link,
	)
	return nil
}
