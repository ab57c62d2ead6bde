package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/olx-watcher/internal/entity"
	"github.com/user/olx-watcher/internal/repository"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func intPtr(v int) *int { return &v }

func sampleMatch() entity.Match {
	return entity.Match{
		Listing: entity.Listing{
			ID:              "abc123",
			Title:           "iPhone 13 <128GB> & case",
			PriceText:       "1 400 zł",
			PriceValue:      1400,
			Link:            "https://www.olx.pl/d/oferta/iphone-13-IDabc123.html",
			LocationAndTime: "Kraków - Dzisiaj o 10:15",
		},
		Filter: entity.Filter{Model: "iPhone 13", MaxPrice: intPtr(1500)},
	}
}

func TestFormatMatch(t *testing.T) {
	want := "🔔 <b>New iPhone Listing</b> 🔔\n\n" +
		"📱 <b>Model:</b> iPhone 13\n" +
		"💰 <b>Price:</b> 1 400 zł (Max: 1500 zł)\n" +
		"📍 <b>Details:</b> Kraków - Dzisiaj o 10:15\n" +
		"🔗 <b>Link:</b> <a href=\"https://www.olx.pl/d/oferta/iphone-13-IDabc123.html\">iPhone 13 &lt;128GB&gt; &amp; case</a>\n\n" +
		"<b>Title:</b> iPhone 13 &lt;128GB&gt; &amp; case"
	assert.Equal(t, want, FormatMatch(sampleMatch()))
}

func TestFormatMatchWithoutCeiling(t *testing.T) {
	m := sampleMatch()
	m.Filter.MaxPrice = nil
	assert.Contains(t, FormatMatch(m), "<b>Price:</b> 1 400 zł\n")

	m.Filter.MaxPrice = intPtr(0)
	assert.NotContains(t, FormatMatch(m), "Max:")
}

func TestSend(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, 42)

	require.NoError(t, n.Send(context.Background(), sampleMatch()))
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Equal(t, FormatMatch(sampleMatch()), msg.Text)
}

func TestSendFailure(t *testing.T) {
	n := NewNotifier(&fakeSender{err: errors.New("bad gateway")}, 42)
	err := n.Send(context.Background(), sampleMatch())
	assert.ErrorIs(t, err, repository.ErrNotifyFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewNotifier(&fakeSender{}, 42).Send(ctx, sampleMatch())
	assert.ErrorIs(t, err, repository.ErrNotifyFailed)
}
