package telegram_test

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"gt-shop/internal/logger"
	"gt-shop/internal/metrics"
	"gt-shop/internal/models"
	"gt-shop/internal/telegram"
)

func sampleOrder() *models.Order {
	return &models.Order{
		OrderID:    "GT-MF3K2A-XY12AB",
		BuyerEmail: "buyer@example.com",
		Category:   models.CategoryRGT,
		GrowID:     "Grower1",
		World:      "BUYDL",
		TotalPrice: 70000,
		Status:     models.StatusAwaitingAdminReview,
		ProofURL:   "http://localhost:8080/uploads/proofs/GT-MF3K2A-XY12AB/1_p.png",
	}
}

func newNotifier(t *testing.T) (*telegram.Notifier, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	return telegram.NewNotifier(sender, 9000, metrics.New("test"), logger.NewLogger()), sender
}

func TestNotifyProofUploadedCarriesOrderSummaryAndButtons(t *testing.T) {
	n, sender := newNotifier(t)

	err := n.NotifyProofUploaded(context.Background(), sampleOrder())

	assert.NoError(t, err)
	// Summary message plus proof photo.
	assert.Len(t, sender.sent, 2)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	if assert.True(t, ok) {
		assert.Equal(t, int64(9000), msg.ChatID)
		assert.Contains(t, msg.Text, "GT-MF3K2A-XY12AB")
		assert.Contains(t, msg.Text, "Grower1")
		assert.Contains(t, msg.Text, "Rp70.000")

		markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		if assert.True(t, ok) && assert.Len(t, markup.InlineKeyboard, 1) {
			row := markup.InlineKeyboard[0]
			if assert.Len(t, row, 2) {
				assert.Equal(t, "order:accept:GT-MF3K2A-XY12AB", *row[0].CallbackData)
				assert.Equal(t, "order:decline:GT-MF3K2A-XY12AB", *row[1].CallbackData)
			}
		}
	}
}

func TestNotifyProofUploadedWithoutPhoto(t *testing.T) {
	n, sender := newNotifier(t)

	o := sampleOrder()
	o.ProofURL = ""
	err := n.NotifyProofUploaded(context.Background(), o)

	assert.NoError(t, err)
	assert.Len(t, sender.sent, 1)
}

func TestNotifyAcceptedUsesDisplayLabel(t *testing.T) {
	n, sender := newNotifier(t)

	err := n.NotifyAccepted(context.Background(), sampleOrder(), "admin@example.com")

	assert.NoError(t, err)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, models.LabelAccepted)
	assert.Contains(t, msg.Text, "admin@example.com")
}

func TestNotifyDeclinedCarriesReason(t *testing.T) {
	n, sender := newNotifier(t)

	err := n.NotifyDeclined(context.Background(), sampleOrder(), "admin@example.com", "payment not received")

	assert.NoError(t, err)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, models.LabelDeclined)
	assert.Contains(t, msg.Text, "payment not received")
}
