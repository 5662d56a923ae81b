package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gt-shop/internal/logger"
	"gt-shop/internal/metrics"
	"gt-shop/internal/models"
	"gt-shop/internal/utils"
)

// Notification action tags.
const (
	ActionProofUploaded = "proof_uploaded"
	ActionAccepted      = "accepted"
	ActionDeclined      = "declined"
)

// Callback payload prefix: "order:accept:<orderId>" / "order:decline:<orderId>".
const callbackPrefix = "order"

// Sender is the slice of the bot API the notifier uses. *tgbotapi.BotAPI
// satisfies it; tests substitute a recorder.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// DiscardSender satisfies Sender without a bot token. Local development
// runs with it so the order flow works before Telegram is configured.
type DiscardSender struct{}

func (DiscardSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return tgbotapi.Message{}, nil
}

func (DiscardSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// Notifier formats and delivers order-event messages to the operator chat.
type Notifier struct {
	Bot         Sender
	AdminChatID int64

	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewNotifier(bot Sender, adminChatID int64, m *metrics.Metrics, log *logger.Logger) *Notifier {
	return &Notifier{
		Bot:         bot,
		AdminChatID: adminChatID,
		metrics:     m,
		logger:      log,
	}
}

// NotifyProofUploaded posts the order summary with inline Accept/Decline
// actions and attaches the proof image.
func (n *Notifier) NotifyProofUploaded(ctx context.Context, order *models.Order) error {
	text := fmt.Sprintf(
		"🔔 New Payment Proof Uploaded\n\n"+
			"📋 Order: %s\n"+
			"🎮 Game: Growtopia\n"+
			"📦 Category: %s\n"+
			"👤 GrowID: %s\n"+
			"🌍 World: %s\n"+
			"💰 Amount: %s\n"+
			"👨‍💼 Buyer: %s\n\n"+
			"Click Accept or Decline below.",
		order.OrderID, order.Category, order.GrowID, order.World,
		utils.FormatIDR(order.TotalPrice), order.BuyerEmail,
	)

	msg := tgbotapi.NewMessage(n.AdminChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Accept", fmt.Sprintf("%s:accept:%s", callbackPrefix, order.OrderID)),
			tgbotapi.NewInlineKeyboardButtonData("Decline", fmt.Sprintf("%s:decline:%s", callbackPrefix, order.OrderID)),
		),
	)

	if _, err := n.Bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send message: %w", err)
	}
	n.metrics.TelegramSends.WithLabelValues(ActionProofUploaded).Inc()
	n.logger.LogTelegram("SEND", fmt.Sprintf("proof notification for order %s", order.OrderID))

	if order.ProofURL != "" {
		photo := tgbotapi.NewPhoto(n.AdminChatID, tgbotapi.FileURL(order.ProofURL))
		photo.Caption = "Payment Proof"
		if _, err := n.Bot.Send(photo); err != nil {
			// The summary already landed; a missing photo is not fatal.
			n.logger.Warn("TELEGRAM", fmt.Sprintf("send proof photo for %s: %v", order.OrderID, err))
		}
	}

	return nil
}

// NotifyAccepted posts the terminal acceptance message.
func (n *Notifier) NotifyAccepted(ctx context.Context, order *models.Order, actorEmail string) error {
	text := fmt.Sprintf(
		"✅ Order Accepted\n\n"+
			"📋 Order: %s\n"+
			"Status: %s\n"+
			"Accepted by: %s",
		order.OrderID, models.LabelAccepted, actorEmail,
	)
	return n.sendPlain(ActionAccepted, text)
}

// NotifyDeclined posts the terminal decline message with the reason.
func (n *Notifier) NotifyDeclined(ctx context.Context, order *models.Order, actorEmail, reason string) error {
	text := fmt.Sprintf(
		"❌ Order Declined\n\n"+
			"📋 Order: %s\n"+
			"Status: %s\n"+
			"Reason: %s\n"+
			"Declined by: %s",
		order.OrderID, models.LabelDeclined, reason, actorEmail,
	)
	return n.sendPlain(ActionDeclined, text)
}

// NotifyStatus is the generic status echo for unrecognized action tags.
func (n *Notifier) NotifyStatus(ctx context.Context, order *models.Order) error {
	text := fmt.Sprintf(
		"📋 Order Update: %s\nStatus: %s",
		order.OrderID, models.StatusLabel(order.Status),
	)
	return n.sendPlain("status", text)
}

func (n *Notifier) sendPlain(action, text string) error {
	msg := tgbotapi.NewMessage(n.AdminChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.Bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send message: %w", err)
	}
	n.metrics.TelegramSends.WithLabelValues(action).Inc()
	return nil
}

// EditMessage rewrites an already-sent message; an edit without a reply
// markup also drops the inline keyboard. Best-effort per contract.
func (n *Notifier) EditMessage(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := n.Bot.Request(edit); err != nil {
		return fmt.Errorf("telegram edit message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges an inline-button press with an alert popup.
func (n *Notifier) AnswerCallback(callbackID, text string) error {
	callback := tgbotapi.NewCallbackWithAlert(callbackID, text)
	if _, err := n.Bot.Request(callback); err != nil {
		return fmt.Errorf("telegram answer callback: %w", err)
	}
	return nil
}
