package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gt-shop/internal/logger"
	"gt-shop/internal/metrics"
	"gt-shop/internal/models"
	"gt-shop/internal/order"
	"gt-shop/internal/order/db"
	"gt-shop/internal/shopconfig"
)

const declineViaButtonReason = "Declined via Telegram"

// ReviewEngine is the order-lifecycle surface the webhook drives.
type ReviewEngine interface {
	Accept(ctx context.Context, actor order.Actor, orderID string) (*models.Order, error)
	Decline(ctx context.Context, actor order.Actor, orderID, reason string) (*models.Order, error)
}

// AdminDirectory resolves a Telegram numeric id to an operator record.
// Lookups are live so revoking an admin takes effect immediately.
type AdminDirectory interface {
	AdminByTelegramID(ctx context.Context, telegramID string) (*models.Admin, error)
}

// WebhookHandler receives bot updates and applies inline-button decisions.
type WebhookHandler struct {
	Engine   ReviewEngine
	Admins   AdminDirectory
	Notifier *Notifier

	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewWebhookHandler(engine ReviewEngine, admins AdminDirectory, notifier *Notifier, m *metrics.Metrics, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		Engine:   engine,
		Admins:   admins,
		Notifier: notifier,
		metrics:  m,
		logger:   log,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// An unparseable update is acknowledged so the dispatcher does not
	// redeliver it forever.
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.LogWebhook("DECODE", fmt.Sprintf("bad update payload: %v", err))
		w.WriteHeader(http.StatusOK)
		return
	}
	h.metrics.WebhookUpdates.Inc()

	// Anything that is not an inline-button press is acknowledged and
	// dropped; the bot has no command surface.
	if update.CallbackQuery == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.handleCallback(r.Context(), update.CallbackQuery); err != nil {
		h.logger.Error("WEBHOOK", fmt.Sprintf("callback handling failed: %v", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	op, orderID, ok := parseCallbackData(cb.Data)
	if !ok {
		h.logger.LogWebhook("CALLBACK", "unrecognized callback data: "+cb.Data)
		h.answer(cb.ID, "Unrecognized action.")
		return nil
	}

	telegramID := strconv.FormatInt(cb.From.ID, 10)
	admin, err := h.Admins.AdminByTelegramID(ctx, telegramID)
	if err != nil && !errors.Is(err, shopconfig.ErrNotFound) {
		h.answer(cb.ID, "Something went wrong, try again.")
		return fmt.Errorf("admin lookup for %s: %w", telegramID, err)
	}
	if err != nil || admin == nil || !admin.IsAdmin {
		h.logger.LogSecurity("WEBHOOK", fmt.Sprintf("non-admin %s pressed %s on %s", telegramID, op, orderID))
		h.answer(cb.ID, "You are not authorized to review orders.")
		return nil
	}

	actor := order.Actor{TelegramID: telegramID, Via: "telegram"}

	var (
		updated *models.Order
		opErr   error
	)
	switch op {
	case "accept":
		updated, opErr = h.Engine.Accept(ctx, actor, orderID)
	case "decline":
		updated, opErr = h.Engine.Decline(ctx, actor, orderID, declineViaButtonReason)
	}

	if opErr != nil {
		switch {
		case errors.Is(opErr, order.ErrAlreadyProcessed):
			h.answer(cb.ID, "Order "+orderID+" was already processed.")
			return nil
		case errors.Is(opErr, db.ErrOrderNotFound):
			h.answer(cb.ID, "Order "+orderID+" was not found.")
			return nil
		default:
			h.answer(cb.ID, "Something went wrong, try again.")
			return fmt.Errorf("%s order %s: %w", op, orderID, opErr)
		}
	}

	outcome := models.StatusLabel(updated.Status)
	h.answer(cb.ID, fmt.Sprintf("Order %s: %s", orderID, outcome))

	// Rewrite the original notification so the decision is visible in the
	// channel and the buttons disappear. Best-effort.
	if cb.Message != nil {
		text := cb.Message.Text + "\n\n" + decisionLine(updated.Status, outcome)
		if err := h.Notifier.EditMessage(cb.Message.Chat.ID, cb.Message.MessageID, text); err != nil {
			h.logger.Warn("WEBHOOK", fmt.Sprintf("edit notification for %s: %v", orderID, err))
		}
	}

	h.logger.LogWebhook(strings.ToUpper(op), fmt.Sprintf("order %s by telegram admin %s", orderID, telegramID))
	return nil
}

func (h *WebhookHandler) answer(callbackID, text string) {
	if err := h.Notifier.AnswerCallback(callbackID, text); err != nil {
		h.logger.Warn("WEBHOOK", "answer callback: "+err.Error())
	}
}

func decisionLine(status, outcome string) string {
	if status == models.StatusAccepted {
		return "✅ " + outcome
	}
	return "❌ " + outcome
}

// parseCallbackData splits "order:accept:<id>" into its operation and order
// id. Order ids contain no colons so a plain 3-way split is safe.
func parseCallbackData(data string) (op, orderID string, ok bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] != callbackPrefix || parts[2] == "" {
		return "", "", false
	}
	if parts[1] != "accept" && parts[1] != "decline" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
