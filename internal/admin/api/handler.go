package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"gt-shop/internal/auth"
	"gt-shop/internal/logger"
	"gt-shop/internal/models"
	"gt-shop/internal/order"
	"gt-shop/internal/order/db"
	"gt-shop/internal/shopconfig"
	"gt-shop/internal/storage"
	"gt-shop/internal/telegram"
	"gt-shop/internal/utils"
)

// Settings writable through PUT /admin/config. Anything else is rejected so
// a typo cannot create a dead key.
var writableSettings = map[string]bool{
	shopconfig.KeyWebsiteName: true,
	shopconfig.KeyFeePercent:  true,
	shopconfig.KeyCaptchaMode: true,
	shopconfig.KeyMaxQtyRGT:   true,
	shopconfig.KeyMaxQtyRPS:   true,
}

type Handler struct {
	Engine   *order.OrderService
	Store    *shopconfig.Store
	Proofs   *storage.ProofStore
	Notifier *telegram.Notifier
	Logger   *logger.Logger
}

// RequireAdmin gates the admin routes on a live directory lookup.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := auth.FromContext(r.Context())
		isAdmin, err := h.Store.IsAdminUID(r.Context(), ident.UID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "admin check failed"))
			return
		}
		if !isAdmin {
			h.Logger.LogSecurity("ADMIN_ACCESS", "uid "+ident.UID+" denied admin access to "+r.URL.Path)
			writeJSON(w, http.StatusForbidden, utils.ErrorResponse("Access denied", "admin privileges required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListOrders handles GET /api/v1/admin/orders with optional ?status= and
// ?limit= filters.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter := db.ListFilter{
		Status: models.NormalizeStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	orders, err := h.Engine.ListOrders(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not list orders"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Orders retrieved", orders))
}

// AcceptOrder handles POST /api/v1/admin/orders/{orderId}/accept.
func (h *Handler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	actor := order.Actor{UID: ident.UID, Email: ident.Email, Via: "admin"}
	updated, err := h.Engine.Accept(r.Context(), actor, orderID)
	if err != nil {
		h.writeReviewError(w, err)
		return
	}

	// Delivery failure must not mask the completed transition.
	if err := h.Notifier.NotifyAccepted(r.Context(), updated, ident.Email); err != nil {
		h.Logger.Warn("TELEGRAM", fmt.Sprintf("accepted notification for %s: %v", orderID, err))
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Order accepted", updated))
}

// DeclineOrder handles POST /api/v1/admin/orders/{orderId}/decline.
func (h *Handler) DeclineOrder(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	actor := order.Actor{UID: ident.UID, Email: ident.Email, Via: "admin"}
	updated, err := h.Engine.Decline(r.Context(), actor, orderID, req.Reason)
	if err != nil {
		h.writeReviewError(w, err)
		return
	}

	if err := h.Notifier.NotifyDeclined(r.Context(), updated, ident.Email, req.Reason); err != nil {
		h.Logger.Warn("TELEGRAM", fmt.Sprintf("declined notification for %s: %v", orderID, err))
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Order declined", updated))
}

// UpdateSetting handles PUT /api/v1/admin/config.
func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if !writableSettings[req.Key] {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "unknown setting key: "+req.Key))
		return
	}

	if err := h.Store.SetSetting(r.Context(), req.Key, req.Value); err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not update setting"))
		return
	}

	h.Logger.Info("ADMIN", fmt.Sprintf("setting %s updated to %q", req.Key, req.Value))
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Setting updated", nil))
}

// UpdateRGTPrice handles PUT /api/v1/admin/config/prices.
func (h *Handler) UpdateRGTPrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PurchaseType string `json:"purchaseType"`
		Price        int64  `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.PurchaseType != shopconfig.PurchaseTypeDL && req.PurchaseType != shopconfig.PurchaseTypeBGL {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "purchaseType must be dl or bgl"))
		return
	}
	if req.Price <= 0 {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "price must be positive"))
		return
	}

	if err := h.Store.SetRGTPrice(r.Context(), req.PurchaseType, req.Price); err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not update price"))
		return
	}

	h.Logger.Info("ADMIN", fmt.Sprintf("%s price updated to %s", req.PurchaseType, utils.FormatIDR(req.Price)))
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Price updated", nil))
}

// UpsertPaymentMethod handles POST /api/v1/admin/payment-methods. A QR code
// for the account number is rendered and stored alongside the method.
func (h *Handler) UpsertPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var method models.PaymentMethod
	if err := json.NewDecoder(r.Body).Decode(&method); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if method.Key == "" || method.ProviderLabel == "" || method.AccountNumber == "" || method.AccountName == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "key, providerLabel, accountNumber and accountName are required"))
		return
	}

	png, err := qrcode.Encode(method.AccountNumber, qrcode.Medium, 256)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not render payment QR"))
		return
	}
	qrURL, err := h.Proofs.SaveQR(method.Key, png)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not store payment QR"))
		return
	}
	method.QRImageURL = qrURL

	if err := h.Store.UpsertPaymentMethod(r.Context(), method); err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not save payment method"))
		return
	}

	h.Logger.Info("ADMIN", "payment method upserted: "+method.Key)
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Payment method saved", method))
}

// DeletePaymentMethod handles DELETE /api/v1/admin/payment-methods/{key}.
func (h *Handler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.Store.DeletePaymentMethod(r.Context(), key); err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not delete payment method"))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Payment method deleted", nil))
}

// UpsertRPSItem handles POST /api/v1/admin/rps-items.
func (h *Handler) UpsertRPSItem(w http.ResponseWriter, r *http.Request) {
	var item models.RPSItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if item.Key == "" || item.Price <= 0 {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "key and a positive price are required"))
		return
	}

	if err := h.Store.UpsertRPSItem(r.Context(), item); err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not save item"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Item saved", item))
}

// DeleteRPSItem handles DELETE /api/v1/admin/rps-items/{key}.
func (h *Handler) DeleteRPSItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.Store.DeleteRPSItem(r.Context(), key); err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not delete item"))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Item deleted", nil))
}

// UpsertKBEntry handles POST /api/v1/admin/kb.
func (h *Handler) UpsertKBEntry(w http.ResponseWriter, r *http.Request) {
	var entry models.KBEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if entry.ID == "" || entry.Question == "" || entry.Answer == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "id, question and answer are required"))
		return
	}

	if err := h.Store.UpsertKBEntry(r.Context(), entry); err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not save entry"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Knowledge-base entry saved", entry))
}

// UpsertAdmin handles POST /api/v1/admin/admins.
func (h *Handler) UpsertAdmin(w http.ResponseWriter, r *http.Request) {
	var admin models.Admin
	if err := json.NewDecoder(r.Body).Decode(&admin); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if admin.UID == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "uid is required"))
		return
	}

	if err := h.Store.UpsertAdmin(r.Context(), admin); err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not save admin"))
		return
	}

	h.Logger.LogSecurity("ADMIN_DIRECTORY", "admin record upserted for uid "+admin.UID)
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Admin saved", admin))
}

func (h *Handler) writeReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", err.Error()))
	case errors.Is(err, order.ErrAlreadyProcessed):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("Order already processed", err.Error()))
	case errors.Is(err, order.ErrReasonRequired):
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", err.Error()))
	default:
		h.Logger.Error("API", "admin review failed: "+err.Error())
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "something went wrong, please try again"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
