package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gt-shop/internal/auth"
	"gt-shop/internal/captcha"
	"gt-shop/internal/logger"
	"gt-shop/internal/models"
	"gt-shop/internal/order"
	"gt-shop/internal/order/db"
	"gt-shop/internal/shopconfig"
	"gt-shop/internal/storage"
	"gt-shop/internal/telegram"
	"gt-shop/internal/utils"
)

// multipart memory ceiling; the proof itself is capped at 10 MB downstream.
const maxProofForm = 12 << 20

// AdminChecker answers whether a uid belongs to the administrator directory.
type AdminChecker interface {
	IsAdminUID(ctx context.Context, uid string) (bool, error)
}

type Handler struct {
	Engine   *order.OrderService
	Proofs   *storage.ProofStore
	Notifier *telegram.Notifier
	Admins   AdminChecker
	Logger   *logger.Logger
}

// CreateOrder handles POST /api/v1/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())

	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	resp, err := h.Engine.PlaceOrder(r.Context(), ident, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Order created successfully", resp))
}

// GetOrder handles GET /api/v1/orders/{orderId}. Buyers see their own
// orders; admins see any.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	result, err := h.Engine.GetOrderWithHistory(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if result.Order.BuyerUID != ident.UID {
		isAdmin, err := h.Admins.IsAdminUID(r.Context(), ident.UID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if !isAdmin {
			h.Logger.LogSecurity("ORDER_ACCESS", "uid "+ident.UID+" denied access to order "+orderID)
			writeJSON(w, http.StatusForbidden, utils.ErrorResponse("Access denied", "you do not own this order"))
			return
		}
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Order retrieved", result))
}

// ListOrders handles GET /api/v1/orders — the caller's own orders, newest
// first, optionally filtered by ?status=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())

	orders, err := h.Engine.ListOrders(r.Context(), db.ListFilter{
		BuyerUID: ident.UID,
		Status:   models.NormalizeStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Orders retrieved", orders))
}

// UploadProof handles POST /api/v1/orders/{orderId}/proof (multipart field
// "proof"). The file is stored first; the status transition only happens on
// a successful write.
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	if err := r.ParseMultipartForm(maxProofForm); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid upload", err.Error()))
		return
	}

	file, header, err := r.FormFile("proof")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid upload", "proof file is required"))
		return
	}
	defer file.Close()

	proofURL, err := h.Proofs.SaveProof(orderID, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		h.writeError(w, err)
		return
	}

	updated, err := h.Engine.SubmitProof(r.Context(), ident, orderID, proofURL)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Payment proof uploaded", map[string]interface{}{
		"orderId":  updated.OrderID,
		"status":   updated.Status,
		"proofUrl": updated.ProofURL,
	}))
}

// Notify handles POST /api/v1/notify — re-dispatch a notification for an
// order. Admin only; used when the original Telegram delivery was missed.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	isAdmin, err := h.Admins.IsAdminUID(r.Context(), ident.UID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !isAdmin {
		writeJSON(w, http.StatusForbidden, utils.ErrorResponse("Access denied", "admin privileges required"))
		return
	}

	var req struct {
		OrderID string `json:"orderId"`
		Action  string `json:"action"`
		Reason  string `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "orderId is required"))
		return
	}

	ord, err := h.Engine.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	switch req.Action {
	case telegram.ActionProofUploaded:
		err = h.Notifier.NotifyProofUploaded(r.Context(), ord)
	case telegram.ActionAccepted:
		err = h.Notifier.NotifyAccepted(r.Context(), ord, ident.Email)
	case telegram.ActionDeclined:
		err = h.Notifier.NotifyDeclined(r.Context(), ord, ident.Email, req.Reason)
	default:
		err = h.Notifier.NotifyStatus(r.Context(), ord)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Notification sent", nil))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verrs *order.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, utils.ValidationErrorResponse("Validation failed", verrs.Problems))
		return
	}

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Authentication required", err.Error()))
	case errors.Is(err, order.ErrEmailNotVerified), errors.Is(err, order.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, utils.ErrorResponse("Access denied", err.Error()))
	case errors.Is(err, db.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", err.Error()))
	case errors.Is(err, order.ErrAlreadyProcessed):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("Order already processed", err.Error()))
	case errors.Is(err, order.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, utils.ErrorResponse("Too many requests", err.Error()))
	case errors.Is(err, order.ErrCaptchaRequired), errors.Is(err, order.ErrReasonRequired),
		errors.Is(err, captcha.ErrInvalidToken), errors.Is(err, shopconfig.ErrNotFound),
		errors.Is(err, order.ErrPriceNotConfigured),
		errors.Is(err, storage.ErrBadContentType), errors.Is(err, storage.ErrTooLarge):
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", err.Error()))
	default:
		h.Logger.Error("API", "order request failed: "+err.Error())
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "something went wrong, please try again"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
