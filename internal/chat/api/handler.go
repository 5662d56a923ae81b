package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gt-shop/internal/auth"
	"gt-shop/internal/chat"
	"gt-shop/internal/utils"
)

type Handler struct {
	Service *chat.Service
}

// SendMessage handles POST /api/v1/chat.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())

	var req struct {
		SessionID string `json:"sessionId,omitempty"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	reply, err := h.Service.Respond(r.Context(), ident.UID, req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", err.Error()))
		case errors.Is(err, chat.ErrRateLimited):
			writeJSON(w, http.StatusTooManyRequests, utils.ErrorResponse("Too many messages", err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "chat is temporarily unavailable"))
		}
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Message processed", reply))
}

// History handles GET /api/v1/chat/{sessionId}.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionId")

	msgs, err := h.Service.History(r.Context(), ident.UID, sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not load chat history"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Chat history", msgs))
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
