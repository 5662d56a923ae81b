package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"gt-shop/internal/captcha"
	"gt-shop/internal/shopconfig"
	"gt-shop/internal/utils"
)

type Handler struct {
	Service *captcha.Service
	Store   *shopconfig.Store
}

// Challenges handles GET /api/v1/captcha — the challenge list, answer
// hashes stripped.
func (h *Handler) Challenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.Store.CaptchaChallenges(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "could not load captcha challenges"))
		return
	}

	type publicChallenge struct {
		ID       string `json:"id"`
		ImageURL string `json:"imageUrl"`
	}
	out := make([]publicChallenge, 0, len(challenges))
	for _, c := range challenges {
		out = append(out, publicChallenge{ID: c.ID, ImageURL: c.ImageURL})
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Captcha challenges", out))
}

// Verify handles POST /api/v1/captcha/verify and returns a single-use token
// on success.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CaptchaID string `json:"captchaId"`
		Answer    string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	token, err := h.Service.Verify(r.Context(), clientIP(r), req.CaptchaID, req.Answer)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Captcha verified", map[string]string{"token": token}))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, captcha.ErrMissingInput):
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", err.Error()))
	case errors.Is(err, captcha.ErrUnknownCaptcha):
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Captcha not found", err.Error()))
	case errors.Is(err, captcha.ErrInvalidAnswer):
		writeJSON(w, http.StatusUnprocessableEntity, utils.ErrorResponse("Captcha verification failed", err.Error()))
	case errors.Is(err, captcha.ErrTooManyAttempts), errors.Is(err, captcha.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, utils.ErrorResponse("Too many attempts", err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error", "captcha verification unavailable"))
	}
}

// clientIP keys the per-client attempt limiter. X-Forwarded-For wins when a
// proxy sits in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
