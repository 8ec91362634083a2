package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrInvalidPollID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnknownInvitee):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPollNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPollDecided):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	http.Error(w, msg, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
