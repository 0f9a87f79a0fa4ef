package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/service"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMsg(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps the service error taxonomy onto HTTP status codes.
// Anything unmapped is a 500 and gets logged; the client sees a
// generic message.
func writeError(w http.ResponseWriter, log *logrus.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeErrorMsg(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrForbidden):
		writeErrorMsg(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrNotAvailable),
		errors.Is(err, service.ErrExpired),
		errors.Is(err, service.ErrNotUsable):
		writeErrorMsg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAlreadyAcquired),
		errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrBatchRunning):
		writeErrorMsg(w, http.StatusConflict, err.Error())
	default:
		log.WithError(err).Error("request failed")
		writeErrorMsg(w, http.StatusInternalServerError, "internal error")
	}
}
