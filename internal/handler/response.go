package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps service conditions onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidDebtParameters), errors.Is(err, service.ErrNoSettlementAccount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrDebtFullyPaid):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, logger *logrus.Logger, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error(msg)
		http.Error(w, "Internal server error", status)
		return
	}
	logger.WithError(err).Warn(msg)
	http.Error(w, err.Error(), status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.WithError(err).Warn("Failed to decode request body")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
