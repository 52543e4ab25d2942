package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
)

type TransactionCreator interface {
	CreateTransaction(ctx context.Context, scope model.Scope, req model.CreateTransactionRequest) (*model.CreateTransactionResult, error)
}

type TransactionHandler struct {
	transactions TransactionCreator
	logger       *logrus.Logger
}

func NewTransactionHandler(transactions TransactionCreator, logger *logrus.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		logger:       logger,
	}
}

func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.CreateTransaction).Methods("POST")
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var req model.CreateTransactionRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	result, err := h.transactions.CreateTransaction(r.Context(), scope, req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to create transaction")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
