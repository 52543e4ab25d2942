package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/amortization"
	"github.com/devgenerative/controlefinanciero/internal/model"
)

type DebtManager interface {
	CreateDebt(ctx context.Context, scope model.Scope, req model.CreateDebtRequest) (*model.Debt, error)
	ListDebts(ctx context.Context, scope model.Scope) ([]model.Debt, error)
	GetDebt(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.DebtDetails, error)
	RegisterPayment(ctx context.Context, scope model.Scope, id uuid.UUID, req model.RegisterPaymentRequest) (*model.Debt, error)
	SimulateAnticipation(ctx context.Context, scope model.Scope, id uuid.UUID) (*amortization.Anticipation, error)
}

type DebtHandler struct {
	debts  DebtManager
	logger *logrus.Logger
}

func NewDebtHandler(debts DebtManager, logger *logrus.Logger) *DebtHandler {
	return &DebtHandler{
		debts:  debts,
		logger: logger,
	}
}

func (h *DebtHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.CreateDebt).Methods("POST")
	router.HandleFunc("", h.ListDebts).Methods("GET")
	router.HandleFunc("/{id}", h.GetDebt).Methods("GET")
	router.HandleFunc("/{id}/payment", h.RegisterPayment).Methods("POST")
	router.HandleFunc("/{id}/simulate", h.SimulateAnticipation).Methods("GET")
}

func (h *DebtHandler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var req model.CreateDebtRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	debt, err := h.debts.CreateDebt(r.Context(), scope, req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to create debt")
		return
	}
	writeJSON(w, http.StatusCreated, debt)
}

func (h *DebtHandler) ListDebts(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	debts, err := h.debts.ListDebts(r.Context(), scope)
	if err != nil {
		writeError(w, h.logger, err, "Failed to list debts")
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (h *DebtHandler) GetDebt(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	details, err := h.debts.GetDebt(r.Context(), scope, id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get debt")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *DebtHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req model.RegisterPaymentRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	debt, err := h.debts.RegisterPayment(r.Context(), scope, id, req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to register debt payment")
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

func (h *DebtHandler) SimulateAnticipation(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	simulation, err := h.debts.SimulateAnticipation(r.Context(), scope, id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to simulate debt anticipation")
		return
	}
	writeJSON(w, http.StatusOK, simulation)
}
