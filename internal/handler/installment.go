package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
)

type InstallmentManager interface {
	ListPlans(ctx context.Context, scope model.Scope) ([]model.InstallmentPlan, error)
	GetPlan(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.InstallmentPlanDetails, error)
	SimulateAnticipation(ctx context.Context, scope model.Scope, id uuid.UUID, now time.Time) (*model.InstallmentAnticipation, error)
}

type InstallmentHandler struct {
	installments InstallmentManager
	logger       *logrus.Logger
}

func NewInstallmentHandler(installments InstallmentManager, logger *logrus.Logger) *InstallmentHandler {
	return &InstallmentHandler{
		installments: installments,
		logger:       logger,
	}
}

func (h *InstallmentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.ListPlans).Methods("GET")
	router.HandleFunc("/{id}", h.GetPlan).Methods("GET")
	router.HandleFunc("/{id}/simulate", h.SimulateAnticipation).Methods("GET")
}

func (h *InstallmentHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	plans, err := h.installments.ListPlans(r.Context(), scope)
	if err != nil {
		writeError(w, h.logger, err, "Failed to list installment plans")
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *InstallmentHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	plan, err := h.installments.GetPlan(r.Context(), scope, id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get installment plan")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *InstallmentHandler) SimulateAnticipation(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	simulation, err := h.installments.SimulateAnticipation(r.Context(), scope, id, time.Now())
	if err != nil {
		writeError(w, h.logger, err, "Failed to simulate installment anticipation")
		return
	}
	writeJSON(w, http.StatusOK, simulation)
}
