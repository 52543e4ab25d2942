package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
	"github.com/devgenerative/controlefinanciero/internal/schedule"
)

type RecurringManager interface {
	CreateTemplate(ctx context.Context, scope model.Scope, req model.CreateRecurringRequest) (*model.RecurringTemplate, error)
	ListTemplates(ctx context.Context, scope model.Scope, activeOnly bool) ([]model.RecurringTemplate, error)
	GetTemplate(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.RecurringTemplate, error)
	UpdateTemplate(ctx context.Context, scope model.Scope, id uuid.UUID, req model.UpdateRecurringRequest) (*model.RecurringTemplate, error)
	ToggleActive(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.RecurringTemplate, error)
	Deactivate(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.RecurringTemplate, error)
	ProcessDueTemplates(ctx context.Context, now time.Time) (*model.GenerationReport, error)
}

type Projector interface {
	Project(ctx context.Context, scope model.Scope, start, end time.Time) (*model.Projection, error)
}

type RecurringHandler struct {
	recurring  RecurringManager
	projection Projector
	location   *time.Location
	// manualRun exposes POST /process. The generator runs for every family,
	// so it stays off unless the deployment opts in.
	manualRun bool
	logger    *logrus.Logger
}

func NewRecurringHandler(recurring RecurringManager, projection Projector, location *time.Location, manualRun bool, logger *logrus.Logger) *RecurringHandler {
	return &RecurringHandler{
		recurring:  recurring,
		projection: projection,
		location:   location,
		manualRun:  manualRun,
		logger:     logger,
	}
}

func (h *RecurringHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.CreateTemplate).Methods("POST")
	router.HandleFunc("", h.ListTemplates).Methods("GET")
	// Fixed paths first so they are not taken for an {id}.
	router.HandleFunc("/projection", h.GetProjection).Methods("GET")
	if h.manualRun {
		router.HandleFunc("/process", h.ProcessDue).Methods("POST")
	}
	router.HandleFunc("/{id}", h.GetTemplate).Methods("GET")
	router.HandleFunc("/{id}", h.UpdateTemplate).Methods("PATCH")
	router.HandleFunc("/{id}", h.Deactivate).Methods("DELETE")
	router.HandleFunc("/{id}/toggle", h.ToggleActive).Methods("PATCH")
}

func (h *RecurringHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	var req model.CreateRecurringRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	template, err := h.recurring.CreateTemplate(r.Context(), scope, req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to create recurring template")
		return
	}
	writeJSON(w, http.StatusCreated, template)
}

func (h *RecurringHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	templates, err := h.recurring.ListTemplates(r.Context(), scope, r.URL.Query().Get("active") == "true")
	if err != nil {
		writeError(w, h.logger, err, "Failed to list recurring templates")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *RecurringHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	template, err := h.recurring.GetTemplate(r.Context(), scope, id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get recurring template")
		return
	}
	writeJSON(w, http.StatusOK, template)
}

func (h *RecurringHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req model.UpdateRecurringRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	template, err := h.recurring.UpdateTemplate(r.Context(), scope, id, req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update recurring template")
		return
	}
	writeJSON(w, http.StatusOK, template)
}

func (h *RecurringHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	template, err := h.recurring.ToggleActive(r.Context(), scope, id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to toggle recurring template")
		return
	}
	writeJSON(w, http.StatusOK, template)
}

func (h *RecurringHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	template, err := h.recurring.Deactivate(r.Context(), scope, id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to deactivate recurring template")
		return
	}
	writeJSON(w, http.StatusOK, template)
}

// GetProjection serves the cashflow timeline. start defaults to today and end
// to three months after start.
func (h *RecurringHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	start, end, err := h.parseDateRange(r)
	if err != nil {
		h.logger.WithError(err).Warn("Invalid projection date range")
		http.Error(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	projection, err := h.projection.Project(r.Context(), scope, start, end)
	if err != nil {
		writeError(w, h.logger, err, "Failed to build projection")
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

// ProcessDue runs the recurring generator out of band.
func (h *RecurringHandler) ProcessDue(w http.ResponseWriter, r *http.Request) {
	if _, ok := scopeFrom(w, r); !ok {
		return
	}

	report, err := h.recurring.ProcessDueTemplates(r.Context(), time.Now().In(h.location))
	if err != nil {
		writeError(w, h.logger, err, "Failed to process recurring templates")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *RecurringHandler) parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	start := schedule.CalendarDay(time.Now().In(h.location))
	if param := r.URL.Query().Get("start"); param != "" {
		d, err := model.ParseDate(param)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = d.Time
	}

	end := start.AddDate(0, 3, 0)
	if param := r.URL.Query().Get("end"); param != "" {
		d, err := model.ParseDate(param)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = d.Time
	}
	return start, end, nil
}
