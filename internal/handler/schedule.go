package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/middleware"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	"github.com/ismail-169/sentinel-finance-sub000/internal/service"
)

type ScheduleHandler struct {
	scheduleService *service.ScheduleService
}

func NewScheduleHandler(scheduleService *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

func (h *ScheduleHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{scheduleID}", h.Get)
	r.Post("/{scheduleID}/pause", h.Pause)
	r.Post("/{scheduleID}/resume", h.Resume)
	r.Delete("/{scheduleID}", h.Delete)

	return r
}

// POST /schedules
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind            model.ScheduleKind `json:"kind"`
		Destination     string             `json:"destination"`
		DestinationName string             `json:"destinationName"`
		SavingsPlanID   *string            `json:"savingsPlanId"`
		AmountWei       string             `json:"amountWei"`
		Frequency       model.Frequency    `json:"frequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	schedule, err := h.scheduleService.Create(r.Context(), service.CreateScheduleInput{
		UserAddress:     middleware.GetWallet(r.Context()),
		Kind:            req.Kind,
		Destination:     req.Destination,
		DestinationName: req.DestinationName,
		SavingsPlanID:   req.SavingsPlanID,
		AmountWei:       req.AmountWei,
		Frequency:       req.Frequency,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, schedule)
}

// GET /schedules
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.scheduleService.List(r.Context(), middleware.GetWallet(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

// GET /schedules/{scheduleID}
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.scheduleService.Get(r.Context(), middleware.GetWallet(r.Context()), chi.URLParam(r, "scheduleID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// POST /schedules/{scheduleID}/pause
func (h *ScheduleHandler) Pause(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.scheduleService.SetPaused(r.Context(), middleware.GetWallet(r.Context()), chi.URLParam(r, "scheduleID"), true)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// POST /schedules/{scheduleID}/resume
func (h *ScheduleHandler) Resume(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.scheduleService.SetPaused(r.Context(), middleware.GetWallet(r.Context()), chi.URLParam(r, "scheduleID"), false)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// DELETE /schedules/{scheduleID}
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduleService.Delete(r.Context(), middleware.GetWallet(r.Context()), chi.URLParam(r, "scheduleID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
