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

type IntentHandler struct {
	intentService *service.IntentService
}

func NewIntentHandler(intentService *service.IntentService) *IntentHandler {
	return &IntentHandler{intentService: intentService}
}

func (h *IntentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Dispatch)
	return r
}

// POST /intents
// The request body is a typed intent; free text never reaches this server.
func (h *IntentHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var intent model.Intent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	result, err := h.intentService.Dispatch(r.Context(), middleware.GetWallet(r.Context()), intent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
