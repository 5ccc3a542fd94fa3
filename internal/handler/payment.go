package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/middleware"
	"github.com/ismail-169/sentinel-finance-sub000/internal/service"
)

type PaymentHandler struct {
	vaultService *service.VaultService
}

func NewPaymentHandler(vaultService *service.VaultService) *PaymentHandler {
	return &PaymentHandler{vaultService: vaultService}
}

func (h *PaymentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/request", h.Request)
	r.Get("/pending", h.Pending)
	r.Get("/history", h.History)
	r.Get("/{requestID}", h.Get)
	r.Post("/{requestID}/execute", h.Execute)
	r.Post("/{requestID}/revoke", h.Revoke)

	return r
}

func (h *PaymentHandler) vaultFor(r *http.Request) (string, error) {
	vault, err := h.vaultService.GetByWallet(r.Context(), middleware.GetWallet(r.Context()))
	if err != nil {
		return "", err
	}
	return vault.VaultAddress, nil
}

func requestID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("requestID", "must be an integer")
	}
	return id, nil
}

// POST /payments/request
func (h *PaymentHandler) Request(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.GetWallet(r.Context())

	var req struct {
		Destination string `json:"destination"`
		AmountWei   string `json:"amountWei"`
		Memo        string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	vaultAddress, err := h.vaultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	request, err := h.vaultService.RequestPayment(r.Context(), vaultAddress, wallet, req.Destination, req.AmountWei, req.Memo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// POST /payments/{requestID}/execute
func (h *PaymentHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := requestID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	vaultAddress, err := h.vaultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	request, err := h.vaultService.ExecutePayment(r.Context(), vaultAddress, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// POST /payments/{requestID}/revoke
func (h *PaymentHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.GetWallet(r.Context())

	id, err := requestID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		req.Reason = "revoked by owner"
	}

	vaultAddress, err := h.vaultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	request, err := h.vaultService.RevokeTransaction(r.Context(), wallet, vaultAddress, id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// GET /payments/pending
func (h *PaymentHandler) Pending(w http.ResponseWriter, r *http.Request) {
	vaultAddress, err := h.vaultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	requests, err := h.vaultService.PendingRequests(r.Context(), vaultAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// GET /payments/history
func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	vaultAddress, err := h.vaultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	p := ParsePagination(r)
	requests, err := h.vaultService.History(r.Context(), vaultAddress, p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"limit":    p.Limit,
		"offset":   p.Offset,
	})
}

// GET /payments/{requestID}
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := requestID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	vaultAddress, err := h.vaultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	request, err := h.vaultService.GetRequest(r.Context(), vaultAddress, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}
