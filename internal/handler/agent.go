package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/middleware"
	"github.com/ismail-169/sentinel-finance-sub000/internal/service"
)

type AgentHandler struct {
	agentService *service.AgentService
}

func NewAgentHandler(agentService *service.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

func (h *AgentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/wallet", h.CreateWallet)
	r.Post("/recover", h.Recover)
	r.Get("/wallet", h.Wallet)
	r.Get("/balance", h.Balance)
	r.Get("/allowed-destinations", h.AllowedDestinations)
	r.Post("/pay", h.Pay)
	r.Post("/fund", h.Fund)
	r.Post("/withdraw", h.Withdraw)
	r.Get("/executions", h.Executions)

	return r
}

type signatureRequest struct {
	Signature string `json:"signature"`
}

func decodeSignatureRequest(r *http.Request) (string, error) {
	var req signatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", apperrors.InvalidInput("body", "invalid JSON")
	}
	if req.Signature == "" {
		return "", apperrors.MissingRequired("signature")
	}
	return req.Signature, nil
}

// POST /agent/wallet
// The signature must be over identity.DerivationMessage; the same
// signature always produces the same agent.
func (h *AgentHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	signature, err := decodeSignatureRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	wallet, err := h.agentService.CreateWallet(r.Context(), middleware.GetWallet(r.Context()), signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wallet)
}

// POST /agent/recover
func (h *AgentHandler) Recover(w http.ResponseWriter, r *http.Request) {
	signature, err := decodeSignatureRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	wallet, err := h.agentService.Recover(r.Context(), middleware.GetWallet(r.Context()), signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// GET /agent/wallet
func (h *AgentHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.agentService.Wallet(r.Context(), middleware.GetWallet(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// GET /agent/balance
func (h *AgentHandler) Balance(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.GetWallet(r.Context())

	balance, err := h.agentService.Balance(r.Context(), wallet)
	if err != nil {
		writeError(w, err)
		return
	}
	gas, err := h.agentService.GasBalance(r.Context(), wallet)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"balanceWei": balance,
		"gasWei":     gas,
	})
}

// GET /agent/allowed-destinations
func (h *AgentHandler) AllowedDestinations(w http.ResponseWriter, r *http.Request) {
	allowed, err := h.agentService.AllowedDestinations(r.Context(), middleware.GetWallet(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"destinations": allowed})
}

// POST /agent/pay
func (h *AgentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Destination string `json:"destination"`
		AmountWei   string `json:"amountWei"`
		Memo        string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	record, err := h.agentService.Pay(r.Context(), middleware.GetWallet(r.Context()), req.Destination, req.AmountWei, req.Memo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// POST /agent/fund
func (h *AgentHandler) Fund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountWei string `json:"amountWei"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	if err := h.agentService.FundFromVault(r.Context(), middleware.GetWallet(r.Context()), req.AmountWei); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "funded"})
}

// POST /agent/withdraw
func (h *AgentHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountWei string `json:"amountWei"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	amount, err := h.agentService.WithdrawToVault(r.Context(), middleware.GetWallet(r.Context()), req.AmountWei)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"withdrawnWei": amount})
}

// GET /agent/executions
func (h *AgentHandler) Executions(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	records, err := h.agentService.ExecutionHistory(r.Context(), middleware.GetWallet(r.Context()), p.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": records})
}
