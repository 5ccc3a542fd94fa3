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

type VaultHandler struct {
	vaultService *service.VaultService
}

func NewVaultHandler(vaultService *service.VaultService) *VaultHandler {
	return &VaultHandler{vaultService: vaultService}
}

func (h *VaultHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Get("/", h.Get)
	r.Post("/deposit", h.Deposit)
	r.Post("/withdraw", h.Withdraw)
	r.Put("/limits", h.SetLimits)

	return r
}

// POST /vault/register
func (h *VaultHandler) Register(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.GetWallet(r.Context())

	var req struct {
		VaultAddress    string `json:"vaultAddress"`
		Network         string `json:"network"`
		DailyLimitWei   string `json:"dailyLimitWei"`
		TxLimitWei      string `json:"txLimitWei"`
		TimelockSeconds int64  `json:"timelockSeconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	vault, err := h.vaultService.Register(r.Context(), model.RegisterVaultParams{
		WalletAddress:   wallet,
		VaultAddress:    req.VaultAddress,
		Network:         req.Network,
		DailyLimitWei:   req.DailyLimitWei,
		TxLimitWei:      req.TxLimitWei,
		TimelockSeconds: req.TimelockSeconds,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, vault)
}

// GET /vault
func (h *VaultHandler) Get(w http.ResponseWriter, r *http.Request) {
	vault, err := h.vaultService.GetByWallet(r.Context(), middleware.GetWallet(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vault)
}

// POST /vault/deposit
func (h *VaultHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountWei string `json:"amountWei"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	vault, err := h.vaultService.Deposit(r.Context(), middleware.GetWallet(r.Context()), req.AmountWei)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vault)
}

// POST /vault/withdraw
// Empty amount drains the vault.
func (h *VaultHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.GetWallet(r.Context())

	var req struct {
		AmountWei string `json:"amountWei"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	vault, err := h.vaultService.GetByWallet(r.Context(), wallet)
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.vaultService.Withdraw(r.Context(), wallet, vault.VaultAddress, req.AmountWei)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// PUT /vault/limits
func (h *VaultHandler) SetLimits(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.GetWallet(r.Context())

	var req model.VaultLimits
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	vault, err := h.vaultService.GetByWallet(r.Context(), wallet)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.vaultService.SetLimits(r.Context(), wallet, vault.VaultAddress, req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.vaultService.Get(r.Context(), vault.VaultAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
