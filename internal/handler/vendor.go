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

type VendorHandler struct {
	vaultService *service.VaultService
}

func NewVendorHandler(vaultService *service.VaultService) *VendorHandler {
	return &VendorHandler{vaultService: vaultService}
}

func (h *VendorHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Put("/{address}", h.Upsert)
	r.Post("/{address}/trust", h.SetTrust)

	return r
}

// GET /vendors
func (h *VendorHandler) List(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.vaultService.Vendors(r.Context(), middleware.GetWallet(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vendors": vendors})
}

// PUT /vendors/{address}
func (h *VendorHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.GetWallet(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	vendor, err := h.vaultService.UpsertVendor(r.Context(), wallet, model.UpsertVendorParams{
		Address: chi.URLParam(r, "address"),
		Name:    req.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vendor)
}

// POST /vendors/{address}/trust
func (h *VendorHandler) SetTrust(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.GetWallet(r.Context())

	var req struct {
		Trusted bool `json:"trusted"`
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

	if err := h.vaultService.SetTrustedVendor(r.Context(), wallet, vault.VaultAddress, chi.URLParam(r, "address"), req.Trusted); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": chi.URLParam(r, "address"),
		"trusted": req.Trusted,
	})
}
