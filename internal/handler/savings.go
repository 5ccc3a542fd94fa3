package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/middleware"
	"github.com/ismail-169/sentinel-finance-sub000/internal/service"
)

type SavingsHandler struct {
	savingsService *service.SavingsService
	agentService   *service.AgentService
}

func NewSavingsHandler(savingsService *service.SavingsService, agentService *service.AgentService) *SavingsHandler {
	return &SavingsHandler{
		savingsService: savingsService,
		agentService:   agentService,
	}
}

func (h *SavingsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/total", h.Total)
	r.Get("/{planID}", h.Get)
	r.Post("/{planID}/deposit", h.Deposit)
	r.Post("/{planID}/withdraw", h.Withdraw)

	return r
}

// POST /savings
func (h *SavingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	wallet := middleware.GetWallet(r.Context())

	var req struct {
		Name      string `json:"name"`
		LockDays  int    `json:"lockDays"`
		Recurring bool   `json:"recurring"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	agent, err := h.agentService.Wallet(r.Context(), wallet)
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := h.savingsService.CreatePlan(r.Context(), wallet, agent.AgentAddress, agent.VaultAddress, req.Name, req.LockDays, req.Recurring)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// GET /savings
func (h *SavingsHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.savingsService.Plans(r.Context(), middleware.GetWallet(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// GET /savings/total
func (h *SavingsHandler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.savingsService.TotalLocked(r.Context(), middleware.GetWallet(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"totalLockedWei": total})
}

// GET /savings/{planID}
func (h *SavingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.savingsService.Plan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if plan.OwnerAddress != middleware.GetWallet(r.Context()) {
		writeError(w, apperrors.NotFound("savings plan"))
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// POST /savings/{planID}/deposit
// Deposits route through the agent wallet.
func (h *SavingsHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountWei string `json:"amountWei"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}

	plan, err := h.agentService.DepositToPlan(r.Context(), middleware.GetWallet(r.Context()), chi.URLParam(r, "planID"), req.AmountWei)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// POST /savings/{planID}/withdraw
func (h *SavingsHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	plan, err := h.savingsService.Withdraw(r.Context(), middleware.GetWallet(r.Context()), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
