package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

// IntentService is the typed command boundary. Upstream assistants parse
// natural language into an Intent; everything past this point is exact.
// Unknown actions are rejected here, never guessed at.
type IntentService struct {
	vaults    *VaultService
	agents    *AgentService
	savings   *SavingsService
	schedules *ScheduleService
}

func NewIntentService(vaults *VaultService, agents *AgentService, savings *SavingsService, schedules *ScheduleService) *IntentService {
	return &IntentService{
		vaults:    vaults,
		agents:    agents,
		savings:   savings,
		schedules: schedules,
	}
}

func (s *IntentService) Dispatch(ctx context.Context, userAddress string, intent model.Intent) (*model.IntentResult, error) {
	if !intent.Action.Valid() {
		return nil, apperrors.InvalidInput("action", "unknown intent action "+strconv.Quote(string(intent.Action)))
	}

	log.Debug().
		Str("user", userAddress).
		Str("action", string(intent.Action)).
		Msg("dispatching intent")

	switch intent.Action {
	case model.IntentActionPayment:
		return s.payment(ctx, userAddress, intent)
	case model.IntentActionSchedule:
		return s.schedule(ctx, userAddress, intent)
	case model.IntentActionSavings:
		return s.createSavings(ctx, userAddress, intent)
	case model.IntentActionView:
		return s.view(ctx, userAddress)
	default:
		return s.cancel(ctx, userAddress, intent)
	}
}

func (s *IntentService) payment(ctx context.Context, userAddress string, intent model.Intent) (*model.IntentResult, error) {
	vault, err := s.vaults.GetByWallet(ctx, userAddress)
	if err != nil {
		return nil, err
	}
	request, err := s.vaults.RequestPayment(ctx, vault.VaultAddress, userAddress, intent.Destination, intent.AmountWei, intent.Reason)
	if err != nil {
		return nil, err
	}
	return &model.IntentResult{
		Action:    model.IntentActionPayment,
		Status:    string(request.State(s.vaults.now())),
		RequestID: &request.RequestID,
		Data:      request,
	}, nil
}

func (s *IntentService) schedule(ctx context.Context, userAddress string, intent model.Intent) (*model.IntentResult, error) {
	schedule, err := s.schedules.Create(ctx, CreateScheduleInput{
		UserAddress:     userAddress,
		Kind:            model.ScheduleKindVendor,
		Destination:     intent.Destination,
		DestinationName: intent.Name,
		AmountWei:       intent.AmountWei,
		Frequency:       intent.Frequency,
	})
	if err != nil {
		return nil, err
	}
	return &model.IntentResult{
		Action:     model.IntentActionSchedule,
		Status:     "scheduled",
		ScheduleID: schedule.ID,
		Data:       schedule,
	}, nil
}

// createSavings builds a plan and, when recurring, a deposit schedule
// feeding it at the requested frequency.
func (s *IntentService) createSavings(ctx context.Context, userAddress string, intent model.Intent) (*model.IntentResult, error) {
	wallet, err := s.agents.Wallet(ctx, userAddress)
	if err != nil {
		return nil, err
	}

	plan, err := s.savings.CreatePlan(ctx, userAddress, wallet.AgentAddress, wallet.VaultAddress, intent.Name, intent.LockDays, intent.Recurring)
	if err != nil {
		return nil, err
	}

	result := &model.IntentResult{
		Action: model.IntentActionSavings,
		Status: "created",
		PlanID: plan.ID,
		Data:   plan,
	}

	if intent.Recurring {
		if intent.AmountWei == "" || !intent.Frequency.Valid() {
			return nil, apperrors.InvalidInput("recurring", "recurring plans need an amount and a frequency")
		}
		schedule, err := s.schedules.Create(ctx, CreateScheduleInput{
			UserAddress:     userAddress,
			Kind:            model.ScheduleKindSavings,
			DestinationName: intent.Name,
			SavingsPlanID:   &plan.ID,
			AmountWei:       intent.AmountWei,
			Frequency:       intent.Frequency,
		})
		if err != nil {
			return nil, err
		}
		result.ScheduleID = schedule.ID
	}

	return result, nil
}

func (s *IntentService) view(ctx context.Context, userAddress string) (*model.IntentResult, error) {
	vault, err := s.vaults.GetByWallet(ctx, userAddress)
	if err != nil {
		return nil, err
	}

	pending, err := s.vaults.PendingRequests(ctx, vault.VaultAddress)
	if err != nil {
		return nil, err
	}
	totalLocked, err := s.savings.TotalLocked(ctx, userAddress)
	if err != nil {
		return nil, err
	}
	schedules, err := s.schedules.List(ctx, userAddress)
	if err != nil {
		return nil, err
	}

	return &model.IntentResult{
		Action: model.IntentActionView,
		Status: "ok",
		Data: map[string]any{
			"vault":           vault,
			"pendingRequests": pending,
			"totalLockedWei":  totalLocked,
			"schedules":       schedules,
		},
	}, nil
}

// cancel targets either a payment request (numeric id) or a schedule.
func (s *IntentService) cancel(ctx context.Context, userAddress string, intent model.Intent) (*model.IntentResult, error) {
	if intent.TargetID == "" {
		return nil, apperrors.MissingRequired("targetId")
	}

	if requestID, err := strconv.ParseInt(intent.TargetID, 10, 64); err == nil {
		vault, err := s.vaults.GetByWallet(ctx, userAddress)
		if err != nil {
			return nil, err
		}
		reason := intent.Reason
		if reason == "" {
			reason = "cancelled by owner"
		}
		request, err := s.vaults.RevokeTransaction(ctx, userAddress, vault.VaultAddress, requestID, reason)
		if err != nil {
			return nil, err
		}
		return &model.IntentResult{
			Action:    model.IntentActionCancel,
			Status:    "revoked",
			RequestID: &request.RequestID,
			Data:      request,
		}, nil
	}

	schedule, err := s.schedules.SetPaused(ctx, userAddress, intent.TargetID, true)
	if err != nil {
		return nil, err
	}
	return &model.IntentResult{
		Action:     model.IntentActionCancel,
		Status:     "paused",
		ScheduleID: schedule.ID,
		Data:       schedule,
	}, nil
}
