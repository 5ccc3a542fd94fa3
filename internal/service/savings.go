package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/ledger"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
)

// SavingsService manages time-locked savings plans. Deposits accumulate in
// the savings pool account; withdrawal is all-or-nothing, owner-only, only
// after the unlock time, and always back to the plan's vault.
type SavingsService struct {
	db          TxRunner
	savingsRepo repository.SavingsRepository
	vaultRepo   repository.VaultRepository
	ledger      ledger.Ledger
	notifier    Notifier
	poolAddress string
	locker      *AddressLocker
	now         func() time.Time
}

func NewSavingsService(
	db TxRunner,
	savingsRepo repository.SavingsRepository,
	vaultRepo repository.VaultRepository,
	l ledger.Ledger,
	notifier Notifier,
	poolAddress string,
	locker *AddressLocker,
) *SavingsService {
	return &SavingsService{
		db:          db,
		savingsRepo: savingsRepo,
		vaultRepo:   vaultRepo,
		ledger:      l,
		notifier:    notifier,
		poolAddress: model.NormalizeAddress(poolAddress),
		locker:      locker,
		now:         time.Now,
	}
}

// PoolAddress is the shared custody account deposits flow into. It is on
// every agent's allowlist.
func (s *SavingsService) PoolAddress() string {
	return s.poolAddress
}

func (s *SavingsService) CreatePlan(ctx context.Context, owner, agent, vaultAddress, name string, lockDays int, recurring bool) (*model.SavingsPlan, error) {
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if lockDays <= 0 {
		return nil, apperrors.InvalidInput("lockDays", "must be positive")
	}

	now := s.now()
	plan, err := s.savingsRepo.Create(ctx, model.CreateSavingsPlanParams{
		ID:           newID("sp"),
		OwnerAddress: model.NormalizeAddress(owner),
		AgentAddress: model.NormalizeAddress(agent),
		VaultAddress: model.NormalizeAddress(vaultAddress),
		Name:         name,
		UnlockAt:     now.AddDate(0, 0, lockDays),
		Recurring:    recurring,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("plan", plan.ID).
		Str("owner", plan.OwnerAddress).
		Int("lockDays", lockDays).
		Bool("recurring", recurring).
		Msg("savings plan created")

	return plan, nil
}

// DepositFromAgent moves funds from the plan's agent wallet into the pool.
// Only the agent bound to the plan may deposit; deposits into a withdrawn
// plan are rejected.
func (s *SavingsService) DepositFromAgent(ctx context.Context, agentAddress, planID, amountWei string) (*model.SavingsPlan, error) {
	amount, ok := model.ParseWei(amountWei)
	if !ok || amount.Sign() <= 0 {
		return nil, apperrors.InvalidInput("amount", "must be a positive wei value")
	}

	plan, err := s.Plan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !model.SameAddress(agentAddress, plan.AgentAddress) {
		return nil, apperrors.Unauthorized("only the plan's agent wallet may deposit")
	}

	unlock := s.locker.Lock(plan.ID)
	defer unlock()

	if plan.Withdrawn {
		return nil, apperrors.InvalidState(fmt.Sprintf("plan %s already withdrawn", plan.ID))
	}

	if _, err := s.ledger.Transfer(ctx, plan.AgentAddress, s.poolAddress, amount); err != nil {
		return nil, mapLedgerError("savings deposit", err)
	}

	if err := s.savingsRepo.AddDeposit(ctx, plan.ID, model.FormatWei(amount)); err != nil {
		return nil, apperrors.Database(err)
	}

	plan.TotalDepositedWei = model.FormatWei(new(big.Int).Add(plan.TotalDeposited(), amount))

	log.Info().
		Str("plan", plan.ID).
		Str("amount", amountWei).
		Msg("savings deposit")

	return plan, nil
}

// Withdraw closes the plan: the full accumulated amount moves from the pool
// back to the plan's vault. Permanently terminal.
func (s *SavingsService) Withdraw(ctx context.Context, owner, planID string) (*model.SavingsPlan, error) {
	plan, err := s.Plan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !model.SameAddress(owner, plan.OwnerAddress) {
		return nil, apperrors.Unauthorized("only the plan owner may withdraw")
	}

	unlock := s.locker.Lock(plan.ID)
	defer unlock()

	if plan.Withdrawn {
		return nil, apperrors.InvalidState(fmt.Sprintf("plan %s already withdrawn", plan.ID))
	}

	now := s.now()
	if !plan.Unlocked(now) {
		return nil, apperrors.StillLocked(
			fmt.Sprintf("plan %s unlocks at %s", plan.ID, plan.UnlockAt.UTC().Format(time.RFC3339)))
	}

	total := plan.TotalDeposited()
	if total.Sign() > 0 {
		if _, err := s.ledger.Transfer(ctx, s.poolAddress, plan.VaultAddress, total); err != nil {
			return nil, mapLedgerError("savings withdrawal", err)
		}
	}

	// Closing the plan and crediting the vault commit together, so a
	// half-closed plan can never be withdrawn twice or lose its payout.
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.savingsRepo.WithTx(tx).MarkWithdrawn(ctx, plan.ID, now); err != nil {
			return err
		}
		if total.Sign() > 0 {
			// The delta credit tolerates a missing vault row.
			if _, err := s.vaultRepo.WithTx(tx).AdjustBalance(ctx, plan.VaultAddress, model.FormatWei(total)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	plan.Withdrawn = true
	plan.WithdrawnAt = &now

	log.Info().
		Str("plan", plan.ID).
		Str("amount", plan.TotalDepositedWei).
		Str("vault", plan.VaultAddress).
		Msg("savings plan withdrawn")

	return plan, nil
}

func (s *SavingsService) Plan(ctx context.Context, planID string) (*model.SavingsPlan, error) {
	plan, err := s.savingsRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if plan == nil {
		return nil, apperrors.NotFound("savings plan")
	}
	return plan, nil
}

func (s *SavingsService) Plans(ctx context.Context, owner string) ([]model.SavingsPlan, error) {
	plans, err := s.savingsRepo.FindByOwner(ctx, model.NormalizeAddress(owner))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return plans, nil
}

func (s *SavingsService) TotalLocked(ctx context.Context, owner string) (string, error) {
	total, err := s.savingsRepo.TotalLockedByOwner(ctx, model.NormalizeAddress(owner))
	if err != nil {
		return "", apperrors.Database(err)
	}
	if total == "" {
		total = "0"
	}
	return total, nil
}

// NotifyUnlocked finds plans whose lock period has elapsed without the
// owner having been told, and tells them once.
func (s *SavingsService) NotifyUnlocked(ctx context.Context) (int, error) {
	plans, err := s.savingsRepo.FindUnlockedUnnotified(ctx, s.now())
	if err != nil {
		return 0, apperrors.Database(err)
	}

	notified := 0
	for i := range plans {
		plan := &plans[i]
		if err := s.savingsRepo.MarkUnlockNotified(ctx, plan.ID); err != nil {
			log.Error().Err(err).Str("plan", plan.ID).Msg("failed to mark unlock notified")
			continue
		}
		s.notifier.Notify(ctx, plan.OwnerAddress, model.NotificationPlanUnlocking,
			fmt.Sprintf("Savings plan %q has unlocked with %s wei available", plan.Name, plan.TotalDepositedWei), nil)
		notified++
	}
	return notified, nil
}
