package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
)

// ScheduleService manages recurring payment and savings-deposit schedules.
// Execution itself lives in the scheduler job; this service only owns the
// records and their lifecycle.
type ScheduleService struct {
	scheduleRepo repository.ScheduleRepository
	savingsRepo  repository.SavingsRepository
	now          func() time.Time
}

func NewScheduleService(scheduleRepo repository.ScheduleRepository, savingsRepo repository.SavingsRepository) *ScheduleService {
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		savingsRepo:  savingsRepo,
		now:          time.Now,
	}
}

type CreateScheduleInput struct {
	UserAddress     string
	Kind            model.ScheduleKind
	Destination     string
	DestinationName string
	SavingsPlanID   *string
	AmountWei       string
	Frequency       model.Frequency
	// FirstDue is optional; zero means one full interval from now.
	FirstDue time.Time
}

func (s *ScheduleService) Create(ctx context.Context, input CreateScheduleInput) (*model.Schedule, error) {
	if !input.Frequency.Valid() {
		return nil, apperrors.InvalidInput("frequency", "must be daily, weekly, biweekly, monthly or yearly")
	}
	amount, ok := model.ParseWei(input.AmountWei)
	if !ok || amount.Sign() <= 0 {
		return nil, apperrors.InvalidInput("amount", "must be a positive wei value")
	}

	switch input.Kind {
	case model.ScheduleKindVendor:
		if !model.ValidAddress(input.Destination) {
			return nil, apperrors.InvalidInput("destination", "not a hex address")
		}
		input.Destination = model.NormalizeAddress(input.Destination)
	case model.ScheduleKindSavings:
		if input.SavingsPlanID == nil || *input.SavingsPlanID == "" {
			return nil, apperrors.MissingRequired("savingsPlanId")
		}
		plan, err := s.savingsRepo.FindByID(ctx, *input.SavingsPlanID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if plan == nil {
			return nil, apperrors.NotFound("savings plan")
		}
		if plan.Withdrawn {
			return nil, apperrors.InvalidState("savings plan already withdrawn")
		}
		if !model.SameAddress(plan.OwnerAddress, input.UserAddress) {
			return nil, apperrors.Unauthorized("savings plan belongs to another user")
		}
		input.Destination = plan.VaultAddress
	default:
		return nil, apperrors.InvalidInput("kind", "must be vendor or savings")
	}

	nextDue := input.FirstDue
	if nextDue.IsZero() {
		nextDue = input.Frequency.NextAfter(s.now())
	}

	schedule, err := s.scheduleRepo.Create(ctx, model.CreateScheduleParams{
		ID:              newID("sched"),
		UserAddress:     model.NormalizeAddress(input.UserAddress),
		Kind:            input.Kind,
		Destination:     input.Destination,
		DestinationName: input.DestinationName,
		SavingsPlanID:   input.SavingsPlanID,
		AmountWei:       model.FormatWei(amount),
		Frequency:       input.Frequency,
		NextDue:         nextDue,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("schedule", schedule.ID).
		Str("user", schedule.UserAddress).
		Str("kind", string(schedule.Kind)).
		Str("frequency", string(schedule.Frequency)).
		Time("nextDue", schedule.NextDue).
		Msg("schedule created")

	return schedule, nil
}

func (s *ScheduleService) List(ctx context.Context, userAddress string) ([]model.Schedule, error) {
	schedules, err := s.scheduleRepo.FindByUser(ctx, model.NormalizeAddress(userAddress))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return schedules, nil
}

func (s *ScheduleService) Get(ctx context.Context, userAddress, id string) (*model.Schedule, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if schedule == nil || !model.SameAddress(schedule.UserAddress, userAddress) {
		return nil, apperrors.NotFound("schedule")
	}
	return schedule, nil
}

func (s *ScheduleService) SetPaused(ctx context.Context, userAddress, id string, paused bool) (*model.Schedule, error) {
	schedule, err := s.Get(ctx, userAddress, id)
	if err != nil {
		return nil, err
	}
	if schedule.Paused == paused {
		return schedule, nil
	}
	if err := s.scheduleRepo.SetPaused(ctx, id, paused); err != nil {
		return nil, apperrors.Database(err)
	}
	schedule.Paused = paused

	log.Info().Str("schedule", id).Bool("paused", paused).Msg("schedule pause state changed")
	return schedule, nil
}

func (s *ScheduleService) Delete(ctx context.Context, userAddress, id string) error {
	if _, err := s.Get(ctx, userAddress, id); err != nil {
		return err
	}
	if err := s.scheduleRepo.Delete(ctx, id); err != nil {
		return apperrors.Database(err)
	}
	log.Info().Str("schedule", id).Msg("schedule deleted")
	return nil
}
