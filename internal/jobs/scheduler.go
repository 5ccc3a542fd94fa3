package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ismail-169/sentinel-finance-sub000/internal/config"
	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
	"github.com/ismail-169/sentinel-finance-sub000/internal/service"
)

// PaymentExecutor is the slice of the agent service the scheduler drives.
type PaymentExecutor interface {
	Pay(ctx context.Context, userAddress, destination, amountWei, memo string) (*model.ExecutionRecord, error)
	DepositToPlan(ctx context.Context, userAddress, planID, amountWei string) (*model.SavingsPlan, error)
}

// SchedulerJob wakes up every interval, finds due schedules, and executes
// them through the owner's agent wallet. Transient failures are retried on
// the next tick; after ScheduleMaxFailures consecutive failures the
// schedule is paused. A disallowed destination pauses immediately since
// retrying cannot fix it.
type SchedulerJob struct {
	scheduleRepo repository.ScheduleRepository
	executor     PaymentExecutor
	notifier     service.Notifier
	interval     time.Duration
	done         chan struct{}
	now          func() time.Time
}

func NewSchedulerJob(
	scheduleRepo repository.ScheduleRepository,
	executor PaymentExecutor,
	notifier service.Notifier,
	interval time.Duration,
) *SchedulerJob {
	return &SchedulerJob{
		scheduleRepo: scheduleRepo,
		executor:     executor,
		notifier:     notifier,
		interval:     interval,
		done:         make(chan struct{}),
		now:          time.Now,
	}
}

func (j *SchedulerJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("scheduler job started")
}

func (j *SchedulerJob) Stop() {
	close(j.done)
	log.Info().Msg("scheduler job stopped")
}

func (j *SchedulerJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.Tick()
		}
	}
}

// Tick processes every schedule due at this moment. Exported so tests can
// drive it without the ticker.
func (j *SchedulerJob) Tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := j.now()
	due, err := j.scheduleRepo.FindDue(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to load due schedules")
		return
	}

	for i := range due {
		j.execute(ctx, &due[i], now)
	}
}

func (j *SchedulerJob) execute(ctx context.Context, schedule *model.Schedule, now time.Time) {
	// The due notice goes out on the first attempt only; retries of a
	// failing schedule stay quiet until they succeed or pause it.
	if schedule.FailureCount == 0 {
		switch schedule.Kind {
		case model.ScheduleKindVendor:
			j.notifier.Notify(ctx, schedule.UserAddress, model.NotificationPaymentDue,
				fmt.Sprintf("Scheduled payment of %s wei to %s is due", schedule.AmountWei, scheduleTarget(schedule)), nil)
		case model.ScheduleKindSavings:
			j.notifier.Notify(ctx, schedule.UserAddress, model.NotificationDepositDue,
				fmt.Sprintf("Scheduled savings deposit of %s wei is due", schedule.AmountWei), nil)
		}
	}

	var err error
	switch schedule.Kind {
	case model.ScheduleKindVendor:
		_, err = j.executor.Pay(ctx, schedule.UserAddress, schedule.Destination, schedule.AmountWei, schedule.DestinationName)
	case model.ScheduleKindSavings:
		if schedule.SavingsPlanID == nil {
			err = apperrors.InvalidState("savings schedule has no plan")
		} else {
			_, err = j.executor.DepositToPlan(ctx, schedule.UserAddress, *schedule.SavingsPlanID, schedule.AmountWei)
		}
	default:
		err = apperrors.InvalidState("unknown schedule kind " + string(schedule.Kind))
	}

	if err != nil {
		j.handleFailure(ctx, schedule, err)
		return
	}

	// Advance from the previous due date, skipping any intervals missed
	// while the process was down, so the cadence never drifts.
	nextDue := schedule.Frequency.NextAfter(schedule.NextDue)
	for !nextDue.After(now) {
		nextDue = schedule.Frequency.NextAfter(nextDue)
	}

	if err := j.scheduleRepo.Advance(ctx, schedule.ID, nextDue, now); err != nil {
		log.Error().Err(err).Str("schedule", schedule.ID).Msg("failed to advance schedule")
		return
	}

	log.Info().
		Str("schedule", schedule.ID).
		Time("nextDue", nextDue).
		Msg("schedule executed")
}

func (j *SchedulerJob) handleFailure(ctx context.Context, schedule *model.Schedule, execErr error) {
	log.Warn().Err(execErr).Str("schedule", schedule.ID).Msg("schedule execution failed")

	if apperrors.GetCode(execErr) == apperrors.ErrCodeDestinationNotAllowed {
		j.pause(ctx, schedule, "destination is no longer allowed")
		return
	}

	failures, err := j.scheduleRepo.RecordFailure(ctx, schedule.ID, execErr.Error())
	if err != nil {
		log.Error().Err(err).Str("schedule", schedule.ID).Msg("failed to record schedule failure")
		return
	}

	if failures >= config.ScheduleMaxFailures {
		j.pause(ctx, schedule, fmt.Sprintf("%d consecutive failures", failures))
	}
}

func (j *SchedulerJob) pause(ctx context.Context, schedule *model.Schedule, reason string) {
	if err := j.scheduleRepo.SetPaused(ctx, schedule.ID, true); err != nil {
		log.Error().Err(err).Str("schedule", schedule.ID).Msg("failed to pause schedule")
		return
	}
	j.notifier.Notify(ctx, schedule.UserAddress, model.NotificationSchedulePaused,
		fmt.Sprintf("Schedule for %s was paused: %s", scheduleTarget(schedule), reason), nil)
	log.Warn().Str("schedule", schedule.ID).Str("reason", reason).Msg("schedule paused")
}

func scheduleTarget(schedule *model.Schedule) string {
	if schedule.DestinationName != "" {
		return schedule.DestinationName
	}
	return schedule.Destination
}
