package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type mockScheduleRepo struct {
	mock.Mock
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*model.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *mockScheduleRepo) FindByUser(ctx context.Context, userAddress string) ([]model.Schedule, error) {
	args := m.Called(ctx, userAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Schedule), args.Error(1)
}

func (m *mockScheduleRepo) FindDue(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Schedule), args.Error(1)
}

func (m *mockScheduleRepo) Create(ctx context.Context, params model.CreateScheduleParams) (*model.Schedule, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *mockScheduleRepo) Advance(ctx context.Context, id string, nextDue, executedAt time.Time) error {
	args := m.Called(ctx, id, nextDue, executedAt)
	return args.Error(0)
}

func (m *mockScheduleRepo) RecordFailure(ctx context.Context, id string, errMsg string) (int, error) {
	args := m.Called(ctx, id, errMsg)
	return args.Int(0), args.Error(1)
}

func (m *mockScheduleRepo) SetPaused(ctx context.Context, id string, paused bool) error {
	args := m.Called(ctx, id, paused)
	return args.Error(0)
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Pay(ctx context.Context, userAddress, destination, amountWei, memo string) (*model.ExecutionRecord, error) {
	args := m.Called(ctx, userAddress, destination, amountWei, memo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExecutionRecord), args.Error(1)
}

func (m *mockExecutor) DepositToPlan(ctx context.Context, userAddress, planID, amountWei string) (*model.SavingsPlan, error) {
	args := m.Called(ctx, userAddress, planID, amountWei)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SavingsPlan), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userAddress string, kind model.NotificationKind, message string, txRef *string) {
	m.Called(ctx, userAddress, kind, message, txRef)
}

const (
	testUser   = "0x1111111111111111111111111111111111111111"
	testVendor = "0x3333333333333333333333333333333333333333"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestScheduler() (*SchedulerJob, *mockScheduleRepo, *mockExecutor, *mockNotifier) {
	repo := new(mockScheduleRepo)
	executor := new(mockExecutor)
	notifier := new(mockNotifier)
	job := NewSchedulerJob(repo, executor, notifier, time.Minute)
	job.now = func() time.Time { return testNow }
	return job, repo, executor, notifier
}

func dueVendorSchedule() model.Schedule {
	return model.Schedule{
		ID:          "sched-0102030405060708",
		UserAddress: testUser,
		Kind:        model.ScheduleKindVendor,
		Destination: testVendor,
		AmountWei:   "100",
		Frequency:   model.FrequencyWeekly,
		NextDue:     testNow.Add(-10 * time.Minute),
	}
}

func TestTick_ExecutesDueVendorSchedule(t *testing.T) {
	job, repo, executor, notifier := newTestScheduler()
	schedule := dueVendorSchedule()

	repo.On("FindDue", mock.Anything, testNow).Return([]model.Schedule{schedule}, nil)
	notifier.On("Notify", mock.Anything, testUser, model.NotificationPaymentDue, mock.Anything, mock.Anything)
	executor.On("Pay", mock.Anything, testUser, testVendor, "100", "").
		Return(&model.ExecutionRecord{Status: model.ExecutionStatusSuccess}, nil)
	repo.On("Advance", mock.Anything, schedule.ID, schedule.NextDue.AddDate(0, 0, 7), testNow).Return(nil)

	job.Tick()

	repo.AssertExpectations(t)
	executor.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

// A schedule several intervals behind advances past now in one step instead
// of firing repeatedly.
func TestTick_SkipsMissedIntervals(t *testing.T) {
	job, repo, executor, notifier := newTestScheduler()
	schedule := dueVendorSchedule()
	schedule.NextDue = testNow.AddDate(0, 0, -21) // three weeks behind

	repo.On("FindDue", mock.Anything, testNow).Return([]model.Schedule{schedule}, nil)
	notifier.On("Notify", mock.Anything, testUser, model.NotificationPaymentDue, mock.Anything, mock.Anything)
	executor.On("Pay", mock.Anything, testUser, testVendor, "100", "").
		Return(&model.ExecutionRecord{Status: model.ExecutionStatusSuccess}, nil)
	repo.On("Advance", mock.Anything, schedule.ID, schedule.NextDue.AddDate(0, 0, 28), testNow).Return(nil)

	job.Tick()

	repo.AssertExpectations(t)
}

func TestTick_FailureBelowThresholdKeepsRunning(t *testing.T) {
	job, repo, executor, notifier := newTestScheduler()
	schedule := dueVendorSchedule()

	repo.On("FindDue", mock.Anything, testNow).Return([]model.Schedule{schedule}, nil)
	notifier.On("Notify", mock.Anything, testUser, model.NotificationPaymentDue, mock.Anything, mock.Anything)
	executor.On("Pay", mock.Anything, testUser, testVendor, "100", "").
		Return(nil, apperrors.InsufficientFunds("agent balance too low"))
	repo.On("RecordFailure", mock.Anything, schedule.ID, mock.Anything).Return(1, nil)

	job.Tick()

	repo.AssertNotCalled(t, "SetPaused", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTick_PausesAfterMaxFailures(t *testing.T) {
	job, repo, executor, notifier := newTestScheduler()
	schedule := dueVendorSchedule()
	schedule.FailureCount = 2 // two strikes already recorded

	repo.On("FindDue", mock.Anything, testNow).Return([]model.Schedule{schedule}, nil)
	executor.On("Pay", mock.Anything, testUser, testVendor, "100", "").
		Return(nil, apperrors.InsufficientFunds("agent balance too low"))
	repo.On("RecordFailure", mock.Anything, schedule.ID, mock.Anything).Return(3, nil)
	repo.On("SetPaused", mock.Anything, schedule.ID, true).Return(nil)
	notifier.On("Notify", mock.Anything, testUser, model.NotificationSchedulePaused, mock.Anything, mock.Anything)

	job.Tick()

	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

// A schedule already in retry attempts again without repeating the due
// notice, so a failing schedule pings the owner once, not every tick.
func TestTick_RetryDoesNotRepeatDueNotification(t *testing.T) {
	job, repo, executor, notifier := newTestScheduler()
	schedule := dueVendorSchedule()
	schedule.FailureCount = 1

	repo.On("FindDue", mock.Anything, testNow).Return([]model.Schedule{schedule}, nil)
	executor.On("Pay", mock.Anything, testUser, testVendor, "100", "").
		Return(&model.ExecutionRecord{Status: model.ExecutionStatusSuccess}, nil)
	repo.On("Advance", mock.Anything, schedule.ID, schedule.NextDue.AddDate(0, 0, 7), testNow).Return(nil)

	job.Tick()

	notifier.AssertNotCalled(t, "Notify",
		mock.Anything, mock.Anything, model.NotificationPaymentDue, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
	executor.AssertExpectations(t)
}

// Losing allowlist status is not retryable, so one failure is enough.
func TestTick_DisallowedDestinationPausesImmediately(t *testing.T) {
	job, repo, executor, notifier := newTestScheduler()
	schedule := dueVendorSchedule()

	repo.On("FindDue", mock.Anything, testNow).Return([]model.Schedule{schedule}, nil)
	notifier.On("Notify", mock.Anything, testUser, model.NotificationPaymentDue, mock.Anything, mock.Anything)
	executor.On("Pay", mock.Anything, testUser, testVendor, "100", "").
		Return(nil, apperrors.DestinationNotAllowed(testVendor))
	repo.On("SetPaused", mock.Anything, schedule.ID, true).Return(nil)
	notifier.On("Notify", mock.Anything, testUser, model.NotificationSchedulePaused, mock.Anything, mock.Anything)

	job.Tick()

	repo.AssertNotCalled(t, "RecordFailure", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestTick_SavingsScheduleDeposits(t *testing.T) {
	job, repo, executor, notifier := newTestScheduler()
	planID := "sp-0011223344556677"
	schedule := dueVendorSchedule()
	schedule.Kind = model.ScheduleKindSavings
	schedule.Destination = ""
	schedule.SavingsPlanID = &planID

	repo.On("FindDue", mock.Anything, testNow).Return([]model.Schedule{schedule}, nil)
	notifier.On("Notify", mock.Anything, testUser, model.NotificationDepositDue, mock.Anything, mock.Anything)
	executor.On("DepositToPlan", mock.Anything, testUser, planID, "100").
		Return(&model.SavingsPlan{ID: planID}, nil)
	repo.On("Advance", mock.Anything, schedule.ID, schedule.NextDue.AddDate(0, 0, 7), testNow).Return(nil)

	job.Tick()

	executor.AssertExpectations(t)
	repo.AssertExpectations(t)
}
