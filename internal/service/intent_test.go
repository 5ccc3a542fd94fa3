package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/identity"
	"github.com/ismail-169/sentinel-finance-sub000/internal/ledger"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type intentServiceMocks struct {
	vaultRepo    *mockVaultRepo
	paymentRepo  *mockPaymentRepo
	vendorRepo   *mockVendorRepo
	agentRepo    *mockAgentWalletRepo
	savingsRepo  *mockSavingsRepo
	scheduleRepo *mockScheduleRepo
}

func newTestIntentService() (*IntentService, *intentServiceMocks) {
	m := &intentServiceMocks{
		vaultRepo:    new(mockVaultRepo),
		paymentRepo:  new(mockPaymentRepo),
		vendorRepo:   new(mockVendorRepo),
		agentRepo:    new(mockAgentWalletRepo),
		savingsRepo:  new(mockSavingsRepo),
		scheduleRepo: new(mockScheduleRepo),
	}
	mem := ledger.NewMemoryLedger()
	notifier := new(mockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()

	fixedNow := func() time.Time { return testNow }

	locker := NewAddressLocker()
	vaults := NewVaultService(fakeTxRunner{}, m.vaultRepo, m.paymentRepo, m.vendorRepo, mem, notifier, locker)
	vaults.now = fixedNow
	savings := NewSavingsService(fakeTxRunner{}, m.savingsRepo, m.vaultRepo, mem, notifier, testPool, locker)
	savings.now = fixedNow
	schedules := NewScheduleService(m.scheduleRepo, m.savingsRepo)
	schedules.now = fixedNow
	agents := NewAgentService(m.agentRepo, m.vaultRepo, m.vendorRepo, new(mockExecutionRepo), savings, mem, identity.NewKeystore(), notifier, locker)

	return NewIntentService(vaults, agents, savings, schedules), m
}

func TestDispatch_RejectsUnknownAction(t *testing.T) {
	svc, _ := newTestIntentService()

	_, err := svc.Dispatch(context.Background(), testWallet, model.Intent{Action: "transfer_everything"})

	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
}

func TestDispatch_Payment(t *testing.T) {
	svc, m := newTestIntentService()
	ctx := context.Background()

	m.vaultRepo.On("FindByWallet", ctx, testWallet).Return(newTestVault(), nil)
	m.vaultRepo.On("FindByVaultAddress", ctx, testVault).Return(newTestVault(), nil)
	m.paymentRepo.On("SumRequestedSince", ctx, testVault, mock.Anything).Return("0", nil)
	m.vendorRepo.On("IsTrusted", ctx, testWallet, testVendor).Return(true, nil)
	m.vaultRepo.On("NextRequestID", ctx, testVault).Return(int64(7), nil)
	m.paymentRepo.On("Create", ctx, mock.Anything).Return(&model.PaymentRequest{
		VaultAddress: testVault,
		RequestID:    7,
		Destination:  testVendor,
		AmountWei:    "100000000000000000",
		CreatedAt:    testNow,
		ExecuteAfter: testNow,
	}, nil)

	result, err := svc.Dispatch(ctx, testWallet, model.Intent{
		Action:      model.IntentActionPayment,
		Destination: testVendor,
		AmountWei:   "100000000000000000",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(7), *result.RequestID)
	assert.Equal(t, string(model.RequestStateReady), result.Status)
}

func TestDispatch_SavingsRecurring(t *testing.T) {
	svc, m := newTestIntentService()
	ctx := context.Background()

	plan := lockedPlan()
	m.agentRepo.On("FindByUser", ctx, testWallet).Return(&model.AgentWallet{
		UserAddress:  testWallet,
		AgentAddress: testAgent,
		VaultAddress: testVault,
	}, nil)
	m.savingsRepo.On("Create", ctx, mock.Anything).Return(plan, nil)
	m.savingsRepo.On("FindByID", ctx, plan.ID).Return(plan, nil)
	m.scheduleRepo.On("Create", ctx, mock.MatchedBy(func(p model.CreateScheduleParams) bool {
		return p.Kind == model.ScheduleKindSavings && *p.SavingsPlanID == plan.ID
	})).Return(&model.Schedule{
		ID:   "sched-aabbccdd00112233",
		Kind: model.ScheduleKindSavings,
	}, nil)

	result, err := svc.Dispatch(ctx, testWallet, model.Intent{
		Action:    model.IntentActionSavings,
		Name:      "vacation",
		LockDays:  30,
		Recurring: true,
		AmountWei: "100",
		Frequency: model.FrequencyWeekly,
	})

	assert.NoError(t, err)
	assert.Equal(t, plan.ID, result.PlanID)
	assert.Equal(t, "sched-aabbccdd00112233", result.ScheduleID)
}

func TestDispatch_CancelNumericTargetRevokesRequest(t *testing.T) {
	svc, m := newTestIntentService()
	ctx := context.Background()

	m.vaultRepo.On("FindByWallet", ctx, testWallet).Return(newTestVault(), nil)
	m.vaultRepo.On("FindByVaultAddress", ctx, testVault).Return(newTestVault(), nil)
	m.paymentRepo.On("FindByID", ctx, testVault, int64(3)).Return(&model.PaymentRequest{
		VaultAddress: testVault,
		RequestID:    3,
		AmountWei:    "100",
		ExecuteAfter: testNow.Add(time.Hour),
	}, nil)
	m.paymentRepo.On("MarkRevoked", ctx, testVault, int64(3), "cancelled by owner").Return(nil)

	result, err := svc.Dispatch(ctx, testWallet, model.Intent{
		Action:   model.IntentActionCancel,
		TargetID: "3",
	})

	assert.NoError(t, err)
	assert.Equal(t, "revoked", result.Status)
}

func TestDispatch_CancelScheduleTargetPauses(t *testing.T) {
	svc, m := newTestIntentService()
	ctx := context.Background()

	m.scheduleRepo.On("FindByID", ctx, "sched-1").Return(&model.Schedule{
		ID:          "sched-1",
		UserAddress: testWallet,
	}, nil)
	m.scheduleRepo.On("SetPaused", ctx, "sched-1", true).Return(nil)

	result, err := svc.Dispatch(ctx, testWallet, model.Intent{
		Action:   model.IntentActionCancel,
		TargetID: "sched-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "paused", result.Status)
}

func TestDispatch_View(t *testing.T) {
	svc, m := newTestIntentService()
	ctx := context.Background()

	m.vaultRepo.On("FindByWallet", ctx, testWallet).Return(newTestVault(), nil)
	m.paymentRepo.On("FindPending", ctx, testVault).Return([]model.PaymentRequest{}, nil)
	m.savingsRepo.On("TotalLockedByOwner", ctx, testWallet).Return("300", nil)
	m.scheduleRepo.On("FindByUser", ctx, testWallet).Return([]model.Schedule{}, nil)

	result, err := svc.Dispatch(ctx, testWallet, model.Intent{Action: model.IntentActionView})

	assert.NoError(t, err)
	data := result.Data.(map[string]any)
	assert.Equal(t, "300", data["totalLockedWei"])
}
