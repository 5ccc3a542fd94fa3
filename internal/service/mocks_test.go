package service

import (
	"context"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
)

// Pass-through transaction runner; rollback behavior belongs to
// database.DB, not the services under test.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

// Mock vault repository
type mockVaultRepo struct {
	mock.Mock
}

func (m *mockVaultRepo) FindByVaultAddress(ctx context.Context, vaultAddress string) (*model.Vault, error) {
	args := m.Called(ctx, vaultAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vault), args.Error(1)
}

func (m *mockVaultRepo) FindByWallet(ctx context.Context, walletAddress string) (*model.Vault, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vault), args.Error(1)
}

func (m *mockVaultRepo) FindAll(ctx context.Context) ([]model.Vault, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Vault), args.Error(1)
}

func (m *mockVaultRepo) Create(ctx context.Context, params model.RegisterVaultParams) (*model.Vault, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vault), args.Error(1)
}

func (m *mockVaultRepo) UpdateLimits(ctx context.Context, vaultAddress string, limits model.VaultLimits) error {
	args := m.Called(ctx, vaultAddress, limits)
	return args.Error(0)
}

func (m *mockVaultRepo) AdjustBalance(ctx context.Context, vaultAddress string, deltaWei string) (*model.Vault, error) {
	args := m.Called(ctx, vaultAddress, deltaWei)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vault), args.Error(1)
}

func (m *mockVaultRepo) NextRequestID(ctx context.Context, vaultAddress string) (int64, error) {
	args := m.Called(ctx, vaultAddress)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockVaultRepo) WithTx(tx *sqlx.Tx) repository.VaultRepository {
	return m
}

// Mock payment repository
type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, vaultAddress string, requestID int64) (*model.PaymentRequest, error) {
	args := m.Called(ctx, vaultAddress, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentRequest), args.Error(1)
}

func (m *mockPaymentRepo) FindPending(ctx context.Context, vaultAddress string) ([]model.PaymentRequest, error) {
	args := m.Called(ctx, vaultAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentRequest), args.Error(1)
}

func (m *mockPaymentRepo) FindHistory(ctx context.Context, vaultAddress string, limit, offset int) ([]model.PaymentRequest, error) {
	args := m.Called(ctx, vaultAddress, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PaymentRequest), args.Error(1)
}

func (m *mockPaymentRepo) SumRequestedSince(ctx context.Context, vaultAddress string, since time.Time) (string, error) {
	args := m.Called(ctx, vaultAddress, since)
	return args.String(0), args.Error(1)
}

func (m *mockPaymentRepo) Create(ctx context.Context, params model.CreatePaymentRequestParams) (*model.PaymentRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentRequest), args.Error(1)
}

func (m *mockPaymentRepo) MarkExecuted(ctx context.Context, vaultAddress string, requestID int64, txRef string, executedAt time.Time) error {
	args := m.Called(ctx, vaultAddress, requestID, txRef, executedAt)
	return args.Error(0)
}

func (m *mockPaymentRepo) MarkRevoked(ctx context.Context, vaultAddress string, requestID int64, reason string) error {
	args := m.Called(ctx, vaultAddress, requestID, reason)
	return args.Error(0)
}

func (m *mockPaymentRepo) WithTx(tx *sqlx.Tx) repository.PaymentRepository {
	return m
}

// Mock vendor repository
type mockVendorRepo struct {
	mock.Mock
}

func (m *mockVendorRepo) FindByWallet(ctx context.Context, walletAddress string) ([]model.Vendor, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Vendor), args.Error(1)
}

func (m *mockVendorRepo) FindByAddress(ctx context.Context, walletAddress, address string) (*model.Vendor, error) {
	args := m.Called(ctx, walletAddress, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vendor), args.Error(1)
}

func (m *mockVendorRepo) TrustedAddresses(ctx context.Context, walletAddress string) ([]string, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockVendorRepo) IsTrusted(ctx context.Context, walletAddress, address string) (bool, error) {
	args := m.Called(ctx, walletAddress, address)
	return args.Bool(0), args.Error(1)
}

func (m *mockVendorRepo) Upsert(ctx context.Context, params model.UpsertVendorParams) (*model.Vendor, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vendor), args.Error(1)
}

func (m *mockVendorRepo) SetTrusted(ctx context.Context, walletAddress, address string, trusted bool) error {
	args := m.Called(ctx, walletAddress, address, trusted)
	return args.Error(0)
}

func (m *mockVendorRepo) RecordPayment(ctx context.Context, walletAddress, address, amountWei string) error {
	args := m.Called(ctx, walletAddress, address, amountWei)
	return args.Error(0)
}

// Mock agent wallet repository
type mockAgentWalletRepo struct {
	mock.Mock
}

func (m *mockAgentWalletRepo) FindByUser(ctx context.Context, userAddress string) (*model.AgentWallet, error) {
	args := m.Called(ctx, userAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AgentWallet), args.Error(1)
}

func (m *mockAgentWalletRepo) FindByAgentAddress(ctx context.Context, agentAddress string) (*model.AgentWallet, error) {
	args := m.Called(ctx, agentAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AgentWallet), args.Error(1)
}

func (m *mockAgentWalletRepo) Save(ctx context.Context, params model.SaveAgentWalletParams) (*model.AgentWallet, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AgentWallet), args.Error(1)
}

func (m *mockAgentWalletRepo) Delete(ctx context.Context, userAddress string) error {
	args := m.Called(ctx, userAddress)
	return args.Error(0)
}

// Mock savings repository
type mockSavingsRepo struct {
	mock.Mock
}

func (m *mockSavingsRepo) FindByID(ctx context.Context, id string) (*model.SavingsPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SavingsPlan), args.Error(1)
}

func (m *mockSavingsRepo) FindByOwner(ctx context.Context, ownerAddress string) ([]model.SavingsPlan, error) {
	args := m.Called(ctx, ownerAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SavingsPlan), args.Error(1)
}

func (m *mockSavingsRepo) Create(ctx context.Context, params model.CreateSavingsPlanParams) (*model.SavingsPlan, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SavingsPlan), args.Error(1)
}

func (m *mockSavingsRepo) AddDeposit(ctx context.Context, id string, amountWei string) error {
	args := m.Called(ctx, id, amountWei)
	return args.Error(0)
}

func (m *mockSavingsRepo) MarkWithdrawn(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockSavingsRepo) TotalLockedByOwner(ctx context.Context, ownerAddress string) (string, error) {
	args := m.Called(ctx, ownerAddress)
	return args.String(0), args.Error(1)
}

func (m *mockSavingsRepo) FindUnlockedUnnotified(ctx context.Context, now time.Time) ([]model.SavingsPlan, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SavingsPlan), args.Error(1)
}

func (m *mockSavingsRepo) MarkUnlockNotified(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSavingsRepo) WithTx(tx *sqlx.Tx) repository.SavingsRepository {
	return m
}

// Mock schedule repository
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

// Mock execution log repository
type mockExecutionRepo struct {
	mock.Mock
}

func (m *mockExecutionRepo) Create(ctx context.Context, params model.CreateExecutionRecordParams) (*model.ExecutionRecord, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExecutionRecord), args.Error(1)
}

func (m *mockExecutionRepo) FindByUser(ctx context.Context, userAddress string, limit int) ([]model.ExecutionRecord, error) {
	args := m.Called(ctx, userAddress, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExecutionRecord), args.Error(1)
}

func (m *mockExecutionRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// Recording notifier, since notifications are fire-and-forget.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userAddress string, kind model.NotificationKind, message string, txRef *string) {
	m.Called(ctx, userAddress, kind, message, txRef)
}

// Mock ledger for failure injection; happy paths use MemoryLedger.
type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockLedger) Transfer(ctx context.Context, from, to string, amount *big.Int) (string, error) {
	args := m.Called(ctx, from, to, amount)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) Approve(ctx context.Context, owner, spender string, amount *big.Int) (string, error) {
	args := m.Called(ctx, owner, spender, amount)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	args := m.Called(ctx, owner, spender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockLedger) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}
