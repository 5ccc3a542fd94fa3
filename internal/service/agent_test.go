package service

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/identity"
	"github.com/ismail-169/sentinel-finance-sub000/internal/ledger"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

const testPool = "0x5555555555555555555555555555555555555555"

// 65-byte signatures, as produced by personal_sign. strings.Repeat keeps
// these out of a const block.
var (
	testSig      = "0x" + "ab1234cd" + "ef56789a" + "bc123456" + "def789ab" + "cdef1234" + "56789abc" + "def12345" + "6789abcd" + "ef123456" + "789abcde" + "f1234567" + "89abcdef" + "12345678" + "9abcdef1" + "23456789" + "abcdef12" + "1b"
	testOtherSig = "0x" + strings.Repeat("7e", 65)
)

type agentServiceMocks struct {
	agentRepo     *mockAgentWalletRepo
	vaultRepo     *mockVaultRepo
	vendorRepo    *mockVendorRepo
	executionRepo *mockExecutionRepo
	savingsRepo   *mockSavingsRepo
	notifier      *mockNotifier
	keystore      *identity.Keystore
}

func newTestAgentService(l ledger.Ledger) (*AgentService, *agentServiceMocks) {
	m := &agentServiceMocks{
		agentRepo:     new(mockAgentWalletRepo),
		vaultRepo:     new(mockVaultRepo),
		vendorRepo:    new(mockVendorRepo),
		executionRepo: new(mockExecutionRepo),
		savingsRepo:   new(mockSavingsRepo),
		notifier:      new(mockNotifier),
		keystore:      identity.NewKeystore(),
	}
	locker := NewAddressLocker()
	savings := NewSavingsService(fakeTxRunner{}, m.savingsRepo, m.vaultRepo, l, m.notifier, testPool, locker)
	svc := NewAgentService(m.agentRepo, m.vaultRepo, m.vendorRepo, m.executionRepo, savings, l, m.keystore, m.notifier, locker)
	return svc, m
}

func derivedAgentAddress(t *testing.T) string {
	t.Helper()
	key, err := identity.DeriveFromSignature(testSig)
	assert.NoError(t, err)
	return key.Address()
}

func agentWalletFixture(t *testing.T) *model.AgentWallet {
	return &model.AgentWallet{
		UserAddress:  testWallet,
		AgentAddress: derivedAgentAddress(t),
		VaultAddress: testVault,
		Network:      "mainnet",
	}
}

func TestCreateWallet_Deterministic(t *testing.T) {
	svc, m := newTestAgentService(ledger.NewMemoryLedger())
	ctx := context.Background()
	agentAddr := derivedAgentAddress(t)

	m.vaultRepo.On("FindByWallet", ctx, testWallet).Return(newTestVault(), nil)
	m.agentRepo.On("Save", ctx, mock.MatchedBy(func(p model.SaveAgentWalletParams) bool {
		return p.UserAddress == testWallet &&
			p.AgentAddress == agentAddr &&
			p.VaultAddress == testVault &&
			p.EncryptedKey != ""
	})).Return(agentWalletFixture(t), nil)

	wallet, err := svc.CreateWallet(ctx, testWallet, testSig)

	assert.NoError(t, err)
	assert.Equal(t, agentAddr, wallet.AgentAddress)
	assert.True(t, m.keystore.Has(agentAddr))
	m.agentRepo.AssertExpectations(t)
}

func TestCreateWallet_RequiresVault(t *testing.T) {
	svc, m := newTestAgentService(ledger.NewMemoryLedger())
	ctx := context.Background()

	m.vaultRepo.On("FindByWallet", ctx, testWallet).Return(nil, nil)

	_, err := svc.CreateWallet(ctx, testWallet, testSig)

	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	m.agentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRecover_WrongSignature(t *testing.T) {
	svc, m := newTestAgentService(ledger.NewMemoryLedger())
	ctx := context.Background()

	key, err := identity.DeriveFromSignature(testSig)
	assert.NoError(t, err)
	sealed, err := key.Seal(testSig)
	assert.NoError(t, err)

	wallet := agentWalletFixture(t)
	wallet.EncryptedKey = sealed
	m.agentRepo.On("FindByUser", ctx, testWallet).Return(wallet, nil)

	_, err = svc.Recover(ctx, testWallet, testOtherSig)

	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
	assert.False(t, m.keystore.Has(wallet.AgentAddress))
}

func TestRecover_Success(t *testing.T) {
	svc, m := newTestAgentService(ledger.NewMemoryLedger())
	ctx := context.Background()

	key, err := identity.DeriveFromSignature(testSig)
	assert.NoError(t, err)
	sealed, err := key.Seal(testSig)
	assert.NoError(t, err)

	wallet := agentWalletFixture(t)
	wallet.EncryptedKey = sealed
	m.agentRepo.On("FindByUser", ctx, testWallet).Return(wallet, nil)

	recovered, err := svc.Recover(ctx, testWallet, testSig)

	assert.NoError(t, err)
	assert.Equal(t, wallet.AgentAddress, recovered.AgentAddress)
	assert.True(t, m.keystore.Has(wallet.AgentAddress))
}

func TestAgentPay_DestinationNotAllowed(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	svc, m := newTestAgentService(mem)
	ctx := context.Background()
	wallet := agentWalletFixture(t)
	mem.Mint(wallet.AgentAddress, big.NewInt(1000))

	m.agentRepo.On("FindByUser", ctx, testWallet).Return(wallet, nil)
	m.vendorRepo.On("IsTrusted", ctx, testWallet, testOther).Return(false, nil)

	_, err := svc.Pay(ctx, testWallet, testOther, "100", "")

	assert.Equal(t, apperrors.ErrCodeDestinationNotAllowed, apperrors.GetCode(err))

	// funds must not have moved
	balance, _ := mem.BalanceOf(ctx, wallet.AgentAddress)
	assert.Equal(t, "1000", balance.String())
	m.executionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAgentPay_TrustedVendor(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	svc, m := newTestAgentService(mem)
	ctx := context.Background()
	wallet := agentWalletFixture(t)
	mem.Mint(wallet.AgentAddress, big.NewInt(1000))

	m.agentRepo.On("FindByUser", ctx, testWallet).Return(wallet, nil)
	m.vendorRepo.On("IsTrusted", ctx, testWallet, testVendor).Return(true, nil)
	m.executionRepo.On("Create", ctx, mock.MatchedBy(func(p model.CreateExecutionRecordParams) bool {
		return p.Status == model.ExecutionStatusSuccess && p.Destination == testVendor
	})).Return(&model.ExecutionRecord{Status: model.ExecutionStatusSuccess}, nil)
	m.notifier.On("Notify", ctx, testWallet, model.NotificationSuccess, mock.Anything, mock.Anything)

	record, err := svc.Pay(ctx, testWallet, testVendor, "400", "subscription")

	assert.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusSuccess, record.Status)

	balance, _ := mem.BalanceOf(ctx, testVendor)
	assert.Equal(t, "400", balance.String())
	m.notifier.AssertExpectations(t)
}

// The vault and the savings pool are always allowed, no vendor lookup
// needed.
func TestAgentPay_VaultAlwaysAllowed(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	svc, m := newTestAgentService(mem)
	ctx := context.Background()
	wallet := agentWalletFixture(t)
	mem.Mint(wallet.AgentAddress, big.NewInt(1000))

	m.agentRepo.On("FindByUser", ctx, testWallet).Return(wallet, nil)
	m.executionRepo.On("Create", ctx, mock.Anything).Return(&model.ExecutionRecord{Status: model.ExecutionStatusSuccess}, nil)
	m.notifier.On("Notify", ctx, testWallet, model.NotificationSuccess, mock.Anything, mock.Anything)

	_, err := svc.Pay(ctx, testWallet, testVault, "250", "")

	assert.NoError(t, err)
	m.vendorRepo.AssertNotCalled(t, "IsTrusted", mock.Anything, mock.Anything, mock.Anything)
}

func TestAgentPay_InsufficientFunds(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	svc, m := newTestAgentService(mem)
	ctx := context.Background()
	wallet := agentWalletFixture(t)

	m.agentRepo.On("FindByUser", ctx, testWallet).Return(wallet, nil)
	m.vendorRepo.On("IsTrusted", ctx, testWallet, testVendor).Return(true, nil)
	m.executionRepo.On("Create", ctx, mock.MatchedBy(func(p model.CreateExecutionRecordParams) bool {
		return p.Status == model.ExecutionStatusFailed
	})).Return(&model.ExecutionRecord{Status: model.ExecutionStatusFailed}, nil)
	m.notifier.On("Notify", ctx, testWallet, model.NotificationError, mock.Anything, mock.Anything)

	_, err := svc.Pay(ctx, testWallet, testVendor, "400", "")

	assert.Equal(t, apperrors.ErrCodeInsufficientFunds, apperrors.GetCode(err))
	m.executionRepo.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
}

func TestAllowedDestinations(t *testing.T) {
	svc, m := newTestAgentService(ledger.NewMemoryLedger())
	ctx := context.Background()
	wallet := agentWalletFixture(t)

	m.agentRepo.On("FindByUser", ctx, testWallet).Return(wallet, nil)
	m.vendorRepo.On("TrustedAddresses", ctx, testWallet).Return([]string{testVendor}, nil)

	allowed, err := svc.AllowedDestinations(ctx, testWallet)

	assert.NoError(t, err)
	assert.Equal(t, []string{testVault, testPool, testVendor}, allowed)
}

func TestWithdrawToVault_All(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	svc, m := newTestAgentService(mem)
	ctx := context.Background()
	wallet := agentWalletFixture(t)
	mem.Mint(wallet.AgentAddress, big.NewInt(900))

	credited := newTestVault()
	credited.BalanceWei = "1000000000000000900"
	m.agentRepo.On("FindByUser", ctx, testWallet).Return(wallet, nil)
	m.vaultRepo.On("AdjustBalance", ctx, testVault, "900").Return(credited, nil)

	amount, err := svc.WithdrawToVault(ctx, testWallet, "")

	assert.NoError(t, err)
	assert.Equal(t, "900", amount)

	balance, _ := mem.BalanceOf(ctx, testVault)
	assert.Equal(t, "900", balance.String())
	m.vaultRepo.AssertExpectations(t)
}

func TestFundFromVault_CapsAtVaultBalance(t *testing.T) {
	mem := ledger.NewMemoryLedger()
	svc, m := newTestAgentService(mem)
	ctx := context.Background()
	wallet := agentWalletFixture(t)

	vault := newTestVault()
	vault.BalanceWei = "100"
	m.agentRepo.On("FindByUser", ctx, testWallet).Return(wallet, nil)
	m.vaultRepo.On("FindByVaultAddress", ctx, testVault).Return(vault, nil)

	err := svc.FundFromVault(ctx, testWallet, "500")

	assert.Equal(t, apperrors.ErrCodeInsufficientFunds, apperrors.GetCode(err))
}
