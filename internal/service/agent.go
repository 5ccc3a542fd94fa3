package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/identity"
	"github.com/ismail-169/sentinel-finance-sub000/internal/ledger"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
)

// AgentService manages derived agent wallets: restricted secondary
// identities whose keys come deterministically from a primary-wallet
// signature. An agent may only send to its own vault, the savings pool, or
// vendors the owner trusts; everything else is rejected before any funds
// move.
type AgentService struct {
	agentRepo     repository.AgentWalletRepository
	vaultRepo     repository.VaultRepository
	vendorRepo    repository.VendorRepository
	executionRepo repository.ExecutionLogRepository
	savings       *SavingsService
	ledger        ledger.Ledger
	keystore      *identity.Keystore
	notifier      Notifier
	locker        *AddressLocker
	now           func() time.Time
}

func NewAgentService(
	agentRepo repository.AgentWalletRepository,
	vaultRepo repository.VaultRepository,
	vendorRepo repository.VendorRepository,
	executionRepo repository.ExecutionLogRepository,
	savings *SavingsService,
	l ledger.Ledger,
	keystore *identity.Keystore,
	notifier Notifier,
	locker *AddressLocker,
) *AgentService {
	return &AgentService{
		agentRepo:     agentRepo,
		vaultRepo:     vaultRepo,
		vendorRepo:    vendorRepo,
		executionRepo: executionRepo,
		savings:       savings,
		ledger:        l,
		keystore:      keystore,
		notifier:      notifier,
		locker:        locker,
		now:           time.Now,
	}
}

// CreateWallet derives the user's agent wallet from their signature over
// the fixed derivation message. The same signature always yields the same
// agent, so this doubles as idempotent re-creation. The private key is
// stored only sealed under the signature and loaded into the in-memory
// keystore for this process lifetime.
func (s *AgentService) CreateWallet(ctx context.Context, userAddress, signatureHex string) (*model.AgentWallet, error) {
	userAddress = model.NormalizeAddress(userAddress)

	vault, err := s.vaultRepo.FindByWallet(ctx, userAddress)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if vault == nil {
		return nil, apperrors.NotFound("vault")
	}

	key, err := identity.DeriveFromSignature(signatureHex)
	if err != nil {
		return nil, apperrors.InvalidInput("signature", err.Error())
	}

	sealed, err := key.Seal(signatureHex)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to seal agent key", err)
	}

	wallet, err := s.agentRepo.Save(ctx, model.SaveAgentWalletParams{
		UserAddress:  userAddress,
		AgentAddress: key.Address(),
		VaultAddress: vault.VaultAddress,
		EncryptedKey: sealed,
		Network:      vault.Network,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	s.keystore.Put(key)

	log.Info().
		Str("user", userAddress).
		Str("agent", wallet.AgentAddress).
		Msg("agent wallet created")

	return wallet, nil
}

// Recover re-derives the stored agent wallet from a fresh signature and
// loads its key into the keystore, e.g. after a restart. The derived
// address must match the stored record.
func (s *AgentService) Recover(ctx context.Context, userAddress, signatureHex string) (*model.AgentWallet, error) {
	wallet, err := s.Wallet(ctx, userAddress)
	if err != nil {
		return nil, err
	}

	key, err := identity.Unseal(signatureHex, wallet.EncryptedKey)
	if err != nil {
		return nil, apperrors.Unauthorized("signature does not unlock this agent wallet")
	}
	if !model.SameAddress(key.Address(), wallet.AgentAddress) {
		return nil, apperrors.Unauthorized("signature does not unlock this agent wallet")
	}

	s.keystore.Put(key)

	log.Info().
		Str("user", wallet.UserAddress).
		Str("agent", wallet.AgentAddress).
		Msg("agent wallet recovered")

	return wallet, nil
}

func (s *AgentService) Wallet(ctx context.Context, userAddress string) (*model.AgentWallet, error) {
	wallet, err := s.agentRepo.FindByUser(ctx, model.NormalizeAddress(userAddress))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if wallet == nil {
		return nil, apperrors.NotFound("agent wallet")
	}
	return wallet, nil
}

func (s *AgentService) Balance(ctx context.Context, userAddress string) (string, error) {
	wallet, err := s.Wallet(ctx, userAddress)
	if err != nil {
		return "", err
	}
	balance, err := s.ledger.BalanceOf(ctx, wallet.AgentAddress)
	if err != nil {
		return "", mapLedgerError("agent balance", err)
	}
	return model.FormatWei(balance), nil
}

// GasBalance reports the agent account's native balance, which funds
// transaction fees rather than payments.
func (s *AgentService) GasBalance(ctx context.Context, userAddress string) (string, error) {
	wallet, err := s.Wallet(ctx, userAddress)
	if err != nil {
		return "", err
	}
	balance, err := s.ledger.NativeBalance(ctx, wallet.AgentAddress)
	if err != nil {
		return "", mapLedgerError("agent gas balance", err)
	}
	return model.FormatWei(balance), nil
}

// AllowedDestinations returns the agent's full allowlist: its own vault,
// the savings pool, and the owner's trusted vendors.
func (s *AgentService) AllowedDestinations(ctx context.Context, userAddress string) ([]string, error) {
	wallet, err := s.Wallet(ctx, userAddress)
	if err != nil {
		return nil, err
	}
	trusted, err := s.vendorRepo.TrustedAddresses(ctx, wallet.UserAddress)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	allowed := make([]string, 0, len(trusted)+2)
	allowed = append(allowed, wallet.VaultAddress, s.savings.PoolAddress())
	allowed = append(allowed, trusted...)
	return allowed, nil
}

func (s *AgentService) destinationAllowed(ctx context.Context, wallet *model.AgentWallet, destination string) (bool, error) {
	if model.SameAddress(destination, wallet.VaultAddress) {
		return true, nil
	}
	if model.SameAddress(destination, s.savings.PoolAddress()) {
		return true, nil
	}
	trusted, err := s.vendorRepo.IsTrusted(ctx, wallet.UserAddress, model.NormalizeAddress(destination))
	if err != nil {
		return false, apperrors.Database(err)
	}
	return trusted, nil
}

// Pay sends funds from the agent wallet to an allowlisted destination. The
// allowlist check always runs before the ledger is touched.
func (s *AgentService) Pay(ctx context.Context, userAddress, destination, amountWei, memo string) (*model.ExecutionRecord, error) {
	if !model.ValidAddress(destination) {
		return nil, apperrors.InvalidInput("destination", "not a hex address")
	}
	amount, ok := model.ParseWei(amountWei)
	if !ok || amount.Sign() <= 0 {
		return nil, apperrors.InvalidInput("amount", "must be a positive wei value")
	}

	wallet, err := s.Wallet(ctx, userAddress)
	if err != nil {
		return nil, err
	}

	allowed, err := s.destinationAllowed(ctx, wallet, destination)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.DestinationNotAllowed(model.NormalizeAddress(destination))
	}

	destination = model.NormalizeAddress(destination)
	txRef, err := s.ledger.Transfer(ctx, wallet.AgentAddress, destination, amount)
	if err != nil {
		appErr := mapLedgerError("agent payment", err)
		s.recordExecution(ctx, wallet.UserAddress, nil, nil, "payment", amountWei, destination, nil,
			model.ExecutionStatusFailed, appErr.Message)
		s.notifier.Notify(ctx, wallet.UserAddress, model.NotificationError,
			fmt.Sprintf("Agent payment of %s wei to %s failed: %s", amountWei, destination, appErr.Message), nil)
		return nil, appErr
	}

	record := s.recordExecution(ctx, wallet.UserAddress, nil, nil, "payment", amountWei, destination, &txRef,
		model.ExecutionStatusSuccess, "")
	s.notifier.Notify(ctx, wallet.UserAddress, model.NotificationSuccess,
		fmt.Sprintf("Agent paid %s wei to %s%s", amountWei, destination, memoSuffix(memo)), &txRef)

	log.Info().
		Str("agent", wallet.AgentAddress).
		Str("destination", destination).
		Str("amount", amountWei).
		Str("txRef", txRef).
		Msg("agent payment")

	return record, nil
}

// DepositToPlan moves agent funds into one of the owner's savings plans.
func (s *AgentService) DepositToPlan(ctx context.Context, userAddress, planID, amountWei string) (*model.SavingsPlan, error) {
	wallet, err := s.Wallet(ctx, userAddress)
	if err != nil {
		return nil, err
	}

	plan, err := s.savings.DepositFromAgent(ctx, wallet.AgentAddress, planID, amountWei)
	if err != nil {
		return nil, err
	}

	planID = plan.ID
	s.recordExecution(ctx, wallet.UserAddress, nil, &planID, "savings_deposit", amountWei, s.savings.PoolAddress(), nil,
		model.ExecutionStatusSuccess, "")

	return plan, nil
}

// WithdrawToVault drains agent funds back into the vault. Empty amount
// means the full agent balance. The vault record keeps custody, so its
// stored balance grows by the same amount.
func (s *AgentService) WithdrawToVault(ctx context.Context, userAddress, amountWei string) (string, error) {
	wallet, err := s.Wallet(ctx, userAddress)
	if err != nil {
		return "", err
	}

	amount := new(big.Int)
	if amountWei == "" {
		balance, err := s.ledger.BalanceOf(ctx, wallet.AgentAddress)
		if err != nil {
			return "", mapLedgerError("agent balance", err)
		}
		amount = balance
	} else {
		parsed, ok := model.ParseWei(amountWei)
		if !ok || parsed.Sign() <= 0 {
			return "", apperrors.InvalidInput("amount", "must be a positive wei value")
		}
		amount = parsed
	}

	if amount.Sign() == 0 {
		return "", apperrors.InvalidState("agent balance is zero")
	}

	unlock := s.locker.Lock(wallet.VaultAddress)
	defer unlock()

	if _, err := s.ledger.Transfer(ctx, wallet.AgentAddress, wallet.VaultAddress, amount); err != nil {
		return "", mapLedgerError("agent withdrawal", err)
	}

	// Delta credit; a vault row that no longer exists is tolerated.
	if _, err := s.vaultRepo.AdjustBalance(ctx, wallet.VaultAddress, model.FormatWei(amount)); err != nil {
		return "", apperrors.Database(err)
	}

	log.Info().
		Str("agent", wallet.AgentAddress).
		Str("vault", wallet.VaultAddress).
		Str("amount", model.FormatWei(amount)).
		Msg("agent funds returned to vault")

	return model.FormatWei(amount), nil
}

// FundFromVault tops up the agent from vault custody so scheduled payments
// have something to spend.
func (s *AgentService) FundFromVault(ctx context.Context, userAddress, amountWei string) error {
	amount, ok := model.ParseWei(amountWei)
	if !ok || amount.Sign() <= 0 {
		return apperrors.InvalidInput("amount", "must be a positive wei value")
	}

	wallet, err := s.Wallet(ctx, userAddress)
	if err != nil {
		return err
	}

	unlock := s.locker.Lock(wallet.VaultAddress)
	defer unlock()

	vault, err := s.vaultRepo.FindByVaultAddress(ctx, wallet.VaultAddress)
	if err != nil {
		return apperrors.Database(err)
	}
	if vault == nil {
		return apperrors.NotFound("vault")
	}
	if vault.Balance().Cmp(amount) < 0 {
		return apperrors.InsufficientFunds(
			fmt.Sprintf("vault balance %s below funding amount %s", vault.BalanceWei, amountWei))
	}

	if _, err := s.ledger.Transfer(ctx, vault.VaultAddress, wallet.AgentAddress, amount); err != nil {
		return mapLedgerError("agent funding", err)
	}

	debited, err := s.vaultRepo.AdjustBalance(ctx, vault.VaultAddress, model.FormatWei(new(big.Int).Neg(amount)))
	if err != nil {
		return apperrors.Database(err)
	}
	if debited == nil {
		return apperrors.InsufficientFunds(
			fmt.Sprintf("vault balance %s below funding amount %s", vault.BalanceWei, amountWei))
	}

	log.Info().
		Str("vault", vault.VaultAddress).
		Str("agent", wallet.AgentAddress).
		Str("amount", amountWei).
		Msg("agent funded from vault")

	return nil
}

func (s *AgentService) ExecutionHistory(ctx context.Context, userAddress string, limit int) ([]model.ExecutionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	records, err := s.executionRepo.FindByUser(ctx, model.NormalizeAddress(userAddress), limit)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return records, nil
}

// recordExecution writes the execution log row; audit failures are logged,
// never surfaced.
func (s *AgentService) recordExecution(ctx context.Context, user string, scheduleID, planID *string, executionType, amountWei, destination string, txRef *string, status model.ExecutionStatus, errMsg string) *model.ExecutionRecord {
	record, err := s.executionRepo.Create(ctx, model.CreateExecutionRecordParams{
		ScheduleID:    scheduleID,
		SavingsPlanID: planID,
		UserAddress:   user,
		ExecutionType: executionType,
		AmountWei:     amountWei,
		Destination:   destination,
		TxRef:         txRef,
		Status:        status,
		ErrorMessage:  errMsg,
	})
	if err != nil {
		log.Error().Err(err).Str("user", user).Msg("failed to write execution log")
		return nil
	}
	return record
}

func memoSuffix(memo string) string {
	if memo == "" {
		return ""
	}
	return " (" + memo + ")"
}
