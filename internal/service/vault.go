package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/ismail-169/sentinel-finance-sub000/internal/config"
	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/ledger"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
)

// VaultService is the custodial authorization engine: it records payment
// requests against a vault, enforces spending limits and vendor trust,
// applies time-locks, and executes or revokes requests. All mutating
// operations on one vault are serialized through the shared locker, and
// the vault row is always read after the lock is held.
type VaultService struct {
	db          TxRunner
	vaultRepo   repository.VaultRepository
	paymentRepo repository.PaymentRepository
	vendorRepo  repository.VendorRepository
	ledger      ledger.Ledger
	notifier    Notifier
	locker      *AddressLocker
	now         func() time.Time
}

func NewVaultService(
	db TxRunner,
	vaultRepo repository.VaultRepository,
	paymentRepo repository.PaymentRepository,
	vendorRepo repository.VendorRepository,
	l ledger.Ledger,
	notifier Notifier,
	locker *AddressLocker,
) *VaultService {
	return &VaultService{
		db:          db,
		vaultRepo:   vaultRepo,
		paymentRepo: paymentRepo,
		vendorRepo:  vendorRepo,
		ledger:      l,
		notifier:    notifier,
		locker:      locker,
		now:         time.Now,
	}
}

func (s *VaultService) Register(ctx context.Context, params model.RegisterVaultParams) (*model.Vault, error) {
	if !model.ValidAddress(params.WalletAddress) {
		return nil, apperrors.InvalidInput("walletAddress", "not a hex address")
	}
	if !model.ValidAddress(params.VaultAddress) {
		return nil, apperrors.InvalidInput("vaultAddress", "not a hex address")
	}
	params.WalletAddress = model.NormalizeAddress(params.WalletAddress)
	params.VaultAddress = model.NormalizeAddress(params.VaultAddress)
	if params.Network == "" {
		params.Network = "mainnet"
	}
	if params.DailyLimitWei == "" {
		params.DailyLimitWei = "0"
	}
	if params.TxLimitWei == "" {
		params.TxLimitWei = "0"
	}

	existing, err := s.vaultRepo.FindByWallet(ctx, params.WalletAddress)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("vault")
	}

	vault, err := s.vaultRepo.Create(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("wallet", vault.WalletAddress).
		Str("vault", vault.VaultAddress).
		Msg("vault registered")

	return vault, nil
}

func (s *VaultService) Get(ctx context.Context, vaultAddress string) (*model.Vault, error) {
	vault, err := s.vaultRepo.FindByVaultAddress(ctx, model.NormalizeAddress(vaultAddress))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if vault == nil {
		return nil, apperrors.NotFound("vault")
	}
	return vault, nil
}

func (s *VaultService) GetByWallet(ctx context.Context, walletAddress string) (*model.Vault, error) {
	vault, err := s.vaultRepo.FindByWallet(ctx, model.NormalizeAddress(walletAddress))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if vault == nil {
		return nil, apperrors.NotFound("vault")
	}
	return vault, nil
}

// Deposit moves funds from the owner's ledger account into vault custody.
func (s *VaultService) Deposit(ctx context.Context, walletAddress, amountWei string) (*model.Vault, error) {
	amount, ok := model.ParseWei(amountWei)
	if !ok || amount.Sign() <= 0 {
		return nil, apperrors.InvalidInput("amount", "must be a positive wei value")
	}

	vault, err := s.GetByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(vault.VaultAddress)
	defer unlock()

	if _, err := s.ledger.Transfer(ctx, vault.WalletAddress, vault.VaultAddress, amount); err != nil {
		return nil, mapLedgerError("deposit", err)
	}

	updated, err := s.vaultRepo.AdjustBalance(ctx, vault.VaultAddress, model.FormatWei(amount))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("vault")
	}

	log.Info().
		Str("vault", updated.VaultAddress).
		Str("amount", amountWei).
		Msg("vault deposit")

	return updated, nil
}

// RequestPayment records a spending intent. It is the sole entry point that
// creates spending intents and it never moves funds. The executeAfter time
// is frozen here: destinations trusted at this instant are immediately
// executable even if trust is later revoked, and vice versa.
func (s *VaultService) RequestPayment(ctx context.Context, vaultAddress, requester, destination, amountWei, memo string) (*model.PaymentRequest, error) {
	if !model.ValidAddress(destination) {
		return nil, apperrors.InvalidInput("destination", "not a hex address")
	}
	amount, ok := model.ParseWei(amountWei)
	if !ok || amount.Sign() <= 0 {
		return nil, apperrors.InvalidInput("amount", "must be a positive wei value")
	}

	vaultAddress = model.NormalizeAddress(vaultAddress)
	unlock := s.locker.Lock(vaultAddress)
	defer unlock()

	vault, err := s.Get(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}

	if txLimit := vault.TxLimit(); txLimit.Sign() > 0 && amount.Cmp(txLimit) > 0 {
		return nil, apperrors.LimitExceeded(
			fmt.Sprintf("amount %s exceeds transaction limit %s", amountWei, vault.TxLimitWei))
	}

	now := s.now()

	if dailyLimit := vault.DailyLimit(); dailyLimit.Sign() > 0 {
		sumStr, err := s.paymentRepo.SumRequestedSince(ctx, vault.VaultAddress, now.Add(-config.DailyLimitWindow))
		if err != nil {
			return nil, apperrors.Database(err)
		}
		sum, _ := model.ParseWei(sumStr)
		if sum == nil {
			sum = big.NewInt(0)
		}
		if new(big.Int).Add(sum, amount).Cmp(dailyLimit) > 0 {
			return nil, apperrors.LimitExceeded(
				fmt.Sprintf("request would exceed daily limit %s (already requested %s in the last 24h)",
					vault.DailyLimitWei, sumStr))
		}
	}

	destination = model.NormalizeAddress(destination)
	trusted, err := s.vendorRepo.IsTrusted(ctx, vault.WalletAddress, destination)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	executeAfter := now
	if !trusted {
		executeAfter = now.Add(vault.Timelock())
	}

	id, err := s.vaultRepo.NextRequestID(ctx, vault.VaultAddress)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	request, err := s.paymentRepo.Create(ctx, model.CreatePaymentRequestParams{
		VaultAddress: vault.VaultAddress,
		RequestID:    id,
		Requester:    model.NormalizeAddress(requester),
		Destination:  destination,
		AmountWei:    model.FormatWei(amount),
		Memo:         memo,
		CreatedAt:    now,
		ExecuteAfter: executeAfter,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("vault", vault.VaultAddress).
		Int64("requestId", id).
		Str("destination", destination).
		Str("amount", amountWei).
		Bool("trusted", trusted).
		Time("executeAfter", executeAfter).
		Msg("payment requested")

	return request, nil
}

// ExecutePayment executes a ready request. Authorization is implicit in the
// already-approved request: anyone who knows the id may call this, which is
// what lets the agent execute unattended.
func (s *VaultService) ExecutePayment(ctx context.Context, vaultAddress string, requestID int64) (*model.PaymentRequest, error) {
	vaultAddress = model.NormalizeAddress(vaultAddress)
	unlock := s.locker.Lock(vaultAddress)
	defer unlock()

	vault, err := s.Get(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}

	request, err := s.paymentRepo.FindByID(ctx, vault.VaultAddress, requestID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if request == nil {
		return nil, apperrors.NotFound("payment request")
	}

	if request.Revoked {
		return nil, apperrors.TransactionRevoked(
			fmt.Sprintf("request %d was revoked: %s", requestID, request.RevokeReason))
	}
	if request.Executed {
		return nil, apperrors.InvalidState(fmt.Sprintf("request %d already executed", requestID))
	}

	now := s.now()
	if now.Before(request.ExecuteAfter) {
		return nil, apperrors.TimeLockActive(
			fmt.Sprintf("request %d executable after %s", requestID, request.ExecuteAfter.UTC().Format(time.RFC3339))).
			WithDetails(map[string]any{"executeAfter": request.ExecuteAfter})
	}

	amount := request.Amount()
	if vault.Balance().Cmp(amount) < 0 {
		return nil, apperrors.InsufficientFunds(
			fmt.Sprintf("vault balance %s below request amount %s", vault.BalanceWei, request.AmountWei))
	}

	txRef, err := s.ledger.Transfer(ctx, vault.VaultAddress, request.Destination, amount)
	if err != nil {
		return nil, mapLedgerError("execute payment", err)
	}

	// The executed flag and the debit commit or roll back together, so a
	// request can never read as executed with the balance untouched.
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.paymentRepo.WithTx(tx).MarkExecuted(ctx, vault.VaultAddress, requestID, txRef, now); err != nil {
			return err
		}
		debited, err := s.vaultRepo.WithTx(tx).AdjustBalance(ctx, vault.VaultAddress, model.FormatWei(new(big.Int).Neg(amount)))
		if err != nil {
			return err
		}
		if debited == nil {
			return apperrors.InsufficientFunds(
				fmt.Sprintf("vault balance %s below request amount %s", vault.BalanceWei, request.AmountWei))
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	if err := s.vendorRepo.RecordPayment(ctx, vault.WalletAddress, request.Destination, request.AmountWei); err != nil {
		log.Warn().Err(err).Str("vendor", request.Destination).Msg("failed to update vendor stats")
	}

	request.Executed = true
	request.ExecutedAt = &now
	request.TxRef = &txRef

	log.Info().
		Str("vault", vault.VaultAddress).
		Int64("requestId", requestID).
		Str("txRef", txRef).
		Msg("payment executed")

	return request, nil
}

// RevokeTransaction permanently cancels a pending request. Owner-only; a
// revoked id can never transition to executed.
func (s *VaultService) RevokeTransaction(ctx context.Context, caller, vaultAddress string, requestID int64, reason string) (*model.PaymentRequest, error) {
	vault, err := s.Get(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	if !model.SameAddress(caller, vault.WalletAddress) {
		return nil, apperrors.Unauthorized("only the vault owner may revoke requests")
	}

	unlock := s.locker.Lock(vault.VaultAddress)
	defer unlock()

	request, err := s.paymentRepo.FindByID(ctx, vault.VaultAddress, requestID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if request == nil {
		return nil, apperrors.NotFound("payment request")
	}
	if request.Executed {
		return nil, apperrors.InvalidState(fmt.Sprintf("request %d already executed", requestID))
	}
	if request.Revoked {
		return nil, apperrors.InvalidState(fmt.Sprintf("request %d already revoked", requestID))
	}

	if err := s.paymentRepo.MarkRevoked(ctx, vault.VaultAddress, requestID, reason); err != nil {
		return nil, apperrors.Database(err)
	}

	request.Revoked = true
	request.RevokeReason = reason

	log.Info().
		Str("vault", vault.VaultAddress).
		Int64("requestId", requestID).
		Str("reason", reason).
		Msg("payment revoked")

	return request, nil
}

// SetTrustedVendor flips vendor trust. Affects only future requests: the
// executeAfter of existing requests is already frozen.
func (s *VaultService) SetTrustedVendor(ctx context.Context, caller, vaultAddress, vendorAddress string, trusted bool) error {
	if !model.ValidAddress(vendorAddress) {
		return apperrors.InvalidInput("vendorAddress", "not a hex address")
	}

	vault, err := s.Get(ctx, vaultAddress)
	if err != nil {
		return err
	}
	if !model.SameAddress(caller, vault.WalletAddress) {
		return apperrors.Unauthorized("only the vault owner may change vendor trust")
	}

	if err := s.vendorRepo.SetTrusted(ctx, vault.WalletAddress, model.NormalizeAddress(vendorAddress), trusted); err != nil {
		return apperrors.Database(err)
	}

	log.Info().
		Str("vault", vault.VaultAddress).
		Str("vendor", model.NormalizeAddress(vendorAddress)).
		Bool("trusted", trusted).
		Msg("vendor trust updated")

	return nil
}

// SetLimits updates spending limits; effective for subsequent requests only.
func (s *VaultService) SetLimits(ctx context.Context, caller, vaultAddress string, limits model.VaultLimits) error {
	if _, ok := model.ParseWei(limits.DailyLimitWei); !ok {
		return apperrors.InvalidInput("dailyLimit", "must be a non-negative wei value")
	}
	if _, ok := model.ParseWei(limits.TxLimitWei); !ok {
		return apperrors.InvalidInput("transactionLimit", "must be a non-negative wei value")
	}
	if limits.TimelockSeconds < 0 {
		return apperrors.InvalidInput("timeLockDuration", "must be non-negative")
	}

	vault, err := s.Get(ctx, vaultAddress)
	if err != nil {
		return err
	}
	if !model.SameAddress(caller, vault.WalletAddress) {
		return apperrors.Unauthorized("only the vault owner may change limits")
	}

	if err := s.vaultRepo.UpdateLimits(ctx, vault.VaultAddress, limits); err != nil {
		return apperrors.Database(err)
	}

	log.Info().
		Str("vault", vault.VaultAddress).
		Str("dailyLimit", limits.DailyLimitWei).
		Str("txLimit", limits.TxLimitWei).
		Int64("timelockSeconds", limits.TimelockSeconds).
		Msg("vault limits updated")

	return nil
}

// Withdraw returns custody to the owner. No time-lock applies: funds move
// to the sole trusted owner, not to a third party. Empty amount means all.
func (s *VaultService) Withdraw(ctx context.Context, caller, vaultAddress, amountWei string) (*model.Vault, error) {
	vaultAddress = model.NormalizeAddress(vaultAddress)
	unlock := s.locker.Lock(vaultAddress)
	defer unlock()

	vault, err := s.Get(ctx, vaultAddress)
	if err != nil {
		return nil, err
	}
	if !model.SameAddress(caller, vault.WalletAddress) {
		return nil, apperrors.Unauthorized("only the vault owner may withdraw")
	}

	amount := vault.Balance()
	if amountWei != "" {
		parsed, ok := model.ParseWei(amountWei)
		if !ok || parsed.Sign() <= 0 {
			return nil, apperrors.InvalidInput("amount", "must be a positive wei value")
		}
		amount = parsed
	}

	if amount.Sign() == 0 {
		return nil, apperrors.InvalidState("vault balance is zero")
	}
	if vault.Balance().Cmp(amount) < 0 {
		return nil, apperrors.InsufficientFunds(
			fmt.Sprintf("vault balance %s below withdrawal amount %s", vault.BalanceWei, model.FormatWei(amount)))
	}

	if _, err := s.ledger.Transfer(ctx, vault.VaultAddress, vault.WalletAddress, amount); err != nil {
		return nil, mapLedgerError("withdraw", err)
	}

	updated, err := s.vaultRepo.AdjustBalance(ctx, vault.VaultAddress, model.FormatWei(new(big.Int).Neg(amount)))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.InsufficientFunds(
			fmt.Sprintf("vault balance %s below withdrawal amount %s", vault.BalanceWei, model.FormatWei(amount)))
	}

	log.Info().
		Str("vault", updated.VaultAddress).
		Str("amount", model.FormatWei(amount)).
		Msg("vault withdrawal")

	return updated, nil
}

// Vendors lists the owner's vendor directory.
func (s *VaultService) Vendors(ctx context.Context, walletAddress string) ([]model.Vendor, error) {
	vendors, err := s.vendorRepo.FindByWallet(ctx, model.NormalizeAddress(walletAddress))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return vendors, nil
}

// UpsertVendor creates or updates a directory entry. Trust is set through
// SetTrustedVendor, not here; new entries start untrusted.
func (s *VaultService) UpsertVendor(ctx context.Context, walletAddress string, params model.UpsertVendorParams) (*model.Vendor, error) {
	if !model.ValidAddress(params.Address) {
		return nil, apperrors.InvalidInput("address", "not a hex address")
	}
	if params.Name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	params.WalletAddress = model.NormalizeAddress(walletAddress)
	params.Address = model.NormalizeAddress(params.Address)

	vendor, err := s.vendorRepo.Upsert(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return vendor, nil
}

func (s *VaultService) PendingRequests(ctx context.Context, vaultAddress string) ([]model.PaymentRequest, error) {
	requests, err := s.paymentRepo.FindPending(ctx, model.NormalizeAddress(vaultAddress))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return requests, nil
}

func (s *VaultService) History(ctx context.Context, vaultAddress string, limit, offset int) ([]model.PaymentRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	requests, err := s.paymentRepo.FindHistory(ctx, model.NormalizeAddress(vaultAddress), limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return requests, nil
}

func (s *VaultService) GetRequest(ctx context.Context, vaultAddress string, requestID int64) (*model.PaymentRequest, error) {
	request, err := s.paymentRepo.FindByID(ctx, model.NormalizeAddress(vaultAddress), requestID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if request == nil {
		return nil, apperrors.NotFound("payment request")
	}
	return request, nil
}

// asAppError passes typed errors through unchanged and wraps anything else
// as a database failure.
func asAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Database(err)
}

// mapLedgerError translates ledger boundary failures into the error
// taxonomy: balance shortfalls are terminal, everything else is retryable.
func mapLedgerError(operation string, err error) *apperrors.AppError {
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return apperrors.InsufficientFunds("ledger balance too low for " + operation)
	}
	return apperrors.Transient(operation, err)
}
