package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.LedgerService. Every mutating operation
// runs inside a single database transaction: wallet rows are locked with
// SELECT .. FOR UPDATE, the balance change and its audit record are written
// together, and the deferred rollback guarantees nothing partial survives an
// error anywhere along the way.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txnRepo    ports.TransactionRepository
	cache      ports.BalanceCache
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. cache may be nil to
// disable balance caching.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txnRepo ports.TransactionRepository,
	cache ports.BalanceCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		cache:      cache,
		transactor: transactor,
		log:        log,
	}
}

// Deposit credits the user's wallet and records a deposit entry.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.AdjustmentRequest) (decimal.Decimal, error) {
	return s.singleWalletOp(ctx, req, domain.TransactionTypeDeposit, false)
}

// Withdraw debits the user's wallet, rejecting a negative post-state.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, req ports.AdjustmentRequest) (decimal.Decimal, error) {
	return s.singleWalletOp(ctx, req, domain.TransactionTypeWithdraw, true)
}

// DebitForOrder charges a customer for an order. The sufficiency check and
// the debit are one locked unit: no separate read-compare-write.
func (s *LedgerServiceImpl) DebitForOrder(ctx context.Context, req ports.AdjustmentRequest) (decimal.Decimal, error) {
	return s.singleWalletOp(ctx, req, domain.TransactionTypeDebit, true)
}

// CreditOwnerForOrder pays an owner for fulfilled goods. Credits cannot fail
// for insufficient funds.
func (s *LedgerServiceImpl) CreditOwnerForOrder(ctx context.Context, req ports.AdjustmentRequest) (decimal.Decimal, error) {
	return s.singleWalletOp(ctx, req, domain.TransactionTypeCreditForGoods, false)
}

// singleWalletOp is the shared one-wallet orchestration: lock, check, adjust,
// append, commit.
func (s *LedgerServiceImpl) singleWalletOp(
	ctx context.Context,
	req ports.AdjustmentRequest,
	txnType domain.TransactionType,
	isDebit bool,
) (decimal.Decimal, error) {
	if !req.Amount.IsPositive() {
		return decimal.Zero, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return decimal.Zero, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetOrCreateForUpdate(ctx, dbTx, req.UserID)
	if err != nil {
		return decimal.Zero, apperror.ErrStorageUnavailable(fmt.Errorf("lock wallet: %w", err))
	}

	delta := req.Amount
	if isDebit {
		delta = delta.Neg()
	}

	newBalance, err := s.adjust(ctx, dbTx, wallet, delta)
	if err != nil {
		return decimal.Zero, err
	}
	if _, err := s.appendRecord(ctx, dbTx, wallet.ID, txnType, req.Amount, req.Reference); err != nil {
		return decimal.Zero, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return decimal.Zero, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.invalidateBalance(ctx, req.UserID)
	s.log.Info().
		Str("user_id", req.UserID.String()).
		Str("txn_type", string(txnType)).
		Str("amount", req.Amount.String()).
		Str("reference", req.Reference).
		Str("new_balance", newBalance.String()).
		Msg("ledger operation committed")

	return newBalance, nil
}

// TransferDeliveryFee debits the owner and credits the delivery agent inside
// one unit of work. Both wallets are locked in ascending user-ID order — not
// call order — so two concurrent transfers touching the same pair in opposite
// directions cannot deadlock.
func (s *LedgerServiceImpl) TransferDeliveryFee(ctx context.Context, req ports.FeeTransferRequest) (*ports.FeeTransferResult, error) {
	if !req.Fee.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.OwnerID == req.AgentID {
		return nil, apperror.Validation("owner and agent must be distinct users")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallets := make(map[uuid.UUID]*domain.Wallet, 2)
	for _, userID := range lockOrder(req.OwnerID, req.AgentID) {
		w, err := s.walletRepo.GetOrCreateForUpdate(ctx, dbTx, userID)
		if err != nil {
			return nil, apperror.ErrStorageUnavailable(fmt.Errorf("lock wallet: %w", err))
		}
		wallets[userID] = w
	}
	ownerWallet, agentWallet := wallets[req.OwnerID], wallets[req.AgentID]

	ownerBalance, err := s.adjust(ctx, dbTx, ownerWallet, req.Fee.Neg())
	if err != nil {
		return nil, err
	}
	if _, err := s.appendRecord(ctx, dbTx, ownerWallet.ID, domain.TransactionTypeDebitForDelivery, req.Fee, req.Reference); err != nil {
		return nil, err
	}

	agentBalance, err := s.adjust(ctx, dbTx, agentWallet, req.Fee)
	if err != nil {
		return nil, err
	}
	if _, err := s.appendRecord(ctx, dbTx, agentWallet.ID, domain.TransactionTypeDeliveryEarning, req.Fee, req.Reference); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.invalidateBalance(ctx, req.OwnerID)
	s.invalidateBalance(ctx, req.AgentID)
	s.log.Info().
		Str("owner_id", req.OwnerID.String()).
		Str("agent_id", req.AgentID.String()).
		Str("fee", req.Fee.String()).
		Str("reference", req.Reference).
		Msg("delivery fee transferred")

	return &ports.FeeTransferResult{
		OwnerBalance: ownerBalance,
		AgentBalance: agentBalance,
	}, nil
}

// GetBalance reads the current balance, consulting the cache best-effort.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("balance cache read failed, falling through to DB")
		}
		if cached != nil {
			return *cached, nil
		}
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, wallet.Balance); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("balance cache write failed")
		}
	}
	return wallet.Balance, nil
}

// ListTransactions returns the user's records newest first. Repeated calls
// with no intervening mutation return the same sequence.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}

	txns, total, err := s.txnRepo.ListByWallet(ctx, wallet.ID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// CheckConsistency verifies the wallet balance equals the signed sum of its
// transaction records. Wallets start at zero, so the two must always match.
func (s *LedgerServiceImpl) CheckConsistency(ctx context.Context, userID uuid.UUID) error {
	wallet, err := s.walletRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}

	sum, err := s.txnRepo.SumSigned(ctx, wallet.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("sum transactions: %w", err))
	}

	if !wallet.Balance.Equal(sum) {
		return apperror.ErrInvariantViolation(
			fmt.Errorf("wallet %s: balance %s != signed transaction sum %s", wallet.ID, wallet.Balance, sum))
	}
	return nil
}

// adjust is the balance-adjuster primitive: it applies a signed delta to a
// locked wallet and persists the result. A negative post-state aborts with
// InsufficientFunds before any write. It does not append the audit record —
// the calling operation pairs every adjustment with exactly one appendRecord
// in the same transaction.
func (s *LedgerServiceImpl) adjust(ctx context.Context, dbTx pgx.Tx, wallet *domain.Wallet, delta decimal.Decimal) (decimal.Decimal, error) {
	newBalance := wallet.Balance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, apperror.ErrInsufficientFunds()
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return decimal.Zero, apperror.ErrStorageUnavailable(fmt.Errorf("update balance: %w", err))
	}

	wallet.Balance = newBalance
	wallet.UpdatedAt = time.Now().UTC()
	return newBalance, nil
}

// appendRecord writes one immutable log entry. A non-positive magnitude or an
// unknown type means the caller paired the entry with its adjustment wrongly;
// that aborts the transaction rather than committing a lying audit trail.
func (s *LedgerServiceImpl) appendRecord(
	ctx context.Context,
	dbTx pgx.Tx,
	walletID uuid.UUID,
	txnType domain.TransactionType,
	amount decimal.Decimal,
	reference string,
) (*domain.Transaction, error) {
	if !txnType.Valid() {
		return nil, apperror.ErrInvariantViolation(fmt.Errorf("unknown transaction type %q", txnType))
	}
	if !amount.IsPositive() {
		return nil, apperror.ErrInvariantViolation(fmt.Errorf("non-positive record amount %s for type %s", amount, txnType))
	}

	txn := &domain.Transaction{
		ID:        uuid.New(),
		WalletID:  walletID,
		Type:      txnType,
		Amount:    amount,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.txnRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("append transaction record: %w", err))
	}
	return txn, nil
}

// invalidateBalance drops the cached balance after a commit, best-effort.
func (s *LedgerServiceImpl) invalidateBalance(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("balance cache invalidation failed")
	}
}

// lockOrder returns the two user IDs in their fixed global acquisition order
// (ascending byte order), independent of which side debits.
func lockOrder(a, b uuid.UUID) [2]uuid.UUID {
	if bytes.Compare(a[:], b[:]) > 0 {
		return [2]uuid.UUID{b, a}
	}
	return [2]uuid.UUID{a, b}
}
