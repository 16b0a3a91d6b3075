package ports

import (
	"context"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside a transaction block and take the
// row-level lock that serializes concurrent balance adjustments.
type WalletRepository interface {
	// GetOrCreate returns the user's wallet, creating a zero-balance one if
	// absent. Safe under concurrent first access: the insert is an atomic
	// upsert keyed on user_id, so concurrent callers converge on one row.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	// GetOrCreateForUpdate does the same inside tx and locks the row
	// (SELECT .. FOR UPDATE) until the transaction ends.
	GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	// UpdateBalance persists a new balance and touches updated_at. Must be
	// called with the row lock held, i.e. after GetOrCreateForUpdate.
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
}

// TransactionRepository defines persistence for the append-only transaction log.
type TransactionRepository interface {
	// Create appends one immutable record inside the enclosing transaction.
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	// ListByWallet returns records newest first with the total count.
	ListByWallet(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error)
	// SumSigned returns the signed sum of all records for a wallet
	// (credits positive, debits negative).
	SumSigned(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

// BalanceCache is a best-effort read cache for wallet balances. Failures are
// logged and ignored; the database stays the source of truth.
type BalanceCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*decimal.Decimal, error) // nil, nil on miss
	Set(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
