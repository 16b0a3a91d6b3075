package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, user_id, balance, created_at, updated_at`

// GetOrCreate returns the user's wallet, creating it with zero balance if
// absent. The insert is an atomic upsert keyed on user_id: concurrent first
// accesses converge on a single row instead of racing to insert duplicates.
func (r *WalletRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	insert := `INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, insert, uuid.New(), userID); err != nil {
		return nil, fmt.Errorf("upsert wallet: %w", err)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get wallet by user id: %w", err)
	}
	if w == nil {
		// Upsert plus select cannot both miss unless the row was deleted
		// between the statements, which the lifecycle rules forbid.
		return nil, fmt.Errorf("wallet missing after upsert for user %s", userID)
	}
	return w, nil
}

// GetOrCreateForUpdate is the locked variant used inside orchestrated
// operations. It MUST be called within a transaction: the returned row stays
// locked (SELECT .. FOR UPDATE) until the transaction commits or rolls back,
// serializing concurrent adjustments to the same wallet.
func (r *WalletRepo) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	insert := `INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := tx.Exec(ctx, insert, uuid.New(), userID); err != nil {
		return nil, fmt.Errorf("upsert wallet: %w", err)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	w, err := scanWallet(tx.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("lock wallet by user id: %w", err)
	}
	if w == nil {
		return nil, fmt.Errorf("wallet missing after upsert for user %s", userID)
	}
	return w, nil
}

// UpdateBalance persists a new balance and touches updated_at. Callers must
// hold the row lock taken by GetOrCreateForUpdate in the same transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
