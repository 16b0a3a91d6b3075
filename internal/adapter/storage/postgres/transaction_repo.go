package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository. The table is
// append-only: there are deliberately no update or delete methods.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends one immutable record within a database transaction. A failed
// append must abort the enclosing transaction: a balance change without its
// audit record may never commit.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO wallet_transactions (id, wallet_id, txn_type, amount, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.Type, t.Amount, t.Reference, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

// ListByWallet fetches a wallet's records newest first with pagination.
// The secondary id ordering keeps the sequence stable when timestamps collide.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM wallet_transactions WHERE wallet_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, walletID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallet transactions: %w", err)
	}

	offset := (page - 1) * pageSize
	dataQuery := `SELECT id, wallet_id, txn_type, amount, reference, created_at
		FROM wallet_transactions WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, dataQuery, walletID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Reference, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// SumSigned computes the signed sum of a wallet's records: credits count
// positive, debits negative. For a consistent ledger this equals the wallet's
// balance, since every wallet starts at zero.
func (r *TransactionRepo) SumSigned(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(
			CASE WHEN txn_type IN ('debit', 'debit_for_delivery', 'withdraw')
				THEN -amount ELSE amount END
		), 0)
		FROM wallet_transactions WHERE wallet_id = $1`

	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum wallet transactions: %w", err)
	}
	return sum, nil
}
