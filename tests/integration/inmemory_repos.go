package integration

import (
	"context"
	"sync"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// memLedger is an in-memory stand-in for the postgres schema. A unit of work
// holds the store mutex from Begin to Commit/Rollback, which gives the same
// serialization the row locks provide in production, and an undo log makes
// Rollback actually revert writes so abort paths can be asserted on.
type memLedger struct {
	mu            sync.Mutex
	walletsByUser map[uuid.UUID]*domain.Wallet
	walletsByID   map[uuid.UUID]*domain.Wallet
	txns          []domain.Transaction
}

func newMemLedger() *memLedger {
	return &memLedger{
		walletsByUser: make(map[uuid.UUID]*domain.Wallet),
		walletsByID:   make(map[uuid.UUID]*domain.Wallet),
	}
}

// getOrCreateLocked requires l.mu to be held. When mtx is non-nil the
// creation is registered for undo.
func (l *memLedger) getOrCreateLocked(userID uuid.UUID, mtx *memTx) *domain.Wallet {
	if w, ok := l.walletsByUser[userID]; ok {
		return w
	}
	w := domain.NewWallet(userID)
	l.walletsByUser[userID] = w
	l.walletsByID[w.ID] = w
	if mtx != nil {
		mtx.undo = append(mtx.undo, func() {
			delete(l.walletsByUser, userID)
			delete(l.walletsByID, w.ID)
		})
	}
	return w
}

// --- Transactor ---

type memTransactor struct {
	ledger *memLedger
}

func newMemTransactor(ledger *memLedger) *memTransactor {
	return &memTransactor{ledger: ledger}
}

func (t *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.ledger.mu.Lock()
	return &memTx{ledger: t.ledger}, nil
}

// memTx is the pgx.Tx handed to repositories inside a unit of work. Commit
// drops the undo log; Rollback replays it in reverse.
type memTx struct {
	ledger *memLedger
	undo   []func()
	done   bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.ledger.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.ledger.mu.Unlock()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- Wallet Repo ---

type memWalletRepo struct {
	ledger *memLedger
}

func newMemWalletRepo(ledger *memLedger) *memWalletRepo {
	return &memWalletRepo{ledger: ledger}
}

func (r *memWalletRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	w := r.ledger.getOrCreateLocked(userID, nil)
	clone := *w
	return &clone, nil
}

func (r *memWalletRepo) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	mtx := tx.(*memTx)
	return r.ledger.getOrCreateLocked(userID, mtx), nil
}

func (r *memWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	mtx := tx.(*memTx)
	w := r.ledger.walletsByID[walletID]
	old := w.Balance
	mtx.undo = append(mtx.undo, func() { w.Balance = old })
	w.Balance = balance
	return nil
}

// --- Transaction Repo ---

type memTransactionRepo struct {
	ledger *memLedger
}

func newMemTransactionRepo(ledger *memLedger) *memTransactionRepo {
	return &memTransactionRepo{ledger: ledger}
}

func (r *memTransactionRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	mtx := tx.(*memTx)
	r.ledger.txns = append(r.ledger.txns, *txn)
	mtx.undo = append(mtx.undo, func() {
		r.ledger.txns = r.ledger.txns[:len(r.ledger.txns)-1]
	})
	return nil
}

func (r *memTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	// Insertion order is creation order; walk backwards for newest-first.
	var matched []domain.Transaction
	for i := len(r.ledger.txns) - 1; i >= 0; i-- {
		if r.ledger.txns[i].WalletID == walletID {
			matched = append(matched, r.ledger.txns[i])
		}
	}
	total := int64(len(matched))

	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []domain.Transaction{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *memTransactionRepo) SumSigned(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	sum := decimal.Zero
	for _, txn := range r.ledger.txns {
		if txn.WalletID == walletID {
			sum = sum.Add(txn.SignedAmount())
		}
	}
	return sum, nil
}
