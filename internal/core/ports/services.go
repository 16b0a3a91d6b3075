package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerService is the single entry point for fund movements. Every operation
// is atomic: all balance adjustments and log appends commit together or not
// at all. Callers never touch wallet rows or the transaction log directly.
type LedgerService interface {
	// Deposit credits the user's wallet. Never fails for insufficient funds.
	Deposit(ctx context.Context, req AdjustmentRequest) (decimal.Decimal, error)
	// Withdraw debits the user's wallet; rejects a negative post-state.
	Withdraw(ctx context.Context, req AdjustmentRequest) (decimal.Decimal, error)
	// DebitForOrder charges a customer for an order; rejects a negative post-state.
	DebitForOrder(ctx context.Context, req AdjustmentRequest) (decimal.Decimal, error)
	// CreditOwnerForOrder pays an owner for fulfilled goods.
	CreditOwnerForOrder(ctx context.Context, req AdjustmentRequest) (decimal.Decimal, error)
	// TransferDeliveryFee debits the owner and credits the delivery agent in
	// one unit of work; both sides commit together or neither does.
	TransferDeliveryFee(ctx context.Context, req FeeTransferRequest) (*FeeTransferResult, error)

	// GetBalance reads the current balance (wallet created lazily).
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	// ListTransactions returns the user's records newest first with a total count.
	ListTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error)
	// CheckConsistency verifies the balance equals the signed sum of the
	// wallet's records, returning an invariant-violation error on mismatch.
	CheckConsistency(ctx context.Context, userID uuid.UUID) error
}

// AdjustmentRequest holds validated input for a single-wallet operation.
type AdjustmentRequest struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Reference string
}

// FeeTransferRequest holds validated input for the two-party delivery-fee split.
type FeeTransferRequest struct {
	OwnerID   uuid.UUID
	AgentID   uuid.UUID
	Fee       decimal.Decimal
	Reference string
}

// FeeTransferResult carries both post-transfer balances.
type FeeTransferResult struct {
	OwnerBalance decimal.Decimal
	AgentBalance decimal.Decimal
}

// TokenService handles JWT token operations for caller identity.
type TokenService interface {
	Generate(userID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
}
