package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType tags a ledger entry with the business event that caused it.
type TransactionType string

const (
	TransactionTypeDebit            TransactionType = "debit"             // customer pays for goods
	TransactionTypeCreditForGoods   TransactionType = "credit_for_goods"  // owner is paid for fulfilled goods
	TransactionTypeDebitForDelivery TransactionType = "debit_for_delivery" // owner pays the delivery fee
	TransactionTypeDeliveryEarning  TransactionType = "delivery_earning"  // delivery agent receives the fee
	TransactionTypeDeposit          TransactionType = "deposit"           // user adds funds externally
	TransactionTypeWithdraw         TransactionType = "withdraw"          // user moves funds out
)

// IsDebit reports whether entries of this type reduce the wallet balance.
// The stored amount is always a positive magnitude; the sign lives in the type.
func (t TransactionType) IsDebit() bool {
	switch t {
	case TransactionTypeDebit, TransactionTypeDebitForDelivery, TransactionTypeWithdraw:
		return true
	}
	return false
}

// Valid reports whether t belongs to the closed type set.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDebit, TransactionTypeCreditForGoods, TransactionTypeDebitForDelivery,
		TransactionTypeDeliveryEarning, TransactionTypeDeposit, TransactionTypeWithdraw:
		return true
	}
	return false
}

// Transaction is one immutable ledger entry explaining a single balance
// change. Entries are never updated or deleted once written.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	WalletID  uuid.UUID       `json:"wallet_id"`
	Type      TransactionType `json:"txn_type"`
	Amount    decimal.Decimal `json:"amount"` // positive magnitude
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

// SignedAmount returns the amount with the sign implied by the entry type.
// Summing signed amounts over a wallet's history must reproduce its balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type.IsDebit() {
		return t.Amount.Neg()
	}
	return t.Amount
}
