package dto

// Monetary amounts travel as decimal strings ("100.00") so clients never
// round them through floats.

// DepositRequest is the request body for a wallet deposit.
type DepositRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Reference string `json:"reference" binding:"max=255"`
}

// WithdrawRequest is the request body for a wallet withdrawal.
type WithdrawRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Reference string `json:"reference" binding:"max=255"`
}

// OrderDebitRequest charges a customer wallet for an order.
type OrderDebitRequest struct {
	CustomerID     string `json:"customer_id" binding:"required,uuid"`
	Amount         string `json:"amount" binding:"required"`
	OrderReference string `json:"order_reference" binding:"required,max=255"`
}

// OwnerCreditRequest credits an owner wallet for fulfilled goods.
type OwnerCreditRequest struct {
	OwnerID        string `json:"owner_id" binding:"required,uuid"`
	Amount         string `json:"amount" binding:"required"`
	OrderReference string `json:"order_reference" binding:"required,max=255"`
}

// DeliveryFeeRequest moves the delivery fee from an owner to a delivery
// agent. Fee is optional; when empty the configured default fee applies.
type DeliveryFeeRequest struct {
	OwnerID           string `json:"owner_id" binding:"required,uuid"`
	AgentID           string `json:"agent_id" binding:"required,uuid"`
	Fee               string `json:"fee,omitempty"`
	DeliveryReference string `json:"delivery_reference" binding:"required,max=255"`
}

// BalanceResponse is the response for a balance query or a single-wallet
// mutation.
type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance string `json:"balance"`
}

// FeeTransferResponse is the response for a completed delivery-fee transfer.
type FeeTransferResponse struct {
	OwnerBalance string `json:"owner_balance"`
	AgentBalance string `json:"agent_balance"`
	Fee          string `json:"fee"`
}

// TransactionResponse is one immutable ledger record.
type TransactionResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Amount    string `json:"amount"` // positive magnitude; sign is implied by type
	Reference string `json:"reference,omitempty"`
	CreatedAt string `json:"created_at"`
}

// TransactionListResponse wraps a paginated transaction history.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}
