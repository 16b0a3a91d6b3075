package handler

import (
	"strconv"
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletHandler handles the caller's own wallet: deposits, withdrawals,
// balance and history.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc}
}

// Deposit handles POST /api/v1/wallet/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	balance, err := h.ledgerSvc.Deposit(c.Request.Context(), ports.AdjustmentRequest{
		UserID:    userID,
		Amount:    amount,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		UserID:  userID.String(),
		Balance: balance.StringFixed(2),
	})
}

// Withdraw handles POST /api/v1/wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	balance, err := h.ledgerSvc.Withdraw(c.Request.Context(), ports.AdjustmentRequest{
		UserID:    userID,
		Amount:    amount,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		UserID:  userID.String(),
		Balance: balance.StringFixed(2),
	})
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	balance, err := h.ledgerSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		UserID:  userID.String(),
		Balance: balance.StringFixed(2),
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	txns, total, err := h.ledgerSvc.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	items := make([]dto.TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		items = append(items, toTransactionResponse(txn))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// callerID extracts the authenticated user ID set by the JWT middleware.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	userID, ok := v.(uuid.UUID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return userID, true
}

// parseAmount converts a decimal string from a request body, rejecting
// anything that does not parse. Sign and scale checks belong to the service.
func parseAmount(c *gin.Context, s string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return decimal.Zero, false
	}
	return amount, true
}

func toTransactionResponse(txn domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:        txn.ID.String(),
		Type:      string(txn.Type),
		Amount:    txn.Amount.StringFixed(2),
		Reference: txn.Reference,
		CreatedAt: txn.CreatedAt.UTC().Format(time.RFC3339),
	}
}
