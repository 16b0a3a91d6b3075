package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerHandler handles business-event endpoints that move money between
// wallets named explicitly in the request body: order debits, owner credits
// and delivery-fee transfers.
type LedgerHandler struct {
	ledgerSvc  ports.LedgerService
	defaultFee decimal.Decimal
}

// NewLedgerHandler creates a new LedgerHandler. defaultFee is applied to
// delivery-fee transfers whose body omits the fee.
func NewLedgerHandler(ledgerSvc ports.LedgerService, defaultFee decimal.Decimal) *LedgerHandler {
	return &LedgerHandler{
		ledgerSvc:  ledgerSvc,
		defaultFee: defaultFee,
	}
}

// OrderDebit handles POST /api/v1/ledger/order-debit.
func (h *LedgerHandler) OrderDebit(c *gin.Context) {
	var req dto.OrderDebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		response.Error(c, apperror.Validation("customer_id must be a valid UUID"))
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	balance, err := h.ledgerSvc.DebitForOrder(c.Request.Context(), ports.AdjustmentRequest{
		UserID:    customerID,
		Amount:    amount,
		Reference: req.OrderReference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		UserID:  customerID.String(),
		Balance: balance.StringFixed(2),
	})
}

// OwnerCredit handles POST /api/v1/ledger/owner-credit.
func (h *LedgerHandler) OwnerCredit(c *gin.Context) {
	var req dto.OwnerCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("owner_id must be a valid UUID"))
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	balance, err := h.ledgerSvc.CreditOwnerForOrder(c.Request.Context(), ports.AdjustmentRequest{
		UserID:    ownerID,
		Amount:    amount,
		Reference: req.OrderReference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		UserID:  ownerID.String(),
		Balance: balance.StringFixed(2),
	})
}

// DeliveryFee handles POST /api/v1/ledger/delivery-fee.
func (h *LedgerHandler) DeliveryFee(c *gin.Context) {
	var req dto.DeliveryFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("owner_id must be a valid UUID"))
		return
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		response.Error(c, apperror.Validation("agent_id must be a valid UUID"))
		return
	}

	fee := h.defaultFee
	if req.Fee != "" {
		var ok bool
		fee, ok = parseAmount(c, req.Fee)
		if !ok {
			return
		}
	}

	result, err := h.ledgerSvc.TransferDeliveryFee(c.Request.Context(), ports.FeeTransferRequest{
		OwnerID:   ownerID,
		AgentID:   agentID,
		Fee:       fee,
		Reference: req.DeliveryReference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FeeTransferResponse{
		OwnerBalance: result.OwnerBalance.StringFixed(2),
		AgentBalance: result.AgentBalance.StringFixed(2),
		Fee:          fee.StringFixed(2),
	})
}
