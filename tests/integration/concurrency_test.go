package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLedgerService wires the service against in-memory storage without a
// balance cache, so reads observe committed state directly.
func newTestLedgerService() (ports.LedgerService, *memLedger) {
	ledger := newMemLedger()
	svc := service.NewLedgerService(
		newMemWalletRepo(ledger),
		newMemTransactionRepo(ledger),
		nil,
		newMemTransactor(ledger),
		logger.New("error", false),
	)
	return svc, ledger
}

func TestConcurrency_ParallelDepositsSumExactly(t *testing.T) {
	svc, _ := newTestLedgerService()
	ctx := context.Background()
	userID := uuid.New()

	const workers = 50
	amount := decimal.RequireFromString("10.00")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Deposit(ctx, ports.AdjustmentRequest{
				UserID:    userID,
				Amount:    amount,
				Reference: "DEPOSIT:load",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("500.00")),
		"got %s, no deposit may be lost or double-applied", balance)

	_, total, err := svc.ListTransactions(ctx, userID, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), total)

	require.NoError(t, svc.CheckConsistency(ctx, userID))
}

func TestConcurrency_OverspendAdmitsExactQuota(t *testing.T) {
	svc, _ := newTestLedgerService()
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Deposit(ctx, ports.AdjustmentRequest{
		UserID: userID,
		Amount: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	// 20 racers each try to spend 30 out of 100: exactly 3 can win.
	const workers = 20
	price := decimal.RequireFromString("30.00")

	var succeeded, rejected atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DebitForOrder(ctx, ports.AdjustmentRequest{
				UserID:    userID,
				Amount:    price,
				Reference: "ORDER:race",
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			default:
				var appErr *apperror.AppError
				if errors.As(err, &appErr) && appErr.Code == "LED_001" {
					rejected.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), succeeded.Load())
	assert.Equal(t, int64(workers-3), rejected.Load())

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10.00")), "got %s", balance)

	require.NoError(t, svc.CheckConsistency(ctx, userID))
}

func TestConcurrency_OpposingTransfersConserveTotal(t *testing.T) {
	svc, _ := newTestLedgerService()
	ctx := context.Background()
	aliceID, bobID := uuid.New(), uuid.New()

	for _, userID := range []uuid.UUID{aliceID, bobID} {
		_, err := svc.Deposit(ctx, ports.AdjustmentRequest{
			UserID: userID,
			Amount: decimal.RequireFromString("100.00"),
		})
		require.NoError(t, err)
	}

	// Transfers in both directions at once; the fixed lock order prevents
	// deadlock and every committed transfer moves exactly the fee.
	const perDirection = 10
	fee := decimal.RequireFromString("5.00")

	var wg sync.WaitGroup
	for i := 0; i < perDirection; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.TransferDeliveryFee(ctx, ports.FeeTransferRequest{
				OwnerID:   aliceID,
				AgentID:   bobID,
				Fee:       fee,
				Reference: "DELIVERY:ab",
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.TransferDeliveryFee(ctx, ports.FeeTransferRequest{
				OwnerID:   bobID,
				AgentID:   aliceID,
				Fee:       fee,
				Reference: "DELIVERY:ba",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	aliceBalance, err := svc.GetBalance(ctx, aliceID)
	require.NoError(t, err)
	bobBalance, err := svc.GetBalance(ctx, bobID)
	require.NoError(t, err)

	assert.True(t, aliceBalance.Add(bobBalance).Equal(decimal.RequireFromString("200.00")),
		"money must be conserved, got %s + %s", aliceBalance, bobBalance)
	assert.True(t, aliceBalance.Equal(decimal.RequireFromString("100.00")),
		"symmetric transfers should net to zero, got %s", aliceBalance)

	require.NoError(t, svc.CheckConsistency(ctx, aliceID))
	require.NoError(t, svc.CheckConsistency(ctx, bobID))
}

func TestConcurrency_ListTransactionsIdempotent(t *testing.T) {
	svc, _ := newTestLedgerService()
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := svc.Deposit(ctx, ports.AdjustmentRequest{
			UserID:    userID,
			Amount:    decimal.RequireFromString("1.00"),
			Reference: "DEPOSIT:seq",
		})
		require.NoError(t, err)
	}

	first, firstTotal, err := svc.ListTransactions(ctx, userID, 1, 10)
	require.NoError(t, err)
	second, secondTotal, err := svc.ListTransactions(ctx, userID, 1, 10)
	require.NoError(t, err)

	assert.Equal(t, firstTotal, secondTotal)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "record order must be stable")
	}
}
