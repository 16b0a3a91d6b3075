package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "wallet-ledger/internal/adapter/http/handler"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp wires the real HTTP layer, middleware, services and Redis balance
// cache (miniredis) against in-memory storage with a serializing transactor,
// so commit/rollback semantics can be asserted end-to-end.

type testApp struct {
	server    *httptest.Server
	redis     *miniredis.Miniredis
	tokenSvc  ports.TokenService
	ledgerSvc ports.LedgerService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	ledger := newMemLedger()
	walletRepo := newMemWalletRepo(ledger)
	txnRepo := newMemTransactionRepo(ledger)
	transactor := newMemTransactor(ledger)
	balanceCache := redisStorage.NewBalanceCache(rdb, time.Minute)

	log := logger.New("error", false)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")
	ledgerSvc := service.NewLedgerService(walletRepo, txnRepo, balanceCache, transactor, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:  ledgerSvc,
		TokenSvc:   tokenSvc,
		DefaultFee: decimal.RequireFromString("10.00"),
		HealthCheckers: []ports.HealthChecker{
			redisStorage.NewHealthCheck(rdb),
		},
		Logger: log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{
		server:    server,
		redis:     mr,
		tokenSvc:  tokenSvc,
		ledgerSvc: ledgerSvc,
	}
}

func (a *testApp) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, _, err := a.tokenSvc.Generate(userID)
	require.NoError(t, err)
	return token
}

// do sends an authenticated JSON request and decodes the response body.
func (a *testApp) do(t *testing.T, token, method, path string, body any) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func data(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "no data envelope in %v", resp)
	return d
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_Unauthorized(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/api/v1/wallet/balance")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_DepositThenOrderDebits(t *testing.T) {
	app := newTestApp(t)
	customerID := uuid.New()
	token := app.token(t, customerID)

	// Deposit 500 -> balance 500
	status, resp := app.do(t, token, http.MethodPost, "/api/v1/wallet/deposit", map[string]string{
		"amount":    "500.00",
		"reference": "DEPOSIT:initial",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "500.00", data(t, resp)["balance"])

	// Debit 300 for order 7 -> balance 200
	status, resp = app.do(t, token, http.MethodPost, "/api/v1/ledger/order-debit", map[string]string{
		"customer_id":     customerID.String(),
		"amount":          "300.00",
		"order_reference": "ORDER:7",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200.00", data(t, resp)["balance"])

	// Debit 250 for order 8 -> rejected, balance stays 200
	status, resp = app.do(t, token, http.MethodPost, "/api/v1/ledger/order-debit", map[string]string{
		"customer_id":     customerID.String(),
		"amount":          "250.00",
		"order_reference": "ORDER:8",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "LED_001", resp["error_code"])

	status, resp = app.do(t, token, http.MethodGet, "/api/v1/wallet/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200.00", data(t, resp)["balance"])

	// History: exactly two records, newest first, rejected debit absent
	status, resp = app.do(t, token, http.MethodGet, "/api/v1/wallet/transactions", nil)
	require.Equal(t, http.StatusOK, status)
	d := data(t, resp)
	assert.Equal(t, float64(2), d["total"])

	items := d["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	second := items[1].(map[string]interface{})
	assert.Equal(t, "debit", first["type"])
	assert.Equal(t, "300.00", first["amount"])
	assert.Equal(t, "ORDER:7", first["reference"])
	assert.Equal(t, "deposit", second["type"])

	require.NoError(t, app.ledgerSvc.CheckConsistency(context.Background(), customerID))
}

func TestIntegration_WithdrawFlow(t *testing.T) {
	app := newTestApp(t)
	userID := uuid.New()
	token := app.token(t, userID)

	status, _ := app.do(t, token, http.MethodPost, "/api/v1/wallet/deposit", map[string]string{
		"amount": "80.00",
	})
	require.Equal(t, http.StatusOK, status)

	status, resp := app.do(t, token, http.MethodPost, "/api/v1/wallet/withdraw", map[string]string{
		"amount":    "30.00",
		"reference": "WITHDRAW:payout",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "50.00", data(t, resp)["balance"])

	// Withdrawing more than the remainder is rejected
	status, resp = app.do(t, token, http.MethodPost, "/api/v1/wallet/withdraw", map[string]string{
		"amount": "50.01",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "LED_001", resp["error_code"])
}

func TestIntegration_DeliveryFeeSplit(t *testing.T) {
	app := newTestApp(t)
	ownerID, agentID := uuid.New(), uuid.New()
	ownerToken := app.token(t, ownerID)
	agentToken := app.token(t, agentID)

	status, _ := app.do(t, ownerToken, http.MethodPost, "/api/v1/wallet/deposit", map[string]string{
		"amount": "100.00",
	})
	require.Equal(t, http.StatusOK, status)

	status, resp := app.do(t, ownerToken, http.MethodPost, "/api/v1/ledger/delivery-fee", map[string]string{
		"owner_id":           ownerID.String(),
		"agent_id":           agentID.String(),
		"fee":                "50.00",
		"delivery_reference": "DELIVERY:42",
	})
	require.Equal(t, http.StatusOK, status)
	d := data(t, resp)
	assert.Equal(t, "50.00", d["owner_balance"])
	assert.Equal(t, "50.00", d["agent_balance"])

	// The agent sees a delivery_earning record with the shared reference.
	status, resp = app.do(t, agentToken, http.MethodGet, "/api/v1/wallet/transactions", nil)
	require.Equal(t, http.StatusOK, status)
	items := data(t, resp)["items"].([]interface{})
	require.Len(t, items, 1)
	earning := items[0].(map[string]interface{})
	assert.Equal(t, "delivery_earning", earning["type"])
	assert.Equal(t, "DELIVERY:42", earning["reference"])

	require.NoError(t, app.ledgerSvc.CheckConsistency(context.Background(), ownerID))
	require.NoError(t, app.ledgerSvc.CheckConsistency(context.Background(), agentID))
}

func TestIntegration_DeliveryFeeDefaultApplies(t *testing.T) {
	app := newTestApp(t)
	ownerID, agentID := uuid.New(), uuid.New()
	token := app.token(t, ownerID)

	status, _ := app.do(t, token, http.MethodPost, "/api/v1/wallet/deposit", map[string]string{
		"amount": "25.00",
	})
	require.Equal(t, http.StatusOK, status)

	// No fee in the body -> configured default (10.00)
	status, resp := app.do(t, token, http.MethodPost, "/api/v1/ledger/delivery-fee", map[string]string{
		"owner_id":           ownerID.String(),
		"agent_id":           agentID.String(),
		"delivery_reference": "DELIVERY:100",
	})
	require.Equal(t, http.StatusOK, status)
	d := data(t, resp)
	assert.Equal(t, "10.00", d["fee"])
	assert.Equal(t, "15.00", d["owner_balance"])
	assert.Equal(t, "10.00", d["agent_balance"])
}

func TestIntegration_DeliveryFeeInsufficientLeavesBothUntouched(t *testing.T) {
	app := newTestApp(t)
	ownerID, agentID := uuid.New(), uuid.New()
	ownerToken := app.token(t, ownerID)
	agentToken := app.token(t, agentID)

	status, _ := app.do(t, ownerToken, http.MethodPost, "/api/v1/wallet/deposit", map[string]string{
		"amount": "30.00",
	})
	require.Equal(t, http.StatusOK, status)

	status, resp := app.do(t, ownerToken, http.MethodPost, "/api/v1/ledger/delivery-fee", map[string]string{
		"owner_id":           ownerID.String(),
		"agent_id":           agentID.String(),
		"fee":                "50.00",
		"delivery_reference": "DELIVERY:43",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "LED_001", resp["error_code"])

	status, resp = app.do(t, ownerToken, http.MethodGet, "/api/v1/wallet/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "30.00", data(t, resp)["balance"])

	status, resp = app.do(t, agentToken, http.MethodGet, "/api/v1/wallet/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0.00", data(t, resp)["balance"])

	// The aborted transfer left no records on either side.
	status, resp = app.do(t, agentToken, http.MethodGet, "/api/v1/wallet/transactions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), data(t, resp)["total"])
}

func TestIntegration_BalanceCacheInvalidatedAfterMutation(t *testing.T) {
	app := newTestApp(t)
	userID := uuid.New()
	token := app.token(t, userID)

	status, _ := app.do(t, token, http.MethodPost, "/api/v1/wallet/deposit", map[string]string{
		"amount": "10.00",
	})
	require.Equal(t, http.StatusOK, status)

	// First read fills the cache.
	status, resp := app.do(t, token, http.MethodGet, "/api/v1/wallet/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "10.00", data(t, resp)["balance"])

	status, _ = app.do(t, token, http.MethodPost, "/api/v1/wallet/deposit", map[string]string{
		"amount": "5.00",
	})
	require.Equal(t, http.StatusOK, status)

	// A stale cache entry would still say 10.00 here.
	status, resp = app.do(t, token, http.MethodGet, "/api/v1/wallet/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "15.00", data(t, resp)["balance"])
}

func TestIntegration_MalformedAmountRejected(t *testing.T) {
	app := newTestApp(t)
	token := app.token(t, uuid.New())

	for _, amount := range []string{"abc", "-5.00", "0"} {
		status, resp := app.do(t, token, http.MethodPost, "/api/v1/wallet/deposit", map[string]string{
			"amount": amount,
		})
		assert.Equal(t, http.StatusBadRequest, status, "amount %q", amount)
		assert.Equal(t, "LED_002", resp["error_code"])
	}
}
