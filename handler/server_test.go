package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lending/core"
	"lending/handler/auth"
	"lending/internal/testenv"
	"lending/service/quote"
	"lending/store/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	env    *testenv.Env
	queue  core.DepositQueue
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	env := testenv.New(t)
	q := queue.NewMemory(16, 10*time.Millisecond)
	prices := testenv.Prices{"USDT": testenv.D("1"), "ETH": testenv.D("2500")}

	s := Server{
		Version:      "test",
		Clock:        env.Clock,
		Users:        env.DB.Users(),
		Assets:       env.DB.Assets(),
		Balances:     env.DB.Balances(),
		Loans:        env.DB.Loans(),
		Transactions: env.DB.Transactions(),
		Queue:        q,
		QuoteService: quote.New(env.Config, env.DB.Assets(), env.DB.Quotes(), prices),
		LoanService:  env.Loans,
	}

	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)

	return &fixture{env: env, queue: q, server: server}
}

type response struct {
	Status  int
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Deficit string          `json:"deficit"`
	Data    json.RawMessage `json:"data"`
}

func (f *fixture) do(t *testing.T, method, path, user, body string) *response {
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.Nil(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(auth.HeaderUserID, user)
	}

	resp, err := http.DefaultClient.Do(req)
	require.Nil(t, err)
	defer resp.Body.Close()

	var out response
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&out))
	out.Status = resp.StatusCode
	return &out
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/hc", "", "")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), `"version":"test"`)
}

func TestDepositWebhook(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/webhooks/deposits", "", `{
		"address": "0xabc",
		"amount": "1.5",
		"txId": "0x01",
		"chain": "ethereum",
		"subscriptionType": "native",
		"blockNumber": "123"
	}`)
	assert.Equal(t, http.StatusAccepted, resp.Status)

	event, err := f.queue.Pop(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "1.5", event.Amount.String())
	assert.Equal(t, int64(123), event.BlockNumber)
	assert.Equal(t, f.env.Clock.Now(), event.ReceivedAt)

	for _, body := range []string{
		`{"amount": "1", "txId": "0x02", "chain": "ethereum", "subscriptionType": "native", "blockNumber": 1}`,
		`{"address": "0xabc", "amount": "1", "txId": "0x02", "chain": "ethereum", "subscriptionType": "native"}`,
		`{"address": "0xabc", "amount": "-1", "txId": "0x02", "chain": "ethereum", "subscriptionType": "native", "blockNumber": 1}`,
		`{"address": "0xabc", "amount": "1", "txId": "0x02", "chain": "ethereum", "subscriptionType": "token", "blockNumber": 1}`,
		`{"address": "0xabc", "amount": "1", "txId": "0x02", "chain": "ethereum", "subscriptionType": "nft", "blockNumber": 1}`,
	} {
		resp := f.do(t, http.MethodPost, "/webhooks/deposits", "", body)
		assert.Equal(t, http.StatusBadRequest, resp.Status, body)
	}

	_, err = f.queue.Pop(context.Background())
	assert.Equal(t, core.ErrQueueEmpty, err)
}

func TestLoanFlow(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/quotes", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = f.do(t, http.MethodPost, "/api/quotes", "u1", `{
		"borrow_symbol": "USDT",
		"borrow_network": "ethereum",
		"borrow_amount": "100",
		"collateral_symbol": "ETH"
	}`)
	require.Equal(t, http.StatusCreated, resp.Status, resp.Msg)

	var q core.Quote
	require.Nil(t, json.Unmarshal(resp.Data, &q))
	assert.Equal(t, "0.08", q.CollateralAmount.String())

	resp = f.do(t, http.MethodPost, "/api/loans", "u1", `{"quote_id": "`+q.TraceID+`"}`)
	require.Equal(t, http.StatusCreated, resp.Status, resp.Msg)

	var loan core.Loan
	require.Nil(t, json.Unmarshal(resp.Data, &loan))
	assert.NotEmpty(t, loan.ReceivingAddress)
	assert.NotNil(t, loan.ExpiresAt)

	resp = f.do(t, http.MethodGet, "/api/loans/"+loan.TraceID, "u2", "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, int(core.ErrLoanNotFound), resp.Code)

	resp = f.do(t, http.MethodPost, "/api/loans/"+loan.TraceID+"/collateral", "u1", `{"amount": "0.08"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, int(core.ErrInsufficientBalance), resp.Code)
	assert.Equal(t, "0.08", resp.Deficit)

	require.Nil(t, f.env.DB.Balances().Credit(context.Background(), "u1", "ETH", testenv.D("0.08")))
	resp = f.do(t, http.MethodPost, "/api/loans/"+loan.TraceID+"/collateral", "u1", `{"amount": "0.08"}`)
	require.Equal(t, http.StatusOK, resp.Status, resp.Msg)
	require.Nil(t, json.Unmarshal(resp.Data, &loan))
	assert.Equal(t, core.LoanStatusActive, loan.Status)

	resp = f.do(t, http.MethodPost, "/api/loans/"+loan.TraceID+"/cancel", "u1", "")
	assert.Equal(t, http.StatusConflict, resp.Status)

	resp = f.do(t, http.MethodPost, "/api/loans/"+loan.TraceID+"/repay", "u1", `{"amount": "99"}`)
	require.Equal(t, http.StatusOK, resp.Status, resp.Msg)
	require.Nil(t, json.Unmarshal(resp.Data, &loan))
	assert.Equal(t, "1", loan.Principal.String())

	resp = f.do(t, http.MethodGet, "/api/loans/"+loan.TraceID+"/transactions", "u1", "")
	var txs []*core.Transaction
	require.Nil(t, json.Unmarshal(resp.Data, &txs))
	assert.Len(t, txs, 3)
}
