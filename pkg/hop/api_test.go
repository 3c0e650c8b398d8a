package hop

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1000000", q.Get("amount"))
		assert.Equal(t, "USDC", q.Get("token"))
		assert.Equal(t, "optimism", q.Get("fromChain"))
		assert.Equal(t, "ethereum", q.Get("toChain"))
		assert.Equal(t, "0.5", q.Get("slippage"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amountIn":"1000000","bonderFee":"123456","estimatedRecieved":"876544"}`))
	}))
	defer srv.Close()

	q, err := NewAPIClient(srv.URL+"/").Quote(context.Background(), "USDC", "optimism", "ethereum", big.NewInt(1_000_000), 0.5)
	require.NoError(t, err)
	assert.Equal(t, "1000000", q.AmountIn.String())
	assert.Equal(t, "123456", q.BonderFee.String())
	assert.Equal(t, "876544", q.EstimatedReceived.String())
}

func TestAPIQuoteCachesAnswers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"amountIn":"5","bonderFee":"1","estimatedRecieved":"4"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.Quote(ctx, "USDC", "optimism", "ethereum", big.NewInt(5), 0.5)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())

	_, err := c.Quote(ctx, "USDC", "optimism", "ethereum", big.NewInt(6), 0.5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "another amount is another quote")
}

func TestAPIQuoteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"amountIn":"5","bonderFee":"1","estimatedRecieved":"4"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	c.retryWait = time.Millisecond

	q, err := c.Quote(context.Background(), "USDC", "optimism", "ethereum", big.NewInt(5), 0.5)
	require.NoError(t, err)
	assert.Equal(t, "1", q.BonderFee.String())
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIQuoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"bad status", http.StatusBadRequest, `{"error":"unsupported token"}`, "status 400"},
		{"bad json", http.StatusOK, `not json`, "failed to parse"},
		{"bad number", http.StatusOK, `{"amountIn":"1","bonderFee":"x","estimatedRecieved":"1"}`, "invalid bonderFee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewAPIClient(srv.URL).Quote(context.Background(), "USDC", "optimism", "ethereum", big.NewInt(1), 0.5)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, int32(1), calls.Load(), "not retried")
		})
	}
}

func TestBonderFeeFromAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"amountIn":"1000000000","bonderFee":"777","estimatedRecieved":"999999223"}`))
	}))
	defer srv.Close()

	b := newTestBridge(t, usdcConfig(), &fakeCaller{})
	b.UseAPI(NewAPIClient(srv.URL), 0.5)

	fee, err := b.BonderFee(context.Background(), "optimism", big.NewInt(1_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, "777", fee.String())
}

func TestBonderFeeFallsBackWhenAPIFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL)
	api.retryWait = time.Millisecond
	b := newTestBridge(t, usdcConfig(), &fakeCaller{})
	b.UseAPI(api, 0.5)

	fee, err := b.BonderFee(context.Background(), "optimism", big.NewInt(1_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, "2000000", fee.String())
}
