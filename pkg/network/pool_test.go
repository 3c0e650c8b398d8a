package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers eth_chainId with chainID after running before
func rpcServer(t *testing.T, chainID string, calls *atomic.Int32, before func()) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if calls != nil {
			calls.Add(1)
		}
		if before != nil {
			before()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  chainID,
		})
	}))
}

func testPool(t *testing.T, l1, l2 Descriptor) *Pool {
	t.Helper()
	dir, err := NewDirectory([]Descriptor{l1, l2})
	require.NoError(t, err)
	p := NewPool(dir, zerolog.Nop())
	t.Cleanup(p.Close)
	return p
}

func TestPoolSlowNetworkDoesNotBlockOthers(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	slow := rpcServer(t, "0x1", nil, func() {
		entered <- struct{}{}
		<-release
	})
	fast := rpcServer(t, "0xa", nil, nil)
	defer fast.Close()
	defer slow.Close()
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	defer unblock()

	p := testPool(t,
		Descriptor{Slug: "ethereum", NetworkID: 1, IsLayer1: true, RPCURL: slow.URL},
		Descriptor{Slug: "optimism", NetworkID: 10, RPCURL: fast.URL},
	)

	slowDone := make(chan error, 1)
	go func() {
		_, err := p.Client(context.Background(), "ethereum")
		slowDone <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := p.Client(ctx, "optimism")
	require.NoError(t, err)
	assert.NotNil(t, c)

	unblock()
	require.NoError(t, <-slowDone)
}

func TestPoolDialsOncePerNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := rpcServer(t, "0xa", &calls, func() { time.Sleep(50 * time.Millisecond) })
	defer srv.Close()

	p := testPool(t,
		Descriptor{Slug: "ethereum", NetworkID: 1, IsLayer1: true, RPCURL: srv.URL},
		Descriptor{Slug: "optimism", NetworkID: 10, RPCURL: srv.URL},
	)

	var wg sync.WaitGroup
	clients := make([]*ethclient.Client, 5)
	errs := make([]error, 5)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i], errs[i] = p.Client(context.Background(), "optimism")
		}(i)
	}
	wg.Wait()

	for i := range clients {
		require.NoError(t, errs[i])
		assert.Same(t, clients[0], clients[i])
	}
	assert.Equal(t, int32(1), calls.Load())

	again, err := p.Client(context.Background(), "Optimism")
	require.NoError(t, err)
	assert.Same(t, clients[0], again)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPoolFallsBackOnChainIDMismatch(t *testing.T) {
	wrong := rpcServer(t, "0x89", nil, nil)
	right := rpcServer(t, "0xa", nil, nil)
	defer wrong.Close()
	defer right.Close()

	p := testPool(t,
		Descriptor{Slug: "ethereum", NetworkID: 1, IsLayer1: true, RPCURL: wrong.URL},
		Descriptor{Slug: "optimism", NetworkID: 10, RPCURL: wrong.URL, FallbackRPCURLs: []string{right.URL}},
	)

	_, err := p.Client(context.Background(), "optimism")
	require.NoError(t, err)

	_, err = p.Client(context.Background(), "ethereum")
	assert.ErrorContains(t, err, "does not match network id 1")

	_, err = p.Client(context.Background(), "arbitrum")
	assert.ErrorContains(t, err, "unknown network")
}
