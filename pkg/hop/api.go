package hop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jellydator/ttlcache/v3"
)

const (
	// DefaultAPIURL is the public Hop quote API
	DefaultAPIURL = "https://api.hop.exchange"

	quoteTTL        = 30 * time.Second
	quoteRetries    = 2
	maxResponseSize = 1 << 20
)

// FeeQuote is the bonder fee part of a Hop API quote
type FeeQuote struct {
	AmountIn          *big.Int
	BonderFee         *big.Int
	EstimatedReceived *big.Int
}

// APIClient asks the Hop API for bonder fees. Answers are cached briefly
// per token, route and amount.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *ttlcache.Cache[string, *FeeQuote]
	retryWait  time.Duration
}

// NewAPIClient creates a client for the Hop API at baseURL
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache: ttlcache.New[string, *FeeQuote](
			ttlcache.WithTTL[string, *FeeQuote](quoteTTL),
			ttlcache.WithDisableTouchOnHit[string, *FeeQuote](),
		),
		retryWait: 500 * time.Millisecond,
	}
}

type quoteResponse struct {
	AmountIn          string `json:"amountIn"`
	BonderFee         string `json:"bonderFee"`
	EstimatedRecieved string `json:"estimatedRecieved"`
}

// Quote returns the bonder fee for sending amount of token from one chain
// to another. Network failures and 5xx answers are retried.
func (c *APIClient) Quote(ctx context.Context, token, fromChain, toChain string, amount *big.Int, slippage float64) (*FeeQuote, error) {
	params := url.Values{}
	params.Add("amount", amount.String())
	params.Add("token", token)
	params.Add("fromChain", fromChain)
	params.Add("toChain", toChain)
	params.Add("slippage", fmt.Sprintf("%g", slippage))
	query := params.Encode()

	if item := c.cache.Get(query); item != nil {
		return item.Value(), nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	policy := backoff.WithContext(backoff.WithMaxRetries(b, quoteRetries), ctx)

	var q *FeeQuote
	err := backoff.Retry(func() error {
		var err error
		q, err = c.fetchQuote(ctx, query)
		return err
	}, policy)
	if err != nil {
		return nil, err
	}

	c.cache.Set(query, q, ttlcache.DefaultTTL)
	return q, nil
}

// fetchQuote makes one quote request. Errors that a retry cannot fix are
// wrapped as permanent.
func (c *APIClient) fetchQuote(ctx context.Context, query string) (*FeeQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/quote?"+query, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create quote request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("quote request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode < http.StatusInternalServerError {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var raw quoteResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to parse quote response: %w", err))
	}

	q := &FeeQuote{}
	for _, f := range []struct {
		name string
		in   string
		out  **big.Int
	}{
		{"amountIn", raw.AmountIn, &q.AmountIn},
		{"bonderFee", raw.BonderFee, &q.BonderFee},
		{"estimatedRecieved", raw.EstimatedRecieved, &q.EstimatedReceived},
	} {
		v, ok := new(big.Int).SetString(f.in, 10)
		if !ok {
			return nil, backoff.Permanent(fmt.Errorf("invalid %s in quote response: %q", f.name, f.in))
		}
		*f.out = v
	}

	return q, nil
}
