package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Pool lazily dials one RPC client per network and reuses it. Each network's
// primary RPC URL is tried first, then its fallbacks in order. Dials for
// different networks run in parallel; concurrent dials of the same network
// share one attempt.
type Pool struct {
	dir     *Directory
	log     zerolog.Logger
	dials   singleflight.Group
	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

// NewPool creates a client pool over dir
func NewPool(dir *Directory, log zerolog.Logger) *Pool {
	return &Pool{
		dir:     dir,
		log:     log,
		clients: make(map[string]*ethclient.Client),
	}
}

// Directory returns the directory the pool dials from
func (p *Pool) Directory() *Directory {
	return p.dir
}

// Client returns a connected client for the network with the given slug
func (p *Pool) Client(ctx context.Context, slug string) (*ethclient.Client, error) {
	n, ok := p.dir.Lookup(slug)
	if !ok {
		return nil, fmt.Errorf("unknown network %q", slug)
	}

	if c, ok := p.cached(n.Slug); ok {
		return c, nil
	}

	v, err, _ := p.dials.Do(n.Slug, func() (interface{}, error) {
		if c, ok := p.cached(n.Slug); ok {
			return c, nil
		}

		c, err := p.dial(ctx, n)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.clients[n.Slug] = c
		p.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ethclient.Client), nil
}

func (p *Pool) cached(slug string) (*ethclient.Client, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[slug]
	return c, ok
}

// dial connects to the first RPC URL whose chain id matches the descriptor
func (p *Pool) dial(ctx context.Context, n Descriptor) (*ethclient.Client, error) {
	urls := n.RPCURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("no RPC URL configured for network %s", n.Slug)
	}

	var errs []error
	for _, url := range urls {
		c, err := ethclient.DialContext(ctx, url)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}

		chainID, err := c.ChainID(ctx)
		if err != nil {
			c.Close()
			errs = append(errs, fmt.Errorf("%s: failed to get chain id: %w", url, err))
			continue
		}
		if chainID.Int64() != n.NetworkID {
			c.Close()
			errs = append(errs, fmt.Errorf("%s: chain id %s does not match network id %d", url, chainID, n.NetworkID))
			continue
		}

		if url != n.RPCURL {
			p.log.Warn().Str("network", n.Slug).Str("rpc", url).Msg("using fallback RPC endpoint")
		}
		return c, nil
	}

	return nil, fmt.Errorf("failed to connect to %s: %w", n.Name, errors.Join(errs...))
}

// Close closes every dialed client
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for slug, c := range p.clients {
		c.Close()
		delete(p.clients, slug)
	}
}
