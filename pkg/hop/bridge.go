package hop

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"hop-convert/config"
	"hop-convert/pkg/amount"
	"hop-convert/pkg/convert"
	"hop-convert/pkg/network"
	"hop-convert/pkg/types"
)

const bpsDenominator = 10000

// Caller is the read-only part of an RPC client
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dialer returns a Caller for the chain with the given slug
type Dialer func(ctx context.Context, chain string) (Caller, error)

// Bridge talks to the Hop contracts of one bridged token. Addresses come
// from configuration; reads go through the dialer.
type Bridge struct {
	symbol string
	cfg    config.BridgeConfig
	dir    *network.Directory
	dial   Dialer
	log    zerolog.Logger

	api      *APIClient
	slippage float64
}

var _ convert.Bridge = (*Bridge)(nil)

// New creates the bridge of token symbol
func New(symbol string, cfg config.BridgeConfig, dir *network.Directory, dial Dialer, log zerolog.Logger) (*Bridge, error) {
	symbol = strings.ToUpper(symbol)
	if cfg.Decimals <= 0 {
		return nil, fmt.Errorf("bridge %s: decimals must be set", symbol)
	}
	if _, ok := cfg.Chains[dir.L1().Slug]; !ok {
		return nil, fmt.Errorf("bridge %s: no %s contracts configured", symbol, dir.L1().Slug)
	}

	return &Bridge{
		symbol: symbol,
		cfg:    cfg,
		dir:    dir,
		dial:   dial,
		log:    log.With().Str("token", symbol).Logger(),
	}, nil
}

// UseAPI prices bonder fees with the Hop API, falling back to the
// configured fee when the API cannot answer. slippage is in percent.
func (b *Bridge) UseAPI(api *APIClient, slippage float64) {
	b.api = api
	b.slippage = slippage
}

func (b *Bridge) TokenSymbol() string {
	return b.symbol
}

// IsSupportedAsset reports whether the token has contracts on chain
func (b *Bridge) IsSupportedAsset(chain string) bool {
	_, ok := b.cfg.Chains[chain]
	return ok
}

// NonAmmAssets lists the token symbols that have no Saddle pool
func (b *Bridge) NonAmmAssets() []string {
	if b.cfg.NonAmm {
		return []string{b.symbol}
	}
	return nil
}

func (b *Bridge) IsDeprecated() bool {
	return b.cfg.Deprecated
}

// CanonicalToken returns the original token on chain. A layer-1 entry
// without a token address is the chain's native token.
func (b *Bridge) CanonicalToken(chain string) (types.Token, error) {
	addrs, net, err := b.chain(chain)
	if err != nil {
		return types.Token{}, err
	}

	token := types.Token{
		Symbol:      b.symbol,
		Name:        b.name(),
		Decimals:    b.cfg.Decimals,
		Chain:       net.Slug,
		IsCanonical: true,
	}
	if addrs.CanonicalToken == "" {
		if !net.IsLayer1 {
			return types.Token{}, fmt.Errorf("%s has no canonical token address on %s", b.symbol, chain)
		}
		token.IsNative = true
		return token, nil
	}

	token.Address, err = parseAddress(addrs.CanonicalToken, "canonical token", chain)
	if err != nil {
		return types.Token{}, err
	}
	return token, nil
}

// HopToken returns the h-token on a layer-2 chain
func (b *Bridge) HopToken(chain string) (types.Token, error) {
	addrs, net, err := b.chain(chain)
	if err != nil {
		return types.Token{}, err
	}
	if net.IsLayer1 {
		return types.Token{}, fmt.Errorf("%s has no h-token on layer-1", b.symbol)
	}

	address, err := parseAddress(addrs.HopBridgeToken, "h-token", chain)
	if err != nil {
		return types.Token{}, err
	}
	return types.Token{
		Symbol:   types.HopSymbol(b.symbol),
		Name:     "Hop " + b.name(),
		Decimals: b.cfg.Decimals,
		Chain:    net.Slug,
		Address:  address,
	}, nil
}

// L1Token returns the canonical token on layer-1
func (b *Bridge) L1Token() (types.Token, error) {
	return b.CanonicalToken(b.dir.L1().Slug)
}

func (b *Bridge) SaddleSwapAddress(chain string) (common.Address, error) {
	addrs, _, err := b.chain(chain)
	if err != nil {
		return common.Address{}, err
	}
	return parseAddress(addrs.SaddleSwap, "saddle swap", chain)
}

func (b *Bridge) L1BridgeAddress() (common.Address, error) {
	l1 := b.dir.L1().Slug
	addrs, _, err := b.chain(l1)
	if err != nil {
		return common.Address{}, err
	}
	return parseAddress(addrs.Bridge, "bridge", l1)
}

func (b *Bridge) L2BridgeAddress(chain string) (common.Address, error) {
	addrs, net, err := b.chain(chain)
	if err != nil {
		return common.Address{}, err
	}
	if net.IsLayer1 {
		return common.Address{}, fmt.Errorf("%s is not a layer-2 network", chain)
	}
	return parseAddress(addrs.Bridge, "bridge", chain)
}

// IsDestinationChainPaused asks the layer-1 bridge whether transfers to
// chain are paused
func (b *Bridge) IsDestinationChainPaused(ctx context.Context, chain string) (bool, error) {
	dest, ok := b.dir.Lookup(chain)
	if !ok {
		return false, fmt.Errorf("unknown network %q", chain)
	}
	bridge, err := b.L1BridgeAddress()
	if err != nil {
		return false, err
	}

	out, err := b.call(ctx, b.dir.L1().Slug, bridge, l1Bridge, "isChainIdPaused", big.NewInt(dest.NetworkID))
	if err != nil {
		return false, err
	}
	paused, ok := out[0].(bool)
	if !ok {
		return false, errors.New("unexpected isChainIdPaused result")
	}
	return paused, nil
}

// AmmQuote prices a swap of amountIn through the Saddle pool on chain. The
// price impact compares the swap rate with the rate for one whole token.
func (b *Bridge) AmmQuote(ctx context.Context, chain string, toHToken bool, amountIn *big.Int) (*convert.AmmQuote, error) {
	pool, err := b.SaddleSwapAddress(chain)
	if err != nil {
		return nil, err
	}

	from, to := hTokenIndex, canonicalIndex
	if toHToken {
		from, to = canonicalIndex, hTokenIndex
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(b.cfg.Decimals)), nil)

	var amountOut, unitOut *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := b.calculateSwap(gctx, chain, pool, from, to, amountIn)
		amountOut = v
		return err
	})
	g.Go(func() error {
		v, err := b.calculateSwap(gctx, chain, pool, from, to, unit)
		unitOut = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	q := &convert.AmmQuote{AmountOut: amountOut, PriceImpact: decimal.NewFromInt(100)}
	if amountIn.Sign() > 0 {
		q.Rate = decimal.NewFromBigInt(amountOut, 0).Div(decimal.NewFromBigInt(amountIn, 0))
	}

	// a pool that cannot price one token reports 100%
	spot := decimal.NewFromBigInt(unitOut, 0).Div(decimal.NewFromBigInt(unit, 0))
	if spot.IsPositive() && amountIn.Sign() > 0 {
		q.PriceImpact = q.Rate.Sub(spot).Div(spot).Mul(decimal.NewFromInt(100))
	}

	b.log.Debug().
		Str("chain", chain).
		Str("amount_in", amountIn.String()).
		Str("amount_out", amountOut.String()).
		Str("price_impact", q.PriceImpact.StringFixed(4)).
		Msg("amm quote")

	return q, nil
}

// BonderFee returns the fee for withdrawing amountIn from chain to
// layer-1. Without an API answer it is bonder_fee_bps of amountIn, at
// least min_bonder_fee.
func (b *Bridge) BonderFee(ctx context.Context, chain string, amountIn *big.Int) (*big.Int, error) {
	if _, _, err := b.chain(chain); err != nil {
		return nil, err
	}

	if b.api != nil {
		q, err := b.api.Quote(ctx, b.symbol, chain, b.dir.L1().Slug, amountIn, b.slippage)
		if err == nil {
			return q.BonderFee, nil
		}
		b.log.Warn().Err(err).Str("chain", chain).Msg("hop api quote failed, using configured bonder fee")
	}

	fee := new(big.Int).Mul(amountIn, big.NewInt(b.cfg.BonderFeeBps))
	fee.Div(fee, big.NewInt(bpsDenominator))

	if b.cfg.MinBonderFee != "" {
		floor := amount.ParseToInteger(b.cfg.MinBonderFee, b.cfg.Decimals)
		if fee.Cmp(floor) < 0 {
			fee = floor
		}
	}
	return fee, nil
}

// AmmSwapCall builds the Saddle swap of amountIn on chain
func (b *Bridge) AmmSwapCall(chain string, toHToken bool, amountIn, minOut, deadline *big.Int) (types.Call, error) {
	pool, err := b.SaddleSwapAddress(chain)
	if err != nil {
		return types.Call{}, err
	}

	from, to := hTokenIndex, canonicalIndex
	if toHToken {
		from, to = canonicalIndex, hTokenIndex
	}

	data, err := saddleSwap.Pack("swap", from, to, amountIn, minOut, deadline)
	if err != nil {
		return types.Call{}, fmt.Errorf("failed to pack swap: %w", err)
	}
	return types.Call{To: pool, Data: data, Value: new(big.Int)}, nil
}

// SendToL2Call builds a layer-1 deposit that mints h-tokens for recipient
// on destChain. No swap happens on arrival, so there is no minimum or
// deadline.
func (b *Bridge) SendToL2Call(destChain string, recipient common.Address, amountIn *big.Int) (types.Call, error) {
	dest, ok := b.dir.Lookup(destChain)
	if !ok {
		return types.Call{}, fmt.Errorf("unknown network %q", destChain)
	}
	bridge, err := b.L1BridgeAddress()
	if err != nil {
		return types.Call{}, err
	}
	l1Token, err := b.L1Token()
	if err != nil {
		return types.Call{}, err
	}

	data, err := l1Bridge.Pack("sendToL2",
		big.NewInt(dest.NetworkID),
		recipient,
		amountIn,
		new(big.Int),
		new(big.Int),
		common.Address{},
		new(big.Int),
	)
	if err != nil {
		return types.Call{}, fmt.Errorf("failed to pack sendToL2: %w", err)
	}

	value := new(big.Int)
	if l1Token.IsNative {
		value.Set(amountIn)
	}
	return types.Call{To: bridge, Data: data, Value: value}, nil
}

// SendToL1Call builds a layer-2 withdrawal that burns h-tokens and pays out
// canonical tokens on layer-1, minus the bonder fee
func (b *Bridge) SendToL1Call(sourceChain string, recipient common.Address, amountIn, bonderFee *big.Int) (types.Call, error) {
	bridge, err := b.L2BridgeAddress(sourceChain)
	if err != nil {
		return types.Call{}, err
	}

	data, err := l2Bridge.Pack("send",
		big.NewInt(b.dir.L1().NetworkID),
		recipient,
		amountIn,
		bonderFee,
		new(big.Int),
		new(big.Int),
	)
	if err != nil {
		return types.Call{}, fmt.Errorf("failed to pack send: %w", err)
	}
	return types.Call{To: bridge, Data: data, Value: new(big.Int)}, nil
}

func (b *Bridge) calculateSwap(ctx context.Context, chain string, pool common.Address, from, to uint8, dx *big.Int) (*big.Int, error) {
	out, err := b.call(ctx, chain, pool, saddleSwap, "calculateSwap", from, to, dx)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected calculateSwap result")
	}
	return v, nil
}

// call runs a read-only contract method and unpacks its outputs
func (b *Bridge) call(ctx context.Context, chain string, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	client, err := b.dial(ctx, chain)
	if err != nil {
		return nil, err
	}

	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, chain, err)
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned nothing", method)
	}
	return out, nil
}

func (b *Bridge) chain(slug string) (config.ChainAddresses, network.Descriptor, error) {
	net, ok := b.dir.Lookup(slug)
	if !ok {
		return config.ChainAddresses{}, network.Descriptor{}, fmt.Errorf("unknown network %q", slug)
	}
	addrs, ok := b.cfg.Chains[net.Slug]
	if !ok {
		return config.ChainAddresses{}, network.Descriptor{}, fmt.Errorf("%s is not supported on %s", b.symbol, slug)
	}
	return addrs, net, nil
}

func (b *Bridge) name() string {
	if b.cfg.Name != "" {
		return b.cfg.Name
	}
	return b.symbol
}

func parseAddress(s, what, chain string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address %q on %s", what, s, chain)
	}
	return common.HexToAddress(s), nil
}
