package hop

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hop-convert/config"
	"hop-convert/pkg/network"
)

const (
	l1BridgeHex = "0x3666f603Cc164936C1b87e207F36BEBa4AC5f18a"
	l1USDCHex   = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	opUSDCHex   = "0x00000000000000000000000000000000000a0001"
	opHUSDCHex  = "0x00000000000000000000000000000000000a0002"
	opBridgeHex = "0x00000000000000000000000000000000000a0003"
	opSaddleHex = "0x00000000000000000000000000000000000a0004"
)

// fakeCaller answers contract reads by decoding the calldata against the
// real ABIs
type fakeCaller struct {
	mu     sync.Mutex
	swap   func(from, to uint8, dx *big.Int) *big.Int
	paused map[int64]bool
	calls  []common.Address
	err    error
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, *msg.To)

	if m, err := saddleSwap.MethodById(msg.Data[:4]); err == nil && m.Name == "calculateSwap" {
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(f.swap(args[0].(uint8), args[1].(uint8), args[2].(*big.Int)))
	}
	if m, err := l1Bridge.MethodById(msg.Data[:4]); err == nil && m.Name == "isChainIdPaused" {
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(f.paused[args[0].(*big.Int).Int64()])
	}
	return nil, errors.New("unexpected call")
}

func usdcConfig() config.BridgeConfig {
	return config.BridgeConfig{
		Name:         "USD Coin",
		Decimals:     6,
		BonderFeeBps: 20,
		MinBonderFee: "0.25",
		Chains: map[string]config.ChainAddresses{
			"ethereum": {CanonicalToken: l1USDCHex, Bridge: l1BridgeHex},
			"optimism": {CanonicalToken: opUSDCHex, HopBridgeToken: opHUSDCHex, Bridge: opBridgeHex, SaddleSwap: opSaddleHex},
		},
	}
}

func newTestBridge(t *testing.T, cfg config.BridgeConfig, caller *fakeCaller) *Bridge {
	t.Helper()

	dir, err := network.NewDirectory(network.DefaultNetworks())
	require.NoError(t, err)

	dial := func(context.Context, string) (Caller, error) { return caller, nil }
	b, err := New("usdc", cfg, dir, dial, zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestNewRequiresLayer1Contracts(t *testing.T) {
	dir, err := network.NewDirectory(network.DefaultNetworks())
	require.NoError(t, err)

	cfg := usdcConfig()
	delete(cfg.Chains, "ethereum")
	_, err = New("USDC", cfg, dir, nil, zerolog.Nop())
	assert.Error(t, err)

	cfg = usdcConfig()
	cfg.Decimals = 0
	_, err = New("USDC", cfg, dir, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestTokens(t *testing.T) {
	b := newTestBridge(t, usdcConfig(), &fakeCaller{})

	assert.Equal(t, "USDC", b.TokenSymbol())
	assert.True(t, b.IsSupportedAsset("optimism"))
	assert.False(t, b.IsSupportedAsset("gnosis"))
	assert.Empty(t, b.NonAmmAssets())

	tok, err := b.CanonicalToken("optimism")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(opUSDCHex), tok.Address)
	assert.True(t, tok.IsCanonical)
	assert.Equal(t, 6, tok.Decimals)

	tok, err = b.HopToken("optimism")
	require.NoError(t, err)
	assert.Equal(t, "hUSDC", tok.Symbol)
	assert.Equal(t, common.HexToAddress(opHUSDCHex), tok.Address)

	_, err = b.HopToken("ethereum")
	assert.Error(t, err)
	_, err = b.CanonicalToken("gnosis")
	assert.Error(t, err)

	tok, err = b.L1Token()
	require.NoError(t, err)
	assert.Equal(t, "ethereum", tok.Chain)
	assert.False(t, tok.IsNative)

	addr, err := b.L2BridgeAddress("optimism")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(opBridgeHex), addr)
	_, err = b.L2BridgeAddress("ethereum")
	assert.Error(t, err)
}

func TestNativeLayer1Token(t *testing.T) {
	cfg := usdcConfig()
	cfg.Decimals = 18
	cfg.Chains["ethereum"] = config.ChainAddresses{Bridge: l1BridgeHex}
	b := newTestBridge(t, cfg, &fakeCaller{})

	tok, err := b.L1Token()
	require.NoError(t, err)
	assert.True(t, tok.IsNative)

	call, err := b.SendToL2Call("optimism", common.HexToAddress(opUSDCHex), big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, "5", call.Value.String(), "native deposits carry the amount as value")
}

func TestNonAmmAndDeprecated(t *testing.T) {
	cfg := usdcConfig()
	cfg.NonAmm = true
	cfg.Deprecated = true
	b := newTestBridge(t, cfg, &fakeCaller{})

	assert.Equal(t, []string{"USDC"}, b.NonAmmAssets())
	assert.True(t, b.IsDeprecated())
}

func TestAmmQuote(t *testing.T) {
	caller := &fakeCaller{
		// loses 0.1% per whole token swapped
		swap: func(_, _ uint8, dx *big.Int) *big.Int {
			loss := new(big.Int).Mul(dx, dx)
			loss.Div(loss, big.NewInt(1_000_000_000))
			return new(big.Int).Sub(dx, loss)
		},
	}
	b := newTestBridge(t, usdcConfig(), caller)

	q, err := b.AmmQuote(context.Background(), "optimism", true, big.NewInt(100_000_000))
	require.NoError(t, err)
	assert.Equal(t, "90000000", q.AmountOut.String())
	assert.Equal(t, "0.9", q.Rate.String())
	assert.True(t, q.PriceImpact.IsNegative())
	assert.Equal(t, "-9.91", q.PriceImpact.StringFixed(2))

	for _, addr := range caller.calls {
		assert.Equal(t, common.HexToAddress(opSaddleHex), addr)
	}
}

func TestAmmQuoteWithoutPoolPrice(t *testing.T) {
	caller := &fakeCaller{swap: func(uint8, uint8, *big.Int) *big.Int { return new(big.Int) }}
	b := newTestBridge(t, usdcConfig(), caller)

	q, err := b.AmmQuote(context.Background(), "optimism", false, big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Zero(t, q.AmountOut.Sign())
	assert.Equal(t, "100", q.PriceImpact.String())
}

func TestAmmQuoteCallFailure(t *testing.T) {
	b := newTestBridge(t, usdcConfig(), &fakeCaller{err: errors.New("header not found")})

	_, err := b.AmmQuote(context.Background(), "optimism", true, big.NewInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header not found")
}

func TestAmmQuoteDirection(t *testing.T) {
	var gotFrom, gotTo uint8
	caller := &fakeCaller{swap: func(from, to uint8, dx *big.Int) *big.Int {
		gotFrom, gotTo = from, to
		return dx
	}}
	b := newTestBridge(t, usdcConfig(), caller)

	_, err := b.AmmQuote(context.Background(), "optimism", false, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, hTokenIndex, gotFrom)
	assert.Equal(t, canonicalIndex, gotTo)
}

func TestBonderFee(t *testing.T) {
	b := newTestBridge(t, usdcConfig(), &fakeCaller{})
	ctx := context.Background()

	fee, err := b.BonderFee(ctx, "optimism", big.NewInt(1_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, "2000000", fee.String(), "20 bps of 1000 USDC")

	fee, err = b.BonderFee(ctx, "optimism", big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, "250000", fee.String(), "floored at the minimum fee")
}

func TestIsDestinationChainPaused(t *testing.T) {
	caller := &fakeCaller{paused: map[int64]bool{10: true}}
	b := newTestBridge(t, usdcConfig(), caller)
	ctx := context.Background()

	paused, err := b.IsDestinationChainPaused(ctx, "optimism")
	require.NoError(t, err)
	assert.True(t, paused)

	paused, err = b.IsDestinationChainPaused(ctx, "polygon")
	require.NoError(t, err)
	assert.False(t, paused)

	require.NotEmpty(t, caller.calls)
	assert.Equal(t, common.HexToAddress(l1BridgeHex), caller.calls[0])
}

func unpackCall(t *testing.T, contract abi.ABI, method string, data []byte) []interface{} {
	t.Helper()

	m, err := contract.MethodById(data[:4])
	require.NoError(t, err)
	require.Equal(t, method, m.Name)

	args, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return args
}

func TestAmmSwapCall(t *testing.T) {
	b := newTestBridge(t, usdcConfig(), &fakeCaller{})

	call, err := b.AmmSwapCall("optimism", true, big.NewInt(1000), big.NewInt(995), big.NewInt(1_700_000_000))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(opSaddleHex), call.To)
	assert.Zero(t, call.Value.Sign())

	args := unpackCall(t, saddleSwap, "swap", call.Data)
	assert.Equal(t, canonicalIndex, args[0])
	assert.Equal(t, hTokenIndex, args[1])
	assert.Equal(t, "1000", args[2].(*big.Int).String())
	assert.Equal(t, "995", args[3].(*big.Int).String())
	assert.Equal(t, "1700000000", args[4].(*big.Int).String())
}

func TestSendToL2Call(t *testing.T) {
	b := newTestBridge(t, usdcConfig(), &fakeCaller{})
	recipient := common.HexToAddress("0x000000000000000000000000000000000000beef")

	call, err := b.SendToL2Call("optimism", recipient, big.NewInt(5_000_000))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(l1BridgeHex), call.To)
	assert.Zero(t, call.Value.Sign())

	args := unpackCall(t, l1Bridge, "sendToL2", call.Data)
	assert.Equal(t, "10", args[0].(*big.Int).String())
	assert.Equal(t, recipient, args[1])
	assert.Equal(t, "5000000", args[2].(*big.Int).String())
	assert.Zero(t, args[3].(*big.Int).Sign())
	assert.Zero(t, args[4].(*big.Int).Sign())
}

func TestSendToL1Call(t *testing.T) {
	b := newTestBridge(t, usdcConfig(), &fakeCaller{})
	recipient := common.HexToAddress("0x000000000000000000000000000000000000beef")

	call, err := b.SendToL1Call("optimism", recipient, big.NewInt(5_000_000), big.NewInt(250_000))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(opBridgeHex), call.To)

	args := unpackCall(t, l2Bridge, "send", call.Data)
	assert.Equal(t, "1", args[0].(*big.Int).String())
	assert.Equal(t, recipient, args[1])
	assert.Equal(t, "5000000", args[2].(*big.Int).String())
	assert.Equal(t, "250000", args[3].(*big.Int).String())
}
