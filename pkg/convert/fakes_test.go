package convert

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"hop-convert/pkg/network"
	"hop-convert/pkg/tracker"
	"hop-convert/pkg/types"
)

var (
	saddleAddr   = common.HexToAddress("0x00000000000000000000000000000000000005a1")
	l1BridgeAddr = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	l2BridgeAddr = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type fakeBridge struct {
	symbol      string
	decimals    int
	unsupported []string
	nonAmm      []string
	deprecated  bool
	paused      bool
	bonderFee   *big.Int
	quoteFn     func(ctx context.Context, chain string, toHToken bool, amountIn *big.Int) (*AmmQuote, error)
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{symbol: "USDC", decimals: 6, bonderFee: big.NewInt(250000)}
}

func (b *fakeBridge) TokenSymbol() string { return b.symbol }

func (b *fakeBridge) IsSupportedAsset(chain string) bool { return !slices.Contains(b.unsupported, chain) }

func (b *fakeBridge) NonAmmAssets() []string { return b.nonAmm }

func (b *fakeBridge) IsDeprecated() bool { return b.deprecated }

func (b *fakeBridge) L1BridgeAddress() (common.Address, error) { return l1BridgeAddr, nil }

func (b *fakeBridge) CanonicalToken(chain string) (types.Token, error) {
	return types.Token{Symbol: b.symbol, Decimals: b.decimals, Chain: chain, IsCanonical: true}, nil
}

func (b *fakeBridge) HopToken(chain string) (types.Token, error) {
	if chain == "ethereum" {
		return types.Token{}, fmt.Errorf("no h-token on %s", chain)
	}
	return types.Token{Symbol: types.HopSymbol(b.symbol), Decimals: b.decimals, Chain: chain}, nil
}

func (b *fakeBridge) L1Token() (types.Token, error) {
	return b.CanonicalToken("ethereum")
}

func (b *fakeBridge) SaddleSwapAddress(string) (common.Address, error) { return saddleAddr, nil }

func (b *fakeBridge) L2BridgeAddress(string) (common.Address, error) { return l2BridgeAddr, nil }

func (b *fakeBridge) IsDestinationChainPaused(context.Context, string) (bool, error) {
	return b.paused, nil
}

func (b *fakeBridge) AmmQuote(ctx context.Context, chain string, toHToken bool, amountIn *big.Int) (*AmmQuote, error) {
	if b.quoteFn != nil {
		return b.quoteFn(ctx, chain, toHToken, amountIn)
	}
	out := new(big.Int).Mul(amountIn, big.NewInt(99))
	out.Div(out, big.NewInt(100))
	return &AmmQuote{AmountOut: out, Rate: decimal.RequireFromString("0.99"), PriceImpact: decimal.RequireFromString("-0.1")}, nil
}

func (b *fakeBridge) BonderFee(context.Context, string, *big.Int) (*big.Int, error) {
	return new(big.Int).Set(b.bonderFee), nil
}

func (b *fakeBridge) AmmSwapCall(_ string, _ bool, amountIn, minOut, deadline *big.Int) (types.Call, error) {
	return types.Call{To: saddleAddr, Data: []byte(fmt.Sprintf("swap:%s:%s:%s", amountIn, minOut, deadline))}, nil
}

func (b *fakeBridge) SendToL2Call(destChain string, recipient common.Address, amount *big.Int) (types.Call, error) {
	return types.Call{To: l1BridgeAddr, Data: []byte(fmt.Sprintf("sendToL2:%s:%s:%s", destChain, recipient.Hex(), amount))}, nil
}

func (b *fakeBridge) SendToL1Call(_ string, recipient common.Address, amount, bonderFee *big.Int) (types.Call, error) {
	return types.Call{To: l2BridgeAddr, Data: []byte(fmt.Sprintf("send:%s:%s:%s", recipient.Hex(), amount, bonderFee))}, nil
}

type fakeWallet struct {
	mu             sync.Mutex
	address        common.Address
	chainID        int64
	balance        *big.Int
	native         *big.Int
	allowance      *big.Int
	allowanceCalls int
	approvals      []*big.Int
	sent           []types.Call
	transactErr    error
	nonce          uint64
	// onSend runs before each approval or transaction is signed
	onSend func(kind string)
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{
		address:   common.HexToAddress("0x000000000000000000000000000000000000a11c"),
		chainID:   10,
		balance:   big.NewInt(100_000_000),
		native:    big.NewInt(1e18),
		allowance: new(big.Int),
	}
}

func (w *fakeWallet) Address() common.Address { return w.address }

func (w *fakeWallet) CheckConnectedNetworkID(_ context.Context, id int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID == id, nil
}

func (w *fakeWallet) Balance(context.Context, types.Token) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return new(big.Int).Set(w.balance), nil
}

func (w *fakeWallet) NativeBalance(context.Context, string) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return new(big.Int).Set(w.native), nil
}

func (w *fakeWallet) Allowance(context.Context, types.Token, common.Address) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.allowanceCalls++
	return new(big.Int).Set(w.allowance), nil
}

func (w *fakeWallet) Approve(_ context.Context, _ types.Token, spender common.Address, amount *big.Int) (*ethtypes.Transaction, error) {
	if w.onSend != nil {
		w.onSend("approve")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.approvals = append(w.approvals, new(big.Int).Set(amount))
	w.allowance = new(big.Int).Set(amount)
	return w.nextTxLocked(spender, nil), nil
}

func (w *fakeWallet) Transact(_ context.Context, _ string, call types.Call) (*ethtypes.Transaction, error) {
	if w.onSend != nil {
		w.onSend("transact")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.transactErr != nil {
		return nil, w.transactErr
	}
	w.sent = append(w.sent, call)
	return w.nextTxLocked(call.To, call.Data), nil
}

func (w *fakeWallet) WaitMined(context.Context, string, *ethtypes.Transaction) (*ethtypes.Receipt, error) {
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil
}

func (w *fakeWallet) nextTxLocked(to common.Address, data []byte) *ethtypes.Transaction {
	tx := ethtypes.NewTransaction(w.nonce, to, new(big.Int), 100000, big.NewInt(1), data)
	w.nonce++
	return tx
}

func (w *fakeWallet) sentCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sent)
}

type fakeConfirmer struct {
	mu       sync.Mutex
	dismiss  bool
	entered  chan struct{}
	release  chan struct{}
	requests []ConfirmRequest
}

func (c *fakeConfirmer) Show(ctx context.Context, req ConfirmRequest, onConfirm func(context.Context) (*ethtypes.Transaction, error)) (*ethtypes.Transaction, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	dismiss := c.dismiss
	c.mu.Unlock()

	if c.entered != nil {
		c.entered <- struct{}{}
		<-c.release
	}
	if dismiss {
		return nil, nil
	}
	return onConfirm(ctx)
}

type fakeTracker struct {
	mu          sync.Mutex
	added       []*tracker.Record
	replaceWith string
	finalStatus tracker.Status
}

func (f *fakeTracker) Add(tx *ethtypes.Transaction, args tracker.TxArgs) (*tracker.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &tracker.Record{
		Hash:            tx.Hash().Hex(),
		NetworkSlug:     args.NetworkSlug,
		DestNetworkSlug: args.DestNetworkSlug,
		TokenSymbol:     args.Token.Symbol,
		Status:          tracker.StatusPending,
	}
	f.added = append(f.added, rec)
	return rec, nil
}

func (f *fakeTracker) Watch(_ context.Context, tx *ethtypes.Transaction, args tracker.TxArgs) (*tracker.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status := f.finalStatus
	if status == "" {
		status = tracker.StatusConfirmed
	}

	rec := &tracker.Record{Hash: tx.Hash().Hex(), NetworkSlug: args.NetworkSlug, DestNetworkSlug: args.DestNetworkSlug, Status: status}
	if f.replaceWith == "" {
		return &tracker.Outcome{Status: status, Record: rec}, nil
	}

	rec.Status = tracker.StatusReplaced
	rec.ReplacedBy = f.replaceWith
	replacement := &tracker.Record{Hash: f.replaceWith, Replaces: rec.Hash, NetworkSlug: args.NetworkSlug, DestNetworkSlug: args.DestNetworkSlug, Status: status}
	return &tracker.Outcome{Status: tracker.StatusReplaced, Record: rec, Replacement: replacement}, nil
}

func (f *fakeTracker) addedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

type harness struct {
	o         *Orchestrator
	bridge    *fakeBridge
	wallet    *fakeWallet
	confirmer *fakeConfirmer
	tracker   *fakeTracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir, err := network.NewDirectory(network.DefaultNetworks())
	require.NoError(t, err)

	h := &harness{
		bridge:    newFakeBridge(),
		wallet:    newFakeWallet(),
		confirmer: &fakeConfirmer{},
		tracker:   &fakeTracker{},
	}
	h.o = NewOrchestrator(Deps{
		Bridge:    h.bridge,
		Wallet:    h.wallet,
		Confirmer: h.confirmer,
		Tracker:   h.tracker,
		Directory: dir,
		Settings: Settings{
			SlippageTolerance: 0.5,
			Deadline:          func() *big.Int { return big.NewInt(1_700_000_000) },
		},
		Logger: zerolog.Nop(),
	})
	return h
}

func (h *harness) mount(t *testing.T, route Route, slug string) {
	t.Helper()
	require.NoError(t, h.o.Mount(context.Background(), route, slug))
}

var (
	ammRoute = Route{Pathname: "/convert/amm", ToHToken: true}
	hopRoute = Route{Pathname: "/convert/hop", ToHToken: true}
)
