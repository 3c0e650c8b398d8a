package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"hop-convert/pkg/convert"
	"hop-convert/pkg/network"
	"hop-convert/pkg/types"
)

// Backend is the part of an RPC client the wallet uses
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Dialer returns a backend for the chain with the given slug
type Dialer func(ctx context.Context, chain string) (Backend, error)

// Options tune an EVM wallet
type Options struct {
	// MaxGasLimit rejects transactions whose estimate exceeds it
	MaxGasLimit uint64
	// PollInterval is how often WaitMined asks for a receipt
	PollInterval time.Duration
	// AutoSwitch lets the wallet move to whatever network a conversion
	// starts on instead of reporting a mismatch
	AutoSwitch bool
}

// EVM signs with a local private key on any configured EVM network
type EVM struct {
	key     *ecdsa.PrivateKey
	address common.Address
	dir     *network.Directory
	dial    Dialer
	opts    Options
	log     zerolog.Logger

	mu        sync.Mutex
	connected network.Descriptor
}

var _ convert.Wallet = (*EVM)(nil)

// NewEVM creates a wallet from a hex private key, connected to the network
// with the given slug
func NewEVM(privateKey string, dir *network.Directory, connected string, dial Dialer, opts Options, log zerolog.Logger) (*EVM, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	net, ok := dir.Lookup(connected)
	if !ok {
		return nil, fmt.Errorf("unknown network %q", connected)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}

	return &EVM{
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		dir:       dir,
		dial:      dial,
		opts:      opts,
		log:       log,
		connected: net,
	}, nil
}

func (w *EVM) Address() common.Address {
	return w.address
}

// Connected returns the network the wallet is on
func (w *EVM) Connected() network.Descriptor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// CheckConnectedNetworkID reports whether the wallet is on the network with
// the given id. With AutoSwitch the wallet moves there first.
func (w *EVM) CheckConnectedNetworkID(ctx context.Context, networkID int64) (bool, error) {
	target, ok := w.dir.ByNetworkID(networkID)
	if !ok {
		return false, fmt.Errorf("unknown network id %d", networkID)
	}

	current := w.Connected()
	if current.NetworkID != networkID {
		if !w.opts.AutoSwitch {
			return false, nil
		}
		w.log.Info().Str("from", current.Slug).Str("to", target.Slug).Msg("switching network")
	}

	backend, err := w.dial(ctx, target.Slug)
	if err != nil {
		return false, err
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get chain id: %w", err)
	}
	if chainID.Int64() != networkID {
		return false, nil
	}

	w.mu.Lock()
	w.connected = target
	w.mu.Unlock()
	return true, nil
}

// Balance returns the wallet's balance of token
func (w *EVM) Balance(ctx context.Context, token types.Token) (*big.Int, error) {
	if token.IsNative {
		return w.NativeBalance(ctx, token.Chain)
	}

	out, err := w.call(ctx, token.Chain, token.Address, "balanceOf", w.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s balance: %w", token.Symbol, err)
	}
	return out, nil
}

// NativeBalance returns the wallet's balance of the chain's gas token
func (w *EVM) NativeBalance(ctx context.Context, chain string) (*big.Int, error) {
	backend, err := w.dial(ctx, chain)
	if err != nil {
		return nil, err
	}
	balance, err := backend.BalanceAt(ctx, w.address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Allowance returns how much of token spender may move for the wallet
func (w *EVM) Allowance(ctx context.Context, token types.Token, spender common.Address) (*big.Int, error) {
	out, err := w.call(ctx, token.Chain, token.Address, "allowance", w.address, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s allowance: %w", token.Symbol, err)
	}
	return out, nil
}

// Approve lets spender move amount of token
func (w *EVM) Approve(ctx context.Context, token types.Token, spender common.Address, amount *big.Int) (*ethtypes.Transaction, error) {
	if token.IsNative {
		return nil, errors.New("native tokens do not need approval")
	}

	data, err := erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve data: %w", err)
	}
	return w.Transact(ctx, token.Chain, types.Call{To: token.Address, Data: data})
}

// Transact signs call and sends it on chain. Sends are serialized so that
// nonces are handed out in order.
func (w *EVM) Transact(ctx context.Context, chain string, call types.Call) (*ethtypes.Transaction, error) {
	net, ok := w.dir.Lookup(chain)
	if !ok {
		return nil, fmt.Errorf("unknown network %q", chain)
	}
	backend, err := w.dial(ctx, chain)
	if err != nil {
		return nil, err
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	nonce, err := backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	to := call.To
	estimated, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: value,
		Data:  call.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit := estimated * 120 / 100 // Add 20% buffer
	if w.opts.MaxGasLimit > 0 && estimated > w.opts.MaxGasLimit {
		return nil, fmt.Errorf("gas estimate %d exceeds max gas limit %d", estimated, w.opts.MaxGasLimit)
	}

	tx := ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, call.Data)
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(big.NewInt(net.NetworkID)), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	w.log.Info().
		Str("network", chain).
		Str("hash", signed.Hash().Hex()).
		Uint64("nonce", nonce).
		Uint64("gas", gasLimit).
		Msg("transaction sent")

	return signed, nil
}

// EstimateFee returns the native-token cost of gasLimit at the current gas
// price on chain
func (w *EVM) EstimateFee(ctx context.Context, chain string, gasLimit uint64) (*big.Int, error) {
	backend, err := w.dial(ctx, chain)
	if err != nil {
		return nil, err
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit)), nil
}

// WaitMined polls for the receipt of tx until it is included or ctx ends
func (w *EVM) WaitMined(ctx context.Context, chain string, tx *ethtypes.Transaction) (*ethtypes.Receipt, error) {
	backend, err := w.dial(ctx, chain)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			w.log.Debug().Err(err).Str("hash", tx.Hash().Hex()).Msg("receipt not available")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// call runs a read-only ERC20 method returning a single uint256
func (w *EVM) call(ctx context.Context, chain string, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s data: %w", method, err)
	}

	backend, err := w.dial(ctx, chain)
	if err != nil {
		return nil, err
	}

	result, err := backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	out, err := erc20.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result", method)
	}
	return v, nil
}
