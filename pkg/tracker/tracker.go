package tracker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hop-convert/pkg/network"
)

const (
	DefaultPollInterval = 5 * time.Second
	// DefaultScanDepth is how many recent blocks are searched for a
	// transaction that replaced a watched one
	DefaultScanDepth = 128
)

// ChainReader is the subset of a chain client the tracker needs
type ChainReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTransactions(ctx context.Context, number uint64) (ethtypes.Transactions, error)
}

// Dialer returns a chain reader for a network slug
type Dialer func(ctx context.Context, slug string) (ChainReader, error)

// ClientReader adapts an ethclient.Client to ChainReader
type ClientReader struct {
	*ethclient.Client
}

// BlockTransactions returns the transactions included in block number
func (c ClientReader) BlockTransactions(ctx context.Context, number uint64) (ethtypes.Transactions, error) {
	block, err := c.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return nil, err
	}
	return block.Transactions(), nil
}

// Tracker records submitted transactions and follows them until they are
// confirmed, replaced or dropped
type Tracker struct {
	storage      *Storage
	dir          *network.Directory
	dial         Dialer
	pollInterval time.Duration
	scanDepth    uint64
	log          zerolog.Logger
}

// New creates a tracker persisting into storage
func New(storage *Storage, dir *network.Directory, dial Dialer, pollInterval time.Duration, log zerolog.Logger) *Tracker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Tracker{
		storage:      storage,
		dir:          dir,
		dial:         dial,
		pollInterval: pollInterval,
		scanDepth:    DefaultScanDepth,
		log:          log,
	}
}

// SetScanDepth changes how far back replacement scans look
func (t *Tracker) SetScanDepth(depth uint64) {
	if depth > 0 {
		t.scanDepth = depth
	}
}

// Add registers a freshly submitted transaction as pending
func (t *Tracker) Add(tx *ethtypes.Transaction, args TxArgs) (*Record, error) {
	rec := newRecord(tx, args)
	if err := t.storage.Put(rec); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	t.log.Info().
		Str("hash", rec.Hash).
		Str("network", rec.NetworkSlug).
		Str("dest_network", rec.DestNetworkSlug).
		Msg("tracking transaction")

	return rec, nil
}

// Get returns the stored record for hash
func (t *Tracker) Get(hash string) (*Record, error) {
	return t.storage.Get(hash)
}

// List returns every stored record, newest first
func (t *Tracker) List() []*Record {
	return t.storage.List()
}

// Watch polls the source chain until tx is mined, replaced by another
// transaction with the same sender and nonce, or dropped. RPC failures while
// polling are logged and retried; only ctx ends the watch early.
func (t *Tracker) Watch(ctx context.Context, tx *ethtypes.Transaction, args TxArgs) (*Outcome, error) {
	client, err := t.dial(ctx, args.NetworkSlug)
	if err != nil {
		return nil, err
	}

	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover sender: %w", err)
	}

	rec, err := t.storage.Get(tx.Hash().Hex())
	if err != nil {
		if rec, err = t.Add(tx, args); err != nil {
			return nil, err
		}
	}

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		outcome, err := t.check(ctx, client, tx, from, rec, args)
		if err != nil {
			t.log.Warn().Err(err).Str("hash", rec.Hash).Msg("transaction check failed, retrying")
		} else if outcome != nil {
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// check performs one polling round. A nil outcome means still pending.
func (t *Tracker) check(ctx context.Context, client ChainReader, tx *ethtypes.Transaction, from common.Address, rec *Record, args TxArgs) (*Outcome, error) {
	receipt, err := client.TransactionReceipt(ctx, tx.Hash())
	if err == nil {
		updated, err := t.settle(rec, receipt)
		if err != nil {
			return nil, err
		}
		return &Outcome{Status: updated.Status, Record: updated}, nil
	}
	if !errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	nonce, err := client.NonceAt(ctx, from, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	if nonce <= tx.Nonce() {
		return nil, nil
	}

	// the nonce was used; find out by which transaction
	replacement, err := t.findReplacement(ctx, client, from, tx.Nonce())
	if err != nil {
		return nil, err
	}
	if replacement == nil {
		dropped, err := t.mark(rec, func(r *Record) { r.Status = StatusDropped })
		if err != nil {
			return nil, err
		}
		t.log.Warn().Str("hash", rec.Hash).Msg("transaction dropped")
		return &Outcome{Status: StatusDropped, Record: dropped}, nil
	}
	if replacement.Hash() == tx.Hash() {
		// mined, receipt not indexed yet
		return nil, nil
	}

	return t.replace(ctx, client, rec, replacement, args)
}

func (t *Tracker) replace(ctx context.Context, client ChainReader, rec *Record, replacement *ethtypes.Transaction, args TxArgs) (*Outcome, error) {
	newHash := replacement.Hash().Hex()

	old, err := t.mark(rec, func(r *Record) {
		r.Status = StatusReplaced
		r.ReplacedBy = newHash
	})
	if err != nil {
		return nil, err
	}

	next := newRecord(replacement, args)
	next.Replaces = old.Hash
	if receipt, err := client.TransactionReceipt(ctx, replacement.Hash()); err == nil {
		applyReceipt(next, receipt)
	}
	if err := t.storage.Put(next); err != nil {
		return nil, fmt.Errorf("failed to save replacement: %w", err)
	}

	t.log.Info().Str("hash", old.Hash).Str("replaced_by", newHash).Msg("transaction replaced")

	return &Outcome{Status: StatusReplaced, Record: old, Replacement: next}, nil
}

// findReplacement scans recent blocks for a transaction from sender with nonce
func (t *Tracker) findReplacement(ctx context.Context, client ChainReader, from common.Address, nonce uint64) (*ethtypes.Transaction, error) {
	latest, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block number: %w", err)
	}

	var floor uint64
	if latest > t.scanDepth {
		floor = latest - t.scanDepth
	}

	for n := latest; ; n-- {
		txs, err := client.BlockTransactions(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("failed to get block %d: %w", n, err)
		}
		for _, candidate := range txs {
			if candidate.Nonce() != nonce {
				continue
			}
			sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(candidate.ChainId()), candidate)
			if err != nil {
				continue
			}
			if sender == from {
				return candidate, nil
			}
		}
		if n == floor {
			break
		}
	}

	return nil, nil
}

// IsFinalized reports whether a transaction mined in txBlock on slug has
// more confirmations than the network requires. Networks without a
// configured requirement are never reported final.
func (t *Tracker) IsFinalized(ctx context.Context, txBlock uint64, slug string) (bool, error) {
	if txBlock == 0 {
		return false, nil
	}

	confirmations := t.dir.WaitConfirmations(slug)
	if confirmations == 0 {
		return false, nil
	}

	client, err := t.dial(ctx, slug)
	if err != nil {
		return false, err
	}

	latest, err := client.BlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get block number: %w", err)
	}

	return latest > txBlock && latest-txBlock > confirmations, nil
}

// Refresh re-reads a stored transaction from its source chain, updating its
// status and finality
func (t *Tracker) Refresh(ctx context.Context, hash string) (*Record, error) {
	rec, err := t.storage.Get(hash)
	if err != nil {
		return nil, err
	}

	if rec.Status == StatusPending {
		client, err := t.dial(ctx, rec.NetworkSlug)
		if err != nil {
			return nil, err
		}
		receipt, err := client.TransactionReceipt(ctx, common.HexToHash(rec.Hash))
		switch {
		case err == nil:
			if rec, err = t.settle(rec, receipt); err != nil {
				return nil, err
			}
		case !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("failed to get receipt: %w", err)
		}
	}

	if rec.Status == StatusConfirmed && !rec.Finalized {
		final, err := t.IsFinalized(ctx, rec.BlockNumber, rec.NetworkSlug)
		if err != nil {
			return nil, err
		}
		if final {
			if rec, err = t.mark(rec, func(r *Record) { r.Finalized = true }); err != nil {
				return nil, err
			}
		}
	}

	return rec, nil
}

func (t *Tracker) settle(rec *Record, receipt *ethtypes.Receipt) (*Record, error) {
	return t.mark(rec, func(r *Record) { applyReceipt(r, receipt) })
}

// mark applies fn to a copy of rec and persists it
func (t *Tracker) mark(rec *Record, fn func(*Record)) (*Record, error) {
	updated := *rec
	fn(&updated)
	updated.UpdatedAt = time.Now()
	if err := t.storage.Put(&updated); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	*rec = updated
	return &updated, nil
}

func applyReceipt(r *Record, receipt *ethtypes.Receipt) {
	r.Status = StatusConfirmed
	if receipt.Status == ethtypes.ReceiptStatusFailed {
		r.Status = StatusFailed
	}
	if receipt.BlockNumber != nil {
		r.BlockNumber = receipt.BlockNumber.Uint64()
	}
}

func newRecord(tx *ethtypes.Transaction, args TxArgs) *Record {
	now := time.Now()
	return &Record{
		ID:                  uuid.New().String(),
		Hash:                tx.Hash().Hex(),
		NetworkSlug:         args.NetworkSlug,
		DestNetworkSlug:     args.DestNetworkSlug,
		TokenSymbol:         args.Token.Symbol,
		IsCanonicalTransfer: args.IsCanonicalTransfer,
		Nonce:               tx.Nonce(),
		Status:              StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
