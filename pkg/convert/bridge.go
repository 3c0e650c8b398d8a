package convert

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"hop-convert/pkg/tracker"
	"hop-convert/pkg/types"
)

// Bridge is the handle of one bridged token (USDC, ETH, ...) across every
// chain it is deployed on
type Bridge interface {
	TokenSymbol() string
	IsSupportedAsset(chain string) bool
	NonAmmAssets() []string
	IsDeprecated() bool

	CanonicalToken(chain string) (types.Token, error)
	HopToken(chain string) (types.Token, error)
	L1Token() (types.Token, error)

	SaddleSwapAddress(chain string) (common.Address, error)
	L1BridgeAddress() (common.Address, error)
	L2BridgeAddress(chain string) (common.Address, error)

	IsDestinationChainPaused(ctx context.Context, chain string) (bool, error)
	AmmQuote(ctx context.Context, chain string, toHToken bool, amountIn *big.Int) (*AmmQuote, error)
	BonderFee(ctx context.Context, chain string, amount *big.Int) (*big.Int, error)

	AmmSwapCall(chain string, toHToken bool, amountIn, minOut, deadline *big.Int) (types.Call, error)
	SendToL2Call(destChain string, recipient common.Address, amount *big.Int) (types.Call, error)
	SendToL1Call(sourceChain string, recipient common.Address, amount, bonderFee *big.Int) (types.Call, error)
}

// AmmQuote is the pool's answer for a swap of amountIn
type AmmQuote struct {
	AmountOut *big.Int
	// Rate is amountOut / amountIn
	Rate decimal.Decimal
	// PriceImpact is in percent, negative when the trade moves the price
	// against the user
	PriceImpact decimal.Decimal
}

// Wallet is the connected account and its providers
type Wallet interface {
	Address() common.Address
	CheckConnectedNetworkID(ctx context.Context, networkID int64) (bool, error)
	Balance(ctx context.Context, token types.Token) (*big.Int, error)
	NativeBalance(ctx context.Context, chain string) (*big.Int, error)
	Allowance(ctx context.Context, token types.Token, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, token types.Token, spender common.Address, amount *big.Int) (*ethtypes.Transaction, error)
	Transact(ctx context.Context, chain string, call types.Call) (*ethtypes.Transaction, error)
	WaitMined(ctx context.Context, chain string, tx *ethtypes.Transaction) (*ethtypes.Receipt, error)
}

// ConfirmRequest is what the confirmation step shows before anything is sent
type ConfirmRequest struct {
	Kind            string
	Source          types.Leg
	Dest            types.Leg
	CustomRecipient string
}

// Confirmer presents a conversion to the user. Show blocks until the user
// confirms or dismisses; on confirm it runs onConfirm and returns its
// result. A dismissal returns a nil transaction and nil error.
type Confirmer interface {
	Show(ctx context.Context, req ConfirmRequest, onConfirm func(context.Context) (*ethtypes.Transaction, error)) (*ethtypes.Transaction, error)
}

// Tracker follows submitted transactions
type Tracker interface {
	Add(tx *ethtypes.Transaction, args tracker.TxArgs) (*tracker.Record, error)
	Watch(ctx context.Context, tx *ethtypes.Transaction, args tracker.TxArgs) (*tracker.Outcome, error)
}
