package convert

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"hop-convert/pkg/network"
	"hop-convert/pkg/types"
)

// Kind identifies a conversion strategy
type Kind int

const (
	KindAmm Kind = iota
	KindHopBridge
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindAmm:
		return "amm"
	case KindHopBridge:
		return "hop-bridge"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Option is a conversion strategy together with its routing identity
type Option struct {
	Kind Kind
	Name string
	Slug string
	Path string
}

// Options lists the strategies in declaration order; the first is the default
var Options = []Option{
	{Kind: KindAmm, Name: "AMM", Slug: "amm", Path: "/convert/amm"},
	{Kind: KindHopBridge, Name: "Hop Bridge", Slug: "hop-bridge", Path: "/convert/hop"},
}

// QuoteRequest carries everything a strategy needs to price a conversion
type QuoteRequest struct {
	Source      network.Descriptor
	Dest        network.Descriptor
	ToHToken    bool
	TokenSymbol string
	Decimals    int
	Amount      *big.Int
}

// ExecuteRequest carries everything a strategy needs to submit a conversion
type ExecuteRequest struct {
	Source    network.Descriptor
	Dest      network.Descriptor
	ToHToken  bool
	Amount    *big.Int
	MinOutput *big.Int
	Deadline  *big.Int
	BonderFee *big.Int
	Recipient common.Address
}

// strategy is the capability table of one Kind
type strategy struct {
	sourceToken func(b Bridge, toHToken bool, source network.Descriptor) (types.Token, error)
	destToken   func(b Bridge, toHToken bool, dest network.Descriptor) (types.Token, error)
	spendTarget func(b Bridge, source, dest network.Descriptor) (common.Address, error)
	quote       func(ctx context.Context, b Bridge, req QuoteRequest) (*QuoteResult, error)
	execute     func(ctx context.Context, b Bridge, w Wallet, req ExecuteRequest) (*ethtypes.Transaction, error)
}

var strategies = [kindCount]strategy{
	KindAmm: {
		sourceToken: ammSourceToken,
		destToken:   ammDestToken,
		spendTarget: ammSpendTarget,
		quote:       ammQuote,
		execute:     ammExecute,
	},
	KindHopBridge: {
		sourceToken: hopSourceToken,
		destToken:   hopDestToken,
		spendTarget: hopSpendTarget,
		quote:       hopQuote,
		execute:     hopExecute,
	},
}

// SourceToken resolves the token the user spends
func (o Option) SourceToken(b Bridge, toHToken bool, source network.Descriptor) (types.Token, error) {
	return strategies[o.Kind].sourceToken(b, toHToken, source)
}

// DestToken resolves the token the user receives
func (o Option) DestToken(b Bridge, toHToken bool, dest network.Descriptor) (types.Token, error) {
	return strategies[o.Kind].destToken(b, toHToken, dest)
}

// SpendTarget returns the contract that must be approved to spend the source token
func (o Option) SpendTarget(b Bridge, source, dest network.Descriptor) (common.Address, error) {
	return strategies[o.Kind].spendTarget(b, source, dest)
}

// Quote prices a conversion
func (o Option) Quote(ctx context.Context, b Bridge, req QuoteRequest) (*QuoteResult, error) {
	return strategies[o.Kind].quote(ctx, b, req)
}

// Execute submits a conversion and returns the sent transaction
func (o Option) Execute(ctx context.Context, b Bridge, w Wallet, req ExecuteRequest) (*ethtypes.Transaction, error) {
	return strategies[o.Kind].execute(ctx, b, w, req)
}

// SelectOption picks the option whose path is part of pathname, else the
// option whose path contains via, else the first option
func SelectOption(pathname, via string) Option {
	for _, o := range Options {
		if pathname != "" && strings.Contains(pathname, o.Path) {
			return o
		}
	}
	if via != "" {
		for _, o := range Options {
			if strings.Contains(o.Path, via) {
				return o
			}
		}
	}
	return Options[0]
}

// DeriveNetworks returns the source and destination networks of a
// conversion. AMM conversions happen on a single layer-2, using the default
// layer-2 when layer-1 is selected. Hop bridge conversions move between
// layer-1 and the selected layer-2 in the given direction.
func DeriveNetworks(selected network.Descriptor, toHToken bool, kind Kind, l1, defaultL2 network.Descriptor) (source, dest network.Descriptor) {
	onL2 := selected
	if selected.IsLayer1 {
		onL2 = defaultL2
	}

	source, dest = l1, l1
	if kind == KindAmm || !toHToken {
		source = onL2
	}
	if kind == KindAmm || toHToken {
		dest = onL2
	}
	return source, dest
}

// IsCrossLayer reports whether a conversion moves between layer-1 and layer-2
func IsCrossLayer(source, dest network.Descriptor) bool {
	return source.IsLayer1 != dest.IsLayer1
}
