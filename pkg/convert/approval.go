package convert

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"hop-convert/pkg/types"
)

// ApprovalGate checks and grants ERC-20 allowances. Nothing is cached: every
// call reads the allowance from chain.
type ApprovalGate struct {
	wallet    Wallet
	unlimited bool
	log       zerolog.Logger
}

// NewApprovalGate creates a gate. With unlimited set, approvals grant the
// maximum uint256 instead of the requested amount.
func NewApprovalGate(w Wallet, unlimited bool, log zerolog.Logger) *ApprovalGate {
	return &ApprovalGate{wallet: w, unlimited: unlimited, log: log}
}

// CheckApproval reports whether spender may already move amount of token.
// Native tokens never need approval.
func (g *ApprovalGate) CheckApproval(ctx context.Context, amount *big.Int, token types.Token, spender common.Address) (bool, error) {
	if token.IsNative {
		return true, nil
	}

	allowance, err := g.wallet.Allowance(ctx, token, spender)
	if err != nil {
		return false, fmt.Errorf("failed to get allowance: %w", err)
	}

	return amount.Cmp(allowance) <= 0, nil
}

// Approve submits an approval for at least amount. It returns a nil
// transaction when the current allowance already covers amount.
func (g *ApprovalGate) Approve(ctx context.Context, amount *big.Int, token types.Token, spender common.Address) (*ethtypes.Transaction, error) {
	approved, err := g.CheckApproval(ctx, amount, token, spender)
	if err != nil {
		return nil, err
	}
	if approved {
		return nil, nil
	}

	value := amount
	if g.unlimited {
		value = new(big.Int).Set(math.MaxBig256)
	}

	g.log.Info().
		Str("token", token.Symbol).
		Str("chain", token.Chain).
		Str("spender", spender.Hex()).
		Str("amount", value.String()).
		Msg("approving token")

	return g.wallet.Approve(ctx, token, spender, value)
}
