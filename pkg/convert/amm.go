package convert

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"hop-convert/pkg/network"
	"hop-convert/pkg/types"
)

// AMM conversions swap canonical <-> h-token through the layer-2 Saddle pool

func ammSourceToken(b Bridge, toHToken bool, source network.Descriptor) (types.Token, error) {
	if toHToken {
		return b.CanonicalToken(source.Slug)
	}
	return b.HopToken(source.Slug)
}

func ammDestToken(b Bridge, toHToken bool, dest network.Descriptor) (types.Token, error) {
	if toHToken {
		return b.HopToken(dest.Slug)
	}
	return b.CanonicalToken(dest.Slug)
}

func ammSpendTarget(b Bridge, source, _ network.Descriptor) (common.Address, error) {
	return b.SaddleSwapAddress(source.Slug)
}

func ammQuote(ctx context.Context, b Bridge, req QuoteRequest) (*QuoteResult, error) {
	q, err := b.AmmQuote(ctx, req.Source.Slug, req.ToHToken, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to get amm quote: %w", err)
	}

	res := &QuoteResult{
		AmountOut:   q.AmountOut,
		PriceImpact: decimal.NewNullDecimal(q.PriceImpact),
		Details: []DetailRow{
			{Label: "Rate", Value: q.Rate.StringFixed(4)},
			{Label: "Price Impact", Value: formatPercent(q.PriceImpact)},
		},
	}

	if req.Amount.Sign() > 0 && (q.AmountOut == nil || q.AmountOut.Sign() == 0) {
		res.Warning = "Insufficient liquidity. Try a smaller amount."
	}

	return res, nil
}

func ammExecute(ctx context.Context, b Bridge, w Wallet, req ExecuteRequest) (*ethtypes.Transaction, error) {
	call, err := b.AmmSwapCall(req.Source.Slug, req.ToHToken, req.Amount, req.MinOutput, req.Deadline)
	if err != nil {
		return nil, err
	}
	return w.Transact(ctx, req.Source.Slug, call)
}

func formatPercent(d decimal.Decimal) string {
	if d.Abs().LessThan(decimal.New(1, -2)) {
		return "<0.01%"
	}
	return d.StringFixed(2) + "%"
}
