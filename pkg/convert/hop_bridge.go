package convert

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"hop-convert/pkg/amount"
	"hop-convert/pkg/network"
	"hop-convert/pkg/types"
)

// Hop bridge conversions mint h-tokens on layer-2 from layer-1 deposits, or
// burn them on layer-2 for canonical tokens on layer-1

func hopSourceToken(b Bridge, toHToken bool, source network.Descriptor) (types.Token, error) {
	if toHToken {
		return b.L1Token()
	}
	return b.HopToken(source.Slug)
}

func hopDestToken(b Bridge, toHToken bool, dest network.Descriptor) (types.Token, error) {
	if toHToken {
		return b.HopToken(dest.Slug)
	}
	return b.L1Token()
}

func hopSpendTarget(b Bridge, source, _ network.Descriptor) (common.Address, error) {
	if source.IsLayer1 {
		return b.L1BridgeAddress()
	}
	return b.L2BridgeAddress(source.Slug)
}

func hopQuote(ctx context.Context, b Bridge, req QuoteRequest) (*QuoteResult, error) {
	if req.Source.IsLayer1 {
		// deposits mint 1:1
		return &QuoteResult{
			AmountOut: new(big.Int).Set(req.Amount),
			Details: []DetailRow{
				{Label: "Rate", Value: "1.0000"},
				{Label: "Fees", Value: "0 " + req.TokenSymbol},
			},
		}, nil
	}

	fee, err := b.BonderFee(ctx, req.Source.Slug, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to get bonder fee: %w", err)
	}

	res := &QuoteResult{
		AmountOut: new(big.Int).Sub(req.Amount, fee),
		BonderFee: fee,
	}
	if res.AmountOut.Sign() <= 0 {
		res.AmountOut = new(big.Int)
		res.Warning = "Bonder fee greater than amount. Please enter a larger amount."
	}
	res.Details = []DetailRow{
		{Label: "Bonder Fee", Value: amount.FormatDisplay(fee, req.Decimals, 4) + " " + req.TokenSymbol},
		{Label: "Amount After Fees", Value: amount.FormatDisplay(res.AmountOut, req.Decimals, 4) + " " + req.TokenSymbol},
	}

	return res, nil
}

func hopExecute(ctx context.Context, b Bridge, w Wallet, req ExecuteRequest) (*ethtypes.Transaction, error) {
	recipient := req.Recipient
	if recipient == (common.Address{}) {
		recipient = w.Address()
	}

	var (
		call types.Call
		err  error
	)
	if req.Source.IsLayer1 {
		call, err = b.SendToL2Call(req.Dest.Slug, recipient, req.Amount)
	} else {
		fee := req.BonderFee
		if fee == nil {
			fee = new(big.Int)
		}
		call, err = b.SendToL1Call(req.Source.Slug, recipient, req.Amount, fee)
	}
	if err != nil {
		return nil, err
	}

	return w.Transact(ctx, req.Source.Slug, call)
}
