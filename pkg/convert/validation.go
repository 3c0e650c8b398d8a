package convert

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/shopspring/decimal"

	"hop-convert/pkg/amount"
	"hop-convert/pkg/network"
)

// AssetIssue names a token that is unusable on a chain
type AssetIssue struct {
	Chain       string
	TokenSymbol string
}

// CheckAssets reports whether the bridge's token is missing on net (or on
// toNet when given), and whether the token has no AMM on net
func CheckAssets(b Bridge, net, toNet network.Descriptor) (unsupported, withoutAmm *AssetIssue) {
	symbol := b.TokenSymbol()

	if !net.IsZero() && !b.IsSupportedAsset(net.Slug) {
		unsupported = &AssetIssue{Chain: net.Slug, TokenSymbol: symbol}
	} else if !toNet.IsZero() && !b.IsSupportedAsset(toNet.Slug) {
		unsupported = &AssetIssue{Chain: toNet.Slug, TokenSymbol: symbol}
	}

	if !net.IsZero() && slices.Contains(b.NonAmmAssets(), symbol) {
		withoutAmm = &AssetIssue{Chain: net.Slug, TokenSymbol: symbol}
	}

	return unsupported, withoutAmm
}

// routeCheck is the input of deriveError
type routeCheck struct {
	unsupported  *AssetIssue
	withoutAmm   *AssetIssue
	kind         Kind
	deprecated   bool
	sourceIsL1   bool
	sourceSymbol string
}

// deriveError returns the route error with the highest priority, or nil:
// an unsupported asset first, then a missing AMM for AMM conversions, then
// a deprecated bridge for layer-1 sourced hop bridge conversions
func deriveError(c routeCheck) *UnsupportedRouteError {
	switch {
	case c.unsupported != nil:
		return &UnsupportedRouteError{Problem: RouteUnsupportedAsset, TokenSymbol: c.unsupported.TokenSymbol, Chain: c.unsupported.Chain}
	case c.withoutAmm != nil && c.kind == KindAmm:
		return &UnsupportedRouteError{Problem: RouteAssetWithoutAmm, TokenSymbol: c.withoutAmm.TokenSymbol, Chain: c.withoutAmm.Chain}
	case c.deprecated && c.kind == KindHopBridge && c.sourceIsL1:
		return &UnsupportedRouteError{Problem: RouteDeprecatedBridge, TokenSymbol: c.sourceSymbol}
	default:
		return nil
	}
}

// warningCheck is the input of deriveWarning
type warningCheck struct {
	sourceBalance *big.Int
	parsedAmount  *big.Int
	nativeBalance *big.Int
	source        network.Descriptor
	priceImpact   decimal.NullDecimal
	sourceAmount  string
	destAmount    string
	quoteWarning  string
}

var (
	hundred         = decimal.NewFromInt(100)
	highImpactLimit = decimal.NewFromInt(1)
)

// deriveWarning picks the single warning to show: insufficient funds, then
// a missing fee token, then a high price impact, then the quote's own warning
func deriveWarning(c warningCheck) string {
	if c.sourceBalance != nil && c.sourceBalance.Cmp(c.parsedAmount) < 0 {
		return "Insufficient funds"
	}
	if needsTokenForFee(c.nativeBalance) && !c.source.IsZero() {
		return fmt.Sprintf("Add %s to your account on %s for the transaction fee.", c.source.NativeTokenSymbol, c.source.Name)
	}
	if isHighPriceImpact(c.priceImpact, c.sourceAmount, c.destAmount) {
		return fmt.Sprintf("Warning: Price impact is high. Slippage is %s%%", amount.Commafy(c.priceImpact.Decimal.Round(2).String()))
	}
	return c.quoteWarning
}

func needsTokenForFee(nativeBalance *big.Int) bool {
	return nativeBalance != nil && nativeBalance.Sign() == 0
}

// isHighPriceImpact reports an impact of at least 1% (100% means no pool
// price was available) on an output smaller than the input
func isHighPriceImpact(impact decimal.NullDecimal, sourceAmount, destAmount string) bool {
	if !impact.Valid || impact.Decimal.IsZero() || impact.Decimal.Equal(hundred) {
		return false
	}
	if impact.Decimal.Abs().LessThan(highImpactLimit) {
		return false
	}

	src, err := decimal.NewFromString(sourceAmount)
	if err != nil {
		return true
	}
	dst, err := decimal.NewFromString(destAmount)
	if err != nil {
		return true
	}
	return dst.LessThan(src)
}
