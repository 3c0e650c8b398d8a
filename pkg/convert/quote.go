package convert

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DetailRow is one labelled line of a quote breakdown
type DetailRow struct {
	Label string
	Value string
}

// QuoteResult is a strategy's price for a conversion
type QuoteResult struct {
	AmountOut *big.Int
	// BonderFee is only set by hop bridge conversions that pay a bonder
	BonderFee *big.Int
	// PriceImpact is in percent; invalid when the strategy has no pool price
	PriceImpact decimal.NullDecimal
	Details     []DetailRow
	Warning     string
}
