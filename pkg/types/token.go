package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a bridgeable asset on a single chain. Values are handed out by the
// bridge SDK and only read by the conversion core.
type Token struct {
	Symbol      string         `json:"symbol"`
	Name        string         `json:"name"`
	Decimals    int            `json:"decimals"`
	Chain       string         `json:"chain"`
	Address     common.Address `json:"address"`
	IsNative    bool           `json:"is_native"`
	IsCanonical bool           `json:"is_canonical"`
}

// IsZero reports whether the token is unset
func (t Token) IsZero() bool {
	return t.Symbol == "" && t.Chain == ""
}

// HopSymbol returns the bridge-token symbol for a canonical symbol (USDC -> hUSDC)
func HopSymbol(symbol string) string {
	if strings.HasPrefix(symbol, "h") {
		return symbol
	}
	return "h" + symbol
}

// CanonicalSymbol strips the bridge-token prefix (hUSDC -> USDC)
func CanonicalSymbol(symbol string) string {
	if len(symbol) > 1 && symbol[0] == 'h' && strings.ToUpper(symbol[1:]) == symbol[1:] {
		return symbol[1:]
	}
	return symbol
}
