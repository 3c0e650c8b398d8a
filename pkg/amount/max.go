package amount

import (
	"math/big"

	"hop-convert/pkg/types"
)

// gasBuffers is the amount of native token left behind by MaxSpendable when
// a buffer is requested, in 18-decimal units.
var gasBuffers = map[string]string{
	"XDAI":  "1",
	"MATIC": "1",
	"ETH":   "0.001",
}

// MaxSpendable returns the largest amount of token a user can convert from
// balance. Only native tokens pay for gas out of the same balance, so for
// everything else the full balance is returned.
func MaxSpendable(balance, gasCost *big.Int, token types.Token, leaveBuffer bool) *big.Int {
	if balance == nil {
		return new(big.Int)
	}
	if !token.IsNative || gasCost == nil || gasCost.Sign() == 0 {
		return new(big.Int).Set(balance)
	}

	total := new(big.Int).Sub(balance, gasCost)
	if total.Sign() < 0 {
		return new(big.Int)
	}

	if leaveBuffer {
		if buf, ok := gasBuffers[token.Symbol]; ok {
			small := ParseToInteger(buf, 18)
			if total.Cmp(small) > 0 {
				total.Sub(total, small)
			}
		}
	}

	return total
}
