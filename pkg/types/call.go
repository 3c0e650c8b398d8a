package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is an unsigned contract call ready to be signed and sent
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}
