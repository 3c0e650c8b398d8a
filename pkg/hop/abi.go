package hop

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Saddle stable-swap pool holding the canonical token (index 0) and the
// h-token (index 1)
const saddleSwapABI = `[
	{"inputs":[{"name":"tokenIndexFrom","type":"uint8"},{"name":"tokenIndexTo","type":"uint8"},{"name":"dx","type":"uint256"}],"name":"calculateSwap","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"tokenIndexFrom","type":"uint8"},{"name":"tokenIndexTo","type":"uint8"},{"name":"dx","type":"uint256"},{"name":"minDy","type":"uint256"},{"name":"deadline","type":"uint256"}],"name":"swap","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

const l1BridgeABI = `[
	{"inputs":[{"name":"chainId","type":"uint256"},{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"relayer","type":"address"},{"name":"relayerFee","type":"uint256"}],"name":"sendToL2","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"","type":"uint256"}],"name":"isChainIdPaused","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"}
]`

const l2BridgeABI = `[
	{"inputs":[{"name":"chainId","type":"uint256"},{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"bonderFee","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"deadline","type":"uint256"}],"name":"send","outputs":[],"stateMutability":"payable","type":"function"}
]`

// Saddle pool token indexes
const (
	canonicalIndex uint8 = 0
	hTokenIndex    uint8 = 1
)

var (
	saddleSwap = mustParse(saddleSwapABI)
	l1Bridge   = mustParse(l1BridgeABI)
	l2Bridge   = mustParse(l2BridgeABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("hop: invalid ABI: " + err.Error())
	}
	return parsed
}
