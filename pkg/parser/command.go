package parser

import (
	"fmt"
	"regexp"
	"strings"

	"hop-convert/pkg/types"
)

var convertPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)\s*([A-Z][A-Z0-9.]*)$`)

// ParseConvertCommand parses the amount and token of a conversion
// Examples:
//   - "convert 1 USDC"
//   - "1.5 eth"
//   - "100 hUSDC"
//
// A leading "h" on the token names the h-token of the same bridge, which is
// returned as its canonical symbol; use the --from-htoken flag for direction.
func ParseConvertCommand(command string) (*types.ConvertRequest, error) {
	command = strings.TrimSpace(command)
	if len(command) > 8 && strings.EqualFold(command[:8], "convert ") {
		command = strings.TrimSpace(command[8:])
	}

	fields := strings.Fields(command)
	if len(fields) == 2 {
		fields[1] = types.CanonicalSymbol(fields[1])
	}
	command = strings.ToUpper(strings.Join(fields, " "))

	matches := convertPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid convert command format. Expected: 'convert <amount> <token>' (e.g., 'convert 1 USDC')")
	}

	return &types.ConvertRequest{
		Amount: matches[1],
		Token:  NormalizeTokenSymbol(matches[2]),
	}, nil
}

// ValidateConvertRequest validates that a convert request has all required fields
func ValidateConvertRequest(req *types.ConvertRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if req.Token == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}

// NormalizeTokenSymbol maps wrapped aliases to the bridged token symbol
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	aliases := map[string]string{
		"WETH":   "ETH",
		"WMATIC": "MATIC",
		"WXDAI":  "XDAI",
		"USDC.E": "USDC",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
