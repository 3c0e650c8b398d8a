package convert

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"hop-convert/pkg/network"
)

var (
	// ErrNetworkMismatch means the wallet is connected to a different chain
	// than the conversion's source network
	ErrNetworkMismatch = errors.New("wrong network connected")
	// ErrSubmissionInFlight rejects a second submission while one is running
	ErrSubmissionInFlight = errors.New("a conversion is already being submitted")
	// ErrMissingConvertParam means a required input disappeared before submit
	ErrMissingConvertParam = errors.New("missing convert param")
	// ErrNoSourceToken means the source token could not be resolved
	ErrNoSourceToken = errors.New("no source token selected")
)

// RouteProblem names why a token cannot be converted on a route
type RouteProblem int

const (
	RouteUnsupportedAsset RouteProblem = iota + 1
	RouteAssetWithoutAmm
	RouteDeprecatedBridge
)

// UnsupportedRouteError blocks submission until the route, network or asset changes
type UnsupportedRouteError struct {
	Problem     RouteProblem
	TokenSymbol string
	Chain       string
}

func (e *UnsupportedRouteError) Error() string {
	switch e.Problem {
	case RouteUnsupportedAsset:
		return fmt.Sprintf("%s is currently not supported on %s", e.TokenSymbol, e.Chain)
	case RouteAssetWithoutAmm:
		return fmt.Sprintf("%s does not use an AMM on %s", e.TokenSymbol, e.Chain)
	case RouteDeprecatedBridge:
		return fmt.Sprintf("The %s bridge is deprecated. Only transfers from L2 to L1 are supported.", e.TokenSymbol)
	default:
		return "unsupported route"
	}
}

// ProviderError is an RPC or wallet failure rewritten for the user. The
// original error is kept for logging and errors.Is.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

var cancellationPattern = regexp.MustCompile(`(?i)cancelled|rejected`)

// IsCancellation reports whether err is the user declining in their wallet
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	return cancellationPattern.MatchString(err.Error())
}

const rpcEndpointsDocs = "https://docs.hop.exchange/v/developer-docs/rpc/rpc-endpoints"

type errorRule struct {
	substrings []string
	format     func(msg, feeToken string) string
}

// errorRules are evaluated in order, first match wins
var errorRules = []errorRule{
	{
		substrings: []string{"not enough funds for gas", "insufficient funds", "Insufficient funds"},
		format: func(msg, feeToken string) string {
			return fmt.Sprintf("Insufficient balance. Please add %s to pay for tx fees. Error: %s", feeToken, msg)
		},
	},
	{
		substrings: []string{"NetworkError when attempting to fetch resource"},
		format: func(msg, _ string) string {
			return fmt.Sprintf("%s Please check your wallet network settings are correct and try again. More info: %s", msg, rpcEndpointsDocs)
		},
	},
	{
		substrings: []string{"[ethjs-query]", "while formatting outputs from RPC"},
		format: func(msg, _ string) string {
			return fmt.Sprintf("An RPC error occurred. Please check your wallet network settings are correct and refresh page to try again. More info: %s. Error: %s", rpcEndpointsDocs, msg)
		},
	},
	{
		substrings: []string{"Failed to fetch", "could not detect network", "Not Found", "Non-200 status code"},
		format: func(msg, _ string) string {
			return fmt.Sprintf("There was a network error. Please disable any ad blockers and check your wallet network settings are correct and refresh page to try again. More info: %s. Error: %s", rpcEndpointsDocs, msg)
		},
	},
	{
		substrings: []string{"unsupported block number", "rlp: expected List", "PermissionDenied, permission denied for tx type: Call"},
		format: func(msg, _ string) string {
			return fmt.Sprintf("An RPC error occurred. Please refresh page to try again. Error: %s", msg)
		},
	},
	{
		substrings: []string{"transaction underpriced"},
		format: func(msg, _ string) string {
			return fmt.Sprintf("An RPC error occurred. The transaction is underpriced. Please try again and increase gas price. If you are seeing is error a lot, try resetting the nonce for your wallet account. Error: %s", msg)
		},
	},
	{
		substrings: []string{"header not found", "intrinsic gas too low"},
		format: func(msg, _ string) string {
			return fmt.Sprintf("An RPC error occurred. Please check your wallet network settings are correct and try again. Consider using a different RPC provider if you are seeing this error frequently. More info: %s. Error: %s", rpcEndpointsDocs, msg)
		},
	},
	{
		substrings: []string{"sequencer transaction forwarding not configured", "rate limit", "compute units", "Optimism sequencer global transaction limit exceeded", "request timed out"},
		format: func(msg, _ string) string {
			return fmt.Sprintf("An RPC error occurred. Please try again. Consider using a different RPC provider if you are seeing this error often. More info: %s. Error: %s", rpcEndpointsDocs, msg)
		},
	},
	{
		substrings: []string{"already minted"},
		format: func(string, string) string {
			return "Account has already minted tokens. Only one mint per account is allowed."
		},
	},
	{
		substrings: []string{"user rejected transaction", "ACTION_REJECTED"},
		format: func(string, string) string {
			return "Cancelled"
		},
	},
	{
		substrings: []string{"Cannot transfer staked or escrowed SNX"},
		format: func(msg, _ string) string {
			return fmt.Sprintf("Cannot transfer staked or escrowed SNX. Error: %s", msg)
		},
	},
	{
		substrings: []string{"Internal JSON-RPC error", "Internal error"},
		format: func(msg, feeToken string) string {
			return fmt.Sprintf("An RPC error occurred. Please check you have enough %s to pay for fees and check your wallet network settings are correct. Refresh to try again. More info: %s. Error: %s", feeToken, rpcEndpointsDocs, msg)
		},
	},
	{
		substrings: []string{"call revert exception", "missing revert data", "execution reverted"},
		format: func(msg, _ string) string {
			return fmt.Sprintf("An RPC error occurred. Please check your wallet network settings are correct and refresh page to try again. More info: %s. Error: %s", rpcEndpointsDocs, msg)
		},
	},
}

// FormatError turns a provider or wallet error into a message for the user.
// Fee related messages name the native token of net.
func FormatError(err error, net network.Descriptor) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	if msg == "" {
		msg = "Something went wrong. Please try again."
	}

	feeToken := net.NativeTokenSymbol
	if feeToken == "" {
		feeToken = "funds"
	}

	for _, rule := range errorRules {
		for _, s := range rule.substrings {
			if strings.Contains(msg, s) {
				return prettify(rule.format(msg, feeToken))
			}
		}
	}

	return prettify(msg)
}

// prettify trims the message and upper-cases its first letter
func prettify(msg string) string {
	msg = strings.TrimSpace(msg)
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
