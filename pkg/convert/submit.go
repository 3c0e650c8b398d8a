package convert

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"hop-convert/pkg/amount"
	"hop-convert/pkg/network"
	"hop-convert/pkg/tracker"
	"hop-convert/pkg/types"
)

var (
	errDismissed       = errors.New("conversion cancelled")
	errTxReverted      = errors.New("transaction reverted")
	errTxDropped       = errors.New("transaction dropped")
	errApprovalFailed  = errors.New("approval transaction reverted")
	errInvalidReceiver = errors.New("invalid recipient address")
)

// inputs is a consistent copy of the session taken before an action
type inputs struct {
	option       Option
	toHToken     bool
	selected     network.Descriptor
	source       network.Descriptor
	dest         network.Descriptor
	routeErr     *UnsupportedRouteError
	sourceToken  types.Token
	destToken    types.Token
	sourceAmount string
	destAmount   string
	parsed       *big.Int
	minOutput    *big.Int
	bonderFee    *big.Int
}

func (o *Orchestrator) inputsLocked() inputs {
	s := &o.s
	return inputs{
		option:       s.option,
		toHToken:     s.toHToken,
		selected:     s.selected,
		source:       s.source,
		dest:         s.dest,
		routeErr:     o.routeErrorLocked(),
		sourceToken:  s.sourceToken,
		destToken:    s.destToken,
		sourceAmount: s.sourceAmount,
		destAmount:   s.destAmount,
		parsed:       o.parsedAmountLocked(),
		minOutput:    copyInt(s.minOutput),
		bonderFee:    copyInt(s.bonderFee),
	}
}

// ready reports whether there is something to convert
func (in inputs) ready() bool {
	return in.parsed.Sign() > 0 &&
		!in.source.IsZero() &&
		!in.dest.IsZero() &&
		!in.sourceToken.IsZero()
}

// NeedsApproval reads the allowance of the source token for the current
// spend target. It is evaluated on every call, never cached.
func (o *Orchestrator) NeedsApproval(ctx context.Context) (bool, error) {
	o.mu.Lock()
	in := o.inputsLocked()
	o.mu.Unlock()

	if in.sourceToken.IsZero() || in.dest.IsZero() || in.routeErr != nil {
		return false, nil
	}

	target, err := in.option.SpendTarget(o.bridge, in.source, in.dest)
	if err != nil {
		o.log.Error().Err(err).Msg("failed to resolve spend target")
		return false, err
	}

	approved, err := o.gate.CheckApproval(ctx, in.parsed, in.sourceToken, target)
	if err != nil {
		o.log.Error().Err(err).Msg("failed to check approval")
		return false, err
	}

	return !approved, nil
}

// ApproveTokens approves the spend target for the current amount and waits
// for the approval to be mined. It returns a nil transaction when the
// allowance already suffices, and the route error when the route cannot be
// used.
func (o *Orchestrator) ApproveTokens(ctx context.Context) (*ethtypes.Transaction, error) {
	o.mu.Lock()
	if o.s.state.busy() {
		o.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	in := o.inputsLocked()
	if in.routeErr != nil {
		o.s.err = in.routeErr.Error()
		o.mu.Unlock()
		return nil, in.routeErr
	}
	o.mu.Unlock()

	if err := o.ensureNetwork(ctx, in.source); err != nil {
		return nil, o.reportError(err, in.source)
	}

	o.mu.Lock()
	prev := o.s.state
	o.s.err = ""
	o.s.approving = true
	o.s.state = StateApproving
	o.mu.Unlock()

	tx, err := o.approve(ctx, in)

	o.mu.Lock()
	o.s.approving = false
	o.s.state = prev
	o.mu.Unlock()

	if err != nil {
		return nil, o.reportError(err, in.source)
	}
	return tx, nil
}

// ConvertTokens submits the current conversion. The wallet must be on the
// source network. After the user confirms, the spend target is approved if
// needed, the conversion is sent, and the transaction is tracked until it is
// mined or replaced. Only conversions between layer-1 and layer-2 expose the
// tracked transaction on the session.
//
// A user cancelling in their wallet is not an error: it leaves the error
// slot empty and returns nil.
func (o *Orchestrator) ConvertTokens(ctx context.Context, customRecipient string) error {
	o.mu.Lock()
	if o.s.state.busy() {
		o.mu.Unlock()
		return ErrSubmissionInFlight
	}
	prev := o.s.state
	o.s.state = StateSubmitting
	in := o.inputsLocked()
	o.mu.Unlock()

	if err := o.ensureNetwork(ctx, in.source); err != nil {
		o.setState(prev)
		return o.reportError(err, in.source)
	}

	o.mu.Lock()
	o.s.tx = nil
	o.applyRouteErrorLocked()
	blocked := o.routeErrorLocked() != nil
	o.mu.Unlock()

	if !in.ready() || blocked {
		o.setState(prev)
		return nil
	}

	err := o.submit(ctx, in, customRecipient)

	if err == nil {
		o.setState(StateSuccess)
		return nil
	}
	if IsCancellation(err) {
		o.log.Info().Err(err).Msg("conversion cancelled by user")
		o.setState(StateCancelled)
		return nil
	}

	o.setState(StateFailed)
	return o.reportError(err, in.source)
}

func (o *Orchestrator) submit(ctx context.Context, in inputs, customRecipient string) error {
	var recipient common.Address
	if customRecipient != "" {
		if !common.IsHexAddress(customRecipient) {
			return fmt.Errorf("%w: %s", errInvalidReceiver, customRecipient)
		}
		recipient = common.HexToAddress(customRecipient)
	}

	req := ConfirmRequest{
		Kind:   "convert",
		Source: types.Leg{Amount: in.sourceAmount, Token: in.sourceToken, Network: in.source},
		Dest:   types.Leg{Amount: in.destAmount, Token: in.destToken, Network: in.dest},
	}
	if in.option.Kind == KindHopBridge {
		req.CustomRecipient = customRecipient
	}

	tx, err := o.confirmer.Show(ctx, req, func(ctx context.Context) (*ethtypes.Transaction, error) {
		o.mu.Lock()
		o.s.approving = true
		o.s.state = StateApproving
		o.mu.Unlock()

		_, err := o.approve(ctx, in)

		o.mu.Lock()
		o.s.approving = false
		o.s.state = StateSubmitting
		o.mu.Unlock()

		if err != nil {
			return nil, err
		}
		if in.option.Kind == KindAmm && in.minOutput == nil {
			return nil, ErrMissingConvertParam
		}

		return in.option.Execute(ctx, o.bridge, o.wallet, ExecuteRequest{
			Source:    in.source,
			Dest:      in.dest,
			ToHToken:  in.toHToken,
			Amount:    in.parsed,
			MinOutput: in.minOutput,
			Deadline:  o.settings.Deadline(),
			BonderFee: in.bonderFee,
			Recipient: recipient,
		})
	})
	if err != nil {
		return err
	}
	if tx == nil {
		return errDismissed
	}

	o.log.Info().
		Str("hash", tx.Hash().Hex()).
		Str("option", in.option.Slug).
		Str("source", in.source.Slug).
		Str("dest", in.dest.Slug).
		Msg("conversion submitted")

	args := tracker.TxArgs{
		NetworkSlug:     in.source.Slug,
		DestNetworkSlug: in.dest.Slug,
		Token:           in.sourceToken,
	}
	crossLayer := IsCrossLayer(in.source, in.dest)

	rec, err := o.tracker.Add(tx, args)
	if err != nil {
		o.log.Error().Err(err).Str("hash", tx.Hash().Hex()).Msg("failed to record transaction")
	} else if crossLayer {
		o.mu.Lock()
		o.s.tx = rec
		o.mu.Unlock()
	}

	// the form starts over once a conversion is sent
	o.mu.Lock()
	o.s.sourceAmount = ""
	o.mu.Unlock()
	o.refreshQuote(ctx)

	outcome, err := o.tracker.Watch(ctx, tx, args)
	if err != nil {
		return fmt.Errorf("failed waiting for transaction: %w", err)
	}

	final := outcome.Record
	if outcome.Replacement != nil {
		final = outcome.Replacement
		if crossLayer {
			o.mu.Lock()
			o.s.tx = outcome.Replacement
			o.mu.Unlock()
		}
	}

	switch final.Status {
	case tracker.StatusFailed:
		return errTxReverted
	case tracker.StatusDropped:
		return errTxDropped
	}
	return nil
}

// approve grants the spend target an allowance for in.parsed if needed and
// waits for the approval to be mined
func (o *Orchestrator) approve(ctx context.Context, in inputs) (*ethtypes.Transaction, error) {
	if in.sourceToken.IsZero() {
		return nil, ErrNoSourceToken
	}

	target, err := in.option.SpendTarget(o.bridge, in.source, in.dest)
	if err != nil {
		return nil, err
	}

	tx, err := o.gate.Approve(ctx, in.parsed, in.sourceToken, target)
	if err != nil || tx == nil {
		return nil, err
	}

	receipt, err := o.wallet.WaitMined(ctx, in.source.Slug, tx)
	if err != nil {
		return tx, fmt.Errorf("failed waiting for approval: %w", err)
	}
	if receipt.Status == ethtypes.ReceiptStatusFailed {
		return tx, errApprovalFailed
	}

	o.log.Info().
		Str("hash", tx.Hash().Hex()).
		Str("token", in.sourceToken.Symbol).
		Str("amount", amount.FormatInteger(in.parsed, in.sourceToken.Decimals)).
		Msg("approval mined")

	return tx, nil
}

func (o *Orchestrator) ensureNetwork(ctx context.Context, source network.Descriptor) error {
	ok, err := o.wallet.CheckConnectedNetworkID(ctx, source.NetworkID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNetworkMismatch
	}
	return nil
}

// reportError logs err and, unless it is a user cancellation, puts the
// formatted message in the error slot and returns it as a ProviderError
func (o *Orchestrator) reportError(err error, source network.Descriptor) error {
	if IsCancellation(err) {
		o.log.Info().Err(err).Msg("cancelled by user")
		return nil
	}

	o.log.Error().Err(err).Msg("conversion action failed")

	msg := FormatError(err, source)
	o.mu.Lock()
	o.s.err = msg
	o.mu.Unlock()

	return &ProviderError{Message: msg, Err: err}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.s.state = s
}
