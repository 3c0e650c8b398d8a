package convert

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"hop-convert/pkg/amount"
	"hop-convert/pkg/network"
	"hop-convert/pkg/tracker"
	"hop-convert/pkg/types"
)

// Settings are the user preferences a session reads
type Settings struct {
	// SlippageTolerance is in percent, 0.5 means 0.5%
	SlippageTolerance float64
	// Deadline returns the unix timestamp after which a swap must revert
	Deadline         func() *big.Int
	ApproveUnlimited bool
}

// Deps are the collaborators of an Orchestrator
type Deps struct {
	Bridge    Bridge
	Wallet    Wallet
	Confirmer Confirmer
	Tracker   Tracker
	Directory *network.Directory
	Settings  Settings
	Logger    zerolog.Logger
}

// Route is what the session is mounted with: the current path, the via
// route parameter and the conversion direction
type Route struct {
	Pathname string
	Via      string
	ToHToken bool
}

// session is the mutable state of one conversion form
type session struct {
	state    State
	pathname string
	via      string
	option   Option
	toHToken bool
	selected network.Descriptor
	source   network.Descriptor
	dest     network.Descriptor

	unsupported *AssetIssue
	withoutAmm  *AssetIssue

	sourceToken   types.Token
	destToken     types.Token
	sourceBalance *big.Int
	destBalance   *big.Int
	nativeBalance *big.Int

	sourceAmount string
	destAmount   string
	minOutput    *big.Int
	bonderFee    *big.Int
	priceImpact  decimal.NullDecimal
	details      []DetailRow
	quoteWarning string

	err               string
	warning           string
	tx                *tracker.Record
	destinationPaused bool
	approving         bool
	closed            bool
}

// Snapshot is a read-only copy of a session for presentation
type Snapshot struct {
	State                  State
	Option                 Option
	ToHToken               bool
	SelectedNetwork        network.Descriptor
	SourceNetwork          network.Descriptor
	DestNetwork            network.Descriptor
	SourceToken            types.Token
	DestToken              types.Token
	SourceBalance          *big.Int
	DestBalance            *big.Int
	SourceAmount           string
	DestAmount             string
	MinOutput              *big.Int
	BonderFee              *big.Int
	PriceImpact            decimal.NullDecimal
	Details                []DetailRow
	Error                  string
	Warning                string
	Tx                     *tracker.Record
	UnsupportedAsset       *AssetIssue
	AssetWithoutAmm        *AssetIssue
	NeedsTokenForFee       bool
	DestinationChainPaused bool
	Approving              bool
	ValidFormFields        bool
}

// Orchestrator drives one conversion session: it derives networks and
// tokens from the selection, keeps the quote current, and runs approve and
// convert actions. All methods are safe for concurrent use; the lock is
// never held across a network call.
type Orchestrator struct {
	bridge    Bridge
	wallet    Wallet
	confirmer Confirmer
	tracker   Tracker
	dir       *network.Directory
	settings  Settings
	gate      *ApprovalGate
	log       zerolog.Logger

	quotes Sequencer
	tokens Sequencer

	mu sync.Mutex
	s  session
}

// NewOrchestrator creates an unmounted session
func NewOrchestrator(d Deps) *Orchestrator {
	return &Orchestrator{
		bridge:    d.Bridge,
		wallet:    d.Wallet,
		confirmer: d.Confirmer,
		tracker:   d.Tracker,
		dir:       d.Directory,
		settings:  d.Settings,
		gate:      NewApprovalGate(d.Wallet, d.Settings.ApproveUnlimited, d.Logger),
		log:       d.Logger,
		s:         session{option: Options[0], toHToken: true},
	}
}

// Mount starts the session for a route with the given network selected
func (o *Orchestrator) Mount(ctx context.Context, route Route, selectedSlug string) error {
	selected, ok := o.dir.Lookup(selectedSlug)
	if !ok {
		return fmt.Errorf("unknown network %q", selectedSlug)
	}

	o.mu.Lock()
	o.s = session{
		pathname: route.Pathname,
		via:      route.Via,
		toHToken: route.ToHToken,
		selected: selected,
	}
	o.mu.Unlock()

	o.refresh(ctx)
	return nil
}

// Close ends the session. Results of requests still in flight are dropped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.s.closed = true
	o.quotes.Invalidate()
	o.tokens.Invalidate()
}

// SetSelectedNetwork changes the selected network
func (o *Orchestrator) SetSelectedNetwork(ctx context.Context, slug string) error {
	selected, ok := o.dir.Lookup(slug)
	if !ok {
		return fmt.Errorf("unknown network %q", slug)
	}

	o.mu.Lock()
	o.s.selected = selected
	o.mu.Unlock()

	o.refresh(ctx)
	return nil
}

// SetVia changes the via route parameter
func (o *Orchestrator) SetVia(ctx context.Context, via string) {
	o.mu.Lock()
	o.s.via = via
	o.mu.Unlock()

	o.refresh(ctx)
}

// SwitchDirection flips between converting to and from the h-token
func (o *Orchestrator) SwitchDirection(ctx context.Context) {
	o.mu.Lock()
	o.s.toHToken = !o.s.toHToken
	o.mu.Unlock()

	o.refresh(ctx)
}

// SetSourceAmount sets the amount to convert from raw user input
func (o *Orchestrator) SetSourceAmount(ctx context.Context, raw string) {
	o.mu.Lock()
	o.s.sourceAmount = amount.SanitizeNumeric(raw)
	o.mu.Unlock()

	o.refreshQuote(ctx)
}

// ClearError dismisses the error message
func (o *Orchestrator) ClearError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.s.err = ""
}

// ClearWarning dismisses the warning message
func (o *Orchestrator) ClearWarning() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.s.warning = ""
}

// MaxAmount returns the largest source amount the user can convert given
// the gas cost of the conversion
func (o *Orchestrator) MaxAmount(gasCost *big.Int, leaveBuffer bool) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s.sourceBalance == nil || o.s.sourceToken.IsZero() {
		return ""
	}
	spendable := amount.MaxSpendable(o.s.sourceBalance, gasCost, o.s.sourceToken, leaveBuffer)
	return amount.FormatInteger(spendable, o.s.sourceToken.Decimals)
}

// Snapshot returns a copy of the session state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := &o.s
	return Snapshot{
		State:                  s.state,
		Option:                 s.option,
		ToHToken:               s.toHToken,
		SelectedNetwork:        s.selected,
		SourceNetwork:          s.source,
		DestNetwork:            s.dest,
		SourceToken:            s.sourceToken,
		DestToken:              s.destToken,
		SourceBalance:          copyInt(s.sourceBalance),
		DestBalance:            copyInt(s.destBalance),
		SourceAmount:           s.sourceAmount,
		DestAmount:             s.destAmount,
		MinOutput:              copyInt(s.minOutput),
		BonderFee:              copyInt(s.bonderFee),
		PriceImpact:            s.priceImpact,
		Details:                append([]DetailRow(nil), s.details...),
		Error:                  s.err,
		Warning:                s.warning,
		Tx:                     copyRecord(s.tx),
		UnsupportedAsset:       s.unsupported,
		AssetWithoutAmm:        s.withoutAmm,
		NeedsTokenForFee:       needsTokenForFee(s.nativeBalance),
		DestinationChainPaused: s.destinationPaused,
		Approving:              s.approving,
		ValidFormFields:        o.validFormFieldsLocked(),
	}
}

// ValidFormFields reports whether the form may be submitted: both amounts
// are set, the balance covers the amount, and a quote came back
func (o *Orchestrator) ValidFormFields() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.validFormFieldsLocked()
}

func (o *Orchestrator) validFormFieldsLocked() bool {
	s := &o.s
	if s.sourceAmount == "" || s.destAmount == "" || len(s.details) == 0 {
		return false
	}
	if s.sourceBalance == nil {
		return false
	}
	return s.sourceBalance.Cmp(o.parsedAmountLocked()) >= 0
}

func (o *Orchestrator) parsedAmountLocked() *big.Int {
	if o.s.sourceAmount == "" || o.s.sourceToken.IsZero() {
		return new(big.Int)
	}
	return amount.ParseToInteger(o.s.sourceAmount, o.s.sourceToken.Decimals)
}

func (o *Orchestrator) refresh(ctx context.Context) {
	o.refreshRoute(ctx)
	o.refreshQuote(ctx)
}

// refreshRoute re-derives everything that depends on the route, the
// selected network and the direction, then fetches tokens and balances
func (o *Orchestrator) refreshRoute(ctx context.Context) {
	o.mu.Lock()
	if o.s.closed {
		o.mu.Unlock()
		return
	}

	s := &o.s
	s.option = SelectOption(s.pathname, s.via)
	s.source, s.dest = DeriveNetworks(s.selected, s.toHToken, s.option.Kind, o.dir.L1(), o.dir.DefaultL2())
	s.unsupported, s.withoutAmm = CheckAssets(o.bridge, s.selected, network.Descriptor{})
	s.sourceToken, s.destToken = types.Token{}, types.Token{}
	s.sourceBalance, s.destBalance, s.nativeBalance = nil, nil, nil
	s.destinationPaused = false
	if !s.state.busy() {
		s.state = StateIdle
	}

	o.quotes.Invalidate()
	ticket := o.tokens.Next()

	option, toHToken := s.option, s.toHToken
	source, dest := s.source, s.dest
	unsupported := s.unsupported != nil

	o.applyRouteErrorLocked()
	o.applyWarningLocked()
	o.mu.Unlock()

	if unsupported {
		return
	}

	srcToken, err := option.SourceToken(o.bridge, toHToken, source)
	if err != nil {
		o.log.Error().Err(err).Str("network", source.Slug).Msg("failed to resolve source token")
		srcToken = types.Token{}
	}
	dstToken, err := option.DestToken(o.bridge, toHToken, dest)
	if err != nil {
		o.log.Error().Err(err).Str("network", dest.Slug).Msg("failed to resolve destination token")
		dstToken = types.Token{}
	}

	var (
		srcBalance, dstBalance, nativeBalance *big.Int
		paused                                bool
	)

	g, gctx := errgroup.WithContext(ctx)
	if !srcToken.IsZero() {
		g.Go(func() error {
			b, err := o.wallet.Balance(gctx, srcToken)
			if err != nil {
				return fmt.Errorf("source balance: %w", err)
			}
			srcBalance = b
			return nil
		})
	}
	if !dstToken.IsZero() {
		g.Go(func() error {
			b, err := o.wallet.Balance(gctx, dstToken)
			if err != nil {
				return fmt.Errorf("destination balance: %w", err)
			}
			dstBalance = b
			return nil
		})
	}
	g.Go(func() error {
		b, err := o.wallet.NativeBalance(gctx, source.Slug)
		if err != nil {
			return fmt.Errorf("native balance: %w", err)
		}
		nativeBalance = b
		return nil
	})
	if source.IsLayer1 && !srcToken.IsZero() {
		g.Go(func() error {
			p, err := o.bridge.IsDestinationChainPaused(gctx, dest.Slug)
			if err != nil {
				return fmt.Errorf("destination paused check: %w", err)
			}
			paused = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.log.Error().Err(err).Msg("failed to load balances")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.tokens.IsLatest(ticket) {
		o.log.Debug().Uint64("request", ticket).Msg("discarding stale token fetch")
		return
	}

	s.sourceToken, s.destToken = srcToken, dstToken
	s.sourceBalance, s.destBalance, s.nativeBalance = srcBalance, dstBalance, nativeBalance
	s.destinationPaused = paused

	o.applyRouteErrorLocked()
	o.applyWarningLocked()
}

// refreshQuote prices the current amount. Only the most recently issued
// quote is applied; earlier ones finishing later are dropped.
func (o *Orchestrator) refreshQuote(ctx context.Context) {
	o.mu.Lock()
	if o.s.closed {
		o.mu.Unlock()
		return
	}

	s := &o.s
	s.quoteWarning = ""
	s.minOutput = nil
	s.bonderFee = nil
	s.details = nil
	s.priceImpact = decimal.NullDecimal{}

	if s.sourceAmount == "" || s.sourceToken.IsZero() || s.unsupported != nil {
		o.quotes.Invalidate()
		s.destAmount = ""
		if !s.state.busy() {
			s.state = StateIdle
		}
		o.applyWarningLocked()
		o.mu.Unlock()
		return
	}

	id := o.quotes.Next()
	option := s.option
	decimals := s.sourceToken.Decimals
	req := QuoteRequest{
		Source:      s.source,
		Dest:        s.dest,
		ToHToken:    s.toHToken,
		TokenSymbol: o.bridge.TokenSymbol(),
		Decimals:    decimals,
		Amount:      o.parsedAmountLocked(),
	}
	if !s.state.busy() {
		s.state = StateQuotePending
	}
	o.applyWarningLocked()
	o.mu.Unlock()

	res, err := option.Quote(ctx, o.bridge, req)

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.quotes.IsLatest(id) {
		o.log.Debug().Uint64("request", id).Msg("discarding stale quote")
		return
	}

	if err != nil {
		o.log.Error().Err(err).Str("option", option.Slug).Msg("failed to fetch quote")
		s.destAmount = ""
		if !s.state.busy() {
			s.state = StateIdle
		}
		o.applyWarningLocked()
		return
	}

	s.destAmount = ""
	if res.AmountOut != nil {
		s.destAmount = amount.FormatInteger(res.AmountOut, decimals)
		if option.Kind == KindAmm {
			s.minOutput = amount.ApplySlippage(res.AmountOut, amount.SlippageToBps(o.settings.SlippageTolerance))
		}
	}
	s.bonderFee = res.BonderFee
	s.details = res.Details
	s.priceImpact = res.PriceImpact
	s.quoteWarning = res.Warning
	if !s.state.busy() {
		s.state = StateQuoteReady
	}
	o.applyWarningLocked()
}

// routeErrorLocked returns the route error of the current selection, or nil
func (o *Orchestrator) routeErrorLocked() *UnsupportedRouteError {
	s := &o.s

	symbol := s.sourceToken.Symbol
	if symbol == "" {
		symbol = o.bridge.TokenSymbol()
	}

	return deriveError(routeCheck{
		unsupported:  s.unsupported,
		withoutAmm:   s.withoutAmm,
		kind:         s.option.Kind,
		deprecated:   o.bridge.IsDeprecated(),
		sourceIsL1:   s.source.IsLayer1,
		sourceSymbol: symbol,
	})
}

// applyRouteErrorLocked sets or clears the error slot from the route checks
func (o *Orchestrator) applyRouteErrorLocked() {
	if routeErr := o.routeErrorLocked(); routeErr != nil {
		o.s.err = routeErr.Error()
		return
	}
	o.s.err = ""
}

func (o *Orchestrator) applyWarningLocked() {
	s := &o.s
	s.warning = deriveWarning(warningCheck{
		sourceBalance: s.sourceBalance,
		parsedAmount:  o.parsedAmountLocked(),
		nativeBalance: s.nativeBalance,
		source:        s.source,
		priceImpact:   s.priceImpact,
		sourceAmount:  s.sourceAmount,
		destAmount:    s.destAmount,
		quoteWarning:  s.quoteWarning,
	})
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func copyRecord(r *tracker.Record) *tracker.Record {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
