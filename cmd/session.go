package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hop-convert/pkg/convert"
	"hop-convert/pkg/logging"
	"hop-convert/pkg/parser"
	"hop-convert/pkg/types"
	"hop-convert/pkg/wallet"
)

// sessionFlags select the route of a conversion
type sessionFlags struct {
	network    string
	via        string
	route      string
	fromHToken bool
	autoSwitch bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.network, "network", "n", "", "Selected network (default: the default layer-2)")
	cmd.Flags().StringVar(&f.via, "via", "", "Conversion option: amm or hop")
	cmd.Flags().StringVar(&f.route, "route", "", "App route to rebuild the session from, e.g. /convert/amm?fromHToken=true")
	cmd.Flags().BoolVar(&f.fromHToken, "from-htoken", false, "Convert from the h-token to the canonical token")
	cmd.Flags().BoolVar(&f.autoSwitch, "auto-switch", true, "Move the wallet to the source network; when false the selected network must be the source")
}

// routeFor builds the session route from the flags; --route wins over
// --via and --from-htoken
func (f *sessionFlags) routeFor() (convert.Route, error) {
	if f.route != "" {
		return parser.ParseRoute(f.route)
	}

	route := convert.Route{Via: f.via, ToHToken: !f.fromHToken}
	if f.via != "" {
		route.Pathname = "/convert/" + strings.ToLower(f.via)
	}
	return route, nil
}

// parseTokenArgs reads "<amount> <token>" or, when amount is optional,
// a lone "<token>"
func parseTokenArgs(args []string, amountOptional bool) (*types.ConvertRequest, error) {
	if amountOptional && len(args) == 1 {
		return &types.ConvertRequest{Token: parser.NormalizeTokenSymbol(types.CanonicalSymbol(args[0]))}, nil
	}

	req, err := parser.ParseConvertCommand(strings.Join(args, " "))
	if err != nil {
		return nil, err
	}
	if err := parser.ValidateConvertRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// openSession mounts a conversion session for token
func openSession(ctx context.Context, a *app, token string, f *sessionFlags, confirmer convert.Confirmer) (*convert.Orchestrator, *wallet.EVM, error) {
	route, err := f.routeFor()
	if err != nil {
		return nil, nil, err
	}

	selected := f.network
	if selected == "" {
		selected = a.dir.DefaultL2().Slug
	}
	if _, ok := a.dir.Lookup(selected); !ok {
		return nil, nil, fmt.Errorf("unknown network %q (try: hop-convert networks)", selected)
	}

	b, err := a.bridge(token)
	if err != nil {
		return nil, nil, err
	}
	w, err := a.wallet(selected, f.autoSwitch)
	if err != nil {
		return nil, nil, err
	}

	o := convert.NewOrchestrator(convert.Deps{
		Bridge:    b,
		Wallet:    w,
		Confirmer: confirmer,
		Tracker:   a.tracker,
		Directory: a.dir,
		Settings: convert.Settings{
			SlippageTolerance: a.cfg.SlippageTolerance,
			Deadline:          a.cfg.Deadline,
			ApproveUnlimited:  a.cfg.ApproveUnlimited,
		},
		Logger: logging.New("convert"),
	})

	a.log.Debug().
		Str("token", token).
		Str("network", selected).
		Str("pathname", route.Pathname).
		Str("via", route.Via).
		Bool("to_htoken", route.ToHToken).
		Msg("mounting session")

	if err := o.Mount(ctx, route, selected); err != nil {
		return nil, nil, err
	}
	return o, w, nil
}
