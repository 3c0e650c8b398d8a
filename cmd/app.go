package cmd

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hop-convert/config"
	"hop-convert/pkg/hop"
	"hop-convert/pkg/logging"
	"hop-convert/pkg/network"
	"hop-convert/pkg/tracker"
	"hop-convert/pkg/wallet"
)

// app holds the collaborators one command invocation shares
type app struct {
	cfg     *config.Config
	dir     *network.Directory
	pool    *network.Pool
	tracker *tracker.Tracker
	log     zerolog.Logger
}

// newApp loads configuration and builds the network pool and transaction
// tracker
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logging.SetLevel(level)

	dir, err := cfg.Directory()
	if err != nil {
		return nil, err
	}

	storage, err := tracker.NewStorage(cfg.HistoryPath)
	if err != nil {
		return nil, err
	}

	pool := network.NewPool(dir, logging.New("network"))
	dial := func(ctx context.Context, slug string) (tracker.ChainReader, error) {
		c, err := pool.Client(ctx, slug)
		if err != nil {
			return nil, err
		}
		return tracker.ClientReader{Client: c}, nil
	}

	return &app{
		cfg:     cfg,
		dir:     dir,
		pool:    pool,
		tracker: tracker.New(storage, dir, dial, cfg.PollInterval, logging.New("tracker")),
		log:     logging.New("cli"),
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

// bridge builds the Hop bridge of token symbol
func (a *app) bridge(symbol string) (*hop.Bridge, error) {
	bc, err := a.cfg.Bridge(symbol)
	if err != nil {
		return nil, err
	}

	dial := func(ctx context.Context, chain string) (hop.Caller, error) {
		c, err := a.pool.Client(ctx, chain)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	b, err := hop.New(symbol, bc, a.dir, dial, logging.New("hop"))
	if err != nil {
		return nil, err
	}
	if a.cfg.HopAPIURL != "" {
		b.UseAPI(hop.NewAPIClient(a.cfg.HopAPIURL), a.cfg.SlippageTolerance)
	}
	return b, nil
}

// wallet builds the signing wallet, connected to the network with the given
// slug
func (a *app) wallet(connected string, autoSwitch bool) (*wallet.EVM, error) {
	if err := a.cfg.RequirePrivateKey(); err != nil {
		return nil, err
	}

	dial := func(ctx context.Context, chain string) (wallet.Backend, error) {
		c, err := a.pool.Client(ctx, chain)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return wallet.NewEVM(a.cfg.PrivateKey, a.dir, connected, dial, wallet.Options{
		MaxGasLimit:  a.cfg.MaxGasLimit,
		PollInterval: a.cfg.PollInterval,
		AutoSwitch:   autoSwitch,
	}, logging.New("wallet"))
}
