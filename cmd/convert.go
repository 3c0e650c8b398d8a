package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hop-convert/pkg/amount"
	"hop-convert/pkg/convert"
	"hop-convert/pkg/tracker"
)

var (
	convertSession sessionFlags
	recipientAddr  string
	useMax         bool
	quoteOnly      bool
	noConfirm      bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <amount> <token>",
	Short: "Convert between a canonical token and its h-token",
	Long: `Convert a token between its canonical form and the Hop h-token.

The AMM option swaps through the Saddle pool of a layer-2 network. The Hop
bridge option sends from layer-1 to mint h-tokens on a layer-2, or burns
h-tokens on a layer-2 to receive the canonical token on layer-1.

Examples:
  # Canonical USDC to hUSDC through the Optimism AMM
  hop-convert convert 100 USDC --network optimism

  # hUSDC back to USDC
  hop-convert convert 100 hUSDC --network optimism --from-htoken

  # Mint hETH on Arbitrum by sending ETH from layer-1
  hop-convert convert 0.5 ETH --network arbitrum --via hop

  # Withdraw to layer-1 at another address
  hop-convert convert 50 hUSDC --network polygon --via hop --from-htoken --recipient 0x123...

  # Convert the whole balance
  hop-convert convert USDC --max --network gnosis`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertSession.register(convertCmd)
	convertCmd.Flags().StringVar(&recipientAddr, "recipient", "", "Custom recipient (hop bridge conversions only)")
	convertCmd.Flags().BoolVar(&useMax, "max", false, "Convert the largest spendable amount")
	convertCmd.Flags().BoolVar(&quoteOnly, "quote-only", false, "Show the quote without converting")
	convertCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runConvert(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	req, err := parseTokenArgs(args, useMax)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Loading balances..."
		s.Start()
	}

	o, w, err := openSession(ctx, a, req.Token, &convertSession, newPromptConfirmer(noConfirm || jsonOutput, jsonOutput))
	if err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}
	defer o.Close()

	if useMax {
		src := o.Snapshot().SourceNetwork
		gasCost, err := w.EstimateFee(ctx, src.Slug, a.cfg.MaxGasLimit)
		if err != nil {
			s.Stop()
			printError(fmt.Errorf("failed to estimate gas cost: %w", err))
			os.Exit(1)
		}
		req.Amount = o.MaxAmount(gasCost, a.cfg.LeaveGasBuffer)
		if req.Amount == "" {
			s.Stop()
			printError(errors.New("could not read the source balance"))
			os.Exit(1)
		}
	}

	if !jsonOutput {
		s.Stop()
		s.Suffix = " Fetching quote..."
		s.Start()
	}
	o.SetSourceAmount(ctx, req.Amount)
	if !jsonOutput {
		s.Stop()
	}

	snap := o.Snapshot()
	if jsonOutput {
		printQuoteJSON(snap)
	} else {
		displayQuote(snap)
	}

	if snap.Error != "" {
		printError(errors.New(snap.Error))
		os.Exit(1)
	}
	if quoteOnly {
		return
	}
	if snap.DestinationChainPaused {
		printError(fmt.Errorf("deposits to %s are currently paused", snap.DestNetwork.Name))
		os.Exit(1)
	}
	if !snap.ValidFormFields {
		printError(errors.New("nothing to convert: check the amount and your balance"))
		os.Exit(1)
	}

	if err := o.ConvertTokens(ctx, recipientAddr); err != nil {
		printError(err)
		os.Exit(1)
	}

	snap = o.Snapshot()
	switch snap.State {
	case convert.StateSuccess:
		rec := snap.Tx
		if rec == nil {
			if recent := a.tracker.List(); len(recent) > 0 {
				rec = recent[0]
			}
		}
		displaySubmitted(rec, a, jsonOutput)
	case convert.StateCancelled:
		fmt.Println("\nConversion cancelled.")
	default:
		if snap.Error != "" {
			printError(errors.New(snap.Error))
			os.Exit(1)
		}
		fmt.Println("\nNothing was sent.")
	}
}

func displayQuote(snap convert.Snapshot) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                  CONVERSION QUOTE (%s)", snap.Option.Name)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s on %s\n", snap.SourceAmount, color.YellowString(snap.SourceToken.Symbol), snap.SourceNetwork.Name)
	fmt.Printf("  To:                ~%s %s on %s\n", snap.DestAmount, color.YellowString(snap.DestToken.Symbol), snap.DestNetwork.Name)
	if snap.SourceBalance != nil {
		fmt.Printf("  Balance:           %s %s\n", amount.FormatDisplay(snap.SourceBalance, snap.SourceToken.Decimals, 4), snap.SourceToken.Symbol)
	}
	for _, row := range snap.Details {
		fmt.Printf("  %-19s%s\n", row.Label+":", row.Value)
	}
	if snap.MinOutput != nil {
		fmt.Printf("  Minimum Received:  %s %s\n", amount.FormatInteger(snap.MinOutput, snap.DestToken.Decimals), snap.DestToken.Symbol)
	}
	if snap.DestinationChainPaused {
		color.Red("\n  Deposits to %s are currently paused", snap.DestNetwork.Name)
	}
	if snap.Warning != "" {
		color.Yellow("\n  %s", snap.Warning)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func printQuoteJSON(snap convert.Snapshot) {
	output := map[string]interface{}{
		"option":          snap.Option.Slug,
		"source_network":  snap.SourceNetwork.Slug,
		"dest_network":    snap.DestNetwork.Slug,
		"source_amount":   snap.SourceAmount,
		"source_token":    snap.SourceToken.Symbol,
		"dest_amount":     snap.DestAmount,
		"dest_token":      snap.DestToken.Symbol,
		"valid":           snap.ValidFormFields,
		"warning":         snap.Warning,
		"error":           snap.Error,
		"dest_paused":     snap.DestinationChainPaused,
		"needs_fee_token": snap.NeedsTokenForFee,
	}
	if snap.MinOutput != nil {
		output["min_output"] = amount.FormatInteger(snap.MinOutput, snap.DestToken.Decimals)
	}
	if snap.BonderFee != nil {
		output["bonder_fee"] = amount.FormatInteger(snap.BonderFee, snap.SourceToken.Decimals)
	}
	if snap.PriceImpact.Valid {
		output["price_impact"] = snap.PriceImpact.Decimal.StringFixed(4)
	}
	jsonData, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(jsonData))
}

func displaySubmitted(rec *tracker.Record, a *app, jsonOutput bool) {
	if rec == nil {
		printSuccess("Conversion sent.")
		return
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	color.Green("\n✓ Conversion confirmed")
	fmt.Printf("  Transaction: %s\n", color.CyanString(rec.Hash))
	if net, ok := a.dir.Lookup(rec.NetworkSlug); ok && net.ExplorerURL != "" {
		fmt.Printf("  Explorer:    %s\n", net.TxURL(rec.Hash))
	}
	if rec.NetworkSlug != rec.DestNetworkSlug {
		fmt.Println("\nFunds arrive on the destination network once the bridge relays the transfer.")
		color.Cyan("  hop-convert status %s --watch\n", rec.Hash)
	}
}
