package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	approveSession sessionFlags
	approveYes     bool
)

var approveCmd = &cobra.Command{
	Use:   "approve <amount> <token>",
	Short: "Approve the conversion contract to spend a token",
	Long: `Approve the AMM pool or Hop bridge that a conversion spends through.
With approve_unlimited set the allowance is unlimited, otherwise it is exactly
the amount. Native tokens never need approval.

Examples:
  hop-convert approve 100 USDC --network optimism
  hop-convert approve 100 hUSDC --network optimism --from-htoken
  hop-convert approve 100 USDC --network ethereum --via hop`,
	Args: cobra.ExactArgs(2),
	Run:  runApprove,
}

func init() {
	rootCmd.AddCommand(approveCmd)

	approveSession.register(approveCmd)
	approveCmd.Flags().BoolVarP(&approveYes, "yes", "y", false, "Skip confirmation prompt")
}

func runApprove(cmd *cobra.Command, args []string) {
	req, err := parseTokenArgs(args, false)
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

	o, _, err := openSession(ctx, a, req.Token, &approveSession, newPromptConfirmer(approveYes, false))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer o.Close()
	o.SetSourceAmount(ctx, req.Amount)

	snap := o.Snapshot()
	if snap.Error != "" {
		printError(errors.New(snap.Error))
		os.Exit(1)
	}
	needed, err := o.NeedsApproval(ctx)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if !needed {
		printSuccess("No approval needed for " + snap.SourceAmount + " " + snap.SourceToken.Symbol + " on " + snap.SourceNetwork.Name + ".")
		return
	}

	if !approveYes && !confirm(os.Stdin, "Approve "+snap.SourceAmount+" "+snap.SourceToken.Symbol+" on "+snap.SourceNetwork.Name+"?") {
		fmt.Println("\nApproval cancelled.")
		return
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Waiting for approval to be mined..."
	s.Start()
	tx, err := o.ApproveTokens(ctx)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if tx == nil {
		fmt.Println("\nApproval cancelled.")
		return
	}

	color.Green("\n✓ Approval confirmed")
	fmt.Printf("  Transaction: %s\n", color.CyanString(tx.Hash().Hex()))
	if url := snap.SourceNetwork.TxURL(tx.Hash().Hex()); url != "" {
		fmt.Printf("  Explorer:    %s\n\n", url)
	}
}
