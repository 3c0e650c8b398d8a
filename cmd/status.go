package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hop-convert/pkg/tracker"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a conversion",
	Long: `Check a recorded conversion transaction on its source network, updating
its confirmation status and finality.

Examples:
  hop-convert status 0x1234...abcd
  hop-convert status 0x1234...abcd --watch
  hop-convert status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until the transaction is final")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	hash := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if watchStatus {
		watchTxStatus(ctx, a, hash, jsonOutput)
	} else {
		checkTxStatus(ctx, a, hash, jsonOutput)
	}
}

func checkTxStatus(ctx context.Context, a *app, hash string, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking transaction status..."
		s.Start()
	}

	rec, err := a.tracker.Refresh(ctx, hash)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(a, rec)
	}
}

func watchTxStatus(ctx context.Context, a *app, hash string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(hash))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	for {
		rec, err := a.tracker.Refresh(ctx, hash)
		if err != nil {
			color.Red("Error: %v", err)
		} else {
			displayStatus(a, rec)
			if isSettled(a, rec) {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// isSettled reports whether nothing about rec will change anymore
func isSettled(a *app, rec *tracker.Record) bool {
	if rec.Status != tracker.StatusConfirmed {
		return rec.Status.IsTerminal()
	}
	return rec.Finalized || a.dir.WaitConfirmations(rec.NetworkSlug) == 0
}

func displayStatus(a *app, rec *tracker.Record) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                      CONVERSION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Transaction:     %s\n", color.CyanString(rec.Hash))
	fmt.Printf("  Status:          %s\n", getColoredStatus(rec.Status))
	fmt.Printf("  Token:           %s\n", rec.TokenSymbol)
	fmt.Printf("  Route:           %s -> %s\n", rec.NetworkSlug, rec.DestNetworkSlug)
	if rec.BlockNumber > 0 {
		fmt.Printf("  Block:           %d\n", rec.BlockNumber)
	}
	if rec.Status == tracker.StatusConfirmed {
		fmt.Printf("  Finalized:       %t\n", rec.Finalized)
	}
	if rec.ReplacedBy != "" {
		fmt.Printf("  Replaced By:     %s\n", color.HiBlackString(rec.ReplacedBy))
	}
	if rec.Replaces != "" {
		fmt.Printf("  Replaces:        %s\n", color.HiBlackString(rec.Replaces))
	}
	if net, ok := a.dir.Lookup(rec.NetworkSlug); ok {
		if url := net.TxURL(rec.Hash); url != "" {
			fmt.Printf("  Explorer:        %s\n", url)
		}
	}
	fmt.Printf("  Last Updated:    %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status tracker.Status) string {
	s := strings.ToUpper(string(status))

	switch status {
	case tracker.StatusConfirmed:
		return color.GreenString(s)
	case tracker.StatusPending:
		return color.YellowString(s)
	case tracker.StatusFailed, tracker.StatusDropped:
		return color.RedString(s)
	case tracker.StatusReplaced:
		return color.MagentaString(s)
	default:
		return s
	}
}
