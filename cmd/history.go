package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hop-convert/pkg/tracker"
)

var (
	historyLimit  int
	historyStatus string
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"txs", "ls"},
	Short:   "List recorded conversion transactions",
	Long: `List the conversion transactions recorded in the history file, newest first.
The stored status is shown as last seen; use status to refresh one.

Examples:
  hop-convert history
  hop-convert history --status pending
  hop-convert history --limit 5 --json`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of transactions to show (0 for all)")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Only show transactions with this status")
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	records := a.tracker.List()
	if historyStatus != "" {
		var filtered []*tracker.Record
		for _, r := range records {
			if strings.EqualFold(string(r.Status), historyStatus) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}
	if historyLimit > 0 && len(records) > historyLimit {
		records = records[:historyLimit]
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(records) == 0 {
		fmt.Println("\nNo transactions found.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 100))
	color.Green("                                   CONVERSION HISTORY")
	fmt.Println(strings.Repeat("=", 100))

	for _, r := range records {
		fmt.Printf("\n  %s  %-10s %-6s %s -> %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"),
			getColoredStatus(r.Status),
			r.TokenSymbol,
			r.NetworkSlug,
			r.DestNetworkSlug)
		fmt.Printf("  %s\n", color.HiBlackString(r.Hash))
	}

	fmt.Println("\n" + strings.Repeat("=", 100) + "\n")
}
