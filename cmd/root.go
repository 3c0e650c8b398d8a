package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hop-convert",
	Short: "A CLI for converting between canonical tokens and Hop h-tokens",
	Long: `hop-convert converts a bridged token between its canonical form and the
Hop h-token. On a layer-2 network the conversion swaps through the Hop AMM;
between layer-1 and layer-2 it mints or burns through the Hop bridge.

Examples:
  hop-convert convert 100 USDC --network optimism
  hop-convert convert 100 hUSDC --network optimism --from-htoken
  hop-convert convert 0.5 ETH --network ethereum --via hop
  hop-convert convert USDC --max --network arbitrum
  hop-convert approve 100 USDC --network optimism
  hop-convert networks
  hop-convert history
  hop-convert status <tx-hash> --watch`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
