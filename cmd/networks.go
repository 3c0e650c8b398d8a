package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hop-convert/config"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the configured networks",
	Long: `List the networks conversions can run on, marking layer-1 and the default
layer-2 that AMM conversions fall back to.

Examples:
  hop-convert networks
  hop-convert networks --json`,
	Args: cobra.NoArgs,
	Run:  runNetworks,
}

func init() {
	rootCmd.AddCommand(networksCmd)
}

func runNetworks(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	dir, err := cfg.Directory()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(dir.All(), "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                          NETWORKS")
	fmt.Println(strings.Repeat("=", 70))

	defaultL2 := dir.DefaultL2()
	for _, n := range dir.All() {
		layer := "L2"
		if n.IsLayer1 {
			layer = "L1"
		}
		note := ""
		if n.Equal(defaultL2) {
			note = color.HiBlackString(" (default)")
		}
		fmt.Printf("\n  %-12s %s %-10s id %-8d gas %s%s\n",
			color.CyanString(n.Slug), layer, n.Name, n.NetworkID, color.YellowString(n.NativeTokenSymbol), note)
	}

	if len(cfg.Bridges) > 0 {
		fmt.Println("\n" + strings.Repeat("-", 70))
		symbols := make([]string, 0, len(cfg.Bridges))
		for symbol := range cfg.Bridges {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)

		for _, symbol := range symbols {
			b := cfg.Bridges[symbol]
			chains := make([]string, 0, len(b.Chains))
			for slug := range b.Chains {
				chains = append(chains, slug)
			}
			sort.Strings(chains)
			fmt.Printf("  %-8s %s\n", color.YellowString(symbol), strings.Join(chains, ", "))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
