package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"

	"hop-convert/pkg/convert"
	"hop-convert/pkg/types"
)

// promptConfirmer shows the conversion on the terminal and asks before
// anything is sent
type promptConfirmer struct {
	in          io.Reader
	autoConfirm bool
	quiet       bool
}

var _ convert.Confirmer = (*promptConfirmer)(nil)

func newPromptConfirmer(autoConfirm, quiet bool) *promptConfirmer {
	return &promptConfirmer{in: os.Stdin, autoConfirm: autoConfirm, quiet: quiet}
}

func (c *promptConfirmer) Show(ctx context.Context, req convert.ConfirmRequest, onConfirm func(context.Context) (*ethtypes.Transaction, error)) (*ethtypes.Transaction, error) {
	if !c.quiet {
		displayConfirmation(req)
	}
	if !c.autoConfirm && !confirm(c.in, "Proceed with conversion?") {
		return nil, nil
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !c.quiet {
		s.Suffix = " Sending transaction..."
		s.Start()
	}
	tx, err := onConfirm(ctx)
	if !c.quiet {
		s.Stop()
	}
	return tx, err
}

func displayConfirmation(req convert.ConfirmRequest) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                  CONFIRM CONVERSION")
	fmt.Println(strings.Repeat("=", 60))

	printLeg("From", req.Source)
	printLeg("To", req.Dest)
	if req.CustomRecipient != "" {
		fmt.Printf("  Recipient:         %s\n", color.CyanString(req.CustomRecipient))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func printLeg(label string, leg types.Leg) {
	fmt.Printf("  %-19s%s %s on %s\n", label+":", leg.Amount, color.YellowString(leg.Token.Symbol), leg.Network.Name)
}

func confirm(in io.Reader, question string) bool {
	reader := bufio.NewReader(in)
	fmt.Printf("\n%s (y/N): ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
