package cmd

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hop-convert/pkg/convert"
)

func TestRouteFor(t *testing.T) {
	tests := []struct {
		name  string
		flags sessionFlags
		want  convert.Route
	}{
		{"defaults", sessionFlags{}, convert.Route{ToHToken: true}},
		{"via hop", sessionFlags{via: "Hop"}, convert.Route{Pathname: "/convert/hop", Via: "Hop", ToHToken: true}},
		{"from h-token", sessionFlags{via: "amm", fromHToken: true}, convert.Route{Pathname: "/convert/amm", Via: "amm"}},
		{"route wins", sessionFlags{via: "amm", route: "/convert/hop?fromHToken=true"}, convert.Route{Pathname: "/convert/hop", Via: "hop"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.routeFor()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&sessionFlags{route: "/pool/usdc"}).routeFor()
	assert.Error(t, err)
}

func TestParseTokenArgs(t *testing.T) {
	req, err := parseTokenArgs([]string{"1.5", "usdc"}, false)
	require.NoError(t, err)
	assert.Equal(t, "1.5", req.Amount)
	assert.Equal(t, "USDC", req.Token)

	req, err = parseTokenArgs([]string{"hUSDC"}, true)
	require.NoError(t, err)
	assert.Empty(t, req.Amount)
	assert.Equal(t, "USDC", req.Token)

	_, err = parseTokenArgs([]string{"USDC"}, false)
	assert.Error(t, err)
}

func TestPromptConfirmer(t *testing.T) {
	sent := ethtypes.NewTransaction(1, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)
	onConfirm := func(context.Context) (*ethtypes.Transaction, error) { return sent, nil }
	req := convert.ConfirmRequest{Kind: "convert"}

	tests := []struct {
		name   string
		input  string
		auto   bool
		wantTx bool
	}{
		{"yes", "y\n", false, true},
		{"full yes", "YES\n", false, true},
		{"no", "n\n", false, false},
		{"empty input", "", false, false},
		{"auto confirm", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &promptConfirmer{in: strings.NewReader(tt.input), autoConfirm: tt.auto, quiet: true}
			tx, err := c.Show(context.Background(), req, onConfirm)
			require.NoError(t, err)
			if tt.wantTx {
				assert.Equal(t, sent, tx)
			} else {
				assert.Nil(t, tx)
			}
		})
	}
}
