package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"hop-convert/pkg/network"
)

const DefaultHistoryFileName = ".hop-convert-txs.json"

// Config holds the application configuration
type Config struct {
	PrivateKey        string
	SlippageTolerance float64 // percent, 0.5 means 0.5%
	DeadlineMinutes   int
	ApproveUnlimited  bool
	LeaveGasBuffer    bool
	MaxGasLimit       uint64
	LogLevel          string
	HistoryPath       string
	PollInterval      time.Duration
	HopAPIURL         string // empty disables the Hop fee API
	Networks          []network.Descriptor
	Bridges           map[string]BridgeConfig
}

// BridgeConfig describes one bridged token and its contracts per chain
type BridgeConfig struct {
	Name         string                    `mapstructure:"name"`
	Decimals     int                       `mapstructure:"decimals"`
	NonAmm       bool                      `mapstructure:"non_amm"`
	Deprecated   bool                      `mapstructure:"deprecated"`
	BonderFeeBps int64                     `mapstructure:"bonder_fee_bps"`
	MinBonderFee string                    `mapstructure:"min_bonder_fee"`
	Chains       map[string]ChainAddresses `mapstructure:"chains"`
}

// ChainAddresses holds the contract addresses of a bridge on one chain.
// Layer-1 entries only use CanonicalToken and Bridge; an empty canonical
// token address on layer-1 means the native token.
type ChainAddresses struct {
	CanonicalToken string `mapstructure:"canonical_token"`
	HopBridgeToken string `mapstructure:"hop_bridge_token"`
	Bridge         string `mapstructure:"bridge"`
	SaddleSwap     string `mapstructure:"saddle_swap"`
}

type networkConfig struct {
	Name              string   `mapstructure:"name"`
	Slug              string   `mapstructure:"slug"`
	NativeTokenSymbol string   `mapstructure:"native_token_symbol"`
	RPCURL            string   `mapstructure:"rpc_url"`
	FallbackRPCURLs   []string `mapstructure:"fallback_rpc_urls"`
	NetworkID         int64    `mapstructure:"network_id"`
	IsLayer1          bool     `mapstructure:"is_layer1"`
	ExplorerURL       string   `mapstructure:"explorer_url"`
	NativeBridgeURL   string   `mapstructure:"native_bridge_url"`
	WaitConfirmations uint64   `mapstructure:"wait_confirmations"`
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".hop-convert")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("slippage_tolerance", 0.5)
	viper.SetDefault("deadline_minutes", 300)
	viper.SetDefault("approve_unlimited", true)
	viper.SetDefault("leave_gas_buffer", true)
	viper.SetDefault("max_gas_limit", 300000)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("poll_interval", "5s")
	viper.SetDefault("hop_api_url", "https://api.hop.exchange")

	// Read from environment variables
	viper.SetEnvPrefix("HOP_CONVERT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		PrivateKey:        viper.GetString("private_key"),
		SlippageTolerance: viper.GetFloat64("slippage_tolerance"),
		DeadlineMinutes:   viper.GetInt("deadline_minutes"),
		ApproveUnlimited:  viper.GetBool("approve_unlimited"),
		LeaveGasBuffer:    viper.GetBool("leave_gas_buffer"),
		MaxGasLimit:       viper.GetUint64("max_gas_limit"),
		LogLevel:          viper.GetString("log_level"),
		HistoryPath:       viper.GetString("history_path"),
		PollInterval:      viper.GetDuration("poll_interval"),
		HopAPIURL:         viper.GetString("hop_api_url"),
	}

	networks, err := loadNetworks()
	if err != nil {
		return nil, err
	}
	cfg.Networks = networks

	if err := viper.UnmarshalKey("bridges", &cfg.Bridges); err != nil {
		return nil, fmt.Errorf("failed to parse bridges: %w", err)
	}
	cfg.Bridges = normalizeBridges(cfg.Bridges)

	if cfg.HistoryPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.HistoryPath = filepath.Join(home, DefaultHistoryFileName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}

// Validate checks value ranges that viper cannot enforce
func (c *Config) Validate() error {
	if c.SlippageTolerance < 0 || c.SlippageTolerance > 100 {
		return fmt.Errorf("slippage_tolerance must be between 0 and 100, got %v", c.SlippageTolerance)
	}
	if c.DeadlineMinutes <= 0 {
		return fmt.Errorf("deadline_minutes must be positive, got %d", c.DeadlineMinutes)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	for symbol, b := range c.Bridges {
		if b.Decimals <= 0 {
			return fmt.Errorf("bridge %s: decimals must be set", symbol)
		}
	}
	return nil
}

// RequirePrivateKey returns an error when no signing key is configured
func (c *Config) RequirePrivateKey() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("private key not found. Please set HOP_CONVERT_PRIVATE_KEY environment variable or add private_key to .hop-convert.yaml")
	}
	return nil
}

// Deadline returns the swap deadline as a unix timestamp
func (c *Config) Deadline() *big.Int {
	return big.NewInt(time.Now().Add(time.Duration(c.DeadlineMinutes) * time.Minute).Unix())
}

// Directory builds the network directory from the configured networks
func (c *Config) Directory() (*network.Directory, error) {
	return network.NewDirectory(c.Networks)
}

// Bridge returns the configuration of a bridged token symbol
func (c *Config) Bridge(symbol string) (BridgeConfig, error) {
	b, ok := c.Bridges[strings.ToUpper(symbol)]
	if !ok {
		return BridgeConfig{}, fmt.Errorf("no bridge configured for token %s", symbol)
	}
	return b, nil
}

func loadNetworks() ([]network.Descriptor, error) {
	if !viper.IsSet("networks") {
		return network.DefaultNetworks(), nil
	}

	var raw []networkConfig
	if err := viper.UnmarshalKey("networks", &raw); err != nil {
		return nil, fmt.Errorf("failed to parse networks: %w", err)
	}

	networks := make([]network.Descriptor, 0, len(raw))
	for _, n := range raw {
		networks = append(networks, network.Descriptor{
			Name:              n.Name,
			Slug:              n.Slug,
			NativeTokenSymbol: n.NativeTokenSymbol,
			RPCURL:            n.RPCURL,
			FallbackRPCURLs:   n.FallbackRPCURLs,
			NetworkID:         n.NetworkID,
			IsLayer1:          n.IsLayer1,
			ExplorerURL:       n.ExplorerURL,
			NativeBridgeURL:   n.NativeBridgeURL,
			WaitConfirmations: n.WaitConfirmations,
		})
	}
	return networks, nil
}

// normalizeBridges upper-cases token symbols and lower-cases chain slugs
func normalizeBridges(in map[string]BridgeConfig) map[string]BridgeConfig {
	out := make(map[string]BridgeConfig, len(in))
	for symbol, b := range in {
		chains := make(map[string]ChainAddresses, len(b.Chains))
		for slug, addrs := range b.Chains {
			chains[strings.ToLower(slug)] = addrs
		}
		b.Chains = chains
		out[strings.ToUpper(symbol)] = b
	}
	return out
}
