package network

// DefaultNetworks is the mainnet network table used when the configuration
// does not override it. Order matters: the first layer-2 entry is the
// default L2.
func DefaultNetworks() []Descriptor {
	return []Descriptor{
		{
			Name:              "Ethereum",
			Slug:              "ethereum",
			NativeTokenSymbol: "ETH",
			RPCURL:            "https://ethereum-rpc.publicnode.com",
			FallbackRPCURLs:   []string{"https://rpc.ankr.com/eth"},
			NetworkID:         1,
			IsLayer1:          true,
			ExplorerURL:       "https://etherscan.io",
			WaitConfirmations: 64,
		},
		{
			Name:              "Polygon",
			Slug:              "polygon",
			NativeTokenSymbol: "MATIC",
			RPCURL:            "https://polygon-rpc.com",
			FallbackRPCURLs:   []string{"https://polygon-bor-rpc.publicnode.com"},
			NetworkID:         137,
			ExplorerURL:       "https://polygonscan.com",
			NativeBridgeURL:   "https://wallet.polygon.technology/bridge",
			WaitConfirmations: 256,
		},
		{
			Name:              "Gnosis",
			Slug:              "gnosis",
			NativeTokenSymbol: "XDAI",
			RPCURL:            "https://rpc.gnosischain.com",
			FallbackRPCURLs:   []string{"https://gnosis-rpc.publicnode.com"},
			NetworkID:         100,
			ExplorerURL:       "https://gnosisscan.io",
			NativeBridgeURL:   "https://bridge.gnosischain.com",
			WaitConfirmations: 20,
		},
		{
			Name:              "Optimism",
			Slug:              "optimism",
			NativeTokenSymbol: "ETH",
			RPCURL:            "https://mainnet.optimism.io",
			FallbackRPCURLs:   []string{"https://optimism-rpc.publicnode.com"},
			NetworkID:         10,
			ExplorerURL:       "https://optimistic.etherscan.io",
			NativeBridgeURL:   "https://app.optimism.io/bridge",
			WaitConfirmations: 222,
		},
		{
			Name:              "Arbitrum",
			Slug:              "arbitrum",
			NativeTokenSymbol: "ETH",
			RPCURL:            "https://arb1.arbitrum.io/rpc",
			FallbackRPCURLs:   []string{"https://arbitrum-one-rpc.publicnode.com"},
			NetworkID:         42161,
			ExplorerURL:       "https://arbiscan.io",
			NativeBridgeURL:   "https://bridge.arbitrum.io",
			WaitConfirmations: 20,
		},
	}
}
