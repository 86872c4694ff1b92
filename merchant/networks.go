package merchant

// NetworkConfig describes an EVM network this library can price payments
// for: its chain id and the EIP-3009 capable USDC deployment used for
// dollar-denominated prices.
type NetworkConfig struct {
	ChainID      int64
	USDCAddress  string
	USDCName     string
	USDCVersion  string
	USDCDecimals int32
}

var networks = map[string]NetworkConfig{
	"base": {
		ChainID:      8453,
		USDCAddress:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		USDCName:     "USD Coin",
		USDCVersion:  "2",
		USDCDecimals: 6,
	},
	"base-sepolia": {
		ChainID:      84532,
		USDCAddress:  "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		USDCName:     "USDC",
		USDCVersion:  "2",
		USDCDecimals: 6,
	},
	"avalanche": {
		ChainID:      43114,
		USDCAddress:  "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		USDCName:     "USD Coin",
		USDCVersion:  "2",
		USDCDecimals: 6,
	},
	"avalanche-fuji": {
		ChainID:      43113,
		USDCAddress:  "0x5425890298aed601595a70AB815c96711a31Bc65",
		USDCName:     "USD Coin",
		USDCVersion:  "2",
		USDCDecimals: 6,
	},
	"arbitrum-sepolia": {
		ChainID:      421614,
		USDCAddress:  "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d",
		USDCName:     "USDC",
		USDCVersion:  "2",
		USDCDecimals: 6,
	},
}

// IsSupportedNetwork reports whether payments can be priced on the network.
func IsSupportedNetwork(network string) bool {
	_, ok := networks[network]
	return ok
}

// ChainID returns the chain id for a supported network.
func ChainID(network string) (int64, bool) {
	cfg, ok := networks[network]
	if !ok {
		return 0, false
	}
	return cfg.ChainID, true
}

// Network returns the full configuration for a supported network.
func Network(network string) (NetworkConfig, bool) {
	cfg, ok := networks[network]
	return cfg, ok
}

// SupportedNetworks lists every network with a configuration.
func SupportedNetworks() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	return names
}
