package config

import (
	"fmt"
	"sort"
)

// Network holds per-chain connection defaults.
type Network struct {
	Name     string
	ChainID  int64
	RPCURL   string
	Explorer string
}

var networks = map[string]Network{
	"bsc": {
		Name:     "bsc",
		ChainID:  56,
		RPCURL:   "https://bsc-dataseed.binance.org/",
		Explorer: "https://bscscan.com",
	},
	"bsc-testnet": {
		Name:     "bsc-testnet",
		ChainID:  97,
		RPCURL:   "https://data-seed-prebsc-1-s1.binance.org:8545/",
		Explorer: "https://testnet.bscscan.com",
	},
}

// GetNetwork returns the preset for name.
func GetNetwork(name string) (Network, error) {
	n, ok := networks[name]
	if !ok {
		return Network{}, fmt.Errorf("unsupported network %q (known: %v)", name, Networks())
	}
	return n, nil
}

// Networks lists the preset names.
func Networks() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TxURL links a transaction on the network's explorer.
func (n Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return hash
	}
	return n.Explorer + "/tx/" + hash
}
