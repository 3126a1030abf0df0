package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds all metadata for a single EVM network.
type Network struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	ChainID        int64    `json:"chain_id"`
	NativeCurrency string   `json:"native_currency"`
	RPCs           []string `json:"rpcs"`
	Explorer       string   `json:"explorer"`
	// FaucetURL is a public faucet for test networks (empty on mainnet).
	FaucetURL string `json:"faucet_url,omitempty"`
	Testnet   bool   `json:"testnet"`
}

// HexChainID returns the chain id in the 0x-prefixed form wallets report.
func (n *Network) HexChainID() string {
	return HexChainID(big.NewInt(n.ChainID))
}

// TxURL returns the explorer link for a transaction hash.
func (n *Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/tx/" + hash
}

// Registry is the network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

// NewRegistry returns the registry of every network ponzi knows about.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks: networks,
		byName:   make(map[string]*Network, len(networks)),
		byID:     make(map[int64]*Network, len(networks)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// GetByName finds a network by its slug name (e.g. "goerli").
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNetworkNotFound, name)
	}
	return n, nil
}

// GetByChainID finds a network by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: chain id %d", ErrNetworkNotFound, id)
	}
	return n, nil
}

// Next returns the network after name in registry order, wrapping around.
func (r *Registry) Next(name string) *Network {
	for i := range r.networks {
		if r.networks[i].Name == name {
			return &r.networks[(i+1)%len(r.networks)]
		}
	}
	return &r.networks[0]
}

// HexChainID formats a chain id the way EIP-1193 providers report it.
func HexChainID(id *big.Int) string {
	if id == nil {
		return ""
	}
	return "0x" + id.Text(16)
}

// ParseChainID accepts "0x5", "0x05" or "5" and returns the numeric id.
func ParseChainID(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return nil, false
		}
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

// --- network data ---

func allNetworks() []Network {
	return []Network{
		{
			Name: "goerli", DisplayName: "Goerli", ChainID: 5, Testnet: true,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://ethereum-goerli-rpc.publicnode.com", "https://rpc.ankr.com/eth_goerli"},
			Explorer:       "https://goerli.etherscan.io",
			FaucetURL:      "https://goerlifaucet.com",
		},
		{
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111, Testnet: true,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://rpc.sepolia.org", "https://sepolia.gateway.tenderly.co", "https://ethereum-sepolia-rpc.publicnode.com"},
			Explorer:       "https://sepolia.etherscan.io",
			FaucetURL:      "https://sepoliafaucet.com",
		},
		{
			Name: "holesky", DisplayName: "Holesky", ChainID: 17000, Testnet: true,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://ethereum-holesky-rpc.publicnode.com"},
			Explorer:       "https://holesky.etherscan.io",
			FaucetURL:      "https://holesky-faucet.pk910.de",
		},
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			Explorer:       "https://etherscan.io",
		},
		{
			Name: "localhost", DisplayName: "Localhost", ChainID: 31337, Testnet: true,
			NativeCurrency: "ETH",
			RPCs:           []string{"http://127.0.0.1:8545"},
		},
	}
}
