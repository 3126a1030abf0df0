package dapp

import (
	"fmt"
	"math/big"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
)

// Guard decides whether a chain id is the one network the contract lives on.
type Guard struct {
	supported *big.Int
	network   string
}

// NewGuard returns a guard for supportedChainID ("0x5" or "5"). network is
// the display name used in the diagnostic.
func NewGuard(supportedChainID, network string) Guard {
	id, _ := chain.ParseChainID(supportedChainID)
	return Guard{supported: id, network: network}
}

// Valid reports whether chainID is the supported network. Ids are compared
// numerically, so "0x05", "0x5" and "5" are the same chain.
func (g Guard) Valid(chainID string) bool {
	if g.supported == nil {
		return false
	}
	id, ok := chain.ParseChainID(chainID)
	return ok && id.Cmp(g.supported) == 0
}

// Diagnostic is the banner text for chainID, "" when it is valid.
func (g Guard) Diagnostic(chainID string) string {
	if g.Valid(chainID) {
		return ""
	}
	return fmt.Sprintf("Please select %s network", g.network)
}

// SupportedChainID returns the supported id in the hex form providers report.
func (g Guard) SupportedChainID() string { return chain.HexChainID(g.supported) }
