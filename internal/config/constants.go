package config

import "time"

// Deployment the client talks to unless configured otherwise.
const (
	DefaultContractAddress = "0x933033cb97Df7fb4b32453b4aaa6776C4dC8Cee0"
	DefaultNetwork         = "goerli"
	DefaultListenAddr      = "127.0.0.1:7545"
)

// GasLimitContractCall is the EstimateGas fallback when the node cannot be
// reached for simulation. A conservative upper bound for deposit/withdraw.
const GasLimitContractCall = uint64(200_000)

// Timeouts and intervals used across cmd and the wallet provider.
const (
	RPCSelectTimeout         = 10 * time.Second // RPC benchmark / selection
	DefaultChainPollInterval = 4 * time.Second
)
