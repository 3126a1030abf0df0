package rpc

import (
	"context"
	"time"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
)

const healthTimeout = 5 * time.Second

// HealthCheck pings a single EVM RPC and returns whether it's healthy.
// A node is healthy if it answers within healthTimeout and its block is within
// staleBlockThreshold of bestBlock (pass 0 to skip the recency check).
func HealthCheck(ctx context.Context, url string, bestBlock uint64, opts ...chain.ClientOption) (Endpoint, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	latency, blockNum, err := chain.NewEVMClient(url, opts...).Ping(timeoutCtx)

	ep := Endpoint{
		URL:         url,
		Latency:     latency,
		BlockNumber: blockNum,
		Healthy:     err == nil,
		Checked:     true,
	}
	if err == nil && isStale(blockNum, bestBlock) {
		ep.Healthy = false
	}
	return ep, err
}
