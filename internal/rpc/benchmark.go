package rpc

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
)

// BenchmarkResult holds the result of a single endpoint benchmark.
type BenchmarkResult struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// BenchmarkEVM pings all EVM RPC URLs in parallel and returns results in the
// same order as urls. Individual failures are reported per result.
func BenchmarkEVM(ctx context.Context, urls []string, opts ...chain.ClientOption) []BenchmarkResult {
	results := make([]BenchmarkResult, len(urls))
	var g errgroup.Group

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			latency, block, err := chain.NewEVMClient(url, opts...).Ping(ctx)
			results[i] = BenchmarkResult{
				URL:         url,
				Latency:     latency,
				BlockNumber: block,
				Err:         err,
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// ResultsToEndpoints converts benchmark results to picker Endpoints.
// All returned endpoints have Checked: true since they have been actively tested.
func ResultsToEndpoints(results []BenchmarkResult) []Endpoint {
	endpoints := make([]Endpoint, 0, len(results))
	for _, r := range results {
		endpoints = append(endpoints, Endpoint{
			URL:         r.URL,
			Latency:     r.Latency,
			BlockNumber: r.BlockNumber,
			Healthy:     r.Err == nil,
			Checked:     true,
		})
	}
	return endpoints
}

// BestEVM runs a benchmark and returns the best EVM endpoint URL using the given algorithm.
func BestEVM(ctx context.Context, urls []string, algo Algorithm, opts ...chain.ClientOption) (string, error) {
	return bestWith(ctx, NewPicker(algo), urls, opts...)
}

func bestWith(ctx context.Context, picker *Picker, urls []string, opts ...chain.ClientOption) (string, error) {
	if len(urls) == 1 {
		return urls[0], nil
	}

	endpoints := ResultsToEndpoints(BenchmarkEVM(ctx, urls, opts...))
	winner, err := picker.Pick(endpoints)
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}
