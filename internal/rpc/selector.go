package rpc

import (
	"context"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
)

// Selector picks an RPC URL for a network, keeping picker state (cached
// winner, round-robin cursor) across calls. The wallet provider holds one
// for the life of the process.
type Selector struct {
	picker *Picker
	opts   []chain.ClientOption
}

// NewSelector returns a Selector for the named algorithm. Client options are
// applied to the benchmark clients.
func NewSelector(algorithm string, opts ...chain.ClientOption) (*Selector, error) {
	algo, err := ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	return &Selector{picker: NewPicker(algo), opts: opts}, nil
}

// Best returns the URL to use among urls.
func (s *Selector) Best(ctx context.Context, urls []string) (string, error) {
	if len(urls) == 0 {
		return "", ErrNoHealthyRPC
	}
	return bestWith(ctx, s.picker, urls, s.opts...)
}

// SelectBest is the stateless form of Selector.Best.
//
// algorithm must be one of "fastest", "round-robin", or "failover". An empty
// string defaults to "fastest".
func SelectBest(ctx context.Context, urls []string, algorithm string) (string, error) {
	s, err := NewSelector(algorithm)
	if err != nil {
		return "", err
	}
	return s.Best(ctx, urls)
}
