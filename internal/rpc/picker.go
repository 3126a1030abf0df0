package rpc

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
	// Cache winner for this duration before re-benchmarking.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm maps a config value onto an Algorithm. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	default:
		return "", errors.New("unknown rpc algorithm " + s + " (want fastest, round-robin or failover)")
	}
}

// Endpoint represents a single RPC endpoint with its measured attributes.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Healthy     bool // meaningful only when Checked == true
	Checked     bool
}

// Picker selects an RPC endpoint according to the configured algorithm.
// Fastest-mode winners are cached per endpoint set, so one Picker can serve
// several networks.
type Picker struct {
	algo        Algorithm
	mu          sync.Mutex
	rrIndex     map[string]int
	winners     *cache.Cache
	onBenchmark func()
}

// NewPicker creates a new Picker with the given algorithm.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{
		algo:    algo,
		rrIndex: make(map[string]int),
		winners: cache.New(cacheTTL, 2*cacheTTL),
	}
}

// Algorithm returns the selection strategy in use.
func (p *Picker) Algorithm() Algorithm { return p.algo }

// OnBenchmark registers a hook called each time a scoring run occurs.
func (p *Picker) OnBenchmark(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onBenchmark = fn
}

// Forget drops any cached winner, forcing the next Pick to re-score.
func (p *Picker) Forget() {
	p.winners.Flush()
}

// Pick selects an endpoint from the provided list according to the algorithm.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoHealthyRPC
	}

	switch p.algo {
	case AlgorithmRoundRobin:
		return p.pickRoundRobin(endpoints)
	case AlgorithmFailover:
		return p.pickFailover(endpoints)
	default:
		return p.pickFastest(endpoints)
	}
}

func (p *Picker) pickFastest(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := setKey(endpoints)
	if v, ok := p.winners.Get(key); ok {
		url := v.(string)
		for i := range endpoints {
			if endpoints[i].URL == url {
				return &endpoints[i], nil
			}
		}
	}

	if p.onBenchmark != nil {
		p.onBenchmark()
	}

	var bestBlock uint64
	for _, e := range endpoints {
		if e.BlockNumber > bestBlock {
			bestBlock = e.BlockNumber
		}
	}

	candidates := healthyEndpoints(endpoints)
	if len(candidates) == 0 {
		return nil, ErrNoHealthyRPC
	}

	var winner *Endpoint
	var bestScore float64
	for _, e := range candidates {
		if isStale(e.BlockNumber, bestBlock) {
			continue
		}
		s := score(e, bestBlock)
		if winner == nil || s > bestScore {
			winner = e
			bestScore = s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}

	p.winners.SetDefault(key, winner.URL)
	return winner, nil
}

// pickRoundRobin cycles through all healthy endpoints.
func (p *Picker) pickRoundRobin(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	healthy := healthyEndpoints(endpoints)
	if len(healthy) == 0 {
		return nil, ErrNoHealthyRPC
	}

	key := setKey(endpoints)
	idx := p.rrIndex[key] % len(healthy)
	p.rrIndex[key] = (idx + 1) % len(healthy)
	return healthy[idx], nil
}

// pickFailover tries endpoints in order, skipping the ones known to be down.
func (p *Picker) pickFailover(endpoints []Endpoint) (*Endpoint, error) {
	for i := range endpoints {
		e := &endpoints[i]
		if e.Checked && !e.Healthy {
			continue
		}
		return e, nil
	}
	return nil, ErrNoHealthyRPC
}

// --- scoring ---

func score(e *Endpoint, bestBlock uint64) float64 {
	var s float64

	// Latency score: higher = faster.
	if ms := e.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else if e.Latency > 0 {
		s += 1000.0
	}

	// Lose a point per block behind the best.
	if bestBlock > 0 && e.BlockNumber <= bestBlock {
		s += 10 - float64(bestBlock-e.BlockNumber)
	}
	return s
}

func isStale(block, bestBlock uint64) bool {
	return bestBlock > 0 && block < bestBlock && bestBlock-block > staleBlockThreshold
}

// healthyEndpoints returns endpoints eligible for selection. Without any
// health data every endpoint is a candidate; otherwise only checked+healthy
// (or never-checked) ones are.
func healthyEndpoints(endpoints []Endpoint) []*Endpoint {
	anyChecked := false
	for _, e := range endpoints {
		if e.Checked {
			anyChecked = true
			break
		}
	}

	out := make([]*Endpoint, 0, len(endpoints))
	for i := range endpoints {
		e := &endpoints[i]
		if !anyChecked || !e.Checked || e.Healthy {
			out = append(out, e)
		}
	}
	return out
}

func setKey(endpoints []Endpoint) string {
	urls := make([]string, len(endpoints))
	for i, e := range endpoints {
		urls[i] = e.URL
	}
	return strings.Join(urls, "|")
}
