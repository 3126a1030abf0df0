package dapp_test

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/dapp"
)

const (
	ponzi    = "0x933033cb97Df7fb4b32453b4aaa6776C4dC8Cee0"
	alice    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	bob      = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	goerliID = "0x5"
)

func wei(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad wei literal " + s)
	}
	return n
}

// ---------------------------------------------------------------------------
// fakeProvider
// ---------------------------------------------------------------------------

type fakeProvider struct {
	mu          sync.Mutex
	accounts    []string
	requestErr  error
	chainID     string
	nextSub     int
	accountSubs map[int]func([]string)
	chainSubs   map[int]func(string)

	sent    []chain.TxRequest
	sendErr error
	waitErr error
	// waitGate, when set, holds WaitForConfirmation until closed.
	waitGate chan struct{}
}

func newFakeProvider(chainID string, accounts ...string) *fakeProvider {
	return &fakeProvider{
		accounts:    accounts,
		chainID:     chainID,
		accountSubs: make(map[int]func([]string)),
		chainSubs:   make(map[int]func(string)),
	}
}

func (p *fakeProvider) RequestAccounts(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	return append([]string(nil), p.accounts...), nil
}

func (p *fakeProvider) ChainID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID
}

func (p *fakeProvider) OnAccountsChanged(fn func([]string)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.accountSubs[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.accountSubs, id)
		p.mu.Unlock()
	}
}

func (p *fakeProvider) OnChainChanged(fn func(string)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.chainSubs[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.chainSubs, id)
		p.mu.Unlock()
	}
}

func (p *fakeProvider) SendTransaction(_ context.Context, req chain.TxRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return "", p.sendErr
	}
	p.sent = append(p.sent, req)
	return "0xfeed", nil
}

func (p *fakeProvider) WaitForConfirmation(ctx context.Context, hash string) (*chain.TxReceipt, error) {
	p.mu.Lock()
	gate, waitErr := p.waitGate, p.waitErr
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if waitErr != nil {
		return &chain.TxReceipt{Hash: hash, Status: 0, BlockNumber: 9}, waitErr
	}
	return &chain.TxReceipt{Hash: hash, Status: 1, BlockNumber: 9}, nil
}

func (p *fakeProvider) emitAccounts(accounts []string) {
	p.mu.Lock()
	subs := make([]func([]string), 0, len(p.accountSubs))
	for _, fn := range p.accountSubs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(accounts)
	}
}

func (p *fakeProvider) emitChain(id string) {
	p.mu.Lock()
	subs := make([]func(string), 0, len(p.chainSubs))
	for _, fn := range p.chainSubs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(id)
	}
}

func (p *fakeProvider) subscriptions() (accounts, chains int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accountSubs), len(p.chainSubs)
}

func (p *fakeProvider) sentRequests() []chain.TxRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]chain.TxRequest(nil), p.sent...)
}

// ---------------------------------------------------------------------------
// fakeReader
// ---------------------------------------------------------------------------

type fakeReader struct {
	mu       sync.Mutex
	calls    int
	token    *big.Int
	balances map[string]*big.Int
	callErr  error
	balErr   error
	// hold blocks BalanceAt for an address until the channel is closed;
	// entered receives the address when such a read starts.
	hold    map[string]chan struct{}
	entered chan string
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		token: wei("2500000000000000000"),
		balances: map[string]*big.Int{
			strings.ToLower(alice): wei("1000000000000000000"),
			strings.ToLower(bob):   wei("2000000000000000000"),
			strings.ToLower(ponzi): wei("42000000000000000000"),
		},
		hold:    make(map[string]chan struct{}),
		entered: make(chan string, 8),
	}
}

func (r *fakeReader) CallContract(_ context.Context, msg chain.CallMsg) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.callErr != nil {
		return nil, r.callErr
	}
	out := make([]byte, 32)
	r.token.FillBytes(out)
	return out, nil
}

func (r *fakeReader) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	key := strings.ToLower(address)

	r.mu.Lock()
	r.calls++
	gate := r.hold[key]
	bal, err := r.balances[key], r.balErr
	r.mu.Unlock()

	if gate != nil {
		r.entered <- key
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(bal), nil
}

func (r *fakeReader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func goerliOptions() dapp.Options {
	return dapp.Options{Contract: ponzi, SupportedChainID: goerliID, Network: "Goerli"}
}

func newSession(t *testing.T, p dapp.Provider, r dapp.ChainReader, tweak ...func(*dapp.Options)) *dapp.Session {
	t.Helper()
	opts := goerliOptions()
	for _, fn := range tweak {
		fn(&opts)
	}
	s := dapp.NewSession(p, r, opts)
	t.Cleanup(s.Close)
	return s
}

// connected returns a session already connected to alice on Goerli with
// its first refresh applied.
func connected(t *testing.T, tweak ...func(*dapp.Options)) (*dapp.Session, *fakeProvider, *fakeReader) {
	t.Helper()
	p := newFakeProvider(goerliID, alice, bob)
	r := newFakeReader()
	s := newSession(t, p, r, tweak...)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	s.Wait()
	return s, p, r
}
