// Package dapp is the page logic of the Ponzi client: it connects a wallet
// provider, keeps the account and chain it reports, reads the balances the
// page shows and submits the contract's three transactions.
package dapp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/contract"
)

// Provider is the wallet the session talks to. wallet.Provider implements
// it; tests use fakes.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	ChainID() string
	OnAccountsChanged(fn func([]string)) (unsubscribe func())
	OnChainChanged(fn func(string)) (unsubscribe func())
	SendTransaction(ctx context.Context, req chain.TxRequest) (string, error)
	WaitForConfirmation(ctx context.Context, hash string) (*chain.TxReceipt, error)
}

// State is a snapshot of everything the page renders. None of it outlives
// the process.
type State struct {
	Account               string `json:"account"`
	ChainID               string `json:"chain_id"`
	TokenBalance          string `json:"token_balance"`
	NativeBalance         string `json:"native_balance"`
	ContractNativeBalance string `json:"contract_native_balance"`
	Amount                string `json:"amount"`
	Message               string `json:"message"`
	Busy                  string `json:"busy,omitempty"`
	LastTx                string `json:"last_tx,omitempty"`

	Contract         string `json:"contract"`
	Network          string `json:"network"`
	SupportedChainID string `json:"supported_chain_id"`
}

// Options configures a Session.
type Options struct {
	// Contract is the Ponzi contract address.
	Contract string
	// SupportedChainID is the only chain reads and writes are allowed on.
	SupportedChainID string
	// Network is the supported network's display name ("Goerli").
	Network string
	// RefreshOnConfirm re-reads balances after a confirmed transaction.
	RefreshOnConfirm bool
	Logger           *zap.Logger
}

// Session is the single owner of the page state. Every mutation happens
// under mu; listeners run outside it on a copy.
type Session struct {
	provider Provider
	balances *BalanceReader
	sender   *contract.Sender
	guard    Guard
	opts     Options
	log      *zap.Logger

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup

	mu    sync.Mutex
	state State
	gen   uint64
	// refreshFailed is set while the banner holds a balance read failure
	// that the next good refresh may clear.
	refreshFailed bool
	closed        bool
	subscribed    bool
	unsubscribe   []func()
	listeners     map[int]func(State)
	nextListener  int
}

// NewSession creates a session. provider may be nil, in which case Connect
// reports ErrNoProvider. reader serves the balance reads; pass the provider
// itself when it can read (wallet.Provider does).
func NewSession(provider Provider, reader ChainReader, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	guard := NewGuard(opts.SupportedChainID, opts.Network)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		provider:  provider,
		balances:  NewBalanceReader(reader, guard, opts.Contract),
		guard:     guard,
		opts:      opts,
		log:       log,
		bgCtx:     ctx,
		bgCancel:  cancel,
		listeners: make(map[int]func(State)),
	}
	s.state = State{
		Contract:         opts.Contract,
		Network:          opts.Network,
		SupportedChainID: guard.SupportedChainID(),
	}
	if provider != nil {
		s.sender = contract.NewSender(provider, contract.PonziABI())
	}
	return s
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called with a snapshot after every change.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Wait blocks until background balance refreshes have finished.
func (s *Session) Wait() { s.bg.Wait() }

// Close drops the provider subscriptions and cancels background refreshes.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	unsubs := s.unsubscribe
	s.unsubscribe = nil
	s.subscribed = false
	s.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
	s.bgCancel()
	s.bg.Wait()
}

// --- Wallet Session Manager ---

// Connect asks the provider for accounts. On success the session subscribes
// to account and chain changes (once, however often Connect is called) and
// applies the provider's current account and chain.
func (s *Session) Connect(ctx context.Context) error {
	if s.provider == nil {
		s.apply(func(st *State) {
			st.Account = ""
			st.Message = ErrNoProvider.Error()
		})
		return ErrNoProvider
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		s.log.Info("connection rejected", zap.Error(err))
		s.apply(func(st *State) {
			st.Account = ""
			st.Message = err.Error()
		})
		return fmt.Errorf("%w: %w", ErrConnectionRejected, err)
	}

	s.mu.Lock()
	first := !s.subscribed
	s.subscribed = true
	s.mu.Unlock()

	if first {
		unsubAccounts := s.provider.OnAccountsChanged(s.AccountsChanged)
		unsubChain := s.provider.OnChainChanged(s.ChainChanged)
		s.mu.Lock()
		s.unsubscribe = append(s.unsubscribe, unsubAccounts, unsubChain)
		s.mu.Unlock()
	}

	chainID := s.provider.ChainID()
	s.apply(func(st *State) {
		st.Account = firstAccount(accounts)
		st.ChainID = chainID
		st.Message = s.guard.Diagnostic(chainID)
	})
	s.log.Info("connected", zap.String("account", firstAccount(accounts)), zap.String("chain_id", chainID))
	return nil
}

// AccountsChanged adopts accounts[0] as the active account; an empty list
// (locked or disconnected wallet) clears it. The banner is reset to whatever
// the network guard says about the current chain.
func (s *Session) AccountsChanged(accounts []string) {
	s.apply(func(st *State) {
		st.Account = firstAccount(accounts)
		st.Message = s.idleBanner(st)
	})
}

// ChainChanged stores the new chain id and runs the network guard.
func (s *Session) ChainChanged(chainID string) {
	s.apply(func(st *State) {
		st.ChainID = chainID
		st.Message = s.guard.Diagnostic(chainID)
	})
}

// apply mutates account or chain state, starts a new generation and
// schedules one coordinated balance refresh for it.
func (s *Session) apply(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	s.gen++
	s.refreshFailed = false
	snapshot, listeners := s.state, s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	s.refreshInBackground()
}

// --- Balance Reader ---

// Refresh re-reads the three balances concurrently. Results are dropped if
// the account or chain changed while the reads were in flight. A failed read
// empties its balance and puts its code in the banner.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	gen, account, chainID := s.gen, s.state.Account, s.state.ChainID
	s.mu.Unlock()

	var (
		token, native, contractNative    string
		tokenErr, nativeErr, contractErr error
		g                                errgroup.Group
	)
	g.Go(func() error {
		token, tokenErr = s.balances.ReadTokenBalance(ctx, account, chainID)
		return tokenErr
	})
	g.Go(func() error {
		native, nativeErr = s.balances.ReadNativeBalance(ctx, account, chainID)
		return nativeErr
	})
	g.Go(func() error {
		contractNative, contractErr = s.balances.ReadContractNativeBalance(ctx, account, chainID)
		return contractErr
	})
	err := g.Wait()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.Debug("dropping stale balances", zap.Uint64("generation", gen), zap.String("account", account))
		return nil
	}
	s.state.TokenBalance = token
	s.state.NativeBalance = native
	s.state.ContractNativeBalance = contractNative
	switch {
	case err != nil:
		s.state.Message = Classify(err)
		s.refreshFailed = true
	case s.refreshFailed:
		s.state.Message = s.idleBanner(&s.state)
		s.refreshFailed = false
	}
	snapshot, listeners := s.state, s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	if err != nil {
		s.log.Warn("balance refresh failed", zap.String("account", account), zap.Error(err))
		return err
	}
	return nil
}

func (s *Session) refreshInBackground() {
	s.mu.Lock()
	if s.closed || s.bgCtx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.bg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.bg.Done()
		if err := s.Refresh(s.bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Debug("background refresh", zap.Error(err))
		}
	}()
}

// --- amount field ---

// SetAmount stores the user-entered amount as is; it is validated on submit.
func (s *Session) SetAmount(amount string) {
	s.update(func(st *State) { st.Amount = amount })
}

// SetMaxToken copies the token balance into the amount field.
func (s *Session) SetMaxToken() {
	s.update(func(st *State) { st.Amount = st.TokenBalance })
}

// SetMaxNative copies the native balance into the amount field.
func (s *Session) SetMaxNative() {
	s.update(func(st *State) { st.Amount = st.NativeBalance })
}

// --- internal ---

func (s *Session) update(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	snapshot, listeners := s.state, s.listenersLocked()
	s.mu.Unlock()
	notify(listeners, snapshot)
}

func (s *Session) listenersLocked() []func(State) {
	out := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st)
	}
}

// idleBanner is the message shown when nothing has failed: the network
// diagnostic once a chain is known.
func (s *Session) idleBanner(st *State) string {
	if st.ChainID == "" {
		return ""
	}
	return s.guard.Diagnostic(st.ChainID)
}

func firstAccount(accounts []string) string {
	if len(accounts) == 0 {
		return ""
	}
	return accounts[0]
}
