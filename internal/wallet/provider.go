package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/config"
	"github.com/therandomchoice/ponzi-cli/internal/rpc"
)

var (
	// ErrRequestRejected is returned by RequestAccounts when access is not granted.
	ErrRequestRejected = errors.New("account access rejected")
	// ErrNoSigningWallet means there is nothing to connect with.
	ErrNoSigningWallet = errors.New("no signing wallet; add one with `ponzi wallet add` or `ponzi wallet generate`")
	// ErrUnauthorized is returned for signing requests before access was granted.
	ErrUnauthorized = errors.New("account access not granted; connect first")
	// ErrGasEstimation wraps a node's refusal to estimate a transaction,
	// usually because it would revert.
	ErrGasEstimation = errors.New("estimating gas")
)

// Approver is asked before every signature. Returning false rejects the
// request with ErrSignatureRejected.
type Approver func(ctx context.Context, req chain.TxRequest) (bool, error)

// Provider is a local, keyring-backed wallet that behaves like an injected
// EIP-1193 provider: accounts are exposed only after RequestAccounts, account
// and chain changes are pushed to subscribers, and transactions are signed
// and broadcast through the current network's RPC.
type Provider struct {
	manager  *Manager
	registry *chain.Registry
	selector *rpc.Selector
	log      *zap.Logger

	algorithm       string
	clientOpts      []chain.ClientOption
	customRPCs      map[string][]string
	approve         Approver
	gasFallback     uint64
	pollInterval    time.Duration
	receiptInterval time.Duration
	confirmTimeout  time.Duration

	mu          sync.Mutex
	network     *chain.Network
	client      *chain.EVMClient
	chainID     string
	authorized  bool
	accounts    []string
	nextSub     int
	accountSubs map[int]func([]string)
	chainSubs   map[int]func(string)
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the provider's logger.
func WithLogger(l *zap.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// WithApprover installs a confirmation hook for signing requests.
func WithApprover(a Approver) ProviderOption {
	return func(p *Provider) { p.approve = a }
}

// WithClientOptions applies chain client options (rate limit, HTTP client)
// to every RPC client the provider creates.
func WithClientOptions(opts ...chain.ClientOption) ProviderOption {
	return func(p *Provider) { p.clientOpts = append(p.clientOpts, opts...) }
}

// WithCustomRPCs prepends user RPC URLs per network name.
func WithCustomRPCs(rpcs map[string][]string) ProviderOption {
	return func(p *Provider) { p.customRPCs = rpcs }
}

// WithRPCAlgorithm picks how endpoints are chosen on network switches.
func WithRPCAlgorithm(algorithm string) ProviderOption {
	return func(p *Provider) { p.algorithm = algorithm }
}

// WithPollInterval sets how often Watch polls the node's chain id.
func WithPollInterval(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithReceiptInterval sets how often WaitForConfirmation polls for a receipt.
func WithReceiptInterval(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.receiptInterval = d
		}
	}
}

// WithConfirmTimeout bounds WaitForConfirmation. Zero waits indefinitely.
func WithConfirmTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) { p.confirmTimeout = d }
}

// WithGasFallback sets the gas limit used when the node cannot estimate.
func WithGasFallback(gas uint64) ProviderOption {
	return func(p *Provider) {
		if gas > 0 {
			p.gasFallback = gas
		}
	}
}

// Dial creates a provider on the named network, choosing an RPC endpoint and
// asking the node which chain it is on.
func Dial(ctx context.Context, manager *Manager, registry *chain.Registry, network string, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		manager:         manager,
		registry:        registry,
		log:             zap.NewNop(),
		gasFallback:     config.GasLimitContractCall,
		pollInterval:    config.DefaultChainPollInterval,
		receiptInterval: 2 * time.Second,
		accountSubs:     make(map[int]func([]string)),
		chainSubs:       make(map[int]func(string)),
	}
	for _, opt := range opts {
		opt(p)
	}
	selector, err := rpc.NewSelector(p.algorithm, p.clientOpts...)
	if err != nil {
		return nil, err
	}
	p.selector = selector

	net, client, id, err := p.connect(ctx, network)
	if err != nil {
		return nil, err
	}
	p.network, p.client, p.chainID = net, client, id
	return p, nil
}

// --- EIP-1193 surface ---

// RequestAccounts is the permission step. It succeeds when at least one
// signing wallet exists and the selected wallet's key can be unlocked.
func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	wallets, err := p.manager.Signing()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestRejected, err)
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrRequestRejected, ErrNoSigningWallet)
	}
	if err := NewSigner(wallets[0], p.manager.Keystore()).Unlock(); err != nil {
		return nil, fmt.Errorf("%w: unlocking %s: %w", ErrRequestRejected, wallets[0].Name, err)
	}

	accounts := addresses(wallets)

	p.mu.Lock()
	p.authorized = true
	p.accounts = accounts
	p.mu.Unlock()

	p.log.Info("accounts granted", zap.String("account", accounts[0]), zap.Int("count", len(accounts)))
	return slices.Clone(accounts), nil
}

// Accounts returns the granted accounts, empty before RequestAccounts.
func (p *Provider) Accounts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.accounts)
}

// ChainID returns the hex chain id the provider is currently on.
func (p *Provider) ChainID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID
}

// Network returns the network the provider is pointed at.
func (p *Provider) Network() *chain.Network {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.network
}

// RPCURL returns the endpoint currently in use.
func (p *Provider) RPCURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client.URL()
}

// OnAccountsChanged subscribes to account list changes.
func (p *Provider) OnAccountsChanged(fn func([]string)) func() {
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

// OnChainChanged subscribes to chain id changes.
func (p *Provider) OnChainChanged(fn func(string)) func() {
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

// --- wallet-side actions (what a user does in the wallet UI) ---

// SelectAccount makes name the selected wallet. Subscribers are told only
// once access was granted.
func (p *Provider) SelectAccount(name string) error {
	w, err := p.manager.Get(name)
	if err != nil {
		return err
	}
	if !w.CanSign() {
		return fmt.Errorf("%w: %s", ErrWatchOnly, name)
	}
	if err := p.manager.SetDefault(name); err != nil {
		return err
	}
	p.log.Info("account selected", zap.String("wallet", name), zap.String("address", w.Address))
	return p.refreshAccounts()
}

// NextAccount selects the signing wallet after the current one, wrapping
// around, and returns its name.
func (p *Provider) NextAccount() (string, error) {
	wallets, err := p.manager.Signing()
	if err != nil {
		return "", err
	}
	if len(wallets) == 0 {
		return "", ErrNoSigningWallet
	}
	// wallets[0] is the current selection; step through the rest by name.
	names := make([]string, len(wallets))
	for i, w := range wallets {
		names[i] = w.Name
	}
	slices.Sort(names)
	next := names[(slices.Index(names, wallets[0].Name)+1)%len(names)]

	if err := p.SelectAccount(next); err != nil {
		return "", err
	}
	return next, nil
}

// Disconnect revokes access; subscribers see an empty account list.
func (p *Provider) Disconnect() {
	p.mu.Lock()
	p.authorized = false
	p.accounts = nil
	p.mu.Unlock()
	p.emitAccounts(nil)
}

// SwitchNetwork repoints the provider at another network and notifies
// chain subscribers when the chain id changes.
func (p *Provider) SwitchNetwork(ctx context.Context, name string) error {
	net, client, id, err := p.connect(ctx, name)
	if err != nil {
		return err
	}

	p.mu.Lock()
	changed := id != p.chainID
	p.network, p.client, p.chainID = net, client, id
	p.mu.Unlock()

	p.log.Info("network switched", zap.String("network", net.Name), zap.String("chain_id", id), zap.String("rpc", client.URL()))
	if changed {
		p.emitChain(id)
	}
	return nil
}

// Watch polls the node's chain id until ctx is done and emits chainChanged
// whenever it moves (an RPC endpoint repointed under us, a restarted devnet).
func (p *Provider) Watch(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		client := p.client
		p.mu.Unlock()

		id, err := client.ChainID(ctx)
		if err != nil {
			p.log.Debug("chain id poll failed", zap.String("rpc", client.URL()), zap.Error(err))
			continue
		}
		hexID := chain.HexChainID(id)

		p.mu.Lock()
		changed := p.client == client && hexID != p.chainID
		if changed {
			p.chainID = hexID
		}
		p.mu.Unlock()

		if changed {
			p.log.Info("chain changed", zap.String("chain_id", hexID))
			p.emitChain(hexID)
		}
	}
}

// --- signing & broadcast ---

// SendTransaction signs req with the selected account and broadcasts it.
func (p *Provider) SendTransaction(ctx context.Context, req chain.TxRequest) (string, error) {
	p.mu.Lock()
	authorized, client, chainHex := p.authorized, p.client, p.chainID
	p.mu.Unlock()

	if !authorized {
		return "", ErrUnauthorized
	}
	w, err := p.manager.GetByAddress(req.From)
	if err != nil || !w.CanSign() {
		return "", fmt.Errorf("%w: %s is not an account of this wallet", ErrUnauthorized, req.From)
	}
	chainID, ok := chain.ParseChainID(chainHex)
	if !ok {
		return "", fmt.Errorf("unknown chain id %q", chainHex)
	}

	if p.approve != nil {
		ok, err := p.approve(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrSignatureRejected, err)
		}
		if !ok {
			return "", ErrSignatureRejected
		}
	}

	msg := chain.CallMsg{From: req.From, To: req.To, Data: req.Data, Value: req.Value}
	gas, err := client.EstimateGas(ctx, msg)
	if err != nil {
		// A node-side answer (revert, insufficient funds) is final; only
		// transport trouble falls back to a fixed limit.
		var rpcErr *chain.RPCError
		if errors.As(err, &rpcErr) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrGasEstimation, err)
		}
		p.log.Warn("gas estimate failed, using fallback", zap.Uint64("gas", p.gasFallback), zap.Error(err))
		gas = p.gasFallback
	}

	gasPrice, err := client.GasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("getting gas price: %w", err)
	}
	nonce, err := client.PendingNonce(ctx, req.From)
	if err != nil {
		return "", fmt.Errorf("getting nonce: %w", err)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := common.HexToAddress(req.To)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	raw, err := NewSigner(w, p.manager.Keystore()).SignTx(tx, chainID)
	if err != nil {
		return "", err
	}

	hash, err := client.SendRawTransaction(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("broadcasting transaction: %w", err)
	}
	p.log.Info("transaction sent",
		zap.String("hash", hash),
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)
	return hash, nil
}

// WaitForConfirmation blocks until hash is mined (one confirmation).
// A reverted transaction returns its receipt and chain.ErrReverted.
func (p *Provider) WaitForConfirmation(ctx context.Context, hash string) (*chain.TxReceipt, error) {
	if p.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.confirmTimeout)
		defer cancel()
	}

	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	receipt, err := client.WaitForReceipt(ctx, hash, p.receiptInterval)
	if receipt != nil {
		p.log.Info("transaction mined",
			zap.String("hash", hash),
			zap.Uint64("block", receipt.BlockNumber),
			zap.Bool("success", receipt.Succeeded()),
		)
	}
	return receipt, err
}

// --- reads over the current network ---

// CallContract runs eth_call on the current network.
func (p *Provider) CallContract(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	return client.CallContract(ctx, msg)
}

// BalanceAt returns the native balance of address on the current network.
func (p *Provider) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	return client.BalanceAt(ctx, address)
}

// --- internal ---

func (p *Provider) connect(ctx context.Context, name string) (*chain.Network, *chain.EVMClient, string, error) {
	net, err := p.registry.GetByName(name)
	if err != nil {
		return nil, nil, "", err
	}

	urls := append(slices.Clone(p.customRPCs[net.Name]), net.RPCs...)
	selectCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	url, err := p.selector.Best(selectCtx, urls)
	cancel()
	if err != nil {
		return nil, nil, "", fmt.Errorf("selecting RPC for %s: %w", net.Name, err)
	}
	client := chain.NewEVMClient(url, p.clientOpts...)

	id := net.HexChainID()
	if got, err := client.ChainID(ctx); err != nil {
		p.log.Warn("could not read chain id, assuming configured network",
			zap.String("network", net.Name), zap.String("rpc", url), zap.Error(err))
	} else {
		id = chain.HexChainID(got)
	}
	return net, client, id, nil
}

func (p *Provider) refreshAccounts() error {
	p.mu.Lock()
	authorized := p.authorized
	p.mu.Unlock()
	if !authorized {
		return nil
	}

	wallets, err := p.manager.Signing()
	if err != nil {
		return err
	}
	accounts := addresses(wallets)

	p.mu.Lock()
	p.accounts = accounts
	p.mu.Unlock()

	p.emitAccounts(accounts)
	return nil
}

func (p *Provider) emitAccounts(accounts []string) {
	p.mu.Lock()
	subs := make([]func([]string), 0, len(p.accountSubs))
	for _, fn := range p.accountSubs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(slices.Clone(accounts))
	}
}

func (p *Provider) emitChain(id string) {
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

func addresses(wallets []*Wallet) []string {
	out := make([]string, len(wallets))
	for i, w := range wallets {
		out[i] = strings.TrimSpace(w.Address)
	}
	return out
}
