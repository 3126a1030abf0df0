package dapp_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/dapp"
	"github.com/therandomchoice/ponzi-cli/internal/wallet"
)

// ---------------------------------------------------------------------------
// Connect
// ---------------------------------------------------------------------------

func TestConnectWithoutProvider(t *testing.T) {
	s := newSession(t, nil, nil)

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, dapp.ErrNoProvider)

	st := s.State()
	assert.Empty(t, st.Account)
	assert.Equal(t, "wallet provider required", st.Message)
}

func TestConnectRejected(t *testing.T) {
	p := newFakeProvider(goerliID, alice)
	p.requestErr = errors.New("User rejected the request.")
	s := newSession(t, p, newFakeReader())

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, dapp.ErrConnectionRejected)
	assert.Equal(t, dapp.CodeConnectionRejected, dapp.Classify(err))

	st := s.State()
	assert.Empty(t, st.Account)
	assert.Equal(t, "User rejected the request.", st.Message)

	accounts, chains := p.subscriptions()
	assert.Zero(t, accounts)
	assert.Zero(t, chains)
}

func TestConnectAppliesAccountChainAndBalances(t *testing.T) {
	s, _, _ := connected(t)

	st := s.State()
	assert.Equal(t, alice, st.Account, "index 0 is the selected account")
	assert.Equal(t, goerliID, st.ChainID)
	assert.Empty(t, st.Message)
	assert.Equal(t, "2.5", st.TokenBalance)
	assert.Equal(t, "1.0", st.NativeBalance)
	assert.Equal(t, "42.0", st.ContractNativeBalance)
	assert.Equal(t, ponzi, st.Contract)
	assert.Equal(t, "Goerli", st.Network)
	assert.Equal(t, goerliID, st.SupportedChainID)
}

func TestConnectOnWrongNetwork(t *testing.T) {
	p := newFakeProvider("0x1", alice)
	r := newFakeReader()
	s := newSession(t, p, r)

	require.NoError(t, s.Connect(context.Background()))
	s.Wait()

	st := s.State()
	assert.Equal(t, alice, st.Account)
	assert.Equal(t, "Please select Goerli network", st.Message)
	assert.Empty(t, st.TokenBalance)
	assert.Empty(t, st.NativeBalance)
	assert.Empty(t, st.ContractNativeBalance)
	assert.Zero(t, r.callCount())
}

func TestConnectTwiceSubscribesOnce(t *testing.T) {
	s, p, r := connected(t)
	require.NoError(t, s.Connect(context.Background()))
	s.Wait()

	accounts, chains := p.subscriptions()
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, chains)

	var notified atomic.Int32
	s.Subscribe(func(dapp.State) { notified.Add(1) })
	before := r.callCount()

	p.emitAccounts([]string{bob})
	s.Wait()

	assert.Equal(t, bob, s.State().Account)
	assert.Equal(t, before+3, r.callCount(), "one event, one refresh")
	assert.Equal(t, int32(2), notified.Load(), "account applied once, balances applied once")
}

// ---------------------------------------------------------------------------
// accountsChanged / chainChanged
// ---------------------------------------------------------------------------

func TestAccountsChangedEmptyList(t *testing.T) {
	s, p, _ := connected(t)

	p.emitAccounts(nil)
	s.Wait()

	st := s.State()
	assert.Empty(t, st.Account)
	assert.Empty(t, st.Message)
	assert.Empty(t, st.TokenBalance)
	assert.Empty(t, st.NativeBalance)
	assert.Empty(t, st.ContractNativeBalance)
}

func TestAccountsChangedEmptyListOnWrongNetwork(t *testing.T) {
	s, p, _ := connected(t)
	p.emitChain("0x1")
	s.Wait()

	p.emitAccounts([]string{})
	s.Wait()

	st := s.State()
	assert.Empty(t, st.Account)
	assert.Equal(t, "Please select Goerli network", st.Message, "only the network diagnostic remains")
}

func TestAccountsChangedClearsBanner(t *testing.T) {
	s, p, _ := connected(t)
	_, err := s.Withdraw(context.Background(), "0")
	require.Error(t, err)
	require.Equal(t, dapp.CodeInvalidArgument, s.State().Message)

	p.emitAccounts([]string{bob})
	s.Wait()

	st := s.State()
	assert.Empty(t, st.Message)
	assert.Equal(t, "2.0", st.NativeBalance)
}

func TestChainChangedRunsGuard(t *testing.T) {
	s, p, r := connected(t)

	p.emitChain("0xaa36a7")
	s.Wait()
	st := s.State()
	assert.Equal(t, "0xaa36a7", st.ChainID)
	assert.Equal(t, "Please select Goerli network", st.Message)
	assert.Empty(t, st.TokenBalance)

	calls := r.callCount()
	p.emitChain("0x5")
	s.Wait()
	st = s.State()
	assert.Empty(t, st.Message)
	assert.Equal(t, "2.5", st.TokenBalance)
	assert.Equal(t, calls+3, r.callCount())
}

func TestCloseUnsubscribes(t *testing.T) {
	p := newFakeProvider(goerliID, alice)
	s := dapp.NewSession(p, newFakeReader(), goerliOptions())
	require.NoError(t, s.Connect(context.Background()))

	s.Close()

	accounts, chains := p.subscriptions()
	assert.Zero(t, accounts)
	assert.Zero(t, chains)
}

func TestCloseStopsBackgroundRefreshes(t *testing.T) {
	p := newFakeProvider(goerliID, alice, bob)
	r := newFakeReader()
	s := dapp.NewSession(p, r, goerliOptions())
	require.NoError(t, s.Connect(context.Background()))
	s.Wait()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.AccountsChanged([]string{bob})
		}
	}()
	s.Close()
	wg.Wait()
	s.Wait()

	calls := r.callCount()
	s.AccountsChanged([]string{alice})
	s.Wait()
	assert.Equal(t, calls, r.callCount(), "no refresh is scheduled once closed")
	assert.Equal(t, alice, s.State().Account)
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func TestRefreshDropsStaleResults(t *testing.T) {
	s, p, r := connected(t)

	gate := make(chan struct{})
	r.mu.Lock()
	r.hold[strings.ToLower(alice)] = gate
	r.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()

	select {
	case <-r.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never reached the reader")
	}

	// The account moves on while alice's read is still in flight.
	p.emitAccounts([]string{bob})
	s.Wait()
	require.Equal(t, "2.0", s.State().NativeBalance)

	close(gate)
	require.NoError(t, <-done)

	st := s.State()
	assert.Equal(t, bob, st.Account)
	assert.Equal(t, "2.0", st.NativeBalance, "alice's late result is discarded")
}

func TestRefreshFailureSetsCode(t *testing.T) {
	s, _, r := connected(t)
	r.mu.Lock()
	r.balErr = &chain.HTTPError{URL: "http://node", Err: errors.New("connection refused")}
	r.token = wei("7000000000000000000")
	r.mu.Unlock()

	err := s.Refresh(context.Background())
	require.Error(t, err)

	st := s.State()
	assert.Equal(t, dapp.CodeNetworkError, st.Message)
	assert.Empty(t, st.NativeBalance)
	assert.Empty(t, st.ContractNativeBalance)
	assert.Equal(t, "7.0", st.TokenBalance, "the read that worked still applies")
}

func TestRefreshRecoversFromFailure(t *testing.T) {
	s, _, r := connected(t)
	r.mu.Lock()
	r.balErr = &chain.HTTPError{URL: "http://node", Err: errors.New("connection refused")}
	r.mu.Unlock()
	require.Error(t, s.Refresh(context.Background()))
	require.Equal(t, dapp.CodeNetworkError, s.State().Message)

	r.mu.Lock()
	r.balErr = nil
	r.mu.Unlock()
	require.NoError(t, s.Refresh(context.Background()))

	st := s.State()
	assert.Empty(t, st.Message)
	assert.Equal(t, "1.0", st.NativeBalance)
}

func TestRefreshKeepsTransactionCode(t *testing.T) {
	s, p, _ := connected(t)
	p.sendErr = wallet.ErrSignatureRejected
	_, _ = s.Deposit(context.Background(), "1")
	require.Equal(t, dapp.CodeActionRejected, s.State().Message)

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, dapp.CodeActionRejected, s.State().Message)
}

// ---------------------------------------------------------------------------
// amount helpers
// ---------------------------------------------------------------------------

func TestSetMaxPonzi(t *testing.T) {
	s, _, _ := connected(t)

	assert.Equal(t, "2.5", s.State().TokenBalance)
	s.SetMaxToken()
	assert.Equal(t, "2.5", s.State().Amount)

	s.SetMaxNative()
	assert.Equal(t, "1.0", s.State().Amount)

	s.SetAmount("not validated yet")
	assert.Equal(t, "not validated yet", s.State().Amount)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s := newSession(t, nil, nil)

	var got []string
	unsubscribe := s.Subscribe(func(st dapp.State) { got = append(got, st.Amount) })
	s.SetAmount("1")
	unsubscribe()
	s.SetAmount("2")

	assert.Equal(t, []string{"1"}, got)
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

func TestDepositSendsValueAndLeavesBalances(t *testing.T) {
	s, p, r := connected(t)
	before := s.State()
	calls := r.callCount()

	receipt, err := s.Deposit(context.Background(), "1.5")
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	s.Wait()

	sent := p.sentRequests()
	require.Len(t, sent, 1)
	assert.Equal(t, "1500000000000000000", sent[0].Value.String())
	assert.Equal(t, alice, sent[0].From)
	assert.Equal(t, ponzi, sent[0].To)
	assert.Equal(t, []byte{0xd0, 0xe3, 0x0d, 0xb0}, sent[0].Data)

	after := s.State()
	assert.Equal(t, before.TokenBalance, after.TokenBalance)
	assert.Equal(t, before.NativeBalance, after.NativeBalance)
	assert.Equal(t, before.ContractNativeBalance, after.ContractNativeBalance)
	assert.Equal(t, calls, r.callCount(), "no refresh after confirmation")
	assert.Equal(t, "0xfeed", after.LastTx)
	assert.Empty(t, after.Busy)
	assert.Empty(t, after.Message)
}

func TestDepositRefreshOnConfirm(t *testing.T) {
	s, _, r := connected(t, func(o *dapp.Options) { o.RefreshOnConfirm = true })
	calls := r.callCount()

	_, err := s.Deposit(context.Background(), "0.25")
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, calls+3, r.callCount())
}

func TestWithdrawEncodesAmount(t *testing.T) {
	s, p, _ := connected(t)

	_, err := s.Withdraw(context.Background(), "1.5")
	require.NoError(t, err)

	sent := p.sentRequests()
	require.Len(t, sent, 1)
	assert.Nil(t, sent[0].Value)
	require.Len(t, sent[0].Data, 36)
	assert.Equal(t, []byte{0x2e, 0x1a, 0x7d, 0x4d}, sent[0].Data[:4])
	assert.Equal(t, "1500000000000000000", wei("0").SetBytes(sent[0].Data[4:]).String())
}

func TestWithdrawAll(t *testing.T) {
	s, p, _ := connected(t)

	_, err := s.WithdrawAll(context.Background())
	require.NoError(t, err)

	sent := p.sentRequests()
	require.Len(t, sent, 1)
	assert.Equal(t, []byte{0x85, 0x38, 0x28, 0xb6}, sent[0].Data)
}

func TestInvalidAmountsRejectedBeforeSubmission(t *testing.T) {
	for _, amount := range []string{"0", "-1", "", "abc", "1e18", "0.0000000000000000001", "0.000"} {
		t.Run(amount, func(t *testing.T) {
			s, p, _ := connected(t)

			_, err := s.Withdraw(context.Background(), amount)
			var txErr *dapp.TxError
			require.ErrorAs(t, err, &txErr)
			assert.Equal(t, dapp.CodeInvalidArgument, txErr.Code)
			assert.Equal(t, dapp.OpWithdraw, txErr.Op)
			assert.ErrorIs(t, err, dapp.ErrInvalidAmount)

			_, err = s.Deposit(context.Background(), amount)
			assert.ErrorIs(t, err, dapp.ErrInvalidAmount)

			assert.Equal(t, dapp.CodeInvalidArgument, s.State().Message)
			assert.Empty(t, p.sentRequests())
		})
	}
}

func TestTransactionsNeedConnection(t *testing.T) {
	p := newFakeProvider(goerliID, alice)
	s := newSession(t, p, newFakeReader())

	_, err := s.Deposit(context.Background(), "1")
	assert.ErrorIs(t, err, dapp.ErrNotConnected)
	assert.Equal(t, dapp.CodeNotConnected, s.State().Message)
	assert.Empty(t, p.sentRequests())
}

func TestTransactionsNeedSupportedNetwork(t *testing.T) {
	s, p, _ := connected(t)
	p.emitChain("0x1")
	s.Wait()

	_, err := s.WithdrawAll(context.Background())
	assert.ErrorIs(t, err, dapp.ErrWrongNetwork)
	assert.Equal(t, dapp.CodeWrongNetwork, s.State().Message)
	assert.Empty(t, p.sentRequests())
}

func TestTransactionsWithoutProvider(t *testing.T) {
	s := newSession(t, nil, nil)
	_, err := s.WithdrawAll(context.Background())
	assert.ErrorIs(t, err, dapp.ErrNoProvider)
	assert.Equal(t, dapp.CodeNoProvider, s.State().Message)
}

func TestSignatureRejected(t *testing.T) {
	s, p, _ := connected(t)
	before := s.State()
	p.sendErr = wallet.ErrSignatureRejected

	_, err := s.Deposit(context.Background(), "1")
	var txErr *dapp.TxError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, dapp.CodeActionRejected, txErr.Code)

	after := s.State()
	assert.Equal(t, dapp.CodeActionRejected, after.Message)
	assert.Empty(t, after.Busy)
	assert.Equal(t, before.TokenBalance, after.TokenBalance)
	assert.Equal(t, before.NativeBalance, after.NativeBalance)
}

func TestRevertedTransaction(t *testing.T) {
	s, p, _ := connected(t)
	p.waitErr = chain.ErrReverted

	receipt, err := s.WithdrawAll(context.Background())
	assert.ErrorIs(t, err, chain.ErrReverted)
	require.NotNil(t, receipt)
	assert.False(t, receipt.Succeeded())

	st := s.State()
	assert.Equal(t, dapp.CodeCallException, st.Message)
	assert.Empty(t, st.LastTx)
}

func TestSuccessClearsBanner(t *testing.T) {
	s, p, _ := connected(t)
	p.sendErr = wallet.ErrSignatureRejected
	_, _ = s.Deposit(context.Background(), "1")
	require.Equal(t, dapp.CodeActionRejected, s.State().Message)

	p.mu.Lock()
	p.sendErr = nil
	p.mu.Unlock()
	_, err := s.Deposit(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, s.State().Message)
}

func TestConfirmationAfterChainSwitchKeepsNetworkBanner(t *testing.T) {
	s, p, _ := connected(t)
	gate := make(chan struct{})
	p.waitGate = gate

	done := make(chan error, 1)
	go func() {
		_, err := s.Deposit(context.Background(), "1")
		done <- err
	}()
	require.Eventually(t, func() bool { return s.State().Busy == dapp.OpDeposit }, 2*time.Second, 5*time.Millisecond)

	p.emitChain("0x1")
	s.Wait()
	require.Equal(t, "Please select Goerli network", s.State().Message)

	close(gate)
	require.NoError(t, <-done)

	st := s.State()
	assert.Equal(t, "0x1", st.ChainID)
	assert.Equal(t, "Please select Goerli network", st.Message)
	assert.Equal(t, "0xfeed", st.LastTx)
	assert.Empty(t, st.Busy)
}

func TestOneTransactionAtATime(t *testing.T) {
	s, p, _ := connected(t)
	gate := make(chan struct{})
	p.waitGate = gate

	done := make(chan error, 1)
	go func() {
		_, err := s.Deposit(context.Background(), "1")
		done <- err
	}()

	require.Eventually(t, func() bool { return s.State().Busy == dapp.OpDeposit }, 2*time.Second, 5*time.Millisecond)

	_, err := s.Withdraw(context.Background(), "1")
	var txErr *dapp.TxError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, dapp.CodeTxInProgress, txErr.Code)
	assert.Equal(t, dapp.OpDeposit, s.State().Busy, "the first transaction is still in flight")

	close(gate)
	require.NoError(t, <-done)
	assert.Empty(t, s.State().Busy)
	assert.Len(t, p.sentRequests(), 1)
}

func TestConfirmationHonoursContext(t *testing.T) {
	s, p, _ := connected(t)
	p.waitGate = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := s.Deposit(ctx, "1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, dapp.CodeTimeout, s.State().Message)
	assert.Empty(t, s.State().Busy)
}
