package dapp

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/contract"
)

// Transaction operation names, as reported in TxError.Op and State.Busy.
const (
	OpDeposit     = "deposit"
	OpWithdraw    = "withdraw"
	OpWithdrawAll = "withdrawAll"
)

// Deposit sends amount of native currency to the contract's payable deposit().
func (s *Session) Deposit(ctx context.Context, amount string) (*chain.TxReceipt, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, s.reject(OpDeposit, err)
	}
	return s.submit(ctx, OpDeposit, value, contract.FnDeposit)
}

// Withdraw calls withdraw(amount) with amount in the token's smallest unit.
func (s *Session) Withdraw(ctx context.Context, amount string) (*chain.TxReceipt, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, s.reject(OpWithdraw, err)
	}
	return s.submit(ctx, OpWithdraw, nil, contract.FnWithdraw, value.String())
}

// WithdrawAll calls withdrawAll().
func (s *Session) WithdrawAll(ctx context.Context) (*chain.TxReceipt, error) {
	return s.submit(ctx, OpWithdrawAll, nil, contract.FnWithdrawAll)
}

// ParseAmount converts a user-entered decimal into smallest units. Empty,
// malformed, negative and zero amounts are rejected, as are amounts with more
// than 18 fractional digits.
func ParseAmount(amount string) (*big.Int, error) {
	v, err := chain.ParseUnits(amount, chain.EtherDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidAmount, amount)
	}
	return v, nil
}

// submit runs one transaction from preflight checks to one confirmation.
func (s *Session) submit(ctx context.Context, op string, value *big.Int, fn string, args ...string) (*chain.TxReceipt, error) {
	log := s.log.With(zap.String("op", op), zap.String("op_id", uuid.NewString()))

	s.mu.Lock()
	var preflight error
	switch {
	case s.provider == nil:
		preflight = ErrNoProvider
	case s.state.Busy != "":
		preflight = fmt.Errorf("%w: %s", ErrTxInProgress, s.state.Busy)
	case s.state.Account == "":
		preflight = ErrNotConnected
	case !s.guard.Valid(s.state.ChainID):
		preflight = fmt.Errorf("%w: chain %s, want %s", ErrWrongNetwork, s.state.ChainID, s.guard.SupportedChainID())
	}
	if preflight != nil {
		s.mu.Unlock()
		return nil, s.reject(op, preflight)
	}
	account := s.state.Account
	s.state.Busy = op
	snapshot, listeners := s.state, s.listenersLocked()
	s.mu.Unlock()
	notify(listeners, snapshot)

	log.Info("submitting transaction", zap.String("from", account), zap.String("contract", s.opts.Contract))

	hash, err := s.sender.Send(ctx, account, s.opts.Contract, value, fn, args...)
	if err != nil {
		return nil, s.finish(log, op, "", err)
	}
	log.Info("transaction sent, waiting for confirmation", zap.String("hash", hash))

	receipt, err := s.provider.WaitForConfirmation(ctx, hash)
	if err != nil {
		return receipt, s.finish(log, op, hash, err)
	}
	log.Info("transaction confirmed", zap.String("hash", hash), zap.Uint64("block", receipt.BlockNumber))

	_ = s.finish(log, op, hash, nil)
	if s.opts.RefreshOnConfirm {
		s.refreshInBackground()
	}
	return receipt, nil
}

// reject reports a failure that happened before anything was sent.
func (s *Session) reject(op string, err error) error {
	txErr := &TxError{Op: op, Code: Classify(err), Err: err}
	s.log.Info("transaction rejected", zap.String("op", op), zap.String("code", txErr.Code), zap.Error(err))
	s.update(func(st *State) {
		st.Message = txErr.Code
		s.refreshFailed = false
	})
	return txErr
}

// finish ends the in-flight transaction. With err nil the hash is recorded
// and the banner falls back to the network diagnostic for whatever chain the
// wallet is on now; otherwise the banner shows the failure code. Balances are
// never touched here.
func (s *Session) finish(log *zap.Logger, op, hash string, err error) error {
	var txErr *TxError
	if err != nil {
		txErr = &TxError{Op: op, Code: Classify(err), Err: err}
		log.Warn("transaction failed", zap.String("hash", hash), zap.String("code", txErr.Code), zap.Error(err))
	}

	s.update(func(st *State) {
		st.Busy = ""
		s.refreshFailed = false
		if txErr != nil {
			st.Message = txErr.Code
			return
		}
		st.Message = s.idleBanner(st)
		st.LastTx = hash
	})

	if txErr != nil {
		return txErr
	}
	return nil
}
