package dapp

import (
	"context"
	"fmt"
	"math/big"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/contract"
)

// ChainReader is the read-only side of a network connection.
type ChainReader interface {
	CallContract(ctx context.Context, msg chain.CallMsg) ([]byte, error)
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
}

// BalanceReader reads the three balances shown on the page. Every read
// returns "" without touching the network when the account is empty or the
// chain is not the supported one.
type BalanceReader struct {
	reader   ChainReader
	caller   *contract.Caller
	guard    Guard
	contract string
}

// NewBalanceReader creates a reader for the Ponzi contract at contractAddr.
func NewBalanceReader(reader ChainReader, guard Guard, contractAddr string) *BalanceReader {
	return &BalanceReader{
		reader:   reader,
		caller:   contract.NewCaller(reader, contract.PonziABI()),
		guard:    guard,
		contract: contractAddr,
	}
}

// ReadTokenBalance returns balanceOf(account) on the contract.
func (r *BalanceReader) ReadTokenBalance(ctx context.Context, account, chainID string) (string, error) {
	if !r.ready(account, chainID) {
		return "", nil
	}
	raw, err := r.caller.CallUint(ctx, r.contract, contract.FnBalanceOf, account)
	if err != nil {
		return "", fmt.Errorf("reading token balance: %w", err)
	}
	return chain.FormatUnits(raw, chain.EtherDecimals), nil
}

// ReadNativeBalance returns the native balance of account.
func (r *BalanceReader) ReadNativeBalance(ctx context.Context, account, chainID string) (string, error) {
	if !r.ready(account, chainID) {
		return "", nil
	}
	return r.native(ctx, account, "reading native balance")
}

// ReadContractNativeBalance returns the native balance held by the contract.
// Like the other reads it stays empty until an account is connected.
func (r *BalanceReader) ReadContractNativeBalance(ctx context.Context, account, chainID string) (string, error) {
	if !r.ready(account, chainID) {
		return "", nil
	}
	return r.native(ctx, r.contract, "reading contract balance")
}

func (r *BalanceReader) native(ctx context.Context, address, what string) (string, error) {
	raw, err := r.reader.BalanceAt(ctx, address)
	if err != nil {
		return "", fmt.Errorf("%s: %w", what, err)
	}
	return chain.WeiToETH(raw), nil
}

func (r *BalanceReader) ready(account, chainID string) bool {
	return r.reader != nil && account != "" && r.guard.Valid(chainID)
}
