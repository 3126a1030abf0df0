package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
)

// ErrNotPayable is returned when value is attached to a non-payable function.
var ErrNotPayable = errors.New("function is not payable")

// TxBackend signs and broadcasts a transaction request, returning its hash.
type TxBackend interface {
	SendTransaction(ctx context.Context, req chain.TxRequest) (string, error)
}

// Sender sends write transactions to contracts.
type Sender struct {
	backend TxBackend
	abi     ABI
}

// NewSender creates a Sender.
func NewSender(backend TxBackend, abi ABI) *Sender {
	return &Sender{backend: backend, abi: abi}
}

// Build validates the call and returns the unsigned request for it.
func (s *Sender) Build(from, contractAddr string, value *big.Int, funcName string, args ...string) (chain.TxRequest, error) {
	fn, err := s.abi.Function(funcName)
	if err != nil {
		return chain.TxRequest{}, err
	}
	if !fn.IsWriteFunction() {
		return chain.TxRequest{}, fmt.Errorf("function %q is not a write function", funcName)
	}
	if value != nil && value.Sign() > 0 && !fn.IsPayable() {
		return chain.TxRequest{}, fmt.Errorf("%w: %s", ErrNotPayable, funcName)
	}
	if !common.IsHexAddress(contractAddr) {
		return chain.TxRequest{}, fmt.Errorf("invalid contract address %q", contractAddr)
	}

	calldata, err := EncodeCall(fn, args...)
	if err != nil {
		return chain.TxRequest{}, fmt.Errorf("encoding call: %w", err)
	}

	req := chain.TxRequest{From: from, To: contractAddr, Data: calldata}
	if value != nil {
		req.Value = new(big.Int).Set(value)
	}
	return req, nil
}

// Send calls a write function and broadcasts the transaction.
// Returns the transaction hash.
func (s *Sender) Send(ctx context.Context, from, contractAddr string, value *big.Int, funcName string, args ...string) (string, error) {
	req, err := s.Build(from, contractAddr, value, funcName, args...)
	if err != nil {
		return "", err
	}
	return s.backend.SendTransaction(ctx, req)
}
