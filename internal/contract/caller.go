package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
)

// ErrNoData is returned when a call comes back shorter than its outputs,
// which is what a node answers for an address with no code.
var ErrNoData = errors.New("no data returned (is the contract deployed on this network?)")

// Reader is the read side of a chain connection.
type Reader interface {
	CallContract(ctx context.Context, msg chain.CallMsg) ([]byte, error)
}

// Caller calls read-only (view/pure) contract functions.
type Caller struct {
	reader Reader
	abi    ABI
}

// NewCaller creates a Caller over reader for the given ABI.
func NewCaller(reader Reader, abi ABI) *Caller {
	return &Caller{reader: reader, abi: abi}
}

// Call calls a read function on a contract and returns decoded results as strings.
func (c *Caller) Call(ctx context.Context, contractAddr, funcName string, args ...string) ([]string, error) {
	fn, data, err := c.call(ctx, contractAddr, funcName, args)
	if err != nil {
		return nil, err
	}
	decoded, err := decodeResult(fn, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", funcName, err)
	}
	return decoded, nil
}

// CallUint calls a read function whose first output is an unsigned integer
// and returns it.
func (c *Caller) CallUint(ctx context.Context, contractAddr, funcName string, args ...string) (*big.Int, error) {
	fn, data, err := c.call(ctx, contractAddr, funcName, args)
	if err != nil {
		return nil, err
	}
	if len(fn.Outputs) == 0 || !strings.HasPrefix(fn.Outputs[0].Type, "uint") {
		return nil, fmt.Errorf("function %q does not return an unsigned integer", funcName)
	}
	if len(data) < 32 {
		return nil, fmt.Errorf("calling %s: %w", funcName, ErrNoData)
	}
	return new(big.Int).SetBytes(data[:32]), nil
}

func (c *Caller) call(ctx context.Context, contractAddr, funcName string, args []string) (*ABIEntry, []byte, error) {
	fn, err := c.abi.Function(funcName)
	if err != nil {
		return nil, nil, err
	}
	if !fn.IsReadFunction() {
		return nil, nil, fmt.Errorf("function %q is not a read function (stateMutability: %s)", funcName, fn.StateMutability)
	}

	calldata, err := EncodeCall(fn, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding call: %w", err)
	}

	data, err := c.reader.CallContract(ctx, chain.CallMsg{To: contractAddr, Data: calldata})
	if err != nil {
		return nil, nil, fmt.Errorf("calling %s: %w", funcName, err)
	}
	return fn, data, nil
}
