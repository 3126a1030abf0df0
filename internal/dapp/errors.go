package dapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/contract"
	"github.com/therandomchoice/ponzi-cli/internal/wallet"
)

// Failure codes shown in the diagnostic banner. They follow the codes
// ethers.js attaches to wallet and contract errors.
const (
	CodeNoProvider            = "NO_PROVIDER"
	CodeConnectionRejected    = "CONNECTION_REJECTED"
	CodeWrongNetwork          = "WRONG_NETWORK"
	CodeNotConnected          = "NOT_CONNECTED"
	CodeInvalidArgument       = "INVALID_ARGUMENT"
	CodeActionRejected        = "ACTION_REJECTED"
	CodeInsufficientFunds     = "INSUFFICIENT_FUNDS"
	CodeCallException         = "CALL_EXCEPTION"
	CodeUnpredictableGasLimit = "UNPREDICTABLE_GAS_LIMIT"
	CodeNetworkError          = "NETWORK_ERROR"
	CodeTimeout               = "TIMEOUT"
	CodeTxInProgress          = "TX_IN_PROGRESS"
	CodeUnknown               = "UNKNOWN_ERROR"
)

var (
	// ErrNoProvider means the session was created without a wallet provider.
	ErrNoProvider = errors.New("wallet provider required")
	// ErrConnectionRejected wraps the provider's refusal to grant accounts.
	ErrConnectionRejected = errors.New("connection rejected")
	// ErrWrongNetwork is returned when the wallet is not on the supported network.
	ErrWrongNetwork = errors.New("wrong network")
	// ErrNotConnected is returned for transactions before an account is known.
	ErrNotConnected = errors.New("no connected account")
	// ErrInvalidAmount is returned for amounts rejected before submission.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrTxInProgress is returned when a transaction is already awaiting confirmation.
	ErrTxInProgress = errors.New("a transaction is already in progress")
)

// TxError is the per-operation result of a failed transaction. Code is what
// the banner shows; Err keeps the full cause for logs and callers.
type TxError struct {
	Op   string
	Code string
	Err  error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Code, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

// Classify maps an error to one of the Code* values. nil maps to "".
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr.Code
	}

	switch {
	case errors.Is(err, ErrNoProvider):
		return CodeNoProvider
	case errors.Is(err, ErrConnectionRejected), errors.Is(err, wallet.ErrRequestRejected):
		return CodeConnectionRejected
	case errors.Is(err, ErrWrongNetwork):
		return CodeWrongNetwork
	case errors.Is(err, ErrNotConnected), errors.Is(err, wallet.ErrUnauthorized):
		return CodeNotConnected
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, chain.ErrInvalidAmount):
		return CodeInvalidArgument
	case errors.Is(err, ErrTxInProgress):
		return CodeTxInProgress
	case errors.Is(err, wallet.ErrSignatureRejected):
		return CodeActionRejected
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, chain.ErrReverted), errors.Is(err, contract.ErrNoData):
		return CodeCallException
	}

	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		msg := strings.ToLower(rpcErr.Message)
		switch {
		case strings.Contains(msg, "insufficient funds"):
			return CodeInsufficientFunds
		case errors.Is(err, wallet.ErrGasEstimation):
			return CodeUnpredictableGasLimit
		case strings.Contains(msg, "revert"):
			return CodeCallException
		}
		return CodeUnknown
	}

	var httpErr *chain.HTTPError
	if errors.As(err, &httpErr) {
		return CodeNetworkError
	}
	return CodeUnknown
}
