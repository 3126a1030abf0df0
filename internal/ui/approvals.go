package ui

import (
	"context"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
)

// Approvals carries signing requests from the wallet provider to the page,
// which shows them as a prompt and answers with y/n. The provider side
// blocks in Approve until the page answers or ctx ends.
type Approvals struct {
	requests chan approvalRequest
}

type approvalRequest struct {
	req   chain.TxRequest
	reply chan bool
}

// NewApprovals creates an empty approval queue.
func NewApprovals() *Approvals {
	return &Approvals{requests: make(chan approvalRequest)}
}

// Approve is a wallet.Approver.
func (a *Approvals) Approve(ctx context.Context, req chain.TxRequest) (bool, error) {
	r := approvalRequest{req: req, reply: make(chan bool, 1)}
	select {
	case a.requests <- r:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-r.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
