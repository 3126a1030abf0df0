package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/contract"
)

// Confirm writes prompt to out and reads a yes/no answer from in.
// Anything but "y" or "yes" is a no.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", StyleWarning.Render(prompt))
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// DescribeTx names the contract call in req, e.g. "deposit()" or
// "withdraw(1.5)". Unknown calldata is shown by selector.
func DescribeTx(req chain.TxRequest) string {
	fn, err := contract.PonziABI().FunctionBySelector(req.Data)
	if err != nil {
		if len(req.Data) >= 4 {
			return fmt.Sprintf("0x%x…", req.Data[:4])
		}
		return "transfer"
	}
	if fn.Name == contract.FnWithdraw && len(req.Data) >= 36 {
		amount := new(big.Int).SetBytes(req.Data[4:36])
		return fmt.Sprintf("%s(%s)", fn.Name, chain.FormatUnits(amount, chain.EtherDecimals))
	}
	return fn.Name + "()"
}

// TxPreview renders the signing request the way a wallet popup would.
func TxPreview(network string, req chain.TxRequest) string {
	value := "0.0"
	if req.Value != nil {
		value = chain.WeiToETH(req.Value)
	}
	return KeyValueBlock("Signature request", [][2]string{
		{"Network", network},
		{"From", req.From},
		{"Contract", req.To},
		{"Call", DescribeTx(req)},
		{"Value (ETH)", value},
	})
}

// TerminalApprover returns a wallet approver that previews each request on
// out and asks for confirmation on in. With autoYes it previews and approves.
func TerminalApprover(in io.Reader, out io.Writer, network string, autoYes bool) func(context.Context, chain.TxRequest) (bool, error) {
	return func(ctx context.Context, req chain.TxRequest) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintln(out, TxPreview(network, req))
		if autoYes {
			return true, nil
		}
		return Confirm(in, out, "Sign and send?"), nil
	}
}
