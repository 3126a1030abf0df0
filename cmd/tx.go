package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/dapp"
	"github.com/therandomchoice/ponzi-cli/internal/ui"
	"github.com/therandomchoice/ponzi-cli/internal/wallet"
)

var txYes bool

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show your Ponzi and Ether balances and the contract's Ether",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger, err := newLogger(false)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		session, provider, err := openSession(ctx, sessionOptions{logger: logger})
		if err != nil {
			return err
		}
		defer session.Close()

		loadErr := connectAndLoad(ctx, session)
		if session.State().Account != "" {
			printState(cmd.OutOrStdout(), session.State(), provider.Network())
		}
		return loadErr
	},
}

var depositCmd = &cobra.Command{
	Use:   "deposit <ether>",
	Short: "Deposit Ether into the contract for Ponzi",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTx(cmd, dapp.OpDeposit, func(s *dapp.Session) (*chain.TxReceipt, error) {
			return s.Deposit(cmd.Context(), args[0])
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <ponzi>",
	Short: "Withdraw Ponzi from the contract for Ether",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTx(cmd, dapp.OpWithdraw, func(s *dapp.Session) (*chain.TxReceipt, error) {
			return s.Withdraw(cmd.Context(), args[0])
		})
	},
}

var withdrawAllCmd = &cobra.Command{
	Use:   "withdraw-all",
	Short: "Withdraw all your Ponzi for Ether",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTx(cmd, dapp.OpWithdrawAll, func(s *dapp.Session) (*chain.TxReceipt, error) {
			return s.WithdrawAll(cmd.Context())
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{depositCmd, withdrawCmd, withdrawAllCmd} {
		c.Flags().BoolVarP(&txYes, "yes", "y", false, "sign without asking")
	}
}

// runTx connects, asks for confirmation in the terminal, submits and waits
// for one confirmation with a spinner on stderr.
func runTx(cmd *cobra.Command, op string, submit func(*dapp.Session) (*chain.TxReceipt, error)) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := chain.NewRegistry()
	supported, err := supportedNetwork(reg)
	if err != nil {
		return err
	}

	spin := ui.NewSpinner(os.Stderr, "waiting for confirmation…")
	approve := ui.TerminalApprover(cmd.InOrStdin(), out, supported.DisplayName, txYes)
	session, provider, err := openSession(ctx, sessionOptions{
		logger:   logger,
		approver: withSpinner(approve, spin),
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := connectAndLoad(ctx, session); err != nil {
		return err
	}
	printState(out, session.State(), provider.Network())

	receipt, err := submit(session)
	spin.Stop()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s confirmed in block %d", op, receipt.BlockNumber)))
	fmt.Fprintln(out, ui.Meta("hash: ")+ui.Addr(receipt.Hash))
	if url := provider.Network().TxURL(receipt.Hash); url != "" {
		fmt.Fprintln(out, ui.Meta(url))
	}
	if !cfg.RefreshOnConfirm {
		fmt.Fprintln(out, ui.Hint("balances are not re-read after a transaction; run `ponzi balances`"))
	}
	return nil
}

// withSpinner starts spin once the user approves, so it covers broadcast
// and confirmation but never the prompt.
func withSpinner(approve func(context.Context, chain.TxRequest) (bool, error), spin *ui.Spinner) wallet.Approver {
	return func(ctx context.Context, req chain.TxRequest) (bool, error) {
		ok, err := approve(ctx, req)
		if ok && err == nil {
			spin.Start()
		}
		return ok, err
	}
}
