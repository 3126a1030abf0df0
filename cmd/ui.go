package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/ui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive Ponzi page",
	Long: `Open the Ponzi page: your balances, the contract's ether and an
amount field with deposit and withdraw actions.

Signing requests show up in the page as a y/n prompt. The log goes to
~/.ponzi/ponzi.log since the page owns the terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(true)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		approvals := ui.NewApprovals()
		session, provider, err := openSession(ctx, sessionOptions{
			logger:   logger,
			approver: approvals.Approve,
		})
		if err != nil {
			return err
		}
		defer session.Close()

		go provider.Watch(ctx)

		logger.Info("page opened",
			zap.String("network", cfg.Network),
			zap.String("contract", cfg.ContractAddress),
			zap.String("rpc", provider.RPCURL()))

		err = ui.RunPage(ctx, ui.PageConfig{
			Session:   session,
			Wallet:    provider,
			Registry:  chain.NewRegistry(),
			Approvals: approvals,
		})
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("page: %w", err)
		}
		return nil
	},
}
