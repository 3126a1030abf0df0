package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/config"
	"github.com/therandomchoice/ponzi-cli/internal/httpapi"
	"github.com/therandomchoice/ponzi-cli/internal/ui"
)

var (
	serveYes     bool
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Ponzi session as a local JSON API",
	Long: `Serve the session over HTTP on listen_addr (default 127.0.0.1:7545).

A transaction posted to the API is previewed in this terminal and waits for
a y/n answer here, the way a wallet pops up a signing dialog. --yes signs
without asking.`,
	Example: `  ponzi serve
  curl -X POST localhost:7545/api/connect
  curl -X POST -d '{"amount":"0.1"}' localhost:7545/api/deposit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(false)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		supported, err := supportedNetwork(chain.NewRegistry())
		if err != nil {
			return err
		}
		approve := ui.TerminalApprover(cmd.InOrStdin(), cmd.OutOrStdout(), supported.DisplayName, serveYes)
		session, provider, err := openSession(ctx, sessionOptions{
			logger:   logger,
			approver: approve,
		})
		if err != nil {
			return err
		}
		defer session.Close()

		go provider.Watch(ctx)

		logger.Info("serving session",
			zap.String("network", supported.Name),
			zap.String("contract", cfg.ContractAddress),
			zap.Bool("auto_sign", serveYes))

		return httpapi.Serve(ctx, httpapi.Config{
			ListenAddr:     cfg.ListenAddr,
			AllowedOrigins: serveOrigins,
			RefreshTimeout: config.RPCSelectTimeout + cfg.PollInterval(),
		}, session, logger)
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.String("listen", "", "listen address (default 127.0.0.1:7545)")
	flags.BoolVarP(&serveYes, "yes", "y", false, "sign every request without asking")
	flags.StringSliceVar(&serveOrigins, "origin", nil, "allowed CORS origin (repeatable, default any)")
	bindOverlay(flags, "listen_addr", "listen")
}
