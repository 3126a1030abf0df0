package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/therandomchoice/ponzi-cli/internal/config"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/therandomchoice/ponzi-cli/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir  string
	cfg     *config.Config
	verbose bool
	envFile string
)

// overlays resolves PONZI_* env vars and bound flags on top of the file.
var overlays = config.NewViper()

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "ponzi",
	Short: "Terminal client for the Ponzi contract",
	Long: `ponzi: deposit ether into the Ponzi contract, get ponzi back, withdraw it.

  Wallets live in ~/.ponzi with keys in your OS keychain. The contract and the
  network it lives on (Goerli by default) come from config, PONZI_* env vars
  or flags, in increasing priority.

Start the interactive page with: ponzi ui`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		dir := cfgDir
		if env := os.Getenv("PONZI_CONFIG_DIR"); env != "" {
			dir = env
		}
		var err error
		cfg, err = config.Load(dir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := config.ApplyOverrides(cfg, overlays); err != nil {
			return err
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errLine(err))
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgDir, "config", "", "config directory (default: ~/.ponzi, env PONZI_CONFIG_DIR)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before config")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	flags.String("network", "", "supported network (default: goerli)")
	flags.String("contract", "", "Ponzi contract address")
	flags.String("log-level", "", "debug|info|warn|error")
	bindOverlay(flags, "network", "network")
	bindOverlay(flags, "contract_address", "contract")
	bindOverlay(flags, "log_level", "log-level")

	rootCmd.AddCommand(
		walletCmd,
		networkCmd,
		rpcCmd,
		configCmd,
		balancesCmd,
		depositCmd,
		withdrawCmd,
		withdrawAllCmd,
		uiCmd,
		serveCmd,
	)
}

// bindOverlay makes flag name a source for config key, above PONZI_<KEY>.
func bindOverlay(flags *pflag.FlagSet, key, name string) {
	if err := overlays.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}

// newLogger builds the zap logger for a command. toFile sends records to
// ~/.ponzi/ponzi.log, which the terminal page needs because it owns stdout.
func newLogger(toFile bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if !toFile && !verbose {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	} else if !toFile && cfg.LogLevel == "info" {
		// one-shot commands print their own output; keep stderr for problems.
		level = "warn"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc.Level = lvl
	if toFile {
		zc.OutputPaths = []string{cfg.LogPath()}
		zc.ErrorOutputPaths = []string{cfg.LogPath()}
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	return logger, nil
}

// updateConfig applies mutate to the config file on disk and saves it, so
// env and flag overlays in effect for this run are never persisted.
func updateConfig(mutate func(*config.Config) error) error {
	onDisk, err := config.Load(cfg.Dir())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := mutate(onDisk); err != nil {
		return err
	}
	return onDisk.Save()
}
