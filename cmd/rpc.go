package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/config"
	"github.com/therandomchoice/ponzi-cli/internal/rpc"
	"github.com/therandomchoice/ponzi-cli/internal/ui"
)

const benchTimeout = 15 * time.Second

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC URL for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		if _, err := chain.NewRegistry().GetByName(name); err != nil {
			return err
		}
		err := updateConfig(func(c *config.Config) error {
			return c.AddRPC(name, url)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(name), url)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:     "remove <network> <url>",
	Aliases: []string{"rm"},
	Short:   "Remove a custom RPC URL",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		err := updateConfig(func(c *config.Config) error {
			return c.RemoveRPC(name, url)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed RPC for %s: %s", name, url)))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list [network]",
	Short: "List the RPCs for a network (default: the supported one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n, err := networkArg(args)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, ui.StyleTitle.Render("RPCs for "+n.DisplayName))
		if custom := cfg.GetRPCs(n.Name); len(custom) > 0 {
			fmt.Fprintln(out, ui.StyleKey.Render("Custom:"))
			for _, r := range custom {
				fmt.Fprintf(out, "  %s\n", r)
			}
		}
		fmt.Fprintln(out, ui.StyleKey.Render("Built-in:"))
		for _, r := range n.RPCs {
			fmt.Fprintf(out, "  %s\n", r)
		}
		return nil
	},
}

var rpcBenchCmd = &cobra.Command{
	Use:     "bench [network]",
	Aliases: []string{"benchmark"},
	Short:   "Ping every RPC for a network and show which one would be picked",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		n, err := networkArg(args)
		if err != nil {
			return err
		}
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}
		urls := append(append([]string{}, cfg.GetRPCs(n.Name)...), n.RPCs...)

		ctx, cancel := context.WithTimeout(cmd.Context(), benchTimeout)
		defer cancel()

		spin := ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("pinging %d endpoints…", len(urls)))
		spin.Start()
		results := rpc.BenchmarkEVM(ctx, urls)
		spin.Stop()

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 44},
			{Title: "Latency", Width: 10},
			{Title: "Block #", Width: 12},
			{Title: "Status", Width: 10},
		})
		for _, r := range results {
			if r.Err != nil {
				t.AddRow(ui.Row{r.URL, "-", "-", ui.Err("down")})
				continue
			}
			t.AddRow(ui.Row{
				r.URL,
				fmt.Sprintf("%dms", r.Latency.Milliseconds()),
				fmt.Sprintf("%d", r.BlockNumber),
				ui.Success("ok"),
			})
		}
		fmt.Fprintln(out, t.Render())

		winner, err := rpc.NewPicker(algo).Pick(rpc.ResultsToEndpoints(results))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Info(fmt.Sprintf("%s picks %s", algo, winner.URL)))
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcBenchCmd)
}

// networkArg resolves an optional network argument, defaulting to the
// supported network.
func networkArg(args []string) (*chain.Network, error) {
	reg := chain.NewRegistry()
	if len(args) == 0 {
		return supportedNetwork(reg)
	}
	return reg.GetByName(args[0])
}
