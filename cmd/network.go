package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/config"
	"github.com/therandomchoice/ponzi-cli/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "List networks and choose the one the contract lives on",
}

var networkListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List known networks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 12},
			{Title: "Display", Width: 14},
			{Title: "Chain ID", Width: 10},
			{Title: "Currency", Width: 8},
			{Title: "Faucet", Width: 30},
			{Title: "", Width: 10},
		})
		for _, n := range reg.All() {
			mark := ""
			if n.Name == cfg.Network {
				mark = ui.StyleSuccess.Render("supported")
			}
			t.AddRow(ui.Row{
				ui.ChainName(n.Name),
				n.DisplayName,
				n.HexChainID(),
				n.NativeCurrency,
				ui.Meta(orDash(n.FaucetURL)),
				mark,
			})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d networks", len(reg.All()))))
		return nil
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the network the contract is deployed on",
	Long: `Set the supported network and persist it to config.

The page refuses every read and write while the wallet is on any other
network. Without a name, pick one from a list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		reg := chain.NewRegistry()

		name := ""
		if len(args) == 1 {
			name = args[0]
		} else {
			all := reg.All()
			items := make([]ui.PickerItem, len(all))
			for i, n := range all {
				items[i] = ui.PickerItem{
					Label:    n.DisplayName,
					SubLabel: n.HexChainID(),
					Value:    n.Name,
					Current:  n.Name == cfg.Network,
				}
			}
			var err error
			name, err = ui.PickItem("Supported network", items)
			if err != nil {
				return err
			}
			if name == "" {
				fmt.Fprintln(out, ui.Meta("Cancelled."))
				return nil
			}
		}

		n, err := reg.GetByName(name)
		if err != nil {
			return fmt.Errorf("%w, run `ponzi network list`", err)
		}
		err = updateConfig(func(c *config.Config) error {
			return c.Set("network", n.Name)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Supported network set to %s (%s)", ui.ChainName(n.DisplayName), n.HexChainID())))
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkUseCmd)
}
