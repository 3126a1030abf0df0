package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/therandomchoice/ponzi-cli/internal/config"
	"github.com/therandomchoice/ponzi-cli/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
}

var configShowCmd = &cobra.Command{
	Use:     "show [key]",
	Aliases: []string{"list", "get"},
	Short:   "Show the effective configuration, or one key",
	Long: `Show the configuration after .env, PONZI_* variables and flags are
applied. Only "config set" writes config.json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, v)
			return nil
		}

		pairs := make([][2]string, 0, len(config.Keys)+1)
		for _, k := range config.Keys {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			pairs = append(pairs, [2]string{k, ui.Val(orDash(v))})
		}
		networks := make([]string, 0, len(cfg.CustomRPCs))
		for n := range cfg.CustomRPCs {
			networks = append(networks, n)
		}
		sort.Strings(networks)
		for _, n := range networks {
			pairs = append(pairs, [2]string{"custom_rpcs." + n, strings.Join(cfg.CustomRPCs[n], ", ")})
		}

		fmt.Fprintln(out, ui.KeyValueBlock("Configuration", pairs))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key and save it",
	Long: "Set a configuration key and save it.\n\nKeys: " + strings.Join(config.Keys, ", ") +
		"\nCustom RPCs are managed with `ponzi rpc add|remove`.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		err := updateConfig(func(c *config.Config) error {
			return c.Set(key, value)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %q", key, value)))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
