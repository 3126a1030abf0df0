package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/therandomchoice/ponzi-cli/internal/config"
	"github.com/therandomchoice/ponzi-cli/internal/ui"
	"github.com/therandomchoice/ponzi-cli/internal/wallet"
)

var (
	walletKeyFlag   string
	walletForceFlag bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the local wallet's accounts",
	Long: `The local wallet holds the accounts the Ponzi page can connect with.

Signing wallets keep their private key in the OS keychain (or an encrypted
file under ~/.ponzi/keyring when no keychain is available). Watch-only
wallets are listed but can never be selected for signing.`,
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Example: `  ponzi wallet add alice --key 0xac09...ff80
  ponzi wallet add cold 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]

		if walletKeyFlag != "" {
			mgr, err := newWalletManager(true)
			if err != nil {
				return err
			}
			w, err := mgr.AddWithKey(name, walletKeyFlag)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
			fmt.Fprintln(out, ui.Hint("Select it with: ponzi wallet use "+name))
			return nil
		}

		if len(args) < 2 {
			return fmt.Errorf("address required for a watch-only wallet\n  Usage: ponzi wallet add <name> <address>\n  Or for signing: ponzi wallet add <name> --key <private-key>")
		}
		mgr, err := newWalletManager(false)
		if err != nil {
			return err
		}
		if err := mgr.Add(name, &wallet.Wallet{Address: args[1], Type: wallet.TypeWatchOnly}); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(args[1]))))
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new signing wallet",
	Long: `Generate a fresh keypair and store the private key in the keychain.

The private key is printed once. Goerli ether for it comes from a faucet;
see: ponzi network list`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		mgr, err := newWalletManager(true)
		if err != nil {
			return err
		}
		w, err := mgr.Generate(args[0])
		if err != nil {
			return err
		}
		hexKey, err := mgr.Keystore().Retrieve(w.KeyRef)
		if err != nil {
			return fmt.Errorf("reading back key: %w", err)
		}

		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s  %s\n", ui.Meta("Wallet :"), ui.Val(w.Name))
		fmt.Fprintf(out, "  %s  %s\n\n", ui.Meta("Address:"), ui.Addr(w.Address))
		fmt.Fprintln(out, ui.DangerBox(
			ui.Warn("SAVE YOUR PRIVATE KEY. It is shown only once.")+"\n\n"+
				ui.Val("0x"+hexKey),
		))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List wallets",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		mgr, err := newWalletManager(false)
		if err != nil {
			return err
		}
		wallets, err := mgr.List()
		if err != nil {
			return err
		}
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets yet."))
			fmt.Fprintln(out, ui.Hint("Create one with: ponzi wallet generate alice"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 44},
			{Title: "Type", Width: 12},
			{Title: "Selected", Width: 8},
			{Title: "Added", Width: 10},
		})
		for _, w := range wallets {
			sel := ""
			if w.IsDefault {
				sel = ui.StyleSuccess.Render("✓")
			}
			t.AddRow(ui.Row{
				ui.Val(w.Name),
				ui.Addr(w.Address),
				ui.Meta(w.Type),
				sel,
				ui.Meta(addedOn(w.CreatedAt)),
			})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s)", len(wallets))))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Select the account the wallet connects with",
	Long: `Select the signing wallet that connect() hands to the page.

Without a name, pick one from a list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		mgr, err := newWalletManager(false)
		if err != nil {
			return err
		}

		name := ""
		if len(args) == 1 {
			name = args[0]
		} else {
			signing, err := mgr.Signing()
			if err != nil {
				return err
			}
			if len(signing) == 0 {
				return wallet.ErrNoSigningWallet
			}
			items := make([]ui.PickerItem, len(signing))
			for i, w := range signing {
				items[i] = ui.PickerItem{
					Label:    w.Name,
					SubLabel: ui.TruncateAddr(w.Address),
					Value:    w.Name,
					Current:  w.IsDefault,
				}
			}
			name, err = ui.PickItem("Select account", items)
			if err != nil {
				return err
			}
			if name == "" {
				fmt.Fprintln(out, ui.Meta("Cancelled."))
				return nil
			}
		}

		w, err := mgr.Get(name)
		if err != nil {
			return err
		}
		if !w.CanSign() {
			return fmt.Errorf("%w: %s", wallet.ErrWatchOnly, name)
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		err = updateConfig(func(c *config.Config) error {
			c.DefaultWallet = name
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Selected %q (%s).", name, ui.Addr(w.Address))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a wallet and its key",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]
		if !walletForceFlag && !ui.Confirm(cmd.InOrStdin(), out, fmt.Sprintf("Remove wallet %q and delete its key?", name)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		mgr, err := newWalletManager(false)
		if err != nil {
			return err
		}
		w, err := mgr.Get(name)
		if err != nil {
			return err
		}
		if w.KeyRef != "" {
			if mgr, err = newWalletManager(true); err != nil {
				return err
			}
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		err = updateConfig(func(c *config.Config) error {
			if c.DefaultWallet == name {
				c.DefaultWallet = ""
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key of a signing wallet (stored in the keychain)")
	walletRemoveCmd.Flags().BoolVarP(&walletForceFlag, "force", "f", false, "skip confirmation")
	walletCmd.AddCommand(walletAddCmd, walletGenerateCmd, walletListCmd, walletUseCmd, walletRemoveCmd)
}

// addedOn shortens an RFC 3339 timestamp to its date.
func addedOn(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
