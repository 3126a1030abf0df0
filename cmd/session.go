package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/dapp"
	"github.com/therandomchoice/ponzi-cli/internal/ui"
	"github.com/therandomchoice/ponzi-cli/internal/wallet"
)

// walletNetwork is the network the wallet starts on. It defaults to the
// supported network; pointing it elsewhere shows the wrong-network banner.
var walletNetwork string

func init() {
	rootCmd.PersistentFlags().StringVar(&walletNetwork, "wallet-network", "", "network the wallet connects to (default: the supported network)")
}

// newWalletManager opens the wallet list. withKeys also opens the keychain,
// which may prompt; listing and selecting wallets never needs it.
func newWalletManager(withKeys bool) (*wallet.Manager, error) {
	opts := []wallet.Option{wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath()))}
	if withKeys {
		ks, err := wallet.OpenKeystore(cfg.KeyringDir())
		if err != nil {
			return nil, err
		}
		opts = append(opts, wallet.WithKeystore(ks))
	}
	return wallet.NewManager(opts...), nil
}

// supportedNetwork resolves the configured network the contract lives on.
func supportedNetwork(reg *chain.Registry) (*chain.Network, error) {
	n, err := reg.GetByName(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("%w: %q, run `ponzi network list`", err, cfg.Network)
	}
	return n, nil
}

type sessionOptions struct {
	logger   *zap.Logger
	approver wallet.Approver
}

// openSession dials the local wallet provider and builds a session over it.
// The provider doubles as the chain reader, so reads follow network switches.
func openSession(ctx context.Context, o sessionOptions) (*dapp.Session, *wallet.Provider, error) {
	reg := chain.NewRegistry()
	supported, err := supportedNetwork(reg)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := newWalletManager(true)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DefaultWallet != "" {
		if err := mgr.SetDefault(cfg.DefaultWallet); err != nil {
			return nil, nil, fmt.Errorf("default_wallet: %w", err)
		}
	}

	start := walletNetwork
	if start == "" {
		start = supported.Name
	}

	popts := []wallet.ProviderOption{
		wallet.WithLogger(o.logger),
		wallet.WithCustomRPCs(cfg.CustomRPCs),
		wallet.WithRPCAlgorithm(cfg.RPCAlgorithm),
		wallet.WithPollInterval(cfg.PollInterval()),
		wallet.WithConfirmTimeout(cfg.ConfirmTimeoutDuration()),
	}
	if cfg.RPCRateLimit > 0 {
		popts = append(popts, wallet.WithClientOptions(chain.WithRateLimit(cfg.RPCRateLimit, int(cfg.RPCRateLimit))))
	}
	if o.approver != nil {
		popts = append(popts, wallet.WithApprover(o.approver))
	}

	provider, err := wallet.Dial(ctx, mgr, reg, start, popts...)
	if err != nil {
		return nil, nil, err
	}

	session := dapp.NewSession(provider, provider, dapp.Options{
		Contract:         cfg.ContractAddress,
		SupportedChainID: supported.HexChainID(),
		Network:          supported.DisplayName,
		RefreshOnConfirm: cfg.RefreshOnConfirm,
		Logger:           o.logger,
	})
	return session, provider, nil
}

// connectAndLoad connects the session and waits for the first balance read.
// A non-empty banner afterwards is returned as the error.
func connectAndLoad(ctx context.Context, s *dapp.Session) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.Wait()
	if msg := s.State().Message; msg != "" {
		return errors.New(msg)
	}
	return nil
}

// printState renders the page's table for one-shot commands.
func printState(out io.Writer, st dapp.State, net *chain.Network) {
	title := "Ponzi · " + st.Network
	pairs := [][2]string{
		{"Account", ui.Addr(st.Account)},
		{"Wallet network", fmt.Sprintf("%s (%s)", ui.ChainName(net.DisplayName), st.ChainID)},
		{"Ponzi balance", ui.Val(orDash(st.TokenBalance))},
		{"Ether balance", ui.Val(orDash(st.NativeBalance))},
		{"Contract address", ui.Addr(st.Contract)},
		{"Contract ether balance", ui.Val(orDash(st.ContractNativeBalance))},
	}
	fmt.Fprintln(out, ui.KeyValueBlock(title, pairs))
}

// errLine formats a command error for stderr.
func errLine(err error) string {
	var txErr *dapp.TxError
	if errors.As(err, &txErr) {
		return ui.Err(fmt.Sprintf("%s failed: %s", txErr.Op, txErr.Code)) + "\n" + ui.Meta("  "+txErr.Err.Error())
	}
	return ui.Err(err.Error())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
