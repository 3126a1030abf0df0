package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/dapp"
)

// Wallet is the part of the wallet provider the page drives directly: the
// account and network switches a user makes in their wallet.
type Wallet interface {
	NextAccount() (string, error)
	SwitchNetwork(ctx context.Context, name string) error
	Network() *chain.Network
}

// PageConfig wires the page to a session.
type PageConfig struct {
	Session   *dapp.Session
	Wallet    Wallet          // optional; a and n are disabled without it
	Registry  *chain.Registry // network cycling order
	Approvals *Approvals      // optional; signing prompts shown in the page
}

type (
	stateChangedMsg struct{}
	approvalMsg     struct{ r approvalRequest }
	frameMsg        time.Time
	opDoneMsg       struct {
		op     string
		detail string
		err    error
	}
)

// pageModel is the Bubble Tea model for the single Ponzi page.
type pageModel struct {
	ctx       context.Context
	session   *dapp.Session
	wallet    Wallet
	registry  *chain.Registry
	approvals *Approvals
	changes   chan struct{}

	state    dapp.State
	pending  *approvalRequest
	flash    string
	frame    int
	quitting bool
}

// RunPage runs the page until the user quits or ctx is done.
func RunPage(ctx context.Context, cfg PageConfig) error {
	m := newPage(ctx, cfg)
	unsubscribe := cfg.Session.Subscribe(m.notify)
	defer unsubscribe()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func newPage(ctx context.Context, cfg PageConfig) pageModel {
	registry := cfg.Registry
	if registry == nil {
		registry = chain.NewRegistry()
	}
	return pageModel{
		ctx:       ctx,
		session:   cfg.Session,
		wallet:    cfg.Wallet,
		registry:  registry,
		approvals: cfg.Approvals,
		changes:   make(chan struct{}, 1),
		state:     cfg.Session.State(),
	}
}

// notify is the session listener. It never blocks: bursts of changes
// collapse into one redraw.
func (m pageModel) notify(dapp.State) {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m pageModel) Init() tea.Cmd {
	return tea.Batch(m.waitForChange(), m.waitForApproval(), frameTick())
}

func (m pageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateChangedMsg:
		m.state = m.session.State()
		return m, m.waitForChange()

	case approvalMsg:
		r := msg.r
		m.pending = &r
		return m, nil

	case opDoneMsg:
		m.state = m.session.State()
		switch {
		case msg.err != nil && !bannerOp(msg.op):
			m.flash = Err(msg.err.Error())
		case msg.err == nil && msg.detail != "":
			m.flash = Success(msg.detail)
		default:
			m.flash = ""
		}
		return m, nil

	case frameMsg:
		m.frame++
		return m, frameTick()
	}
	return m, nil
}

func (m pageModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.pending != nil {
		switch key {
		case "y", "Y":
			return m.answer(true)
		case "n", "N", "esc":
			return m.answer(false)
		case "ctrl+c":
			m.pending.reply <- false
			m.pending = nil
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	m.flash = ""
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "c":
		return m, m.run("connect", func(ctx context.Context) (string, error) {
			return "", m.session.Connect(ctx)
		})

	case "M":
		m.session.SetMaxToken()
	case "E":
		m.session.SetMaxNative()

	case "d":
		amount := m.state.Amount
		return m, m.run(dapp.OpDeposit, func(ctx context.Context) (string, error) {
			return confirmed(m.session.Deposit(ctx, amount))
		})
	case "w":
		amount := m.state.Amount
		return m, m.run(dapp.OpWithdraw, func(ctx context.Context) (string, error) {
			return confirmed(m.session.Withdraw(ctx, amount))
		})
	case "W":
		return m, m.run(dapp.OpWithdrawAll, func(ctx context.Context) (string, error) {
			return confirmed(m.session.WithdrawAll(ctx))
		})

	case "a":
		if m.wallet == nil {
			return m, nil
		}
		return m, m.run("account", func(context.Context) (string, error) {
			name, err := m.wallet.NextAccount()
			if err != nil {
				return "", err
			}
			return "switched to wallet " + name, nil
		})

	case "n":
		if m.wallet == nil {
			return m, nil
		}
		next := m.registry.Next(m.wallet.Network().Name)
		return m, m.run("network", func(ctx context.Context) (string, error) {
			if err := m.wallet.SwitchNetwork(ctx, next.Name); err != nil {
				return "", err
			}
			return "switched to " + next.DisplayName, nil
		})

	case "r":
		return m, m.run("refresh", func(ctx context.Context) (string, error) {
			return "", m.session.Refresh(ctx)
		})

	case "o":
		if m.wallet != nil && m.state.LastTx != "" {
			if url := m.wallet.Network().TxURL(m.state.LastTx); url != "" {
				openBrowser(url)
				m.flash = Info("opening " + url)
			}
		}
		return m, nil

	case "backspace":
		if a := m.state.Amount; a != "" {
			m.session.SetAmount(a[:len(a)-1])
		}

	default:
		if len(msg.Runes) == 1 && strings.ContainsRune("0123456789.-", msg.Runes[0]) {
			m.session.SetAmount(m.state.Amount + string(msg.Runes))
		}
	}

	m.state = m.session.State()
	return m, nil
}

func (m pageModel) answer(ok bool) (tea.Model, tea.Cmd) {
	m.pending.reply <- ok
	m.pending = nil
	return m, m.waitForApproval()
}

func (m pageModel) View() string {
	if m.quitting {
		return ""
	}
	st := m.state

	var sb strings.Builder
	title := "Ponzi"
	if st.Network != "" {
		title += " · " + st.Network + " (" + st.SupportedChainID + ")"
	}
	sb.WriteString(StyleTitle.Render(title) + "\n")

	if m.wallet != nil {
		net := m.wallet.Network()
		sb.WriteString(Meta(fmt.Sprintf("wallet network: %s · chain %s", net.DisplayName, orDash(st.ChainID))) + "\n\n")
	}

	t := NewTable([]Column{{Width: 24}, {Width: 44}, {Width: 20}})
	t.AddRow(Row{"Account", st.Account})
	t.AddRow(Row{"Ponzi balance", st.TokenBalance, "[M] Set Max Ponzi"})
	t.AddRow(Row{"Ether balance", st.NativeBalance, "[E] Set Max Ether"})
	t.AddRow(Row{"Contract address", st.Contract})
	t.AddRow(Row{"Contract ether balance", st.ContractNativeBalance})
	sb.WriteString(StyleBorder.Render(strings.TrimRight(t.Render(), "\n")) + "\n\n")

	sb.WriteString(Meta("Amount: ") + Val(st.Amount) + StyleKey.Render("▏") + "\n\n")
	sb.WriteString(strings.Join([]string{
		Key("d") + " Deposit (Ether to Ponzi)",
		Key("w") + " Withdraw (Ponzi to Ether)",
		Key("W") + " Withdraw all (all Ponzi to Ether)",
	}, "   ") + "\n\n")

	if st.Busy != "" {
		sb.WriteString(SpinnerFrame(m.frame) + "  " + Warn(st.Busy+" pending, waiting for confirmation…") + "\n")
	}
	if st.LastTx != "" {
		sb.WriteString(Meta("last tx: ") + Addr(st.LastTx) + "\n")
	}
	if m.flash != "" {
		sb.WriteString(m.flash + "\n")
	}
	if st.Message != "" {
		sb.WriteString(DangerBox(st.Message) + "\n")
	}
	if m.pending != nil {
		network := st.Network
		if m.wallet != nil {
			network = m.wallet.Network().DisplayName
		}
		sb.WriteString("\n" + TxPreview(network, m.pending.req) + "\n")
		sb.WriteString(StyleWarning.Render("Sign and send? [y/n]") + "\n")
	}

	sb.WriteString("\n" + Meta("[c] connect  [a] next account  [n] next network  [r] refresh  [o] open last tx  [q] quit") + "\n")
	return sb.String()
}

// --- commands ---

func (m pageModel) run(op string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		detail, err := fn(ctx)
		return opDoneMsg{op: op, detail: detail, err: err}
	}
}

func (m pageModel) waitForChange() tea.Cmd {
	ctx, changes := m.ctx, m.changes
	return func() tea.Msg {
		select {
		case <-changes:
			return stateChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m pageModel) waitForApproval() tea.Cmd {
	if m.approvals == nil {
		return nil
	}
	ctx, requests := m.ctx, m.approvals.requests
	return func() tea.Msg {
		select {
		case r := <-requests:
			return approvalMsg{r: r}
		case <-ctx.Done():
			return nil
		}
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func confirmed(receipt *chain.TxReceipt, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("confirmed in block %d", receipt.BlockNumber), nil
}

// bannerOp reports whether op's errors already reach the session banner,
// so the flash line stays quiet for them.
func bannerOp(op string) bool {
	return op == dapp.OpDeposit || op == dapp.OpWithdraw || op == dapp.OpWithdrawAll || op == "connect" || op == "refresh"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// openBrowser opens url in the OS default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
