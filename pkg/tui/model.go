// Package tui is the terminal front end for the till.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/fruit-shop/pkg/checkout"
	"github.com/teslashibe/fruit-shop/pkg/render"
	"github.com/teslashibe/fruit-shop/pkg/shop"
)

// Prompt replaces the dashboard wording on the idle screen.
const Prompt = `Press "s" to start checkout`

var (
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	alertStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	statusStyle  = lipgloss.NewStyle().Faint(true)
)

// Till is what the terminal drives. *shop.App satisfies it.
type Till interface {
	Start(ctx context.Context) error
	Checkout(ctx context.Context) error
	StartNew(ctx context.Context) error
	Snapshot() shop.Snapshot
	Subscribe() (<-chan shop.Snapshot, func())
}

type snapshotMsg shop.Snapshot

// closedMsg means the till stopped publishing.
type closedMsg struct{}

type commandDoneMsg struct {
	name string
	err  error
}

type model struct {
	ctx     context.Context
	till    Till
	updates <-chan shop.Snapshot

	snap  shop.Snapshot
	width int

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	busy    string // command in progress
	busyCmd string
	warning string // non-fatal, e.g. empty checkout
	alert   string // setup failures
}

func newModel(ctx context.Context, till Till, updates <-chan shop.Snapshot) model {
	return model{
		ctx:     ctx,
		till:    till,
		updates: updates,
		snap:    till.Snapshot(),
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// waitForSnapshot blocks until the till publishes.
func waitForSnapshot(updates <-chan shop.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m model) run(name string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg{name: name, err: fn(ctx)}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.updates), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = shop.Snapshot(msg)
		return m, waitForSnapshot(m.updates)

	case closedMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case commandDoneMsg:
		if msg.name == m.busyCmd {
			m.busy, m.busyCmd = "", ""
		}
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, checkout.ErrStaleSession):
			// Start lost to a later start new.
		case checkout.IsUserInput(msg.err):
			m.warning = msg.err.Error()
		case checkout.IsSetup(msg.err):
			m.alert = "Error starting scanner. Please try again. (" + msg.err.Error() + ")"
		case errors.Is(msg.err, checkout.ErrSessionActive):
			m.warning = msg.err.Error()
		default:
			m.alert = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		// Start new may cancel a slow scanner start. Everything else waits.
		if m.busyCmd != "" && !(m.busyCmd == "start" && key.Matches(msg, m.keys.New)) {
			return m, nil
		}
		m.warning, m.alert = "", ""
		switch {
		case key.Matches(msg, m.keys.Start):
			m.busy, m.busyCmd = "Starting scanner", "start"
			return m, m.run("start", m.till.Start)
		case key.Matches(msg, m.keys.Checkout):
			m.busy, m.busyCmd = "Checking out", "checkout"
			return m, m.run("checkout", m.till.Checkout)
		case key.Matches(msg, m.keys.New):
			m.busy, m.busyCmd = "Clearing", "new"
			return m, m.run("new", m.till.StartNew)
		}
	}
	return m, nil
}

func (m model) View() string {
	view := render.View(m.snap, render.Options{Width: m.width, Prompt: Prompt})

	status := ""
	switch {
	case m.busy != "":
		status = m.spinner.View() + " " + m.busy + "…"
	case m.snap.Scanning():
		status = m.spinner.View() + " Scanning: hold a fruit up to the camera"
	}

	lines := []string{view, ""}
	if status != "" {
		lines = append(lines, statusStyle.Render(status))
	}
	if m.warning != "" {
		lines = append(lines, warningStyle.Render("⚠ "+m.warning))
	}
	if m.alert != "" {
		lines = append(lines, alertStyle.Render("✖ "+m.alert))
	}
	lines = append(lines, "", m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Run shows the till in the terminal until the user quits or ctx ends.
func Run(ctx context.Context, till Till) error {
	updates, unsubscribe := till.Subscribe()
	defer unsubscribe()

	p := tea.NewProgram(newModel(ctx, till, updates), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
