package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/teslashibe/fruit-shop/pkg/checkout"
	"github.com/teslashibe/fruit-shop/pkg/shop"
)

type fakeTill struct {
	StartFunc    func(ctx context.Context) error
	CheckoutFunc func(ctx context.Context) error
	StartNewFunc func(ctx context.Context) error

	calls []string
	snap  shop.Snapshot
}

func (f *fakeTill) call(ctx context.Context, name string, fn func(context.Context) error) error {
	f.calls = append(f.calls, name)
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (f *fakeTill) Start(ctx context.Context) error    { return f.call(ctx, "start", f.StartFunc) }
func (f *fakeTill) Checkout(ctx context.Context) error { return f.call(ctx, "checkout", f.CheckoutFunc) }
func (f *fakeTill) StartNew(ctx context.Context) error { return f.call(ctx, "new", f.StartNewFunc) }
func (f *fakeTill) Snapshot() shop.Snapshot            { return f.snap }

func (f *fakeTill) Subscribe() (<-chan shop.Snapshot, func()) {
	ch := make(chan shop.Snapshot)
	return ch, func() {}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// press sends a key and runs the resulting command synchronously.
func press(t *testing.T, m model, r rune) model {
	t.Helper()
	next, cmd := m.Update(keyPress(r))
	m = next.(model)
	if cmd == nil {
		return m
	}
	next, _ = m.Update(cmd())
	return next.(model)
}

func TestKeysRunCommands(t *testing.T) {
	tests := []struct {
		key  rune
		want string
	}{
		{'s', "start"},
		{'c', "checkout"},
		{'n', "new"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			till := &fakeTill{}
			m := newModel(context.Background(), till, nil)
			m = press(t, m, tc.key)
			if len(till.calls) != 1 || till.calls[0] != tc.want {
				t.Errorf("calls: got %v, want [%s]", till.calls, tc.want)
			}
			if m.busy != "" || m.warning != "" || m.alert != "" {
				t.Errorf("state after success: busy=%q warning=%q alert=%q", m.busy, m.warning, m.alert)
			}
		})
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantWarning string
		wantAlert   string
	}{
		{"empty checkout", checkout.ErrNoItems, "Please scan some items first!", ""},
		{"already scanning", checkout.ErrSessionActive, checkout.ErrSessionActive.Error(), ""},
		{"setup", &checkout.SetupError{Component: "camera", Err: errors.New("no webcam")}, "", "Error starting scanner"},
		{"unexpected", errors.New("boom"), "", "boom"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			till := &fakeTill{CheckoutFunc: func(context.Context) error { return tc.err }}
			m := press(t, newModel(context.Background(), till, nil), 'c')
			if tc.wantWarning != "" && !strings.Contains(m.warning, tc.wantWarning) {
				t.Errorf("warning: got %q, want %q", m.warning, tc.wantWarning)
			}
			if tc.wantWarning == "" && m.warning != "" {
				t.Errorf("unexpected warning %q", m.warning)
			}
			if tc.wantAlert != "" && !strings.Contains(m.alert, tc.wantAlert) {
				t.Errorf("alert: got %q, want %q", m.alert, tc.wantAlert)
			}
			if tc.wantAlert == "" && m.alert != "" {
				t.Errorf("unexpected alert %q", m.alert)
			}
		})
	}
}

func TestNextKeyClearsWarning(t *testing.T) {
	till := &fakeTill{CheckoutFunc: func(context.Context) error { return checkout.ErrNoItems }}
	m := press(t, newModel(context.Background(), till, nil), 'c')
	if m.warning == "" {
		t.Fatal("expected warning")
	}
	till.CheckoutFunc = nil
	m = press(t, m, 's')
	if m.warning != "" {
		t.Errorf("warning should clear: %q", m.warning)
	}
}

func TestBusyIgnoresKeys(t *testing.T) {
	till := &fakeTill{}
	m := newModel(context.Background(), till, nil)
	next, cmd := m.Update(keyPress('s'))
	m = next.(model)
	if cmd == nil || m.busy == "" {
		t.Fatal("start should be in progress")
	}

	next, cmd2 := m.Update(keyPress('c'))
	if cmd2 != nil {
		t.Error("keys should be ignored while busy")
	}
	m = next.(model)
	m.Update(cmd())
	if len(till.calls) != 1 {
		t.Errorf("calls: %v", till.calls)
	}
}

func TestStartNewCancelsSlowStart(t *testing.T) {
	started := make(chan struct{})
	cleared := make(chan struct{})
	till := &fakeTill{
		StartFunc: func(context.Context) error {
			close(started)
			<-cleared
			return checkout.ErrStaleSession
		},
		StartNewFunc: func(context.Context) error {
			close(cleared)
			return nil
		},
	}
	m := newModel(context.Background(), till, nil)

	next, startCmd := m.Update(keyPress('s'))
	m = next.(model)
	startDone := make(chan tea.Msg, 1)
	go func() { startDone <- startCmd() }()
	<-started

	next, newCmd := m.Update(keyPress('n'))
	m = next.(model)
	if newCmd == nil {
		t.Fatal("n should run while the scanner is starting")
	}
	next, _ = m.Update(newCmd())
	m = next.(model)
	next, _ = m.Update(<-startDone)
	m = next.(model)

	if m.busy != "" || m.warning != "" || m.alert != "" {
		t.Errorf("state after cancelled start: busy=%q warning=%q alert=%q", m.busy, m.warning, m.alert)
	}
	if len(till.calls) != 2 {
		t.Errorf("calls: got %v", till.calls)
	}
}

func TestQuit(t *testing.T) {
	m := newModel(context.Background(), &fakeTill{}, nil)
	_, cmd := m.Update(keyPress('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command for ctrl+c")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}

func TestSnapshotUpdates(t *testing.T) {
	updates := make(chan shop.Snapshot, 1)
	m := newModel(context.Background(), &fakeTill{}, updates)

	updates <- shop.Snapshot{
		Phase: checkout.PhaseBilling,
		Items: []checkout.LineItem{{Label: "banana", Name: "Banana", Price: decimal.RequireFromString("0.75")}},
		Total: decimal.RequireFromString("0.75"),
	}
	msg := waitForSnapshot(updates)()
	next, cmd := m.Update(msg)
	m = next.(model)
	if m.snap.Phase != checkout.PhaseBilling {
		t.Errorf("phase: got %v", m.snap.Phase)
	}
	if cmd == nil {
		t.Error("model should keep waiting for snapshots")
	}
	if view := m.View(); !strings.Contains(view, "Banana") || !strings.Contains(view, "$0.75") {
		t.Errorf("view missing bill:\n%s", view)
	}

	close(updates)
	if _, ok := waitForSnapshot(updates)().(closedMsg); !ok {
		t.Error("closed channel should report closedMsg")
	}
	_, cmd = m.Update(closedMsg{})
	if cmd == nil {
		t.Fatal("closed stream should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("closed stream should quit")
	}
}

func TestView(t *testing.T) {
	m := newModel(context.Background(), &fakeTill{}, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(model)

	view := m.View()
	if !strings.Contains(view, Prompt) {
		t.Errorf("idle view missing prompt:\n%s", view)
	}
	if !strings.Contains(view, "quit") {
		t.Errorf("view missing help:\n%s", view)
	}

	m.snap = shop.Snapshot{Phase: checkout.PhaseScanning}
	if view := m.View(); !strings.Contains(view, "Scanning") {
		t.Errorf("scanning view missing status:\n%s", view)
	}
}
