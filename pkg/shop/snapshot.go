package shop

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teslashibe/fruit-shop/pkg/checkout"
)

// Snapshot is a read-only copy of the session for front ends.
type Snapshot struct {
	Phase     checkout.Phase      `json:"phase"`
	Items     []checkout.LineItem `json:"items"`
	Total     decimal.Decimal     `json:"total"`
	Token     uuid.UUID           `json:"token"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Scanning reports whether the till is accepting scans.
func (s Snapshot) Scanning() bool {
	return s.Phase == checkout.PhaseScanning
}

func newSnapshot(s checkout.Session, now time.Time) Snapshot {
	items := slices.Clone(s.Items)
	if items == nil {
		items = []checkout.LineItem{}
	}
	return Snapshot{
		Phase:     s.Phase,
		Items:     items,
		Total:     s.Total(),
		Token:     s.Token,
		UpdatedAt: now,
	}
}

// publish stores the current session as the latest snapshot and hands it to
// every subscriber. Slow subscribers only see the newest snapshot.
func (a *App) publish() {
	snap := newSnapshot(a.session, a.config.Clock())

	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot = snap
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Snapshot returns the latest published state.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Subscribe returns a channel that receives the current snapshot and every
// later one. The channel is closed by the returned func or when Run exits.
func (a *App) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	if a.closed {
		close(ch)
	} else {
		a.subs[id] = ch
		ch <- a.snapshot
	}
	a.mu.Unlock()

	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if c, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(c)
		}
	}
}

func (a *App) closeSubscribers() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for id, ch := range a.subs {
		delete(a.subs, id)
		close(ch)
	}
}
