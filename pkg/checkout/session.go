// Package checkout implements the till's decision core: debouncing classifier
// detections and accumulating priced line items for one checkout session.
//
// Every function here is pure. A Session goes in, a new Session comes out
// together with the side effects the caller must run.
package checkout

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Phase is where a session is in its lifecycle.
type Phase int

const (
	// PhaseIdle shows the start screen. Nothing is being scanned.
	PhaseIdle Phase = iota
	// PhaseStarting waits for camera and classifier setup.
	PhaseStarting
	// PhaseScanning accepts detections.
	PhaseScanning
	// PhaseBilling shows the bill after checkout.
	PhaseBilling
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseScanning:
		return "scanning"
	case PhaseBilling:
		return "billing"
	}
	return "unknown"
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhaseStarting, PhaseScanning, PhaseBilling} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("checkout: unknown phase %q", text)
}

// LineItem is one accepted scan. Immutable once created.
type LineItem struct {
	Label     string          `json:"label"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Session is the state of one checkout interaction.
type Session struct {
	// Token identifies the session. Results tagged with another token are stale.
	Token uuid.UUID
	Phase Phase

	// Items is append-only while the token stays the same.
	Items []LineItem

	// LastLabel is the last accepted label; cleared after a run of misses.
	LastLabel      string
	LastAcceptedAt time.Time
	Misses         int
}

// Reset returns an empty idle session.
func Reset(token uuid.UUID) Session {
	return Session{Token: token, Phase: PhaseIdle}
}

// Begin returns an empty session waiting for setup.
func Begin(token uuid.UUID) Session {
	return Session{Token: token, Phase: PhaseStarting}
}

// IsScanning reports whether detections are being accepted.
func (s Session) IsScanning() bool {
	return s.Phase == PhaseScanning
}

// Total sums the item prices. It is recomputed on every call.
func (s Session) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Price)
	}
	return total
}

// Activate moves a starting session to scanning once setup succeeded.
func Activate(s Session, token uuid.UUID) (Session, error) {
	if s.Token != token || s.Phase != PhaseStarting {
		return s, ErrStaleSession
	}
	s.Phase = PhaseScanning
	return s, nil
}

// Abort returns a starting session to idle after a failed setup.
func Abort(s Session, token uuid.UUID) (Session, error) {
	if s.Token != token || s.Phase != PhaseStarting {
		return s, ErrStaleSession
	}
	s.Phase = PhaseIdle
	return s, nil
}

// Checkout stops scanning and shows the bill. With no items it returns
// ErrNoItems and the session unchanged.
func Checkout(s Session) (Session, error) {
	if len(s.Items) == 0 {
		return s, ErrNoItems
	}
	s.Phase = PhaseBilling
	return s, nil
}

// appendItem never writes into a backing array shared with an older Session.
func appendItem(items []LineItem, it LineItem) []LineItem {
	return append(slices.Clip(items), it)
}
