package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/fruit-shop/pkg/catalog"
)

// Default debounce parameters.
const (
	DefaultConfidenceFloor = 0.85
	DefaultCooldown        = 1000 * time.Millisecond
	DefaultMissLimit       = 10
)

// Rules holds the debounce parameters.
type Rules struct {
	// ConfidenceFloor: a detection must score strictly above this.
	ConfidenceFloor float64

	// Cooldown is the minimum gap between two accepted detections.
	// It is global, not per label: two different fruits shown within the
	// window produce one line item.
	Cooldown time.Duration

	// MissLimit: once more than this many consecutive low-confidence
	// detections arrive, LastLabel is forgotten.
	MissLimit int
}

// DefaultRules returns the till's standard debounce settings.
func DefaultRules() Rules {
	return Rules{
		ConfidenceFloor: DefaultConfidenceFloor,
		Cooldown:        DefaultCooldown,
		MissLimit:       DefaultMissLimit,
	}
}

// Detection is the top class of one classified frame.
type Detection struct {
	Token       uuid.UUID
	Label       string
	Probability float64
	At          time.Time
}

// Outcome says what OnDetection decided.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedLowConfidence
	RejectedCooldown
	RejectedUnknownLabel
	RejectedStale
	RejectedNotScanning
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedLowConfidence:
		return "low_confidence"
	case RejectedCooldown:
		return "cooldown"
	case RejectedUnknownLabel:
		return "unknown_label"
	case RejectedStale:
		return "stale"
	case RejectedNotScanning:
		return "not_scanning"
	}
	return "unknown"
}

// Effect is a side effect the caller runs after applying a Result.
type Effect int

const (
	// EffectPlayScanCue plays the scan acknowledgement sound.
	EffectPlayScanCue Effect = iota
	// EffectRedraw asks the front ends to redraw.
	EffectRedraw
)

// Result is the outcome of one detection.
type Result struct {
	Session Session
	Outcome Outcome
	Effects []Effect
	Item    *LineItem // set when Accepted
}

// OnDetection applies one detection to s.
func (r Rules) OnDetection(s Session, cat *catalog.Catalog, d Detection) Result {
	if d.Token != s.Token {
		return Result{Session: s, Outcome: RejectedStale}
	}
	if !s.IsScanning() {
		return Result{Session: s, Outcome: RejectedNotScanning}
	}

	if d.Probability <= r.ConfidenceFloor {
		s.Misses++
		if s.Misses > r.MissLimit {
			s.LastLabel = ""
		}
		return Result{Session: s, Outcome: RejectedLowConfidence}
	}

	// A confident frame ends the run of misses whatever happens next.
	s.Misses = 0

	if !s.LastAcceptedAt.IsZero() && d.At.Sub(s.LastAcceptedAt) < r.Cooldown {
		return Result{Session: s, Outcome: RejectedCooldown}
	}

	entry, ok := cat.Lookup(d.Label)
	if !ok {
		return Result{Session: s, Outcome: RejectedUnknownLabel}
	}

	item := LineItem{
		Label:     entry.Label,
		Name:      entry.DisplayName,
		Price:     entry.Price,
		Timestamp: d.At,
	}
	s.Items = appendItem(s.Items, item)
	s.LastLabel = d.Label
	s.LastAcceptedAt = d.At

	return Result{
		Session: s,
		Outcome: Accepted,
		Effects: []Effect{EffectPlayScanCue, EffectRedraw},
		Item:    &item,
	}
}
