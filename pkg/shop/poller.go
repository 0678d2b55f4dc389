package shop

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/teslashibe/fruit-shop/internal/log"
	"github.com/teslashibe/fruit-shop/pkg/catalog"
	"github.com/teslashibe/fruit-shop/pkg/checkout"
	"github.com/teslashibe/fruit-shop/pkg/classifier"
)

// inference is one finished classifier call, tagged with the session it was
// started for.
type inference struct {
	token uuid.UUID
	preds []classifier.Prediction
	err   error
}

func (a *App) onTick(ctx context.Context) {
	if a.cam == nil {
		return
	}
	if a.config.OnFrame != nil {
		if frame, ok := a.cam.Frame(); ok {
			a.config.OnFrame(frame)
		}
	}
	a.poll(ctx)
}

// poll starts one inference if the till is scanning and none is in flight.
// It is a no-op without a camera frame or classifier.
func (a *App) poll(ctx context.Context) bool {
	if !a.session.IsScanning() || a.inflight || a.cam == nil || a.clf == nil {
		return false
	}
	frame, ok := a.cam.Frame()
	if !ok {
		return false
	}

	a.inflight = true
	token, clf := a.session.Token, a.clf
	go func() {
		preds, err := clf.Predict(ctx, frame)
		select {
		case a.results <- inference{token: token, preds: preds, err: err}:
		case <-ctx.Done():
		}
	}()
	return true
}

func (a *App) onResult(r inference) {
	a.inflight = false

	if r.err != nil {
		if !errors.Is(r.err, context.Canceled) {
			log.Warn("inference failed", "token", r.token, "error", &checkout.InferenceError{Err: r.err})
		}
		a.observe(r, nil)
		return
	}

	top, ok := classifier.Top(r.preds)
	if !ok {
		a.observe(r, nil)
		return
	}

	res := a.config.Rules.OnDetection(a.session, a.config.Catalog, checkout.Detection{
		Token:       r.token,
		Label:       top.Label,
		Probability: top.Probability,
		At:          a.config.Clock(),
	})
	a.session = res.Session

	switch res.Outcome {
	case checkout.RejectedStale, checkout.RejectedNotScanning:
		log.Debug("discarding inference result", "token", r.token, "reason", res.Outcome)
	case checkout.Accepted:
		log.Info("scanned",
			"label", res.Item.Label,
			"price", catalog.FormatPrice(res.Item.Price),
			"items", len(a.session.Items),
			"probability", top.Probability)
	}

	redraw := false
	for _, effect := range res.Effects {
		switch effect {
		case checkout.EffectPlayScanCue:
			a.config.Cue.Play()
		case checkout.EffectRedraw:
			redraw = true
		}
	}
	if redraw {
		a.publish()
	}
	a.observe(r, &res)
}

func (a *App) observe(r inference, res *checkout.Result) {
	if a.afterResult != nil {
		a.afterResult(r, res)
	}
}
