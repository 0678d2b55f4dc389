package shop

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/fruit-shop/internal/log"
	"github.com/teslashibe/fruit-shop/pkg/camera"
	"github.com/teslashibe/fruit-shop/pkg/catalog"
	"github.com/teslashibe/fruit-shop/pkg/checkout"
	"github.com/teslashibe/fruit-shop/pkg/classifier"
)

// ErrStopped is returned by commands once Run has exited.
var ErrStopped = errors.New("shop: till is not running")

// App is the till orchestrator.
// Every session mutation happens on the Run goroutine.
type App struct {
	config Config

	cmds    chan func()
	results chan inference
	stopped chan struct{}

	// Owned by the Run goroutine
	session     checkout.Session
	cam         camera.Camera
	clf         classifier.Classifier
	setupCancel context.CancelFunc
	inflight    bool

	// afterResult observes every handled inference; res is nil when no
	// detection was made. Tests only.
	afterResult func(r inference, res *checkout.Result)

	mu       sync.RWMutex
	snapshot Snapshot
	subs     map[int]chan Snapshot
	nextSub  int
	closed   bool
}

// New creates an idle till.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	a := &App{
		config:  cfg,
		cmds:    make(chan func()),
		results: make(chan inference, 1),
		stopped: make(chan struct{}),
		subs:    make(map[int]chan Snapshot),
	}
	a.session = checkout.Reset(cfg.NewToken())
	a.snapshot = newSnapshot(a.session, cfg.Clock())
	return a, nil
}

// Catalog returns the price table.
func (a *App) Catalog() *catalog.Catalog {
	return a.config.Catalog
}

// Run drives the till until ctx is cancelled. Call it once.
func (a *App) Run(ctx context.Context) error {
	tick, stopTicker := a.config.Ticker(a.config.Tick)
	defer stopTicker()
	defer a.shutdown()

	log.Info("till ready", "items", a.config.Catalog.Len(), "tick", a.config.Tick)

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-a.cmds:
			fn()
		case <-tick:
			a.onTick(ctx)
		case r := <-a.results:
			a.onResult(r)
		}
	}
}

func (a *App) shutdown() {
	close(a.stopped)
	if a.setupCancel != nil {
		a.setupCancel()
		a.setupCancel = nil
	}
	a.stopCamera()
	if a.clf != nil {
		if err := a.clf.Close(); err != nil {
			log.Warn("close classifier", "error", err)
		}
		a.clf = nil
	}
	a.closeSubscribers()
	log.Info("till stopped")
}

// do runs fn on the loop goroutine and waits for it.
func (a *App) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case a.cmds <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stopped:
		return ErrStopped
	}
	<-done
	return nil
}

// Start begins a checkout session: it opens the camera, loads the classifier
// and switches to scanning. A setup failure returns *checkout.SetupError and
// leaves the till idle.
func (a *App) Start(ctx context.Context) error {
	var (
		token    uuid.UUID
		setupCtx context.Context
		cached   classifier.Classifier
		err      error
	)
	if derr := a.do(ctx, func() {
		if a.session.Phase == checkout.PhaseStarting || a.session.IsScanning() {
			err = checkout.ErrSessionActive
			return
		}
		a.stopCamera()
		token = a.config.NewToken()
		a.session = checkout.Begin(token)
		setupCtx, a.setupCancel = context.WithCancel(context.Background())
		cached = a.clf
		a.publish()
	}); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}

	log.Info("starting checkout", "token", token)
	cam, clf, serr := a.setup(setupCtx, cached)

	if derr := a.do(context.Background(), func() {
		if a.session.Token == token && a.setupCancel != nil {
			a.setupCancel()
			a.setupCancel = nil
		}

		// A loaded classifier is kept even if the session was replaced.
		if clf != nil && clf != a.clf {
			if a.clf == nil {
				a.clf = clf
			} else {
				clf.Close()
			}
		}

		if serr != nil {
			s, aerr := checkout.Abort(a.session, token)
			if aerr != nil {
				err = aerr
				return
			}
			a.session = s
			err = serr
			a.publish()
			return
		}

		s, aerr := checkout.Activate(a.session, token)
		if aerr != nil {
			cam.Stop()
			err = aerr
			return
		}
		a.session = s
		a.cam = cam
		a.publish()
	}); derr != nil {
		if cam != nil {
			cam.Stop()
		}
		if clf != nil && clf != cached {
			clf.Close()
		}
		return derr
	}

	if err != nil {
		if errors.Is(err, checkout.ErrStaleSession) {
			log.Debug("setup finished for a replaced session", "token", token)
		} else {
			log.Error("checkout could not start", "token", token, "error", err)
		}
		return err
	}
	log.Info("scanning", "token", token)
	return nil
}

// setup opens and starts the camera and loads the classifier unless cached.
func (a *App) setup(ctx context.Context, cached classifier.Classifier) (camera.Camera, classifier.Classifier, error) {
	cam, err := a.config.OpenCamera()
	if err != nil {
		return nil, cached, &checkout.SetupError{Component: "camera", Err: err}
	}
	if err := cam.Start(ctx); err != nil {
		return nil, cached, &checkout.SetupError{Component: "camera", Err: err}
	}

	if cached != nil {
		return cam, cached, nil
	}
	clf, err := a.config.LoadClassifier(ctx)
	if err != nil {
		cam.Stop()
		return nil, nil, &checkout.SetupError{Component: "classifier", Err: err}
	}
	return cam, clf, nil
}

// Checkout stops scanning and shows the bill. With nothing scanned it
// returns checkout.ErrNoItems and changes nothing.
func (a *App) Checkout(ctx context.Context) error {
	var err error
	if derr := a.do(ctx, func() {
		s, cerr := checkout.Checkout(a.session)
		if cerr != nil {
			err = cerr
			return
		}
		a.session = s
		a.stopCamera()
		a.publish()
	}); derr != nil {
		return derr
	}
	if err != nil {
		log.Warn("checkout refused", "error", err)
		return err
	}
	snap := a.Snapshot()
	log.Info("checked out", "items", len(snap.Items), "total", catalog.FormatPrice(snap.Total))
	return nil
}

// StartNew clears the session and returns to the idle screen. Any setup in
// progress is cancelled and in-flight results are discarded.
func (a *App) StartNew(ctx context.Context) error {
	return a.do(ctx, func() {
		if a.setupCancel != nil {
			a.setupCancel()
			a.setupCancel = nil
		}
		a.stopCamera()
		a.session = checkout.Reset(a.config.NewToken())
		a.publish()
		log.Info("new transaction", "token", a.session.Token)
	})
}

func (a *App) stopCamera() {
	if a.cam == nil {
		return
	}
	if err := a.cam.Stop(); err != nil {
		log.Warn("stop camera", "error", err)
	}
	a.cam = nil
}
