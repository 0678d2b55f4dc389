package main

import (
	"context"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/fruit-shop/internal/config"
	"github.com/teslashibe/fruit-shop/internal/httpc"
	"github.com/teslashibe/fruit-shop/internal/log"
	"github.com/teslashibe/fruit-shop/pkg/audio"
	"github.com/teslashibe/fruit-shop/pkg/camera"
	"github.com/teslashibe/fruit-shop/pkg/camera/opencv"
	"github.com/teslashibe/fruit-shop/pkg/catalog"
	"github.com/teslashibe/fruit-shop/pkg/classifier"
	"github.com/teslashibe/fruit-shop/pkg/classifier/onnx"
	"github.com/teslashibe/fruit-shop/pkg/shop"
	"github.com/teslashibe/fruit-shop/pkg/tui"
	"github.com/teslashibe/fruit-shop/pkg/web"
)

// newTill wires the webcam, the ONNX classifier and the scan cue into a till.
func newTill(cfg *config.Config, onFrame func(image.Image)) (*shop.App, error) {
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	client := httpc.NewClient(cfg.HTTPTimeout)
	rules := cfg.Rules()

	log.Info("🍌 fruit shop",
		"catalog", cat.Len(),
		"model", cfg.ModelURL,
		"camera", cfg.Camera.Device,
		"width", cfg.Camera.Width,
		"height", cfg.Camera.Height,
	)

	return shop.New(shop.Config{
		Catalog: cat,
		Rules:   &rules,
		Tick:    cfg.Tick,
		OpenCamera: func() (camera.Camera, error) {
			return opencv.NewWebcam(cfg.Camera)
		},
		LoadClassifier: func(ctx context.Context) (classifier.Classifier, error) {
			return onnx.Load(ctx, client, cfg.ModelSource())
		},
		Cue:     audio.NewCue(cfg.Audio()),
		OnFrame: onFrame,
	})
}

// serveTill runs the till behind the browser dashboard.
func serveTill(ctx context.Context, cfg *config.Config) error {
	var srv *web.Server
	app, err := newTill(cfg, func(img image.Image) { srv.SetFrame(img) })
	if err != nil {
		return err
	}
	srv = web.NewServer(cfg.Listen, app)
	return runAll(ctx, app.Run, srv.Run)
}

// terminalTill runs the till in the terminal, optionally with the dashboard
// alongside.
func terminalTill(ctx context.Context, cfg *config.Config, dashboard bool) error {
	var srv *web.Server
	var onFrame func(image.Image)
	if dashboard {
		onFrame = func(img image.Image) { srv.SetFrame(img) }
	}
	app, err := newTill(cfg, onFrame)
	if err != nil {
		return err
	}

	runs := []func(context.Context) error{
		app.Run,
		func(ctx context.Context) error { return tui.Run(ctx, app) },
	}
	if dashboard {
		srv = web.NewServer(cfg.Listen, app)
		runs = append(runs, srv.Run)
	}
	return runAll(ctx, runs...)
}

// runAll runs every fn until the first one returns, then cancels the rest.
func runAll(ctx context.Context, fns ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			defer cancel()
			return fn(ctx)
		})
	}
	return g.Wait()
}
