// Package web provides the till's browser dashboard: buttons that drive the
// checkout, a live bill and the camera feed.
package web

import (
	"context"
	_ "embed"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/fruit-shop/internal/log"
	"github.com/teslashibe/fruit-shop/pkg/catalog"
	"github.com/teslashibe/fruit-shop/pkg/hub"
	"github.com/teslashibe/fruit-shop/pkg/shop"
)

//go:embed static/index.html
var indexHTML []byte

// Camera feed limits.
const (
	DefaultFrameInterval = 200 * time.Millisecond // 5 FPS
	DefaultJPEGQuality   = 70
)

// Till is what the dashboard drives. *shop.App satisfies it.
type Till interface {
	Start(ctx context.Context) error
	Checkout(ctx context.Context) error
	StartNew(ctx context.Context) error
	Snapshot() shop.Snapshot
	Subscribe() (<-chan shop.Snapshot, func())
	Catalog() *catalog.Catalog
}

// Server is the web dashboard server
type Server struct {
	app  *fiber.App
	addr string
	till Till

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	cameraHub *hub.Hub

	// Latest camera frame
	frame    image.Image
	frameSeq uint64
	frameMu  sync.Mutex

	FrameInterval time.Duration
	JPEGQuality   int
}

// NewServer creates a new web dashboard server
func NewServer(addr string, till Till) *Server {
	s := &Server{
		addr:          addr,
		till:          till,
		statusHub:     hub.New("status"),
		cameraHub:     hub.New("camera"),
		FrameInterval: DefaultFrameInterval,
		JPEGQuality:   DefaultJPEGQuality,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Fruit Shop",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	// CORS for local development
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	// API routes
	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/catalog", s.handleCatalog)
	api.Post("/start", s.handleStart)
	api.Post("/checkout", s.handleCheckout)
	api.Post("/new", s.handleStartNew)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Run serves the dashboard until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.cameraHub.Run(ctx)
	go s.forwardSnapshots(ctx)
	go s.streamCamera(ctx)

	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(s.addr)
	}()
	log.Info("dashboard listening", "url", fmt.Sprintf("http://%s", displayAddr(s.addr)))

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errc:
		return err
	}
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// SetFrame records the latest camera frame. It only stores the pointer, so
// it is safe to call from the till loop.
func (s *Server) SetFrame(img image.Image) {
	s.frameMu.Lock()
	s.frame = img
	s.frameSeq++
	s.frameMu.Unlock()
}

func (s *Server) latestFrame() (image.Image, uint64) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.frame, s.frameSeq
}

// forwardSnapshots broadcasts every till snapshot to status clients.
func (s *Server) forwardSnapshots(ctx context.Context) {
	updates, unsubscribe := s.till.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := s.statusHub.BroadcastJSON(snap); err != nil {
				log.Warn("encode snapshot", "error", err)
			}
		}
	}
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
