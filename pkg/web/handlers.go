package web

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/fruit-shop/internal/log"
	"github.com/teslashibe/fruit-shop/pkg/catalog"
	"github.com/teslashibe/fruit-shop/pkg/checkout"
	"github.com/teslashibe/fruit-shop/pkg/hub"
	"github.com/teslashibe/fruit-shop/pkg/shop"
)

// CatalogItem is one row of the price table.
type CatalogItem struct {
	Label string `json:"label"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// handleState returns the till's current snapshot
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.till.Snapshot())
}

// handleCatalog returns the price table
func (s *Server) handleCatalog(c *fiber.Ctx) error {
	entries := s.till.Catalog().Entries()
	items := make([]CatalogItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, CatalogItem{
			Label: e.Label,
			Name:  e.DisplayName,
			Price: catalog.FormatPrice(e.Price),
		})
	}
	return c.JSON(items)
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	if err := s.till.Start(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.till.Snapshot())
}

func (s *Server) handleCheckout(c *fiber.Ctx) error {
	if err := s.till.Checkout(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.till.Snapshot())
}

func (s *Server) handleStartNew(c *fiber.Ctx) error {
	if err := s.till.StartNew(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.till.Snapshot())
}

// respondError maps till errors to HTTP responses. Warnings are for the
// operator; errors are alerts.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case checkout.IsUserInput(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"warning": err.Error()})
	case errors.Is(err, checkout.ErrSessionActive), errors.Is(err, checkout.ErrStaleSession):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case checkout.IsSetup(err):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Error starting scanner. Please try again.",
			"cause": err.Error(),
		})
	case errors.Is(err, shop.ErrStopped):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	log.Error("dashboard command failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// handleStatusWS streams snapshots, starting with the current one
func (s *Server) handleStatusWS(c *websocket.Conn) {
	data, err := json.Marshal(s.till.Snapshot())
	if err != nil {
		log.Warn("encode snapshot", "error", err)
		return
	}
	hub.NewClient(s.statusHub, c, hub.TextMessage(data)).Run()
}

// handleCameraWS streams JPEG frames while scanning
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
