package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger checks the face recognition backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GallerySizer reports how many identities are loaded.
type GallerySizer interface {
	Len() int
}

type HealthHandler struct {
	version string
	pinger  Pinger
	gallery GallerySizer
}

func NewHealthHandler(version string, pinger Pinger, gallery GallerySizer) *HealthHandler {
	return &HealthHandler{version: version, pinger: pinger, gallery: gallery}
}

type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	Identities *int   `json:"identities,omitempty"`
	Provider   string `json:"provider,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready reports 503 while the face recognition backend is unreachable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ready", Provider: "ok"}
	if h.gallery != nil {
		n := h.gallery.Len()
		resp.Identities = &n
	}

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			resp.Status = "not_ready"
			resp.Provider = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
	}

	return c.JSON(resp)
}
