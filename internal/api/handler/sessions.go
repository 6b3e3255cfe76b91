package handler

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type SessionHandler struct {
	sessions SessionManager
	logger   *slog.Logger
}

func NewSessionHandler(m SessionManager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: m, logger: logger}
}

type StartSessionRequest struct {
	// Source is a video path, an image path, "camera:N" or a device number.
	Source string `json:"source"`
}

// Start POST /v1/sessions
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	var req StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if strings.TrimSpace(req.Source) == "" {
		return domain.ErrValidationFailed.WithMessage("source is required")
	}

	state, err := h.sessions.Start(req.Source)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(state)
}

// Current GET /v1/sessions/current
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	state, err := h.sessions.Current()
	if err != nil {
		return err
	}
	return c.JSON(state)
}

// Cancel DELETE /v1/sessions/current
func (h *SessionHandler) Cancel(c *fiber.Ctx) error {
	state, err := h.sessions.Cancel()
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(state)
}
