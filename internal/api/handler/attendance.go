package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

// AttendanceHandler serves the attendance ledger.
type AttendanceHandler struct {
	service  AttendanceService
	notifier Notifier
	logger   *slog.Logger
}

func NewAttendanceHandler(s AttendanceService, n Notifier, logger *slog.Logger) *AttendanceHandler {
	if n == nil {
		n = noopNotifier{}
	}
	return &AttendanceHandler{service: s, notifier: n, logger: logger}
}

type MarkRequest struct {
	Name string `json:"name"`
}

type MarkResponse struct {
	Name      string `json:"name"`
	Marked    bool   `json:"marked"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Persisted bool   `json:"persisted"`
}

type DatesResponse struct {
	Dates []string `json:"dates"`
}

// Mark POST /v1/attendance/mark
// 201 when the person was marked, 200 when already present today.
func (h *AttendanceHandler) Mark(c *fiber.Ctx) error {
	var req MarkRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	result, err := h.service.MarkManual(c.Context(), req.Name)
	persisted := true
	if err != nil {
		if !result.Marked || !errors.Is(err, domain.ErrLedgerPersist) {
			return err
		}
		persisted = false
		h.logger.Warn("manual mark kept in memory only",
			slog.String("identity", result.Name),
			slog.String("error", err.Error()),
		)
	}

	status := fiber.StatusOK
	if result.Marked {
		status = fiber.StatusCreated
		h.notifier.Broadcast("", ws.EventAttendanceMarked, result)
	}

	return c.Status(status).JSON(MarkResponse{
		Name:      result.Name,
		Marked:    result.Marked,
		Date:      result.Date,
		Time:      result.Time,
		Persisted: persisted,
	})
}

// Today GET /v1/attendance/today
func (h *AttendanceHandler) Today(c *fiber.Ctx) error {
	return c.JSON(h.service.Today())
}

// Day GET /v1/attendance/:date
func (h *AttendanceHandler) Day(c *fiber.Ctx) error {
	report, err := h.service.Day(c.Params("date"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// Dates GET /v1/attendance
func (h *AttendanceHandler) Dates(c *fiber.Ctx) error {
	return c.JSON(DatesResponse{Dates: h.service.Dates()})
}
