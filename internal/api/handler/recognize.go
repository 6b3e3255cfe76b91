package handler

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type RecognizeHandler struct {
	service  AttendanceService
	notifier Notifier
	logger   *slog.Logger
}

func NewRecognizeHandler(s AttendanceService, n Notifier, logger *slog.Logger) *RecognizeHandler {
	if n == nil {
		n = noopNotifier{}
	}
	return &RecognizeHandler{service: s, notifier: n, logger: logger}
}

// Recognize POST /v1/recognize - multipart "image", optional "mark=true"
func (h *RecognizeHandler) Recognize(c *fiber.Ctx) error {
	mark := false
	if v := c.FormValue("mark"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.ErrValidationFailed.WithMessage("mark must be a boolean")
		}
		mark = b
	}

	data, err := readImage(c)
	if err != nil {
		return err
	}

	result, err := h.service.RecognizePhoto(c.Context(), data, mark)
	if err != nil {
		return err
	}

	for _, name := range result.Marked {
		h.notifier.Broadcast("", ws.EventAttendanceMarked, map[string]string{"name": name})
	}

	return c.JSON(result)
}
