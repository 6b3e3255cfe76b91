package handler

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

// PeopleHandler manages the gallery of known people.
type PeopleHandler struct {
	service  AttendanceService
	notifier Notifier
	logger   *slog.Logger
}

func NewPeopleHandler(s AttendanceService, n Notifier, logger *slog.Logger) *PeopleHandler {
	if n == nil {
		n = noopNotifier{}
	}
	return &PeopleHandler{service: s, notifier: n, logger: logger}
}

type PeopleResponse struct {
	People []service.Person `json:"people"`
	Total  int              `json:"total"`
}

type AddPersonResponse struct {
	Name       string                `json:"name"`
	Registered bool                  `json:"registered"`
	Warning    string                `json:"warning,omitempty"`
	Report     *gallery.ReloadReport `json:"report"`
}

// List GET /v1/people
func (h *PeopleHandler) List(c *fiber.Ctx) error {
	people := h.service.People()
	return c.JSON(PeopleResponse{People: people, Total: len(people)})
}

// Add POST /v1/people - multipart form with "name" and "image"
func (h *PeopleHandler) Add(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return domain.ErrValidationFailed.WithMessage("name is required")
	}

	file, err := formImage(c)
	if err != nil {
		return err
	}

	f, err := file.Open()
	if err != nil {
		return domain.ErrUnsupportedImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	result, err := h.service.AddPersonUpload(c.Context(), name, file.Filename, f)
	if err != nil {
		return err
	}

	resp := AddPersonResponse{
		Name:       result.Name,
		Registered: result.Registered,
		Report:     result.Report,
	}
	if !result.Registered {
		resp.Warning = domain.ErrNoFaceDetected.Message
	}

	h.notifier.Broadcast("", ws.EventGalleryReloaded, result.Report)

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Reload POST /v1/people/reload
func (h *PeopleHandler) Reload(c *fiber.Ctx) error {
	report, err := h.service.Reload(c.Context())
	if err != nil {
		return err
	}

	h.notifier.Broadcast("", ws.EventGalleryReloaded, report)

	return c.JSON(report)
}
