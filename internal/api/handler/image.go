package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// formImage returns the "image" file of a multipart form after checking
// size and type.
func formImage(c *fiber.Ctx) (*multipart.FileHeader, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithMessage("image file is required")
	}

	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrUnsupportedImage.WithMessage("image must be between 1 byte and 10MB")
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/octet-stream" && !validImageTypes[contentType] {
		return nil, domain.ErrUnsupportedImage
	}
	if !domain.IsImageExtension(strings.ToLower(filepath.Ext(file.Filename))) {
		return nil, domain.ErrUnsupportedImage
	}

	return file, nil
}

// readImage reads the whole "image" file.
func readImage(c *fiber.Ctx) ([]byte, error) {
	file, err := formImage(c)
	if err != nil {
		return nil, err
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrUnsupportedImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrUnsupportedImage.WithError(err)
	}
	if len(data) == 0 {
		return nil, domain.ErrUnsupportedImage.WithError(errors.New("empty file"))
	}
	return data, nil
}
