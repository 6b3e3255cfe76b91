// Package capture turns a user supplied source string into a video.Source.
// OpenCV backed sources live in the opencv subpackage so that everything
// else builds without cgo.
package capture

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/video"
)

// Kind is the type of a capture target.
type Kind string

const (
	KindCamera Kind = "camera"
	KindStill  Kind = "still"
	KindFile   Kind = "file"
)

const cameraPrefix = "camera:"

// Target is a parsed source string.
type Target struct {
	Kind   Kind   `json:"kind"`
	Device int    `json:"device,omitempty"`
	Path   string `json:"path,omitempty"`
}

func (t Target) String() string {
	if t.Kind == KindCamera {
		return fmt.Sprintf("%s%d", cameraPrefix, t.Device)
	}
	return t.Path
}

// Opener opens OpenCV sources.
type Opener interface {
	OpenCamera(device int) (video.Source, error)
	OpenFile(path string) (video.Source, error)
}

// ParseTarget reads "camera:N" or a bare device number as a webcam, a
// path with a still image extension as a photo, and anything else as a
// video file.
func ParseTarget(spec string) (Target, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Target{}, domain.ErrVideoOpen.WithMessage("no video source given")
	}

	if rest, ok := strings.CutPrefix(strings.ToLower(spec), cameraPrefix); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return Target{}, domain.ErrVideoOpen.WithMessage(fmt.Sprintf("invalid camera index %q", rest))
		}
		return Target{Kind: KindCamera, Device: n}, nil
	}
	if n, err := strconv.Atoi(spec); err == nil && n >= 0 {
		return Target{Kind: KindCamera, Device: n}, nil
	}

	if IsStillImage(spec) {
		return Target{Kind: KindStill, Path: spec}, nil
	}
	return Target{Kind: KindFile, Path: spec}, nil
}

// IsStillImage reports whether path names a photo rather than a video.
func IsStillImage(path string) bool {
	ext := filepath.Ext(path)
	return domain.IsImageExtension(ext) || strings.EqualFold(ext, ".webp")
}

// Open resolves spec and opens it. Failures are VIDEO_OPEN_FAILED.
func Open(spec string, o Opener) (video.Source, error) {
	t, err := ParseTarget(spec)
	if err != nil {
		return nil, err
	}

	var src video.Source
	switch t.Kind {
	case KindStill:
		img, err := LoadImage(t.Path)
		if err != nil {
			return nil, domain.ErrVideoOpen.WithError(err)
		}
		return video.NewStillSource(filepath.Base(t.Path), img), nil
	case KindCamera:
		if o == nil {
			return nil, domain.ErrVideoOpen.WithMessage("camera capture is not available")
		}
		src, err = o.OpenCamera(t.Device)
	default:
		if _, statErr := os.Stat(t.Path); statErr != nil {
			return nil, domain.ErrVideoOpen.WithError(statErr)
		}
		if o == nil {
			return nil, domain.ErrVideoOpen.WithMessage("video capture is not available")
		}
		src, err = o.OpenFile(t.Path)
	}
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, domain.ErrVideoOpen.WithError(fmt.Errorf("open %s: %w", t, err))
	}
	return src, nil
}

// LoadImage decodes a JPEG, PNG or WebP file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
