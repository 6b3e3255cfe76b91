package provider

import (
	"context"
	"errors"
	"image"
	"math"
)

// ErrInvalidImage is wrapped by providers when the submitted bytes are not
// an image they can process. Callers treat it as a per-image failure rather
// than an outage.
var ErrInvalidImage = errors.New("invalid image")

// FaceProvider define a interface para provedores de reconhecimento facial
type FaceProvider interface {
	// DetectFaces detecta faces na imagem e retorna caixa e embedding de cada uma.
	// Box and embedding of each entry come from the same call, in detector order.
	// Zero faces is an empty slice and a nil error.
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)

	// CompareFaces measures the distance between a known embedding and a
	// candidate and decides whether they belong to the same person.
	CompareFaces(ctx context.Context, known, candidate []float64) (Comparison, error)
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
	Embedding   []float64   `json:"-"`
}

// BoundingBox represents the face area in the image, in pixels
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area in square pixels.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Scale multiplies every coordinate by factor.
func (b BoundingBox) Scale(factor float64) BoundingBox {
	return b.ScaleXY(factor, factor)
}

// ScaleXY scales horizontal coordinates by sx and vertical ones by sy.
func (b BoundingBox) ScaleXY(sx, sy float64) BoundingBox {
	return BoundingBox{
		X:      b.X * sx,
		Y:      b.Y * sy,
		Width:  b.Width * sx,
		Height: b.Height * sy,
	}
}

// Rect converts the box to an image.Rectangle, rounding to whole pixels.
func (b BoundingBox) Rect() image.Rectangle {
	x0 := int(math.Round(b.X))
	y0 := int(math.Round(b.Y))
	x1 := int(math.Round(b.X + b.Width))
	y1 := int(math.Round(b.Y + b.Height))
	return image.Rect(x0, y0, x1, y1)
}

// Comparison is the outcome of CompareFaces.
type Comparison struct {
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Metric    Metric  `json:"metric"`
	Match     bool    `json:"match"`
}
