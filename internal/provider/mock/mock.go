package mock

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // decoders for reference photos and frames
	_ "image/png"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"golang.org/x/image/draw"
)

const (
	thumbWidth  = 16
	thumbHeight = 32

	// DefaultThreshold is the cosine distance under which two thumbnails match.
	DefaultThreshold = 0.15
)

// ErrInvalidImage is provider.ErrInvalidImage, re-exported for tests.
var ErrInvalidImage = provider.ErrInvalidImage

// Provider implementa provider.FaceProvider para testes e desenvolvimento.
// Cada imagem com textura vira uma única face no centro; o embedding é uma
// miniatura em tons de cinza, então cópias reduzidas da mesma foto casam.
type Provider struct {
	threshold float64
}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{threshold: DefaultThreshold}
}

// WithThreshold overrides the cosine distance threshold.
func (p *Provider) WithThreshold(t float64) *Provider {
	if t > 0 {
		p.threshold = t
	}
	return p
}

// DetectFaces simula detecção de faces. A flat image has no face.
func (p *Provider) DetectFaces(ctx context.Context, data []byte) ([]provider.DetectedFace, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	embedding, ok := generateEmbedding(img)
	if !ok {
		return []provider.DetectedFace{}, nil
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	return []provider.DetectedFace{
		{
			BoundingBox: provider.BoundingBox{
				X:      float64(b.Min.X) + 0.2*w,
				Y:      float64(b.Min.Y) + 0.2*h,
				Width:  0.6 * w,
				Height: 0.6 * h,
			},
			Confidence: 0.99,
			Embedding:  embedding,
		},
	}, nil
}

// CompareFaces calcula distância coseno entre embeddings
func (p *Provider) CompareFaces(ctx context.Context, known, candidate []float64) (provider.Comparison, error) {
	return provider.Compare(provider.MetricCosine, p.threshold, known, candidate)
}

// generateEmbedding reduz a imagem a uma miniatura cinza centrada na média
func generateEmbedding(img image.Image) ([]float64, bool) {
	thumb := image.NewGray(image.Rect(0, 0, thumbWidth, thumbHeight))
	draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Src, nil)

	embedding := make([]float64, 0, thumbWidth*thumbHeight)
	var sum float64
	for _, px := range thumb.Pix {
		v := float64(px) / 255.0
		embedding = append(embedding, v)
		sum += v
	}

	mean := sum / float64(len(embedding))
	var energy float64
	for i := range embedding {
		embedding[i] -= mean
		energy += embedding[i] * embedding[i]
	}
	if energy < 1e-6 {
		return nil, false
	}

	normalized, err := provider.L2Normalize(embedding)
	if err != nil {
		return nil, false
	}
	return normalized, true
}

var _ provider.FaceProvider = (*Provider)(nil)
