package deepface

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// Provider implements provider.FaceProvider using DeepFace API
type Provider struct {
	client    *Client
	metric    provider.Metric
	threshold float64
}

// NewProvider creates a new DeepFace provider. The match threshold is
// config.Threshold when set, otherwise DeepFace's default for the model.
func NewProvider(config Config) (*Provider, error) {
	if config.Metric == "" {
		config.Metric = provider.MetricCosine
	}
	if _, err := provider.ParseMetric(string(config.Metric)); err != nil {
		return nil, err
	}

	threshold, ok := provider.ResolveThreshold(config.Model, config.Metric, config.Threshold)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoThreshold, config.Model, config.Metric)
	}

	return &Provider{
		client:    NewClient(config),
		metric:    config.Metric,
		threshold: threshold,
	}, nil
}

// Threshold returns the distance threshold used by CompareFaces.
func (p *Provider) Threshold() float64 {
	return p.threshold
}

// DetectFaces detects faces and extracts one embedding per face in a single
// /represent call, so boxes and embeddings stay aligned.
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	imageBase64 := base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.Represent(ctx, imageBase64)
	if err != nil {
		if isClientError(err) {
			return nil, fmt.Errorf("detect faces: %w: %v", provider.ErrInvalidImage, err)
		}
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		// With enforce_detection=false DeepFace answers a faceless image with
		// the whole frame and confidence 0.
		if result.FaceConfidence != nil && *result.FaceConfidence == 0 {
			continue
		}
		if len(result.Embedding) == 0 {
			return nil, fmt.Errorf("detect faces: %w: result without embedding", ErrInvalidResponse)
		}

		confidence := 1.0
		if result.FaceConfidence != nil {
			confidence = *result.FaceConfidence
		}

		faces = append(faces, provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      float64(result.FacialArea.X),
				Y:      float64(result.FacialArea.Y),
				Width:  float64(result.FacialArea.W),
				Height: float64(result.FacialArea.H),
			},
			Confidence: confidence,
			Embedding:  result.Embedding,
		})
	}

	return faces, nil
}

// CompareFaces computes the distance locally; DeepFace has no endpoint that
// compares raw embeddings.
func (p *Provider) CompareFaces(ctx context.Context, known, candidate []float64) (provider.Comparison, error) {
	c, err := provider.Compare(p.metric, p.threshold, known, candidate)
	if err != nil {
		return provider.Comparison{}, fmt.Errorf("compare faces: %w", err)
	}
	return c, nil
}

// Ping checks that the DeepFace service answers.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Ensure Provider implements provider.FaceProvider
var _ provider.FaceProvider = (*Provider)(nil)
