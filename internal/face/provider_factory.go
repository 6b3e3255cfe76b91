package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/mock"
)

// ProviderType defines supported face recognition provider types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace REST service
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeMock is the offline provider used in development and tests
	ProviderTypeMock ProviderType = "mock"
)

// NewFaceProvider creates a FaceProvider instance based on configuration
//
// Environment variables:
//   - FACE_PROVIDER: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_MODEL, DEEPFACE_DETECTOR, DEEPFACE_TIMEOUT
//   - MATCH_METRIC, MATCH_THRESHOLD (0 keeps the model default)
func NewFaceProvider(cfg *config.Config) (provider.FaceProvider, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg)

	case ProviderTypeMock:
		return mock.New().WithThreshold(cfg.MatchThreshold), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeDeepFace, ProviderTypeMock)
	}
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) (provider.FaceProvider, error) {
	deepfaceConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}
	if cfg.DeepFaceTimeout > 0 {
		deepfaceConfig.Timeout = cfg.DeepFaceTimeout
	}
	if cfg.DeepFaceRetryCount >= 0 {
		deepfaceConfig.RetryCount = cfg.DeepFaceRetryCount
	}
	if cfg.MatchMetric != "" {
		deepfaceConfig.Metric = provider.Metric(cfg.MatchMetric)
	}
	deepfaceConfig.Threshold = cfg.MatchThreshold

	prov, err := deepface.NewProvider(deepfaceConfig)
	if err != nil {
		return nil, fmt.Errorf("create deepface provider: %w", err)
	}
	return prov, nil
}
