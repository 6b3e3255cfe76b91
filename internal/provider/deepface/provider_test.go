package deepface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confidence(v float64) *float64 { return &v }

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		wantErr       bool
		wantThreshold float64
	}{
		{
			name:          "model default",
			mutate:        func(c *Config) {},
			wantThreshold: 0.30,
		},
		{
			name:          "euclidean_l2 default",
			mutate:        func(c *Config) { c.Metric = provider.MetricEuclideanL2 },
			wantThreshold: 1.04,
		},
		{
			name:          "explicit override",
			mutate:        func(c *Config) { c.Threshold = 0.42 },
			wantThreshold: 0.42,
		},
		{
			name:    "unknown model without override",
			mutate:  func(c *Config) { c.Model = "Custom" },
			wantErr: true,
		},
		{
			name:    "unknown metric",
			mutate:  func(c *Config) { c.Metric = "hamming" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			p, err := NewProvider(config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantThreshold, p.Threshold(), 1e-9)
		})
	}
}

func TestProvider_DetectFaces(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse RepresentResponse
		serverStatus   int
		wantBoxes      []provider.BoundingBox
		wantErr        bool
	}{
		{
			name: "single face detected",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{
						Embedding:      []float64{1, 0, 0},
						FacialArea:     FacialArea{X: 10, Y: 20, W: 200, H: 210},
						FaceConfidence: confidence(0.98),
					},
				},
			},
			serverStatus: http.StatusOK,
			wantBoxes:    []provider.BoundingBox{{X: 10, Y: 20, Width: 200, Height: 210}},
		},
		{
			name: "multiple faces keep detector order",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{Embedding: []float64{1, 0}, FacialArea: FacialArea{X: 200, Y: 10, W: 100, H: 100}},
					{Embedding: []float64{0, 1}, FacialArea: FacialArea{X: 10, Y: 10, W: 100, H: 100}},
				},
			},
			serverStatus: http.StatusOK,
			wantBoxes: []provider.BoundingBox{
				{X: 200, Y: 10, Width: 100, Height: 100},
				{X: 10, Y: 10, Width: 100, Height: 100},
			},
		},
		{
			name: "whole image fallback is dropped",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{Embedding: []float64{1, 0}, FacialArea: FacialArea{X: 0, Y: 0, W: 640, H: 480}, FaceConfidence: confidence(0)},
				},
			},
			serverStatus: http.StatusOK,
			wantBoxes:    []provider.BoundingBox{},
		},
		{
			name:           "no faces detected",
			serverResponse: RepresentResponse{Results: []RepresentResult{}},
			serverStatus:   http.StatusOK,
			wantBoxes:      []provider.BoundingBox{},
		},
		{
			name: "missing embedding is invalid",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{{FacialArea: FacialArea{W: 10, H: 10}}},
			},
			serverStatus: http.StatusOK,
			wantErr:      true,
		},
		{
			name:         "server error",
			serverStatus: http.StatusInternalServerError,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.serverStatus)
				_ = json.NewEncoder(w).Encode(tt.serverResponse)
			}))
			defer server.Close()

			p, err := NewProvider(testConfig(server.URL))
			require.NoError(t, err)

			faces, err := p.DetectFaces(context.Background(), []byte("test-image"))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Len(t, faces, len(tt.wantBoxes))
			for i, want := range tt.wantBoxes {
				assert.Equal(t, want, faces[i].BoundingBox)
				assert.Equal(t, tt.serverResponse.Results[i].Embedding, faces[i].Embedding)
				assert.Greater(t, faces[i].Confidence, 0.0)
			}
		})
	}
}

func TestProvider_DetectFaces_EmptyImage(t *testing.T) {
	p, err := NewProvider(DefaultConfig())
	require.NoError(t, err)

	_, err = p.DetectFaces(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestProvider_CompareFaces(t *testing.T) {
	p, err := NewProvider(DefaultConfig())
	require.NoError(t, err)

	same, err := p.CompareFaces(context.Background(), []float64{1, 0, 0}, []float64{2, 0, 0})
	require.NoError(t, err)
	assert.True(t, same.Match)
	assert.InDelta(t, 0, same.Distance, 1e-9)

	other, err := p.CompareFaces(context.Background(), []float64{1, 0, 0}, []float64{0, 1, 0})
	require.NoError(t, err)
	assert.False(t, other.Match)
	assert.InDelta(t, 0.30, other.Threshold, 1e-9)

	_, err = p.CompareFaces(context.Background(), []float64{1, 0}, []float64{1, 0, 0})
	assert.ErrorIs(t, err, provider.ErrDimensionMismatch)
}

func TestProvider_DetectFaces_ClientErrorIsInvalidImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Exception while processing img"}`))
	}))
	defer server.Close()

	p, err := NewProvider(testConfig(server.URL))
	require.NoError(t, err)

	_, err = p.DetectFaces(context.Background(), []byte("not-an-image"))
	assert.ErrorIs(t, err, provider.ErrInvalidImage)
}
