package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// MatchPolicy decides which gallery entry names a face.
type MatchPolicy string

const (
	// MatchFirst picks the first gallery entry, in insertion order, whose
	// comparison reports a match.
	MatchFirst MatchPolicy = "first"
	// MatchBest picks the matching entry with the smallest distance. This
	// changes results when several identities match the same face.
	MatchBest MatchPolicy = "best"
)

func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch p := MatchPolicy(s); p {
	case MatchFirst, MatchBest:
		return p, nil
	case "":
		return MatchFirst, nil
	default:
		return "", fmt.Errorf("unknown match policy %q", s)
	}
}

// Gallery is the read side of gallery.Store.
type Gallery interface {
	Entries() []gallery.Entry
}

// Identification is one detected face and who it is.
type Identification struct {
	Box      provider.BoundingBox `json:"box"`
	Name     string               `json:"name"`
	Known    bool                 `json:"known"`
	Distance float64              `json:"distance,omitempty"`
}

// Recognizer maps faces in an image to gallery identities. It has no side
// effects on the gallery or the ledger.
type Recognizer struct {
	provider    provider.FaceProvider
	gallery     Gallery
	policy      MatchPolicy
	jpegQuality int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(p provider.FaceProvider, g Gallery, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		provider:    p,
		gallery:     g,
		policy:      MatchFirst,
		jpegQuality: 90,
		logger:      logger.With("component", "recognizer"),
	}
}

func (r *Recognizer) WithMatchPolicy(p MatchPolicy) *Recognizer {
	r.policy = p
	return r
}

func (r *Recognizer) WithJPEGQuality(q int) *Recognizer {
	if q > 0 && q <= 100 {
		r.jpegQuality = q
	}
	return r
}

func (r *Recognizer) WithMetrics(m *metrics.Metrics) *Recognizer {
	r.metrics = m
	return r
}

// DetectAndIdentify encodes the frame and identifies every face in it.
// Boxes are in the frame's pixel space.
func (r *Recognizer) DetectAndIdentify(ctx context.Context, frame image.Image) ([]Identification, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: r.jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return r.IdentifyImage(ctx, buf.Bytes())
}

// IdentifyImage identifies every face in an encoded image, in detector order.
// An image without faces yields an empty slice.
func (r *Recognizer) IdentifyImage(ctx context.Context, data []byte) ([]Identification, error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveRecognition(time.Since(start))
	}()

	faces, err := r.provider.DetectFaces(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	entries := r.gallery.Entries()
	out := make([]Identification, 0, len(faces))
	for _, f := range faces {
		id, err := r.identify(ctx, entries, f.Embedding)
		if err != nil {
			return nil, err
		}
		id.Box = f.BoundingBox
		r.metrics.ObserveFace(id.Known)
		out = append(out, id)
	}

	r.logger.Debug("frame identified",
		slog.Int("faces", len(out)),
		slog.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (r *Recognizer) identify(ctx context.Context, entries []gallery.Entry, embedding []float64) (Identification, error) {
	best := Identification{Name: domain.Unknown}

	for _, e := range entries {
		c, err := r.provider.CompareFaces(ctx, e.Embedding, embedding)
		if err != nil {
			return Identification{}, fmt.Errorf("compare with %s: %w", e.Name, err)
		}
		if !c.Match {
			continue
		}
		if r.policy == MatchFirst {
			return Identification{Name: e.Name, Known: true, Distance: c.Distance}, nil
		}
		if !best.Known || c.Distance < best.Distance {
			best = Identification{Name: e.Name, Known: true, Distance: c.Distance}
		}
	}
	return best, nil
}
