package video

import (
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// FaceState drives how a face is drawn.
type FaceState string

const (
	FaceUnknown FaceState = "unknown"
	// FaceMarked was already in today's attendance before this sighting.
	FaceMarked FaceState = "marked"
	// FaceNew was marked by this sighting.
	FaceNew FaceState = "new"
)

// Face is one identified face in full-frame coordinates.
type Face struct {
	Box   provider.BoundingBox `json:"box"`
	Name  string               `json:"name"`
	State FaceState            `json:"state"`
}

// Progress is published after every sampled frame. Percent is only
// meaningful when HasPercent is set.
type Progress struct {
	RunID       string        `json:"run_id"`
	Frame       int           `json:"frame"`
	TotalFrames int           `json:"total_frames,omitempty"`
	Percent     float64       `json:"percent,omitempty"`
	HasPercent  bool          `json:"has_percent"`
	Sampled     int           `json:"sampled"`
	MarkedToday int           `json:"marked_today"`
	NewlyMarked []string      `json:"newly_marked"`
	Faces       []Face        `json:"faces"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// EndReason tells why a run stopped.
type EndReason string

const (
	EndEOF       EndReason = "eof"
	EndCancelled EndReason = "cancelled"
	EndStopped   EndReason = "stopped"
	EndReadError EndReason = "read_error"
	EndFailed    EndReason = "failed"
)

// Summary describes a finished run.
type Summary struct {
	RunID         string        `json:"run_id"`
	Source        string        `json:"source"`
	StartedAt     time.Time     `json:"started_at"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	FramesRead    int           `json:"frames_read"`
	FramesSampled int           `json:"frames_sampled"`
	TotalFrames   int           `json:"total_frames"`
	Stride        int           `json:"stride"`
	// EffectiveFPS is sampled frames per wall-clock second.
	EffectiveFPS float64 `json:"effective_fps"`
	// RealtimeFactor is source seconds covered per wall-clock second, zero
	// when the source rate is unknown.
	RealtimeFactor float64   `json:"realtime_factor"`
	Marked         []string  `json:"marked"`
	MarkedToday    int       `json:"marked_today"`
	PersistErrors  int       `json:"persist_errors"`
	EndReason      EndReason `json:"end_reason"`
	Error          string    `json:"error,omitempty"`
}
