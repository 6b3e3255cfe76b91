// Package video runs the frame sampling loop: it reads a source, recognizes
// faces on a downscaled copy of every sampled frame and marks attendance.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/recognizer"
)

// Identifier is the recognizer as seen by the loop.
type Identifier interface {
	DetectAndIdentify(ctx context.Context, frame image.Image) ([]recognizer.Identification, error)
}

// Ledger is the attendance ledger as seen by the loop.
type Ledger interface {
	Mark(name string) (ledger.MarkResult, error)
	TodaysEntries() domain.DayAttendance
	Today() string
}

// Display receives every sampled full-size frame. Returning stop ends the
// run after the current frame.
type Display interface {
	Show(frame image.Image, faces []Face, p Progress) (stop bool, err error)
}

// Options controls sampling.
type Options struct {
	TargetFPS float64
	Downscale int
}

func DefaultOptions() Options {
	return Options{TargetFPS: 5, Downscale: 4}
}

// Processor drives one run at a time. It is not safe for concurrent Run calls.
type Processor struct {
	identifier Identifier
	ledger     Ledger
	opts       Options
	onProgress func(Progress)
	display    Display
	audit      audit.Logger
	metrics    *metrics.Metrics
	runID      string
	logger     *slog.Logger
}

func NewProcessor(id Identifier, l Ledger, logger *slog.Logger) *Processor {
	return &Processor{
		identifier: id,
		ledger:     l,
		opts:       DefaultOptions(),
		audit:      &audit.NoOpLogger{},
		logger:     logger.With("component", "video"),
	}
}

func (p *Processor) WithOptions(opts Options) *Processor {
	if opts.TargetFPS > 0 {
		p.opts.TargetFPS = opts.TargetFPS
	}
	if opts.Downscale > 0 {
		p.opts.Downscale = opts.Downscale
	}
	return p
}

// OnProgress registers a callback invoked synchronously after each sampled frame.
func (p *Processor) OnProgress(fn func(Progress)) *Processor {
	p.onProgress = fn
	return p
}

func (p *Processor) WithDisplay(d Display) *Processor {
	p.display = d
	return p
}

func (p *Processor) WithAudit(a audit.Logger) *Processor {
	if a != nil {
		p.audit = a
	}
	return p
}

func (p *Processor) WithMetrics(m *metrics.Metrics) *Processor {
	p.metrics = m
	return p
}

// WithRunID fixes the id of the next run instead of generating one.
func (p *Processor) WithRunID(id string) *Processor {
	p.runID = id
	return p
}

// Run processes src until it ends, ctx is cancelled or the display asks to
// stop. src is always closed. Cancellation is observed between frames; a
// recognition call in flight is never interrupted. A recognition failure
// returns an error together with the partial summary.
func (p *Processor) Run(ctx context.Context, src Source) (*Summary, error) {
	defer func() {
		if err := src.Close(); err != nil {
			p.logger.Warn("failed to close video source",
				slog.String("source", src.Name()),
				slog.String("error", err.Error()),
			)
		}
	}()

	runID := p.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	start := time.Now()
	stride := Stride(src.FPS(), p.opts.TargetFPS)
	summary := &Summary{
		RunID:       runID,
		Source:      src.Name(),
		StartedAt:   start,
		TotalFrames: src.FrameCount(),
		Stride:      stride,
		Marked:      []string{},
	}

	log := p.logger.With(slog.String("run_id", runID), slog.String("source", src.Name()))
	log.Info("video processing started",
		slog.Float64("fps", src.FPS()),
		slog.Int("total_frames", summary.TotalFrames),
		slog.Int("stride", stride),
	)

	today := p.ledger.Today()
	marked := seed(p.ledger.TodaysEntries())

	// recognition and marking are not interrupted by cancellation
	work := context.WithoutCancel(ctx)

	var runErr error
	for {
		if ctx.Err() != nil {
			summary.EndReason = EndCancelled
			break
		}

		frame, err := src.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				summary.EndReason = EndEOF
			} else {
				log.Warn("frame read failed, ending run",
					slog.Int("frame", summary.FramesRead+1),
					slog.String("error", err.Error()),
				)
				summary.EndReason = EndReadError
				summary.Error = err.Error()
			}
			break
		}

		summary.FramesRead++
		p.metrics.IncFramesRead()
		if summary.FramesRead%stride != 0 {
			continue
		}
		summary.FramesSampled++
		p.metrics.IncFramesSampled()

		if d := p.ledger.Today(); d != today {
			log.Info("date changed during run", slog.String("date", d))
			today = d
			marked = seed(p.ledger.TodaysEntries())
		}

		small, sx, sy := Downscale(frame, p.opts.Downscale)
		ids, err := p.identifier.DetectAndIdentify(work, small)
		if err != nil {
			summary.EndReason = EndFailed
			runErr = fmt.Errorf("recognize frame %d: %w", summary.FramesRead, err)
			break
		}

		faces := make([]Face, 0, len(ids))
		newly := []string{}
		for _, id := range ids {
			face := Face{Box: id.Box.ScaleXY(sx, sy), Name: id.Name, State: FaceUnknown}
			if id.Known {
				face.State = p.mark(work, log, summary, marked, id.Name, runID)
				if face.State == FaceNew {
					newly = append(newly, id.Name)
				}
			}
			faces = append(faces, face)
		}

		progress := Progress{
			RunID:       runID,
			Frame:       summary.FramesRead,
			TotalFrames: summary.TotalFrames,
			Sampled:     summary.FramesSampled,
			MarkedToday: len(marked),
			NewlyMarked: newly,
			Faces:       faces,
			Elapsed:     time.Since(start),
		}
		if summary.TotalFrames > 0 {
			progress.HasPercent = true
			progress.Percent = float64(summary.FramesRead) / float64(summary.TotalFrames) * 100
			if progress.Percent > 100 {
				progress.Percent = 100
			}
		}

		if p.onProgress != nil {
			p.onProgress(progress)
		}

		if p.display != nil {
			stop, err := p.display.Show(frame, faces, progress)
			if err != nil {
				log.Warn("display failed", slog.String("error", err.Error()))
			}
			if stop {
				summary.EndReason = EndStopped
				break
			}
		}
	}

	p.finish(summary, src.FPS(), len(marked), start)
	if runErr != nil {
		summary.Error = runErr.Error()
		log.Error("video processing failed", slog.String("error", runErr.Error()))
		return summary, runErr
	}

	log.Info("video processing finished",
		slog.String("end_reason", string(summary.EndReason)),
		slog.Int("frames_read", summary.FramesRead),
		slog.Int("frames_sampled", summary.FramesSampled),
		slog.Int("marked", len(summary.Marked)),
		slog.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// mark records name unless the run already knows it is marked today.
func (p *Processor) mark(ctx context.Context, log *slog.Logger, s *Summary, marked map[string]bool, name, runID string) FaceState {
	if marked[name] {
		return FaceMarked
	}

	result, err := p.ledger.Mark(name)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerPersist) {
			s.PersistErrors++
		} else {
			log.Warn("attendance mark rejected",
				slog.String("identity", name),
				slog.String("error", err.Error()),
			)
		}
	}
	if !result.Marked {
		if err != nil {
			return FaceUnknown
		}
		// marked elsewhere since the run started
		marked[name] = true
		return FaceMarked
	}

	marked[name] = true
	s.Marked = append(s.Marked, name)

	event := audit.Event{
		EventType: audit.EventAttendanceMarked,
		Identity:  name,
		Source:    audit.SourceVideo,
		SessionID: runID,
		Success:   err == nil,
		Metadata:  map[string]string{"date": result.Date, "time": result.Time},
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = p.audit.Log(ctx, event)

	return FaceNew
}

func (p *Processor) finish(s *Summary, fps float64, markedToday int, start time.Time) {
	s.Elapsed = time.Since(start)
	s.MarkedToday = markedToday
	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.EffectiveFPS = float64(s.FramesSampled) / secs
		if fps > 0 {
			s.RealtimeFactor = (float64(s.FramesRead) / fps) / secs
		}
	}
}

func seed(day domain.DayAttendance) map[string]bool {
	marked := make(map[string]bool, len(day))
	for name := range day {
		marked[name] = true
	}
	return marked
}
