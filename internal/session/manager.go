// Package session runs at most one background video session and publishes
// its progress.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/video"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type Status string

const (
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// State is a snapshot of the current or last session.
type State struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Status    Status          `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	Progress  *video.Progress `json:"progress,omitempty"`
	Summary   *video.Summary  `json:"summary,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Opener resolves a source string, see capture.Open.
type Opener func(spec string) (video.Source, error)

// Broadcaster is the part of ws.Hub the manager uses.
type Broadcaster interface {
	Broadcast(sessionID string, eventType ws.EventType, data interface{})
}

type Config struct {
	Options video.Options
	// ProgressEvery is the number of sampled frames between progress events.
	ProgressEvery int
}

type Manager struct {
	identifier video.Identifier
	ledger     video.Ledger
	open       Opener
	hub        Broadcaster
	cfg        Config
	audit      audit.Logger
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu      sync.Mutex
	current *State
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(id video.Identifier, l video.Ledger, open Opener, hub Broadcaster, cfg Config, logger *slog.Logger) *Manager {
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 10
	}
	return &Manager{
		identifier: id,
		ledger:     l,
		open:       open,
		hub:        hub,
		cfg:        cfg,
		audit:      &audit.NoOpLogger{},
		logger:     logger.With("component", "session"),
	}
}

func (m *Manager) WithAudit(a audit.Logger) *Manager {
	if a != nil {
		m.audit = a
	}
	return m
}

func (m *Manager) WithMetrics(mt *metrics.Metrics) *Manager {
	m.metrics = mt
	return m
}

// Start opens spec and processes it in the background. Opening happens
// before Start returns so that a bad source is reported to the caller.
func (m *Manager) Start(spec string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Status == StatusRunning {
		return State{}, domain.ErrSessionActive
	}

	src, err := m.open(spec)
	if err != nil {
		return State{}, err
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.current = &State{
		ID:        id,
		Source:    src.Name(),
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	m.cancel = cancel
	m.done = done

	processor := video.NewProcessor(m.identifier, m.ledger, m.logger).
		WithOptions(m.cfg.Options).
		WithRunID(id).
		WithAudit(m.audit).
		WithMetrics(m.metrics).
		OnProgress(func(p video.Progress) { m.progress(id, p) })

	m.metrics.SessionStarted()
	_ = m.audit.Log(ctx, audit.Event{
		EventType: audit.EventSessionStarted,
		SessionID: id,
		Success:   true,
		Metadata:  map[string]string{"source": src.Name()},
	})
	m.hub.Broadcast(id, ws.EventSessionStarted, *m.current)
	m.logger.Info("session started", slog.String("session_id", id), slog.String("source", src.Name()))

	go func() {
		defer close(done)
		summary, err := processor.Run(ctx, src)
		m.finish(id, summary, err)
	}()

	return *m.current, nil
}

func (m *Manager) progress(id string, p video.Progress) {
	m.mu.Lock()
	if m.current != nil && m.current.ID == id {
		m.current.Progress = &p
	}
	m.mu.Unlock()

	for _, name := range p.NewlyMarked {
		m.hub.Broadcast(id, ws.EventAttendanceMarked, map[string]string{"name": name})
	}
	if p.Sampled%m.cfg.ProgressEvery == 0 || len(p.NewlyMarked) > 0 {
		m.hub.Broadcast(id, ws.EventSessionProgress, p)
	}
}

func (m *Manager) finish(id string, summary *video.Summary, err error) {
	m.mu.Lock()
	state := m.current
	if state != nil && state.ID == id {
		state.Summary = summary
		state.Status = StatusFinished
		if err != nil {
			state.Status = StatusFailed
			state.Error = err.Error()
		}
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	snapshot := *state
	m.mu.Unlock()

	m.metrics.SessionFinished()

	event := audit.Event{
		EventType: audit.EventSessionFinished,
		SessionID: id,
		Success:   err == nil,
	}
	if summary != nil {
		event.Metadata = map[string]string{
			"end_reason":     string(summary.EndReason),
			"frames_sampled": fmt.Sprint(summary.FramesSampled),
			"marked":         fmt.Sprint(len(summary.Marked)),
		}
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = m.audit.Log(context.Background(), event)

	m.hub.Broadcast(id, ws.EventSessionFinished, snapshot)

	attrs := []any{slog.String("session_id", id), slog.String("status", string(snapshot.Status))}
	if summary != nil {
		attrs = append(attrs, slog.String("end_reason", string(summary.EndReason)))
	}
	m.logger.Info("session finished", attrs...)
}

// Current returns the running session, or the last finished one.
func (m *Manager) Current() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return State{}, domain.ErrNoActiveSession
	}
	return *m.current, nil
}

// Cancel asks the running session to stop at the next frame boundary.
func (m *Manager) Cancel() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.Status != StatusRunning || m.cancel == nil {
		return State{}, domain.ErrNoActiveSession
	}
	m.cancel()
	return *m.current, nil
}

// Wait blocks until the current session ends or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the running session and waits for it.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	return m.Wait(ctx)
}
