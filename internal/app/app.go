// Package app builds the attendance core from configuration. Both the
// HTTP server and the command line tools start here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api"
	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/capture"
	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/face"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/saturnino-fabrica-de-software/chamada/internal/recognizer"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
	"github.com/saturnino-fabrica-de-software/chamada/internal/video"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

// Pinger is implemented by providers that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Provider   provider.FaceProvider
	Gallery    *gallery.Store
	Ledger     *ledger.Ledger
	Recognizer *recognizer.Recognizer
	Service    *service.AttendanceService
	Audit      audit.Logger

	opener capture.Opener
}

type Option func(*App)

// WithProvider replaces the provider built from FACE_PROVIDER.
func WithProvider(p provider.FaceProvider) Option {
	return func(a *App) { a.Provider = p }
}

// WithOpener enables camera and video file sources.
func WithOpener(o capture.Opener) Option {
	return func(a *App) { a.opener = o }
}

// New wires the core. The gallery starts empty, see LoadGallery. The
// attendance file is read when LEDGER_LOAD_ON_START is set.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Audit:    audit.NewSlogLogger(logger),
	}
	for _, opt := range opts {
		opt(a)
	}

	m, err := metrics.New(a.Registry)
	if err != nil {
		return nil, err
	}
	a.Metrics = m

	if a.Provider == nil {
		p, err := face.NewFaceProvider(cfg)
		if err != nil {
			return nil, err
		}
		a.Provider = p
	}

	facePolicy, err := gallery.ParseFacePolicy(cfg.ReferenceFacePolicy)
	if err != nil {
		return nil, err
	}
	matchPolicy, err := recognizer.ParseMatchPolicy(cfg.MatchPolicy)
	if err != nil {
		return nil, err
	}

	a.Gallery = gallery.NewStore(cfg.FacesDir, a.Provider, logger).
		WithFacePolicy(facePolicy).
		WithMetrics(m)

	a.Ledger = ledger.New(ledger.NewFileStore(cfg.AttendanceFile), logger).WithMetrics(m)
	if cfg.LedgerLoadOnStart {
		if err := a.Ledger.Load(); err != nil {
			return nil, err
		}
	}

	a.Recognizer = recognizer.New(a.Provider, a.Gallery, logger).
		WithMatchPolicy(matchPolicy).
		WithJPEGQuality(cfg.JPEGQuality).
		WithMetrics(m)

	a.Service = service.NewAttendanceService(a.Gallery, a.Ledger, a.Recognizer, logger).
		WithAudit(a.Audit)

	return a, nil
}

// LoadGallery builds the gallery from FACES_DIR.
func (a *App) LoadGallery(ctx context.Context) (*gallery.ReloadReport, error) {
	return a.Gallery.Reload(ctx)
}

// OpenSource opens a capture target with the configured opener.
func (a *App) OpenSource(spec string) (video.Source, error) {
	return capture.Open(spec, a.opener)
}

func (a *App) VideoOptions() video.Options {
	return video.Options{
		TargetFPS: float64(a.Config.TargetFPS),
		Downscale: a.Config.Downscale,
	}
}

// NewProcessor returns a video loop over the core.
func (a *App) NewProcessor() *video.Processor {
	return video.NewProcessor(a.Recognizer, a.Ledger, a.Logger).
		WithOptions(a.VideoOptions()).
		WithAudit(a.Audit).
		WithMetrics(a.Metrics)
}

// NewSessions returns the background session manager publishing to hub.
func (a *App) NewSessions(hub session.Broadcaster) *session.Manager {
	return session.NewManager(a.Recognizer, a.Ledger, a.OpenSource, hub, session.Config{
		Options:       a.VideoOptions(),
		ProgressEvery: a.Config.ProgressEvery,
	}, a.Logger).
		WithAudit(a.Audit).
		WithMetrics(a.Metrics)
}

// Pinger returns the provider health check, or nil when the provider has
// none.
func (a *App) Pinger() Pinger {
	if p, ok := a.Provider.(Pinger); ok {
		return p
	}
	return nil
}

// Serve runs the HTTP shell until ctx is done.
func (a *App) Serve(ctx context.Context, version string) error {
	if _, err := a.LoadGallery(ctx); err != nil {
		return fmt.Errorf("load gallery: %w", err)
	}

	hub := ws.NewHub()
	sessions := a.NewSessions(hub)

	deps := &api.Dependencies{
		Service:            a.Service,
		Sessions:           sessions,
		Hub:                hub,
		Gallery:            a.Gallery,
		Gatherer:           a.Registry,
		RateLimitPerMinute: a.Config.RateLimitPerMinute,
		Version:            version,
	}
	if p := a.Pinger(); p != nil {
		deps.Pinger = p
	}

	router := api.NewRouter(a.Logger, deps)
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := a.Config.Addr()
		a.Logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.Logger.Info("shutting down server...")
	var errs []error
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop session: %w", err))
	}
	if err := router.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("stop server: %w", err))
	}
	if err := a.Ledger.Flush(); err != nil {
		errs = append(errs, err)
	}
	a.Logger.Info("server stopped")

	return errors.Join(errs...)
}
