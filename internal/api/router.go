package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type Dependencies struct {
	Service  handler.AttendanceService
	Sessions handler.SessionManager
	Hub      *ws.Hub
	Pinger   handler.Pinger
	Gallery  handler.GallerySizer
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// RateLimitPerMinute caps recognition requests per client address.
	RateLimitPerMinute int
	Version            string
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Chamada API",
		BodyLimit:    12 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(r.version(), r.pinger(), r.gallery())
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Gatherer != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.app.Group("/v1")

	var notifier handler.Notifier
	if r.deps.Hub != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		notifier = r.deps.Hub
		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}

	// Rate limiting only guards the routes that call the recognition backend
	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Max:    r.deps.RateLimitPerMinute,
		Window: time.Minute,
	})
	limited := r.rateLimiter.Handler()

	if r.deps.Service != nil {
		people := handler.NewPeopleHandler(r.deps.Service, notifier, r.logger)
		v1.Get("/people", people.List)
		v1.Post("/people", limited, people.Add)
		v1.Post("/people/reload", limited, people.Reload)

		attendance := handler.NewAttendanceHandler(r.deps.Service, notifier, r.logger)
		v1.Post("/attendance/mark", attendance.Mark)
		v1.Get("/attendance", attendance.Dates)
		v1.Get("/attendance/today", attendance.Today)
		v1.Get("/attendance/:date", attendance.Day)

		recognize := handler.NewRecognizeHandler(r.deps.Service, notifier, r.logger)
		v1.Post("/recognize", limited, recognize.Recognize)
	}

	if r.deps.Sessions != nil {
		sessions := handler.NewSessionHandler(r.deps.Sessions, r.logger)
		v1.Post("/sessions", sessions.Start)
		v1.Get("/sessions/current", sessions.Current)
		v1.Delete("/sessions/current", sessions.Cancel)
	}
}

func (r *Router) version() string {
	if r.deps == nil || r.deps.Version == "" {
		return "dev"
	}
	return r.deps.Version
}

func (r *Router) pinger() handler.Pinger {
	if r.deps == nil {
		return nil
	}
	return r.deps.Pinger
}

func (r *Router) gallery() handler.GallerySizer {
	if r.deps == nil {
		return nil
	}
	return r.deps.Gallery
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop WebSocket hub
	if r.cancelHub != nil {
		r.cancelHub()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
