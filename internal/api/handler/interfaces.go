package handler

import (
	"context"
	"io"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

// AttendanceService is implemented by service.AttendanceService.
type AttendanceService interface {
	AddPersonUpload(ctx context.Context, name, filename string, r io.Reader) (*gallery.AddResult, error)
	Reload(ctx context.Context) (*gallery.ReloadReport, error)
	People() []service.Person
	MarkManual(ctx context.Context, name string) (ledger.MarkResult, error)
	Today() domain.DayReport
	Day(date string) (domain.DayReport, error)
	Dates() []string
	RecognizePhoto(ctx context.Context, data []byte, mark bool) (*service.PhotoResult, error)
}

// SessionManager is implemented by session.Manager.
type SessionManager interface {
	Start(spec string) (session.State, error)
	Current() (session.State, error)
	Cancel() (session.State, error)
}

// Notifier pushes events to websocket clients.
type Notifier interface {
	Broadcast(sessionID string, eventType ws.EventType, data interface{})
}

type noopNotifier struct{}

func (noopNotifier) Broadcast(string, ws.EventType, interface{}) {}
