package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) AddPersonUpload(ctx context.Context, name, filename string, r io.Reader) (*gallery.AddResult, error) {
	args := m.Called(ctx, name, filename, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gallery.AddResult), args.Error(1)
}

func (m *MockService) Reload(ctx context.Context) (*gallery.ReloadReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gallery.ReloadReport), args.Error(1)
}

func (m *MockService) People() []service.Person {
	args := m.Called()
	return args.Get(0).([]service.Person)
}

func (m *MockService) MarkManual(ctx context.Context, name string) (ledger.MarkResult, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(ledger.MarkResult), args.Error(1)
}

func (m *MockService) Today() domain.DayReport {
	args := m.Called()
	return args.Get(0).(domain.DayReport)
}

func (m *MockService) Day(date string) (domain.DayReport, error) {
	args := m.Called(date)
	return args.Get(0).(domain.DayReport), args.Error(1)
}

func (m *MockService) Dates() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockService) RecognizePhoto(ctx context.Context, data []byte, mark bool) (*service.PhotoResult, error) {
	args := m.Called(ctx, data, mark)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PhotoResult), args.Error(1)
}

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Start(spec string) (session.State, error) {
	args := m.Called(spec)
	return args.Get(0).(session.State), args.Error(1)
}

func (m *MockSessions) Current() (session.State, error) {
	args := m.Called()
	return args.Get(0).(session.State), args.Error(1)
}

func (m *MockSessions) Cancel() (session.State, error) {
	args := m.Called()
	return args.Get(0).(session.State), args.Error(1)
}

type recordedEvent struct {
	Type ws.EventType
	Data interface{}
}

type recordingNotifier struct {
	events []recordedEvent
}

func (n *recordingNotifier) Broadcast(_ string, eventType ws.EventType, data interface{}) {
	n.events = append(n.events, recordedEvent{Type: eventType, Data: data})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(discardLogger()),
	})
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
