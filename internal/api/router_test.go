package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/chamada/internal/recognizer"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type testEnv struct {
	router *Router
	store  *gallery.Store
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(t, err)

	prov := mock.New()
	store := gallery.NewStore(filepath.Join(t.TempDir(), "faces"), prov, logger).WithMetrics(m)
	l := ledger.New(ledger.NewFileStore(filepath.Join(t.TempDir(), "attendance.json")), logger).WithMetrics(m)
	rec := recognizer.New(prov, store, logger).WithMetrics(m)
	svc := service.NewAttendanceService(store, l, rec, logger)

	r := NewRouter(logger, &Dependencies{
		Service:            svc,
		Hub:                ws.NewHub(),
		Gallery:            store,
		Gatherer:           registry,
		RateLimitPerMinute: rateLimit,
		Version:            "test",
	})
	r.Setup()
	t.Cleanup(func() { _ = r.Shutdown() })

	return &testEnv{router: r, store: store}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.router.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func gradientPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 4)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, target string, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRouter_AttendanceFlow(t *testing.T) {
	env := newTestEnv(t, 60)
	photo := gradientPNG(t)

	resp := env.do(t, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var people handler.PeopleResponse
	decode(t, env.do(t, httptest.NewRequest("GET", "/v1/people", nil)), &people)
	assert.Equal(t, 0, people.Total)

	resp = env.do(t, uploadRequest(t, "/v1/people", map[string]string{"name": "alice"}, "alice.png", photo))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var added handler.AddPersonResponse
	decode(t, resp, &added)
	assert.True(t, added.Registered)
	assert.Equal(t, []string{"alice"}, env.store.Names())

	resp = env.do(t, uploadRequest(t, "/v1/recognize", map[string]string{"mark": "true"}, "class.png", photo))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result service.PhotoResult
	decode(t, resp, &result)
	require.Len(t, result.Faces, 1)
	assert.Equal(t, "alice", result.Faces[0].Name)
	assert.Equal(t, []string{"alice"}, result.Marked)

	var today domain.DayReport
	decode(t, env.do(t, httptest.NewRequest("GET", "/v1/attendance/today", nil)), &today)
	assert.Equal(t, 1, today.Total)
	assert.Equal(t, "alice", today.Entries[0].Name)

	req := httptest.NewRequest("POST", "/v1/attendance/mark", strings.NewReader(`{"name":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = env.do(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "second mark keeps the first time")

	req = httptest.NewRequest("POST", "/v1/attendance/mark", strings.NewReader(`{"name":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = env.do(t, req)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_Metrics(t *testing.T) {
	env := newTestEnv(t, 60)

	resp := env.do(t, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chamada_attendance_marks_total")
	assert.Contains(t, string(body), "chamada_gallery_identities")
}

func TestRouter_RateLimitsRecognition(t *testing.T) {
	env := newTestEnv(t, 1)
	photo := gradientPNG(t)

	resp := env.do(t, uploadRequest(t, "/v1/recognize", nil, "a.png", photo))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	resp = env.do(t, uploadRequest(t, "/v1/recognize", nil, "a.png", photo))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// reads are not limited
	resp = env.do(t, httptest.NewRequest("GET", "/v1/attendance/today", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_WithoutSessions(t *testing.T) {
	env := newTestEnv(t, 60)

	resp := env.do(t, httptest.NewRequest("GET", "/v1/sessions/current", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, httptest.NewRequest("GET", "/v1/ws", nil))
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
