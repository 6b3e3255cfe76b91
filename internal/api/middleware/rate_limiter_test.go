package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedApp(t *testing.T, config RateLimiterConfig) *fiber.App {
	t.Helper()
	rl := NewRateLimiter(config)
	t.Cleanup(rl.Stop)

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil))),
	})
	app.Use(rl.Handler())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	return app
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		app := newLimitedApp(t, RateLimiterConfig{
			Max:          5,
			Window:       time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string { return "client" },
		})

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest("GET", "/test", nil)
			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "OK", string(body))
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		app := newLimitedApp(t, RateLimiterConfig{
			Max:          2,
			Window:       time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string { return "client" },
		})

		for i := 0; i < 2; i++ {
			resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
			assert.Equal(t, 200, resp.StatusCode)
		}

		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, 429, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Retry-After"))

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Error.Code)
	})

	t.Run("different clients have separate limits", func(t *testing.T) {
		var current string
		app := newLimitedApp(t, RateLimiterConfig{
			Max:          2,
			Window:       time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string { return current },
		})

		current = "10.0.0.1"
		for i := 0; i < 2; i++ {
			resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
			assert.Equal(t, 200, resp.StatusCode)
		}
		resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 429, resp.StatusCode)

		current = "10.0.0.2"
		resp, _ = app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("window resets", func(t *testing.T) {
		app := newLimitedApp(t, RateLimiterConfig{
			Max:          1,
			Window:       50 * time.Millisecond,
			KeyGenerator: func(c *fiber.Ctx) string { return "client" },
		})

		resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 200, resp.StatusCode)
		resp, _ = app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 429, resp.StatusCode)

		time.Sleep(80 * time.Millisecond)
		resp, _ = app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("rate limit headers are set", func(t *testing.T) {
		app := newLimitedApp(t, RateLimiterConfig{
			Max:          10,
			Window:       time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string { return "client" },
		})

		resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
	})

	t.Run("empty key is not limited", func(t *testing.T) {
		app := newLimitedApp(t, RateLimiterConfig{
			Max:          2,
			Window:       time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string { return "" },
		})

		for i := 0; i < 10; i++ {
			resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
			assert.Equal(t, 200, resp.StatusCode)
		}
	})
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	config := DefaultRateLimiterConfig()

	assert.Equal(t, 60, config.Max)
	assert.Equal(t, time.Minute, config.Window)
	assert.NotNil(t, config.KeyGenerator)
}

func TestRateLimiter_Stop(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Max: 10, Window: time.Second})

	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
}
