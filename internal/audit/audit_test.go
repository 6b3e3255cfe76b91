package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Log(t *testing.T) {
	tests := []struct {
		name          string
		event         Event
		wantEventType string
		wantHasError  bool
		wantIdentity  bool
	}{
		{
			name: "attendance marked from video",
			event: Event{
				EventType: EventAttendanceMarked,
				Identity:  "alice",
				Source:    SourceVideo,
				SessionID: uuid.NewString(),
				Success:   true,
				Metadata:  map[string]string{"time": "09:02"},
			},
			wantEventType: string(EventAttendanceMarked),
			wantIdentity:  true,
		},
		{
			name: "person added",
			event: Event{
				EventType: EventPersonAdded,
				Identity:  "bob",
				Success:   true,
				Metadata:  map[string]string{"registered": "false"},
			},
			wantEventType: string(EventPersonAdded),
			wantIdentity:  true,
		},
		{
			name: "failed gallery reload",
			event: Event{
				EventType: EventGalleryReloaded,
				Success:   false,
				Error:     "deepface service unavailable",
			},
			wantEventType: string(EventGalleryReloaded),
			wantHasError:  true,
		},
		{
			name: "session finished",
			event: Event{
				EventType: EventSessionFinished,
				SessionID: uuid.NewString(),
				Success:   true,
				Metadata:  map[string]string{"end_reason": "eof"},
			},
			wantEventType: string(EventSessionFinished),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			err := NewSlogLogger(logger).Log(context.Background(), tt.event)
			require.NoError(t, err)

			output := buf.String()
			assert.Contains(t, output, tt.wantEventType)
			assert.Contains(t, output, "audit_event")
			assert.Contains(t, output, `"component":"audit"`)

			if tt.wantHasError {
				assert.Contains(t, output, tt.event.Error)
			}
			if tt.wantIdentity {
				assert.Contains(t, output, tt.event.Identity)
			}
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := NewSlogLogger(logger).Log(context.Background(), Event{
		EventType: EventSessionStarted,
		Success:   true,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &logEntry))

	eventID, ok := logEntry["event_id"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(eventID)
	assert.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(logEntry["event_data"].(string)), &event))
	assert.False(t, event.Timestamp.IsZero())
}

func TestSlogLogger_Log_UsesProvidedIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	expectedID := uuid.New()
	err := NewSlogLogger(logger).Log(context.Background(), Event{
		ID:        expectedID,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		EventType: EventAttendanceMarked,
		Identity:  "carol",
		Success:   true,
	})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, expectedID.String())
	assert.Contains(t, output, "2024-01-15T10:30:00Z")
}

func TestNoOpLogger_Log(t *testing.T) {
	logger := &NoOpLogger{}

	for i := 0; i < 10; i++ {
		assert.NoError(t, logger.Log(context.Background(), Event{EventType: EventAttendanceMarked}))
	}
}
