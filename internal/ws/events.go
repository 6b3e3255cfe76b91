package ws

import (
	"time"
)

type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventSessionProgress  EventType = "session.progress"
	EventSessionFinished  EventType = "session.finished"
	EventAttendanceMarked EventType = "attendance.marked"
	EventGalleryReloaded  EventType = "gallery.reloaded"
)

type Event struct {
	SessionID string      `json:"session_id,omitempty"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
