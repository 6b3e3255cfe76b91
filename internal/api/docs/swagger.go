package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// HealthResponse represents the health and readiness payloads
type HealthResponse struct {
	Status     string `json:"status" example:"ready"`
	Version    string `json:"version,omitempty" example:"v1.0.0"`
	Identities int    `json:"identities,omitempty" example:"32"`
	Provider   string `json:"provider,omitempty" example:"ok"`
}

// Person is a registered identity and today's presence
type Person struct {
	Name    string `json:"name" example:"maria"`
	Present bool   `json:"present" example:"true"`
	Time    string `json:"time,omitempty" example:"09:15"`
}

// PeopleResponse lists the gallery
type PeopleResponse struct {
	People []Person `json:"people"`
	Total  int      `json:"total" example:"32"`
}

// SkippedImage is a reference image left out of the gallery
type SkippedImage struct {
	File   string `json:"file" example:"joao.jpg"`
	Reason string `json:"reason" example:"no_face"`
	Detail string `json:"detail,omitempty" example:"0 faces detected"`
}

// ReloadReport summarizes a gallery rebuild
type ReloadReport struct {
	Loaded   []string       `json:"loaded" example:"[\"ana\",\"maria\"]"`
	Skipped  []SkippedImage `json:"skipped"`
	Duration int64          `json:"duration_ns" example:"1520000000"`
}

// AddPersonResponse is returned after a reference image upload
type AddPersonResponse struct {
	Name       string       `json:"name" example:"maria"`
	Registered bool         `json:"registered" example:"true"`
	Warning    string       `json:"warning,omitempty" example:"No face detected in the image"`
	Report     ReloadReport `json:"report"`
}

// MarkRequest is the body of a manual mark
type MarkRequest struct {
	Name string `json:"name" example:"maria"`
}

// MarkResponse is the outcome of a manual mark
type MarkResponse struct {
	Name      string `json:"name" example:"maria"`
	Marked    bool   `json:"marked" example:"true"`
	Date      string `json:"date" example:"2024-03-01"`
	Time      string `json:"time" example:"09:15"`
	Persisted bool   `json:"persisted" example:"true"`
}

// AttendanceEntry is one line of a day report
type AttendanceEntry struct {
	Name string `json:"name" example:"maria"`
	Time string `json:"time" example:"09:15"`
}

// DayReport lists who was present on a date, by arrival
type DayReport struct {
	Date    string            `json:"date" example:"2024-03-01"`
	Total   int               `json:"total_present" example:"1"`
	Entries []AttendanceEntry `json:"entries"`
}

// DatesResponse lists every date with attendance
type DatesResponse struct {
	Dates []string `json:"dates" example:"[\"2024-02-29\",\"2024-03-01\"]"`
}

// Box is a face bounding box in pixels
type Box struct {
	X      float64 `json:"x" example:"120"`
	Y      float64 `json:"y" example:"64"`
	Width  float64 `json:"width" example:"80"`
	Height float64 `json:"height" example:"96"`
}

// PhotoFace is one face found in a photo
type PhotoFace struct {
	Box      Box     `json:"box"`
	Name     string  `json:"name" example:"maria"`
	Known    bool    `json:"known" example:"true"`
	Distance float64 `json:"distance" example:"0.31"`
	Marked   bool    `json:"marked" example:"true"`
	Time     string  `json:"time,omitempty" example:"09:15"`
}

// PhotoResponse is the result of a photo recognition
type PhotoResponse struct {
	Faces         []PhotoFace `json:"faces"`
	Marked        []string    `json:"marked" example:"[\"maria\"]"`
	PersistFailed bool        `json:"persist_failed,omitempty" example:"false"`
}

// StartSessionRequest starts a video session
type StartSessionRequest struct {
	Source string `json:"source" example:"camera:0"`
}

// SessionProgress is the last progress of a session
type SessionProgress struct {
	Frame       int      `json:"frame" example:"450"`
	TotalFrames int      `json:"total_frames" example:"9000"`
	Percent     float64  `json:"percent" example:"5"`
	Sampled     int      `json:"sampled" example:"75"`
	MarkedToday int      `json:"marked_today" example:"12"`
	NewlyMarked []string `json:"newly_marked" example:"[]"`
}

// SessionSummary is the summary of a finished session
type SessionSummary struct {
	FramesRead     int      `json:"frames_read" example:"9000"`
	FramesSampled  int      `json:"frames_sampled" example:"1500"`
	Stride         int      `json:"stride" example:"6"`
	EffectiveFPS   float64  `json:"effective_fps" example:"4.8"`
	RealtimeFactor float64  `json:"realtime_factor" example:"0.9"`
	Marked         []string `json:"marked" example:"[\"maria\"]"`
	MarkedToday    int      `json:"marked_today" example:"30"`
	PersistErrors  int      `json:"persist_errors" example:"0"`
	EndReason      string   `json:"end_reason" example:"eof"`
}

// SessionState is the current or last video session
type SessionState struct {
	ID        string           `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Source    string           `json:"source" example:"aula.mp4"`
	Status    string           `json:"status" example:"running"`
	StartedAt string           `json:"started_at" example:"2024-03-01T09:00:00Z"`
	Progress  *SessionProgress `json:"progress,omitempty"`
	Summary   *SessionSummary  `json:"summary,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Chamada Attendance API",
		Version:     "v1.0.0",
		Description: "Face recognition attendance: reference gallery, daily attendance ledger, photo recognition and video sessions",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	internalError := response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	rateLimited := response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Too many requests, try again later"}, "429", "Too Many Requests")

	endpoints := []*endpoint.EndPoint{
		// People endpoints

		// GET /v1/people - List People
		endpoint.New(
			endpoint.GET,
			"/people",
			endpoint.WithTags("People"),
			endpoint.WithSummary("List registered people"),
			endpoint.WithDescription("Lists every identity in the gallery, sorted by name, with today's presence"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PeopleResponse{}, "200", "Gallery listed"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),

		// POST /v1/people - Add Person
		endpoint.New(
			endpoint.POST,
			"/people",
			endpoint.WithTags("People"),
			endpoint.WithSummary("Add a person to the gallery"),
			endpoint.WithDescription("Multipart form with 'name' and 'image' (.jpg, .jpeg or .png). The image is stored as <name><ext> and the gallery is reloaded. registered=false means the image has no usable face."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AddPersonResponse{}, "201", "Reference image stored"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "name is required"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_NAME", Message: "Identity name is empty or not allowed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "UNSUPPORTED_IMAGE", Message: "Only .jpg, .jpeg and .png images are supported"}, "422", "Unprocessable Entity"),
				rateLimited,
				response.New(ErrorResponse{Code: "ADD_PERSON_FAILED", Message: "Could not copy the image into the gallery"}, "500", "Internal Server Error"),
				response.New(ErrorResponse{Code: "GALLERY_RELOAD_FAILED", Message: "Could not rebuild the face gallery"}, "502", "Bad Gateway"),
			}),
		),

		// POST /v1/people/reload - Reload Gallery
		endpoint.New(
			endpoint.POST,
			"/people/reload",
			endpoint.WithTags("People"),
			endpoint.WithSummary("Reload the gallery"),
			endpoint.WithDescription("Rebuilds the gallery from the reference directory. Faceless or unreadable images are reported as skipped."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ReloadReport{}, "200", "Gallery reloaded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "GALLERY_RELOAD_FAILED", Message: "Could not rebuild the face gallery"}, "502", "Bad Gateway"),
			}),
		),

		// Attendance endpoints

		// POST /v1/attendance/mark - Manual Mark
		endpoint.New(
			endpoint.POST,
			"/attendance/mark",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Mark a person as present"),
			endpoint.WithDescription("JSON body {\"name\": \"...\"}. Returns 201 when marked now and 200 with the first time when already present today."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MarkResponse{}, "201", "Marked"),
				response.New(MarkResponse{Marked: false}, "200", "Already present"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "PERSON_NOT_FOUND", Message: "Person is not registered in the gallery"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INVALID_NAME", Message: "Identity name is empty or not allowed"}, "422", "Unprocessable Entity"),
			}),
		),

		// GET /v1/attendance - List Dates
		endpoint.New(
			endpoint.GET,
			"/attendance",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List attendance dates"),
			endpoint.WithDescription("Lists every date with at least one mark, ascending"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DatesResponse{}, "200", "Dates listed"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),

		// GET /v1/attendance/today - Today
		endpoint.New(
			endpoint.GET,
			"/attendance/today",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Today's attendance"),
			endpoint.WithDescription("Everyone marked today, ordered by arrival time"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DayReport{}, "200", "Day report"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),

		// GET /v1/attendance/:date - Day Report
		endpoint.New(
			endpoint.GET,
			"/attendance/{date}",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Attendance of a date"),
			endpoint.WithDescription("Everyone marked on the given date, ordered by arrival time. Unknown dates return an empty report."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("date", parameter.Path, parameter.WithDescription("Date (YYYY-MM-DD)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DayReport{}, "200", "Day report"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_DATE", Message: "Date must use the YYYY-MM-DD format"}, "400", "Bad Request"),
			}),
		),

		// Recognition endpoints

		// POST /v1/recognize - Photo Recognition
		endpoint.New(
			endpoint.POST,
			"/recognize",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Recognize faces in a photo"),
			endpoint.WithDescription("Multipart form with 'image' and optional 'mark' (true/false). With mark=true every known face is marked present."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PhotoResponse{}, "200", "Photo processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "image file is required"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "UNSUPPORTED_IMAGE", Message: "Only .jpg, .jpeg and .png images are supported"}, "422", "Unprocessable Entity"),
				rateLimited,
				internalError,
			}),
		),

		// Session endpoints

		// POST /v1/sessions - Start Session
		endpoint.New(
			endpoint.POST,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Start a video session"),
			endpoint.WithDescription("Opens a video file, a still image or a camera ('camera:N' or 'N') and processes it in the background. Progress is pushed on /v1/ws."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionState{}, "202", "Session started"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_ACTIVE", Message: "A video session is already running"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "VIDEO_OPEN_FAILED", Message: "Could not open the video source"}, "422", "Unprocessable Entity"),
			}),
		),

		// GET /v1/sessions/current - Current Session
		endpoint.New(
			endpoint.GET,
			"/sessions/current",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Current session"),
			endpoint.WithDescription("The running session, or the last one when none is running"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionState{}, "200", "Session state"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_ACTIVE_SESSION", Message: "No video session has been started"}, "404", "Not Found"),
			}),
		),

		// DELETE /v1/sessions/current - Stop Session
		endpoint.New(
			endpoint.DELETE,
			"/sessions/current",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Stop the running session"),
			endpoint.WithDescription("Asks the running session to stop at the next frame. The summary is published as session.finished."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionState{}, "202", "Stop requested"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_ACTIVE_SESSION", Message: "No video session has been started"}, "404", "Not Found"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
