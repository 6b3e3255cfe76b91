package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/saturnino-fabrica-de-software/chamada/internal/recognizer"
)

type GalleryInterface interface {
	Reload(ctx context.Context) (*gallery.ReloadReport, error)
	AddPerson(ctx context.Context, name, sourcePath string) (*gallery.AddResult, error)
	AddPersonFrom(ctx context.Context, name, filename string, r io.Reader) (*gallery.AddResult, error)
	Names() []string
	Contains(name string) bool
}

type LedgerInterface interface {
	Mark(name string) (ledger.MarkResult, error)
	TodaysEntries() domain.DayAttendance
	Entries(date string) domain.DayAttendance
	Today() string
	Dates() []string
}

type RecognizerInterface interface {
	IdentifyImage(ctx context.Context, data []byte) ([]recognizer.Identification, error)
}

// Person is a known identity and whether it is present today.
type Person struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Time    string `json:"time,omitempty"`
}

// PhotoFace is one face found in a submitted photo.
type PhotoFace struct {
	recognizer.Identification
	Marked bool   `json:"marked"`
	Time   string `json:"time,omitempty"`
}

// PhotoResult is returned by RecognizePhoto.
type PhotoResult struct {
	Faces         []PhotoFace `json:"faces"`
	Marked        []string    `json:"marked"`
	PersistFailed bool        `json:"persist_failed,omitempty"`
}

// AttendanceService is what the presentation shells call. It owns no state
// of its own; gallery and ledger are injected.
type AttendanceService struct {
	gallery    GalleryInterface
	ledger     LedgerInterface
	recognizer RecognizerInterface
	audit      audit.Logger
	logger     *slog.Logger
}

func NewAttendanceService(
	g GalleryInterface,
	l LedgerInterface,
	r RecognizerInterface,
	logger *slog.Logger,
) *AttendanceService {
	return &AttendanceService{
		gallery:    g,
		ledger:     l,
		recognizer: r,
		audit:      &audit.NoOpLogger{},
		logger:     logger.With("component", "attendance_service"),
	}
}

func (s *AttendanceService) WithAudit(a audit.Logger) *AttendanceService {
	if a != nil {
		s.audit = a
	}
	return s
}

// AddPerson copies a reference image from disk into the gallery.
func (s *AttendanceService) AddPerson(ctx context.Context, name, sourcePath string) (*gallery.AddResult, error) {
	result, err := s.gallery.AddPerson(ctx, name, sourcePath)
	s.auditAdd(ctx, name, result, err)
	return result, err
}

// AddPersonUpload stores an uploaded reference image.
func (s *AttendanceService) AddPersonUpload(ctx context.Context, name, filename string, r io.Reader) (*gallery.AddResult, error) {
	result, err := s.gallery.AddPersonFrom(ctx, name, filename, r)
	s.auditAdd(ctx, name, result, err)
	return result, err
}

func (s *AttendanceService) auditAdd(ctx context.Context, name string, result *gallery.AddResult, err error) {
	event := audit.Event{
		EventType: audit.EventPersonAdded,
		Identity:  name,
		Success:   err == nil && result != nil && result.Registered,
	}
	if result != nil {
		event.Identity = result.Name
		event.Metadata = map[string]string{"file": result.File}
		if !result.Registered {
			event.Error = "no face found in reference image"
		}
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = s.audit.Log(ctx, event)
}

// Reload rebuilds the gallery from the reference directory.
func (s *AttendanceService) Reload(ctx context.Context) (*gallery.ReloadReport, error) {
	report, err := s.gallery.Reload(ctx)

	event := audit.Event{EventType: audit.EventGalleryReloaded, Success: err == nil}
	if err != nil {
		event.Error = err.Error()
	} else {
		event.Metadata = map[string]string{
			"loaded":  fmt.Sprint(len(report.Loaded)),
			"skipped": fmt.Sprint(len(report.Skipped)),
		}
	}
	_ = s.audit.Log(ctx, event)

	return report, err
}

// People lists the known identities with today's presence.
func (s *AttendanceService) People() []Person {
	today := s.ledger.TodaysEntries()
	names := s.gallery.Names()

	people := make([]Person, 0, len(names))
	for _, name := range names {
		at, ok := today[name]
		people = append(people, Person{Name: name, Present: ok, Time: at})
	}
	return people
}

// MarkManual marks a known identity as present today. Only identities in
// the gallery can be marked.
func (s *AttendanceService) MarkManual(ctx context.Context, name string) (ledger.MarkResult, error) {
	name, err := domain.NormalizeName(name)
	if err != nil {
		return ledger.MarkResult{}, err
	}
	if !s.gallery.Contains(name) {
		return ledger.MarkResult{}, domain.ErrPersonNotFound.WithMessage(fmt.Sprintf("%s is not registered", name))
	}

	result, err := s.ledger.Mark(name)
	if result.Marked {
		s.auditMark(ctx, result, audit.SourceManual, err)
	}
	return result, err
}

// Today returns today's report.
func (s *AttendanceService) Today() domain.DayReport {
	date := s.ledger.Today()
	return domain.NewDayReport(date, s.ledger.Entries(date))
}

// Day returns the report of a past or current date (YYYY-MM-DD).
func (s *AttendanceService) Day(date string) (domain.DayReport, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.DayReport{}, err
	}
	return domain.NewDayReport(date, s.ledger.Entries(date)), nil
}

// Dates lists every date with attendance.
func (s *AttendanceService) Dates() []string {
	return s.ledger.Dates()
}

// RecognizePhoto identifies the faces of an encoded photo and, when mark is
// set, marks every known identity found. A photo without faces is not an
// error.
func (s *AttendanceService) RecognizePhoto(ctx context.Context, data []byte, mark bool) (*PhotoResult, error) {
	if len(data) == 0 {
		return nil, domain.ErrUnsupportedImage.WithMessage("empty image")
	}

	ids, err := s.recognizer.IdentifyImage(ctx, data)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidImage) {
			return nil, domain.ErrUnsupportedImage.WithError(err)
		}
		return nil, domain.ErrProviderUnavailable.WithError(fmt.Errorf("recognize photo: %w", err))
	}

	result := &PhotoResult{Faces: make([]PhotoFace, 0, len(ids)), Marked: []string{}}
	seen := map[string]ledger.MarkResult{}
	var persistErr error

	for _, id := range ids {
		face := PhotoFace{Identification: id}
		if mark && id.Known {
			res, done := seen[id.Name]
			if !done {
				res, err = s.ledger.Mark(id.Name)
				switch {
				case errors.Is(err, domain.ErrInvalidName):
					s.logger.Warn("identity cannot be marked",
						slog.String("identity", id.Name),
						slog.String("error", err.Error()),
					)
					result.Faces = append(result.Faces, face)
					continue
				case errors.Is(err, domain.ErrLedgerPersist):
					persistErr = err
				case err != nil:
					return nil, err
				}
				seen[id.Name] = res
				if res.Marked {
					result.Marked = append(result.Marked, id.Name)
					s.auditMark(ctx, res, audit.SourcePhoto, err)
				}
			}
			face.Marked = res.Marked
			face.Time = res.Time
		}
		result.Faces = append(result.Faces, face)
	}

	sort.Strings(result.Marked)
	if persistErr != nil {
		result.PersistFailed = true
		s.logger.Warn("photo marks kept in memory only", slog.String("error", persistErr.Error()))
	}

	return result, nil
}

func (s *AttendanceService) auditMark(ctx context.Context, r ledger.MarkResult, source string, err error) {
	event := audit.Event{
		EventType: audit.EventAttendanceMarked,
		Identity:  r.Name,
		Source:    source,
		Success:   err == nil,
		Metadata:  map[string]string{"date": r.Date, "time": r.Time},
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = s.audit.Log(ctx, event)
}
