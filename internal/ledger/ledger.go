package ledger

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
)

// MarkResult reports the outcome of Mark. When Marked is false the identity
// was already present and Time is the stored first sighting.
type MarkResult struct {
	Name   string `json:"name"`
	Marked bool   `json:"marked"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

// Ledger is the in-memory attendance record, written through to a Store on
// every new mark. At most one time is kept per (date, identity).
type Ledger struct {
	mu     sync.Mutex
	store  Store
	record domain.AttendanceRecord

	// set while the in-memory record has marks the store lacks
	dirty bool

	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New returns an empty ledger backed by store.
func New(store Store, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		record: domain.AttendanceRecord{},
		now:    time.Now,
		logger: logger.With("component", "ledger"),
	}
}

// WithClock replaces time.Now, for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) WithMetrics(m *metrics.Metrics) *Ledger {
	l.metrics = m
	return l
}

// Load replaces the in-memory record with the stored one.
func (l *Ledger) Load() error {
	record, err := l.store.Load()
	if err != nil {
		return domain.ErrLedgerLoad.WithError(err)
	}

	l.mu.Lock()
	l.record = record
	l.dirty = false
	l.mu.Unlock()

	l.logger.Info("attendance loaded", slog.Int("days", len(record)))
	return nil
}

// Mark records name for today unless it is already there. The in-memory
// mark stands even when persisting fails; the error is then
// LEDGER_PERSIST_FAILED and a later Mark or Persist retries the write.
func (l *Ledger) Mark(name string) (MarkResult, error) {
	if name == "" || name == domain.Unknown {
		return MarkResult{}, domain.ErrInvalidName.WithMessage("only known identities can be marked")
	}

	now := l.now()
	date := now.Format(domain.DateLayout)

	l.mu.Lock()
	defer l.mu.Unlock()

	day, ok := l.record[date]
	if !ok {
		day = domain.DayAttendance{}
		l.record[date] = day
	}
	if existing, ok := day[name]; ok {
		return MarkResult{Name: name, Marked: false, Date: date, Time: existing}, nil
	}

	at := now.Format(domain.TimeLayout)
	day[name] = at
	l.dirty = true
	l.metrics.IncMarks()
	l.logger.Info("attendance marked",
		slog.String("identity", name),
		slog.String("date", date),
		slog.String("time", at),
	)

	result := MarkResult{Name: name, Marked: true, Date: date, Time: at}
	if err := l.persistLocked(); err != nil {
		return result, err
	}
	return result, nil
}

// Persist writes the whole record.
func (l *Ledger) Persist() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.persistLocked()
}

// Flush writes the record only when a mark has not reached the store yet.
// A ledger that never loaded the file leaves it untouched until it marks
// someone.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}
	return l.persistLocked()
}

// Dirty reports whether a mark is still waiting to be persisted.
func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

func (l *Ledger) persistLocked() error {
	// Days without marks are not written.
	for date, day := range l.record {
		if len(day) == 0 {
			delete(l.record, date)
		}
	}

	if err := l.store.Save(l.record); err != nil {
		l.metrics.IncPersistErrors()
		l.logger.Error("failed to persist attendance", slog.String("error", err.Error()))
		return domain.ErrLedgerPersist.WithError(err)
	}
	l.dirty = false
	return nil
}

// Today returns the current date key.
func (l *Ledger) Today() string {
	return l.now().Format(domain.DateLayout)
}

// TodaysEntries returns a copy of today's attendance, empty if none.
func (l *Ledger) TodaysEntries() domain.DayAttendance {
	return l.Entries(l.Today())
}

// Entries returns a copy of one day's attendance, empty if none.
func (l *Ledger) Entries(date string) domain.DayAttendance {
	l.mu.Lock()
	defer l.mu.Unlock()

	day, ok := l.record[date]
	if !ok {
		return domain.DayAttendance{}
	}
	return day.Clone()
}

// Dates returns every date with at least one mark, ascending.
func (l *Ledger) Dates() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	dates := make([]string, 0, len(l.record))
	for d, day := range l.record {
		if len(day) > 0 {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates
}

// Record returns a deep copy of the whole ledger.
func (l *Ledger) Record() domain.AttendanceRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record.Clone()
}
