package domain

import (
	"sort"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// DayAttendance maps an identity to the time of its first sighting that day.
type DayAttendance map[string]string

// AttendanceRecord maps a date (YYYY-MM-DD) to that day's attendance.
type AttendanceRecord map[string]DayAttendance

// Clone returns a deep copy of the day.
func (d DayAttendance) Clone() DayAttendance {
	out := make(DayAttendance, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Names returns the identities present, sorted by time and then by name.
func (d DayAttendance) Names() []string {
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if d[names[i]] != d[names[j]] {
			return d[names[i]] < d[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// Clone returns a deep copy of the record.
func (r AttendanceRecord) Clone() AttendanceRecord {
	out := make(AttendanceRecord, len(r))
	for date, day := range r {
		out[date] = day.Clone()
	}
	return out
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate.WithError(err)
	}
	return t, nil
}

// AttendanceEntry is one line of a day's report.
type AttendanceEntry struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

// DayReport is the read model shown to shells.
type DayReport struct {
	Date    string            `json:"date"`
	Total   int               `json:"total_present"`
	Entries []AttendanceEntry `json:"entries"`
}

// NewDayReport builds a report ordered by arrival time.
func NewDayReport(date string, day DayAttendance) DayReport {
	report := DayReport{Date: date, Entries: make([]AttendanceEntry, 0, len(day))}
	for _, name := range day.Names() {
		report.Entries = append(report.Entries, AttendanceEntry{Name: name, Time: day[name]})
	}
	report.Total = len(report.Entries)
	return report
}
