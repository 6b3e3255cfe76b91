package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Store loads and saves the whole attendance record.
type Store interface {
	Load() (domain.AttendanceRecord, error)
	Save(record domain.AttendanceRecord) error
}

// FileStore keeps the record as an indented JSON object in one file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file. A missing or empty file is an empty record.
func (s *FileStore) Load() (domain.AttendanceRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.AttendanceRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.AttendanceRecord{}, nil
	}

	var record domain.AttendanceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if record == nil {
		record = domain.AttendanceRecord{}
	}
	for date, day := range record {
		if day == nil {
			record[date] = domain.DayAttendance{}
		}
	}
	return record, nil
}

// Save rewrites the file in full. Map keys are emitted sorted, so equal
// records produce identical bytes.
func (s *FileStore) Save(record domain.AttendanceRecord) error {
	data, err := Encode(record)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Encode renders the record the way Save writes it.
func Encode(record domain.AttendanceRecord) ([]byte, error) {
	if record == nil {
		record = domain.AttendanceRecord{}
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode attendance: %w", err)
	}
	return append(data, '\n'), nil
}
