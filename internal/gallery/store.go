package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/metrics"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// Detector is the part of provider.FaceProvider the gallery needs.
type Detector interface {
	DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error)
}

// Entry is one known identity and its reference embedding.
type Entry struct {
	Name      string
	Embedding []float64
}

// Store holds the gallery built from the reference image directory.
type Store struct {
	dir      string
	detector Detector
	policy   FacePolicy
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// writeMu serializes reloads and additions so the directory scan and the
	// swap see a consistent set of files.
	writeMu sync.Mutex

	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

// NewStore creates an empty store over dir. Call Reload to populate it.
func NewStore(dir string, detector Detector, logger *slog.Logger) *Store {
	return &Store{
		dir:      dir,
		detector: detector,
		policy:   PolicyFirst,
		logger:   logger.With("component", "gallery"),
		index:    map[string]int{},
	}
}

// WithFacePolicy sets how the reference face is picked in multi-face images.
func (s *Store) WithFacePolicy(p FacePolicy) *Store {
	s.policy = p
	return s
}

// WithMetrics attaches Prometheus metrics.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	return s
}

// Dir returns the reference image directory.
func (s *Store) Dir() string {
	return s.dir
}

// Reload rebuilds the gallery from the directory. Unreadable or faceless
// images are skipped and listed in the report. A provider failure aborts the
// reload and the previous gallery stays in place.
func (s *Store) Reload(ctx context.Context) (*ReloadReport, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.reload(ctx)
}

func (s *Store) reload(ctx context.Context) (*ReloadReport, error) {
	start := time.Now()
	report := &ReloadReport{Loaded: []string{}, Skipped: []Skipped{}}

	files, err := os.ReadDir(s.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrGalleryReload.WithError(fmt.Errorf("read %s: %w", s.dir, err))
	}

	entries := make([]Entry, 0, len(files))
	index := make(map[string]int, len(files))

	// os.ReadDir returns entries sorted by filename
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name, ok := domain.IdentityFromFilename(f.Name())
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := domain.NormalizeName(name); err != nil {
			report.Skipped = append(report.Skipped, Skipped{File: f.Name(), Reason: SkipReservedName, Detail: err.Error()})
			s.logger.Warn("skipping reference image",
				slog.String("file", f.Name()),
				slog.String("reason", string(SkipReservedName)),
			)
			continue
		}

		embedding, skip, err := s.embed(ctx, filepath.Join(s.dir, f.Name()))
		if err != nil {
			return nil, domain.ErrGalleryReload.WithError(fmt.Errorf("%s: %w", f.Name(), err))
		}
		if skip != nil {
			skip.File = f.Name()
			report.Skipped = append(report.Skipped, *skip)
			s.logger.Warn("skipping reference image",
				slog.String("file", f.Name()),
				slog.String("reason", string(skip.Reason)),
				slog.String("detail", skip.Detail),
			)
			continue
		}

		if i, exists := index[name]; exists {
			s.logger.Debug("reference image overrides earlier file",
				slog.String("identity", name),
				slog.String("file", f.Name()),
			)
			entries[i].Embedding = embedding
			continue
		}
		index[name] = len(entries)
		entries = append(entries, Entry{Name: name, Embedding: embedding})
	}

	for _, e := range entries {
		report.Loaded = append(report.Loaded, e.Name)
	}
	report.Duration = time.Since(start)

	s.mu.Lock()
	s.entries = entries
	s.index = index
	s.mu.Unlock()

	s.metrics.SetGallerySize(len(entries))
	s.logger.Info("gallery reloaded",
		slog.Int("identities", len(entries)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("duration", report.Duration),
	)

	return report, nil
}

// embed returns the reference embedding of one file. A non-nil Skipped means
// the file does not register an identity; a non-nil error aborts the reload.
func (s *Store) embed(ctx context.Context, path string) ([]float64, *Skipped, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Skipped{Reason: SkipUnreadable, Detail: err.Error()}, nil
	}

	faces, err := s.detector.DetectFaces(ctx, data)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidImage) {
			return nil, &Skipped{Reason: SkipUnreadable, Detail: err.Error()}, nil
		}
		return nil, nil, err
	}

	face, reason := s.policy.Select(faces)
	if reason != "" {
		return nil, &Skipped{Reason: reason, Detail: fmt.Sprintf("%d faces detected", len(faces))}, nil
	}
	return face.Embedding, nil, nil
}

// AddPerson copies the image at sourcePath into the directory as
// <name><ext> and reloads the gallery. A copy failure leaves both the
// directory and the gallery untouched.
func (s *Store) AddPerson(ctx context.Context, name, sourcePath string) (*AddResult, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, domain.ErrAddPersonFailed.WithError(fmt.Errorf("open source image: %w", err))
	}
	defer func() {
		_ = f.Close()
	}()

	return s.AddPersonFrom(ctx, name, filepath.Base(sourcePath), f)
}

// AddPersonFrom is AddPerson for image data that is not on disk, such as an
// upload. filename only supplies the extension.
func (s *Store) AddPersonFrom(ctx context.Context, name, filename string, r io.Reader) (*AddResult, error) {
	name, err := domain.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !domain.IsImageExtension(ext) {
		return nil, domain.ErrUnsupportedImage.WithError(fmt.Errorf("extension %q", filepath.Ext(filename)))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	dst := filepath.Join(s.dir, name+ext)
	if err := s.writeFile(dst, r); err != nil {
		return nil, domain.ErrAddPersonFailed.WithError(err)
	}
	s.removeSiblings(name, ext)

	s.logger.Info("reference image stored",
		slog.String("identity", name),
		slog.String("file", dst),
	)

	report, err := s.reload(ctx)
	if err != nil {
		return nil, err
	}

	return &AddResult{
		Name:       name,
		File:       dst,
		Registered: s.Contains(name),
		Report:     report,
	}, nil
}

// writeFile copies r to dst through a temporary file in the same directory.
func (s *Store) writeFile(dst string, r io.Reader) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create gallery directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copy image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// removeSiblings deletes other reference files with the same stem so the new
// image is the one that loads.
func (s *Store) removeSiblings(name, keepExt string) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		stem, ok := domain.IdentityFromFilename(f.Name())
		if !ok || stem != name || strings.EqualFold(filepath.Ext(f.Name()), keepExt) {
			continue
		}
		path := filepath.Join(s.dir, f.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("could not remove stale reference image",
				slog.String("file", path),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Entries returns a snapshot of the gallery in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Names returns the known identities sorted alphabetically.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}
