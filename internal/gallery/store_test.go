package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDetector interprets the file content:
//
//	"face:1,2,3"          one face with that embedding
//	"faces:1,0|0,1"       several faces, box area grows with position
//	"noface"              no face
//	"invalid"             provider.ErrInvalidImage
//	"down"                transport failure
type fakeDetector struct {
	calls int
}

func (f *fakeDetector) DetectFaces(_ context.Context, image []byte) ([]provider.DetectedFace, error) {
	f.calls++
	content := string(image)

	switch {
	case content == "noface":
		return []provider.DetectedFace{}, nil
	case content == "invalid":
		return nil, fmt.Errorf("decode: %w", provider.ErrInvalidImage)
	case content == "down":
		return nil, errors.New("connection refused")
	case strings.HasPrefix(content, "face:"):
		return []provider.DetectedFace{face(strings.TrimPrefix(content, "face:"), 10)}, nil
	case strings.HasPrefix(content, "faces:"):
		var faces []provider.DetectedFace
		for i, part := range strings.Split(strings.TrimPrefix(content, "faces:"), "|") {
			faces = append(faces, face(part, float64(10*(i+1))))
		}
		return faces, nil
	}
	return nil, fmt.Errorf("unexpected content %q", content)
}

func face(csv string, size float64) provider.DetectedFace {
	var emb []float64
	for _, p := range strings.Split(csv, ",") {
		var v float64
		_, _ = fmt.Sscanf(p, "%g", &v)
		emb = append(emb, v)
	}
	return provider.DetectedFace{
		BoundingBox: provider.BoundingBox{Width: size, Height: size},
		Embedding:   emb,
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func newTestStore(t *testing.T, files map[string]string) (*Store, *fakeDetector, string) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)
	det := &fakeDetector{}
	return NewStore(dir, det, slog.New(slog.NewTextHandler(io.Discard, nil))), det, dir
}

func TestStore_Reload(t *testing.T) {
	store, _, _ := newTestStore(t, map[string]string{
		"bob.jpg":    "face:0,1",
		"alice.png":  "face:1,0",
		"carol.jpeg": "noface",
		"notes.txt":  "face:9,9",
		"dave.JPG":   "face:1,1",
		"eve.png":    "invalid",
	})

	report, err := store.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob", "dave"}, report.Loaded)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, Skipped{File: "carol.jpeg", Reason: SkipNoFace, Detail: "0 faces detected"}, report.Skipped[0])
	assert.Equal(t, "eve.png", report.Skipped[1].File)
	assert.Equal(t, SkipUnreadable, report.Skipped[1].Reason)

	assert.Equal(t, 3, store.Len())
	assert.True(t, store.Contains("alice"))
	assert.False(t, store.Contains("carol"))
	assert.False(t, store.Contains("notes"))
}

func TestStore_Reload_SameStemKeepsLastLoaded(t *testing.T) {
	store, _, _ := newTestStore(t, map[string]string{
		"alice.jpg": "face:1,0",
		"alice.png": "face:0,1",
		"bob.jpg":   "face:1,1",
	})

	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Name)
	assert.Equal(t, []float64{0, 1}, entries[0].Embedding, "alice.png sorts after alice.jpg and wins")
	assert.Equal(t, "bob", entries[1].Name)
}

func TestStore_Reload_ProviderFailureKeepsPreviousGallery(t *testing.T) {
	store, _, dir := newTestStore(t, map[string]string{"alice.jpg": "face:1,0"})

	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	writeFiles(t, dir, map[string]string{"bob.jpg": "down"})

	_, err = store.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGalleryReload))
	assert.Equal(t, []string{"alice"}, store.Names())
}

func TestStore_Reload_MissingDirectoryIsEmpty(t *testing.T) {
	det := &fakeDetector{}
	store := NewStore(filepath.Join(t.TempDir(), "missing"), det, slog.New(slog.NewTextHandler(io.Discard, nil)))

	report, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Loaded)
	assert.Equal(t, 0, store.Len())
}

func TestStore_Reload_SkipsReservedName(t *testing.T) {
	store, _, _ := newTestStore(t, map[string]string{
		"Unknown.jpg": "face:1,0",
		"alice.jpg":   "face:1,0",
	})

	report, err := store.Reload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, report.Loaded)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "Unknown.jpg", report.Skipped[0].File)
	assert.Equal(t, SkipReservedName, report.Skipped[0].Reason)
	assert.False(t, store.Contains(domain.Unknown))
	assert.Equal(t, "alice", store.Entries()[0].Name)
}

func TestStore_Reload_FacePolicy(t *testing.T) {
	tests := []struct {
		policy     FacePolicy
		wantLoaded bool
		wantEmb    []float64
	}{
		{PolicyFirst, true, []float64{1, 0}},
		{PolicyLargest, true, []float64{0, 1}},
		{PolicySingle, false, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			store, _, _ := newTestStore(t, map[string]string{"group.jpg": "faces:1,0|0,1"})
			store.WithFacePolicy(tt.policy)

			report, err := store.Reload(context.Background())
			require.NoError(t, err)

			if !tt.wantLoaded {
				assert.Equal(t, 0, store.Len())
				require.Len(t, report.Skipped, 1)
				assert.Equal(t, SkipMultipleFaces, report.Skipped[0].Reason)
				return
			}
			require.Equal(t, 1, store.Len())
			assert.Equal(t, tt.wantEmb, store.Entries()[0].Embedding)
		})
	}
}

func TestStore_AddPerson(t *testing.T) {
	store, _, dir := newTestStore(t, map[string]string{"alice.jpg": "face:1,0"})
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "Photo.PNG")
	require.NoError(t, os.WriteFile(src, []byte("face:0,1"), 0o644))

	result, err := store.AddPerson(context.Background(), "  bob ", src)
	require.NoError(t, err)

	assert.Equal(t, "bob", result.Name)
	assert.True(t, result.Registered)
	assert.Equal(t, filepath.Join(dir, "bob.png"), result.File)
	assert.Equal(t, []string{"alice", "bob"}, store.Names())

	data, err := os.ReadFile(filepath.Join(dir, "bob.png"))
	require.NoError(t, err)
	assert.Equal(t, "face:0,1", string(data))

	leftovers, err := filepath.Glob(filepath.Join(dir, ".upload-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestStore_AddPerson_FacelessImageDoesNotGrowGallery(t *testing.T) {
	store, _, dir := newTestStore(t, map[string]string{"alice.jpg": "face:1,0"})
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "empty.jpg")
	require.NoError(t, os.WriteFile(src, []byte("noface"), 0o644))

	result, err := store.AddPerson(context.Background(), "bob", src)
	require.NoError(t, err)

	assert.False(t, result.Registered)
	assert.Equal(t, 1, store.Len())
	assert.FileExists(t, filepath.Join(dir, "bob.jpg"))
}

func TestStore_AddPerson_ReplacesOtherExtension(t *testing.T) {
	store, _, dir := newTestStore(t, map[string]string{"alice.png": "face:1,0"})
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "new.jpg")
	require.NoError(t, os.WriteFile(src, []byte("face:0,1"), 0o644))

	_, err = store.AddPerson(context.Background(), "alice", src)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "alice.png"))
	assert.Equal(t, []float64{0, 1}, store.Entries()[0].Embedding)
}

func TestStore_AddPerson_Errors(t *testing.T) {
	store, det, dir := newTestStore(t, map[string]string{"alice.jpg": "face:1,0"})
	_, err := store.Reload(context.Background())
	require.NoError(t, err)
	callsBefore := det.calls

	good := filepath.Join(t.TempDir(), "ok.jpg")
	require.NoError(t, os.WriteFile(good, []byte("face:0,1"), 0o644))

	tests := []struct {
		name    string
		person  string
		src     string
		wantErr *domain.AppError
	}{
		{"missing source", "bob", filepath.Join(dir, "nope.jpg"), domain.ErrAddPersonFailed},
		{"empty name", " ", good, domain.ErrInvalidName},
		{"reserved name", "Unknown", good, domain.ErrInvalidName},
		{"path in name", "../bob", good, domain.ErrInvalidName},
		{"missing gif source", "bob", filepath.Join(dir, "x.gif"), domain.ErrAddPersonFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.AddPerson(context.Background(), tt.person, tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, []string{"alice"}, store.Names())
		})
	}

	assert.Equal(t, callsBefore, det.calls, "failed additions must not reload")
}

func TestStore_AddPersonFrom_UnsupportedExtension(t *testing.T) {
	store, _, _ := newTestStore(t, nil)

	_, err := store.AddPersonFrom(context.Background(), "bob", "bob.gif", strings.NewReader("face:1"))
	assert.True(t, errors.Is(err, domain.ErrUnsupportedImage))
}

func TestStore_AddPerson_UnwritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	store, _, dir := newTestStore(t, map[string]string{"alice.jpg": "face:1,0"})
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	src := filepath.Join(t.TempDir(), "bob.jpg")
	require.NoError(t, os.WriteFile(src, []byte("face:0,1"), 0o644))

	_, err = store.AddPerson(context.Background(), "bob", src)
	assert.True(t, errors.Is(err, domain.ErrAddPersonFailed))
	assert.Equal(t, []string{"alice"}, store.Names())
}

func TestParseFacePolicy(t *testing.T) {
	p, err := ParseFacePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFirst, p)

	p, err = ParseFacePolicy("single")
	require.NoError(t, err)
	assert.Equal(t, PolicySingle, p)

	_, err = ParseFacePolicy("random")
	assert.Error(t, err)
}
