package tasks

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/formatter"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
	tu "github.com/desertthunder/discx/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = log.New(io.Discard)

// stubFetcher serves releases from memory. Higher ids answer sooner so
// completion order differs from selection order.
type stubFetcher struct {
	releases map[int]models.Release
	fail     map[int]error
	delay    bool

	inflight atomic.Int32
	peak     atomic.Int32
}

func (s *stubFetcher) GetRelease(ctx context.Context, id int) (models.Release, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if s.delay {
		select {
		case <-time.After(time.Duration(10-id%10) * 5 * time.Millisecond):
		case <-ctx.Done():
			return models.Release{}, ctx.Err()
		}
	}
	if err, ok := s.fail[id]; ok {
		return models.Release{}, err
	}
	r, ok := s.releases[id]
	if !ok {
		return models.Release{}, shared.ErrNotFound
	}
	return r, nil
}

func strPtr(s string) *string { return &s }

func release(id int, artist, title string, year int) models.Release {
	return models.Release{
		ID:     id,
		Title:  title,
		Artist: strPtr(artist),
		Year:   year,
		URL:    "https://www.discogs.com/release/" + strconv.Itoa(id),
	}
}

func newStub(ids ...int) *stubFetcher {
	s := &stubFetcher{releases: map[int]models.Release{}, fail: map[int]error{}}
	for _, id := range ids {
		s.releases[id] = release(id, "Artist", "Title", 1990+id)
	}
	return s
}

// memoryRecorder collects history entries.
type memoryRecorder struct {
	mu      sync.Mutex
	entries []*models.ExportEntry
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, e *models.ExportEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e.Sequence = len(m.entries) + 1
	m.entries = append(m.entries, e)
	return nil
}

type stubArchiver struct {
	key   string
	err   error
	calls int
}

func (s *stubArchiver) Archive(_ context.Context, name string, _ []byte, _ time.Time) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.key + name, nil
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
}

func TestFetchReleases(t *testing.T) {
	t.Run("keeps selection order with concurrent workers", func(t *testing.T) {
		ids := []int{1, 2, 3, 4, 5, 6, 7, 8}
		stub := newStub(ids...)
		stub.delay = true

		got, err := FetchReleases(context.Background(), stub, ids, ExportOpts{Workers: 4}, nil, quiet)
		require.NoError(t, err)
		require.Len(t, got.Releases, len(ids))
		for i, r := range got.Releases {
			assert.Equal(t, ids[i], r.ID)
		}
		assert.LessOrEqual(t, int(stub.peak.Load()), 4)
		assert.Greater(t, int(stub.peak.Load()), 1)
	})

	t.Run("defaults to sequential fetching", func(t *testing.T) {
		ids := []int{3, 1, 2}
		stub := newStub(ids...)
		stub.delay = true

		got, err := FetchReleases(context.Background(), stub, ids, ExportOpts{}, nil, quiet)
		require.NoError(t, err)
		assert.Equal(t, int32(1), stub.peak.Load())
		assert.Equal(t, 3, got.Releases[0].ID)
	})

	t.Run("skips failing releases", func(t *testing.T) {
		stub := newStub(1, 3)
		stub.fail[2] = errors.New("boom")

		got, err := FetchReleases(context.Background(), stub, []int{1, 2, 3}, ExportOpts{Workers: 2}, nil, quiet)
		require.NoError(t, err)
		require.Len(t, got.Releases, 2)
		assert.Equal(t, []int{2}, got.SkippedIDs())
		assert.EqualError(t, got.Failed[0].Err, "boom")
	})

	t.Run("all failures are not found", func(t *testing.T) {
		stub := newStub()
		_, err := FetchReleases(context.Background(), stub, []int{9, 10}, ExportOpts{}, nil, quiet)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty selection is a validation error", func(t *testing.T) {
		_, err := FetchReleases(context.Background(), newStub(), nil, ExportOpts{}, nil, quiet)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := FetchReleases(ctx, newStub(1, 2), []int{1, 2}, ExportOpts{}, nil, quiet)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("rate limit paces requests", func(t *testing.T) {
		ids := []int{1, 2, 3}
		start := time.Now()
		_, err := FetchReleases(context.Background(), newStub(ids...), ids, ExportOpts{Workers: 3, RequestsPerSecond: 20}, nil, quiet)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	})

	t.Run("reports progress", func(t *testing.T) {
		ids := []int{1, 2}
		stub := newStub(1)
		stub.fail[2] = errors.New("gone")
		prog := make(chan ProgressUpdate, 10)

		_, err := FetchReleases(context.Background(), stub, ids, ExportOpts{}, prog, quiet)
		require.NoError(t, err)
		close(prog)

		var updates []ProgressUpdate
		for u := range prog {
			updates = append(updates, u)
		}
		require.Len(t, updates, 3)
		assert.Equal(t, PhaseFetchReleases, updates[0].Phase)
		assert.Equal(t, 2, updates[2].Step)
		assert.Contains(t, updates[2].Message, "✗ release 2")
	})
}

func TestExporter(t *testing.T) {
	t.Run("preview extracts rows in order", func(t *testing.T) {
		stub := newStub(5, 6)
		stub.fail[7] = errors.New("down")
		e := NewExporter(stub, nil, ExportOpts{}, quiet)

		preview, err := e.Preview(context.Background(), []int{6, 7, 5}, nil)
		require.NoError(t, err)
		require.Len(t, preview.Records, 2)
		assert.Equal(t, 1996, *preview.Records[0].Year)
		assert.Equal(t, 1995, *preview.Records[1].Year)
		assert.Equal(t, []int{7}, preview.Skipped)
	})

	t.Run("unknown year renders empty", func(t *testing.T) {
		stub := newStub()
		stub.releases[1] = models.Release{ID: 1, Title: "T", URL: "U"}
		e := NewExporter(stub, nil, ExportOpts{}, quiet)

		preview, err := e.Preview(context.Background(), []int{1}, nil)
		require.NoError(t, err)
		assert.Nil(t, preview.Records[0].Year)
		assert.Equal(t, "", preview.Records[0].Artist)
	})

	t.Run("export writes file and records history", func(t *testing.T) {
		dir := t.TempDir()
		rec := &memoryRecorder{}
		arch := &stubArchiver{key: "exports/2024/03/09/"}
		folder := 3
		e := NewExporter(newStub(1, 2), nil, ExportOpts{}, quiet,
			WithRecorder(rec), WithArchiver(arch), WithClock(fixedClock))

		got, err := e.Export(context.Background(), ExportRequest{
			Username:   tu.FakeUsername,
			FolderID:   &folder,
			ReleaseIDs: []int{2, 1},
			OutputDir:  dir,
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, "discogs_collection_20240309_140507.csv", got.Filename)
		assert.Equal(t, 2, got.Rows)
		tu.AssertFileExists(t, got.Path)
		content := tu.MustReadFile(t, got.Path)
		lines := strings.Split(strings.TrimSpace(content), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines[1], "(1992)")
		assert.Contains(t, lines[2], "(1991)")

		require.Len(t, rec.entries, 1)
		assert.Equal(t, 1, rec.entries[0].Sequence)
		assert.Equal(t, []int{2, 1}, rec.entries[0].ReleaseIDs)
		assert.Equal(t, "exports/2024/03/09/"+got.Filename, rec.entries[0].ArchiveKey)
		assert.Equal(t, 3, *rec.entries[0].FolderID)
	})

	t.Run("archive and history failures are not fatal", func(t *testing.T) {
		rec := &memoryRecorder{err: errors.New("db locked")}
		arch := &stubArchiver{err: errors.New("bucket missing")}
		e := NewExporter(newStub(1), nil, ExportOpts{}, quiet, WithRecorder(rec), WithArchiver(arch))

		got, err := e.Export(context.Background(), ExportRequest{ReleaseIDs: []int{1}}, nil)
		require.NoError(t, err)
		assert.Empty(t, got.Path)
		assert.NotEmpty(t, got.Data)
		assert.Equal(t, 1, arch.calls)
		assert.Empty(t, got.Entry.ArchiveKey)
	})

	t.Run("invalid template fails before output", func(t *testing.T) {
		tmpl, err := formatter.ParseTemplate(strings.NewReader("A,B\n{artist},{title}\n"))
		require.NoError(t, err)
		dir := t.TempDir()
		e := NewExporter(newStub(1), StaticTemplate{Template: tmpl}, ExportOpts{}, quiet)

		_, err = e.Export(context.Background(), ExportRequest{ReleaseIDs: []int{1}, OutputDir: dir}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrTemplate)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("publish rejects an empty preview", func(t *testing.T) {
		e := NewExporter(newStub(), nil, ExportOpts{}, quiet)
		_, err := e.Publish(context.Background(), ExportRequest{}, &PreviewResult{}, nil)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseFetchReleases, "fetch_releases"},
		{PhaseExtractFields, "extract_fields"},
		{PhaseRenderRows, "render_rows"},
		{PhaseWriteFile, "write_file"},
		{PhaseArchiveExport, "archive_export"},
		{PhaseRecordHistory, "record_history"},
		{Phase(99), ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.phase.String())
		})
	}
}
