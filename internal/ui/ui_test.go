package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCollection struct {
	folders     []models.Folder
	releases    map[int][]models.Release
	foldersErr  error
	releasesErr error
}

func (s *stubCollection) Username() string { return "miles" }

func (s *stubCollection) ListFolders(context.Context) ([]models.Folder, error) {
	return s.folders, s.foldersErr
}

func (s *stubCollection) ReleasesInOrder(_ context.Context, folderID int) ([]models.Release, error) {
	return s.releases[folderID], s.releasesErr
}

type stubExporter struct {
	req    tasks.ExportRequest
	result *tasks.ExportResult
	err    error
}

func (s *stubExporter) Export(_ context.Context, req tasks.ExportRequest, prog chan<- tasks.ProgressUpdate) (*tasks.ExportResult, error) {
	s.req = req
	prog <- tasks.ProgressUpdate{Phase: tasks.PhaseFetchReleases, Step: 1, Total: len(req.ReleaseIDs), Message: "fetching"}
	prog <- tasks.ProgressUpdate{Phase: tasks.PhaseWriteFile, Message: "writing"}
	return s.result, s.err
}

func strPtr(s string) *string { return &s }

func newStubs() (*stubCollection, *stubExporter) {
	coll := &stubCollection{
		folders: []models.Folder{{ID: 1, Name: "Vinyl", Count: 3}, {ID: 2, Name: "Empty", Count: 0}},
		releases: map[int][]models.Release{
			1: {
				{ID: 11, Title: "Kind of Blue", Artist: strPtr("Miles Davis"), Year: 1959},
				{ID: 12, Title: "Blue Train", Artist: strPtr("John Coltrane"), Year: 1957},
				{ID: 13, Title: "Head Hunters", Artist: strPtr("Herbie Hancock"), Year: 1973},
			},
		},
	}
	exp := &stubExporter{result: &tasks.ExportResult{
		Filename: "discogs_collection_20240309_140507.csv",
		Path:     "out/discogs_collection_20240309_140507.csv",
		Rows:     2,
		Skipped:  []int{13},
	}}
	return coll, exp
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	downKey  = tea.KeyMsg{Type: tea.KeyDown}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
)

// send applies msg and runs the returned command once, feeding its message back.
func send(m *Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func loadedModel(t *testing.T, coll Collection, exp Exporter) *Model {
	t.Helper()
	m := NewModel(context.Background(), coll, exp, "out")
	send(m, tea.WindowSizeMsg{Width: 100, Height: 60})
	send(m, m.Init()())
	return m
}

func openFolder(t *testing.T, m *Model) {
	t.Helper()
	cmd := send(m, enterKey)
	require.NotNil(t, cmd)
	send(m, cmd())
}

func TestModel(t *testing.T) {
	t.Run("loads folders on init", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)

		assert.Equal(t, FolderListView, m.view)
		assert.Len(t, m.folders, 2)
		assert.Contains(t, m.View(), "Vinyl")
		assert.Contains(t, m.View(), "miles's Collection")
	})

	t.Run("folder error is shown", func(t *testing.T) {
		coll, exp := newStubs()
		coll.foldersErr = errors.New("boom")
		m := loadedModel(t, coll, exp)

		assert.Contains(t, m.View(), "Error: boom")
	})

	t.Run("loading state before folders arrive", func(t *testing.T) {
		coll, exp := newStubs()
		m := NewModel(context.Background(), coll, exp, "")
		send(m, tea.WindowSizeMsg{Width: 80, Height: 40})
		send(m, enterKey)

		assert.Contains(t, m.View(), "Loading folders")
	})

	t.Run("enter opens release list", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)
		openFolder(t, m)

		assert.Equal(t, ReleaseListView, m.view)
		require.NotNil(t, m.folder)
		assert.Equal(t, "Vinyl", m.folder.Name)
		assert.Contains(t, m.View(), "0 of 3 selected")
	})

	t.Run("empty folder stays on folder list", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)
		send(m, downKey)
		openFolder(t, m)

		assert.Equal(t, FolderListView, m.view)
		assert.Contains(t, m.View(), "No releases found in this folder")
	})

	t.Run("release fetch error returns to folders", func(t *testing.T) {
		coll, exp := newStubs()
		coll.releasesErr = errors.New("not found")
		m := loadedModel(t, coll, exp)
		openFolder(t, m)

		assert.Equal(t, FolderListView, m.view)
		assert.Contains(t, m.status, "not found")
	})

	t.Run("toggle keeps folder order", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)
		openFolder(t, m)

		send(m, downKey)
		send(m, downKey)
		send(m, keyRunes("x"))
		send(m, tea.KeyMsg{Type: tea.KeyUp})
		send(m, tea.KeyMsg{Type: tea.KeyUp})
		send(m, keyRunes("x"))

		assert.Equal(t, []int{11, 13}, m.selectedIDs())
		assert.Contains(t, m.View(), "2 of 3 selected")

		send(m, keyRunes("x"))
		assert.Equal(t, []int{13}, m.selectedIDs())
	})

	t.Run("toggle all", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)
		openFolder(t, m)

		send(m, keyRunes("a"))
		assert.Equal(t, []int{11, 12, 13}, m.selectedIDs())
		for _, it := range m.releaseList.Items() {
			assert.True(t, it.(releaseItem).selected)
		}

		send(m, keyRunes("a"))
		assert.Empty(t, m.selectedIDs())
	})

	t.Run("enter without selection warns", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)
		openFolder(t, m)
		send(m, enterKey)

		assert.Equal(t, ReleaseListView, m.view)
		assert.Contains(t, m.View(), "No releases selected")
	})

	t.Run("esc returns to folders", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)
		openFolder(t, m)
		send(m, escKey)

		assert.Equal(t, FolderListView, m.view)
	})

	t.Run("confirm can be declined", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)
		openFolder(t, m)
		send(m, keyRunes("x"))
		send(m, enterKey)

		assert.Equal(t, ConfirmView, m.view)
		assert.Contains(t, m.View(), "Export 1 release(s) to CSV?")
		assert.Contains(t, m.View(), "Kind of Blue")

		send(m, keyRunes("n"))
		assert.Equal(t, ReleaseListView, m.view)
	})

	t.Run("export streams progress to result", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)
		openFolder(t, m)
		send(m, keyRunes("a"))
		send(m, enterKey)

		cmd := send(m, keyRunes("y"))
		assert.Equal(t, ExportView, m.view)

		var phases []tasks.Phase
		for i := 0; cmd != nil && i < 10; i++ {
			msg := cmd()
			if ui, ok := msg.(Msg); ok && ui.kind == MsgProgressUpdate {
				phases = append(phases, ui.data.(tasks.ProgressUpdate).Phase)
			}
			cmd = send(m, msg)
		}

		assert.Equal(t, []tasks.Phase{tasks.PhaseFetchReleases, tasks.PhaseWriteFile}, phases)
		assert.Equal(t, ResultView, m.view)
		assert.Equal(t, []int{11, 12, 13}, exp.req.ReleaseIDs)
		assert.Equal(t, "miles", exp.req.Username)
		assert.Equal(t, "out", exp.req.OutputDir)
		require.NotNil(t, exp.req.FolderID)
		assert.Equal(t, 1, *exp.req.FolderID)

		view := m.View()
		assert.Contains(t, view, "Export Complete")
		assert.Contains(t, view, "out/discogs_collection_20240309_140507.csv")
		assert.Contains(t, view, "Skipped 1 release(s)")

		send(m, keyRunes("r"))
		assert.Equal(t, FolderListView, m.view)
		assert.Nil(t, m.result)
	})

	t.Run("export failure is shown", func(t *testing.T) {
		coll, exp := newStubs()
		exp.result = nil
		exp.err = errors.New("no valid releases")
		m := loadedModel(t, coll, exp)
		openFolder(t, m)
		send(m, keyRunes("x"))
		send(m, enterKey)

		cmd := send(m, keyRunes("y"))
		for i := 0; cmd != nil && i < 10; i++ {
			cmd = send(m, cmd())
		}

		assert.Equal(t, ResultView, m.view)
		assert.Contains(t, m.View(), "Export failed: no valid releases")
	})

	t.Run("quit", func(t *testing.T) {
		coll, exp := newStubs()
		m := loadedModel(t, coll, exp)
		cmd := send(m, keyRunes("q"))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})
}

func TestReleaseItem(t *testing.T) {
	r := models.Release{ID: 11, Title: "Kind of Blue", Artist: strPtr("Miles Davis"), Year: 1959, Format: strPtr("Vinyl")}

	assert.Equal(t, "[ ] Kind of Blue", releaseItem{release: r}.Title())
	assert.Equal(t, "[x] Kind of Blue", releaseItem{release: r, selected: true}.Title())
	assert.Equal(t, "Miles Davis • 1959 • Vinyl", releaseItem{release: r}.Description())
	assert.Equal(t, "3 releases", folderItem{folder: models.Folder{Name: "Vinyl", Count: 3}}.Description())
}
