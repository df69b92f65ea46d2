package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FolderListView ViewState = iota
	ReleaseListView
	ConfirmView
	ExportView
	ResultView
)

// Collection is the read side of an authenticated Discogs session.
// services.CollectionAccessor satisfies it.
type Collection interface {
	Username() string
	ListFolders(ctx context.Context) ([]models.Folder, error)
	ReleasesInOrder(ctx context.Context, folderID int) ([]models.Release, error)
}

// Exporter runs an export and streams progress. [tasks.Exporter] satisfies it.
type Exporter interface {
	Export(ctx context.Context, req tasks.ExportRequest, prog chan<- tasks.ProgressUpdate) (*tasks.ExportResult, error)
}

type exportOutcome struct {
	result *tasks.ExportResult
	err    error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	collection   Collection
	exporter     Exporter
	outputDir    string
	width        int
	height       int
	folderList   list.Model
	folders      []models.Folder
	folder       *models.Folder
	releaseList  list.Model
	releases     []models.Release
	selected     map[int]bool
	progressChan chan tasks.ProgressUpdate
	doneChan     chan exportOutcome
	progress     tasks.ProgressUpdate
	result       *tasks.ExportResult
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
// Exports are written to outputDir.
func NewModel(ctx context.Context, collection Collection, exporter Exporter, outputDir string) *Model {
	return &Model{
		ctx:        ctx,
		view:       FolderListView,
		collection: collection,
		exporter:   exporter,
		outputDir:  outputDir,
		selected:   map[int]bool{},
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init initializes the TUI by fetching collection folders.
func (m *Model) Init() tea.Cmd {
	return m.fetchFolders()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.folders != nil {
			m.folderList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.releases != nil {
			m.releaseList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && m.view != ExportView && !m.filtering() {
			return m, tea.Quit
		}
		switch m.view {
		case FolderListView:
			return m.handleFolderListKeys(msg)
		case ReleaseListView:
			return m.handleReleaseListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgFoldersFetched:
		data := msg.data.(foldersFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.folders = data.folders
		if m.folders == nil {
			m.folders = []models.Folder{}
		}
		items := make([]list.Item, len(data.folders))
		for i, f := range data.folders {
			items[i] = folderItem{folder: f}
		}
		m.folderList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.folderList.Title = "Collection Folders"
		if name := m.collection.Username(); name != "" {
			m.folderList.Title = fmt.Sprintf("%s's Collection", name)
		}
		m.folderList.SetSize(m.width-4, m.height-8)
		return m, nil

	case MsgReleasesFetched:
		data := msg.data.(releasesFetched)
		if data.err != nil {
			m.status = fmt.Sprintf("Could not load releases: %v", data.err)
			m.view = FolderListView
			return m, nil
		}
		if len(data.releases) == 0 {
			m.status = "No releases found in this folder"
			m.view = FolderListView
			return m, nil
		}
		m.releases = data.releases
		m.selected = map[int]bool{}
		items := make([]list.Item, len(data.releases))
		for i, r := range data.releases {
			items[i] = releaseItem{release: r}
		}
		m.releaseList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.releaseList.Title = fmt.Sprintf("Releases in '%s'", m.folder.Name)
		m.releaseList.SetFilteringEnabled(false)
		m.releaseList.SetSize(m.width-4, m.height-8)
		m.status = ""
		m.view = ReleaseListView
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgExportComplete:
		data := msg.data.(exportComplete)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.doneChan = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) filtering() bool {
	return m.view == FolderListView && m.folderList.FilterState() == list.Filtering
}

func (m *Model) handleFolderListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.folders == nil {
		return m, nil
	}
	if !m.filtering() && key.Matches(msg, m.keys.enter) {
		if item, ok := m.folderList.SelectedItem().(folderItem); ok {
			folder := item.folder
			m.folder = &folder
			m.status = "Loading releases..."
			return m, m.fetchReleases(folder.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.folderList, cmd = m.folderList.Update(msg)
	return m, cmd
}

func (m *Model) handleReleaseListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = FolderListView
		m.status = ""
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		idx := m.releaseList.Index()
		if item, ok := m.releaseList.SelectedItem().(releaseItem); ok {
			m.setSelected(idx, item, !item.selected)
		}
		return m, nil
	case key.Matches(msg, m.keys.all):
		all := len(m.selectedIDs()) < len(m.releases)
		for i, it := range m.releaseList.Items() {
			if item, ok := it.(releaseItem); ok {
				m.setSelected(i, item, all)
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if len(m.selectedIDs()) == 0 {
			m.status = "No releases selected"
			return m, nil
		}
		m.status = ""
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.releaseList, cmd = m.releaseList.Update(msg)
	return m, cmd
}

func (m *Model) setSelected(idx int, item releaseItem, on bool) {
	item.selected = on
	if on {
		m.selected[item.release.ID] = true
	} else {
		delete(m.selected, item.release.ID)
	}
	m.releaseList.SetItem(idx, item)
}

// selectedIDs returns the chosen release ids in folder order.
func (m *Model) selectedIDs() []int {
	ids := []int{}
	for _, r := range m.releases {
		if m.selected[r.ID] {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = ReleaseListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = ExportView
		m.progress = tasks.ProgressUpdate{}
		return m, m.startExport()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.restart) {
		m.view = FolderListView
		m.folder = nil
		m.releases = nil
		m.selected = map[int]bool{}
		m.result = nil
		m.err = nil
		m.status = ""
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.view == FolderListView && m.folders != nil:
		m.folderList, cmd = m.folderList.Update(msg)
	case m.view == ReleaseListView && m.releases != nil:
		m.releaseList, cmd = m.releaseList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchFolders() tea.Cmd {
	return func() tea.Msg {
		folders, err := m.collection.ListFolders(m.ctx)
		return foldersFetchedMsg(folders, err)
	}
}

func (m *Model) fetchReleases(folderID int) tea.Cmd {
	return func() tea.Msg {
		releases, err := m.collection.ReleasesInOrder(m.ctx, folderID)
		return releasesFetchedMsg(releases, err)
	}
}

func (m *Model) startExport() tea.Cmd {
	req := tasks.ExportRequest{
		Username:   m.collection.Username(),
		ReleaseIDs: m.selectedIDs(),
		OutputDir:  m.outputDir,
	}
	if m.folder != nil {
		id := m.folder.ID
		req.FolderID = &id
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan exportOutcome, 1)
	m.progressChan = progress
	m.doneChan = done

	go func() {
		result, err := m.exporter.Export(m.ctx, req, progress)
		close(progress)
		done <- exportOutcome{result: result, err: err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return exportCompleteMsg(nil, fmt.Errorf("no export in progress"))
		}

		update, ok := <-progress
		if !ok {
			out := <-done
			return exportCompleteMsg(out.result, out.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case FolderListView:
		return m.renderFolderList()
	case ReleaseListView:
		return m.renderReleaseList()
	case ConfirmView:
		return m.renderConfirm()
	case ExportView:
		return m.renderExport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	return "\n" + styles.warn.Render(m.status)
}

func (m *Model) renderFolderList() string {
	if m.folders == nil {
		return styles.help.Render("Loading folders...")
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s%s\n\n%s", m.folderList.View(), m.renderStatus(), helpView)
}

func (m *Model) renderReleaseList() string {
	exportKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "export"),
	)
	helpKeys := []key.Binding{m.keys.toggle, m.keys.all, exportKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	count := fmt.Sprintf("%d of %d selected", len(m.selectedIDs()), len(m.releases))
	return fmt.Sprintf("%s\n%s%s\n\n%s", m.releaseList.View(), styles.help.Render(count), m.renderStatus(), helpView)
}

func (m *Model) renderConfirm() string {
	ids := m.selectedIDs()
	title := styles.title.Render(fmt.Sprintf("Export %d release(s) to CSV?", len(ids)))

	var b strings.Builder
	if m.folder != nil {
		fmt.Fprintf(&b, "\nFolder: %s\n", m.folder.Name)
	}
	for _, r := range m.releases {
		if m.selected[r.ID] {
			fmt.Fprintf(&b, "  • %s\n", r)
		}
	}
	dir := m.outputDir
	if dir == "" {
		dir = "."
	}
	fmt.Fprintf(&b, "\nOutput: %s\n", dir)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

func (m *Model) renderExport() string {
	title := styles.title.Render("Exporting Releases")

	var phase string
	switch m.progress.Phase {
	case tasks.PhaseFetchReleases:
		phase = fmt.Sprintf("Fetching releases (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.PhaseExtractFields:
		phase = "Extracting label fields..."
	case tasks.PhaseRenderRows:
		phase = "Rendering CSV rows..."
	case tasks.PhaseWriteFile:
		phase = "Writing file..."
	case tasks.PhaseArchiveExport:
		phase = "Archiving export..."
	case tasks.PhaseRecordHistory:
		phase = "Recording history..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Export failed: %v\n\nPress r to restart, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to restart, q to quit")
	}

	title := styles.ok.Render("✓ Export Complete!")
	location := m.result.Path
	if location == "" {
		location = m.result.Filename
	}
	info := fmt.Sprintf("\nFile: %s\nRows: %d", location, m.result.Rows)
	if m.result.Entry != nil && m.result.Entry.ArchiveKey != "" {
		info += fmt.Sprintf("\nArchived: %s", m.result.Entry.ArchiveKey)
	}

	var skipped string
	if n := len(m.result.Skipped); n > 0 {
		skipped = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Skipped %d release(s):", n)))
		for _, id := range m.result.Skipped {
			skipped += fmt.Sprintf("\n  • %d", id)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, skipped, helpView)
}
