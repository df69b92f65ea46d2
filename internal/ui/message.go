package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgFoldersFetched MsgKind = iota
	MsgReleasesFetched
	MsgProgressUpdate
	MsgExportComplete
)

type foldersFetched struct {
	folders []models.Folder
	err     error
}

type releasesFetched struct {
	releases []models.Release
	err      error
}

type exportComplete struct {
	result *tasks.ExportResult
	err    error
}

// foldersFetchedMsg is the constructor for [MsgFoldersFetched]
func foldersFetchedMsg(folders []models.Folder, err error) Msg {
	return Msg{kind: MsgFoldersFetched, data: foldersFetched{folders, err}}
}

// releasesFetchedMsg is the constructor for [MsgReleasesFetched]
func releasesFetchedMsg(releases []models.Release, err error) Msg {
	return Msg{kind: MsgReleasesFetched, data: releasesFetched{releases, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(result *tasks.ExportResult, err error) Msg {
	return Msg{kind: MsgExportComplete, data: exportComplete{result, err}}
}
