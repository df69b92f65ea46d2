package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/discx/internal/models"
)

var (
	_ list.Item = folderItem{}
	_ list.Item = releaseItem{}
)

// folderItem wraps [models.Folder] to implement [list.Item].
type folderItem struct {
	folder models.Folder
}

func (i folderItem) FilterValue() string { return i.folder.Name }
func (i folderItem) Title() string       { return i.folder.Name }
func (i folderItem) Description() string { return fmt.Sprintf("%d releases", i.folder.Count) }

// releaseItem wraps [models.Release] to implement [list.Item].
type releaseItem struct {
	release  models.Release
	selected bool
}

func (i releaseItem) FilterValue() string { return i.release.String() }

func (i releaseItem) Title() string {
	mark := "[ ]"
	if i.selected {
		mark = "[x]"
	}
	return mark + " " + i.release.Title
}

func (i releaseItem) Description() string {
	parts := []string{}
	if a := i.release.ArtistName(); a != "" {
		parts = append(parts, a)
	}
	if i.release.Year > 0 {
		parts = append(parts, fmt.Sprint(i.release.Year))
	}
	if f := i.release.FormatName(); f != "" {
		parts = append(parts, f)
	}
	return strings.Join(parts, " • ")
}
