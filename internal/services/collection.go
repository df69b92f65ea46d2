package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/discogs"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
)

// UnknownFolder is the name reported for folders that cannot be resolved.
const UnknownFolder = "Unknown Folder"

// CollectionAccessor reads folders and releases through an authenticated handle.
type CollectionAccessor struct {
	handle *AuthenticatedHandle
	logger *log.Logger
}

// NewCollectionAccessor wraps handle, which may be nil when nobody is signed in.
func NewCollectionAccessor(handle *AuthenticatedHandle, logger *log.Logger) *CollectionAccessor {
	if logger == nil {
		logger = log.Default()
	}
	return &CollectionAccessor{handle: handle, logger: shared.WithLogger(logger, "component", "collection")}
}

// Authenticated reports whether a handle is present.
func (a *CollectionAccessor) Authenticated() bool {
	return a.handle != nil
}

// Username returns the signed-in user or an empty string.
func (a *CollectionAccessor) Username() string {
	if a.handle == nil {
		return ""
	}
	return a.handle.Identity().Username
}

// ListFolders returns the user's folders, or an empty list when nobody is
// signed in.
func (a *CollectionAccessor) ListFolders(ctx context.Context) ([]models.Folder, error) {
	if a.handle == nil || a.Username() == "" {
		return []models.Folder{}, nil
	}

	raw, err := a.handle.Catalog().CollectionFolders(ctx, a.Username())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to retrieve collection folders: %w", shared.ErrConnection, err)
	}

	folders := make([]models.Folder, 0, len(raw))
	for _, f := range raw {
		folders = append(folders, models.Folder{ID: f.ID, Name: f.Name, Count: f.Count})
	}
	return folders, nil
}

// ListReleases returns the releases of a folder keyed by their position
// (0..n-1) in upstream order.
func (a *CollectionAccessor) ListReleases(ctx context.Context, folderID int) (map[int]models.Release, error) {
	ordered, err := a.ReleasesInOrder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	byIndex := make(map[int]models.Release, len(ordered))
	for i, r := range ordered {
		byIndex[i] = r
	}
	return byIndex, nil
}

// ReleasesInOrder is [CollectionAccessor.ListReleases] as a slice.
func (a *CollectionAccessor) ReleasesInOrder(ctx context.Context, folderID int) ([]models.Release, error) {
	folders, err := a.ListFolders(ctx)
	if err != nil {
		return nil, err
	}

	found := false
	for _, f := range folders {
		if f.ID == folderID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: folder with ID %d not found in collection folders", shared.ErrNotFound, folderID)
	}

	items, err := a.handle.Catalog().FolderReleases(ctx, a.Username(), folderID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to retrieve collection items: %w", shared.ErrConnection, err)
	}

	releases := make([]models.Release, 0, len(items))
	for _, item := range items {
		releases = append(releases, releaseFromItem(item))
	}
	a.logger.Debug("listed folder releases", "folder", folderID, "count", len(releases))
	return releases, nil
}

// GetRelease fetches one release by id.
func (a *CollectionAccessor) GetRelease(ctx context.Context, id int) (models.Release, error) {
	if a.handle == nil {
		return models.Release{}, fmt.Errorf("%w: %w", shared.ErrConnection, shared.ErrNotAuthenticated)
	}

	raw, err := a.handle.Catalog().Release(ctx, id)
	if err != nil {
		if errors.Is(err, discogs.ErrNotFound) {
			return models.Release{}, fmt.Errorf("%w: release %d: %w", shared.ErrNotFound, id, err)
		}
		return models.Release{}, fmt.Errorf("%w: failed to retrieve release %d: %w", shared.ErrConnection, id, err)
	}

	return releaseFromDetail(raw)
}

// FolderName resolves a folder id to its name. Any failure yields
// [UnknownFolder].
func (a *CollectionAccessor) FolderName(ctx context.Context, folderID int) string {
	folders, err := a.ListFolders(ctx)
	if err != nil {
		a.logger.Warn("could not resolve folder name", "folder", folderID, "error", err)
		return UnknownFolder
	}
	for _, f := range folders {
		if f.ID == folderID {
			return f.Name
		}
	}
	return UnknownFolder
}
