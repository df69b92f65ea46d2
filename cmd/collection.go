package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/discx/internal/formatter"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Folders lists the collection folders of the authenticated user.
func (r *Runner) Folders(ctx context.Context, cmd *cli.Command) error {
	accessor, err := r.collection(ctx)
	if err != nil {
		return err
	}

	folders, err := accessor.ListFolders(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(folders, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s's Collection", accessor.Username()))
	if len(folders) == 0 {
		return r.writePlain("No folders found in your collection\n")
	}
	for _, f := range folders {
		r.writePlain("%6d  %-30s %d releases\n", f.ID, f.Name, f.Count)
	}
	return nil
}

// Releases lists a folder in upstream order in the requested format.
func (r *Runner) Releases(ctx context.Context, cmd *cli.Command) error {
	folderID := cmd.Int("folder")
	format := strings.ToLower(cmd.String("format"))
	output := cmd.String("output")

	switch format {
	case "text", "markdown", "md", "csv", "json":
	default:
		return fmt.Errorf("%w: format must be text, markdown, csv or json, got %q", shared.ErrInvalidFlag, format)
	}

	accessor, err := r.collection(ctx)
	if err != nil {
		return err
	}

	releases, err := accessor.ReleasesInOrder(ctx, folderID)
	if err != nil {
		return err
	}
	name := accessor.FolderName(ctx, folderID)
	r.logger.Debug("listing releases", "folder", folderID, "count", len(releases), "format", format)

	var data []byte
	switch format {
	case "markdown", "md":
		data = formatter.ReleasesToMarkdown(name, releases)
	case "csv":
		if data, err = formatter.ReleasesToCSV(releases); err != nil {
			return err
		}
	case "json":
		if output == "" {
			return r.writeJSON(releases, true)
		}
		if data, err = jsonBytes(releases); err != nil {
			return err
		}
	default:
		data = formatter.ReleasesToText(name, releases)
	}

	if output != "" {
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		r.logger.Info("releases written", "path", output, "count", len(releases))
		return r.writePlain("✓ %d releases written to %s\n", len(releases), output)
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Release prints one release.
func (r *Runner) Release(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Int("id")
	if id <= 0 {
		return fmt.Errorf("%w: --id must be a positive release id", shared.ErrInvalidFlag)
	}

	accessor, err := r.collection(ctx)
	if err != nil {
		return err
	}

	release, err := accessor.GetRelease(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(release, true)
	}

	r.writePlainHeader(release.Title)
	r.writePlain("ID:     %d\n", release.ID)
	r.writePlain("Artist: %s\n", release.ArtistName())
	if release.Year > 0 {
		r.writePlain("Year:   %d\n", release.Year)
	}
	r.writePlain("Format: %s\n", release.FormatName())
	r.writePlain("Label:  %s\n", release.LabelName())
	return r.writePlain("URL:    %s\n", release.URL)
}
