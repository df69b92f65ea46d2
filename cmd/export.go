package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/discx/internal/repositories"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/desertthunder/discx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export fetches the selected releases and writes a QR factory CSV.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.IntSlice("ids")
	folder := cmd.Int("folder")
	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Export.OutputDir
	}

	if len(ids) == 0 && folder < 0 {
		return fmt.Errorf("%w: --ids or --folder is required", shared.ErrMissingArgument)
	}

	accessor, err := r.collection(ctx)
	if err != nil {
		return err
	}

	req := tasks.ExportRequest{
		Username:   accessor.Username(),
		ReleaseIDs: ids,
		OutputDir:  outputDir,
	}
	if folder >= 0 {
		req.FolderID = &folder
		if len(ids) == 0 {
			releases, err := accessor.ReleasesInOrder(ctx, folder)
			if err != nil {
				return err
			}
			for _, rel := range releases {
				req.ReleaseIDs = append(req.ReleaseIDs, rel.ID)
			}
		}
	}

	var exporter *tasks.Exporter
	templates := r.templates(cmd.String("template"))
	if cmd.Bool("no-history") {
		exporter = r.exporter(ctx, accessor, templates, nil)
	} else {
		db, err := r.openDatabase(ctx)
		if err != nil {
			r.logger.Warn("export history disabled", "error", err)
		} else {
			defer db.Close()
		}
		exporter = r.exporter(ctx, accessor, templates, db)
	}

	r.logger.Info("starting export", "releases", len(req.ReleaseIDs), "output", outputDir)
	r.writePlain("Exporting %d release(s)...\n\n", len(req.ReleaseIDs))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			switch update.Phase {
			case tasks.PhaseFetchReleases:
				if update.Step == 0 {
					r.writePlain("📥 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			default:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	result, err := exporter.Export(ctx, req, progressCh)
	close(progressCh)
	wg.Wait()

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("File: %s\n", result.Path)
	r.writePlain("Rows: %d\n", result.Rows)
	if result.Entry != nil {
		if result.Entry.Sequence > 0 {
			r.writePlain("History: #%d\n", result.Entry.Sequence)
		}
		if result.Entry.ArchiveKey != "" {
			r.writePlain("Archived: s3://%s/%s\n", r.config.Archive.Bucket, result.Entry.ArchiveKey)
		}
	}

	if len(result.Skipped) > 0 {
		r.writePlain("\nSkipped %d release(s) that could not be loaded:\n", len(result.Skipped))
		for _, id := range result.Skipped {
			r.writePlain("  - %d\n", id)
		}
	}
	return nil
}

// History lists recent exports, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := repositories.NewExportRepository(db).List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	r.writePlainHeader("Export History")
	if len(entries) == 0 {
		return r.writePlain("No exports yet\n")
	}
	for _, e := range entries {
		folder := "-"
		if e.FolderID != nil {
			folder = fmt.Sprint(*e.FolderID)
		}
		r.writePlain("#%-4d %s  %-40s rows=%d skipped=%d folder=%s user=%s\n",
			e.Sequence, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Filename, e.RowCount, e.SkippedCount, folder, e.Username)
	}
	return nil
}
