package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/desertthunder/discx/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/discx-tui.log"

// TUI launches the interactive terminal UI for browsing and exporting.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	accessor, err := r.collection(ctx)
	if err != nil {
		return err
	}

	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Export.OutputDir
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	db, err := r.openDatabase(ctx)
	if err != nil {
		r.logger.Warn("export history disabled", "error", err)
	} else {
		defer db.Close()
	}

	exporter := r.exporter(ctx, accessor, r.templates(""), db)
	model := ui.NewModel(ctx, accessor, exporter, outputDir)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
