package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/discx/internal/credentials"
	"github.com/desertthunder/discx/internal/formatter"
	"github.com/desertthunder/discx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := shared.MigrationVersion(ctx, db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s (schema version %d)\n", r.config.Database.Path, version)
}

// SetupConfig writes the example configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		path = r.configPath
	}
	if path == "" {
		path = defaultConfigPath
	}
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Put %s and %s in %s\n", credentials.KeyConsumerKey, credentials.KeyConsumerSecret, r.config.Discogs.CredentialsPath)
	r.writePlain("2. Run 'discx auth login'\n")
	return nil
}

// SetupTemplate writes the bundled label template so it can be edited.
func (r *Runner) SetupTemplate(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		path = r.config.Export.TemplatePath
	}
	if path == "" {
		return fmt.Errorf("%w: --output or export.template_path is required", shared.ErrMissingArgument)
	}

	if err := formatter.CreateTemplateFile(path); err != nil {
		return err
	}

	r.logger.Info("template file created", "path", path)
	return r.writePlain("✓ Template written to %s\n", path)
}
