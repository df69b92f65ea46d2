// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database, config and template files.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the config file to create (default: $DISCX_CONFIG or config.toml)",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "template",
				Usage: "Write the bundled QR factory template for editing",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the template file (default: export.template_path)",
					},
				},
				Action: r.SetupTemplate,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Discogs authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize discx with your Discogs account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "manual",
						Usage: "Type the verification code instead of using a local callback server",
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL without opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the Discogs redirect",
						Value: defaultLoginTimeout,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored credentials and verify the token",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored token pair",
				Action: r.AuthLogout,
			},
		},
	}
}

// foldersCommand lists collection folders
func foldersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "folders",
		Usage: "List collection folders",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Folders,
	}
}

// releasesCommand lists the releases in one folder
func releasesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "releases",
		Usage: "List releases in a collection folder",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "folder",
				Aliases:  []string{"f"},
				Usage:    "Folder ID (0 is All)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, markdown, csv or json",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.Releases,
	}
}

// releaseCommand shows one release
func releaseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "release",
		Usage: "Show a single release",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "id",
				Usage:    "Release ID",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Release,
	}
}

// exportCommand generates a QR factory CSV
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export releases to a QR factory CSV",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{
				Name:  "ids",
				Usage: "Release IDs to export, in order",
			},
			&cli.IntFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Export every release in this folder",
				Value:   -1,
			},
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "Template CSV (default: export.template_path)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: export.output_dir)",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the export in the database",
			},
		},
		Action: r.Export,
	}
}

// historyCommand lists past exports
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent exports",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of exports to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// serveCommand runs the web app
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web interface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default: server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the app in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive exports.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui", "browse"},
		Usage:   "Browse the collection and export interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: export.output_dir)",
			},
		},
		Action: r.TUI,
	}
}
