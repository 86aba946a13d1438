// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func emailFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Account email address",
		Required: true,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a starter configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand runs the HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the album ranker web server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// accountCommand handles local account management.
func accountCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "account",
		Aliases: []string{"acct"},
		Usage:   "Manage local accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new account",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Account password",
						Required: true,
					},
				},
				Action: r.AccountCreate,
			},
			{
				Name:  "list",
				Usage: "List accounts",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.AccountList,
			},
			{
				Name:   "theme",
				Usage:  "Toggle between dark and light color schemes",
				Flags:  []cli.Flag{emailFlag()},
				Action: r.AccountTheme,
			},
		},
	}
}

// spotifyCommand handles the Spotify account link lifecycle.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "link",
				Usage:  "Link a Spotify account using OAuth2",
				Flags:  []cli.Flag{configFlag(), emailFlag()},
				Action: r.SpotifyLink,
			},
			{
				Name:   "unlink",
				Usage:  "Remove stored Spotify credentials and synced albums",
				Flags:  []cli.Flag{emailFlag()},
				Action: r.SpotifyUnlink,
			},
			{
				Name:   "status",
				Usage:  "Show link and credential status",
				Flags:  []cli.Flag{emailFlag()},
				Action: r.SpotifyStatus,
			},
		},
	}
}

// syncCommand imports the saved album library from Spotify.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync saved Spotify albums into the local catalog",
		Flags: []cli.Flag{
			emailFlag(),
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
		},
		Action: r.Sync,
	}
}

// albumsCommand lists synced albums and release years.
func albumsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "albums",
		Usage: "Browse the synced album catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List albums for a release year",
				Flags: []cli.Flag{
					emailFlag(),
					&cli.StringFlag{
						Name:     "year",
						Aliases:  []string{"y"},
						Usage:    "Release year",
						Required: true,
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.AlbumsList,
			},
			{
				Name:   "years",
				Usage:  "List release years with synced albums",
				Flags:  []cli.Flag{emailFlag()},
				Action: r.AlbumsYears,
			},
		},
	}
}

// exportCommand writes a year's ranking to disk.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a year's ranking to CSV, Markdown, or plain text",
		Flags: []cli.Flag{
			emailFlag(),
			&cli.StringFlag{
				Name:     "year",
				Aliases:  []string{"y"},
				Usage:    "Release year to export",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (csv, markdown, text)",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path (format-specific default)",
			},
		},
		Action: r.Export,
	}
}

// rankCommand returns the top-level TUI command for interactive ranking.
func rankCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "rank",
		Aliases: []string{"tui", "interactive"},
		Usage:   "Launch the interactive ranking TUI",
		Flags:   []cli.Flag{emailFlag()},
		Action:  r.Rank,
	}
}
