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

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the job database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml template",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "rollback",
				Usage: "Roll back the most recently applied migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of migrations to roll back",
						Value: 1,
					},
				},
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles Google sign-in
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Google Drive authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in with Google using OAuth2 and save the token",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Revoke and forget the saved token",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in account and storage quota",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// cloneCommand manages the local job queue
func cloneCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "clone",
		Usage: "Queue and run Google Drive clone jobs",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Queue one or more Drive links",
				ArgsUsage: "<link> [link...]",
				Arguments: []cli.Argument{
					&cli.StringArgs{Name: "link", Min: 0, Max: -1},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read links from a file, one per line",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent name lookups",
						Value: 4,
					},
					&cli.BoolFlag{
						Name:  "run",
						Usage: "Start cloning once the links are queued",
					},
				},
				Action: r.CloneAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List jobs in insertion order",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show jobs with this status",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.CloneList,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove a job that is not transferring",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.CloneRemove,
			},
			{
				Name:   "run",
				Usage:  "Clone every queued job, one at a time",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CloneRun,
			},
			{
				Name:  "retry",
				Usage: "Requeue a failed job",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.CloneRetry,
			},
			{
				Name:  "export",
				Usage: "Export the job list to a file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format (csv, md, txt, json)",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.CloneExport,
			},
			{
				Name:  "clear",
				Usage: "Discard every job",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "purge",
						Usage: "Also delete cleared rows from the database",
					},
				},
				Action: r.CloneClear,
			},
		},
	}
}

// serveCommand runs the HTTP backend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP backend",
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

// remoteCommand talks to a running backend
func remoteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "remote",
		Aliases: []string{"api"},
		Usage:   "Drive a running driveclone backend",
		Commands: []*cli.Command{
			{
				Name:  "clone",
				Usage: "Submit a Drive link to the backend",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "link"},
				},
				Action: r.RemoteClone,
			},
			{
				Name:  "jobs",
				Usage: "List the backend's jobs",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Poll until no job is transferring",
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Polling interval for --watch",
						Value: defaultPollInterval,
					},
				},
				Action: r.RemoteJobs,
			},
			{
				Name:   "run",
				Usage:  "Start a run on the backend",
				Action: r.RemoteRun,
			},
			{
				Name:  "cancel",
				Usage: "Cancel an active job on the backend",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.RemoteCancel,
			},
			{
				Name:  "retry",
				Usage: "Requeue a failed job on the backend",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.RemoteRetry,
			},
			{
				Name:  "remove",
				Usage: "Remove a job on the backend",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.RemoteRemove,
			},
			{
				Name:  "get",
				Usage: "Direct GET to the backend, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.RemoteGet,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive clone dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive clone dashboard",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.TUI,
	}
}
