// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for database and configuration.
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
		},
	}
}

// tasksCommand handles sync task administration.
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"task"},
		Usage:   "Manage synchronization tasks",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a new synchronization task",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Task name (also the destination folder name)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "account",
						Usage:    "Account ID that owns the destination storage",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "share-id",
						Usage:    "Share identifier of the remote folder",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "access-code",
						Usage: "Access code for protected shares",
					},
					&cli.StringFlag{
						Name:  "remote-folder",
						Usage: "Folder ID inside the share (empty for share root)",
					},
					&cli.StringFlag{
						Name:     "dest-folder",
						Usage:    "Destination folder ID in the account's storage",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "dest-path",
						Usage: "Destination folder path for pointer files",
					},
					&cli.StringFlag{
						Name:  "dest-root",
						Usage: "Parent folder ID used to recreate a vanished destination",
					},
					&cli.IntFlag{
						Name:  "total-episodes",
						Usage: "Total episode count; task completes when reached",
					},
					&cli.StringFlag{
						Name:  "match-pattern",
						Usage: "Regular expression applied to remote file names",
					},
					&cli.StringFlag{
						Name:  "match-operator",
						Usage: "Match comparison: lt, gt, eq, contains, notContains",
					},
					&cli.StringFlag{
						Name:  "match-value",
						Usage: "Value the extracted match is compared against",
					},
					&cli.StringFlag{
						Name:  "rename-source",
						Usage: "Regular expression for post-save renaming",
					},
					&cli.StringFlag{
						Name:  "rename-target",
						Usage: "Replacement template for post-save renaming",
					},
					&cli.StringFlag{
						Name:  "cron",
						Usage: "Per-task cron expression (enables the task's own schedule)",
					},
				},
				Action: r.TasksAdd,
			},
			{
				Name:  "list",
				Usage: "List tasks and their sync state",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status: pending, processing, completed, failed",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: text, csv, markdown, json",
						Value: "text",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.TasksList,
			},
			{
				Name:  "remove",
				Usage: "Remove a task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.TasksRemove,
			},
			{
				Name:  "enable",
				Usage: "Re-enable a completed or failed task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.TasksEnable,
			},
			{
				Name:  "run",
				Usage: "Run one synchronization pass for a task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.TasksRun,
			},
		},
	}
}

// accountsCommand handles storage account administration.
func accountsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "accounts",
		Aliases: []string{"account"},
		Usage:   "Manage cloud storage accounts",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a storage account",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Account display name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "credential",
						Usage:    "Provider session credential (cookie string)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "pointer-root",
						Usage: "Local directory where pointer files are written",
					},
					&cli.StringFlag{
						Name:  "cloud-root",
						Usage: "URL prefix pointer files resolve against",
					},
				},
				Action: r.AccountsAdd,
			},
			{
				Name:  "list",
				Usage: "List registered accounts",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.AccountsList,
			},
			{
				Name:  "remove",
				Usage: "Remove an account",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.AccountsRemove,
			},
		},
	}
}

// sweepCommand handles one-shot sweep operations.
func sweepCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Run sweep passes once and exit",
		Commands: []*cli.Command{
			{
				Name:   "full",
				Usage:  "Run every schedulable task once",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SweepFull,
			},
			{
				Name:   "retry",
				Usage:  "Run every task whose retry is due",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SweepRetry,
			},
			{
				Name:   "cleanup",
				Usage:  "Empty every account's recycle bin",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SweepCleanup,
			},
		},
	}
}

// serveCommand starts the long-running scheduler daemon.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the sync scheduler and completion pipeline until interrupted",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// filterCommand manages the harmonized-content filter.
func filterCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Inspect and rebuild the harmonized-content filter",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show filter size and recorded hash count",
				Flags:  []cli.Flag{configFlag()},
				Action: r.FilterStatus,
			},
			{
				Name:   "rebuild",
				Usage:  "Rebuild the bit array from the persisted rejection list",
				Flags:  []cli.Flag{configFlag()},
				Action: r.FilterRebuild,
			},
		},
	}
}
