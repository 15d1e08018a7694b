package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ryotapoi/mdport/internal/core"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "convert block references and properties in place",
		Flags: []cli.Flag{
			vaultFlag(),
			formatFlag(),
			&cli.BoolFlag{Name: "no-backup", Usage: "skip the backup step (dangerous)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "report changes without writing"},
		},
		Action: runMigrate,
	}
}

func runMigrate(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if err := validateFormat(format); err != nil {
		return err
	}

	vault := cmd.String("vault")
	dryRun := cmd.Bool("dry-run")

	logger, logPath, err := newRunLogger(vault, "migrate", dryRun)
	if err != nil {
		return err
	}
	defer logger.Sync()

	result, err := core.Migrate(vault, core.MigrateOptions{
		NoBackup: cmd.Bool("no-backup"),
		DryRun:   dryRun,
	}, logger)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return printMigrateJSON(os.Stdout, result, logPath)
	default:
		return printMigrateText(os.Stdout, result, logPath)
	}
}
