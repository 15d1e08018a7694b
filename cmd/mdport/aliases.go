package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ryotapoi/mdport/internal/core"
)

func aliasesCommand() *cli.Command {
	return &cli.Command{
		Name:  "aliases",
		Usage: "split comma-joined frontmatter aliases into quoted list items",
		Flags: []cli.Flag{
			vaultFlag(),
			&cli.BoolFlag{Name: "dry-run", Usage: "report changes without writing"},
		},
		Action: runAliases,
	}
}

func runAliases(ctx context.Context, cmd *cli.Command) error {
	vault := cmd.String("vault")
	dryRun := cmd.Bool("dry-run")

	logger, logPath, err := newRunLogger(vault, "aliases", dryRun)
	if err != nil {
		return err
	}
	defer logger.Sync()

	result, err := core.NormalizeAliases(vault, core.AliasOptions{DryRun: dryRun}, logger)
	if err != nil {
		return err
	}
	return printAliasText(os.Stdout, result, logPath)
}
