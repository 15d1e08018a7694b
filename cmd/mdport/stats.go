package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ryotapoi/mdport/internal/core"
)

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "show index statistics",
		Flags: []cli.Flag{
			vaultFlag(),
			formatFlag(),
			fieldsFlag(),
		},
		Action: runStats,
	}
}

func runStats(ctx context.Context, cmd *cli.Command) error {
	vault := cmd.String("vault")
	format := cmd.String("format")
	fields := parseFields(cmd.String("fields"))

	if err := validateFormat(format); err != nil {
		return err
	}
	if err := validateFields(fields, validStatsFieldsCLI, "stats"); err != nil {
		return err
	}

	result, err := core.Stats(vault, core.StatsOptions{Fields: fields})
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return printStatsJSON(os.Stdout, result, fields)
	default:
		return printStatsText(os.Stdout, result, fields)
	}
}
