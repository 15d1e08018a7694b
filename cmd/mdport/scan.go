package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ryotapoi/mdport/internal/core"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "build the identifier index without rewriting any file",
		Flags: []cli.Flag{
			vaultFlag(),
			formatFlag(),
		},
		Action: runScan,
	}
}

func runScan(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if err := validateFormat(format); err != nil {
		return err
	}

	vault := cmd.String("vault")
	logger, logPath, err := newRunLogger(vault, "scan", false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	result, err := core.Scan(vault, logger)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return printScanJSON(os.Stdout, result)
	default:
		return printScanText(os.Stdout, result, logPath)
	}
}
