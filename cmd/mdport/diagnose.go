package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ryotapoi/mdport/internal/core"
)

func diagnoseCommand() *cli.Command {
	return &cli.Command{
		Name:  "diagnose",
		Usage: "list duplicate identifiers and unresolved references",
		Flags: []cli.Flag{
			vaultFlag(),
			formatFlag(),
			fieldsFlag(),
		},
		Action: runDiagnose,
	}
}

func runDiagnose(ctx context.Context, cmd *cli.Command) error {
	vault := cmd.String("vault")
	format := cmd.String("format")
	fields := parseFields(cmd.String("fields"))

	if err := validateFormat(format); err != nil {
		return err
	}
	if err := validateFields(fields, validDiagnoseFieldsCLI, "diagnose"); err != nil {
		return err
	}

	result, err := core.Diagnose(vault, core.DiagnoseOptions{Fields: fields})
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return printDiagnoseJSON(os.Stdout, result, fields)
	default:
		return printDiagnoseText(os.Stdout, result, fields)
	}
}
