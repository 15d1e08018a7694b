package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ryotapoi/mdport/internal/core"
)

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "show the indexed block for an identifier",
		ArgsUsage: "<identifier>",
		Flags: []cli.Flag{
			vaultFlag(),
			formatFlag(),
			fieldsFlag(),
		},
		Action: runLookup,
	}
}

func runLookup(ctx context.Context, cmd *cli.Command) error {
	vault := cmd.String("vault")
	format := cmd.String("format")
	fields := parseFields(cmd.String("fields"))

	if err := validateFormat(format); err != nil {
		return err
	}
	if err := validateFields(fields, validLookupFields, "lookup"); err != nil {
		return err
	}

	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("identifier argument is required")
	}

	result, err := core.Lookup(vault, id)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return printLookupJSON(os.Stdout, result, fields)
	default:
		return printLookupText(os.Stdout, result, fields)
	}
}
