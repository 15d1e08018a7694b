package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ryotapoi/mdport/internal/core"
	"github.com/ryotapoi/mdport/internal/logging"
)

func main() {
	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "mdport",
		Usage:   "migrate a Logseq markdown vault to Obsidian conventions",
		Version: resolveVersion(),
		Commands: []*cli.Command{
			migrateCommand(),
			scanCommand(),
			aliasesCommand(),
			lookupCommand(),
			statsCommand(),
			diagnoseCommand(),
		},
	}
}

// resolveVersion reports the module version recorded in the build info.
func resolveVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func vaultFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "vault",
		Value:   ".",
		Usage:   "vault root directory",
		Sources: cli.EnvVars("MDPORT_VAULT"),
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "format",
		Value: "text",
		Usage: "output format (json or text)",
	}
}

func fieldsFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "fields",
		Usage: "comma-separated fields to output",
	}
}

// newRunLogger builds the logger for a mutating command: console plus a
// timestamped file under the vault data dir. Dry runs stay console-only.
func newRunLogger(vault, name string, dryRun bool) (*zap.Logger, string, error) {
	if dryRun {
		return logging.Console(), "", nil
	}
	return logging.New(core.LogDir(vault), name)
}
