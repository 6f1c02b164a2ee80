// Command fdtsim drives the file syscall layer from scripts.
//
// It boots a kernel over an in-memory filesystem, a local directory or a
// MinIO bucket, runs a YAML script of syscalls against it and prints one
// JSON result per step.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "fdtsim",
		Usage: "exercise descriptor and open file bookkeeping",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "kernel configuration file (.cue, .yaml or .yml)",
				EnvVars: []string{"FDTSIM_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the configured log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "write logs as JSON",
			},
		},
		Commands: []*cli.Command{
			cmdRun(),
			cmdConfig(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fdtsim:", err)
		os.Exit(1)
	}
}
