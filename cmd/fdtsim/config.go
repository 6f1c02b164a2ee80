package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/jmgilman/go/filetable/config"
	"github.com/jmgilman/go/filetable/fs/billy"
	"github.com/jmgilman/go/filetable/internal/logging"
)

// loadConfig reads the file named by path, or returns the defaults when
// path is empty.
func loadConfig(ctx context.Context, path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return config.Load(ctx, billy.NewLocal(dir).Unwrap(), name)
}

// newLogger builds the logger from the config and the global flags.
func newLogger(c *cli.Context, cfg config.Config) (*logging.Logger, error) {
	level := cfg.Level()
	if s := c.String("log-level"); s != "" {
		var err error
		if level, err = logging.ParseLogLevel(s); err != nil {
			return nil, err
		}
	}
	return logging.NewLogger(logging.LogConfig{
		Level:  level,
		JSON:   c.Bool("log-json"),
		Output: c.App.ErrWriter,
	}), nil
}

func cmdConfig() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect kernel configuration",
		Subcommands: []*cli.Command{
			cmdConfigCheck(),
			cmdConfigShow(),
		},
	}
}

func cmdConfigCheck() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "validate a configuration file",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("config check takes exactly one file", 2)
			}
			path := c.Args().First()
			if _, err := loadConfig(c.Context, path); err != nil {
				for _, issue := range config.Issues(err) {
					fmt.Fprintln(c.App.ErrWriter, issue.String())
				}
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s: ok\n", path)
			return nil
		},
	}
}

func cmdConfigShow() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print the effective configuration",
		ArgsUsage: "[FILE]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Value: "yaml",
				Usage: "output format (yaml or cue)",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				path = c.String("config")
			}
			cfg, err := loadConfig(c.Context, path)
			if err != nil {
				return err
			}

			var out []byte
			switch c.String("format") {
			case "yaml":
				out, err = cfg.EncodeYAML()
			case "cue":
				out, err = cfg.EncodeCUE()
			default:
				return cli.Exit(fmt.Sprintf("unknown format %q", c.String("format")), 2)
			}
			if err != nil {
				return err
			}
			_, err = c.App.Writer.Write(out)
			return err
		},
	}
}
