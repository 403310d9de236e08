package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/npezzotti/roomcast/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	// Populated at build time via -ldflags.
	version = "dev"
	commit  = "HEAD"
)

type Flags struct {
	ConfigPath string
	LogJSON    bool

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

func main() {
	if err := setupLogger("info", false); err != nil {
		panic(err)
	}

	flags := &Flags{}

	app := &cli.Command{
		Name:      "roomcast",
		Usage:     "Real-time room fan-out server",
		UsageText: "roomcast [global options] command [command options]",
		Version:   fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to a YAML config file (optional)",
				Sources:     cli.EnvVars("ROOMCAST_CONFIG"),
				Destination: &flags.ConfigPath,
			},
			&cli.BoolFlag{
				Name:        "log-json",
				Usage:       "write logs as JSON instead of console output",
				Sources:     cli.EnvVars("ROOMCAST_LOG_JSON"),
				Destination: &flags.LogJSON,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			return ctx, setupLogger(cfg.LogLevel, flags.LogJSON)
		},
	}

	app = NewServeCmd(flags).Register(app)
	app = NewMigrateCmd(flags).Register(app)
	app = NewTokenCmd(flags).Register(app)

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func setupLogger(level string, json bool) error {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if json {
		output = os.Stderr
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger().Level(parsedLevel)

	return nil
}
