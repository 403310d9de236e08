package main

import (
	"context"
	"fmt"

	"github.com/npezzotti/roomcast/internal/config"
	"github.com/npezzotti/roomcast/internal/database"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

type MigrateCmd struct {
	flags *Flags
}

func NewMigrateCmd(flags *Flags) *MigrateCmd {
	return &MigrateCmd{flags: flags}
}

func (cmd *MigrateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "migrate",
		Usage:       "Apply or revert the Postgres schema",
		UsageText:   "roomcast migrate [up|down]",
		Description: "Runs the embedded migrations against database.dsn. SQLite stores migrate themselves on open.",
		Action:      cmd.run,
	})
	return app
}

func (cmd *MigrateCmd) run(_ context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	direction := c.Args().First()
	if direction == "" {
		direction = "up"
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown migration direction %q, expected up or down", direction)
	}

	if cfg.Database.Driver != config.DriverPostgres {
		log.Info().Str("driver", cfg.Database.Driver).Msg("nothing to migrate")
		return nil
	}

	if err := database.Migrate(cfg.Database.DSN, direction == "up"); err != nil {
		return err
	}

	log.Info().Str("direction", direction).Msg("migrations applied")
	return nil
}
