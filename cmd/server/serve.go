package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/npezzotti/roomcast/internal/api"
	"github.com/npezzotti/roomcast/internal/auth"
	"github.com/npezzotti/roomcast/internal/database"
	"github.com/npezzotti/roomcast/internal/notify"
	"github.com/npezzotti/roomcast/internal/server"
	"github.com/npezzotti/roomcast/internal/stats"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	flags *Flags
}

func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the websocket server",
		UsageText: "roomcast serve",
		Action:    cmd.run,
	})
	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("db close")
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()

	hub := server.NewHub(
		log.With().Str("component", "hub").Logger(),
		db,
		auth.NewJWTVerifier(cfg.SigningKey),
		statsUpdater,
		server.Options{SendRate: cfg.SendRate, SendBurst: cfg.SendBurst},
	)

	var sub *notify.Subscriber
	if cfg.Nats.URL != "" {
		logger := log.With().Str("component", "notify").Logger()
		nc, err := notify.Connect(cfg.Nats.URL, logger)
		if err != nil {
			return err
		}
		defer nc.Close()

		sub = notify.NewSubscriber(logger, nc, cfg.Nats.Subject, hub)
		if err := sub.Start(); err != nil {
			return err
		}
	}

	app := api.NewApp(mux, log.With().Str("component", "api").Logger(), hub, db, cfg)

	shutdown := func(ctx context.Context) error {
		if err := app.Shutdown(ctx); err != nil {
			return err
		}

		if sub != nil {
			if err := sub.Stop(); err != nil {
				log.Warn().Err(err).Msg("notification subscriber stop")
			}
		}

		if err := hub.Shutdown(ctx); err != nil {
			return fmt.Errorf("hub shutdown: %w", err)
		}

		// connections are gone, nothing updates the counters anymore
		statsUpdater.Stop()

		log.Info().Msg("shutdown complete")
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"roomcast": shutdown,
	})

	select {
	case code := <-wait:
		return exitErr(code)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			// a signal triggered the shutdown that closed the listener
			return exitErr(<-wait)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := shutdown(shutdownCtx); serr != nil {
			log.Error().Err(serr).Msg("shutdown after server error")
		}
		return fmt.Errorf("server: %w", err)
	}
}

func exitErr(code int) error {
	if code != 0 {
		return fmt.Errorf("shutdown exited with code %d", code)
	}
	return nil
}
