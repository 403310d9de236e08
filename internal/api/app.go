package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/roomcast/internal/config"
	"github.com/npezzotti/roomcast/internal/database"
	"github.com/npezzotti/roomcast/internal/server"
	"github.com/rs/zerolog"
)

type App struct {
	log            zerolog.Logger
	db             database.Repository
	hub            *server.Hub
	srv            *http.Server
	allowedOrigins []string
}

// NewApp mounts the websocket and health endpoints on mux. Other routes,
// such as the stats handler, may already be registered on it.
func NewApp(mux *http.ServeMux, logger zerolog.Logger, hub *server.Hub, db database.Repository, cfg *config.Config) *App {
	s := &App{
		log:            logger,
		db:             db,
		hub:            hub,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /healthz", s.healthz)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *App) Handler() http.Handler {
	return s.srv.Handler
}

func (s *App) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("starting server")
	return s.srv.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
