package api

import (
	"net/http"
	"testing"

	"github.com/npezzotti/roomcast/internal/config"
	"github.com/npezzotti/roomcast/internal/database"
	"github.com/npezzotti/roomcast/internal/server"
	"github.com/npezzotti/roomcast/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewApp(t *testing.T) {
	mux := http.NewServeMux()
	logger := testutil.TestLogger(t)
	hub := &server.Hub{}
	db := &database.MockRepository{}
	cfg := &config.Config{
		ServerAddr:     "localhost:8080",
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	app := NewApp(mux, logger, hub, db, cfg)

	assert.NotNil(t, app, "expected app to be initialized")
	assert.NotNil(t, app.srv, "expected http server to be initialized")
	assert.NotNil(t, app.Handler(), "expected handler to be set")
	assert.Equal(t, db, app.db, "expected db to be set")
	assert.Same(t, hub, app.hub, "expected hub to be set")
	assert.Equal(t, cfg.AllowedOrigins, app.allowedOrigins, "expected allowed origins to be set")
	assert.Equal(t, cfg.ServerAddr, app.srv.Addr, "expected server address to match config")
}
