package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/npezzotti/roomcast/internal/auth"
	"github.com/npezzotti/roomcast/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestTokenCmd(t *testing.T) {
	key := []byte("test-signing-key")
	flags := &Flags{Config: &config.Config{SigningKey: key}}

	out := &bytes.Buffer{}
	app := NewTokenCmd(flags).Register(&cli.Command{Name: "roomcast", Writer: out})

	err := app.Run(context.Background(), []string{"roomcast", "token", "--user", "u1", "--email", "u1@example.com", "--ttl", "1h"})
	require.NoError(t, err)

	id, err := auth.NewJWTVerifier(key).Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserId: "u1", Email: "u1@example.com"}, id)
}

func TestMigrateCmd(t *testing.T) {
	flags := &Flags{Config: &config.Config{
		Database: config.Database{Driver: config.DriverSqlite, DSN: "file::memory:"},
	}}

	app := NewMigrateCmd(flags).Register(&cli.Command{Name: "roomcast"})

	assert.NoError(t, app.Run(context.Background(), []string{"roomcast", "migrate"}), "expected sqlite migrate to be a no-op")
	assert.Error(t, app.Run(context.Background(), []string{"roomcast", "migrate", "sideways"}))
}

func TestSetupLogger(t *testing.T) {
	assert.NoError(t, setupLogger("debug", true))
	assert.NoError(t, setupLogger("info", false))
	assert.Error(t, setupLogger("loud", false))
}
