package testutil

import (
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger returns a logger that is silent unless ROOMCAST_TEST_LOGS is set.
// Pumps may still log after a test returns, so output never goes through t.Log.
func TestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	if os.Getenv("ROOMCAST_TEST_LOGS") != "" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("test", t.Name()).Logger()
	}
	return zerolog.New(io.Discard)
}
