package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roomcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file values", func(t *testing.T) {
		path := writeConfig(t, `
server_addr: "localhost:9000"
signing_key: "c29tZV9zZWNyZXQ="
allowed_origins:
  - "http://localhost:3000"
database:
  driver: sqlite
  dsn: "file::memory:"
nats:
  url: "nats://localhost:4222"
send_rate: 2.5
send_burst: 10
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "localhost:9000", cfg.ServerAddr)
		assert.Equal(t, []byte("some_secret"), cfg.SigningKey)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
		assert.Equal(t, DriverSqlite, cfg.Database.Driver)
		assert.Equal(t, "file::memory:", cfg.Database.DSN)
		assert.Equal(t, "nats://localhost:4222", cfg.Nats.URL)
		assert.Equal(t, "roomcast.notifications", cfg.Nats.Subject, "expected default subject")
		assert.Equal(t, 2.5, cfg.SendRate)
		assert.Equal(t, 10, cfg.SendBurst)
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := writeConfig(t, `
signing_key: "c29tZV9zZWNyZXQ="
server_addr: "localhost:9000"
`)
		t.Setenv("ROOMCAST_SERVER_ADDR", "0.0.0.0:8080")
		t.Setenv("ROOMCAST_ALLOWED_ORIGINS", "http://a.example,http://b.example")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)
		assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver, "expected default driver")
	})

	t.Run("missing signing key", func(t *testing.T) {
		_, err := Load("")
		assert.Error(t, err, "expected error without signing key")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err, "expected error for missing config file")
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServerAddr:       "localhost:8080",
			Database:         Database{Driver: DriverPostgres, DSN: "postgres://localhost/postgres"},
			Base64SigningKey: "c29tZV9zZWNyZXQ=",
		}
	}

	tcases := []struct {
		name   string
		modify func(c *Config)
		err    bool
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:   "empty address",
			modify: func(c *Config) { c.ServerAddr = "" },
			err:    true,
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Database.DSN = "" },
			err:    true,
		},
		{
			name:   "unknown driver",
			modify: func(c *Config) { c.Database.Driver = "mysql" },
			err:    true,
		},
		{
			name:   "empty signing key",
			modify: func(c *Config) { c.Base64SigningKey = "" },
			err:    true,
		},
		{
			name:   "invalid signing key",
			modify: func(c *Config) { c.Base64SigningKey = "invalid_base64" },
			err:    true,
		},
		{
			name:   "negative send rate",
			modify: func(c *Config) { c.SendRate = -1 },
			err:    true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.err {
				assert.Error(t, err, "expected error for config: %s", tc.name)
				return
			}
			assert.NoError(t, err, "expected no error for config: %s", tc.name)
			assert.Equal(t, []byte("some_secret"), cfg.SigningKey, "expected signing key to be decoded")
		})
	}
}

func Test_decodeSigningSecret(t *testing.T) {
	tcases := []struct {
		name         string
		base64Secret string
		expectedKey  []byte
		expectError  bool
	}{
		{
			name:         "valid base64 secret",
			base64Secret: "c29tZV9zZWNyZXQ=",
			expectedKey:  []byte("some_secret"),
		},
		{
			name:         "invalid base64 secret",
			base64Secret: "invalid_base64",
			expectError:  true,
		},
		{
			name:         "empty base64 secret",
			base64Secret: "",
			expectError:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := decodeSigningSecret(tc.base64Secret)
			if tc.expectError {
				assert.Error(t, err, "expected error for base64 secret: %s", tc.base64Secret)
			} else {
				assert.NoError(t, err, "expected no error for base64 secret: %s", tc.base64Secret)
				assert.Equal(t, tc.expectedKey, key, "expected decoded key to match for base64 secret: %s", tc.base64Secret)
			}
		})
	}
}
