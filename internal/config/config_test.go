package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "GEMINI_MODEL", "STRATEGIST_PASSWORD", "STRATEGIST_PASSWORD_HASH",
		"TOKEN_SECRET", "LEDGER_DRIVER", "LEDGER_PATH", "MYSQL_HOST", "MYSQL_PORT",
		"LOG_LEVEL", "LOG_FILE", "PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Equal(t, 8888, c.Server.Port)
	assert.Equal(t, "gemini-2.5-flash", c.Gemini.Model)
	assert.InDelta(t, 0.7, c.Gemini.Temperature, 1e-6)
	assert.Equal(t, 7*24*time.Hour, c.Auth.TokenTTL)
	assert.Equal(t, []string{"*"}, c.Server.AllowOrigins)
}

func TestLoadFileThenEnv(t *testing.T) {
	p := writeConfig(t, `
server:
  port: 9000
gemini:
  api_key: from-file
  temperature: 0.4
  timeout: 20s
auth:
  password: "$untzu"
  token_ttl: 1h
ledger:
  driver: sqlite
  path: /tmp/ledger.db
`)
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("PORT", "9100")

	c := Load(p)
	assert.Equal(t, "from-env", c.Gemini.APIKey)
	assert.Equal(t, 9100, c.Server.Port)
	assert.InDelta(t, 0.4, c.Gemini.Temperature, 1e-6)
	assert.Equal(t, 20*time.Second, c.Gemini.Timeout)
	assert.Equal(t, "$untzu", c.Auth.Password)
	assert.Equal(t, time.Hour, c.Auth.TokenTTL)
	assert.Equal(t, "sqlite", c.Ledger.Driver)
	require.NoError(t, c.Validate())
	assert.Equal(t, ":9100", c.Addr())
}

func TestEnvOverrideIntIgnoresGarbage(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	c := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, 8888, c.Server.Port)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	valid := func() *Config {
		c := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		c.Auth.Password = "secret"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no secret", func(c *Config) { c.Auth.Password = "" }, "password"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"hot model", func(c *Config) { c.Gemini.Temperature = 3 }, "temperature"},
		{"unknown ledger", func(c *Config) { c.Ledger.Driver = "redis" }, "ledger driver"},
		{"sqlite without path", func(c *Config) { c.Ledger.Driver = "sqlite"; c.Ledger.Path = "" }, "ledger.path"},
		{"mysql without host", func(c *Config) { c.Ledger.Driver = "mysql" }, "database.host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorContains(t, c.Validate(), tt.want)
		})
	}

	hashOnly := valid()
	hashOnly.Auth.Password = ""
	hashOnly.Auth.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, hashOnly.Validate())
}
