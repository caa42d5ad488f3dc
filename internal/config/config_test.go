package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/reel-slot/internal/errors"
)

const sampleConfig = `
server:
  port: 9090
game:
  default_profile: browser
  deposit_mode: add
  profiles:
    lucky:
      rows: 3
      cols: 5
      max_lines: 3
      draw_mode: without_replacement
      rule: line
      symbols:
        - {symbol: "7", count: 3, payout: 10}
        - {symbol: "X", count: 9, payout: 2}
session:
  max_sessions: 5
  idle_timeout: 10m
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Contains(t, c.Database.DSN, "memory")
	assert.Equal(t, "console", c.Game.DefaultProfile)
	assert.Equal(t, DepositModeReplace, c.Game.DepositMode)
	assert.Equal(t, 1000, c.Session.MaxSessions)
	assert.Equal(t, 30*time.Minute, c.Session.IdleTimeout)
	assert.Equal(t, 24, c.Security.JWT.ExpireHours)
	assert.NoError(t, c.Validate())
}

func TestLoad_File(t *testing.T) {
	c, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "browser", c.Game.DefaultProfile)
	assert.Equal(t, DepositModeAdd, c.Game.DepositMode)
	assert.Equal(t, 5, c.Session.MaxSessions)
	assert.Equal(t, 10*time.Minute, c.Session.IdleTimeout)

	lucky, ok := c.Game.Profiles["lucky"]
	require.True(t, ok)
	assert.Equal(t, 5, lucky.Cols)
	assert.Equal(t, "line", lucky.Rule)
	require.Len(t, lucky.Symbols, 2)
	assert.Equal(t, SymbolConfig{Symbol: "7", Count: 3, Payout: 10}, lucky.Symbols[0])

	// 未配置的项保留默认值
	assert.Equal(t, "sqlite", c.Database.Driver)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("REEL_SLOT_SERVER_PORT", "7070")
	t.Setenv("REEL_SLOT_GAME_DEPOSIT_MODE", "add")

	c, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, 7070, c.Server.Port)
	assert.Equal(t, DepositModeAdd, c.Game.DepositMode)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "game:\n  deposit_mode: double\n"))
	assert.True(t, errors.Is(err, errors.ErrConfigValidate))

	_, err = Load(writeConfig(t, "session:\n  max_sessions: 0\n"))
	assert.True(t, errors.Is(err, errors.ErrConfigValidate))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, errors.ErrConfigLoad))

	_, err = Load(writeConfig(t, "session:\n  max_sessions: many\n"))
	assert.True(t, errors.Is(err, errors.ErrConfigParse))
}

func TestValidate_ProductionSecret(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  mode: production\n"))
	assert.True(t, errors.Is(err, errors.ErrConfigValidate))
	assert.True(t, errors.IsCritical(err))

	c, err := Load(writeConfig(t, "server:\n  mode: production\nsecurity:\n  jwt:\n    secret: s3cret-from-vault\n"))
	require.NoError(t, err)
	assert.True(t, c.Server.IsProduction())

	// 开发模式允许默认密钥
	c, err = Load(writeConfig(t, "server:\n  mode: development\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultJWTSecret, c.Security.JWT.Secret)
}
