package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvDBPath, EnvDBDriver, EnvDayStart, EnvFactMinDelta} {
		t.Setenv(key, "")
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := ResolveConfig(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver.Value)
	assert.Equal(t, SourceDefault, cfg.DBDriver.Source)
	assert.Equal(t, SourceDefault, cfg.DayStart.Source)

	clock, err := cfg.DayStartClock()
	require.NoError(t, err)
	assert.Equal(t, "00:00:00", clock.Format("15:04:05"))

	delta, err := cfg.MinDelta()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, delta)
}

func TestResolveConfigPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
db:
  driver: sqlite3
  path: /tmp/from-file.db
day_start: "05:30"
fact_min_delta: "5"
`)
	t.Setenv(EnvDayStart, "06:00:00")

	cfg, err := ResolveConfig(ResolveOptions{ConfigPath: path, CLIDBPath: "/tmp/from-cli.db"})
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.DBDriver.Value)
	assert.Equal(t, SourceConfig, cfg.DBDriver.Source)
	assert.Equal(t, path, cfg.DBDriver.From)

	assert.Equal(t, "/tmp/from-cli.db", cfg.DBPath.Value)
	assert.Equal(t, SourceCLI, cfg.DBPath.Source)

	assert.Equal(t, "06:00:00", cfg.DayStart.Value)
	assert.Equal(t, SourceEnv, cfg.DayStart.Source)

	delta, err := cfg.MinDelta()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, delta)

	now := time.Date(2015, 12, 10, 12, 30, 0, 0, time.Local)
	tf, err := cfg.Timeframe(func() time.Time { return now })
	require.NoError(t, err)
	assert.Equal(t, "05:59:59", tf.DayEnd().Format("15:04:05"))
	assert.Equal(t, now, tf.CurrentTime())
}

func TestResolveConfigInvalid(t *testing.T) {
	clearEnv(t)

	_, err := ResolveConfig(ResolveOptions{ConfigPath: writeConfig(t, "day_start: 2015-01-01\n")})
	require.Error(t, err)

	_, err = ResolveConfig(ResolveOptions{ConfigPath: writeConfig(t, "fact_min_delta: soon\n")})
	require.Error(t, err)

	_, err = ResolveConfig(ResolveOptions{ConfigPath: writeConfig(t, "db: [unclosed\n")})
	require.Error(t, err)
}

func TestSave(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := ResolveConfig(ResolveOptions{ConfigPath: path, CLIDayStart: "05:30", CLIDBPath: "/tmp/x.db"})
	require.NoError(t, err)
	require.NoError(t, Save(cfg))

	again, err := ResolveConfig(ResolveOptions{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "05:30", again.DayStart.Value)
	assert.Equal(t, SourceConfig, again.DayStart.Source)
	assert.Equal(t, "/tmp/x.db", again.DBPath.Value)
}
