package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-office/internal/needs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "officesim.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	st, err := cfg.NeedsStateConfig()
	require.NoError(t, err)
	assert.Equal(t, needs.DefaultStateConfig(), st)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Office, cfg.Office)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"seed": 7,
		"office": {"agents": 12, "width": 50, "depth": 40, "walk_speed": 2},
		"needs": {"threshold": 0.3, "rates": {"fun": 0.5}},
		"work": {"max_workers": 4}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 12, cfg.Office.Agents)
	assert.Equal(t, 4, cfg.Work.MaxWorkers)
	assert.True(t, cfg.Work.AutoPost, "unset fields keep defaults")

	st, err := cfg.NeedsStateConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.3, st.Threshold)
	assert.Equal(t, 0.5, st.Rates[needs.Fun])
	assert.Equal(t, needs.DefaultStateConfig().Rates[needs.Hunger], st.Rates[needs.Hunger])

	b := cfg.BoardConfig()
	assert.Equal(t, 4, b.MaxWorkers)
	assert.Equal(t, int64(7), b.Seed)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"api": {"port": 9000}}`)
	t.Setenv("OFFICESIM_API_PORT", "9100")
	t.Setenv("OFFICESIM_ADMIN_KEY", "s3cret")
	t.Setenv("OFFICESIM_COOLDOWN", "2.5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.API.Port)
	assert.Equal(t, "s3cret", cfg.API.AdminKey)
	assert.Equal(t, 2.5, cfg.SchedulerConfig().Cooldown)
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"seed": `))
	assert.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clock.TickSeconds = 0
	cfg.Work.MaxWorkers = 0
	cfg.Needs.Caps["sleep"] = 10
	cfg.LogLevel = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "tick_seconds")
	assert.Contains(t, msg, "max_workers")
	assert.Contains(t, msg, "sleep")
	assert.Contains(t, msg, "log_level")
}

func TestNeedsConfigErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Needs.Caps["energy"] = -1
	_, err := cfg.NeedsStateConfig()
	assert.ErrorIs(t, err, needs.ErrInvalidConfig)
}

func TestLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	l, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}
