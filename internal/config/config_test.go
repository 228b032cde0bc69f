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
	path := filepath.Join(t.TempDir(), "islands.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[island]
distance = 100
reservation_timeout = "90s"

[worlds]
sky_worlds = ["skyworld", "skyworld_nether"]

[frontier]
backend = "sqlite"
sqlite_path = "/var/lib/islands/frontier.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Island.Distance)
	assert.Equal(t, 90*time.Second, cfg.Island.ReservationTimeout)
	assert.Equal(t, 1_000_000, cfg.Island.MaxSpiralSteps, "unset keys keep defaults")
	assert.Equal(t, []string{"skyworld", "skyworld_nether"}, cfg.Worlds.SkyWorlds)
	assert.Equal(t, BackendSQLite, cfg.Frontier.Backend)
	assert.Equal(t, "default", cfg.Frontier.Namespace)
	assert.Equal(t, 64, cfg.Spawn.Radius)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "[island\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "[island]\ndistance = 0\n"))
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeConfig(t, "[frontier]\nbackend = \"redis\"\n"))
	require.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	cfg.Island.MaxSpiralSteps = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg = Defaults()
	cfg.Frontier.Backend = BackendPostgres
	cfg.Database.DSN = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestFrontierPaths(t *testing.T) {
	f := FrontierConfig{DataDir: "data", File: "lastIslandConfig.yml", LegacyFile: "/etc/islands/config.yml"}
	assert.Equal(t, filepath.Join("data", "lastIslandConfig.yml"), f.FrontierPath())
	assert.Equal(t, "/etc/islands/config.yml", f.LegacyPath())

	f.LegacyFile = ""
	assert.Equal(t, "", f.LegacyPath())
}
