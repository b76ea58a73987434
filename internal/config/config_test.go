package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chartdraw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: sqlite
  path: ./drawings.sqlite
chart:
  width: 640
  magnet: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Equal(t, "./drawings.sqlite", cfg.Storage.Path)
	require.Equal(t, 640, cfg.Chart.Width)
	require.Equal(t, 720, cfg.Chart.Height)
	require.True(t, cfg.Chart.Magnet)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chartdraw.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600))

	t.Setenv("CHARTDRAW_SERVER_PORT", "9100")
	t.Setenv("CHARTDRAW_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CHARTDRAW_FEED_PAIR=ETHUSDT\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CHARTDRAW_FEED_PAIR") })

	cfg, err := Load("", envFile, filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	require.Equal(t, "ETHUSDT", cfg.Feed.Pair)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "storage:\n  driver: redis\n"},
		{"postgres without dsn", "storage:\n  driver: postgres\n"},
		{"bad port", "server:\n  port: 0\n"},
		{"bad size", "chart:\n  width: -1\n"},
		{"malformed", "chart: [\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chartdraw.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o600))

			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chartdraw.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
