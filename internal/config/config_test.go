package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return "--env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "ws://0.0.0.0:8765", cfg.BackendURL)
	assert.Equal(t, "mapbox://styles/mapbox/satellite-v9", cfg.Map.StyleURL)
	assert.Equal(t, [2]float64{11.776759, 49.683292}, cfg.Map.Center)
	assert.Equal(t, 12.0, cfg.Map.Zoom)
	assert.Equal(t, 30*time.Second, cfg.Reconnect.MaxInterval)
	assert.Zero(t, cfg.Reconnect.MaxElapsed)
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "swarmview.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
listen: ":9000"
backend_url: "ws://backend:8765"
map:
  zoom: 9
  center: [10.5, 48.1]
reconnect:
  initial_interval: 1s
  max_interval: 1m
  max_elapsed: 10m
`), 0o600))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("MAPBOX_ACCESS_TOKEN=pk.from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MAPBOX_ACCESS_TOKEN") })

	t.Setenv("SWARMVIEW_BACKEND_URL", "wss://env-backend:443/swarm")

	cfg, err := Load([]string{
		"--config", file,
		"--env-file", envFile,
		"--map-zoom", "14",
		"--log-format", "json",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen, "from file")
	assert.Equal(t, "wss://env-backend:443/swarm", cfg.BackendURL, "env beats file")
	assert.Equal(t, 14.0, cfg.Map.Zoom, "flag beats file")
	assert.Equal(t, [2]float64{10.5, 48.1}, cfg.Map.Center)
	assert.Equal(t, "pk.from-dotenv", cfg.Map.AccessToken)
	assert.Equal(t, time.Second, cfg.Reconnect.InitialInterval)
	assert.Equal(t, time.Minute, cfg.Reconnect.MaxInterval)
	assert.Equal(t, 10*time.Minute, cfg.Reconnect.MaxElapsed)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadCenterFlag(t *testing.T) {
	cfg, err := Load([]string{noEnvFile(t), "--map-center", "2.35,48.85"})
	require.NoError(t, err)
	assert.Equal(t, [2]float64{2.35, 48.85}, cfg.Map.Center)

	_, err = Load([]string{noEnvFile(t), "--map-center", "2.35"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty backend", func(c *Config) { c.BackendURL = "" }},
		{"http backend", func(c *Config) { c.BackendURL = "http://backend:8765" }},
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"zoom too high", func(c *Config) { c.Map.Zoom = 30 }},
		{"lat out of range", func(c *Config) { c.Map.Center = [2]float64{11, 120} }},
		{"max below initial", func(c *Config) { c.Reconnect.MaxInterval = time.Millisecond }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
