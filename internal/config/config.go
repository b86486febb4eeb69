// Package config loads swarmview settings.
//
// Values are layered, later sources overriding earlier ones: built-in
// defaults, an optional YAML file (--config), a .env file, SWARMVIEW_*
// environment variables, and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// Listen is the HTTP address the viewer page is served on.
	Listen string `yaml:"listen"`

	// BackendURL is the swarm backend websocket address.
	BackendURL string `yaml:"backend_url"`

	Map       MapConfig       `yaml:"map"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Log       LogConfig       `yaml:"log"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MapConfig is handed to the browser page to build the map.
type MapConfig struct {
	StyleURL    string     `yaml:"style_url"`
	Center      [2]float64 `yaml:"center"` // [lon, lat]
	Zoom        float64    `yaml:"zoom"`
	AccessToken string     `yaml:"access_token"`
}

// ReconnectConfig bounds the backend reconnect backoff.
// MaxElapsed of zero retries forever.
type ReconnectConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MaxElapsed      time.Duration `yaml:"max_elapsed"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Listen:     ":8080",
		BackendURL: "ws://0.0.0.0:8765",
		Map: MapConfig{
			StyleURL: "mapbox://styles/mapbox/satellite-v9",
			Center:   [2]float64{11.776759, 49.683292},
			Zoom:     12,
		},
		Reconnect: ReconnectConfig{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds a Config from args (without the program name).
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("swarmview", pflag.ContinueOnError)
	configPath := flags.String("config", os.Getenv("SWARMVIEW_CONFIG"), "path to YAML config file")
	envFile := flags.String("env-file", ".env", "dotenv file to load if present")
	listen := flags.String("listen", "", "HTTP listen address")
	backendURL := flags.String("backend-url", "", "swarm backend websocket URL")
	styleURL := flags.String("map-style", "", "map style URL")
	center := flags.Float64Slice("map-center", nil, "initial map center as lon,lat")
	zoom := flags.Float64("map-zoom", -1, "initial map zoom")
	shutdownTimeout := flags.Duration("shutdown-timeout", 0, "HTTP server shutdown timeout")
	logLevel := flags.String("log-level", "", "log level (debug|info|warn|error)")
	logFormat := flags.String("log-format", "", "log format (text|json)")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if *listen != "" {
		cfg.Listen = *listen
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}
	if *styleURL != "" {
		cfg.Map.StyleURL = *styleURL
	}
	if len(*center) > 0 {
		if len(*center) != 2 {
			return nil, fmt.Errorf("--map-center wants lon,lat, got %d values", len(*center))
		}
		cfg.Map.Center = [2]float64{(*center)[0], (*center)[1]}
	}
	if *zoom >= 0 {
		cfg.Map.Zoom = *zoom
	}
	if *shutdownTimeout > 0 {
		cfg.ShutdownTimeout = *shutdownTimeout
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SWARMVIEW_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("SWARMVIEW_BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv("SWARMVIEW_MAP_STYLE"); v != "" {
		c.Map.StyleURL = v
	}
	if v := os.Getenv("MAPBOX_ACCESS_TOKEN"); v != "" {
		c.Map.AccessToken = v
	}
	if v := os.Getenv("SWARMVIEW_MAP_ZOOM"); v != "" {
		zoom, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SWARMVIEW_MAP_ZOOM: %w", err)
		}
		c.Map.Zoom = zoom
	}
	if v := os.Getenv("SWARMVIEW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SWARMVIEW_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("backend URL is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("backend URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("backend URL scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 22 {
		return fmt.Errorf("map zoom %v outside 0..22", c.Map.Zoom)
	}
	lon, lat := c.Map.Center[0], c.Map.Center[1]
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return fmt.Errorf("map center %v is not a lon,lat pair", c.Map.Center)
	}
	if c.Reconnect.InitialInterval <= 0 || c.Reconnect.MaxInterval < c.Reconnect.InitialInterval {
		return fmt.Errorf("reconnect intervals invalid: initial %s, max %s",
			c.Reconnect.InitialInterval, c.Reconnect.MaxInterval)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format %q not supported", c.Log.Format)
	}
	return nil
}
