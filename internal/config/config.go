// Package config provides configuration management for the Heimdex editor.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort                = 8001
	DefaultLogLevel            = "info"
	DefaultDataDir             = ".heimdex-editor"
	DefaultFPS                 = 30.0
	DefaultTickMS              = 50
	DefaultSnapThresholdPx     = 8.0
	DefaultPixelsPerSecond     = 20.0
	DefaultProvisionalDuration = 10 * time.Second
	DefaultServiceTimeout      = 120 * time.Second
	DefaultProbeInterval       = 2 * time.Second

	// Environment variable names
	EnvPort                = "EDITOR_PORT"
	EnvLogLevel            = "EDITOR_LOG_LEVEL"
	EnvDataDir             = "EDITOR_DATA_DIR"
	EnvMediaDir            = "EDITOR_MEDIA_DIR"
	EnvFPS                 = "EDITOR_FPS"
	EnvTickMS              = "EDITOR_TICK_MS"
	EnvSnapThresholdPx     = "EDITOR_SNAP_THRESHOLD_PX"
	EnvPixelsPerSecond     = "EDITOR_PIXELS_PER_SECOND"
	EnvProvisionalDuration = "EDITOR_PROVISIONAL_DURATION"
	EnvServiceURL          = "EDITOR_SERVICE_URL"
	EnvServiceTimeout      = "EDITOR_SERVICE_TIMEOUT"
	EnvHeadless            = "EDITOR_HEADLESS"
	EnvProbeInterval       = "EDITOR_PROBE_INTERVAL"

	// Database filename
	DBFilename = "editor.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	FPS() float64
	TickInterval() time.Duration
	SnapThresholdPx() float64
	PixelsPerSecond() float64
	ProvisionalDuration() time.Duration
	ServiceURL() string
	ServiceTimeout() time.Duration
	Headless() bool
	ProbeInterval() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	mediaDir string

	fps                 float64
	tickInterval        time.Duration
	snapThresholdPx     float64
	pixelsPerSecond     float64
	provisionalDuration time.Duration

	serviceURL     string
	serviceTimeout time.Duration
	headless       bool
	probeInterval  time.Duration
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:                DefaultPort,
		logLevel:            DefaultLogLevel,
		dataDir:             defaultDataDir(),
		fps:                 DefaultFPS,
		tickInterval:        DefaultTickMS * time.Millisecond,
		snapThresholdPx:     DefaultSnapThresholdPx,
		pixelsPerSecond:     DefaultPixelsPerSecond,
		provisionalDuration: DefaultProvisionalDuration,
		serviceTimeout:      DefaultServiceTimeout,
		probeInterval:       DefaultProbeInterval,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	cfg.mediaDir = os.Getenv(EnvMediaDir)

	var err error
	if cfg.fps, err = positiveFloat(EnvFPS, cfg.fps); err != nil {
		return nil, err
	}
	if cfg.snapThresholdPx, err = positiveFloat(EnvSnapThresholdPx, cfg.snapThresholdPx); err != nil {
		return nil, err
	}
	if cfg.pixelsPerSecond, err = positiveFloat(EnvPixelsPerSecond, cfg.pixelsPerSecond); err != nil {
		return nil, err
	}

	if v := os.Getenv(EnvTickMS); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTickMS, err)
		}
		if ms < 1 || ms > 1000 {
			return nil, fmt.Errorf("invalid %s: must be between 1 and 1000", EnvTickMS)
		}
		cfg.tickInterval = time.Duration(ms) * time.Millisecond
	}

	if cfg.provisionalDuration, err = positiveDuration(EnvProvisionalDuration, cfg.provisionalDuration); err != nil {
		return nil, err
	}
	if cfg.serviceTimeout, err = positiveDuration(EnvServiceTimeout, cfg.serviceTimeout); err != nil {
		return nil, err
	}
	if cfg.probeInterval, err = positiveDuration(EnvProbeInterval, cfg.probeInterval); err != nil {
		return nil, err
	}

	cfg.serviceURL = os.Getenv(EnvServiceURL)

	if v := os.Getenv(EnvHeadless); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	return cfg, nil
}

func positiveFloat(env string, def float64) (float64, error) {
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", env, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", env)
	}
	return f, nil
}

// positiveDuration accepts Go durations ("90s") or plain seconds ("90").
func positiveDuration(env string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		secs, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0, fmt.Errorf("invalid %s: %w", env, err)
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", env)
	}
	return d, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns where uploaded and rendered media is stored
func (c *EnvConfig) MediaDir() string {
	if c.mediaDir != "" {
		return c.mediaDir
	}
	return filepath.Join(c.dataDir, "files")
}

func (c *EnvConfig) FPS() float64 {
	return c.fps
}

// TickInterval returns the playback clock period
func (c *EnvConfig) TickInterval() time.Duration {
	return c.tickInterval
}

func (c *EnvConfig) SnapThresholdPx() float64 {
	return c.snapThresholdPx
}

func (c *EnvConfig) PixelsPerSecond() float64 {
	return c.pixelsPerSecond
}

// ProvisionalDuration returns the length given to clips of unprobed media
func (c *EnvConfig) ProvisionalDuration() time.Duration {
	return c.provisionalDuration
}

// ServiceURL returns the media service base URL; empty means offline
func (c *EnvConfig) ServiceURL() string {
	return c.serviceURL
}

func (c *EnvConfig) ServiceTimeout() time.Duration {
	return c.serviceTimeout
}

// Headless reports whether the system tray is disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) ProbeInterval() time.Duration {
	return c.probeInterval
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
