package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the kioskd daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
//
// This file is read once at startup. The live device settings document
// (settings.json, owned by internal/settings) is a separate concern and is
// reloadable at runtime; nothing here changes without a restart.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Paths    PathsConfig    `yaml:"paths"`
	Web      WebConfig      `yaml:"web"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Tools    ToolsConfig    `yaml:"tools"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// LoggingConfig contains operational logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// PathsConfig locates the mutable state the daemon owns on disk.
type PathsConfig struct {
	// SettingsFile is the live device settings document watched for edits.
	SettingsFile string `yaml:"settings_file"`

	// ThemesDir holds one JSON document per named theme.
	ThemesDir string `yaml:"themes_dir"`

	// CacheDir holds the weather snapshot cache.
	CacheDir string `yaml:"cache_dir"`

	// LogDir holds the rotating kiosk event logbook files.
	LogDir string `yaml:"log_dir"`

	// LogRetentionDays is how long rotated logbook files are kept.
	// 0 disables pruning.
	LogRetentionDays int `yaml:"log_retention_days"`
}

// WebConfig contains the HTTP control surface settings.
type WebConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts WebTimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	WS       WebSocketConfig  `yaml:"websocket"`

	// PanelDir overrides the embedded panel assets with a filesystem
	// directory (dev mode). Empty means serve the embedded build.
	PanelDir string `yaml:"panel_dir"`
}

// WebTimeoutConfig contains HTTP timeout settings in seconds.
type WebTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// MQTTConfig contains the optional broker integration settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`

	// StatusInterval is how often retained status topics are republished,
	// in seconds.
	StatusInterval int `yaml:"status_interval"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains the optional telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`

	// SampleInterval is how often the state sampler records gauges,
	// in seconds.
	SampleInterval int `yaml:"sample_interval"`
}

// ToolsConfig names the external binaries the domain workers shell out to.
// Bare names are resolved via PATH; absolute paths pin a specific binary.
type ToolsConfig struct {
	Pactl        string `yaml:"pactl"`
	Bluetoothctl string `yaml:"bluetoothctl"`
	Mpv          string `yaml:"mpv"`
	Xrandr       string `yaml:"xrandr"`

	// MpvSocket is the JSON IPC socket path handed to mpv.
	MpvSocket string `yaml:"mpv_socket"`
}

// ShutdownConfig controls how long shutdown waits for workers to finish.
type ShutdownConfig struct {
	GraceSeconds int `yaml:"grace_seconds"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// A missing file is not an error: the kiosk runs on pure defaults so a
// freshly imaged device starts without any provisioning step.
//
// Environment variables follow the pattern: KIOSKD_SECTION_KEY
// For example: KIOSKD_SETTINGS_FILE, KIOSKD_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be parsed or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults for a Raspberry Pi
// class kiosk.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Paths: PathsConfig{
			SettingsFile:     "./data/settings.json",
			ThemesDir:        "./data/themes",
			CacheDir:         "./data/cache",
			LogDir:           "./data/logs",
			LogRetentionDays: 14,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 5000,
			Timeouts: WebTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WS: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "kioskd",
			},
			QoS:         1,
			TopicPrefix: "kiosk",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			StatusInterval: 10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:      100,
			FlushInterval:  10,
			SampleInterval: 30,
		},
		Tools: ToolsConfig{
			Pactl:        "pactl",
			Bluetoothctl: "bluetoothctl",
			Mpv:          "mpv",
			Xrandr:       "xrandr",
			MpvSocket:    "/tmp/kioskd-mpv.sock",
		},
		Shutdown: ShutdownConfig{
			GraceSeconds: 5,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: KIOSKD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Logging
	if v := os.Getenv("KIOSKD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Paths
	if v := os.Getenv("KIOSKD_SETTINGS_FILE"); v != "" {
		cfg.Paths.SettingsFile = v
	}
	if v := os.Getenv("KIOSKD_DATA_DIR"); v != "" {
		cfg.Paths.ThemesDir = v + "/themes"
		cfg.Paths.CacheDir = v + "/cache"
		cfg.Paths.LogDir = v + "/logs"
	}

	// Web
	if v := os.Getenv("KIOSKD_WEB_HOST"); v != "" {
		cfg.Web.Host = v
	}

	// MQTT
	if v := os.Getenv("KIOSKD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("KIOSKD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("KIOSKD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("KIOSKD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Paths validation
	if c.Paths.SettingsFile == "" {
		errs = append(errs, "paths.settings_file is required")
	}
	if c.Paths.ThemesDir == "" {
		errs = append(errs, "paths.themes_dir is required")
	}
	if c.Paths.CacheDir == "" {
		errs = append(errs, "paths.cache_dir is required")
	}
	if c.Paths.LogDir == "" {
		errs = append(errs, "paths.log_dir is required")
	}
	if c.Paths.LogRetentionDays < 0 {
		errs = append(errs, "paths.log_retention_days must not be negative")
	}

	// Web validation
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		errs = append(errs, "web.port must be between 1 and 65535")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set KIOSKD_INFLUXDB_TOKEN)")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	// Tools validation
	if c.Tools.Pactl == "" || c.Tools.Bluetoothctl == "" || c.Tools.Mpv == "" {
		errs = append(errs, "tools.pactl, tools.bluetoothctl and tools.mpv must not be empty")
	}
	if c.Tools.MpvSocket == "" {
		errs = append(errs, "tools.mpv_socket is required")
	}

	// Shutdown validation
	if c.Shutdown.GraceSeconds < 1 {
		errs = append(errs, "shutdown.grace_seconds must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the web read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Web.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the web write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Web.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the web idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Web.Timeouts.Idle) * time.Second
}

// GetGracePeriod returns the shutdown grace period as a Duration.
func (c *Config) GetGracePeriod() time.Duration {
	return time.Duration(c.Shutdown.GraceSeconds) * time.Second
}

// GetStatusInterval returns the MQTT status publish cadence as a Duration.
func (c *Config) GetStatusInterval() time.Duration {
	return time.Duration(c.MQTT.StatusInterval) * time.Second
}

// GetSampleInterval returns the telemetry sample cadence as a Duration.
func (c *Config) GetSampleInterval() time.Duration {
	return time.Duration(c.InfluxDB.SampleInterval) * time.Second
}
