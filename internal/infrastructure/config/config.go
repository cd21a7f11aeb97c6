package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Equinox Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Core      CoreConfig      `yaml:"core"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Hotplug   HotplugConfig   `yaml:"hotplug"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Export    ExportConfig    `yaml:"export"`
}

// CoreConfig contains instance-wide settings.
type CoreConfig struct {
	// Name identifies this instance in logs and on the MQTT bus.
	Name string `yaml:"name"`

	// DataDir is the base directory for runtime state.
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HotplugConfig contains device slot registry settings.
type HotplugConfig struct {
	// Capacity bounds how many devices may be bound at once.
	Capacity int `yaml:"capacity"`

	// SettleDelayMs is how long to wait after an arrival signal before
	// scanning, giving hardware time to finish enumerating (milliseconds).
	SettleDelayMs int `yaml:"settle_delay_ms"`
}

// SimulatorConfig contains the simulated camera fleet settings.
type SimulatorConfig struct {
	Enabled bool `yaml:"enabled"`

	// Cameras lists the unit ids plugged in at startup. Units can still be
	// plugged and unplugged at runtime through the simulated bus.
	Cameras []string `yaml:"cameras"`

	// Model names the simulated hardware; device names are "Model #id".
	Model string `yaml:"model"`

	// Sensor geometry.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// TemperatureSensor fits the cameras with a temperature chip.
	TemperatureSensor bool    `yaml:"temperature_sensor"`
	StartTemperature  float64 `yaml:"start_temperature"`

	// ExposureUnitMs is the wall-clock length of one exposure second in
	// milliseconds. 1000 gives real-time exposures; smaller values speed
	// up bench setups.
	ExposureUnitMs int `yaml:"exposure_unit_ms"`

	// TemperaturePollSec is the temperature poll cadence in seconds.
	TemperaturePollSec int `yaml:"temperature_poll_sec"`
}

// ExportConfig contains the outbound data paths.
type ExportConfig struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: EQUINOX_SECTION_KEY
// For example: EQUINOX_DATABASE_PATH, EQUINOX_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults. Export paths are
// disabled by default; the property bus runs standalone without them.
func defaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Name:    "equinox",
			DataDir: "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			Path:        "./data/equinox.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Hotplug: HotplugConfig{
			Capacity:      32,
			SettleDelayMs: 250,
		},
		Simulator: SimulatorConfig{
			Enabled:            true,
			Cameras:            []string{"cam-1"},
			Model:              "CCD Simulator",
			Width:              640,
			Height:             480,
			TemperatureSensor:  true,
			StartTemperature:   -10,
			ExposureUnitMs:     1000,
			TemperaturePollSec: 3,
		},
		Export: ExportConfig{
			MQTT: MQTTConfig{
				Broker: MQTTBrokerConfig{
					Host:     "localhost",
					Port:     1883,
					ClientID: "equinox-core",
				},
				QoS: 1,
				Reconnect: MQTTReconnectConfig{
					InitialDelay: 1,
					MaxDelay:     60,
					MaxAttempts:  0,
				},
			},
			InfluxDB: InfluxDBConfig{
				URL:           "http://localhost:8086",
				Org:           "equinox",
				Bucket:        "telemetry",
				BatchSize:     100,
				FlushInterval: 10,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: EQUINOX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EQUINOX_DATA_DIR"); v != "" {
		cfg.Core.DataDir = v
	}
	if v := os.Getenv("EQUINOX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EQUINOX_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("EQUINOX_MQTT_HOST"); v != "" {
		cfg.Export.MQTT.Broker.Host = v
	}
	if v := os.Getenv("EQUINOX_MQTT_USERNAME"); v != "" {
		cfg.Export.MQTT.Auth.Username = v
	}
	if v := os.Getenv("EQUINOX_MQTT_PASSWORD"); v != "" {
		cfg.Export.MQTT.Auth.Password = v
	}
	if v := os.Getenv("EQUINOX_INFLUXDB_TOKEN"); v != "" {
		cfg.Export.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Core.Name == "" {
		errs = append(errs, "core.name is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Hotplug.Capacity < 1 {
		errs = append(errs, "hotplug.capacity must be at least 1")
	}
	if c.Hotplug.SettleDelayMs < 0 {
		errs = append(errs, "hotplug.settle_delay_ms must not be negative")
	}

	if c.Simulator.Enabled {
		if c.Simulator.Width < 1 || c.Simulator.Height < 1 {
			errs = append(errs, "simulator.width and simulator.height must be positive")
		}
		if c.Simulator.ExposureUnitMs < 1 {
			errs = append(errs, "simulator.exposure_unit_ms must be at least 1")
		}
	}

	if c.Export.MQTT.Enabled {
		if c.Export.MQTT.QoS < 0 || c.Export.MQTT.QoS > 2 {
			errs = append(errs, "export.mqtt.qos must be 0, 1, or 2")
		}
		if c.Export.MQTT.Broker.Port < 1 || c.Export.MQTT.Broker.Port > 65535 {
			errs = append(errs, "export.mqtt.broker.port must be between 1 and 65535")
		}
	}

	if c.Export.InfluxDB.Enabled {
		if c.Export.InfluxDB.URL == "" {
			errs = append(errs, "export.influxdb.url is required when enabled")
		}
		if c.Export.InfluxDB.Org == "" || c.Export.InfluxDB.Bucket == "" {
			errs = append(errs, "export.influxdb.org and export.influxdb.bucket are required when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetSettleDelay returns the hot-plug settle delay as a Duration.
func (c *Config) GetSettleDelay() time.Duration {
	return time.Duration(c.Hotplug.SettleDelayMs) * time.Millisecond
}

// GetExposureUnit returns the simulator exposure unit as a Duration.
func (c *Config) GetExposureUnit() time.Duration {
	return time.Duration(c.Simulator.ExposureUnitMs) * time.Millisecond
}

// GetTemperatureInterval returns the simulator temperature poll cadence as a Duration.
func (c *Config) GetTemperatureInterval() time.Duration {
	return time.Duration(c.Simulator.TemperaturePollSec) * time.Second
}
