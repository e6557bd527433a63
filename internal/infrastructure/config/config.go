package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/edgetrack-core/internal/datalog"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

// minJWTSecretLength matches the HS256 key size.
const minJWTSecretLength = 32

// Sensor sources.
const (
	SourceSimulated = "simulated"
	SourceADS1115   = "ads1115"
)

// Config is the root configuration structure for EdgeTrack Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Sensors  []SensorConfig `yaml:"sensors"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	DataLog  datalog.Config `yaml:"datalog"`
	Database DatabaseConfig `yaml:"database"`
	History  HistoryConfig  `yaml:"history"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// SensorConfig describes one temperature sensor.
type SensorConfig struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Location    string             `yaml:"location"`
	Source      string             `yaml:"source"`
	Seed        uint64             `yaml:"seed"`
	Temperature temperature.Config `yaml:"temperature"`
	ADS1115     ADS1115Config      `yaml:"ads1115"`
}

// ADS1115Config locates an ADS1115 ADC on an I2C bus.
type ADS1115Config struct {
	Bus             string  `yaml:"bus"`
	Address         int     `yaml:"address"`
	Channel         int     `yaml:"channel"`
	HumidityChannel int     `yaml:"humidity_channel"` // -1 disables
	SampleRate      int     `yaml:"sample_rate"`
	SupplyVoltage   float64 `yaml:"supply_voltage"`
}

// DefaultSensorConfig returns the settings applied to every sensor entry
// before its YAML is decoded.
func DefaultSensorConfig() SensorConfig {
	return SensorConfig{
		Name:        temperature.DefaultName,
		Location:    temperature.DefaultLocation,
		Source:      SourceSimulated,
		Temperature: temperature.DefaultConfig(),
		ADS1115: ADS1115Config{
			Address:         0x48,
			Channel:         0,
			HumidityChannel: -1,
			SampleRate:      128,
			SupplyVoltage:   5.0,
		},
	}
}

// UnmarshalYAML decodes a sensor entry over DefaultSensorConfig, so omitted
// keys keep their defaults.
func (s *SensorConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain SensorConfig
	p := plain(DefaultSensorConfig())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = SensorConfig(p)
	return nil
}

// MonitorConfig controls the sampling loop.
type MonitorConfig struct {
	IntervalMS int    `yaml:"interval_ms"`
	StatsEvery int    `yaml:"stats_every"`
	CSVPath    string `yaml:"csv_path"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HistoryConfig controls persistence of readings to SQLite.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RetentionDays int    `yaml:"retention_days"`
	PruneSchedule string `yaml:"prune_schedule"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
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

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// APIConfig contains the sensor REST/WebSocket API settings.
type APIConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Listen    string          `yaml:"listen"`
	Timeouts  APITimeouts     `yaml:"timeouts"`
	CORS      CORSConfig      `yaml:"cors"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	JWT       JWTConfig       `yaml:"jwt"`
}

// APITimeouts contains HTTP server timeouts, in seconds.
type APITimeouts struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists the origins allowed to call the API. Empty allows all.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains live stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"` // bytes
	PingInterval   int `yaml:"ping_interval"`    // seconds
	PongTimeout    int `yaml:"pong_timeout"`     // seconds
}

// JWTConfig holds the token signing secret. An empty secret leaves the API open.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // hours
}

// LoggingConfig contains diagnostic logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: EDGETRACK_SECTION_KEY
// For example: EDGETRACK_DATABASE_PATH, EDGETRACK_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

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

// Default returns a Config with sensible defaults: one simulated sensor,
// data log and history on, network sinks off.
func Default() *Config {
	sensor := DefaultSensorConfig()
	sensor.ID = "TEMP001"

	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "EdgeTrack",
		},
		Sensors: []SensorConfig{sensor},
		Monitor: MonitorConfig{
			IntervalMS: 1000,
			StatsEvery: 100,
		},
		DataLog: datalog.DefaultConfig(),
		Database: DatabaseConfig{
			Path:        "./data/edgetrack.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
			PruneSchedule: "@daily",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "edgetrack-core",
			},
			QoS:         1,
			TopicPrefix: "edgetrack",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "edgetrack",
			Bucket:        "telemetry",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metrics: MetricsConfig{
			Listen: ":9102",
			Path:   "/metrics",
		},
		API: APIConfig{
			Listen: ":8090",
			Timeouts: APITimeouts{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
			JWT: JWTConfig{
				TokenTTL: 24,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: EDGETRACK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("EDGETRACK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Data log
	if v := os.Getenv("EDGETRACK_DATALOG_PATH"); v != "" {
		cfg.DataLog.FilePath = v
	}
	if v := os.Getenv("EDGETRACK_DATALOG_LEVEL"); v != "" {
		cfg.DataLog.MinLevel = datalog.ParseLevel(v)
	}

	// MQTT
	if v := os.Getenv("EDGETRACK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("EDGETRACK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("EDGETRACK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("EDGETRACK_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("EDGETRACK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Metrics
	if v := os.Getenv("EDGETRACK_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}

	// API
	if v := os.Getenv("EDGETRACK_API_LISTEN"); v != "" {
		cfg.API.Listen = v
	}
	if v := os.Getenv("EDGETRACK_API_JWT_SECRET"); v != "" {
		cfg.API.JWT.Secret = v
	}

	// Logging
	if v := os.Getenv("EDGETRACK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if len(c.Sensors) == 0 {
		errs = append(errs, "at least one sensor is required")
	}
	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		errs = append(errs, s.validate(i, seen)...)
	}

	if c.Monitor.IntervalMS <= 0 {
		errs = append(errs, "monitor.interval_ms must be positive")
	}
	if c.Monitor.StatsEvery < 0 {
		errs = append(errs, "monitor.stats_every must not be negative")
	}

	if err := c.DataLog.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.History.Enabled {
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required when history is enabled")
		}
		if c.History.RetentionDays < 0 {
			errs = append(errs, "history.retention_days must not be negative")
		}
		if c.History.PruneSchedule != "" {
			if _, err := cron.ParseStandard(c.History.PruneSchedule); err != nil {
				errs = append(errs, fmt.Sprintf("history.prune_schedule: %v", err))
			}
		}
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.TopicPrefix == "" || strings.ContainsAny(c.MQTT.TopicPrefix, "+#") {
			errs = append(errs, "mqtt.topic_prefix must be non-empty and free of wildcards")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Listen == "" {
			errs = append(errs, "metrics.listen is required when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, "metrics.path must start with /")
		}
	}

	if c.API.Enabled {
		errs = append(errs, c.API.validate()...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s SensorConfig) validate(i int, seen map[string]bool) []string {
	var errs []string
	prefix := fmt.Sprintf("sensors[%d]", i)

	if s.ID == "" {
		errs = append(errs, prefix+".id is required")
	} else if seen[s.ID] {
		errs = append(errs, fmt.Sprintf("%s.id %q is duplicated", prefix, s.ID))
	}
	seen[s.ID] = true

	if err := s.Temperature.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("%s.temperature: %v", prefix, err))
	}

	switch s.Source {
	case SourceSimulated:
	case SourceADS1115:
		a := s.ADS1115
		if a.Address < 0x48 || a.Address > 0x4B {
			errs = append(errs, prefix+".ads1115.address must be 0x48-0x4B")
		}
		if a.Channel < 0 || a.Channel > 3 {
			errs = append(errs, prefix+".ads1115.channel must be 0-3")
		}
		if a.HumidityChannel < -1 || a.HumidityChannel > 3 || a.HumidityChannel == a.Channel {
			errs = append(errs, prefix+".ads1115.humidity_channel must be -1 or a different channel 0-3")
		}
	default:
		errs = append(errs, fmt.Sprintf("%s.source %q must be %q or %q", prefix, s.Source, SourceSimulated, SourceADS1115))
	}
	return errs
}

func (a APIConfig) validate() []string {
	var errs []string
	if a.Listen == "" {
		errs = append(errs, "api.listen is required when the api is enabled")
	}
	if a.Timeouts.Read <= 0 || a.Timeouts.Write <= 0 || a.Timeouts.Idle <= 0 {
		errs = append(errs, "api.timeouts must be positive")
	}
	ws := a.WebSocket
	if ws.MaxMessageSize <= 0 || ws.PingInterval <= 0 || ws.PongTimeout <= 0 {
		errs = append(errs, "api.websocket values must be positive")
	}
	if a.JWT.Secret != "" && len(a.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, fmt.Sprintf("api.jwt.secret must be at least %d characters", minJWTSecretLength))
	}
	if a.JWT.TokenTTL < 0 {
		errs = append(errs, "api.jwt.token_ttl must not be negative")
	}
	return errs
}

// TokenTTL returns the lifetime of issued API tokens.
func (a APIConfig) TokenTTL() time.Duration {
	return time.Duration(a.JWT.TokenTTL) * time.Hour
}

// Interval returns the monitor sampling interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Monitor.IntervalMS) * time.Millisecond
}

// RetentionPeriod returns how long stored readings are kept. Zero keeps them forever.
func (c *Config) RetentionPeriod() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}
