package datalog

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults applied by DefaultConfig and to zero-valued fields in New.
const (
	DefaultFilePath      = "logs/edgetrack.log"
	DefaultMaxFileSizeKB = 1024
	DefaultMaxFiles      = 5
)

// Config controls where and what the data logger writes.
type Config struct {
	FilePath      string `yaml:"file_path"`
	MinLevel      Level  `yaml:"min_level"`
	LogToConsole  bool   `yaml:"log_to_console"`
	LogToFile     bool   `yaml:"log_to_file"`
	LogTimestamp  bool   `yaml:"log_timestamp"`
	LogSensorData bool   `yaml:"log_sensor_data"`
	MaxFileSizeKB int    `yaml:"max_file_size_kb"`
	MaxFiles      int    `yaml:"max_files"`
}

// DefaultConfig returns the stock logger configuration: INFO and above to
// console and logs/edgetrack.log with timestamps and sensor records, rotating
// at 1 MiB and keeping five backups.
func DefaultConfig() Config {
	return Config{
		FilePath:      DefaultFilePath,
		MinLevel:      LevelInfo,
		LogToConsole:  true,
		LogToFile:     true,
		LogTimestamp:  true,
		LogSensorData: true,
		MaxFileSizeKB: DefaultMaxFileSizeKB,
		MaxFiles:      DefaultMaxFiles,
	}
}

// withDefaults fills zero-valued FilePath and MaxFileSizeKB.
func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.FilePath) == "" {
		c.FilePath = DefaultFilePath
	}
	if c.MaxFileSizeKB == 0 {
		c.MaxFileSizeKB = DefaultMaxFileSizeKB
	}
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []string
	if c.MaxFileSizeKB < 0 {
		errs = append(errs, "max_file_size_kb must not be negative")
	}
	if c.MaxFiles < 0 {
		errs = append(errs, "max_files must not be negative")
	}
	if c.MinLevel < LevelDebug || c.MinLevel > LevelCritical {
		errs = append(errs, fmt.Sprintf("min_level %d is not a valid level", c.MinLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// maxBytes is the rotation threshold in bytes.
func (c Config) maxBytes() int64 {
	return int64(c.MaxFileSizeKB) * 1024
}

// Sentinel errors for data logger operations.
var (
	// ErrClosed indicates the logger has been closed.
	ErrClosed = errors.New("datalog: logger closed")

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("datalog: invalid configuration")
)
