package datalog

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is the severity of a log entry.
type Level int

// Log levels, in increasing severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

var levelNames = [...]string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// String returns the upper-case level name, or "UNKNOWN" outside the enumeration.
func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a level name to a Level, ignoring case.
// Unrecognised names map to LevelInfo.
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i)
		}
	}
	return LevelInfo
}

// UnmarshalYAML accepts level names in configuration files.
func (l *Level) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*l = ParseLevel(s)
	return nil
}

// MarshalYAML writes the level as its name.
func (l Level) MarshalYAML() (any, error) {
	return l.String(), nil
}
