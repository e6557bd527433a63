package datalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Diagnostics receives problems the data logger absorbs, such as failed
// writes or rotations. *logging.Logger satisfies it.
type Diagnostics interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopDiagnostics struct{}

func (noopDiagnostics) Warn(string, ...any)  {}
func (noopDiagnostics) Error(string, ...any) {}

// Identified is anything with a sensor identifier, such as *sensor.Sensor.
type Identified interface {
	ID() string
}

// Logger is the data logger. Create one with New; the zero value is not usable.
type Logger struct {
	mu      sync.Mutex
	cfg     Config
	file    *os.File
	size    int64
	closed  bool
	console io.Writer
	diag    Diagnostics
	now     func() time.Time
}

// New opens the data logger.
//
// Zero-valued FilePath and MaxFileSizeKB take their defaults. When file
// logging is enabled the parent directory is created and the file is opened
// for appending; its existing size counts toward rotation.
//
// Parameters:
//   - cfg: Logger configuration
//
// Returns:
//   - *Logger: Open logger, which has already logged "Logger initialized"
//   - error: If the configuration is invalid or the file cannot be opened
func New(cfg Config) (*Logger, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Logger{
		cfg:     cfg,
		console: os.Stdout,
		diag:    noopDiagnostics{},
		now:     time.Now,
	}

	if cfg.LogToFile {
		f, size, err := openAppend(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		l.file = f
		l.size = size
	}

	l.Log(LevelInfo, "Logger initialized")
	return l, nil
}

// SetConsole redirects console output. A nil writer discards it.
func (l *Logger) SetConsole(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.mu.Lock()
	l.console = w
	l.mu.Unlock()
}

// SetLogger sets where absorbed write and rotation failures are reported.
func (l *Logger) SetLogger(d Diagnostics) {
	if d == nil {
		d = noopDiagnostics{}
	}
	l.mu.Lock()
	l.diag = d
	l.mu.Unlock()
}

// SetClock overrides the time source used for entry timestamps.
func (l *Logger) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Log writes message at level to the enabled sinks.
//
// Returns false when the logger is closed, the message is empty, the level
// is below MinLevel, or the file write failed. Rotation happens after the
// line that reaches the size limit has been written.
func (l *Logger) Log(level Level, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logLocked(level, message, true)
}

// Logf formats according to a format specifier and logs the result.
func (l *Logger) Logf(level Level, format string, args ...any) bool {
	return l.Log(level, fmt.Sprintf(format, args...))
}

// LogSensorData writes a sensor record for d at level. Nothing is written
// when sensor records are disabled or s is nil.
func (l *Logger) LogSensorData(s Identified, d sensor.Data, level Level) bool {
	if s == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.cfg.LogSensorData {
		return false
	}
	return l.logLocked(level, FormatSensorRecord(s.ID(), d), true)
}

func (l *Logger) logLocked(level Level, message string, mayRotate bool) bool {
	if l.closed || message == "" || level < l.cfg.MinLevel {
		return false
	}

	line := Entry{Timestamp: l.now(), Level: level, Message: message}.Format(l.cfg.LogTimestamp)

	if l.cfg.LogToConsole {
		fmt.Fprintln(l.console, line)
	}

	if !l.cfg.LogToFile {
		return true
	}
	if err := l.ensureFileLocked(); err != nil {
		l.diag.Error("data log unavailable", "path", l.cfg.FilePath, "error", err)
		return false
	}

	n, err := l.file.WriteString(line + "\n")
	if err != nil {
		l.diag.Error("data log write failed", "path", l.cfg.FilePath, "error", err)
		return false
	}
	l.size += int64(n)

	if mayRotate && l.size >= l.cfg.maxBytes() {
		if err := l.rotateLocked(); err != nil {
			l.diag.Error("data log rotation failed", "path", l.cfg.FilePath, "error", err)
		}
	}
	return true
}

// Rotate rotates the log file immediately. It is a no-op when file logging
// is disabled.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if !l.cfg.LogToFile {
		return nil
	}
	if err := l.ensureFileLocked(); err != nil {
		return err
	}
	return l.rotateLocked()
}

// ensureFileLocked reopens the base file after a rotation that failed
// partway left no handle.
func (l *Logger) ensureFileLocked() error {
	if l.file != nil {
		return nil
	}
	f, size, err := openAppend(l.cfg.FilePath)
	if err != nil {
		return err
	}
	l.file = f
	l.size = size
	return nil
}

func (l *Logger) rotateLocked() error {
	path := l.cfg.FilePath

	if err := l.file.Close(); err != nil {
		l.diag.Warn("closing data log before rotation", "path", path, "error", err)
	}
	l.file = nil

	if n := l.cfg.MaxFiles; n > 0 {
		if err := os.Remove(backupName(path, n)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing oldest backup: %w", err)
		}
		for i := n - 1; i >= 1; i-- {
			if err := os.Rename(backupName(path, i), backupName(path, i+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("shifting backup %d: %w", i, err)
			}
		}
		if err := os.Rename(path, backupName(path, 1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("moving current log: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("reopening data log: %w", err)
	}
	l.file = f
	l.size = 0

	l.logLocked(LevelInfo, "Log file rotated", false)
	return nil
}

// Config returns a copy of the current configuration.
func (l *Logger) Config() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// SetConfig replaces the configuration. When the file path or file logging
// toggle changes, the new file is opened before the old one is closed; on
// failure the previous configuration stays in effect.
func (l *Logger) SetConfig(cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	reopen := cfg.LogToFile != l.cfg.LogToFile || (cfg.LogToFile && cfg.FilePath != l.cfg.FilePath)
	if !reopen {
		l.cfg = cfg
		return nil
	}

	var (
		next *os.File
		size int64
	)
	if cfg.LogToFile {
		var err error
		if next, size, err = openAppend(cfg.FilePath); err != nil {
			return err
		}
	}
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			l.diag.Warn("closing previous data log", "path", l.cfg.FilePath, "error", err)
		}
	}
	l.file = next
	l.size = size
	l.cfg = cfg
	return nil
}

// Close logs "Logger shutting down" and closes the file. Later calls are no-ops.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}

	var err error
	if l.file != nil {
		l.logLocked(LevelInfo, "Logger shutting down", false)
		err = l.file.Close()
		l.file = nil
	}
	l.closed = true
	if err != nil {
		return fmt.Errorf("closing data log: %w", err)
	}
	return nil
}

// openAppend creates the parent directory and opens path for appending.
func openAppend(path string) (*os.File, int64, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, 0, fmt.Errorf("creating log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return nil, 0, fmt.Errorf("opening data log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat data log: %w", err)
	}
	return f, info.Size(), nil
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}
