package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500

	// timestampLayout is fixed-width so created_at sorts lexicographically.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// SQLiteRepository implements Repository on the sensor_readings and
// sensor_stats_snapshots tables.
type SQLiteRepository struct {
	db    *sql.DB
	runID string
	now   func() time.Time
}

// NewSQLiteRepository creates a repository whose rows carry a fresh run id.
//
// Parameters:
//   - db: Open SQLite connection with migrations applied
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:    db,
		runID: uuid.NewString(),
		now:   time.Now,
	}
}

// RunID identifies the process that wrote rows through this repository.
func (r *SQLiteRepository) RunID() string {
	return r.runID
}

// Record inserts a reading. The reading's own timestamp is stored; a zero
// timestamp is replaced with the current time.
func (r *SQLiteRepository) Record(ctx context.Context, sensorID string, d sensor.Data) error {
	if sensorID == "" {
		return ErrSensorIDRequired
	}
	ts := d.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor_readings
		 (run_id, sensor_id, sensor_type, value, unit, is_valid, error_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID,
		sensorID,
		int(d.Type),
		d.Value,
		d.Unit,
		boolToInt(d.IsValid),
		int(d.Error),
		formatTimestamp(ts),
	)
	if err != nil {
		return fmt.Errorf("inserting sensor reading: %w", err)
	}
	return nil
}

// RecordStats inserts a statistics snapshot. Extrema are stored as NULL
// until the first sample.
func (r *SQLiteRepository) RecordStats(ctx context.Context, sensorID string, st temperature.Stats) error {
	if sensorID == "" {
		return ErrSensorIDRequired
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor_stats_snapshots
		 (run_id, sensor_id, min_value, max_value, avg_value, std_deviation,
		  sample_count, alert_count, critical_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID,
		sensorID,
		finiteOrNull(st.MinValue),
		finiteOrNull(st.MaxValue),
		st.AvgValue,
		st.StdDeviation,
		int64(st.SampleCount),
		int64(st.AlertCount),
		int64(st.CriticalCount),
		formatTimestamp(r.now()),
	)
	if err != nil {
		return fmt.Errorf("inserting stats snapshot: %w", err)
	}
	return nil
}

// Recent returns recent readings for a sensor, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - sensorID: Sensor identifier
//   - limit: Maximum entries to return (default 50, max 500)
//
// Returns:
//   - []Entry: Readings ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteRepository) Recent(ctx context.Context, sensorID string, limit int) ([]Entry, error) {
	if sensorID == "" {
		return nil, ErrSensorIDRequired
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, sensor_id, sensor_type, value, unit, is_valid, error_code, created_at
		 FROM sensor_readings
		 WHERE sensor_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		sensorID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sensor readings: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e         Entry
			typ       int
			valid     int
			code      int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.SensorID, &typ, &e.Value, &e.Unit, &valid, &code, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning sensor reading: %w", err)
		}
		e.Type = sensor.Type(typ)
		e.IsValid = valid != 0
		e.Error = sensor.ErrorCode(code)

		if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor readings: %w", err)
	}
	return entries, nil
}

// Prune deletes readings and stats snapshots older than olderThan.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}
	cutoff := formatTimestamp(r.now().Add(-olderThan))

	result, err := r.db.ExecContext(ctx, "DELETE FROM sensor_readings WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting sensor readings: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM sensor_stats_snapshots WHERE created_at < ?", cutoff); err != nil {
		return deleted, fmt.Errorf("deleting stats snapshots: %w", err)
	}
	return deleted, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp parses a stored created_at, accepting plain RFC3339 too.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	ts, err := time.Parse(timestampLayout, value)
	if err == nil {
		return ts, nil
	}
	if fallback, fallbackErr := time.Parse(time.RFC3339, value); fallbackErr == nil {
		return fallback, nil
	}
	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func finiteOrNull(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
