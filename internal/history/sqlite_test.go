package history

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
)

// setupTestDB creates an in-memory SQLite database with the history tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE sensor_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			sensor_id TEXT NOT NULL,
			sensor_type INTEGER NOT NULL,
			value REAL NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			is_valid INTEGER NOT NULL DEFAULT 0,
			error_code INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		) STRICT;
		CREATE TABLE sensor_stats_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			sensor_id TEXT NOT NULL,
			min_value REAL,
			max_value REAL,
			avg_value REAL NOT NULL,
			std_deviation REAL NOT NULL,
			sample_count INTEGER NOT NULL,
			alert_count INTEGER NOT NULL,
			critical_count INTEGER NOT NULL,
			created_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func reading(value float64, ts time.Time) sensor.Data {
	return sensor.Data{
		Type:      sensor.TypeTemperature,
		Value:     value,
		Timestamp: ts,
		IsValid:   true,
		Unit:      "°C",
	}
}

func TestRecordAndRecent(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		if err := repo.Record(ctx, "TEMP001", reading(20+float64(i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	alert := reading(61, base.Add(10*time.Second))
	alert.IsValid = false
	alert.Error = sensor.ErrorOutOfRange
	if err := repo.Record(ctx, "TEMP001", alert); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, "TEMP002", reading(5, base)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.Recent(ctx, "TEMP001", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4", len(entries))
	}

	newest := entries[0]
	if newest.Value != 61 || newest.IsValid || newest.Error != sensor.ErrorOutOfRange {
		t.Errorf("newest = %+v, want invalid out-of-range 61", newest)
	}
	if !newest.CreatedAt.Equal(base.Add(10 * time.Second)) {
		t.Errorf("CreatedAt = %v, want %v", newest.CreatedAt, base.Add(10*time.Second))
	}
	if newest.RunID != repo.RunID() || newest.RunID == "" {
		t.Errorf("RunID = %q, want %q", newest.RunID, repo.RunID())
	}
	if newest.Unit != "°C" || newest.Type != sensor.TypeTemperature {
		t.Errorf("unit/type = %q/%v", newest.Unit, newest.Type)
	}
	if entries[3].Value != 20 {
		t.Errorf("oldest Value = %v, want 20", entries[3].Value)
	}
}

func TestRecent_LimitClamp(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 60 {
		if err := repo.Record(ctx, "TEMP001", reading(20, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := repo.Recent(ctx, "TEMP001", 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != defaultRecentLimit {
		t.Errorf("len(entries) = %d, want default %d", len(entries), defaultRecentLimit)
	}
}

func TestRecord_RequiresSensorID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	if err := repo.Record(context.Background(), "", sensor.Data{}); !errors.Is(err, ErrSensorIDRequired) {
		t.Errorf("Record() error = %v, want ErrSensorIDRequired", err)
	}
	if _, err := repo.Recent(context.Background(), "", 5); !errors.Is(err, ErrSensorIDRequired) {
		t.Errorf("Recent() error = %v, want ErrSensorIDRequired", err)
	}
}

func TestRecordStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	empty := temperature.Stats{MinValue: math.Inf(1), MaxValue: math.Inf(-1)}
	if err := repo.RecordStats(ctx, "TEMP001", empty); err != nil {
		t.Fatalf("RecordStats(empty) error = %v", err)
	}
	full := temperature.Stats{MinValue: 20, MaxValue: 24, AvgValue: 22, SampleCount: 3, AlertCount: 1}
	if err := repo.RecordStats(ctx, "TEMP001", full); err != nil {
		t.Fatalf("RecordStats() error = %v", err)
	}

	var nullMins, samples int
	if err := db.QueryRow("SELECT COUNT(*) FROM sensor_stats_snapshots WHERE min_value IS NULL").Scan(&nullMins); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("SELECT SUM(sample_count) FROM sensor_stats_snapshots").Scan(&samples); err != nil {
		t.Fatal(err)
	}
	if nullMins != 1 || samples != 3 {
		t.Errorf("null mins/samples = %d/%d, want 1/3", nullMins, samples)
	}
}

func TestPrune(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	_ = repo.Record(ctx, "TEMP001", reading(20, now.Add(-72*time.Hour)))
	_ = repo.Record(ctx, "TEMP001", reading(21, now.Add(-48*time.Hour)))
	_ = repo.Record(ctx, "TEMP001", reading(22, now.Add(-time.Hour)))

	deleted, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	entries, _ := repo.Recent(ctx, "TEMP001", 10)
	if len(entries) != 1 || entries[0].Value != 22 {
		t.Errorf("remaining = %+v, want only the recent reading", entries)
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) expected error")
	}
}

func TestPruner(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now()
	_ = repo.Record(ctx, "TEMP001", reading(20, now.Add(-48*time.Hour)))

	p, err := NewPruner(repo, 24*time.Hour, "@hourly")
	if err != nil {
		t.Fatalf("NewPruner() error = %v", err)
	}
	p.Start()
	defer p.Stop(ctx)

	deleted, err := p.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestNewPruner_Invalid(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	if _, err := NewPruner(repo, 0, "@daily"); err == nil {
		t.Error("NewPruner() expected error for zero retention")
	}
	if _, err := NewPruner(repo, time.Hour, "not a schedule"); err == nil {
		t.Error("NewPruner() expected error for bad schedule")
	}
}
