package datalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/nerrad567/edgetrack-core/internal/sensor"
)

// csvHeader is written once to a new or empty export file.
var csvHeader = []string{"Timestamp", "Sensor ID", "Sensor Type", "Value", "Unit", "Valid", "Error"}

// CSVWriter appends sensor readings to a CSV export file:
//
//	Timestamp,Sensor ID,Sensor Type,Value,Unit,Valid,Error
//	2026-03-01 12:00:00,TEMP001,Temperature,24.87,°C,Valid,No Error
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewCSVWriter opens path for appending, creating parent directories, and
// writes the header when the file is empty.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, size, err := openAppend(path)
	if err != nil {
		return nil, err
	}

	c := &CSVWriter{file: f, w: csv.NewWriter(f)}
	if size == 0 {
		if err := c.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing csv header: %w", err)
		}
		c.w.Flush()
	}
	return c, nil
}

// Write appends one reading and flushes it to disk.
func (c *CSVWriter) Write(sensorID string, d sensor.Data) error {
	valid := "Invalid"
	if d.IsValid {
		valid = "Valid"
	}
	errText := "No Error"
	if d.Error != sensor.ErrorNone {
		errText = d.Error.String()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return ErrClosed
	}

	record := []string{
		d.Timestamp.Format(timestampLayout),
		sensorID,
		d.Type.String(),
		strconv.FormatFloat(d.Value, 'f', 2, 64),
		d.Unit,
		valid,
		errText,
	}
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("writing csv record: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the file. Later calls are no-ops.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	c.w.Flush()
	err := c.file.Close()
	c.file = nil
	return err
}
