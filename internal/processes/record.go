package processes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/mkwak13/winter-sports/internal/util"
)

const (
	defaultFilePerm = 0o600

	// RecordFileName is the file name of the last launch record inside the
	// data directory.
	RecordFileName = "last-launch.json"
)

// Record describes the most recent launch of the embedded application. It is
// diagnostic only; nothing in the embedding lifecycle reads it back.
type Record struct {
	ID          string    `json:"id" yaml:"id"`
	PID         int       `json:"pid" yaml:"pid"`
	Mode        string    `json:"mode,omitempty" yaml:"mode,omitempty"`
	WindowTitle string    `json:"window_title,omitempty" yaml:"window_title,omitempty"`
	Executable  string    `json:"executable" yaml:"executable"`
	WorkingDir  string    `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	Args        []string  `json:"args,omitempty" yaml:"args,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// WriteRecord persists a launch record atomically at path.
func WriteRecord(path string, record Record) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("launch record path is required")
	}
	if record.PID <= 0 {
		return fmt.Errorf("process PID must be greater than zero")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	record.Mode = strings.TrimSpace(record.Mode)
	record.Executable = strings.TrimSpace(record.Executable)

	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal launch record: %w", err)
	}

	return util.WriteFileAtomic(path, raw, defaultFilePerm)
}

// LoadRecord reads the launch record at path. A missing file returns
// fs.ErrNotExist.
func LoadRecord(path string) (Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("decode launch record %s: %w", path, err)
	}
	if record.PID <= 0 {
		return Record{}, fmt.Errorf("invalid launch record PID")
	}

	return record, nil
}

// RemoveRecord deletes the launch record at path, ignoring a missing file.
func RemoveRecord(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
