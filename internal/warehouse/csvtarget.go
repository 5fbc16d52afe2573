package warehouse

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// CSVTarget materializes model output as CSV files, one per table. Tables are
// written into a hidden build directory and moved into the output directory
// only on Publish, so a failed run never leaves partial output visible.
type CSVTarget struct {
	OutDir string

	mu       sync.Mutex
	buildDir string
	staged   []string
}

// NewCSVTarget creates a CSV target rooted at dir
func NewCSVTarget(dir string) *CSVTarget {
	return &CSVTarget{OutDir: dir}
}

func (t *CSVTarget) Prepare(ctx context.Context) error {
	if err := os.MkdirAll(t.OutDir, 0750); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create output directory").
			WithContext("dir", t.OutDir)
	}
	buildDir, err := os.MkdirTemp(t.OutDir, ".build-")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create build directory")
	}

	t.mu.Lock()
	t.buildDir = buildDir
	t.staged = nil
	t.mu.Unlock()
	return nil
}

func (t *CSVTarget) WriteTable(ctx context.Context, table *models.Table) error {
	name := fmt.Sprintf("%s.%s.csv", table.Schema, table.Name)

	t.mu.Lock()
	path := filepath.Join(t.buildDir, name)
	t.mu.Unlock()

	f, err := os.Create(path) // #nosec G304 - path is derived from the build dir
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to create %s", name))
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to write %s", name))
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to write %s", name))
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to write %s", name))
	}

	t.mu.Lock()
	t.staged = append(t.staged, name)
	t.mu.Unlock()
	return nil
}

// Publish moves the staged files into the output directory, replacing the
// previous generation file by file
func (t *CSVTarget) Publish(ctx context.Context) error {
	t.mu.Lock()
	buildDir := t.buildDir
	staged := t.staged
	t.buildDir = ""
	t.staged = nil
	t.mu.Unlock()

	for _, name := range staged {
		from := filepath.Join(buildDir, name)
		to := filepath.Join(t.OutDir, name)
		if err := os.Rename(from, to); err != nil {
			return errors.Wrap(err, errors.ErrCodeSwapFailed, fmt.Sprintf("Failed to publish %s", name))
		}
	}
	return os.RemoveAll(buildDir)
}

// Abort discards the build directory and everything staged in it
func (t *CSVTarget) Abort(ctx context.Context) error {
	t.mu.Lock()
	buildDir := t.buildDir
	t.buildDir = ""
	t.staged = nil
	t.mu.Unlock()

	if buildDir == "" {
		return nil
	}
	return os.RemoveAll(buildDir)
}

func formatCell(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprint(c)
	}
}
