// Package export writes filtered documents and check reports.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/matsen/examdup/internal/docx"
	"github.com/matsen/examdup/internal/question"
)

// ErrOutputWrite is returned when an output file cannot be written.
var ErrOutputWrite = errors.New("cannot write output")

// Mode selects which question tables a filter retains.
type Mode int

const (
	// ModeKeep retains only the listed questions.
	ModeKeep Mode = iota
	// ModeDrop removes the listed questions.
	ModeDrop
)

func (m Mode) String() string {
	if m == ModeDrop {
		return "drop"
	}
	return "keep"
}

// FilterStats summarizes a filter run.
type FilterStats struct {
	Output   string   `json:"output"`
	Mode     string   `json:"mode"`
	Kept     int      `json:"tables_kept"`
	Removed  int      `json:"tables_removed"`
	NotFound []string `json:"ids_not_found,omitempty"`
}

// FilterDocument writes a copy of src to dst containing only the question
// tables selected by ids and mode. Tables without a QN= id and all
// non-table content are always retained. src is never modified.
func FilterDocument(fsys afero.Fs, src, dst string, ids []string, mode Mode) (*FilterStats, error) {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil, fmt.Errorf("%w: output %s is the source document", ErrOutputWrite, dst)
	}

	doc, err := docx.Open(fsys, src)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	found := make(map[string]bool, len(ids))

	stats := &FilterStats{Output: dst, Mode: mode.String()}
	keep := func(t *docx.Table) bool {
		id, ok := question.ParseID(t.CellText(0, 0))
		if !ok || id == "" {
			slog.Warn("keeping table without a question id", "first_cell", t.CellText(0, 0))
			stats.Kept++
			return true
		}
		listed := want[id]
		if listed {
			found[id] = true
		}
		retain := listed == (mode == ModeKeep)
		if retain {
			stats.Kept++
		}
		return retain
	}

	if err := writeAtomic(fsys, dst, func(f afero.File) error {
		n, err := doc.WriteFiltered(f, keep)
		stats.Removed = n
		return err
	}); err != nil {
		return nil, err
	}

	for id := range want {
		if !found[id] {
			stats.NotFound = append(stats.NotFound, id)
		}
	}
	sort.Strings(stats.NotFound)

	slog.Debug("filtered document", "source", src, "output", dst, "mode", mode.String(),
		"kept", stats.Kept, "removed", stats.Removed)
	return stats, nil
}

// OutputMode is the permission of written documents and reports.
const OutputMode = 0o644

// writeAtomic writes dst through a temporary file in the same directory.
func writeAtomic(fsys afero.Fs, dst string, write func(afero.File) error) error {
	dir := filepath.Dir(dst)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}

	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		if errors.Is(err, docx.ErrInvalid) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	// TempFile creates 0600 files.
	if err := fsys.Chmod(tmpName, OutputMode); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	if err := fsys.Rename(tmpName, dst); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	return nil
}
