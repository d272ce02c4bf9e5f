package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

// WriteFiltered writes a copy of the package to w, omitting every body-level
// table for which keep returns false. All other parts and all non-table
// content are copied unchanged. Returns the number of tables removed.
func (d *Document) WriteFiltered(w io.Writer, keep func(*Table) bool) (int, error) {
	body, removed := d.splice(keep)

	zr, err := zip.NewReader(bytes.NewReader(d.raw), int64(len(d.raw)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	part := findPart(zr, DocumentPart)
	if part == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalid, DocumentPart)
	}

	zw := zip.NewWriter(w)
	for _, f := range zr.File {
		if f == part {
			hdr := &zip.FileHeader{
				Name:     f.Name,
				Method:   f.Method,
				Modified: f.Modified,
			}
			fw, err := zw.CreateHeader(hdr)
			if err != nil {
				return 0, fmt.Errorf("writing %s: %w", f.Name, err)
			}
			if _, err := fw.Write(body); err != nil {
				return 0, fmt.Errorf("writing %s: %w", f.Name, err)
			}
			continue
		}
		if err := zw.Copy(f); err != nil {
			return 0, fmt.Errorf("copying %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finishing package: %w", err)
	}
	return removed, nil
}

// splice returns document.xml with the byte ranges of dropped tables cut out.
func (d *Document) splice(keep func(*Table) bool) ([]byte, int) {
	var out bytes.Buffer
	out.Grow(len(d.body))

	var cursor int64
	removed := 0
	for _, t := range d.Tables() {
		if keep(t) {
			continue
		}
		out.Write(d.body[cursor:t.start])
		cursor = t.end
		removed++
	}
	out.Write(d.body[cursor:])
	return out.Bytes(), removed
}
