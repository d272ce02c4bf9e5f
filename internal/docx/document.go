// Package docx reads the body of a WordprocessingML (.docx) package into a
// small block tree and rewrites packages with selected tables removed.
package docx

import (
	"errors"
	"strings"
)

// Errors returned when opening a document.
var (
	ErrNotFound = errors.New("document not found")
	ErrInvalid  = errors.New("invalid docx document")
)

// DocumentPart is the zip entry holding the main document body.
const DocumentPart = "word/document.xml"

// Block is a body-level element: *Paragraph or *Table.
type Block interface {
	block()
}

// Run is a span of text with uniform formatting.
type Run struct {
	Text string
}

// Paragraph is an ordered list of runs.
type Paragraph struct {
	Runs []Run
}

func (*Paragraph) block() {}

// Text returns the concatenated text of the paragraph's runs.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Cell is a table cell holding paragraphs.
type Cell struct {
	Paragraphs []Paragraph
}

// Text returns the cell's paragraphs joined by newlines.
func (c Cell) Text() string {
	parts := make([]string, len(c.Paragraphs))
	for i := range c.Paragraphs {
		parts[i] = c.Paragraphs[i].Text()
	}
	return strings.Join(parts, "\n")
}

// Row is an ordered list of cells.
type Row struct {
	Cells []Cell
}

// Table is a body-level table.
type Table struct {
	Rows []Row

	// start and end are the byte offsets of the <w:tbl> element in document.xml.
	start, end int64
}

func (*Table) block() {}

// CellText returns the text of the cell at (row, col), or "" when out of range.
func (t *Table) CellText(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	cells := t.Rows[row].Cells
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col].Text()
}

// Document is a parsed docx package.
type Document struct {
	Blocks []Block

	raw  []byte // the whole zip package
	body []byte // word/document.xml
}

// Tables returns the body-level tables in document order.
func (d *Document) Tables() []*Table {
	var tables []*Table
	for _, b := range d.Blocks {
		if t, ok := b.(*Table); ok {
			tables = append(tables, t)
		}
	}
	return tables
}
