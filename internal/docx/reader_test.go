package docx

import (
	"errors"
	"testing"

	"github.com/matsen/examdup/internal/docx/docxtest"
	"github.com/spf13/afero"
)

func TestParse_BlocksInOrder(t *testing.T) {
	data := docxtest.Package(
		docxtest.Paragraph("Exam bank"),
		docxtest.Table([]string{"QN=1", "What is 2+2?"}, []string{"a.", "4"}),
		docxtest.Paragraph("between"),
		docxtest.Table([]string{"QN=2", "Capital of France?"}),
	)

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(doc.Blocks) != 4 {
		t.Fatalf("len(Blocks) = %d, want 4", len(doc.Blocks))
	}
	if p, ok := doc.Blocks[0].(*Paragraph); !ok || p.Text() != "Exam bank" {
		t.Errorf("Blocks[0] = %#v, want paragraph %q", doc.Blocks[0], "Exam bank")
	}
	if _, ok := doc.Blocks[1].(*Table); !ok {
		t.Errorf("Blocks[1] = %T, want *Table", doc.Blocks[1])
	}

	tables := doc.Tables()
	if len(tables) != 2 {
		t.Fatalf("len(Tables()) = %d, want 2", len(tables))
	}
	if got := tables[0].CellText(0, 0); got != "QN=1" {
		t.Errorf("CellText(0,0) = %q, want QN=1", got)
	}
	if got := tables[0].CellText(1, 1); got != "4" {
		t.Errorf("CellText(1,1) = %q, want 4", got)
	}
	if got := tables[1].CellText(0, 1); got != "Capital of France?" {
		t.Errorf("CellText(0,1) = %q", got)
	}
}

func TestCellText_OutOfRange(t *testing.T) {
	tbl := &Table{Rows: []Row{{Cells: []Cell{{Paragraphs: []Paragraph{{Runs: []Run{{Text: "x"}}}}}}}}}

	tests := []struct {
		row, col int
		want     string
	}{
		{0, 0, "x"},
		{0, 1, ""},
		{1, 0, ""},
		{-1, 0, ""},
		{0, -1, ""},
	}
	for _, tt := range tests {
		if got := tbl.CellText(tt.row, tt.col); got != tt.want {
			t.Errorf("CellText(%d, %d) = %q, want %q", tt.row, tt.col, got, tt.want)
		}
	}
}

func TestParse_RunsAndSpecialElements(t *testing.T) {
	// Split runs, a hyperlink-wrapped run, a tab, a break, and tab stops in pPr
	// that must not show up as text.
	cell := `<w:tc><w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>QN=</w:t></w:r><w:r><w:t>12</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:hyperlink><w:r><w:t>Linked</w:t></w:r></w:hyperlink>` +
		`<w:r><w:tab/><w:t>text</w:t><w:br/><w:t>next</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>second paragraph</w:t></w:r></w:p></w:tc>`
	body := `<w:tbl><w:tr>` + cell + `</w:tr></w:tbl>`

	doc, err := Parse(docxtest.Package(body))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tbl := doc.Tables()[0]

	if got := tbl.CellText(0, 0); got != "QN=12" {
		t.Errorf("CellText(0,0) = %q, want %q", got, "QN=12")
	}
	want := "Linked\ttext\nnext\nsecond paragraph"
	if got := tbl.CellText(0, 1); got != want {
		t.Errorf("CellText(0,1) = %q, want %q", got, want)
	}
}

func TestParse_NestedTableIgnored(t *testing.T) {
	nested := docxtest.Table([]string{"inner"})
	body := `<w:tbl><w:tr><w:tc>` + docxtest.Paragraph("outer") + nested + `</w:tc></w:tr></w:tbl>`

	doc, err := Parse(docxtest.Package(body))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Tables()) != 1 {
		t.Fatalf("len(Tables()) = %d, want 1", len(doc.Tables()))
	}
	if got := doc.Tables()[0].CellText(0, 0); got != "outer" {
		t.Errorf("CellText(0,0) = %q, want %q", got, "outer")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("plain text")},
		{"broken xml", docxtest.PackageXML(`<w:document xmlns:w="x"><w:body><w:p>`)},
		{"no body", docxtest.PackageXML(`<w:document xmlns:w="x"></w:document>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestOpen_NotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Open(fs, "/missing.docx")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() error = %v, want ErrNotFound", err)
	}
}

func TestOpen_ReadsFromFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/bank.docx", docxtest.Package(docxtest.Table([]string{"QN=7", "x"})), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Open(fs, "/bank.docx")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := doc.Tables()[0].CellText(0, 0); got != "QN=7" {
		t.Errorf("CellText(0,0) = %q, want QN=7", got)
	}
}
