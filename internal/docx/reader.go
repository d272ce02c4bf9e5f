package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
)

// Open reads and parses the docx package at path.
// Returns an error wrapping ErrNotFound if the file does not exist,
// or ErrInvalid if it is not a readable docx package.
func Open(fsys afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse parses a docx package held in memory.
func Parse(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	part := findPart(zr, DocumentPart)
	if part == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalid, DocumentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrInvalid, DocumentPart, err)
	}
	body, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalid, DocumentPart, err)
	}

	blocks, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	slog.Debug("parsed docx", "blocks", len(blocks), "bytes", len(data))
	return &Document{Blocks: blocks, raw: data, body: body}, nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// parseDocumentXML walks to <w:body> and parses its children.
func parseDocumentXML(data []byte) ([]Block, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("no document body")
			}
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "body" {
			return parseBody(dec)
		}
	}
}

func parseBody(dec *xml.Decoder) ([]Block, error) {
	var blocks []Block
	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				p, err := parseParagraph(dec)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, p)
			case "tbl":
				tbl, err := parseTable(dec)
				if err != nil {
					return nil, err
				}
				tbl.start = offset
				tbl.end = dec.InputOffset()
				blocks = append(blocks, tbl)
			default:
				// sectPr, bookmarks, content controls
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return blocks, nil
		}
	}
}

func parseTable(dec *xml.Decoder) (*Table, error) {
	tbl := &Table{}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading table: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tr":
				row, err := parseRow(dec)
				if err != nil {
					return nil, err
				}
				tbl.Rows = append(tbl.Rows, row)
			case "tblPr", "tblGrid":
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return tbl, nil
}

func parseRow(dec *xml.Decoder) (Row, error) {
	var row Row
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return Row{}, fmt.Errorf("reading table row: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tc":
				cell, err := parseCell(dec)
				if err != nil {
					return Row{}, err
				}
				row.Cells = append(row.Cells, cell)
			case "trPr", "tblPrEx":
				if err := dec.Skip(); err != nil {
					return Row{}, err
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return row, nil
}

func parseCell(dec *xml.Decoder) (Cell, error) {
	var cell Cell
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return Cell{}, fmt.Errorf("reading table cell: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				p, err := parseParagraph(dec)
				if err != nil {
					return Cell{}, err
				}
				cell.Paragraphs = append(cell.Paragraphs, *p)
			case "tbl", "tcPr":
				// Nested tables do not contribute to the cell's text.
				if err := dec.Skip(); err != nil {
					return Cell{}, err
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return cell, nil
}

func parseParagraph(dec *xml.Decoder) (*Paragraph, error) {
	p := &Paragraph{}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading paragraph: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				p.Runs = append(p.Runs, Run{})
				depth++
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, err
				}
				p.appendText(text)
			case "tab":
				p.appendText("\t")
				depth++
			case "br", "cr":
				p.appendText("\n")
				depth++
			case "pPr", "rPr":
				// Properties carry tab stops (<w:tabs><w:tab/>) that are not text.
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return p, nil
}

func (p *Paragraph) appendText(s string) {
	if len(p.Runs) == 0 {
		p.Runs = append(p.Runs, Run{})
	}
	p.Runs[len(p.Runs)-1].Text += s
}
