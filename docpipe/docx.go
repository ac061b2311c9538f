package docpipe

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const docxMainPart = "word/document.xml"

// DOCXDocument is a parsed word/document.xml plus its relationships. The
// archive stays open until Close so images are read lazily.
type DOCXDocument struct {
	path       string
	pkg        *ooxmlPackage
	paragraphs []docxParagraph
	grids      [][][]string
	rels       []relationship
}

type docxRun struct {
	text   string
	bold   bool
	italic bool

	// raw is the run's serialized markup.
	raw string
}

type docxParagraph struct {
	runs []docxRun
}

func (p docxParagraph) text() string {
	var sb strings.Builder
	for _, r := range p.runs {
		sb.WriteString(r.text)
	}
	return sb.String()
}

func (p docxParagraph) styles() FontStyles {
	var fs FontStyles
	for _, r := range p.runs {
		if r.bold {
			fs.Bold++
		}
		if r.italic {
			fs.Italic++
		}
	}
	return fs
}

// OpenDOCX opens the archive at path and parses its main document part.
func OpenDOCX(path string) (*DOCXDocument, error) {
	pkg, err := openPackage(path)
	if err != nil {
		return nil, err
	}
	data, err := pkg.read(docxMainPart)
	if err != nil {
		pkg.Close()
		return nil, err
	}
	d := &DOCXDocument{path: path, pkg: pkg}
	if err := d.parse(data); err != nil {
		pkg.Close()
		return nil, fmt.Errorf("parse %s: %w", docxMainPart, err)
	}
	if d.rels, err = pkg.rels(docxMainPart); err != nil {
		pkg.Close()
		return nil, err
	}
	return d, nil
}

func (d *DOCXDocument) Kind() Kind   { return KindDOCX }
func (d *DOCXDocument) Path() string { return d.path }
func (d *DOCXDocument) Close() error { return d.pkg.Close() }

// parse walks the body. Paragraphs directly in the body become text units;
// paragraphs inside top-level table cells become cell text, and nested
// tables fold into the enclosing cell. Paragraphs nested inside runs (text
// boxes) are skipped.
func (d *DOCXDocument) parse(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		depth      depthGuard
		para       *docxParagraph
		run        *docxRun
		runStart   int64
		nested     int
		inText     bool
		inRunProps bool

		tblDepth int
		table    [][]string
		row      []string
		cell     []string
	)

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := depth.track(tok); err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					table = nil
				}
			case "tr":
				if tblDepth == 1 {
					row = nil
				}
			case "tc":
				if tblDepth == 1 {
					cell = nil
				}
			case "p":
				if para != nil {
					nested++
					continue
				}
				para = &docxParagraph{}
			case "r":
				if para != nil && nested == 0 && run == nil {
					run = &docxRun{}
					runStart = offset
				}
			case "rPr":
				if run != nil && nested == 0 {
					inRunProps = true
				}
			case "b":
				if inRunProps {
					run.bold = onOff(t)
				}
			case "i":
				if inRunProps {
					run.italic = onOff(t)
				}
			case "t":
				if run != nil && nested == 0 {
					inText = true
				}
			case "tab":
				if run != nil && nested == 0 && !inRunProps {
					run.text += "\t"
				}
			case "br", "cr":
				if run != nil && nested == 0 {
					run.text += "\n"
				}
			}

		case xml.CharData:
			if inText {
				run.text += string(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "rPr":
				inRunProps = false
			case "r":
				if run != nil && nested == 0 {
					run.raw = string(data[runStart:dec.InputOffset()])
					para.runs = append(para.runs, *run)
					run = nil
				}
			case "p":
				if nested > 0 {
					nested--
					continue
				}
				if para == nil {
					continue
				}
				switch tblDepth {
				case 0:
					d.paragraphs = append(d.paragraphs, *para)
				default:
					if text := para.text(); text != "" {
						cell = append(cell, text)
					}
				}
				para = nil
			case "tc":
				if tblDepth == 1 {
					row = append(row, strings.Join(cell, "\n"))
				}
			case "tr":
				if tblDepth == 1 {
					table = append(table, row)
				}
			case "tbl":
				if tblDepth == 1 && len(table) > 0 {
					d.grids = append(d.grids, table)
				}
				tblDepth--
			}
		}
	}
	return nil
}

// units numbers non-empty paragraphs densely from 1.
func (d *DOCXDocument) units() []unit {
	var out []unit
	for _, p := range d.paragraphs {
		text := p.text()
		if text == "" {
			continue
		}
		out = append(out, unit{
			number: len(out) + 1,
			text:   text,
			styles: p.styles(),
		})
	}
	return out
}

func (d *DOCXDocument) fontStyles() FontStyles {
	var fs FontStyles
	for _, p := range d.paragraphs {
		fs.add(p.styles())
	}
	return fs
}

// links pairs each hyperlink relationship with every body run whose markup
// mentions the target. Runs that merely quote the URL also match, and
// targets are compared against escaped markup.
func (d *DOCXDocument) links() []LinkRecord {
	var out []LinkRecord
	for _, rel := range d.rels {
		if !strings.Contains(rel.Type, "hyperlink") || rel.Target == "" {
			continue
		}
		for _, p := range d.paragraphs {
			for _, r := range p.runs {
				if strings.Contains(r.raw, rel.Target) {
					out = append(out, LinkRecord{URL: rel.Target, LinkedText: strPtr(r.text)})
				}
			}
		}
	}
	return out
}

// images writes every internal image relationship, re-encoded as PNG when
// the bytes decode and copied verbatim otherwise.
func (d *DOCXDocument) images(dir string) ([]ImageRecord, error) {
	var out []ImageRecord
	for _, rel := range d.rels {
		if rel.external() || !isImageRel(rel) {
			continue
		}
		part := resolvePart(docxMainPart, rel.Target)
		data, err := d.pkg.read(part)
		if err != nil {
			return out, fmt.Errorf("relationship %s: %w", rel.ID, err)
		}
		n := len(out) + 1
		name := fmt.Sprintf("docx_image_%d.png", n)
		if png, ok := toPNG(data); ok {
			data = png
		} else if ext := path.Ext(part); ext != "" {
			name = fmt.Sprintf("docx_image_%d%s", n, ext)
		}
		p, err := writeImage(dir, name, data)
		if err != nil {
			return out, err
		}
		out = append(out, ImageRecord{Path: p})
	}
	return out, nil
}

func (d *DOCXDocument) tables() []tableGrid {
	out := make([]tableGrid, 0, len(d.grids))
	for i, t := range d.grids {
		out = append(out, tableGrid{name: fmt.Sprintf("table_docx_%d", i+1), rows: t})
	}
	return out
}

func isImageRel(rel relationship) bool {
	return strings.HasSuffix(rel.Type, "/image") || strings.Contains(rel.Target, "image")
}
