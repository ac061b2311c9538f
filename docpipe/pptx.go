package docpipe

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const pptxPresentationPart = "ppt/presentation.xml"

// PPTXDocument is a presentation with every slide parsed into shapes, in
// presentation order.
type PPTXDocument struct {
	path   string
	pkg    *ooxmlPackage
	slides []pptxSlide
}

type pptxSlide struct {
	number int
	part   string
	shapes []pptxShape
	rels   map[string]relationship
}

type shapeKind int

const (
	shapeText shapeKind = iota
	shapePicture
	shapeFrame
)

type pptxShape struct {
	kind    shapeKind
	name    string
	hasText bool
	linkRID string
	picRID  string
	paras   []pptxParagraph
	table   [][]string
}

type pptxParagraph struct {
	text string
	runs []pptxRun
}

type pptxRun struct {
	text    string
	bold    bool
	italic  bool
	linkRID string
}

func (s pptxShape) text() string {
	lines := make([]string, 0, len(s.paras))
	for _, p := range s.paras {
		lines = append(lines, p.text)
	}
	return strings.Join(lines, "\n")
}

func (s pptxShape) styles() FontStyles {
	var fs FontStyles
	for _, p := range s.paras {
		for _, r := range p.runs {
			if r.bold {
				fs.Bold++
			}
			if r.italic {
				fs.Italic++
			}
		}
	}
	return fs
}

// OpenPPTX opens the archive at path and parses every slide listed in the
// presentation.
func OpenPPTX(path string) (*PPTXDocument, error) {
	pkg, err := openPackage(path)
	if err != nil {
		return nil, err
	}
	d := &PPTXDocument{path: path, pkg: pkg}
	if err := d.parse(); err != nil {
		pkg.Close()
		return nil, err
	}
	return d, nil
}

func (d *PPTXDocument) Kind() Kind   { return KindPPTX }
func (d *PPTXDocument) Path() string { return d.path }
func (d *PPTXDocument) Close() error { return d.pkg.Close() }

// SlideCount returns the number of slides.
func (d *PPTXDocument) SlideCount() int { return len(d.slides) }

func (d *PPTXDocument) parse() error {
	data, err := d.pkg.read(pptxPresentationPart)
	if err != nil {
		return err
	}
	var pres struct {
		Slides []struct {
			RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sldIdLst>sldId"`
	}
	if err := xml.Unmarshal(data, &pres); err != nil {
		return fmt.Errorf("parse %s: %w", pptxPresentationPart, err)
	}
	rels, err := d.pkg.rels(pptxPresentationPart)
	if err != nil {
		return err
	}
	byID := relIndex(rels)

	for i, s := range pres.Slides {
		rel, ok := byID[s.RID]
		if !ok {
			return fmt.Errorf("slide %d: relationship %q not found", i+1, s.RID)
		}
		part := resolvePart(pptxPresentationPart, rel.Target)
		data, err := d.pkg.read(part)
		if err != nil {
			return fmt.Errorf("slide %d: %w", i+1, err)
		}
		shapes, err := parseSlide(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", part, err)
		}
		slideRels, err := d.pkg.rels(part)
		if err != nil {
			return err
		}
		d.slides = append(d.slides, pptxSlide{
			number: i + 1,
			part:   part,
			shapes: shapes,
			rels:   relIndex(slideRels),
		})
	}
	return nil
}

func relIndex(rels []relationship) map[string]relationship {
	m := make(map[string]relationship, len(rels))
	for _, r := range rels {
		m[r.ID] = r
	}
	return m
}

// parseSlide flattens the shape tree of one slide. Group shapes contribute
// their children in document order.
func parseSlide(data []byte) ([]pptxShape, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		depth      depthGuard
		shapes     []pptxShape
		cur        *pptxShape
		para       *pptxParagraph
		run        *pptxRun
		inNvPr     bool
		inRunProps bool
		inText     bool
		inTable    bool
		inCell     bool
		row        []string
		cell       []string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := depth.track(tok); err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				cur = &pptxShape{kind: shapeText}
			case "pic":
				cur = &pptxShape{kind: shapePicture}
			case "graphicFrame":
				cur = &pptxShape{kind: shapeFrame}
			case "cNvPr":
				if cur != nil {
					cur.name = attr(t, "name")
					inNvPr = true
				}
			case "hlinkClick":
				rid := attr(t, "id")
				switch {
				case rid == "":
				case run != nil && inRunProps:
					run.linkRID = rid
				case cur != nil && inNvPr:
					cur.linkRID = rid
				}
			case "txBody":
				if cur != nil && cur.kind == shapeText {
					cur.hasText = true
				}
			case "tbl":
				if cur != nil {
					inTable = true
				}
			case "tr":
				if inTable {
					row = nil
				}
			case "tc":
				if inTable {
					cell = nil
					inCell = true
				}
			case "p":
				if cur != nil && (cur.hasText || inCell) {
					para = &pptxParagraph{}
				}
			case "r":
				if para != nil {
					run = &pptxRun{}
				}
			case "rPr":
				if run != nil {
					inRunProps = true
					run.bold = truthy(attr(t, "b"))
					run.italic = truthy(attr(t, "i"))
				}
			case "t":
				if para != nil {
					inText = true
				}
			case "br":
				if para != nil {
					para.text += "\n"
				}
			case "blip":
				if cur != nil && cur.kind == shapePicture {
					cur.picRID = attr(t, "embed")
				}
			}

		case xml.CharData:
			if inText {
				s := string(t)
				para.text += s
				if run != nil {
					run.text += s
				}
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "cNvPr":
				inNvPr = false
			case "rPr":
				inRunProps = false
			case "t":
				inText = false
			case "r":
				if run != nil {
					para.runs = append(para.runs, *run)
					run = nil
				}
			case "p":
				if para == nil {
					continue
				}
				if inCell {
					cell = append(cell, para.text)
				} else {
					cur.paras = append(cur.paras, *para)
				}
				para = nil
			case "tc":
				if inCell {
					row = append(row, strings.Join(cell, "\n"))
					inCell = false
				}
			case "tr":
				if inTable {
					cur.table = append(cur.table, row)
				}
			case "tbl":
				inTable = false
			case "sp", "pic", "graphicFrame":
				if cur != nil {
					shapes = append(shapes, *cur)
					cur = nil
				}
			}
		}
	}
	return shapes, nil
}

// units returns one unit per slide: the text of every text-bearing shape,
// one per line.
func (d *PPTXDocument) units() []unit {
	out := make([]unit, 0, len(d.slides))
	for _, s := range d.slides {
		var (
			texts []string
			fs    FontStyles
		)
		for _, sh := range s.shapes {
			if !sh.hasText {
				continue
			}
			texts = append(texts, sh.text())
			fs.add(sh.styles())
		}
		out = append(out, unit{number: s.number, text: strings.Join(texts, "\n"), styles: fs})
	}
	return out
}

func (d *PPTXDocument) fontStyles() FontStyles {
	var fs FontStyles
	for _, u := range d.units() {
		fs.add(u.styles)
	}
	return fs
}

// links reports shape-level click actions and run-level hyperlinks.
func (d *PPTXDocument) links() []LinkRecord {
	var out []LinkRecord
	for _, s := range d.slides {
		for _, sh := range s.shapes {
			if rel, ok := s.rels[sh.linkRID]; ok && rel.Target != "" {
				out = append(out, LinkRecord{
					URL:        rel.Target,
					LinkedText: strPtr(sh.text()),
					PageNumber: intPtr(s.number),
				})
			}
			for _, p := range sh.paras {
				for _, r := range p.runs {
					rel, ok := s.rels[r.linkRID]
					if !ok || rel.Target == "" {
						continue
					}
					out = append(out, LinkRecord{
						URL:        rel.Target,
						LinkedText: strPtr(r.text),
						PageNumber: intPtr(s.number),
					})
				}
			}
		}
	}
	return out
}

// images writes picture shapes, named by slide and per-slide index.
func (d *PPTXDocument) images(dir string) ([]ImageRecord, error) {
	var out []ImageRecord
	for _, s := range d.slides {
		i := 0
		for _, sh := range s.shapes {
			if sh.kind != shapePicture || sh.picRID == "" {
				continue
			}
			rel, ok := s.rels[sh.picRID]
			if !ok || rel.external() {
				continue
			}
			part := resolvePart(s.part, rel.Target)
			data, err := d.pkg.read(part)
			if err != nil {
				return out, fmt.Errorf("slide %d: %w", s.number, err)
			}
			i++
			ext := strings.ToLower(path.Ext(part))
			if ext == "" {
				ext = ".png"
			}
			p, err := writeImage(dir, fmt.Sprintf("pptx_image_slide_%d_%d%s", s.number, i, ext), data)
			if err != nil {
				return out, err
			}
			out = append(out, ImageRecord{Path: p, PageNumber: intPtr(s.number)})
		}
	}
	return out, nil
}

func (d *PPTXDocument) tables() []tableGrid {
	var out []tableGrid
	for _, s := range d.slides {
		k := 0
		for _, sh := range s.shapes {
			if len(sh.table) == 0 {
				continue
			}
			k++
			out = append(out, tableGrid{
				name: fmt.Sprintf("table_pptx_slide_%d_%d", s.number, k),
				page: intPtr(s.number),
				rows: sh.table,
			})
		}
	}
	return out
}
