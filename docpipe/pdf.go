package docpipe

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFDocument is a PDF parsed and validated by pdfcpu.
type PDFDocument struct {
	path string
	ctx  *model.Context
}

// OpenPDF reads, validates and optimizes the PDF at path.
func OpenPDF(path string) (*PDFDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return &PDFDocument{path: path, ctx: ctx}, nil
}

func (d *PDFDocument) Kind() Kind   { return KindPDF }
func (d *PDFDocument) Path() string { return d.path }

// PageCount returns the number of pages.
func (d *PDFDocument) PageCount() int { return d.ctx.PageCount }

// Close is a no-op; the whole file was read at open.
func (d *PDFDocument) Close() error { return nil }

// layout decodes the text rows of every page.
func (d *PDFDocument) layout() [][][]string {
	pages := make([][][]string, d.ctx.PageCount)
	for i := range pages {
		pages[i] = d.pageRows(i + 1)
	}
	return pages
}

// pageRows decodes the content stream of one page. Pages without content
// yield no rows.
func (d *PDFDocument) pageRows(pageNr int) [][]string {
	r, err := pdfcpu.ExtractPageContent(d.ctx, pageNr)
	if err != nil || r == nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return nil
	}
	return layoutText(data)
}

func (d *PDFDocument) units() []unit {
	pages := d.layout()
	out := make([]unit, 0, len(pages))
	for i, rows := range pages {
		out = append(out, unit{
			number: i + 1,
			text:   joinRows(rows),
			styles: d.pageFontStyles(i + 1),
		})
	}
	return out
}

func (d *PDFDocument) fontStyles() FontStyles {
	var fs FontStyles
	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		fs.add(d.pageFontStyles(pageNr))
	}
	return fs
}

// pageFontStyles counts the fonts a page references whose base name marks
// them bold or italic.
func (d *PDFDocument) pageFontStyles(pageNr int) FontStyles {
	var fs FontStyles
	for _, name := range d.pageFontNames(pageNr) {
		if strings.Contains(name, "Bold") {
			fs.Bold++
		}
		if strings.Contains(name, "Italic") {
			fs.Italic++
		}
	}
	return fs
}

func (d *PDFDocument) pageFontNames(pageNr int) []string {
	pageDict, _, inh, err := d.ctx.PageDict(pageNr, false)
	if err != nil || pageDict == nil {
		return nil
	}
	var res types.Dict
	if o, found := pageDict.Find("Resources"); found {
		res, _ = d.ctx.DereferenceDict(o)
	}
	if res == nil && inh != nil {
		res = inh.Resources
	}
	if res == nil {
		return nil
	}
	o, found := res.Find("Font")
	if !found {
		return nil
	}
	fonts, err := d.ctx.DereferenceDict(o)
	if err != nil || fonts == nil {
		return nil
	}

	keys := make([]string, 0, len(fonts))
	for k := range fonts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var names []string
	for _, k := range keys {
		fd, err := d.ctx.DereferenceDict(fonts[k])
		if err != nil || fd == nil {
			continue
		}
		if base := fd.NameEntry("BaseFont"); base != nil {
			names = append(names, *base)
		}
	}
	return names
}

// images writes every image XObject, named by page and per-page index.
func (d *PDFDocument) images(dir string) ([]ImageRecord, error) {
	var out []ImageRecord
	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		imgs, err := pdfcpu.ExtractPageImages(d.ctx, pageNr, false)
		if err != nil {
			return out, fmt.Errorf("page %d: %w", pageNr, err)
		}
		objNrs := make([]int, 0, len(imgs))
		for objNr := range imgs {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for i, objNr := range objNrs {
			img := imgs[objNr]
			if img.Reader == nil {
				continue
			}
			data, err := io.ReadAll(img)
			if err != nil {
				return out, fmt.Errorf("page %d image %d: %w", pageNr, objNr, err)
			}
			ext := img.FileType
			if ext == "" {
				ext = "png"
			}
			name := fmt.Sprintf("pdf_image_page_%d_%d.%s", pageNr, i+1, ext)
			p, err := writeImage(dir, name, data)
			if err != nil {
				return out, err
			}
			out = append(out, ImageRecord{Path: p, PageNumber: intPtr(pageNr)})
		}
	}
	return out, nil
}

// links returns URI link annotations. The annotation's /Contents is the
// linked text; without it the URI stands in.
func (d *PDFDocument) links() []LinkRecord {
	var out []LinkRecord
	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		pageDict, _, _, err := d.ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}
		o, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := d.ctx.DereferenceArray(o)
		if err != nil {
			continue
		}
		for _, a := range annots {
			ad, err := d.ctx.DereferenceDict(a)
			if err != nil || ad == nil {
				continue
			}
			ao, found := ad.Find("A")
			if !found {
				continue
			}
			action, err := d.ctx.DereferenceDict(ao)
			if err != nil || action == nil {
				continue
			}
			uo, _ := action.Find("URI")
			uri := d.str(uo)
			if uri == "" {
				continue
			}
			co, _ := ad.Find("Contents")
			text := d.str(co)
			if text == "" {
				text = uri
			}
			out = append(out, LinkRecord{
				URL:        uri,
				LinkedText: strPtr(text),
				PageNumber: intPtr(pageNr),
			})
		}
	}
	return out
}

// str resolves o to a Go string. Non-string objects yield "".
func (d *PDFDocument) str(o types.Object) string {
	if o == nil {
		return ""
	}
	o, err := d.ctx.Dereference(o)
	if err != nil || o == nil {
		return ""
	}
	switch v := o.(type) {
	case types.StringLiteral:
		if s, err := types.StringLiteralToString(v); err == nil {
			return s
		}
	case types.HexLiteral:
		if s, err := types.HexLiteralToString(v); err == nil {
			return s
		}
	case types.Name:
		return string(v)
	}
	return ""
}

func (d *PDFDocument) tables() []tableGrid {
	var out []tableGrid
	for i, rows := range d.layout() {
		for _, t := range detectTables(rows) {
			out = append(out, tableGrid{
				name: fmt.Sprintf("table_pdf_%d", len(out)+1),
				page: intPtr(i + 1),
				rows: t,
			})
		}
	}
	return out
}
