package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// unit is one text-bearing unit of a document before normalization.
type unit struct {
	number int
	text   string
	styles FontStyles
}

// tableGrid is a detected table before it is written to disk. name is the
// file stem; rows may be ragged.
type tableGrid struct {
	name string
	page *int
	rows [][]string
}

// strategy is the per-kind extraction contract. Every Handle implements it,
// so the dispatch is fixed when the document is loaded.
type strategy interface {
	units() []unit
	fontStyles() FontStyles
	images(dir string) ([]ImageRecord, error)
	links() []LinkRecord
	tables() []tableGrid
}

// Extractor derives text, links, images and tables from one opened document.
type Extractor struct {
	doc    Handle
	cfg    Config
	logger *slog.Logger
}

// NewExtractor wraps doc. The extractor takes ownership of the handle.
func NewExtractor(doc Handle, cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{
		doc:    doc,
		cfg:    cfg,
		logger: cfg.Logger.With("kind", string(doc.Kind()), "path", doc.Path()),
	}
}

// Kind returns the kind of the underlying document.
func (e *Extractor) Kind() Kind { return e.doc.Kind() }

// Close releases the underlying document.
func (e *Extractor) Close() error { return e.doc.Close() }

// ExtractText returns one record per page, non-empty paragraph or slide.
func (e *Extractor) ExtractText() []TextRecord {
	units := e.doc.units()
	out := make([]TextRecord, 0, len(units))
	for _, u := range units {
		out = append(out, TextRecord{
			PageNumber: u.number,
			Text:       u.text,
			Headings:   ExtractHeadings(u.text),
			FontStyles: u.styles,
		})
	}
	return out
}

// ExtractHeadings applies the heading heuristic to text.
func (e *Extractor) ExtractHeadings(text string) []string {
	return ExtractHeadings(text)
}

// ExtractFontStyles returns document-wide bold and italic run counts.
func (e *Extractor) ExtractFontStyles() FontStyles {
	return e.doc.fontStyles()
}

// ExtractLinks returns every hyperlink the document strategy can see.
func (e *Extractor) ExtractLinks() []LinkRecord {
	return e.doc.links()
}

// ExtractImages writes embedded images into dir, which must exist.
func (e *Extractor) ExtractImages(dir string) ([]ImageRecord, error) {
	imgs, err := e.doc.images(dir)
	if err != nil {
		return imgs, fmt.Errorf("extract images: %w", err)
	}
	e.logger.Debug("images extracted", "count", len(imgs), "dir", dir)
	return imgs, nil
}

// ExtractTables writes every detected table into dir, which must exist.
// Files carry no header row.
func (e *Extractor) ExtractTables(dir string) ([]TableRecord, error) {
	var out []TableRecord
	for _, g := range e.doc.tables() {
		rows := rectangular(g.rows)
		if len(rows) == 0 || len(rows[0]) == 0 {
			continue
		}
		path := filepath.Join(dir, g.name+"."+e.cfg.TableFormat)
		var err error
		switch e.cfg.TableFormat {
		case TableXLSX:
			err = WriteXLSX(path, rows)
		default:
			err = WriteCSV(path, rows)
		}
		if err != nil {
			return out, fmt.Errorf("extract tables: %w", err)
		}
		out = append(out, TableRecord{
			Path:       path,
			PageNumber: g.page,
			Rows:       len(rows),
			Cols:       len(rows[0]),
		})
	}
	e.logger.Debug("tables extracted", "count", len(out), "dir", dir)
	return out, nil
}

// ExtractAll runs the four views in order. Already written artifacts stay on
// disk when a later view fails.
func (e *Extractor) ExtractAll(ctx context.Context, imageDir, tableDir string) (*Result, error) {
	res := &Result{
		File: e.doc.Path(),
		Kind: e.doc.Kind(),
	}

	res.Text = e.ExtractText()
	res.Links = e.ExtractLinks()
	if err := ctx.Err(); err != nil {
		return res, err
	}

	imgs, err := e.ExtractImages(imageDir)
	res.Images = imgs
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	tables, err := e.ExtractTables(tableDir)
	res.Tables = tables
	if err != nil {
		return res, err
	}

	e.logger.Info("document extracted",
		"units", len(res.Text),
		"links", len(res.Links),
		"images", len(res.Images),
		"tables", len(res.Tables),
	)
	return res, nil
}
