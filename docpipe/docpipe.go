// Package docpipe extracts text, headings, font-style counts, hyperlinks,
// images and tables from document files.
//
// Supported formats:
//   - .pdf   PDF (pdfcpu: page content streams, font resources, annotations, image XObjects)
//   - .docx  Microsoft Word (archive/zip → word/document.xml + relationships)
//   - .pptx  Microsoft PowerPoint (archive/zip → ppt/slides/*.xml + relationships)
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	res, err := pipe.Extract(ctx, "/path/to/report.pdf")
//	fmt.Println(len(res.Text), "pages")
package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/docharvest/safepath"
)

// Pipeline opens documents and runs every extraction view over them.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Detect returns the document kind based on file extension.
func (p *Pipeline) Detect(path string) (Kind, error) {
	return Detect(path)
}

// Extract extracts path into the configured image and table directories.
func (p *Pipeline) Extract(ctx context.Context, path string) (*Result, error) {
	return p.ExtractInto(ctx, path, p.cfg.ImageDir, p.cfg.TableDir)
}

// ExtractInto extracts path, writing artifacts into imageDir and tableDir.
// Both directories are created if missing.
func (p *Pipeline) ExtractInto(ctx context.Context, path, imageDir, tableDir string) (*Result, error) {
	doc, err := Open(path, p.cfg)
	if err != nil {
		return nil, err
	}
	ex := NewExtractor(doc, p.cfg)
	defer ex.Close()

	for _, dir := range []string{imageDir, tableDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	p.logger.Debug("extracting document", "path", path, "kind", doc.Kind())
	res, err := ex.ExtractAll(ctx, imageDir, tableDir)
	if err != nil {
		return res, fmt.Errorf("extract %s (%s): %w", path, doc.Kind(), err)
	}
	return res, nil
}

// resolve maps a caller-supplied path under Config.Root.
func (p *Pipeline) resolve(path string) (string, error) {
	if p.cfg.Root == "" {
		return path, nil
	}
	return safepath.Resolve(p.cfg.Root, path)
}
