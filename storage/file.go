package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/docharvest/docpipe"
)

// Flat-file suffixes, appended to the document's base name.
const (
	SuffixText   = "-output-text_data.txt"
	SuffixLinks  = "-output-hyperlinks.txt"
	SuffixImages = "-output-images.txt"
	SuffixTables = "-output-tables.txt"
)

// FileSink writes each view as indented JSON into Dir, overwriting any
// previous run for the same document name.
type FileSink struct {
	Dir    string
	Logger *slog.Logger
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string, logger *slog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file sink: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSink{Dir: dir, Logger: logger}, nil
}

// OutputPath returns the flat file for document file and suffix.
func (s *FileSink) OutputPath(file, suffix string) string {
	base := filepath.Base(file)
	return filepath.Join(s.Dir, strings.TrimSuffix(base, filepath.Ext(base))+suffix)
}

func (s *FileSink) StoreText(ctx context.Context, file string, recs []docpipe.TextRecord) error {
	if recs == nil {
		recs = []docpipe.TextRecord{}
	}
	return s.write(ctx, "text", file, SuffixText, recs)
}

func (s *FileSink) StoreLinks(ctx context.Context, file string, recs []docpipe.LinkRecord) error {
	if recs == nil {
		recs = []docpipe.LinkRecord{}
	}
	return s.write(ctx, "links", file, SuffixLinks, recs)
}

func (s *FileSink) StoreImages(ctx context.Context, file string, recs []docpipe.ImageRecord) error {
	if recs == nil {
		recs = []docpipe.ImageRecord{}
	}
	return s.write(ctx, "images", file, SuffixImages, recs)
}

func (s *FileSink) StoreTables(ctx context.Context, file string, recs []docpipe.TableRecord) error {
	if recs == nil {
		recs = []docpipe.TableRecord{}
	}
	return s.write(ctx, "tables", file, SuffixTables, recs)
}

func (s *FileSink) Close() error { return nil }

func (s *FileSink) write(ctx context.Context, view, file, suffix string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", view, err)
	}
	path := s.OutputPath(file, suffix)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.Logger.Debug("sink.file.written", "view", view, "path", path, "bytes", len(data))
	return nil
}
