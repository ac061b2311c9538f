// Package storage persists extraction results to flat files and to a
// relational database.
package storage

import (
	"context"
	"fmt"

	"github.com/hazyhaar/docharvest/docpipe"
)

// Sink persists the views of one extracted document. file is the source
// document path as given to the extractor.
type Sink interface {
	StoreText(ctx context.Context, file string, recs []docpipe.TextRecord) error
	StoreLinks(ctx context.Context, file string, recs []docpipe.LinkRecord) error
	StoreImages(ctx context.Context, file string, recs []docpipe.ImageRecord) error
	Close() error
}

// TableSink is implemented by sinks that also record table artifacts.
type TableSink interface {
	StoreTables(ctx context.Context, file string, recs []docpipe.TableRecord) error
}

// Store writes every view of res to s. Rows already written stay in place
// when a later view fails.
func Store(ctx context.Context, s Sink, res *docpipe.Result) error {
	if err := s.StoreText(ctx, res.File, res.Text); err != nil {
		return fmt.Errorf("store text: %w", err)
	}
	if err := s.StoreLinks(ctx, res.File, res.Links); err != nil {
		return fmt.Errorf("store links: %w", err)
	}
	if err := s.StoreImages(ctx, res.File, res.Images); err != nil {
		return fmt.Errorf("store images: %w", err)
	}
	if ts, ok := s.(TableSink); ok {
		if err := ts.StoreTables(ctx, res.File, res.Tables); err != nil {
			return fmt.Errorf("store tables: %w", err)
		}
	}
	return nil
}
