package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hazyhaar/docharvest/config"
	"github.com/hazyhaar/docharvest/dbopen"
	"github.com/hazyhaar/docharvest/docpipe"
)

// dialect holds the per-driver SQL differences.
type dialect struct {
	name     string
	idColumn string
	blobType string
	numbered bool // $1, $2 instead of ?
}

var dialects = map[string]dialect{
	config.DriverSQLite:   {name: config.DriverSQLite, idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT", blobType: "BLOB"},
	config.DriverPostgres: {name: config.DriverPostgres, idColumn: "BIGSERIAL PRIMARY KEY", blobType: "BYTEA", numbered: true},
}

// rebind rewrites ? placeholders for dialects with numbered parameters.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS extracted_text (
    id          {{id}},
    file_name   TEXT NOT NULL,
    page_number INTEGER,
    text        TEXT,
    headings    TEXT,
    font_styles TEXT
);
CREATE TABLE IF NOT EXISTS extracted_links (
    id          {{id}},
    file_name   TEXT NOT NULL,
    page_number INTEGER,
    linked_text TEXT,
    url         TEXT
);
CREATE TABLE IF NOT EXISTS extracted_images (
    id               {{id}},
    file_name        TEXT NOT NULL,
    page_number      INTEGER,
    image_path       TEXT NOT NULL,
    image            {{blob}},
    image_resolution VARCHAR(20),
    image_size       BIGINT
);
CREATE INDEX IF NOT EXISTS idx_extracted_text_file ON extracted_text(file_name);
CREATE INDEX IF NOT EXISTS idx_extracted_links_file ON extracted_links(file_name);
CREATE INDEX IF NOT EXISTS idx_extracted_images_file ON extracted_images(file_name)
`

func (d dialect) schema() []string {
	s := strings.NewReplacer("{{id}}", d.idColumn, "{{blob}}", d.blobType).Replace(schemaTemplate)
	var stmts []string
	for _, stmt := range strings.Split(s, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// SQLSink writes extraction results to extracted_text, extracted_links and
// extracted_images. Every insert is its own autocommitted statement.
type SQLSink struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
	owned   bool
}

// NewSQLSink wraps an open database. driver is "sqlite" or "postgres".
// The caller keeps ownership of db.
func NewSQLSink(db *sql.DB, driver string, logger *slog.Logger) (*SQLSink, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("sql sink: unsupported driver %q", driver)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLSink{db: db, dialect: d, logger: logger}, nil
}

// OpenSQL opens the configured database, creating it first for postgres
// when CreateDatabase is set, and ensures the schema.
func OpenSQL(ctx context.Context, cfg config.Database, logger *slog.Logger) (*SQLSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sql sink: %w", err)
	}
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = dbopen.Open(cfg.Path, dbopen.WithMkdirAll())
	case config.DriverPostgres:
		if cfg.CreateDatabase {
			created, cerr := dbopen.EnsureDatabase(ctx, cfg.AdminDSN(), cfg.Name)
			if cerr != nil {
				return nil, fmt.Errorf("sql sink: %w", cerr)
			}
			if created {
				logger.Info("sink.sql.database_created", "name", cfg.Name)
			}
		}
		db, err = dbopen.OpenPostgres(ctx, cfg.DSN())
	default:
		return nil, fmt.Errorf("sql sink: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("sql sink: %w", err)
	}
	// One connection reused serially for every statement.
	db.SetMaxOpenConns(1)

	s, err := NewSQLSink(db, cfg.Driver, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying database handle.
func (s *SQLSink) DB() *sql.DB { return s.db }

// Dialect returns "sqlite" or "postgres".
func (s *SQLSink) Dialect() string { return s.dialect.name }

// EnsureSchema creates the three result tables and their indexes if missing.
func (s *SQLSink) EnsureSchema(ctx context.Context) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, stmt := range s.dialect.schema() {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sql sink schema: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLSink) exec(ctx context.Context, q string, args ...any) error {
	_, err := dbopen.Exec(ctx, s.db, s.dialect.rebind(q), args...)
	return err
}

// InsertText stores one text record. Headings and font styles are stored
// as JSON.
func (s *SQLSink) InsertText(ctx context.Context, file string, rec docpipe.TextRecord) error {
	headings := rec.Headings
	if headings == nil {
		headings = []string{}
	}
	hj, err := json.Marshal(headings)
	if err != nil {
		return fmt.Errorf("encode headings: %w", err)
	}
	fj, err := json.Marshal(rec.FontStyles)
	if err != nil {
		return fmt.Errorf("encode font styles: %w", err)
	}
	return s.exec(ctx,
		`INSERT INTO extracted_text (file_name, page_number, text, headings, font_styles) VALUES (?, ?, ?, ?, ?)`,
		file, rec.PageNumber, rec.Text, string(hj), string(fj))
}

// InsertLink stores one hyperlink.
func (s *SQLSink) InsertLink(ctx context.Context, file string, rec docpipe.LinkRecord) error {
	return s.exec(ctx,
		`INSERT INTO extracted_links (file_name, page_number, linked_text, url) VALUES (?, ?, ?, ?)`,
		file, nullInt(rec.PageNumber), nullString(rec.LinkedText), rec.URL)
}

// InsertImage re-reads the image file for its size and resolution and
// stores it with its bytes.
func (s *SQLSink) InsertImage(ctx context.Context, file string, rec docpipe.ImageRecord) error {
	meta, data, err := docpipe.InspectImage(rec.Path)
	if err != nil {
		return fmt.Errorf("inspect image %s: %w", rec.Path, err)
	}
	var resolution sql.NullString
	if meta.Width > 0 && meta.Height > 0 {
		resolution = sql.NullString{String: meta.Resolution(), Valid: true}
	}
	return s.exec(ctx,
		`INSERT INTO extracted_images (file_name, page_number, image_path, image_resolution, image_size, image) VALUES (?, ?, ?, ?, ?, ?)`,
		file, nullInt(rec.PageNumber), rec.Path, resolution, meta.Size, data)
}

func (s *SQLSink) StoreText(ctx context.Context, file string, recs []docpipe.TextRecord) error {
	for _, r := range recs {
		if err := s.InsertText(ctx, file, r); err != nil {
			return err
		}
	}
	s.logger.Debug("sink.sql.text", "file", file, "rows", len(recs))
	return nil
}

func (s *SQLSink) StoreLinks(ctx context.Context, file string, recs []docpipe.LinkRecord) error {
	for _, r := range recs {
		if err := s.InsertLink(ctx, file, r); err != nil {
			return err
		}
	}
	s.logger.Debug("sink.sql.links", "file", file, "rows", len(recs))
	return nil
}

func (s *SQLSink) StoreImages(ctx context.Context, file string, recs []docpipe.ImageRecord) error {
	for _, r := range recs {
		if err := s.InsertImage(ctx, file, r); err != nil {
			return err
		}
	}
	s.logger.Debug("sink.sql.images", "file", file, "rows", len(recs))
	return nil
}

// Close closes the database when the sink opened it.
func (s *SQLSink) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// TextRecords reads back the text records stored for file, in insert order.
func (s *SQLSink) TextRecords(ctx context.Context, file string) ([]docpipe.TextRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT page_number, text, headings, font_styles FROM extracted_text WHERE file_name = ? ORDER BY id`), file)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []docpipe.TextRecord
	for rows.Next() {
		var (
			rec      docpipe.TextRecord
			page     sql.NullInt64
			text     sql.NullString
			headings sql.NullString
			styles   sql.NullString
		)
		if err := rows.Scan(&page, &text, &headings, &styles); err != nil {
			return nil, err
		}
		rec.PageNumber = int(page.Int64)
		rec.Text = text.String
		rec.Headings = []string{}
		if headings.Valid {
			if err := json.Unmarshal([]byte(headings.String), &rec.Headings); err != nil {
				return nil, fmt.Errorf("decode headings: %w", err)
			}
		}
		if styles.Valid {
			if err := json.Unmarshal([]byte(styles.String), &rec.FontStyles); err != nil {
				return nil, fmt.Errorf("decode font styles: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LinkRecords reads back the hyperlinks stored for file, in insert order.
func (s *SQLSink) LinkRecords(ctx context.Context, file string) ([]docpipe.LinkRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT page_number, linked_text, url FROM extracted_links WHERE file_name = ? ORDER BY id`), file)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []docpipe.LinkRecord
	for rows.Next() {
		var (
			page sql.NullInt64
			text sql.NullString
			url  sql.NullString
		)
		if err := rows.Scan(&page, &text, &url); err != nil {
			return nil, err
		}
		out = append(out, docpipe.LinkRecord{
			URL:        url.String,
			LinkedText: fromNullString(text),
			PageNumber: fromNullInt(page),
		})
	}
	return out, rows.Err()
}

// ImageRow is one stored image with its captured metadata.
type ImageRow struct {
	PageNumber *int
	Path       string
	Resolution string
	Size       int64
	Image      []byte
}

// ImageRows reads back the images stored for file, in insert order.
func (s *SQLSink) ImageRows(ctx context.Context, file string) ([]ImageRow, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT page_number, image_path, image_resolution, image_size, image FROM extracted_images WHERE file_name = ? ORDER BY id`), file)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ImageRow
	for rows.Next() {
		var (
			r    ImageRow
			page sql.NullInt64
			res  sql.NullString
			size sql.NullInt64
		)
		if err := rows.Scan(&page, &r.Path, &res, &size, &r.Image); err != nil {
			return nil, err
		}
		r.PageNumber = fromNullInt(page)
		r.Resolution = res.String
		r.Size = size.Int64
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func fromNullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
