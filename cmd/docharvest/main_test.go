package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/docharvest/config"
	"github.com/hazyhaar/docharvest/docpipe"
	"github.com/hazyhaar/docharvest/storage"
)

const minimalDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>EXECUTIVE SUMMARY</w:t></w:r></w:p>
<w:p><w:r><w:rPr><w:i/></w:rPr><w:t>short line</w:t></w:r></w:p>
</w:body>
</w:document>`

func writeDOCX(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(minimalDocument)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, "memo.docx")
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// run executes the CLI with an isolated config file and no dotenv.
func run(t *testing.T, dbPath string, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "docharvest.yaml")
	body := "database:\n  driver: sqlite\n  path: " + dbPath + "\nlog_level: error\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--env-file", ""}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestFormats(t *testing.T) {
	out, _, err := run(t, "unused.db", "formats")
	if err != nil {
		t.Fatal(err)
	}
	if out != ".pdf\n.docx\n.pptx\n" {
		t.Fatalf("out = %q", out)
	}

	out, _, err = run(t, "unused.db", "formats", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got struct{ Formats []string }
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got.Formats, ",") != "pdf,docx,pptx" {
		t.Fatalf("formats = %v", got.Formats)
	}
}

func TestExtractToFilesAndDB(t *testing.T) {
	dir := t.TempDir()
	doc := writeDOCX(t, dir)
	outDir := filepath.Join(dir, "out")
	dbPath := filepath.Join(dir, "harvest.db")

	out, _, err := run(t, dbPath, "extract", doc, "--out", outDir, "--db")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, "2 text") {
		t.Errorf("summary = %q", out)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "memo"+storage.SuffixText))
	if err != nil {
		t.Fatal(err)
	}
	var text []docpipe.TextRecord
	if err := json.Unmarshal(data, &text); err != nil {
		t.Fatal(err)
	}
	if len(text) != 2 || text[0].Headings[0] != "EXECUTIVE SUMMARY" || text[0].FontStyles.Bold != 1 {
		t.Fatalf("text = %+v", text)
	}
	for _, d := range []string{"images", "tables"} {
		if fi, err := os.Stat(filepath.Join(outDir, d)); err != nil || !fi.IsDir() {
			t.Errorf("%s dir missing: %v", d, err)
		}
	}

	sink, err := storage.OpenSQL(context.Background(), config.Database{Driver: config.DriverSQLite, Path: dbPath}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()
	stored, err := sink.TextRecords(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[1].FontStyles.Italic != 1 {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestExtractUnsupported(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.odt")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := run(t, filepath.Join(dir, "h.db"), "extract", p, "--out", filepath.Join(dir, "out"))
	if !errors.Is(err, docpipe.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtractCorrupted(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "broken.docx")
	if err := os.WriteFile(p, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := run(t, filepath.Join(dir, "h.db"), "extract", p, "--out", filepath.Join(dir, "out"))
	if !errors.Is(err, docpipe.ErrCorrupted) {
		t.Fatalf("err = %v, want ErrCorrupted", err)
	}
}

func TestExtractBadTableFormat(t *testing.T) {
	dir := t.TempDir()
	_, _, err := run(t, filepath.Join(dir, "h.db"), "extract", writeDOCX(t, dir), "--table-format", "ods")
	if err == nil || !strings.Contains(err.Error(), "table_format") {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractNeedsFile(t *testing.T) {
	if _, _, err := run(t, "unused.db", "extract"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestBadDatabaseOnlyBlocksDB(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	dir := t.TempDir()
	doc := writeDOCX(t, dir)

	if _, _, err := run(t, "unused.db", "formats"); err != nil {
		t.Fatalf("formats: %v", err)
	}
	out, _, err := run(t, "unused.db", "extract", doc, "--out", filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("extract without --db: %v", err)
	}
	if !strings.Contains(out, "2 text") {
		t.Errorf("summary = %q", out)
	}
	_, _, err = run(t, "unused.db", "extract", doc, "--out", filepath.Join(dir, "out"), "--db")
	if err == nil || !strings.Contains(err.Error(), "database.driver") {
		t.Fatalf("err = %v, want database.driver error", err)
	}
}
