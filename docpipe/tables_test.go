package docpipe

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestCSV_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := [][]string{
		{"Name", "Note", ""},
		{"Ada", `said "hi", left`, "x"},
		{"multi\nline", "", "z"},
	}
	path := filepath.Join(dir, "t.csv")
	if err := WriteCSV(path, rows); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("got %q, want %q", got, rows)
	}
}

func TestXLSX_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := [][]string{{"a", "b"}, {"1", "2"}}
	path := filepath.Join(dir, "t.xlsx")
	if err := WriteXLSX(path, rows); err != nil {
		t.Fatal(err)
	}
	got, err := ReadXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("got %q, want %q", got, rows)
	}
}

func TestRectangular(t *testing.T) {
	got := rectangular([][]string{{"a"}, {"b", "c", "d"}, {}})
	want := [][]string{{"a", "", ""}, {"b", "c", "d"}, {"", "", ""}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtractTables_XLSX(t *testing.T) {
	dir := t.TempDir()
	body := "<w:tbl><w:tr><w:tc>" + docxPara(docxRunXML("k", "")) + "</w:tc><w:tc>" + docxPara(docxRunXML("v", "")) + "</w:tc></w:tr></w:tbl>"
	path := buildDOCX(t, dir, "x.docx", body, nil, nil)

	doc, err := Open(path, Config{})
	if err != nil {
		t.Fatal(err)
	}
	ex := NewExtractor(doc, Config{TableFormat: TableXLSX})
	defer ex.Close()

	out := t.TempDir()
	tables, err := ex.ExtractTables(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || filepath.Base(tables[0].Path) != "table_docx_1.xlsx" {
		t.Fatalf("tables: %+v", tables)
	}
	rows, err := ReadXLSX(tables[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rows, [][]string{{"k", "v"}}) {
		t.Fatalf("rows: %q", rows)
	}
}
