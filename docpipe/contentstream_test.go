package docpipe

import (
	"reflect"
	"testing"
)

func TestLayoutText_Lines(t *testing.T) {
	stream := `BT
/F1 12 Tf
72 720 Td
(QUARTERLY REPORT) Tj
0 -20 Td
(Revenue \(net\) grew) Tj
T*
[(Sum) -50 (mary) -400 (follows)] TJ
ET`
	got := layoutText([]byte(stream))
	want := [][]string{
		{"QUARTERLY REPORT"},
		{"Revenue (net) grew"},
		{"Summary follows"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLayoutText_Cells(t *testing.T) {
	stream := `BT /F1 10 Tf
72 700 Td (Name) Tj 100 0 Td (Qty) Tj 100 0 Td (Price) Tj
-200 -15 Td (Apple) Tj 100 0 Td (3) Tj 100 0 Td (1.20) Tj
ET`
	got := layoutText([]byte(stream))
	want := [][]string{
		{"Name", "Qty", "Price"},
		{"Apple", "3", "1.20"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLayoutText_Operators(t *testing.T) {
	stream := `BT
1 0 0 1 50 600 Tm
<48656C6C6F> Tj
14 TL
(second) '
1 2 (third) "
ET
BI /W 2 /H 2 /BPC 8 /CS /G ID ` + "\x00\xff\x10EI" + ` EI
BT 1 0 0 1 50 500 Tm (after image) Tj ET`
	got := layoutText([]byte(stream))
	want := [][]string{
		{"Hello"},
		{"second"},
		{"third"},
		{"after image"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLayoutText_IgnoresNonText(t *testing.T) {
	stream := `% comment (not text) Tj
q 1 0 0 1 0 0 cm
/GS1 gs
<< /MCID 0 >> BDC
0 0 100 100 re f
EMC
Q`
	if got := layoutText([]byte(stream)); len(got) != 0 {
		t.Fatalf("expected no rows, got %q", got)
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := map[string]string{
		`plain`:        "plain",
		`a\nb`:         "a\nb",
		`\(x\)`:        "(x)",
		`back\\slash`:  `back\slash`,
		`\101\102`:     "AB",
		`\0401`:        " 1",
		"line\\\ncont": "linecont",
		`unknown\q`:    "unknownq",
	}
	for in, want := range tests {
		if got := decodePDFString([]byte(in)); got != want {
			t.Errorf("decodePDFString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeTextBytes(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("ascii"), "ascii"},
		{[]byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}, "Hi"},
		{[]byte{'c', 'a', 'f', 0xE9}, "café"},
		{[]byte("tab\there"), "tab here"},
		{[]byte{'a', 0x01, 'b'}, "ab"},
	}
	for _, tt := range tests {
		if got := decodeTextBytes(tt.in); got != tt.want {
			t.Errorf("decodeTextBytes(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectTables(t *testing.T) {
	rows := [][]string{
		{"Title"},
		{"a", "b"},
		{"c", "d"},
		{"x", "y", "z"},
		{"1", "2", "3"},
		{"4", "5", "6"},
		{"footer"},
		{"lonely", "pair"},
	}
	got := detectTables(rows)
	want := [][][]string{
		{{"a", "b"}, {"c", "d"}},
		{{"x", "y", "z"}, {"1", "2", "3"}, {"4", "5", "6"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}
