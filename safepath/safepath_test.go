package safepath

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		base, input string
		want        string
		wantErr     bool
	}{
		{"/srv/docs", "report.pdf", "/srv/docs/report.pdf", false},
		{"/srv/docs", "2024/q1/deck.pptx", "/srv/docs/2024/q1/deck.pptx", false},
		{"/srv/docs", "/memo.docx", "/srv/docs/memo.docx", false},
		{"/srv/docs/", "./a/./b.pdf", "/srv/docs/a/b.pdf", false},
		{"/srv/docs", "", "/srv/docs", false},
		{"/srv/docs", "..report..pdf", "/srv/docs/..report..pdf", false},
		{"/srv/docs", "../etc/passwd", "", true},
		{"/srv/docs", "a/../b.pdf", "", true},
		{"/srv/docs", "a/../../outside.pdf", "", true},
		{"/srv/docs", "/../../etc/shadow", "", true},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.base, tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrPathTraversal) {
				t.Errorf("Resolve(%q, %q) err = %v, want ErrPathTraversal", tt.base, tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, %v; want %q", tt.base, tt.input, got, err, tt.want)
		}
	}
}
