package docpipe

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// headingMinLen is the length a line must exceed to count as a heading
// regardless of case.
const headingMinLen = 30

// ExtractHeadings returns, in order and with duplicates, every line of text
// that is entirely upper-case or longer than headingMinLen characters. The
// returned lines are trimmed.
func ExtractHeadings(text string) []string {
	headings := []string{}
	for _, line := range splitLines(text) {
		if isUpper(line) || utf8.RuneCountInString(line) > headingMinLen {
			headings = append(headings, strings.TrimSpace(line))
		}
	}
	return headings
}

// isUpper reports whether s has at least one cased rune and no lower-case
// or title-case rune.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

// splitLines splits on every line boundary: \n, \r, \r\n, \v, \f, the
// file/group/record separators, NEL and the Unicode line and paragraph
// separators. A trailing boundary does not produce an empty last line.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isLineBreak(r) {
			i += size
			continue
		}
		lines = append(lines, s[start:i])
		i += size
		if r == '\r' && i < len(s) && s[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}
