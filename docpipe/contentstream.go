package docpipe

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// Content stream values. Numbers are float64, arrays are []any.
type (
	csOp     string
	csName   string
	csString []byte
	csDict   struct{}
)

// csParser tokenizes a PDF content stream into operands and operators.
type csParser struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (p *csParser) skipSpace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch {
		case isPDFSpace(c):
			p.pos++
		case c == '%':
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
		default:
			return
		}
	}
}

// next returns the next value or operator, or false at end of stream.
func (p *csParser) next() (any, bool) {
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, false
		}
		c := p.data[p.pos]
		switch {
		case c == '(':
			return p.literal(), true
		case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
			p.pos += 2
			p.skipDict()
			return csDict{}, true
		case c == '<':
			return p.hexString(), true
		case c == '[':
			p.pos++
			return p.array(), true
		case c == '/':
			p.pos++
			return csName(p.word()), true
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			return p.number(), true
		case isPDFDelim(c):
			// Stray closer or PostScript brace.
			p.pos++
			continue
		}

		op := p.word()
		if op == "BI" {
			p.skipInlineImage()
			continue
		}
		return csOp(op), true
	}
}

func (p *csParser) word() string {
	start := p.pos
	for p.pos < len(p.data) && !isPDFSpace(p.data[p.pos]) && !isPDFDelim(p.data[p.pos]) {
		p.pos++
	}
	if start == p.pos && p.pos < len(p.data) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

func (p *csParser) number() float64 {
	start := p.pos
	p.pos++
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		p.pos++
	}
	f, err := strconv.ParseFloat(string(p.data[start:p.pos]), 64)
	if err != nil {
		return 0
	}
	return f
}

// literal reads a balanced (...) string, honoring escapes.
func (p *csParser) literal() csString {
	depth := 0
	start := p.pos + 1
	i := p.pos
	for ; i < len(p.data); i++ {
		switch p.data[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			break
		}
	}
	end := min(i, len(p.data))
	p.pos = min(i+1, len(p.data))
	return csString(decodePDFString(p.data[start:end]))
}

func (p *csParser) hexString() csString {
	p.pos++
	var digits []byte
	for p.pos < len(p.data) && p.data[p.pos] != '>' {
		if c := p.data[p.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		p.pos++
	}
	p.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	b, err := hex.DecodeString(string(digits))
	if err != nil {
		return nil
	}
	return csString(b)
}

func (p *csParser) array() []any {
	var arr []any
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return arr
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr
		}
		v, ok := p.next()
		if !ok {
			return arr
		}
		if _, isOp := v.(csOp); isOp {
			continue
		}
		arr = append(arr, v)
	}
}

func (p *csParser) skipDict() {
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return
		}
		if p.data[p.pos] == '>' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '>' {
			p.pos += 2
			return
		}
		if _, ok := p.next(); !ok {
			return
		}
	}
}

// skipInlineImage jumps past the ID ... EI payload of an inline image.
func (p *csParser) skipInlineImage() {
	for {
		v, ok := p.next()
		if !ok {
			return
		}
		if op, isOp := v.(csOp); isOp && op == "ID" {
			break
		}
	}
	p.pos++
	for i := p.pos; i+1 < len(p.data); i++ {
		if p.data[i] != 'E' || p.data[i+1] != 'I' {
			continue
		}
		if i > 0 && !isPDFSpace(p.data[i-1]) {
			continue
		}
		if i+2 < len(p.data) && !isPDFSpace(p.data[i+2]) && !isPDFDelim(p.data[i+2]) {
			continue
		}
		p.pos = i + 2
		return
	}
	p.pos = len(p.data)
}

// decodePDFString handles PDF literal string escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		case '\r':
			// Line continuation.
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			// Octal escape (e.g. \040 for space).
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// decodeTextBytes turns shown string bytes into text. UTF-16BE with BOM and
// valid UTF-8 are honored; anything else is read as Latin-1.
func decodeTextBytes(b []byte) string {
	var s string
	switch {
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		s = string(utf16.Decode(u))
	case utf8.Valid(b):
		s = string(b)
	default:
		r := make([]rune, len(b))
		for i, c := range b {
			r[i] = rune(c)
		}
		s = string(r)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// kerningSpace is the TJ displacement, in thousandths of an em, beyond
// which an adjustment reads as a word gap.
const kerningSpace = 200

// sameRowTolerance is the baseline drift still counted as the same row.
const sameRowTolerance = 1.0

// textLayout replays text positioning operators and groups shown strings
// into rows (same baseline) and cells (separated by a horizontal move).
type textLayout struct {
	rows [][]string
	row  []string
	cell strings.Builder

	lineX, lineY float64
	rowY         float64
	leading      float64

	pendingRow  bool
	pendingCell bool
}

// layoutText parses a content stream and returns its text as rows of cells.
func layoutText(data []byte) [][]string {
	l := &textLayout{pendingRow: true}
	p := &csParser{data: data}
	var stack []any
	for {
		v, ok := p.next()
		if !ok {
			break
		}
		op, isOp := v.(csOp)
		if !isOp {
			stack = append(stack, v)
			continue
		}
		l.apply(string(op), stack)
		stack = stack[:0]
	}
	l.flushRow()
	return l.rows
}

func (l *textLayout) apply(op string, args []any) {
	switch op {
	case "BT":
		l.lineX, l.lineY = 0, 0
	case "Td":
		if tx, ty, ok := twoNums(args); ok {
			l.moveTo(l.lineX+tx, l.lineY+ty, false)
		}
	case "TD":
		if tx, ty, ok := twoNums(args); ok {
			l.leading = -ty
			l.moveTo(l.lineX+tx, l.lineY+ty, false)
		}
	case "Tm":
		if len(args) >= 6 {
			e, _ := args[len(args)-2].(float64)
			f, _ := args[len(args)-1].(float64)
			l.moveTo(e, f, false)
		}
	case "TL":
		if len(args) >= 1 {
			l.leading, _ = args[len(args)-1].(float64)
		}
	case "T*":
		l.nextLine()
	case "Tj":
		if s, ok := lastString(args); ok {
			l.show(decodeTextBytes(s))
		}
	case "'", "\"":
		l.nextLine()
		if s, ok := lastString(args); ok {
			l.show(decodeTextBytes(s))
		}
	case "TJ":
		if len(args) == 0 {
			return
		}
		arr, _ := args[len(args)-1].([]any)
		for _, el := range arr {
			switch v := el.(type) {
			case csString:
				l.show(decodeTextBytes(v))
			case float64:
				if v < -kerningSpace {
					l.show(" ")
				}
			}
		}
	}
}

func (l *textLayout) nextLine() {
	l.moveTo(l.lineX, l.lineY-l.leading, true)
}

func (l *textLayout) moveTo(x, y float64, newRow bool) {
	l.lineX, l.lineY = x, y
	if newRow || l.pendingRow || abs(y-l.rowY) > sameRowTolerance {
		l.pendingRow = true
		l.rowY = y
		return
	}
	l.pendingCell = true
}

func (l *textLayout) show(s string) {
	if s == "" {
		return
	}
	switch {
	case l.pendingRow:
		l.flushRow()
	case l.pendingCell:
		l.flushCell()
	}
	l.pendingRow, l.pendingCell = false, false
	l.cell.WriteString(s)
}

func (l *textLayout) flushCell() {
	if t := strings.Join(strings.Fields(l.cell.String()), " "); t != "" {
		l.row = append(l.row, t)
	}
	l.cell.Reset()
}

func (l *textLayout) flushRow() {
	l.flushCell()
	if len(l.row) > 0 {
		l.rows = append(l.rows, l.row)
	}
	l.row = nil
}

func twoNums(args []any) (float64, float64, bool) {
	if len(args) < 2 {
		return 0, 0, false
	}
	a, ok1 := args[len(args)-2].(float64)
	b, ok2 := args[len(args)-1].(float64)
	return a, b, ok1 && ok2
}

func lastString(args []any) ([]byte, bool) {
	if len(args) == 0 {
		return nil, false
	}
	s, ok := args[len(args)-1].(csString)
	return s, ok
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// joinRows renders rows as lines of space-separated cells.
func joinRows(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, strings.Join(r, " "))
	}
	return strings.Join(lines, "\n")
}

// detectTables returns runs of two or more consecutive rows that share the
// same cell count of at least two.
func detectTables(rows [][]string) [][][]string {
	var (
		tables [][][]string
		block  [][]string
	)
	flush := func() {
		if len(block) >= 2 {
			tables = append(tables, block)
		}
		block = nil
	}
	for _, r := range rows {
		if len(r) >= 2 && (len(block) == 0 || len(r) == len(block[0])) {
			block = append(block, r)
			continue
		}
		flush()
		if len(r) >= 2 {
			block = append(block, r)
		}
	}
	flush()
	return tables
}
