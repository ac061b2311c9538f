package docpipe

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// --- zip helpers ---

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// --- DOCX ---

const (
	wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
	rNS = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

	relHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
)

func docxBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wNS + ` ` + rNS + `><w:body>` + body + `</w:body></w:document>`
}

func docxPara(runs ...string) string {
	return "<w:p>" + strings.Join(runs, "") + "</w:p>"
}

func docxRunXML(text, props string) string {
	if props != "" {
		props = "<w:rPr>" + props + "</w:rPr>"
	}
	return `<w:r>` + props + `<w:t xml:space="preserve">` + text + `</w:t></w:r>`
}

type testRel struct {
	id, typ, target string
	external        bool
}

func relsXML(rels ...testRel) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, r := range rels {
		mode := ""
		if r.external {
			mode = ` TargetMode="External"`
		}
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s" Target="%s"%s/>`, r.id, r.typ, r.target, mode)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

// buildDOCX writes a .docx with the given body markup, relationships and
// extra parts.
func buildDOCX(t *testing.T, dir, name, body string, rels []testRel, parts map[string]string) string {
	t.Helper()
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   docxBody(body),
	}
	if rels != nil {
		files["word/_rels/document.xml.rels"] = relsXML(rels...)
	}
	for k, v := range parts {
		files[k] = v
	}
	path := filepath.Join(dir, name)
	writeZip(t, path, files)
	return path
}

// --- PPTX ---

const (
	pNS = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	aNS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
)

func slideXML(shapes ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:sld ` + pNS + ` ` + aNS + ` ` + rNS + `><p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		strings.Join(shapes, "") +
		`</p:spTree></p:cSld></p:sld>`
}

// textShape builds a p:sp whose paragraphs are given as run markup.
func textShape(id int, paras ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Shape %d"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/>`, id, id)
	sb.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, p := range paras {
		sb.WriteString("<a:p>" + p + "</a:p>")
	}
	sb.WriteString(`</p:txBody></p:sp>`)
	return sb.String()
}

func slideRun(text, attrs, inner string) string {
	return `<a:r><a:rPr lang="en-US"` + attrs + `>` + inner + `</a:rPr><a:t>` + text + `</a:t></a:r>`
}

func picShape(id int, rid string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr/></p:pic>`, id, id, rid)
}

func tableShape(id int, rows [][]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Table %d"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`, id, id)
	sb.WriteString(`<p:xfrm/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl><a:tblGrid/>`)
	for _, row := range rows {
		sb.WriteString(`<a:tr h="370840">`)
		for _, c := range row {
			sb.WriteString(`<a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>` + c + `</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc>`)
		}
		sb.WriteString(`</a:tr>`)
	}
	sb.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
	return sb.String()
}

type testSlide struct {
	file string // slides/slideN.xml
	xml  string
	rels []testRel
}

// buildPPTX writes a .pptx whose presentation lists slides in the given order.
func buildPPTX(t *testing.T, dir, name string, slides []testSlide, parts map[string]string) string {
	t.Helper()
	var ids strings.Builder
	var presRels []testRel
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
	}
	for i, s := range slides {
		rid := fmt.Sprintf("rId%d", i+10)
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="%s"/>`, 256+i, rid)
		presRels = append(presRels, testRel{id: rid, typ: relSlide, target: s.file})
		files["ppt/"+s.file] = s.xml
		if s.rels != nil {
			files["ppt/slides/_rels/"+filepath.Base(s.file)+".rels"] = relsXML(s.rels...)
		}
	}
	files["ppt/presentation.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:presentation ` + pNS + ` ` + rNS + `><p:sldIdLst>` + ids.String() + `</p:sldIdLst></p:presentation>`
	files["ppt/_rels/presentation.xml.rels"] = relsXML(presRels...)
	for k, v := range parts {
		files[k] = v
	}
	path := filepath.Join(dir, name)
	writeZip(t, path, files)
	return path
}

// --- PDF ---

// pdfBuilder assembles a PDF with exact xref offsets.
type pdfBuilder struct {
	objs map[int]string
	next int
}

func newPDFBuilder() *pdfBuilder {
	return &pdfBuilder{objs: map[int]string{}, next: 1}
}

func (b *pdfBuilder) reserve() int {
	n := b.next
	b.next++
	return n
}

func (b *pdfBuilder) set(n int, body string) { b.objs[n] = body }

func (b *pdfBuilder) add(body string) int {
	n := b.reserve()
	b.set(n, body)
	return n
}

func (b *pdfBuilder) addStream(dict, data string) int {
	return b.add(fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data))
}

func (b *pdfBuilder) build(root int) []byte {
	var s strings.Builder
	s.WriteString("%PDF-1.4\n")
	offsets := make([]int, b.next)
	for n := 1; n < b.next; n++ {
		offsets[n] = s.Len()
		fmt.Fprintf(&s, "%d 0 obj\n%s\nendobj\n", n, b.objs[n])
	}
	xref := s.Len()
	fmt.Fprintf(&s, "xref\n0 %d\n0000000000 65535 f \n", b.next)
	for n := 1; n < b.next; n++ {
		fmt.Fprintf(&s, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&s, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", b.next, root, xref)
	return []byte(s.String())
}

type testLink struct {
	uri      string
	contents string
}

type testPage struct {
	content string
	fonts   map[string]string // resource name -> BaseFont
	links   []testLink
	jpeg    []byte // drawn as /Im1 when set
}

func buildPDF(pages ...testPage) []byte {
	b := newPDFBuilder()
	catalog := b.reserve()
	pagesObj := b.reserve()

	var kids []string
	for _, p := range pages {
		fonts := p.fonts
		if fonts == nil {
			fonts = map[string]string{"F1": "Helvetica"}
		}
		names := make([]string, 0, len(fonts))
		for n := range fonts {
			names = append(names, n)
		}
		sort.Strings(names)
		var fontEntries []string
		for _, n := range names {
			f := b.add(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s >>", fonts[n]))
			fontEntries = append(fontEntries, fmt.Sprintf("/%s %d 0 R", n, f))
		}
		resources := "/Font << " + strings.Join(fontEntries, " ") + " >>"

		content := p.content
		if p.jpeg != nil {
			img := b.addStream("/Type /XObject /Subtype /Image /Width 8 /Height 8 /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /DCTDecode", string(p.jpeg))
			resources += fmt.Sprintf(" /XObject << /Im1 %d 0 R >>", img)
			content += "\nq 100 0 0 100 72 500 cm /Im1 Do Q"
		}
		contentObj := b.addStream("", content)

		var annots []string
		for _, l := range p.links {
			dict := fmt.Sprintf("<< /Type /Annot /Subtype /Link /Rect [0 0 100 20] /A << /S /URI /URI (%s) >>", l.uri)
			if l.contents != "" {
				dict += fmt.Sprintf(" /Contents (%s)", l.contents)
			}
			annots = append(annots, fmt.Sprintf("%d 0 R", b.add(dict+" >>")))
		}

		page := fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << %s >>",
			pagesObj, contentObj, resources)
		if len(annots) > 0 {
			page += " /Annots [" + strings.Join(annots, " ") + "]"
		}
		kids = append(kids, fmt.Sprintf("%d 0 R", b.add(page+" >>")))
	}

	b.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj))
	b.set(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids)))
	return b.build(catalog)
}

// buildRealTextPDF creates a one-page PDF showing text on a single line.
func buildRealTextPDF(text string) []byte {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)
	return buildPDF(testPage{content: "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"})
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openTest(t *testing.T, path string) *Extractor {
	t.Helper()
	doc, err := Open(path, Config{})
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	ex := NewExtractor(doc, Config{})
	t.Cleanup(func() { ex.Close() })
	return ex
}
