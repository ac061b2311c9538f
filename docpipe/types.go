package docpipe

// Kind identifies a supported document type. It is resolved once from the
// file extension and drives every later dispatch.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindPPTX Kind = "pptx"
)

// Ext returns the dotted, lower-case file extension for the kind.
func (k Kind) Ext() string { return "." + string(k) }

// SupportedKinds returns every kind a Loader exists for.
func SupportedKinds() []Kind {
	return []Kind{KindPDF, KindDOCX, KindPPTX}
}

// FontStyles counts styled runs. Both keys are always present once serialized.
type FontStyles struct {
	Bold   int `json:"bold"`
	Italic int `json:"italic"`
}

func (f *FontStyles) add(o FontStyles) {
	f.Bold += o.Bold
	f.Italic += o.Italic
}

// TextRecord is one page (PDF), non-empty paragraph (DOCX) or slide (PPTX).
// PageNumber is 1-based and monotonic within a document.
type TextRecord struct {
	PageNumber int        `json:"page_number"`
	Text       string     `json:"text"`
	Headings   []string   `json:"headings"`
	FontStyles FontStyles `json:"font_styles"`
}

// LinkRecord is a hyperlink found in the document. DOCX links carry no page.
type LinkRecord struct {
	URL        string  `json:"url"`
	LinkedText *string `json:"linked_text"`
	PageNumber *int    `json:"page_number"`
}

// ImageRecord points at an image file written during extraction.
type ImageRecord struct {
	Path       string `json:"image_path"`
	PageNumber *int   `json:"page_number"`
}

// TableRecord points at a header-less table file written during extraction.
type TableRecord struct {
	Path       string `json:"path"`
	PageNumber *int   `json:"page_number,omitempty"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
}

// Result bundles the four extraction views of one document.
type Result struct {
	File   string        `json:"file"`
	Kind   Kind          `json:"kind"`
	Text   []TextRecord  `json:"text"`
	Links  []LinkRecord  `json:"links"`
	Images []ImageRecord `json:"images"`
	Tables []TableRecord `json:"tables"`
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
