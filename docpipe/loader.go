package docpipe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Handle is an opened document. The set of implementations is closed:
// *PDFDocument, *DOCXDocument and *PPTXDocument. A handle is owned by one
// Extractor for its lifetime and is never shared.
type Handle interface {
	Kind() Kind
	Path() string
	Close() error

	strategy
}

// Loader validates and opens documents of one kind.
type Loader interface {
	Kind() Kind
	// Validate reports whether path carries the loader's extension. No I/O.
	Validate(path string) bool
	// Load opens path, failing with ErrInvalidFormat, ErrTooLarge or ErrCorrupted.
	Load(path string) (Handle, error)
}

// PDFLoader opens .pdf files with pdfcpu.
type PDFLoader struct{ MaxFileSize int64 }

func (PDFLoader) Kind() Kind { return KindPDF }
func (PDFLoader) Validate(path string) bool { return hasExt(path, KindPDF) }
func (l PDFLoader) Load(path string) (Handle, error) {
	return load(l, path, l.MaxFileSize, func(p string) (Handle, error) {
		d, err := OpenPDF(p)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// DOCXLoader opens .docx files.
type DOCXLoader struct{ MaxFileSize int64 }

func (DOCXLoader) Kind() Kind { return KindDOCX }
func (DOCXLoader) Validate(path string) bool { return hasExt(path, KindDOCX) }
func (l DOCXLoader) Load(path string) (Handle, error) {
	return load(l, path, l.MaxFileSize, func(p string) (Handle, error) {
		d, err := OpenDOCX(p)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// PPTXLoader opens .pptx files.
type PPTXLoader struct{ MaxFileSize int64 }

func (PPTXLoader) Kind() Kind { return KindPPTX }
func (PPTXLoader) Validate(path string) bool { return hasExt(path, KindPPTX) }
func (l PPTXLoader) Load(path string) (Handle, error) {
	return load(l, path, l.MaxFileSize, func(p string) (Handle, error) {
		d, err := OpenPPTX(p)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// LoaderFor returns the loader for kind.
func LoaderFor(kind Kind, cfg Config) (Loader, error) {
	cfg.defaults()
	switch kind {
	case KindPDF:
		return PDFLoader{MaxFileSize: cfg.MaxFileSize}, nil
	case KindDOCX:
		return DOCXLoader{MaxFileSize: cfg.MaxFileSize}, nil
	case KindPPTX:
		return PPTXLoader{MaxFileSize: cfg.MaxFileSize}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, kind)
	}
}

// Detect returns the document kind based on the file extension.
func Detect(path string) (Kind, error) {
	for _, k := range SupportedKinds() {
		if hasExt(path, k) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Open detects the kind of path and loads it with the matching loader.
func Open(path string, cfg Config) (Handle, error) {
	kind, err := Detect(path)
	if err != nil {
		return nil, err
	}
	l, err := LoaderFor(kind, cfg)
	if err != nil {
		return nil, err
	}
	return l.Load(path)
}

func hasExt(path string, k Kind) bool {
	return strings.HasSuffix(strings.ToLower(path), k.Ext())
}

func load(l Loader, path string, maxSize int64, open func(string) (Handle, error)) (Handle, error) {
	if !l.Validate(path) {
		return nil, &LoadError{Kind: l.Kind(), Path: path, Err: ErrInvalidFormat}
	}
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Kind: l.Kind(), Path: path, Err: ErrCorrupted, Cause: err}
	}
	if info.Size() > maxSize {
		return nil, &LoadError{
			Kind:  l.Kind(),
			Path:  path,
			Err:   ErrTooLarge,
			Cause: fmt.Errorf("%d bytes (max %d)", info.Size(), maxSize),
		}
	}
	h, err := open(path)
	if err != nil {
		return nil, &LoadError{Kind: l.Kind(), Path: path, Err: ErrCorrupted, Cause: err}
	}
	return h, nil
}
