package docpipe

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// relationship is one entry of an OPC .rels part.
type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

func (r relationship) external() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// ooxmlPackage is an open OOXML zip container.
type ooxmlPackage struct {
	zr    *zip.ReadCloser
	files map[string]*zip.File
}

func openPackage(p string) (*ooxmlPackage, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	return &ooxmlPackage{zr: zr, files: files}, nil
}

func (p *ooxmlPackage) Close() error { return p.zr.Close() }

func (p *ooxmlPackage) has(name string) bool {
	_, ok := p.files[name]
	return ok
}

// read returns the full content of a part.
func (p *ooxmlPackage) read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%s not found in archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// rels returns the relationships of part in document order. A part without
// a .rels companion has none.
func (p *ooxmlPackage) rels(part string) ([]relationship, error) {
	name := path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	if !p.has(name) {
		return nil, nil
	}
	data, err := p.read(name)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Items []relationship `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc.Items, nil
}

// resolvePart resolves a relationship target against its source part.
func resolvePart(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join(path.Dir(source), target)
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// onOff reads a WordprocessingML toggle property: present means on unless
// w:val says otherwise.
func onOff(se xml.StartElement) bool {
	switch strings.ToLower(attr(se, "val")) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

// truthy reads a DrawingML boolean attribute.
func truthy(v string) bool {
	return v == "1" || v == "true"
}

const maxXMLDepth = 256

var errXMLDepth = fmt.Errorf("xml nesting depth exceeds %d", maxXMLDepth)

// depthGuard bounds element nesting in a token stream.
type depthGuard int

func (g *depthGuard) track(tok xml.Token) error {
	switch tok.(type) {
	case xml.StartElement:
		*g++
		if *g > maxXMLDepth {
			return errXMLDepth
		}
	case xml.EndElement:
		*g--
	}
	return nil
}
