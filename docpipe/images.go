package docpipe

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageMeta describes an extracted image file.
type ImageMeta struct {
	Size   int64
	Width  int
	Height int
	Format string
}

// Resolution formats the pixel dimensions as "W x H".
func (m ImageMeta) Resolution() string {
	return fmt.Sprintf("%d x %d", m.Width, m.Height)
}

// InspectImage reads the image at path and returns its metadata and bytes.
// Dimensions are zero when the format is not decodable.
func InspectImage(path string) (ImageMeta, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageMeta{}, nil, err
	}
	meta := ImageMeta{Size: int64(len(data))}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		meta.Width, meta.Height, meta.Format = cfg.Width, cfg.Height, format
	}
	return meta, data, nil
}

func writeImage(dir, name string, data []byte) (string, error) {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return p, nil
}

// toPNG re-encodes any decodable raster image as PNG.
func toPNG(data []byte) ([]byte, bool) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}
