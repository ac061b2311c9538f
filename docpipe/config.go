package docpipe

import "log/slog"

// Table artifact formats.
const (
	TableCSV  = "csv"
	TableXLSX = "xlsx"
)

const defaultMaxFileSize = 100 * 1024 * 1024

// Config configures loading and extraction.
type Config struct {
	// MaxFileSize is the maximum file size to load (default: 100 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// TableFormat is "csv" (default) or "xlsx".
	TableFormat string `json:"table_format" yaml:"table_format"`

	// ImageDir and TableDir are where Pipeline.Extract writes artifacts.
	// The low-level Extractor takes its directories per call instead.
	ImageDir string `json:"image_dir" yaml:"image_dir"`
	TableDir string `json:"table_dir" yaml:"table_dir"`

	// Root confines paths received over HTTP and MCP; they resolve
	// relative to it. Empty leaves them as given.
	Root string `json:"root" yaml:"root"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = defaultMaxFileSize
	}
	if c.TableFormat == "" {
		c.TableFormat = TableCSV
	}
	if c.ImageDir == "" {
		c.ImageDir = "output_images"
	}
	if c.TableDir == "" {
		c.TableDir = "output_tables"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
