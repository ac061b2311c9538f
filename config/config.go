// Package config loads docharvest settings: built-in defaults, then an
// optional YAML file, then a .env file, then the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/docharvest/dbopen"
	"github.com/hazyhaar/docharvest/docpipe"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the full docharvest configuration.
type Config struct {
	Extract  Extract  `yaml:"extract"`
	Database Database `yaml:"database"`
	Server   Server   `yaml:"server"`
	LogLevel string   `yaml:"log_level"`
}

// Extract configures where artifacts go and how tables are written.
type Extract struct {
	OutputDir   string `yaml:"output_dir"`
	ImageDir    string `yaml:"image_dir"` // relative paths resolve under OutputDir
	TableDir    string `yaml:"table_dir"`
	TableFormat string `yaml:"table_format"` // csv | xlsx
	MaxFileSize int64  `yaml:"max_file_size"`
}

// Database configures the relational sink.
type Database struct {
	Driver   string `yaml:"driver"` // sqlite | postgres
	Path     string `yaml:"path"`   // sqlite only
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`

	// CreateDatabase creates Name through the "postgres" maintenance
	// database when it is missing.
	CreateDatabase bool `yaml:"create_database"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr string `yaml:"addr"`
	Root string `yaml:"root"` // confines request paths; empty means none
}

// Default returns sane defaults.
func Default() *Config {
	return &Config{
		Extract: Extract{
			OutputDir:   "output",
			ImageDir:    "images",
			TableDir:    "tables",
			TableFormat: docpipe.TableCSV,
			MaxFileSize: 100 * 1024 * 1024,
		},
		Database: Database{
			Driver:  DriverSQLite,
			Path:    "docharvest.db",
			Host:    "localhost",
			Port:    5432,
			Name:    "docharvest",
			SSLMode: "disable",
		},
		Server:   Server{Addr: ":8080"},
		LogLevel: "info",
	}
}

// Load builds a Config. path is an optional YAML file; envFile is an
// optional dotenv file whose values apply unless the process environment
// already sets the same key. A missing envFile is not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"DB_DRIVER":    &c.Database.Driver,
		"DB_PATH":      &c.Database.Path,
		"DB_HOST":      &c.Database.Host,
		"DB_USER":      &c.Database.User,
		"DB_PASSWORD":  &c.Database.Password,
		"DB_NAME":      &c.Database.Name,
		"DB_SSLMODE":   &c.Database.SSLMode,
		"OUTPUT_DIR":   &c.Extract.OutputDir,
		"TABLE_FORMAT": &c.Extract.TableFormat,
		"LOG_LEVEL":    &c.LogLevel,
		"HTTP_ADDR":    &c.Server.Addr,
		"DOC_ROOT":     &c.Server.Root,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("DB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_PORT: %w", err)
		}
		c.Database.Port = port
	}
	if v, ok := lookup("DB_CREATE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DB_CREATE: %w", err)
		}
		c.Database.CreateDatabase = b
	}
	return nil
}

// Validate checks the extraction settings and log level.
func (c *Config) Validate() error {
	switch c.Extract.TableFormat {
	case docpipe.TableCSV, docpipe.TableXLSX:
	default:
		return fmt.Errorf("extract.table_format: unsupported %q (use csv or xlsx)", c.Extract.TableFormat)
	}
	if c.Extract.OutputDir == "" {
		return fmt.Errorf("extract.output_dir is required")
	}
	if c.Extract.MaxFileSize <= 0 {
		return fmt.Errorf("extract.max_file_size must be > 0")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Validate checks the database settings. Only commands that open the SQL
// store call it.
func (d Database) Validate() error {
	switch d.Driver {
	case DriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverPostgres:
		if d.Host == "" || d.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if d.Port <= 0 || d.Port > 65535 {
			return fmt.Errorf("database.port %d out of range", d.Port)
		}
	default:
		return fmt.Errorf("database.driver: unsupported %q (use sqlite or postgres)", d.Driver)
	}
	return nil
}

// DSN returns the postgres connection URL for the configured database.
func (d Database) DSN() string {
	return dbopen.PostgresDSN(d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// AdminDSN targets the "postgres" maintenance database on the same server.
func (d Database) AdminDSN() string {
	return dbopen.PostgresDSN(d.Host, d.Port, d.User, d.Password, "postgres", d.SSLMode)
}

// ResolvedImageDir returns the image directory, resolved under OutputDir when relative.
func (e Extract) ResolvedImageDir() string { return e.resolve(e.ImageDir) }

// ResolvedTableDir returns the table directory, resolved under OutputDir when relative.
func (e Extract) ResolvedTableDir() string { return e.resolve(e.TableDir) }

func (e Extract) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(e.OutputDir, dir)
}

// Pipeline converts the extraction settings into a docpipe.Config.
func (c *Config) Pipeline(logger *slog.Logger) docpipe.Config {
	return docpipe.Config{
		MaxFileSize: c.Extract.MaxFileSize,
		TableFormat: c.Extract.TableFormat,
		ImageDir:    c.Extract.ResolvedImageDir(),
		TableDir:    c.Extract.ResolvedTableDir(),
		Root:        c.Server.Root,
		Logger:      logger,
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
// The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level: unsupported %q", s)
}
