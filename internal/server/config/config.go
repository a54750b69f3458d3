// Package config handles configuration for the gallery server: defaults, an
// optional JSON or YAML file overlay, command-line flags and validation.
package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/filex"
	"github.com/dmitrijs2005/gophgallery/internal/timex"
)

// Storage structure policies.
const (
	StructureFlat   = "flat"
	StructureByDate = "by-date"
	StructureByType = "by-type"
)

// Thumbnail output formats and fit strategies.
const (
	FormatAuto = "auto"
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWEBP = "webp"

	FitCover   = "cover"
	FitContain = "contain"
	FitInside  = "inside"
	FitOutside = "outside"
	FitFill    = "fill"
)

// Config holds runtime settings for the gallery server.
type Config struct {
	HTTPAddr        string         `json:"http_addr" yaml:"http_addr" validate:"required"`
	PublicDomain    string         `json:"public_domain" yaml:"public_domain" validate:"required,url"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log       Log       `json:"log" yaml:"log"`
	Database  Database  `json:"database" yaml:"database"`
	Upload    Upload    `json:"upload" yaml:"upload"`
	Storage   Storage   `json:"storage" yaml:"storage"`
	Thumbnail Thumbnail `json:"thumbnail" yaml:"thumbnail"`
	Mirror    Mirror    `json:"mirror" yaml:"mirror"`
}

type Log struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=auto json text"`
}

// Database selects the relational backend for albums and the artifact
// registry. sqlite is embedded; postgres goes through pgx.
type Database struct {
	Driver string `json:"driver" yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `json:"dsn" yaml:"dsn" validate:"required"`
}

// AllowedTypes toggles which content classes may be uploaded.
type AllowedTypes struct {
	Images    bool `json:"images" yaml:"images"`
	Documents bool `json:"documents" yaml:"documents"`
	Archives  bool `json:"archives" yaml:"archives"`
	Other     bool `json:"other" yaml:"other"`
}

type Upload struct {
	AllowedTypes      AllowedTypes `json:"allowed_types" yaml:"allowed_types"`
	MinSize           int64        `json:"min_size" yaml:"min_size" validate:"gte=0"`
	MaxSize           int64        `json:"max_size" yaml:"max_size" validate:"gtefield=MinSize"`
	FilenameTemplate  string       `json:"filename_template" yaml:"filename_template" validate:"required_unless=PreserveFilenames true"`
	PreserveFilenames bool         `json:"preserve_filenames" yaml:"preserve_filenames"`
}

type Permissions struct {
	Files       filex.Mode `json:"files" yaml:"files"`
	Directories filex.Mode `json:"directories" yaml:"directories"`
}

type Storage struct {
	Path            string      `json:"path" yaml:"path" validate:"required"`
	Structure       string      `json:"structure" yaml:"structure" validate:"oneof=flat by-date by-type"`
	FolderPattern   string      `json:"folder_pattern" yaml:"folder_pattern"`
	Timezone        string      `json:"timezone" yaml:"timezone" validate:"timezone"`
	Permissions     Permissions `json:"permissions" yaml:"permissions"`
	ReplaceExisting bool        `json:"replace_existing" yaml:"replace_existing"`
	ThumbnailsPath  string      `json:"thumbnails_path" yaml:"thumbnails_path" validate:"required"`
}

type Thumbnail struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	MaxWidth       int     `json:"max_width" yaml:"max_width" validate:"gt=0"`
	MaxHeight      int     `json:"max_height" yaml:"max_height" validate:"gt=0"`
	Quality        int     `json:"quality" yaml:"quality" validate:"gte=1,lte=100"`
	Format         string  `json:"format" yaml:"format" validate:"oneof=auto jpeg png webp"`
	Fit            string  `json:"fit" yaml:"fit" validate:"oneof=cover contain inside outside fill"`
	Background     string  `json:"background" yaml:"background" validate:"omitempty,hexcolor"`
	PreserveFormat bool    `json:"preserve_format" yaml:"preserve_format"`
	Progressive    bool    `json:"progressive" yaml:"progressive"`
	Blur           float64 `json:"blur" yaml:"blur" validate:"gte=0"`
	Sharpen        float64 `json:"sharpen" yaml:"sharpen" validate:"gte=0"`
	Metadata       bool    `json:"metadata" yaml:"metadata"`
}

// Mirror configures the optional copy of every stored artifact to an
// S3-compatible bucket.
type Mirror struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Bucket    string `json:"bucket" yaml:"bucket" validate:"required_if=Enabled true"`
	Region    string `json:"region" yaml:"region" validate:"required_if=Enabled true"`
	Endpoint  string `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Prefix    string `json:"prefix" yaml:"prefix"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.PublicDomain = "http://localhost:8080"
	c.ShutdownTimeout = timex.Duration{Duration: 10 * time.Second}

	c.Log = Log{Level: "info", Format: "auto"}
	c.Database = Database{Driver: "sqlite", DSN: "gallery.db"}

	c.Upload = Upload{
		AllowedTypes:     AllowedTypes{Images: true, Documents: true, Archives: true},
		MinSize:          1,
		MaxSize:          50 << 20,
		FilenameTemplate: "{timestamp}-{random}",
	}

	c.Storage = Storage{
		Path:           "uploads",
		Structure:      StructureFlat,
		FolderPattern:  "YYYY/MM/DD",
		Timezone:       "UTC",
		Permissions:    Permissions{Files: filex.Mode(0o644), Directories: filex.Mode(0o755)},
		ThumbnailsPath: "thumbs",
	}

	c.Thumbnail = Thumbnail{
		Enabled:        true,
		MaxWidth:       300,
		MaxHeight:      300,
		Quality:        80,
		Format:         FormatAuto,
		Fit:            FitCover,
		Background:     "#ffffff",
		PreserveFormat: true,
		Progressive:    true,
	}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
