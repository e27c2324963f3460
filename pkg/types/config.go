// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litreview/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
}

// StoreConfig holds settings for the SQLite paper store.
type StoreConfig struct {
	// Path is the SQLite database file (default data/literature_review.db).
	Path string `json:"path" yaml:"path" mapstructure:"path" validate:"required"`
}

// ListFormat selects the acquisition list encoding.
type ListFormat string

const (
	ListCSV  ListFormat = "csv"
	ListYAML ListFormat = "yaml"
	ListJSON ListFormat = "json"
)

// AcquisitionConfig holds settings for the PDF acquisition stage.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PDFDir is the watched directory the human downloads PDFs into.
	PDFDir string `json:"pdf_dir" yaml:"pdf_dir" mapstructure:"pdf_dir" validate:"required"`

	// ListPath is where the acquisition list is written (default data/TO_ACQUIRE.csv).
	ListPath string `json:"list_path" yaml:"list_path" mapstructure:"list_path" validate:"required"`

	// ListFormat is csv, yaml, or json.
	ListFormat ListFormat `json:"list_format" yaml:"list_format" mapstructure:"list_format" validate:"oneof=csv yaml json"`

	// Extensions lists accepted file extensions, compared case-sensitively
	// (default [".pdf"]).
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions" validate:"min=1,dive,startswith=."`

	// DownloadDelay is the delay between consecutive open-access downloads.
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay" validate:"gte=0"`

	// ResolveOpenAccess looks up a missing pdf_url on OpenAlex by DOI
	// before fetching.
	ResolveOpenAccess bool `json:"resolve_open_access" yaml:"resolve_open_access" mapstructure:"resolve_open_access"`

	// Mailto is sent to OpenAlex to join its polite pool.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty" mapstructure:"mailto" validate:"omitempty,email"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is trace, debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn warning error"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=json console pretty"`

	// Output is stdout or stderr.
	Output string `json:"output" yaml:"output" mapstructure:"output" validate:"oneof=stdout stderr"`

	// AddSource adds the caller file and line to each entry.
	AddSource bool `json:"add_source" yaml:"add_source" mapstructure:"add_source"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Namespace prefixes every metric name (default litreview).
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace" validate:"required"`
}

// ServerConfig holds settings for the read-side HTTP API.
type ServerConfig struct {
	Address      string        `json:"address" yaml:"address" mapstructure:"address" validate:"required"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout" validate:"gt=0"`
}

// ReportFormat selects the PRISMA flow report encoding.
type ReportFormat string

const (
	ReportText     ReportFormat = "text"
	ReportMarkdown ReportFormat = "markdown"
	ReportCSV      ReportFormat = "csv"
	ReportYAML     ReportFormat = "yaml"
)

// ReportConfig holds settings for the PRISMA flow report.
type ReportConfig struct {
	// OutputDir receives report files when no explicit output path is given.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir" validate:"required"`
}

// WatchConfig holds settings for watch mode.
type WatchConfig struct {
	// Debounce is the quiet period after the last filesystem event before
	// an ingestion pass starts.
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce" validate:"gt=0"`
}

// Config groups all stage configurations. It is built once at startup and
// passed to each component explicitly.
type Config struct {
	Store       StoreConfig       `json:"store" yaml:"store" mapstructure:"store"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging" mapstructure:"logging"`
	Metrics     MetricsConfig     `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Server      ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
	Report      ReportConfig      `json:"report" yaml:"report" mapstructure:"report"`
	Watch       WatchConfig       `json:"watch" yaml:"watch" mapstructure:"watch"`
}
