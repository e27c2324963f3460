// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves litreview configuration. Environment variables
// (LITREVIEW_*, including those loaded from a .env file) override the YAML
// config file, which overrides defaults. Secrets only fill keys that are
// otherwise empty.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/internal/secrets"
	"github.com/pdiddy/litreview/pkg/types"
)

// EnvPrefix prefixes every environment override, e.g.
// LITREVIEW_ACQUISITION_PDF_DIR.
const EnvPrefix = "LITREVIEW"

// configName is the config file base name searched for in . and
// ~/.config/litreview/.
const configName = "litreview"

// Options locate the configuration sources.
type Options struct {
	// ConfigFile is an explicit config path; empty searches the defaults.
	ConfigFile string

	// EnvFile is a dotenv file loaded into the process environment. A
	// missing file is ignored.
	EnvFile string

	// SecretsDir holds one-secret-per-file credentials.
	SecretsDir string
}

// Sources reports what New loaded, for the caller to log once a logger
// exists.
type Sources struct {
	ConfigFile string
	EnvFile    string
	Secrets    []string
	Warnings   []error
}

// New returns a viper instance with defaults, environment binding, and
// any config file, dotenv file, and secrets from opts applied.
func New(opts Options) (*viper.Viper, Sources, error) {
	var src Sources

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err == nil {
			src.EnvFile = opts.EnvFile
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, src, fmt.Errorf("loading env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, src, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		src.ConfigFile = v.ConfigFileUsed()
	}

	if opts.SecretsDir != "" {
		s, err := secrets.Load(opts.SecretsDir)
		if err != nil {
			src.Warnings = append(src.Warnings, err)
		}
		applySecrets(v, s)
		for name := range s {
			src.Secrets = append(src.Secrets, name)
		}
	}
	return v, src, nil
}

// secretKeys maps secret file names to the config keys they fill.
var secretKeys = map[string]string{
	secrets.OpenAlexEmail: "acquisition.mailto",
}

// applySecrets fills config keys from secrets unless a config file or the
// environment already set them.
func applySecrets(v *viper.Viper, s map[string]string) {
	for name, key := range secretKeys {
		if value, ok := s[name]; ok && v.GetString(key) == "" {
			v.Set(key, value)
		}
	}
}

// SetDefaults registers the default value of every config key. Keys must
// be registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.path", "data/literature_review.db")

	v.SetDefault("acquisition.pdf_dir", "data/pdfs")
	v.SetDefault("acquisition.list_path", "data/TO_ACQUIRE.csv")
	v.SetDefault("acquisition.list_format", string(types.ListCSV))
	v.SetDefault("acquisition.extensions", []string{".pdf"})
	v.SetDefault("acquisition.download_delay", "1s")
	v.SetDefault("acquisition.timeout", "60s")
	v.SetDefault("acquisition.user_agent", "litreview/0.1")
	v.SetDefault("acquisition.resolve_open_access", true)
	v.SetDefault("acquisition.mailto", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.add_source", false)

	v.SetDefault("metrics.namespace", "litreview")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("report.output_dir", "data/reports")

	v.SetDefault("watch.debounce", "2s")
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	vd := validator.New(validator.WithRequiredStructEnabled())
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	return vd
}

// Validate checks cfg against its validation tags. The error names the
// offending keys in config-file form, e.g. "acquisition.pdf_dir".
func Validate(cfg types.Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: failed %q", configKey(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// configKey turns "Config.acquisition.HTTPConfig.timeout" into
// "acquisition.timeout".
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	out := parts[:0]
	for i, p := range parts {
		if i == 0 || p == "HTTPConfig" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}
