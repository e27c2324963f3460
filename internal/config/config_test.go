// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/internal/secrets"
	"github.com/pdiddy/litreview/pkg/types"
)

// isolate runs the test from an empty working directory so no stray
// litreview.yaml or .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	v, src, err := New(Options{})
	require.NoError(t, err)
	assert.Empty(t, src.ConfigFile)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "data/literature_review.db", cfg.Store.Path)
	assert.Equal(t, "data/pdfs", cfg.Acquisition.PDFDir)
	assert.Equal(t, "data/TO_ACQUIRE.csv", cfg.Acquisition.ListPath)
	assert.Equal(t, types.ListCSV, cfg.Acquisition.ListFormat)
	assert.Equal(t, []string{".pdf"}, cfg.Acquisition.Extensions)
	assert.Equal(t, time.Second, cfg.Acquisition.DownloadDelay)
	assert.Equal(t, 60*time.Second, cfg.Acquisition.Timeout)
	assert.Equal(t, "litreview/0.1", cfg.Acquisition.UserAgent)
	assert.True(t, cfg.Acquisition.ResolveOpenAccess)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, "litreview", cfg.Metrics.Namespace)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "data/reports", cfg.Report.OutputDir)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, "litreview.yaml"), `
store:
  path: /var/lib/litreview/review.db
acquisition:
  pdf_dir: /srv/pdfs
  list_format: yaml
  timeout: 15s
logging:
  level: debug
`)
	t.Setenv("LITREVIEW_ACQUISITION_PDF_DIR", "/from/env")
	t.Setenv("LITREVIEW_WATCH_DEBOUNCE", "500ms")

	v, src, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, "litreview.yaml", filepath.Base(src.ConfigFile))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/litreview/review.db", cfg.Store.Path)
	assert.Equal(t, "/from/env", cfg.Acquisition.PDFDir)
	assert.Equal(t, types.ListYAML, cfg.Acquisition.ListFormat)
	assert.Equal(t, 15*time.Second, cfg.Acquisition.Timeout)
	assert.Equal(t, "litreview/0.1", cfg.Acquisition.UserAgent)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadEnvFile(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, ".env")
	write(t, envFile, "LITREVIEW_SERVER_ADDRESS=127.0.0.1:9999\n")
	t.Cleanup(func() { os.Unsetenv("LITREVIEW_SERVER_ADDRESS") })

	v, src, err := New(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, envFile, src.EnvFile)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Address)
}

func TestMissingEnvFileIgnored(t *testing.T) {
	dir := isolate(t)
	_, src, err := New(Options{EnvFile: filepath.Join(dir, "absent.env")})
	require.NoError(t, err)
	assert.Empty(t, src.EnvFile)
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	dir := isolate(t)
	_, _, err := New(Options{ConfigFile: filepath.Join(dir, "nope.yaml")})
	assert.Error(t, err)
}

func TestSecretsFillMailto(t *testing.T) {
	dir := isolate(t)
	secretsDir := filepath.Join(dir, ".secrets")
	write(t, filepath.Join(secretsDir, secrets.OpenAlexEmail), "review@example.org\n")

	v, src, err := New(Options{SecretsDir: secretsDir})
	require.NoError(t, err)
	assert.Equal(t, []string{secrets.OpenAlexEmail}, src.Secrets)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "review@example.org", cfg.Acquisition.Mailto)

	t.Setenv("LITREVIEW_ACQUISITION_MAILTO", "env@example.org")
	v, _, err = New(Options{SecretsDir: secretsDir})
	require.NoError(t, err)
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "env@example.org", cfg.Acquisition.Mailto)
}

func TestValidate(t *testing.T) {
	isolate(t)
	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
	}{
		{"bad list format", map[string]string{"LITREVIEW_ACQUISITION_LIST_FORMAT": "xlsx"}, "acquisition.list_format"},
		{"bad log level", map[string]string{"LITREVIEW_LOGGING_LEVEL": "loud"}, "logging.level"},
		{"zero timeout", map[string]string{"LITREVIEW_ACQUISITION_TIMEOUT": "0s"}, "acquisition.timeout"},
		{"bad extension", map[string]string{"LITREVIEW_ACQUISITION_EXTENSIONS": "pdf"}, "acquisition.extensions"},
		{"bad mailto", map[string]string{"LITREVIEW_ACQUISITION_MAILTO": "not-an-email"}, "acquisition.mailto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, val := range tt.env {
				t.Setenv(k, val)
			}
			v, _, err := New(Options{})
			require.NoError(t, err)
			_, err = Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestConfigKey(t *testing.T) {
	assert.Equal(t, "acquisition.timeout", configKey("Config.acquisition.HTTPConfig.timeout"))
	assert.Equal(t, "store.path", configKey("Config.store.path"))
}
