package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Serve)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "xlsx", cfg.Format)
	assert.Equal(t, "Invoices", cfg.SheetName)
	assert.Equal(t, int64(32<<20), cfg.MaxFileSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.CSVMetadata)
}

func TestLoad(t *testing.T) {
	cfg, err := Load([]string{"--format=csv", "-o", "out.csv", "invoice.pdf"})
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Format)
	assert.Equal(t, "out.csv", cfg.Output)
	assert.Equal(t, []string{"invoice.pdf"}, cfg.Inputs)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("INVOICE_PORT", "9000")
	t.Setenv("INVOICE_LOGLEVEL", "DEBUG")
	t.Setenv("INVOICE_SHEET", "March")

	cfg, err := Load([]string{"--serve"})
	require.NoError(t, err)
	assert.True(t, cfg.Serve)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "March", cfg.SheetName)
	assert.Equal(t, "127.0.0.1:9000", cfg.Address())
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("INVOICE_PORT", "9000")

	cfg, err := Load([]string{"--serve", "--port=9100"})
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(nil)
	assert.True(t, errors.Is(err, ErrNoInputs))

	_, err = Load([]string{"--version"})
	assert.ErrorIs(t, err, ErrVersionRequested)

	_, err = Load([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Inputs = []string{"a.pdf"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid file mode", func(c *Config) {}, false},
		{"valid server mode", func(c *Config) { c.Inputs = nil; c.Serve = true }, false},
		{"no inputs", func(c *Config) { c.Inputs = nil }, true},
		{"bad port", func(c *Config) { c.Serve = true; c.Port = 0 }, true},
		{"empty host", func(c *Config) { c.Serve = true; c.Host = "" }, true},
		{"missing static dir", func(c *Config) { c.Serve = true; c.StaticDir = "/nonexistent/static" }, true},
		{"bad format", func(c *Config) { c.Format = "ods" }, true},
		{"bad max size", func(c *Config) { c.MaxFileSize = 0 }, true},
		{"output with many inputs", func(c *Config) { c.Output = "x.xlsx"; c.Inputs = []string{"a.pdf", "b.pdf"} }, true},
		{"unknown template", func(c *Config) { c.Template = "nope" }, true},
		{"known template", func(c *Config) { c.Template = "service-tax-rm" }, false},
		{"unknown template from file", func(c *Config) { c.Template = "custom"; c.TemplateFile = "custom.yaml" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
