package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/insightdelivered/invoice-converter/internal/parser"
	"github.com/insightdelivered/invoice-converter/internal/writer"
)

const (
	// Default values
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8080
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 32 << 20 // 32MB
	DefaultFormat      = writer.FormatXLSX

	// EnvPrefix is prepended to every environment variable, e.g. INVOICE_PORT.
	EnvPrefix = "INVOICE"
)

var (
	// ErrVersionRequested is returned when --version was passed.
	ErrVersionRequested = errors.New("version requested")
	// ErrNoInputs is returned when neither input files nor --serve were given.
	ErrNoInputs = errors.New("no input files given")
)

// Config holds all configuration for the converter.
type Config struct {
	// Server configuration
	Serve     bool
	Host      string
	Port      int
	StaticDir string

	// Conversion configuration
	Template     string // empty means detect from content
	TemplateFile string
	Format       string
	Output       string
	SheetName    string
	FileName     string
	MaxFileSize  int64
	CSVMetadata  bool

	// Application configuration
	Version  string
	LogLevel string

	// Inputs are the PDF paths given on the command line.
	Inputs []string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		Format:      DefaultFormat,
		SheetName:   writer.DefaultSheetName,
		MaxFileSize: DefaultMaxFileSize,
		CSVMetadata: true,
		Version:     "1.0.0",
		LogLevel:    DefaultLogLevel,
	}
}

// Load parses args (without the program name) and environment variables.
// Flags take precedence over INVOICE_* variables, which take precedence over
// the defaults.
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	fs := pflag.NewFlagSet("invoice-converter", pflag.ContinueOnError)

	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(fs, cfg)
	setupUsageMessage(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if showVersion, _ := fs.GetBool("version"); showVersion {
		return cfg, ErrVersionRequested
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	populateConfigFromViper(v, cfg)
	cfg.Inputs = fs.Args()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults.
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("serve", cfg.Serve)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("static-dir", cfg.StaticDir)
	v.SetDefault("template", cfg.Template)
	v.SetDefault("template-file", cfg.TemplateFile)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("output", cfg.Output)
	v.SetDefault("sheet", cfg.SheetName)
	v.SetDefault("filename", cfg.FileName)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
	v.SetDefault("csv-metadata", cfg.CSVMetadata)
	v.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.Bool("serve", cfg.Serve, "Run the HTTP server instead of converting files")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("static-dir", cfg.StaticDir, "Directory of front-end files to serve (server mode only)")
	fs.String("template", cfg.Template, "Invoice template name (detected from content if omitted)")
	fs.String("template-file", cfg.TemplateFile, "YAML/JSON file with an extra invoice template")
	fs.StringP("format", "f", cfg.Format, "Output format: xlsx or csv")
	fs.StringP("output", "o", cfg.Output, "Output file path (defaults to input filename with the format's extension)")
	fs.String("sheet", cfg.SheetName, "Worksheet name for xlsx output")
	fs.String("filename", cfg.FileName, "Download file name (server mode only)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Bool("csv-metadata", cfg.CSVMetadata, "Include template metadata rows in CSV output")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolP("version", "v", false, "Print version and exit")
}

// setupUsageMessage configures the custom usage message.
func setupUsageMessage(fs *pflag.FlagSet) {
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Invoice PDF to spreadsheet converter

Extracts invoice number, date, line item, tax and totals from each page of
an invoice PDF and writes one spreadsheet row per page.

Usage:
  invoice-converter [flags] <input.pdf> [input2.pdf ...]
  invoice-converter --serve [flags]

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Convert one invoice to invoice.xlsx
  invoice-converter invoice.pdf

  # CSV output to a chosen path
  invoice-converter --format=csv --output=march.csv invoice.pdf

  # Start the web API on port 9000
  invoice-converter --serve --port=9000

Environment variables use the %s_ prefix, e.g. %s_PORT=9000.
`, EnvPrefix, EnvPrefix)
	}
}

// populateConfigFromViper reads the merged values back into cfg.
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Serve = v.GetBool("serve")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.StaticDir = v.GetString("static-dir")
	cfg.Template = v.GetString("template")
	cfg.TemplateFile = v.GetString("template-file")
	cfg.Format = strings.ToLower(v.GetString("format"))
	cfg.Output = v.GetString("output")
	cfg.SheetName = v.GetString("sheet")
	cfg.FileName = v.GetString("filename")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.CSVMetadata = v.GetBool("csv-metadata")
	cfg.LogLevel = strings.ToLower(v.GetString("loglevel"))
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Serve {
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
		}
		if c.Host == "" {
			return errors.New("host cannot be empty in server mode")
		}
		if c.StaticDir != "" {
			if info, err := os.Stat(c.StaticDir); err != nil || !info.IsDir() {
				return fmt.Errorf("static directory %q does not exist", c.StaticDir)
			}
		}
	} else if len(c.Inputs) == 0 {
		return ErrNoInputs
	}

	if _, err := writer.New(c.Format); err != nil {
		return err
	}

	if c.MaxFileSize <= 0 {
		return errors.New("max file size must be positive")
	}

	if c.Output != "" && len(c.Inputs) > 1 {
		return errors.New("--output can only be used with a single input file")
	}

	if c.Template != "" && c.TemplateFile == "" {
		if _, err := parser.New(c.Template); err != nil {
			return err
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be debug, info, warn or error", c.LogLevel)
	}

	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
