package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/pflag"

	"github.com/insightdelivered/invoice-converter/internal/api"
	"github.com/insightdelivered/invoice-converter/internal/config"
	"github.com/insightdelivered/invoice-converter/internal/converter"
	"github.com/insightdelivered/invoice-converter/internal/extractor"
	"github.com/insightdelivered/invoice-converter/internal/models"
	"github.com/insightdelivered/invoice-converter/internal/parser"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		fmt.Printf("invoice-converter v%s\n", cfg.Version)
		os.Exit(0)
	case errors.Is(err, pflag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, config.ErrNoInputs):
		fmt.Fprintln(os.Stderr, "No input files given. Run with --help for usage.")
		os.Exit(2)
	case err != nil:
		fatalf("%v\n", err)
	}

	setLogLevel(cfg.LogLevel)

	if cfg.TemplateFile != "" {
		t, err := parser.LoadTemplateFile(cfg.TemplateFile)
		if err != nil {
			fatalf("%v\n", err)
		}
		if err := parser.Register(t); err != nil {
			fatalf("%v\n", err)
		}
		log.Infof("registered template %q from %s", t.Name, cfg.TemplateFile)
	}

	conv, err := converter.New(converter.Options{
		Template:    cfg.Template,
		Format:      cfg.Format,
		SheetName:   cfg.SheetName,
		FileName:    cfg.FileName,
		MaxFileSize: cfg.MaxFileSize,
		CSVMetadata: cfg.CSVMetadata,
	})
	if err != nil {
		fatalf("%v\n", err)
	}

	if cfg.Serve {
		serve(cfg, conv)
		return
	}

	for _, inputPath := range cfg.Inputs {
		if err := processFile(conv, cfg, inputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

func serve(cfg *config.Config, conv *converter.Converter) {
	app := api.NewApp(&api.Handler{
		Converter: conv,
		Version:   cfg.Version,
		StaticDir: cfg.StaticDir,
	}, cfg.MaxFileSize)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Infof("invoice-converter v%s listening on %s (templates: %s)",
		cfg.Version, cfg.Address(), strings.Join(parser.Templates(), ", "))
	if err := app.Listen(cfg.Address()); err != nil {
		fatalf("server error: %v\n", err)
	}
}

func processFile(conv *converter.Converter, cfg *config.Config, inputPath string) error {
	info, err := os.Stat(inputPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if err != nil {
		return err
	}
	if info.Size() > cfg.MaxFileSize {
		return fmt.Errorf("%w (%d bytes, limit %d)", converter.ErrTooLarge, info.Size(), cfg.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	if ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	pages, err := extractor.ExtractText(inputPath)
	if err != nil {
		if errors.Is(err, extractor.ErrNoPages) {
			fmt.Println("  Warning: No pages found. Nothing to export.")
			return nil
		}
		return fmt.Errorf("PDF extraction failed: %w", err)
	}

	fmt.Printf("  Extracted text from %d page(s)\n", len(pages))

	res, err := conv.ConvertPages(pages, "", "")
	if err != nil {
		if converter.IsNoContent(err) {
			fmt.Println("  Warning: No invoice records found. The PDF may not be a text-based invoice.")
			return nil
		}
		return fmt.Errorf("conversion failed: %w", err)
	}

	report := res.Report
	fmt.Printf("  Using %s template\n", report.Template)
	fmt.Printf("  Found %d invoice(s), %d complete\n", len(report.Records), report.CompleteCount())

	outPath := cfg.Output
	if outPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outPath = base + "." + cfg.Format
	}

	if err := os.WriteFile(outPath, res.File, 0o644); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	fmt.Printf("  Output: %s\n", outPath)
	printPreview(report)
	fmt.Println("  Done.")
	return nil
}

// printPreview prints the first few records to stdout.
func printPreview(report *models.InvoiceReport) {
	const maxPreview = 5

	for i, rec := range report.Records {
		if i == maxPreview {
			fmt.Printf("  ... and %d more\n", len(report.Records)-maxPreview)
			break
		}
		cells := rec.Cells()
		fmt.Printf("  Page %d: %s | %s | %s %s | %s\n",
			rec.Page, orDash(cells[models.FieldInvoiceNo]), orDash(cells[models.FieldDate]),
			report.Currency, orDash(cells[models.FieldTotal]), rec.Status)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(log.LevelDebug)
	case "warn":
		log.SetLevel(log.LevelWarn)
	case "error":
		log.SetLevel(log.LevelError)
	default:
		log.SetLevel(log.LevelInfo)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
