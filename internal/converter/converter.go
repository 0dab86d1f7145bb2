// Package converter turns an invoice PDF into a spreadsheet. A Converter
// holds only settings; every call to Convert works on its own data, so one
// Converter can serve concurrent requests.
package converter

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/insightdelivered/invoice-converter/internal/extractor"
	"github.com/insightdelivered/invoice-converter/internal/models"
	"github.com/insightdelivered/invoice-converter/internal/parser"
	"github.com/insightdelivered/invoice-converter/internal/writer"
)

var (
	ErrEmptyUpload = errors.New("uploaded file is empty")
	ErrTooLarge    = errors.New("file exceeds the maximum allowed size")

	// ErrExport wraps failures while encoding the spreadsheet.
	ErrExport = errors.New("export failed")
)

// Options configure a Converter.
type Options struct {
	// Template forces a template; empty means detect from the page text.
	Template    string
	Format      string
	SheetName   string
	FileName    string
	MaxFileSize int64
	CSVMetadata bool
}

// Converter runs the page text -> records -> file pipeline.
type Converter struct {
	opts Options
}

// Result is the outcome of one conversion.
type Result struct {
	Pages       []string
	Report      *models.InvoiceReport
	File        []byte
	FileName    string
	ContentType string
}

// New validates opts and returns a Converter.
func New(opts Options) (*Converter, error) {
	if opts.Template != "" {
		if _, err := parser.New(opts.Template); err != nil {
			return nil, err
		}
	}
	if _, err := newWriter(opts, ""); err != nil {
		return nil, err
	}
	return &Converter{opts: opts}, nil
}

// Convert extracts invoice records from the PDF in data and encodes them.
func (c *Converter) Convert(data []byte) (*Result, error) {
	return c.ConvertWith(data, "", "")
}

// ConvertWith is Convert with a per-call template and format. Empty values
// fall back to the Converter's options.
func (c *Converter) ConvertWith(data []byte, template, format string) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if c.opts.MaxFileSize > 0 && int64(len(data)) > c.opts.MaxFileSize {
		return nil, fmt.Errorf("%w (%d bytes, limit %d)", ErrTooLarge, len(data), c.opts.MaxFileSize)
	}

	pages, err := extractor.ExtractPages(data)
	if err != nil {
		return nil, fmt.Errorf("PDF extraction failed: %w", err)
	}
	return c.ConvertPages(pages, template, format)
}

// ConvertPages runs the pipeline on text that was already extracted.
func (c *Converter) ConvertPages(pages []string, template, format string) (*Result, error) {
	p, err := c.parserFor(pages, template)
	if err != nil {
		return nil, err
	}

	report, err := p.Parse(pages)
	if err != nil {
		return nil, err
	}
	log.Debugf("extracted %d record(s), %d complete, template %s",
		len(report.Records), report.CompleteCount(), report.Template)

	w, err := newWriter(c.opts, format)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := w.Write(&buf, report); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}

	return &Result{
		Pages:       pages,
		Report:      report,
		File:        buf.Bytes(),
		FileName:    w.FileName(),
		ContentType: w.ContentType(),
	}, nil
}

func (c *Converter) parserFor(pages []string, template string) (*parser.Parser, error) {
	if template == "" {
		template = c.opts.Template
	}
	if template == "" {
		detected, err := parser.Detect(pages)
		if err != nil {
			log.Warnf("%v; using %s", err, parser.DefaultTemplate)
			detected = parser.DefaultTemplate
		}
		template = detected
	}
	return parser.New(template)
}

func newWriter(opts Options, format string) (writer.Writer, error) {
	if format == "" {
		format = opts.Format
	}
	w, err := writer.New(format)
	if err != nil {
		return nil, err
	}
	switch w := w.(type) {
	case *writer.XLSXWriter:
		w.SheetName = opts.SheetName
		w.Name = opts.FileName
	case *writer.CSVWriter:
		w.IncludeHeader = opts.CSVMetadata
	}
	return w, nil
}

// IsNoContent reports whether err means the document produced nothing to
// export, as opposed to a broken document or a server fault.
func IsNoContent(err error) bool {
	return errors.Is(err, parser.ErrNoRecords) ||
		errors.Is(err, extractor.ErrNoPages) ||
		errors.Is(err, ErrEmptyUpload)
}
