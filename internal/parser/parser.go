package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/insightdelivered/invoice-converter/internal/models"
)

// ErrNoRecords is returned when a document yields no pages to extract from.
var ErrNoRecords = errors.New("no invoice records found")

// Parser extracts invoice records from page text using one template.
type Parser struct {
	tmpl *compiled
}

// New returns a parser for the named template.
func New(name string) (*Parser, error) {
	c, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("unsupported invoice template: %q", name)
	}
	return &Parser{tmpl: c}, nil
}

// TemplateName returns the name of the template the parser applies.
func (p *Parser) TemplateName() string {
	return p.tmpl.Name
}

// ExtractPage returns the record for a single page of text.
func (p *Parser) ExtractPage(text string) models.InvoiceRecord {
	return p.tmpl.Extract(text)
}

// Parse extracts one record per page, in page order. Every page yields a
// record, even when none of its fields match.
func (p *Parser) Parse(pages []string) (*models.InvoiceReport, error) {
	if len(pages) == 0 {
		return nil, ErrNoRecords
	}

	report := &models.InvoiceReport{
		Template: p.tmpl.Name,
		Currency: p.tmpl.Currency,
		Records:  make([]models.InvoiceRecord, 0, len(pages)),
	}
	for i, page := range pages {
		rec := p.tmpl.Extract(page)
		rec.Page = i + 1
		report.Records = append(report.Records, rec)
	}
	return report, nil
}

// Detect tries to identify the invoice template from the PDF text content.
// A template matches when all of its markers appear somewhere in the text.
func Detect(pages []string) (string, error) {
	combined := strings.Join(pages, "\n")

	for _, name := range Templates() {
		c, ok := lookup(name)
		if !ok || len(c.Markers) == 0 {
			continue
		}
		if containsAll(combined, c.Markers) {
			return name, nil
		}
	}

	return "", fmt.Errorf("could not detect invoice template from document content; please specify a template")
}

func containsAll(text string, needles []string) bool {
	for _, needle := range needles {
		if !containsIgnoreCase(text, needle) {
			return false
		}
	}
	return true
}
