package writer

import (
	"fmt"
	"io"
	"strings"

	"github.com/insightdelivered/invoice-converter/internal/models"
)

// Output formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Writer serializes an invoice report as a tabular file.
type Writer interface {
	Write(out io.Writer, report *models.InvoiceReport) error
	// FileName is the download name of the produced file.
	FileName() string
	ContentType() string
}

// New returns the writer for the given format.
func New(format string) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatXLSX, "":
		return &XLSXWriter{}, nil
	case FormatCSV:
		return &CSVWriter{IncludeHeader: true}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
}
