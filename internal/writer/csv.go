package writer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/insightdelivered/invoice-converter/internal/models"
)

const (
	DefaultCSVName = "invoices_all_pages.csv"
	CSVContentType = "text/csv; charset=utf-8"
)

// CSVWriter writes invoice records to CSV format.
type CSVWriter struct {
	IncludeHeader bool
	Name          string
}

func (w *CSVWriter) FileName() string {
	if w.Name != "" {
		return w.Name
	}
	return DefaultCSVName
}

func (w *CSVWriter) ContentType() string {
	return CSVContentType
}

// Write writes records in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, report *models.InvoiceReport) error {
	writer := csv.NewWriter(out)

	// Metadata as comment rows ahead of the column headers
	if w.IncludeHeader {
		meta := [][]string{
			{"# Template", report.Template},
			{"# Currency", report.Currency},
			{"# Records", fmt.Sprint(len(report.Records))},
		}
		for _, row := range meta {
			if row[1] == "" {
				continue
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := writer.Write(models.Columns(report.Currency)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range report.Records {
		if err := writer.Write(report.Records[i].Cells()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
