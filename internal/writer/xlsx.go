package writer

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/invoice-converter/internal/models"
)

const (
	DefaultSheetName = "Invoices"
	DefaultXLSXName  = "invoices_all_pages.xlsx"
	XLSXContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// numFmtTwoDecimals is the built-in "0.00" number format.
	numFmtTwoDecimals = 2
)

// XLSXWriter writes invoice records to a single-sheet workbook.
type XLSXWriter struct {
	SheetName string
	Name      string
}

func (w *XLSXWriter) FileName() string {
	if w.Name != "" {
		return w.Name
	}
	return DefaultXLSXName
}

func (w *XLSXWriter) ContentType() string {
	return XLSXContentType
}

func (w *XLSXWriter) sheet() string {
	if w.SheetName != "" {
		return w.SheetName
	}
	return DefaultSheetName
}

// Write writes the header row and one row per record. Absent fields are
// left as empty cells.
func (w *XLSXWriter) Write(out io.Writer, report *models.InvoiceReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := w.sheet()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}

	header := models.Columns(report.Currency)
	for col, label := range header {
		if err := f.SetCellStr(sheet, cellName(col, 1), label); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i := range report.Records {
		if err := w.writeRow(f, sheet, i+2, &report.Records[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if len(report.Records) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
		if err != nil {
			return fmt.Errorf("failed to create number style: %w", err)
		}
		last := len(report.Records) + 1
		first := cellName(int(models.FieldUnitPrice), 2)
		end := cellName(int(models.FieldTotal), last)
		if err := f.SetCellStyle(sheet, first, end, style); err != nil {
			return fmt.Errorf("failed to style amounts: %w", err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "B", 14); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", "C", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "J", "J", 48); err != nil {
		return err
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (w *XLSXWriter) writeRow(f *excelize.File, sheet string, row int, rec *models.InvoiceRecord) error {
	setText := func(field models.Field, o models.Optional[string]) error {
		if v, ok := o.Get(); ok {
			return f.SetCellStr(sheet, cellName(int(field), row), v)
		}
		return nil
	}
	setMoney := func(field models.Field, o models.Optional[decimal.Decimal]) error {
		if v, ok := o.Get(); ok {
			return f.SetCellFloat(sheet, cellName(int(field), row), v.InexactFloat64(), 2, 64)
		}
		return nil
	}

	if err := setText(models.FieldInvoiceNo, rec.InvoiceNo); err != nil {
		return err
	}
	if err := setText(models.FieldDate, rec.Date); err != nil {
		return err
	}
	if err := setText(models.FieldDescription, rec.Description); err != nil {
		return err
	}
	if v, ok := rec.Qty.Get(); ok {
		if err := f.SetCellValue(sheet, cellName(int(models.FieldQty), row), v); err != nil {
			return err
		}
	}
	for _, m := range []struct {
		field models.Field
		value models.Optional[decimal.Decimal]
	}{
		{models.FieldUnitPrice, rec.UnitPrice},
		{models.FieldAmount, rec.Amount},
		{models.FieldTax, rec.Tax},
		{models.FieldSubtotal, rec.Subtotal},
		{models.FieldTotal, rec.Total},
	} {
		if err := setMoney(m.field, m.value); err != nil {
			return err
		}
	}
	return f.SetCellStr(sheet, cellName(int(models.FieldStatus), row), rec.Status)
}

// cellName converts a zero-based column and one-based row to "A1" form.
func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		panic(err)
	}
	return name
}
