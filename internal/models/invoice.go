package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Optional holds a value that may be absent. The zero value is absent.
type Optional[T any] struct {
	value T
	valid bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, valid: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.valid
}

// Present reports whether a value is held.
func (o Optional[T]) Present() bool {
	return o.valid
}

// MarshalJSON encodes an absent value as null. Currency amounts are encoded
// as strings with two fraction digits, matching the spreadsheet cells.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.valid {
		return []byte("null"), nil
	}
	if d, ok := any(o.value).(decimal.Decimal); ok {
		return json.Marshal(d.StringFixed(2))
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as absent and any other value as present.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Field identifies one column of an invoice record.
type Field int

const (
	FieldInvoiceNo Field = iota
	FieldDate
	FieldDescription
	FieldQty
	FieldUnitPrice
	FieldAmount
	FieldTax
	FieldSubtotal
	FieldTotal
	FieldStatus
)

// Fields lists every column in export order.
var Fields = []Field{
	FieldInvoiceNo, FieldDate, FieldDescription, FieldQty, FieldUnitPrice,
	FieldAmount, FieldTax, FieldSubtotal, FieldTotal, FieldStatus,
}

var fieldNames = [...]string{
	FieldInvoiceNo:   "Invoice No",
	FieldDate:        "Date",
	FieldDescription: "Description",
	FieldQty:         "Qty",
	FieldUnitPrice:   "Unit Price",
	FieldAmount:      "Amount",
	FieldTax:         "Tax",
	FieldSubtotal:    "Subtotal",
	FieldTotal:       "Total",
	FieldStatus:      "Status",
}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "Field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

// IsMoney reports whether the field holds a currency amount.
func (f Field) IsMoney() bool {
	switch f {
	case FieldUnitPrice, FieldAmount, FieldTax, FieldSubtotal, FieldTotal:
		return true
	}
	return false
}

// Label returns the column header, e.g. "Unit Price (RM)".
func (f Field) Label(currency string) string {
	if currency != "" && f.IsMoney() {
		return f.String() + " (" + currency + ")"
	}
	return f.String()
}

// Columns returns the header row for the given currency.
func Columns(currency string) []string {
	cols := make([]string, len(Fields))
	for i, f := range Fields {
		cols[i] = f.Label(currency)
	}
	return cols
}

const (
	StatusComplete      = "Complete"
	statusMissingPrefix = "Missing: "
)

// InvoiceRecord is the data extracted from one PDF page.
type InvoiceRecord struct {
	Page        int                       `json:"page"`
	InvoiceNo   Optional[string]          `json:"invoiceNo"`
	Date        Optional[string]          `json:"date"`
	Description Optional[string]          `json:"description"`
	Qty         Optional[int]             `json:"qty"`
	UnitPrice   Optional[decimal.Decimal] `json:"unitPrice"`
	Amount      Optional[decimal.Decimal] `json:"amount"`
	Tax         Optional[decimal.Decimal] `json:"tax"`
	Subtotal    Optional[decimal.Decimal] `json:"subtotal"`
	Total       Optional[decimal.Decimal] `json:"total"`
	Status      string                    `json:"status"`
}

// Missing returns the data fields that are absent, in column order.
func (r *InvoiceRecord) Missing() []Field {
	present := [...]bool{
		FieldInvoiceNo:   r.InvoiceNo.Present(),
		FieldDate:        r.Date.Present(),
		FieldDescription: r.Description.Present(),
		FieldQty:         r.Qty.Present(),
		FieldUnitPrice:   r.UnitPrice.Present(),
		FieldAmount:      r.Amount.Present(),
		FieldTax:         r.Tax.Present(),
		FieldSubtotal:    r.Subtotal.Present(),
		FieldTotal:       r.Total.Present(),
	}
	var missing []Field
	for f, ok := range present {
		if !ok {
			missing = append(missing, Field(f))
		}
	}
	return missing
}

// Complete reports whether every data field is present.
func (r *InvoiceRecord) Complete() bool {
	return len(r.Missing()) == 0
}

// StatusOf renders the status for a set of missing fields.
func StatusOf(missing []Field) string {
	if len(missing) == 0 {
		return StatusComplete
	}
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = f.String()
	}
	return statusMissingPrefix + strings.Join(names, ", ")
}

// Cells renders the record as one string per column. Absent fields are "".
func (r *InvoiceRecord) Cells() []string {
	return []string{
		textCell(r.InvoiceNo),
		textCell(r.Date),
		textCell(r.Description),
		qtyCell(r.Qty),
		MoneyCell(r.UnitPrice),
		MoneyCell(r.Amount),
		MoneyCell(r.Tax),
		MoneyCell(r.Subtotal),
		MoneyCell(r.Total),
		r.Status,
	}
}

func textCell(o Optional[string]) string {
	v, _ := o.Get()
	return v
}

func qtyCell(o Optional[int]) string {
	if v, ok := o.Get(); ok {
		return strconv.Itoa(v)
	}
	return ""
}

// MoneyCell formats a currency amount with two fraction digits.
func MoneyCell(o Optional[decimal.Decimal]) string {
	if v, ok := o.Get(); ok {
		return v.StringFixed(2)
	}
	return ""
}

// InvoiceReport holds every record extracted from one document.
type InvoiceReport struct {
	Template string
	Currency string
	Records  []InvoiceRecord
}

// CompleteCount returns how many records have no missing fields.
func (r *InvoiceReport) CompleteCount() int {
	n := 0
	for i := range r.Records {
		if r.Records[i].Complete() {
			n++
		}
	}
	return n
}
