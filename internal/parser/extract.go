package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/invoice-converter/internal/models"
	"github.com/shopspring/decimal"
)

// capture returns the first capture group of re in text.
func capture(re *regexp.Regexp, text string) models.Optional[string] {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return models.None[string]()
	}
	return models.Some(m[1])
}

// Extract applies every rule of the template to one page of text. Fields
// whose rule does not match, or whose value does not parse, are absent.
func (c *compiled) Extract(text string) models.InvoiceRecord {
	var rec models.InvoiceRecord

	rec.InvoiceNo = capture(c.invoiceNo, text)
	rec.Date = capture(c.date, text)

	if desc, ok := capture(c.description, text).Get(); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			rec.Description = models.Some(desc)
		}
	}

	rec.Qty = parseQty(capture(c.qty, text))
	rec.UnitPrice = parseMoney(capture(c.unitPrice, text))
	rec.Amount = parseMoney(capture(c.amount, text))
	rec.Tax = parseMoney(capture(c.tax, text))
	rec.Total = parseMoney(capture(c.total, text))
	rec.Subtotal = subtotal(rec.Total, rec.Tax)

	rec.Status = models.StatusOf(rec.Missing())
	return rec
}

func subtotal(total, tax models.Optional[decimal.Decimal]) models.Optional[decimal.Decimal] {
	t, ok := total.Get()
	if !ok {
		return models.None[decimal.Decimal]()
	}
	x, ok := tax.Get()
	if !ok {
		return models.None[decimal.Decimal]()
	}
	return models.Some(t.Sub(x))
}
