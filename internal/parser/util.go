package parser

import (
	"strconv"
	"strings"

	"github.com/insightdelivered/invoice-converter/internal/models"
	"github.com/shopspring/decimal"
)

// parseAmount converts a string like "1,234.56" or "RM1,234.56" to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "RM")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "") // non-breaking space

	return decimal.NewFromString(s)
}

// parseMoney turns a captured amount into a value, or absent if it does not parse.
func parseMoney(o models.Optional[string]) models.Optional[decimal.Decimal] {
	s, ok := o.Get()
	if !ok {
		return models.None[decimal.Decimal]()
	}
	d, err := parseAmount(s)
	if err != nil {
		return models.None[decimal.Decimal]()
	}
	return models.Some(d)
}

// parseQty turns a captured run of digits into an int, or absent on overflow.
func parseQty(o models.Optional[string]) models.Optional[int] {
	s, ok := o.Get()
	if !ok {
		return models.None[int]()
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return models.None[int]()
	}
	return models.Some(n)
}

// containsIgnoreCase reports whether substr occurs in text, ignoring case.
func containsIgnoreCase(text, substr string) bool {
	return substr != "" && strings.Contains(strings.ToLower(text), strings.ToLower(substr))
}
