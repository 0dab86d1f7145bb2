package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// DefaultTemplate is the name of the built-in invoice template.
const DefaultTemplate = "service-tax-rm"

// Rules holds one pattern per extracted field. Each pattern must contain
// exactly one capture group holding the field value.
type Rules struct {
	InvoiceNo   string `mapstructure:"invoice_no"`
	Date        string `mapstructure:"date"`
	Description string `mapstructure:"description"`
	Qty         string `mapstructure:"qty"`
	UnitPrice   string `mapstructure:"unit_price"`
	Amount      string `mapstructure:"amount"`
	Tax         string `mapstructure:"tax"`
	Total       string `mapstructure:"total"`
}

// Template describes the layout of one invoice family.
type Template struct {
	Name     string   `mapstructure:"name"`
	Currency string   `mapstructure:"currency"`
	Markers  []string `mapstructure:"markers"` // text that identifies the template
	Rules    Rules    `mapstructure:"rules"`
}

// tableHeader is the line-item header row of the built-in template.
const tableHeader = `Description\s+Qty\s+U/Price\s+Amt\s+Tax\s+Net Amt\n`

// serviceTaxRM is a single-line invoice with an 8% service tax in ringgit.
var serviceTaxRM = Template{
	Name:     DefaultTemplate,
	Currency: "RM",
	Markers:  []string{"Service Tax (8%)", "U/Price"},
	Rules: Rules{
		InvoiceNo: `No\.\s+(IV-\d+)`,
		Date:      `Date\s+(\d{2}/\d{2}/\d{4})`,
		// Description stops before the optional quantity column.
		Description: `(?s)` + tableHeader + `(.+?)(?:\s+\d+)?\s+\d+\.\d{2}\s+\d+\.\d{2}\s+\d+\.\d{2}`,
		Qty:         `(?s)` + tableHeader + `.+?\s+(\d+)\s+\d+\.\d{2}`,
		UnitPrice:   `\s(\d+\.\d{2})\s+\d+\.\d{2}\s+\d+\.\d{2}\s+\d+\.\d{2}`,
		Amount:      `\s\d+\.\d{2}\s+(\d+\.\d{2})\s+\d+\.\d{2}`,
		Tax:         `Service Tax \(8%\)\s+RM(\d+\.\d{2})`,
		Total:       `Total\s+RM(\d+\.\d{2})`,
	},
}

// compiled is a Template with its rules ready to match.
type compiled struct {
	Template
	invoiceNo   *regexp.Regexp
	date        *regexp.Regexp
	description *regexp.Regexp
	qty         *regexp.Regexp
	unitPrice   *regexp.Regexp
	amount      *regexp.Regexp
	tax         *regexp.Regexp
	total       *regexp.Regexp
}

// compile validates the template and compiles its rules.
func (t Template) compile() (*compiled, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("template has no name")
	}

	c := &compiled{Template: t}
	rules := []struct {
		field   string
		pattern string
		dst     **regexp.Regexp
	}{
		{"invoice_no", t.Rules.InvoiceNo, &c.invoiceNo},
		{"date", t.Rules.Date, &c.date},
		{"description", t.Rules.Description, &c.description},
		{"qty", t.Rules.Qty, &c.qty},
		{"unit_price", t.Rules.UnitPrice, &c.unitPrice},
		{"amount", t.Rules.Amount, &c.amount},
		{"tax", t.Rules.Tax, &c.tax},
		{"total", t.Rules.Total, &c.total},
	}
	for _, r := range rules {
		if r.pattern == "" {
			return nil, fmt.Errorf("template %q: rule %s is empty", t.Name, r.field)
		}
		re, err := regexp.Compile(r.pattern)
		if err != nil {
			return nil, fmt.Errorf("template %q: rule %s: %w", t.Name, r.field, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("template %q: rule %s must have exactly one capture group, has %d", t.Name, r.field, re.NumSubexp())
		}
		*r.dst = re
	}
	return c, nil
}

// LoadTemplateFile reads a template from a YAML, JSON or TOML file.
func LoadTemplateFile(path string) (Template, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Template{}, fmt.Errorf("failed to read template %q: %w", path, err)
	}

	var t Template
	if err := v.Unmarshal(&t); err != nil {
		return Template{}, fmt.Errorf("failed to decode template %q: %w", path, err)
	}
	if _, err := t.compile(); err != nil {
		return Template{}, err
	}
	return t, nil
}

var registry = struct {
	sync.RWMutex
	templates map[string]*compiled
}{
	templates: map[string]*compiled{},
}

func init() {
	if err := Register(serviceTaxRM); err != nil {
		panic(err)
	}
}

// Register compiles t and makes it available to New and Detect. A template
// with the same name replaces the earlier one.
func Register(t Template) error {
	c, err := t.compile()
	if err != nil {
		return err
	}

	registry.Lock()
	defer registry.Unlock()
	registry.templates[t.Name] = c
	return nil
}

// Templates returns the registered template names, sorted.
func Templates() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.templates))
	for name := range registry.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (*compiled, bool) {
	registry.RLock()
	defer registry.RUnlock()
	c, ok := registry.templates[name]
	return c, ok
}
