package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/invoice-converter/internal/testutil"
)

func TestExtractPages(t *testing.T) {
	data := testutil.PDF(
		testutil.InvoiceLines("IV-1"),
		[]string{"Terms and conditions"},
		testutil.InvoiceLines("IV-3"),
	)

	pages, err := ExtractPages(data)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Contains(t, pages[0], "No. IV-1")
	assert.Contains(t, pages[0], "Description Qty U/Price Amt Tax Net Amt\nWidget A 3 10.00 30.00 2.40 27.60")
	assert.Contains(t, pages[0], "Service Tax (8%) RM2.40")
	assert.Contains(t, pages[1], "Terms and conditions")
	assert.Contains(t, pages[2], "No. IV-3")
}

func TestExtractPages_KeepsBlankPages(t *testing.T) {
	data := testutil.PDF(testutil.InvoiceLines("IV-1"), nil)

	pages, err := ExtractPages(data)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Empty(t, pages[1])
}

func TestExtractPages_NoContent(t *testing.T) {
	_, err := ExtractPages(nil)
	assert.ErrorIs(t, err, ErrNoPages)

	_, err = ExtractPages([]byte("   "))
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestExtractPages_ZeroPageDocument(t *testing.T) {
	_, err := ExtractPages(testutil.PDF())
	assert.Error(t, err)
}

func TestExtractPages_Malformed(t *testing.T) {
	_, err := ExtractPages([]byte("this is not a pdf document at all"))
	assert.ErrorIs(t, err, ErrMalformedPDF)
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(testutil.PDF(testutil.InvoiceLines("IV-1"), testutil.InvoiceLines("IV-2")))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = PageCount([]byte("garbage"))
	assert.Error(t, err)
}

func TestExtractText_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, testutil.PDF(testutil.InvoiceLines("IV-9")), 0o600))

	pages, err := ExtractText(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0], "IV-9")

	_, err = ExtractText(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		expected bool
	}{
		{"invoice text", []string{"INVOICE No. IV-1\nTotal RM32.40"}, true},
		{"too short", []string{"Total"}, false},
		{"no invoice words", []string{"lorem ipsum dolor sit amet consectetur"}, false},
		{"binary garbage", []string{"\x00\x01\x02\x03\x04\x05\x06\x07\x08\x0e\x0f\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19 total"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isReadableText(tt.pages))
		})
	}
}
