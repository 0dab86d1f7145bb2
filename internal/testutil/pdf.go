// Package testutil builds small, valid PDF documents for tests.
package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// PDF returns a PDF with one page per element of pages. Each line of a page
// is drawn as a single text run, top to bottom, in Helvetica.
func PDF(pages ...[]string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, lines := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		content := pageContent(lines)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

func pageContent(lines []string) string {
	var b strings.Builder
	b.WriteString("BT\n/F1 10 Tf\n")
	for j, line := range lines {
		fmt.Fprintf(&b, "1 0 0 1 50 %d Tm\n(%s) Tj\n", 750-14*j, escape(line))
	}
	b.WriteString("ET")
	return b.String()
}

var escaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func escape(s string) string {
	return escaper.Replace(s)
}

// InvoiceLines is the text of one complete page in the built-in template.
func InvoiceLines(invoiceNo string) []string {
	return []string{
		"ACME TRADING SDN BHD",
		"INVOICE",
		"No. " + invoiceNo,
		"Date 05/03/2024",
		"Description Qty U/Price Amt Tax Net Amt",
		"Widget A 3 10.00 30.00 2.40 27.60",
		"Service Tax (8%) RM2.40",
		"Total RM32.40",
	}
}
