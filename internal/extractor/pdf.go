package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/gofiber/fiber/v2/log"
	"github.com/ledongthuc/pdf"
)

var (
	// ErrMalformedPDF is returned when the document cannot be opened as a PDF.
	ErrMalformedPDF = errors.New("malformed PDF")
	// ErrNoPages is returned when the document has no pages.
	ErrNoPages = errors.New("PDF has no pages")
)

// ExtractText reads a PDF file and returns the text content of each page.
// If the structured PDF library cannot produce readable text, it falls back
// to the external pdftotext command (poppler-utils).
func ExtractText(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", filePath, err)
	}

	pages, err := ExtractPages(data)
	if err != nil {
		return nil, err
	}
	if isReadableText(pages) {
		return pages, nil
	}

	popplerPages, popplerErr := extractWithPdftotext(filePath, len(pages))
	if popplerErr == nil && isReadableText(popplerPages) {
		return popplerPages, nil
	}
	return pages, nil
}

// ExtractPages returns the text of every page of the PDF in data, in page
// order. Pages without text are returned as empty strings so that page N of
// the result is always page N of the document.
func ExtractPages(data []byte) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoPages
	}

	if n, err := PageCount(data); err != nil {
		log.Warnf("pdf probe failed, trying text extraction anyway: %v", err)
	} else if n == 0 {
		return nil, ErrNoPages
	}

	return extractWithLibrary(data)
}

// textQuality returns the ratio of basic ASCII readable characters (a-z, A-Z,
// 0-9, common punctuation, whitespace) to total characters. Returns 0.0-1.0.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				strings.ContainsRune(".,-/:;()'\"%&@#!?+=*$", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// commonWords appear in virtually all invoices.
var commonWords = []string{
	"invoice", "date", "total", "amount", "qty", "price", "tax",
	"description", "no.", "subtotal", "bill", "payment",
}

// containsCommonWords checks whether the text contains at least one word
// that would be expected on an invoice.
func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText checks that pages contain enough text, that it's actually
// readable (not binary garbage), and that it contains recognizable words.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 20 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

// extractWithPdftotext uses the external pdftotext command from poppler-utils
// as a fallback for PDFs that the Go library cannot handle.
func extractWithPdftotext(filePath string, numPages int) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %v", err)
	}
	if numPages <= 0 {
		return nil, ErrNoPages
	}

	// Extract each page separately to preserve page boundaries
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		pageStr := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", pageStr, "-l", pageStr, filePath, "-").Output()
		if err != nil {
			return nil, fmt.Errorf("pdftotext failed on page %d: %v", i, err)
		}
		pages = append(pages, strings.TrimSpace(string(out)))
	}
	return pages, nil
}

// extractWithLibrary uses the ledongthuc/pdf library with multiple methods.
func extractWithLibrary(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: PDF library crashed: %v", ErrMalformedPDF, r)
		}
	}()

	r, openErr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if openErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPDF, openErr)
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, ErrNoPages
	}

	// Method 1: GetTextByRow keeps the table rows on their own lines
	pages = extractByRow(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	// Method 2: Page.Content() with coordinate-based row reconstruction
	if byContent := extractByContent(r, numPages); isReadableText(byContent) {
		return byContent, nil
	}

	// Method 3: Page.GetPlainText with font map
	if plain := extractByPagePlainText(r, numPages); isReadableText(plain) {
		return plain, nil
	}

	return pages, nil
}

// Method 1: GetTextByRow, best for well-structured PDFs
func extractByRow(r *pdf.Reader, numPages int) []string {
	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages[i-1] = strings.Join(lines, "\n")
	}
	return pages
}

// Method 2: Page.Content(), lower-level access to text objects.
// Groups text pieces by Y coordinate to reconstruct rows, then sorts by X.
func extractByContent(r *pdf.Reader, numPages int) []string {
	type textItem struct {
		x float64
		s string
	}

	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()

		rowMap := make(map[int][]textItem)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], textItem{x: t.X, s: t.S})
		}

		// PDF Y goes bottom-to-top
		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool {
				return items[a].x < items[b].x
			})

			var parts []string
			var prevX float64
			for j, item := range items {
				if j > 0 && item.x-prevX > 15 {
					// Large gap between text items is a column break
					parts = append(parts, " ")
				}
				parts = append(parts, item.s)
				prevX = item.x
			}
			line := strings.TrimSpace(strings.Join(parts, ""))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages[i-1] = strings.Join(lines, "\n")
	}
	return pages
}

// Method 3: Page.GetPlainText with fonts
func extractByPagePlainText(r *pdf.Reader, numPages int) []string {
	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		pages[i-1] = strings.TrimSpace(text)
	}
	return pages
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
