package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/invoice-converter/internal/converter"
	"github.com/insightdelivered/invoice-converter/internal/models"
	"github.com/insightdelivered/invoice-converter/internal/testutil"
	"github.com/insightdelivered/invoice-converter/internal/writer"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	conv, err := converter.New(converter.Options{MaxFileSize: 1 << 20})
	require.NoError(t, err)
	return NewApp(&Handler{Converter: conv, Version: "test"}, 1<<20)
}

func uploadRequest(t *testing.T, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(fiber.MethodPost, path, &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decode(t *testing.T, body []byte) ConvertResponse {
	t.Helper()
	var out ConvertResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, httptest.NewRequest(fiber.MethodGet, "/api/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	var result map[string]string
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "fiber", result["engine"])
	assert.Equal(t, "test", result["version"])
}

func TestConvertEndpointRequiresFile(t *testing.T) {
	app := setupTestApp(t)

	req := uploadRequest(t, "/api/convert", "", nil, map[string]string{"format": "csv"})
	resp, body := doRequest(t, app, req)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	out := decode(t, body)
	assert.False(t, out.Success)
	assert.Equal(t, CodeBadRequest, out.Code)
}

func TestConvertEndpointRejectsNonPDF(t *testing.T) {
	app := setupTestApp(t)

	req := uploadRequest(t, "/api/convert", "invoice.txt", []byte("hello"), nil)
	resp, body := doRequest(t, app, req)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, body).Error, "Only PDF files")
}

func TestConvertEndpointMalformedPDF(t *testing.T) {
	app := setupTestApp(t)

	req := uploadRequest(t, "/api/convert", "broken.pdf", []byte("not really a pdf"), nil)
	resp, body := doRequest(t, app, req)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, CodeInvalidPDF, decode(t, body).Code)
}

func TestConvertEndpointNoContent(t *testing.T) {
	app := setupTestApp(t)

	req := uploadRequest(t, "/api/convert", "empty.pdf", testutil.PDF(), nil)
	resp, body := doRequest(t, app, req)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	out := decode(t, body)
	assert.False(t, out.Success)
	assert.Empty(t, out.Records)
}

func TestConvertEndpoint(t *testing.T) {
	app := setupTestApp(t)
	data := testutil.PDF(testutil.InvoiceLines("IV-10234"), testutil.InvoiceLines("IV-10235"))

	resp, body := doRequest(t, app, uploadRequest(t, "/api/convert", "march.pdf", data, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	out := decode(t, body)
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 2, out.Complete)
	assert.Equal(t, models.Columns("RM"), out.Columns)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "IV-10235", out.Rows[1][0])
	assert.Equal(t, "Widget A", out.Rows[0][2])
	assert.Empty(t, out.RawText)

	require.Len(t, out.Records, 2)
	assert.Equal(t, models.Some("IV-10234"), out.Records[0].InvoiceNo)
	assert.Equal(t, models.Some(3), out.Records[0].Qty)
	assert.Equal(t, models.StatusComplete, out.Records[1].Status)

	var raw struct {
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, "10.00", raw.Records[0]["unitPrice"])
	assert.Equal(t, "2.40", raw.Records[0]["tax"])
	assert.Equal(t, out.Rows[0][models.FieldUnitPrice], raw.Records[0]["unitPrice"])

	require.NotNil(t, out.File)
	assert.Equal(t, writer.DefaultXLSXName, out.File.Name)
	workbook, err := base64.StdEncoding.DecodeString(out.File.Data)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(workbook))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(writer.DefaultSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestConvertEndpointDebugText(t *testing.T) {
	app := setupTestApp(t)
	data := testutil.PDF(testutil.InvoiceLines("IV-1"))

	req := uploadRequest(t, "/api/convert", "a.pdf", data, map[string]string{"debug": "true", "format": "csv"})
	resp, body := doRequest(t, app, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decode(t, body)
	assert.Contains(t, out.RawText, "IV-1")
	assert.Equal(t, writer.DefaultCSVName, out.File.Name)
}

func TestDownloadEndpoint(t *testing.T) {
	app := setupTestApp(t)
	data := testutil.PDF(testutil.InvoiceLines("IV-7"))

	req := uploadRequest(t, "/api/convert/download", "a.pdf", data, map[string]string{"format": "csv"})
	resp, body := doRequest(t, app, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, writer.CSVContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `attachment; filename="invoices_all_pages.csv"`, resp.Header.Get(fiber.HeaderContentDisposition))
	assert.Equal(t, "1", resp.Header.Get("X-Record-Count"))
	assert.Contains(t, string(body), "IV-7,05/03/2024,Widget A")
}

func TestDownloadEndpointUnknownTemplate(t *testing.T) {
	app := setupTestApp(t)
	data := testutil.PDF(testutil.InvoiceLines("IV-7"))

	req := uploadRequest(t, "/api/convert/download", "a.pdf", data, map[string]string{"template": "nope"})
	resp, body := doRequest(t, app, req)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeBadRequest, decode(t, body).Code)
}

func TestConvertEndpointExportFailure(t *testing.T) {
	conv, err := converter.New(converter.Options{SheetName: "March: draft"})
	require.NoError(t, err)
	app := NewApp(&Handler{Converter: conv, Version: "test"}, 1<<20)

	data := testutil.PDF(testutil.InvoiceLines("IV-8"))
	resp, body := doRequest(t, app, uploadRequest(t, "/api/convert", "a.pdf", data, nil))

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	out := decode(t, body)
	assert.False(t, out.Success)
	assert.Equal(t, CodeInternal, out.Code)
}
