package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/insightdelivered/invoice-converter/internal/converter"
	"github.com/insightdelivered/invoice-converter/internal/extractor"
	"github.com/insightdelivered/invoice-converter/internal/models"
)

// Error codes returned in ConvertResponse.Code.
const (
	CodeNoContent  = "no_content"
	CodeInvalidPDF = "invalid_pdf"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

// NoContentMessage is shown when a document yields no invoice records.
const NoContentMessage = "No invoice content was found. Please check that the PDF is a text-based invoice."

// ConvertResponse is the JSON response from the /api/convert endpoint.
type ConvertResponse struct {
	Success   bool                   `json:"success"`
	Error     string                 `json:"error,omitempty"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Template  string                 `json:"template,omitempty"`
	Count     int                    `json:"count"`
	Complete  int                    `json:"complete"`
	Columns   []string               `json:"columns,omitempty"`
	Rows      [][]string             `json:"rows"`
	Records   []models.InvoiceRecord `json:"records"`
	File      *FileInfo              `json:"file,omitempty"`
	RawText   string                 `json:"rawText,omitempty"`
	Version   string                 `json:"version,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
}

// FileInfo carries the exported spreadsheet inline.
type FileInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"` // base64
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Converter *converter.Converter
	Version   string
	StaticDir string
}

// NewApp builds a fiber app with middleware and routes registered.
func NewApp(h *Handler, bodyLimit int64) *fiber.App {
	limit := int(bodyLimit)
	if limit <= 0 {
		limit = fiber.DefaultBodyLimit
	}
	// Leave room for the multipart envelope around the file.
	limit += 1 << 20

	app := fiber.New(fiber.Config{
		AppName:      "invoice-converter",
		BodyLimit:    limit,
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/convert", h.HandleConvert)
	app.Post("/api/convert/download", h.HandleDownload)

	if h.StaticDir != "" {
		app.Static("/", h.StaticDir, fiber.Static{Index: "index.html"})
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
	})
}

// HandleConvert extracts records from the uploaded PDF and returns a preview
// together with the exported file.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	res, status, resp := h.convert(c)
	if res == nil {
		return c.Status(status).JSON(resp)
	}

	records := res.Report.Records
	rows := make([][]string, len(records))
	for i := range records {
		rows[i] = records[i].Cells()
	}

	resp = ConvertResponse{
		Success:  true,
		Message:  fmt.Sprintf("Extracted %d invoice(s) (some may have missing fields)", len(records)),
		Template: res.Report.Template,
		Count:    len(records),
		Complete: res.Report.CompleteCount(),
		Columns:  models.Columns(res.Report.Currency),
		Rows:     rows,
		Records:  records,
		File: &FileInfo{
			Name:        res.FileName,
			ContentType: res.ContentType,
			Data:        base64.StdEncoding.EncodeToString(res.File),
		},
		Version:   h.Version,
		RequestID: requestID(c),
	}
	if c.FormValue("debug") == "true" {
		resp.RawText = strings.Join(res.Pages, "\n--- PAGE BREAK ---\n")
	}
	return c.JSON(resp)
}

// HandleDownload returns the exported spreadsheet as an attachment.
func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	res, status, resp := h.convert(c)
	if res == nil {
		return c.Status(status).JSON(resp)
	}

	c.Set(fiber.HeaderContentType, res.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, res.FileName))
	c.Set("X-Record-Count", fmt.Sprint(len(res.Report.Records)))
	return c.Send(res.File)
}

// convert reads the upload and runs the converter. On failure it returns a nil
// result with the status and body to send.
func (h *Handler) convert(c *fiber.Ctx) (*converter.Result, int, ConvertResponse) {
	fail := func(status int, code, msg string) (*converter.Result, int, ConvertResponse) {
		return nil, status, ConvertResponse{
			Success:   false,
			Error:     msg,
			Code:      code,
			Rows:      [][]string{},
			Records:   []models.InvoiceRecord{},
			Version:   h.Version,
			RequestID: requestID(c),
		}
	}

	header, err := c.FormFile("file")
	if err != nil {
		return fail(fiber.StatusBadRequest, CodeBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		return fail(fiber.StatusBadRequest, CodeBadRequest, "Only PDF files are supported.")
	}

	file, err := header.Open()
	if err != nil {
		return fail(fiber.StatusInternalServerError, CodeInternal, "Failed to read uploaded file.")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fail(fiber.StatusInternalServerError, CodeInternal, "Failed to read uploaded file.")
	}

	res, err := h.Converter.ConvertWith(data, c.FormValue("template"), c.FormValue("format"))
	switch {
	case err == nil:
		log.Infof("%s: converted %q, %d record(s)", requestID(c), header.Filename, len(res.Report.Records))
		return res, fiber.StatusOK, ConvertResponse{}
	case converter.IsNoContent(err):
		log.Warnf("%s: no content in %q: %v", requestID(c), header.Filename, err)
		return fail(fiber.StatusUnprocessableEntity, CodeNoContent, NoContentMessage)
	case errors.Is(err, extractor.ErrMalformedPDF):
		log.Warnf("%s: unreadable PDF %q: %v", requestID(c), header.Filename, err)
		return fail(fiber.StatusUnprocessableEntity, CodeInvalidPDF, err.Error())
	case errors.Is(err, converter.ErrTooLarge):
		return fail(fiber.StatusRequestEntityTooLarge, CodeBadRequest, err.Error())
	case errors.Is(err, converter.ErrExport):
		log.Errorf("%s: export of %q failed: %v", requestID(c), header.Filename, err)
		return fail(fiber.StatusInternalServerError, CodeInternal, "Failed to build the spreadsheet.")
	default:
		log.Errorf("%s: conversion of %q failed: %v", requestID(c), header.Filename, err)
		return fail(fiber.StatusBadRequest, CodeBadRequest, err.Error())
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return ""
}

// errorHandler renders fiber errors in the ConvertResponse shape.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(ConvertResponse{
		Success: false,
		Error:   err.Error(),
		Code:    CodeInternal,
		Rows:    [][]string{},
		Records: []models.InvoiceRecord{},
	})
}
