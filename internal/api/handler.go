// Package api exposes the import pipeline over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/models"
	"github.com/insightdelivered/statement-ingest/internal/pipeline"
	"github.com/insightdelivered/statement-ingest/internal/writer"
)

// DefaultUserID is used when a request does not name a user.
const DefaultUserID = "default"

// Importer runs one import. *pipeline.Pipeline satisfies it.
type Importer interface {
	Import(ctx context.Context, req pipeline.Request) (*models.ImportResult, error)
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	NeedsPassword bool   `json:"needsPassword,omitempty"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Importer Importer
	Logger   *log.Logger
	Version  string
}

// NewApp builds the fiber app with every route registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "statement-ingest",
		BodyLimit:             32 << 20,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Get("/api/health", h.HandleHealth)
	router.Post("/api/import", h.HandleImport)
	router.Post("/api/export", h.HandleExport)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
	})
}

// HandleImport runs an import and returns the ImportResult.
// Accepts multipart (file, password, user_id, dry_run) or a form/JSON body with text.
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	req, err := h.importRequest(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}

	res, err := h.Importer.Import(c.UserContext(), req)
	if err != nil {
		return h.writeImportError(c, err)
	}
	return c.JSON(res)
}

// HandleExport previews an import and returns the accepted rows as CSV.
// Nothing is stored.
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	req, err := h.importRequest(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}
	req.DryRun = true

	res, err := h.Importer.Import(c.UserContext(), req)
	if err != nil {
		return h.writeImportError(c, err)
	}
	if res.NeedsPassword {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error:         firstOr(res.Errors, "the PDF is password protected"),
			NeedsPassword: true,
		})
	}

	comma := ','
	if c.Query("sep") == ";" {
		comma = ';'
	}
	var buf bytes.Buffer
	w := &writer.CSVWriter{IncludeHeader: c.Query("header") != "false", Comma: comma}
	if err := w.Write(&buf, res.Accepted); err != nil {
		return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	return c.Send(buf.Bytes())
}

type textBody struct {
	Text     string `json:"text" form:"text"`
	UserID   string `json:"user_id" form:"user_id"`
	Password string `json:"password" form:"password"`
	DryRun   bool   `json:"dry_run" form:"dry_run"`
	Source   string `json:"source" form:"source"`
}

func (h *Handler) importRequest(c *fiber.Ctx) (pipeline.Request, error) {
	var body textBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
			return pipeline.Request{}, fmt.Errorf("failed to parse request: %v", err)
		}
	}

	req := pipeline.Request{
		UserID:   body.UserID,
		Source:   models.Source(strings.ToLower(body.Source)),
		Text:     body.Text,
		Password: body.Password,
		DryRun:   body.DryRun,
	}
	if req.UserID == "" {
		req.UserID = DefaultUserID
	}

	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return req, fmt.Errorf("failed to read uploaded file: %v", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return req, fmt.Errorf("failed to read uploaded file: %v", err)
		}
		req.Filename = fh.Filename
		req.Data = data
	}

	if req.Data == nil && strings.TrimSpace(req.Text) == "" {
		return req, errors.New("no file uploaded and no text pasted: use form field 'file' or 'text'")
	}
	return req, nil
}

func (h *Handler) writeImportError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if h.Logger != nil {
		h.Logger.Warn("import failed", "status", status, "err", err)
	}
	return writeError(c, status, common.UserMessage(err))
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnsupportedSource):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrFormatUnrecognized), errors.Is(err, common.ErrExtractionFailure):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Success: false, Error: msg})
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}
