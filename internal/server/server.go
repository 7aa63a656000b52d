// Package server exposes one ingestion session over local HTTP: the
// aggregate as JSON, media blobs by canonical path and export downloads.
package server

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"bereal_explorer/internal/export"
	"bereal_explorer/internal/extract"
	"bereal_explorer/internal/filters"
	"bereal_explorer/internal/mediamap"
	"bereal_explorer/internal/model"
	"bereal_explorer/internal/utils"
)

const defaultDownloadName = "bereal"

type Options struct {
	Logger *zap.Logger
	// Location formats batch export folder names.
	Location *time.Location
}

type Handler struct {
	result   *extract.Result
	logger   *zap.Logger
	location *time.Location
}

// New builds the app over result; the caller keeps ownership of result and
// releases it after shutdown.
func New(result *extract.Result, opts Options) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{result: result, logger: logger, location: opts.Location}

	app := fiber.New(fiber.Config{
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
	})
	app.Use(requestLogger(logger))

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/data", h.Data)
	app.Get("/api/warnings", h.Warnings)
	app.Get("/api/stats", h.Stats)
	app.Get("/api/captures", h.Captures)
	app.Get("/api/download", h.Download)
	app.Get("/media/*", h.Media)
	return app
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("elapsed", time.Since(started)),
		)
		return err
	}
}

func jsonSuccess(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"status": "ok", "data": payload})
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}

// GET /api/data
func (h *Handler) Data(c *fiber.Ctx) error {
	return jsonSuccess(c, fiber.StatusOK, h.result.Data)
}

// GET /api/warnings
func (h *Handler) Warnings(c *fiber.Ctx) error {
	return jsonSuccess(c, fiber.StatusOK, h.result.Warnings)
}

// GET /api/stats
func (h *Handler) Stats(c *fiber.Ctx) error {
	return jsonSuccess(c, fiber.StatusOK, fiber.Map{
		"session": h.result.Media.Session(),
		"media":   h.result.Media.Len(),
		"stats":   h.result.Stats,
	})
}

type captureSummary struct {
	ID        string            `json:"id"`
	Kind      model.CaptureKind `json:"kind"`
	TakenAt   time.Time         `json:"takenAt"`
	Caption   string            `json:"caption,omitempty"`
	Primary   string            `json:"primary"`
	Secondary string            `json:"secondary"`
	BTS       string            `json:"bts,omitempty"`
	Late      int64             `json:"lateInSeconds"`
}

// GET /api/captures?kind=memory&q=beach&video=true
func (h *Handler) Captures(c *fiber.Ctx) error {
	criteria := filters.Criteria{
		Kinds:        utils.SplitCSV([]string{c.Query("kind")}),
		RequireVideo: c.QueryBool("video", false),
	}
	if q := c.Query("q"); q != "" {
		criteria.Patterns = []string{q}
	}
	captures, selectErr := filters.Select(h.result.Data, criteria)
	if selectErr != nil {
		return jsonError(c, fiber.StatusBadRequest, selectErr.Error())
	}
	out := make([]captureSummary, 0, len(captures))
	for _, capture := range captures {
		summary := captureSummary{
			ID:        capture.CaptureID(),
			Kind:      capture.Kind(),
			TakenAt:   capture.TakenAt(),
			Caption:   capture.Caption(),
			Primary:   capture.Primary().Path,
			Secondary: capture.Secondary().Path,
			Late:      capture.LateInSeconds(),
		}
		if bts, ok := capture.BTS(); ok {
			summary.BTS = bts.Path
		}
		out = append(out, summary)
	}
	return jsonSuccess(c, fiber.StatusOK, out)
}

// GET /media/<canonical path>
func (h *Handler) Media(c *fiber.Ctx) error {
	mediaPath, unescapeErr := url.PathUnescape(c.Params("*"))
	if unescapeErr != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid media path")
	}
	ref, ok := h.result.Media.Lookup(mediaPath)
	if !ok {
		if h.result.Media.Released() {
			return jsonError(c, fiber.StatusGone, "session released")
		}
		return jsonError(c, fiber.StatusNotFound, "media not found")
	}
	content, bytesErr := h.result.Media.Bytes(mediaPath)
	if bytesErr != nil {
		if errors.Is(bytesErr, mediamap.ErrReleased) {
			return jsonError(c, fiber.StatusGone, "session released")
		}
		return jsonError(c, fiber.StatusNotFound, "media not found")
	}
	c.Set(fiber.HeaderContentType, ref.MIMEType)
	c.Set(fiber.HeaderETag, `"`+ref.ID+`"`)
	return c.Send(content)
}

// GET /api/download?ids=a,b&mode=merged&name=x
func (h *Handler) Download(c *fiber.Ctx) error {
	ids := utils.SplitCSV([]string{c.Query("ids")})
	if len(ids) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "ids missing")
	}
	mode, modeErr := export.ParseMode(c.Query("mode", string(export.ModeMerged)))
	if modeErr != nil {
		return jsonError(c, fiber.StatusBadRequest, modeErr.Error())
	}
	name := c.Query("name", defaultDownloadName)

	items := make([]model.Capture, 0, len(ids))
	for _, id := range ids {
		capture, ok := h.result.Data.FindCapture(id)
		if !ok {
			return jsonError(c, fiber.StatusNotFound, "capture "+id+" not found")
		}
		items = append(items, capture)
	}

	artifact, downloadErr := export.Download(c.UserContext(), items, h.result.Media, mode, name, export.Options{
		Logger:   h.logger,
		Location: h.location,
	})
	switch {
	case downloadErr == nil:
	case errors.Is(downloadErr, export.ErrMissingMedia):
		return jsonError(c, fiber.StatusUnprocessableEntity, downloadErr.Error())
	case errors.Is(downloadErr, mediamap.ErrReleased):
		return jsonError(c, fiber.StatusGone, "session released")
	default:
		h.logger.Error("download failed", zap.Strings("ids", ids), zap.Error(downloadErr))
		return jsonError(c, fiber.StatusInternalServerError, downloadErr.Error())
	}

	c.Attachment(artifact.Name)
	c.Set(fiber.HeaderContentType, artifact.ContentType)
	return c.Send(artifact.Data)
}
