package server

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
	"github.com/vailabel/vailabel-studio-sub002/internal/export"
	"github.com/vailabel/vailabel-studio-sub002/internal/filestorage"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

const syncExportTimeout = 2 * time.Minute

type CreateExportRequest struct {
	ProjectID      string `param:"id" validate:"required"`
	Format         string `json:"format" validate:"required"`
	FilenamePrefix string `json:"filename_prefix" validate:"omitempty,max=100"`
	NormalizeBoxes bool   `json:"normalize_boxes"`
	Strict         bool   `json:"strict"`
	// Async queues the export as a job instead of returning the file.
	Async       bool   `json:"async"`
	NotifyEmail string `json:"notify_email" validate:"omitempty,email"`
}

func (s *Server) CreateExport(ctx echo.Context) error {
	var req CreateExportRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	if req.Async {
		return s.createExportJob(ctx, req)
	}
	return s.downloadExport(ctx, req)
}

func (s *Server) createExportJob(ctx echo.Context, req CreateExportRequest) error {
	job, err := s.server.CreateExportJob(ctx.Request().Context(), usecase.ExportProjectJobPayload{
		ProjectID:      req.ProjectID,
		Format:         export.Format(req.Format),
		FilenamePrefix: req.FilenamePrefix,
		NormalizeBoxes: req.NormalizeBoxes,
		Strict:         req.Strict,
		NotifyEmail:    req.NotifyEmail,
	})
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusAccepted, Res{Data: toJob(job), Message: "export queued"})
}

type syncExport struct {
	res  usecase.ExportResult
	data []byte
}

// downloadExport runs the export inside the request and streams the file
// back. Identical concurrent requests share one run.
func (s *Server) downloadExport(ctx echo.Context, req CreateExportRequest) error {
	if !s.exportLimiter.Allow() {
		return ctx.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many exports, retry later"})
	}

	key := fmt.Sprintf("%s|%s|%s|%t|%t", req.ProjectID, req.Format, req.FilenamePrefix, req.NormalizeBoxes, req.Strict)
	v, err, shared := s.exports.Do(key, func() (any, error) {
		// one caller leaving must not cancel the run the others wait on
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request().Context()), syncExportTimeout)
		defer cancel()

		sink := filestorage.NewMemoryStorage()
		res, err := s.server.ExportProject(runCtx, usecase.ExportProjectOption{
			ProjectID:      req.ProjectID,
			Format:         export.Format(req.Format),
			FilenamePrefix: req.FilenamePrefix,
			NormalizeBoxes: req.NormalizeBoxes,
			Strict:         req.Strict,
			Sink:           sink,
		})
		if err != nil {
			return nil, err
		}
		data, _, _ := sink.Get(res.Delivery.Location)
		return syncExport{res: res, data: data}, nil
	})
	if err != nil {
		return errorJSON(ctx, err)
	}
	if shared {
		s.logger.DebugContext(ctx.Request().Context(), "shared export result", "key", key)
	}

	out := v.(syncExport)
	h := ctx.Response().Header()
	h.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": out.res.Filename}))
	h.Set(config.HEADER_KEY_X_EXPORT_SKIPPED, strconv.Itoa(out.res.Skipped.Total()))
	return ctx.Blob(http.StatusOK, out.res.MimeType, out.data)
}
