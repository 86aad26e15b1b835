package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) healthHandler(ctx echo.Context) error {
	stats := s.server.Health()
	if stats["status"] != "up" {
		return ctx.JSON(http.StatusServiceUnavailable, stats)
	}
	return ctx.JSON(http.StatusOK, stats)
}

type ExportFormat struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Extension   string `json:"extension"`
}

func (s *Server) ListExportFormats(ctx echo.Context) error {
	formats := s.server.ListExportFormats()
	list := make([]ExportFormat, 0, len(formats))
	for _, f := range formats {
		list = append(list, ExportFormat{
			ID:          string(f.ID),
			Name:        f.Name,
			Description: f.Description,
			Extension:   f.Extension,
		})
	}
	return ctx.JSON(http.StatusOK, Res{Data: list})
}
