package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vailabel/vailabel-studio-sub002/internal/export"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type Project struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ImageCount   int    `json:"image_count"`
	CreatedAt    string `json:"created_at"`
	LastModified string `json:"last_modified"`
}

type Image struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	URL       string `json:"url,omitempty"`
	Width     uint   `json:"width"`
	Height    uint   `json:"height"`
	CreatedAt string `json:"created_at"`
}

type Annotation struct {
	ID            string         `json:"id"`
	ImageID       string         `json:"image_id"`
	LabelID       string         `json:"label_id,omitempty"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Coordinates   []export.Point `json:"coordinates"`
	Color         string         `json:"color,omitempty"`
	IsAIGenerated bool           `json:"is_ai_generated"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

type ListProjectsRequest struct {
	Skip   int    `query:"skip" validate:"omitempty,min=0"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Name   string `query:"name"`
	SortBy string `query:"sort_by" validate:"omitempty,oneof=name created_at updated_at"`
	SortIn string `query:"sort_in" validate:"omitempty,oneof=asc desc ASC DESC"`
}

func (s *Server) ListProjects(ctx echo.Context) error {
	var req ListProjectsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	projects, total, err := s.server.ListProjects(ctx.Request().Context(), usecase.ListProjectsOption{
		Skip:   req.Skip,
		Limit:  req.Limit,
		Name:   req.Name,
		SortBy: req.SortBy,
		SortIn: strings.ToUpper(req.SortIn),
	})
	if err != nil {
		return errorJSON(ctx, err)
	}

	list := make([]Project, 0, len(projects))
	for _, p := range projects {
		list = append(list, toProject(p))
	}
	return ctx.JSON(http.StatusOK, Res{
		Data: list,
		Meta: &Meta{Total: total, Skip: req.Skip, Limit: req.Limit},
	})
}

type GetProjectByIDRequest struct {
	ID string `param:"id" validate:"required"`
}

func (s *Server) GetProjectByID(ctx echo.Context) error {
	var req GetProjectByIDRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	p, err := s.server.GetProjectByID(ctx.Request().Context(), req.ID)
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toProject(p)})
}

type ListImagesRequest struct {
	ProjectID string `param:"id" validate:"required"`
	Skip      int    `query:"skip" validate:"omitempty,min=0"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=500"`
}

func (s *Server) ListImages(ctx echo.Context) error {
	var req ListImagesRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	images, total, err := s.server.ListImages(ctx.Request().Context(), usecase.ListImagesOption{
		ProjectID: req.ProjectID,
		Skip:      req.Skip,
		Limit:     req.Limit,
	})
	if err != nil {
		return errorJSON(ctx, err)
	}

	list := make([]Image, 0, len(images))
	for _, i := range images {
		list = append(list, Image{
			ID:        i.ID,
			ProjectID: i.ProjectID,
			Name:      i.Name,
			URL:       i.URL,
			Width:     i.Width,
			Height:    i.Height,
			CreatedAt: formatTime(i.CreatedAt),
		})
	}
	return ctx.JSON(http.StatusOK, Res{
		Data: list,
		Meta: &Meta{Total: total, Skip: req.Skip, Limit: req.Limit},
	})
}

// UpdateAnnotationRequest changes only the fields present in the body.
type UpdateAnnotationRequest struct {
	ID            string          `param:"id" validate:"required"`
	LabelID       *string         `json:"label_id"`
	Name          *string         `json:"name" validate:"omitempty,max=255"`
	Type          *string         `json:"type" validate:"omitempty,oneof=box polygon freeDraw"`
	Coordinates   *[]export.Point `json:"coordinates"`
	Color         *string         `json:"color" validate:"omitempty,max=32"`
	IsAIGenerated *bool           `json:"is_ai_generated"`
}

func (s *Server) UpdateAnnotation(ctx echo.Context) error {
	var req UpdateAnnotationRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	upd := usecase.AnnotationUpdate{
		LabelID:       req.LabelID,
		Name:          req.Name,
		Coordinates:   req.Coordinates,
		Color:         req.Color,
		IsAIGenerated: req.IsAIGenerated,
	}
	if req.Type != nil {
		t := export.ShapeType(*req.Type)
		upd.Type = &t
	}

	a, err := s.server.UpdateAnnotation(ctx.Request().Context(), req.ID, upd)
	if err != nil {
		return errorJSON(ctx, err)
	}

	coords := a.Coordinates
	if coords == nil {
		coords = []export.Point{}
	}
	return ctx.JSON(http.StatusOK, Res{Data: Annotation{
		ID:            a.ID,
		ImageID:       a.ImageID,
		LabelID:       a.LabelID,
		Name:          a.Name,
		Type:          string(a.Type),
		Coordinates:   coords,
		Color:         a.Color,
		IsAIGenerated: a.IsAIGenerated,
		CreatedAt:     formatTime(a.CreatedAt),
		UpdatedAt:     formatTime(a.UpdatedAt),
	}})
}

func toProject(p usecase.Project) Project {
	return Project{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		ImageCount:   p.ImageCount,
		CreatedAt:    formatTime(p.CreatedAt),
		LastModified: formatTime(p.LastModified),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
