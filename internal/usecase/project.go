package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/vailabel/vailabel-studio-sub002/internal/export"
)

type Project struct {
	ID           string
	Name         string
	Description  string
	ImageCount   int
	CreatedAt    time.Time
	LastModified time.Time
}

type Image struct {
	ID        string
	Name      string
	URL       string
	Width     uint
	Height    uint
	ProjectID string
	CreatedAt time.Time
}

type Annotation struct {
	ID            string
	ImageID       string
	LabelID       string
	Name          string
	Type          export.ShapeType
	Coordinates   []export.Point
	Color         string
	IsAIGenerated bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Label struct {
	ID        string
	Name      string
	Category  string
	Color     string
	ProjectID string
}

type ListProjectsOption struct {
	Skip   int
	Limit  int
	Name   string
	SortBy string
	SortIn string
}

type ListImagesOption struct {
	ProjectID string
	Skip      int
	Limit     int
}

type ListAnnotationsOption struct {
	ImageIDs []string
}

// AnnotationUpdate carries the fields a caller wants changed. Nil fields are
// left untouched.
type AnnotationUpdate struct {
	LabelID       *string
	Name          *string
	Type          *export.ShapeType
	Coordinates   *[]export.Point
	Color         *string
	IsAIGenerated *bool
}

func (u AnnotationUpdate) IsZero() bool {
	return u.LabelID == nil &&
		u.Name == nil &&
		u.Type == nil &&
		u.Coordinates == nil &&
		u.Color == nil &&
		u.IsAIGenerated == nil
}

func (u Usecase) ListProjects(ctx context.Context, opt ListProjectsOption) ([]Project, int, error) {
	return u.repo.ListProjects(ctx, opt)
}

func (u Usecase) GetProjectByID(ctx context.Context, id string) (Project, error) {
	if strings.TrimSpace(id) == "" {
		return Project{}, ErrInvalidArgument{Field: "id", Message: "project id is required"}
	}
	return u.repo.GetProjectByID(ctx, id)
}

func (u Usecase) ListImages(ctx context.Context, opt ListImagesOption) ([]Image, int, error) {
	if _, err := u.GetProjectByID(ctx, opt.ProjectID); err != nil {
		return nil, 0, err
	}
	return u.repo.ListImages(ctx, opt)
}

func (u Usecase) UpdateAnnotation(ctx context.Context, id string, upd AnnotationUpdate) (Annotation, error) {
	if upd.IsZero() {
		return Annotation{}, ErrInvalidArgument{Field: "annotation", Message: "nothing to update"}
	}
	if upd.Type != nil {
		switch *upd.Type {
		case export.ShapeBox, export.ShapePolygon, export.ShapeFreeDraw:
		default:
			return Annotation{}, ErrInvalidArgument{Field: "type", Message: "unknown shape type " + string(*upd.Type)}
		}
	}
	return u.repo.UpdateAnnotation(ctx, id, upd)
}

func (a Annotation) toExport() export.Annotation {
	return export.Annotation{
		ID:            a.ID,
		ImageID:       a.ImageID,
		LabelID:       a.LabelID,
		Name:          a.Name,
		Type:          a.Type,
		Coordinates:   a.Coordinates,
		Color:         a.Color,
		IsAIGenerated: a.IsAIGenerated,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func (i Image) toExport() export.Image {
	return export.Image{
		ID:        i.ID,
		Name:      i.Name,
		Width:     i.Width,
		Height:    i.Height,
		ProjectID: i.ProjectID,
	}
}

func (l Label) toExport() export.Label {
	return export.Label{
		ID:        l.ID,
		Name:      l.Name,
		Category:  l.Category,
		Color:     l.Color,
		ProjectID: l.ProjectID,
	}
}

func (p Project) toExport() export.Project {
	return export.Project{
		ID:           p.ID,
		Name:         p.Name,
		CreatedAt:    p.CreatedAt,
		LastModified: p.LastModified,
	}
}
