package export

import (
	"strings"
	"time"
)

type ShapeType string

const (
	ShapeBox      ShapeType = "box"
	ShapePolygon  ShapeType = "polygon"
	ShapeFreeDraw ShapeType = "freeDraw"
)

const (
	DefaultCategory = "Uncategorized"
	DefaultColor    = "blue"
	unlabeled       = "unlabeled"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Project struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	LastModified time.Time
}

type Image struct {
	ID        string
	Name      string
	Width     uint
	Height    uint
	ProjectID string
}

type Annotation struct {
	ID            string
	ImageID       string
	LabelID       string
	Name          string
	Type          ShapeType
	Coordinates   []Point
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

// Snapshot is the read-only view of one project taken for a single export.
// Annotations must already be joined to Images; order is preserved.
type Snapshot struct {
	Project     Project
	Images      []Image
	Annotations []Annotation
	Labels      []Label
}

// Visit walks annotations in image order, then in their original order within
// each image. Every encoder and the category registry use this traversal.
func (s Snapshot) Visit(fn func(imageIndex int, img Image, a Annotation)) {
	byImage := s.groupByImage()
	for i, img := range s.Images {
		for _, a := range byImage[img.ID] {
			fn(i, img, a)
		}
	}
}

func (s Snapshot) groupByImage() map[string][]Annotation {
	m := make(map[string][]Annotation, len(s.Images))
	for _, a := range s.Annotations {
		m[a.ImageID] = append(m[a.ImageID], a)
	}
	return m
}

func (s Snapshot) label(id string) (Label, bool) {
	for _, l := range s.Labels {
		if l.ID == id {
			return l, true
		}
	}
	return Label{}, false
}

func colorOf(a Annotation) string {
	if a.Color == "" {
		return DefaultColor
	}
	return a.Color
}

func categoryOf(l Label) string {
	if strings.TrimSpace(l.Category) == "" {
		return DefaultCategory
	}
	return l.Category
}

// baseName strips the last extension the same way the studio UI does, so
// "a.b.jpg" becomes "a.b" and ".hidden" becomes "".
func baseName(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 || strings.Contains(name[i+1:], "/") {
		return name
	}
	return name[:i]
}
