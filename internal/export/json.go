package export

import (
	"encoding/json"
	"time"
)

type jsonDocument struct {
	Project jsonProject `json:"project"`
	Images  []jsonImage `json:"images"`
}

type jsonProject struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
	ImageCount   int       `json:"imageCount"`
}

type jsonImage struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Width       uint             `json:"width"`
	Height      uint             `json:"height"`
	Annotations []jsonAnnotation `json:"annotations"`
}

type jsonAnnotation struct {
	ID            string    `json:"id"`
	ImageID       string    `json:"imageId"`
	LabelID       string    `json:"labelId"`
	Name          string    `json:"name"`
	Type          ShapeType `json:"type"`
	Coordinates   []Point   `json:"coordinates"`
	Color         string    `json:"color"`
	IsAIGenerated bool      `json:"isAIGenerated"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// EncodeJSON nests annotations under their images under the project. It never
// fails on an empty project.
func EncodeJSON(s Snapshot) ([]byte, error) {
	doc := jsonDocument{
		Project: jsonProject{
			ID:           s.Project.ID,
			Name:         s.Project.Name,
			CreatedAt:    s.Project.CreatedAt,
			LastModified: s.Project.LastModified,
			ImageCount:   len(s.Images),
		},
		Images: make([]jsonImage, 0, len(s.Images)),
	}

	byImage := s.groupByImage()
	for _, img := range s.Images {
		ji := jsonImage{
			ID:          img.ID,
			Name:        img.Name,
			Width:       img.Width,
			Height:      img.Height,
			Annotations: make([]jsonAnnotation, 0, len(byImage[img.ID])),
		}
		for _, a := range byImage[img.ID] {
			coords := a.Coordinates
			if coords == nil {
				coords = []Point{}
			}
			ji.Annotations = append(ji.Annotations, jsonAnnotation{
				ID:            a.ID,
				ImageID:       a.ImageID,
				LabelID:       a.LabelID,
				Name:          a.Name,
				Type:          a.Type,
				Coordinates:   coords,
				Color:         a.Color,
				IsAIGenerated: a.IsAIGenerated,
				CreatedAt:     a.CreatedAt,
				UpdatedAt:     a.UpdatedAt,
			})
		}
		doc.Images = append(doc.Images, ji)
	}

	return json.MarshalIndent(doc, "", "  ")
}

// DecodeJSON reads a document produced by EncodeJSON back into a snapshot.
// Labels are not part of the document.
func DecodeJSON(b []byte) (Snapshot, error) {
	var doc jsonDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return Snapshot{}, err
	}
	s := Snapshot{
		Project: Project{
			ID:           doc.Project.ID,
			Name:         doc.Project.Name,
			CreatedAt:    doc.Project.CreatedAt,
			LastModified: doc.Project.LastModified,
		},
		Images: make([]Image, 0, len(doc.Images)),
	}
	for _, ji := range doc.Images {
		s.Images = append(s.Images, Image{
			ID:        ji.ID,
			Name:      ji.Name,
			Width:     ji.Width,
			Height:    ji.Height,
			ProjectID: doc.Project.ID,
		})
		for _, a := range ji.Annotations {
			s.Annotations = append(s.Annotations, Annotation{
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
			})
		}
	}
	return s, nil
}
