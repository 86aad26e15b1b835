package export

import (
	"encoding/json"
	"time"
)

const (
	cocoVersion     = "1.0"
	cocoContributor = "Image Labeling App"
)

type cocoDocument struct {
	Info        cocoInfo         `json:"info"`
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

type cocoInfo struct {
	Year        int    `json:"year"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
}

type cocoImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    uint   `json:"width"`
	Height   uint   `json:"height"`
}

type cocoAnnotation struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	Segmentation [][]float64 `json:"segmentation"`
	Area         float64     `json:"area"`
	BBox         []float64   `json:"bbox"`
	IsCrowd      int         `json:"iscrowd"`
	Color        string      `json:"color"`
}

type cocoCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// EncodeCOCO builds an MS COCO detection document. now stamps the info block.
func EncodeCOCO(s Snapshot, now time.Time) ([]byte, error) {
	if len(s.Images) == 0 {
		return nil, EmptyDatasetError{ProjectID: s.Project.ID}
	}

	now = now.UTC()
	doc := cocoDocument{
		Info: cocoInfo{
			Year:        now.Year(),
			Version:     cocoVersion,
			Description: "Annotations for " + s.Project.Name,
			Contributor: cocoContributor,
			DateCreated: now.Format(time.RFC3339),
		},
		Images:      make([]cocoImage, 0, len(s.Images)),
		Annotations: make([]cocoAnnotation, 0, len(s.Annotations)),
	}

	for i, img := range s.Images {
		doc.Images = append(doc.Images, cocoImage{
			ID:       i + 1,
			FileName: img.Name,
			Width:    img.Width,
			Height:   img.Height,
		})
	}

	reg := BuildRegistry(s, 1)
	s.Visit(func(imageIndex int, _ Image, a Annotation) {
		id, _ := reg.Index(a.Name)
		ann := cocoAnnotation{
			ID:           len(doc.Annotations) + 1,
			ImageID:      imageIndex + 1,
			CategoryID:   id,
			Segmentation: [][]float64{},
			Area:         Area(a),
			BBox:         []float64{},
			Color:        colorOf(a),
		}
		switch a.Type {
		case ShapeBox:
			if tl, br, ok := boxCorners(a.Coordinates); ok {
				ann.BBox = []float64{tl.X, tl.Y, br.X - tl.X, br.Y - tl.Y}
			}
		case ShapePolygon, ShapeFreeDraw:
			if len(a.Coordinates) > 0 {
				ann.Segmentation = [][]float64{flatten(a.Coordinates)}
				r := BBox(a.Coordinates)
				ann.BBox = []float64{r.MinX, r.MinY, r.Width(), r.Height()}
			}
		}
		doc.Annotations = append(doc.Annotations, ann)
	})

	doc.Categories = make([]cocoCategory, 0, reg.Len())
	for _, name := range reg.Names() {
		id, _ := reg.Index(name)
		doc.Categories = append(doc.Categories, cocoCategory{
			ID:            id,
			Name:          name,
			Supercategory: reg.Category(name),
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

func flatten(pts []Point) []float64 {
	out := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, p.X, p.Y)
	}
	return out
}
