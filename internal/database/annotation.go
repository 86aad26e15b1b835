package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vailabel/vailabel-studio-sub002/internal/export"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type Annotation struct {
	ID            string                            `gorm:"column:id;primaryKey;type:varchar(64)"`
	ImageID       string                            `gorm:"column:image_id;type:varchar(64);index;NOT NULL"`
	LabelID       string                            `gorm:"column:label_id;type:varchar(64)"`
	Name          string                            `gorm:"column:name;type:varchar(255)"`
	Type          string                            `gorm:"column:type;type:varchar(32);NOT NULL"`
	Coordinates   datatypes.JSONSlice[export.Point] `gorm:"column:coordinates"`
	Color         string                            `gorm:"column:color;type:varchar(32)"`
	IsAIGenerated bool                              `gorm:"column:is_ai_generated;default:false"`
	CreatedAt     time.Time                         `gorm:"column:created_at"`
	UpdatedAt     time.Time                         `gorm:"column:updated_at"`
}

func (Annotation) TableName() string {
	return "annotations"
}

func (a *Annotation) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// sqlite caps bound parameters per statement
const annotationBatchSize = 500

func (s *service) ListAnnotations(ctx context.Context, opt usecase.ListAnnotationsOption) ([]usecase.Annotation, error) {
	list := make([]usecase.Annotation, 0)
	for start := 0; start < len(opt.ImageIDs); start += annotationBatchSize {
		end := min(start+annotationBatchSize, len(opt.ImageIDs))

		var anns []Annotation
		if err := s.db.
			WithContext(ctx).
			Where("image_id IN ?", opt.ImageIDs[start:end]).
			Order("created_at ASC").Order("id ASC").
			Find(&anns).Error; err != nil {
			return nil, err
		}
		for _, a := range anns {
			list = append(list, a.ConvertToUsecase())
		}
	}
	return list, nil
}

// annotationUpdateColumns maps the set fields of upd to their columns.
func annotationUpdateColumns(upd usecase.AnnotationUpdate) map[string]any {
	cols := make(map[string]any)
	if upd.LabelID != nil {
		cols["label_id"] = *upd.LabelID
	}
	if upd.Name != nil {
		cols["name"] = *upd.Name
	}
	if upd.Type != nil {
		cols["type"] = string(*upd.Type)
	}
	if upd.Coordinates != nil {
		cols["coordinates"] = datatypes.NewJSONSlice(*upd.Coordinates)
	}
	if upd.Color != nil {
		cols["color"] = *upd.Color
	}
	if upd.IsAIGenerated != nil {
		cols["is_ai_generated"] = *upd.IsAIGenerated
	}
	return cols
}

func (s *service) UpdateAnnotation(ctx context.Context, id string, upd usecase.AnnotationUpdate) (usecase.Annotation, error) {
	cols := annotationUpdateColumns(upd)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Annotation{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usecase.Annotation{}, usecase.ErrNotFound{
				ID:      id,
				Code:    "annotation_not_found",
				Message: "annotation " + id + " not found",
			}
		}
		return usecase.Annotation{}, err
	}

	var a Annotation
	if err := s.db.WithContext(ctx).Take(&a, "id = ?", id).Error; err != nil {
		return usecase.Annotation{}, err
	}
	return a.ConvertToUsecase(), nil
}

func (s *service) CreateAnnotation(ctx context.Context, a usecase.Annotation) (usecase.Annotation, error) {
	m := Annotation{
		ID:            a.ID,
		ImageID:       a.ImageID,
		LabelID:       a.LabelID,
		Name:          a.Name,
		Type:          string(a.Type),
		Coordinates:   datatypes.NewJSONSlice(a.Coordinates),
		Color:         a.Color,
		IsAIGenerated: a.IsAIGenerated,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return usecase.Annotation{}, err
	}
	return m.ConvertToUsecase(), nil
}

func (a Annotation) ConvertToUsecase() usecase.Annotation {
	coords := []export.Point(a.Coordinates)
	if coords == nil {
		coords = []export.Point{}
	}
	return usecase.Annotation{
		ID:            a.ID,
		ImageID:       a.ImageID,
		LabelID:       a.LabelID,
		Name:          a.Name,
		Type:          export.ShapeType(a.Type),
		Coordinates:   coords,
		Color:         a.Color,
		IsAIGenerated: a.IsAIGenerated,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
