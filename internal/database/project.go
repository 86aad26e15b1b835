package database

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type Project struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	Name        string    `gorm:"column:name;type:varchar(255);NOT NULL"`
	Description string    `gorm:"column:description;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`

	ImageCount int `gorm:"->;-:migration;column:image_count"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Image struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	ProjectID string    `gorm:"column:project_id;type:varchar(64);index;NOT NULL"`
	Name      string    `gorm:"column:name;type:varchar(255);NOT NULL"`
	URL       string    `gorm:"column:url;type:text"`
	Width     uint      `gorm:"column:width;default:0"`
	Height    uint      `gorm:"column:height;default:0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Image) TableName() string {
	return "images"
}

func (i *Image) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type Label struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	ProjectID string    `gorm:"column:project_id;type:varchar(64);index;NOT NULL"`
	Name      string    `gorm:"column:name;type:varchar(255);NOT NULL"`
	Category  string    `gorm:"column:category;type:varchar(255)"`
	Color     string    `gorm:"column:color;type:varchar(32)"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Label) TableName() string {
	return "labels"
}

func (l *Label) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

var projectSortColumns = []string{"name", "created_at", "updated_at"}

func withImageCount(db *gorm.DB) *gorm.DB {
	return db.Select("projects.*, (SELECT COUNT(*) FROM images WHERE images.project_id = projects.id) AS image_count")
}

func (s *service) ListProjects(ctx context.Context, opt usecase.ListProjectsOption) ([]usecase.Project, int, error) {
	var (
		projects []Project
		count    int64
	)

	db := s.db.Model([]Project{}).WithContext(ctx)
	if opt.Name != "" {
		db = db.Where("LOWER(name) LIKE LOWER(?)", "%"+opt.Name+"%")
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var (
		orderIn = "DESC"
		orderBy = "created_at"
	)
	if slices.Contains([]string{"ASC", "DESC"}, opt.SortIn) {
		orderIn = opt.SortIn
	}
	if slices.Contains(projectSortColumns, opt.SortBy) {
		orderBy = opt.SortBy
	}
	db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}, Desc: orderIn == "DESC"})

	if opt.Limit > 0 {
		db = db.Limit(opt.Limit)
	}
	if opt.Skip > 0 {
		db = db.Offset(opt.Skip)
	}

	if err := withImageCount(db).Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	list := make([]usecase.Project, 0, len(projects))
	for _, p := range projects {
		list = append(list, p.ConvertToUsecase())
	}
	return list, int(count), nil
}

func (s *service) GetProjectByID(ctx context.Context, id string) (usecase.Project, error) {
	var p Project
	if err := withImageCount(s.db.WithContext(ctx).Model(&Project{})).
		Where("projects.id = ?", id).
		Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usecase.Project{}, usecase.ErrNotFound{
				ID:      id,
				Code:    "project_not_found",
				Message: "project " + id + " not found",
			}
		}
		return usecase.Project{}, err
	}
	return p.ConvertToUsecase(), nil
}

// ListImages keeps insertion order, which is the export traversal order.
func (s *service) ListImages(ctx context.Context, opt usecase.ListImagesOption) ([]usecase.Image, int, error) {
	var (
		images []Image
		count  int64
	)

	db := s.db.Model([]Image{}).WithContext(ctx).Where("project_id = ?", opt.ProjectID)
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("created_at ASC").Order("id ASC")
	if opt.Limit > 0 {
		db = db.Limit(opt.Limit)
	}
	if opt.Skip > 0 {
		db = db.Offset(opt.Skip)
	}
	if err := db.Find(&images).Error; err != nil {
		return nil, 0, err
	}

	list := make([]usecase.Image, 0, len(images))
	for _, img := range images {
		list = append(list, img.ConvertToUsecase())
	}
	return list, int(count), nil
}

func (s *service) ListLabels(ctx context.Context, projectID string) ([]usecase.Label, error) {
	var labels []Label
	if err := s.db.
		WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").Order("id ASC").
		Find(&labels).Error; err != nil {
		return nil, err
	}

	list := make([]usecase.Label, 0, len(labels))
	for _, l := range labels {
		list = append(list, l.ConvertToUsecase())
	}
	return list, nil
}

func (s *service) CreateProject(ctx context.Context, p usecase.Project) (usecase.Project, error) {
	m := Project{ID: p.ID, Name: p.Name, Description: p.Description}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return usecase.Project{}, err
	}
	return m.ConvertToUsecase(), nil
}

func (s *service) CreateImage(ctx context.Context, i usecase.Image) (usecase.Image, error) {
	m := Image{
		ID:        i.ID,
		ProjectID: i.ProjectID,
		Name:      i.Name,
		URL:       i.URL,
		Width:     i.Width,
		Height:    i.Height,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return usecase.Image{}, err
	}
	return m.ConvertToUsecase(), nil
}

func (s *service) CreateLabel(ctx context.Context, l usecase.Label) (usecase.Label, error) {
	m := Label{
		ID:        l.ID,
		ProjectID: l.ProjectID,
		Name:      l.Name,
		Category:  l.Category,
		Color:     l.Color,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return usecase.Label{}, err
	}
	return m.ConvertToUsecase(), nil
}

func (p Project) ConvertToUsecase() usecase.Project {
	return usecase.Project{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		ImageCount:   p.ImageCount,
		CreatedAt:    p.CreatedAt,
		LastModified: p.UpdatedAt,
	}
}

func (i Image) ConvertToUsecase() usecase.Image {
	return usecase.Image{
		ID:        i.ID,
		Name:      i.Name,
		URL:       i.URL,
		Width:     i.Width,
		Height:    i.Height,
		ProjectID: i.ProjectID,
		CreatedAt: i.CreatedAt,
	}
}

func (l Label) ConvertToUsecase() usecase.Label {
	return usecase.Label{
		ID:        l.ID,
		Name:      l.Name,
		Category:  l.Category,
		Color:     l.Color,
		ProjectID: l.ProjectID,
	}
}
