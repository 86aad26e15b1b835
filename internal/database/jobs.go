package database

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type Job struct {
	ID          uuid.UUID      `gorm:"column:id;primaryKey;type:varchar(36)"`
	Type        string         `gorm:"column:type;type:varchar(255);NOT NULL"`
	RequestedBy string         `gorm:"column:requested_by;type:varchar(255);index"`
	Status      string         `gorm:"column:status;type:varchar(32);index;NOT NULL"`
	Payload     datatypes.JSON `gorm:"column:payload"`
	Result      datatypes.JSON `gorm:"column:result"`
	Error       string         `gorm:"column:error;type:text"`
	StartedAt   *time.Time     `gorm:"column:started_at"`
	FinishedAt  *time.Time     `gorm:"column:finished_at"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j *Job) BeforeCreate(*gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

func (s *service) CreateJob(ctx context.Context, job usecase.Job) (usecase.Job, error) {
	j := Job{
		ID:          job.ID,
		Type:        job.Type,
		RequestedBy: job.RequestedBy,
		Status:      job.Status,
		Payload:     datatypes.JSON(job.Payload),
	}
	if err := s.db.
		WithContext(ctx).
		Create(&j).Error; err != nil {
		return usecase.Job{}, err
	}

	return j.ConvertToUsecase(), nil
}

func (s *service) ListJobs(ctx context.Context, opt usecase.ListJobsOption) ([]usecase.Job, int, error) {
	var (
		jobs  []Job
		ujobs []usecase.Job
		count int64
	)

	db := s.db.Model([]Job{}).WithContext(ctx)

	if opt.Types != nil {
		db = db.Where("type IN ?", opt.Types)
	}
	if opt.Statuses != nil {
		db = db.Where("status IN ?", opt.Statuses)
	}
	if opt.RequestedBy != "" {
		db = db.Where("requested_by = ?", opt.RequestedBy)
	}
	if opt.StartedBefore != nil {
		db = db.Where("started_at < ?", opt.StartedBefore.UTC())
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
	if slices.Contains([]string{"created_at", "updated_at", "started_at", "finished_at"}, opt.SortBy) {
		orderBy = opt.SortBy
	}

	db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}, Desc: orderIn == "DESC"})

	if opt.Limit > 0 {
		db = db.Limit(opt.Limit)
	}
	if opt.Skip > 0 {
		db = db.Offset(opt.Skip)
	}

	if err := db.Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	for _, job := range jobs {
		ujobs = append(ujobs, job.ConvertToUsecase())
	}

	return ujobs, int(count), nil
}

// UpdateJob writes every mutable column, so clearing Error or Result sticks.
func (s *service) UpdateJob(ctx context.Context, job usecase.Job) (usecase.Job, error) {
	res := s.db.
		WithContext(ctx).
		Model(&Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"type":         job.Type,
			"requested_by": job.RequestedBy,
			"status":       job.Status,
			"payload":      datatypes.JSON(job.Payload),
			"result":       datatypes.JSON(job.Result),
			"error":        job.Error,
			"started_at":   utc(job.StartedAt),
			"finished_at":  utc(job.FinishedAt),
		})
	if res.Error != nil {
		return usecase.Job{}, res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.Job{}, jobNotFound(job.ID)
	}

	return s.GetJobByID(ctx, job.ID)
}

func (s *service) GetJobByID(ctx context.Context, id uuid.UUID) (usecase.Job, error) {
	var job Job
	if err := s.db.
		WithContext(ctx).
		Take(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usecase.Job{}, jobNotFound(id)
		}
		return usecase.Job{}, err
	}

	return job.ConvertToUsecase(), nil
}

// Timestamps are stored in UTC so that SQLite's text comparison orders them.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func jobNotFound(id uuid.UUID) error {
	return usecase.ErrNotFound{
		ID:      id.String(),
		Code:    "job_not_found",
		Message: "job " + id.String() + " not found",
	}
}

// Convert core model to usecase model
func (j Job) ConvertToUsecase() usecase.Job {
	return usecase.Job{
		ID:          j.ID,
		Type:        j.Type,
		RequestedBy: j.RequestedBy,
		Status:      j.Status,
		Payload:     j.Payload,
		Result:      j.Result,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		FinishedAt:  j.FinishedAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
