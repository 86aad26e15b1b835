package kvstore

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vailabel/vailabel-studio-sub002/internal/export"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type projectRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type imageRecord struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Width     uint      `json:"width"`
	Height    uint      `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

type labelRecord struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type annotationRecord struct {
	ID            string           `json:"id"`
	ImageID       string           `json:"image_id"`
	LabelID       string           `json:"label_id,omitempty"`
	Name          string           `json:"name"`
	Type          export.ShapeType `json:"type"`
	Coordinates   []export.Point   `json:"coordinates"`
	Color         string           `json:"color,omitempty"`
	IsAIGenerated bool             `json:"is_ai_generated"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (s *Store) ListProjects(ctx context.Context, opt usecase.ListProjectsOption) ([]usecase.Project, int, error) {
	ids, err := s.rdb.ZRange(ctx, s.projectsKey(), 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.projectKey(id)
	}
	recs, err := mgetJSON[projectRecord](ctx, s.rdb, keys)
	if err != nil {
		return nil, 0, err
	}

	if opt.Name != "" {
		needle := strings.ToLower(opt.Name)
		recs = slices.DeleteFunc(recs, func(p projectRecord) bool {
			return !strings.Contains(strings.ToLower(p.Name), needle)
		})
	}
	sortProjects(recs, opt.SortBy, opt.SortIn)
	count := len(recs)
	recs = paginate(recs, opt.Skip, opt.Limit)

	counts, err := s.imageCounts(ctx, recs)
	if err != nil {
		return nil, 0, err
	}
	list := make([]usecase.Project, 0, len(recs))
	for i, p := range recs {
		up := p.toUsecase()
		up.ImageCount = counts[i]
		list = append(list, up)
	}
	return list, count, nil
}

// sortProjects orders like the relational backend: created_at DESC unless
// told otherwise.
func sortProjects(recs []projectRecord, by, in string) {
	desc := in != "ASC"
	slices.SortStableFunc(recs, func(a, b projectRecord) int {
		var c int
		switch by {
		case "name":
			c = cmp.Compare(a.Name, b.Name)
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if desc {
			return -c
		}
		return c
	})
}

func (s *Store) imageCounts(ctx context.Context, recs []projectRecord) ([]int, error) {
	cmds := make([]*redis.IntCmd, len(recs))
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, r := range recs {
			cmds[i] = p.LLen(ctx, s.projectImagesKey(r.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(recs))
	for i, c := range cmds {
		counts[i] = int(c.Val())
	}
	return counts, nil
}

func (s *Store) GetProjectByID(ctx context.Context, id string) (usecase.Project, error) {
	var rec projectRecord
	ok, err := s.getJSON(ctx, s.projectKey(id), &rec)
	if err != nil {
		return usecase.Project{}, err
	}
	if !ok {
		return usecase.Project{}, usecase.ErrNotFound{
			ID:      id,
			Code:    "project_not_found",
			Message: "project " + id + " not found",
		}
	}
	p := rec.toUsecase()
	n, err := s.rdb.LLen(ctx, s.projectImagesKey(id)).Result()
	if err != nil {
		return usecase.Project{}, err
	}
	p.ImageCount = int(n)
	return p, nil
}

// ListImages returns images in insertion order.
func (s *Store) ListImages(ctx context.Context, opt usecase.ListImagesOption) ([]usecase.Image, int, error) {
	ids, err := s.rdb.LRange(ctx, s.projectImagesKey(opt.ProjectID), 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}
	count := len(ids)
	ids = paginate(ids, opt.Skip, opt.Limit)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.imageKey(id)
	}
	recs, err := mgetJSON[imageRecord](ctx, s.rdb, keys)
	if err != nil {
		return nil, 0, err
	}
	list := make([]usecase.Image, 0, len(recs))
	for _, r := range recs {
		list = append(list, r.toUsecase())
	}
	return list, count, nil
}

func (s *Store) ListLabels(ctx context.Context, projectID string) ([]usecase.Label, error) {
	ids, err := s.rdb.LRange(ctx, s.projectLabelsKey(projectID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.labelKey(id)
	}
	recs, err := mgetJSON[labelRecord](ctx, s.rdb, keys)
	if err != nil {
		return nil, err
	}
	list := make([]usecase.Label, 0, len(recs))
	for _, r := range recs {
		list = append(list, r.toUsecase())
	}
	return list, nil
}

// ListAnnotations returns annotations grouped by image in the order of
// opt.ImageIDs, each group in insertion order.
func (s *Store) ListAnnotations(ctx context.Context, opt usecase.ListAnnotationsOption) ([]usecase.Annotation, error) {
	if len(opt.ImageIDs) == 0 {
		return []usecase.Annotation{}, nil
	}
	cmds := make([]*redis.StringSliceCmd, len(opt.ImageIDs))
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range opt.ImageIDs {
			cmds[i] = p.LRange(ctx, s.imageAnnotationsKey(id), 0, -1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, c := range cmds {
		for _, id := range c.Val() {
			keys = append(keys, s.annotationKey(id))
		}
	}
	recs, err := mgetJSON[annotationRecord](ctx, s.rdb, keys)
	if err != nil {
		return nil, err
	}
	list := make([]usecase.Annotation, 0, len(recs))
	for _, r := range recs {
		list = append(list, r.toUsecase())
	}
	return list, nil
}

// UpdateAnnotation applies upd under WATCH so a concurrent writer aborts the
// transaction instead of being overwritten.
func (s *Store) UpdateAnnotation(ctx context.Context, id string, upd usecase.AnnotationUpdate) (usecase.Annotation, error) {
	key := s.annotationKey(id)
	var rec annotationRecord

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return usecase.ErrNotFound{
				ID:      id,
				Code:    "annotation_not_found",
				Message: "annotation " + id + " not found",
			}
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &rec); err != nil {
			return err
		}
		rec.apply(upd, s.now())

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			return setJSON(ctx, p, key, rec)
		})
		return err
	}, key)
	if err != nil {
		return usecase.Annotation{}, err
	}
	return rec.toUsecase(), nil
}

func (r *annotationRecord) apply(upd usecase.AnnotationUpdate, now time.Time) {
	if upd.LabelID != nil {
		r.LabelID = *upd.LabelID
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.Type != nil {
		r.Type = *upd.Type
	}
	if upd.Coordinates != nil {
		r.Coordinates = *upd.Coordinates
	}
	if upd.Color != nil {
		r.Color = *upd.Color
	}
	if upd.IsAIGenerated != nil {
		r.IsAIGenerated = *upd.IsAIGenerated
	}
	r.UpdatedAt = now.UTC()
}

// CreateProject and the other Create* helpers seed the store for the CLI and
// tests.
func (s *Store) CreateProject(ctx context.Context, p usecase.Project) (usecase.Project, error) {
	now := s.now().UTC()
	rec := projectRecord{
		ID:          orNewID(p.ID),
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   orNow(p.CreatedAt, now),
		UpdatedAt:   orNow(p.LastModified, now),
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := setJSON(ctx, pipe, s.projectKey(rec.ID), rec); err != nil {
			return err
		}
		return pipe.ZAdd(ctx, s.projectsKey(), redis.Z{Score: float64(rec.CreatedAt.UnixMilli()), Member: rec.ID}).Err()
	})
	if err != nil {
		return usecase.Project{}, err
	}
	return rec.toUsecase(), nil
}

func (s *Store) CreateImage(ctx context.Context, i usecase.Image) (usecase.Image, error) {
	rec := imageRecord{
		ID:        orNewID(i.ID),
		ProjectID: i.ProjectID,
		Name:      i.Name,
		URL:       i.URL,
		Width:     i.Width,
		Height:    i.Height,
		CreatedAt: orNow(i.CreatedAt, s.now().UTC()),
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := setJSON(ctx, p, s.imageKey(rec.ID), rec); err != nil {
			return err
		}
		return p.RPush(ctx, s.projectImagesKey(rec.ProjectID), rec.ID).Err()
	})
	if err != nil {
		return usecase.Image{}, err
	}
	return rec.toUsecase(), nil
}

func (s *Store) CreateLabel(ctx context.Context, l usecase.Label) (usecase.Label, error) {
	rec := labelRecord{
		ID:        orNewID(l.ID),
		ProjectID: l.ProjectID,
		Name:      l.Name,
		Category:  l.Category,
		Color:     l.Color,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := setJSON(ctx, p, s.labelKey(rec.ID), rec); err != nil {
			return err
		}
		return p.RPush(ctx, s.projectLabelsKey(rec.ProjectID), rec.ID).Err()
	})
	if err != nil {
		return usecase.Label{}, err
	}
	return rec.toUsecase(), nil
}

func (s *Store) CreateAnnotation(ctx context.Context, a usecase.Annotation) (usecase.Annotation, error) {
	now := s.now().UTC()
	rec := annotationRecord{
		ID:            orNewID(a.ID),
		ImageID:       a.ImageID,
		LabelID:       a.LabelID,
		Name:          a.Name,
		Type:          a.Type,
		Coordinates:   a.Coordinates,
		Color:         a.Color,
		IsAIGenerated: a.IsAIGenerated,
		CreatedAt:     orNow(a.CreatedAt, now),
		UpdatedAt:     orNow(a.UpdatedAt, now),
	}
	if rec.Coordinates == nil {
		rec.Coordinates = []export.Point{}
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := setJSON(ctx, p, s.annotationKey(rec.ID), rec); err != nil {
			return err
		}
		return p.RPush(ctx, s.imageAnnotationsKey(rec.ImageID), rec.ID).Err()
	})
	if err != nil {
		return usecase.Annotation{}, err
	}
	return rec.toUsecase(), nil
}

func orNewID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}

func (r projectRecord) toUsecase() usecase.Project {
	return usecase.Project{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		CreatedAt:    r.CreatedAt,
		LastModified: r.UpdatedAt,
	}
}

func (r imageRecord) toUsecase() usecase.Image {
	return usecase.Image{
		ID:        r.ID,
		Name:      r.Name,
		URL:       r.URL,
		Width:     r.Width,
		Height:    r.Height,
		ProjectID: r.ProjectID,
		CreatedAt: r.CreatedAt,
	}
}

func (r labelRecord) toUsecase() usecase.Label {
	return usecase.Label{
		ID:        r.ID,
		Name:      r.Name,
		Category:  r.Category,
		Color:     r.Color,
		ProjectID: r.ProjectID,
	}
}

func (r annotationRecord) toUsecase() usecase.Annotation {
	return usecase.Annotation{
		ID:            r.ID,
		ImageID:       r.ImageID,
		LabelID:       r.LabelID,
		Name:          r.Name,
		Type:          r.Type,
		Coordinates:   r.Coordinates,
		Color:         r.Color,
		IsAIGenerated: r.IsAIGenerated,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
