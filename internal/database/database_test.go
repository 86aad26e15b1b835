package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vailabel/vailabel-studio-sub002/internal/export"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

func newTestService(t *testing.T) *service {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: NewSlogGormLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	})
	require.NoError(t, err)

	s, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *service) {
	t.Helper()
	ctx := context.Background()

	_, err := s.CreateProject(ctx, usecase.Project{ID: "p1", Name: "Street Scenes"})
	require.NoError(t, err)
	_, err = s.CreateProject(ctx, usecase.Project{ID: "p2", Name: "Fields"})
	require.NoError(t, err)

	for _, img := range []usecase.Image{
		{ID: "i1", Name: "a.jpg", Width: 100, Height: 200, ProjectID: "p1"},
		{ID: "i2", Name: "b.jpg", Width: 640, Height: 480, ProjectID: "p1"},
		{ID: "i3", Name: "c.jpg", ProjectID: "p2"},
	} {
		_, err := s.CreateImage(ctx, img)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	_, err = s.CreateLabel(ctx, usecase.Label{ID: "l1", Name: "car", Category: "vehicle", Color: "red", ProjectID: "p1"})
	require.NoError(t, err)

	for _, a := range []usecase.Annotation{
		{ID: "a1", ImageID: "i1", LabelID: "l1", Name: "car", Type: export.ShapeBox,
			Coordinates: []export.Point{{X: 10, Y: 20}, {X: 30, Y: 40}}, Color: "red"},
		{ID: "a2", ImageID: "i2", Name: "road", Type: export.ShapePolygon,
			Coordinates: []export.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3}}, IsAIGenerated: true},
		{ID: "a3", ImageID: "i3", Name: "tree", Type: export.ShapeBox,
			Coordinates: []export.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}},
	} {
		_, err := s.CreateAnnotation(ctx, a)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
}

func TestProjects(t *testing.T) {
	s := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	t.Run("get with image count", func(t *testing.T) {
		p, err := s.GetProjectByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Street Scenes", p.Name)
		assert.Equal(t, 2, p.ImageCount)
		assert.False(t, p.CreatedAt.IsZero())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.GetProjectByID(ctx, "missing")
		var nf usecase.ErrNotFound
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "project_not_found", nf.Code)
	})

	t.Run("list and filter", func(t *testing.T) {
		list, total, err := s.ListProjects(ctx, usecase.ListProjectsOption{SortBy: "name", SortIn: "ASC"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, list, 2)
		assert.Equal(t, "Fields", list[0].Name)
		assert.Equal(t, 1, list[0].ImageCount)

		list, total, err = s.ListProjects(ctx, usecase.ListProjectsOption{Name: "street"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "p1", list[0].ID)
	})
}

func TestImagesAndAnnotations(t *testing.T) {
	s := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	images, total, err := s.ListImages(ctx, usecase.ListImagesOption{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, images, 2)
	assert.Equal(t, "i1", images[0].ID)
	assert.Equal(t, "i2", images[1].ID)
	assert.Equal(t, uint(200), images[0].Height)

	anns, err := s.ListAnnotations(ctx, usecase.ListAnnotationsOption{ImageIDs: []string{"i1", "i2"}})
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, "a1", anns[0].ID)
	assert.Equal(t, export.ShapeBox, anns[0].Type)
	assert.Equal(t, []export.Point{{X: 10, Y: 20}, {X: 30, Y: 40}}, anns[0].Coordinates)
	assert.True(t, anns[1].IsAIGenerated)

	anns, err = s.ListAnnotations(ctx, usecase.ListAnnotationsOption{})
	require.NoError(t, err)
	assert.Empty(t, anns)

	labels, err := s.ListLabels(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "vehicle", labels[0].Category)
}

func TestListAnnotations_Batches(t *testing.T) {
	s := newTestService(t)
	seed(t, s)

	ids := []string{"i1"}
	for i := 0; i < annotationBatchSize+10; i++ {
		ids = append(ids, fmt.Sprintf("ghost-%d", i))
	}
	ids = append(ids, "i2")

	anns, err := s.ListAnnotations(context.Background(), usecase.ListAnnotationsOption{ImageIDs: ids})
	require.NoError(t, err)
	assert.Len(t, anns, 2)
}

func TestUpdateAnnotation(t *testing.T) {
	s := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	name := "truck"
	coords := []export.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	ai := false
	a, err := s.UpdateAnnotation(ctx, "a2", usecase.AnnotationUpdate{
		Name:          &name,
		Coordinates:   &coords,
		IsAIGenerated: &ai,
	})
	require.NoError(t, err)
	assert.Equal(t, "truck", a.Name)
	assert.Equal(t, coords, a.Coordinates)
	assert.False(t, a.IsAIGenerated)
	assert.Equal(t, export.ShapePolygon, a.Type)

	_, err = s.UpdateAnnotation(ctx, "missing", usecase.AnnotationUpdate{Name: &name})
	var nf usecase.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestAnnotationUpdateColumns(t *testing.T) {
	color := "green"
	typ := export.ShapeFreeDraw
	cols := annotationUpdateColumns(usecase.AnnotationUpdate{Color: &color, Type: &typ})
	assert.Equal(t, map[string]any{"color": "green", "type": "freeDraw"}, cols)

	assert.Empty(t, annotationUpdateColumns(usecase.AnnotationUpdate{}))
}

func TestJobs(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, usecase.Job{
		Type:        "export:project",
		RequestedBy: "u1",
		Status:      usecase.JobStatusPending,
		Payload:     []byte(`{"project_id":"p1"}`),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, job.ID)

	started := time.Now().Add(-2 * time.Hour).UTC()
	job.Status = usecase.JobStatusProcessing
	job.StartedAt = &started
	job.Error = "transient"
	job, err = s.UpdateJob(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, usecase.JobStatusProcessing, job.Status)
	assert.Equal(t, "transient", job.Error)

	job.Error = ""
	job.Status = usecase.JobStatusCompleted
	job.Result = []byte(`{"path":"exports/x.zip"}`)
	job, err = s.UpdateJob(ctx, job)
	require.NoError(t, err)
	assert.Empty(t, job.Error)
	assert.JSONEq(t, `{"path":"exports/x.zip"}`, string(job.Result))

	_, err = s.CreateJob(ctx, usecase.Job{Type: "export:project", RequestedBy: "u2", Status: usecase.JobStatusPending})
	require.NoError(t, err)

	list, total, err := s.ListJobs(ctx, usecase.ListJobsOption{RequestedBy: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, job.ID, list[0].ID)

	cutoff := time.Now().Add(-time.Hour).UTC()
	list, _, err = s.ListJobs(ctx, usecase.ListJobsOption{StartedBefore: &cutoff})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, total, err = s.ListJobs(ctx, usecase.ListJobsOption{Statuses: []string{usecase.JobStatusPending}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, err = s.GetJobByID(ctx, uuid.New())
	var nf usecase.ErrNotFound
	assert.True(t, errors.As(err, &nf))

	_, err = s.UpdateJob(ctx, usecase.Job{ID: uuid.New(), Status: usecase.JobStatusFailed})
	assert.True(t, errors.As(err, &nf))
}

func TestHealth(t *testing.T) {
	s := newTestService(t)
	stats := s.Health()
	assert.Equal(t, "up", stats["status"])
	assert.Equal(t, "sqlite", stats["dialect"])
}
