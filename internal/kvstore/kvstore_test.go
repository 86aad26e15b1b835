package kvstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vailabel/vailabel-studio-sub002/internal/export"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

func TestKeys(t *testing.T) {
	s := New(nil, "")
	assert.Equal(t, "vl:project:p1", s.projectKey("p1"))
	assert.Equal(t, "vl:project:p1:images", s.projectImagesKey("p1"))
	assert.Equal(t, "vl:image:i1:annotations", s.imageAnnotationsKey("i1"))
	assert.Equal(t, "vl:jobs", s.jobsKey())

	s = New(nil, "test")
	assert.Equal(t, "test:annotation:a1", s.annotationKey("a1"))
}

func TestPaginate(t *testing.T) {
	list := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, paginate(list, 0, 0))
	assert.Equal(t, []int{3, 4}, paginate(list, 2, 2))
	assert.Equal(t, []int{5}, paginate(list, 4, 10))
	assert.Empty(t, paginate(list, 5, 1))
}

func TestSortProjects(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := func() []projectRecord {
		return []projectRecord{
			{ID: "b", Name: "Beta", CreatedAt: t0.Add(time.Hour)},
			{ID: "a", Name: "Alpha", CreatedAt: t0},
			{ID: "c", Name: "Gamma", CreatedAt: t0.Add(2 * time.Hour)},
		}
	}
	ids := func(rs []projectRecord) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	t.Run("default created_at desc", func(t *testing.T) {
		rs := recs()
		sortProjects(rs, "", "")
		assert.Equal(t, []string{"c", "b", "a"}, ids(rs))
	})
	t.Run("name asc", func(t *testing.T) {
		rs := recs()
		sortProjects(rs, "name", "ASC")
		assert.Equal(t, []string{"a", "b", "c"}, ids(rs))
	})
}

func TestFilterAndSortJobs(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	started := t0.Add(time.Minute)
	recs := []jobRecord{
		{ID: uuid.New(), Type: "export:project", Status: "PROCESSING", RequestedBy: "u1", StartedAt: &started, CreatedAt: t0},
		{ID: uuid.New(), Type: "export:project", Status: "PENDING", RequestedBy: "u2", CreatedAt: t0.Add(time.Hour)},
		{ID: uuid.New(), Type: "other", Status: "COMPLETED", RequestedBy: "u1", CreatedAt: t0.Add(2 * time.Hour)},
	}

	t.Run("by user", func(t *testing.T) {
		got := filterJobs(append([]jobRecord(nil), recs...), usecase.ListJobsOption{RequestedBy: "u1"})
		assert.Len(t, got, 2)
	})
	t.Run("stale processing", func(t *testing.T) {
		cutoff := t0.Add(time.Hour)
		got := filterJobs(append([]jobRecord(nil), recs...), usecase.ListJobsOption{
			Statuses:      []string{"PROCESSING"},
			StartedBefore: &cutoff,
		})
		require.Len(t, got, 1)
		assert.Equal(t, recs[0].ID, got[0].ID)
	})
	t.Run("by type", func(t *testing.T) {
		got := filterJobs(append([]jobRecord(nil), recs...), usecase.ListJobsOption{Types: []string{"other"}})
		require.Len(t, got, 1)
		assert.Equal(t, "COMPLETED", got[0].Status)
	})
	t.Run("started_at asc puts unstarted last", func(t *testing.T) {
		rs := append([]jobRecord(nil), recs...)
		sortJobs(rs, "started_at", "ASC")
		assert.Equal(t, recs[0].ID, rs[0].ID)
	})
	t.Run("created_at desc", func(t *testing.T) {
		rs := append([]jobRecord(nil), recs...)
		sortJobs(rs, "", "")
		assert.Equal(t, recs[2].ID, rs[0].ID)
	})
}

func TestAnnotationApply(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := annotationRecord{ID: "a1", Name: "car", Type: export.ShapeBox, Color: "red"}

	name := "truck"
	pts := []export.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}
	rec.apply(usecase.AnnotationUpdate{Name: &name, Coordinates: &pts}, now)

	assert.Equal(t, "truck", rec.Name)
	assert.Equal(t, pts, rec.Coordinates)
	assert.Equal(t, "red", rec.Color)
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestRawJSON(t *testing.T) {
	assert.Nil(t, rawJSON(nil))
	assert.Nil(t, rawJSON([]byte("not json")))
	assert.JSONEq(t, `{"a":1}`, string(rawJSON([]byte(`{"a":1}`))))
}

// newRedisStore connects to REDIS_TEST_ADDR. The tests below are skipped
// without a reachable server.
func newRedisStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	prefix := "vltest:" + uuid.NewString()
	t.Cleanup(func() {
		keys, _ := rdb.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			rdb.Del(ctx, keys...)
		}
		rdb.Close()
	})
	return New(rdb, prefix)
}

func TestStoreRoundTrip(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()

	_, err := s.CreateProject(ctx, usecase.Project{ID: "p1", Name: "Street Scenes"})
	require.NoError(t, err)
	_, err = s.CreateImage(ctx, usecase.Image{ID: "i1", Name: "a.jpg", Width: 100, Height: 200, ProjectID: "p1"})
	require.NoError(t, err)
	_, err = s.CreateImage(ctx, usecase.Image{ID: "i2", Name: "b.jpg", Width: 10, Height: 10, ProjectID: "p1"})
	require.NoError(t, err)
	_, err = s.CreateLabel(ctx, usecase.Label{ID: "l1", Name: "car", Category: "vehicle", ProjectID: "p1"})
	require.NoError(t, err)
	_, err = s.CreateAnnotation(ctx, usecase.Annotation{ID: "a1", ImageID: "i2", Name: "road", Type: export.ShapePolygon,
		Coordinates: []export.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}})
	require.NoError(t, err)
	_, err = s.CreateAnnotation(ctx, usecase.Annotation{ID: "a2", ImageID: "i1", LabelID: "l1", Name: "car", Type: export.ShapeBox,
		Coordinates: []export.Point{{X: 10, Y: 20}, {X: 30, Y: 40}}})
	require.NoError(t, err)

	t.Run("project", func(t *testing.T) {
		p, err := s.GetProjectByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 2, p.ImageCount)

		_, err = s.GetProjectByID(ctx, "missing")
		var nf usecase.ErrNotFound
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("annotations follow image order", func(t *testing.T) {
		anns, err := s.ListAnnotations(ctx, usecase.ListAnnotationsOption{ImageIDs: []string{"i1", "i2"}})
		require.NoError(t, err)
		require.Len(t, anns, 2)
		assert.Equal(t, "a2", anns[0].ID)
		assert.Equal(t, "a1", anns[1].ID)
	})

	t.Run("update", func(t *testing.T) {
		color := "green"
		a, err := s.UpdateAnnotation(ctx, "a2", usecase.AnnotationUpdate{Color: &color})
		require.NoError(t, err)
		assert.Equal(t, "green", a.Color)
		assert.Equal(t, "car", a.Name)

		_, err = s.UpdateAnnotation(ctx, "nope", usecase.AnnotationUpdate{Color: &color})
		var nf usecase.ErrNotFound
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("jobs", func(t *testing.T) {
		job, err := s.CreateJob(ctx, usecase.Job{Type: "export:project", Status: "PENDING", Payload: []byte(`{"project_id":"p1"}`)})
		require.NoError(t, err)

		job.Status = "COMPLETED"
		job.Result = []byte(`{"path":"exports/x"}`)
		updated, err := s.UpdateJob(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, "COMPLETED", updated.Status)

		got, err := s.GetJobByID(ctx, job.ID)
		require.NoError(t, err)
		assert.JSONEq(t, `{"path":"exports/x"}`, string(got.Result))

		jobs, count, err := s.ListJobs(ctx, usecase.ListJobsOption{Statuses: []string{"COMPLETED"}})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Len(t, jobs, 1)
	})
}
