package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vailabel/vailabel-studio-sub002/internal/export"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededRepo() *fakeRepo {
	r := newFakeRepo()
	r.projects["p1"] = Project{ID: "p1", Name: "Street Scenes", CreatedAt: testNow, LastModified: testNow}
	r.projects["p-empty"] = Project{ID: "p-empty", Name: "Empty"}
	r.images = []Image{
		{ID: "i1", Name: "frame1.jpg", Width: 100, Height: 200, ProjectID: "p1"},
		{ID: "i2", Name: "frame2.jpg", Width: 640, Height: 480, ProjectID: "p1"},
		{ID: "x1", Name: "other.jpg", Width: 10, Height: 10, ProjectID: "p2"},
	}
	r.annotations = []Annotation{
		{ID: "a1", ImageID: "i1", LabelID: "l1", Name: "car", Type: export.ShapeBox,
			Coordinates: []export.Point{{X: 10, Y: 20}, {X: 30, Y: 40}}, Color: "red"},
		{ID: "a2", ImageID: "i2", Name: "road", Type: export.ShapePolygon,
			Coordinates: []export.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3}}},
		{ID: "a3", ImageID: "x1", Name: "tree", Type: export.ShapeBox,
			Coordinates: []export.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}},
	}
	r.labels = []Label{{ID: "l1", Name: "car", Category: "vehicle", ProjectID: "p1"}}
	return r
}

func newTestUsecase(repo Repository, sink FileStorageProvider, mailer Mailer, q Queue, pub JobEventPublisher) Usecase {
	return New(repo, sink, mailer, q, pub, quietLogger()).WithClock(func() time.Time { return testNow })
}

func TestExportProject_States(t *testing.T) {
	tests := []struct {
		format export.Format
		states []ExportState
		mime   string
		name   string
	}{
		{export.FormatJSON, []ExportState{ExportStateValidating, ExportStateFetching, ExportStateEncoding, ExportStateDelivering, ExportStateDone}, export.MimeJSON, "Street-Scenes-export.json"},
		{export.FormatCOCO, []ExportState{ExportStateValidating, ExportStateFetching, ExportStateEncoding, ExportStateDelivering, ExportStateDone}, export.MimeJSON, "Street-Scenes-coco.json"},
		{export.FormatPascalVOC, []ExportState{ExportStateValidating, ExportStateFetching, ExportStateEncoding, ExportStatePackaging, ExportStateDelivering, ExportStateDone}, export.MimeZip, "Street-Scenes-pascal.zip"},
		{export.FormatYOLO, []ExportState{ExportStateValidating, ExportStateFetching, ExportStateEncoding, ExportStatePackaging, ExportStateDelivering, ExportStateDone}, export.MimeZip, "Street-Scenes-yolo.zip"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			sink := &memorySink{}
			uc := newTestUsecase(seededRepo(), nil, nil, nil, nil)

			var states []ExportState
			res, err := uc.ExportProject(context.Background(), ExportProjectOption{
				ProjectID: "p1",
				Format:    tt.format,
				Sink:      sink,
				OnState:   func(s ExportState) { states = append(states, s) },
			})
			require.NoError(t, err)

			assert.Equal(t, tt.states, states)
			assert.Equal(t, tt.name, res.Filename)
			assert.Equal(t, tt.name, sink.filename)
			assert.Equal(t, tt.mime, sink.mimeType)
			assert.Equal(t, len(sink.data), res.Size)
			assert.Equal(t, 1, sink.calls)
		})
	}
}

func TestExportProject_JoinsAnnotationsToImages(t *testing.T) {
	repo := seededRepo()
	// a backend that ignores the image filter
	repo.annotationsOverride = repo.annotations
	sink := &memorySink{}
	uc := newTestUsecase(repo, nil, nil, nil, nil)

	_, err := uc.ExportProject(context.Background(), ExportProjectOption{
		ProjectID: "p1", Format: export.FormatJSON, Sink: sink,
	})
	require.NoError(t, err)

	snap, err := export.DecodeJSON(sink.data)
	require.NoError(t, err)
	require.Len(t, snap.Images, 2)
	require.Len(t, snap.Annotations, 2)
	for _, a := range snap.Annotations {
		assert.NotEqual(t, "a3", a.ID)
	}
}

func TestExportProject_COCOCategories(t *testing.T) {
	sink := &memorySink{}
	uc := newTestUsecase(seededRepo(), nil, nil, nil, nil)

	_, err := uc.ExportProject(context.Background(), ExportProjectOption{
		ProjectID: "p1", Format: export.FormatCOCO, Sink: sink,
	})
	require.NoError(t, err)

	var doc struct {
		Info struct {
			DateCreated string `json:"date_created"`
		} `json:"info"`
		Categories []struct {
			ID            int    `json:"id"`
			Name          string `json:"name"`
			Supercategory string `json:"supercategory"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(sink.data, &doc))
	assert.Equal(t, "2025-06-01T12:00:00Z", doc.Info.DateCreated)
	require.Len(t, doc.Categories, 2)
	assert.Equal(t, "car", doc.Categories[0].Name)
	assert.Equal(t, "vehicle", doc.Categories[0].Supercategory)
	assert.Equal(t, "road", doc.Categories[1].Name)
	assert.Equal(t, "Uncategorized", doc.Categories[1].Supercategory)
}

func TestExportProject_YOLOSkipCount(t *testing.T) {
	uc := newTestUsecase(seededRepo(), nil, nil, nil, nil)

	res, err := uc.ExportProject(context.Background(), ExportProjectOption{
		ProjectID: "p1", Format: export.FormatYOLO, Sink: &memorySink{},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped[export.SkipUnsupportedShape])
	assert.Equal(t, 4, res.Files)
}

func TestExportProject_Errors(t *testing.T) {
	t.Run("project not found", func(t *testing.T) {
		sink := &memorySink{}
		var last ExportState
		uc := newTestUsecase(seededRepo(), nil, nil, nil, nil)
		_, err := uc.ExportProject(context.Background(), ExportProjectOption{
			ProjectID: "missing", Format: export.FormatJSON, Sink: sink,
			OnState: func(s ExportState) { last = s },
		})
		var nf ErrNotFound
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "missing", nf.ID)
		assert.Equal(t, ExportStateFailed, last)
		assert.Zero(t, sink.calls)
	})

	t.Run("coco without images", func(t *testing.T) {
		sink := &memorySink{}
		uc := newTestUsecase(seededRepo(), nil, nil, nil, nil)
		var states []ExportState
		_, err := uc.ExportProject(context.Background(), ExportProjectOption{
			ProjectID: "p-empty", Format: export.FormatCOCO, Sink: sink,
			OnState: func(s ExportState) { states = append(states, s) },
		})
		var empty ErrEmptyDataset
		require.True(t, errors.As(err, &empty))
		assert.Equal(t, "p-empty", empty.ProjectID)
		assert.Zero(t, sink.calls)
		// rejected while validating, nothing fetched
		assert.Equal(t, []ExportState{ExportStateValidating, ExportStateFailed}, states)

		_, err = uc.ExportProject(context.Background(), ExportProjectOption{
			ProjectID: "p-empty", Format: export.FormatJSON, Sink: sink,
		})
		require.NoError(t, err)
		assert.Contains(t, string(sink.data), `"images": []`)
	})

	t.Run("unknown format", func(t *testing.T) {
		uc := newTestUsecase(seededRepo(), nil, nil, nil, nil)
		_, err := uc.ExportProject(context.Background(), ExportProjectOption{
			ProjectID: "p1", Format: "tfrecord", Sink: &memorySink{},
		})
		var inv ErrInvalidArgument
		require.True(t, errors.As(err, &inv))
		assert.Equal(t, "format", inv.Field)
	})

	t.Run("strict validation", func(t *testing.T) {
		repo := seededRepo()
		repo.annotations[0].Coordinates = repo.annotations[0].Coordinates[:1]
		sink := &memorySink{}
		uc := newTestUsecase(repo, nil, nil, nil, nil)

		_, err := uc.ExportProject(context.Background(), ExportProjectOption{
			ProjectID: "p1", Format: export.FormatCOCO, Sink: sink, Strict: true,
		})
		var verr ErrValidation
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "a1", verr.AnnotationID)
		assert.Zero(t, sink.calls)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := seededRepo()
		repo.imagesErr = errBoom
		uc := newTestUsecase(repo, nil, nil, nil, nil)
		_, err := uc.ExportProject(context.Background(), ExportProjectOption{
			ProjectID: "p1", Format: export.FormatJSON, Sink: &memorySink{},
		})
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("delivery failure", func(t *testing.T) {
		sink := &memorySink{err: errBoom}
		uc := newTestUsecase(seededRepo(), nil, nil, nil, nil)
		_, err := uc.ExportProject(context.Background(), ExportProjectOption{
			ProjectID: "p1", Format: export.FormatYOLO, Sink: sink,
		})
		var ioErr ErrIO
		require.True(t, errors.As(err, &ioErr))
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 1, sink.calls)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sink := &memorySink{}
		uc := newTestUsecase(seededRepo(), nil, nil, nil, nil)
		_, err := uc.ExportProject(ctx, ExportProjectOption{
			ProjectID: "p1", Format: export.FormatJSON, Sink: sink,
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, sink.calls)
	})
}

func TestExportProject_Idempotent(t *testing.T) {
	uc := newTestUsecase(seededRepo(), nil, nil, nil, nil)
	for _, f := range export.Formats() {
		a, b := &memorySink{}, &memorySink{}
		_, err := uc.ExportProject(context.Background(), ExportProjectOption{ProjectID: "p1", Format: f.ID, Sink: a})
		require.NoError(t, err)
		_, err = uc.ExportProject(context.Background(), ExportProjectOption{ProjectID: "p1", Format: f.ID, Sink: b})
		require.NoError(t, err)
		assert.Equal(t, a.data, b.data, string(f.ID))
	}
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(ErrNotFound{ID: "x"}))
	assert.True(t, IsPermanent(export.EmptyDatasetError{ProjectID: "x"}))
	assert.True(t, IsPermanent(errors.Join(errBoom, export.ValidationError{})))
	assert.False(t, IsPermanent(export.IOError{Op: "deliver", Err: errBoom}))
	assert.False(t, IsPermanent(errBoom))
}
