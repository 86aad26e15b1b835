package usecase

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/vailabel/vailabel-studio-sub002/internal/export"
)

type ExportState string

const (
	ExportStateIdle       ExportState = "IDLE"
	ExportStateValidating ExportState = "VALIDATING"
	ExportStateFetching   ExportState = "FETCHING"
	ExportStateEncoding   ExportState = "ENCODING"
	ExportStatePackaging  ExportState = "PACKAGING"
	ExportStateDelivering ExportState = "DELIVERING"
	ExportStateDone       ExportState = "DONE"
	ExportStateFailed     ExportState = "FAILED"
)

const instrumentation = "github.com/vailabel/vailabel-studio-sub002/internal/usecase"

var (
	tracer = otel.Tracer(instrumentation)
	meter  = otel.Meter(instrumentation)

	exportsCounter, _ = meter.Int64Counter("export.runs",
		metric.WithDescription("Project exports by format and outcome"))
	exportBytes, _ = meter.Int64Histogram("export.size",
		metric.WithDescription("Size of delivered exports"), metric.WithUnit("By"))
	exportSkipped, _ = meter.Int64Counter("export.skipped_annotations",
		metric.WithDescription("Annotations a format could not represent"))
)

type ExportProjectOption struct {
	ProjectID string
	Format    export.Format
	// FilenamePrefix overrides the project name in the download filename.
	FilenamePrefix string
	NormalizeBoxes bool
	Strict         bool

	Sink    Sink
	OnState func(ExportState)
}

type ExportResult struct {
	Filename string
	MimeType string
	Size     int
	Files    int
	Skipped  export.Skipped
	Delivery Delivery
}

// ExportProject runs one export from repository read to sink delivery. Nothing
// is delivered unless encoding fully succeeds, and a failed delivery is not
// rolled back.
func (u Usecase) ExportProject(ctx context.Context, opt ExportProjectOption) (res ExportResult, err error) {
	ctx, span := tracer.Start(ctx, "usecase.ExportProject", trace.WithAttributes(
		attribute.String("project.id", opt.ProjectID),
		attribute.String("export.format", string(opt.Format)),
	))
	defer span.End()

	logger := u.logger.With(
		slog.String("project_id", opt.ProjectID),
		slog.String("format", string(opt.Format)),
	)
	state := ExportStateIdle
	enter := func(s ExportState) {
		state = s
		span.AddEvent(string(s))
		logger.DebugContext(ctx, "export state", slog.String("state", string(s)))
		if opt.OnState != nil {
			opt.OnState(s)
		}
	}

	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.ErrorContext(ctx, "export failed",
				slog.String("state", string(state)), slog.String("err", err.Error()))
			enter(ExportStateFailed)
		}
		exportsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("format", string(opt.Format)),
			attribute.String("outcome", outcome),
		))
	}()

	enter(ExportStateValidating)
	f, err := export.ParseFormat(string(opt.Format))
	if err != nil {
		return ExportResult{}, ErrInvalidArgument{Field: "format", Message: err.Error()}
	}
	if opt.Sink == nil {
		return ExportResult{}, ErrInvalidArgument{Field: "sink", Message: "no delivery sink"}
	}
	project, err := u.GetProjectByID(ctx, opt.ProjectID)
	if err != nil {
		return ExportResult{}, err
	}
	images, _, err := u.repo.ListImages(ctx, ListImagesOption{ProjectID: project.ID})
	if err != nil {
		return ExportResult{}, err
	}
	if f == export.FormatCOCO && len(images) == 0 {
		return ExportResult{}, export.EmptyDatasetError{ProjectID: project.ID}
	}

	if err := ctx.Err(); err != nil {
		return ExportResult{}, err
	}
	enter(ExportStateFetching)
	snap, err := u.fetchSnapshot(ctx, project, images)
	if err != nil {
		return ExportResult{}, err
	}
	span.SetAttributes(
		attribute.Int("export.images", len(snap.Images)),
		attribute.Int("export.annotations", len(snap.Annotations)),
	)

	if err := ctx.Err(); err != nil {
		return ExportResult{}, err
	}
	enter(ExportStateEncoding)
	encoded, err := export.Encode(f, snap, export.Options{
		NormalizeBoxes: opt.NormalizeBoxes,
		Strict:         opt.Strict,
		Now:            u.now,
	})
	if err != nil {
		return ExportResult{}, err
	}
	if n := encoded.Skipped.Total(); n > 0 {
		logger.InfoContext(ctx, "annotations skipped", slog.Int("count", n), slog.Any("reasons", encoded.Skipped))
		for reason, c := range encoded.Skipped {
			exportSkipped.Add(ctx, int64(c), metric.WithAttributes(
				attribute.String("format", string(f)),
				attribute.String("reason", string(reason)),
			))
		}
	}

	if f.MultiFile() {
		enter(ExportStatePackaging)
	}
	data, err := export.Package(encoded)
	if err != nil {
		return ExportResult{}, err
	}

	if err := ctx.Err(); err != nil {
		return ExportResult{}, err
	}
	prefix := opt.FilenamePrefix
	if prefix == "" {
		prefix = project.Name
	}
	filename := f.Filename(prefix)

	enter(ExportStateDelivering)
	delivery, err := opt.Sink.Deliver(ctx, data, filename, f.MimeType())
	if err != nil {
		var ioErr export.IOError
		if !errors.As(err, &ioErr) {
			err = export.IOError{Op: "deliver " + filename, Err: err}
		}
		return ExportResult{}, err
	}
	exportBytes.Record(ctx, int64(len(data)), metric.WithAttributes(attribute.String("format", string(f))))

	enter(ExportStateDone)
	logger.InfoContext(ctx, "export delivered",
		slog.String("filename", filename),
		slog.Int("size", len(data)),
		slog.String("location", delivery.Location),
	)
	return ExportResult{
		Filename: filename,
		MimeType: f.MimeType(),
		Size:     len(data),
		Files:    len(encoded.Files),
		Skipped:  encoded.Skipped,
		Delivery: delivery,
	}, nil
}

// fetchSnapshot reads annotations for exactly the given images, then labels.
// Annotations pointing at other images are dropped.
func (u Usecase) fetchSnapshot(ctx context.Context, project Project, images []Image) (export.Snapshot, error) {
	snap := export.Snapshot{
		Project: project.toExport(),
		Images:  make([]export.Image, 0, len(images)),
	}
	ids := make([]string, 0, len(images))
	owned := make(map[string]struct{}, len(images))
	for _, img := range images {
		snap.Images = append(snap.Images, img.toExport())
		ids = append(ids, img.ID)
		owned[img.ID] = struct{}{}
	}

	if len(ids) > 0 {
		anns, err := u.repo.ListAnnotations(ctx, ListAnnotationsOption{ImageIDs: ids})
		if err != nil {
			return export.Snapshot{}, err
		}
		var orphans int
		for _, a := range anns {
			if _, ok := owned[a.ImageID]; !ok {
				orphans++
				continue
			}
			snap.Annotations = append(snap.Annotations, a.toExport())
		}
		if orphans > 0 {
			u.logger.WarnContext(ctx, "dropped annotations of foreign images",
				slog.String("project_id", project.ID), slog.Int("count", orphans))
		}
	}

	labels, err := u.repo.ListLabels(ctx, project.ID)
	if err != nil {
		return export.Snapshot{}, err
	}
	for _, l := range labels {
		snap.Labels = append(snap.Labels, l.toExport())
	}
	return snap, nil
}
