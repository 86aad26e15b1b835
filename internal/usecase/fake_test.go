package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu          sync.Mutex
	projects    map[string]Project
	images      []Image
	annotations []Annotation
	labels      []Label
	jobs        map[uuid.UUID]Job

	// annotationsOverride replaces the ImageIDs filter, to simulate a
	// backend returning rows for foreign images.
	annotationsOverride []Annotation
	imagesErr           error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		projects: make(map[string]Project),
		jobs:     make(map[uuid.UUID]Job),
	}
}

func (r *fakeRepo) Health() map[string]string { return map[string]string{"status": "up"} }
func (r *fakeRepo) Close() error              { return nil }

func (r *fakeRepo) ListProjects(_ context.Context, _ ListProjectsOption) ([]Project, int, error) {
	var out []Project
	for _, p := range r.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeRepo) GetProjectByID(_ context.Context, id string) (Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return Project{}, ErrNotFound{ID: id, Code: "project_not_found", Message: "project " + id + " not found"}
	}
	return p, nil
}

func (r *fakeRepo) ListImages(_ context.Context, opt ListImagesOption) ([]Image, int, error) {
	if r.imagesErr != nil {
		return nil, 0, r.imagesErr
	}
	var out []Image
	for _, img := range r.images {
		if img.ProjectID == opt.ProjectID {
			out = append(out, img)
		}
	}
	return out, len(out), nil
}

func (r *fakeRepo) ListAnnotations(_ context.Context, opt ListAnnotationsOption) ([]Annotation, error) {
	if r.annotationsOverride != nil {
		return r.annotationsOverride, nil
	}
	want := make(map[string]bool, len(opt.ImageIDs))
	for _, id := range opt.ImageIDs {
		want[id] = true
	}
	var out []Annotation
	for _, a := range r.annotations {
		if want[a.ImageID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListLabels(_ context.Context, projectID string) ([]Label, error) {
	var out []Label
	for _, l := range r.labels {
		if l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateAnnotation(_ context.Context, id string, upd AnnotationUpdate) (Annotation, error) {
	for i, a := range r.annotations {
		if a.ID != id {
			continue
		}
		if upd.Name != nil {
			a.Name = *upd.Name
		}
		if upd.Color != nil {
			a.Color = *upd.Color
		}
		r.annotations[i] = a
		return a, nil
	}
	return Annotation{}, ErrNotFound{ID: id, Code: "annotation_not_found", Message: "annotation " + id + " not found"}
}

func (r *fakeRepo) CreateJob(_ context.Context, job Job) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.ID = uuid.New()
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	r.jobs[job.ID] = job
	return job, nil
}

func (r *fakeRepo) ListJobs(_ context.Context, opt ListJobsOption) ([]Job, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Job
	for _, j := range r.jobs {
		if opt.RequestedBy != "" && j.RequestedBy != opt.RequestedBy {
			continue
		}
		if len(opt.Statuses) > 0 && !contains(opt.Statuses, j.Status) {
			continue
		}
		if opt.StartedBefore != nil && (j.StartedAt == nil || !j.StartedAt.Before(*opt.StartedBefore)) {
			continue
		}
		out = append(out, j)
	}
	return out, len(out), nil
}

func (r *fakeRepo) GetJobByID(_ context.Context, id uuid.UUID) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound{ID: id.String(), Code: "job_not_found", Message: "job " + id.String() + " not found"}
	}
	return j, nil
}

func (r *fakeRepo) UpdateJob(_ context.Context, job Job) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return Job{}, ErrNotFound{ID: job.ID.String(), Code: "job_not_found", Message: "job not found"}
	}
	r.jobs[job.ID] = job
	return job, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memorySink struct {
	data     []byte
	filename string
	mimeType string
	calls    int
	err      error
}

func (s *memorySink) Deliver(_ context.Context, data []byte, filename, mimeType string) (Delivery, error) {
	s.calls++
	if s.err != nil {
		return Delivery{}, s.err
	}
	s.data = data
	s.filename = filename
	s.mimeType = mimeType
	return Delivery{Location: filename, Filename: filename, MimeType: mimeType, Size: len(data)}, nil
}

func (s *memorySink) GetPresignedURL(_ context.Context, path string) (string, error) {
	return "https://storage.test/" + path + "?sig=abc", nil
}

type fakeQueue struct {
	enqueued []uuid.UUID
	err      error
}

func (q *fakeQueue) EnqueueJob(_ context.Context, jobID uuid.UUID, _ string, _ []byte) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, jobID)
	return nil
}

type fakeMailer struct {
	sent []Email
}

func (m *fakeMailer) SendEmail(_ context.Context, e Email) error {
	m.sent = append(m.sent, e)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []JobEvent
}

func (p *fakePublisher) PublishJobEvent(_ context.Context, ev JobEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) states() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.State)
	}
	return out
}

var errBoom = errors.New("boom")
