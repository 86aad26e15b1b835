package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

var _ usecase.Repository = (*Store)(nil)

type jobRecord struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	RequestedBy string          `json:"requested_by,omitempty"`
	Status      string          `json:"status"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (s *Store) CreateJob(ctx context.Context, job usecase.Job) (usecase.Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := s.now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	rec := newJobRecord(job)

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := setJSON(ctx, p, s.jobKey(rec.ID.String()), rec); err != nil {
			return err
		}
		return p.ZAdd(ctx, s.jobsKey(), redis.Z{Score: float64(now.UnixMilli()), Member: rec.ID.String()}).Err()
	})
	if err != nil {
		return usecase.Job{}, err
	}
	return rec.toUsecase(), nil
}

func (s *Store) ListJobs(ctx context.Context, opt usecase.ListJobsOption) ([]usecase.Job, int, error) {
	ids, err := s.rdb.ZRange(ctx, s.jobsKey(), 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
	}
	recs, err := mgetJSON[jobRecord](ctx, s.rdb, keys)
	if err != nil {
		return nil, 0, err
	}

	recs = filterJobs(recs, opt)
	sortJobs(recs, opt.SortBy, opt.SortIn)
	count := len(recs)
	recs = paginate(recs, opt.Skip, opt.Limit)

	jobs := make([]usecase.Job, 0, len(recs))
	for _, r := range recs {
		jobs = append(jobs, r.toUsecase())
	}
	return jobs, count, nil
}

func filterJobs(recs []jobRecord, opt usecase.ListJobsOption) []jobRecord {
	return slices.DeleteFunc(recs, func(j jobRecord) bool {
		if opt.Types != nil && !slices.Contains(opt.Types, j.Type) {
			return true
		}
		if opt.Statuses != nil && !slices.Contains(opt.Statuses, j.Status) {
			return true
		}
		if opt.RequestedBy != "" && j.RequestedBy != opt.RequestedBy {
			return true
		}
		if opt.StartedBefore != nil && (j.StartedAt == nil || !j.StartedAt.Before(*opt.StartedBefore)) {
			return true
		}
		return false
	})
}

// sortJobs orders nil timestamps first ascending, last descending, as
// postgres does by default.
func sortJobs(recs []jobRecord, by, in string) {
	desc := in != "ASC"
	pick := func(j jobRecord) *time.Time {
		switch by {
		case "updated_at":
			return &j.UpdatedAt
		case "started_at":
			return j.StartedAt
		case "finished_at":
			return j.FinishedAt
		}
		return &j.CreatedAt
	}
	slices.SortStableFunc(recs, func(a, b jobRecord) int {
		ta, tb := pick(a), pick(b)
		var c int
		switch {
		case ta == nil && tb == nil:
			c = 0
		case ta == nil:
			c = 1
		case tb == nil:
			c = -1
		default:
			c = ta.Compare(*tb)
		}
		if desc {
			return -c
		}
		return c
	})
}

func (s *Store) GetJobByID(ctx context.Context, id uuid.UUID) (usecase.Job, error) {
	var rec jobRecord
	ok, err := s.getJSON(ctx, s.jobKey(id.String()), &rec)
	if err != nil {
		return usecase.Job{}, err
	}
	if !ok {
		return usecase.Job{}, jobNotFound(id)
	}
	return rec.toUsecase(), nil
}

// UpdateJob replaces every mutable field of an existing job.
func (s *Store) UpdateJob(ctx context.Context, job usecase.Job) (usecase.Job, error) {
	key := s.jobKey(job.ID.String())
	var rec jobRecord

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return jobNotFound(job.ID)
		}
		if err != nil {
			return err
		}
		var old jobRecord
		if err := json.Unmarshal(b, &old); err != nil {
			return err
		}

		rec = newJobRecord(job)
		rec.CreatedAt = old.CreatedAt
		rec.UpdatedAt = s.now().UTC()

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			return setJSON(ctx, p, key, rec)
		})
		return err
	}, key)
	if err != nil {
		return usecase.Job{}, err
	}
	return rec.toUsecase(), nil
}

func jobNotFound(id uuid.UUID) error {
	return usecase.ErrNotFound{
		ID:      id.String(),
		Code:    "job_not_found",
		Message: "job " + id.String() + " not found",
	}
}

func newJobRecord(j usecase.Job) jobRecord {
	return jobRecord{
		ID:          j.ID,
		Type:        j.Type,
		RequestedBy: j.RequestedBy,
		Status:      j.Status,
		Payload:     rawJSON(j.Payload),
		Result:      rawJSON(j.Result),
		Error:       j.Error,
		StartedAt:   utc(j.StartedAt),
		FinishedAt:  utc(j.FinishedAt),
		CreatedAt:   j.CreatedAt.UTC(),
		UpdatedAt:   j.UpdatedAt.UTC(),
	}
}

// rawJSON drops payloads that are not valid JSON rather than failing the
// whole record encode.
func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return json.RawMessage(b)
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (r jobRecord) toUsecase() usecase.Job {
	return usecase.Job{
		ID:          r.ID,
		Type:        r.Type,
		RequestedBy: r.RequestedBy,
		Status:      r.Status,
		Payload:     []byte(r.Payload),
		Result:      []byte(r.Result),
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
