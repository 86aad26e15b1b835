package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	RequestedBy string          `json:"requested_by,omitempty"`
	Status      string          `json:"status"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   *string         `json:"started_at,omitempty"`
	FinishedAt  *string         `json:"finished_at,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type ListJobsRequest struct {
	Skip   int    `query:"skip" validate:"omitempty,min=0"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	SortBy string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at started_at finished_at"`
	SortIn string `query:"sort_in" validate:"omitempty,oneof=asc desc ASC DESC"`

	Types    []string `query:"types"`
	Statuses []string `query:"statuses" validate:"omitempty,dive,oneof=PENDING PROCESSING COMPLETED FAILED"`
}

func (s *Server) ListJobs(ctx echo.Context) error {
	var req ListJobsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	jobs, total, err := s.server.ListJobs(
		ctx.Request().Context(),
		usecase.ListJobsOption{
			Skip:     req.Skip,
			Limit:    req.Limit,
			SortBy:   req.SortBy,
			SortIn:   strings.ToUpper(req.SortIn),
			Types:    req.Types,
			Statuses: req.Statuses,
		})
	if err != nil {
		return errorJSON(ctx, err)
	}

	list := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		list = append(list, toJob(job))
	}

	return ctx.JSON(http.StatusOK, Res{
		Data: list,
		Meta: &Meta{
			Total: total,
			Skip:  req.Skip,
			Limit: req.Limit,
		},
	})
}

type GetJobByIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

// bindJobID reports false once it has written the error response.
func (s *Server) bindJobID(ctx echo.Context) (uuid.UUID, bool) {
	var req GetJobByIDRequest
	if err := ctx.Bind(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": err.Error()})
		return uuid.Nil, false
	}
	if err := s.validator.Struct(req); err != nil {
		ctx.JSON(422, map[string]string{"error": err.Error()})
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}

func (s *Server) GetJobByID(ctx echo.Context) error {
	id, ok := s.bindJobID(ctx)
	if !ok {
		return nil
	}

	job, err := s.server.GetJobByID(ctx.Request().Context(), id)
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toJob(job)})
}

type JobDownload struct {
	URL string `json:"url"`
}

func (s *Server) GetJobDownloadURL(ctx echo.Context) error {
	id, ok := s.bindJobID(ctx)
	if !ok {
		return nil
	}

	url, err := s.server.GetJobDownloadURL(ctx.Request().Context(), id)
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: JobDownload{URL: url}})
}

func toJob(job usecase.Job) Job {
	j := Job{
		ID:          job.ID.String(),
		Type:        job.Type,
		RequestedBy: job.RequestedBy,
		Status:      job.Status,
		Error:       job.Error,
		CreatedAt:   formatTime(job.CreatedAt),
		UpdatedAt:   formatTime(job.UpdatedAt),
	}
	if json.Valid(job.Payload) {
		j.Payload = job.Payload
	}
	if json.Valid(job.Result) {
		j.Result = job.Result
	}
	if job.StartedAt != nil {
		tmp := formatTime(*job.StartedAt)
		j.StartedAt = &tmp
	}
	if job.FinishedAt != nil {
		tmp := formatTime(*job.FinishedAt)
		j.FinishedAt = &tmp
	}
	return j
}
