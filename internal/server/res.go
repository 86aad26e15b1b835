package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

type Meta struct {
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

type Res struct {
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// errorStatus maps usecase errors onto HTTP status codes.
func errorStatus(err error) int {
	var (
		notFound usecase.ErrNotFound
		invalid  usecase.ErrInvalidArgument
		empty    usecase.ErrEmptyDataset
		bad      usecase.ErrValidation
		io       usecase.ErrIO
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid), errors.As(err, &empty), errors.As(err, &bad):
		return http.StatusUnprocessableEntity
	case errors.As(err, &io):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func errorJSON(ctx echo.Context, err error) error {
	return ctx.JSON(errorStatus(err), map[string]string{"error": err.Error()})
}
