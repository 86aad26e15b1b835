package usecase

import (
	"errors"

	"github.com/vailabel/vailabel-studio-sub002/internal/export"
)

type ErrNotFound struct {
	ID      string
	Code    string
	Message string
}

func (e ErrNotFound) Error() string {
	return e.Message
}

// Export failures surface unchanged from the export package.
type (
	ErrEmptyDataset = export.EmptyDatasetError
	ErrValidation   = export.ValidationError
	ErrIO           = export.IOError
)

// ErrInvalidArgument rejects a request before any state is touched.
type ErrInvalidArgument struct {
	Field   string
	Message string
}

func (e ErrInvalidArgument) Error() string {
	return e.Field + ": " + e.Message
}

func errorAs[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
