package export

import "fmt"

// EmptyDatasetError is returned by formats that cannot describe a project
// without images.
type EmptyDatasetError struct {
	ProjectID string
}

func (e EmptyDatasetError) Error() string {
	return fmt.Sprintf("no images found for project %s", e.ProjectID)
}

// ValidationError reports a malformed annotation when strict validation is on.
type ValidationError struct {
	AnnotationID string
	Field        string
	Message      string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("annotation %s: %s: %s", e.AnnotationID, e.Field, e.Message)
}

// IOError wraps packaging and delivery failures.
type IOError struct {
	Op  string
	Err error
}

func (e IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e IOError) Unwrap() error {
	return e.Err
}
