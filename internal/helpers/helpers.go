// Package helpers holds small utilities shared by the runtimes and the command line.
package helpers

// ContentTypeJSON is the content type of every JSON payload written by the service.
const ContentTypeJSON = "application/json; charset=utf-8"

// Ptr returns a pointer to the value passed as an argument. If the value is nil, it returns a nil pointer.
func Ptr[T any](v T) *T {
	if any(v) == nil {
		return nil
	}
	return &v
}
