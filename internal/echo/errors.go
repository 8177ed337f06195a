package echo

import (
	"errors"
	"fmt"
	"net/http"
)

// ParseError reports a request body that is not a valid JSON object or array.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse json body: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// UnsupportedCharsetError reports a JSON body declared in a charset other than UTF-8.
type UnsupportedCharsetError struct {
	Charset string
}

func (e *UnsupportedCharsetError) Error() string {
	return fmt.Sprintf("unsupported charset %q", e.Charset)
}

// TooLargeError reports a body exceeding the configured limit.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}

// StatusCode maps an error returned by Process to its HTTP status code.
func StatusCode(err error) int {
	var (
		parseErr   *ParseError
		charsetErr *UnsupportedCharsetError
		sizeErr    *TooLargeError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.As(err, &charsetErr):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
