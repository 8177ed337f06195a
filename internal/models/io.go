// Package models provides the transport-neutral request and response shapes shared by the HTTP and Lambda runtimes.
package models

// Request represents an incoming client request containing a raw body and its headers.
type Request struct {
	Body []byte
	// Headers holds lower-cased header names. Repeated headers are joined with ", ".
	Headers map[string]string
}

// Response defines the structure for a response containing a body, headers, and a status code.
type Response struct {
	Body       []byte
	Headers    map[string]string
	StatusCode int
}
