package helpers

import (
	"encoding/json"
	"net/http"

	"github.com/isometry/echo-api/internal/models"
)

type httpResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Finalise returns the response as it goes on the wire.
// A nil err leaves the response untouched apart from a default 200 status; otherwise the status defaults
// to 500 and the body is wrapped in a JSON envelope carrying the error message.
func Finalise(response models.Response, err error) models.Response {
	if err == nil {
		if response.StatusCode == 0 {
			response.StatusCode = http.StatusOK
		}
		return response
	}
	if response.StatusCode == 0 {
		response.StatusCode = http.StatusInternalServerError
	}
	if len(response.Body) == 0 {
		response.Body = []byte(http.StatusText(response.StatusCode))
	}

	respBody, _ := json.Marshal(httpResponse{
		Message: string(response.Body),
		Error:   err.Error(),
	})
	headers := make(map[string]string, len(response.Headers)+1)
	for k, v := range response.Headers {
		headers[k] = v
	}
	headers["content-type"] = ContentTypeJSON

	return models.Response{
		Body:       respBody,
		Headers:    headers,
		StatusCode: response.StatusCode,
	}
}

// RespondHTTP writes the finalised response to rw.
func RespondHTTP(response models.Response, err error, rw http.ResponseWriter) {
	response = Finalise(response, err)
	for k, v := range response.Headers {
		rw.Header().Set(k, v)
	}
	rw.WriteHeader(response.StatusCode)
	_, _ = rw.Write(response.Body)
}
