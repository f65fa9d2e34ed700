// Package response provides unified API response structures.
// All HTTP endpoints of the service return this envelope so that
// clients can rely on a single error contract.
package response

import (
	"net/http"

	"github.com/kart-io/studyrag/pkg/utils/errors"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// HTTPCode is the HTTP status code (optional, for client convenience)
	HTTPCode int `json:"http_code,omitempty"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload (nil for errors)
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{
		Code:     0,
		HTTPCode: http.StatusOK,
		Message:  "success",
		Data:     data,
	}
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:     e.Code,
		HTTPCode: e.HTTPStatus(),
		Message:  e.MessageEN,
	}
}

// ErrorWithCode creates an error response from a raw code and message.
func ErrorWithCode(code int, message string) *Response {
	r := &Response{
		Code:    code,
		Message: message,
	}
	r.HTTPCode = r.HTTPStatus()
	return r
}

// WithRequestID attaches a request identifier for tracing.
func (r *Response) WithRequestID(id string) *Response {
	r.RequestID = id
	return r
}

// HTTPStatus returns the HTTP status code for this response.
// Registered error codes map through the errno table; unknown
// codes degrade to 500.
func (r *Response) HTTPStatus() int {
	if r.Code == 0 {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsSuccess reports whether the response represents success.
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}
