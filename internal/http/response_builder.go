// Package http provides the HTTP server and handler implementations.
//
// This file implements the builder for the JSON API envelope shared by
// every /api route: {ok, error?, message?, successCount?, errors?, data?}.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"timesheets/internal/core"
	"timesheets/internal/export"
	applog "timesheets/internal/log"
	"timesheets/internal/services"
)

// Envelope is the body of every API response.
type Envelope struct {
	OK           bool                 `json:"ok"`
	Error        string               `json:"error,omitempty"`
	Message      string               `json:"message,omitempty"`
	SuccessCount *int                 `json:"successCount,omitempty"`
	Errors       []services.ItemError `json:"errors,omitempty"`
	Data         any                  `json:"data,omitempty"`
}

// APIResponseBuilder provides a fluent API for building API responses.
type APIResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewAPIResponse creates a successful response with a 200 status.
func NewAPIResponse() *APIResponseBuilder {
	return &APIResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{OK: true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *APIResponseBuilder) Status(code int) *APIResponseBuilder {
	b.statusCode = code
	return b
}

// Message sets the human readable summary.
func (b *APIResponseBuilder) Message(msg string) *APIResponseBuilder {
	b.envelope.Message = msg
	return b
}

// Data attaches the payload.
func (b *APIResponseBuilder) Data(v any) *APIResponseBuilder {
	b.envelope.Data = v
	return b
}

// Bulk copies a per-item outcome into the envelope. ok is false when any
// item failed.
func (b *APIResponseBuilder) Bulk(res services.BulkResult) *APIResponseBuilder {
	n := res.SuccessCount
	b.envelope.OK = res.OK()
	b.envelope.Message = res.Message()
	b.envelope.SuccessCount = &n
	b.envelope.Errors = res.Errors
	return b
}

// Header adds a custom header to the response.
func (b *APIResponseBuilder) Header(name, value string) *APIResponseBuilder {
	b.headers[name] = value
	return b
}

// Fail turns the response into an error response.
func (b *APIResponseBuilder) Fail(code int, msg string) *APIResponseBuilder {
	b.statusCode = code
	b.envelope.OK = false
	b.envelope.Error = msg
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *APIResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.envelope)
}

// ErrorResponse creates an error envelope.
func ErrorResponse(statusCode int, message string) *APIResponseBuilder {
	return NewAPIResponse().Fail(statusCode, message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates a 401 Unauthorized error response.
func UnauthorizedError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, new(*InputError)):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrPendingHours),
		errors.Is(err, core.ErrInvalidTransition),
		errors.Is(err, core.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, export.ErrEmpty),
		errors.Is(err, core.ErrReasonRequired),
		errors.Is(err, core.ErrNoItems),
		errors.Is(err, core.ErrInvalidPreference),
		errors.Is(err, core.ErrInvalidHours),
		errors.Is(err, core.ErrInvalidDay),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrEmptyName):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// errorMessage hides internal failures from clients.
func errorMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "Internal error, please try again"
	}
	if errors.Is(err, export.ErrEmpty) {
		return export.ErrEmpty.Error()
	}
	return err.Error()
}

// writeError maps err to a status and writes the error envelope. Server
// errors are logged with the request context.
func writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	logger := applog.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed",
			applog.FieldOperation, op,
			applog.FieldError, err.Error(),
			"error_type", applog.ErrorTypeInternal)
	} else {
		logger.DebugContext(ctx, "Request rejected",
			applog.FieldOperation, op,
			applog.FieldStatusCode, status,
			applog.FieldError, err.Error())
	}
	ErrorResponse(status, errorMessage(status, err)).Write(w)
}
