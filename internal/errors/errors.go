// Package errors maps domain errors onto HTTP and JSON-RPC responses.
package errors

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// Server-defined codes.
	CodeNotFound   = -32004
	CodeConflict   = -32009
	CodeEvaluation = -32010
)

// ErrNotFound marks a missing study or problem.
var ErrNotFound = errors.New("not found")

// ErrConflict marks a request that does not fit the resource's state.
var ErrConflict = errors.New("conflict")

// ErrUnavailable marks a request refused while the server shuts down.
var ErrUnavailable = errors.New("unavailable")

// NotFound returns an error that matches ErrNotFound.
func NotFound(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

// Conflict returns an error that matches ErrConflict.
func Conflict(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConflict)
}

// Unavailable returns an error that matches ErrUnavailable.
func Unavailable(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUnavailable)
}

// InvalidParams returns an error reported as a bad request.
func InvalidParams(format string, args ...interface{}) error {
	return optimization.NewConfigError(format, args...).WithComponent("server")
}

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch optimization.KindOf(err) {
	case optimization.KindConfig, optimization.KindResolution:
		return http.StatusBadRequest
	case optimization.KindEvaluation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Code returns the JSON-RPC error code for err.
func Code(err error) int {
	switch Status(err) {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusBadRequest:
		return CodeInvalidParams
	case http.StatusUnprocessableEntity:
		return CodeEvaluation
	}
	return CodeInternalError
}

// Body is the JSON error payload of the REST API.
type Body struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// NewBody describes err for a client. Internal errors hide their detail.
func NewBody(err error) Body {
	if Status(err) == http.StatusInternalServerError {
		return Body{Error: http.StatusText(http.StatusInternalServerError)}
	}
	b := Body{Error: err.Error()}
	if k := optimization.KindOf(err); k != optimization.KindUnknown {
		b.Kind = k.String()
	}
	return b
}
