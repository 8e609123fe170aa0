package errors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/logging"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

func TestStatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"not found", NotFound("study %s not found", "x"), http.StatusNotFound, CodeNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", NotFound("gone")), http.StatusNotFound, CodeNotFound},
		{"conflict", Conflict("exists"), http.StatusConflict, CodeConflict},
		{"unavailable", Unavailable("shutting down"), http.StatusServiceUnavailable, CodeInternalError},
		{"config", optimization.NewConfigError("bad"), http.StatusBadRequest, CodeInvalidParams},
		{"resolution", optimization.NewResolutionError("off grid"), http.StatusBadRequest, CodeInvalidParams},
		{"invalid params", InvalidParams("missing %s", "name"), http.StatusBadRequest, CodeInvalidParams},
		{"evaluation", optimization.WrapEvaluationError(errors.New("diverged"), "svc"), http.StatusUnprocessableEntity, CodeEvaluation},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeInternalError},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
	assert.Equal(t, http.StatusOK, Status(nil))
}

func TestNewBody(t *testing.T) {
	b := NewBody(optimization.NewResolutionError("label %q not in set", "tanh"))
	assert.Equal(t, "resolution", b.Kind)
	assert.Contains(t, b.Error, "tanh")

	b = NewBody(errors.New("connection refused by 10.0.0.3"))
	assert.Equal(t, "Internal Server Error", b.Error)
	assert.Empty(t, b.Kind)
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := RecoveryMiddleware(logging.New(zap.New(core)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map")
	}))

	rr := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/rpc?x=1", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	entries := logs.FilterMessage("Recovered from panic").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "nil map", fields["error"])
	assert.Equal(t, "/rpc", fields["path"])
	assert.Equal(t, "x=1", fields["query"])
	assert.Contains(t, fields["stack"], "runtime/debug")
}
