package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_ErrorMessage(t *testing.T) {
	err := New(BadRequest, "projectName is required", nil)
	assert.Equal(t, "BadRequest: projectName is required", err.Error())
}

func TestNew_ErrorMessageWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(EngineUnavailable, "failed to reach docker daemon", cause)
	assert.Equal(t, "EngineUnavailable: failed to reach docker daemon: connection refused", err.Error())
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := New(Internal, "wrapped", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestKindOf_ExtractsKind(t *testing.T) {
	err := New(NotFound, "deployment not found", nil)
	wrapped := fmt.Errorf("loading deployment: %w", err)
	assert.Equal(t, NotFound, KindOf(wrapped))
}

func TestKindOf_DefaultsToInternalForForeignError(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("some plain error")))
}

func TestKindOf_NilCause(t *testing.T) {
	err := New(RateLimited, "too many requests", nil)
	assert.Nil(t, errors.Unwrap(err))
	assert.Equal(t, RateLimited, KindOf(err))
}
