package mtlink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredError(t *testing.T) {
	err := NewError("Grab", ErrCodeLockTimeout, "could not acquire block")

	assert.Equal(t, "Grab", err.Op)
	assert.Equal(t, ErrCodeLockTimeout, err.Code)
	assert.Equal(t, "mtlink: could not acquire block (op=Grab)", err.Error())
}

func TestBlockError(t *testing.T) {
	err := NewBlockError("Call", "telemetry", ErrCodeNotFound, "no such block")

	assert.Equal(t, "telemetry", err.BlockName)
	assert.Equal(t, "mtlink: no such block (op=Call)", err.Error())
}

func TestWrapErrorPreservesCode(t *testing.T) {
	inner := NewBlockError("Grab", "log", ErrCodeLockTimeout, "timed out")
	wrapped := WrapError("Call", inner)

	assert.Equal(t, ErrCodeLockTimeout, wrapped.Code)
	assert.Equal(t, "log", wrapped.BlockName)
	assert.Equal(t, "Call", wrapped.Op)
}

func TestWrapErrorOnPlainError(t *testing.T) {
	wrapped := WrapError("Call", errors.New("boom"))

	assert.Equal(t, ErrCodeMisuse, wrapped.Code)
	assert.ErrorContains(t, wrapped, "boom")
}

func TestWrapErrorNilIsNil(t *testing.T) {
	assert.Nil(t, WrapError("Call", nil))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := &Error{Code: ErrCodeNotFound}
	b := &Error{Code: ErrCodeNotFound, Op: "different"}
	c := &Error{Code: ErrCodeMisuse}

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestIsCode(t *testing.T) {
	err := NewError("Call", ErrCodeLockTimeout, "timed out")

	assert.True(t, IsCode(err, ErrCodeLockTimeout))
	assert.False(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(nil, ErrCodeLockTimeout))
}
