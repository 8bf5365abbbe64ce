package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncError_UnwrapAndCode(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("fetch session: %w", NewStoreFailedError("dzz:session:h:1", "HGET", cause))

	assert.True(t, IsCode(err, ErrorStoreFailed))
	assert.False(t, IsCode(err, ErrorParseFailed))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "STORE_FAILED")
}

func TestSyncError_ToMap(t *testing.T) {
	err := NewCoercionError("x", "abc")
	m := err.ToMap()

	require.Equal(t, "COERCION_FAILED", m["error_code"])
	assert.Equal(t, "x", m["attribute"])
	assert.Equal(t, "abc", m["value"])
	_, hasCause := m["cause"]
	assert.False(t, hasCause)
}

func TestIsCode_PlainError(t *testing.T) {
	assert.False(t, IsCode(stderrors.New("boom"), ErrorNoData))
	assert.False(t, IsCode(nil, ErrorNoData))
}
