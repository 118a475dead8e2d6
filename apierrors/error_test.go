package apierrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIs(t *testing.T) {
	err := New(KindNotFound, "deployment not found")
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindForbidden))
	assert.False(t, Is(fmt.Errorf("plain"), KindNotFound))
}

func TestNewErrorPreservesCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewError(KindConnectionFailed, cause)
	require.Error(t, err)
	assert.True(t, Is(err, KindConnectionFailed))
	assert.ErrorIs(t, err, cause)
}

func TestWrapErrorPreservesKind(t *testing.T) {
	base := New(KindConflict, "rollout in progress")
	wrapped := WrapError(base, "commitPackage")
	assert.True(t, Is(wrapped, KindConflict))
}

func TestWrapErrorUntypedBecomesInternal(t *testing.T) {
	wrapped := WrapError(fmt.Errorf("driver exploded"), "store blob")
	assert.Equal(t, KindInternal, KindOf(wrapped))
}

func TestExtractHTTPError(t *testing.T) {
	status, body := ExtractHTTPError(New(KindTooLarge, "bundle exceeds limit"))
	assert.Equal(t, 413, status)
	assert.Equal(t, "TooLarge", body.Kind)

	status, body = ExtractHTTPError(nil)
	assert.Equal(t, 200, status)
	assert.Empty(t, body.Kind)
}

func TestKindHTTPStatusTable(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:         404,
		KindAlreadyExists:    409,
		KindInvalid:          400,
		KindExpired:          401,
		KindUnauthorized:     401,
		KindForbidden:        403,
		KindConflict:         409,
		KindTooLarge:         413,
		KindConnectionFailed: 503,
		KindInternal:         500,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}
