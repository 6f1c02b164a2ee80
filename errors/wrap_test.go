package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	cause := stderrors.New("disk on fire")
	err := Wrap(cause, CodeIO, "write failed")

	require.NotNil(t, err)
	require.Equal(t, CodeIO, err.Code())
	require.Equal(t, "write failed", err.Message())
	require.Equal(t, cause, err.Unwrap())
	require.Equal(t, "[IO_ERROR] write failed: disk on fire", err.Error())
}

func TestWrap_NilError(t *testing.T) {
	require.Nil(t, Wrap(nil, CodeIO, "x"))
	require.Nil(t, Wrapf(nil, CodeIO, "x %d", 1))
	require.Nil(t, WrapWithContext(nil, CodeIO, "x", nil))
}

func TestWrap_PreservesClassification(t *testing.T) {
	original := New(CodeTooManyOpenFilesSystem, "pool full")
	wrapped := Wrap(original, CodeInternal, "console setup failed")

	require.Equal(t, CodeInternal, wrapped.Code())
	require.True(t, wrapped.Classification().IsRetryable())
}

func TestWrapf(t *testing.T) {
	cause := stderrors.New("no such key")
	err := Wrapf(cause, CodeNotFound, "resolve %q", "f.txt")

	require.Equal(t, `resolve "f.txt"`, err.Message())
}

func TestWrapWithContext_CopiesMap(t *testing.T) {
	ctx := map[string]interface{}{"path": "a"}
	err := WrapWithContext(stderrors.New("x"), CodeIO, "y", ctx)
	ctx["path"] = "b"

	require.Equal(t, "a", err.Context()["path"])
}
