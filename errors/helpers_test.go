package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetCode(t *testing.T) {
	require.Equal(t, CodeUnknown, GetCode(nil))
	require.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	require.Equal(t, CodeNotSeekable, GetCode(New(CodeNotSeekable, "x")))

	wrapped := fmt.Errorf("outer: %w", New(CodeOutOfMemory, "heap"))
	require.Equal(t, CodeOutOfMemory, GetCode(wrapped))
}

func TestHasCode(t *testing.T) {
	err := New(CodeTooManyOpenFilesProcess, "full")
	require.True(t, HasCode(err, CodeTooManyOpenFilesProcess))
	require.False(t, HasCode(err, CodeTooManyOpenFilesSystem))
	require.False(t, HasCode(nil, CodeUnknown))
}

func TestErrnoOf(t *testing.T) {
	require.Equal(t, Errno(0), ErrnoOf(nil))
	require.Equal(t, EBADF, ErrnoOf(BadDescriptor(3, "closed")))
	require.Equal(t, EIO, ErrnoOf(stderrors.New("plain")))
	require.Equal(t, ENFILE, ErrnoOf(fmt.Errorf("ctx: %w", New(CodeTooManyOpenFilesSystem, "full"))))
}

func TestIsAs(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := Wrap(sentinel, CodeIO, "read failed")

	require.True(t, Is(err, sentinel))

	var kerr KernelError
	require.True(t, As(err, &kerr))
	require.Equal(t, CodeIO, kerr.Code())
}

func TestGetClassification(t *testing.T) {
	require.Equal(t, ClassificationPermanent, GetClassification(nil))
	require.Equal(t, ClassificationPermanent, GetClassification(stderrors.New("x")))
	require.Equal(t, ClassificationRetryable, GetClassification(New(CodeOutOfMemory, "x")))
}
