package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeNotSeekable, "console does not seek")

	require.Equal(t, CodeNotSeekable, err.Code())
	require.Equal(t, "console does not seek", err.Message())
	require.Equal(t, ESPIPE, err.Errno())
	require.Nil(t, err.Context())
	require.Nil(t, err.Unwrap())
	require.Equal(t, "[NOT_SEEKABLE] console does not seek", err.Error())
}

func TestNewf(t *testing.T) {
	err := Newf(CodeInvalidArgument, "invalid whence %d", 7)

	require.Equal(t, CodeInvalidArgument, err.Code())
	require.Equal(t, "invalid whence 7", err.Message())
	require.Equal(t, EINVAL, err.Errno())
}

func TestBadDescriptor(t *testing.T) {
	err := BadDescriptor(12, "descriptor not open")

	require.Equal(t, CodeInvalidDescriptor, err.Code())
	require.Equal(t, EBADF, err.Errno())
	require.Equal(t, 12, err.Context()["fd"])
}

func TestErrnoForCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want Errno
	}{
		{CodeInvalidDescriptor, EBADF},
		{CodeInvalidArgument, EINVAL},
		{CodeNotSeekable, ESPIPE},
		{CodeTooManyOpenFilesProcess, EMFILE},
		{CodeTooManyOpenFilesSystem, ENFILE},
		{CodeOutOfMemory, ENOMEM},
		{CodeBadAddress, EFAULT},
		{CodeNameTooLong, ENAMETOOLONG},
		{CodeNotFound, ENOENT},
		{CodeNotImplemented, ENOSYS},
		{ErrorCode("NOPE"), EIO},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			require.Equal(t, tt.want, ErrnoForCode(tt.code))
		})
	}
}

func TestErrnoString(t *testing.T) {
	require.Equal(t, "EBADF", EBADF.String())
	require.Equal(t, "EMFILE", EMFILE.String())
	require.Equal(t, "OK", Errno(0).String())
	require.Equal(t, "ERRNO(99)", Errno(99).String())
}
