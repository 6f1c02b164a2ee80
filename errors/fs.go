package errors

import (
	stderrors "errors"
	"io/fs"
	"syscall"
)

// FromFS translates an error returned by a file provider into a KernelError.
// The provider error is kept as the cause and op and path are attached as
// context. KernelErrors pass through unchanged. Returns nil if err is nil.
func FromFS(err error, op, path string) KernelError {
	if err == nil {
		return nil
	}

	var kerr KernelError
	if stderrors.As(err, &kerr) {
		return kerr
	}

	code := CodeIO
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		code = CodeNotFound
	case stderrors.Is(err, fs.ErrExist):
		code = CodeAlreadyExists
	case stderrors.Is(err, fs.ErrPermission):
		code = CodePermissionDenied
	case stderrors.Is(err, fs.ErrInvalid):
		code = CodeInvalidArgument
	case stderrors.Is(err, stderrors.ErrUnsupported):
		code = CodeNotSupported
	case stderrors.Is(err, syscall.EISDIR):
		code = CodeIsDirectory
	case stderrors.Is(err, syscall.ENAMETOOLONG):
		code = CodeNameTooLong
	}

	ctx := map[string]interface{}{"op": op}
	if path != "" {
		ctx["path"] = path
	}
	return WrapWithContext(err, code, op+" failed", ctx)
}
