// Package errs translates object storage errors into io/fs errors.
package errs

import (
	"fmt"
	"io/fs"

	"github.com/minio/minio-go/v7"
)

// Translate converts MinIO errors to stdlib fs errors.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	errResp := minio.ToErrorResponse(err)

	switch errResp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fs.ErrNotExist
	case "AccessDenied":
		return fs.ErrPermission
	case "PreconditionFailed":
		return fs.ErrExist
	case "NotImplemented":
		return fmt.Errorf("minio: %w: %s", fs.ErrInvalid, errResp.Message)
	}

	return fmt.Errorf("minio: %w", err)
}

// PathError wraps an error in a fs.PathError for the given operation and path.
// If the error is nil, returns nil.
func PathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &fs.PathError{Op: op, Path: path, Err: err}
}
