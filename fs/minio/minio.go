package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jmgilman/go/filetable/fs/core"
	"github.com/jmgilman/go/filetable/fs/minio/internal/errs"
	"github.com/jmgilman/go/filetable/fs/minio/internal/pathutil"
)

// FS resolves kernel paths to objects in a single bucket.
type FS struct {
	store              objectStore
	bucket             string
	prefix             string // Optional prefix for all keys
	multipartThreshold int64
}

// New creates a MinIO-backed provider.
// Returns error if configuration is invalid or the client cannot be built.
// No request is made until the first Resolve.
func New(cfg Config) (*FS, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
	}

	return newWithStore(cfg, clientStore{client: client}), nil
}

// newWithStore builds an FS over an arbitrary store. cfg must be valid.
func newWithStore(cfg Config, store objectStore) *FS {
	threshold := cfg.MultipartThreshold
	if threshold == 0 {
		threshold = DefaultMultipartThreshold
	}
	return &FS{
		store:              store,
		bucket:             cfg.Bucket,
		prefix:             pathutil.NormalizePrefix(cfg.Prefix),
		multipartThreshold: threshold,
	}
}

// Type implements core.Typed.
func (m *FS) Type() core.FSType {
	return core.FSTypeRemote
}

// Bucket returns the bucket objects are resolved in.
func (m *FS) Bucket() string {
	return m.bucket
}

// joinPath joins the provider prefix with the given name.
func (m *FS) joinPath(name string) string {
	return pathutil.JoinPath(m.prefix, name)
}

// Resolve implements core.Resolver.
//
// O_CREAT on a missing object is honored lazily for write-only opens: the
// object appears on Close. Read-only opens with O_CREAT upload an empty
// object first. O_EXCL is checked against a Stat and is not atomic.
// Write-only opens always replace the object, with or without O_TRUNC.
func (m *FS) Resolve(ctx context.Context, path string, flags int, _ fs.FileMode) (core.Vnode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode, ok := core.AccessModeOf(flags)
	if !ok {
		return nil, errs.PathError("open", path, fs.ErrInvalid)
	}
	if mode == core.ReadWrite || flags&core.O_APPEND != 0 {
		return nil, errs.PathError("open", path, core.ErrUnsupported)
	}

	name := pathutil.Normalize(path)
	if name == "." {
		return nil, errs.PathError("open", path, syscall.EISDIR)
	}
	key := m.joinPath(name)

	size, err := m.store.Stat(ctx, m.bucket, key)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.PathError("open", name, err)
	}

	creating := flags&core.O_CREAT != 0
	switch {
	case exists && creating && flags&core.O_EXCL != 0:
		return nil, errs.PathError("open", name, fs.ErrExist)
	case !exists && !creating:
		return nil, errs.PathError("open", name, fs.ErrNotExist)
	}

	if mode == core.WriteOnly {
		return newWriteVnode(m, key, name), nil
	}

	if !exists {
		if err := m.store.Put(ctx, m.bucket, key, bytes.NewReader(nil), 0); err != nil {
			return nil, errs.PathError("open", name, err)
		}
		return newReadVnode(name, nil), nil
	}

	data, err := m.store.Get(ctx, m.bucket, key, size)
	if err != nil {
		return nil, errs.PathError("open", name, err)
	}
	return newReadVnode(name, data), nil
}

// Compile-time interface checks.
var (
	_ core.Resolver = (*FS)(nil)
	_ core.Typed    = (*FS)(nil)
)
