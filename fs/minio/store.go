package minio

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/jmgilman/go/filetable/fs/minio/internal/errs"
)

// objectStore is the subset of the MinIO API the provider uses.
// Errors are already translated to io/fs errors.
type objectStore interface {
	// Stat returns the size of the object at key.
	Stat(ctx context.Context, bucket, key string) (int64, error)

	// Get downloads the object at key, which is size bytes long.
	Get(ctx context.Context, bucket, key string, size int64) ([]byte, error)

	// Put uploads r as the object at key. size is -1 when unknown.
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64) error
}

// clientStore implements objectStore with a minio.Client.
type clientStore struct {
	client *minio.Client
}

func (s clientStore) Stat(ctx context.Context, bucket, key string) (int64, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, errs.Translate(err)
	}
	return info.Size, nil
}

func (s clientStore) Get(ctx context.Context, bucket, key string, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errs.Translate(err)
	}
	defer func() {
		_ = obj.Close()
	}()

	// GetObject is lazy; request errors surface on the first read.
	data := make([]byte, size)
	if _, err := io.ReadFull(obj, data); err != nil {
		return nil, errs.Translate(err)
	}
	return data, nil
}

func (s clientStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return errs.Translate(err)
}
