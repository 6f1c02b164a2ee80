// Package minio resolves kernel paths to objects in MinIO/S3-compatible
// storage.
//
// Objects have no partial updates, so the provider supports two shapes of
// vnode. Read-only opens download the object once and serve positional reads
// from memory; they are seekable. Write-only opens build a new object
// version: writes are buffered and, past the multipart threshold, streamed to
// PutObject. The object becomes visible when the vnode is closed. Write
// vnodes are not seekable and ignore the offset, so O_RDWR and O_APPEND are
// refused with core.ErrUnsupported.
package minio

import (
	"fmt"

	"github.com/minio/minio-go/v7"
)

// DefaultMultipartThreshold is the buffered size at which a write vnode
// switches to streaming its upload.
const DefaultMultipartThreshold int64 = 5 * 1024 * 1024

// Config holds MinIO provider configuration.
type Config struct {
	// Endpoint is the MinIO server address (e.g., "localhost:9000")
	Endpoint string

	// Bucket is the S3 bucket name
	Bucket string

	// AccessKey is the access key ID for authentication
	AccessKey string

	// SecretKey is the secret access key for authentication
	SecretKey string

	// UseSSL enables HTTPS connections
	UseSSL bool

	// Prefix is an optional prefix for all object keys (for namespacing)
	Prefix string

	// Client is an optional pre-configured MinIO client
	// If provided, Endpoint/AccessKey/SecretKey are ignored
	Client *minio.Client

	// MultipartThreshold is the buffered size past which writes stream to
	// the server. Zero selects DefaultMultipartThreshold.
	MultipartThreshold int64
}

// validate checks if the configuration is valid.
// Either Client OR (Endpoint + Bucket + AccessKey + SecretKey) must be provided.
func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.MultipartThreshold < 0 {
		return fmt.Errorf("multipart threshold must not be negative")
	}

	if c.Client != nil {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required when client is not provided")
	}

	return nil
}
