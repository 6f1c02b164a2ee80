package fstest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jmgilman/go/filetable/fs/core"
)

// TestResolve tests path resolution and open flag handling.
// Uses POSIXTestConfig() by default.
func TestResolve(t *testing.T, r core.Resolver) {
	TestResolveWithConfig(t, r, POSIXTestConfig(), func(string) bool { return false })
}

// TestResolveWithConfig tests path resolution with behavior configuration.
func TestResolveWithConfig(t *testing.T, r core.Resolver, config ResolverTestConfig, shouldSkip func(string) bool) {
	tests := []struct {
		name string
		fn   func(t *testing.T, r core.Resolver, config ResolverTestConfig)
	}{
		{"CreateAndReadBack", testResolveCreateAndReadBack},
		{"NotExist", testResolveNotExist},
		{"Truncate", testResolveTruncate},
		{"Exclusive", testResolveExclusive},
		{"ReadWriteMode", testResolveReadWriteMode},
		{"CanceledContext", testResolveCanceledContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if shouldSkip("Resolve/" + tt.name) {
				t.Skip("Skipped by provider configuration")
				return
			}
			tt.fn(t, r, config)
		})
	}
}

// testResolveCreateAndReadBack creates a file and reads it through a new vnode.
func testResolveCreateAndReadBack(t *testing.T, r core.Resolver, _ ResolverTestConfig) {
	content := []byte("hello, kernel")
	writeFile(t, r, "created.txt", content)

	vn, err := r.Resolve(context.Background(), "created.txt", core.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Resolve(%q, O_RDONLY): got error %v, want nil", "created.txt", err)
	}
	defer closeVnode(t, vn)

	if got := readAll(t, vn); !bytes.Equal(got, content) {
		t.Errorf("content: got %q, want %q", got, content)
	}
	size, err := vn.Size()
	if err != nil {
		t.Fatalf("Size(): got error %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("Size(): got %d, want %d", size, len(content))
	}
	if !vn.IsSeekable() {
		t.Errorf("IsSeekable(): read-only vnodes must support random access")
	}
}

// testResolveNotExist verifies a missing file without O_CREAT fails with ErrNotExist.
func testResolveNotExist(t *testing.T, r core.Resolver, _ ResolverTestConfig) {
	_, err := r.Resolve(context.Background(), "missing.txt", core.O_RDONLY, 0)
	if err == nil {
		t.Fatalf("Resolve(%q): got nil error, want ErrNotExist", "missing.txt")
	}
	if !errors.Is(err, core.ErrNotExist) {
		t.Errorf("Resolve(%q): got %v, want ErrNotExist", "missing.txt", err)
	}
}

// testResolveTruncate verifies O_TRUNC discards existing content.
func testResolveTruncate(t *testing.T, r core.Resolver, _ ResolverTestConfig) {
	writeFile(t, r, "trunc.txt", []byte("a much longer original body"))
	writeFile(t, r, "trunc.txt", []byte("short"))

	vn, err := r.Resolve(context.Background(), "trunc.txt", core.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Resolve(%q): got error %v", "trunc.txt", err)
	}
	defer closeVnode(t, vn)

	if got := readAll(t, vn); string(got) != "short" {
		t.Errorf("content after O_TRUNC: got %q, want %q", got, "short")
	}
}

// testResolveExclusive verifies O_EXCL refuses an existing file.
func testResolveExclusive(t *testing.T, r core.Resolver, config ResolverTestConfig) {
	if !config.Exclusive {
		t.Skip("O_EXCL not supported by provider")
		return
	}
	writeFile(t, r, "excl.txt", []byte("x"))

	_, err := r.Resolve(context.Background(), "excl.txt", core.O_WRONLY|core.O_CREAT|core.O_EXCL, 0o644)
	if !errors.Is(err, core.ErrExist) {
		t.Errorf("Resolve(O_EXCL on existing): got %v, want ErrExist", err)
	}

	vn, err := r.Resolve(context.Background(), "excl-new.txt", core.O_WRONLY|core.O_CREAT|core.O_EXCL, 0o644)
	if err != nil {
		t.Fatalf("Resolve(O_EXCL on new file): got error %v", err)
	}
	closeVnode(t, vn)
}

// testResolveReadWriteMode verifies O_RDWR is supported or refused with ErrUnsupported.
func testResolveReadWriteMode(t *testing.T, r core.Resolver, config ResolverTestConfig) {
	vn, err := r.Resolve(context.Background(), "rw.txt", core.O_RDWR|core.O_CREAT, 0o644)
	if !config.ReadWrite {
		if !errors.Is(err, core.ErrUnsupported) {
			t.Errorf("Resolve(O_RDWR): got %v, want ErrUnsupported", err)
		}
		if vn != nil {
			_ = vn.Close()
		}
		return
	}
	if err != nil {
		t.Fatalf("Resolve(O_RDWR|O_CREAT): got error %v", err)
	}
	closeVnode(t, vn)
}

// testResolveCanceledContext verifies a canceled context is honored.
func testResolveCanceledContext(t *testing.T, r core.Resolver, _ ResolverTestConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vn, err := r.Resolve(ctx, "ctx.txt", core.O_WRONLY|core.O_CREAT, 0o644)
	if err == nil {
		_ = vn.Close()
		t.Fatalf("Resolve with canceled context: got nil error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve with canceled context: got %v, want context.Canceled", err)
	}
}
