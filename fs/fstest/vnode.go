package fstest

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jmgilman/go/filetable/fs/core"
)

// TestVnode tests positional I/O on resolved vnodes.
// Uses POSIXTestConfig() by default.
func TestVnode(t *testing.T, r core.Resolver) {
	TestVnodeWithConfig(t, r, POSIXTestConfig(), func(string) bool { return false })
}

// TestVnodeWithConfig tests positional I/O with behavior configuration.
func TestVnodeWithConfig(t *testing.T, r core.Resolver, config ResolverTestConfig, shouldSkip func(string) bool) {
	tests := []struct {
		name string
		fn   func(t *testing.T, r core.Resolver, config ResolverTestConfig)
	}{
		{"ReadAtOffset", testVnodeReadAtOffset},
		{"ShortRead", testVnodeShortRead},
		{"ReadPastEOF", testVnodeReadPastEOF},
		{"PositionalWrite", testVnodePositionalWrite},
		{"WriteSeekability", testVnodeWriteSeekability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if shouldSkip("Vnode/" + tt.name) {
				t.Skip("Skipped by provider configuration")
				return
			}
			tt.fn(t, r, config)
		})
	}
}

func openRead(t *testing.T, r core.Resolver, name string) core.Vnode {
	t.Helper()
	vn, err := r.Resolve(context.Background(), name, core.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Resolve(%q, O_RDONLY): got error %v", name, err)
	}
	return vn
}

// testVnodeReadAtOffset reads from the middle of a file.
func testVnodeReadAtOffset(t *testing.T, r core.Resolver, _ ResolverTestConfig) {
	writeFile(t, r, "offset.txt", []byte("0123456789"))
	vn := openRead(t, r, "offset.txt")
	defer closeVnode(t, vn)

	buf := make([]byte, 4)
	n, err := vn.ReadAt(buf, 3)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAt(4, 3): got error %v", err)
	}
	if string(buf[:n]) != "3456" {
		t.Errorf("ReadAt(4, 3): got %q, want %q", buf[:n], "3456")
	}
}

// testVnodeShortRead verifies reading more than remains returns a short count.
func testVnodeShortRead(t *testing.T, r core.Resolver, _ ResolverTestConfig) {
	writeFile(t, r, "short.txt", []byte("hello"))
	vn := openRead(t, r, "short.txt")
	defer closeVnode(t, vn)

	buf := make([]byte, 100)
	n, err := vn.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAt(100, 0): got error %v", err)
	}
	if n != 5 || string(buf[:n]) != "hello" {
		t.Errorf("ReadAt(100, 0): got %d %q, want 5 %q", n, buf[:n], "hello")
	}
}

// testVnodeReadPastEOF verifies reads at or past the end return zero bytes.
func testVnodeReadPastEOF(t *testing.T, r core.Resolver, _ ResolverTestConfig) {
	writeFile(t, r, "eof.txt", []byte("abc"))
	vn := openRead(t, r, "eof.txt")
	defer closeVnode(t, vn)

	for _, off := range []int64{3, 50} {
		n, err := vn.ReadAt(make([]byte, 8), off)
		if n != 0 {
			t.Errorf("ReadAt(off=%d): got %d bytes, want 0", off, n)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			t.Errorf("ReadAt(off=%d): got error %v, want nil or io.EOF", off, err)
		}
	}
}

// testVnodePositionalWrite overwrites the middle of a file.
func testVnodePositionalWrite(t *testing.T, r core.Resolver, config ResolverTestConfig) {
	if !config.ReadWrite || !config.SeekableWrites {
		t.Skip("positional writes not supported by provider")
		return
	}

	vn, err := r.Resolve(context.Background(), "pos.txt", core.O_RDWR|core.O_CREAT|core.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("Resolve(O_RDWR): got error %v", err)
	}
	defer closeVnode(t, vn)

	if n, err := vn.WriteAt([]byte("abcdef"), 0); err != nil || n != 6 {
		t.Fatalf("WriteAt(abcdef, 0): got %d, %v", n, err)
	}
	if n, err := vn.WriteAt([]byte("XY"), 2); err != nil || n != 2 {
		t.Fatalf("WriteAt(XY, 2): got %d, %v", n, err)
	}
	if got := readAll(t, vn); string(got) != "abXYef" {
		t.Errorf("content: got %q, want %q", got, "abXYef")
	}

	// Writing past the end extends the file.
	if _, err := vn.WriteAt([]byte("!"), 8); err != nil {
		t.Fatalf("WriteAt(!, 8): got error %v", err)
	}
	size, err := vn.Size()
	if err != nil {
		t.Fatalf("Size(): got error %v", err)
	}
	if size != 9 {
		t.Errorf("Size() after sparse write: got %d, want 9", size)
	}
}

// testVnodeWriteSeekability verifies write-only vnodes report seekability as configured.
func testVnodeWriteSeekability(t *testing.T, r core.Resolver, config ResolverTestConfig) {
	vn, err := r.Resolve(context.Background(), "seek.txt", core.O_WRONLY|core.O_CREAT, 0o644)
	if err != nil {
		t.Fatalf("Resolve(O_WRONLY|O_CREAT): got error %v", err)
	}
	defer closeVnode(t, vn)

	if vn.IsSeekable() != config.SeekableWrites {
		t.Errorf("IsSeekable(): got %v, want %v", vn.IsSeekable(), config.SeekableWrites)
	}
}
