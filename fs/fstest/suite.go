// Package fstest provides a conformance test suite for validating file
// provider implementations against the core.Resolver and core.Vnode
// contracts.
//
// The test suite is designed to validate interface contracts, not
// backend-specific behavior. Different providers have different
// capabilities, and the tests verify that all providers honor the contract
// while gracefully handling documented differences.
//
// Example usage:
//
//	func TestMyProvider(t *testing.T) {
//	    fstest.TestSuite(t, func() core.Resolver {
//	        return myprovider.New()
//	    })
//	}
package fstest

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jmgilman/go/filetable/fs/core"
)

// ResolverTestConfig configures the test suite to match provider behavior
// characteristics.
type ResolverTestConfig struct {
	// ReadWrite indicates O_RDWR is supported. When false, O_RDWR must fail
	// with core.ErrUnsupported.
	ReadWrite bool

	// SeekableWrites indicates vnodes opened for writing support random
	// access. Object stores stream writes and report false.
	SeekableWrites bool

	// Exclusive indicates O_CREAT|O_EXCL fails with core.ErrExist on an
	// existing file.
	Exclusive bool

	// SkipTests lists specific test names to skip (for edge cases).
	// Format: "TestGroup/SubTest" (e.g., "Vnode/PositionalWrite").
	SkipTests []string
}

// POSIXTestConfig returns configuration for POSIX-like providers (local, memory).
func POSIXTestConfig() ResolverTestConfig {
	return ResolverTestConfig{
		ReadWrite:      true,
		SeekableWrites: true,
		Exclusive:      true,
	}
}

// ObjectStoreTestConfig returns configuration for object stores (MinIO, S3).
func ObjectStoreTestConfig() ResolverTestConfig {
	return ResolverTestConfig{
		ReadWrite:      false,
		SeekableWrites: false,
		Exclusive:      false,
	}
}

// TestSuite runs all applicable conformance tests against a provider.
// The newResolver function should return a fresh, empty provider for each
// test group.
// Uses POSIXTestConfig() by default.
func TestSuite(t *testing.T, newResolver func() core.Resolver) {
	TestSuiteWithConfig(t, newResolver, POSIXTestConfig())
}

// TestSuiteWithConfig runs conformance tests with behavior configuration.
func TestSuiteWithConfig(t *testing.T, newResolver func() core.Resolver, config ResolverTestConfig) {
	shouldSkip := func(testName string) bool {
		for _, skip := range config.SkipTests {
			if skip == testName {
				return true
			}
		}
		return false
	}

	t.Run("Resolve", func(t *testing.T) {
		if shouldSkip("Resolve") {
			t.Skip("Skipped by provider configuration")
			return
		}
		TestResolveWithConfig(t, newResolver(), config, shouldSkip)
	})

	t.Run("Vnode", func(t *testing.T) {
		if shouldSkip("Vnode") {
			t.Skip("Skipped by provider configuration")
			return
		}
		TestVnodeWithConfig(t, newResolver(), config, shouldSkip)
	})
}

// writeFile creates name with content through the resolver.
func writeFile(t *testing.T, r core.Resolver, name string, content []byte) {
	t.Helper()
	vn, err := r.Resolve(context.Background(), name, core.O_WRONLY|core.O_CREAT|core.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("Resolve(%q, O_WRONLY|O_CREAT|O_TRUNC): setup failed: %v", name, err)
	}
	if _, err := vn.WriteAt(content, 0); err != nil {
		_ = vn.Close()
		t.Fatalf("WriteAt(%q): setup failed: %v", name, err)
	}
	if err := vn.Close(); err != nil {
		t.Fatalf("Close(%q): setup failed: %v", name, err)
	}
}

// readAll reads a vnode from offset zero until a zero-length read.
func readAll(t *testing.T, vn core.Vnode) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 7)
	var off int64
	for {
		n, err := vn.ReadAt(buf, off)
		out = append(out, buf[:n]...)
		off += int64(n)
		if err != nil && !errors.Is(err, io.EOF) {
			t.Fatalf("ReadAt(off=%d): got error %v", off, err)
		}
		if n == 0 || errors.Is(err, io.EOF) {
			return out
		}
	}
}

func closeVnode(t *testing.T, vn core.Vnode) {
	t.Helper()
	if err := vn.Close(); err != nil {
		t.Errorf("Close(): got error %v", err)
	}
}
