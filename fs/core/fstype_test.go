package core_test

import (
	"context"
	"io/fs"
	"testing"

	"github.com/jmgilman/go/filetable/fs/core"
)

// TestFSType_String verifies FSType.String() returns correct string representations.
func TestFSType_String(t *testing.T) {
	tests := []struct {
		name     string
		fsType   core.FSType
		expected string
	}{
		{"Unknown", core.FSTypeUnknown, "unknown"},
		{"Local", core.FSTypeLocal, "local"},
		{"Memory", core.FSTypeMemory, "memory"},
		{"Remote", core.FSTypeRemote, "remote"},
		{"Device", core.FSTypeDevice, "device"},
		{"Invalid", core.FSType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.fsType.String()
			if result != tt.expected {
				t.Errorf("FSType(%d).String() = %q, want %q", tt.fsType, result, tt.expected)
			}
		})
	}
}

type typedResolver struct {
	core.ResolverFunc
}

func (typedResolver) Type() core.FSType { return core.FSTypeMemory }

// TestTypeOf verifies TypeOf falls back to unknown for untyped resolvers.
func TestTypeOf(t *testing.T) {
	plain := core.ResolverFunc(func(context.Context, string, int, fs.FileMode) (core.Vnode, error) {
		return nil, core.ErrNotExist
	})
	if got := core.TypeOf(plain); got != core.FSTypeUnknown {
		t.Errorf("TypeOf(plain) = %s, want unknown", got)
	}
	if got := core.TypeOf(typedResolver{plain}); got != core.FSTypeMemory {
		t.Errorf("TypeOf(typed) = %s, want memory", got)
	}
}

// TestResolverFunc verifies the adapter forwards every argument.
func TestResolverFunc(t *testing.T) {
	var gotPath string
	var gotFlags int
	var gotPerm fs.FileMode
	r := core.ResolverFunc(func(_ context.Context, path string, flags int, perm fs.FileMode) (core.Vnode, error) {
		gotPath, gotFlags, gotPerm = path, flags, perm
		return nil, nil
	})

	if _, err := r.Resolve(context.Background(), "a/b", core.O_RDWR|core.O_CREAT, 0o640); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if gotPath != "a/b" || gotFlags != core.O_RDWR|core.O_CREAT || gotPerm != 0o640 {
		t.Errorf("Resolve forwarded (%q, %d, %v)", gotPath, gotFlags, gotPerm)
	}
}
