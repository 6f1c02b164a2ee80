// Package devfs routes device paths to registered devices.
//
// A path of the form "name:rest" (for example "con:") names a device; the
// device resolves rest. Every other path goes to the root resolver.
//
//	root := devfs.New(billy.NewMemory(),
//	    devfs.WithDevice("con", console.New(os.Stdin, os.Stdout)),
//	)
//	vn, err := root.Resolve(ctx, "con:", core.O_WRONLY, 0)
package devfs

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/jmgilman/go/filetable/fs/core"
)

// FS multiplexes devices over a root resolver.
type FS struct {
	root core.Resolver

	mu      sync.RWMutex
	devices map[string]core.Resolver
}

// Option configures an FS.
type Option func(*FS)

// WithDevice registers dev under name.
func WithDevice(name string, dev core.Resolver) Option {
	return func(f *FS) {
		f.devices[name] = dev
	}
}

// New creates a device multiplexer. root may be nil, in which case only
// device paths resolve.
func New(root core.Resolver, opts ...Option) *FS {
	f := &FS{
		root:    root,
		devices: make(map[string]core.Resolver),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register adds a device. It fails if the name is taken or invalid.
func (f *FS) Register(name string, dev core.Resolver) error {
	if name == "" || strings.ContainsAny(name, ":/") {
		return fmt.Errorf("devfs: invalid device name %q: %w", name, fs.ErrInvalid)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.devices[name]; ok {
		return fmt.Errorf("devfs: device %q: %w", name, fs.ErrExist)
	}
	f.devices[name] = dev
	return nil
}

// Devices returns the registered device names in sorted order.
func (f *FS) Devices() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.devices))
	for name := range f.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SplitDevice splits "name:rest" into its parts. It reports false for
// paths that do not name a device.
func SplitDevice(path string) (name, rest string, ok bool) {
	i := strings.IndexByte(path, ':')
	if i <= 0 || strings.Contains(path[:i], "/") {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}

// Resolve implements core.Resolver.
func (f *FS) Resolve(ctx context.Context, path string, flags int, perm fs.FileMode) (core.Vnode, error) {
	if name, rest, ok := SplitDevice(path); ok {
		f.mu.RLock()
		dev, found := f.devices[name]
		f.mu.RUnlock()
		if !found {
			return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
		}
		return dev.Resolve(ctx, rest, flags, perm)
	}

	if f.root == nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return f.root.Resolve(ctx, path, flags, perm)
}

// Type implements core.Typed by reporting the root's type.
func (f *FS) Type() core.FSType {
	if f.root == nil {
		return core.FSTypeDevice
	}
	return core.TypeOf(f.root)
}

// Compile-time interface checks.
var (
	_ core.Resolver = (*FS)(nil)
	_ core.Typed    = (*FS)(nil)
)
