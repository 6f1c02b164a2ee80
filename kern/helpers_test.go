package kern

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/filetable/config"
	"github.com/jmgilman/go/filetable/fs/billy"
	"github.com/jmgilman/go/filetable/fs/console"
	"github.com/jmgilman/go/filetable/fs/core"
	"github.com/jmgilman/go/filetable/fs/devfs"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// trackedVnode counts closes of the vnode it wraps.
type trackedVnode struct {
	core.Vnode
	path   string
	closes atomic.Int32
}

func (v *trackedVnode) Close() error {
	v.closes.Add(1)
	return v.Vnode.Close()
}

// tracker records every vnode a resolver hands out.
type tracker struct {
	inner core.Resolver

	mu     sync.Mutex
	vnodes []*trackedVnode
}

func (tr *tracker) Resolve(ctx context.Context, path string, flags int, perm fs.FileMode) (core.Vnode, error) {
	vn, err := tr.inner.Resolve(ctx, path, flags, perm)
	if err != nil {
		return nil, err
	}
	tv := &trackedVnode{Vnode: vn, path: path}
	tr.mu.Lock()
	tr.vnodes = append(tr.vnodes, tv)
	tr.mu.Unlock()
	return tv, nil
}

func (tr *tracker) last() *trackedVnode {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.vnodes[len(tr.vnodes)-1]
}

func (tr *tracker) all() []*trackedVnode {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]*trackedVnode(nil), tr.vnodes...)
}

// newConsoleResolver serves root with a "con:" device writing to out.
func newConsoleResolver(root core.Resolver, out io.Writer) core.Resolver {
	return devfs.New(root, devfs.WithDevice("con", console.New(nil, out)))
}

type testEnv struct {
	k       *Kernel
	root    *billy.FS
	console *syncBuffer
	tracker *tracker
}

// newEnv boots a kernel over an in-memory filesystem with a console whose
// output is captured. mutate adjusts the default configuration.
func newEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}

	out := &syncBuffer{}
	root := billy.NewMemory()
	tr := &tracker{inner: newConsoleResolver(root, out)}

	k, err := New(cfg, tr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Shutdown(context.Background()) })

	return &testEnv{k: k, root: root, console: out, tracker: tr}
}

func (e *testEnv) process(t *testing.T) *Process {
	t.Helper()
	p, err := e.k.NewProcess(context.Background(), "test")
	require.NoError(t, err)
	return p
}

func (e *testEnv) writeFile(t *testing.T, name, content string) {
	t.Helper()
	f, err := e.root.Unwrap().Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func (e *testEnv) readFile(t *testing.T, name string) string {
	t.Helper()
	f, err := e.root.Unwrap().Open(name)
	require.NoError(t, err)
	defer f.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(f)
	require.NoError(t, err)
	return buf.String()
}

// requireRefsConsistent checks that every slot's count matches its bindings.
func requireRefsConsistent(t *testing.T, k *Kernel) {
	t.Helper()
	require.Empty(t, k.CheckRefs())
}

func slotOf(t *testing.T, p *Process, fd int) int {
	t.Helper()
	for _, b := range p.Descriptors() {
		if b.Fd == fd {
			return b.Slot
		}
	}
	t.Fatalf("fd %d not bound", fd)
	return -1
}
