package kern

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/jmgilman/go/filetable/errors"
	"github.com/jmgilman/go/filetable/fdtable"
	"github.com/jmgilman/go/filetable/filetable"
	"github.com/jmgilman/go/filetable/internal/logging"
	"github.com/jmgilman/go/filetable/uio"
)

// Default user segment for processes created without WithAddressSpace.
const (
	DefaultUserBase uio.UserPtr = 0x400000
	DefaultUserSize             = 64 << 10
)

// Process is a user process as far as file syscalls are concerned: a pid, a
// descriptor table and an address space. Its methods are safe for
// concurrent use by the process's threads.
type Process struct {
	k      *Kernel
	pid    int
	name   string
	as     uio.AddressSpace
	logger *logging.Logger

	mu     sync.Mutex
	fds    *fdtable.Table
	exited bool
}

// ProcessOption configures a Process.
type ProcessOption func(*Process)

// WithAddressSpace sets the user memory Sys* calls copy through.
func WithAddressSpace(as uio.AddressSpace) ProcessOption {
	return func(p *Process) {
		p.as = as
	}
}

func newProcess(k *Kernel, pid int, name string, opts []ProcessOption) *Process {
	p := &Process{
		k:    k,
		pid:  pid,
		name: name,
		fds:  fdtable.New(k.cfg.OpenMax),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.as == nil {
		p.as = uio.NewMemory(DefaultUserBase, DefaultUserSize)
	}
	p.logger = k.logger.WithProcess(pid, name)
	return p
}

// Pid returns the process id.
func (p *Process) Pid() int {
	return p.pid
}

// Name returns the process name.
func (p *Process) Name() string {
	return p.name
}

// AddressSpace returns the process's user memory.
func (p *Process) AddressSpace() uio.AddressSpace {
	return p.as
}

// Descriptors returns the bound descriptors in ascending order.
func (p *Process) Descriptors() []fdtable.Binding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fds.Bound()
}

// Exited reports whether Exit has run.
func (p *Process) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

// aliveLocked fails once the process has exited.
func (p *Process) aliveLocked() error {
	if p.exited {
		return errors.WithContext(errors.New(errors.CodeInvalidArgument, "process has exited"), "pid", p.pid)
	}
	return nil
}

// descriptorLocked fails once the process has exited. Exit unbinds every
// descriptor, so operations naming one report a bad descriptor.
func (p *Process) descriptorLocked(fd int) error {
	if p.exited {
		return errors.WithContext(errors.BadDescriptor(fd, "process has exited"), "pid", p.pid)
	}
	return nil
}

// Exit releases every descriptor and removes the process from the kernel.
// Slots already emptied by a kernel shutdown are skipped. Exit is
// idempotent; vnode close failures are logged and joined into the result.
func (p *Process) Exit(ctx context.Context) error {
	start := time.Now()

	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return nil
	}
	p.exited = true
	slots := p.fds.Clear()
	reclaims := make([]filetable.Reclaim, 0, len(slots))
	for _, slot := range slots {
		rec, err := p.k.table.Release(slot)
		if err != nil {
			continue
		}
		reclaims = append(reclaims, rec)
	}
	p.mu.Unlock()

	err := p.reclaim(ctx, reclaims...)
	p.k.deregister(p)
	logging.LogSyscall(ctx, p.logger, logging.OpExit, time.Since(start), int64(len(slots)), err)
	return err
}

// Fork creates a child whose descriptor table is a copy of p's. Every
// inherited descriptor adds a reference to its open file, so parent and
// child share offsets. The address space is copied when it is a
// *uio.Memory and shared otherwise.
func (p *Process) Fork(ctx context.Context, name string) (*Process, error) {
	start := time.Now()
	child, err := p.fork(name)
	var pid int64
	if child != nil {
		pid = int64(child.pid)
	}
	p.k.recorder.RecordCall(string(logging.OpFork), time.Since(start), codeOf(err))
	logging.LogSyscall(ctx, p.logger, logging.OpFork, time.Since(start), pid, err)
	return child, err
}

func (p *Process) fork(name string) (*Process, error) {
	as := p.as
	if mem, ok := as.(*uio.Memory); ok {
		as = mem.Clone()
	}

	// The child's pid is higher than p's, so locking p then the child
	// keeps ascending pid order.
	child, err := p.k.register(name, []ProcessOption{WithAddressSpace(as)})
	if err != nil {
		return nil, err
	}

	if err := p.inherit(child); err != nil {
		child.discard()
		return nil, err
	}
	return child, nil
}

// inherit copies p's descriptors into child, retaining each slot.
func (p *Process) inherit(child *Process) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.aliveLocked(); err != nil {
		return err
	}

	child.mu.Lock()
	defer child.mu.Unlock()

	bound := p.fds.Bound()
	for i, b := range bound {
		if err := p.k.table.Retain(b.Slot); err != nil {
			// A bound descriptor always holds a reference; undo the ones
			// already taken. None of them can reach zero.
			for _, prev := range bound[:i] {
				_, _ = p.k.table.Release(prev.Slot)
			}
			return errors.Wrap(err, errors.CodeInternal, "descriptor bound to empty slot")
		}
	}
	child.fds = p.fds.Clone()
	return nil
}

// discard removes a process that never became visible to user code.
func (p *Process) discard() {
	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()
	p.k.deregister(p)
}

// reclaim closes released vnodes and logs failures. It must be called
// without holding p.mu.
func (p *Process) reclaim(ctx context.Context, reclaims ...filetable.Reclaim) error {
	var errs []error
	for _, rec := range reclaims {
		if err := rec.Close(); err != nil {
			logging.LogReclaimFailure(ctx, p.logger, rec.Slot(), err)
			errs = append(errs, errors.WrapWithContext(err, errors.CodeIO, "vnode close failed",
				map[string]interface{}{"slot": rec.Slot()}))
		}
	}
	return stderrors.Join(errs...)
}

// unpin drops a pin taken for I/O. If the object was released meanwhile the
// vnode is closed here.
func (p *Process) unpin(ctx context.Context, of *filetable.OpenFile) {
	if err := p.k.table.Unpin(of); err != nil {
		logging.LogReclaimFailure(ctx, p.logger, of.Slot(), err)
	}
}

// closeVnode disposes of a vnode that never made it into the table.
func (p *Process) closeVnode(ctx context.Context, vn interface{ Close() error }) {
	if err := vn.Close(); err != nil {
		p.logger.Warn(ctx, "vnode close after failed open", "error", err.Error())
	}
}

// finish records and logs one syscall.
func (p *Process) finish(ctx context.Context, op logging.Operation, start time.Time, result int64, err error) {
	d := time.Since(start)
	p.k.recorder.RecordCall(string(op), d, codeOf(err))
	logging.LogSyscall(ctx, p.logger, op, d, result, err)
}

func codeOf(err error) string {
	if err == nil {
		return ""
	}
	return string(errors.GetCode(err))
}
