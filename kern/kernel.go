package kern

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/jmgilman/go/filetable/config"
	"github.com/jmgilman/go/filetable/errors"
	"github.com/jmgilman/go/filetable/filetable"
	"github.com/jmgilman/go/filetable/fs/core"
	"github.com/jmgilman/go/filetable/internal/kmem"
	"github.com/jmgilman/go/filetable/internal/logging"
	"github.com/jmgilman/go/filetable/internal/metrics"
)

// Kernel owns the open file table and the set of live processes. It is safe
// for concurrent use.
type Kernel struct {
	cfg      config.Config
	resolver core.Resolver
	table    *filetable.Table
	heap     *kmem.Heap
	recorder *metrics.Recorder
	logger   *logging.Logger

	mu       sync.Mutex
	procs    map[int]*Process
	nextPid  int
	shutdown bool
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithLogger sets the kernel logger. The default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(k *Kernel) {
		k.logger = l
	}
}

// WithRecorder sets the statistics recorder. The default is a fresh
// Recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(k *Kernel) {
		k.recorder = r
	}
}

// New boots a kernel that resolves paths through resolver. The console
// named by cfg.ConsolePath must be resolvable through it for NewProcess to
// succeed. Capacities are fixed for the kernel's lifetime.
func New(cfg config.Config, resolver core.Resolver, opts ...Option) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "resolver is required")
	}

	k := &Kernel{
		cfg:      cfg,
		resolver: resolver,
		heap:     kmem.New(cfg.KernelHeapBytes),
		procs:    make(map[int]*Process),
		nextPid:  1,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.logger == nil {
		k.logger = logging.NewNopLogger()
	}
	if k.recorder == nil {
		k.recorder = metrics.NewRecorder()
	}
	k.table = filetable.New(cfg.GlobalOpenMax,
		filetable.WithHeap(k.heap),
		filetable.WithRecorder(k.recorder),
	)

	k.logger.Info(context.Background(), "kernel booted",
		"open_max", cfg.OpenMax,
		"global_open_max", cfg.GlobalOpenMax,
		"path_max", cfg.PathMax,
		"heap_limit", cfg.KernelHeapBytes,
		"root_type", core.TypeOf(resolver).String())
	return k, nil
}

// Config returns the configuration the kernel was booted with.
func (k *Kernel) Config() config.Config {
	return k.cfg
}

// Table returns the open file table.
func (k *Kernel) Table() *filetable.Table {
	return k.table
}

// Process returns the live process with the given pid.
func (k *Kernel) Process(pid int) (*Process, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.procs[pid]
	return p, ok
}

// Pids returns the pids of live processes in ascending order.
func (k *Kernel) Pids() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pidsLocked()
}

func (k *Kernel) pidsLocked() []int {
	pids := make([]int, 0, len(k.procs))
	for pid := range k.procs {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// register creates an empty process with the next pid.
func (k *Kernel) register(name string, opts []ProcessOption) (*Process, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.shutdown {
		return nil, errors.New(errors.CodeInvalidArgument, "kernel is shut down")
	}

	p := newProcess(k, k.nextPid, name, opts)
	k.procs[p.pid] = p
	k.nextPid++
	k.recorder.RecordProcessCreated()
	return p, nil
}

func (k *Kernel) deregister(p *Process) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.procs[p.pid] == p {
		delete(k.procs, p.pid)
		k.recorder.RecordProcessExited()
	}
}

// NewProcess starts a process with descriptors 1 and 2 bound to two
// separate write-only console objects. Descriptor 0 is left unbound; see
// Process.BindStdin. If either console open fails the process is torn down
// and the error returned.
func (k *Kernel) NewProcess(ctx context.Context, name string, opts ...ProcessOption) (*Process, error) {
	p, err := k.register(name, opts)
	if err != nil {
		return nil, err
	}

	for _, fd := range []int{1, 2} {
		if err := p.openAt(ctx, fd, k.cfg.ConsolePath, core.O_WRONLY, 0); err != nil {
			_ = p.Exit(ctx)
			return nil, errors.WithContextMap(err, map[string]interface{}{
				"fd":   fd,
				"path": k.cfg.ConsolePath,
			})
		}
	}

	p.logger.Debug(ctx, "process started")
	return p, nil
}

// Stats is a point-in-time view of the kernel.
type Stats struct {
	Metrics       metrics.Snapshot `json:"metrics"`
	OpenFiles     int              `json:"open_files"`
	OpenFilesMax  int              `json:"open_files_max"`
	Processes     int              `json:"processes"`
	HeapUsedBytes int64            `json:"heap_used_bytes"`
	HeapLimit     int64            `json:"heap_limit_bytes"`
}

// Stats returns current statistics.
func (k *Kernel) Stats() Stats {
	k.mu.Lock()
	procs := len(k.procs)
	k.mu.Unlock()

	return Stats{
		Metrics:       k.recorder.GetSnapshot(),
		OpenFiles:     k.table.Len(),
		OpenFilesMax:  k.table.Cap(),
		Processes:     procs,
		HeapUsedBytes: k.heap.Used(),
		HeapLimit:     k.heap.Limit(),
	}
}

// RefMismatch is an open file whose reference count disagrees with the
// number of descriptors bound to it.
type RefMismatch struct {
	Slot        int `json:"slot"`
	Refs        int `json:"refs"`
	Descriptors int `json:"descriptors"`
}

// CheckRefs recomputes, for every slot, the number of descriptors bound to
// it across all live processes and compares it with the slot's reference
// count. It returns the mismatches in slot order; nil means the tables agree.
// Every process is locked for the duration of the check.
func (k *Kernel) CheckRefs() []RefMismatch {
	k.mu.Lock()
	defer k.mu.Unlock()

	pids := k.pidsLocked()
	for _, pid := range pids {
		k.procs[pid].mu.Lock()
	}
	defer func() {
		for _, pid := range pids {
			k.procs[pid].mu.Unlock()
		}
	}()

	counts := make(map[int]int)
	for _, pid := range pids {
		for _, b := range k.procs[pid].fds.Bound() {
			counts[b.Slot]++
		}
	}

	occupied := k.table.Occupied()
	var out []RefMismatch
	for slot, refs := range occupied {
		if counts[slot] != refs {
			out = append(out, RefMismatch{Slot: slot, Refs: refs, Descriptors: counts[slot]})
		}
	}
	for slot, n := range counts {
		if _, ok := occupied[slot]; !ok {
			out = append(out, RefMismatch{Slot: slot, Descriptors: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Shutdown exits every process and then force-releases whatever remains in
// the open file table, closing each vnode once. NewProcess fails afterwards.
// Close errors are joined.
func (k *Kernel) Shutdown(ctx context.Context) error {
	start := time.Now()

	k.mu.Lock()
	k.shutdown = true
	procs := make([]*Process, 0, len(k.procs))
	for _, pid := range k.pidsLocked() {
		procs = append(procs, k.procs[pid])
	}
	k.mu.Unlock()

	var errs []error
	for _, p := range procs {
		if err := p.Exit(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := k.table.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	err := stderrors.Join(errs...)
	logging.LogSyscall(ctx, k.logger, logging.OpShutdown, time.Since(start), int64(len(procs)), err)
	return err
}
