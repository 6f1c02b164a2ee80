// Package metrics collects kernel statistics.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Recorder accumulates syscall and open-file statistics. It is safe for
// concurrent use.
type Recorder struct {
	mu sync.RWMutex

	// Per-syscall counters keyed by operation name
	calls  map[string]int64
	errors map[string]int64

	// Errors keyed by code
	errorCodes map[string]int64

	// Bytes moved through read and write
	bytesRead    int64
	bytesWritten int64

	// Open file objects
	openObjects int64
	peakObjects int64
	reclaims    int64

	// Resource limits
	processLimitHits int64
	systemLimitHits  int64
	memoryLimitHits  int64

	// Processes
	processesCreated int64
	processesExited  int64

	// Latency tracking per operation
	latency map[string]time.Duration

	startTime time.Time
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		calls:      make(map[string]int64),
		errors:     make(map[string]int64),
		errorCodes: make(map[string]int64),
		latency:    make(map[string]time.Duration),
		startTime:  time.Now(),
	}
}

// Exhaustion codes counted separately.
const (
	codeProcessLimit = "TOO_MANY_OPEN_FILES_PROCESS"
	codeSystemLimit  = "TOO_MANY_OPEN_FILES_SYSTEM"
	codeOutOfMemory  = "OUT_OF_MEMORY"
)

// RecordCall records one completed syscall. code is empty on success.
func (r *Recorder) RecordCall(op string, duration time.Duration, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[op]++
	r.latency[op] += duration
	if code == "" {
		return
	}

	r.errors[op]++
	r.errorCodes[code]++
	switch code {
	case codeProcessLimit:
		r.processLimitHits++
	case codeSystemLimit:
		r.systemLimitHits++
	case codeOutOfMemory:
		r.memoryLimitHits++
	}
}

// RecordRead records bytes returned by read.
func (r *Recorder) RecordRead(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytesRead += int64(n)
}

// RecordWrite records bytes accepted by write.
func (r *Recorder) RecordWrite(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytesWritten += int64(n)
}

// RecordInstall records a new object in the open file table.
func (r *Recorder) RecordInstall() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.openObjects++
	if r.openObjects > r.peakObjects {
		r.peakObjects = r.openObjects
	}
}

// RecordReclaim records an object leaving the open file table.
func (r *Recorder) RecordReclaim() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reclaims++
	r.openObjects--
	if r.openObjects < 0 {
		r.openObjects = 0
	}
}

// RecordProcessCreated records a new process.
func (r *Recorder) RecordProcessCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processesCreated++
}

// RecordProcessExited records a process exit.
func (r *Recorder) RecordProcessExited() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processesExited++
}

// OpStats summarises one syscall.
type OpStats struct {
	Calls          int64         `json:"calls"`
	Errors         int64         `json:"errors"`
	AverageLatency time.Duration `json:"avg_latency_ns"`
}

// Snapshot provides a point-in-time view of kernel statistics.
type Snapshot struct {
	// Per-syscall statistics
	Syscalls map[string]OpStats `json:"syscalls"`

	// Errors by code
	ErrorCodes map[string]int64 `json:"error_codes,omitempty"`

	// Byte counters
	BytesRead    int64 `json:"bytes_read"`
	BytesWritten int64 `json:"bytes_written"`

	// Open file objects
	OpenObjects int64 `json:"open_objects"`
	PeakObjects int64 `json:"peak_objects"`
	Reclaims    int64 `json:"reclaims"`

	// Resource limit hits
	ProcessLimitHits int64 `json:"process_limit_hits"`
	SystemLimitHits  int64 `json:"system_limit_hits"`
	MemoryLimitHits  int64 `json:"memory_limit_hits"`

	// Processes
	ProcessesCreated int64 `json:"processes_created"`
	ProcessesExited  int64 `json:"processes_exited"`

	Uptime time.Duration `json:"uptime"`
}

// TotalCalls returns the number of syscalls across all operations.
func (s Snapshot) TotalCalls() int64 {
	var total int64
	for _, op := range s.Syscalls {
		total += op.Calls
	}
	return total
}

// Operations returns the recorded operation names in sorted order.
func (s Snapshot) Operations() []string {
	ops := make([]string, 0, len(s.Syscalls))
	for op := range s.Syscalls {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// GetSnapshot returns a thread-safe snapshot of current statistics.
func (r *Recorder) GetSnapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	syscalls := make(map[string]OpStats, len(r.calls))
	for op, calls := range r.calls {
		var avg time.Duration
		if calls > 0 {
			avg = r.latency[op] / time.Duration(calls)
		}
		syscalls[op] = OpStats{
			Calls:          calls,
			Errors:         r.errors[op],
			AverageLatency: avg,
		}
	}

	var codes map[string]int64
	if len(r.errorCodes) > 0 {
		codes = make(map[string]int64, len(r.errorCodes))
		for code, n := range r.errorCodes {
			codes[code] = n
		}
	}

	return Snapshot{
		Syscalls:         syscalls,
		ErrorCodes:       codes,
		BytesRead:        r.bytesRead,
		BytesWritten:     r.bytesWritten,
		OpenObjects:      r.openObjects,
		PeakObjects:      r.peakObjects,
		Reclaims:         r.reclaims,
		ProcessLimitHits: r.processLimitHits,
		SystemLimitHits:  r.systemLimitHits,
		MemoryLimitHits:  r.memoryLimitHits,
		ProcessesCreated: r.processesCreated,
		ProcessesExited:  r.processesExited,
		Uptime:           time.Since(r.startTime),
	}
}

// Reset clears all statistics. Open object counts are kept because the
// objects themselves are still installed.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = make(map[string]int64)
	r.errors = make(map[string]int64)
	r.errorCodes = make(map[string]int64)
	r.latency = make(map[string]time.Duration)
	r.bytesRead = 0
	r.bytesWritten = 0
	r.peakObjects = r.openObjects
	r.reclaims = 0
	r.processLimitHits = 0
	r.systemLimitHits = 0
	r.memoryLimitHits = 0
	r.processesCreated = 0
	r.processesExited = 0
	r.startTime = time.Now()
}
