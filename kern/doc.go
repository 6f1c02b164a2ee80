// Package kern implements the file syscalls of a teaching kernel on top of
// the descriptor and open file tables.
//
// A Kernel owns one open file table shared by every Process. Each Process
// owns a descriptor table mapping small integers to slots in that shared
// table. Descriptors created by Dup2 or inherited through Fork alias the
// same open file object and share its offset; the object and its vnode live
// until the last descriptor naming it is closed.
//
// # Syscalls
//
// The Go API takes kernel values:
//
//	fd, err := p.Open(ctx, "notes.txt", core.O_RDWR|core.O_CREAT, 0o644)
//	n, err := p.Write(ctx, fd, []byte("hello"))
//	pos, err := p.Lseek(ctx, fd, 0, core.SEEK_SET)
//	n, err = p.Read(ctx, fd, buf)
//	err = p.Close(ctx, fd)
//
// The Sys* methods take user pointers into the process address space and
// return register-shaped results; Kernel.Syscall dispatches them by call
// number and reports failures as errno values.
//
// # Locking
//
// Locks are taken in the order Kernel, Process (ascending pid when several
// are held), open file table, open file object. No vnode method is called
// while a process or table lock is held: vnodes released by close, dup2 or
// exit are closed after the locks are dropped, and I/O runs on a pinned
// object outside them. Transfers and seeks on one open file object are
// ordered by that object's own lock, held across the vnode call, so
// descriptors sharing the object through dup2 or fork see every transfer
// advance the offset exactly once.
package kern
