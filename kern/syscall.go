package kern

import (
	"context"
	"io/fs"

	"github.com/jmgilman/go/filetable/errors"
	"github.com/jmgilman/go/filetable/uio"
)

// Syscall numbers understood by Syscall.
const (
	SYS_open  = 45
	SYS_dup2  = 48
	SYS_close = 49
	SYS_read  = 50
	SYS_write = 55
	SYS_lseek = 59
)

// Args holds the raw argument registers of one syscall.
type Args [4]int64

// Syscall dispatches a numbered file syscall for p and returns its value
// and errno the way a trap handler would: on success the value and 0, on
// failure -1 and the errno of the error.
//
// Arguments by call:
//
//	open   path pointer, flags, mode
//	read   fd, buffer pointer, length
//	write  fd, buffer pointer, length
//	lseek  fd, offset, whence
//	close  fd
//	dup2   old fd, new fd
func (k *Kernel) Syscall(ctx context.Context, p *Process, callno int, args Args) (int64, errors.Errno) {
	if p == nil || p.k != k {
		return -1, errors.EINVAL
	}

	var (
		ret int64
		err error
	)
	switch callno {
	case SYS_open:
		ret, err = p.SysOpen(ctx, uio.UserPtr(args[0]), int(args[1]), fs.FileMode(args[2]))
	case SYS_read:
		ret, err = p.SysRead(ctx, int(args[0]), uio.UserPtr(args[1]), int(args[2]))
	case SYS_write:
		ret, err = p.SysWrite(ctx, int(args[0]), uio.UserPtr(args[1]), int(args[2]))
	case SYS_lseek:
		ret, err = p.SysLseek(ctx, int(args[0]), args[1], int(args[2]))
	case SYS_close:
		ret, err = p.SysClose(ctx, int(args[0]))
	case SYS_dup2:
		ret, err = p.SysDup2(ctx, int(args[0]), int(args[1]))
	default:
		err = errors.WithContext(errors.New(errors.CodeNotImplemented, "unknown syscall"), "callno", callno)
		p.logger.Debug(ctx, "unknown syscall", "callno", callno)
	}

	if err != nil {
		return -1, errors.ErrnoOf(err)
	}
	return ret, 0
}

// SyscallName returns the name of a syscall number, or "" if unknown.
func SyscallName(callno int) string {
	switch callno {
	case SYS_open:
		return "open"
	case SYS_dup2:
		return "dup2"
	case SYS_close:
		return "close"
	case SYS_read:
		return "read"
	case SYS_write:
		return "write"
	case SYS_lseek:
		return "lseek"
	default:
		return ""
	}
}
