package core

// Open flags. Values follow the kernel ABI, not the host operating system.
const (
	O_RDONLY  = 0
	O_WRONLY  = 1
	O_RDWR    = 2
	O_ACCMODE = 3

	O_CREAT  = 4
	O_EXCL   = 8
	O_TRUNC  = 16
	O_APPEND = 32

	// oValid is every bit a caller may set.
	oValid = O_ACCMODE | O_CREAT | O_EXCL | O_TRUNC | O_APPEND
)

// Seek origins for lseek.
const (
	SEEK_SET = 0
	SEEK_CUR = 1
	SEEK_END = 2
)

// AccessMode is the direction an open file permits.
type AccessMode int

const (
	ReadOnly  AccessMode = O_RDONLY
	WriteOnly AccessMode = O_WRONLY
	ReadWrite AccessMode = O_RDWR
)

// AccessModeOf returns the access mode encoded in flags. It reports false
// when the access bits are not one of the three modes or when flags carries
// unknown bits.
func AccessModeOf(flags int) (AccessMode, bool) {
	if flags&^oValid != 0 {
		return 0, false
	}
	switch m := AccessMode(flags & O_ACCMODE); m {
	case ReadOnly, WriteOnly, ReadWrite:
		return m, true
	default:
		return 0, false
	}
}

// CanRead reports whether the mode permits reading.
func (m AccessMode) CanRead() bool {
	return m == ReadOnly || m == ReadWrite
}

// CanWrite reports whether the mode permits writing.
func (m AccessMode) CanWrite() bool {
	return m == WriteOnly || m == ReadWrite
}

// String returns the flag name for the mode.
func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "O_RDONLY"
	case WriteOnly:
		return "O_WRONLY"
	case ReadWrite:
		return "O_RDWR"
	default:
		return "O_INVALID"
	}
}
