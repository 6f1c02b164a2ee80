package core_test

import (
	"testing"

	"github.com/jmgilman/go/filetable/fs/core"
)

func TestAccessModeOf(t *testing.T) {
	tests := []struct {
		name   string
		flags  int
		want   core.AccessMode
		wantOK bool
	}{
		{"read only", core.O_RDONLY, core.ReadOnly, true},
		{"write only", core.O_WRONLY, core.WriteOnly, true},
		{"read write", core.O_RDWR, core.ReadWrite, true},
		{"create trunc", core.O_WRONLY | core.O_CREAT | core.O_TRUNC, core.WriteOnly, true},
		{"append", core.O_RDWR | core.O_APPEND, core.ReadWrite, true},
		{"both access bits", core.O_ACCMODE, 0, false},
		{"unknown bit", core.O_RDONLY | 1<<10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := core.AccessModeOf(tt.flags)
			if ok != tt.wantOK {
				t.Fatalf("AccessModeOf(%d) ok = %v, want %v", tt.flags, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("AccessModeOf(%d) = %s, want %s", tt.flags, got, tt.want)
			}
		})
	}
}

func TestAccessModeDirections(t *testing.T) {
	tests := []struct {
		mode      core.AccessMode
		read      bool
		write     bool
		stringVal string
	}{
		{core.ReadOnly, true, false, "O_RDONLY"},
		{core.WriteOnly, false, true, "O_WRONLY"},
		{core.ReadWrite, true, true, "O_RDWR"},
		{core.AccessMode(7), false, false, "O_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.stringVal, func(t *testing.T) {
			if tt.mode.CanRead() != tt.read {
				t.Errorf("%s.CanRead() = %v", tt.mode, tt.mode.CanRead())
			}
			if tt.mode.CanWrite() != tt.write {
				t.Errorf("%s.CanWrite() = %v", tt.mode, tt.mode.CanWrite())
			}
			if tt.mode.String() != tt.stringVal {
				t.Errorf("String() = %q, want %q", tt.mode.String(), tt.stringVal)
			}
		})
	}
}
