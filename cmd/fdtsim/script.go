package main

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmgilman/go/filetable/fs/core"
)

// Script is a sequence of syscalls.
//
//	steps:
//	  - op: open
//	    path: notes.txt
//	    flags: [O_RDWR, O_CREAT]
//	    save: fd
//	  - op: write
//	    fd: $fd
//	    data: hello
//	  - op: close
//	    fd: $fd
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is one syscall. Proc names the process it runs in; processes are
// started on first use and "init" is assumed when Proc is empty.
type Step struct {
	Proc   string `yaml:"proc"`
	Op     string `yaml:"op"`
	Path   string `yaml:"path"`
	Flags  Flags  `yaml:"flags"`
	Mode   Scalar `yaml:"mode"`
	Fd     Ref    `yaml:"fd"`
	NewFd  Ref    `yaml:"newfd"`
	Data   string `yaml:"data"`
	N      int    `yaml:"n"`
	Offset int64  `yaml:"offset"`
	Whence Scalar `yaml:"whence"`

	// Save stores the step's result under a name later steps can use as
	// $name.
	Save string `yaml:"save"`

	// As names the child of a fork.
	As string `yaml:"as"`

	// Expect is the error code or errno name the step must fail with.
	Expect string `yaml:"expect"`
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	for i := range s.Steps {
		if s.Steps[i].Op == "" {
			return nil, fmt.Errorf("step %d: op is required", i)
		}
		if s.Steps[i].Proc == "" {
			s.Steps[i].Proc = "init"
		}
	}
	return &s, nil
}

var flagNames = map[string]int{
	"O_RDONLY": core.O_RDONLY,
	"O_WRONLY": core.O_WRONLY,
	"O_RDWR":   core.O_RDWR,
	"O_CREAT":  core.O_CREAT,
	"O_EXCL":   core.O_EXCL,
	"O_TRUNC":  core.O_TRUNC,
	"O_APPEND": core.O_APPEND,
}

// Flags are open flags written as an integer, a "O_X|O_Y" string or a
// list of names.
type Flags int

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Flags) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if n, err := strconv.Atoi(node.Value); err == nil {
			*f = Flags(n)
			return nil
		}
		return f.parseNames(strings.Split(node.Value, "|"))
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		return f.parseNames(names)
	default:
		return fmt.Errorf("line %d: flags must be a number, string or list", node.Line)
	}
}

func (f *Flags) parseNames(names []string) error {
	var out int
	for _, name := range names {
		name = strings.ToUpper(strings.TrimSpace(name))
		bit, ok := flagNames[name]
		if !ok {
			return fmt.Errorf("unknown open flag %q", name)
		}
		out |= bit
	}
	*f = Flags(out)
	return nil
}

// Scalar keeps a YAML scalar's source text, so 0644 stays octal and
// numbers and names can share a field.
type Scalar string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", node.Line)
	}
	*s = Scalar(node.Value)
	return nil
}

// Ref is a descriptor: a literal number or $name of a saved result.
type Ref string

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Ref) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: descriptor must be a scalar", node.Line)
	}
	*r = Ref(node.Value)
	return nil
}

// Resolve returns the descriptor r denotes.
func (r Ref) Resolve(vars map[string]int64) (int, error) {
	s := strings.TrimSpace(string(r))
	if name, ok := strings.CutPrefix(s, "$"); ok {
		v, ok := vars[name]
		if !ok {
			return 0, fmt.Errorf("undefined variable $%s", name)
		}
		return int(v), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad descriptor %q", s)
	}
	return n, nil
}

// parseMode reads an octal permission, defaulting to 0644.
func parseMode(s Scalar) (fs.FileMode, error) {
	if s == "" {
		return 0o644, nil
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(string(s), "0o"), 8, 32)
	if err != nil {
		return 0, fmt.Errorf("bad mode %q", s)
	}
	return fs.FileMode(n), nil
}

// parseWhence accepts SET, CUR, END with or without the SEEK_ prefix, or a
// number.
func parseWhence(s Scalar) (int, error) {
	switch strings.TrimPrefix(strings.ToUpper(string(s)), "SEEK_") {
	case "", "SET":
		return core.SEEK_SET, nil
	case "CUR":
		return core.SEEK_CUR, nil
	case "END":
		return core.SEEK_END, nil
	}
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return 0, fmt.Errorf("bad whence %q", s)
	}
	return n, nil
}
