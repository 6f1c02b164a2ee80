// Package pathutil maps kernel paths onto object keys.
package pathutil

import (
	"path"
	"strings"
)

// Normalize cleans a kernel path into a relative slash-separated key.
// Backslashes are treated as separators and "." and ".." are resolved.
// Returns "." when nothing remains.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return "."
	}
	return p
}

// NormalizePrefix normalizes a bucket prefix. An empty or "." prefix
// becomes "".
func NormalizePrefix(prefix string) string {
	if prefix = Normalize(prefix); prefix == "." {
		return ""
	}
	return prefix
}

// JoinPath joins a normalized prefix with a kernel path to form a key.
func JoinPath(prefix, name string) string {
	name = Normalize(name)
	switch {
	case name == ".":
		return prefix
	case prefix == "":
		return name
	default:
		return prefix + "/" + name
	}
}
