package config

import (
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/jmgilman/go/filetable/errors"
)

// Issue is a single schema violation.
type Issue struct {
	// Path is the field path where the error occurred (e.g., ["openMax"]).
	Path []string `json:"path"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Position is the source position if available.
	Position token.Pos `json:"-"`
}

// String formats the issue as "path: message".
func (i Issue) String() string {
	if len(i.Path) == 0 {
		return i.Message
	}
	return cue.MakePath(selectors(i.Path)...).String() + ": " + i.Message
}

func selectors(path []string) []cue.Selector {
	sels := make([]cue.Selector, 0, len(path))
	for _, p := range path {
		sels = append(sels, cue.Str(p))
	}
	return sels
}

// Issues returns the schema violations carried by err, or nil.
func Issues(err error) []Issue {
	var kerr errors.KernelError
	if !errors.As(err, &kerr) {
		return nil
	}
	issues, _ := kerr.Context()["issues"].([]Issue)
	return issues
}

// extractIssues extracts structured issues from a CUE error.
func extractIssues(err error) []Issue {
	if err == nil {
		return nil
	}

	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()

		var pos token.Pos
		if positions := e.InputPositions(); len(positions) > 0 {
			pos = positions[0]
		}

		issues = append(issues, Issue{
			Path:     e.Path(),
			Message:  fmt.Sprintf(format, args...),
			Position: pos,
		})
	}
	return issues
}

// wrapCUEError wraps a CUE evaluation error with CodeInvalidConfig and
// attaches the structured issues.
func wrapCUEError(err error, message, filename string) error {
	return errors.WrapWithContext(err, errors.CodeInvalidConfig, message, map[string]interface{}{
		"file":    filename,
		"details": cueerrors.Details(err, nil),
		"issues":  extractIssues(err),
	})
}
