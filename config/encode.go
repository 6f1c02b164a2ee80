package config

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/jmgilman/go/filetable/errors"
)

// EncodeYAML renders c as YAML with the same field names the loader
// accepts.
func (c Config) EncodeYAML() ([]byte, error) {
	value := cuecontext.New().Encode(c)
	if err := value.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to encode config")
	}
	data, err := cueyaml.Encode(value)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to encode config to YAML")
	}
	return data, nil
}

// EncodeCUE renders c as CUE source that Load accepts.
func (c Config) EncodeCUE() ([]byte, error) {
	value := cuecontext.New().Encode(c)
	if err := value.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to encode config")
	}
	node := value.Syntax(cue.Concrete(true))
	if lit, ok := node.(*ast.StructLit); ok {
		node = &ast.File{Decls: lit.Elts}
	}
	data, err := format.Node(node)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to format config")
	}
	return data, nil
}
