package config

import (
	"context"
	_ "embed"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/go/filetable/errors"
)

//go:embed schema.cue
var schemaSource []byte

// Loader reads configuration files from a filesystem and checks them
// against the embedded schema.
// A Loader is not safe for concurrent use.
type Loader struct {
	fs     billy.Basic
	cueCtx *cue.Context
	schema cue.Value
}

// NewLoader creates a loader over fsys. The schema is compiled once per
// loader.
func NewLoader(fsys billy.Basic) *Loader {
	cueCtx := cuecontext.New()
	schema := cueCtx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	return &Loader{
		fs:     fsys,
		cueCtx: cueCtx,
		schema: schema.LookupPath(cue.ParsePath("#Config")),
	}
}

// Load reads path from fsys and returns the validated configuration.
// It is shorthand for NewLoader(fsys).Load(ctx, path).
func Load(ctx context.Context, fsys billy.Basic, path string) (Config, error) {
	return NewLoader(fsys).Load(ctx, path)
}

// Load reads path and returns the validated configuration.
//
// Files ending in .yaml or .yml are parsed as YAML; everything else is
// compiled as CUE. Read failures keep their provider code (NOT_FOUND,
// PERMISSION_DENIED, ...). Schema violations return CodeInvalidConfig with
// the violations attached; see Issues.
func (l *Loader) Load(ctx context.Context, path string) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, errors.Wrap(err, errors.CodeInvalidConfig, "context cancelled")
	}

	data, err := util.ReadFile(l.fs, path)
	if err != nil {
		return Config{}, errors.FromFS(err, "read config", path)
	}
	return l.Parse(ctx, data, path)
}

// Parse checks data against the schema. filename selects the format and
// is used in error messages.
func (l *Loader) Parse(ctx context.Context, data []byte, filename string) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, errors.Wrap(err, errors.CodeInvalidConfig, "context cancelled")
	}
	if err := l.schema.Err(); err != nil {
		return Config{}, wrapCUEError(err, "schema is invalid", "schema.cue")
	}

	var (
		value cue.Value
		err   error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		value, err = l.compileYAML(data, filename)
	default:
		value, err = l.compileCUE(data, filename)
	}
	if err != nil {
		return Config{}, err
	}

	unified := l.schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true), cue.Final(), cue.All()); err != nil {
		return Config{}, wrapCUEError(err, "validation failed", filename)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, wrapCUEError(err, "failed to decode config", filename)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.WithContext(err, "file", filename)
	}
	return cfg, nil
}

func (l *Loader) compileCUE(data []byte, filename string) (cue.Value, error) {
	value := l.cueCtx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return cue.Value{}, wrapCUEError(err, "failed to compile CUE source", filename)
	}
	return value, nil
}

// compileYAML decodes a YAML mapping and encodes it as a CUE value so it
// can be unified with the schema.
func (l *Loader) compileYAML(data []byte, filename string) (cue.Value, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cue.Value{}, errors.WrapWithContext(err, errors.CodeInvalidConfig, "failed to parse YAML", map[string]interface{}{
			"file": filename,
		})
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	value := l.cueCtx.Encode(doc)
	if err := value.Err(); err != nil {
		return cue.Value{}, wrapCUEError(err, "failed to encode YAML document", filename)
	}
	return value, nil
}
