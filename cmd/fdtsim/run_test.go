package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/filetable/config"
	"github.com/jmgilman/go/filetable/fs/billy"
	"github.com/jmgilman/go/filetable/fs/console"
	"github.com/jmgilman/go/filetable/fs/core"
	"github.com/jmgilman/go/filetable/fs/devfs"
	"github.com/jmgilman/go/filetable/internal/logging"
)

const helloScript = `
steps:
  - op: open
    path: notes.txt
    flags: [O_RDWR, O_CREAT]
    mode: "0600"
    save: fd
  - op: write
    fd: $fd
    data: hello
  - op: lseek
    fd: $fd
    offset: 0
    whence: SET
  - op: read
    fd: $fd
    n: 5
  - op: dup2
    fd: $fd
    newfd: 7
  - op: fork
    as: child
  - op: close
    proc: child
    fd: 7
  - op: write
    proc: child
    fd: 1
    data: "from child\n"
  - op: close
    fd: $fd
  - op: close
    fd: $fd
    expect: EBADF
  - op: lseek
    fd: 1
    whence: END
    expect: NOT_SEEKABLE
  - op: check
`

func runScript(t *testing.T, src string, stats bool) ([]map[string]interface{}, string, error) {
	t.Helper()

	script, err := ParseScript([]byte(src))
	require.NoError(t, err)

	var out, con bytes.Buffer
	resolver := devfs.New(billy.NewMemory(), devfs.WithDevice("con", console.New(nil, &con)))
	runErr := execute(context.Background(), &out, config.Default(), resolver, logging.NewNopLogger(), script, stats)

	var lines []map[string]interface{}
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	return lines, con.String(), runErr
}

func TestExecute(t *testing.T) {
	lines, con, err := runScript(t, helloScript, true)
	require.NoError(t, err)
	require.Len(t, lines, 13)

	assert.Equal(t, float64(0), lines[0]["result"], "first open takes descriptor 0")
	assert.Equal(t, float64(5), lines[1]["result"])
	assert.Equal(t, "hello", lines[3]["data"])
	assert.Equal(t, float64(7), lines[4]["result"])
	assert.Equal(t, "child", lines[6]["proc"])
	assert.Equal(t, "from child\n", con)

	errResp, ok := lines[9]["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "EBADF", errResp["errno"])
	assert.Nil(t, lines[9]["mismatch"])

	assert.Nil(t, lines[11]["refs"], "reference counts agree")
	assert.Contains(t, lines[12], "stats")
}

func TestExecute_Mismatch(t *testing.T) {
	lines, _, err := runScript(t, `
steps:
  - op: close
    fd: 40
  - op: open
    path: missing.txt
    flags: O_RDONLY
    expect: ENOENT
`, false)
	require.Error(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, true, lines[0]["mismatch"])
	assert.Nil(t, lines[1]["mismatch"])
}

func TestExecute_BadReferences(t *testing.T) {
	lines, _, err := runScript(t, `
steps:
  - op: close
    fd: $nope
    expect: INVALID_ARGUMENT
  - op: frobnicate
    expect: ENOSYS
  - op: fork
    expect: EINVAL
`, false)
	require.NoError(t, err)
	require.Len(t, lines, 3)
}

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte(`
steps:
  - op: open
    path: a
    flags: O_WRONLY|O_CREAT|O_TRUNC
    mode: 0640
  - op: open
    proc: other
    path: b
    flags: 2
  - op: lseek
    fd: 3
    whence: 2
`))
	require.NoError(t, err)
	require.Len(t, s.Steps, 3)

	assert.Equal(t, "init", s.Steps[0].Proc)
	assert.Equal(t, Flags(core.O_WRONLY|core.O_CREAT|core.O_TRUNC), s.Steps[0].Flags)
	mode, err := parseMode(s.Steps[0].Mode)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), mode)

	assert.Equal(t, "other", s.Steps[1].Proc)
	assert.Equal(t, Flags(core.O_RDWR), s.Steps[1].Flags)

	fd, err := s.Steps[2].Fd.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, fd)
	whence, err := parseWhence(s.Steps[2].Whence)
	require.NoError(t, err)
	assert.Equal(t, core.SEEK_END, whence)
}

func TestParseScript_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing op", "steps:\n  - path: a\n"},
		{"unknown flag", "steps:\n  - op: open\n    flags: [O_SYNC]\n"},
		{"flags mapping", "steps:\n  - op: open\n    flags: {a: 1}\n"},
		{"not yaml", "steps: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestParseHelpers(t *testing.T) {
	_, err := parseMode("9")
	assert.Error(t, err)
	mode, err := parseMode("")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), mode)

	for in, want := range map[Scalar]int{"SEEK_CUR": core.SEEK_CUR, "set": core.SEEK_SET, "": core.SEEK_SET, "7": 7} {
		got, err := parseWhence(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err = parseWhence("sideways")
	assert.Error(t, err)

	_, err = Ref("$x").Resolve(map[string]int64{})
	assert.Error(t, err)
	_, err = Ref("x").Resolve(nil)
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openMax: 16\nconsolePath: \"tty:\"\n"), 0o644))

	cfg, err = loadConfig(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.OpenMax)
	assert.Equal(t, "tty", consoleName(cfg))
}
