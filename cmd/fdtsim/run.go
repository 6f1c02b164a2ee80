package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jmgilman/go/filetable/config"
	"github.com/jmgilman/go/filetable/errors"
	"github.com/jmgilman/go/filetable/fs/billy"
	"github.com/jmgilman/go/filetable/fs/console"
	"github.com/jmgilman/go/filetable/fs/core"
	"github.com/jmgilman/go/filetable/fs/devfs"
	"github.com/jmgilman/go/filetable/fs/minio"
	"github.com/jmgilman/go/filetable/internal/logging"
	"github.com/jmgilman/go/filetable/kern"
)

func cmdRun() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run a syscall script and print one JSON result per step",
		ArgsUsage: "SCRIPT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "serve files from this directory instead of memory",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "print kernel statistics after the last step",
			},
			&cli.StringFlag{
				Name:    "minio-endpoint",
				Usage:   "serve files from a MinIO bucket at this endpoint",
				EnvVars: []string{"FDTSIM_MINIO_ENDPOINT"},
			},
			&cli.StringFlag{
				Name:    "minio-bucket",
				Usage:   "bucket holding the files",
				EnvVars: []string{"FDTSIM_MINIO_BUCKET"},
			},
			&cli.StringFlag{
				Name:    "minio-prefix",
				Usage:   "key prefix inside the bucket",
				EnvVars: []string{"FDTSIM_MINIO_PREFIX"},
			},
			&cli.StringFlag{
				Name:    "minio-access-key",
				EnvVars: []string{"FDTSIM_MINIO_ACCESS_KEY"},
			},
			&cli.StringFlag{
				Name:    "minio-secret-key",
				EnvVars: []string{"FDTSIM_MINIO_SECRET_KEY"},
			},
			&cli.BoolFlag{
				Name:    "minio-ssl",
				EnvVars: []string{"FDTSIM_MINIO_SSL"},
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("run takes exactly one script", 2)
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}
			script, err := ParseScript(data)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(c.Context, c.String("config"))
			if err != nil {
				return err
			}
			logger, err := newLogger(c, cfg)
			if err != nil {
				return err
			}
			root, err := rootResolver(c)
			if err != nil {
				return err
			}

			resolver := devfs.New(root, devfs.WithDevice(consoleName(cfg), console.New(os.Stdin, c.App.ErrWriter)))
			return execute(c.Context, c.App.Writer, cfg, resolver, logger, script, c.Bool("stats"))
		},
	}
}

// consoleName strips the trailing colon from the console path.
func consoleName(cfg config.Config) string {
	name, _, _ := devfs.SplitDevice(cfg.ConsolePath)
	return name
}

// rootResolver picks the backing store from the flags.
func rootResolver(c *cli.Context) (core.Resolver, error) {
	if endpoint := c.String("minio-endpoint"); endpoint != "" {
		return minio.New(minio.Config{
			Endpoint:  endpoint,
			Bucket:    c.String("minio-bucket"),
			Prefix:    c.String("minio-prefix"),
			AccessKey: c.String("minio-access-key"),
			SecretKey: c.String("minio-secret-key"),
			UseSSL:    c.Bool("minio-ssl"),
		})
	}
	if dir := c.String("root"); dir != "" {
		return billy.NewLocal(dir), nil
	}
	return billy.NewMemory(), nil
}

// execute boots a kernel, runs script and shuts the kernel down. It fails
// if any step's outcome did not match its expectation.
func execute(ctx context.Context, out io.Writer, cfg config.Config, resolver core.Resolver,
	logger *logging.Logger, script *Script, stats bool) error {
	k, err := kern.New(cfg, resolver, kern.WithLogger(logger))
	if err != nil {
		return err
	}

	r := newRunner(k, out)
	mismatches, runErr := r.run(ctx, script)
	if stats {
		if err := r.enc.Encode(map[string]interface{}{"stats": k.Stats()}); err != nil && runErr == nil {
			runErr = err
		}
	}
	if err := k.Shutdown(ctx); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}
	if mismatches > 0 {
		return cli.Exit(fmt.Sprintf("%d step(s) did not match expectations", mismatches), 1)
	}
	return nil
}

// Result is the outcome of one step.
type Result struct {
	Step   int                   `json:"step"`
	Proc   string                `json:"proc"`
	Op     string                `json:"op"`
	Result int64                 `json:"result"`
	Data   string                `json:"data,omitempty"`
	Error  *errors.ErrorResponse `json:"error,omitempty"`

	// Mismatch is set when the step did not end the way Expect says.
	Mismatch bool `json:"mismatch,omitempty"`

	Refs []kern.RefMismatch `json:"refs,omitempty"`
}

type runner struct {
	k     *kern.Kernel
	enc   *json.Encoder
	procs map[string]*kern.Process
	vars  map[string]int64
}

func newRunner(k *kern.Kernel, out io.Writer) *runner {
	return &runner{
		k:     k,
		enc:   json.NewEncoder(out),
		procs: make(map[string]*kern.Process),
		vars:  make(map[string]int64),
	}
}

// run executes every step and returns how many missed their expectation.
// Syscall failures are results, not errors; only output failures stop the
// run.
func (r *runner) run(ctx context.Context, script *Script) (int, error) {
	mismatches := 0
	for i, st := range script.Steps {
		res := r.step(ctx, st)
		res.Step = i

		res.Mismatch = !matches(st.Expect, res.Error) || len(res.Refs) > 0
		if res.Mismatch {
			mismatches++
		}
		if res.Error == nil && st.Save != "" {
			r.vars[st.Save] = res.Result
		}
		if err := r.enc.Encode(res); err != nil {
			return mismatches, err
		}
	}
	return mismatches, nil
}

// matches reports whether a step's error agrees with its expectation.
func matches(expect string, got *errors.ErrorResponse) bool {
	if expect == "" {
		return got == nil
	}
	return got != nil && (got.Code == expect || got.Errno == expect)
}

func (r *runner) process(ctx context.Context, name string) (*kern.Process, error) {
	if p, ok := r.procs[name]; ok {
		return p, nil
	}
	p, err := r.k.NewProcess(ctx, name)
	if err != nil {
		return nil, err
	}
	r.procs[name] = p
	return p, nil
}

func (r *runner) step(ctx context.Context, st Step) Result {
	res := Result{Proc: st.Proc, Op: st.Op}
	ret, data, refs, err := r.dispatch(ctx, st)
	if err != nil {
		res.Result = -1
		res.Error = errors.ToJSON(err)
		return res
	}
	res.Result = ret
	res.Data = data
	res.Refs = refs
	return res
}

func (r *runner) dispatch(ctx context.Context, st Step) (int64, string, []kern.RefMismatch, error) {
	if st.Op == "check" {
		return 0, "", r.k.CheckRefs(), nil
	}

	p, err := r.process(ctx, st.Proc)
	if err != nil {
		return -1, "", nil, err
	}

	switch st.Op {
	case "open":
		mode, err := parseMode(st.Mode)
		if err != nil {
			return -1, "", nil, errors.Wrap(err, errors.CodeInvalidArgument, "bad step")
		}
		fd, err := p.Open(ctx, st.Path, int(st.Flags), mode)
		return int64(fd), "", nil, err

	case "stdin":
		return 0, "", nil, p.BindStdin(ctx, st.Path)

	case "close":
		fd, err := r.ref(st.Fd)
		if err != nil {
			return -1, "", nil, err
		}
		return 0, "", nil, p.Close(ctx, fd)

	case "read":
		fd, err := r.ref(st.Fd)
		if err != nil {
			return -1, "", nil, err
		}
		buf := make([]byte, max(st.N, 0))
		n, err := p.Read(ctx, fd, buf)
		return int64(n), string(buf[:max(n, 0)]), nil, err

	case "write":
		fd, err := r.ref(st.Fd)
		if err != nil {
			return -1, "", nil, err
		}
		n, err := p.Write(ctx, fd, []byte(st.Data))
		return int64(n), "", nil, err

	case "lseek":
		fd, err := r.ref(st.Fd)
		if err != nil {
			return -1, "", nil, err
		}
		whence, err := parseWhence(st.Whence)
		if err != nil {
			return -1, "", nil, errors.Wrap(err, errors.CodeInvalidArgument, "bad step")
		}
		pos, err := p.Lseek(ctx, fd, st.Offset, whence)
		return pos, "", nil, err

	case "dup2":
		oldFd, err := r.ref(st.Fd)
		if err != nil {
			return -1, "", nil, err
		}
		newFd, err := r.ref(st.NewFd)
		if err != nil {
			return -1, "", nil, err
		}
		fd, err := p.Dup2(ctx, oldFd, newFd)
		return int64(fd), "", nil, err

	case "fork":
		if st.As == "" {
			return -1, "", nil, errors.New(errors.CodeInvalidArgument, "fork needs as")
		}
		if _, taken := r.procs[st.As]; taken {
			return -1, "", nil, errors.Newf(errors.CodeInvalidArgument, "process %q already exists", st.As)
		}
		child, err := p.Fork(ctx, st.As)
		if err != nil {
			return -1, "", nil, err
		}
		r.procs[st.As] = child
		return int64(child.Pid()), "", nil, nil

	case "exit":
		delete(r.procs, st.Proc)
		return 0, "", nil, p.Exit(ctx)

	default:
		return -1, "", nil, errors.Newf(errors.CodeNotImplemented, "unknown op %q", st.Op)
	}
}

func (r *runner) ref(ref Ref) (int, error) {
	fd, err := ref.Resolve(r.vars)
	if err != nil {
		return -1, errors.Wrap(err, errors.CodeInvalidArgument, "bad step")
	}
	return fd, nil
}
