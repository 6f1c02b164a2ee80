/*
Package config holds the boot-time parameters of a kernel.

Capacities are fixed for the lifetime of a kernel: the descriptor table
size (OpenMax), the open file table size (GlobalOpenMax) and the longest
path a process may pass to open (PathMax). The package also names the
console device bound to descriptors 1 and 2, the kernel heap budget and
the log level.

# Loading

Configuration files are CUE or YAML. Both are unified with an embedded CUE
schema that carries the bounds and defaults, validated concretely and
decoded into a Config:

	fsys := osfs.New("/etc/fdtsim")
	cfg, err := config.Load(ctx, fsys, "kernel.cue")
	if err != nil {
	    return err // *errors.KernelError with code INVALID_CONFIG
	}

A CUE file sets top-level fields:

	openMax:       64
	globalOpenMax: 512
	logLevel:      "debug"

Fields that are omitted take their schema defaults; unknown fields are
rejected.

# Defaults

Default returns the same values the schema defaults to. Configs built in
code should be checked with Validate before they are handed to a kernel.
*/
package config
