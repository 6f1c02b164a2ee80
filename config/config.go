package config

import (
	"regexp"

	"github.com/jmgilman/go/filetable/errors"
	"github.com/jmgilman/go/filetable/internal/logging"
)

// Default values, matching the schema defaults.
const (
	DefaultOpenMax       = 128
	DefaultGlobalOpenMax = 256
	DefaultPathMax       = 1024
	DefaultConsolePath   = "con:"
)

// Config holds the kernel's boot-time parameters.
type Config struct {
	// OpenMax is the capacity of every process's descriptor table.
	OpenMax int `json:"openMax" yaml:"openMax"`

	// GlobalOpenMax is the capacity of the open file table.
	GlobalOpenMax int `json:"globalOpenMax" yaml:"globalOpenMax"`

	// PathMax bounds path strings copied in from user memory, including
	// the terminating NUL.
	PathMax int `json:"pathMax" yaml:"pathMax"`

	// ConsolePath is opened write-only for descriptors 1 and 2.
	ConsolePath string `json:"consolePath" yaml:"consolePath"`

	// KernelHeapBytes caps kernel allocations for open files and bounce
	// buffers. Zero means unlimited.
	KernelHeapBytes int64 `json:"kernelHeapBytes" yaml:"kernelHeapBytes"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"logLevel" yaml:"logLevel"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		OpenMax:       DefaultOpenMax,
		GlobalOpenMax: DefaultGlobalOpenMax,
		PathMax:       DefaultPathMax,
		ConsolePath:   DefaultConsolePath,
		LogLevel:      "info",
	}
}

var devicePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+:$`)

// Validate checks the same bounds the schema enforces.
// Returns CodeInvalidConfig naming the first offending field.
func (c Config) Validate() error {
	switch {
	case c.OpenMax < 3 || c.OpenMax > 65536:
		return invalidField("openMax", c.OpenMax, "must be between 3 and 65536")
	case c.GlobalOpenMax < 2 || c.GlobalOpenMax > 1048576:
		return invalidField("globalOpenMax", c.GlobalOpenMax, "must be between 2 and 1048576")
	case c.PathMax < 2 || c.PathMax > 65536:
		return invalidField("pathMax", c.PathMax, "must be between 2 and 65536")
	case !devicePattern.MatchString(c.ConsolePath):
		return invalidField("consolePath", c.ConsolePath, "must be a device name ending in ':'")
	case c.KernelHeapBytes < 0:
		return invalidField("kernelHeapBytes", c.KernelHeapBytes, "must not be negative")
	}
	if _, err := logging.ParseLogLevel(c.LogLevel); err != nil {
		return invalidField("logLevel", c.LogLevel, "must be debug, info, warn or error")
	}
	return nil
}

// Level returns the parsed log level. Invalid levels fall back to info.
func (c Config) Level() logging.LogLevel {
	level, _ := logging.ParseLogLevel(c.LogLevel)
	return level
}

func invalidField(field string, value interface{}, reason string) error {
	return errors.WithContextMap(errors.New(errors.CodeInvalidConfig, field+" "+reason), map[string]interface{}{
		"field": field,
		"value": value,
	})
}
