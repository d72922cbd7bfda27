package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Sources recorded for resolved settings.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceDefault = "default"
)

// CliFlags holds the values of command-line flags.
type CliFlags struct {
	Operands   []string
	StackDirs  []string
	ConfigFile string

	Watch       bool
	Immediate   bool
	Generate    bool
	PrettyPrint bool
	KeepMaps    bool
	NoColor     bool
	Debug       bool

	// Flags to track if they were explicitly set by the user
	PrettyPrintSet bool
	KeepMapsSet    bool
	NoColorSet     bool
	DebugSet       bool
}

// Options is the resolved, immutable run configuration. It is passed by
// value; the With methods return modified copies. Slices are never mutated
// after resolution.
type Options struct {
	Operands   []string
	StackDirs  []string
	ConfigFile string

	Watch       bool
	Immediate   bool
	Generate    bool
	PrettyPrint bool
	KeepMaps    bool
	NoColor     bool
	Debug       bool

	Compiler      string
	PostProcessor []string
	MaxArgLength  int
	PollInterval  time.Duration
	ToolTimeout   time.Duration
	StopGrace     time.Duration

	// Resolution metadata (for show config and debugging)
	PrettyPrintSource string
	KeepMapsSource    string
	NoColorSource     string
	DebugSource       string
	CompilerSource    string
}

// WithPrettyPrint returns a copy with pretty-printed (uncompressed) output set.
func (o Options) WithPrettyPrint(pretty bool) Options {
	o.PrettyPrint = pretty
	return o
}

// WithKeepMaps returns a copy with source map generation set.
func (o Options) WithKeepMaps(keep bool) Options {
	o.KeepMaps = keep
	return o
}

// Resolve builds Options from all sources with the priority
// CLI flags > environment > config file > defaults.
func Resolve(flags CliFlags) (Options, error) {
	fc, path, err := LoadFile(flags.ConfigFile)
	if err != nil {
		return Options{}, err
	}
	return resolve(flags, fc, path)
}

func resolve(flags CliFlags, fc *FileConfig, path string) (Options, error) {
	o := Options{
		Operands:      flags.Operands,
		StackDirs:     flags.StackDirs,
		ConfigFile:    path,
		Watch:         flags.Watch,
		Immediate:     flags.Immediate,
		Generate:      flags.Generate,
		Compiler:      DefaultCompiler(),
		PostProcessor: DefaultPostProcessor,
		MaxArgLength:  DefaultMaxArgLength,
		PollInterval:  DefaultPollInterval,
		ToolTimeout:   DefaultToolTimeout,
		StopGrace:     DefaultStopGrace,

		CompilerSource: SourceDefault,
	}

	if len(o.StackDirs) == 0 && len(fc.StackDirs) > 0 {
		o.StackDirs = fc.StackDirs
	}
	if fc.MaxArgLength != 0 {
		o.MaxArgLength = fc.MaxArgLength
	}
	if fc.PollInterval != 0 {
		o.PollInterval = fc.PollInterval
	}
	if fc.ToolTimeout != 0 {
		o.ToolTimeout = fc.ToolTimeout
	}
	if fc.StopGrace != 0 {
		o.StopGrace = fc.StopGrace
	}

	// Tool commands: ENV > file > default
	if env := os.Getenv("SASSWATCH_COMPILER"); env != "" {
		o.Compiler, o.CompilerSource = env, SourceEnv
	} else if fc.Compiler != "" {
		o.Compiler, o.CompilerSource = fc.Compiler, SourceFile
	}
	if env := strings.Fields(os.Getenv("SASSWATCH_POST_PROCESSOR")); len(env) > 0 {
		o.PostProcessor = env
	} else if len(fc.PostProcessor) > 0 {
		o.PostProcessor = fc.PostProcessor
	}

	o.PrettyPrint, o.PrettyPrintSource = resolveBool(flags.PrettyPrintSet, flags.PrettyPrint, nil, fc.PrettyPrint)
	o.KeepMaps, o.KeepMapsSource = resolveBool(flags.KeepMapsSet, flags.KeepMaps, nil, fc.KeepMaps)
	o.NoColor, o.NoColorSource = resolveBool(flags.NoColorSet, flags.NoColor,
		getEnvBool("SASSWATCH_NO_COLOR", "NO_COLOR"), fc.NoColor)
	o.Debug, o.DebugSource = resolveBool(flags.DebugSet, flags.Debug,
		getEnvBool("SASSWATCH_DEBUG"), fc.Debug)

	if err := validate(o); err != nil {
		return Options{}, fmt.Errorf("config validation failed: %w", err)
	}
	return o, nil
}

// resolveBool applies CLI > ENV > file > default (false) to one toggle.
func resolveBool(cliSet, cli bool, env, file *bool) (bool, string) {
	switch {
	case cliSet:
		return cli, SourceCLI
	case env != nil:
		return *env, SourceEnv
	case file != nil:
		return *file, SourceFile
	default:
		return false, SourceDefault
	}
}

// getEnvBool reads a boolean from environment variables, trying multiple keys.
// Returns nil if none are set, or a pointer to the boolean value.
func getEnvBool(keys ...string) *bool {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				return &b
			}
		}
	}
	return nil
}

func validate(o Options) error {
	var errs []error
	if strings.TrimSpace(o.Compiler) == "" {
		errs = append(errs, errors.New("compiler cannot be empty"))
	}
	if len(o.PostProcessor) == 0 || strings.TrimSpace(o.PostProcessor[0]) == "" {
		errs = append(errs, errors.New("post_processor cannot be empty"))
	}
	if o.MaxArgLength <= 0 {
		errs = append(errs, fmt.Errorf("max_arg_length must be positive, got: %d", o.MaxArgLength))
	}
	if o.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got: %s", o.PollInterval))
	}
	if o.ToolTimeout < 0 {
		errs = append(errs, fmt.Errorf("tool_timeout cannot be negative, got: %s", o.ToolTimeout))
	}
	if o.StopGrace < 0 {
		errs = append(errs, fmt.Errorf("stop_grace cannot be negative, got: %s", o.StopGrace))
	}
	return errors.Join(errs...)
}
