package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = ".sasswatch.yaml"

// Constants for default values.
const (
	// DefaultMaxArgLength keeps post-processor command lines under the 8191
	// character limit of older Windows shells, with room for the tool and options.
	DefaultMaxArgLength = 8100
	DefaultPollInterval = 250 * time.Millisecond
	DefaultToolTimeout  = 10 * time.Second
	DefaultStopGrace    = 2 * time.Second
)

// DefaultPostProcessor is the post-processing command line used when none is configured.
var DefaultPostProcessor = []string{"cssfixerupper"}

// DefaultCompiler returns the sass executable name for the current platform.
func DefaultCompiler() string {
	if runtime.GOOS == "windows" {
		return "sass.bat"
	}
	return "sass"
}

// FileConfig represents the contents of .sasswatch.yaml. Unset fields keep
// their zero value and fall back to defaults during resolution.
type FileConfig struct {
	Compiler      string        `yaml:"compiler"`
	PostProcessor []string      `yaml:"post_processor"`
	MaxArgLength  int           `yaml:"max_arg_length"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	ToolTimeout   time.Duration `yaml:"tool_timeout"`
	StopGrace     time.Duration `yaml:"stop_grace"`
	NoColor       *bool         `yaml:"no_color"`
	Debug         *bool         `yaml:"debug"`
	PrettyPrint   *bool         `yaml:"pretty_print"`
	KeepMaps      *bool         `yaml:"keep_maps"`
	StackDirs     []string      `yaml:"stack_dirs"`
}

// LoadFile reads the configuration file at path, or searches for one when
// path is empty. It returns the path actually used ("" when none was found).
// A missing file is only an error when path was given explicitly.
func LoadFile(path string) (*FileConfig, string, error) {
	explicit := path != ""
	if !explicit {
		path = findConfigFile()
		if path == "" {
			return &FileConfig{}, "", nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, "", nil
		}
		return nil, path, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, path, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, path, nil
}

// findConfigFile checks the working directory first, then the user config
// directory ($XDG_CONFIG_HOME/sasswatch on Unix).
func findConfigFile() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}

	configHome, err := os.UserConfigDir()
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, "sasswatch", FileName)
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}
	return ""
}
