// Package config handles configuration loading and merging for sasswatch.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--pretty-print, --keepmaps, --no-color, --debug, --sterling-stack)
//  2. Environment variables (SASSWATCH_NO_COLOR, NO_COLOR, SASSWATCH_DEBUG,
//     SASSWATCH_COMPILER, SASSWATCH_POST_PROCESSOR)
//  3. YAML config file (.sasswatch.yaml in the working directory or
//     ~/.config/sasswatch/.sasswatch.yaml)
//  4. Hardcoded defaults
//
// When a higher-priority source sets a value, it overrides any lower-priority values.
//
// # Key Configuration Options
//
//   - compiler: the sass executable (sass, or sass.bat on Windows)
//   - post_processor: command line of the CSS post-processing tool
//   - max_arg_length: upper bound on the file list passed to one post-processor call
//   - poll_interval, tool_timeout, stop_grace: durations such as "250ms" or "10s"
//   - pretty_print, keep_maps: initial output format toggles
//   - stack_dirs: stack roots scanned when none are given on the command line
//
// The resolved Options value is immutable. The watch loop derives modified
// copies when the operator toggles compression or source maps.
package config
