// Package sassdirs manages the set of sass input/output directory pairs and
// the per-file timestamp bookkeeping used to detect changed CSS output.
package sassdirs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/text/cases"
)

var (
	// ErrDirectoryMissing is returned when an input or output directory does not exist.
	ErrDirectoryMissing = errors.New("directory does not exist")
	// ErrInvalidPair is returned for a pair spec that is not "input:output".
	ErrInvalidPair = errors.New("invalid sass input/output directory pair")
)

// Reporter receives progress and problems found while building a Set.
type Reporter interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
}

// Pair maps a sass input directory to the directory its CSS is written to.
// Files is filled by InitializeOutputStats and ModifiedFiles.
type Pair struct {
	Input  string
	Output string
	Files  []FileRecord
}

// Set is an ordered collection of directory pairs with unique inputs.
// A Set is not safe for concurrent use; tasks work on their own Clone.
type Set struct {
	pairs    []Pair
	log      Reporter
	foldCase bool
	windows  bool
}

// New returns an empty Set that reports through log.
func New(log Reporter) *Set {
	return &Set{
		log:      log,
		foldCase: runtime.GOOS == "windows" || runtime.GOOS == "darwin",
		windows:  runtime.GOOS == "windows",
	}
}

// Build creates a Set from "input:output" operands and stack root
// directories. Problems are reported per pair; the caller decides what an
// empty result means.
func Build(operands, stacks []string, log Reporter) *Set {
	s := New(log)

	if len(operands) > 0 {
		log.Infof("Adding %d standalone (non-stack) directories", len(operands))
		if err := s.AddDirectories(operands); err != nil {
			log.Warnf("Some of the specified standalone (non-stack) directories could not be added.")
		}
	} else {
		log.Infof("No Standalone (non-stack) Directories Specified")
	}

	if len(stacks) > 0 {
		log.Infof("Adding %d Stack Directories", len(stacks))
		if s.AddStackDirs(stacks) == 0 {
			log.Warnf("Stack directories were specified, but no valid sass sub folders were found")
		}
	} else {
		log.Infof("No Stack Directories Specified")
	}
	return s
}

// AddDirectories adds every pair spec, reporting each failure. The returned
// error joins all failures.
func (s *Set) AddDirectories(specs []string) error {
	var errs []error
	for _, spec := range specs {
		if err := s.AddPairSpec(spec); err != nil {
			s.log.Errorf("%v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AddPairSpec parses "input:output" and adds the pair. On Windows, drive
// letters split off by the colon are re-joined to their paths.
func (s *Set) AddPairSpec(spec string) error {
	parts := splitPairSpec(spec, s.windows)
	if len(parts) != 2 {
		return fmt.Errorf("%w: %q", ErrInvalidPair, spec)
	}
	return s.AddSourceAndTargetDirs(parts[0], parts[1])
}

func splitPairSpec(spec string, windows bool) []string {
	parts := strings.Split(spec, ":")
	if len(parts) <= 2 || !windows {
		return parts
	}

	fixed := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		if isDriveLetter(strings.TrimSpace(parts[i])) {
			joined := strings.TrimSpace(parts[i]) + ":"
			i++
			if i < len(parts) {
				joined += parts[i]
			}
			fixed = append(fixed, joined)
			continue
		}
		fixed = append(fixed, parts[i])
	}
	return fixed
}

func isDriveLetter(s string) bool {
	return len(s) == 1 && (s[0] >= 'a' && s[0] <= 'z' || s[0] >= 'A' && s[0] <= 'Z')
}

// AddSourceAndTargetDirs adds a pair after resolving both directories. A
// missing directory is an error and leaves the set unchanged. A duplicate
// input is ignored with a warning and is not an error.
func (s *Set) AddSourceAndTargetDirs(input, output string) error {
	realIn, err := resolveDir(input)
	if err != nil {
		return fmt.Errorf("the specified sass input directory %q: %w", input, err)
	}
	realOut, err := resolveDir(output)
	if err != nil {
		return fmt.Errorf("the specified output directory %q: %w", output, err)
	}

	if s.HasInput(realIn) {
		s.log.Warnf("Ignoring duplicate sass input directory %q", input)
		return nil
	}
	if realIn == realOut {
		s.log.Warnf("The specified sass input and output directories are the same: %q", realOut)
	}
	s.pairs = append(s.pairs, Pair{Input: realIn, Output: realOut})
	return nil
}

func resolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", ErrDirectoryMissing
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", ErrDirectoryMissing
	}
	return resolved, nil
}

// HasInput reports whether dir is already an input directory. The
// comparison ignores case on case-insensitive filesystems.
func (s *Set) HasInput(dir string) bool {
	fold := cases.Fold()
	for _, p := range s.pairs {
		if s.foldCase {
			if fold.String(p.Input) == fold.String(dir) {
				return true
			}
		} else if p.Input == dir {
			return true
		}
	}
	return false
}

// AddStackDirs scans each stack root for <root>/*/sass directories with a
// matching <root>/*/public/style output, descending one level into
// <root>/*/hosts/*. It returns the number of pairs added.
func (s *Set) AddStackDirs(roots []string) int {
	total := 0
	for _, root := range roots {
		realRoot, err := resolveDir(root)
		if err != nil {
			s.log.Warnf("Stack directory %q does not exist", root)
			continue
		}
		s.log.Infof("Scanning %s for standard sass folders...", realRoot)
		added := s.addStackPairs(realRoot, true)
		if added <= 0 {
			s.log.Warnf("No valid sass input/output directories exist in the stack specified by %q", realRoot)
			continue
		}
		total += added
	}
	return total
}

func (s *Set) addStackPairs(dir string, descend bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Errorf("reading %s: %v", dir, err)
		return 0
	}

	count := 0
	for _, e := range entries {
		sub := filepath.Join(dir, e.Name())
		if !isDir(sub) {
			continue
		}
		sassDir := filepath.Join(sub, "sass")
		outDir := filepath.Join(sub, "public", "style")
		if isDir(sassDir) {
			if isDir(outDir) {
				before := len(s.pairs)
				if err := s.AddSourceAndTargetDirs(sassDir, outDir); err != nil {
					s.log.Errorf("%v", err)
				} else if len(s.pairs) > before {
					count++
				}
			} else {
				s.log.Warnf("A Sass Input directory exists, but the standard output directory does not exist: %s", outDir)
			}
		}
		if hosts := filepath.Join(sub, "hosts"); descend && isDir(hosts) {
			count += s.addStackPairs(hosts, false)
		}
	}
	return count
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Len returns the number of pairs.
func (s *Set) Len() int { return len(s.pairs) }

// Pairs returns a copy of the pairs without their file records.
func (s *Set) Pairs() []Pair {
	out := make([]Pair, len(s.pairs))
	for i, p := range s.pairs {
		out[i] = Pair{Input: p.Input, Output: p.Output}
	}
	return out
}

// Inputs returns the input directories in pair order.
func (s *Set) Inputs() []string {
	out := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		out[i] = p.Input
	}
	return out
}

// CompilerArgs returns one "input:output" argument per pair.
func (s *Set) CompilerArgs() []string {
	out := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		out[i] = p.Input + ":" + p.Output
	}
	return out
}

// QuotedList renders the pairs the way they appear on a shell command line.
func (s *Set) QuotedList() string {
	var b strings.Builder
	for _, p := range s.pairs {
		b.WriteString(` "` + p.Input + ":" + p.Output + `"`)
	}
	return b.String()
}

// Clone returns an independent deep copy, file records included. The copy
// reports through the same Reporter.
func (s *Set) Clone() *Set {
	c := &Set{log: s.log, foldCase: s.foldCase, windows: s.windows}
	c.pairs = make([]Pair, len(s.pairs))
	for i, p := range s.pairs {
		c.pairs[i] = Pair{Input: p.Input, Output: p.Output}
		if p.Files != nil {
			c.pairs[i].Files = append([]FileRecord(nil), p.Files...)
		}
	}
	return c
}
