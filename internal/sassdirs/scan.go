package sassdirs

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Modification is the kind of change seen on an expected output file.
type Modification int

const (
	Created Modification = iota + 1
	Changed
	Deleted
)

func (m Modification) String() string {
	switch m {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FileRecord tracks one expected output file. A zero ModTime means the
// output did not exist when last checked.
type FileRecord struct {
	Base    string
	Path    string
	ModTime time.Time
}

// Exists reports whether the output existed when last checked.
func (r FileRecord) Exists() bool { return !r.ModTime.IsZero() }

// ModificationEvent describes a change to an expected output file since the
// previous scan.
type ModificationEvent struct {
	Base    string
	Path    string
	ModTime time.Time
	Kind    Modification
}

// ExpectedOutputs returns the full path of every CSS file the compiler is
// expected to produce, pair by pair, whether or not it exists yet.
func (s *Set) ExpectedOutputs() []string {
	var out []string
	for _, p := range s.pairs {
		for _, base := range expectedOutputNames(p.Input) {
			out = append(out, filepath.Join(p.Output, base))
		}
	}
	return out
}

// InitializeOutputStats records the current modification time of every
// expected output, discarding previous records.
func (s *Set) InitializeOutputStats() {
	for i := range s.pairs {
		p := &s.pairs[i]
		names := expectedOutputNames(p.Input)
		p.Files = make([]FileRecord, 0, len(names))
		for _, base := range names {
			path := filepath.Join(p.Output, base)
			p.Files = append(p.Files, FileRecord{Base: base, Path: path, ModTime: modTime(path)})
		}
	}
}

// ModifiedFiles rescans every pair and compares output modification times
// with the recorded ones, updating the records. Sources seen for the first
// time are recorded and only reported as Created when their output already
// exists.
func (s *Set) ModifiedFiles() []ModificationEvent {
	var events []ModificationEvent
	for i := range s.pairs {
		p := &s.pairs[i]
		for _, base := range expectedOutputNames(p.Input) {
			path := filepath.Join(p.Output, base)
			current := modTime(path)

			j := p.indexOf(base)
			if j < 0 {
				p.Files = append(p.Files, FileRecord{Base: base, Path: path, ModTime: current})
				if !current.IsZero() {
					events = append(events, ModificationEvent{Base: base, Path: path, ModTime: current, Kind: Created})
				}
				continue
			}

			rec := &p.Files[j]
			if rec.ModTime.Equal(current) {
				continue
			}
			ev := ModificationEvent{Base: base, Path: path, ModTime: current}
			switch {
			case !rec.Exists():
				ev.Kind = Created
			case current.IsZero():
				ev.Kind = Deleted
			default:
				ev.Kind = Changed
			}
			rec.ModTime = current
			events = append(events, ev)
		}
	}
	return events
}

// UpdateTimestamps re-reads the modification time of each existing path
// that belongs to a recorded output, so it is not reported again.
func (s *Set) UpdateTimestamps(paths []string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		path = filepath.Clean(path)
		dir := filepath.Dir(path)
	pairs:
		for i := range s.pairs {
			p := &s.pairs[i]
			if p.Output != dir {
				continue
			}
			for j := range p.Files {
				if p.Files[j].Path == path {
					p.Files[j].ModTime = modTime(path)
					break pairs
				}
			}
		}
	}
}

func (p *Pair) indexOf(base string) int {
	for i, f := range p.Files {
		if f.Base == base {
			return i
		}
	}
	return -1
}

// expectedOutputNames lists the CSS base names produced from the sass
// sources in dir, in directory order.
func expectedOutputNames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if css, ok := outputName(e); ok {
			names = append(names, css)
		}
	}
	return names
}

// outputName maps a sass source entry to its CSS name. Partials, dotfiles,
// directories and names without an extension are skipped; only the exact
// extensions "scss" and "sass" qualify.
func outputName(e os.DirEntry) (string, bool) {
	name := e.Name()
	if e.IsDir() || !strings.Contains(name, ".") || name[0] == '_' || name[0] == '.' {
		return "", false
	}
	if !e.Type().IsRegular() {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			return "", false
		}
	}
	dot := strings.LastIndexByte(name, '.')
	switch name[dot+1:] {
	case "scss", "sass":
		return name[:dot] + ".css", true
	default:
		return "", false
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return time.Time{}
	}
	return info.ModTime()
}
