// Package command defines the operator commands understood by the watch
// loop and the task that reads them from standard input.
package command

import (
	"strings"

	"golang.org/x/text/cases"
)

// Command is an operator command.
type Command int

const (
	// Unknown is any non-empty input that is not a command.
	Unknown Command = iota
	// Empty is blank input; it does nothing.
	Empty
	Quit
	Help
	Restart
	Immediate
	Compress
	PrettyPrint
	MapFiles
	NoMapFiles
	ShowConfig
	ShowCSS
	ShowMapFiles
	DeleteCSS
	DeleteMapFiles
	DeleteAll
	MakeDebug
	MakeRelease
	Version
	About
	Clear
)

var words = map[string]Command{
	"q":                  Quit,
	"quit":               Quit,
	"exit":               Quit,
	"h":                  Help,
	"help":               Help,
	"?":                  Help,
	"r":                  Restart,
	"restart":            Restart,
	"i":                  Immediate,
	"immediate":          Immediate,
	"c":                  Compress,
	"compress":           Compress,
	"p":                  PrettyPrint,
	"prettyprint":        PrettyPrint,
	"m":                  MapFiles,
	"mapfiles":           MapFiles,
	"n":                  NoMapFiles,
	"nomapfiles":         NoMapFiles,
	"s":                  ShowConfig,
	"show config":        ShowConfig,
	"show configuration": ShowConfig,
	"show css":           ShowCSS,
	"show mapfiles":      ShowMapFiles,
	"delete css":         DeleteCSS,
	"delete mapfiles":    DeleteMapFiles,
	"delete all":         DeleteAll,
	"make debug":         MakeDebug,
	"make release":       MakeRelease,
	"version":            Version,
	"about":              About,
	"cls":                Clear,
	"clear":              Clear,
}

var names = map[Command]string{
	Unknown:        "unknown",
	Empty:          "empty",
	Quit:           "quit",
	Help:           "help",
	Restart:        "restart",
	Immediate:      "immediate",
	Compress:       "compress",
	PrettyPrint:    "prettyprint",
	MapFiles:       "mapfiles",
	NoMapFiles:     "nomapfiles",
	ShowConfig:     "show config",
	ShowCSS:        "show css",
	ShowMapFiles:   "show mapfiles",
	DeleteCSS:      "delete css",
	DeleteMapFiles: "delete mapfiles",
	DeleteAll:      "delete all",
	MakeDebug:      "make debug",
	MakeRelease:    "make release",
	Version:        "version",
	About:          "about",
	Clear:          "clear",
}

func (c Command) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown"
}

// Parse maps an input line to a Command. Matching ignores case and
// surrounding whitespace; words may be separated by any run of spaces.
func Parse(line string) Command {
	key := Normalize(line)
	if key == "" {
		return Empty
	}
	if c, ok := words[key]; ok {
		return c
	}
	return Unknown
}

// Normalize returns the case-folded, whitespace-collapsed form of line.
func Normalize(line string) string {
	return cases.Fold().String(strings.Join(strings.Fields(line), " "))
}
