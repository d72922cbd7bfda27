package watchloop

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/sasswatch/internal/version"
)

const (
	mapSuffix     = ".map"
	stampLayout   = "[2006-01-02 15:04:05]"
	menuCmdWidth  = 17
	configLabelW  = 34
	shortMenuText = "Type 'q' to quit, 'h' for full help menu"
)

var menu = [][2]string{
	{"about", "display package information"},
	{"version", "display package name and version"},
	{"q[uit]", "shut down watchers and exit the CLI"},
	{"h[elp]", "display this help message"},
	{"r[estart]", "rescan directories and restart watchers"},
	{"i[mmediate]", "immediately run sass and postcss on all files"},
	{"c[ompress]", "compress (minify) output files"},
	{"p[rettyprint]", "prettyprint output files for ease of inspection"},
	{"m[apfiles]", "map files for development and debugging"},
	{"n[omapfiles]", "no map files will be generated"},
	{"s[how config]", "show current configuration details"},
	{"show css", "show generated css file status"},
	{"show mapfiles", "show generated map file status"},
	{"delete css", "delete generated css files from target directories"},
	{"delete mapfiles", "delete generated map files from target directories"},
	{"delete all", "delete all generated files from target directories"},
	{"make debug", "shortcut to refresh mapfiles and regenerate uncompressed"},
	{"make release", "shortcut to delete mapfiles and regenerate compressed output"},
	{"cls", "clear the screen"},
}

func (c *Coordinator) title() []string {
	th := c.con.Theme()
	return []string{"", th.Title.Render(version.CLIName)}
}

func (c *Coordinator) printMenu(full bool) {
	if !full {
		c.con.Lines([]string{"", shortMenuText})
		return
	}
	th := c.con.Theme()
	lines := append(c.title(),
		th.Heading.Render("COMMAND OPTIONS HELP"),
		"Type command and press Enter to execute:",
		"",
	)
	for _, m := range menu {
		lines = append(lines, runewidth.FillRight(m[0], menuCmdWidth)+"- "+m[1])
	}
	c.con.Lines(append(lines, ""))
}

func configLine(label, value string) string {
	return runewidth.FillRight(label+":", configLabelW) + value
}

func (c *Coordinator) showConfiguration() {
	th := c.con.Theme()
	output := th.Good.Render("Minified")
	if c.opts.PrettyPrint {
		output = th.Bad.Render("Pretty-Print")
	}
	maps := th.Good.Render("OFF")
	if c.opts.KeepMaps {
		maps = th.Bad.Render("ON")
	}

	lines := append(c.title(),
		th.Heading.Render("CONFIGURATION"),
		"",
		configLine("Compressed (minified) Output", output),
		configLine("Generation of Map Files", maps),
		configLine("Number of Directories Watched", th.Value.Render(strconv.Itoa(c.set.Len()))),
		configLine("Expected number of Generated CSS", th.Value.Render(strconv.Itoa(len(c.set.ExpectedOutputs())))),
	)
	if c.con.DebugEnabled() {
		lines = append(lines,
			configLine("Compiler", c.opts.Compiler+" ("+c.opts.CompilerSource+")"),
			configLine("Configuration File", orNone(c.opts.ConfigFile)),
		)
	}
	lines = append(lines, th.Note.Render("--- Sass Input Directory List ---"))
	for _, dir := range c.set.Inputs() {
		lines = append(lines, "  "+dir)
	}
	lines = append(lines, th.Note.Render("--- End Of Status Report ---"))
	c.con.Lines(lines)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// showFileStatus lists every expected output (with suffix appended) and its
// modification time; empty brackets mark files that do not exist.
func (c *Coordinator) showFileStatus(heading, suffix string) {
	th := c.con.Theme()
	now := c.now()
	zone, _ := now.Zone()
	lines := append(c.title(),
		th.Heading.Render(heading),
		th.Note.Render("Empty brackets means the file was not found or is inaccessible"),
		th.Note.Render(now.Format(stampLayout)+" <= Current time for comparison (timezone is "+zone+")"),
		"",
	)

	expected := c.set.ExpectedOutputs()
	if len(expected) == 0 {
		lines = append(lines, th.Bad.Render("No CSS files are Expected Now..."))
	}
	for _, css := range expected {
		path := css + suffix
		lines = append(lines, th.Heading.Render(fileStamp(path))+" "+path)
	}
	c.con.Lines(lines)
}

func fileStamp(path string) string {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "[" + runewidth.FillRight("", len(stampLayout)-2) + "]"
	}
	return info.ModTime().Format(stampLayout)
}

func (c *Coordinator) deleteGeneratedCSS() {
	removed, total := c.removeOutputs("")
	c.con.Warnf("Removed %d of %d Generated CSS files", removed, total)
}

func (c *Coordinator) deleteGeneratedMapFiles() {
	removed, total := c.removeOutputs(mapSuffix)
	c.con.Warnf("Removed %d of %d Generated Map Files", removed, total)
}

func (c *Coordinator) removeOutputs(suffix string) (removed, total int) {
	expected := c.set.ExpectedOutputs()
	for _, css := range expected {
		err := os.Remove(css + suffix)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, os.ErrNotExist):
		default:
			c.con.Errorf("%v", err)
		}
	}
	return removed, len(expected)
}

func (c *Coordinator) showVersion() {
	c.con.Println(version.Name + " " + version.Version)
}

func (c *Coordinator) showAbout() {
	th := c.con.Theme()
	c.con.Lines(append(c.title(),
		th.Heading.Render("About"),
		"Package Name: "+version.Name,
		"Version: "+version.Version,
		fmt.Sprintf("Build: %s (%s)", version.CommitHash, version.BuildDate),
		"Description: "+version.Description,
		"Author: "+version.Author,
		"License: "+version.License,
	))
}
