// Package console prints operator-facing messages in distinguished styles.
//
// Errors go to the error writer with an "ERROR: " label; warnings, information
// and debug messages go to the output writer. A Console is safe for use by the
// coordinator and every worker task at the same time.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Options configures a Console.
type Options struct {
	Out     io.Writer // defaults to os.Stdout
	Err     io.Writer // defaults to os.Stderr
	NoColor bool
	Debug   bool
}

// Console writes styled lines to an output and an error writer.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	theme  Theme
	errTh  Theme
	debug  bool
	tty    bool
}

// New returns a Console for opts. Colors are used only when the writer is a
// terminal and NoColor is not set.
func New(opts Options) *Console {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	c := &Console{
		out:    opts.Out,
		errOut: opts.Err,
		debug:  opts.Debug,
		tty:    IsTerminal(opts.Out),
	}
	c.theme = themeFor(opts.Out, opts.NoColor)
	c.errTh = themeFor(opts.Err, opts.NoColor)
	return c
}

// Discard returns a Console that drops everything. Useful in tests.
func Discard() *Console {
	return New(Options{Out: io.Discard, Err: io.Discard, NoColor: true})
}

func themeFor(w io.Writer, noColor bool) Theme {
	r := lipgloss.NewRenderer(w)
	if noColor || !IsTerminal(w) {
		return MonoTheme(r)
	}
	return DefaultTheme(r)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Out returns the writer used for regular output. Child processes that
// inherit the console's streams write here.
func (c *Console) Out() io.Writer { return c.out }

// Err returns the writer used for errors.
func (c *Console) Err() io.Writer { return c.errOut }

// Theme returns the output theme.
func (c *Console) Theme() Theme { return c.theme }

// DebugEnabled reports whether Debugf prints anything.
func (c *Console) DebugEnabled() bool { return c.debug }

// Errorf prints an error line to the error writer.
func (c *Console) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.write(c.errOut, c.errTh.ErrorLabel.Render("ERROR: ")+c.errTh.ErrorText.Render(msg)+"\n")
}

// Warnf prints a warning line.
func (c *Console) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.write(c.out, c.theme.WarningLabel.Render("WARNING: ")+c.theme.WarningText.Render(msg)+"\n")
}

// Infof prints an informational line.
func (c *Console) Infof(format string, args ...any) {
	c.write(c.out, c.theme.Info.Render(fmt.Sprintf(format, args...))+"\n")
}

// Debugf prints a debug line when debug output is enabled.
func (c *Console) Debugf(format string, args ...any) {
	if !c.debug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.write(c.out, c.theme.DebugLabel.Render("DEBUG: ")+c.theme.DebugText.Render(msg)+"\n")
}

// Print writes s unchanged to the output writer.
func (c *Console) Print(s string) {
	c.write(c.out, s)
}

// Println writes the operands followed by a newline.
func (c *Console) Println(a ...any) {
	c.write(c.out, fmt.Sprintln(a...))
}

// Lines writes each line followed by a newline in a single locked write, so
// reports are not interleaved with task output.
func (c *Console) Lines(lines []string) {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	c.write(c.out, b.String())
}

// ClearScreen homes the cursor and clears the screen on terminals.
func (c *Console) ClearScreen() {
	if !c.tty {
		return
	}
	c.write(c.out, "\033[H\033[J")
}

func (c *Console) write(w io.Writer, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(w, s)
}
