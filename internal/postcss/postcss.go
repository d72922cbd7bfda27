// Package postcss runs the external CSS post-processor (vendor prefixing
// and minification) over compiled output, either on demand or from a
// polling task that follows the compiler's writes.
package postcss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkoosis/sasswatch/internal/config"
	"github.com/dkoosis/sasswatch/internal/proc"
	"github.com/dkoosis/sasswatch/internal/sassdirs"
)

// ErrToolFailure is returned when the post-processor could not run or
// exited with a nonzero status.
var ErrToolFailure = errors.New("post-processor failed")

// Logger is the console surface used by the post-processor.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Println(a ...any)
}

// Tool invokes the post-processor as `<command...> [-p] [-m] <file>...`.
type Tool struct {
	Command      []string
	Pretty       bool
	KeepMaps     bool
	Timeout      time.Duration
	MaxArgLength int

	log Logger
}

// NewTool returns a Tool configured from opts.
func NewTool(opts config.Options, log Logger) *Tool {
	return &Tool{
		Command:      opts.PostProcessor,
		Pretty:       opts.PrettyPrint,
		KeepMaps:     opts.KeepMaps,
		Timeout:      opts.ToolTimeout,
		MaxArgLength: opts.MaxArgLength,
		log:          log,
	}
}

// Flags returns the post-processor options for the current output format.
func (t *Tool) Flags() []string {
	var flags []string
	if t.Pretty {
		flags = append(flags, "-p")
	}
	if t.KeepMaps {
		flags = append(flags, "-m")
	}
	return flags
}

// Batches splits files into consecutive groups whose quoted length
// (len(file)+3 per file, for the separating space and the quotes) stays
// under limit. A single file longer than limit gets a group of its own.
func Batches(files []string, limit int) [][]string {
	var (
		batches [][]string
		cur     []string
		size    int
	)
	for _, f := range files {
		cost := len(f) + 3
		if len(cur) > 0 && size+cost >= limit {
			batches = append(batches, cur)
			cur, size = nil, 0
		}
		cur = append(cur, f)
		size += cost
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// ProcessFiles runs the post-processor over files, one invocation per
// batch, stopping at the first failure.
func (t *Tool) ProcessFiles(ctx context.Context, files []string) error {
	for _, batch := range Batches(files, t.MaxArgLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Invoke(batch); err != nil {
			return err
		}
	}
	return nil
}

// ProcessAll runs the post-processor over every expected output of set
// that exists, regardless of timestamps. Missing outputs are warned about
// and skipped.
func (t *Tool) ProcessAll(ctx context.Context, set *sassdirs.Set) error {
	expected := set.ExpectedOutputs()
	t.log.Infof("Processing all %d sass generated files...", len(expected))

	var existing []string
	for _, css := range expected {
		if _, err := os.Stat(css); err != nil {
			t.log.Warnf("Expected Output file does not exist: %q", css)
			continue
		}
		existing = append(existing, css)
	}
	return t.ProcessFiles(ctx, existing)
}

// Invoke runs the post-processor once over files. Its stdout is echoed;
// its stderr is echoed as error output. The tool gets Timeout to finish
// before it is killed.
func (t *Tool) Invoke(files []string) error {
	if len(t.Command) == 0 {
		return fmt.Errorf("%w: no post-processor command configured", ErrToolFailure)
	}
	t.log.Infof("List of Files to process: %s", quoteAll(files))

	args := append(append(append([]string(nil), t.Command[1:]...), t.Flags()...), files...)
	var stdout, stderr bytes.Buffer
	h, err := proc.Spawn(t.Command[0], args, proc.Options{Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.log.Errorf("%v", err)
		if proc.IsCommandNotFound(err) {
			t.log.Errorf("%s not found on PATH; install it or set 'post_processor' in %s", t.Command[0], config.FileName)
		}
		return fmt.Errorf("%w: %w", ErrToolFailure, err)
	}

	code := h.Close(true, t.Timeout)
	if !h.IsRunning() {
		if out := strings.TrimSpace(stdout.String()); out != "" {
			t.log.Println(out)
		}
		if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
			t.log.Errorf("ERROR OUTPUT:\n%s", errOut)
		}
	}
	if code != 0 {
		return fmt.Errorf("%w: %s exited with code %d", ErrToolFailure, t.Command[0], code)
	}
	return nil
}

func quoteAll(files []string) string {
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = `"` + f + `"`
	}
	return strings.Join(quoted, " ")
}
