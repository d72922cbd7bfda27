// Package compiler drives the external dart-sass compiler, either as a
// long-running watcher or as a one-shot batch compile.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dkoosis/sasswatch/internal/config"
	"github.com/dkoosis/sasswatch/internal/proc"
	"github.com/dkoosis/sasswatch/internal/task"
)

// ErrUnexpectedTermination is returned when the sass watcher exits without
// being asked to.
var ErrUnexpectedTermination = errors.New("sass watcher terminated unexpectedly")

const (
	watchInterval = 250 * time.Millisecond
	stopTimeout   = time.Second
	batchTimeout  = 20 * time.Second
)

// Logger is the console surface used by the compiler tasks.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
}

// Invocation describes one run of the sass executable.
type Invocation struct {
	Binary        string
	Pretty        bool // --style=expanded instead of compressed
	KeepMaps      bool // omit --no-source-map
	Watch         bool
	NoStopOnError bool
	Pairs         []string // "input:output" per directory pair
}

// NewInvocation builds the invocation for opts. Watch runs keep the
// compiler alive; batch runs compile everything once and do not stop at
// the first broken source.
func NewInvocation(opts config.Options, watch bool, pairs []string) Invocation {
	return Invocation{
		Binary:        opts.Compiler,
		Pretty:        opts.PrettyPrint,
		KeepMaps:      opts.KeepMaps,
		Watch:         watch,
		NoStopOnError: !watch,
		Pairs:         pairs,
	}
}

// Flags returns the options that precede the directory pairs.
func (inv Invocation) Flags() []string {
	var args []string
	// dart-sass writes source maps unless told otherwise
	if !inv.KeepMaps {
		args = append(args, "--no-source-map")
	}
	if inv.Pretty {
		args = append(args, "--style=expanded")
	} else {
		args = append(args, "--style=compressed")
	}
	if inv.Watch {
		args = append(args, "--watch")
	}
	if inv.NoStopOnError {
		args = append(args, "--no-stop-on-error")
	}
	return args
}

// Args returns the full argument list.
func (inv Invocation) Args() []string {
	return append(inv.Flags(), inv.Pairs...)
}

// CommandLine renders the invocation with every directory pair quoted, the
// form printed by the generate option.
func (inv Invocation) CommandLine() string {
	var b strings.Builder
	b.WriteString(proc.CommandLine(inv.Binary, inv.Flags()))
	for _, p := range inv.Pairs {
		b.WriteString(` "` + p + `"`)
	}
	return b.String()
}

// WatchTask runs sass in watch mode until its channel asks it to stop.
type WatchTask struct {
	inv      Invocation
	log      Logger
	stdout   io.Writer
	stderr   io.Writer
	interval time.Duration
}

// NewWatchTask returns a watcher whose child inherits stdout and stderr.
func NewWatchTask(inv Invocation, log Logger, stdout, stderr io.Writer) *WatchTask {
	inv.Watch = true
	inv.NoStopOnError = false
	return &WatchTask{inv: inv, log: log, stdout: stdout, stderr: stderr, interval: watchInterval}
}

// Run is the task entry. It returns 0 after a requested stop and
// ErrUnexpectedTermination when the compiler exits on its own.
func (w *WatchTask) Run(ctx context.Context, ep *task.Endpoint) (int, error) {
	h, err := proc.Spawn(w.inv.Binary, w.inv.Args(), proc.Options{Stdout: w.stdout, Stderr: w.stderr})
	if err != nil {
		w.log.Errorf("Failed to start the sass child process: %v", err)
		reportMissing(w.log, w.inv.Binary, err)
		return -1, err
	}
	defer func() {
		if r := recover(); r != nil {
			h.Close(false, 0)
			panic(r)
		}
	}()
	w.log.Infof("Sass Process started [pid=%d]", h.Pid())

	stop := task.NewStopSignal(ep)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for h.IsRunning() && stop.Continue() && ctx.Err() == nil {
		select {
		case <-ticker.C:
		case <-h.Done():
		case <-ctx.Done():
		}
	}

	if h.IsRunning() {
		w.log.Infof("Sass Watcher process is ending.")
		h.Close(true, stopTimeout)
		return 0, nil
	}
	code := h.Close(false, 0)
	w.log.Errorf("Sass Watcher is ending because the child process terminated unexpectedly (exit code %d)", code)
	return -1, ErrUnexpectedTermination
}

// reportMissing adds an install hint when err means the compiler binary
// does not exist.
func reportMissing(log Logger, bin string, err error) {
	if proc.IsCommandNotFound(err) {
		log.Errorf("%s not found on PATH; install dart-sass or set 'compiler' in %s", bin, config.FileName)
	}
}

// Result is the outcome of a batch compile.
type Result struct {
	ExitCode int
	Output   string
}

// RunOnce compiles every pair once, capturing and echoing the compiler's
// output. A spawn failure is returned as an error; a failing compile is
// reported through Result.ExitCode.
func RunOnce(ctx context.Context, inv Invocation, log Logger, out io.Writer) (Result, error) {
	inv.Watch = false
	inv.NoStopOnError = true

	var buf bytes.Buffer
	h, err := proc.Spawn(inv.Binary, inv.Args(), proc.Options{Stdout: &buf, Stderr: &buf})
	if err != nil {
		reportMissing(log, inv.Binary, err)
		return Result{ExitCode: -1}, err
	}

	graceful := true
	select {
	case <-h.Done():
	case <-ctx.Done():
		graceful = false
	}
	code := h.Close(graceful, batchTimeout)

	res := Result{ExitCode: code, Output: strings.TrimRight(buf.String(), "\r\n")}
	if res.Output != "" {
		fmt.Fprintln(out, res.Output)
	}
	log.Infof("sass exited with return code %d", code)
	return res, ctx.Err()
}
