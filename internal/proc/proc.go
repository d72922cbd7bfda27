// Package proc spawns external tools and guarantees their termination.
//
// A Handle owns one child process. Close always releases the child: it first
// closes the child's stdin so cooperative tools can exit on EOF, waits a
// bounded time, then kills the whole process tree.
package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrSpawn is returned when an external tool could not be launched.
var ErrSpawn = errors.New("failed to spawn process")

const (
	pollInterval   = 25 * time.Millisecond
	maxWaitTimeout = 20 * time.Second
	killReapWait   = 2 * time.Second
)

// Options configures the standard streams and environment of a child.
// Nil writers discard the corresponding stream. Passing *os.File values
// (such as os.Stdout) lets the child inherit them directly.
type Options struct {
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Handle is a running (or finished) child process.
type Handle struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	done    chan struct{}
	waitErr error

	stdinOnce   sync.Once
	releaseOnce sync.Once
	exitCode    int
}

// Spawn starts name with args. The child gets its own process group so that
// Kill reaches every process it starts.
func Spawn(name string, args []string, opts Options) (*Handle, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, name, err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, commandLine(name, args), err)
	}

	h := &Handle{
		cmd:      cmd,
		stdin:    stdin,
		done:     make(chan struct{}),
		exitCode: -1,
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

// Pid returns the child's process id.
func (h *Handle) Pid() int {
	if h == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Done is closed once the child has exited and been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// IsRunning reports whether the child has not exited yet.
func (h *Handle) IsRunning() bool {
	if h == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit code of a finished child, or -1 while it is
// running or when the code is unknown.
func (h *Handle) ExitCode() int {
	if h == nil || h.IsRunning() {
		return -1
	}
	return exitCodeOf(h.waitErr)
}

// Close terminates the child and releases its resources. It closes stdin,
// then, when graceful, polls every 25ms for up to timeout (clamped to
// [0, 20s]) for the child to exit. A child still running afterwards is killed
// together with its process tree. Close never fails; the returned value is
// the exit code, or -1 when the child had to be killed or the code is unknown.
func (h *Handle) Close(graceful bool, timeout time.Duration) int {
	if h == nil {
		return -1
	}
	h.closeStdin()

	if graceful {
		h.waitFor(clampTimeout(timeout))
	}
	killed := false
	if h.IsRunning() {
		_ = h.Kill()
		killed = true
		h.waitFor(killReapWait)
	}
	h.release(killed)
	return h.exitCode
}

// Kill kills the child's process tree without waiting for it.
func (h *Handle) Kill() error {
	if h == nil || !h.IsRunning() {
		return nil
	}
	return killProcessTree(h.cmd)
}

func (h *Handle) closeStdin() {
	h.stdinOnce.Do(func() {
		_ = h.stdin.Close()
	})
}

func (h *Handle) waitFor(d time.Duration) {
	deadline := time.Now().Add(d)
	for h.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(pollInterval)
	}
}

func (h *Handle) release(killed bool) {
	h.releaseOnce.Do(func() {
		h.closeStdin()
		if killed || h.IsRunning() {
			// A child that had to be killed, or whose kill was not observed
			// in time, has no meaningful exit code. The reaper goroutine
			// still collects it.
			h.exitCode = -1
			return
		}
		h.exitCode = exitCodeOf(h.waitErr)
	})
}

func clampTimeout(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > maxWaitTimeout {
		return maxWaitTimeout
	}
	return d
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code, ok := getExitCodeFromError(exitErr); ok {
			return code
		}
	}
	return -1
}

// IsCommandNotFound reports whether err means the executable was not found.
func IsCommandNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "executable file not found") ||
		strings.Contains(errStr, "no such file or directory")
}

// CommandLine renders name and args the way a shell user would type them,
// quoting arguments that contain spaces.
func CommandLine(name string, args []string) string {
	return commandLine(name, args)
}

func commandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
