package compiler

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/sasswatch/internal/config"
	"github.com/dkoosis/sasswatch/internal/console"
	"github.com/dkoosis/sasswatch/internal/proc"
	"github.com/dkoosis/sasswatch/internal/task"
)

// fakeSass writes an executable shell script standing in for the compiler.
func fakeSass(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "sass")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s was not created", path)
}

func TestInvocation_Flags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		inv  Invocation
		want []string
	}{
		{"compressed watch without maps", Invocation{Watch: true}, []string{"--no-source-map", "--style=compressed", "--watch"}},
		{"pretty with maps", Invocation{Pretty: true, KeepMaps: true}, []string{"--style=expanded"}},
		{"batch", Invocation{NoStopOnError: true}, []string{"--no-source-map", "--style=compressed", "--no-stop-on-error"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.inv.Flags(), tt.name)
	}
}

func TestNewInvocation_FollowsOptions(t *testing.T) {
	t.Parallel()

	opts := config.Options{Compiler: "sass", PrettyPrint: true}
	pairs := []string{"/a/sass:/a/css"}

	watch := NewInvocation(opts, true, pairs)
	batch := NewInvocation(opts.WithKeepMaps(true), false, pairs)

	assert.Equal(t, []string{"--no-source-map", "--style=expanded", "--watch", "/a/sass:/a/css"}, watch.Args())
	assert.Equal(t, []string{"--style=expanded", "--no-stop-on-error", "/a/sass:/a/css"}, batch.Args())
}

func TestInvocation_CommandLine_QuotesEveryPair(t *testing.T) {
	t.Parallel()

	inv := Invocation{Binary: "sass", Watch: true, Pairs: []string{"/a/sass:/a/css", "/b c/sass:/b c/css"}}

	assert.Equal(t,
		`sass --no-source-map --style=compressed --watch "/a/sass:/a/css" "/b c/sass:/b c/css"`,
		inv.CommandLine())
}

func TestWatchTask_ReturnsZero_When_StoppedWhileCompilerRuns(t *testing.T) {
	t.Parallel()

	started := filepath.Join(t.TempDir(), "args")
	bin := fakeSass(t, `echo "$@" > "`+started+`"
exec sleep 60`)
	wt := NewWatchTask(Invocation{Binary: bin, Pairs: []string{"in:out"}}, console.Discard(), nil, nil)
	w := task.NewWorker("sass", nil)

	w.Start(wt.Run)
	waitForFile(t, started)
	value, err := w.Stop(10 * time.Second)

	require.NoError(t, err)
	assert.Equal(t, 0, value)
	assert.False(t, w.IsRunning())

	args, err := os.ReadFile(started)
	require.NoError(t, err)
	assert.Equal(t, "--no-source-map --style=compressed --watch in:out", strings.TrimSpace(string(args)))
}

func TestWatchTask_ReportsUnexpectedTermination_When_CompilerExits(t *testing.T) {
	t.Parallel()

	bin := fakeSass(t, "exit 3")
	wt := NewWatchTask(Invocation{Binary: bin}, console.Discard(), nil, nil)
	w := task.NewWorker("sass", nil)

	f := w.Start(wt.Run)
	select {
	case <-f.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("watch task did not notice the exit")
	}

	value, err := f.Value()
	assert.ErrorIs(t, err, ErrUnexpectedTermination)
	assert.Equal(t, -1, value)
	w.Close()
}

func TestWatchTask_ReturnsSpawnError_When_CompilerMissing(t *testing.T) {
	t.Parallel()

	bin := filepath.Join(t.TempDir(), "no-sass")
	var errOut bytes.Buffer
	con := console.New(console.Options{Out: io.Discard, Err: &errOut, NoColor: true})
	wt := NewWatchTask(Invocation{Binary: bin}, con, nil, nil)

	value, err := wt.Run(context.Background(), task.NewChannel("sass").Worker())

	assert.ErrorIs(t, err, proc.ErrSpawn)
	assert.Equal(t, -1, value)
	assert.Contains(t, errOut.String(), bin+" not found on PATH; install dart-sass or set 'compiler' in .sasswatch.yaml")
}

// panicLogger panics on the first informational line.
type panicLogger struct{}

func (panicLogger) Errorf(string, ...any) {}
func (panicLogger) Warnf(string, ...any) {}
func (panicLogger) Infof(string, ...any) { panic("console gone") }

func TestWatchTask_KillsCompiler_When_TaskPanics(t *testing.T) {
	t.Parallel()

	marker := filepath.Join(t.TempDir(), "still-running")
	bin := fakeSass(t, `sleep 1
echo alive > "`+marker+`"`)
	wt := NewWatchTask(Invocation{Binary: bin}, panicLogger{}, nil, nil)

	assert.PanicsWithValue(t, "console gone", func() {
		_, _ = wt.Run(context.Background(), task.NewChannel("sass").Worker())
	})

	time.Sleep(1500 * time.Millisecond)
	assert.NoFileExists(t, marker)
}

func TestRunOnce_CapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()

	bin := fakeSass(t, `echo "compiled $@"
echo "warning: deprecated" >&2
exit 65`)
	var out bytes.Buffer

	res, err := RunOnce(context.Background(), Invocation{Binary: bin, Watch: true, Pairs: []string{"a:b"}}, console.Discard(), &out)

	require.NoError(t, err)
	assert.Equal(t, 65, res.ExitCode)
	assert.Contains(t, res.Output, "compiled --no-source-map --style=compressed --no-stop-on-error a:b")
	assert.Contains(t, res.Output, "warning: deprecated")
	assert.Equal(t, res.Output+"\n", out.String())
}

func TestRunOnce_KillsCompilerPromptly_When_Interrupted(t *testing.T) {
	t.Parallel()

	bin := fakeSass(t, "exec sleep 60")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := RunOnce(ctx, Invocation{Binary: bin}, console.Discard(), io.Discard)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, res.ExitCode)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunOnce_HintsAtInstall_When_CompilerMissing(t *testing.T) {
	t.Parallel()

	bin := filepath.Join(t.TempDir(), "no-sass")
	var errOut bytes.Buffer
	con := console.New(console.Options{Out: io.Discard, Err: &errOut, NoColor: true})

	res, err := RunOnce(context.Background(), Invocation{Binary: bin}, con, io.Discard)

	assert.ErrorIs(t, err, proc.ErrSpawn)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, errOut.String(), "not found on PATH; install dart-sass")
}
