package postcss

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/sasswatch/internal/console"
	"github.com/dkoosis/sasswatch/internal/sassdirs"
	"github.com/dkoosis/sasswatch/internal/task"
)

// fakeTool writes a shell script that appends its arguments, one
// invocation per line, to a log file and then runs body.
func fakeTool(t *testing.T, body string) (command []string, logPath string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake post-processor scripts need a POSIX shell")
	}
	dir := t.TempDir()
	logPath = filepath.Join(dir, "calls.log")
	script := filepath.Join(dir, "fixup")
	content := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %q\n%s\n", logPath, body)
	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))
	return []string{script}, logPath
}

func calls(t *testing.T, logPath string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func newTool(command []string, log Logger) *Tool {
	return &Tool{Command: command, Timeout: 10 * time.Second, MaxArgLength: 8100, log: log}
}

func TestBatches_SplitsUnderLimit_And_CoversEveryFileOnce(t *testing.T) {
	t.Parallel()

	var files []string
	for i := 0; i < 40; i++ {
		files = append(files, fmt.Sprintf("/srv/stack/site%02d/public/style/main.css", i))
	}
	const limit = 200

	batches := Batches(files, limit)

	require.Greater(t, len(batches), 1)
	var flat []string
	for _, b := range batches {
		size := 0
		for _, f := range b {
			size += len(f) + 3
		}
		assert.Less(t, size, limit)
		flat = append(flat, b...)
	}
	if diff := cmp.Diff(files, flat); diff != "" {
		t.Errorf("batched files mismatch (-want +got):\n%s", diff)
	}
}

func TestBatches_EdgeCases(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Batches(nil, 100))
	assert.Equal(t, [][]string{{"a.css"}}, Batches([]string{"a.css"}, 100))

	long := strings.Repeat("x", 50)
	assert.Equal(t, [][]string{{long}, {"b.css"}}, Batches([]string{long, "b.css"}, 10),
		"an oversized file still gets its own call")
}

func TestTool_Flags(t *testing.T) {
	t.Parallel()

	assert.Empty(t, (&Tool{}).Flags())
	assert.Equal(t, []string{"-p", "-m"}, (&Tool{Pretty: true, KeepMaps: true}).Flags())
	assert.Equal(t, []string{"-m"}, (&Tool{KeepMaps: true}).Flags())
}

func TestTool_ProcessFiles_SplitsLongFileLists(t *testing.T) {
	t.Parallel()

	command, logPath := fakeTool(t, "exit 0")
	tool := newTool(command, console.Discard())
	tool.Pretty = true
	tool.MaxArgLength = 40
	files := []string{"/out/alpha.css", "/out/beta.css", "/out/gamma.css"}

	require.NoError(t, tool.ProcessFiles(context.Background(), files))

	assert.Equal(t, []string{
		"-p /out/alpha.css /out/beta.css",
		"-p /out/gamma.css",
	}, calls(t, logPath))
}

func TestTool_Invoke_EchoesOutputAndErrorOutput(t *testing.T) {
	t.Parallel()

	command, _ := fakeTool(t, `echo "prefixed 1 file"
echo "browserslist is old" >&2`)
	var out, errOut bytes.Buffer
	con := console.New(console.Options{Out: &out, Err: &errOut, NoColor: true})

	require.NoError(t, newTool(command, con).Invoke([]string{"/out/site.css"}))

	assert.Contains(t, out.String(), "prefixed 1 file")
	assert.Contains(t, errOut.String(), "ERROR OUTPUT:")
	assert.Contains(t, errOut.String(), "browserslist is old")
}

func TestTool_Invoke_ReturnsToolFailure_When_ExitNonzero(t *testing.T) {
	t.Parallel()

	command, _ := fakeTool(t, "exit 2")

	err := newTool(command, console.Discard()).Invoke([]string{"/out/site.css"})

	assert.ErrorIs(t, err, ErrToolFailure)
	assert.Contains(t, err.Error(), "code 2")
}

func TestTool_Invoke_ReturnsToolFailure_When_ToolMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing")
	var errOut bytes.Buffer
	con := console.New(console.Options{Out: &bytes.Buffer{}, Err: &errOut, NoColor: true})

	err := newTool([]string{missing}, con).Invoke([]string{"a.css"})

	assert.ErrorIs(t, err, ErrToolFailure)
	assert.Contains(t, errOut.String(), missing+" not found on PATH; install it or set 'post_processor' in .sasswatch.yaml")
}

func TestTool_ProcessAll_SkipsMissingOutputsWithWarning(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	in := filepath.Join(root, "sass")
	out := filepath.Join(root, "css")
	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.MkdirAll(out, 0o755))
	for _, name := range []string{"a.scss", "b.scss"} {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(out, "a.css"), nil, 0o644))

	set := sassdirs.New(console.Discard())
	require.NoError(t, set.AddSourceAndTargetDirs(in, out))

	command, logPath := fakeTool(t, "exit 0")
	var stdout bytes.Buffer
	con := console.New(console.Options{Out: &stdout, Err: &stdout, NoColor: true})

	require.NoError(t, newTool(command, con).ProcessAll(context.Background(), set))

	got := calls(t, logPath)
	require.Len(t, got, 1)
	assert.True(t, strings.HasSuffix(got[0], "a.css"))
	assert.Contains(t, stdout.String(), "Expected Output file does not exist")
	assert.Contains(t, stdout.String(), "b.css")
}

func TestPollTask_ProcessesNewOutput_And_StopsOnRequest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	in := filepath.Join(root, "sass")
	out := filepath.Join(root, "css")
	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "site.scss"), nil, 0o644))

	set := sassdirs.New(console.Discard())
	require.NoError(t, set.AddSourceAndTargetDirs(in, out))

	command, logPath := fakeTool(t, "exit 0")
	poll := NewPollTask(set, newTool(command, console.Discard()), 20*time.Millisecond, console.Discard())
	w := task.NewWorker("postcss", nil)
	w.Start(poll.Run)
	defer w.Close()

	// Give the task time to record the initial (missing) output.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(out, "site.css"), []byte("a{}"), 0o644))

	require.Eventually(t, func() bool { return len(calls(t, logPath)) == 1 }, 10*time.Second, 20*time.Millisecond)
	// Processed files are not picked up again.
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, calls(t, logPath), 1)

	value, err := w.Stop(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, value)
}

func TestPollTask_EndsWithToolFailure_When_ToolFails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	in := filepath.Join(root, "sass")
	out := filepath.Join(root, "css")
	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "site.scss"), nil, 0o644))

	set := sassdirs.New(console.Discard())
	require.NoError(t, set.AddSourceAndTargetDirs(in, out))

	command, _ := fakeTool(t, "exit 1")
	poll := NewPollTask(set, newTool(command, console.Discard()), 20*time.Millisecond, console.Discard())
	poll.notify = false
	w := task.NewWorker("postcss", nil)
	f := w.Start(poll.Run)
	defer w.Close()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(out, "site.css"), []byte("a{}"), 0o644))

	select {
	case <-f.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("poll task kept running after the tool failed")
	}
	value, err := f.Value()
	assert.ErrorIs(t, err, ErrToolFailure)
	assert.Equal(t, -1, value)
}

func TestNewPollTask_WorksOnACopy(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sass"), 0o755))
	set := sassdirs.New(console.Discard())
	require.NoError(t, set.AddSourceAndTargetDirs(filepath.Join(root, "sass"), root))

	poll := NewPollTask(set, &Tool{}, time.Second, console.Discard())

	assert.NotSame(t, set, poll.set)
	assert.Equal(t, set.Pairs(), poll.set.Pairs())
}
