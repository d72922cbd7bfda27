package command

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/muesli/cancelreader"

	"github.com/dkoosis/sasswatch/internal/task"
)

// MaxLineLength is the longest command line the task accepts.
const MaxLineLength = 1 << 20

// Reply tokens sent by the coordinator after handling a line.
const (
	ReplyGo   = "go"
	ReplyStop = "stop"
)

// Logger is the console surface used by the input task.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// InputTask forwards operator input lines to the coordinator.
//
// A blocked read can be interrupted with Cancel when the input is a terminal
// or a pipe. For other readers Cancel reports false: the task only notices a
// stop once the operator presses enter, so callers must not wait on it
// indefinitely.
type InputTask struct {
	scanner *bufio.Scanner
	reader  cancelreader.CancelReader
	log     Logger
}

// NewInputTask reads lines from r.
func NewInputTask(r io.Reader, log Logger) *InputTask {
	t := &InputTask{log: log}
	if cr, err := cancelreader.NewReader(r); err == nil {
		t.reader = cr
		r = cr
	}
	t.scanner = bufio.NewScanner(r)
	t.scanner.Buffer(make([]byte, 0, 4096), MaxLineLength)
	return t
}

// Cancel interrupts a pending read. It reports whether the read was
// actually interrupted.
func (t *InputTask) Cancel() bool {
	if t.reader == nil {
		return false
	}
	return t.reader.Cancel()
}

// Run is the task entry. Each line is sent trimmed, then the task waits for
// the reply: ReplyGo reads the next line, anything else ends the task. A
// stop request seen before a line is sent ends the task without sending.
func (t *InputTask) Run(ctx context.Context, ep *task.Endpoint) (int, error) {
	t.log.Infof("User Command task is starting...")
	defer t.log.Infof("User Command task is ending.")

	if t.reader != nil {
		defer t.reader.Close()
	}

	stop := task.NewStopSignal(ep)
	for stop.Continue() {
		if !t.scanner.Scan() {
			err := t.scanner.Err()
			if errors.Is(err, cancelreader.ErrCanceled) {
				return 0, nil
			}
			if err != nil {
				t.log.Errorf("reading commands: %v", err)
			}
			t.log.Infof("Standard input closed; no more commands will be read.")
			select {
			case <-ep.Channel().Done():
			case <-ctx.Done():
			}
			return 0, nil
		}
		line := strings.TrimSpace(t.scanner.Text())
		if !stop.Continue() {
			break
		}
		if err := ep.Send(line); err != nil {
			break
		}
		reply, err := ep.Recv()
		if err != nil || reply != ReplyGo {
			break
		}
	}
	return 0, nil
}
