// Package watchloop runs the coordinator: it owns the directory set, starts
// and restarts the compiler and post-processing tasks, reads operator
// commands, and waits on every task through a single event multiplexer.
//
// Any event other than an operator command ends the loop. Shutdown always
// stops the compiler task, the post-processing task and the command task, in
// that order.
package watchloop

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dkoosis/sasswatch/internal/command"
	"github.com/dkoosis/sasswatch/internal/compiler"
	"github.com/dkoosis/sasswatch/internal/config"
	"github.com/dkoosis/sasswatch/internal/console"
	"github.com/dkoosis/sasswatch/internal/postcss"
	"github.com/dkoosis/sasswatch/internal/sassdirs"
	"github.com/dkoosis/sasswatch/internal/task"
)

// Exit codes returned by Run.
const (
	ExitOK             = 0
	ExitFailure        = -1
	ExitStartupFailure = -3
)

// Worker and source names.
const (
	sassTask        = "sass"
	postcssTask     = "postcss"
	inputTask       = "usercmd"
	interruptSource = "interrupt"
)

const (
	menuDelay    = time.Second
	restartDelay = 100 * time.Millisecond
	promptSettle = 50 * time.Millisecond
)

// Coordinator is the main watch loop. It is driven from a single goroutine.
type Coordinator struct {
	opts  config.Options
	set   *sassdirs.Set
	con   *console.Console
	stdin io.Reader

	mux    *task.Multiplexer
	sass   *task.Worker
	post   *task.Worker
	input  *task.Worker
	reader *command.InputTask

	ctx          context.Context
	rebuild      func() *sassdirs.Set
	now          func() time.Time
	menuDelay    time.Duration
	restartDelay time.Duration
}

// New returns a Coordinator over set. Commands are read from stdin. The
// coordinator keeps its own copy of set; restart rebuilds it from the
// operands and stack directories in opts.
func New(opts config.Options, set *sassdirs.Set, con *console.Console, stdin io.Reader) *Coordinator {
	c := &Coordinator{
		opts:         opts,
		set:          set.Clone(),
		con:          con,
		stdin:        stdin,
		mux:          task.NewMultiplexer(),
		sass:         task.NewWorker(sassTask, con),
		post:         task.NewWorker(postcssTask, con),
		input:        task.NewWorker(inputTask, con),
		ctx:          context.Background(),
		now:          time.Now,
		menuDelay:    menuDelay,
		restartDelay: restartDelay,
	}
	c.rebuild = func() *sassdirs.Set {
		return sassdirs.Build(c.opts.Operands, c.opts.StackDirs, c.con)
	}
	return c
}

// Options returns the current run configuration, toggles included.
func (c *Coordinator) Options() config.Options { return c.opts }

// Run starts the watchers and the command task and processes events until
// the operator quits, a task fails, or ctx ends. It always shuts every task
// down before returning.
func (c *Coordinator) Run(ctx context.Context) int {
	defer c.shutdown()

	c.ctx = ctx
	if err := c.mux.AddContext(interruptSource, ctx); err != nil {
		c.con.Errorf("%v", err)
		return ExitStartupFailure
	}
	ok, err := c.restartWatchers(false, false, false, false)
	if err != nil {
		c.con.Errorf("%v", err)
	}
	if !ok || err != nil {
		c.con.Errorf("Exiting due to failure of watcher threads.")
		return ExitStartupFailure
	}
	if err := c.startInputTask(); err != nil {
		c.con.Errorf("%v", err)
		return ExitStartupFailure
	}
	time.Sleep(c.menuDelay)
	c.printMenu(false)

	return c.loop()
}

func (c *Coordinator) loop() int {
	for {
		ev, ok := c.mux.Poll()
		if !ok {
			c.con.Warnf("No tasks are left to wait for.  Quitting.")
			return ExitFailure
		}
		c.con.Debugf("event %s from %q", ev.Kind, ev.Source)

		switch ev.Kind {
		case task.Close:
			c.con.Warnf("The Channel for '%s' was closed.  Quitting.", ev.Source)
			return ExitOK

		case task.Read:
			if !c.isInputChannel(ev.Source) {
				c.con.Errorf("Unexpected Read Event: %s wrote: %s", ev.Source, truncate(fmt.Sprint(ev.Value), 128))
				return ExitFailure
			}
			line, _ := ev.Value.(string)
			cont, err := c.HandleCommand(line)
			if err != nil {
				c.con.Errorf("%v", err)
				c.con.Warnf("Quitting due to previous unexpected error.")
			}
			owner := c.input.Channel().Owner()
			if cont && err == nil {
				if err := c.mux.AddChannel(owner); err != nil {
					c.con.Errorf("%v", err)
					return ExitFailure
				}
				_ = owner.Send(command.ReplyGo)
				continue
			}
			if c.input.IsRunning() {
				_ = owner.Send(command.ReplyStop)
			}
			if err != nil {
				return ExitFailure
			}
			return ExitOK

		case task.Write:
			c.con.Warnf("Unexpected Write event from '%s'.  Quitting.", ev.Source)
			return ExitFailure

		default:
			if ev.Source == interruptSource {
				c.con.Warnf("Interrupted.  Shutting down.")
				return ExitFailure
			}
			if ev.Err != nil {
				c.con.Errorf("%s: %v", ev.Source, ev.Err)
			}
			c.con.Warnf("Process '%s' unexpectedly ended by Error, Cancel or Kill.", ev.Source)
			return ExitFailure
		}
	}
}

func (c *Coordinator) isInputChannel(source string) bool {
	ch := c.input.Channel()
	return ch != nil && ch.Name() == source
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// restartWatchers stops the compiler and post-processing tasks, optionally
// rebuilds the directory set, deletes generated files, runs a full batch,
// and starts both tasks again. It reports false when no directories are left
// to watch.
func (c *Coordinator) restartWatchers(rescan, immediate, deleteCSS, deleteMaps bool) (bool, error) {
	c.stopTask(c.sass)
	c.stopTask(c.post)

	if rescan {
		c.set = c.rebuild()
	}
	if c.set.Len() == 0 {
		c.con.Warnf("There are no more sass directories for this process to watch.  Exiting.")
		return false, nil
	}
	if deleteCSS {
		c.deleteGeneratedCSS()
	}
	if deleteMaps {
		c.deleteGeneratedMapFiles()
	}
	if immediate {
		RunImmediate(c.ctx, c.opts, c.set, c.con)
	}

	tool := postcss.NewTool(c.opts, c.con)
	poll := postcss.NewPollTask(c.set, tool, c.opts.PollInterval, c.con)
	if err := c.startTask(c.post, poll.Run); err != nil {
		return false, err
	}
	inv := compiler.NewInvocation(c.opts, true, c.set.CompilerArgs())
	watch := compiler.NewWatchTask(inv, c.con, c.con.Out(), c.con.Err())
	if err := c.startTask(c.sass, watch.Run); err != nil {
		return false, err
	}
	time.Sleep(c.restartDelay)
	return true, nil
}

// startTask runs entry on w and registers its future and channel.
func (c *Coordinator) startTask(w *task.Worker, entry task.EntryFunc) error {
	c.stopTask(w)
	f := w.Start(entry)
	if err := c.mux.AddFuture(w.Name(), f); err != nil {
		return fmt.Errorf("starting %s: %w", w.Name(), err)
	}
	if err := c.mux.AddChannel(w.Channel().Owner()); err != nil {
		return fmt.Errorf("starting %s: %w", w.Name(), err)
	}
	return nil
}

// stopTask detaches w from the multiplexer before stopping it, so its
// channel closing and its future resolving are not reported as events.
func (c *Coordinator) stopTask(w *task.Worker) {
	c.detach(w)
	if !w.IsRunning() {
		_, _ = w.Stop(0)
		return
	}
	if _, err := w.Stop(c.opts.StopGrace); err != nil {
		c.con.Debugf("%s stopped: %v", w.Name(), err)
	}
}

func (c *Coordinator) detach(w *task.Worker) {
	_ = c.mux.Remove(w.Name())
	if ch := w.Channel(); ch != nil {
		_ = c.mux.Remove(ch.Name())
		ch.Close()
	}
}

func (c *Coordinator) startInputTask() error {
	c.reader = command.NewInputTask(c.stdin, c.con)
	return c.startTask(c.input, c.reader.Run)
}

// stopInputTask stops the command task. A read that cannot be cancelled
// only returns once a line arrives, so the operator is asked for one.
func (c *Coordinator) stopInputTask() {
	f := c.input.Future()
	c.detach(c.input)
	if f != nil && !f.Resolved() && (c.reader == nil || !c.reader.Cancel()) {
		select {
		case <-f.Done():
		case <-time.After(promptSettle):
			c.con.Print("Press the enter key to continue ")
		}
	}
	if _, err := c.input.Stop(c.opts.StopGrace); err != nil {
		c.con.Debugf("%s stopped: %v", c.input.Name(), err)
	}
}

func (c *Coordinator) shutdown() {
	c.stopTask(c.sass)
	c.stopTask(c.post)
	c.stopInputTask()
}
