package postcss

import (
	"context"
	"os"
	"time"

	"github.com/dkoosis/sasswatch/internal/sassdirs"
	"github.com/dkoosis/sasswatch/internal/task"
)

// PollTask post-processes compiler output as it appears. It works on its
// own copy of the directory set.
type PollTask struct {
	set      *sassdirs.Set
	tool     *Tool
	log      Logger
	interval time.Duration
	notify   bool
}

// NewPollTask returns a poll task over a private clone of set.
func NewPollTask(set *sassdirs.Set, tool *Tool, interval time.Duration, log Logger) *PollTask {
	return &PollTask{set: set.Clone(), tool: tool, log: log, interval: interval, notify: true}
}

// Run is the task entry. Every interval, and shortly after output activity,
// it collects created and changed outputs and post-processes them, then
// records their new timestamps so the tool's own writes are not picked up
// again. A tool failure ends the task with ErrToolFailure; the same broken
// tool would fail on every cycle.
func (p *PollTask) Run(ctx context.Context, ep *task.Endpoint) (int, error) {
	p.log.Infof("Post Sass Process Monitor is starting...")
	p.set.InitializeOutputStats()

	var notifier *outputNotifier
	if p.notify {
		n, err := newOutputNotifier(outputDirs(p.set))
		if err != nil {
			p.log.Warnf("Output directory notifications unavailable, polling only: %v", err)
		} else {
			notifier = n
			defer notifier.Close()
		}
	}

	stop := task.NewStopSignal(ep)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-notifier.Wake():
		case <-ctx.Done():
			return 0, nil
		}

		if !stop.Continue() {
			break
		}
		files := changedOutputs(p.set.ModifiedFiles())
		if !stop.Continue() {
			break
		}
		if len(files) == 0 {
			continue
		}
		if err := p.tool.ProcessFiles(ctx, files); err != nil {
			p.log.Errorf("Post Sass Process encountered an unrecoverable error and is ending")
			return -1, err
		}
		if !stop.Continue() {
			break
		}
		p.set.UpdateTimestamps(files)
	}

	p.log.Infof("Post Sass Process Monitor is ending.")
	return 0, nil
}

// changedOutputs keeps created and changed files that still exist.
// Deletions are detected by the scan but need no post-processing.
func changedOutputs(events []sassdirs.ModificationEvent) []string {
	var files []string
	for _, ev := range events {
		if ev.Kind != sassdirs.Created && ev.Kind != sassdirs.Changed {
			continue
		}
		if _, err := os.Stat(ev.Path); err == nil {
			files = append(files, ev.Path)
		}
	}
	return files
}

func outputDirs(set *sassdirs.Set) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range set.Pairs() {
		if !seen[p.Output] {
			seen[p.Output] = true
			dirs = append(dirs, p.Output)
		}
	}
	return dirs
}
