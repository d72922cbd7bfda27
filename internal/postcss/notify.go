package postcss

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const settleDelay = 100 * time.Millisecond

// outputNotifier wakes the poll task shortly after the compiler writes to
// an output directory, so changes are picked up before the next tick. A
// burst of writes produces one wake-up once the directory has been quiet
// for the settle delay.
type outputNotifier struct {
	watcher *fsnotify.Watcher
	wake    chan struct{}
	done    chan struct{}

	mu    sync.Mutex
	timer *time.Timer
	once  sync.Once
}

func newOutputNotifier(dirs []string) (*outputNotifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	n := &outputNotifier{
		watcher: w,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go n.run()
	return n, nil
}

// Wake returns a channel that receives after output activity. A nil
// notifier never wakes.
func (n *outputNotifier) Wake() <-chan struct{} {
	if n == nil {
		return nil
	}
	return n.wake
}

func (n *outputNotifier) run() {
	for {
		select {
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				n.schedule()
			}
		case _, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
		case <-n.done:
			return
		}
	}
}

func (n *outputNotifier) schedule() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer == nil {
		n.timer = time.AfterFunc(settleDelay, n.fire)
		return
	}
	n.timer.Reset(settleDelay)
}

func (n *outputNotifier) fire() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Close stops watching. It is safe on a nil notifier.
func (n *outputNotifier) Close() {
	if n == nil {
		return
	}
	n.once.Do(func() {
		close(n.done)
		n.mu.Lock()
		if n.timer != nil {
			n.timer.Stop()
		}
		n.mu.Unlock()
		_ = n.watcher.Close()
	})
}
