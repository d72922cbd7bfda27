package task

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrChannelClosed is returned by Send and Recv once the channel is closed.
var ErrChannelClosed = errors.New("channel closed")

// Channel is a named, bidirectional message channel between a task and its
// owner. Values sent by the task travel unbuffered "up" to the owner; the
// owner's replies travel "down" through a one-slot buffer so a reply never
// blocks the owner. Closing is idempotent and observed by both sides.
type Channel struct {
	name   string
	up     chan string
	down   chan string
	closed chan struct{}
	once   sync.Once

	owner  *Endpoint
	worker *Endpoint
}

// NewChannel returns an open channel named prefix plus a unique suffix.
func NewChannel(prefix string) *Channel {
	id := uuid.NewString()
	c := &Channel{
		name:   prefix + "-" + id[:8],
		up:     make(chan string),
		down:   make(chan string, 1),
		closed: make(chan struct{}),
	}
	c.owner = &Endpoint{ch: c, in: c.up, out: c.down}
	c.worker = &Endpoint{ch: c, in: c.down, out: c.up}
	return c
}

// Name returns the unique channel name.
func (c *Channel) Name() string { return c.name }

// Close closes the channel. Pending and future Send and Recv calls on both
// endpoints return ErrChannelClosed.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.closed) })
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Done is closed when the channel is closed.
func (c *Channel) Done() <-chan struct{} { return c.closed }

// Owner returns the coordinator's side of the channel.
func (c *Channel) Owner() *Endpoint { return c.owner }

// Worker returns the task's side of the channel.
func (c *Channel) Worker() *Endpoint { return c.worker }

// Endpoint is one side of a Channel.
type Endpoint struct {
	ch  *Channel
	in  chan string // values received by this side
	out chan string // values sent by this side
}

// Name returns the name of the underlying channel.
func (e *Endpoint) Name() string { return e.ch.name }

// Channel returns the underlying channel.
func (e *Endpoint) Channel() *Channel { return e.ch }

// Send delivers v to the other side. From the worker side it blocks until
// the owner receives it; from the owner side it fills the reply slot.
func (e *Endpoint) Send(v string) error {
	if e.ch.Closed() {
		return ErrChannelClosed
	}
	select {
	case e.out <- v:
		return nil
	case <-e.ch.closed:
		return ErrChannelClosed
	}
}

// Recv blocks until a value arrives from the other side or the channel is
// closed.
func (e *Endpoint) Recv() (string, error) {
	select {
	case v := <-e.in:
		return v, nil
	case <-e.ch.closed:
		return "", ErrChannelClosed
	}
}
