package task

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrUnknownSource is returned by Remove for names that are not registered.
	ErrUnknownSource = errors.New("unknown event source")
	// ErrDuplicateSource is returned when a name is registered twice.
	ErrDuplicateSource = errors.New("event source already registered")
)

// Kind classifies an Event.
type Kind int

const (
	// Close: a channel was closed.
	Close Kind = iota
	// Read: a value was received from a channel, or a future resolved with a value.
	Read
	// Write: a pending input was accepted by a channel.
	Write
	// Cancel: a future was cancelled or a context ended.
	Cancel
	// Error: a future resolved with an error.
	Error
	// Kill: the task behind a future was force-terminated.
	Kill
)

func (k Kind) String() string {
	switch k {
	case Close:
		return "close"
	case Read:
		return "read"
	case Write:
		return "write"
	case Cancel:
		return "cancel"
	case Error:
		return "error"
	case Kill:
		return "kill"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one occurrence reported by a Multiplexer.
type Event struct {
	Kind   Kind
	Source string
	Value  any   // string for channel reads, int for future values
	Err    error // set for Error, Cancel and Kill events from futures
}

type sourceType int

const (
	futureSource sourceType = iota
	channelSource
	inputSource
	contextSource
)

type source struct {
	name   string
	typ    sourceType
	future *Future
	ep     *Endpoint
	input  string
	ctx    context.Context
}

// Multiplexer waits on a set of named futures, channel endpoints, pending
// inputs and contexts and yields one Event at a time.
//
// A source that fires is detached. The consumer re-adds it to receive
// further events from it; forgetting to do so silently stops them.
// A Multiplexer is not safe for concurrent use; each goroutine owns its own.
type Multiplexer struct {
	order    []string
	sources  map[string]*source
	blocking bool
}

// NewMultiplexer returns an empty, blocking Multiplexer.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{sources: make(map[string]*source), blocking: true}
}

// SetBlocking selects whether Poll waits for an event.
func (m *Multiplexer) SetBlocking(blocking bool) {
	m.blocking = blocking
}

// AddFuture registers a completion handle under name.
func (m *Multiplexer) AddFuture(name string, f *Future) error {
	if f == nil {
		return fmt.Errorf("add future %q: nil future", name)
	}
	return m.add(&source{name: name, typ: futureSource, future: f})
}

// AddChannel registers an endpoint for reading under the channel's name.
func (m *Multiplexer) AddChannel(ep *Endpoint) error {
	if ep == nil {
		return errors.New("add channel: nil endpoint")
	}
	return m.add(&source{name: ep.Name(), typ: channelSource, ep: ep})
}

// AddInput registers a pending send of v on ep under the channel's name.
// A Write event is reported once the other side accepts it.
func (m *Multiplexer) AddInput(ep *Endpoint, v string) error {
	if ep == nil {
		return errors.New("add input: nil endpoint")
	}
	return m.add(&source{name: ep.Name(), typ: inputSource, ep: ep, input: v})
}

// AddContext registers ctx under name; a Cancel event is reported when it ends.
func (m *Multiplexer) AddContext(name string, ctx context.Context) error {
	return m.add(&source{name: name, typ: contextSource, ctx: ctx})
}

func (m *Multiplexer) add(s *source) error {
	if _, ok := m.sources[s.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, s.name)
	}
	m.sources[s.name] = s
	m.order = append(m.order, s.name)
	return nil
}

// Remove detaches the source registered under name.
func (m *Multiplexer) Remove(name string) error {
	if _, ok := m.sources[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	delete(m.sources, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Has reports whether a source is registered under name.
func (m *Multiplexer) Has(name string) bool {
	_, ok := m.sources[name]
	return ok
}

// Len returns the number of registered sources.
func (m *Multiplexer) Len() int {
	return len(m.sources)
}

// Poll returns the next event and detaches its source. It reports false when
// no source is registered, or when the Multiplexer is non-blocking and no
// source is ready.
func (m *Multiplexer) Poll() (Event, bool) {
	if len(m.sources) == 0 {
		return Event{}, false
	}

	cases := make([]reflect.SelectCase, 0, 2*len(m.order)+1)
	owners := make([]*source, 0, cap(cases))
	closedCase := make([]bool, 0, cap(cases))
	for _, name := range m.order {
		s := m.sources[name]
		switch s.typ {
		case futureSource:
			cases = append(cases, recvCase(s.future.Done()))
			owners, closedCase = append(owners, s), append(closedCase, false)
		case channelSource:
			cases = append(cases, recvCase(s.ep.in))
			owners, closedCase = append(owners, s), append(closedCase, false)
			cases = append(cases, recvCase(s.ep.ch.closed))
			owners, closedCase = append(owners, s), append(closedCase, true)
		case inputSource:
			cases = append(cases, reflect.SelectCase{
				Dir:  reflect.SelectSend,
				Chan: reflect.ValueOf(s.ep.out),
				Send: reflect.ValueOf(s.input),
			})
			owners, closedCase = append(owners, s), append(closedCase, false)
			cases = append(cases, recvCase(s.ep.ch.closed))
			owners, closedCase = append(owners, s), append(closedCase, true)
		case contextSource:
			cases = append(cases, recvCase(s.ctx.Done()))
			owners, closedCase = append(owners, s), append(closedCase, false)
		}
	}
	if !m.blocking {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectDefault})
	}

	chosen, recv, _ := reflect.Select(cases)
	if chosen >= len(owners) {
		return Event{}, false
	}

	s := owners[chosen]
	_ = m.Remove(s.name)
	return eventFor(s, closedCase[chosen], recv), true
}

func recvCase(ch any) reflect.SelectCase {
	return reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch)}
}

func eventFor(s *source, closed bool, recv reflect.Value) Event {
	ev := Event{Source: s.name}
	switch s.typ {
	case futureSource:
		value, err := s.future.Value()
		ev.Value, ev.Err = value, err
		switch {
		case err == nil:
			ev.Kind = Read
		case errors.Is(err, ErrKilled):
			ev.Kind = Kill
		case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
			ev.Kind = Cancel
		default:
			ev.Kind = Error
		}
	case channelSource:
		if closed {
			ev.Kind = Close
		} else {
			ev.Kind = Read
			ev.Value = recv.String()
		}
	case inputSource:
		if closed {
			ev.Kind = Close
		} else {
			ev.Kind = Write
			ev.Value = s.input
		}
	case contextSource:
		ev.Kind = Cancel
		ev.Err = s.ctx.Err()
	}
	return ev
}
