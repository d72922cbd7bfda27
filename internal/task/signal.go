package task

// StopSignal lets a running task check its own channel for a stop request
// without blocking.
type StopSignal struct {
	mux *Multiplexer
	ep  *Endpoint
}

// NewStopSignal watches the task side of a channel.
func NewStopSignal(ep *Endpoint) *StopSignal {
	mux := NewMultiplexer()
	mux.SetBlocking(false)
	_ = mux.AddChannel(ep)
	return &StopSignal{mux: mux, ep: ep}
}

// Continue reports whether the task should keep running. Read and Write
// traffic on the channel is benign: the channel is re-armed and the task
// continues. Any other event, a closed channel included, means stop.
func (s *StopSignal) Continue() bool {
	ev, ok := s.mux.Poll()
	if !ok {
		return s.mux.Has(s.ep.Name())
	}
	switch ev.Kind {
	case Read, Write:
		_ = s.mux.AddChannel(s.ep)
		return true
	default:
		return false
	}
}
