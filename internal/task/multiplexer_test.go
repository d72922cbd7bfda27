package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pollWithin(t *testing.T, m *Multiplexer, d time.Duration) Event {
	t.Helper()
	type result struct {
		ev Event
		ok bool
	}
	got := make(chan result, 1)
	go func() {
		ev, ok := m.Poll()
		got <- result{ev, ok}
	}()
	select {
	case r := <-got:
		require.True(t, r.ok, "Poll reported no event")
		return r.ev
	case <-time.After(d):
		t.Fatal("Poll did not return in time")
		return Event{}
	}
}

func TestMultiplexer_Poll_ReportsRead_When_WorkerSends(t *testing.T) {
	t.Parallel()

	ch := NewChannel("input")
	m := NewMultiplexer()
	require.NoError(t, m.AddChannel(ch.Owner()))

	go func() { _ = ch.Worker().Send("restart") }()

	ev := pollWithin(t, m, 5*time.Second)
	assert.Equal(t, Read, ev.Kind)
	assert.Equal(t, ch.Name(), ev.Source)
	assert.Equal(t, "restart", ev.Value)
}

func TestMultiplexer_Poll_DetachesFiredSource(t *testing.T) {
	t.Parallel()

	ch := NewChannel("input")
	m := NewMultiplexer()
	require.NoError(t, m.AddChannel(ch.Owner()))

	go func() { _ = ch.Worker().Send("one") }()
	pollWithin(t, m, 5*time.Second)

	assert.False(t, m.Has(ch.Name()))
	assert.Equal(t, 0, m.Len())

	// Nothing is registered, so a second value is not observed.
	ev, ok := m.Poll()
	assert.False(t, ok)
	assert.Equal(t, Event{}, ev)

	// Re-adding resumes delivery.
	require.NoError(t, m.AddChannel(ch.Owner()))
	go func() { _ = ch.Worker().Send("two") }()
	ev = pollWithin(t, m, 5*time.Second)
	assert.Equal(t, "two", ev.Value)
}

func TestMultiplexer_Poll_ReportsClose_When_ChannelClosed(t *testing.T) {
	t.Parallel()

	ch := NewChannel("input")
	m := NewMultiplexer()
	require.NoError(t, m.AddChannel(ch.Owner()))
	ch.Close()

	ev := pollWithin(t, m, 5*time.Second)
	assert.Equal(t, Close, ev.Kind)
	assert.Equal(t, ch.Name(), ev.Source)
}

func TestMultiplexer_Poll_ReportsWrite_When_InputAccepted(t *testing.T) {
	t.Parallel()

	ch := NewChannel("input")
	m := NewMultiplexer()
	require.NoError(t, m.AddInput(ch.Owner(), "go"))

	ev := pollWithin(t, m, 5*time.Second)
	assert.Equal(t, Write, ev.Kind)
	assert.Equal(t, "go", ev.Value)

	got, err := ch.Worker().Recv()
	require.NoError(t, err)
	assert.Equal(t, "go", got)
}

func TestMultiplexer_Poll_MapsFutureResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value int
		err   error
		want  Kind
	}{
		{"value", 9, nil, Read},
		{"killed", -1, ErrKilled, Kill},
		{"cancelled", 0, ErrCancelled, Cancel},
		{"context cancelled", 0, context.Canceled, Cancel},
		{"failure", 1, errors.New("tool failed"), Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewFuture()
			f.Resolve(tt.value, tt.err)
			m := NewMultiplexer()
			require.NoError(t, m.AddFuture("task", f))

			ev := pollWithin(t, m, 5*time.Second)
			assert.Equal(t, tt.want, ev.Kind)
			assert.Equal(t, "task", ev.Source)
			assert.Equal(t, tt.value, ev.Value)
			assert.ErrorIs(t, ev.Err, tt.err)
		})
	}
}

func TestMultiplexer_Poll_ReportsCancel_When_ContextEnds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	m := NewMultiplexer()
	require.NoError(t, m.AddContext("signal", ctx))
	require.NoError(t, m.AddFuture("task", NewFuture()))

	cancel()

	ev := pollWithin(t, m, 5*time.Second)
	assert.Equal(t, Cancel, ev.Kind)
	assert.Equal(t, "signal", ev.Source)
	assert.ErrorIs(t, ev.Err, context.Canceled)
	assert.True(t, m.Has("task"))
}

func TestMultiplexer_Poll_ReturnsImmediately_When_NonBlockingAndIdle(t *testing.T) {
	t.Parallel()

	ch := NewChannel("watch")
	m := NewMultiplexer()
	m.SetBlocking(false)
	require.NoError(t, m.AddChannel(ch.Worker()))

	ev, ok := m.Poll()

	assert.False(t, ok)
	assert.Equal(t, Event{}, ev)
	assert.True(t, m.Has(ch.Name()), "an idle source stays registered")
}

func TestMultiplexer_Add_RejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	m := NewMultiplexer()
	require.NoError(t, m.AddFuture("task", NewFuture()))

	err := m.AddFuture("task", NewFuture())

	assert.ErrorIs(t, err, ErrDuplicateSource)
	assert.Equal(t, 1, m.Len())
}

func TestMultiplexer_Remove_ReportsUnknownSource(t *testing.T) {
	t.Parallel()

	m := NewMultiplexer()
	require.NoError(t, m.AddFuture("task", NewFuture()))

	assert.NoError(t, m.Remove("task"))
	assert.ErrorIs(t, m.Remove("task"), ErrUnknownSource)
}

func TestChannel_SendAndRecv_ReturnClosedError_AfterClose(t *testing.T) {
	t.Parallel()

	ch := NewChannel("watch")
	ch.Close()
	ch.Close()

	assert.True(t, ch.Closed())
	assert.ErrorIs(t, ch.Worker().Send("x"), ErrChannelClosed)
	_, err := ch.Owner().Recv()
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestChannel_OwnerReply_DoesNotBlock(t *testing.T) {
	t.Parallel()

	ch := NewChannel("input")

	require.NoError(t, ch.Owner().Send("go"))
	got, err := ch.Worker().Recv()

	require.NoError(t, err)
	assert.Equal(t, "go", got)
	assert.Contains(t, ch.Name(), "input-")
}
