package vpp

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the completion token of one dispatch. It is returned by every Run
// and may be passed as the dependency of a later dispatch.
//
// A nil *Event is valid and is always complete.
type Event struct {
	id        uuid.UUID
	name      string
	profiling bool

	done  chan struct{}
	err   error
	start time.Time
	end   time.Time
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

func newEvent(name string, profiling bool) *Event {
	return &Event{
		id:        uuid.New(),
		name:      name,
		profiling: profiling,
		done:      make(chan struct{}),
	}
}

// ID returns the unique event identity.
func (e *Event) ID() uuid.UUID {
	if e == nil {
		return uuid.Nil
	}
	return e.id
}

// Name returns the name of the operation that produced the event.
func (e *Event) Name() string {
	if e == nil {
		return ""
	}
	return e.name
}

// Done returns a channel closed when the dispatch has finished.
func (e *Event) Done() <-chan struct{} {
	if e == nil {
		return closedChan
	}
	return e.done
}

// Wait blocks until the dispatch finishes or ctx is done. It returns the
// dispatch error, or ctx.Err() if the context ended first.
func (e *Event) Wait(ctx context.Context) error {
	if e == nil {
		return nil
	}
	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the dispatch error once the event is complete, nil before.
func (e *Event) Err() error {
	if e == nil {
		return nil
	}
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

// Complete reports whether the dispatch has finished.
func (e *Event) Complete() bool {
	select {
	case <-e.Done():
		return true
	default:
		return false
	}
}

// StartNs returns the kernel start timestamp in Unix nanoseconds, or 0 when
// profiling is disabled or the event is not complete.
func (e *Event) StartNs() int64 {
	if !e.profiled() {
		return 0
	}
	return e.start.UnixNano()
}

// EndNs returns the kernel end timestamp in Unix nanoseconds, or 0 when
// profiling is disabled or the event is not complete.
func (e *Event) EndNs() int64 {
	if !e.profiled() {
		return 0
	}
	return e.end.UnixNano()
}

// Elapsed returns the kernel execution time, excluding the wait for the
// dependency. It is 0 when profiling is disabled.
func (e *Event) Elapsed() time.Duration {
	if !e.profiled() {
		return 0
	}
	return e.end.Sub(e.start)
}

// ProfilingNs returns Elapsed in nanoseconds.
func (e *Event) ProfilingNs() int64 { return e.Elapsed().Nanoseconds() }

// Start returns the kernel start time, or the zero time when profiling is
// disabled or the event is not complete.
func (e *Event) Start() time.Time {
	if !e.profiled() {
		return time.Time{}
	}
	return e.start
}

// End returns the kernel end time, or the zero time when profiling is
// disabled or the event is not complete.
func (e *Event) End() time.Time {
	if !e.profiled() {
		return time.Time{}
	}
	return e.end
}

func (e *Event) profiled() bool {
	return e != nil && e.profiling && e.Complete()
}

func (e *Event) begin() {
	if e.profiling {
		e.start = time.Now()
	}
}

func (e *Event) finish(err error) {
	if e.profiling {
		e.end = time.Now()
	}
	e.err = err
	close(e.done)
}

// completedEvent returns an event that is already finished with err.
func completedEvent(name string, profiling bool, err error) *Event {
	e := newEvent(name, profiling)
	e.begin()
	e.finish(err)
	return e
}

// WaitAll waits for every event and returns the first error.
func WaitAll(ctx context.Context, events ...*Event) error {
	var first error
	for _, e := range events {
		if err := e.Wait(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// joinEvents returns an event that completes once all events have. Nil
// entries are ignored and a single remaining event is returned as is.
func joinEvents(name string, profiling bool, events ...*Event) *Event {
	live := make([]*Event, 0, len(events))
	for _, e := range events {
		if e != nil {
			live = append(live, e)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}

	j := newEvent(name, profiling)
	go func() {
		j.begin()
		j.finish(WaitAll(context.Background(), live...))
	}()
	return j
}
