package protocol

import "github.com/behrlich/mtlink/internal/interfaces"

// EventSink dispatches protocol milestone events to a single user
// callback from its own goroutine, via a bounded channel, so a slow
// callback never blocks the demux/slave/master goroutines.
type EventSink struct {
	callback func(interfaces.Event)
	queue    chan interfaces.Event
	done     chan struct{}
}

// NewEventSink creates a sink with the given queue depth. callback may
// be nil, in which case events are simply dropped.
func NewEventSink(queueSize int, callback func(interfaces.Event)) *EventSink {
	return &EventSink{
		callback: callback,
		queue:    make(chan interfaces.Event, queueSize),
		done:     make(chan struct{}),
	}
}

// Run dispatches queued events to the callback until Close is called.
func (s *EventSink) Run() {
	for {
		select {
		case ev := <-s.queue:
			if s.callback != nil {
				s.callback(ev)
			}
		case <-s.done:
			return
		}
	}
}

// Emit enqueues an event for dispatch, dropping it if the queue is
// full rather than blocking the caller.
func (s *EventSink) Emit(id interfaces.EventID, blockName string, chunk interfaces.ChunkInfo) {
	select {
	case s.queue <- interfaces.Event{ID: id, BlockName: blockName, Chunk: chunk}:
	default:
	}
}

// Close stops the dispatch loop.
func (s *EventSink) Close() {
	close(s.done)
}
