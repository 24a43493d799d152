package eventlog

import (
	"context"
	"sync"

	"github.com/koster51/heat-seaking-roomba/internal/log"
	"github.com/koster51/heat-seaking-roomba/pkg/behavior"
)

// Recorder adapts the Store to the machine's event sink. Record never
// blocks: events go through a buffered channel to a background writer,
// and are dropped (with a counter) when the buffer is full. The
// mission log must never slow a control tick.
type Recorder struct {
	store *Store
	ch    chan behavior.Event

	once    sync.Once
	done    chan struct{}
	dropped int64
	mu      sync.Mutex
}

const recorderDepth = 256

// NewRecorder starts the background writer over the given store.
func NewRecorder(store *Store) *Recorder {
	r := &Recorder{
		store: store,
		ch:    make(chan behavior.Event, recorderDepth),
		done:  make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record queues one machine event without blocking.
func (r *Recorder) Record(e behavior.Event) {
	select {
	case r.ch <- e:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped returns how many events were discarded due to backpressure.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close flushes pending events and stops the writer.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.ch)
		<-r.done
	})
}

func (r *Recorder) drain() {
	defer close(r.done)
	for e := range r.ch {
		ev := Event{
			Type:    e.Type,
			Message: e.Message,
		}
		if e.Meta != nil {
			ev.Meta = e.Meta
		}
		if err := r.store.Append(context.Background(), ev); err != nil {
			log.Warn("mission event write failed", "type", e.Type, "error", err)
		}
	}
}
