package status

import (
	"sync"
	"time"
)

// Event is one sequenced status transition, kept for incremental reads
// by UI clients.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Elapsed   string    `json:"elapsed,omitempty"`
}

// Bus stores recent events in a bounded in-memory buffer. It implements
// Reporter so it can sit directly in the worker's fan-out.
type Bus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewBus creates a bounded event buffer.
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &Bus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event, assigning its sequence number and timestamp.
func (b *Bus) Publish(jobID, statusText, elapsed string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	b.events = append(b.events, Event{
		Seq:       b.nextSeq,
		Timestamp: time.Now().UTC(),
		JobID:     jobID,
		Status:    statusText,
		Elapsed:   elapsed,
	})
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(b.events))
	for _, ev := range b.events {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}
