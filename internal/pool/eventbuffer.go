// Package pool implements the event pools and lock-free-discipline MIDI
// queue of C1 (§4.1): pre-allocated per-block EngineEvent buffers and
// the pending/data MIDI-in staging structure shared between the driver
// MIDI-input thread (producer) and the audio thread (consumer).
package pool

import "github.com/rtpatchbay/enginecore/sdk/contracts"

// EventBuffer is a fixed-capacity, pre-allocated slice of EngineEvents
// (the eventsIn/eventsOut arrays of §4.1). It never grows after
// construction, so Append and Reset are allocation-free and safe to
// call from the audio thread.
type EventBuffer struct {
	events []contracts.EngineEvent
	count  int
}

// NewEventBuffer allocates a buffer holding up to capacity events
// (capacity is K, maxEngineEventInternalCount).
func NewEventBuffer(capacity int) *EventBuffer {
	return &EventBuffer{events: make([]contracts.EngineEvent, capacity)}
}

// Events returns the events appended since the last Reset, in order.
func (b *EventBuffer) Events() []contracts.EngineEvent {
	return b.events[:b.count]
}

// Append adds e if capacity remains, reporting false (never panicking)
// when the buffer is full so callers can log-and-drop per §7.
func (b *EventBuffer) Append(e contracts.EngineEvent) bool {
	if b.count >= len(b.events) {
		return false
	}
	b.events[b.count] = e
	b.count++
	return true
}

// Reset clears the buffer for the next block without releasing the
// backing array.
func (b *EventBuffer) Reset() {
	b.count = 0
}

// Cap returns K, the buffer's fixed capacity.
func (b *EventBuffer) Cap() int {
	return len(b.events)
}

var _ contracts.EventBuffer = (*EventBuffer)(nil)
