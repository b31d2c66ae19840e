package pool

import (
	"sync"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

const noIndex = -1

type midiSlot struct {
	ev   contracts.RtMidiEvent
	next int32
}

// MidiStaging is the two-linked-lists-over-one-pool structure of §4.1:
// "pending" is appended to by the driver's MIDI-input thread (which may
// block), "data" is what the audio thread drains under try_lock. Both
// lists thread through a single pre-allocated slot array, so splicing
// pending into data is an O(1) pointer fixup and draining never
// allocates.
type MidiStaging struct {
	mu     sync.Mutex
	logger contracts.Logger

	slots []midiSlot
	free  int32

	pendingHead, pendingTail int32
	dataHead, dataTail       int32
}

// NewMidiStaging pre-allocates capacity RtMidiEvent slots.
func NewMidiStaging(capacity int, logger contracts.Logger) *MidiStaging {
	s := &MidiStaging{
		slots:       make([]midiSlot, capacity),
		logger:      logger,
		pendingHead: noIndex, pendingTail: noIndex,
		dataHead: noIndex, dataTail: noIndex,
	}
	for i := range s.slots {
		s.slots[i].next = int32(i) + 1
	}
	if len(s.slots) > 0 {
		s.slots[len(s.slots)-1].next = noIndex
		s.free = 0
	} else {
		s.free = noIndex
	}
	return s
}

// Push enqueues ev onto the pending list. Called from the driver's
// MIDI-input thread, which blocks for the mutex (it is not the audio
// thread). When the pool is exhausted the oldest still-pending event is
// dropped to make room, per §7's pool-exhaustion policy.
func (s *MidiStaging) Push(ev contracts.RtMidiEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.free
	if slot == noIndex {
		if s.pendingHead == noIndex {
			if s.logger != nil {
				s.logger.Warn("midi staging pool exhausted, event dropped")
			}
			return
		}
		slot = s.pendingHead
		s.pendingHead = s.slots[slot].next
		if s.pendingHead == noIndex {
			s.pendingTail = noIndex
		}
		if s.logger != nil {
			s.logger.Warn("midi staging pool exhausted, dropping oldest pending event")
		}
	} else {
		s.free = s.slots[slot].next
	}

	s.slots[slot].ev = ev
	s.slots[slot].next = noIndex

	if s.pendingTail == noIndex {
		s.pendingHead = slot
	} else {
		s.slots[s.pendingTail].next = slot
	}
	s.pendingTail = slot
}

// TryDrain attempts to acquire the staging mutex without blocking. On
// contention it returns false immediately and queued events remain for
// the next block (delayed by at most one block, never lost). On
// success it splices pending into data in O(1), converts up to maxK
// entries into out (time-normalised to [0, nframes) relative to
// frameBase), and frees every visited slot back to the pool.
func (s *MidiStaging) TryDrain(frameBase uint64, nframes int, out *EventBuffer, maxK int) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()

	if s.pendingHead != noIndex {
		if s.dataHead == noIndex {
			s.dataHead = s.pendingHead
		} else {
			s.slots[s.dataTail].next = s.pendingHead
		}
		s.dataTail = s.pendingTail
		s.pendingHead, s.pendingTail = noIndex, noIndex
	}

	converted := 0
	cur := s.dataHead
	for cur != noIndex {
		next := s.slots[cur].next
		if converted < maxK {
			out.Append(contracts.EngineEvent{
				Type: contracts.EngineEventMidi,
				Time: normaliseTime(s.slots[cur].ev.Time, frameBase, nframes, s.logger),
				Midi: s.slots[cur].ev,
			})
			converted++
		} else if s.logger != nil {
			s.logger.Warn("midi event dropped: exceeds per-block capacity",
				s.logger.Field().Int("capacity", maxK))
		}

		s.slots[cur].next = s.free
		s.free = cur
		cur = next
	}
	s.dataHead, s.dataTail = noIndex, noIndex

	return true
}

func normaliseTime(t, frameBase uint64, nframes int, logger contracts.Logger) uint32 {
	switch {
	case t < frameBase:
		return 0
	case t >= frameBase+uint64(nframes):
		if logger != nil {
			logger.Warn("late midi event clamped to end of block",
				logger.Field().Uint64("time", t),
				logger.Field().Uint64("frameBase", frameBase))
		}
		return uint32(nframes - 1)
	default:
		return uint32(t - frameBase)
	}
}
