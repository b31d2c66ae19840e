package pool

import (
	"testing"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMidiStagingPushAndDrain(t *testing.T) {
	s := NewMidiStaging(4, nil)
	s.Push(contracts.RtMidiEvent{Time: 100, Size: 3, Data: [4]byte{0x90, 60, 100}})
	s.Push(contracts.RtMidiEvent{Time: 105, Size: 3, Data: [4]byte{0x80, 60, 0}})

	out := NewEventBuffer(16)
	ok := s.TryDrain(100, 64, out, 16)
	require.True(t, ok)

	events := out.Events()
	require.Len(t, events, 2)
	assert.Equal(t, uint32(0), events[0].Time)
	assert.Equal(t, uint32(5), events[1].Time)
}

func TestMidiStagingDrainTwiceLeavesNothingPending(t *testing.T) {
	s := NewMidiStaging(4, nil)
	s.Push(contracts.RtMidiEvent{Time: 10, Size: 1})

	out := NewEventBuffer(16)
	require.True(t, s.TryDrain(0, 64, out, 16))
	assert.Len(t, out.Events(), 1)

	out.Reset()
	require.True(t, s.TryDrain(64, 64, out, 16))
	assert.Empty(t, out.Events())
}

func TestMidiStagingLateEventClampedToBlockEnd(t *testing.T) {
	s := NewMidiStaging(4, nil)
	// arrives with a timestamp already past this block's window
	s.Push(contracts.RtMidiEvent{Time: 1000, Size: 1})

	out := NewEventBuffer(16)
	require.True(t, s.TryDrain(0, 64, out, 16))
	require.Len(t, out.Events(), 1)
	assert.Equal(t, uint32(63), out.Events()[0].Time)
}

func TestMidiStagingEarlyEventClampedToZero(t *testing.T) {
	s := NewMidiStaging(4, nil)
	s.Push(contracts.RtMidiEvent{Time: 5, Size: 1})

	out := NewEventBuffer(16)
	require.True(t, s.TryDrain(100, 64, out, 16))
	require.Len(t, out.Events(), 1)
	assert.Equal(t, uint32(0), out.Events()[0].Time)
}

func TestMidiStagingPoolExhaustionDropsOldest(t *testing.T) {
	s := NewMidiStaging(2, nil)
	s.Push(contracts.RtMidiEvent{Time: 1, Size: 1, Data: [4]byte{1}})
	s.Push(contracts.RtMidiEvent{Time: 2, Size: 1, Data: [4]byte{2}})
	// pool has only 2 slots; this third push must drop the oldest (time=1)
	s.Push(contracts.RtMidiEvent{Time: 3, Size: 1, Data: [4]byte{3}})

	out := NewEventBuffer(16)
	require.True(t, s.TryDrain(0, 64, out, 16))
	events := out.Events()
	require.Len(t, events, 2)
	assert.Equal(t, byte(2), events[0].Midi.Data[0])
	assert.Equal(t, byte(3), events[1].Midi.Data[0])
}

func TestMidiStagingRespectsPerBlockCapacity(t *testing.T) {
	s := NewMidiStaging(8, nil)
	for i := uint64(0); i < 8; i++ {
		s.Push(contracts.RtMidiEvent{Time: i, Size: 1})
	}

	out := NewEventBuffer(16)
	require.True(t, s.TryDrain(0, 64, out, 3))
	assert.Len(t, out.Events(), 3)
}

// TestMidiStagingSpliceOrderProperty checks that whatever subset of
// events is pushed before a drain, they come out time-ordered relative
// to push order and never lost (beyond the declared per-block cap).
func TestMidiStagingSpliceOrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 32).Draw(rt, "n")
		s := NewMidiStaging(n, nil)

		times := make([]uint64, n)
		for i := 0; i < n; i++ {
			times[i] = uint64(i) * 2
			s.Push(contracts.RtMidiEvent{Time: times[i], Size: 1})
		}

		out := NewEventBuffer(n)
		ok := s.TryDrain(0, 1<<20, out, n)
		if !ok {
			rt.Fatal("uncontended TryDrain should always succeed")
		}

		events := out.Events()
		if len(events) != n {
			rt.Fatalf("expected %d events, got %d", n, len(events))
		}
		for i, ev := range events {
			if ev.Time != uint32(times[i]) {
				rt.Fatalf("event %d: got time %d, want %d", i, ev.Time, times[i])
			}
		}
	})
}
