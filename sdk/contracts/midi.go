package contracts

// MaxMidiDataSize bounds the raw byte payload of a single RtMidiEvent;
// sysex messages longer than this are referenced by pointer rather than
// copied inline (see RtMidiEvent.ExternalData).
const MaxMidiDataSize = 4

// RtMidiEvent is a pool-allocated MIDI message staged between the
// driver's MIDI-input thread and the audio thread (§3, §4.1). Time is
// an absolute sample counter; the audio thread normalises it to
// [0, nframes) relative to the current block's frame base.
type RtMidiEvent struct {
	Time uint64
	Size uint8
	Data [MaxMidiDataSize]byte

	// ExternalData holds the payload for sysex-length messages that
	// exceed MaxMidiDataSize; non-nil only in that case.
	ExternalData []byte
}

// Bytes returns the event's payload, preferring ExternalData when set.
func (e RtMidiEvent) Bytes() []byte {
	if e.ExternalData != nil {
		return e.ExternalData
	}
	return e.Data[:e.Size]
}

// EngineEventType distinguishes the payload carried by an EngineEvent.
type EngineEventType uint8

const (
	// EngineEventMidi carries a raw MIDI message.
	EngineEventMidi EngineEventType = iota
	// EngineEventControl carries a host-level control value (e.g. a
	// parameter change injected by the UI rather than read off the
	// wire) that convertToMidiData renders back to MIDI bytes on
	// output (§4.6).
	EngineEventControl
)

// ControlEvent is the payload of an EngineEventControl event.
type ControlEvent struct {
	Param uint16
	Value float32
}

// EngineEvent is the per-block event representation the graphs consume
// and produce; Time is sample-accurate within [0, nframes).
type EngineEvent struct {
	Type EngineEventType
	Time uint32

	Midi    RtMidiEvent
	Control ControlEvent
}
