package contracts

// MidiInPort is a live device-level MIDI input connection opened by
// name (§4.6's Rack MIDI port connection).
type MidiInPort interface {
	Name() string
	Close() error
}

// MidiOutPort is a live device-level MIDI output connection opened by
// name.
type MidiOutPort interface {
	Name() string
	Close() error
	// Send dispatches one message; offset is the event's position
	// within the current block normalised to [0.0, 1.0) (§4.6).
	Send(data []byte, offset float64) error
}

// MidiSink receives one raw MIDI message from a device-level input
// port. timestamp is the value the platform backend supplies: the
// CoreMIDI backend passes the packet's host timestamp and the winmm
// backend passes 0. No backend converts it to the engine's sample
// counter.
type MidiSink func(data []byte, timestamp uint64)

// MidiOpener lists and opens named device-level MIDI ports; one
// implementation backs each runtime.GOOS (internal/midiport).
type MidiOpener interface {
	ListIns() ([]DeviceInfo, error)
	ListOuts() ([]DeviceInfo, error)
	OpenIn(name string, sink MidiSink) (MidiInPort, error)
	OpenOut(name string) (MidiOutPort, error)
}
