package contracts

// AudioCallback is invoked by a Driver once per hardware audio block.
// in/out are sliced per-channel, nframes long. Implementations must
// return quickly: no allocation, no blocking syscalls (§5).
type AudioCallback func(in, out [][]float32, nframes int)

// Driver is the capability the engine facade needs from whatever owns
// the real hardware audio device callback (§9's re-architected
// "abstract engine subclass per driver"). enginecore ships a
// portaudio-backed implementation and a dummy implementation for tests;
// hardware discovery/enumeration beyond that is out of scope.
type Driver interface {
	Name() string

	Start(cb AudioCallback) error
	Stop() error

	BufferSize() int
	SampleRate() float64

	// SetBufferSize/SetSampleRate may only be called while the engine
	// has cleared its ready flag (§5); the Driver restarts its stream
	// internally if running.
	SetBufferSize(bs int) error
	SetSampleRate(sr float64) error

	MidiIns() ([]DeviceInfo, error)
	MidiOuts() ([]DeviceInfo, error)

	// ConnectIn opens a named external MIDI input; every received
	// message is forwarded to sink with the timestamp the platform MIDI
	// backend supplies (see MidiSink).
	ConnectIn(name string, sink MidiSink) (MidiInPort, error)
	// ConnectOut opens a named external MIDI output the engine can
	// later Send through at the end of each block (§4.6).
	ConnectOut(name string) (MidiOutPort, error)
}
