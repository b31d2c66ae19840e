package contracts

// Topology selects which processing graph the engine facade runs.
type Topology int

const (
	// TopologyRack selects the fixed six-port chain processor.
	TopologyRack Topology = iota
	// TopologyPatchbay selects the general node/port graph.
	TopologyPatchbay
)

func (t Topology) String() string {
	if t == TopologyPatchbay {
		return "patchbay"
	}
	return "rack"
}

// MIDICommand names a MIDI status byte an external-port filter can
// match against.
type MIDICommand byte

const (
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
	// ControlChange is the MIDI command for a Control Change event (0xB0).
	ControlChange MIDICommand = 0xB0
)

// MIDIEventFilter lists MIDI commands for filtering an external MIDI-in
// port. It is stored in EngineOptions by WithMIDIEventFilter; no
// component reads it, so device MIDI-in ports forward every message.
type MIDIEventFilter struct {
	Commands []MIDICommand
}

// CoreMIDIConfig holds a platform MIDI client name. It is stored in
// EngineOptions by WithCoreMIDIConfig; no component reads it, and the
// darwin CoreMIDI backend always names its client "enginecore".
type CoreMIDIConfig struct {
	ClientName string
}

// EngineOptions is the fully-applied configuration for an Engine.
type EngineOptions struct {
	ClientName string

	Topology   Topology
	SampleRate float64
	BufferSize int

	// Inputs/Outputs are the hardware audio device channel counts.
	Inputs  int
	Outputs int

	// MaxPlugins bounds Patchbay plugin nodes and sizes the patchbay
	// port-plane offset (N in §3's AIn=N/AOut=2N/MIn=3N/MOut=3N+1
	// scheme).
	MaxPlugins int

	// EventPoolSize is K, the per-block EngineEvent buffer capacity
	// (maxEngineEventInternalCount).
	EventPoolSize int
	// MidiPoolSize bounds the MIDI-in staging pool's pre-allocated
	// RtMidiEvent slots.
	MidiPoolSize int

	Logger          Logger
	LogLevel        LogLevel
	MIDIEventFilter *MIDIEventFilter
	CoreMIDIConfig  *CoreMIDIConfig

	HostCallback HostCallback
	Driver       Driver
}

// Option mutates EngineOptions during construction.
type Option func(*EngineOptions)

func WithLogger(l Logger) Option {
	return func(o *EngineOptions) { o.Logger = l }
}

func WithLogLevel(level LogLevel) Option {
	return func(o *EngineOptions) { o.LogLevel = level }
}

func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(o *EngineOptions) { o.MIDIEventFilter = &filter }
}

func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(o *EngineOptions) { o.CoreMIDIConfig = &config }
}

func WithTopology(t Topology) Option {
	return func(o *EngineOptions) { o.Topology = t }
}

func WithSampleRate(sr float64) Option {
	return func(o *EngineOptions) { o.SampleRate = sr }
}

func WithBufferSize(bs int) Option {
	return func(o *EngineOptions) { o.BufferSize = bs }
}

func WithChannels(inputs, outputs int) Option {
	return func(o *EngineOptions) { o.Inputs, o.Outputs = inputs, outputs }
}

func WithMaxPlugins(n int) Option {
	return func(o *EngineOptions) { o.MaxPlugins = n }
}

func WithEventPoolSize(k int) Option {
	return func(o *EngineOptions) { o.EventPoolSize = k }
}

func WithMidiPoolSize(n int) Option {
	return func(o *EngineOptions) { o.MidiPoolSize = n }
}

func WithHostCallback(cb HostCallback) Option {
	return func(o *EngineOptions) { o.HostCallback = cb }
}

func WithDriver(d Driver) Option {
	return func(o *EngineOptions) { o.Driver = d }
}
