package contracts

// Plugin is the narrow capability the graphs require from an external
// plugin instance (§4.3). The plugin-loading infrastructure that
// produces these instances is out of scope; enginecore only consumes
// this interface.
type Plugin interface {
	ID() uint32

	AudioInCount() uint32
	AudioOutCount() uint32

	AcceptsMidi() bool
	ProducesMidi() bool

	IsEnabled() bool

	// TryLock must be wait-free when offline is false (the realtime
	// audio thread calls it); it may block when offline is true. A
	// successful TryLock must be matched by exactly one Unlock.
	TryLock(offline bool) bool
	Unlock()

	// InitBuffers is called once per block before Process.
	InitBuffers()

	// Process consumes AudioInCount() input channels from in, writes
	// AudioOutCount() output channels to out, and exchanges MIDI via
	// eventsIn/eventsOut (the plugin's default event ports). cvIn/cvOut
	// carry control-voltage channels when present; either may be nil.
	Process(in, out [][]float32, cvIn, cvOut [][]float32, eventsIn, eventsOut EventBuffer, nframes int)
}

// EventBuffer is the per-block MIDI event view handed to a Plugin's
// Process call; internal/pool provides the concrete implementation
// backing the engine's eventsIn/eventsOut pools.
type EventBuffer interface {
	Events() []EngineEvent
	Append(e EngineEvent) bool
	Reset()
}
