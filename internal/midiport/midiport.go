// Package midiport implements the external MIDI port adapters the
// engine facade opens/closes by device name when a Rack
// Carla:MidiIn/Carla:MidiOut connection is made or broken (§4.6). One
// concrete contracts.MidiOpener backs each runtime.GOOS, dispatched
// through a clientInitializers-style map exactly like the teacher's
// sdk/midi/midi_client_factory.go; unsupported platforms fall back to
// a dummy opener rather than erroring, since enginecore must still run
// (audio-only) on hosts with no native MIDI backend.
package midiport

import (
	"runtime"

	"github.com/rtpatchbay/enginecore/internal/midiport/coremidi"
	"github.com/rtpatchbay/enginecore/internal/midiport/winmm"
	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

// openerInitializers maps OS names to MidiOpener constructors,
// mirroring the teacher's clientInitializers table.
var openerInitializers = map[string]func(contracts.Logger) (contracts.MidiOpener, error){
	"darwin":  coremidi.NewOpener,
	"windows": winmm.NewOpener,
}

// New builds the MidiOpener for the current platform. Platforms with
// no registered initializer get a logging dummy so the rest of the
// engine still runs; Rack MIDI connections simply fail at connect
// time.
func New(logger contracts.Logger) (contracts.MidiOpener, error) {
	if initializer, ok := openerInitializers[runtime.GOOS]; ok {
		return initializer(logger)
	}
	return newDummyOpener(logger), nil
}
