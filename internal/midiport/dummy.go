package midiport

import (
	"fmt"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

// dummyOpener backs any platform with no registered native MIDI
// backend (e.g. linux, or any GOOS absent from openerInitializers).
// It always reports zero devices and refuses to open a port, matching
// the teacher's DummyMIDIClient shape.
type dummyOpener struct {
	logger contracts.Logger
}

func newDummyOpener(logger contracts.Logger) *dummyOpener {
	logger.Info("midiport: using dummy opener, no native MIDI backend for this platform")
	return &dummyOpener{logger: logger}
}

func (d *dummyOpener) ListIns() ([]contracts.DeviceInfo, error)  { return nil, nil }
func (d *dummyOpener) ListOuts() ([]contracts.DeviceInfo, error) { return nil, nil }

func (d *dummyOpener) OpenIn(name string, _ contracts.MidiSink) (contracts.MidiInPort, error) {
	return nil, fmt.Errorf("midiport: no native MIDI backend available to open input %q", name)
}

func (d *dummyOpener) OpenOut(name string) (contracts.MidiOutPort, error) {
	return nil, fmt.Errorf("midiport: no native MIDI backend available to open output %q", name)
}

var _ contracts.MidiOpener = (*dummyOpener)(nil)
