//go:build !darwin
// +build !darwin

package coremidi

import (
	"fmt"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

// dummyOpener stands in for CoreMIDI on non-Darwin hosts so this
// package always compiles, matching the teacher's
// mididarwin/client_dummy.go.
type dummyOpener struct {
	logger contracts.Logger
}

// NewOpener returns a dummy opener; CoreMIDI is unavailable off Darwin.
func NewOpener(logger contracts.Logger) (contracts.MidiOpener, error) {
	logger.Info("coremidi: dummy opener, not running on darwin")
	return &dummyOpener{logger: logger}, nil
}

func (d *dummyOpener) ListIns() ([]contracts.DeviceInfo, error)  { return nil, nil }
func (d *dummyOpener) ListOuts() ([]contracts.DeviceInfo, error) { return nil, nil }

func (d *dummyOpener) OpenIn(name string, _ contracts.MidiSink) (contracts.MidiInPort, error) {
	return nil, fmt.Errorf("coremidi: unavailable off darwin, cannot open input %q", name)
}

func (d *dummyOpener) OpenOut(name string) (contracts.MidiOutPort, error) {
	return nil, fmt.Errorf("coremidi: unavailable off darwin, cannot open output %q", name)
}
