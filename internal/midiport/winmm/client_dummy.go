//go:build !windows
// +build !windows

package winmm

import (
	"fmt"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

// dummyOpener stands in for winmm on non-Windows hosts so this package
// always compiles, matching the teacher's
// midiwindows/client_dummy.go.
type dummyOpener struct {
	logger contracts.Logger
}

// NewOpener returns a dummy opener; winmm is unavailable off Windows.
func NewOpener(logger contracts.Logger) (contracts.MidiOpener, error) {
	logger.Info("winmm: dummy opener, not running on windows")
	return &dummyOpener{logger: logger}, nil
}

func (d *dummyOpener) ListIns() ([]contracts.DeviceInfo, error)  { return nil, nil }
func (d *dummyOpener) ListOuts() ([]contracts.DeviceInfo, error) { return nil, nil }

func (d *dummyOpener) OpenIn(name string, _ contracts.MidiSink) (contracts.MidiInPort, error) {
	return nil, fmt.Errorf("winmm: unavailable off windows, cannot open input %q", name)
}

func (d *dummyOpener) OpenOut(name string) (contracts.MidiOutPort, error) {
	return nil, fmt.Errorf("winmm: unavailable off windows, cannot open output %q", name)
}
