package driver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

// Dummy is a software-only contracts.Driver: it never touches real
// hardware, and callers drive it explicitly via Tick, matching the
// teacher's *_dummy.go fallback shape (a platform stub that still
// satisfies the capability so the rest of the system compiles and
// runs). It is the engine's default in tests and on hosts with no
// usable audio device.
type Dummy struct {
	logger contracts.Logger

	mu         sync.Mutex
	running    atomic.Bool
	cb         contracts.AudioCallback
	bufferSize int
	sampleRate float64
	inputs     int
	outputs    int

	frame uint64
}

// NewDummy builds a Dummy driver with the given channel counts.
func NewDummy(logger contracts.Logger, inputs, outputs, bufferSize int, sampleRate float64) *Dummy {
	return &Dummy{logger: logger, inputs: inputs, outputs: outputs, bufferSize: bufferSize, sampleRate: sampleRate}
}

func (d *Dummy) Name() string { return "dummy" }

func (d *Dummy) Start(cb contracts.AudioCallback) error {
	d.mu.Lock()
	d.cb = cb
	d.mu.Unlock()
	d.running.Store(true)
	return nil
}

func (d *Dummy) Stop() error {
	d.running.Store(false)
	return nil
}

func (d *Dummy) BufferSize() int     { return d.bufferSize }
func (d *Dummy) SampleRate() float64 { return d.sampleRate }

func (d *Dummy) SetBufferSize(bs int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bufferSize = bs
	return nil
}

func (d *Dummy) SetSampleRate(sr float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sampleRate = sr
	return nil
}

func (d *Dummy) MidiIns() ([]contracts.DeviceInfo, error)  { return nil, nil }
func (d *Dummy) MidiOuts() ([]contracts.DeviceInfo, error) { return nil, nil }

func (d *Dummy) ConnectIn(name string, _ contracts.MidiSink) (contracts.MidiInPort, error) {
	return nil, fmt.Errorf("driver: dummy has no MIDI input named %q", name)
}

func (d *Dummy) ConnectOut(name string) (contracts.MidiOutPort, error) {
	return nil, fmt.Errorf("driver: dummy has no MIDI output named %q", name)
}

// Tick drives one synthetic audio block, useful for tests and the
// offline render path: it allocates the output channel buffers, invokes
// the registered callback with the caller's in, and returns the output
// so callers can inspect it.
func (d *Dummy) Tick(in [][]float32) [][]float32 {
	if !d.running.Load() {
		return nil
	}
	d.mu.Lock()
	cb, bufferSize, outputs := d.cb, d.bufferSize, d.outputs
	d.mu.Unlock()
	if cb == nil {
		return nil
	}

	out := make([][]float32, outputs)
	for i := range out {
		out[i] = make([]float32, bufferSize)
	}
	cb(in, out, bufferSize)
	d.frame += uint64(bufferSize)
	return out
}

var _ contracts.Driver = (*Dummy)(nil)
