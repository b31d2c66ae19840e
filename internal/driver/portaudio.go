// Package driver supplies concrete contracts.Driver implementations:
// a gordonklaus/portaudio-backed driver that owns the real hardware
// audio device callback loop, and a dummy driver used by tests and any
// host with no usable audio device (§9's "abstract engine subclass per
// driver", re-architected as a narrow capability per the teacher's
// clientInitializers dispatch style). Hardware enumeration beyond
// listing devices is out of scope (§1); the audio-device discovery
// feeding OpenDefaultStream is PortAudio's own.
package driver

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rtpatchbay/enginecore/internal/midiport"
	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

// PortAudio drives the engine facade from a real hardware device via
// gordonklaus/portaudio, and opens external MIDI ports through
// internal/midiport's per-OS opener.
type PortAudio struct {
	logger contracts.Logger
	midi   contracts.MidiOpener

	mu         sync.Mutex
	stream     *portaudio.Stream
	cb         contracts.AudioCallback
	bufferSize int
	sampleRate float64
	inputs     int
	outputs    int
}

// NewPortAudio initializes the PortAudio library and opens the default
// input/output device pair with the given channel counts.
func NewPortAudio(logger contracts.Logger, inputs, outputs, bufferSize int, sampleRate float64) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("driver: portaudio initialize: %w", err)
	}

	opener, err := midiport.New(logger)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("driver: midi opener: %w", err)
	}

	return &PortAudio{
		logger:     logger,
		midi:       opener,
		bufferSize: bufferSize,
		sampleRate: sampleRate,
		inputs:     inputs,
		outputs:    outputs,
	}, nil
}

func (p *PortAudio) Name() string { return "portaudio" }

// Start opens and starts a non-blocking duplex stream, handing each
// hardware block to cb. Buffers are allocated once per Start and
// reused across callbacks; the callback itself must not allocate
// (§5).
func (p *PortAudio) Start(cb contracts.AudioCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return fmt.Errorf("driver: already started")
	}
	p.cb = cb

	params := portaudio.HighLatencyParameters(nil, nil)
	params.Input.Channels = p.inputs
	params.Output.Channels = p.outputs
	params.SampleRate = p.sampleRate
	params.FramesPerBuffer = p.bufferSize

	stream, err := portaudio.OpenStream(params, p.process)
	if err != nil {
		return fmt.Errorf("driver: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("driver: start stream: %w", err)
	}
	p.stream = stream
	return nil
}

// process is PortAudio's realtime callback: it forwards the
// already-deinterleaved per-channel buffers straight into the engine
// facade's AudioCallback with no allocation.
func (p *PortAudio) process(in, out [][]float32) {
	nframes := p.bufferSize
	if len(in) > 0 {
		nframes = len(in[0])
	} else if len(out) > 0 {
		nframes = len(out[0])
	}
	p.cb(in, out, nframes)
}

// Stop stops and closes the stream; the driver may be Start-ed again
// afterwards.
func (p *PortAudio) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("driver: stop stream: %w", err)
	}
	if err := p.stream.Close(); err != nil {
		return fmt.Errorf("driver: close stream: %w", err)
	}
	p.stream = nil
	return nil
}

func (p *PortAudio) BufferSize() int      { return p.bufferSize }
func (p *PortAudio) SampleRate() float64  { return p.sampleRate }

// SetBufferSize/SetSampleRate restart the stream if running, per §5's
// requirement that these only happen while the engine is quiesced.
func (p *PortAudio) SetBufferSize(bs int) error {
	p.mu.Lock()
	running := p.stream != nil
	p.bufferSize = bs
	p.mu.Unlock()
	if running {
		if err := p.Stop(); err != nil {
			return err
		}
		return p.Start(p.cb)
	}
	return nil
}

func (p *PortAudio) SetSampleRate(sr float64) error {
	p.mu.Lock()
	running := p.stream != nil
	p.sampleRate = sr
	p.mu.Unlock()
	if running {
		if err := p.Stop(); err != nil {
			return err
		}
		return p.Start(p.cb)
	}
	return nil
}

func (p *PortAudio) MidiIns() ([]contracts.DeviceInfo, error)  { return p.midi.ListIns() }
func (p *PortAudio) MidiOuts() ([]contracts.DeviceInfo, error) { return p.midi.ListOuts() }

// ConnectIn opens a named external MIDI input and forwards every
// received message into sink with the timestamp the platform MIDI
// backend supplies (see contracts.MidiSink).
func (p *PortAudio) ConnectIn(name string, sink contracts.MidiSink) (contracts.MidiInPort, error) {
	return p.midi.OpenIn(name, sink)
}

// ConnectOut opens a named external MIDI output the engine can later
// Send through at the end of each block (§4.6).
func (p *PortAudio) ConnectOut(name string) (contracts.MidiOutPort, error) {
	return p.midi.OpenOut(name)
}

var _ contracts.Driver = (*PortAudio)(nil)
