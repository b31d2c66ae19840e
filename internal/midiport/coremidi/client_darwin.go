//go:build darwin
// +build darwin

// Package coremidi adapts macOS CoreMIDI to contracts.MidiOpener,
// grounded directly on the teacher's
// internal/midi/mididarwin/client_darwin.go (same go-coremidi calls:
// AllSources/AllDestinations, NewClient, NewInputPort/NewOutputPort),
// generalised from a single captured stream to named, independently
// opened input and output ports (§4.6).
package coremidi

import (
	"fmt"
	"sync/atomic"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

type opener struct {
	logger contracts.Logger
	client coremidi.Client
}

// NewOpener creates one shared CoreMIDI client for the process, matching
// the teacher's NewMIDIClient.
func NewOpener(logger contracts.Logger) (contracts.MidiOpener, error) {
	client, err := coremidi.NewClient("enginecore")
	if err != nil {
		return nil, fmt.Errorf("coremidi: create client: %w", err)
	}
	logger.Info("coremidi opener ready")
	return &opener{logger: logger, client: client}, nil
}

func (o *opener) ListIns() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("coremidi: list sources: %w", err)
	}
	out := make([]contracts.DeviceInfo, len(sources))
	for i, s := range sources {
		e := s.Entity()
		out[i] = contracts.DeviceInfo{Name: s.Name(), EntityName: e.Name(), Manufacturer: e.Manufacturer(), IsInput: true}
	}
	return out, nil
}

func (o *opener) ListOuts() ([]contracts.DeviceInfo, error) {
	dests, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("coremidi: list destinations: %w", err)
	}
	out := make([]contracts.DeviceInfo, len(dests))
	for i, d := range dests {
		e := d.Entity()
		out[i] = contracts.DeviceInfo{Name: d.Name(), EntityName: e.Name(), Manufacturer: e.Manufacturer()}
	}
	return out, nil
}

func (o *opener) findSource(name string) (coremidi.Source, bool) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return coremidi.Source{}, false
	}
	for _, s := range sources {
		if s.Name() == name {
			return s, true
		}
	}
	return coremidi.Source{}, false
}

func (o *opener) findDestination(name string) (coremidi.Destination, bool) {
	dests, err := coremidi.AllDestinations()
	if err != nil {
		return coremidi.Destination{}, false
	}
	for _, d := range dests {
		if d.Name() == name {
			return d, true
		}
	}
	return coremidi.Destination{}, false
}

type inPort struct {
	name   string
	closed atomic.Bool
	conn   interface{ Disconnect() }
}

func (p *inPort) Name() string { return p.name }
func (p *inPort) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.conn.Disconnect()
	}
	return nil
}

// OpenIn opens a device-level input port by name and forwards every
// received packet's raw bytes to sink.
func (o *opener) OpenIn(name string, sink contracts.MidiSink) (contracts.MidiInPort, error) {
	source, ok := o.findSource(name)
	if !ok {
		return nil, fmt.Errorf("coremidi: no MIDI source named %q", name)
	}

	handler := func(src coremidi.Source, packet coremidi.Packet) {
		if len(packet.Data) == 0 {
			return
		}
		sink(append([]byte(nil), packet.Data...), uint64(packet.TimeStamp))
	}

	port, err := coremidi.NewInputPort(o.client, "enginecore-in", handler)
	if err != nil {
		return nil, fmt.Errorf("coremidi: create input port: %w", err)
	}
	conn, err := port.Connect(source)
	if err != nil {
		return nil, fmt.Errorf("coremidi: connect source %q: %w", name, err)
	}
	return &inPort{name: name, conn: conn}, nil
}

type outPort struct {
	name   string
	port   coremidi.OutputPort
	dest   coremidi.Destination
	closed atomic.Bool
}

func (p *outPort) Name() string { return p.name }
func (p *outPort) Close() error { p.closed.Store(true); return nil }

func (p *outPort) Send(data []byte, _ float64) error {
	if p.closed.Load() {
		return fmt.Errorf("coremidi: output %q is closed", p.name)
	}
	return p.port.Send(p.dest, data)
}

// OpenOut opens a device-level output port by name.
func (o *opener) OpenOut(name string) (contracts.MidiOutPort, error) {
	dest, ok := o.findDestination(name)
	if !ok {
		return nil, fmt.Errorf("coremidi: no MIDI destination named %q", name)
	}
	port, err := coremidi.NewOutputPort(o.client, "enginecore-out")
	if err != nil {
		return nil, fmt.Errorf("coremidi: create output port: %w", err)
	}
	return &outPort{name: name, port: port, dest: dest}, nil
}

var _ contracts.MidiOpener = (*opener)(nil)
