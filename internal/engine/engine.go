// Package engine implements the engine facade (C6): it owns the active
// graph (Rack or Patchbay, never both), the external MIDI port
// adapters, and the event-in staging, and drives the audio callback
// described in §4.6.
package engine

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rtpatchbay/enginecore/internal/driver"
	"github.com/rtpatchbay/enginecore/internal/patchbay"
	"github.com/rtpatchbay/enginecore/internal/pluginadapter"
	"github.com/rtpatchbay/enginecore/internal/pool"
	"github.com/rtpatchbay/enginecore/internal/rack"
	"github.com/rtpatchbay/enginecore/internal/registry"
	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/rtpatchbay/enginecore/sdk/ids"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Engine is the audio/MIDI routing facade: one Rack or Patchbay graph,
// the hardware Driver, and the MIDI-in staging pool that bridges the
// driver's MIDI thread to the audio thread (§4.1, §4.6).
type Engine struct {
	logger contracts.Logger
	opts   contracts.EngineOptions

	reg        *registry.Registry
	rackGraph  *rack.Graph
	patchGraph *patchbay.Graph

	driver contracts.Driver

	eventsIn, eventsOut *pool.EventBuffer
	midiStaging         *pool.MidiStaging

	isReady   atomic.Bool
	isRunning atomic.Bool
	isOffline atomic.Bool
	frameBase atomic.Uint64

	midiOutMu   sync.Mutex
	midiOutName string
	midiOutPort contracts.MidiOutPort

	midiInMu   sync.Mutex
	midiInName string
	midiInPort contracts.MidiInPort
}

// New applies opts over the engine's defaults (matching the teacher's
// applyDefaultOptions) and returns an unstarted Engine; call Init to
// build the graph and start the driver.
func New(opts ...contracts.Option) (*Engine, error) {
	o := contracts.EngineOptions{
		Topology:      contracts.TopologyRack,
		SampleRate:    48000,
		BufferSize:    512,
		Inputs:        2,
		Outputs:       2,
		MaxPlugins:    64,
		EventPoolSize: 512,
		MidiPoolSize:  256,
		LogLevel:      contracts.InfoLevel,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.Logger == nil {
		return nil, fmt.Errorf("%w: a Logger option is required", contracts.ErrInvalidArgument)
	}
	o.Logger.SetLevel(o.LogLevel)

	if o.Driver == nil {
		o.Driver = driver.NewDummy(o.Logger, o.Inputs, o.Outputs, o.BufferSize, o.SampleRate)
	}

	e := &Engine{
		logger: o.Logger,
		opts:   o,
		driver: o.Driver,
	}
	return e, nil
}

// Init builds the registry, the active graph, and the event pools, and
// starts the driver's audio callback (§4.6). clientName is forwarded
// to the host callback's EngineStarted event.
func (e *Engine) Init(clientName string) bool {
	e.reg = registry.New()
	e.eventsIn = pool.NewEventBuffer(e.opts.EventPoolSize)
	e.eventsOut = pool.NewEventBuffer(e.opts.EventPoolSize)
	e.midiStaging = pool.NewMidiStaging(e.opts.MidiPoolSize, e.logger)

	switch e.opts.Topology {
	case contracts.TopologyRack:
		e.rackGraph = rack.New(e.logger, e.reg, e.opts.HostCallback, e, e.opts.EventPoolSize, e.opts.BufferSize)
		e.announceRackMidiPorts()
	case contracts.TopologyPatchbay:
		e.patchGraph = patchbay.New(e.logger, e.reg, e.opts.HostCallback, e.opts.MaxPlugins, e.opts.Inputs, e.opts.Outputs, e.opts.BufferSize, e.opts.EventPoolSize)
	default:
		e.logger.Error("engine: unknown topology", e.logger.Field().Int("topology", int(e.opts.Topology)))
		return false
	}

	if err := e.driver.Start(e.processBlock); err != nil {
		e.notifyError(fmt.Errorf("engine: start driver: %w", err))
		return false
	}

	e.isReady.Store(true)
	e.isRunning.Store(true)
	if e.opts.HostCallback != nil {
		e.opts.HostCallback.Notify(contracts.Event{Op: contracts.OpEngineStarted, Name: clientName})
	}
	e.logger.Info("engine started", e.logger.Field().String("client", clientName), e.logger.Field().String("topology", e.opts.Topology.String()))
	return true
}

func (e *Engine) announceRackMidiPorts() {
	ins, err := e.driver.MidiIns()
	if err != nil {
		e.logger.Warn("engine: list midi ins failed", e.logger.Field().Error("error", err))
	}
	for _, d := range ins {
		e.rackGraph.AnnounceMidiPort(ids.MidiIn, d.Name)
	}
	outs, err := e.driver.MidiOuts()
	if err != nil {
		e.logger.Warn("engine: list midi outs failed", e.logger.Field().Error("error", err))
	}
	for _, d := range outs {
		e.rackGraph.AnnounceMidiPort(ids.MidiOut, d.Name)
	}
}

// Close stops the driver and releases any open MIDI device ports. The
// three teardown steps touch independent devices, so they run
// concurrently via errgroup; their failures are combined with
// multierr rather than discarding all but the last (§1 AMBIENT STACK).
func (e *Engine) Close() bool {
	e.isReady.Store(false)
	e.isRunning.Store(false)

	var eg errgroup.Group
	var mu sync.Mutex
	var errs error
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = multierr.Append(errs, err)
		mu.Unlock()
	}

	eg.Go(func() error { record(e.driver.Stop()); return nil })
	eg.Go(func() error { record(e.DisconnectRackMidiInPort()); return nil })
	eg.Go(func() error { record(e.DisconnectRackMidiOutPort()); return nil })
	eg.Wait()

	if errs != nil {
		e.notifyError(fmt.Errorf("engine: close: %w", errs))
		return false
	}
	e.logger.Info("engine closed")
	return true
}

func (e *Engine) IsRunning() bool           { return e.isRunning.Load() }
func (e *Engine) IsOffline() bool           { return e.isOffline.Load() }
func (e *Engine) CurrentDriverName() string { return e.driver.Name() }

// MidiIns/MidiOuts forward the driver's device enumeration, for a host
// UI or CLI to present connection choices.
func (e *Engine) MidiIns() ([]contracts.DeviceInfo, error)  { return e.driver.MidiIns() }
func (e *Engine) MidiOuts() ([]contracts.DeviceInfo, error) { return e.driver.MidiOuts() }

// SetOffline toggles offline rendering, which relaxes Plugin.TryLock
// to a blocking lock in the active graph (§4.3).
func (e *Engine) SetOffline(offline bool) {
	e.isOffline.Store(offline)
	if e.rackGraph != nil {
		e.rackGraph.SetOffline(offline)
	}
	if e.patchGraph != nil {
		e.patchGraph.SetOffline(offline)
	}
}

func (e *Engine) notifyError(err error) {
	e.logger.Error("engine error", e.logger.Field().Error("error", err))
	if e.opts.HostCallback != nil {
		e.opts.HostCallback.Notify(contracts.Event{Op: contracts.OpError, Message: err.Error()})
	}
}

// --- buffer size / sample rate (§5) ---

// SetBufferSize quiesces the engine (clearing isReady so the audio
// thread renders silence), rebuilds the active graph's scratch buffers
// and the driver's stream, then restores readiness.
func (e *Engine) SetBufferSize(bs int) error {
	e.isReady.Store(false)
	defer e.isReady.Store(true)

	e.opts.BufferSize = bs
	if e.rackGraph != nil {
		e.rackGraph.SetBufferSize(bs)
	}
	if e.patchGraph != nil {
		e.patchGraph.SetBufferSize(bs)
	}
	return e.driver.SetBufferSize(bs)
}

func (e *Engine) SetSampleRate(sr float64) error {
	e.isReady.Store(false)
	defer e.isReady.Store(true)

	e.opts.SampleRate = sr
	return e.driver.SetSampleRate(sr)
}

// --- plugin lifecycle ---

// AddPlugin appends p to the active graph (the Rack chain's tail, or a
// new Patchbay node) and returns its adapter.
func (e *Engine) AddPlugin(p contracts.Plugin) *pluginadapter.Adapter {
	if e.rackGraph != nil {
		return e.rackGraph.AddPlugin(p)
	}
	return e.patchGraph.AddPlugin(p)
}

// RemovePlugin removes a previously added plugin from the active
// graph.
func (e *Engine) RemovePlugin(a *pluginadapter.Adapter) error {
	if e.rackGraph != nil {
		if !e.rackGraph.RemovePlugin(a) {
			return fmt.Errorf("%w", contracts.ErrPluginNotFound)
		}
		return nil
	}
	return e.patchGraph.RemovePlugin(a)
}

// ReplacePlugin atomically swaps a Patchbay node's plugin instance
// in-place; it is not meaningful in Rack mode.
func (e *Engine) ReplacePlugin(old *pluginadapter.Adapter, newPlugin contracts.Plugin) (*pluginadapter.Adapter, error) {
	if e.patchGraph == nil {
		return nil, fmt.Errorf("%w: ReplacePlugin requires patchbay topology", contracts.ErrInvalidArgument)
	}
	return e.patchGraph.ReplacePlugin(old, newPlugin)
}

// --- patchbay-facing connection API (§6.3) ---

func (e *Engine) PatchbayConnect(gA ids.GroupId, pA ids.PortId, gB ids.GroupId, pB ids.PortId) (contracts.Connection, error) {
	if e.rackGraph != nil {
		return e.rackGraph.Connect(gA, pA, gB, pB)
	}
	return e.patchGraph.Connect(gA, pA, gB, pB)
}

func (e *Engine) PatchbayDisconnect(id ids.ConnectionId) error {
	if e.rackGraph != nil {
		return e.rackGraph.Disconnect(id)
	}
	return e.patchGraph.Disconnect(id)
}

// PatchbayRefresh rebuilds observable registry state from the
// authoritative underlying graph. external is only meaningful on
// drivers the core doesn't own, which this implementation never is
// (§6.3).
func (e *Engine) PatchbayRefresh(external bool) error {
	if external {
		return fmt.Errorf("%w", contracts.ErrUnsupportedDriver)
	}
	if e.patchGraph == nil {
		return nil
	}
	e.patchGraph.RefreshConnections()
	return nil
}

// GetPatchbayConnections renders the active connection set as
// "src1,dst1,src2,dst2,..." full-name pairs (§6.3).
func (e *Engine) GetPatchbayConnections() []string {
	var conns []contracts.Connection
	if e.rackGraph != nil {
		conns = e.rackGraph.Connections()
	} else {
		conns = e.patchGraph.Connections()
	}

	out := make([]string, 0, len(conns)*2)
	for _, c := range conns {
		src, err := e.fullName(c.GroupA, c.PortA)
		if err != nil {
			continue
		}
		dst, err := e.fullName(c.GroupB, c.PortB)
		if err != nil {
			continue
		}
		out = append(out, src, dst)
	}
	return out
}

// RestorePatchbayConnection decodes src/dst full names and connects
// them, for session-restore callers (§6.3).
func (e *Engine) RestorePatchbayConnection(src, dst string) error {
	gA, pA, err := e.parseFullName(src)
	if err != nil {
		return err
	}
	gB, pB, err := e.parseFullName(dst)
	if err != nil {
		return err
	}
	_, err = e.PatchbayConnect(gA, pA, gB, pB)
	return err
}

func (e *Engine) fullName(group ids.GroupId, port ids.PortId) (string, error) {
	if e.patchGraph != nil {
		return e.patchGraph.FullName(group, port)
	}

	switch group {
	case ids.AudioIn, ids.AudioOut:
		return ids.RackFullName(group, port, strconv.Itoa(int(port)))
	case ids.MidiIn, ids.MidiOut:
		name, ok := e.rackGraph.MidiPortName(group, port)
		if !ok {
			return "", fmt.Errorf("%w: unknown midi port %d:%d", contracts.ErrInvalidArgument, group, port)
		}
		return ids.RackFullName(group, port, name)
	default:
		return ids.RackFullName(group, port, "")
	}
}

func (e *Engine) parseFullName(fullName string) (ids.GroupId, ids.PortId, error) {
	if e.patchGraph != nil {
		return e.patchGraph.ParseFullName(fullName)
	}
	group, port, ext, err := ids.ParseRackFullName(fullName)
	if err != nil || (group != ids.MidiIn && group != ids.MidiOut) {
		return group, port, err
	}
	for p := ids.PortId(1); ; p++ {
		name, ok := e.rackGraph.MidiPortName(group, p)
		if !ok {
			return 0, 0, fmt.Errorf("%w: unknown midi port %q", contracts.ErrInvalidArgument, fullName)
		}
		if name == ext {
			return group, p, nil
		}
	}
}

// PluginPeaks returns the most recent peak meter values for Rack chain
// slot i; always zero in Patchbay mode.
func (e *Engine) PluginPeaks(i int) (ins, outs float64) {
	if e.rackGraph == nil {
		return 0, 0
	}
	return e.rackGraph.PluginPeaks(i)
}

// --- Rack MIDI device connection (rack.MidiConnector) ---

// ConnectRackMidiInPort opens a named external MIDI input and forwards
// every received message into the MIDI-in staging pool (§4.4, §4.6).
func (e *Engine) ConnectRackMidiInPort(name string) error {
	e.midiInMu.Lock()
	defer e.midiInMu.Unlock()

	if e.midiInPort != nil {
		return fmt.Errorf("%w: a rack MIDI input is already connected", contracts.ErrInvalidArgument)
	}

	port, err := e.driver.ConnectIn(name, e.onDeviceMidi)
	if err != nil {
		return err
	}
	e.midiInPort, e.midiInName = port, name
	return nil
}

// DisconnectRackMidiInPort closes the currently connected external MIDI
// input, if any.
func (e *Engine) DisconnectRackMidiInPort() error {
	e.midiInMu.Lock()
	defer e.midiInMu.Unlock()

	if e.midiInPort == nil {
		return nil
	}
	err := e.midiInPort.Close()
	e.midiInPort, e.midiInName = nil, ""
	return err
}

// ConnectRackMidiOutPort opens a named external MIDI output; converted
// events.out bytes are dispatched to it at the end of every block
// (§4.6).
func (e *Engine) ConnectRackMidiOutPort(name string) error {
	e.midiOutMu.Lock()
	defer e.midiOutMu.Unlock()

	if e.midiOutPort != nil {
		return fmt.Errorf("%w: a rack MIDI output is already connected", contracts.ErrInvalidArgument)
	}

	port, err := e.driver.ConnectOut(name)
	if err != nil {
		return err
	}
	e.midiOutPort, e.midiOutName = port, name
	return nil
}

// DisconnectRackMidiOutPort closes the currently connected external
// MIDI output, if any.
func (e *Engine) DisconnectRackMidiOutPort() error {
	e.midiOutMu.Lock()
	defer e.midiOutMu.Unlock()

	if e.midiOutPort == nil {
		return nil
	}
	err := e.midiOutPort.Close()
	e.midiOutPort, e.midiOutName = nil, ""
	return err
}

// onDeviceMidi is the driver's MIDI-input callback: it runs on the
// driver's MIDI thread (not the audio thread), so it blocks on
// MidiStaging.Push per §4.1's producer path.
func (e *Engine) onDeviceMidi(data []byte, timestamp uint64) {
	var ev contracts.RtMidiEvent
	ev.Time = timestamp
	if len(data) <= contracts.MaxMidiDataSize {
		ev.Size = uint8(len(data))
		copy(ev.Data[:], data)
	} else {
		ev.Size = uint8(len(data))
		ev.ExternalData = append([]byte(nil), data...)
	}
	e.midiStaging.Push(ev)
}

// --- audio thread ---

// processBlock is the realtime Driver.AudioCallback: drain MIDI,
// process the active graph, dispatch MIDI out (§4.6).
func (e *Engine) processBlock(in, out [][]float32, nframes int) {
	for _, ch := range out {
		for i := range ch {
			ch[i] = 0
		}
	}
	e.eventsIn.Reset()
	e.eventsOut.Reset()

	if nframes != e.opts.BufferSize || !e.isReady.Load() {
		return
	}

	frameBase := e.frameBase.Load()
	e.midiStaging.TryDrain(frameBase, nframes, e.eventsIn, e.opts.EventPoolSize)

	if e.rackGraph != nil {
		e.rackGraph.Process(in, out, e.eventsIn, e.eventsOut, nframes)
	} else if e.patchGraph != nil {
		e.patchGraph.Process(in, out, e.eventsIn, e.eventsOut, nframes)
	}

	e.dispatchMidiOut(nframes)
	e.frameBase.Store(frameBase + uint64(nframes))
}

// dispatchMidiOut takes midiOutMu briefly to emit events.out; the
// audio thread holds it only long enough to Send each event, per §4.6
// step 6 ("does not block other audio operations").
func (e *Engine) dispatchMidiOut(nframes int) {
	e.midiOutMu.Lock()
	defer e.midiOutMu.Unlock()

	if e.midiOutPort == nil {
		return
	}
	for _, ev := range e.eventsOut.Events() {
		data := convertToMidiData(ev)
		if data == nil {
			continue
		}
		offset := float64(ev.Time) / float64(nframes)
		if err := e.midiOutPort.Send(data, offset); err != nil {
			e.logger.Warn("engine: midi out send failed", e.logger.Field().Error("error", err))
		}
	}
}

// convertToMidiData renders an EngineEvent to raw MIDI bytes: MIDI
// events carry their bytes verbatim, control events are rendered as a
// Control Change message (§4.6, §6.2).
func convertToMidiData(ev contracts.EngineEvent) []byte {
	switch ev.Type {
	case contracts.EngineEventControl:
		value := ev.Control.Value
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
		return []byte{byte(contracts.ControlChange), byte(ev.Control.Param & 0x7F), byte(value * 127)}
	default:
		return ev.Midi.Bytes()
	}
}

var _ rack.MidiConnector = (*Engine)(nil)
