// Package rack implements the Rack graph (C4): the fixed six-port
// topology (two stereo Carla audio ports, one MIDI-in, one MIDI-out)
// with a sequential plugin chain and the fallback mixing rules of
// §4.4.
package rack

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rtpatchbay/enginecore/internal/pluginadapter"
	"github.com/rtpatchbay/enginecore/internal/pool"
	"github.com/rtpatchbay/enginecore/internal/registry"
	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/rtpatchbay/enginecore/sdk/ids"
)

// MidiConnector is the engine-facade capability the Rack graph invokes
// to open/close the device-level MIDI-in/out ports named by a
// Carla:MidiIn / Carla:MidiOut connection (§4.4, §4.6).
type MidiConnector interface {
	ConnectRackMidiInPort(name string) error
	ConnectRackMidiOutPort(name string) error
	DisconnectRackMidiInPort() error
	DisconnectRackMidiOutPort() error
}

type pluginSlot struct {
	adapter           *pluginadapter.Adapter
	insPeak, outsPeak float64
}

type portName struct {
	port      ids.PortId
	shortName string
}

// Graph is the Rack topology processor.
type Graph struct {
	logger contracts.Logger
	reg    *registry.Registry
	host   contracts.HostCallback
	midi   MidiConnector

	isOffline atomic.Bool

	// audioMu is taken once at the top of Process (the processHelper
	// entrypoint of §4.4), and by the control-thread methods that change
	// routing, MIDI port lists or the plugin chain; per the §9 design
	// note this replaces the original recursive lock with a single
	// non-recursive one.
	audioMu                      sync.Mutex
	connectedIn1, connectedIn2   []int
	connectedOut1, connectedOut2 []int

	midiInPorts, midiOutPorts []portName

	plugins []*pluginSlot

	scratchIn  [2][]float32
	scratchOut [2][]float32
	hopA, hopB *pool.EventBuffer
}

// New constructs a Rack graph sized for bufferSize frames per block.
func New(logger contracts.Logger, reg *registry.Registry, host contracts.HostCallback, midi MidiConnector, eventPoolSize, bufferSize int) *Graph {
	return &Graph{
		logger:     logger,
		reg:        reg,
		host:       host,
		midi:       midi,
		scratchIn:  [2][]float32{make([]float32, bufferSize), make([]float32, bufferSize)},
		scratchOut: [2][]float32{make([]float32, bufferSize), make([]float32, bufferSize)},
		hopA:       pool.NewEventBuffer(eventPoolSize),
		hopB:       pool.NewEventBuffer(eventPoolSize),
	}
}

// SetOffline configures whether the engine is rendering offline, which
// relaxes Plugin.TryLock to a blocking lock.
func (g *Graph) SetOffline(offline bool) { g.isOffline.Store(offline) }

// SetBufferSize rebuilds the scratch audio buffers using a
// build-then-swap pattern (§9): new buffers are prepared before the old
// ones are dropped, so no audio block ever observes a half-resized
// buffer. The caller must hold the engine's isReady=false window.
func (g *Graph) SetBufferSize(bufferSize int) {
	next := [2][]float32{make([]float32, bufferSize), make([]float32, bufferSize)}
	nextOut := [2][]float32{make([]float32, bufferSize), make([]float32, bufferSize)}
	g.audioMu.Lock()
	g.scratchIn, g.scratchOut = next, nextOut
	g.audioMu.Unlock()
}

// AddPlugin appends p to the end of the processing chain.
func (g *Graph) AddPlugin(p contracts.Plugin) *pluginadapter.Adapter {
	a := pluginadapter.New(p)
	g.audioMu.Lock()
	g.plugins = append(g.plugins, &pluginSlot{adapter: a})
	g.audioMu.Unlock()
	return a
}

// RemovePlugin removes the first chain slot wrapping a.
func (g *Graph) RemovePlugin(a *pluginadapter.Adapter) bool {
	g.audioMu.Lock()
	defer g.audioMu.Unlock()
	for i, s := range g.plugins {
		if s.adapter == a {
			g.plugins = append(g.plugins[:i], g.plugins[i+1:]...)
			return true
		}
	}
	return false
}

// AnnounceMidiPort registers an externally-discovered MIDI device name
// under group (MidiIn or MidiOut), assigning it the next sequential
// PortId (§3's PortNameToId) and firing a PatchbayPortAdded callback.
func (g *Graph) AnnounceMidiPort(group ids.GroupId, shortName string) ids.PortId {
	g.audioMu.Lock()
	defer g.audioMu.Unlock()

	var list *[]portName
	var flags contracts.PortFlags
	switch group {
	case ids.MidiIn:
		list, flags = &g.midiInPorts, contracts.PortFlagMidi|contracts.PortFlagInput
	case ids.MidiOut:
		list, flags = &g.midiOutPorts, contracts.PortFlagMidi
	default:
		panic("rack: AnnounceMidiPort requires MidiIn or MidiOut")
	}

	port := ids.PortId(len(*list) + 1)
	*list = append(*list, portName{port: port, shortName: shortName})

	if g.host != nil {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayPortAdded, GroupID: uint32(group), PortID: uint32(port), Flags: flags, Name: shortName})
	}
	return port
}

func (g *Graph) nameForMidiPort(group ids.GroupId, port ids.PortId) (string, bool) {
	list := g.midiInPorts
	if group == ids.MidiOut {
		list = g.midiOutPorts
	}
	for _, pn := range list {
		if pn.port == port {
			return pn.shortName, true
		}
	}
	return "", false
}

// MidiPortName returns the externally-announced device name behind a
// MidiIn/MidiOut port id, for the full-name round trip of §6.1.
func (g *Graph) MidiPortName(group ids.GroupId, port ids.PortId) (string, bool) {
	g.audioMu.Lock()
	defer g.audioMu.Unlock()
	return g.nameForMidiPort(group, port)
}

// carlaEndpoint resolves which side of (gA,pA,gB,pB) is the Carla port
// and validates that the other endpoint's group matches the direction
// that Carla port implies.
func carlaEndpoint(gA ids.GroupId, pA ids.PortId, gB ids.GroupId, pB ids.PortId) (carlaPort ids.PortId, otherGroup ids.GroupId, otherPort ids.PortId, err error) {
	switch {
	case gA == ids.Carla && gB == ids.Carla:
		return 0, 0, 0, fmt.Errorf("%w: both endpoints are Carla", contracts.ErrInvalidArgument)
	case gA == ids.Carla:
		carlaPort, otherGroup, otherPort = pA, gB, pB
	case gB == ids.Carla:
		carlaPort, otherGroup, otherPort = pB, gA, pA
	default:
		return 0, 0, 0, fmt.Errorf("%w: exactly one endpoint must be Carla", contracts.ErrInvalidArgument)
	}

	wantGroup, ok := expectedGroup(carlaPort)
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: invalid carla port %d", contracts.ErrInvalidArgument, carlaPort)
	}
	if wantGroup != otherGroup {
		return 0, 0, 0, fmt.Errorf("%w: carla port %d expects group %s, got %s", contracts.ErrInvalidArgument, carlaPort, wantGroup, otherGroup)
	}
	return carlaPort, otherGroup, otherPort, nil
}

func expectedGroup(p ids.PortId) (ids.GroupId, bool) {
	switch p {
	case ids.RackAudioIn1, ids.RackAudioIn2:
		return ids.AudioIn, true
	case ids.RackAudioOut1, ids.RackAudioOut2:
		return ids.AudioOut, true
	case ids.RackMidiIn:
		return ids.MidiIn, true
	case ids.RackMidiOut:
		return ids.MidiOut, true
	default:
		return 0, false
	}
}

// Connect validates and establishes one connection (§4.4).
func (g *Graph) Connect(gA ids.GroupId, pA ids.PortId, gB ids.GroupId, pB ids.PortId) (contracts.Connection, error) {
	carlaPort, _, otherPort, err := carlaEndpoint(gA, pA, gB, pB)
	if err != nil {
		return contracts.Connection{}, err
	}

	switch carlaPort {
	case ids.RackAudioIn1, ids.RackAudioIn2, ids.RackAudioOut1, ids.RackAudioOut2:
		if err := g.connectAudio(carlaPort, int(otherPort)); err != nil {
			return contracts.Connection{}, err
		}
	case ids.RackMidiIn:
		name, ok := g.nameForMidiPort(ids.MidiIn, otherPort)
		if !ok {
			return contracts.Connection{}, fmt.Errorf("%w: unknown MidiIn port %d", contracts.ErrInvalidArgument, otherPort)
		}
		if err := g.midi.ConnectRackMidiInPort(name); err != nil {
			return contracts.Connection{}, err
		}
	case ids.RackMidiOut:
		name, ok := g.nameForMidiPort(ids.MidiOut, otherPort)
		if !ok {
			return contracts.Connection{}, fmt.Errorf("%w: unknown MidiOut port %d", contracts.ErrInvalidArgument, otherPort)
		}
		if err := g.midi.ConnectRackMidiOutPort(name); err != nil {
			return contracts.Connection{}, err
		}
	}

	c := g.reg.Add(gA, pA, gB, pB)
	if g.host != nil {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayConnectionAdded, ConnectionID: uint32(c.ID), Payload: c.Payload()})
	}
	return c, nil
}

func (g *Graph) connectAudio(carlaPort ids.PortId, ch int) error {
	g.audioMu.Lock()
	defer g.audioMu.Unlock()

	list := g.vectorFor(carlaPort)
	for _, existing := range *list {
		if existing == ch {
			return fmt.Errorf("%w", contracts.ErrInvalidRackConnection)
		}
	}
	*list = append(*list, ch)
	return nil
}

func (g *Graph) vectorFor(carlaPort ids.PortId) *[]int {
	switch carlaPort {
	case ids.RackAudioIn1:
		return &g.connectedIn1
	case ids.RackAudioIn2:
		return &g.connectedIn2
	case ids.RackAudioOut1:
		return &g.connectedOut1
	default:
		return &g.connectedOut2
	}
}

// Disconnect removes the connection with the given id (§4.4).
func (g *Graph) Disconnect(id ids.ConnectionId) error {
	c, ok := g.reg.FindByID(id)
	if !ok {
		return fmt.Errorf("%w", contracts.ErrConnectionNotFound)
	}

	carlaPort, otherGroup, otherPort, err := carlaEndpoint(c.GroupA, c.PortA, c.GroupB, c.PortB)
	if err != nil {
		return err
	}

	switch carlaPort {
	case ids.RackAudioIn1, ids.RackAudioIn2, ids.RackAudioOut1, ids.RackAudioOut2:
		g.audioMu.Lock()
		list := g.vectorFor(carlaPort)
		for i, existing := range *list {
			if existing == int(otherPort) {
				*list = append((*list)[:i], (*list)[i+1:]...)
				break
			}
		}
		g.audioMu.Unlock()
	case ids.RackMidiIn:
		_ = otherGroup
		if err := g.midi.DisconnectRackMidiInPort(); err != nil {
			return err
		}
	case ids.RackMidiOut:
		if err := g.midi.DisconnectRackMidiOutPort(); err != nil {
			return err
		}
	}

	g.reg.RemoveIf(func(existing contracts.Connection) bool { return existing.ID == id })
	if g.host != nil {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayConnectionRemoved, ConnectionID: uint32(id)})
	}
	return nil
}

// PluginPeaks returns the most recent input/output peak meter values
// for chain slot i.
func (g *Graph) PluginPeaks(i int) (ins, outs float64) {
	g.audioMu.Lock()
	defer g.audioMu.Unlock()
	if i < 0 || i >= len(g.plugins) {
		return 0, 0
	}
	return g.plugins[i].insPeak, g.plugins[i].outsPeak
}

// Connections returns a snapshot of the active registry.
func (g *Graph) Connections() []contracts.Connection {
	return g.reg.Snapshot()
}

// Process runs one audio block: stage hardware inputs, walk the plugin
// chain applying the bypass/peak/event-merge rules of §4.4, then
// distribute the result onto the hardware outputs. inCh/outCh are
// indexed by raw hardware channel (1-based channel numbers in
// connectedIn*/connectedOut* refer into these slices).
func (g *Graph) Process(inCh, outCh [][]float32, eventsIn, eventsOut *pool.EventBuffer, nframes int) {
	g.audioMu.Lock()
	defer g.audioMu.Unlock()

	g.stageInputs(inCh, nframes)
	for c := 0; c < 2; c++ {
		zero(g.scratchOut[c][:nframes])
	}

	curIn, curOut := g.hopA, g.hopB
	curIn.Reset()
	for _, e := range eventsIn.Events() {
		curIn.Append(e)
	}
	curOut.Reset()

	processedAny := false
	for _, slot := range g.plugins {
		if slot == nil || slot.adapter == nil || slot.adapter.Plugin == nil {
			continue
		}
		p := slot.adapter.Plugin
		if !p.IsEnabled() || !p.TryLock(g.isOffline.Load()) {
			continue
		}

		if processedAny {
			copy(g.scratchIn[0][:nframes], g.scratchOut[0][:nframes])
			copy(g.scratchIn[1][:nframes], g.scratchOut[1][:nframes])
			zero(g.scratchOut[0][:nframes])
			zero(g.scratchOut[1][:nframes])

			if len(curOut.Events()) == 0 && len(eventsIn.Events()) > 0 {
				// The plugin just processed produced no MIDI output:
				// forward the original device events untouched rather
				// than dropping them. curOut (the plugin's own,
				// confirmed-empty output) and eventsIn are merged into
				// curIn; mergeSorted resets curIn first, so the copy
				// already delivered to that plugin is not a merge
				// source and no event is doubled. curOut is then reset
				// so the next plugin's own output has a clean buffer.
				mergeSorted(curOut, eventsIn, curIn)
				curOut.Reset()
			} else {
				curIn, curOut = curOut, curIn
				curOut.Reset()
			}
		}

		oldAudioIn := p.AudioInCount()
		p.InitBuffers()
		p.Process(g.scratchIn[:], g.scratchOut[:], nil, nil, curIn, curOut, nframes)
		p.Unlock()

		if oldAudioIn == 0 {
			for c := 0; c < 2; c++ {
				for i := 0; i < nframes; i++ {
					g.scratchOut[c][i] += g.scratchIn[c][i]
				}
			}
		}

		slot.insPeak, slot.outsPeak = 0, 0
		if oldAudioIn > 0 {
			slot.insPeak = maxf(pluginadapter.Peak(g.scratchIn[0][:nframes]), pluginadapter.Peak(g.scratchIn[1][:nframes]))
		}
		if p.AudioOutCount() > 0 {
			slot.outsPeak = maxf(pluginadapter.Peak(g.scratchOut[0][:nframes]), pluginadapter.Peak(g.scratchOut[1][:nframes]))
		}
		processedAny = true
	}

	eventsOut.Reset()
	if processedAny {
		for c := 0; c < 2; c++ {
			g.distribute(outCh, c, g.scratchOut[c][:nframes])
		}
		for _, e := range curOut.Events() {
			eventsOut.Append(e)
		}
	} else {
		for c := 0; c < 2; c++ {
			g.distribute(outCh, c, g.scratchIn[c][:nframes])
		}
		for _, e := range eventsIn.Events() {
			eventsOut.Append(e)
		}
	}
}

func (g *Graph) stageInputs(inCh [][]float32, nframes int) {
	ins := [2][]int{g.connectedIn1, g.connectedIn2}
	for c := 0; c < 2; c++ {
		dst := g.scratchIn[c][:nframes]
		list := ins[c]
		if len(list) == 0 {
			zero(dst)
			continue
		}
		for i, ch := range list {
			if ch < 1 || ch > len(inCh) {
				continue
			}
			src := inCh[ch-1][:nframes]
			if i == 0 {
				copy(dst, src)
			} else {
				for s := range dst {
					dst[s] += src[s]
				}
			}
		}
	}
}

func (g *Graph) distribute(outCh [][]float32, stereoChannel int, src []float32) {
	list := g.connectedOut1
	if stereoChannel == 1 {
		list = g.connectedOut2
	}
	for _, ch := range list {
		if ch < 1 || ch > len(outCh) {
			continue
		}
		dst := outCh[ch-1][:len(src)]
		for i := range dst {
			dst[i] += src[i]
		}
	}
}

// mergeSorted implements the Open Question resolution of §9: when a
// mid-chain plugin produced no MIDI output but the engine's original
// input had events, those events must still reach the next plugin
// instead of being dropped. prevOut and engineIn are merged by
// ascending Time into scratch, which must not alias either source
// (callers merge the just-processed plugin's own, confirmed-empty
// output against the original eventsIn into the stale curIn buffer,
// never curIn's own prior contents — that copy was already delivered
// to the plugin that just ran, and re-merging it would double every
// event).
func mergeSorted(prevOut, engineIn, scratch *pool.EventBuffer) *pool.EventBuffer {
	scratch.Reset()
	a, b := prevOut.Events(), engineIn.Events()
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case i >= len(a):
			scratch.Append(b[j])
			j++
		case j >= len(b):
			scratch.Append(a[i])
			i++
		case a[i].Time <= b[j].Time:
			scratch.Append(a[i])
			i++
		default:
			scratch.Append(b[j])
			j++
		}
	}
	return scratch
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
