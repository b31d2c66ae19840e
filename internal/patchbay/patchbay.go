// Package patchbay implements the Patchbay graph (C5): a dynamic
// directed node graph with four built-in hardware nodes and
// freely-added plugin nodes, processed in topological order each
// block (§4.5).
package patchbay

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rtpatchbay/enginecore/internal/pluginadapter"
	"github.com/rtpatchbay/enginecore/internal/pool"
	"github.com/rtpatchbay/enginecore/internal/registry"
	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/rtpatchbay/enginecore/sdk/ids"
)

type nodeKind int

const (
	kindHWAudioIn nodeKind = iota
	kindHWAudioOut
	kindHWMidiIn
	kindHWMidiOut
	kindPlugin
)

// node is one vertex of the underlying graph: either one of the four
// built-in hardware endpoints or a plugin wrapped by pluginadapter.
type node struct {
	group    ids.GroupId
	kind     nodeKind
	name     string
	pluginID int32 // -1 for hardware nodes

	adapter *pluginadapter.Adapter

	audioInCount, audioOutCount uint32
	acceptsMidi, producesMidi   bool

	// inBuf/outBuf are this node's audio channels; a hardware source
	// node only populates outBuf, a hardware sink only reads inBuf.
	inBuf, outBuf []([]float32)
	midiIn        *pool.EventBuffer
	midiOut       *pool.EventBuffer
}

type edge struct {
	id       ids.ConnectionId
	srcGroup ids.GroupId
	srcCh    uint32
	dstGroup ids.GroupId
	dstCh    uint32
	midi     bool
}

// executionPlan is the audio thread's read-only view of the graph: a
// topological node order and the resolved edge list, rebuilt and
// atomically swapped in by the control thread on every structural
// change (§4.5, §9 build-then-swap).
type executionPlan struct {
	order []*node
	edges []edge
}

// Graph is the Patchbay topology processor.
type Graph struct {
	logger contracts.Logger
	reg    *registry.Registry
	host   contracts.HostCallback
	plane  ids.PatchbayPlane

	mu              sync.Mutex
	nodes           map[ids.GroupId]*node
	edges           []edge
	nextPluginGroup ids.GroupId
	nextPluginID    int32

	hwAudioIn, hwAudioOut, hwMidiIn, hwMidiOut *node

	bufferSize    int
	eventPoolSize int
	inputs, outputs int

	isOffline atomic.Bool
	plan      atomic.Pointer[executionPlan]
}

// SetOffline configures whether the engine is rendering offline, which
// relaxes Plugin.TryLock (via pluginadapter) to a blocking lock.
func (g *Graph) SetOffline(offline bool) { g.isOffline.Store(offline) }

// New builds a Patchbay graph with the four hardware nodes wired in
// and an initial (empty) execution plan.
func New(logger contracts.Logger, reg *registry.Registry, host contracts.HostCallback, maxPlugins, inputs, outputs, bufferSize, eventPoolSize int) *Graph {
	if inputs < 0 {
		inputs = 0
	}
	if outputs < 0 {
		outputs = 0
	}
	if cap := maxPlugins - 2; cap >= 0 {
		if inputs > cap {
			inputs = cap
		}
		if outputs > cap {
			outputs = cap
		}
	}

	g := &Graph{
		logger:          logger,
		reg:             reg,
		host:            host,
		plane:           ids.PatchbayPlane{N: uint32(maxPlugins)},
		nodes:           make(map[ids.GroupId]*node),
		nextPluginGroup: ids.FirstPluginGroup,
		bufferSize:      bufferSize,
		eventPoolSize:   eventPoolSize,
		inputs:          inputs,
		outputs:         outputs,
	}

	g.hwAudioIn = &node{group: ids.AudioIn, kind: kindHWAudioIn, name: "AudioIn", pluginID: -1, audioOutCount: uint32(inputs), outBuf: allocChannels(inputs, bufferSize)}
	g.hwAudioOut = &node{group: ids.AudioOut, kind: kindHWAudioOut, name: "AudioOut", pluginID: -1, audioInCount: uint32(outputs), inBuf: allocChannels(outputs, bufferSize)}
	g.hwMidiIn = &node{group: ids.MidiIn, kind: kindHWMidiIn, name: "MidiIn", pluginID: -1, producesMidi: true, midiOut: pool.NewEventBuffer(eventPoolSize)}
	g.hwMidiOut = &node{group: ids.MidiOut, kind: kindHWMidiOut, name: "MidiOut", pluginID: -1, acceptsMidi: true, midiIn: pool.NewEventBuffer(eventPoolSize)}

	for _, n := range []*node{g.hwAudioIn, g.hwAudioOut, g.hwMidiIn, g.hwMidiOut} {
		g.nodes[n.group] = n
	}

	plan, _ := g.buildPlan()
	g.plan.Store(plan)
	return g
}

func allocChannels(n, bufferSize int) [][]float32 {
	bufs := make([][]float32, n)
	for i := range bufs {
		bufs[i] = make([]float32, bufferSize)
	}
	return bufs
}

// SetBufferSize reallocates every node's audio channel buffers
// build-then-swap: new buffers are prepared before the old ones are
// dropped under lock, so the audio thread never observes a partially
// resized node (§9).
func (g *Graph) SetBufferSize(bufferSize int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bufferSize = bufferSize
	for _, n := range g.nodes {
		if len(n.inBuf) > 0 {
			n.inBuf = allocChannels(len(n.inBuf), bufferSize)
		}
		if len(n.outBuf) > 0 {
			n.outBuf = allocChannels(len(n.outBuf), bufferSize)
		}
	}
}

// --- node / topology management (control thread) ---

// AddPlugin wraps p in a node processor, assigns it a dense plugin id,
// and publishes PatchbayClientAdded + PatchbayPortAdded (§4.5).
func (g *Graph) AddPlugin(p contracts.Plugin) *pluginadapter.Adapter {
	g.mu.Lock()
	defer g.mu.Unlock()

	group := g.nextPluginGroup
	g.nextPluginGroup++
	pluginID := g.nextPluginID
	g.nextPluginID++

	a := pluginadapter.New(p)
	a.NodeID = uint32(group)

	n := &node{
		group: group, kind: kindPlugin, name: fmt.Sprintf("Plugin%d", pluginID),
		pluginID: pluginID, adapter: a,
		audioInCount: p.AudioInCount(), audioOutCount: p.AudioOutCount(),
		acceptsMidi: p.AcceptsMidi(), producesMidi: p.ProducesMidi(),
		inBuf: allocChannels(int(p.AudioInCount()), g.bufferSize), outBuf: allocChannels(int(p.AudioOutCount()), g.bufferSize),
		midiIn: pool.NewEventBuffer(g.eventPoolSize), midiOut: pool.NewEventBuffer(g.eventPoolSize),
	}
	g.nodes[group] = n
	g.rebuildPlanLocked()
	g.publishNode(n)
	return a
}

func (g *Graph) publishNode(n *node) {
	if g.host == nil {
		return
	}
	g.host.Notify(contracts.Event{Op: contracts.OpPatchbayClientAdded, GroupID: uint32(n.group), PluginID: n.pluginID, Name: n.name})
	for ch := uint32(0); ch < n.audioInCount; ch++ {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayPortAdded, GroupID: uint32(n.group), PortID: uint32(g.plane.Encode(0, ch)), Flags: contracts.PortFlagAudio | contracts.PortFlagInput, Name: fmt.Sprintf("in%d", ch+1)})
	}
	for ch := uint32(0); ch < n.audioOutCount; ch++ {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayPortAdded, GroupID: uint32(n.group), PortID: uint32(g.plane.Encode(1, ch)), Flags: contracts.PortFlagAudio, Name: fmt.Sprintf("out%d", ch+1)})
	}
	if n.acceptsMidi {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayPortAdded, GroupID: uint32(n.group), PortID: uint32(g.plane.Encode(2, 0)), Flags: contracts.PortFlagMidi | contracts.PortFlagInput, Name: "events-in"})
	}
	if n.producesMidi {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayPortAdded, GroupID: uint32(n.group), PortID: uint32(g.plane.Encode(3, 0)), Flags: contracts.PortFlagMidi, Name: "events-out"})
	}
}

// RemovePlugin disconnects the node's group, removes it, then
// re-indexes the pluginId property on every remaining plugin node so
// plugin ids stay dense [0, count) (§4.5).
func (g *Graph) RemovePlugin(a *pluginadapter.Adapter) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.findAdapterLocked(a)
	if !ok {
		return fmt.Errorf("%w", contracts.ErrPluginNotFound)
	}

	g.disconnectGroupRegistryOnlyLocked(n.group)
	g.removeNodeLocked(n.group)
	g.reindexPluginIDsLocked()
	if g.host != nil {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayClientRemoved, GroupID: uint32(n.group)})
	}
	return nil
}

// ReplacePlugin requires matching Plugin.ID(), removes the old node
// with its connections, and adds a new node that keeps the old node's
// group id and plugin id. Existing connections are not re-established
// (§4.5).
func (g *Graph) ReplacePlugin(old *pluginadapter.Adapter, newPlugin contracts.Plugin) (*pluginadapter.Adapter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	oldNode, ok := g.findAdapterLocked(old)
	if !ok {
		return nil, fmt.Errorf("%w", contracts.ErrPluginNotFound)
	}
	if newPlugin.ID() != old.Plugin.ID() {
		return nil, fmt.Errorf("%w", contracts.ErrPluginIDMismatch)
	}

	pluginID := oldNode.pluginID
	g.disconnectGroupRegistryOnlyLocked(oldNode.group)
	g.removeNodeLocked(oldNode.group)
	if g.host != nil {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayClientRemoved, GroupID: uint32(oldNode.group)})
	}

	group := oldNode.group
	a := pluginadapter.New(newPlugin)
	a.NodeID = uint32(group)
	n := &node{
		group: group, kind: kindPlugin, name: fmt.Sprintf("Plugin%d", pluginID),
		pluginID: pluginID, adapter: a,
		audioInCount: newPlugin.AudioInCount(), audioOutCount: newPlugin.AudioOutCount(),
		acceptsMidi: newPlugin.AcceptsMidi(), producesMidi: newPlugin.ProducesMidi(),
		inBuf: allocChannels(int(newPlugin.AudioInCount()), g.bufferSize), outBuf: allocChannels(int(newPlugin.AudioOutCount()), g.bufferSize),
		midiIn: pool.NewEventBuffer(g.eventPoolSize), midiOut: pool.NewEventBuffer(g.eventPoolSize),
	}
	g.nodes[group] = n
	g.rebuildPlanLocked()
	g.publishNode(n)
	return a, nil
}

func (g *Graph) findAdapterLocked(a *pluginadapter.Adapter) (*node, bool) {
	for _, n := range g.nodes {
		if n.adapter == a {
			return n, true
		}
	}
	return nil, false
}

// removeNodeLocked deletes the node and cascades removal of every edge
// touching its group (the underlying-graph side of disconnectGroup;
// the registry side is handled separately, see disconnectGroupRegistryOnlyLocked).
func (g *Graph) removeNodeLocked(group ids.GroupId) {
	delete(g.nodes, group)
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.srcGroup == group || e.dstGroup == group {
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	g.rebuildPlanLocked()
}

func (g *Graph) reindexPluginIDsLocked() {
	var plugins []*node
	for _, n := range g.nodes {
		if n.kind == kindPlugin {
			plugins = append(plugins, n)
		}
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].pluginID < plugins[j].pluginID })
	for i, n := range plugins {
		n.pluginID = int32(i)
	}
}

// disconnectGroupRegistryOnlyLocked removes every registry entry that
// touches gid and fires remove callbacks for each, without mutating
// the underlying graph: node removal (which follows immediately in
// every caller) cascades the edge cleanup on its own (§4.5, §9 Open
// Question resolution).
func (g *Graph) disconnectGroupRegistryOnlyLocked(gid ids.GroupId) {
	var removed []contracts.Connection
	for _, c := range g.reg.Snapshot() {
		if c.Touches(gid) {
			removed = append(removed, c)
		}
	}
	g.reg.RemoveIf(func(c contracts.Connection) bool { return c.Touches(gid) })
	if g.host != nil {
		for _, c := range removed {
			g.host.Notify(contracts.Event{Op: contracts.OpPatchbayConnectionRemoved, ConnectionID: uint32(c.ID)})
		}
	}
}

// --- connections ---

func (g *Graph) decodePort(group ids.GroupId, port ids.PortId) (*node, int, uint32, error) {
	n, ok := g.nodes[group]
	if !ok {
		return nil, 0, 0, fmt.Errorf("%w: unknown group %d", contracts.ErrInvalidArgument, group)
	}
	plane, ch := g.plane.Decode(port)
	switch {
	case ids.IsAudioIn(plane):
		if ch >= n.audioInCount {
			return nil, 0, 0, fmt.Errorf("%w: audio-in channel %d out of range", contracts.ErrInvalidArgument, ch)
		}
	case ids.IsAudioOut(plane):
		if ch >= n.audioOutCount {
			return nil, 0, 0, fmt.Errorf("%w: audio-out channel %d out of range", contracts.ErrInvalidArgument, ch)
		}
	case ids.IsMidiIn(plane):
		if !n.acceptsMidi {
			return nil, 0, 0, fmt.Errorf("%w: node does not accept midi", contracts.ErrInvalidArgument)
		}
	case ids.IsMidiOut(plane):
		if !n.producesMidi {
			return nil, 0, 0, fmt.Errorf("%w: node does not produce midi", contracts.ErrInvalidArgument)
		}
	default:
		return nil, 0, 0, fmt.Errorf("%w: port %d is not a valid patchbay plane encoding", contracts.ErrInvalidArgument, port)
	}
	return n, plane, ch, nil
}

// Connect decodes gA:pA → gB:pB, asks the underlying graph to add the
// edge, and on success records it in the registry and fires
// PatchbayConnectionAdded (§4.5).
func (g *Graph) Connect(gA ids.GroupId, pA ids.PortId, gB ids.GroupId, pB ids.PortId) (contracts.Connection, error) {
	g.mu.Lock()

	srcNode, srcPlane, srcCh, err := g.decodePort(gA, pA)
	if err != nil {
		g.mu.Unlock()
		return contracts.Connection{}, err
	}
	dstNode, dstPlane, dstCh, err := g.decodePort(gB, pB)
	if err != nil {
		g.mu.Unlock()
		return contracts.Connection{}, err
	}

	srcIsAudioOut, srcIsMidiOut := ids.IsAudioOut(srcPlane), ids.IsMidiOut(srcPlane)
	dstIsAudioIn, dstIsMidiIn := ids.IsAudioIn(dstPlane), ids.IsMidiIn(dstPlane)
	var midi bool
	switch {
	case srcIsAudioOut && dstIsAudioIn:
		midi = false
	case srcIsMidiOut && dstIsMidiIn:
		midi = true
	default:
		g.mu.Unlock()
		return contracts.Connection{}, fmt.Errorf("%w: incompatible port kinds", contracts.ErrInvalidArgument)
	}

	for _, e := range g.edges {
		if e.srcGroup == srcNode.group && e.srcCh == srcCh && e.dstGroup == dstNode.group && e.dstCh == dstCh && e.midi == midi {
			g.mu.Unlock()
			return contracts.Connection{}, fmt.Errorf("%w: connection already exists", contracts.ErrInvalidArgument)
		}
	}

	trial := append(append([]edge(nil), g.edges...), edge{srcGroup: srcNode.group, srcCh: srcCh, dstGroup: dstNode.group, dstCh: dstCh, midi: midi})
	if _, cycleErr := g.buildPlanFor(trial); cycleErr != nil {
		g.mu.Unlock()
		return contracts.Connection{}, fmt.Errorf("%w: would introduce a cycle", contracts.ErrInvalidArgument)
	}
	g.edges = trial
	g.rebuildPlanLocked()
	g.mu.Unlock()

	c := g.reg.Add(gA, pA, gB, pB)
	if g.host != nil {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayConnectionAdded, ConnectionID: uint32(c.ID), Payload: c.Payload()})
	}
	return c, nil
}

// Disconnect finds the connection by id in the registry, removes the
// matching edge from the underlying graph, removes the registry entry,
// and fires PatchbayConnectionRemoved (§4.5).
func (g *Graph) Disconnect(id ids.ConnectionId) error {
	c, ok := g.reg.FindByID(id)
	if !ok {
		return fmt.Errorf("%w", contracts.ErrConnectionNotFound)
	}

	g.mu.Lock()
	_, srcPlane, srcCh, err := g.decodePort(c.GroupA, c.PortA)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	_, _, dstCh, err := g.decodePort(c.GroupB, c.PortB)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	midi := ids.IsMidiOut(srcPlane)

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.srcGroup == c.GroupA && e.srcCh == srcCh && e.dstGroup == c.GroupB && e.dstCh == dstCh && e.midi == midi {
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	g.rebuildPlanLocked()
	g.mu.Unlock()

	g.reg.RemoveIf(func(existing contracts.Connection) bool { return existing.ID == id })
	if g.host != nil {
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayConnectionRemoved, ConnectionID: uint32(id)})
	}
	return nil
}

// RefreshConnections rebuilds observable state from the underlying
// graph's authoritative edges: clear the registry, drop illegal edges,
// republish every node (all clients, then all ports), then every edge
// with a freshly assigned ConnectionId (§4.5).
func (g *Graph) RefreshConnections() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.reg.Clear()

	kept := g.edges[:0]
	for _, e := range g.edges {
		if _, ok := g.nodes[e.srcGroup]; !ok {
			continue
		}
		if _, ok := g.nodes[e.dstGroup]; !ok {
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	g.rebuildPlanLocked()

	if g.host == nil {
		return
	}

	var groups []ids.GroupId
	for gid := range g.nodes {
		groups = append(groups, gid)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	for _, gid := range groups {
		g.publishNode(g.nodes[gid])
	}

	for _, e := range g.edges {
		srcPlane := 1
		dstPlane := 0
		if e.midi {
			srcPlane, dstPlane = 3, 2
		}
		gA, gB := e.srcGroup, e.dstGroup
		pA := g.plane.Encode(srcPlane, e.srcCh)
		pB := g.plane.Encode(dstPlane, e.dstCh)
		c := g.reg.Add(gA, pA, gB, pB)
		g.host.Notify(contracts.Event{Op: contracts.OpPatchbayConnectionAdded, ConnectionID: uint32(c.ID), Payload: c.Payload()})
	}
}

// Connections returns a snapshot of the active registry.
func (g *Graph) Connections() []contracts.Connection {
	return g.reg.Snapshot()
}

// FullName renders the "<processorName>:<channelName>" text form of
// §6.1 for a Patchbay port.
func (g *Graph) FullName(group ids.GroupId, port ids.PortId) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[group]
	if !ok {
		return "", fmt.Errorf("%w: unknown group %d", contracts.ErrInvalidArgument, group)
	}
	plane, ch := g.plane.Decode(port)
	switch {
	case ids.IsAudioIn(plane):
		return fmt.Sprintf("%s:in%d", n.name, ch+1), nil
	case ids.IsAudioOut(plane):
		return fmt.Sprintf("%s:out%d", n.name, ch+1), nil
	case ids.IsMidiIn(plane):
		return n.name + ":events-in", nil
	default:
		return n.name + ":events-out", nil
	}
}

// ParseFullName is the exact inverse of FullName.
func (g *Graph) ParseFullName(fullName string) (ids.GroupId, ids.PortId, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	parts := strings.SplitN(fullName, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: malformed full name %q", contracts.ErrInvalidArgument, fullName)
	}
	name, chName := parts[0], parts[1]

	var n *node
	var group ids.GroupId
	for gid, candidate := range g.nodes {
		if candidate.name == name {
			n, group = candidate, gid
			break
		}
	}
	if n == nil {
		return 0, 0, fmt.Errorf("%w: unknown processor %q", contracts.ErrInvalidArgument, name)
	}

	switch {
	case chName == "events-in":
		return group, g.plane.Encode(2, 0), nil
	case chName == "events-out":
		return group, g.plane.Encode(3, 0), nil
	case strings.HasPrefix(chName, "in"):
		ch, err := strconv.Atoi(chName[2:])
		if err != nil || ch < 1 {
			return 0, 0, fmt.Errorf("%w: invalid channel %q", contracts.ErrInvalidArgument, chName)
		}
		return group, g.plane.Encode(0, uint32(ch-1)), nil
	case strings.HasPrefix(chName, "out"):
		ch, err := strconv.Atoi(chName[3:])
		if err != nil || ch < 1 {
			return 0, 0, fmt.Errorf("%w: invalid channel %q", contracts.ErrInvalidArgument, chName)
		}
		return group, g.plane.Encode(1, uint32(ch-1)), nil
	default:
		return 0, 0, fmt.Errorf("%w: invalid channel name %q", contracts.ErrInvalidArgument, chName)
	}
}

// --- topological execution plan ---

func (g *Graph) buildPlan() (*executionPlan, error) {
	return g.buildPlanFor(g.edges)
}

func (g *Graph) buildPlanFor(edges []edge) (*executionPlan, error) {
	inDegree := make(map[ids.GroupId]int, len(g.nodes))
	adj := make(map[ids.GroupId][]ids.GroupId, len(g.nodes))
	for gid := range g.nodes {
		inDegree[gid] = 0
	}
	for _, e := range edges {
		inDegree[e.dstGroup]++
		adj[e.srcGroup] = append(adj[e.srcGroup], e.dstGroup)
	}

	var queue []ids.GroupId
	for gid, d := range inDegree {
		if d == 0 {
			queue = append(queue, gid)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	order := make([]*node, 0, len(g.nodes))
	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]
		order = append(order, g.nodes[gid])

		dsts := append([]ids.GroupId(nil), adj[gid]...)
		sort.Slice(dsts, func(i, j int) bool { return dsts[i] < dsts[j] })
		for _, dst := range dsts {
			inDegree[dst]--
			if inDegree[dst] == 0 {
				queue = append(queue, dst)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("patchbay: cycle detected in graph")
	}
	return &executionPlan{order: order, edges: append([]edge(nil), edges...)}, nil
}

func (g *Graph) rebuildPlanLocked() {
	plan, err := g.buildPlan()
	if err != nil {
		if g.logger != nil {
			g.logger.Error("patchbay: plan rebuild failed", g.logger.Field().Error("error", err))
		}
		return
	}
	g.plan.Store(plan)
}

// --- audio thread ---

// Process runs one block: stage hardware inputs and events.in, walk
// the execution plan in topological order accumulating edges and
// running plugin nodes, then collect the hardware sinks into outCh and
// eventsOut (§4.5).
func (g *Graph) Process(inCh, outCh [][]float32, eventsIn, eventsOut *pool.EventBuffer, nframes int) {
	plan := g.plan.Load()
	if plan == nil {
		return
	}

	for ch, buf := range g.hwAudioIn.outBuf {
		if ch < len(inCh) {
			copy(buf[:nframes], inCh[ch][:nframes])
		} else {
			zero(buf[:nframes])
		}
	}
	g.hwMidiIn.midiOut.Reset()
	for _, e := range eventsIn.Events() {
		g.hwMidiIn.midiOut.Append(e)
	}

	for _, n := range plan.order {
		if n == g.hwAudioIn || n == g.hwMidiIn {
			continue
		}
		for _, ch := range n.inBuf {
			zero(ch[:nframes])
		}
		if n.midiIn != nil {
			n.midiIn.Reset()
		}
	}

	for _, n := range plan.order {
		if n == g.hwAudioIn || n == g.hwMidiIn {
			continue
		}
		for _, e := range plan.edges {
			if e.dstGroup != n.group {
				continue
			}
			src := g.nodes[e.srcGroup]
			if e.midi {
				if src.midiOut == nil {
					continue
				}
				for _, ev := range src.midiOut.Events() {
					n.midiIn.Append(ev)
				}
				continue
			}
			if int(e.srcCh) >= len(src.outBuf) || int(e.dstCh) >= len(n.inBuf) {
				continue
			}
			srcBuf, dstBuf := src.outBuf[e.srcCh][:nframes], n.inBuf[e.dstCh][:nframes]
			for i := range dstBuf {
				dstBuf[i] += srcBuf[i]
			}
		}

		if n.kind == kindPlugin {
			n.adapter.Process(n.inBuf, n.outBuf, nframes, n.midiIn, n.midiOut, g.isOffline.Load())
		}
	}

	for ch, buf := range g.hwAudioOut.inBuf {
		if ch < len(outCh) {
			dst := outCh[ch][:nframes]
			for i, v := range buf[:nframes] {
				dst[i] += v
			}
		}
	}
	eventsOut.Reset()
	for _, e := range g.hwMidiOut.midiIn.Events() {
		eventsOut.Append(e)
	}
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
