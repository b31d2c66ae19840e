package patchbay

import (
	"testing"

	"github.com/rtpatchbay/enginecore/internal/pool"
	"github.com/rtpatchbay/enginecore/internal/registry"
	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/rtpatchbay/enginecore/sdk/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// gainPlugin is a minimal mono-or-stereo passthrough contracts.Plugin
// that scales every sample by gain.
type gainPlugin struct {
	id       uint32
	gain     float32
	audioIn  uint32
	audioOut uint32
	enabled  bool
}

func newGainPlugin(id uint32, channels uint32, gain float32) *gainPlugin {
	return &gainPlugin{id: id, gain: gain, audioIn: channels, audioOut: channels, enabled: true}
}

func (p *gainPlugin) ID() uint32                { return p.id }
func (p *gainPlugin) AudioInCount() uint32      { return p.audioIn }
func (p *gainPlugin) AudioOutCount() uint32     { return p.audioOut }
func (p *gainPlugin) AcceptsMidi() bool         { return false }
func (p *gainPlugin) ProducesMidi() bool        { return false }
func (p *gainPlugin) IsEnabled() bool           { return p.enabled }
func (p *gainPlugin) TryLock(offline bool) bool { return true }
func (p *gainPlugin) Unlock()                   {}
func (p *gainPlugin) InitBuffers()              {}

func (p *gainPlugin) Process(in, out [][]float32, cvIn, cvOut [][]float32, eventsIn, eventsOut contracts.EventBuffer, nframes int) {
	for c := range out {
		for i := 0; i < nframes; i++ {
			out[c][i] = in[c][i] * p.gain
		}
	}
}

func newTestGraph() (*Graph, *registry.Registry) {
	reg := registry.New()
	g := New(nil, reg, nil, 8, 2, 2, 64, 16)
	return g, reg
}

func TestPatchbayConnectAudioThroughPlugin(t *testing.T) {
	g, _ := newTestGraph()
	a := g.AddPlugin(newGainPlugin(1, 1, 2))

	plane := g.plane
	pluginGroup := ids.GroupId(a.NodeID)

	_, err := g.Connect(ids.AudioIn, plane.Encode(1, 0), pluginGroup, plane.Encode(0, 0))
	require.NoError(t, err)
	_, err = g.Connect(pluginGroup, plane.Encode(1, 0), ids.AudioOut, plane.Encode(0, 0))
	require.NoError(t, err)

	in := [][]float32{{1, 1}, make([]float32, 2)}
	out := [][]float32{make([]float32, 2), make([]float32, 2)}
	eventsIn := pool.NewEventBuffer(4)
	eventsOut := pool.NewEventBuffer(4)

	g.Process(in, out, eventsIn, eventsOut, 2)

	assert.Equal(t, float32(2), out[0][0])
	assert.Equal(t, float32(2), out[0][1])
}

func TestPatchbayConnectIncompatiblePortKindsRejected(t *testing.T) {
	g, _ := newTestGraph()
	plane := g.plane

	// a valid audio-out source paired with a valid midi-out
	// destination: both endpoints decode fine, but the kind check
	// must still reject the mix.
	_, err := g.Connect(ids.AudioIn, plane.Encode(1, 0), ids.MidiIn, plane.Encode(3, 0))
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestPatchbayConnectCycleRejected(t *testing.T) {
	g, _ := newTestGraph()
	plane := g.plane

	a := g.AddPlugin(newGainPlugin(1, 1, 1))
	b := g.AddPlugin(newGainPlugin(2, 1, 1))
	groupA, groupB := ids.GroupId(a.NodeID), ids.GroupId(b.NodeID)

	_, err := g.Connect(groupA, plane.Encode(1, 0), groupB, plane.Encode(0, 0))
	require.NoError(t, err)

	_, err = g.Connect(groupB, plane.Encode(1, 0), groupA, plane.Encode(0, 0))
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestPatchbayDuplicateConnectionRejected(t *testing.T) {
	g, _ := newTestGraph()
	plane := g.plane

	_, err := g.Connect(ids.AudioIn, plane.Encode(1, 0), ids.AudioOut, plane.Encode(0, 0))
	require.NoError(t, err)

	_, err = g.Connect(ids.AudioIn, plane.Encode(1, 0), ids.AudioOut, plane.Encode(0, 0))
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestPatchbayDisconnectRemovesEdge(t *testing.T) {
	g, _ := newTestGraph()
	plane := g.plane

	c, err := g.Connect(ids.AudioIn, plane.Encode(1, 0), ids.AudioOut, plane.Encode(0, 0))
	require.NoError(t, err)
	require.NoError(t, g.Disconnect(c.ID))

	assert.Empty(t, g.Connections())

	// re-connecting after disconnect must succeed (no stale edge left
	// behind).
	_, err = g.Connect(ids.AudioIn, plane.Encode(1, 0), ids.AudioOut, plane.Encode(0, 0))
	assert.NoError(t, err)
}

func TestPatchbayRemovePluginReindexesIDs(t *testing.T) {
	g, _ := newTestGraph()
	a := g.AddPlugin(newGainPlugin(10, 1, 1))
	b := g.AddPlugin(newGainPlugin(20, 1, 1))
	_ = a

	require.NoError(t, g.RemovePlugin(a))

	n, ok := g.findAdapterLocked(b)
	require.True(t, ok)
	assert.Equal(t, int32(0), n.pluginID)
}

func TestPatchbayRemovePluginPrunesConnections(t *testing.T) {
	g, _ := newTestGraph()
	plane := g.plane
	a := g.AddPlugin(newGainPlugin(1, 1, 1))
	groupA := ids.GroupId(a.NodeID)

	_, err := g.Connect(ids.AudioIn, plane.Encode(1, 0), groupA, plane.Encode(0, 0))
	require.NoError(t, err)
	require.Len(t, g.Connections(), 1)

	require.NoError(t, g.RemovePlugin(a))
	assert.Empty(t, g.Connections())
}

func TestPatchbayFullNameRoundTrip(t *testing.T) {
	g, _ := newTestGraph()
	plane := g.plane

	port := plane.Encode(0, 0)
	name, err := g.FullName(ids.AudioIn, port)
	require.NoError(t, err)
	assert.Equal(t, "AudioIn:in1", name)

	group, decodedPort, err := g.ParseFullName(name)
	require.NoError(t, err)
	assert.Equal(t, ids.AudioIn, group)
	assert.Equal(t, port, decodedPort)
}

func TestPatchbayFullNameMidiPorts(t *testing.T) {
	g, _ := newTestGraph()

	name, err := g.FullName(ids.MidiIn, g.plane.Encode(3, 0))
	require.NoError(t, err)
	assert.Equal(t, "MidiIn:events-out", name)

	group, port, err := g.ParseFullName("MidiOut:events-in")
	require.NoError(t, err)
	assert.Equal(t, ids.MidiOut, group)
	assert.Equal(t, g.plane.Encode(2, 0), port)
}

func TestPatchbayRefreshConnectionsIsIdempotent(t *testing.T) {
	g, _ := newTestGraph()
	plane := g.plane
	_, err := g.Connect(ids.AudioIn, plane.Encode(1, 0), ids.AudioOut, plane.Encode(0, 0))
	require.NoError(t, err)

	before := g.Connections()
	g.RefreshConnections()
	after := g.Connections()

	require.Len(t, before, 1)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].GroupA, after[0].GroupA)
	assert.Equal(t, before[0].PortA, after[0].PortA)
	assert.Equal(t, before[0].GroupB, after[0].GroupB)
	assert.Equal(t, before[0].PortB, after[0].PortB)

	g.RefreshConnections()
	assert.Len(t, g.Connections(), 1)
}

// TestPatchbayFullNameProperty checks that FullName/ParseFullName form
// an exact inverse pair for every audio channel on the built-in hardware
// nodes (§8 name/id symmetry).
func TestPatchbayFullNameProperty(t *testing.T) {
	g, _ := newTestGraph()

	rapid.Check(t, func(rt *rapid.T) {
		group := rapid.SampledFrom([]ids.GroupId{ids.AudioIn, ids.AudioOut}).Draw(rt, "group")
		ch := rapid.Uint32Range(0, 1).Draw(rt, "ch")

		plane := 0
		if group == ids.AudioOut {
			plane = 1
		}
		port := g.plane.Encode(plane, ch)

		name, err := g.FullName(group, port)
		if err != nil {
			rt.Fatalf("FullName: %v", err)
		}
		gotGroup, gotPort, err := g.ParseFullName(name)
		if err != nil {
			rt.Fatalf("ParseFullName(%q): %v", name, err)
		}
		if gotGroup != group || gotPort != port {
			rt.Fatalf("round trip mismatch: (%v,%v) -> %q -> (%v,%v)", group, port, name, gotGroup, gotPort)
		}
	})
}
