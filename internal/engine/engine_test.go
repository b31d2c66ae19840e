package engine

import (
	"testing"

	"github.com/rtpatchbay/enginecore/internal/logging"
	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/rtpatchbay/enginecore/sdk/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMidiInPort/fakeMidiOutPort are minimal contracts.MidiInPort/
// MidiOutPort doubles that record Send calls and Close.
type fakeMidiInPort struct {
	name   string
	closed bool
}

func (p *fakeMidiInPort) Name() string { return p.name }
func (p *fakeMidiInPort) Close() error { p.closed = true; return nil }

type fakeMidiOutPort struct {
	name   string
	closed bool
	sent   [][]byte
}

func (p *fakeMidiOutPort) Name() string { return p.name }
func (p *fakeMidiOutPort) Close() error { p.closed = true; return nil }
func (p *fakeMidiOutPort) Send(data []byte, offset float64) error {
	p.sent = append(p.sent, append([]byte(nil), data...))
	return nil
}

// fakeDriver is a contracts.Driver double that runs its audio callback
// only when tick is called explicitly, and lets tests control MIDI
// port opening outcomes.
type fakeDriver struct {
	bufferSize int
	sampleRate float64
	cb         contracts.AudioCallback

	ins, outs    []contracts.DeviceInfo
	failConnectIn, failConnectOut bool
	sink         contracts.MidiSink

	stopped bool
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Start(cb contracts.AudioCallback) error {
	d.cb = cb
	return nil
}

func (d *fakeDriver) Stop() error { d.stopped = true; return nil }

func (d *fakeDriver) BufferSize() int     { return d.bufferSize }
func (d *fakeDriver) SampleRate() float64 { return d.sampleRate }

func (d *fakeDriver) SetBufferSize(bs int) error { d.bufferSize = bs; return nil }
func (d *fakeDriver) SetSampleRate(sr float64) error { d.sampleRate = sr; return nil }

func (d *fakeDriver) MidiIns() ([]contracts.DeviceInfo, error)  { return d.ins, nil }
func (d *fakeDriver) MidiOuts() ([]contracts.DeviceInfo, error) { return d.outs, nil }

func (d *fakeDriver) ConnectIn(name string, sink contracts.MidiSink) (contracts.MidiInPort, error) {
	if d.failConnectIn {
		return nil, assert.AnError
	}
	d.sink = sink
	return &fakeMidiInPort{name: name}, nil
}

func (d *fakeDriver) ConnectOut(name string) (contracts.MidiOutPort, error) {
	if d.failConnectOut {
		return nil, assert.AnError
	}
	return &fakeMidiOutPort{name: name}, nil
}

// tick invokes the registered audio callback directly, as the real
// driver would from its realtime thread.
func (d *fakeDriver) tick(in, out [][]float32, nframes int) {
	d.cb(in, out, nframes)
}

var _ contracts.Driver = (*fakeDriver)(nil)

func newTestEngine(t *testing.T, opts ...contracts.Option) (*Engine, *fakeDriver) {
	t.Helper()
	fd := &fakeDriver{bufferSize: 4, sampleRate: 48000}
	base := []contracts.Option{
		contracts.WithLogger(logging.NewStandardLogger()),
		contracts.WithDriver(fd),
		contracts.WithBufferSize(4),
		contracts.WithChannels(2, 2),
		contracts.WithEventPoolSize(16),
		contracts.WithMidiPoolSize(16),
	}
	e, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return e, fd
}

func TestEngineNewRequiresLogger(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestEngineNewAppliesDefaults(t *testing.T) {
	e, err := New(contracts.WithLogger(logging.NewStandardLogger()))
	require.NoError(t, err)
	assert.Equal(t, contracts.TopologyRack, e.opts.Topology)
	assert.Equal(t, 48000.0, e.opts.SampleRate)
	assert.Equal(t, 512, e.opts.BufferSize)
	assert.Equal(t, "dummy", e.CurrentDriverName())
}

func TestEngineInitStartsRackTopology(t *testing.T) {
	e, fd := newTestEngine(t)
	require.True(t, e.Init("test"))
	require.NotNil(t, fd.cb)
	assert.True(t, e.IsRunning())
}

func TestEngineInitStartsPatchbayTopology(t *testing.T) {
	e, _ := newTestEngine(t, contracts.WithTopology(contracts.TopologyPatchbay), contracts.WithMaxPlugins(8))
	require.True(t, e.Init("test"))
	assert.True(t, e.IsRunning())

	// patchbay starts with no connections until the caller wires them.
	assert.Empty(t, e.GetPatchbayConnections())
}

func TestEngineCloseStopsDriverAndReportsNotRunning(t *testing.T) {
	e, fd := newTestEngine(t)
	require.True(t, e.Init("test"))
	require.True(t, e.Close())
	assert.True(t, fd.stopped)
	assert.False(t, e.IsRunning())
}

func TestEngineRackConnectAndDisconnectMidiPorts(t *testing.T) {
	e, fd := newTestEngine(t)
	require.True(t, e.Init("test"))

	require.NoError(t, e.ConnectRackMidiInPort("Keyboard"))
	require.NotNil(t, fd.sink)

	// a second connect while one is active must fail.
	assert.ErrorIs(t, e.ConnectRackMidiInPort("Other"), contracts.ErrInvalidArgument)

	require.NoError(t, e.DisconnectRackMidiInPort())
	// disconnecting again is a no-op.
	assert.NoError(t, e.DisconnectRackMidiInPort())
}

func TestEngineRackConnectMidiInFailurePropagates(t *testing.T) {
	fd := &fakeDriver{bufferSize: 4, sampleRate: 48000, failConnectIn: true}
	e, err := New(
		contracts.WithLogger(logging.NewStandardLogger()),
		contracts.WithDriver(fd),
		contracts.WithBufferSize(4),
	)
	require.NoError(t, err)
	require.True(t, e.Init("test"))

	assert.Error(t, e.ConnectRackMidiInPort("Keyboard"))
}

func TestEngineOnDeviceMidiFeedsStagingForNextBlock(t *testing.T) {
	e, fd := newTestEngine(t)
	require.True(t, e.Init("test"))
	require.NoError(t, e.ConnectRackMidiOutPort("Synth"))

	require.NoError(t, e.ConnectRackMidiInPort("Keyboard"))
	fd.sink([]byte{0x90, 60, 100}, 0)

	in := [][]float32{make([]float32, 4), make([]float32, 4)}
	out := [][]float32{make([]float32, 4), make([]float32, 4)}
	fd.tick(in, out, 4)

	// with no plugins in the Rack chain the staged note is drained into
	// this block and passed straight through to the MIDI-out dispatch,
	// while the unrouted audio outputs stay silent.
	assert.Equal(t, [][]byte{{0x90, 60, 100}}, e.midiOutPort.(*fakeMidiOutPort).sent)
	for _, ch := range out {
		for _, s := range ch {
			assert.Equal(t, float32(0), s)
		}
	}
}

func TestEngineProcessBlockRendersSilenceWhenNotReady(t *testing.T) {
	e, fd := newTestEngine(t)
	require.True(t, e.Init("test"))
	e.isReady.Store(false)

	in := [][]float32{{1, 1, 1, 1}, {1, 1, 1, 1}}
	out := [][]float32{{9, 9, 9, 9}, {9, 9, 9, 9}}
	fd.tick(in, out, 4)

	for _, ch := range out {
		for _, s := range ch {
			assert.Equal(t, float32(0), s)
		}
	}
}

func TestEngineSetBufferSizeDelegatesToDriver(t *testing.T) {
	e, fd := newTestEngine(t)
	require.True(t, e.Init("test"))

	require.NoError(t, e.SetBufferSize(8))
	assert.Equal(t, 8, fd.bufferSize)
	assert.Equal(t, 8, e.opts.BufferSize)
	assert.True(t, e.isReady.Load())
}

func TestEngineSetSampleRateDelegatesToDriver(t *testing.T) {
	e, fd := newTestEngine(t)
	require.True(t, e.Init("test"))

	require.NoError(t, e.SetSampleRate(44100))
	assert.Equal(t, 44100.0, fd.sampleRate)
}

func TestEnginePatchbayConnectAndRestoreRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t, contracts.WithTopology(contracts.TopologyPatchbay), contracts.WithMaxPlugins(8))
	require.True(t, e.Init("test"))

	plane := ids.PatchbayPlane{N: 8}
	_, err := e.PatchbayConnect(ids.AudioIn, plane.Encode(1, 0), ids.AudioOut, plane.Encode(0, 0))
	require.NoError(t, err)

	pairs := e.GetPatchbayConnections()
	require.Len(t, pairs, 2)

	conns := e.patchGraph.Connections()
	require.Len(t, conns, 1)
	require.NoError(t, e.PatchbayDisconnect(conns[0].ID))
	assert.Empty(t, e.GetPatchbayConnections())

	require.NoError(t, e.RestorePatchbayConnection(pairs[0], pairs[1]))
	assert.Len(t, e.GetPatchbayConnections(), 2)
}

func TestEnginePatchbayRefreshRejectsExternal(t *testing.T) {
	e, _ := newTestEngine(t, contracts.WithTopology(contracts.TopologyPatchbay))
	require.True(t, e.Init("test"))
	assert.ErrorIs(t, e.PatchbayRefresh(true), contracts.ErrUnsupportedDriver)
	assert.NoError(t, e.PatchbayRefresh(false))
}

func TestEngineSetOfflinePropagatesToActiveGraph(t *testing.T) {
	e, _ := newTestEngine(t)
	require.True(t, e.Init("test"))
	e.SetOffline(true)
	assert.True(t, e.IsOffline())
}
