package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRackFullNameRoundTrip(t *testing.T) {
	name, err := RackFullName(Carla, RackAudioIn1, "")
	require.NoError(t, err)
	assert.Equal(t, "Carla:AudioIn1", name)

	group, port, _, err := ParseRackFullName(name)
	require.NoError(t, err)
	assert.Equal(t, Carla, group)
	assert.Equal(t, RackAudioIn1, port)
}

func TestRackFullNameExternalNameRequired(t *testing.T) {
	_, err := RackFullName(AudioIn, 1, "")
	assert.Error(t, err)
}

func TestRackFullNameAudioChannelRoundTrip(t *testing.T) {
	name, err := RackFullName(AudioOut, 2, "2")
	require.NoError(t, err)
	assert.Equal(t, "AudioOut:2", name)

	group, port, ext, err := ParseRackFullName(name)
	require.NoError(t, err)
	assert.Equal(t, AudioOut, group)
	assert.Equal(t, PortId(2), port)
	assert.Equal(t, "2", ext)
}

func TestRackFullNameMidiDeviceRoundTrip(t *testing.T) {
	name, err := RackFullName(MidiIn, 0, "My Keyboard")
	require.NoError(t, err)
	assert.Equal(t, "MidiIn:My Keyboard", name)

	group, _, ext, err := ParseRackFullName(name)
	require.NoError(t, err)
	assert.Equal(t, MidiIn, group)
	assert.Equal(t, "My Keyboard", ext)
}

func TestParseRackFullNameRejectsMalformed(t *testing.T) {
	_, _, _, err := ParseRackFullName("nocolonhere")
	assert.Error(t, err)

	_, _, _, err = ParseRackFullName("UnknownGroup:thing")
	assert.Error(t, err)

	_, _, _, err = ParseRackFullName("Carla:NotAPort")
	assert.Error(t, err)
}

func TestPatchbayPlaneRoundTrip(t *testing.T) {
	p := PatchbayPlane{N: 8}

	for ch := uint32(0); ch < p.N; ch++ {
		port := p.Encode(planeAudioIn, ch)
		plane, decodedCh := p.Decode(port)
		assert.True(t, IsAudioIn(plane))
		assert.Equal(t, ch, decodedCh)
	}

	for ch := uint32(0); ch < p.N; ch++ {
		port := p.Encode(planeAudioOut, ch)
		plane, decodedCh := p.Decode(port)
		assert.True(t, IsAudioOut(plane))
		assert.Equal(t, ch, decodedCh)
	}

	midiIn := p.Encode(planeMidiIn, 0)
	plane, _ := p.Decode(midiIn)
	assert.True(t, IsMidiIn(plane))

	midiOut := p.Encode(planeMidiOut, 0)
	plane, _ = p.Decode(midiOut)
	assert.True(t, IsMidiOut(plane))
}

// TestPatchbayPlaneMatchesSpecOffsets pins the literal numeric scheme
// spec.md §3 specifies: AIn occupies [N, 2N), AOut occupies [2N, 3N),
// MIn is exactly 3N, MOut is exactly 3N+1, and [0, N) is left free for
// the underlying graph's raw channel indices (§6) rather than claimed
// by AIn.
func TestPatchbayPlaneMatchesSpecOffsets(t *testing.T) {
	p := PatchbayPlane{N: 8}

	assert.Equal(t, PortId(8), p.Encode(planeAudioIn, 0))
	assert.Equal(t, PortId(15), p.Encode(planeAudioIn, 7))
	assert.Equal(t, PortId(16), p.Encode(planeAudioOut, 0))
	assert.Equal(t, PortId(23), p.Encode(planeAudioOut, 7))
	assert.Equal(t, PortId(24), p.Encode(planeMidiIn, 0))
	assert.Equal(t, PortId(25), p.Encode(planeMidiOut, 0))

	// [0, N) is not a valid plane encoding: it is reserved for the
	// underlying graph's raw channel indices, never produced by Encode.
	for raw := uint32(0); raw < p.N; raw++ {
		plane, _ := p.Decode(PortId(raw))
		assert.Equal(t, planeInvalid, plane, "raw channel index %d must not decode as a plane", raw)
	}
}

// TestPatchbayPlaneEncodeDecodeProperty exercises the encode/decode
// bijection across arbitrary N and channel indices (§8 name/id
// symmetry).
func TestPatchbayPlaneEncodeDecodeProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.Uint32Range(1, 256).Draw(rt, "n")
		p := PatchbayPlane{N: n}

		plane := rapid.SampledFrom([]int{planeAudioIn, planeAudioOut, planeMidiIn, planeMidiOut}).Draw(rt, "plane")
		var ch uint32
		if plane == planeAudioIn || plane == planeAudioOut {
			ch = rapid.Uint32Range(0, n-1).Draw(rt, "ch")
		}

		port := p.Encode(plane, ch)
		decodedPlane, decodedCh := p.Decode(port)

		if decodedPlane != plane {
			rt.Fatalf("plane mismatch: got %d, want %d (n=%d port=%d)", decodedPlane, plane, n, port)
		}
		if plane == planeAudioIn || plane == planeAudioOut {
			if decodedCh != ch {
				rt.Fatalf("channel mismatch: got %d, want %d", decodedCh, ch)
			}
		}
	})
}
