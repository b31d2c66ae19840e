// Package ids defines the small-integer identifier scheme shared by the
// Rack and Patchbay graphs: group ids, port ids, connection ids, and the
// text encodings a control thread uses to refer to them by name.
package ids

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupId names a client in the topology. The five built-in groups are
// fixed across both Rack and Patchbay mode; plugin nodes in Patchbay
// mode are assigned ids starting at FirstPluginGroup.
type GroupId uint32

const (
	InvalidGroup GroupId = 0
	Carla        GroupId = 1
	AudioIn      GroupId = 2
	AudioOut     GroupId = 3
	MidiIn       GroupId = 4
	MidiOut      GroupId = 5

	// FirstPluginGroup is the first id the Patchbay graph may assign to
	// a dynamically added plugin node.
	FirstPluginGroup GroupId = 6
)

func (g GroupId) String() string {
	switch g {
	case Carla:
		return "Carla"
	case AudioIn:
		return "AudioIn"
	case AudioOut:
		return "AudioOut"
	case MidiIn:
		return "MidiIn"
	case MidiOut:
		return "MidiOut"
	default:
		return strconv.FormatUint(uint64(g), 10)
	}
}

// PortId is unique within its owning group.
type PortId uint32

// Rack's fixed port ids (§3).
const (
	RackAudioIn1  PortId = 1
	RackAudioIn2  PortId = 2
	RackAudioOut1 PortId = 3
	RackAudioOut2 PortId = 4
	RackMidiIn    PortId = 5
	RackMidiOut   PortId = 6
)

// ConnectionId is a monotonic counter; 0 is reserved for "invalid".
type ConnectionId uint32

const InvalidConnection ConnectionId = 0

// --- Rack full-name codec (§6.1) ---

// RackFullName renders the "Group:Port" text form for a Rack port.
// extName is only used for AudioIn/AudioOut (1-based channel index) and
// MidiIn/MidiOut (device name); it is ignored for Carla ports.
func RackFullName(group GroupId, port PortId, extName string) (string, error) {
	switch group {
	case Carla:
		name, ok := carlaPortNames[port]
		if !ok {
			return "", fmt.Errorf("ids: invalid carla port %d", port)
		}
		return "Carla:" + name, nil
	case AudioIn, AudioOut, MidiIn, MidiOut:
		if extName == "" {
			return "", fmt.Errorf("ids: external name required for group %s", group)
		}
		return group.String() + ":" + extName, nil
	default:
		return "", fmt.Errorf("ids: invalid rack group %d", group)
	}
}

var carlaPortNames = map[PortId]string{
	RackAudioIn1:  "AudioIn1",
	RackAudioIn2:  "AudioIn2",
	RackAudioOut1: "AudioOut1",
	RackAudioOut2: "AudioOut2",
	RackMidiIn:    "MidiIn",
	RackMidiOut:   "MidiOut",
}

var carlaNamePorts = func() map[string]PortId {
	m := make(map[string]PortId, len(carlaPortNames))
	for id, name := range carlaPortNames {
		m[name] = id
	}
	return m
}()

// ParseRackFullName decodes a "Group:Port" string produced by
// RackFullName into (group, port, extName). extName is empty for Carla
// ports, a 1-based channel number for AudioIn/AudioOut ("as text" in
// ext, caller parses with strconv if a numeric port id is required),
// and the device name for MidiIn/MidiOut. For MidiIn/MidiOut the
// returned port is 0: the port id is assigned when the device is
// announced, so the caller resolves extName to it.
func ParseRackFullName(fullName string) (group GroupId, port PortId, extName string, err error) {
	parts := strings.SplitN(fullName, ":", 2)
	if len(parts) != 2 {
		return 0, 0, "", fmt.Errorf("ids: malformed full name %q", fullName)
	}
	groupStr, rest := parts[0], parts[1]

	switch groupStr {
	case "Carla":
		p, ok := carlaNamePorts[rest]
		if !ok {
			return 0, 0, "", fmt.Errorf("ids: unknown carla port %q", rest)
		}
		return Carla, p, "", nil
	case "AudioIn":
		n, perr := strconv.Atoi(rest)
		if perr != nil || n < 1 {
			return 0, 0, "", fmt.Errorf("ids: invalid AudioIn channel %q", rest)
		}
		return AudioIn, PortId(n), rest, nil
	case "AudioOut":
		n, perr := strconv.Atoi(rest)
		if perr != nil || n < 1 {
			return 0, 0, "", fmt.Errorf("ids: invalid AudioOut channel %q", rest)
		}
		return AudioOut, PortId(n), rest, nil
	case "MidiIn":
		return MidiIn, 0, rest, nil
	case "MidiOut":
		return MidiOut, 0, rest, nil
	default:
		return 0, 0, "", fmt.Errorf("ids: unknown group %q", groupStr)
	}
}

// --- Patchbay port-plane encoding (§3, §4.5) ---

// PatchbayPlane offsets encode a port's (audio/midi, in/out) kind into a
// single PortId given a per-engine max-plugins constant N, so that
// (group, port) alone distinguishes every port kind without a separate
// type field.
type PatchbayPlane struct {
	N uint32
}

const (
	planeInvalid  = -1
	planeAudioIn  = 0
	planeAudioOut = 1
	planeMidiIn   = 2
	planeMidiOut  = 3
)

// Encode returns the PortId for channel index ch (0-based) of the given
// plane on a node, per the §3 offsets: AIn occupies [N, 2N), AOut
// occupies [2N, 3N), MIn is the single id 3N, MOut is 3N+1. [0, N) is
// deliberately left unencoded here — it is the underlying graph's raw
// channel-index space (§6), not a Patchbay-plane port id.
func (p PatchbayPlane) Encode(plane int, ch uint32) PortId {
	switch plane {
	case planeAudioIn:
		return PortId(p.N + ch)
	case planeAudioOut:
		return PortId(2*p.N + ch)
	case planeMidiIn:
		return PortId(3 * p.N)
	case planeMidiOut:
		return PortId(3*p.N + 1)
	default:
		panic("ids: invalid patchbay plane")
	}
}

// Decode returns the plane and channel index encoded in a PortId. A
// port below N falls outside the plane scheme (it is the raw-channel
// range §3 reserves for internal use) and decodes as planeInvalid.
func (p PatchbayPlane) Decode(port PortId) (plane int, ch uint32) {
	v := uint32(port)
	switch {
	case v == 3*p.N:
		return planeMidiIn, 0
	case v == 3*p.N+1:
		return planeMidiOut, 0
	case v >= 2*p.N:
		return planeAudioOut, v - 2*p.N
	case v >= p.N:
		return planeAudioIn, v - p.N
	default:
		return planeInvalid, 0
	}
}

// IsAudioIn, IsAudioOut, IsMidiIn, IsMidiOut classify a decoded plane.
func IsAudioIn(plane int) bool  { return plane == planeAudioIn }
func IsAudioOut(plane int) bool { return plane == planeAudioOut }
func IsMidiIn(plane int) bool   { return plane == planeMidiIn }
func IsMidiOut(plane int) bool  { return plane == planeMidiOut }
