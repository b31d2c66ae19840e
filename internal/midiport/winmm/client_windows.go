//go:build windows
// +build windows

// Package winmm adapts the Windows winmm.dll MIDI API to
// contracts.MidiOpener, grounded on the teacher's
// internal/midi/midiwindows/client_windows.go (same
// NewLazySystemDLL/NewProc/midiInOpen/midiInStart pattern),
// generalised to open-by-name for both input and output ports and to
// drop the single captured-client-per-process shape in favour of one
// port per name (§4.6).
package winmm

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"golang.org/x/sys/windows"
)

const (
	callbackFunction = 0x00030000
	midiIOStatus     = 0x00000020

	mimOpen  = 0x3C1
	mimClose = 0x3C2
	mimData  = 0x3C3
)

type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

var (
	winmmDLL                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs    = winmmDLL.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps    = winmmDLL.NewProc("midiInGetDevCapsW")
	procMidiInOpen          = winmmDLL.NewProc("midiInOpen")
	procMidiInStart         = winmmDLL.NewProc("midiInStart")
	procMidiInStop          = winmmDLL.NewProc("midiInStop")
	procMidiInClose         = winmmDLL.NewProc("midiInClose")
	procMidiOutGetNumDevs   = winmmDLL.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps   = winmmDLL.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen         = winmmDLL.NewProc("midiOutOpen")
	procMidiOutShortMsg     = winmmDLL.NewProc("midiOutShortMsg")
	procMidiOutClose        = winmmDLL.NewProc("midiOutClose")
)

type opener struct {
	logger contracts.Logger
}

// NewOpener returns a winmm-backed contracts.MidiOpener.
func NewOpener(logger contracts.Logger) (contracts.MidiOpener, error) {
	logger.Info("winmm opener ready")
	return &opener{logger: logger}, nil
}

func (o *opener) ListIns() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	n := uint32(r0)
	out := make([]contracts.DeviceInfo, 0, n)
	for i := uint32(0); i < n; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(uintptr(i), uintptr(unsafe.Pointer(&caps)), unsafe.Sizeof(caps))
		if r1 != 0 {
			continue
		}
		name := windows.UTF16ToString(caps.szPname[:])
		out = append(out, contracts.DeviceInfo{Name: name, EntityName: name, Manufacturer: fmt.Sprintf("MID:%d PID:%d", caps.wMid, caps.wPid), IsInput: true})
	}
	return out, nil
}

func (o *opener) ListOuts() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	n := uint32(r0)
	out := make([]contracts.DeviceInfo, 0, n)
	for i := uint32(0); i < n; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(uintptr(i), uintptr(unsafe.Pointer(&caps)), unsafe.Sizeof(caps))
		if r1 != 0 {
			continue
		}
		name := windows.UTF16ToString(caps.szPname[:])
		out = append(out, contracts.DeviceInfo{Name: name, EntityName: name, Manufacturer: fmt.Sprintf("MID:%d PID:%d", caps.wMid, caps.wPid)})
	}
	return out, nil
}

func (o *opener) indexOfIn(name string) (uint32, error) {
	devices, err := o.ListIns()
	if err != nil {
		return 0, err
	}
	for i, d := range devices {
		if d.Name == name {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("winmm: no MIDI input device named %q", name)
}

func (o *opener) indexOfOut(name string) (uint32, error) {
	devices, err := o.ListOuts()
	if err != nil {
		return 0, err
	}
	for i, d := range devices {
		if d.Name == name {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("winmm: no MIDI output device named %q", name)
}

// inPortRegistry maps a live handle back to its sink so the single
// process-wide callback (winmm requires a plain function pointer) can
// dispatch without depending on the dwInstance payload surviving GC.
var (
	inPortMu  sync.Mutex
	inPortMap = map[windows.Handle]contracts.MidiSink{}
)

type inPort struct {
	name   string
	handle windows.Handle
	closed atomic.Bool
}

func (p *inPort) Name() string { return p.name }

func (p *inPort) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	procMidiInStop.Call(uintptr(p.handle))
	r1, _, _ := procMidiInClose.Call(uintptr(p.handle))
	inPortMu.Lock()
	delete(inPortMap, p.handle)
	inPortMu.Unlock()
	if r1 != 0 {
		return fmt.Errorf("winmm: midiInClose failed: %d", r1)
	}
	return nil
}

func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, _ uintptr) uintptr {
	if wMsg != mimData {
		return 0
	}
	inPortMu.Lock()
	sink, ok := inPortMap[windows.Handle(hMidiIn)]
	inPortMu.Unlock()
	if !ok {
		return 0
	}
	status := byte(dwParam1 & 0xFF)
	data1 := byte((dwParam1 >> 8) & 0xFF)
	data2 := byte((dwParam1 >> 16) & 0xFF)
	sink([]byte{status, data1, data2}, uint64(dwInstance))
	return 0
}

// OpenIn opens a device-level input port by name and forwards received
// short messages to sink.
func (o *opener) OpenIn(name string, sink contracts.MidiSink) (contracts.MidiInPort, error) {
	idx, err := o.indexOfIn(name)
	if err != nil {
		return nil, err
	}

	var handle windows.Handle
	cb := windows.NewCallback(midiInCallback)
	r1, _, callErr := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(idx),
		cb,
		0,
		uintptr(callbackFunction|midiIOStatus),
	)
	if r1 != 0 {
		return nil, fmt.Errorf("winmm: midiInOpen %q: %v", name, callErr)
	}

	inPortMu.Lock()
	inPortMap[handle] = sink
	inPortMu.Unlock()

	if r1, _, _ := procMidiInStart.Call(uintptr(handle)); r1 != 0 {
		return nil, fmt.Errorf("winmm: midiInStart %q failed: %d", name, r1)
	}
	return &inPort{name: name, handle: handle}, nil
}

type outPort struct {
	name   string
	handle windows.Handle
	closed atomic.Bool
}

func (p *outPort) Name() string { return p.name }

func (p *outPort) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	r1, _, _ := procMidiOutClose.Call(uintptr(p.handle))
	if r1 != 0 {
		return fmt.Errorf("winmm: midiOutClose failed: %d", r1)
	}
	return nil
}

// Send dispatches a short (≤3 byte) MIDI message; winmm has no native
// sysex-by-offset primitive here, so longer messages are rejected.
func (p *outPort) Send(data []byte, _ float64) error {
	if p.closed.Load() {
		return fmt.Errorf("winmm: output %q is closed", p.name)
	}
	if len(data) == 0 || len(data) > 3 {
		return fmt.Errorf("winmm: unsupported message length %d", len(data))
	}
	var packed uint32
	for i, b := range data {
		packed |= uint32(b) << (8 * i)
	}
	r1, _, _ := procMidiOutShortMsg.Call(uintptr(p.handle), uintptr(packed))
	if r1 != 0 {
		return fmt.Errorf("winmm: midiOutShortMsg failed: %d", r1)
	}
	return nil
}

// OpenOut opens a device-level output port by name.
func (o *opener) OpenOut(name string) (contracts.MidiOutPort, error) {
	idx, err := o.indexOfOut(name)
	if err != nil {
		return nil, err
	}
	var handle windows.Handle
	r1, _, callErr := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(idx),
		0, 0, 0,
	)
	if r1 != 0 {
		return nil, fmt.Errorf("winmm: midiOutOpen %q: %v", name, callErr)
	}
	return &outPort{name: name, handle: handle}, nil
}

var _ contracts.MidiOpener = (*opener)(nil)
