// Package pluginadapter wraps a contracts.Plugin behind the lock and
// bypass discipline of C3 (§4.3): a disabled or currently-locked plugin
// silences its outputs and clears its incoming MIDI for the block. The
// Patchbay graph runs its plugin nodes through Adapter.Process; the
// Rack chain calls the Plugin directly, skipping a disabled or locked
// plugin so the signal passes on unchanged, and uses only Peak here.
package pluginadapter

import "github.com/rtpatchbay/enginecore/sdk/contracts"

// Adapter wraps a single Plugin instance.
type Adapter struct {
	Plugin contracts.Plugin

	// NodeID is only meaningful in Patchbay mode; Rack addresses
	// plugins purely by chain position.
	NodeID uint32
}

func New(p contracts.Plugin) *Adapter {
	return &Adapter{Plugin: p}
}

// Process runs one block through the wrapped plugin following §4.3's
// contract: try to lock, run if enabled and lockable, otherwise
// silence outputs and drop pending input MIDI. It reports whether the
// plugin actually ran (false means the block was bypassed).
func (a *Adapter) Process(in, out [][]float32, nframes int, eventsIn, eventsOut contracts.EventBuffer, offline bool) bool {
	if a.Plugin == nil || !a.Plugin.IsEnabled() || !a.Plugin.TryLock(offline) {
		silence(out)
		eventsIn.Reset()
		return false
	}
	defer a.Plugin.Unlock()

	a.Plugin.InitBuffers()
	a.Plugin.Process(in, out, nil, nil, eventsIn, eventsOut, nframes)
	return true
}

func silence(bufs [][]float32) {
	for _, ch := range bufs {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// Peak returns the clamped absolute-value peak of buf, used for the
// Rack graph's per-plugin metering (§4.4 step 3).
func Peak(buf []float32) float64 {
	var peak float64
	for _, s := range buf {
		v := float64(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak > 1.0 {
		peak = 1.0
	}
	return peak
}
