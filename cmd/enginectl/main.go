// Command enginectl is a demo host for enginecore: it builds a Rack or
// Patchbay engine, logs the selected audio driver and the available
// MIDI devices, wires
// the default hardware audio channels into the Carla ports, and runs
// until interrupted. It mirrors the teacher's example/simple_use.go
// shutdown idiom (os/signal + sync.Once) rather than anything a real
// plugin host would expose as a CLI.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rtpatchbay/enginecore/internal/driver"
	"github.com/rtpatchbay/enginecore/internal/engine"
	"github.com/rtpatchbay/enginecore/internal/logging"
	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/rtpatchbay/enginecore/sdk/ids"
	"github.com/spf13/pflag"
)

func main() {
	var (
		topology   = pflag.String("topology", "rack", "engine topology: rack or patchbay")
		bufferSize = pflag.Int("buffer-size", 512, "audio callback block size, in frames")
		sampleRate = pflag.Float64("sample-rate", 48000, "audio sample rate, in Hz")
		maxPlugins = pflag.Int("max-plugins", 64, "patchbay node capacity (ignored in rack mode)")
		useCharm   = pflag.Bool("charm-log", false, "use the charmbracelet/log backend instead of zap")
		offline    = pflag.Bool("offline", false, "run against the dummy driver instead of real hardware")
	)
	pflag.Parse()

	var log contracts.Logger
	if *useCharm {
		log = logging.NewCharmLogger()
	} else {
		log = logging.NewZapLogger()
	}
	log.SetLevel(contracts.InfoLevel)

	top := contracts.TopologyRack
	if *topology == "patchbay" {
		top = contracts.TopologyPatchbay
	}

	opts := []contracts.Option{
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithTopology(top),
		contracts.WithBufferSize(*bufferSize),
		contracts.WithSampleRate(*sampleRate),
		contracts.WithMaxPlugins(*maxPlugins),
		contracts.WithChannels(2, 2),
		contracts.WithEventPoolSize(512),
		contracts.WithMidiPoolSize(256),
	}

	var eng *engine.Engine
	var err error
	if *offline {
		dummy := driver.NewDummy(log, 2, 2, *bufferSize, *sampleRate)
		eng, err = engine.New(append(opts, contracts.WithDriver(dummy))...)
	} else {
		pa, paErr := driver.NewPortAudio(log, 2, 2, *bufferSize, *sampleRate)
		if paErr != nil {
			log.Error("enginectl: no usable audio device, falling back to offline", log.Field().Error("error", paErr))
			eng, err = engine.New(opts...)
		} else {
			eng, err = engine.New(append(opts, contracts.WithDriver(pa))...)
		}
	}
	if err != nil {
		log.Fatal("enginectl: build engine", log.Field().Error("error", err))
		return
	}

	listDevices(eng, log)

	if !eng.Init("enginectl") {
		log.Fatal("enginectl: engine failed to start")
		return
	}

	wireDefaultRoute(eng, top, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func(reason string) {
		log.Info(reason)
		eng.Close()
		closeOnce.Do(func() { close(done) })
	}

	go func() {
		<-sigChan
		stop("enginectl: received shutdown signal, stopping engine...")
	}()

	fmt.Println("enginecore running. Press Ctrl+C to exit.")
	<-done
	log.Info("enginectl: terminated gracefully")
}

func listDevices(eng *engine.Engine, log contracts.Logger) {
	log.Info("enginectl: driver selected", log.Field().String("driver", eng.CurrentDriverName()))

	ins, err := eng.MidiIns()
	if err != nil {
		log.Warn("enginectl: list midi ins", log.Field().Error("error", err))
	}
	for _, d := range ins {
		log.Info("enginectl: midi in", log.Field().String("name", d.Name))
	}

	outs, err := eng.MidiOuts()
	if err != nil {
		log.Warn("enginectl: list midi outs", log.Field().Error("error", err))
	}
	for _, d := range outs {
		log.Info("enginectl: midi out", log.Field().String("name", d.Name))
	}
}

// wireDefaultRoute connects the default hardware channels through the
// engine's fixed Carla ports in Rack mode; Patchbay mode has no default
// route since its node graph starts empty (§4.5).
func wireDefaultRoute(eng *engine.Engine, top contracts.Topology, log contracts.Logger) {
	if top == contracts.TopologyPatchbay {
		return
	}

	if _, err := eng.PatchbayConnect(ids.AudioIn, 1, ids.Carla, ids.RackAudioIn1); err != nil {
		log.Warn("enginectl: wire AudioIn1", log.Field().Error("error", err))
	}
	if _, err := eng.PatchbayConnect(ids.AudioIn, 2, ids.Carla, ids.RackAudioIn2); err != nil {
		log.Warn("enginectl: wire AudioIn2", log.Field().Error("error", err))
	}
	if _, err := eng.PatchbayConnect(ids.Carla, ids.RackAudioOut1, ids.AudioOut, 1); err != nil {
		log.Warn("enginectl: wire AudioOut1", log.Field().Error("error", err))
	}
	if _, err := eng.PatchbayConnect(ids.Carla, ids.RackAudioOut2, ids.AudioOut, 2); err != nil {
		log.Warn("enginectl: wire AudioOut2", log.Field().Error("error", err))
	}

	for _, conn := range eng.GetPatchbayConnections() {
		log.Info("enginectl: active connection", log.Field().String("port", conn))
	}
}
