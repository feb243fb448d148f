// box.go - Device assembly and the foreground loop.
//
// Box collects the entire engine context - channel blocks, config, tick
// engine, dispatcher, pulse generators, output stage, serial handler and
// menu - into one value, so tests can run any number of independent
// devices. Run paces the real-time loop; TickPass is one foreground
// iteration and is callable directly from tests and scripts.

package main

import (
	"context"
	"time"
)

// Foreground cadence: the loop runs well above 250 Hz and calls the
// engine tick every 4 ms.
const ENGINE_TICK_US = 4000

type Box struct {
	Mem  ChannelMem
	Cfg  SystemConfig
	PRNG *PRNG

	BridgeA *SimBridge
	BridgeB *SimBridge
	PulseA  *PulseChannel
	PulseB  *PulseChannel
	DAC     *SimDAC
	ADC     *SimADC
	Store   Store

	Engine     *ParamEngine
	Dispatcher *ModeDispatcher
	User       *UserPrograms
	Output     *OutputStage
	Follower   *AudioFollower
	VMem       *VirtualMem
	Port       *LoopbackPort
	Serial     *SerialHandler
	Display    *CaptureDisplay
	Menu       *Menu

	// extraDisplay mirrors menu output into a frontend surface.
	extraDisplay Display

	// audioDriven suppresses wall-clock pulse advancement when the audio
	// monitor's sample clock is pacing the timers instead.
	audioDriven bool
}

// NewBox builds a device around a persistent store, loading the saved
// configuration (or factory defaults) and entering the saved mode.
func NewBox(store Store, seed uint16) *Box {
	b := &Box{
		PRNG:    NewPRNG(seed),
		BridgeA: &SimBridge{},
		BridgeB: &SimBridge{},
		DAC:     NewSimDAC(),
		ADC:     NewSimADC(),
		Store:   store,
		Port:    &LoopbackPort{},
		Display: &CaptureDisplay{},
	}

	b.PulseA = NewPulseChannel(b.BridgeA, false)
	b.PulseB = NewPulseChannel(b.BridgeB, true)

	// A blank or corrupted store leaves the factory defaults in place;
	// nothing is written back until the operator saves.
	b.Cfg.SetDefaults()
	LoadConfig(store, &b.Cfg)

	b.User = NewUserPrograms(store)
	b.Engine = NewParamEngine(&b.Mem, &b.Cfg)
	b.Dispatcher = NewModeDispatcher(&b.Mem, b.Engine, &b.Cfg, b.PRNG, b.User,
		b.PulseA, b.PulseB, b.DAC)

	splitA, splitB := LoadSplitModes(store)
	b.Dispatcher.SetSplitModes(splitA, splitB)

	b.Output = NewOutputStage(&b.Mem, &b.Cfg, b.PulseA, b.PulseB, b.DAC, b.ADC)
	b.Follower = NewAudioFollower(&b.Mem, b.ADC)
	b.VMem = NewVirtualMem(&b.Mem, &b.Cfg, b.Dispatcher, b.ADC, store, b.User)
	b.Serial = NewSerialHandler(b.Port, b.VMem, b.PRNG)
	b.Menu = NewMenu(&b.Cfg, b.Dispatcher, store, b.Display)

	b.Dispatcher.SelectMode(b.Cfg.CurrentMode)
	return b
}

// SetFrontendDisplay mirrors the LCD into a second surface.
func (b *Box) SetFrontendDisplay(d Display) {
	b.extraDisplay = d
	b.renderMirror()
}

func (b *Box) renderMirror() {
	if b.extraDisplay == nil {
		return
	}
	b.extraDisplay.WriteLine(0, b.Display.Line(0))
	b.extraDisplay.WriteLine(1, b.Display.Line(1))
}

// SetAudioDriven marks the pulse timers as paced by the audio monitor's
// sample clock instead of the wall clock.
func (b *Box) SetAudioDriven(driven bool) {
	b.audioDriven = driven
}

// PressButton feeds a debounced front-panel press into the menu.
func (b *Box) PressButton(button int) {
	b.Menu.HandleButton(button)
	b.renderMirror()
}

// readKnobs samples the Multi-Adjust pot into the config register. The
// level pots feed the DAC law directly inside the output stage.
func (b *Box) readKnobs() {
	b.Cfg.MultiAdjust = uint8(b.ADC.Read(ADC_MA) >> 2)
}

// TickPass is one 4 ms foreground iteration: consume any deferred
// command, service the serial link, sample the knobs, run the engine
// tick and copy the result to the pulse generators and DAC.
func (b *Box) TickPass() {
	if cmd := b.Dispatcher.PollDeferred(); cmd == DEFERRED_START_RAMP {
		b.Menu.StartRamp()
	}

	b.Serial.Process()
	b.readKnobs()

	b.Follower.Process(b.Dispatcher.Mode())
	b.Menu.AdvanceRamp()
	b.Dispatcher.Update()

	b.Output.Refresh(b.Menu.OutputEnabled(), b.Menu.RampPercent())
	b.renderMirror()
}

// RunTicks executes n foreground iterations back to back, advancing the
// pulse timers by the matching virtual time. Test and script pacing.
func (b *Box) RunTicks(n int) {
	for i := 0; i < n; i++ {
		b.TickPass()
		b.PulseA.Advance(ENGINE_TICK_US)
		b.PulseB.Advance(ENGINE_TICK_US)
	}
}

// Run paces the foreground in real time until the context is cancelled.
func (b *Box) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	last := time.Now()
	var acc time.Duration

	for {
		select {
		case <-ctx.Done():
			b.PulseA.SetGate(false)
			b.PulseB.SetGate(false)
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			if !b.audioDriven {
				us := uint32(elapsed.Microseconds())
				b.PulseA.Advance(us)
				b.PulseB.Advance(us)
			}

			acc += elapsed
			for acc >= ENGINE_TICK_US*time.Microsecond {
				acc -= ENGINE_TICK_US * time.Microsecond
				b.TickPass()
			}
		}
	}
}
