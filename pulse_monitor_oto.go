//go:build !headless

// pulse_monitor_oto.go - Audible pulse-train monitor over OTO.
//
// Renders the two H-bridge drive signals as a stereo signal (channel A
// left, channel B right), attenuated by the live DAC codes, so an
// operator can hear exactly what the output stage is producing. The
// audio pull clock doubles as the pulse timers' pacing: every sample
// advances both state machines by one sample period of virtual time.

package main

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

const MONITOR_SAMPLE_RATE = 44100

type PulseMonitor struct {
	ctx     *oto.Context
	player  *oto.Player
	box     *Box
	started bool
	mutex   sync.Mutex

	usAccum   float64
	sampleBuf []float32
}

func NewPulseMonitor(box *Box) (*PulseMonitor, error) {
	op := &oto.NewContextOptions{
		SampleRate:   MONITOR_SAMPLE_RATE,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	m := &PulseMonitor{ctx: ctx, box: box, sampleBuf: make([]float32, 8192)}
	m.player = ctx.NewPlayer(m)
	return m, nil
}

// amplitude converts an inverted DAC code into a 0.0-1.0 gain.
func amplitude(code uint16) float32 {
	return float32(DAC_MAX_VALUE-code) / float32(DAC_MAX_VALUE)
}

func (m *PulseMonitor) Read(p []byte) (n int, err error) {
	frames := len(p) / 8 // two float32 samples per frame

	if len(m.sampleBuf) < frames*2 {
		m.sampleBuf = make([]float32, frames*2)
	}
	samples := m.sampleBuf[:frames*2]

	usPerSample := 1e6 / float64(MONITOR_SAMPLE_RATE)

	for i := 0; i < frames; i++ {
		m.usAccum += usPerSample
		step := uint32(m.usAccum)
		m.usAccum -= float64(step)
		m.box.PulseA.Advance(step)
		m.box.PulseB.Advance(step)

		dacA, dacB := m.box.DAC.Codes()
		samples[i*2] = float32(m.box.BridgeA.Level()) * amplitude(dacA) * 0.5
		samples[i*2+1] = float32(m.box.BridgeB.Level()) * amplitude(dacB) * 0.5
	}

	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:len(p)])
	return len(p), nil
}

func (m *PulseMonitor) Start() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.started && m.player != nil {
		m.box.SetAudioDriven(true)
		m.player.Play()
		m.started = true
	}
}

func (m *PulseMonitor) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.started && m.player != nil {
		m.player.Close()
		m.box.SetAudioDriven(false)
		m.started = false
	}
}
