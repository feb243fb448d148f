//go:build headless

// pulse_monitor_headless.go - No-op pulse monitor for headless builds.

package main

type PulseMonitor struct {
	started bool
}

func NewPulseMonitor(box *Box) (*PulseMonitor, error) {
	return &PulseMonitor{}, nil
}

func (m *PulseMonitor) Start() {
	m.started = true
}

func (m *PulseMonitor) Stop() {
	m.started = false
}
