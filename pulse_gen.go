// pulse_gen.go - Five-phase biphasic pulse state machines.
//
// Each channel is a compare-match timer state machine with 1 us
// resolution, modelled on the hardware's two CTC timers. The cycle is
// POSITIVE -> DEADTIME1 -> NEGATIVE -> DEADTIME2 -> GAP; dead time keeps
// both H-bridge FETs off between polarity flips. Channel B's hardware
// timer is only 8-bit, so its long gaps are counted down in segments of
// at most 250 us across repeated firings of the GAP phase.
//
// Parameter handoff is double-buffered: the foreground submits a
// width/period pair at any time, and the state machine consumes it only
// at the start of a GAP, so every emitted positive/negative pair uses one
// consistent parameter set.

package main

import (
	"errors"
	"sync"
)

type PulsePhase uint8

const (
	PH_POSITIVE PulsePhase = iota
	PH_DEADTIME1
	PH_NEGATIVE
	PH_DEADTIME2
	PH_GAP
)

const (
	DEAD_TIME_US         = 4
	PULSE_MIN_WIDTH_US   = 20
	PULSE_MAX_WIDTH_US   = 255
	PULSE_MIN_PERIOD_US  = 500
	PULSE_IDLE_RELOAD_US = 250 // re-arm interval while the gate is off
	PULSE_GAP_SEGMENT_US = 250 // max compare value of the 8-bit timer
)

// ErrSubmissionRejected reports a period below the absolute floor. The
// period is still clamped and applied; callers that cannot do anything
// useful with the error ignore it.
var ErrSubmissionRejected = errors.New("pulse: period below hard floor")

// PulseChannel is one channel's pulse generator. The mutex stands in for
// the interrupt-disable critical sections of the firmware: Fire runs as
// the "ISR", Submit and SetGate as the foreground.
type PulseChannel struct {
	mu    sync.Mutex
	pins  BridgePins
	short bool // 8-bit compare register, segment long gaps

	gate         bool
	widthTicks   uint8
	periodTicks  uint16
	phase        PulsePhase
	gapRemaining uint16

	pendingWidth  uint8
	pendingPeriod uint16
	paramsDirty   bool

	compare uint16 // us remaining until the next compare match
}

func NewPulseChannel(pins BridgePins, short bool) *PulseChannel {
	return &PulseChannel{
		pins:          pins,
		short:         short,
		widthTicks:    100,
		periodTicks:   5000,
		phase:         PH_GAP,
		pendingWidth:  100,
		pendingPeriod: 5000,
		compare:       PULSE_IDLE_RELOAD_US,
	}
}

// Submit hands a new width/period pair to the state machine. Width is
// clamped to [20,255] us. A period below 500 us is clamped to the floor
// and reported with ErrSubmissionRejected; everything else is accepted
// silently. The pair is consumed atomically at the start of the next GAP.
func (p *PulseChannel) Submit(widthUS uint8, periodUS uint16) error {
	var err error
	if widthUS < PULSE_MIN_WIDTH_US {
		widthUS = PULSE_MIN_WIDTH_US
	}
	if periodUS < PULSE_MIN_PERIOD_US {
		periodUS = PULSE_MIN_PERIOD_US
		err = ErrSubmissionRejected
	}
	p.mu.Lock()
	p.pendingWidth = widthUS
	p.pendingPeriod = periodUS
	p.paramsDirty = true
	p.mu.Unlock()
	return err
}

// SetGate turns the output on or off. Turning off drives both bridge
// pins low inside the critical section, so the bridge cannot stay
// energized between timer firings.
func (p *PulseChannel) SetGate(on bool) {
	p.mu.Lock()
	p.gate = on
	if !on {
		p.pins.Drive(false, false)
	}
	p.mu.Unlock()
}

func (p *PulseChannel) Gate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gate
}

// Active returns the width/period pair currently being emitted.
func (p *PulseChannel) Active() (widthUS uint8, periodUS uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.widthTicks, p.periodTicks
}

func (p *PulseChannel) Phase() PulsePhase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Advance moves the channel's timer forward by us microseconds, running
// the compare-match state machine for every elapsed firing. Frontends
// call this from their own pacing (wall clock or audio sample clock);
// tests step it directly.
func (p *PulseChannel) Advance(us uint32) {
	p.mu.Lock()
	for us > 0 {
		if uint32(p.compare) > us {
			p.compare -= uint16(us)
			break
		}
		us -= uint32(p.compare)
		p.fire()
	}
	p.mu.Unlock()
}

// Fire forces one compare match, ignoring the time remaining. Test hook.
func (p *PulseChannel) Fire() {
	p.mu.Lock()
	p.fire()
	p.mu.Unlock()
}

// fire is the compare-match service routine. Caller holds the mutex.
func (p *PulseChannel) fire() {
	// Gate dropped mid-cycle: abandon the cycle and park in GAP, pins
	// low. The gate-off call already drove the pins low; this keeps the
	// machine from re-energizing the bridge on a later phase.
	if !p.gate && p.phase != PH_GAP {
		p.pins.Drive(false, false)
		p.phase = PH_GAP
		p.gapRemaining = 0
		p.compare = PULSE_IDLE_RELOAD_US
		return
	}

	switch p.phase {
	case PH_GAP:
		if p.short && p.gapRemaining > 0 {
			chunk := p.gapRemaining
			if chunk > PULSE_GAP_SEGMENT_US {
				chunk = PULSE_GAP_SEGMENT_US
			}
			p.compare = chunk
			p.gapRemaining -= chunk
			return
		}
		if p.paramsDirty {
			p.widthTicks = p.pendingWidth
			p.periodTicks = p.pendingPeriod
			p.paramsDirty = false
		}
		if !p.gate {
			p.pins.Drive(false, false)
			p.compare = PULSE_IDLE_RELOAD_US
			return
		}
		p.pins.Drive(true, false)
		p.compare = uint16(p.widthTicks)
		p.phase = PH_POSITIVE

	case PH_POSITIVE:
		p.pins.Drive(false, false)
		p.compare = DEAD_TIME_US
		p.phase = PH_DEADTIME1

	case PH_DEADTIME1:
		p.pins.Drive(false, true)
		p.compare = uint16(p.widthTicks)
		p.phase = PH_NEGATIVE

	case PH_NEGATIVE:
		p.pins.Drive(false, false)
		p.compare = DEAD_TIME_US
		p.phase = PH_DEADTIME2

	case PH_DEADTIME2:
		// gap = period - 2*width - 2*deadtime, floored at one dead time
		// so an undersized period can never wedge the machine.
		used := uint16(p.widthTicks)*2 + DEAD_TIME_US*2
		gap := uint16(DEAD_TIME_US)
		if p.periodTicks > used {
			gap = p.periodTicks - used
		}
		if p.short && gap > PULSE_GAP_SEGMENT_US {
			p.compare = PULSE_GAP_SEGMENT_US
			p.gapRemaining = gap - PULSE_GAP_SEGMENT_US
		} else {
			p.compare = gap
			p.gapRemaining = 0
		}
		p.phase = PH_GAP
	}
}
