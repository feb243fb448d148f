// param_engine.go - Timer-driven parameter modulation engine.
//
// Steps the four parameter groups of each channel every 4 ms tick.
// Each group's select byte picks a timer rate (244/30/1 Hz), a min
// source and a rate source; sources resolve to the group's own field,
// an advanced setting, the scaled MA knob or the mirrored field of the
// other channel, with an optional bitwise invert. Boundary hits run the
// group's action byte: reverse, reverse-with-polarity-toggle, loop,
// stop, or a module number raised into a per-channel mailbox that the
// dispatcher drains after both channels have been stepped.

package main

const (
	DIR_UP   = 0
	DIR_DOWN = 1
)

const (
	DIR_BIT_RAMP      = 0x01
	DIR_BIT_INTENSITY = 0x02
	DIR_BIT_FREQ      = 0x04
	DIR_BIT_WIDTH     = 0x08
)

// NO_MODULE marks an empty module mailbox slot.
const NO_MODULE = 0xFF

// Master timer cadence: one increment every 128 ticks (~1.91 Hz).
const MASTER_TIMER_DIV = 128

// ParamEngine owns the per-tick sweep state that lives outside the
// 64-byte blocks: the tick counter, the direction shadow bits, the gate
// duty phase and the pending-module mailboxes.
type ParamEngine struct {
	mem *ChannelMem
	cfg *SystemConfig

	tick        uint8
	masterSub   uint8
	masterTimer uint16

	pendingA uint8
	pendingB uint8

	dirA uint8
	dirB uint8

	gatePhaseA uint8
	gateTimerA uint8
	gatePhaseB uint8
	gateTimerB uint8
}

func NewParamEngine(mem *ChannelMem, cfg *SystemConfig) *ParamEngine {
	e := &ParamEngine{mem: mem, cfg: cfg}
	e.Init()
	return e
}

func (e *ParamEngine) Init() {
	e.tick = 0
	e.masterSub = 0
	e.masterTimer = 0
	e.pendingA = NO_MODULE
	e.pendingB = NO_MODULE
	e.dirA = 0
	e.dirB = 0
	e.gatePhaseA = 0
	e.gateTimerA = 0
	e.gatePhaseB = 0
	e.gateTimerB = 0
}

func (e *ParamEngine) Tick() uint8         { return e.tick }
func (e *ParamEngine) MasterTimer() uint16 { return e.masterTimer }

// mapMA scales the raw MA knob reading through a block's knob range.
// high >= low maps directly, high < low maps inverted, so a block can
// turn the knob into either "bigger is faster" or "bigger is slower".
func mapMA(raw, high, low uint8) uint8 {
	if high >= low {
		return low + uint8(uint16(raw)*uint16(high-low)/255)
	}
	return low - uint8(uint16(raw)*uint16(low-high)/255)
}

// resolveSource maps a 3-bit source index to a value. Bits 0-1 select the
// base (own field, advanced setting, scaled knob, other channel); bit 2
// inverts the result. Index 0 degrades to the group's own field, so a
// malformed select byte never faults.
func resolveSource(index, ownVal, advVal, maScaled, otherVal uint8) uint8 {
	var val uint8
	switch index & 0x03 {
	case 0:
		val = ownVal
	case 1:
		val = advVal
	case 2:
		val = maScaled
	case 3:
		val = otherVal
	}
	if index&0x04 != 0 {
		val = ^val
	}
	return val
}

func (e *ParamEngine) timerFires(timerSel uint8) bool {
	switch timerSel {
	case SEL_TIMER_244HZ:
		return true
	case SEL_TIMER_30HZ:
		return e.tick&0x07 == 0
	case SEL_TIMER_1HZ:
		return e.tick == 0
	default:
		return false
	}
}

// inferDirection reconstructs a group's sweep direction from its field
// values alone, so the blocks stay self-describing across mode entries
// and module reloads. Nearest endpoint wins; ties go up.
func inferDirection(g []uint8) uint8 {
	lo, hi := g[GF_MIN], g[GF_MAX]
	if lo > hi {
		lo, hi = hi, lo
	}
	v := g[GF_VALUE]
	if hi == lo {
		return DIR_UP
	}
	if v >= hi {
		return DIR_DOWN
	}
	if v <= lo {
		return DIR_UP
	}
	if hi-v <= v-lo {
		return DIR_UP
	}
	return DIR_DOWN
}

// doAction runs a boundary action byte. Returns NO_MODULE, or a module
// number to be raised into the channel's mailbox.
func doAction(action uint8, g []uint8, ch *ChannelBlock, dir *uint8) uint8 {
	switch action {
	case ACTION_REV_TOGGLE:
		ch[CH_GATE_VALUE] ^= GATE_ALT_POL
		fallthrough
	case ACTION_REVERSE:
		if *dir == DIR_UP {
			*dir = DIR_DOWN
		} else {
			*dir = DIR_UP
		}
		return NO_MODULE
	case ACTION_LOOP:
		if *dir == DIR_UP {
			g[GF_VALUE] = g[GF_MIN]
		} else {
			g[GF_VALUE] = g[GF_MAX]
		}
		return NO_MODULE
	case ACTION_STOP:
		g[GF_SELECT] &^= SEL_TIMER_MASK
		return NO_MODULE
	default:
		if actionIsModule(action) {
			return action
		}
		return NO_MODULE
	}
}

// stepGroup advances one parameter group for this tick. A group with no
// timer but a nonzero min source is "static": its value simply tracks the
// resolved source. Timer-driven groups count a rate divider, refresh min
// from its source, then move value by step toward the active endpoint.
// The endpoint fires its action only when a step would cross it, which
// makes a LOOP over a span of n cover n+1 ticks before wrapping.
func (e *ParamEngine) stepGroup(g []uint8, ch *ChannelBlock, maScaled, advMin, advRate, otherVal uint8, dir *uint8) uint8 {
	sel := g[GF_SELECT]
	timerSel := sel & SEL_TIMER_MASK

	if timerSel == SEL_TIMER_NONE {
		srcBits := (sel >> 2) & 0x07
		if srcBits != 0 {
			g[GF_VALUE] = resolveSource(srcBits, g[GF_VALUE], advMin, maScaled, otherVal)
		}
		return NO_MODULE
	}

	if !e.timerFires(timerSel) {
		return NO_MODULE
	}

	rateIdx := (sel >> 5) & 0x07
	effectiveRate := resolveSource(rateIdx, g[GF_RATE], advRate, maScaled, otherVal)
	if effectiveRate == 0 {
		effectiveRate = 1
	}

	g[GF_TIMER]++
	if g[GF_TIMER] < effectiveRate {
		return NO_MODULE
	}
	g[GF_TIMER] = 0

	minIdx := (sel >> 2) & 0x07
	if minIdx != 0 {
		g[GF_MIN] = resolveSource(minIdx, g[GF_MIN], advMin, maScaled, otherVal)
	}

	step := g[GF_STEP]
	if step == 0 {
		return NO_MODULE
	}

	if *dir == DIR_UP {
		next := uint16(g[GF_VALUE]) + uint16(step)
		if next > uint16(g[GF_MAX]) {
			g[GF_VALUE] = g[GF_MAX]
			return doAction(g[GF_ACTION_MAX], g, ch, dir)
		}
		g[GF_VALUE] = uint8(next)
	} else {
		next := int16(g[GF_VALUE]) - int16(step)
		if next < int16(g[GF_MIN]) {
			g[GF_VALUE] = g[GF_MIN]
			return doAction(g[GF_ACTION_MIN], g, ch, dir)
		}
		g[GF_VALUE] = uint8(next)
	}
	return NO_MODULE
}

// group/direction pairing for the per-channel sweep. Order is fixed:
// ramp, intensity, frequency, width.
type groupAdv struct {
	base    uint8
	dirBit  uint8
	advMin  func(*SystemConfig) uint8
	advRate func(*SystemConfig) uint8
}

var groupTable = [4]groupAdv{
	{GRP_RAMP, DIR_BIT_RAMP,
		func(c *SystemConfig) uint8 { return c.AdvRampLevel },
		func(c *SystemConfig) uint8 { return c.AdvRampTime }},
	{GRP_INTENSITY, DIR_BIT_INTENSITY,
		func(c *SystemConfig) uint8 { return c.AdvDepth },
		func(c *SystemConfig) uint8 { return c.AdvTempo }},
	{GRP_FREQ, DIR_BIT_FREQ,
		func(c *SystemConfig) uint8 { return c.AdvFrequency },
		func(c *SystemConfig) uint8 { return c.AdvEffect }},
	{GRP_WIDTH, DIR_BIT_WIDTH,
		func(c *SystemConfig) uint8 { return c.AdvWidth },
		func(c *SystemConfig) uint8 { return c.AdvPace }},
}

func (e *ParamEngine) stepChannel(ch, other *ChannelBlock, flags *uint8, trigger *uint8) {
	maScaled := mapMA(e.cfg.MultiAdjust, ch[CH_MA_RANGE_HIGH], ch[CH_MA_RANGE_LOW])

	for _, ga := range groupTable {
		dir := uint8(DIR_UP)
		if *flags&ga.dirBit != 0 {
			dir = DIR_DOWN
		}
		g := ch.Group(ga.base)
		m := e.stepGroup(g, ch, maScaled, ga.advMin(e.cfg), ga.advRate(e.cfg), other[ga.base+GF_VALUE], &dir)
		if dir == DIR_DOWN {
			*flags |= ga.dirBit
		} else {
			*flags &^= ga.dirBit
		}
		if m != NO_MODULE && *trigger == NO_MODULE {
			*trigger = m
		}
	}
}

// updateGateTimer runs the on/off duty-cycle timer for one channel. The
// gate select byte's flag bits pick where the on and off durations come
// from: the MA knob, the effect/tempo advanced settings, or the block's
// own gate_ontime/gate_offtime fields.
func (e *ParamEngine) updateGateTimer(ch *ChannelBlock, gt, gp *uint8) {
	sel := ch[CH_GATE_SELECT]
	timerSel := sel & SEL_TIMER_MASK
	if timerSel == SEL_TIMER_NONE || !e.timerFires(timerSel) {
		return
	}

	maScaled := mapMA(e.cfg.MultiAdjust, ch[CH_MA_RANGE_HIGH], ch[CH_MA_RANGE_LOW])

	ontime := ch[CH_GATE_ONTIME]
	if sel&GATE_ON_FROM_MA != 0 {
		ontime = maScaled
	} else if sel&GATE_ON_FROM_EFFECT != 0 {
		ontime = e.cfg.AdvEffect
	}
	if ontime == 0 {
		ontime = 1
	}

	offtime := ch[CH_GATE_OFFTIME]
	if sel&GATE_OFF_FROM_MA != 0 {
		offtime = maScaled
	} else if sel&GATE_OFF_FROM_TEMPO != 0 {
		offtime = e.cfg.AdvTempo
	}
	if offtime == 0 {
		offtime = 1
	}

	*gt++
	if *gp == 0 {
		if *gt >= ontime {
			*gt = 0
			*gp = 1
			ch[CH_GATE_VALUE] &^= GATE_ON_BIT
		}
	} else {
		if *gt >= offtime {
			*gt = 0
			*gp = 0
			ch[CH_GATE_VALUE] |= GATE_ON_BIT
			ch[CH_GATE_TRANSITIONS]++
		}
	}
}

// stepNextModuleTimer counts the per-channel module-chain timer. The
// select byte's rate-source bits can scale the period by the knob or an
// advanced setting; first raised module wins the mailbox for this tick.
func (e *ParamEngine) stepNextModuleTimer(ch *ChannelBlock, maScaled, advVal, otherMax uint8, trigger *uint8) {
	sel := ch[CH_NEXT_MOD_SELECT]
	timerSel := sel & SEL_TIMER_MASK
	if timerSel == SEL_TIMER_NONE || !e.timerFires(timerSel) {
		return
	}

	rateIdx := (sel >> 5) & 0x07
	effectiveMax := resolveSource(rateIdx, ch[CH_NEXT_MOD_MAX], advVal, maScaled, otherMax)
	if effectiveMax == 0 {
		effectiveMax = 1
	}

	ch[CH_NEXT_MOD_CUR]++
	if ch[CH_NEXT_MOD_CUR] >= effectiveMax {
		ch[CH_NEXT_MOD_CUR] = 0
		if *trigger == NO_MODULE {
			*trigger = ch[CH_NEXT_MOD_NUMBER]
		}
	}
}

// InitDirections recomputes the direction shadow bits and gate phases
// from the current block contents. Called after every mode entry and
// after every boundary-triggered module execution.
func (e *ParamEngine) InitDirections() {
	e.dirA = computeDirFlags(&e.mem.A)
	e.dirB = computeDirFlags(&e.mem.B)
	e.gatePhaseA = gatePhaseFrom(&e.mem.A)
	e.gateTimerA = 0
	e.gatePhaseB = gatePhaseFrom(&e.mem.B)
	e.gateTimerB = 0
}

func computeDirFlags(ch *ChannelBlock) uint8 {
	var flags uint8
	for _, ga := range groupTable {
		if inferDirection(ch.Group(ga.base)) == DIR_DOWN {
			flags |= ga.dirBit
		}
	}
	return flags
}

func gatePhaseFrom(ch *ChannelBlock) uint8 {
	if ch[CH_GATE_VALUE]&GATE_ON_BIT != 0 {
		return 0
	}
	return 1
}

// Step advances the engine by one 4 ms tick: channel A fully, then
// channel B, groups in fixed order, gate and next-module timers included.
// Boundary modules raised during the sweep stay in the mailboxes until
// the dispatcher drains them.
func (e *ParamEngine) Step() {
	e.tick++
	e.masterSub++
	if e.masterSub >= MASTER_TIMER_DIV {
		e.masterSub = 0
		e.masterTimer++
	}

	e.updateGateTimer(&e.mem.A, &e.gateTimerA, &e.gatePhaseA)
	e.updateGateTimer(&e.mem.B, &e.gateTimerB, &e.gatePhaseB)

	e.pendingA = NO_MODULE
	e.pendingB = NO_MODULE

	maA := mapMA(e.cfg.MultiAdjust, e.mem.A[CH_MA_RANGE_HIGH], e.mem.A[CH_MA_RANGE_LOW])
	maB := mapMA(e.cfg.MultiAdjust, e.mem.B[CH_MA_RANGE_HIGH], e.mem.B[CH_MA_RANGE_LOW])

	e.stepChannel(&e.mem.A, &e.mem.B, &e.dirA, &e.pendingA)
	e.stepNextModuleTimer(&e.mem.A, maA, e.cfg.AdvTempo, e.mem.B[CH_NEXT_MOD_MAX], &e.pendingA)

	e.stepChannel(&e.mem.B, &e.mem.A, &e.dirB, &e.pendingB)
	e.stepNextModuleTimer(&e.mem.B, maB, e.cfg.AdvTempo, e.mem.A[CH_NEXT_MOD_MAX], &e.pendingB)
}

// TakeTrigger drains and clears a channel's pending-module mailbox.
func (e *ParamEngine) TakeTrigger(ch *ChannelBlock) uint8 {
	if ch == &e.mem.A {
		m := e.pendingA
		e.pendingA = NO_MODULE
		return m
	}
	m := e.pendingB
	e.pendingB = NO_MODULE
	return m
}
