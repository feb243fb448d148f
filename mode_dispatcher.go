// mode_dispatcher.go - Mode table, bytecode interpreter and per-tick update.
//
// Selecting a mode resets both channel blocks to defaults, runs the
// mode's module sequence and applies its post-fixups. Each 4 ms tick the
// dispatcher runs the parameter engine, then drains the per-channel
// module mailboxes outside the sweep loop - that single-slot mailbox is
// what breaks the modules-write-fields-that-trigger-modules cycle.
//
// Asynchronous mode changes (serial, menu) go through a deferred command
// mailbox polled at the top of each foreground pass, never mid-tick.

package main

import "sync"

// Deferred command codes.
const (
	DEFERRED_NONE = iota
	DEFERRED_SET_MODE
	DEFERRED_PAUSE
	DEFERRED_NEXT
	DEFERRED_PREV
	DEFERRED_RELOAD
	DEFERRED_START_RAMP
)

// Two module indices per built-in mode; NO_MODULE = none.
var modeModules = [17][2]uint8{
	{11, 12},               // Waves
	{3, 4},                 // Stroke
	{5, 8},                 // Climb
	{13, 33},               // Combo
	{14, 2},                // Intense
	{15, NO_MODULE},        // Rhythm
	{23, NO_MODULE},        // Audio 1
	{23, NO_MODULE},        // Audio 2
	{34, NO_MODULE},        // Audio 3
	{NO_MODULE, NO_MODULE}, // Random 1 (rotates)
	{32, NO_MODULE},        // Random 2
	{18, NO_MODULE},        // Toggle
	{24, NO_MODULE},        // Orgasm
	{28, NO_MODULE},        // Torment
	{20, 21},               // Phase 1
	{20, 21},               // Phase 2
	{22, NO_MODULE},        // Phase 3
}

// ModeDispatcher owns the current mode, the split selections, the
// random-rotation sub-engine and the deferred command mailbox.
type ModeDispatcher struct {
	mem    *ChannelMem
	engine *ParamEngine
	cfg    *SystemConfig
	prng   *PRNG
	user   *UserPrograms

	pulseA *PulseChannel
	pulseB *PulseChannel
	dac    DAC

	currentMode uint8
	splitModeA  uint8
	splitModeB  uint8
	paused      bool

	// Globally visible output control flags, mirrored from channel A
	// after every mode entry and tick.
	outputFlags uint8

	r1Start    uint16
	r1Duration uint16
	r1SubMode  uint8

	deferredMu   sync.Mutex
	deferredCmd  uint8
	deferredMode uint8
}

func NewModeDispatcher(mem *ChannelMem, engine *ParamEngine, cfg *SystemConfig,
	prng *PRNG, user *UserPrograms, pulseA, pulseB *PulseChannel, dac DAC) *ModeDispatcher {
	return &ModeDispatcher{
		mem:        mem,
		engine:     engine,
		cfg:        cfg,
		prng:       prng,
		user:       user,
		pulseA:     pulseA,
		pulseB:     pulseB,
		dac:        dac,
		splitModeA: MODE_WAVES,
		splitModeB: MODE_WAVES,
		r1SubMode:  NO_MODULE,
	}
}

// ExecuteModule runs one bytecode module against the channel blocks.
func (d *ModeDispatcher) ExecuteModule(module uint8) {
	if module >= MODULE_COUNT {
		return
	}
	d.executeProgram(moduleTable[module])
}

// executeProgram interprets one bytecode program. Unknown opcodes
// advance one byte; there is no error path by design - any byte sequence
// leaves the device in a defined state.
func (d *ModeDispatcher) executeProgram(prog []uint8) {
	pc := 0

	for pc < len(prog) {
		op := prog[pc]

		switch {
		case op&0xF0 == 0x00: // END
			return

		case op&0xF0 == 0x10: // reserved, two bytes
			pc += 2

		case op&0xE0 == 0x20: // COPY
			if pc+1 >= len(prog) {
				return
			}
			n := int((op>>2)&0x07) + 1
			addr := uint16(op&0x03)<<8 | uint16(prog[pc+1])
			for i := 0; i < n && pc+2+i < len(prog); i++ {
				*d.mem.Reg(addr + uint16(i)) = prog[pc+2+i]
			}
			pc += 2 + n

		case op&0xF0 == 0x40: // MEMOP
			if pc+1 >= len(prog) {
				return
			}
			addr := uint16(op&0x03)<<8 | uint16(prog[pc+1])
			d.memOp((op>>2)&0x03, addr)
			pc += 2

		case op&0xF0 == 0x50: // MATHOP
			if pc+2 >= len(prog) {
				return
			}
			addr := uint16(op&0x03)<<8 | uint16(prog[pc+1])
			d.mathOp((op>>2)&0x03, addr, prog[pc+2])
			pc += 3

		case op&0x80 != 0: // SET
			if pc+1 >= len(prog) {
				return
			}
			d.setReg(op, prog[pc+1])
			pc += 2

		default:
			pc++
		}
	}
}

func (d *ModeDispatcher) memOp(op uint8, addr uint16) {
	switch op {
	case 0: // store addressed byte into that block's bank
		bankAddr := uint16(0x08C)
		if addr&0x100 != 0 {
			bankAddr = 0x18C
		}
		*d.mem.Reg(bankAddr) = *d.mem.Reg(addr)
	case 1: // load bank into addressed byte
		bankAddr := uint16(0x08C)
		if addr&0x100 != 0 {
			bankAddr = 0x18C
		}
		*d.mem.Reg(addr) = *d.mem.Reg(bankAddr)
	case 2:
		*d.mem.Reg(addr) >>= 1
	case 3: // random draw from the addressed block's bounds
		blk := d.mem.Block(addr)
		*d.mem.Reg(addr) = d.prng.Range(blk[CH_RANDOM_MIN], blk[CH_RANDOM_MAX])
	}
}

func mathApply(ptr *uint8, op, value uint8) {
	switch op {
	case 0:
		*ptr += value
	case 1:
		*ptr &= value
	case 2:
		*ptr |= value
	case 3:
		*ptr ^= value
	}
}

// mathOp applies an in-place arithmetic op, routed through the apply
// mask when the address is in the channel-A window.
func (d *ModeDispatcher) mathOp(op uint8, addr uint16, value uint8) {
	applyA, applyB := true, false
	if addr >= CHAN_BASE_A && addr < CHAN_BASE_A+CHAN_BLOCK_SIZE {
		ac := d.mem.A[CH_APPLY_CHANNEL]
		applyA = ac&0x01 != 0
		applyB = ac&0x02 != 0
	} else if addr >= CHAN_BASE_B && addr < CHAN_BASE_B+CHAN_BLOCK_SIZE {
		applyA = false
		applyB = true
	}

	if applyA {
		mathApply(d.mem.Reg(addr), op, value)
	}
	if applyB && addr >= CHAN_BASE_A && addr < CHAN_BASE_A+CHAN_BLOCK_SIZE {
		mathApply(d.mem.Reg(addr+0x100), op, value)
	}
}

func (d *ModeDispatcher) setReg(op, value uint8) {
	offset := uint16(op & 0x3F)
	if op&0x40 != 0 {
		*d.mem.Reg(CHAN_BASE_B + offset) = value
		return
	}
	ac := d.mem.A[CH_APPLY_CHANNEL]
	if ac&0x01 != 0 {
		*d.mem.Reg(CHAN_BASE_A + offset) = value
	}
	if ac&0x02 != 0 {
		*d.mem.Reg(CHAN_BASE_B + offset) = value
	}
}

// applyModeInit widens the sweep bounds over the power-on defaults
// before a mode's modules run.
func applyModeInit(ch *ChannelBlock) {
	ch[GRP_INTENSITY+GF_MIN] = 0x9B
	ch[GRP_INTENSITY+GF_RATE] = 0xFF
	ch[GRP_FREQ+GF_MIN] = 0x8B
	ch[GRP_FREQ+GF_MAX] = 0xFF
	ch[GRP_FREQ+GF_RATE] = 0xFF
	ch[GRP_WIDTH+GF_MIN] = 0x00
	ch[GRP_WIDTH+GF_MAX] = 0xB3
	ch[GRP_WIDTH+GF_RATE] = 0xFF
}

func (d *ModeDispatcher) setupModeModules(mode uint8) {
	if mode >= MODE_USER1 && mode < MODE_SPLIT {
		d.user.Execute(mode-MODE_USER1, d.mem)
		return
	}
	if mode >= MODE_SPLIT {
		d.mem.A[CH_GATE_VALUE] = 0x07
		d.mem.B[CH_GATE_VALUE] = 0x07
		return
	}

	mods := modeModules[mode]
	if mods[0] != NO_MODULE {
		d.ExecuteModule(mods[0])
	}
	if mods[1] != NO_MODULE {
		d.ExecuteModule(mods[1])
	}

	if mode == MODE_PHASE2 {
		d.ExecuteModule(35)
	}

	switch mode {
	case MODE_AUDIO1:
		d.mem.A[CH_GATE_VALUE] = 0x47
		d.mem.B[CH_GATE_VALUE] = 0x47
		d.mem.A[CH_OUTPUT_FLAGS] = 0x40
	case MODE_AUDIO2:
		d.mem.A[CH_GATE_VALUE] = 0x47
		d.mem.B[CH_GATE_VALUE] = 0x47
	case MODE_AUDIO3:
		d.mem.A[CH_GATE_VALUE] = 0x67
		d.mem.B[CH_GATE_VALUE] = 0x67
		d.mem.A[CH_OUTPUT_FLAGS] = 0x04
	case MODE_PHASE1, MODE_PHASE2:
		d.mem.A[CH_OUTPUT_FLAGS] = 0x05
	}
}

func (d *ModeDispatcher) resetBlocks() {
	d.mem.Reset()
	applyModeInit(&d.mem.A)
	applyModeInit(&d.mem.B)
}

func (d *ModeDispatcher) initModeModules(mode uint8) {
	d.resetBlocks()
	d.mem.A[CH_APPLY_CHANNEL] = 0x03
	d.setupModeModules(mode)
	d.mem.A[CH_APPLY_CHANNEL] = 0x03
}

// initSplitMode sets each channel up from its saved mode. Modules write
// relative to the apply mask, so each sub-mode runs against a fresh pair
// of blocks with the mask narrowed to its own channel, and the results
// are snapshotted and restored at the end. Modes that poke channel A's
// gate or output flags directly get those fields propagated into B
// during the second pass.
func (d *ModeDispatcher) initSplitMode() {
	d.resetBlocks()
	d.mem.A[CH_APPLY_CHANNEL] = 0x01
	d.ExecuteModule(1)
	d.setupModeModules(d.splitModeA)
	savedA := d.mem.A

	d.resetBlocks()
	d.mem.A[CH_APPLY_CHANNEL] = 0x02
	d.ExecuteModule(1)
	d.setupModeModules(d.splitModeB)
	d.mem.B[CH_GATE_VALUE] = d.mem.A[CH_GATE_VALUE]
	d.mem.B[CH_OUTPUT_FLAGS] = d.mem.A[CH_OUTPUT_FLAGS]
	savedB := d.mem.B

	d.mem.A = savedA
	d.mem.B = savedB
	d.mem.A[CH_APPLY_CHANNEL] = 0x03
}

var random1Modes = [6]uint8{
	MODE_WAVES, MODE_STROKE, MODE_CLIMB,
	MODE_COMBO, MODE_INTENSE, MODE_RHYTHM,
}

// Secondary fields randomised after each Random 1 sub-mode entry, one
// rate field picked per rotation.
var random1RateFields = [3]uint8{
	GRP_INTENSITY + GF_RATE, GRP_FREQ + GF_RATE, GRP_WIDTH + GF_RATE,
}

func (d *ModeDispatcher) random1Init() {
	d.r1Start = d.engine.MasterTimer()
	d.r1Duration = 0
	d.r1SubMode = NO_MODULE
}

// random1Tick rotates through the first six built-in modes against the
// 1.91 Hz master timer, with a randomly drawn dwell each time.
func (d *ModeDispatcher) random1Tick() {
	elapsed := d.engine.MasterTimer() - d.r1Start
	if d.r1SubMode != NO_MODULE && elapsed < d.r1Duration {
		return
	}

	d.r1Start = d.engine.MasterTimer()
	d.r1Duration = 4 + uint16(d.prng.Next())%24
	d.r1SubMode = random1Modes[int(d.prng.Next())%len(random1Modes)]

	d.initModeModules(d.r1SubMode)

	field := random1RateFields[int(d.prng.Next())%len(random1RateFields)]
	v := d.prng.Range(1, 16)
	d.mem.A[field] = v
	d.mem.B[field] = v

	d.engine.InitDirections()
}

func (d *ModeDispatcher) Pause()       { d.paused = true }
func (d *ModeDispatcher) Resume()      { d.paused = false }
func (d *ModeDispatcher) Paused() bool { return d.paused }

func (d *ModeDispatcher) Mode() uint8        { return d.currentMode }
func (d *ModeDispatcher) OutputFlags() uint8 { return d.outputFlags }

func (d *ModeDispatcher) SplitModes() (a, b uint8) {
	return d.splitModeA, d.splitModeB
}

func (d *ModeDispatcher) SetSplitModes(modeA, modeB uint8) {
	if modeA >= MODE_SPLIT {
		modeA = MODE_WAVES
	}
	if modeB >= MODE_SPLIT {
		modeB = MODE_WAVES
	}
	d.splitModeA = modeA
	d.splitModeB = modeB
	d.cfg.SplitModeA = modeA
	d.cfg.SplitModeB = modeB
}

// SelectMode performs a full synchronous mode entry. Gates drop and the
// DAC is silenced before the blocks are touched, so no stale parameters
// ever reach the bridge.
func (d *ModeDispatcher) SelectMode(mode uint8) {
	if mode >= MODE_COUNT {
		mode = 0
	}

	if d.dac != nil {
		d.dac.UpdateBoth(DAC_MAX_VALUE, DAC_MAX_VALUE)
	}
	if d.pulseA != nil {
		d.pulseA.SetGate(false)
	}
	if d.pulseB != nil {
		d.pulseB.SetGate(false)
	}

	d.currentMode = mode
	d.cfg.CurrentMode = mode
	d.engine.Init()

	switch {
	case mode == MODE_RANDOM1:
		d.mem.Reset()
		d.random1Init()
	case mode == MODE_SPLIT:
		d.initSplitMode()
	default:
		d.initModeModules(mode)
	}

	d.engine.InitDirections()
	d.outputFlags = d.mem.A[CH_OUTPUT_FLAGS]
}

// Update runs one engine tick: rotation check, parameter sweep, then the
// module mailboxes, each followed by a direction re-init.
func (d *ModeDispatcher) Update() {
	if d.paused {
		return
	}

	if d.currentMode == MODE_RANDOM1 {
		d.random1Tick()
	}

	d.engine.Step()

	modA := d.engine.TakeTrigger(&d.mem.A)
	modB := d.engine.TakeTrigger(&d.mem.B)

	// The apply mask is republished after every drained module so a
	// module that narrows it for its own writes cannot leak the narrow
	// mask into the other channel's chain.
	if modA != NO_MODULE && modA < MODULE_COUNT {
		d.ExecuteModule(modA)
		d.mem.A[CH_APPLY_CHANNEL] = 0x03
		d.engine.InitDirections()
	}
	if modB != NO_MODULE && modB < MODULE_COUNT {
		d.ExecuteModule(modB)
		d.mem.A[CH_APPLY_CHANNEL] = 0x03
		d.engine.InitDirections()
	}

	d.outputFlags = d.mem.A[CH_OUTPUT_FLAGS]
}

// Deferred command mailbox. Writers may race; last write wins, and the
// foreground consumes at most one command per pass.
func (d *ModeDispatcher) Request(cmd uint8, mode uint8) {
	d.deferredMu.Lock()
	d.deferredCmd = cmd
	d.deferredMode = mode
	d.deferredMu.Unlock()
}

func (d *ModeDispatcher) RequestMode(mode uint8) { d.Request(DEFERRED_SET_MODE, mode) }
func (d *ModeDispatcher) RequestPause()          { d.Request(DEFERRED_PAUSE, 0) }
func (d *ModeDispatcher) RequestNext()           { d.Request(DEFERRED_NEXT, 0) }
func (d *ModeDispatcher) RequestPrev()           { d.Request(DEFERRED_PREV, 0) }
func (d *ModeDispatcher) RequestReload()         { d.Request(DEFERRED_RELOAD, 0) }
func (d *ModeDispatcher) RequestStartRamp()      { d.Request(DEFERRED_START_RAMP, 0) }

// PollDeferred consumes the mailbox and applies the command. Returns the
// command that ran (DEFERRED_NONE when the box was empty); START_RAMP is
// returned for the menu layer to act on.
func (d *ModeDispatcher) PollDeferred() uint8 {
	d.deferredMu.Lock()
	cmd := d.deferredCmd
	mode := d.deferredMode
	d.deferredCmd = DEFERRED_NONE
	d.deferredMu.Unlock()

	switch cmd {
	case DEFERRED_SET_MODE:
		d.SelectMode(mode)
	case DEFERRED_PAUSE:
		if d.paused {
			d.Resume()
		} else {
			d.Pause()
		}
	case DEFERRED_NEXT:
		if d.currentMode < MODE_COUNT-1 {
			d.SelectMode(d.currentMode + 1)
		}
	case DEFERRED_PREV:
		if d.currentMode > 0 {
			d.SelectMode(d.currentMode - 1)
		}
	case DEFERRED_RELOAD:
		d.SelectMode(d.currentMode)
	}
	return cmd
}
