// mode_dispatcher_test.go - Mode entry, module chains and split init.

package main

import "testing"

// reversals counts sign changes in a value trace, ignoring flat spots.
func reversals(trace []uint8) int {
	count := 0
	last := 0
	for i := 1; i < len(trace); i++ {
		d := int(trace[i]) - int(trace[i-1])
		if d == 0 {
			continue
		}
		sign := 1
		if d < 0 {
			sign = -1
		}
		if last != 0 && sign != last {
			count++
		}
		last = sign
	}
	return count
}

func TestWavesEntry(t *testing.T) {
	d, mem, cfg, _ := newTestDispatcher()
	cfg.MultiAdjust = 127
	d.SelectMode(MODE_WAVES)

	freq := mem.A.Group(GRP_FREQ)
	if freq[GF_SELECT] != 0x41 || freq[GF_MIN] != 0x8B || freq[GF_MAX] != 0xFF || freq[GF_STEP] != 1 {
		t.Fatalf("A freq group after Waves entry: select=%02X min=%02X max=%02X step=%d",
			freq[GF_SELECT], freq[GF_MIN], freq[GF_MAX], freq[GF_STEP])
	}
	width := mem.A.Group(GRP_WIDTH)
	if width[GF_SELECT] != 0x41 || width[GF_MIN] != 0x00 || width[GF_MAX] != 0xB3 || width[GF_STEP] != 3 {
		t.Fatalf("A width group after Waves entry: select=%02X min=%02X max=%02X step=%d",
			width[GF_SELECT], width[GF_MIN], width[GF_MAX], width[GF_STEP])
	}

	var freqTrace, widthTrace []uint8
	for i := 0; i < 244; i++ {
		d.Update()
		freqTrace = append(freqTrace, mem.A[GRP_FREQ+GF_VALUE])
		widthTrace = append(widthTrace, mem.A[GRP_WIDTH+GF_VALUE])
	}

	for i, v := range freqTrace {
		if v < 0x8B {
			t.Fatalf("tick %d: freq value %d below 139", i, v)
		}
	}
	for i, v := range widthTrace {
		if v > 0xB3 {
			t.Fatalf("tick %d: width value %d above 179", i, v)
		}
	}
	if reversals(freqTrace) < 1 {
		t.Fatalf("freq group never reversed in 244 ticks")
	}
	if reversals(widthTrace) < 1 {
		t.Fatalf("width group never reversed in 244 ticks")
	}
}

func TestStrokeDepth(t *testing.T) {
	d, mem, cfg, _ := newTestDispatcher()
	cfg.MultiAdjust = 127
	cfg.AdvDepth = 10
	d.SelectMode(MODE_STROKE)

	intensity := mem.A.Group(GRP_INTENSITY)
	if intensity[GF_SELECT] != 0x45 {
		t.Fatalf("A intensity select = %02X, want 45 (min from depth, rate from MA)", intensity[GF_SELECT])
	}
	if intensity[GF_STEP] != 2 {
		t.Fatalf("A intensity step = %d, want 2", intensity[GF_STEP])
	}

	var trace []uint8
	for i := 0; i < 6000; i++ {
		d.Update()
		trace = append(trace, mem.A[GRP_INTENSITY+GF_VALUE])
	}

	if got := mem.A[GRP_INTENSITY+GF_MIN]; got != 10 {
		t.Fatalf("intensity min = %d, want depth setting 10", got)
	}
	for i, v := range trace {
		if v < 9 {
			t.Fatalf("tick %d: intensity %d dipped below the depth floor", i, v)
		}
	}
	if reversals(trace) < 1 {
		t.Fatalf("intensity never reversed")
	}
}

func TestClimbChain(t *testing.T) {
	d, mem, cfg, _ := newTestDispatcher()
	cfg.MultiAdjust = 255 // fastest sweep: rate resolves to 1
	d.SelectMode(MODE_CLIMB)

	if got := mem.A[GRP_FREQ+GF_STEP]; got != 1 {
		t.Fatalf("initial freq step = %d, want 1", got)
	}
	if got := mem.A[GRP_FREQ+GF_MIN]; got != 8 {
		t.Fatalf("freq min = %d, want 8", got)
	}
	if got := mem.A[GRP_FREQ+GF_VALUE]; got != 255 {
		t.Fatalf("freq value = %d, want 255", got)
	}

	var steps []uint8
	last := uint8(1)
	for i := 0; i < 1200 && len(steps) < 3; i++ {
		d.Update()
		if s := mem.A[GRP_FREQ+GF_STEP]; s != last {
			steps = append(steps, s)
			last = s
		}
	}

	want := []uint8{2, 4, 1}
	if len(steps) != len(want) {
		t.Fatalf("observed step changes %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("chain step sequence %v, want %v", steps, want)
		}
	}
}

// toggleHalfPeriod measures ticks between channel A gate flips.
func toggleHalfPeriod(d *ModeDispatcher, mem *ChannelMem, maxTicks int) int {
	last := mem.A[CH_GATE_VALUE] & GATE_ON_BIT
	lastFlip := -1
	for i := 0; i < maxTicks; i++ {
		d.Update()
		now := mem.A[CH_GATE_VALUE] & GATE_ON_BIT
		if now != last {
			if lastFlip >= 0 {
				return i - lastFlip
			}
			lastFlip = i
			last = now
		}
	}
	return -1
}

func TestToggleKnobScaling(t *testing.T) {
	d, mem, cfg, _ := newTestDispatcher()

	cfg.MultiAdjust = 0
	d.SelectMode(MODE_TOGGLE)
	if mem.A[CH_GATE_VALUE]&GATE_ON_BIT == 0 {
		t.Fatalf("channel A gate should start on in Toggle")
	}
	if mem.B[CH_GATE_VALUE]&GATE_ON_BIT != 0 {
		t.Fatalf("channel B gate should start off in Toggle")
	}

	slow := toggleHalfPeriod(d, mem, 3000)
	if slow < 200 || slow > 280 {
		t.Fatalf("knob=0 toggle period = %d ticks, want about 240", slow)
	}

	cfg.MultiAdjust = 255
	d.SelectMode(MODE_TOGGLE)
	fast := toggleHalfPeriod(d, mem, 3000)
	if fast < 40 || fast > 80 {
		t.Fatalf("knob=255 toggle period = %d ticks, want about 60", fast)
	}

	if slow < fast*3 {
		t.Fatalf("toggle period did not scale with knob: slow=%d fast=%d", slow, fast)
	}
}

func TestToggleChannelsAlternate(t *testing.T) {
	d, mem, cfg, _ := newTestDispatcher()
	cfg.MultiAdjust = 255
	d.SelectMode(MODE_TOGGLE)

	for i := 0; i < 2000; i++ {
		d.Update()
		a := mem.A[CH_GATE_VALUE]&GATE_ON_BIT != 0
		b := mem.B[CH_GATE_VALUE]&GATE_ON_BIT != 0
		if a == b {
			t.Fatalf("tick %d: gates A and B agree (%v), want alternation", i, a)
		}
	}
}

func TestModeEntryIdempotence(t *testing.T) {
	d, mem, cfg, _ := newTestDispatcher()
	cfg.MultiAdjust = 127

	d.SelectMode(MODE_WAVES)
	snapA, snapB := mem.A, mem.B

	for i := 0; i < 100; i++ {
		d.Update()
	}

	d.SelectMode(MODE_WAVES)
	if mem.A != snapA {
		t.Fatalf("channel A block differs after re-entering Waves")
	}
	if mem.B != snapB {
		t.Fatalf("channel B block differs after re-entering Waves")
	}
}

// groupBytes extracts the four parameter groups (0x1C-0x3F) for
// comparison independent of gate and control fields.
func groupBytes(ch *ChannelBlock) [36]uint8 {
	var out [36]uint8
	copy(out[:], ch[GRP_RAMP:GRP_WIDTH+9])
	return out
}

func TestSplitIsolation(t *testing.T) {
	ref, refMem, refCfg, _ := newTestDispatcher()
	refCfg.MultiAdjust = 127
	ref.SelectMode(MODE_WAVES)
	wavesA := groupBytes(&refMem.A)
	ref.SelectMode(MODE_CLIMB)
	climbB := groupBytes(&refMem.B)

	d, mem, cfg, _ := newTestDispatcher()
	cfg.MultiAdjust = 127
	d.SetSplitModes(MODE_WAVES, MODE_CLIMB)
	d.SelectMode(MODE_SPLIT)

	if got := groupBytes(&mem.A); got != wavesA {
		t.Fatalf("split channel A parameter groups differ from solo Waves")
	}
	if got := groupBytes(&mem.B); got != climbB {
		t.Fatalf("split channel B parameter groups differ from solo Climb")
	}
	if mem.A[CH_APPLY_CHANNEL] != 0x03 {
		t.Fatalf("apply mask = %02X after split init, want 03", mem.A[CH_APPLY_CHANNEL])
	}
}

func TestOrgasmChainStructure(t *testing.T) {
	d, mem, cfg, _ := newTestDispatcher()
	cfg.MultiAdjust = 127
	d.SelectMode(MODE_ORGASM)

	w := mem.A.Group(GRP_WIDTH)
	if w[GF_SELECT] != 0x01 || w[GF_STEP] != 4 || w[GF_ACTION_MAX] != 25 {
		t.Fatalf("Orgasm entry width group: select=%02X step=%d action_max=%d",
			w[GF_SELECT], w[GF_STEP], w[GF_ACTION_MAX])
	}

	// First boundary chains to module 25: step jumps to 255 and the
	// min-side action arms module 26.
	for i := 0; i < 200; i++ {
		d.Update()
		if mem.A[GRP_WIDTH+GF_STEP] == 255 {
			break
		}
	}
	if mem.A[GRP_WIDTH+GF_STEP] != 255 {
		t.Fatalf("module 25 never ran: width step = %d", mem.A[GRP_WIDTH+GF_STEP])
	}
	if mem.A[GRP_WIDTH+GF_ACTION_MIN] != 26 {
		t.Fatalf("width action_min = %d, want module 26", mem.A[GRP_WIDTH+GF_ACTION_MIN])
	}
}

func TestTormentEntryRandomisesWithinBounds(t *testing.T) {
	d, mem, _, _ := newTestDispatcher()
	d.SelectMode(MODE_TORMENT)

	if v := mem.A[GRP_INTENSITY+GF_MAX]; v < 0xE0 {
		t.Fatalf("intensity max = %02X, want >= E0", v)
	}
	if v := mem.A[GRP_INTENSITY+GF_RATE]; v < 6 || v > 0x3F {
		t.Fatalf("intensity rate = %02X, want in [06,3F]", v)
	}
	if v := mem.B[CH_NEXT_MOD_NUMBER]; v < 0x1D || v > 0x1F {
		t.Fatalf("B next module = %02X, want a torment burst module in [1D,1F]", v)
	}
	if v := mem.B[CH_NEXT_MOD_MAX]; v < 5 || v > 24 {
		t.Fatalf("B next module timer max = %d, want in [5,24]", v)
	}
	if mem.B[CH_NEXT_MOD_SELECT]&SEL_TIMER_MASK != SEL_TIMER_1HZ {
		t.Fatalf("B next module timer rate = %02X, want 1Hz", mem.B[CH_NEXT_MOD_SELECT])
	}
	if mem.A[GRP_INTENSITY+GF_ACTION_MAX] != ACTION_REVERSE {
		t.Fatalf("final intensity action = %02X, want REVERSE", mem.A[GRP_INTENSITY+GF_ACTION_MAX])
	}
}

func TestRandom1Rotation(t *testing.T) {
	d, _, cfg, _ := newTestDispatcher()
	cfg.MultiAdjust = 127
	d.SelectMode(MODE_RANDOM1)

	seen := map[uint8]bool{}
	for i := 0; i < 30000; i++ {
		d.Update()
		if d.r1SubMode != NO_MODULE {
			seen[d.r1SubMode] = true
		}
	}

	if len(seen) < 2 {
		t.Fatalf("random rotation visited %d sub-modes in 30000 ticks, want several", len(seen))
	}
	for m := range seen {
		if m > MODE_RHYTHM {
			t.Fatalf("rotation picked mode %d outside the first six", m)
		}
	}
}

func TestDeferredAppliedBetweenTicks(t *testing.T) {
	d, _, cfg, _ := newTestDispatcher()
	d.SelectMode(MODE_WAVES)

	d.RequestMode(MODE_CLIMB)
	d.Update()
	if cfg.CurrentMode != MODE_WAVES {
		t.Fatalf("deferred mode change applied mid-tick")
	}
	if cmd := d.PollDeferred(); cmd != DEFERRED_SET_MODE {
		t.Fatalf("poll returned %d, want SET_MODE", cmd)
	}
	if cfg.CurrentMode != MODE_CLIMB {
		t.Fatalf("mode = %d after poll, want Climb", cfg.CurrentMode)
	}
}

func TestDeferredLastWriteWins(t *testing.T) {
	d, _, cfg, _ := newTestDispatcher()
	d.SelectMode(MODE_WAVES)

	d.RequestMode(MODE_CLIMB)
	d.RequestMode(MODE_RHYTHM)
	d.PollDeferred()
	if cfg.CurrentMode != MODE_RHYTHM {
		t.Fatalf("mode = %d, want the newer request (Rhythm)", cfg.CurrentMode)
	}
	if cmd := d.PollDeferred(); cmd != DEFERRED_NONE {
		t.Fatalf("second poll returned %d, want NONE", cmd)
	}
}

func TestPhaseModesOffsetChannels(t *testing.T) {
	d, mem, _, _ := newTestDispatcher()
	d.SelectMode(MODE_PHASE1)

	// Channel B's width starts ahead of channel A's sweep.
	a := mem.A[GRP_WIDTH+GF_VALUE]
	b := mem.B[GRP_WIDTH+GF_VALUE]
	if a != 0x7D || b != 0x79 {
		t.Fatalf("Phase1 widths A=%02X B=%02X, want 7D/79", a, b)
	}
	if d.OutputFlags() != 0x05 {
		t.Fatalf("Phase1 output flags = %02X, want 05", d.OutputFlags())
	}

	d.SelectMode(MODE_PHASE2)
	if mem.A[GRP_INTENSITY+GF_SELECT] != 0x25 {
		t.Fatalf("Phase2 did not run its extra module: intensity select = %02X",
			mem.A[GRP_INTENSITY+GF_SELECT])
	}
}

func TestUserModeRunsSlot(t *testing.T) {
	d, mem, _, _ := newTestDispatcher()

	prog := make([]uint8, USER_PROG_SLOT_SIZE)
	prog[0] = USER_PROG_MAGIC
	prog[1] = 0xB7 // SET width_value
	prog[2] = 0x5A
	d.user.Write(0, prog)

	d.SelectMode(MODE_USER1)
	if mem.A[GRP_WIDTH+GF_VALUE] != 0x5A || mem.B[GRP_WIDTH+GF_VALUE] != 0x5A {
		t.Fatalf("user program did not run: A=%02X B=%02X",
			mem.A[GRP_WIDTH+GF_VALUE], mem.B[GRP_WIDTH+GF_VALUE])
	}

	// Invalid slot leaves the defaults in place.
	d.SelectMode(MODE_USER2)
	if mem.A[GRP_WIDTH+GF_VALUE] != channelDefaults[GRP_WIDTH+GF_VALUE] {
		t.Fatalf("invalid user slot changed the block")
	}
}
