// output_stage.go - Engine state to pulse parameters and DAC codes.
//
// Each foreground pass reads the live channel blocks and derives the
// microsecond pulse parameters and the 10-bit DAC targets. The DAC law
// is inverted (higher code = lower output): the power level picks a base
// code and a modulation span, the level pot moves the code inside that
// span, and the channel's momentary intensity attenuates the result
// toward silence.

package main

// Per-power-level DAC base and modulation span.
var powerLevels = [3]struct {
	base uint16
	mod  uint16
}{
	{650, 220}, // Low
	{590, 330}, // Normal
	{500, 440}, // High
}

const (
	PULSE_PERIOD_SILENT = 65000 // sentinel period for freq bytes below 2
	PULSE_WIDTH_BASE    = 70
	PULSE_WIDTH_SPAN    = 180
)

// OutputStage owns the foreground's copy path from blocks to hardware.
type OutputStage struct {
	mem    *ChannelMem
	cfg    *SystemConfig
	pulseA *PulseChannel
	pulseB *PulseChannel
	dac    DAC
	adc    ADC
}

func NewOutputStage(mem *ChannelMem, cfg *SystemConfig, pulseA, pulseB *PulseChannel, dac DAC, adc ADC) *OutputStage {
	return &OutputStage{mem: mem, cfg: cfg, pulseA: pulseA, pulseB: pulseB, dac: dac, adc: adc}
}

// pulseParams converts a block's frequency and width bytes into
// microseconds. Frequency bytes below 2 yield the silent sentinel.
func pulseParams(ch *ChannelBlock) (widthUS uint8, periodUS uint16) {
	freq := ch.FreqValue()
	if freq < 2 {
		periodUS = PULSE_PERIOD_SILENT
	} else {
		periodUS = uint16(freq) * 256
	}
	widthUS = uint8(PULSE_WIDTH_BASE + uint16(ch.WidthValue())*PULSE_WIDTH_SPAN/256)
	return widthUS, periodUS
}

// intensityFraction folds the block's momentary intensity, the ramp
// group and the menu's ramp percent into a 0-255 attenuation factor.
func intensityFraction(ch *ChannelBlock, rampPercent uint8) uint16 {
	intensity := uint16(ch.IntensityValue()) * uint16(ch.RampValue()) / 256
	if rampPercent > 100 {
		rampPercent = 100
	}
	return intensity * uint16(rampPercent) / 100
}

// dacTarget computes the inverted DAC code for one channel.
func dacTarget(power uint8, levelADC uint16, intensity uint16) uint16 {
	if power > POWER_HIGH {
		power = POWER_NORMAL
	}
	pl := powerLevels[power]
	if levelADC > 1023 {
		levelADC = 1023
	}
	dac := uint32(pl.base) + uint32(pl.mod)*uint32(1023-levelADC)/1024
	dac = 1023 - (1023-dac)*uint32(intensity)/256
	if dac > 1023 {
		dac = 1023
	}
	return uint16(dac)
}

// Refresh derives and submits both channels' pulse parameters and DAC
// codes. outputEnabled gates everything; rampPercent comes from the menu
// ramp state machine.
func (o *OutputStage) Refresh(outputEnabled bool, rampPercent uint8) {
	widthA, periodA := pulseParams(&o.mem.A)
	widthB, periodB := pulseParams(&o.mem.B)

	gateA := o.mem.A.GateValue()&GATE_ON_BIT != 0 && outputEnabled && o.mem.A.FreqValue() >= 2
	gateB := o.mem.B.GateValue()&GATE_ON_BIT != 0 && outputEnabled && o.mem.B.FreqValue() >= 2

	// Clamp errors are expected under undersized periods; the pulse
	// layer already floored them.
	_ = o.pulseA.Submit(widthA, periodA)
	_ = o.pulseB.Submit(widthB, periodB)
	o.pulseA.SetGate(gateA)
	o.pulseB.SetGate(gateB)

	intA := intensityFraction(&o.mem.A, rampPercent)
	intB := intensityFraction(&o.mem.B, rampPercent)
	if !outputEnabled {
		intA, intB = 0, 0
	}

	dacA := dacTarget(o.cfg.PowerLevel, o.adc.Read(ADC_LEVEL_A), intA)
	dacB := dacTarget(o.cfg.PowerLevel, o.adc.Read(ADC_LEVEL_B), intB)
	o.dac.UpdateBoth(dacA, dacB)
}
