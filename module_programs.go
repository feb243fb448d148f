// module_programs.go - Built-in bytecode modules.
//
// Each module is a short immutable byte program run once to configure
// channel register blocks. SET opcodes for the channel-A base double as
// "apply per mask" writes: with apply_channel = both they land in both
// blocks, which is how most modes configure the pair with one program.
//
// Opcode map (top bits):
//   0000xxxx  END
//   0001xxxx  reserved, two bytes consumed
//   001llaaa  COPY  - opcode, addr_low, (l+1) data bytes
//   0100ooaa  MEMOP - bank store/load, shift, random
//   0101ooaa  MATHOP - add/and/or/xor immediate
//   1cffffff  SET   - write value at (0x80 | c<<8) + f

package main

const MODULE_COUNT = 36

// moduleOff turns gates off, leaving positive polarity configured.
var moduleOff = []uint8{
	0x90, 0x06,
	0x00, 0x00,
}

// moduleOn turns gates on.
var moduleOn = []uint8{
	0x90, 0x07,
	0x00, 0x00,
}

// moduleIntenseB gives channel B a fast gate duty cycle.
var moduleIntenseB = []uint8{
	0xD8, 0x3F, // ch_b gate_ontime
	0xD9, 0x3F, // ch_b gate_offtime
	0xDA, 0x01, // ch_b gate_select = 244Hz timer
	0x00, 0x00,
}

// moduleStrokeA: intensity dips toward the depth setting with the gate
// polarity toggling at each end of the sweep.
var moduleStrokeA = []uint8{
	0x86, 0x00, // ma_range_high
	0x87, 0x20, // ma_range_low
	0xA9, 0x02, // intensity_step = 2
	0xAA, 0xFE, // intensity_action_min = REV_TOGGLE
	0xAB, 0xFE, // intensity_action_max = REV_TOGGLE
	0xAC, 0x45, // intensity_select: 244Hz, min from depth, rate from MA
	0xB5, 0x00, // freq_select = static
	0xB7, 0xFF, // width_value = 255
	0xBE, 0x00, // width_select = static
	0x90, 0x05,
	0x00, 0x00,
}

var moduleStrokeB = []uint8{
	0xE6, 0xE6, // ch_b intensity_min
	0xE9, 0x01, // ch_b intensity_step
	0xEA, 0xFE,
	0xEB, 0xFE,
	0xEC, 0x41, // ch_b intensity_select: 244Hz, rate from MA
	0xF5, 0x00,
	0xF7, 0xD8, // ch_b width_value
	0xFE, 0x00,
	0xD0, 0x05,
	0x00, 0x00,
}

// Climb chain A: sawtooth frequency sweep, each bottom hit doubles the
// step via the next module in the 5 -> 6 -> 7 -> 5 cycle.
var moduleClimbA1 = []uint8{
	0x86, 0x01,
	0x87, 0x64,
	0xB5, 0x41, // freq_select: 244Hz, rate from MA
	0xB3, 0x06, // freq_action_min = module 6
	0xAF, 0x08, // freq_min = 8
	0xB0, 0xFF, // freq_max
	0xAE, 0xFF, // freq_value
	0xB2, 0x01, // freq_step = 1
	0x00, 0x00,
}

var moduleClimbA2 = []uint8{
	0xB2, 0x02,
	0xAE, 0xFF,
	0xB3, 0x07,
	0x00, 0x00,
}

var moduleClimbA3 = []uint8{
	0xB2, 0x04,
	0xAE, 0xFF,
	0xB3, 0x05,
	0x00, 0x00,
}

var moduleClimbB1 = []uint8{
	0xEE, 0xFF,
	0xF0, 0xFF,
	0xEF, 0x08,
	0xF2, 0x01,
	0xF3, 0x09,
	0xF5, 0x41,
	0x00, 0x00,
}

var moduleClimbB2 = []uint8{
	0x85, 0x02, // apply_channel = B only
	0xF2, 0x02,
	0xEE, 0xFF,
	0xF3, 0x0A,
	0x00, 0x00,
}

var moduleClimbB3 = []uint8{
	0x85, 0x02,
	0xF2, 0x05,
	0xEE, 0xFF,
	0xF3, 0x08,
	0x00, 0x00,
}

// moduleWavesA: slow triangle sweeps on frequency and width, rate scaled
// by the MA knob.
var moduleWavesA = []uint8{
	0x86, 0x01, // ma_range_high
	0x87, 0x02, // ma_range_low
	0xB5, 0x41, // freq_select: 244Hz, rate from MA
	0xAF, 0x8B, // freq_min = 139
	0xAE, 0xFF, // freq_value starts at the top
	0xBE, 0x41, // width_select: 244Hz, rate from MA
	0xBB, 0x03, // width_step = 3
	0x00, 0x00,
}

var moduleWavesB = []uint8{
	0xFE, 0x41, // ch_b width_select
	0xFB, 0x03, // ch_b width_step
	0xF5, 0x41, // ch_b freq_select
	0xEF, 0x40, // ch_b freq_min = 64
	0x00, 0x00,
}

var moduleComboA = []uint8{
	0x86, 0x00,
	0x87, 0x40,
	0x9A, 0x4A, // gate_select: 30Hz, on/off times from MA
	0xB5, 0x02, // freq_select: 30Hz timer
	0xBE, 0x26, // width_select: 30Hz, min and rate from advanced
	0x00, 0x00,
}

var moduleIntenseA = []uint8{
	0x86, 0x09,
	0x00, 0x00,
}

var moduleRhythm1 = []uint8{
	0x95, 0x1F, // next_module_timer_max = 31
	0x95, 0x1F,
	0x9A, 0x49, // gate_select: 244Hz, ontime from MA
	0x96, 0x02, // next_module_select: 30Hz timer
	0xA5, 0xE0, // intensity_value
	0x97, 0x10, // next_module_number = 16
	0x86, 0x01,
	0x87, 0x17,
	0xB7, 0x46, // width_value
	0xAB, 0xFD, // intensity_action_max = LOOP
	0xBE, 0x00,
	0xAB, 0xFD,
	0xA9, 0x00, // intensity_step = 0
	0xAC, 0x01, // intensity_select: 244Hz timer
	0xA6, 0xE0, // intensity_min
	0x00, 0x00,
}

var moduleRhythm2 = []uint8{
	0x97, 0x11, // next_module_number = 17
	0x5C, 0xA5, 0x01, // intensity_value ^= 1
	0x50, 0xA5, 0x01, // intensity_value += 1
	0xB7, 0xB4, // width_value
	0x00, 0x00,
}

var moduleRhythm3 = []uint8{
	0xB7, 0x46,
	0x97, 0x10,
	0x00, 0x00,
}

// Toggle pair: channels alternate on/off; the chain period comes from
// the MA knob through the next-module timer's rate source (knob max
// shortens the period from ~240 to ~60 ticks).
var moduleToggle1 = []uint8{
	0x86, 0x07, // ma_range_high = 7
	0x87, 0x1E, // ma_range_low = 30
	0x96, 0x42, // next_module_select: 30Hz, period from MA
	0x95, 0x1E, // next_module_timer_max fallback
	0x97, 0x13, // next_module_number = 19
	0xB5, 0x04, // freq_select: static from advanced
	0x90, 0x07, // gate A on
	0xD0, 0x06, // ch_b gate off
	0x00, 0x00,
}

var moduleToggle2 = []uint8{
	0x85, 0x01, // apply_channel = A only
	0x90, 0x06, // gate A off
	0x85, 0x03, // apply_channel = both
	0x97, 0x12, // next_module_number = 18
	0xD0, 0x07, // ch_b gate on
	0x00, 0x00,
}

var modulePhase1A = []uint8{
	0x86, 0x01,
	0x87, 0x20,
	0xB5, 0x04,
	0xBE, 0x00,
	0xB7, 0x7D, // width_value = 125
	0x00, 0x00,
}

// modulePhase1B shifts channel B's width ahead of channel A.
var modulePhase1B = []uint8{
	0xF7, 0x79, // ch_b width_value = 121
	0x00, 0x00,
}

var modulePhase3 = []uint8{
	0x83, 0x08, // output_control_flags
	0xD0, 0xA0, // ch_b gate_value
	0xAC, 0x01,
	0x86, 0xCD,
	0x87, 0xD4,
	0xB5, 0x04,
	0xEC, 0x09, // ch_b intensity_select
	0x00, 0x00,
}

var moduleAudio12 = []uint8{
	0xB5, 0x04,
	0xBE, 0x00,
	0x00, 0x00,
}

// Orgasm chain: width sweeps that narrow and widen while the chain
// 24 -> 25 -> 26 -> 27 reshapes the bounds each pass.
var moduleOrgasm1 = []uint8{
	0xAC, 0x00,
	0xB7, 0x32,
	0xBB, 0x04,
	0xBA, 0x01,
	0xB8, 0x32,
	0x85, 0x01,
	0xBE, 0x01,
	0xBD, 0x19, // width_action_max = module 25
	0xFE, 0x00,
	0x00, 0x00,
}

var moduleOrgasm2 = []uint8{
	0x85, 0x01,
	0xBB, 0xFF,
	0xBC, 0x1A, // width_action_min = module 26
	0xFE, 0x01,
	0xFD, 0xFF, // ch_b width_action_max = REVERSE
	0x85, 0x03,
	0x50, 0xB8, 0x02, // width_min += 2
	0x5C, 0xB8, 0x02, // width_min ^= 2
	0x00, 0x00,
}

var moduleOrgasm3 = []uint8{
	0x85, 0x01,
	0xBE, 0x00,
	0xFC, 0x1B, // ch_b width_action_min = module 27
	0x00, 0x00,
}

var moduleOrgasm4 = []uint8{
	0x85, 0x01,
	0xBE, 0x01,
	0xFE, 0x00,
	0xBB, 0x01,
	0xFB, 0x01,
	0x00, 0x00,
}

// Torment chain: random burst lengths, intensities and rates drawn from
// the block's random bounds; module 28 re-arms itself through the B
// channel's next-module timer.
var moduleTorment1 = []uint8{
	0x85, 0x03,
	0xAC, 0x00,
	0xA5, 0xB0,
	0x90, 0x06,
	0x8D, 0x05,
	0x8E, 0x18,
	0x4D, 0x95, // RAND -> ch_b next_module_timer_max
	0xD6, 0x03, // ch_b next_module_select: 1Hz timer
	0xAB, 0x1C,
	0x8D, 0xE0,
	0x8E, 0xFF,
	0x4C, 0xA7, // RAND -> intensity_max
	0x8D, 0x06,
	0x8E, 0x3F,
	0x4C, 0xA8, // RAND -> intensity_rate
	0x8D, 0x1D,
	0x8E, 0x1F,
	0x4D, 0x97, // RAND -> ch_b next_module_number (29..31)
	0xAB, 0xFF,
	0x00, 0x00,
}

var moduleTorment2 = []uint8{
	0x85, 0x03,
	0xAC, 0x01,
	0x90, 0x07,
	0xAB, 0x1C,
	0x00, 0x00,
}

var moduleTorment3 = []uint8{
	0x85, 0x02,
	0xEC, 0x01,
	0xD0, 0x07,
	0xEB, 0x1C,
	0x00, 0x00,
}

var moduleTorment4 = []uint8{
	0x85, 0x01,
	0xAC, 0x01,
	0x90, 0x07,
	0xAB, 0x1C,
	0x00, 0x00,
}

var moduleRandom2 = []uint8{
	0x8D, 0x01,
	0x8E, 0x04,
	0x4D, 0xB2, // RAND -> ch_b freq_step
	0x4C, 0xA8, // RAND -> intensity_rate
	0x4D, 0xA8,
	0x4C, 0xB1, // RAND -> freq_rate
	0x4D, 0xB1,
	0x4C, 0xBA, // RAND -> width_rate
	0x4D, 0xBA,
	0xBE, 0x01,
	0xB5, 0x02,
	0xAC, 0x02,
	0xD6, 0x03,
	0xD7, 0x20, // ch_b next_module_number = 32
	0x8D, 0x05,
	0x8E, 0x1F,
	0x4D, 0x95,
	0x00, 0x00,
}

var moduleComboB = []uint8{
	0xF2, 0x02,
	0xFB, 0x02,
	0x00, 0x00,
}

var moduleAudio3 = []uint8{
	0xB5, 0x00,
	0xBE, 0x00,
	0xAE, 0x0A, // freq_value = 10
	0x00, 0x00,
}

var modulePhase2B = []uint8{
	0xAC, 0x25,
	0x00, 0x00,
}

var moduleTable = [MODULE_COUNT][]uint8{
	moduleOff, moduleOn, moduleIntenseB, moduleStrokeA, moduleStrokeB,
	moduleClimbA1, moduleClimbA2, moduleClimbA3, moduleClimbB1, moduleClimbB2,
	moduleClimbB3, moduleWavesA, moduleWavesB, moduleComboA, moduleIntenseA,
	moduleRhythm1, moduleRhythm2, moduleRhythm3, moduleToggle1, moduleToggle2,
	modulePhase1A, modulePhase1B, modulePhase3, moduleAudio12, moduleOrgasm1,
	moduleOrgasm2, moduleOrgasm3, moduleOrgasm4, moduleTorment1, moduleTorment2,
	moduleTorment3, moduleTorment4, moduleRandom2, moduleComboB, moduleAudio3,
	modulePhase2B,
}
