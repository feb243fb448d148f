// config.go - Runtime configuration: mode, power level, knobs, advanced settings.

package main

const (
	POWER_LOW    = 0
	POWER_NORMAL = 1
	POWER_HIGH   = 2
)

// SystemConfig is the runtime configuration singleton for one device.
// Loaded from the persistent store at boot, mutated by the menu and the
// serial protocol, read by the engine every tick. Every field is a single
// byte, so cross-context writes are safe at field granularity.
type SystemConfig struct {
	CurrentMode  uint8
	PowerLevel   uint8 // POWER_LOW / POWER_NORMAL / POWER_HIGH
	SplitMode    uint8
	SplitModeA   uint8
	SplitModeB   uint8
	IntensityA   uint8
	IntensityB   uint8
	FrequencyA   uint8
	FrequencyB   uint8
	WidthA       uint8
	WidthB       uint8
	MultiAdjust  uint8 // MA knob position 0-255
	AudioGain    uint8
	AdvRampLevel uint8
	AdvRampTime  uint8
	AdvDepth     uint8
	AdvTempo     uint8
	AdvFrequency uint8
	AdvEffect    uint8
	AdvWidth     uint8
	AdvPace      uint8
	FavoriteMode uint8
}

func (c *SystemConfig) SetDefaults() {
	*c = SystemConfig{
		CurrentMode:  MODE_WAVES,
		PowerLevel:   POWER_NORMAL,
		SplitModeA:   MODE_WAVES,
		SplitModeB:   MODE_WAVES,
		IntensityA:   128,
		IntensityB:   128,
		FrequencyA:   5,
		FrequencyB:   5,
		WidthA:       25,
		WidthB:       25,
		MultiAdjust:  128,
		AudioGain:    128,
		AdvRampLevel: 128,
		AdvRampTime:  0,
		AdvDepth:     50,
		AdvTempo:     50,
		AdvFrequency: 107,
		AdvEffect:    128,
		AdvWidth:     130,
		AdvPace:      50,
		FavoriteMode: MODE_WAVES,
	}
}

// ApplyToChannels pushes the per-channel base values into the live
// register blocks after a mode entry.
func (c *SystemConfig) ApplyToChannels(mem *ChannelMem) {
	mem.A[GRP_INTENSITY+GF_VALUE] = c.IntensityA
	mem.B[GRP_INTENSITY+GF_VALUE] = c.IntensityB
	mem.A[GRP_FREQ+GF_VALUE] = c.FrequencyA
	mem.B[GRP_FREQ+GF_VALUE] = c.FrequencyB
	mem.A[GRP_WIDTH+GF_VALUE] = c.WidthA
	mem.B[GRP_WIDTH+GF_VALUE] = c.WidthB
}
