// audio_follower.go - Audio input envelope follower.
//
// In the three audio modes the foreground replaces each channel's
// intensity value with an envelope derived from its line-in ADC channel.
// The input is half-wave rectified in hardware; the follower halves it,
// compensates the rectifier offset when the LSB was set, and clamps to a
// register byte.

package main

func audioEnvelope(adcVal uint16) uint8 {
	lsb := adcVal & 1
	half := adcVal >> 1
	if lsb != 0 {
		if half >= 0x53 {
			half -= 0x53
		} else {
			half = 0
		}
	}
	if half > 255 {
		half = 255
	}
	return uint8(half)
}

// AudioFollower feeds the channel intensity registers from the audio
// inputs. It touches nothing else in the engine.
type AudioFollower struct {
	mem *ChannelMem
	adc ADC
}

func NewAudioFollower(mem *ChannelMem, adc ADC) *AudioFollower {
	return &AudioFollower{mem: mem, adc: adc}
}

func audioMode(mode uint8) bool {
	return mode == MODE_AUDIO1 || mode == MODE_AUDIO2 || mode == MODE_AUDIO3
}

// Process updates both intensity values when the active mode is an audio
// mode; otherwise it is a no-op.
func (f *AudioFollower) Process(mode uint8) {
	if !audioMode(mode) {
		return
	}
	f.mem.A[GRP_INTENSITY+GF_VALUE] = audioEnvelope(f.adc.Read(ADC_AUDIO_A))
	f.mem.B[GRP_INTENSITY+GF_VALUE] = audioEnvelope(f.adc.Read(ADC_AUDIO_B))
}
