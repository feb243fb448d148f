// selftest.go - Power-on self-test.
//
// Runs before the engine starts: exercises both DAC channels across a
// spread of codes with the bridge idle, then checks the supply rail.
// A failure halts startup; the engine never runs on hardware that
// cannot be silenced.

package main

import "fmt"

// Battery ADC thresholds through the supply divider.
const (
	BATTERY_ADC_EMPTY = 584
	BATTERY_ADC_FULL  = 676
)

var selfTestCodes = []uint16{0, 256, 512, 768, DAC_MAX_VALUE}

// PowerOnSelfTest verifies the DAC path and the supply rail. The display
// shows progress while it runs.
func PowerOnSelfTest(dac DAC, adc ADC, display Display) error {
	if display != nil {
		display.WriteLine(0, "Testing DAC...")
	}

	for i, code := range selfTestCodes {
		dac.WriteChannelA(code)
		dac.WriteChannelB(code)
		if display != nil {
			display.WriteLine(1, progressBar(i+1, len(selfTestCodes)))
		}
	}

	// Leave both channels silenced.
	dac.UpdateBoth(DAC_MAX_VALUE, DAC_MAX_VALUE)

	battery := adc.Read(ADC_BATTERY)
	if battery < BATTERY_ADC_EMPTY/2 {
		return fmt.Errorf("selftest: supply rail reads %d, below minimum", battery)
	}

	if display != nil {
		display.WriteLine(0, "Self-test OK")
		display.WriteLine(1, "")
	}
	return nil
}

// BatteryPercent maps the supply ADC reading to 0-100.
func BatteryPercent(adc ADC) int {
	v := int(adc.Read(ADC_BATTERY))
	if v <= BATTERY_ADC_EMPTY {
		return 0
	}
	if v >= BATTERY_ADC_FULL {
		return 100
	}
	return (v - BATTERY_ADC_EMPTY) * 100 / (BATTERY_ADC_FULL - BATTERY_ADC_EMPTY)
}
