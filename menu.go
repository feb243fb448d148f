// menu.go - Four-button menu screens and the intensity ramp.
//
// Main screen cycles modes with Up/Down; OK restarts the ramp; Menu
// enters the options list (power level, audio gain, the eight advanced
// settings, favourite mode, save). The output stays disabled until the
// operator starts the first ramp, and every mode change restarts it.
//
// The ramp runs 0-100% at a speed set by adv_ramp_time; the output stage
// multiplies the percentage into channel intensity.

package main

import "fmt"

const (
	BUTTON_MENU = iota
	BUTTON_DOWN
	BUTTON_OK
	BUTTON_UP
)

const (
	menuScreenMain = iota
	menuScreenOptions
	menuScreenEdit
)

type menuOption struct {
	name string
	get  func(*Menu) uint8
	set  func(*Menu, uint8)
	max  uint8
}

var menuOptions = []menuOption{
	{"Power Level", func(m *Menu) uint8 { return m.cfg.PowerLevel },
		func(m *Menu, v uint8) { m.cfg.PowerLevel = v }, POWER_HIGH},
	{"Audio Gain", func(m *Menu) uint8 { return m.cfg.AudioGain },
		func(m *Menu, v uint8) { m.cfg.AudioGain = v }, 255},
	{"Ramp Level", func(m *Menu) uint8 { return m.cfg.AdvRampLevel },
		func(m *Menu, v uint8) { m.cfg.AdvRampLevel = v }, 255},
	{"Ramp Time", func(m *Menu) uint8 { return m.cfg.AdvRampTime },
		func(m *Menu, v uint8) { m.cfg.AdvRampTime = v }, 255},
	{"Depth", func(m *Menu) uint8 { return m.cfg.AdvDepth },
		func(m *Menu, v uint8) { m.cfg.AdvDepth = v }, 255},
	{"Tempo", func(m *Menu) uint8 { return m.cfg.AdvTempo },
		func(m *Menu, v uint8) { m.cfg.AdvTempo = v }, 255},
	{"Frequency", func(m *Menu) uint8 { return m.cfg.AdvFrequency },
		func(m *Menu, v uint8) { m.cfg.AdvFrequency = v }, 255},
	{"Effect", func(m *Menu) uint8 { return m.cfg.AdvEffect },
		func(m *Menu, v uint8) { m.cfg.AdvEffect = v }, 255},
	{"Width", func(m *Menu) uint8 { return m.cfg.AdvWidth },
		func(m *Menu, v uint8) { m.cfg.AdvWidth = v }, 255},
	{"Pace", func(m *Menu) uint8 { return m.cfg.AdvPace },
		func(m *Menu, v uint8) { m.cfg.AdvPace = v }, 255},
	{"Favourite Mode", func(m *Menu) uint8 { return m.cfg.FavoriteMode },
		func(m *Menu, v uint8) { m.cfg.FavoriteMode = v }, MODE_COUNT - 1},
	{"Save Settings", nil, nil, 0},
}

// Menu drives the display and translates button presses into deferred
// engine commands.
type Menu struct {
	cfg        *SystemConfig
	dispatcher *ModeDispatcher
	store      Store
	display    Display

	screen    int
	optionIdx int

	rampActive  bool
	rampCounter uint8
	rampSub     uint8

	outputEnabled bool
}

func NewMenu(cfg *SystemConfig, dispatcher *ModeDispatcher, store Store, display Display) *Menu {
	m := &Menu{cfg: cfg, dispatcher: dispatcher, store: store, display: display}
	m.Render()
	return m
}

func (m *Menu) OutputEnabled() bool { return m.outputEnabled }

// RampPercent reports the multiplier the output stage applies: 100 when
// no ramp is running.
func (m *Menu) RampPercent() uint8 {
	if !m.rampActive {
		return 100
	}
	return m.rampCounter
}

// StartRamp begins the ramp-up and enables the output.
func (m *Menu) StartRamp() {
	m.rampActive = true
	m.rampCounter = 0
	m.outputEnabled = true
}

// AdvanceRamp steps the ramp counter. Called every engine tick;
// adv_ramp_time slows it down in steps of 32.
func (m *Menu) AdvanceRamp() {
	if !m.rampActive {
		return
	}
	divisor := (m.cfg.AdvRampTime >> 5) + 1
	m.rampSub++
	if m.rampSub < divisor {
		return
	}
	m.rampSub = 0
	m.rampCounter++
	if m.rampCounter >= 100 {
		m.rampCounter = 100
		m.rampActive = false
	}
	if m.screen == menuScreenMain {
		m.Render()
	}
}

// HandleButton processes one debounced button press.
func (m *Menu) HandleButton(button int) {
	switch m.screen {
	case menuScreenMain:
		m.handleMain(button)
	case menuScreenOptions:
		m.handleOptions(button)
	case menuScreenEdit:
		m.handleEdit(button)
	}
	m.Render()
}

func (m *Menu) handleMain(button int) {
	switch button {
	case BUTTON_UP:
		if m.cfg.CurrentMode < MODE_COUNT-1 {
			m.dispatcher.RequestMode(m.cfg.CurrentMode + 1)
			m.StartRamp()
		}
	case BUTTON_DOWN:
		if m.cfg.CurrentMode > 0 {
			m.dispatcher.RequestMode(m.cfg.CurrentMode - 1)
			m.StartRamp()
		}
	case BUTTON_OK:
		m.StartRamp()
	case BUTTON_MENU:
		m.screen = menuScreenOptions
		m.optionIdx = 0
	}
}

func (m *Menu) handleOptions(button int) {
	switch button {
	case BUTTON_UP:
		if m.optionIdx > 0 {
			m.optionIdx--
		}
	case BUTTON_DOWN:
		if m.optionIdx < len(menuOptions)-1 {
			m.optionIdx++
		}
	case BUTTON_OK:
		if menuOptions[m.optionIdx].get == nil {
			m.saveSettings()
			m.screen = menuScreenMain
			return
		}
		m.screen = menuScreenEdit
	case BUTTON_MENU:
		m.screen = menuScreenMain
	}
}

func (m *Menu) handleEdit(button int) {
	opt := menuOptions[m.optionIdx]
	v := opt.get(m)
	switch button {
	case BUTTON_UP:
		if v < opt.max {
			opt.set(m, v+1)
		}
	case BUTTON_DOWN:
		if v > 0 {
			opt.set(m, v-1)
		}
	case BUTTON_OK, BUTTON_MENU:
		m.screen = menuScreenOptions
	}
}

func (m *Menu) saveSettings() {
	SaveConfig(m.store, m.cfg)
	a, b := m.dispatcher.SplitModes()
	SaveSplitModes(m.store, a, b)
}

// Render repaints the display for the current screen.
func (m *Menu) Render() {
	if m.display == nil {
		return
	}
	switch m.screen {
	case menuScreenMain:
		m.display.WriteLine(0, ModeName(m.cfg.CurrentMode))
		if m.rampActive {
			m.display.WriteLine(1, fmt.Sprintf("Ramp %3d%%", m.rampCounter))
		} else {
			m.display.WriteLine(1, "<> Select Mode")
		}
	case menuScreenOptions:
		m.display.WriteLine(0, "Options:")
		m.display.WriteLine(1, menuOptions[m.optionIdx].name)
	case menuScreenEdit:
		opt := menuOptions[m.optionIdx]
		m.display.WriteLine(0, opt.name)
		if opt.name == "Power Level" {
			m.display.WriteLine(1, [3]string{"Low", "Normal", "High"}[opt.get(m)])
		} else if opt.name == "Favourite Mode" {
			m.display.WriteLine(1, ModeName(opt.get(m)))
		} else {
			m.display.WriteLine(1, fmt.Sprintf("%3d", opt.get(m)))
		}
	}
}
