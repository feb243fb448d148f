//go:build !headless

// panel_ebiten.go - Front panel window.
//
// Draws the 16x2 LCD, the channel activity LEDs and the three pot
// positions in a small window, and maps the keyboard onto the panel
// buttons and pots. Same bindings as the terminal panel.

package main

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

const (
	panelWidth  = 320
	panelHeight = 200
)

var (
	lcdBackground = color.RGBA{0x10, 0x30, 0x90, 0xFF}
	lcdForeground = color.RGBA{0xD0, 0xE0, 0xFF, 0xFF}
	ledOn         = color.RGBA{0xFF, 0x40, 0x40, 0xFF}
	ledOff        = color.RGBA{0x40, 0x10, 0x10, 0xFF}
	potBar        = color.RGBA{0x80, 0x80, 0x80, 0xFF}
)

type PanelWindow struct {
	box *Box
}

func NewPanelWindow(box *Box) *PanelWindow {
	return &PanelWindow{box: box}
}

type panelKey struct {
	key    ebiten.Key
	button int
}

var panelButtons = []panelKey{
	{ebiten.KeyM, BUTTON_MENU},
	{ebiten.KeyJ, BUTTON_DOWN},
	{ebiten.KeyK, BUTTON_UP},
	{ebiten.KeyEnter, BUTTON_OK},
}

type panelPot struct {
	up      ebiten.Key
	down    ebiten.Key
	channel int
}

var panelPots = []panelPot{
	{ebiten.KeyA, ebiten.KeyZ, ADC_LEVEL_A},
	{ebiten.KeyS, ebiten.KeyX, ADC_LEVEL_B},
	{ebiten.KeyD, ebiten.KeyC, ADC_MA},
}

func (p *PanelWindow) Update() error {
	for _, pb := range panelButtons {
		if inpututil.IsKeyJustPressed(pb.key) {
			p.box.PressButton(pb.button)
		}
	}
	for _, pot := range panelPots {
		if ebiten.IsKeyPressed(pot.up) {
			p.adjust(pot.channel, 8)
		}
		if ebiten.IsKeyPressed(pot.down) {
			p.adjust(pot.channel, -8)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	return nil
}

func (p *PanelWindow) adjust(channel, delta int) {
	v := int(p.box.ADC.Read(channel)) + delta
	if v < 0 {
		v = 0
	}
	if v > 1023 {
		v = 1023
	}
	p.box.ADC.Set(channel, uint16(v))
}

func (p *PanelWindow) Draw(screen *ebiten.Image) {
	face := basicfont.Face7x13

	// LCD panel.
	lcd := ebiten.NewImage(LCD_COLS*8+16, 44)
	lcd.Fill(lcdBackground)
	text.Draw(lcd, p.box.Display.Line(0), face, 8, 16, lcdForeground)
	text.Draw(lcd, p.box.Display.Line(1), face, 8, 34, lcdForeground)
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(88, 16)
	screen.DrawImage(lcd, &op)

	// Channel LEDs follow the live bridge drive.
	drawLED(screen, 24, 24, p.box.BridgeA.Level() != 0)
	drawLED(screen, 48, 24, p.box.BridgeB.Level() != 0)

	// Pot positions.
	labels := []string{"A", "B", "MA"}
	for i, pot := range panelPots {
		v := int(p.box.ADC.Read(pot.channel))
		y := 90 + i*28
		text.Draw(screen, labels[i], face, 16, y+10, lcdForeground)
		bar := ebiten.NewImage(4+v*200/1023, 8)
		bar.Fill(potBar)
		var bop ebiten.DrawImageOptions
		bop.GeoM.Translate(48, float64(y))
		screen.DrawImage(bar, &bop)
	}

	dacA, dacB := p.box.DAC.Codes()
	status := fmt.Sprintf("mode %-8s  dac %4d/%4d", ModeName(p.box.Cfg.CurrentMode), dacA, dacB)
	text.Draw(screen, status, face, 16, panelHeight-10, lcdForeground)
}

func drawLED(screen *ebiten.Image, x, y int, on bool) {
	led := ebiten.NewImage(12, 12)
	if on {
		led.Fill(ledOn)
	} else {
		led.Fill(ledOff)
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(led, &op)
}

func (p *PanelWindow) Layout(outsideWidth, outsideHeight int) (int, int) {
	return panelWidth, panelHeight
}

// RunPanelWindow opens the window and blocks until it is closed.
func RunPanelWindow(box *Box) error {
	ebiten.SetWindowSize(panelWidth*2, panelHeight*2)
	ebiten.SetWindowTitle("MK-312BT")
	return ebiten.RunGame(NewPanelWindow(box))
}
