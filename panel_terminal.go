// panel_terminal.go - Terminal front panel.
//
// Mirrors the 16x2 LCD into the terminal and maps keys onto the four
// panel buttons and the three pots. Raw stdin handling follows the same
// non-blocking read pattern as the debug monitor. Only instantiated in
// main for interactive use - never in tests.
//
// Keys: m=Menu  j=Down  k=Up  Enter=OK
//       a/z level A up/down   s/x level B up/down   d/c MA up/down
//       q=quit

package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

type TerminalPanel struct {
	box          *Box
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State

	mu    sync.Mutex
	lines [LCD_ROWS]string
	dirty bool
}

func NewTerminalPanel(box *Box) *TerminalPanel {
	return &TerminalPanel{
		box:    box,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// WriteLine implements Display; the panel repaints on its own cadence.
func (p *TerminalPanel) WriteLine(row int, text string) {
	if row < 0 || row >= LCD_ROWS {
		return
	}
	p.mu.Lock()
	padded := padLine(text)
	if p.lines[row] != padded {
		p.lines[row] = padded
		p.dirty = true
	}
	p.mu.Unlock()
}

func (p *TerminalPanel) nudge(channel int, delta int) {
	v := int(p.box.ADC.Read(channel)) + delta
	if v < 0 {
		v = 0
	}
	if v > 1023 {
		v = 1023
	}
	p.box.ADC.Set(channel, uint16(v))
}

func (p *TerminalPanel) handleKey(b byte) bool {
	switch b {
	case 'm':
		p.box.PressButton(BUTTON_MENU)
	case 'j':
		p.box.PressButton(BUTTON_DOWN)
	case 'k':
		p.box.PressButton(BUTTON_UP)
	case '\r', '\n':
		p.box.PressButton(BUTTON_OK)
	case 'a':
		p.nudge(ADC_LEVEL_A, 32)
	case 'z':
		p.nudge(ADC_LEVEL_A, -32)
	case 's':
		p.nudge(ADC_LEVEL_B, 32)
	case 'x':
		p.nudge(ADC_LEVEL_B, -32)
	case 'd':
		p.nudge(ADC_MA, 32)
	case 'c':
		p.nudge(ADC_MA, -32)
	case 'q', 0x03: // q or Ctrl-C
		return false
	}
	return true
}

func (p *TerminalPanel) repaint() {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	p.dirty = false
	l0, l1 := p.lines[0], p.lines[1]
	p.mu.Unlock()

	dacA, dacB := p.box.DAC.Codes()
	fmt.Printf("\r\n+------------------+\r\n|%s|\r\n|%s|\r\n+------------------+  A:%4d B:%4d MA:%3d\r\n",
		l0, l1, dacA, dacB, p.box.Cfg.MultiAdjust)
}

// Start puts stdin into raw non-blocking mode and runs the key loop.
func (p *TerminalPanel) Start(quit func()) {
	p.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(p.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "panel: failed to set raw mode: %v\n", err)
		close(p.done)
		return
	}
	p.oldTermState = oldState

	if err := syscall.SetNonblock(p.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "panel: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(p.fd, p.oldTermState)
		p.oldTermState = nil
		close(p.done)
		return
	}
	p.nonblockSet = true

	p.box.SetFrontendDisplay(p)

	go func() {
		defer close(p.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-p.stopCh:
				return
			default:
			}

			n, err := syscall.Read(p.fd, buf)
			if n > 0 {
				if !p.handleKey(buf[0]) {
					quit()
					return
				}
			}
			p.repaint()
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
		}
	}()
}

func (p *TerminalPanel) Stop() {
	p.stopped.Do(func() {
		close(p.stopCh)
	})
	<-p.done
	if p.nonblockSet {
		_ = syscall.SetNonblock(p.fd, false)
		p.nonblockSet = false
	}
	if p.oldTermState != nil {
		_ = term.Restore(p.fd, p.oldTermState)
		p.oldTermState = nil
	}
}
