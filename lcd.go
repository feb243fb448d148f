// lcd.go - 16x2 character display contract.

package main

import "sync"

const (
	LCD_COLS = 16
	LCD_ROWS = 2
)

// Display is the 16x2 character surface the menu renders into. Frontends
// mirror it to a window, a terminal, or nowhere.
type Display interface {
	WriteLine(row int, text string)
}

// padLine fits text to exactly LCD_COLS characters.
func padLine(text string) string {
	if len(text) > LCD_COLS {
		return text[:LCD_COLS]
	}
	for len(text) < LCD_COLS {
		text += " "
	}
	return text
}

// progressBar renders an n-of-total bar sized to the display width.
func progressBar(n, total int) string {
	if total <= 0 {
		total = 1
	}
	filled := n * LCD_COLS / total
	if filled > LCD_COLS {
		filled = LCD_COLS
	}
	bar := ""
	for i := 0; i < LCD_COLS; i++ {
		if i < filled {
			bar += "="
		} else {
			bar += " "
		}
	}
	return bar
}

// CaptureDisplay holds the current display contents. The headless
// frontend and the tests read it back; the window and terminal frontends
// embed it and mirror on change.
type CaptureDisplay struct {
	mu    sync.Mutex
	lines [LCD_ROWS]string
}

func (d *CaptureDisplay) WriteLine(row int, text string) {
	if row < 0 || row >= LCD_ROWS {
		return
	}
	d.mu.Lock()
	d.lines[row] = padLine(text)
	d.mu.Unlock()
}

func (d *CaptureDisplay) Line(row int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row < 0 || row >= LCD_ROWS {
		return ""
	}
	return d.lines[row]
}
