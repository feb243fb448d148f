//go:build headless

// panel_headless.go - Front panel stub for headless builds.

package main

import "errors"

func RunPanelWindow(box *Box) error {
	return errors.New("panel: built headless, no window backend")
}
