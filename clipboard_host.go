//go:build !headless

// clipboard_host.go - System clipboard access for the debug monitor.

package main

import "golang.design/x/clipboard"

var clipboardReady bool

func initClipboard() {
	if err := clipboard.Init(); err == nil {
		clipboardReady = true
	}
}

func copyToClipboard(text string) error {
	if !clipboardReady {
		initClipboard()
	}
	if !clipboardReady {
		return errClipboardUnavailable
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
