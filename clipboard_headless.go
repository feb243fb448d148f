//go:build headless

// clipboard_headless.go - Clipboard stub for headless builds.

package main

func copyToClipboard(text string) error {
	return errClipboardUnavailable
}
