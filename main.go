// main.go - Entry point for the MK-312BT firmware simulator.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	storePath := flag.String("store", "mk312bt.eeprom", "Path of the persistent store image")
	window := flag.Bool("window", false, "Open the front panel window")
	terminal := flag.Bool("term", false, "Run the terminal front panel")
	monitor := flag.Bool("monitor", false, "Run the debug monitor on stdin")
	audio := flag.Bool("audio", false, "Play the pulse trains through the audio monitor")
	script := flag.String("script", "", "Run a Lua session script and exit")
	mode := flag.Int("mode", -1, "Start in this mode instead of the saved one")
	flag.Parse()

	store, err := NewFileStore(*storePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mk312bt: %v\n", err)
		os.Exit(1)
	}

	box := NewBox(store, SeedFromClock())

	if err := PowerOnSelfTest(box.DAC, box.ADC, box.Display); err != nil {
		// Self-test failure halts the device before the engine starts.
		fmt.Fprintf(os.Stderr, "mk312bt: %v\n", err)
		os.Exit(1)
	}

	if *mode >= 0 && *mode < MODE_COUNT {
		box.Dispatcher.SelectMode(uint8(*mode))
	}
	box.Menu.Render()

	if *script != "" {
		host := NewScriptHost(box)
		defer host.Close()
		if err := host.RunFile(*script); err != nil {
			fmt.Fprintf(os.Stderr, "mk312bt: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	var pulseAudio *PulseMonitor
	if *audio {
		pulseAudio, err = NewPulseMonitor(box)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mk312bt: audio monitor: %v\n", err)
			os.Exit(1)
		}
		pulseAudio.Start()
		defer pulseAudio.Stop()
	}

	go box.Run(ctx)

	switch {
	case *window:
		if err := RunPanelWindow(box); err != nil {
			fmt.Fprintf(os.Stderr, "mk312bt: %v\n", err)
			os.Exit(1)
		}
	case *terminal:
		panel := NewTerminalPanel(box)
		panel.Start(cancel)
		<-ctx.Done()
		panel.Stop()
	case *monitor:
		NewDebugMonitor(box, os.Stdin, os.Stdout).Run()
	default:
		fmt.Printf("mk312bt: running headless, mode %s (Ctrl-C to exit)\n",
			ModeName(box.Cfg.CurrentMode))
		<-ctx.Done()
	}
}
