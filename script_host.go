// script_host.go - Lua session scripting.
//
// Exposes the virtual address space and the front panel to Lua so
// sessions can be automated and replayed deterministically: peek/poke
// virtual addresses, issue box commands, turn knobs, press buttons and
// step engine ticks. The script clock is the engine tick, so a script
// runs identically on every machine.
//
//   box.mode(11)            -- select Toggle
//   box.knob("ma", 512)
//   box.ticks(250)          -- one second of engine time
//   print(box.peek(0x4090)) -- channel A gate value

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

type ScriptHost struct {
	box *Box
	L   *lua.LState
}

var scriptKnobs = map[string]int{
	"a":  ADC_LEVEL_A,
	"b":  ADC_LEVEL_B,
	"ma": ADC_MA,
}

var scriptButtons = map[string]int{
	"menu": BUTTON_MENU,
	"down": BUTTON_DOWN,
	"ok":   BUTTON_OK,
	"up":   BUTTON_UP,
}

func NewScriptHost(box *Box) *ScriptHost {
	h := &ScriptHost{box: box, L: lua.NewState()}
	h.register()
	return h
}

func (h *ScriptHost) Close() {
	h.L.Close()
}

func (h *ScriptHost) register() {
	tbl := h.L.NewTable()

	h.L.SetField(tbl, "peek", h.L.NewFunction(func(L *lua.LState) int {
		addr := uint16(L.CheckInt(1))
		L.Push(lua.LNumber(h.box.VMem.Read(addr)))
		return 1
	}))

	h.L.SetField(tbl, "poke", h.L.NewFunction(func(L *lua.LState) int {
		addr := uint16(L.CheckInt(1))
		for i := 2; i <= L.GetTop(); i++ {
			h.box.VMem.Write(addr+uint16(i-2), uint8(L.CheckInt(i)))
		}
		return 0
	}))

	h.L.SetField(tbl, "command", h.L.NewFunction(func(L *lua.LState) int {
		h.box.VMem.Write(VIRT_RAM_BOX_COMMAND, uint8(L.CheckInt(1)))
		return 0
	}))

	h.L.SetField(tbl, "mode", h.L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n < 0 || n >= MODE_COUNT {
			L.ArgError(1, "mode out of range")
		}
		h.box.Dispatcher.RequestMode(uint8(n))
		h.box.RunTicks(1)
		return 0
	}))

	h.L.SetField(tbl, "ticks", h.L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n < 0 {
			n = 0
		}
		h.box.RunTicks(n)
		return 0
	}))

	h.L.SetField(tbl, "knob", h.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		ch, ok := scriptKnobs[name]
		if !ok {
			L.ArgError(1, "unknown knob (a, b, ma)")
		}
		h.box.ADC.Set(ch, uint16(L.CheckInt(2)))
		return 0
	}))

	h.L.SetField(tbl, "button", h.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		btn, ok := scriptButtons[name]
		if !ok {
			L.ArgError(1, "unknown button (menu, down, ok, up)")
		}
		h.box.PressButton(btn)
		return 0
	}))

	h.L.SetField(tbl, "ramp", h.L.NewFunction(func(L *lua.LState) int {
		h.box.Menu.StartRamp()
		return 0
	}))

	h.L.SetField(tbl, "dac", h.L.NewFunction(func(L *lua.LState) int {
		a, b := h.box.DAC.Codes()
		L.Push(lua.LNumber(a))
		L.Push(lua.LNumber(b))
		return 2
	}))

	h.L.SetField(tbl, "gates", h.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(h.box.PulseA.Gate()))
		L.Push(lua.LBool(h.box.PulseB.Gate()))
		return 2
	}))

	h.L.SetGlobal("box", tbl)
}

// RunFile executes a session script to completion.
func (h *ScriptHost) RunFile(path string) error {
	if err := h.L.DoFile(path); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// RunString executes an inline script. Test hook.
func (h *ScriptHost) RunString(src string) error {
	if err := h.L.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}
