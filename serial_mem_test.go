// serial_mem_test.go - Virtual address space mapping tests.

package main

import "testing"

func TestChannelBlockAddressMap(t *testing.T) {
	box := newTestBox()

	// Every RAM address in the channel A window reads back what was
	// written, before any tick runs.
	for addr := uint16(VIRT_RAM_CHAN_A_BASE); addr < VIRT_RAM_CHAN_A_END; addr++ {
		v := uint8(addr & 0xFF)
		box.VMem.Write(addr, v)
		if got := box.VMem.Read(addr); got != v {
			t.Fatalf("address %04X: wrote %02X, read %02X", addr, v, got)
		}
	}
	for addr := uint16(VIRT_RAM_CHAN_B_BASE); addr < VIRT_RAM_CHAN_B_END; addr++ {
		v := uint8(^addr & 0xFF)
		box.VMem.Write(addr, v)
		if got := box.VMem.Read(addr); got != v {
			t.Fatalf("address %04X: wrote %02X, read %02X", addr, v, got)
		}
	}
}

func TestIdentityRegion(t *testing.T) {
	box := newTestBox()
	if got := box.VMem.Read(VIRT_FLASH_BOX_MODEL); got != BOX_MODEL_MK312BT {
		t.Fatalf("box model = %02X", got)
	}
	if box.VMem.Read(VIRT_FLASH_FW_MAJ) != 1 || box.VMem.Read(VIRT_FLASH_FW_MIN) != 6 {
		t.Fatalf("firmware version bytes wrong")
	}
	// Read-only: writes bounce.
	box.VMem.Write(VIRT_FLASH_BOX_MODEL, 0x00)
	if box.VMem.Read(VIRT_FLASH_BOX_MODEL) != BOX_MODEL_MK312BT {
		t.Fatalf("identity region accepted a write")
	}
}

func TestBoxCommandNextMode(t *testing.T) {
	box := newTestBox()
	startMode := box.Cfg.CurrentMode

	box.VMem.Write(VIRT_RAM_BOX_COMMAND, BOX_CMD_NEXT_MODE)
	box.TickPass()

	if box.Cfg.CurrentMode != startMode+1 {
		t.Fatalf("mode = %d after next-mode command, want %d", box.Cfg.CurrentMode, startMode+1)
	}
	if got := box.VMem.Read(VIRT_RAM_CURRENT_MODE); got != modeToProtocol(startMode+1) {
		t.Fatalf("protocol mode readback = %02X, want %02X", got, modeToProtocol(startMode+1))
	}
}

func TestBoxCommandChannelCopies(t *testing.T) {
	box := newTestBox()
	box.Mem.A[GRP_WIDTH+GF_VALUE] = 0x11
	box.Mem.B[GRP_WIDTH+GF_VALUE] = 0x22

	box.VMem.Write(VIRT_RAM_BOX_COMMAND, BOX_CMD_SWAP_CHANNELS)
	if box.Mem.A[GRP_WIDTH+GF_VALUE] != 0x22 || box.Mem.B[GRP_WIDTH+GF_VALUE] != 0x11 {
		t.Fatalf("swap failed: A=%02X B=%02X",
			box.Mem.A[GRP_WIDTH+GF_VALUE], box.Mem.B[GRP_WIDTH+GF_VALUE])
	}

	box.VMem.Write(VIRT_RAM_BOX_COMMAND, BOX_CMD_COPY_A_TO_B)
	if box.Mem.B != box.Mem.A {
		t.Fatalf("copy A->B left blocks different")
	}

	box.Mem.B[GRP_WIDTH+GF_VALUE] = 0x77
	box.VMem.Write(VIRT_RAM_BOX_COMMAND, BOX_CMD_COPY_B_TO_A)
	if box.Mem.A[GRP_WIDTH+GF_VALUE] != 0x77 {
		t.Fatalf("copy B->A did not land")
	}
}

func TestBoxCommandUnknownIgnored(t *testing.T) {
	box := newTestBox()
	before := box.Cfg
	box.VMem.Write(VIRT_RAM_BOX_COMMAND, 0x7E)
	box.TickPass()
	if box.Cfg.CurrentMode != before.CurrentMode || box.Cfg.PowerLevel != before.PowerLevel {
		t.Fatalf("unknown box command changed state")
	}
}

func TestAdvancedSlab(t *testing.T) {
	box := newTestBox()

	for i := uint16(0); i < 8; i++ {
		box.VMem.Write(VIRT_RAM_ADV_BASE+i, uint8(0x30+i))
	}
	if box.Cfg.AdvRampLevel != 0x30 || box.Cfg.AdvPace != 0x37 {
		t.Fatalf("advanced slab writes did not land: ramp=%02X pace=%02X",
			box.Cfg.AdvRampLevel, box.Cfg.AdvPace)
	}
	for i := uint16(0); i < 8; i++ {
		if got := box.VMem.Read(VIRT_RAM_ADV_BASE + i); got != uint8(0x30+i) {
			t.Fatalf("advanced slab read %d = %02X", i, got)
		}
	}
}

func TestModeWireOffset(t *testing.T) {
	box := newTestBox()
	box.Dispatcher.SelectMode(MODE_TOGGLE)

	if got := box.VMem.Read(VIRT_RAM_CURRENT_MODE); got != MODE_TOGGLE+0x76 {
		t.Fatalf("wire mode = %02X, want %02X", got, MODE_TOGGLE+0x76)
	}

	box.VMem.Write(VIRT_RAM_CURRENT_MODE, MODE_CLIMB+0x76)
	box.TickPass()
	if box.Cfg.CurrentMode != MODE_CLIMB {
		t.Fatalf("mode write via wire offset landed on %d", box.Cfg.CurrentMode)
	}
}

func TestStoreRegionUserProgs(t *testing.T) {
	box := newTestBox()

	base := uint16(VIRT_EEPROM_BASE + EEPROM_USER_BASE)
	box.VMem.Write(base, USER_PROG_MAGIC)
	box.VMem.Write(base+1, 0xB7)
	box.VMem.Write(base+2, 0x5C)

	if got := box.VMem.Read(base + 1); got != 0xB7 {
		t.Fatalf("user prog byte readback = %02X", got)
	}

	// The cached slot is coherent: selecting User 1 runs the program.
	box.Dispatcher.SelectMode(MODE_USER1)
	if box.Mem.A[GRP_WIDTH+GF_VALUE] != 0x5C {
		t.Fatalf("user program via store region did not execute: %02X",
			box.Mem.A[GRP_WIDTH+GF_VALUE])
	}
}

func TestOutOfRangeAddresses(t *testing.T) {
	box := newTestBox()
	if got := box.VMem.Read(0x3000); got != 0 {
		t.Fatalf("unmapped read = %02X, want 0", got)
	}
	box.VMem.Write(0x3000, 0xAA) // must not fault or change anything
	if got := box.VMem.Read(0x3000); got != 0 {
		t.Fatalf("unmapped address retained a write")
	}
}
