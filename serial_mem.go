// serial_mem.go - Virtual address space exposed over the host link.
//
// Three regions:
//   0x0000-0x00FF  read-only identity (box model, firmware version)
//   0x4000-0x43FF  live RAM: channel blocks, knobs, mode, power level,
//                  advanced settings, and the box-command register
//   0x8000-0x81FF  persistent store, with config fields overlaid
//
// Out-of-range reads return zero; out-of-range writes vanish. Channel
// block bytes are raw - any sequence of writes leaves the engine in a
// defined state.

package main

const (
	VIRT_FLASH_END   = 0x0100
	VIRT_RAM_BASE    = 0x4000
	VIRT_RAM_END     = 0x4400
	VIRT_EEPROM_BASE = 0x8000
	VIRT_EEPROM_END  = 0x8200

	VIRT_FLASH_BOX_MODEL = 0x00FC
	VIRT_FLASH_FW_MAJ    = 0x00FD
	VIRT_FLASH_FW_MIN    = 0x00FE
	VIRT_FLASH_FW_INT    = 0x00FF

	VIRT_RAM_CHAN_A_BASE = 0x4080
	VIRT_RAM_CHAN_A_END  = 0x40C0
	VIRT_RAM_CHAN_B_BASE = 0x4180
	VIRT_RAM_CHAN_B_END  = 0x41C0

	VIRT_RAM_LEVEL_A       = 0x4064
	VIRT_RAM_LEVEL_B       = 0x4065
	VIRT_RAM_MENU_STATE    = 0x406D
	VIRT_RAM_BOX_COMMAND   = 0x4070
	VIRT_RAM_CURRENT_MODE  = 0x407B
	VIRT_RAM_TOP_MODE      = 0x41F3
	VIRT_RAM_POWER_LEVEL   = 0x41F4
	VIRT_RAM_SPLIT_MODE_A  = 0x41F5
	VIRT_RAM_SPLIT_MODE_B  = 0x41F6
	VIRT_RAM_FAVOURITE     = 0x41F7
	VIRT_RAM_ADV_BASE      = 0x41F8 // eight advanced settings through 0x41FF
	VIRT_RAM_BATTERY_LEVEL = 0x4203
	VIRT_RAM_MULTI_ADJUST  = 0x420D
	VIRT_RAM_BOX_KEY       = 0x4213
	VIRT_RAM_POWER_SUPPLY  = 0x4215
)

// Device identity reported through the flash region.
const (
	BOX_MODEL_MK312BT = 0x0C
	FIRMWARE_VER_MAJ  = 0x01
	FIRMWARE_VER_MIN  = 0x06
	FIRMWARE_VER_INT  = 0x00
)

// Persistent-store offsets mirrored through the 0x8000 region.
const (
	VIRT_EE_PROVISIONED    = 0x0001
	VIRT_EE_TOP_MODE       = 0x0008
	VIRT_EE_POWER_LEVEL    = 0x0009
	VIRT_EE_SPLIT_MODE_A   = 0x000A
	VIRT_EE_SPLIT_MODE_B   = 0x000B
	VIRT_EE_FAVOURITE_MODE = 0x000C
	VIRT_EE_ADV_BASE       = 0x000D // eight advanced settings through 0x0014
)

// Box command codes written to VIRT_RAM_BOX_COMMAND.
const (
	BOX_CMD_RELOAD_MODE   = 0x00
	BOX_CMD_NEXT_MODE     = 0x10
	BOX_CMD_PREV_MODE     = 0x11
	BOX_CMD_SET_MODE      = 0x12
	BOX_CMD_MUTE          = 0x18
	BOX_CMD_SWAP_CHANNELS = 0x19
	BOX_CMD_COPY_A_TO_B   = 0x1A
	BOX_CMD_COPY_B_TO_A   = 0x1B
	BOX_CMD_START_RAMP    = 0x21
)

// VirtualMem binds the protocol address space to the live device state.
type VirtualMem struct {
	mem        *ChannelMem
	cfg        *SystemConfig
	dispatcher *ModeDispatcher
	adc        ADC
	store      Store
	user       *UserPrograms
}

func NewVirtualMem(mem *ChannelMem, cfg *SystemConfig, dispatcher *ModeDispatcher,
	adc ADC, store Store, user *UserPrograms) *VirtualMem {
	return &VirtualMem{mem: mem, cfg: cfg, dispatcher: dispatcher, adc: adc, store: store, user: user}
}

func (v *VirtualMem) advanced(idx uint16) *uint8 {
	switch idx {
	case 0:
		return &v.cfg.AdvRampLevel
	case 1:
		return &v.cfg.AdvRampTime
	case 2:
		return &v.cfg.AdvDepth
	case 3:
		return &v.cfg.AdvTempo
	case 4:
		return &v.cfg.AdvFrequency
	case 5:
		return &v.cfg.AdvEffect
	case 6:
		return &v.cfg.AdvWidth
	default:
		return &v.cfg.AdvPace
	}
}

func (v *VirtualMem) Read(addr uint16) uint8 {
	switch {
	case addr < VIRT_FLASH_END:
		return readFlash(addr)
	case addr >= VIRT_RAM_BASE && addr < VIRT_RAM_END:
		return v.readRAM(addr)
	case addr >= VIRT_EEPROM_BASE && addr < VIRT_EEPROM_END:
		return v.readStore(addr - VIRT_EEPROM_BASE)
	default:
		return 0x00
	}
}

func (v *VirtualMem) Write(addr uint16, value uint8) {
	switch {
	case addr >= VIRT_RAM_BASE && addr < VIRT_RAM_END:
		v.writeRAM(addr, value)
	case addr >= VIRT_EEPROM_BASE && addr < VIRT_EEPROM_END:
		v.writeStore(addr-VIRT_EEPROM_BASE, value)
	}
}

func readFlash(addr uint16) uint8 {
	switch addr {
	case VIRT_FLASH_BOX_MODEL:
		return BOX_MODEL_MK312BT
	case VIRT_FLASH_FW_MAJ:
		return FIRMWARE_VER_MAJ
	case VIRT_FLASH_FW_MIN:
		return FIRMWARE_VER_MIN
	case VIRT_FLASH_FW_INT:
		return FIRMWARE_VER_INT
	default:
		return 0x00
	}
}

func (v *VirtualMem) readRAM(addr uint16) uint8 {
	if addr >= VIRT_RAM_CHAN_A_BASE && addr < VIRT_RAM_CHAN_A_END {
		return v.mem.A[addr-VIRT_RAM_CHAN_A_BASE]
	}
	if addr >= VIRT_RAM_CHAN_B_BASE && addr < VIRT_RAM_CHAN_B_END {
		return v.mem.B[addr-VIRT_RAM_CHAN_B_BASE]
	}
	if addr >= VIRT_RAM_ADV_BASE && addr < VIRT_RAM_ADV_BASE+8 {
		return *v.advanced(addr - VIRT_RAM_ADV_BASE)
	}

	switch addr {
	case VIRT_RAM_LEVEL_A:
		return uint8(v.adc.Read(ADC_LEVEL_A) >> 2)
	case VIRT_RAM_LEVEL_B:
		return uint8(v.adc.Read(ADC_LEVEL_B) >> 2)
	case VIRT_RAM_MENU_STATE:
		return 0x02
	case VIRT_RAM_BOX_COMMAND:
		return 0xFF // write-only register
	case VIRT_RAM_CURRENT_MODE, VIRT_RAM_TOP_MODE:
		return modeToProtocol(v.cfg.CurrentMode)
	case VIRT_RAM_POWER_LEVEL:
		return v.cfg.PowerLevel
	case VIRT_RAM_SPLIT_MODE_A:
		return modeToProtocol(v.cfg.SplitModeA)
	case VIRT_RAM_SPLIT_MODE_B:
		return modeToProtocol(v.cfg.SplitModeB)
	case VIRT_RAM_FAVOURITE:
		return modeToProtocol(v.cfg.FavoriteMode)
	case VIRT_RAM_BATTERY_LEVEL:
		return uint8(v.adc.Read(ADC_BATTERY) >> 2)
	case VIRT_RAM_MULTI_ADJUST:
		return v.cfg.MultiAdjust
	case VIRT_RAM_BOX_KEY:
		return 0x00
	case VIRT_RAM_POWER_SUPPLY:
		return 0x02
	default:
		return 0x00
	}
}

func (v *VirtualMem) writeRAM(addr uint16, value uint8) {
	if addr >= VIRT_RAM_CHAN_A_BASE && addr < VIRT_RAM_CHAN_A_END {
		v.mem.A[addr-VIRT_RAM_CHAN_A_BASE] = value
		return
	}
	if addr >= VIRT_RAM_CHAN_B_BASE && addr < VIRT_RAM_CHAN_B_END {
		v.mem.B[addr-VIRT_RAM_CHAN_B_BASE] = value
		return
	}
	if addr >= VIRT_RAM_ADV_BASE && addr < VIRT_RAM_ADV_BASE+8 {
		*v.advanced(addr - VIRT_RAM_ADV_BASE) = value
		return
	}

	switch addr {
	case VIRT_RAM_BOX_COMMAND:
		v.execBoxCommand(value)
	case VIRT_RAM_CURRENT_MODE:
		v.dispatcher.RequestMode(protocolToMode(value))
	case VIRT_RAM_POWER_LEVEL:
		if value <= POWER_HIGH {
			v.cfg.PowerLevel = value
		}
	case VIRT_RAM_SPLIT_MODE_A:
		v.dispatcher.SetSplitModes(protocolToMode(value), v.cfg.SplitModeB)
	case VIRT_RAM_SPLIT_MODE_B:
		v.dispatcher.SetSplitModes(v.cfg.SplitModeA, protocolToMode(value))
	case VIRT_RAM_FAVOURITE:
		v.cfg.FavoriteMode = protocolToMode(value)
	case VIRT_RAM_MULTI_ADJUST:
		v.cfg.MultiAdjust = value
	}
}

// execBoxCommand applies a command written to the command register.
// Mode transitions defer to the foreground; channel copies apply
// immediately, as on the original hardware. Unknown codes are ignored.
func (v *VirtualMem) execBoxCommand(cmd uint8) {
	switch cmd {
	case BOX_CMD_RELOAD_MODE, BOX_CMD_SET_MODE:
		v.dispatcher.RequestReload()
	case BOX_CMD_NEXT_MODE:
		v.dispatcher.RequestNext()
	case BOX_CMD_PREV_MODE:
		v.dispatcher.RequestPrev()
	case BOX_CMD_MUTE:
		v.dispatcher.RequestPause()
	case BOX_CMD_START_RAMP:
		v.dispatcher.RequestStartRamp()
	case BOX_CMD_SWAP_CHANNELS:
		v.mem.A, v.mem.B = v.mem.B, v.mem.A
	case BOX_CMD_COPY_A_TO_B:
		v.mem.B = v.mem.A
	case BOX_CMD_COPY_B_TO_A:
		v.mem.A = v.mem.B
	}
}

func (v *VirtualMem) readStore(offset uint16) uint8 {
	switch offset {
	case VIRT_EE_PROVISIONED:
		return 0x55
	case VIRT_EE_TOP_MODE:
		return modeToProtocol(v.cfg.CurrentMode)
	case VIRT_EE_POWER_LEVEL:
		return v.cfg.PowerLevel
	case VIRT_EE_SPLIT_MODE_A:
		return modeToProtocol(v.cfg.SplitModeA)
	case VIRT_EE_SPLIT_MODE_B:
		return modeToProtocol(v.cfg.SplitModeB)
	case VIRT_EE_FAVOURITE_MODE:
		return modeToProtocol(v.cfg.FavoriteMode)
	}
	if offset >= VIRT_EE_ADV_BASE && offset < VIRT_EE_ADV_BASE+8 {
		return *v.advanced(offset - VIRT_EE_ADV_BASE)
	}
	return v.store.ReadByte(offset)
}

func (v *VirtualMem) writeStore(offset uint16, value uint8) {
	switch offset {
	case VIRT_EE_TOP_MODE:
		v.cfg.CurrentMode = protocolToMode(value)
		return
	case VIRT_EE_POWER_LEVEL:
		if value <= POWER_HIGH {
			v.cfg.PowerLevel = value
		}
		return
	case VIRT_EE_SPLIT_MODE_A:
		v.dispatcher.SetSplitModes(protocolToMode(value), v.cfg.SplitModeB)
		return
	case VIRT_EE_SPLIT_MODE_B:
		v.dispatcher.SetSplitModes(v.cfg.SplitModeA, protocolToMode(value))
		return
	case VIRT_EE_FAVOURITE_MODE:
		v.cfg.FavoriteMode = protocolToMode(value)
		return
	}
	if offset >= VIRT_EE_ADV_BASE && offset < VIRT_EE_ADV_BASE+8 {
		*v.advanced(offset - VIRT_EE_ADV_BASE) = value
		return
	}
	if offset >= EEPROM_CONFIG_SIZE {
		v.store.WriteByte(offset, value)
		if offset >= EEPROM_USER_BASE && offset < EEPROM_USER_BASE+USER_PROG_SLOT_COUNT*USER_PROG_SLOT_SIZE {
			slot := uint8((offset - EEPROM_USER_BASE) / USER_PROG_SLOT_SIZE)
			v.user.PokeByte(slot, uint8((offset-EEPROM_USER_BASE)%USER_PROG_SLOT_SIZE), value)
		}
	}
}
