// serial_protocol_test.go - Host link handshake, crypto and framing tests.

package main

import "testing"

func newTestBox() *Box {
	return NewBox(NewMemStore(), 0xBEEF)
}

// hostPacket appends the additive checksum to a packet body.
func hostPacket(body ...uint8) []uint8 {
	return append(body, serialChecksum(body))
}

func TestHandshakeSync(t *testing.T) {
	box := newTestBox()

	box.Port.HostSend(0x00)
	box.Serial.Process()
	reply := box.Port.HostRecv()
	if len(reply) != 1 || reply[0] != SERIAL_REPLY_SYNC {
		t.Fatalf("sync reply = %v, want [0x07]", reply)
	}

	// Repeated sync keeps answering.
	box.Port.HostSend(0x00, 0x00, 0x00)
	box.Serial.Process()
	reply = box.Port.HostRecv()
	if len(reply) != 3 {
		t.Fatalf("expected one 0x07 per sync byte, got %v", reply)
	}
}

func TestKeyExchangeAndEncryptedTraffic(t *testing.T) {
	box := newTestBox()

	// Handshake with host key 0x00: reply is [0x21, box, (0x21+box)&0xFF].
	box.Port.HostSend(hostPacket(0x2F, 0x00)...)
	box.Serial.Process()
	reply := box.Port.HostRecv()
	if len(reply) != 3 || reply[0] != SERIAL_REPLY_KEY_EXCHANGE {
		t.Fatalf("key exchange reply = %v", reply)
	}
	boxKey := reply[1]
	if reply[2] != uint8(uint16(SERIAL_REPLY_KEY_EXCHANGE)+uint16(boxKey)) {
		t.Fatalf("key exchange checksum = %02X", reply[2])
	}

	// Subsequent traffic is decrypted with box ^ host ^ 0x55.
	key := boxKey ^ 0x00 ^ SERIAL_EXTRA_ENCRYPT_KEY
	read := hostPacket(SERIAL_CMD_READ, 0x00, 0xFC)
	enc := make([]uint8, len(read))
	for i, b := range read {
		enc[i] = b ^ key
	}
	box.Port.HostSend(enc...)
	box.Serial.Process()

	reply = box.Port.HostRecv()
	if len(reply) != 3 || reply[0] != SERIAL_REPLY_READ {
		t.Fatalf("encrypted read reply = %v", reply)
	}
	if reply[1] != BOX_MODEL_MK312BT {
		t.Fatalf("box model = %02X, want %02X", reply[1], BOX_MODEL_MK312BT)
	}
}

func TestChecksumFailureDropsPacket(t *testing.T) {
	box := newTestBox()

	box.Port.HostSend(SERIAL_CMD_READ, 0x00, 0xFC, 0x00) // bad checksum
	box.Serial.Process()
	reply := box.Port.HostRecv()
	if len(reply) != 1 || reply[0] != SERIAL_REPLY_ERROR {
		t.Fatalf("bad checksum reply = %v, want [0x07]", reply)
	}

	// Link state is retained: a good packet still works.
	box.Port.HostSend(hostPacket(SERIAL_CMD_READ, 0x00, 0xFD)...)
	box.Serial.Process()
	reply = box.Port.HostRecv()
	if len(reply) != 3 || reply[1] != FIRMWARE_VER_MAJ {
		t.Fatalf("post-error read reply = %v", reply)
	}
}

func TestResetClearsEncryption(t *testing.T) {
	box := newTestBox()

	box.Port.HostSend(hostPacket(0x2F, 0x42)...)
	box.Serial.Process()
	reply := box.Port.HostRecv()
	boxKey := reply[1]
	key := boxKey ^ 0x42 ^ SERIAL_EXTRA_ENCRYPT_KEY

	// Encrypted reset: single byte 0x08.
	box.Port.HostSend(0x08 ^ key)
	box.Serial.Process()
	reply = box.Port.HostRecv()
	if len(reply) != 1 || reply[0] != SERIAL_REPLY_OK {
		t.Fatalf("reset reply = %v, want [0x06]", reply)
	}

	// Plaintext traffic works again.
	box.Port.HostSend(hostPacket(SERIAL_CMD_READ, 0x00, 0xFC)...)
	box.Serial.Process()
	reply = box.Port.HostRecv()
	if len(reply) != 3 || reply[1] != BOX_MODEL_MK312BT {
		t.Fatalf("post-reset read reply = %v", reply)
	}
}

func TestMultiByteWrite(t *testing.T) {
	box := newTestBox()

	// Three data bytes: command nibble 3+3 = 0x6D.
	box.Port.HostSend(hostPacket(0x6D, 0x40, 0x9D, 0x11, 0x22, 0x33)...)
	box.Serial.Process()
	reply := box.Port.HostRecv()
	if len(reply) != 1 || reply[0] != SERIAL_REPLY_OK {
		t.Fatalf("write reply = %v, want [0x06]", reply)
	}

	if box.Mem.A[0x1D] != 0x11 || box.Mem.A[0x1E] != 0x22 || box.Mem.A[0x1F] != 0x33 {
		t.Fatalf("write landed %02X %02X %02X, want 11 22 33",
			box.Mem.A[0x1D], box.Mem.A[0x1E], box.Mem.A[0x1F])
	}
}

func TestUnknownCommandSilentlyDropped(t *testing.T) {
	box := newTestBox()

	box.Port.HostSend(0x99)
	box.Serial.Process()
	if reply := box.Port.HostRecv(); len(reply) != 0 {
		t.Fatalf("unknown command produced a reply: %v", reply)
	}

	box.Port.HostSend(hostPacket(SERIAL_CMD_READ, 0x00, 0xFC)...)
	box.Serial.Process()
	if reply := box.Port.HostRecv(); len(reply) != 3 {
		t.Fatalf("link wedged after unknown command: %v", reply)
	}
}
