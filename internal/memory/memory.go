// Package memory implements the flat 64KB address space of the 8080.
package memory

import (
	"errors"
	"fmt"
)

// Size is the number of addressable bytes.
const Size = 0x10000

// ErrLoadOverflow is returned when an image does not fit between its origin
// and the top of the address space.
var ErrLoadOverflow = errors.New("program image exceeds address space")

// Memory is a zero-initialised 64KB byte array. Every 16-bit address is
// valid, so byte accesses cannot fail.
type Memory struct {
	data [Size]byte
}

func New() *Memory {
	return &Memory{}
}

// Load copies image into memory starting at origin.
func (m *Memory) Load(origin uint16, image []byte) error {
	if int(origin)+len(image) > Size {
		return fmt.Errorf("%w: %d bytes at 0x%04X (room for %d)",
			ErrLoadOverflow, len(image), origin, Size-int(origin))
	}
	copy(m.data[origin:], image)
	return nil
}

func (m *Memory) ReadByte(addr uint16) byte { return m.data[addr] }

func (m *Memory) WriteByte(addr uint16, value byte) { m.data[addr] = value }

// ReadWord reads a little-endian word. The high byte of a read at 0xFFFF
// comes from address 0.
func (m *Memory) ReadWord(addr uint16) uint16 {
	lo := uint16(m.data[addr])
	hi := uint16(m.data[addr+1])
	return lo | hi<<8
}

// WriteWord stores a little-endian word, wrapping like ReadWord.
func (m *Memory) WriteWord(addr uint16, value uint16) {
	m.data[addr] = byte(value)
	m.data[addr+1] = byte(value >> 8)
}

// Reset zeroes the whole address space.
func (m *Memory) Reset() {
	m.data = [Size]byte{}
}

// Bytes exposes the backing array for dumps and save states.
func (m *Memory) Bytes() []byte { return m.data[:] }

// Restore replaces the contents with a full 64KB dump.
func (m *Memory) Restore(dump []byte) error {
	if len(dump) != Size {
		return fmt.Errorf("memory dump has %d bytes, want %d", len(dump), Size)
	}
	copy(m.data[:], dump)
	return nil
}
