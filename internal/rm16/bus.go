package rm16

import (
	"encoding/binary"
	"fmt"
)

// MemorySize is the real-mode physical address space: 1 MiB.
const MemorySize = 1 << 20

// Memory is the flat physical address space of the machine.
type Memory struct {
	Data []byte
}

// NewMemory returns a zeroed real-mode address space.
func NewMemory() *Memory {
	return &Memory{Data: make([]byte, MemorySize)}
}

// Read8 reads one byte from a physical address.
func (m *Memory) Read8(addr uint32) (uint8, error) {
	if addr >= uint32(len(m.Data)) {
		return 0, fmt.Errorf("memory read out of bounds: 0x%05x", addr)
	}
	return m.Data[addr], nil
}

// Read16 reads a little-endian word from a physical address.
func (m *Memory) Read16(addr uint32) (uint16, error) {
	if addr+2 > uint32(len(m.Data)) {
		return 0, fmt.Errorf("memory read out of bounds: 0x%05x", addr)
	}
	return binary.LittleEndian.Uint16(m.Data[addr:]), nil
}

// Write8 writes one byte to a physical address.
func (m *Memory) Write8(addr uint32, v uint8) error {
	if addr >= uint32(len(m.Data)) {
		return fmt.Errorf("memory write out of bounds: 0x%05x", addr)
	}
	m.Data[addr] = v
	return nil
}

// Write16 writes a little-endian word to a physical address.
func (m *Memory) Write16(addr uint32, v uint16) error {
	if addr+2 > uint32(len(m.Data)) {
		return fmt.Errorf("memory write out of bounds: 0x%05x", addr)
	}
	binary.LittleEndian.PutUint16(m.Data[addr:], v)
	return nil
}

// LoadBytes copies data into memory at a physical address, the way the
// firmware places a boot sector before jumping to it.
func (m *Memory) LoadBytes(addr uint32, data []byte) error {
	if addr+uint32(len(data)) > uint32(len(m.Data)) {
		return fmt.Errorf("load of %d bytes at 0x%05x exceeds memory", len(data), addr)
	}
	copy(m.Data[addr:], data)
	return nil
}

// ReadAt implements io.ReaderAt over physical memory.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.Data)) {
		return 0, fmt.Errorf("read offset out of bounds: %d", off)
	}
	return copy(p, m.Data[off:]), nil
}
