// Package rm16 implements a small 16-bit real-address-mode x86 machine,
// enough to execute a stage-1 boot loader: the firmware loads a sector
// to a fixed physical address, jumps to it, and the code runs strictly
// sequentially until it halts. Firmware services are modeled as
// registered interrupt handlers.
package rm16

import "fmt"

// General purpose registers, in 8086 encoding order.
const (
	AX = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI
)

// Segment registers, in 8086 encoding order.
const (
	ES = iota
	CS
	SS
	DS
)

// 8-bit registers, in 8086 encoding order. 4..7 address the high bytes
// of AX..BX.
const (
	RegAL uint8 = iota
	RegCL
	RegDL
	RegBL
	RegAH
	RegCH
	RegDH
	RegBH
)

// FLAGS bits.
const (
	FlagCF uint16 = 1 << 0
	FlagZF uint16 = 1 << 6
	FlagSF uint16 = 1 << 7
	FlagIF uint16 = 1 << 9
)

// CPU is the 16-bit processor state.
type CPU struct {
	// X holds the general purpose registers AX..DI.
	X [8]uint16

	// Seg holds the segment registers ES..DS.
	Seg [4]uint16

	// IP is the instruction pointer, relative to CS.
	IP uint16

	// Flags is the FLAGS register.
	Flags uint16

	// Halted is set by HLT. Real hardware wakes on the next interrupt;
	// this machine services no asynchronous interrupts, so a halt is
	// terminal.
	Halted bool

	// Instret counts retired instructions.
	Instret uint64
}

// NewCPU returns a CPU in its after-reset state.
func NewCPU() *CPU {
	return &CPU{}
}

// Reset clears all register state.
func (cpu *CPU) Reset() {
	*cpu = CPU{}
}

// Reg8 reads an 8-bit register by encoding number (AL..BH). Registers
// 4..7 are the high bytes of AX..BX.
func (cpu *CPU) Reg8(reg uint8) uint8 {
	if reg < 4 {
		return uint8(cpu.X[reg])
	}
	return uint8(cpu.X[reg-4] >> 8)
}

// SetReg8 writes an 8-bit register by encoding number.
func (cpu *CPU) SetReg8(reg uint8, v uint8) {
	if reg < 4 {
		cpu.X[reg] = cpu.X[reg]&0xFF00 | uint16(v)
		return
	}
	cpu.X[reg-4] = cpu.X[reg-4]&0x00FF | uint16(v)<<8
}

// setZF updates ZF and SF from an 8-bit result.
func (cpu *CPU) setZF8(v uint8) {
	cpu.Flags &^= FlagZF | FlagSF
	if v == 0 {
		cpu.Flags |= FlagZF
	}
	if v&0x80 != 0 {
		cpu.Flags |= FlagSF
	}
}

// setZF16 updates ZF and SF from a 16-bit result.
func (cpu *CPU) setZF16(v uint16) {
	cpu.Flags &^= FlagZF | FlagSF
	if v == 0 {
		cpu.Flags |= FlagZF
	}
	if v&0x8000 != 0 {
		cpu.Flags |= FlagSF
	}
}

// LinearPC returns the physical address CS:IP points at.
func (cpu *CPU) LinearPC() uint32 {
	return Linear(cpu.Seg[CS], cpu.IP)
}

// Linear computes a real-mode physical address from segment:offset.
func Linear(seg, off uint16) uint32 {
	return uint32(seg)<<4 + uint32(off)
}

// DecodeError is returned when the machine reaches an instruction it
// does not implement. In this domain that is a build defect, not a
// runtime condition: stage-1 code is assembled from the same subset.
type DecodeError struct {
	Addr   uint32
	Opcode uint8
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("unimplemented opcode 0x%02x at 0x%05x", e.Opcode, e.Addr)
}
