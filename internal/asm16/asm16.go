// Package asm16 is a small two-pass assembler for 16-bit real-mode x86.
// It covers the instruction set a stage-1 boot loader needs: register
// moves, segment register loads, string loads, compare-and-branch, the
// software interrupt gate into firmware services, and halt.
//
// Encodings follow the 8086 one- and two-byte forms. Labels are resolved
// against an origin address (conventionally 0x7C00) in a fixup pass.
package asm16

import (
	"encoding/binary"
	"fmt"
)

// Reg16 is a 16-bit general purpose register in ModRM encoding order.
type Reg16 uint8

const (
	AX Reg16 = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI
)

// Reg8 is an 8-bit register in ModRM encoding order.
type Reg8 uint8

const (
	AL Reg8 = iota
	CL
	DL
	BL
	AH
	CH
	DH
	BH
)

// SReg is a segment register in ModRM reg-field encoding order.
type SReg uint8

const (
	ES SReg = iota
	CS
	SS
	DS
)

// Label names a position in the assembled stream.
type Label string

type fixupKind int

const (
	fixupAbs16 fixupKind = iota
	fixupRel8
	fixupRel16
)

type fixup struct {
	at    int // offset of the value bytes in the buffer
	next  int // offset of the following instruction, for relative forms
	label Label
	kind  fixupKind
}

// Assembler accumulates encoded instructions and resolves labels on
// Assemble. The zero value is not usable; call New.
type Assembler struct {
	origin uint16
	buf    []byte
	labels map[Label]int
	fixups []fixup
	err    error
}

// New returns an assembler whose first emitted byte sits at the given
// origin address.
func New(origin uint16) *Assembler {
	return &Assembler{
		origin: origin,
		labels: make(map[Label]int),
	}
}

// Origin returns the address of the first emitted byte.
func (a *Assembler) Origin() uint16 { return a.origin }

// Len returns the number of bytes emitted so far.
func (a *Assembler) Len() int { return len(a.buf) }

// Addr returns the address of the next byte to be emitted.
func (a *Assembler) Addr() uint16 { return a.origin + uint16(len(a.buf)) }

func (a *Assembler) setErr(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *Assembler) emit(b ...byte) {
	a.buf = append(a.buf, b...)
}

// MarkLabel records the current position under the given name.
func (a *Assembler) MarkLabel(l Label) {
	if _, ok := a.labels[l]; ok {
		a.setErr(fmt.Errorf("label %q defined twice", l))
		return
	}
	a.labels[l] = len(a.buf)
}

// Db emits raw data bytes.
func (a *Assembler) Db(b ...byte) { a.emit(b...) }

// Dz emits the bytes of s followed by a terminating zero byte.
func (a *Assembler) Dz(s []byte) {
	a.emit(s...)
	a.emit(0)
}

// PadTo emits zero bytes until the buffer is exactly n bytes long. It
// fails if the buffer is already past n.
func (a *Assembler) PadTo(n int) {
	if len(a.buf) > n {
		a.setErr(fmt.Errorf("cannot pad to %d: already at %d bytes", n, len(a.buf)))
		return
	}
	a.buf = append(a.buf, make([]byte, n-len(a.buf))...)
}

// Cli clears the interrupt flag.
func (a *Assembler) Cli() { a.emit(0xFA) }

// Sti sets the interrupt flag.
func (a *Assembler) Sti() { a.emit(0xFB) }

// Hlt halts the processor until the next interrupt or reset.
func (a *Assembler) Hlt() { a.emit(0xF4) }

// Ret returns from a near call.
func (a *Assembler) Ret() { a.emit(0xC3) }

// Lodsb loads the byte at DS:SI into AL and increments SI.
func (a *Assembler) Lodsb() { a.emit(0xAC) }

// Int raises software interrupt n.
func (a *Assembler) Int(n uint8) { a.emit(0xCD, n) }

func modrmReg(reg, rm uint8) byte {
	return 0xC0 | reg<<3 | rm
}

// XorReg16 emits xor dst, src (register forms only).
func (a *Assembler) XorReg16(dst, src Reg16) {
	a.emit(0x31, modrmReg(uint8(src), uint8(dst)))
}

// TestReg8 emits test dst, src, setting ZF from dst AND src.
func (a *Assembler) TestReg8(dst, src Reg8) {
	a.emit(0x84, modrmReg(uint8(src), uint8(dst)))
}

// MovSeg loads a segment register from a 16-bit register.
func (a *Assembler) MovSeg(dst SReg, src Reg16) {
	a.emit(0x8E, modrmReg(uint8(dst), uint8(src)))
}

// MovImm16 loads a 16-bit immediate into a register (B8+r form).
func (a *Assembler) MovImm16(dst Reg16, v uint16) {
	a.emit(0xB8 + uint8(dst))
	a.emitU16(v)
}

// MovImm8 loads an 8-bit immediate into a register (B0+r form).
func (a *Assembler) MovImm8(dst Reg8, v uint8) {
	a.emit(0xB0+uint8(dst), v)
}

// MovLabel loads the address of a label into a 16-bit register.
func (a *Assembler) MovLabel(dst Reg16, l Label) {
	a.emit(0xB8 + uint8(dst))
	a.fixups = append(a.fixups, fixup{at: len(a.buf), label: l, kind: fixupAbs16})
	a.emitU16(0)
}

// Jz emits a short jump-if-zero to the label.
func (a *Assembler) Jz(l Label) {
	a.emit(0x74)
	a.fixups = append(a.fixups, fixup{at: len(a.buf), next: len(a.buf) + 1, label: l, kind: fixupRel8})
	a.emit(0)
}

// JmpShort emits a short unconditional jump (rel8) to the label.
func (a *Assembler) JmpShort(l Label) {
	a.emit(0xEB)
	a.fixups = append(a.fixups, fixup{at: len(a.buf), next: len(a.buf) + 1, label: l, kind: fixupRel8})
	a.emit(0)
}

// Jmp emits a near unconditional jump (rel16) to the label.
func (a *Assembler) Jmp(l Label) {
	a.emit(0xE9)
	a.fixups = append(a.fixups, fixup{at: len(a.buf), next: len(a.buf) + 2, label: l, kind: fixupRel16})
	a.emitU16(0)
}

// Call emits a near call (rel16) to the label.
func (a *Assembler) Call(l Label) {
	a.emit(0xE8)
	a.fixups = append(a.fixups, fixup{at: len(a.buf), next: len(a.buf) + 2, label: l, kind: fixupRel16})
	a.emitU16(0)
}

func (a *Assembler) emitU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	a.emit(b[:]...)
}

// Assemble resolves all label references and returns the encoded bytes.
func (a *Assembler) Assemble() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}

	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined label %q", f.label)
		}

		switch f.kind {
		case fixupAbs16:
			binary.LittleEndian.PutUint16(a.buf[f.at:], a.origin+uint16(target))
		case fixupRel8:
			rel := target - f.next
			if rel < -128 || rel > 127 {
				return nil, fmt.Errorf("label %q out of short jump range: %d bytes", f.label, rel)
			}
			a.buf[f.at] = byte(int8(rel))
		case fixupRel16:
			rel := target - f.next
			binary.LittleEndian.PutUint16(a.buf[f.at:], uint16(int16(rel)))
		}
	}

	out := make([]byte, len(a.buf))
	copy(out, a.buf)
	return out, nil
}
