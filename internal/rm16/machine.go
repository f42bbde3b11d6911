package rm16

import (
	"context"
	"errors"
	"fmt"
)

// ErrHalt is returned by Step when the processor executes HLT. With no
// interrupt sources, a halted machine makes no further progress.
var ErrHalt = errors.New("machine halted")

// Handler services a software interrupt, the way firmware does. It runs
// synchronously: control returns to the program only after the handler
// completes.
type Handler func(m *Machine) error

// Machine couples a CPU to physical memory and firmware services.
type Machine struct {
	CPU *CPU
	Mem *Memory

	handlers map[uint8]Handler
}

// NewMachine returns a machine with zeroed memory and no firmware
// services installed.
func NewMachine() *Machine {
	return &Machine{
		CPU:      NewCPU(),
		Mem:      NewMemory(),
		handlers: make(map[uint8]Handler),
	}
}

// HandleInterrupt installs a handler for software interrupt n.
func (m *Machine) HandleInterrupt(n uint8, h Handler) {
	m.handlers[n] = h
}

// Load places code at a physical address and points CS:IP at its first
// byte, mirroring the firmware's load-and-jump entry contract. The load
// address is explicit so tests can vary it.
func (m *Machine) Load(addr uint16, code []byte) error {
	if err := m.Mem.LoadBytes(uint32(addr), code); err != nil {
		return err
	}
	m.CPU.Seg[CS] = 0
	m.CPU.IP = addr
	return nil
}

func (m *Machine) fetch8() (uint8, error) {
	b, err := m.Mem.Read8(m.CPU.LinearPC())
	if err != nil {
		return 0, err
	}
	m.CPU.IP++
	return b, nil
}

func (m *Machine) fetch16() (uint16, error) {
	v, err := m.Mem.Read16(m.CPU.LinearPC())
	if err != nil {
		return 0, err
	}
	m.CPU.IP += 2
	return v, nil
}

func (m *Machine) push16(v uint16) error {
	m.CPU.X[SP] -= 2
	return m.Mem.Write16(Linear(m.CPU.Seg[SS], m.CPU.X[SP]), v)
}

func (m *Machine) pop16() (uint16, error) {
	v, err := m.Mem.Read16(Linear(m.CPU.Seg[SS], m.CPU.X[SP]))
	if err != nil {
		return 0, err
	}
	m.CPU.X[SP] += 2
	return v, nil
}

// modrm splits a register-direct ModRM byte. Stage-1 code only uses
// register operands; memory addressing modes are not implemented.
func modrm(b uint8) (reg, rm uint8, err error) {
	if b>>6 != 0b11 {
		return 0, 0, fmt.Errorf("memory addressing mode not implemented: modrm 0x%02x", b)
	}
	return b >> 3 & 7, b & 7, nil
}

// Step fetches, decodes and executes one instruction. It returns
// ErrHalt on HLT.
func (m *Machine) Step() error {
	cpu := m.CPU

	if cpu.Halted {
		return ErrHalt
	}

	addr := cpu.LinearPC()
	op, err := m.fetch8()
	if err != nil {
		return err
	}

	switch {
	case op == 0x90: // NOP

	case op == 0xFA: // CLI
		cpu.Flags &^= FlagIF
	case op == 0xFB: // STI
		cpu.Flags |= FlagIF

	case op == 0xF4: // HLT
		cpu.Halted = true
		cpu.Instret++
		return ErrHalt

	case op == 0x31: // XOR r/m16, r16
		b, err := m.fetch8()
		if err != nil {
			return err
		}
		reg, rm, err := modrm(b)
		if err != nil {
			return err
		}
		cpu.X[rm] ^= cpu.X[reg]
		cpu.Flags &^= FlagCF
		cpu.setZF16(cpu.X[rm])

	case op == 0x08: // OR r/m8, r8
		b, err := m.fetch8()
		if err != nil {
			return err
		}
		reg, rm, err := modrm(b)
		if err != nil {
			return err
		}
		v := cpu.Reg8(rm) | cpu.Reg8(reg)
		cpu.SetReg8(rm, v)
		cpu.Flags &^= FlagCF
		cpu.setZF8(v)

	case op == 0x84: // TEST r/m8, r8
		b, err := m.fetch8()
		if err != nil {
			return err
		}
		reg, rm, err := modrm(b)
		if err != nil {
			return err
		}
		cpu.Flags &^= FlagCF
		cpu.setZF8(cpu.Reg8(rm) & cpu.Reg8(reg))

	case op == 0x88: // MOV r/m8, r8
		b, err := m.fetch8()
		if err != nil {
			return err
		}
		reg, rm, err := modrm(b)
		if err != nil {
			return err
		}
		cpu.SetReg8(rm, cpu.Reg8(reg))

	case op == 0x89: // MOV r/m16, r16
		b, err := m.fetch8()
		if err != nil {
			return err
		}
		reg, rm, err := modrm(b)
		if err != nil {
			return err
		}
		cpu.X[rm] = cpu.X[reg]

	case op == 0x8A: // MOV r8, r/m8
		b, err := m.fetch8()
		if err != nil {
			return err
		}
		reg, rm, err := modrm(b)
		if err != nil {
			return err
		}
		cpu.SetReg8(reg, cpu.Reg8(rm))

	case op == 0x8B: // MOV r16, r/m16
		b, err := m.fetch8()
		if err != nil {
			return err
		}
		reg, rm, err := modrm(b)
		if err != nil {
			return err
		}
		cpu.X[reg] = cpu.X[rm]

	case op == 0x8E: // MOV sreg, r/m16
		b, err := m.fetch8()
		if err != nil {
			return err
		}
		reg, rm, err := modrm(b)
		if err != nil {
			return err
		}
		if reg > DS {
			return fmt.Errorf("invalid segment register %d", reg)
		}
		cpu.Seg[reg] = cpu.X[rm]

	case op == 0x8C: // MOV r/m16, sreg
		b, err := m.fetch8()
		if err != nil {
			return err
		}
		reg, rm, err := modrm(b)
		if err != nil {
			return err
		}
		if reg > DS {
			return fmt.Errorf("invalid segment register %d", reg)
		}
		cpu.X[rm] = cpu.Seg[reg]

	case op >= 0xB0 && op <= 0xB7: // MOV r8, imm8
		v, err := m.fetch8()
		if err != nil {
			return err
		}
		cpu.SetReg8(op-0xB0, v)

	case op >= 0xB8 && op <= 0xBF: // MOV r16, imm16
		v, err := m.fetch16()
		if err != nil {
			return err
		}
		cpu.X[op-0xB8] = v

	case op == 0xAC: // LODSB
		v, err := m.Mem.Read8(Linear(cpu.Seg[DS], cpu.X[SI]))
		if err != nil {
			return err
		}
		cpu.SetReg8(RegAL, v)
		cpu.X[SI]++

	case op == 0x74: // JZ rel8
		rel, err := m.fetch8()
		if err != nil {
			return err
		}
		if cpu.Flags&FlagZF != 0 {
			cpu.IP += uint16(int16(int8(rel)))
		}

	case op == 0x75: // JNZ rel8
		rel, err := m.fetch8()
		if err != nil {
			return err
		}
		if cpu.Flags&FlagZF == 0 {
			cpu.IP += uint16(int16(int8(rel)))
		}

	case op == 0xEB: // JMP rel8
		rel, err := m.fetch8()
		if err != nil {
			return err
		}
		cpu.IP += uint16(int16(int8(rel)))

	case op == 0xE9: // JMP rel16
		rel, err := m.fetch16()
		if err != nil {
			return err
		}
		cpu.IP += rel

	case op == 0xE8: // CALL rel16
		rel, err := m.fetch16()
		if err != nil {
			return err
		}
		if err := m.push16(cpu.IP); err != nil {
			return err
		}
		cpu.IP += rel

	case op == 0xC3: // RET
		ip, err := m.pop16()
		if err != nil {
			return err
		}
		cpu.IP = ip

	case op == 0xCD: // INT imm8
		n, err := m.fetch8()
		if err != nil {
			return err
		}
		h, ok := m.handlers[n]
		if !ok {
			return fmt.Errorf("no firmware handler for int 0x%02x", n)
		}
		if err := h(m); err != nil {
			return fmt.Errorf("int 0x%02x: %w", n, err)
		}

	default:
		return DecodeError{Addr: addr, Opcode: op}
	}

	cpu.Instret++
	return nil
}

// Run steps the machine until it halts, errors, exceeds maxInstructions
// or the context is cancelled. A clean halt returns nil.
func (m *Machine) Run(ctx context.Context, maxInstructions uint64) error {
	for i := uint64(0); maxInstructions == 0 || i < maxInstructions; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Step(); err != nil {
			if errors.Is(err, ErrHalt) {
				return nil
			}
			return fmt.Errorf("step at 0x%05x: %w", m.CPU.LinearPC(), err)
		}
	}
	return fmt.Errorf("instruction budget of %d exhausted without halt", maxInstructions)
}
