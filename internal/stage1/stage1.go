// Package stage1 builds the stage-1 loader: the 16-bit real-mode program
// the firmware loads from the boot sector and jumps to. The loader's
// whole job is to establish a known execution environment (segments,
// stack), print its diagnostic messages through the firmware teletype
// service, and halt.
//
// The control flow is modeled as an explicit finite-state machine rather
// than raw control transfer, so the contract is testable without a full
// CPU simulator: states are strictly sequential and unconditional, and
// Halt is terminal. Build walks the machine from SegmentInit to Halt and
// emits the code for each state.
package stage1

import (
	"fmt"

	"github.com/bootforge/bootforge/internal/asm16"
	"github.com/bootforge/bootforge/internal/sector"
)

// State is a step in the loader's fixed boot sequence.
type State int

const (
	// StateSegmentInit establishes DS, ES and SS at a single fixed base
	// so address computations are consistent.
	StateSegmentInit State = iota
	// StateStackInit points SP at the top of the loaded region, growing
	// downward.
	StateStackInit
	// StatePrintFirst prints the first embedded message.
	StatePrintFirst
	// StateJumpNext transfers control, via a direct jump, to code
	// co-located past the primary sector inside the same loaded block.
	StateJumpNext
	// StatePrintSecond prints the second embedded message.
	StatePrintSecond
	// StateHalt halts the processor. Terminal; only a reset leaves it.
	StateHalt
)

func (s State) String() string {
	switch s {
	case StateSegmentInit:
		return "segment-init"
	case StateStackInit:
		return "stack-init"
	case StatePrintFirst:
		return "print-first"
	case StateJumpNext:
		return "jump-next"
	case StatePrintSecond:
		return "print-second"
	case StateHalt:
		return "halt"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TeletypeInt is the firmware video service interrupt number.
const TeletypeInt = 0x10

// TeletypeFunc is the teletype-output function number, passed in AH.
const TeletypeFunc = 0x0E

// Program describes a stage-1 loader to build.
type Program struct {
	// LoadAddress is where the firmware will place the sector. Defaults
	// to sector.LoadAddress.
	LoadAddress uint16

	// StackTop is the initial SP. Defaults to the top of the loaded
	// 512-byte region so call/return bookkeeping never collides with
	// code or data below it.
	StackTop uint16

	// Messages are the diagnostic strings to print, in order. A
	// terminating zero byte is appended to each. The first message lives
	// in the primary sector; a second message lives past offset 512 in
	// the extended region and is reached only via the explicit jump.
	Messages [][]byte
}

// Next is the FSM transition function. Transitions are sequential and
// unconditional; there is no branching on input and no failure
// transition. Programs with a single message skip the jump and the
// second print.
func (p *Program) Next(s State) State {
	switch s {
	case StateSegmentInit:
		return StateStackInit
	case StateStackInit:
		return StatePrintFirst
	case StatePrintFirst:
		if len(p.Messages) > 1 {
			return StateJumpNext
		}
		return StateHalt
	case StateJumpNext:
		return StatePrintSecond
	case StatePrintSecond:
		return StateHalt
	default:
		return StateHalt
	}
}

// Sequence returns the states the program passes through, in order,
// ending with StateHalt.
func (p *Program) Sequence() []State {
	seq := []State{StateSegmentInit}
	for seq[len(seq)-1] != StateHalt {
		seq = append(seq, p.Next(seq[len(seq)-1]))
	}
	return seq
}

func (p *Program) loadAddress() uint16 {
	if p.LoadAddress != 0 {
		return p.LoadAddress
	}
	return sector.LoadAddress
}

func (p *Program) stackTop() uint16 {
	if p.StackTop != 0 {
		return p.StackTop
	}
	return p.loadAddress() + sector.Size
}

const (
	labelPuts   = asm16.Label("puts")
	labelPutsCh = asm16.Label("puts.char")
	labelDone   = asm16.Label("puts.done")
	labelSecond = asm16.Label("second")
	labelHalt   = asm16.Label("halt")
	labelHalt2  = asm16.Label("halt.second")
)

func messageLabel(i int) asm16.Label {
	return asm16.Label(fmt.Sprintf("msg%d", i))
}

// Build assembles the loader. Single-message programs produce an exact
// 512-byte boot sector; two-message programs produce a 2048-byte optical
// unit whose first 512 bytes are a valid boot sector and whose second
// message code sits past offset 512, reachable only through the jump.
// Code beyond the two messages is an error.
func (p *Program) Build() ([]byte, error) {
	if len(p.Messages) == 0 || len(p.Messages) > 2 {
		return nil, fmt.Errorf("stage1 needs one or two messages, got %d", len(p.Messages))
	}

	a := asm16.New(p.loadAddress())

	for _, s := range p.Sequence() {
		switch s {
		case StateSegmentInit:
			a.Cli()
			a.XorReg16(asm16.AX, asm16.AX)
			a.MovSeg(asm16.DS, asm16.AX)
			a.MovSeg(asm16.ES, asm16.AX)
			a.MovSeg(asm16.SS, asm16.AX)

		case StateStackInit:
			a.MovImm16(asm16.SP, p.stackTop())

		case StatePrintFirst:
			a.MovLabel(asm16.SI, messageLabel(0))
			a.Call(labelPuts)

		case StateJumpNext:
			a.Jmp(labelSecond)
			p.emitPrimaryTail(a)

		case StatePrintSecond:
			// Past the signature: only the jump above can reach this.
			a.MarkLabel(labelSecond)
			a.MovLabel(asm16.SI, messageLabel(1))
			a.Call(labelPuts)

		case StateHalt:
			if len(p.Messages) == 1 {
				p.emitHalt(a, labelHalt)
				p.emitPrimaryTail(a)
			} else {
				p.emitHalt(a, labelHalt2)
				a.MarkLabel(messageLabel(1))
				a.Dz(p.Messages[1])
				a.PadTo(sector.ExtendedSize)
			}
		}
	}

	code, err := a.Assemble()
	if err != nil {
		return nil, fmt.Errorf("assemble stage1: %w", err)
	}
	if err := sector.Validate(code); err != nil {
		return nil, err
	}
	return code, nil
}

// emitPrimaryTail emits the pieces shared by every variant of the
// primary sector: the puts routine, the first message, the zero padding
// up to offset 510 and the boot signature.
func (p *Program) emitPrimaryTail(a *asm16.Assembler) {
	// puts walks a zero-terminated buffer at DS:SI, handing each byte to
	// the firmware teletype service. No status is consulted.
	a.MarkLabel(labelPuts)
	a.MarkLabel(labelPutsCh)
	a.Lodsb()
	a.TestReg8(asm16.AL, asm16.AL)
	a.Jz(labelDone)
	a.MovImm8(asm16.AH, TeletypeFunc)
	a.Int(TeletypeInt)
	a.JmpShort(labelPutsCh)
	a.MarkLabel(labelDone)
	a.Ret()

	a.MarkLabel(messageLabel(0))
	a.Dz(p.Messages[0])

	a.PadTo(sector.CodeLimit)
	a.Db(sector.Signature[0], sector.Signature[1])
}

// emitHalt emits the terminal halt. The backstop jump re-halts if an
// interrupt ever wakes the processor.
func (p *Program) emitHalt(a *asm16.Assembler, l asm16.Label) {
	a.MarkLabel(l)
	a.Hlt()
	a.JmpShort(l)
}
