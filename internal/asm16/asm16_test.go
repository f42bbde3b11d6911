package asm16

import (
	"bytes"
	"strings"
	"testing"
)

func assemble(t *testing.T, build func(a *Assembler)) []byte {
	t.Helper()
	a := New(0x7C00)
	build(a)
	code, err := a.Assemble()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return code
}

func TestEncodings(t *testing.T) {
	cases := []struct {
		name  string
		build func(a *Assembler)
		want  []byte
	}{
		{"cli", func(a *Assembler) { a.Cli() }, []byte{0xFA}},
		{"sti", func(a *Assembler) { a.Sti() }, []byte{0xFB}},
		{"hlt", func(a *Assembler) { a.Hlt() }, []byte{0xF4}},
		{"ret", func(a *Assembler) { a.Ret() }, []byte{0xC3}},
		{"lodsb", func(a *Assembler) { a.Lodsb() }, []byte{0xAC}},
		{"int 0x10", func(a *Assembler) { a.Int(0x10) }, []byte{0xCD, 0x10}},
		{"xor ax, ax", func(a *Assembler) { a.XorReg16(AX, AX) }, []byte{0x31, 0xC0}},
		{"xor di, bx", func(a *Assembler) { a.XorReg16(DI, BX) }, []byte{0x31, 0xDF}},
		{"test al, al", func(a *Assembler) { a.TestReg8(AL, AL) }, []byte{0x84, 0xC0}},
		{"mov ds, ax", func(a *Assembler) { a.MovSeg(DS, AX) }, []byte{0x8E, 0xD8}},
		{"mov ss, ax", func(a *Assembler) { a.MovSeg(SS, AX) }, []byte{0x8E, 0xD0}},
		{"mov ax, 0x1234", func(a *Assembler) { a.MovImm16(AX, 0x1234) }, []byte{0xB8, 0x34, 0x12}},
		{"mov sp, 0x7E00", func(a *Assembler) { a.MovImm16(SP, 0x7E00) }, []byte{0xBC, 0x00, 0x7E}},
		{"mov ah, 0x0E", func(a *Assembler) { a.MovImm8(AH, 0x0E) }, []byte{0xB4, 0x0E}},
		{"mov al, 'x'", func(a *Assembler) { a.MovImm8(AL, 'x') }, []byte{0xB0, 'x'}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code := assemble(t, tc.build)
			if !bytes.Equal(code, tc.want) {
				t.Fatalf("got % x, want % x", code, tc.want)
			}
		})
	}
}

func TestLabelAbs16(t *testing.T) {
	code := assemble(t, func(a *Assembler) {
		a.MovLabel(SI, "msg") // 3 bytes
		a.Hlt()               // 1 byte
		a.MarkLabel("msg")
		a.Db('h', 'i', 0)
	})

	// msg sits at offset 4, so the operand is 0x7C04.
	want := []byte{0xBE, 0x04, 0x7C, 0xF4, 'h', 'i', 0}
	if !bytes.Equal(code, want) {
		t.Fatalf("got % x, want % x", code, want)
	}
}

func TestLabelRel8Backward(t *testing.T) {
	code := assemble(t, func(a *Assembler) {
		a.MarkLabel("loop")
		a.Lodsb()
		a.JmpShort("loop")
	})

	// Jump operand is relative to the next instruction: -3.
	want := []byte{0xAC, 0xEB, 0xFD}
	if !bytes.Equal(code, want) {
		t.Fatalf("got % x, want % x", code, want)
	}
}

func TestLabelRel8Forward(t *testing.T) {
	code := assemble(t, func(a *Assembler) {
		a.Jz("done")
		a.Hlt()
		a.MarkLabel("done")
		a.Ret()
	})

	want := []byte{0x74, 0x01, 0xF4, 0xC3}
	if !bytes.Equal(code, want) {
		t.Fatalf("got % x, want % x", code, want)
	}
}

func TestLabelRel16(t *testing.T) {
	code := assemble(t, func(a *Assembler) {
		a.Call("sub") // 3 bytes
		a.Hlt()
		a.MarkLabel("sub")
		a.Ret()
	})

	// Call target is offset 4; relative to the next instruction at 3.
	want := []byte{0xE8, 0x01, 0x00, 0xF4, 0xC3}
	if !bytes.Equal(code, want) {
		t.Fatalf("got % x, want % x", code, want)
	}
}

func TestRel8OutOfRange(t *testing.T) {
	a := New(0x7C00)
	a.JmpShort("far")
	a.PadTo(200)
	a.MarkLabel("far")
	a.Ret()

	if _, err := a.Assemble(); err == nil || !strings.Contains(err.Error(), "short jump range") {
		t.Fatalf("got %v, want short jump range error", err)
	}
}

func TestUndefinedLabel(t *testing.T) {
	a := New(0x7C00)
	a.Jmp("nowhere")
	if _, err := a.Assemble(); err == nil || !strings.Contains(err.Error(), "undefined label") {
		t.Fatalf("got %v, want undefined label error", err)
	}
}

func TestDuplicateLabel(t *testing.T) {
	a := New(0x7C00)
	a.MarkLabel("x")
	a.Hlt()
	a.MarkLabel("x")
	if _, err := a.Assemble(); err == nil || !strings.Contains(err.Error(), "defined twice") {
		t.Fatalf("got %v, want duplicate label error", err)
	}
}

func TestPadTo(t *testing.T) {
	code := assemble(t, func(a *Assembler) {
		a.Hlt()
		a.PadTo(8)
	})
	if len(code) != 8 {
		t.Fatalf("padded to %d bytes, want 8", len(code))
	}
	for _, b := range code[1:] {
		if b != 0 {
			t.Fatalf("padding is % x, want zeros", code[1:])
		}
	}

	a := New(0)
	a.PadTo(4)
	a.PadTo(2)
	if _, err := a.Assemble(); err == nil {
		t.Fatal("backward pad accepted")
	}
}

func TestDz(t *testing.T) {
	code := assemble(t, func(a *Assembler) {
		a.Dz([]byte("hi"))
	})
	if !bytes.Equal(code, []byte{'h', 'i', 0}) {
		t.Fatalf("got % x", code)
	}
}

func TestAddr(t *testing.T) {
	a := New(0x7C00)
	if a.Addr() != 0x7C00 {
		t.Fatalf("initial addr 0x%04x", a.Addr())
	}
	a.Cli()
	a.MovImm16(AX, 0)
	if a.Addr() != 0x7C04 {
		t.Fatalf("addr after 4 bytes is 0x%04x", a.Addr())
	}
	if a.Len() != 4 {
		t.Fatalf("len is %d", a.Len())
	}
}
