package sector

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrame(t *testing.T) {
	code := []byte{0xFA, 0xF4}

	sec, err := Frame(code)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if len(sec) != Size {
		t.Fatalf("framed sector is %d bytes, want %d", len(sec), Size)
	}
	if !bytes.Equal(sec[:2], code) {
		t.Fatalf("code bytes not at offset 0: % x", sec[:2])
	}
	if sec[510] != 0x55 || sec[511] != 0xAA {
		t.Fatalf("signature missing: % x", sec[510:])
	}
	for i := 2; i < CodeLimit; i++ {
		if sec[i] != 0 {
			t.Fatalf("padding byte %d is 0x%02x, want 0", i, sec[i])
		}
	}
}

func TestFrameExactLimit(t *testing.T) {
	code := make([]byte, CodeLimit)
	code[0] = 0xF4

	sec, err := Frame(code)
	if err != nil {
		t.Fatalf("frame at limit: %v", err)
	}
	if err := Validate(sec); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestFrameTooLarge(t *testing.T) {
	_, err := Frame(make([]byte, CodeLimit+1))
	if !errors.Is(err, ErrCodeTooLarge) {
		t.Fatalf("got %v, want ErrCodeTooLarge", err)
	}
}

func TestValidate(t *testing.T) {
	sec, err := Frame([]byte{0xF4})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}

	if err := Validate(sec); err != nil {
		t.Fatalf("valid sector rejected: %v", err)
	}

	if err := Validate(sec[:511]); !errors.Is(err, ErrBadLength) {
		t.Fatalf("short sector: got %v, want ErrBadLength", err)
	}
	if err := Validate(append(sec, 0)); !errors.Is(err, ErrBadLength) {
		t.Fatalf("513-byte sector: got %v, want ErrBadLength", err)
	}

	bad := append([]byte(nil), sec...)
	bad[511] = 0
	if err := Validate(bad); !errors.Is(err, ErrSignatureMissing) {
		t.Fatalf("unsigned sector: got %v, want ErrSignatureMissing", err)
	}
}

func TestExtend(t *testing.T) {
	sec, err := Frame([]byte{0xF4})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}

	ext, err := Extend(sec, ExtendedSize)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if len(ext) != ExtendedSize {
		t.Fatalf("extended to %d bytes, want %d", len(ext), ExtendedSize)
	}
	if !bytes.Equal(ext[:Size], sec) {
		t.Fatal("extension changed the sector bytes")
	}
	for i := Size; i < ExtendedSize; i++ {
		if ext[i] != 0 {
			t.Fatalf("tail byte %d is 0x%02x, want 0", i, ext[i])
		}
	}

	// The extended unit still validates on its 512-byte window.
	if err := Validate(ext); err != nil {
		t.Fatalf("validate extended: %v", err)
	}
}

func TestExtendRejectsUnframed(t *testing.T) {
	if _, err := Extend(make([]byte, Size), ExtendedSize); err == nil {
		t.Fatal("extend accepted an unsigned sector")
	}
	sec, _ := Frame(nil)
	if _, err := Extend(sec, Size-1); err == nil {
		t.Fatal("extend accepted a shrinking size")
	}
}

func TestIsFramed(t *testing.T) {
	sec, _ := Frame([]byte{0x90})
	if !IsFramed(sec) {
		t.Fatal("framed sector not recognized")
	}
	ext, _ := Extend(sec, ExtendedSize)
	if !IsFramed(ext) {
		t.Fatal("extended sector not recognized")
	}
	if IsFramed([]byte{0x90}) {
		t.Fatal("raw code recognized as framed")
	}
	if IsFramed(make([]byte, Size)) {
		t.Fatal("unsigned sector recognized as framed")
	}
}
