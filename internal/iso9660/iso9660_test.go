package iso9660

import (
	"errors"
	"testing"
)

func TestVolumeDescriptorRoundTrip(t *testing.T) {
	buf := make([]byte, SectorSize)
	VolumeDescriptor{Type: TypePrimary, Version: 1}.Dump(buf)

	if string(buf[1:6]) != "CD001" {
		t.Fatalf("identifier %q", buf[1:6])
	}

	vd, err := ParseVolumeDescriptor(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if vd.Type != TypePrimary || vd.Version != 1 {
		t.Fatalf("parsed %+v", vd)
	}
}

func TestVolumeDescriptorErrors(t *testing.T) {
	if _, err := ParseVolumeDescriptor(make([]byte, 3)); !errors.Is(err, ErrShortBuf) {
		t.Fatalf("short buffer: %v", err)
	}

	buf := make([]byte, SectorSize)
	if _, err := ParseVolumeDescriptor(buf); !errors.Is(err, ErrBadIdent) {
		t.Fatalf("zero sector: %v", err)
	}

	VolumeDescriptor{Type: TypePrimary, Version: 1}.Dump(buf)
	buf[6] = 2
	if _, err := ParseVolumeDescriptor(buf); !errors.Is(err, ErrBadVersion) {
		t.Fatalf("bad version: %v", err)
	}
}

func TestTypeString(t *testing.T) {
	cases := map[uint8]string{
		TypeBootRecord: "boot record",
		TypePrimary:    "primary volume descriptor",
		TypeTerminator: "volume descriptor set terminator",
	}
	for typ, want := range cases {
		if got := (VolumeDescriptor{Type: typ}).TypeString(); got != want {
			t.Errorf("type %d: %q, want %q", typ, got, want)
		}
	}
}

func TestParseStrD(t *testing.T) {
	got, err := ParseStrD([]byte("BOOT_VOL   "))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != "BOOT_VOL" {
		t.Fatalf("got %q", got)
	}

	// Lowercase is outside the d-character alphabet.
	_, err = ParseStrD([]byte("boot"))
	var ice InvalidCharError
	if !errors.As(err, &ice) {
		t.Fatalf("got %v, want InvalidCharError", err)
	}
	if ice.CodePoint != 'b' {
		t.Fatalf("offending byte 0x%02x", ice.CodePoint)
	}
}

func TestParseStrA(t *testing.T) {
	got, err := ParseStrA([]byte("EL TORITO SPECIFICATION\x00\x00"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != "EL TORITO SPECIFICATION" {
		t.Fatalf("got %q", got)
	}
}
