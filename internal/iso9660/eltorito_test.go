package iso9660

import (
	"encoding/binary"
	"testing"
)

func TestBootRecordRoundTrip(t *testing.T) {
	buf := make([]byte, SectorSize)
	NewElToritoBootRecord(18).Dump(buf)

	if got := binary.LittleEndian.Uint32(buf[71:75]); got != 18 {
		t.Fatalf("catalog pointer %d, want 18", got)
	}

	br, err := ParseBootRecord(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if br.BootSystemIdent != "EL TORITO SPECIFICATION" {
		t.Fatalf("boot system identifier %q", br.BootSystemIdent)
	}
	if br.CatalogSector != 18 {
		t.Fatalf("catalog sector %d", br.CatalogSector)
	}
}

func TestBootRecordRejectsOtherTypes(t *testing.T) {
	buf := make([]byte, SectorSize)
	VolumeDescriptor{Type: TypePrimary, Version: 1}.Dump(buf)
	if _, err := ParseBootRecord(buf); err == nil {
		t.Fatal("primary descriptor accepted as boot record")
	}
}

func TestValidationEntryChecksum(t *testing.T) {
	buf := make([]byte, 32)
	ValidationEntry{PlatformID: PlatformX86, ManufacturerID: "BOOTFORGE"}.Dump(buf)

	if buf[0] != 0x01 {
		t.Fatalf("header id 0x%02x", buf[0])
	}
	if buf[30] != 0x55 || buf[31] != 0xAA {
		t.Fatalf("key bytes % x", buf[30:])
	}

	// The 16 words of the entry must sum to zero.
	var sum uint16
	for i := 0; i < 32; i += 2 {
		sum += binary.LittleEndian.Uint16(buf[i : i+2])
	}
	if sum != 0 {
		t.Fatalf("word sum 0x%04x, want 0", sum)
	}

	v, err := ParseValidationEntry(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.PlatformID != PlatformX86 || v.ManufacturerID != "BOOTFORGE" {
		t.Fatalf("parsed %+v", v)
	}

	// Any corruption breaks the checksum.
	buf[5] ^= 0x01
	if _, err := ParseValidationEntry(buf); err == nil {
		t.Fatal("corrupted entry accepted")
	}
}

func TestInitialEntryRoundTrip(t *testing.T) {
	in := InitialEntry{
		BootIndicator: Bootable,
		BootMedia:     MediaFloppy144,
		LoadSegment:   0x7C0,
		SectorCount:   4,
		ImageSector:   19,
	}

	buf := make([]byte, 32)
	in.Dump(buf)

	if got := binary.LittleEndian.Uint16(buf[6:8]); got != 4 {
		t.Fatalf("sector count field %d, want 4", got)
	}
	if got := binary.LittleEndian.Uint32(buf[8:12]); got != 19 {
		t.Fatalf("image sector field %d, want 19", got)
	}

	out, err := ParseInitialEntry(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != in {
		t.Fatalf("round trip: got %+v, want %+v", out, in)
	}
}

func TestInitialEntryRejectsBadIndicator(t *testing.T) {
	buf := make([]byte, 32)
	buf[0] = 0x44
	if _, err := ParseInitialEntry(buf); err == nil {
		t.Fatal("bad boot indicator accepted")
	}
}

func TestSectionEntryFlags(t *testing.T) {
	in := SectionEntry{
		BootIndicator: Bootable,
		BootMedia:     MediaHardDisk,
		ATAPIDriver:   true,
		SCSIDriver:    true,
		SectorCount:   4,
		ImageSector:   19,
	}

	buf := make([]byte, 32)
	in.Dump(buf)

	// Media byte: type 4 plus the ATAPI and SCSI driver bits.
	if buf[1] != 4|1<<6|1<<7 {
		t.Fatalf("media byte 0x%02x", buf[1])
	}

	out, err := ParseSectionEntry(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != in {
		t.Fatalf("round trip: got %+v, want %+v", out, in)
	}
}

func TestSectionHeaderRoundTrip(t *testing.T) {
	in := SectionHeader{
		Indicator:  HeaderFinal,
		PlatformID: PlatformUEFI,
		Entries:    1,
		Ident:      "STAGE1",
	}

	buf := make([]byte, 32)
	in.Dump(buf)

	out, err := ParseSectionHeader(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != in {
		t.Fatalf("round trip: got %+v, want %+v", out, in)
	}
}

func TestPlatformString(t *testing.T) {
	if PlatformX86.String() != "x86" || PlatformUEFI.String() != "uefi" {
		t.Fatal("platform names wrong")
	}
	if MediaFloppy144.String() != "1.44M floppy" {
		t.Fatalf("media name %q", MediaFloppy144.String())
	}
}
