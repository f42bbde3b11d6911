package iso9660

import (
	"encoding/binary"
	"fmt"
)

// bootSystemIdent is the boot system identifier El Torito requires in
// the boot record, at offset 7, zero-padded to 32 bytes.
const bootSystemIdent = "EL TORITO SPECIFICATION"

// BootRecord is the volume descriptor that points the firmware at the
// boot catalog.
type BootRecord struct {
	BootSystemIdent string
	CatalogSector   uint32
}

// NewElToritoBootRecord returns a boot record whose catalog lives at
// the given sector.
func NewElToritoBootRecord(catalogSector uint32) BootRecord {
	return BootRecord{
		BootSystemIdent: bootSystemIdent,
		CatalogSector:   catalogSector,
	}
}

// ParseBootRecord decodes a boot record sector.
func ParseBootRecord(buf []byte) (BootRecord, error) {
	vd, err := ParseVolumeDescriptor(buf)
	if err != nil {
		return BootRecord{}, err
	}
	if vd.Type != TypeBootRecord {
		return BootRecord{}, fmt.Errorf("descriptor type %d is not a boot record", vd.Type)
	}

	ident, err := ParseStrA(buf[7:39])
	if err != nil {
		return BootRecord{}, fmt.Errorf("boot system identifier: %w", err)
	}

	return BootRecord{
		BootSystemIdent: ident,
		CatalogSector:   binary.LittleEndian.Uint32(buf[71:75]),
	}, nil
}

// Dump writes the boot record into a sector buffer.
func (br BootRecord) Dump(out []byte) {
	VolumeDescriptor{Type: TypeBootRecord, Version: 1}.Dump(out)
	copy(out[7:39], br.BootSystemIdent)
	binary.LittleEndian.PutUint32(out[71:75], br.CatalogSector)
}

// Platform identifies the system type a catalog entry boots.
type Platform uint8

const (
	PlatformX86  Platform = 0x00
	PlatformPPC  Platform = 0x01
	PlatformMac  Platform = 0x02
	PlatformUEFI Platform = 0xEF
)

func (p Platform) String() string {
	switch p {
	case PlatformX86:
		return "x86"
	case PlatformPPC:
		return "ppc"
	case PlatformMac:
		return "mac"
	case PlatformUEFI:
		return "uefi"
	default:
		return fmt.Sprintf("platform(0x%02x)", uint8(p))
	}
}

func parsePlatform(b byte) (Platform, error) {
	switch p := Platform(b); p {
	case PlatformX86, PlatformPPC, PlatformMac, PlatformUEFI:
		return p, nil
	default:
		return 0, fmt.Errorf("unknown platform id 0x%02x", b)
	}
}

// BootIndicator marks a catalog entry bootable or not.
type BootIndicator uint8

const (
	NotBootable BootIndicator = 0x00
	Bootable    BootIndicator = 0x88
)

func parseBootIndicator(b byte) (BootIndicator, error) {
	switch i := BootIndicator(b); i {
	case NotBootable, Bootable:
		return i, nil
	default:
		return 0, fmt.Errorf("unknown boot indicator 0x%02x", b)
	}
}

// BootMedia is the emulation type the firmware applies to the boot
// image.
type BootMedia uint8

const (
	MediaNoEmulation BootMedia = 0
	MediaFloppy12    BootMedia = 1
	MediaFloppy144   BootMedia = 2
	MediaFloppy288   BootMedia = 3
	MediaHardDisk    BootMedia = 4
)

func (m BootMedia) String() string {
	switch m {
	case MediaNoEmulation:
		return "no emulation"
	case MediaFloppy12:
		return "1.2M floppy"
	case MediaFloppy144:
		return "1.44M floppy"
	case MediaFloppy288:
		return "2.88M floppy"
	case MediaHardDisk:
		return "hard disk"
	default:
		return fmt.Sprintf("media(%d)", uint8(m))
	}
}

func parseBootMedia(b byte) (BootMedia, error) {
	if b > 4 {
		return 0, fmt.Errorf("unknown boot media type 0x%02x", b)
	}
	return BootMedia(b), nil
}

// ValidationEntry opens the boot catalog. Its checksum closes the
// 32-byte entry so the words sum to zero, and the 0x55 0xAA tail mirrors
// the boot sector signature.
type ValidationEntry struct {
	PlatformID     Platform
	ManufacturerID string
}

// Dump writes the validation entry, computing the checksum.
func (v ValidationEntry) Dump(out []byte) {
	out[0] = 0x01
	out[1] = byte(v.PlatformID)
	out[2], out[3] = 0, 0
	if v.ManufacturerID != "" {
		dumpStr(out[4:28], v.ManufacturerID)
	} else {
		dumpStr(out[4:28], "")
	}
	out[28], out[29] = 0, 0
	out[30] = 0x55
	out[31] = 0xAA

	// Checksum: the 16 little-endian words of the entry must sum to 0.
	var sum uint16
	for i := 0; i < 32; i += 2 {
		sum += binary.LittleEndian.Uint16(out[i : i+2])
	}
	binary.LittleEndian.PutUint16(out[28:30], -sum)
}

// ParseValidationEntry decodes and checks a validation entry.
func ParseValidationEntry(buf []byte) (ValidationEntry, error) {
	if len(buf) < 32 {
		return ValidationEntry{}, ErrShortBuf
	}
	if buf[0] != 0x01 {
		return ValidationEntry{}, fmt.Errorf("validation entry header id 0x%02x, want 0x01", buf[0])
	}
	if buf[30] != 0x55 || buf[31] != 0xAA {
		return ValidationEntry{}, fmt.Errorf("validation entry key bytes missing")
	}

	var sum uint16
	for i := 0; i < 32; i += 2 {
		sum += binary.LittleEndian.Uint16(buf[i : i+2])
	}
	if sum != 0 {
		return ValidationEntry{}, fmt.Errorf("validation entry checksum is 0x%04x, want 0", sum)
	}

	platform, err := parsePlatform(buf[1])
	if err != nil {
		return ValidationEntry{}, err
	}
	manufacturer, err := ParseStrA(buf[4:28])
	if err != nil {
		return ValidationEntry{}, fmt.Errorf("manufacturer id: %w", err)
	}

	return ValidationEntry{PlatformID: platform, ManufacturerID: manufacturer}, nil
}

// InitialEntry is the default boot entry the firmware uses when it does
// not walk section headers.
type InitialEntry struct {
	BootIndicator BootIndicator
	BootMedia     BootMedia
	LoadSegment   uint16 // 0 means the firmware default, 0x7C0
	SystemType    uint8
	SectorCount   uint16 // 512-byte virtual sectors to load
	ImageSector   uint32 // image start, in 2048-byte sectors
}

// Dump writes the initial entry.
func (e InitialEntry) Dump(out []byte) {
	out[0] = byte(e.BootIndicator)
	out[1] = byte(e.BootMedia)
	binary.LittleEndian.PutUint16(out[2:4], e.LoadSegment)
	out[4] = e.SystemType
	out[5] = 0
	binary.LittleEndian.PutUint16(out[6:8], e.SectorCount)
	binary.LittleEndian.PutUint32(out[8:12], e.ImageSector)
	for i := 12; i < 32; i++ {
		out[i] = 0
	}
}

// ParseInitialEntry decodes an initial entry.
func ParseInitialEntry(buf []byte) (InitialEntry, error) {
	if len(buf) < 32 {
		return InitialEntry{}, ErrShortBuf
	}
	indicator, err := parseBootIndicator(buf[0])
	if err != nil {
		return InitialEntry{}, err
	}
	media, err := parseBootMedia(buf[1])
	if err != nil {
		return InitialEntry{}, err
	}
	return InitialEntry{
		BootIndicator: indicator,
		BootMedia:     media,
		LoadSegment:   binary.LittleEndian.Uint16(buf[2:4]),
		SystemType:    buf[4],
		SectorCount:   binary.LittleEndian.Uint16(buf[6:8]),
		ImageSector:   binary.LittleEndian.Uint32(buf[8:12]),
	}, nil
}

// HeaderIndicator marks a section header as the last one or not.
type HeaderIndicator uint8

const (
	HeaderMore  HeaderIndicator = 0x90
	HeaderFinal HeaderIndicator = 0x91
)

// SectionHeader introduces a group of section entries.
type SectionHeader struct {
	Indicator  HeaderIndicator
	PlatformID Platform
	Entries    uint16
	Ident      string
}

// Dump writes the section header.
func (h SectionHeader) Dump(out []byte) {
	out[0] = byte(h.Indicator)
	out[1] = byte(h.PlatformID)
	binary.LittleEndian.PutUint16(out[2:4], h.Entries)
	dumpStr(out[4:32], h.Ident)
}

// ParseSectionHeader decodes a section header.
func ParseSectionHeader(buf []byte) (SectionHeader, error) {
	if len(buf) < 32 {
		return SectionHeader{}, ErrShortBuf
	}
	switch HeaderIndicator(buf[0]) {
	case HeaderMore, HeaderFinal:
	default:
		return SectionHeader{}, fmt.Errorf("unknown header indicator 0x%02x", buf[0])
	}
	platform, err := parsePlatform(buf[1])
	if err != nil {
		return SectionHeader{}, err
	}
	ident, err := ParseStrA(buf[4:32])
	if err != nil {
		return SectionHeader{}, fmt.Errorf("section id: %w", err)
	}
	return SectionHeader{
		Indicator:  HeaderIndicator(buf[0]),
		PlatformID: platform,
		Entries:    binary.LittleEndian.Uint16(buf[2:4]),
		Ident:      ident,
	}, nil
}

// Media-byte flag bits of a section entry.
const (
	sectionFlagContinuation = 1 << 5
	sectionFlagATAPIDriver  = 1 << 6
	sectionFlagSCSIDriver   = 1 << 7
)

// SectionEntry is a bootable image within a section.
type SectionEntry struct {
	BootIndicator   BootIndicator
	BootMedia       BootMedia
	HasContinuation bool
	ATAPIDriver     bool
	SCSIDriver      bool
	LoadSegment     uint16
	SystemType      uint8
	SectorCount     uint16
	ImageSector     uint32
	SelectionType   uint8
	SelectionBytes  [19]byte
}

// Dump writes the section entry.
func (e SectionEntry) Dump(out []byte) {
	out[0] = byte(e.BootIndicator)

	media := byte(e.BootMedia)
	if e.HasContinuation {
		media |= sectionFlagContinuation
	}
	if e.ATAPIDriver {
		media |= sectionFlagATAPIDriver
	}
	if e.SCSIDriver {
		media |= sectionFlagSCSIDriver
	}
	out[1] = media

	binary.LittleEndian.PutUint16(out[2:4], e.LoadSegment)
	out[4] = e.SystemType
	out[5] = 0
	binary.LittleEndian.PutUint16(out[6:8], e.SectorCount)
	binary.LittleEndian.PutUint32(out[8:12], e.ImageSector)
	out[12] = e.SelectionType
	copy(out[13:32], e.SelectionBytes[:])
}

// ParseSectionEntry decodes a section entry.
func ParseSectionEntry(buf []byte) (SectionEntry, error) {
	if len(buf) < 32 {
		return SectionEntry{}, ErrShortBuf
	}
	indicator, err := parseBootIndicator(buf[0])
	if err != nil {
		return SectionEntry{}, err
	}
	// The low bits carry the media type, the high three are flags.
	media, err := parseBootMedia(buf[1] & 0x1F)
	if err != nil {
		return SectionEntry{}, err
	}

	e := SectionEntry{
		BootIndicator:   indicator,
		BootMedia:       media,
		HasContinuation: buf[1]&sectionFlagContinuation != 0,
		ATAPIDriver:     buf[1]&sectionFlagATAPIDriver != 0,
		SCSIDriver:      buf[1]&sectionFlagSCSIDriver != 0,
		LoadSegment:     binary.LittleEndian.Uint16(buf[2:4]),
		SystemType:      buf[4],
		SectorCount:     binary.LittleEndian.Uint16(buf[6:8]),
		ImageSector:     binary.LittleEndian.Uint32(buf[8:12]),
		SelectionType:   buf[12],
	}
	copy(e.SelectionBytes[:], buf[13:32])
	return e, nil
}
