package iso9660

import "fmt"

// Catalog is a decoded single-section boot catalog.
type Catalog struct {
	Validation ValidationEntry
	Initial    InitialEntry
	Header     SectionHeader
	Section    SectionEntry
}

// BootBlob is the auxiliary artifact a bootable optical image embeds at
// the start of the volume descriptor area: a primary descriptor header
// (enough for the firmware to take the buffer for an ISO 9660 disk), a
// boot record, and the boot catalog itself. Three sectors.
type BootBlob struct {
	// CatalogSector is where the catalog sector of this blob will land
	// on the image, referenced from the boot record.
	CatalogSector uint32

	// ImageSector is where the stage-1 boot image lands, in 2048-byte
	// sectors.
	ImageSector uint32

	// SectorCount is how many 512-byte virtual sectors the firmware
	// loads from ImageSector.
	SectorCount uint16
}

// Dump renders the three-sector blob.
func (b BootBlob) Dump() []byte {
	out := make([]byte, 3*SectorSize)

	VolumeDescriptor{Type: TypePrimary, Version: 1}.Dump(out)

	NewElToritoBootRecord(b.CatalogSector).Dump(out[SectorSize:])

	cat := out[2*SectorSize:]
	ValidationEntry{PlatformID: PlatformX86}.Dump(cat)
	InitialEntry{
		BootIndicator: Bootable,
		BootMedia:     MediaFloppy144,
		SectorCount:   b.SectorCount,
		ImageSector:   b.ImageSector,
	}.Dump(cat[32:])
	SectionHeader{
		Indicator:  HeaderFinal,
		PlatformID: PlatformX86,
		Entries:    1,
	}.Dump(cat[64:])
	SectionEntry{
		BootIndicator: Bootable,
		BootMedia:     MediaFloppy144,
		SectorCount:   b.SectorCount,
		ImageSector:   b.ImageSector,
	}.Dump(cat[96:])

	return out
}

// ParseCatalog decodes a catalog sector written by BootBlob.Dump: a
// validation entry, the initial entry, and one final section.
func ParseCatalog(buf []byte) (*Catalog, error) {
	if len(buf) < 128 {
		return nil, ErrShortBuf
	}

	validation, err := ParseValidationEntry(buf)
	if err != nil {
		return nil, fmt.Errorf("validation entry: %w", err)
	}
	initial, err := ParseInitialEntry(buf[32:])
	if err != nil {
		return nil, fmt.Errorf("initial entry: %w", err)
	}
	header, err := ParseSectionHeader(buf[64:])
	if err != nil {
		return nil, fmt.Errorf("section header: %w", err)
	}
	section, err := ParseSectionEntry(buf[96:])
	if err != nil {
		return nil, fmt.Errorf("section entry: %w", err)
	}

	return &Catalog{
		Validation: validation,
		Initial:    initial,
		Header:     header,
		Section:    section,
	}, nil
}
