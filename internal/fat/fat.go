// Package fat writes a FAT12 filesystem skeleton onto a floppy image:
// the BIOS parameter block at sector 0, two FAT copies seeded with the
// media descriptor, and an empty root directory. The stage-1 boot code
// is written over sector 0 afterwards and merely coexists with the
// filesystem; nothing at boot time parses these structures.
package fat

import (
	"encoding/binary"
	"fmt"

	"github.com/bootforge/bootforge/internal/media"
)

// Superblock is the FAT12/16 BIOS parameter block.
type Superblock struct {
	OEMName        string
	BytesPerSector uint16
	SectorsPerClus uint8
	ReservedSecs   uint16
	NumFATs        uint8
	RootEntries    uint16
	TotalSectors   uint16
	Media          uint8
	SectorsPerFAT  uint16
	SectorsPerTrk  uint16
	NumHeads       uint16
	HiddenSectors  uint32
	DriveNumber    uint8
	VolumeID       uint32
	VolumeLabel    string
	FilesysType    string
}

// Floppy144 is the classic 1.44M layout: 512-byte sectors, one sector
// per cluster, two 9-sector FATs, a 224-entry root directory.
func Floppy144() Superblock {
	return Superblock{
		OEMName:        "BOOTFRG ",
		BytesPerSector: 512,
		SectorsPerClus: 1,
		ReservedSecs:   1,
		NumFATs:        2,
		RootEntries:    224,
		TotalSectors:   2880,
		Media:          0xF0,
		SectorsPerFAT:  9,
		SectorsPerTrk:  18,
		NumHeads:       2,
		VolumeLabel:    "NO NAME    ",
		FilesysType:    "FAT12   ",
	}
}

func putPadded(out []byte, s string, pad byte) {
	n := copy(out, s)
	for i := n; i < len(out); i++ {
		out[i] = pad
	}
}

// Encode renders the superblock as a 512-byte sector, including the
// entry jump stub and the sector signature so a formatted-but-unsigned
// disk still looks sane to tooling.
func (sb Superblock) Encode() []byte {
	out := make([]byte, 512)

	// jmp short past the BPB; nop.
	out[0], out[1], out[2] = 0xEB, 0x3C, 0x90
	putPadded(out[3:11], sb.OEMName, ' ')

	binary.LittleEndian.PutUint16(out[11:13], sb.BytesPerSector)
	out[13] = sb.SectorsPerClus
	binary.LittleEndian.PutUint16(out[14:16], sb.ReservedSecs)
	out[16] = sb.NumFATs
	binary.LittleEndian.PutUint16(out[17:19], sb.RootEntries)
	binary.LittleEndian.PutUint16(out[19:21], sb.TotalSectors)
	out[21] = sb.Media
	binary.LittleEndian.PutUint16(out[22:24], sb.SectorsPerFAT)
	binary.LittleEndian.PutUint16(out[24:26], sb.SectorsPerTrk)
	binary.LittleEndian.PutUint16(out[26:28], sb.NumHeads)
	binary.LittleEndian.PutUint32(out[28:32], sb.HiddenSectors)

	out[36] = sb.DriveNumber
	out[38] = 0x29 // extended boot signature: volume id and label follow
	binary.LittleEndian.PutUint32(out[39:43], sb.VolumeID)
	putPadded(out[43:54], sb.VolumeLabel, ' ')
	putPadded(out[54:62], sb.FilesysType, ' ')

	out[510], out[511] = 0x55, 0xAA
	return out
}

// fatSeed returns the first FAT sector: entries 0 and 1 are reserved
// and seeded from the media descriptor.
func (sb Superblock) fatSeed() []byte {
	fat := make([]byte, int(sb.BytesPerSector))
	fat[0] = sb.Media
	fat[1] = 0xFF
	fat[2] = 0xFF
	return fat
}

// Format writes the filesystem skeleton onto the image: superblock,
// both FAT copies, and the (zero) root directory region, which the
// zero-filled image already provides.
func Format(img *media.Image, sb Superblock) error {
	geo := img.Geometry()
	if geo.SectorSize != int(sb.BytesPerSector) || geo.Sectors != int(sb.TotalSectors) {
		return fmt.Errorf("superblock describes %dx%d, image is %dx%d",
			sb.TotalSectors, sb.BytesPerSector, geo.Sectors, geo.SectorSize)
	}

	boot := media.Region{Sector: 0, Count: 1, SectorSize: int(sb.BytesPerSector)}
	if err := img.WriteRegion(boot, sb.Encode()); err != nil {
		return fmt.Errorf("write superblock: %w", err)
	}

	seed := sb.fatSeed()
	for i := 0; i < int(sb.NumFATs); i++ {
		start := int(sb.ReservedSecs) + i*int(sb.SectorsPerFAT)
		first := media.Region{Sector: start, Count: 1, SectorSize: int(sb.BytesPerSector)}
		if err := img.WriteRegion(first, seed); err != nil {
			return fmt.Errorf("write FAT %d: %w", i, err)
		}
	}

	return nil
}
