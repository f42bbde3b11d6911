package iso9660

import (
	"encoding/binary"
	"fmt"
)

// ISO 9660 stores integers in both byte orders back to back. These
// helpers read the little-endian half.
func bothEndian16(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf[:2])
}

func bothEndian32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[:4])
}

// PrimaryVolumeDescriptor holds the fields of the PVD an image
// inspector cares about. A boot-only image fills almost none of them;
// parsing tolerates empty identifier fields.
type PrimaryVolumeDescriptor struct {
	SystemIdent      string
	VolumeIdent      string
	VolumeSpaceSize  uint32
	VolumeSetSize    uint16
	VolumeSeqNum     uint16
	LogicalBlockSize uint16
	PathTableSize    uint32
	PathTableLoc     uint32
	PathTableLocM    uint32
	VolumeSetIdent   string
	CreationDate     string
}

// ParsePVD decodes a primary volume descriptor sector. The header must
// already have been checked to be TypePrimary.
func ParsePVD(buf []byte) (*PrimaryVolumeDescriptor, error) {
	if len(buf) < SectorSize {
		return nil, ErrShortBuf
	}

	sysIdent, err := ParseStrA(buf[8:40])
	if err != nil {
		return nil, fmt.Errorf("system identifier: %w", err)
	}
	volIdent, err := ParseStrD(buf[40:72])
	if err != nil {
		return nil, fmt.Errorf("volume identifier: %w", err)
	}
	volSetIdent, err := ParseStrD(buf[190:318])
	if err != nil {
		return nil, fmt.Errorf("volume set identifier: %w", err)
	}

	return &PrimaryVolumeDescriptor{
		SystemIdent:      sysIdent,
		VolumeIdent:      volIdent,
		VolumeSpaceSize:  bothEndian32(buf[80:88]),
		VolumeSetSize:    bothEndian16(buf[120:124]),
		VolumeSeqNum:     bothEndian16(buf[124:128]),
		LogicalBlockSize: bothEndian16(buf[128:132]),
		PathTableSize:    bothEndian32(buf[132:140]),
		PathTableLoc:     binary.LittleEndian.Uint32(buf[140:144]),
		PathTableLocM:    binary.BigEndian.Uint32(buf[148:152]),
		VolumeSetIdent:   volSetIdent,
		CreationDate:     string(buf[813:830]),
	}, nil
}
