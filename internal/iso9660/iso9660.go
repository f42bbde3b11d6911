// Package iso9660 implements the small slice of ISO 9660 and the El
// Torito boot specification needed to make an optical image bootable:
// volume descriptor headers, the boot record that points at the boot
// catalog, and the catalog entries that tell the firmware where the
// boot image sits.
package iso9660

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// SectorSize is the logical sector size of optical media.
	SectorSize = 2048

	// DataStart is the byte offset of the volume descriptor area:
	// sectors 0..15 are the reserved system area.
	DataStart = 16 * SectorSize
)

// vdIdent is the standard identifier carried by every volume descriptor.
var vdIdent = [5]byte{'C', 'D', '0', '0', '1'}

// Volume descriptor types.
const (
	TypeBootRecord = 0
	TypePrimary    = 1
	TypeEnhanced   = 2
	TypePartition  = 3
	TypeTerminator = 255
)

var (
	ErrBadIdent   = errors.New("volume descriptor identifier is not CD001")
	ErrBadVersion = errors.New("unsupported volume descriptor version")
	ErrShortBuf   = errors.New("buffer shorter than a descriptor")
)

// VolumeDescriptor is the 7-byte header shared by all descriptor types.
type VolumeDescriptor struct {
	Type    uint8
	Version uint8
}

// ParseVolumeDescriptor reads a descriptor header from the start of a
// sector buffer.
func ParseVolumeDescriptor(buf []byte) (VolumeDescriptor, error) {
	if len(buf) < 7 {
		return VolumeDescriptor{}, ErrShortBuf
	}
	if string(buf[1:6]) != string(vdIdent[:]) {
		return VolumeDescriptor{}, fmt.Errorf("%w: %q", ErrBadIdent, buf[1:6])
	}
	if buf[6] != 1 {
		return VolumeDescriptor{}, fmt.Errorf("%w: %d", ErrBadVersion, buf[6])
	}
	return VolumeDescriptor{Type: buf[0], Version: buf[6]}, nil
}

// Dump writes the descriptor header into the start of a sector buffer.
func (vd VolumeDescriptor) Dump(out []byte) {
	out[0] = vd.Type
	copy(out[1:6], vdIdent[:])
	out[6] = vd.Version
}

// TypeString names the descriptor type.
func (vd VolumeDescriptor) TypeString() string {
	switch vd.Type {
	case TypeBootRecord:
		return "boot record"
	case TypePrimary:
		return "primary volume descriptor"
	case TypeEnhanced:
		return "enhanced volume descriptor"
	case TypePartition:
		return "partition descriptor"
	case TypeTerminator:
		return "volume descriptor set terminator"
	default:
		return fmt.Sprintf("unknown (%d)", vd.Type)
	}
}

// a-characters and d-characters are the two identifier alphabets ISO
// 9660 allows. d-characters are the stricter set used for volume and
// file identifiers.
const (
	aChars = "!\"%&'()*+,-./0123456789:;<=>? ABCDEFGHIJKLMNOPQRSTUVWXYZ_"
	dChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_ "
)

// InvalidCharError reports a byte outside the allowed alphabet.
type InvalidCharError struct {
	CodePoint byte
}

func (e InvalidCharError) Error() string {
	return fmt.Sprintf("invalid identifier character 0x%02x", e.CodePoint)
}

func parseStr(buf []byte, alphabet string) (string, error) {
	for _, b := range buf {
		if b == 0 {
			continue
		}
		if !strings.ContainsRune(alphabet, rune(b)) {
			return "", InvalidCharError{CodePoint: b}
		}
	}
	return strings.TrimRight(strings.Trim(string(buf), "\x00"), " "), nil
}

// ParseStrA decodes a space-padded a-character field.
func ParseStrA(buf []byte) (string, error) { return parseStr(buf, aChars) }

// ParseStrD decodes a space-padded d-character field.
func ParseStrD(buf []byte) (string, error) { return parseStr(buf, dChars) }

func dumpStr(out []byte, s string) {
	n := copy(out, s)
	for i := n; i < len(out); i++ {
		out[i] = ' '
	}
}
