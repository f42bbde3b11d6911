// Package sector implements the byte-exact framing contract for x86 boot
// sectors: a boot sector is exactly 512 bytes, the code must fit in the
// first 510, and the last two bytes carry the 0x55 0xAA signature the
// firmware checks before it will jump to the sector.
//
// Everything here runs at build time. A sector that fails these checks
// simply does not boot, so there is no runtime error path to design for.
package sector

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	// Size is the size of a boot sector as loaded by the firmware.
	Size = 512

	// CodeLimit is the number of bytes available for code and data before
	// the padding and signature begin.
	CodeLimit = 510

	// ExtendedSize is the size of an optical-media sector. The loader can
	// occupy a whole optical sector, with the signature still at offset
	// 510..511 of the loaded 512-byte window.
	ExtendedSize = 2048

	// LoadAddress is the physical address the firmware loads the boot
	// sector to before jumping to its first byte. It is a parameter of
	// machine setup elsewhere so tests can vary it; this is the
	// conventional value.
	LoadAddress = 0x7C00
)

// Signature is the two-byte suffix the firmware requires at offsets
// 510..511 of a boot sector.
var Signature = [2]byte{0x55, 0xAA}

var (
	ErrCodeTooLarge     = errors.New("boot code exceeds 510 bytes")
	ErrBadLength        = errors.New("boot sector is not exactly 512 bytes")
	ErrSignatureMissing = errors.New("boot signature 0x55 0xAA missing at offset 510")
)

// Frame pads code with zero bytes up to offset 510 and appends the boot
// signature, producing an exact 512-byte sector. It fails if the code
// does not fit in front of the signature.
func Frame(code []byte) ([]byte, error) {
	if len(code) > CodeLimit {
		return nil, fmt.Errorf("%w: %d bytes", ErrCodeTooLarge, len(code))
	}

	sec := make([]byte, Size)
	copy(sec, code)
	sec[CodeLimit] = Signature[0]
	sec[CodeLimit+1] = Signature[1]
	return sec, nil
}

// Extend zero-pads a framed 512-byte sector out to size bytes, for media
// whose sectors are larger than the loaded window (optical media). The
// tail bytes are reserved filler; nothing references them.
func Extend(sec []byte, size int) ([]byte, error) {
	if err := Validate(sec); err != nil {
		return nil, err
	}
	if size < Size {
		return nil, fmt.Errorf("extended size %d smaller than a boot sector", size)
	}

	out := make([]byte, size)
	copy(out, sec)
	return out, nil
}

// Validate checks the framing contract on an assembled sector: exact
// length and signature placement. Sectors longer than 512 bytes (already
// extended) are checked on their first 512-byte window.
func Validate(sec []byte) error {
	if len(sec) != Size && len(sec) != ExtendedSize {
		return fmt.Errorf("%w: got %d", ErrBadLength, len(sec))
	}
	if !bytes.Equal(sec[CodeLimit:Size], Signature[:]) {
		return ErrSignatureMissing
	}
	return nil
}

// IsFramed reports whether b already carries the signature at 510..511,
// meaning it can be placed on media as-is.
func IsFramed(b []byte) bool {
	return len(b) >= Size && bytes.Equal(b[CodeLimit:Size], Signature[:])
}
