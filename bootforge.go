// Package bootforge builds bootable x86 disk images around a 16-bit
// stage-1 loader, and can boot the result in a small real-mode machine
// model. The stage-1 binary, the El Torito boot blob and the image
// layouts are all produced from Go; nothing here shells out to external
// mastering tools.
package bootforge

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bootforge/bootforge/internal/fat"
	"github.com/bootforge/bootforge/internal/iso9660"
	"github.com/bootforge/bootforge/internal/media"
	"github.com/bootforge/bootforge/internal/rm16"
	"github.com/bootforge/bootforge/internal/sector"
	"github.com/bootforge/bootforge/internal/stage1"
)

// Optical image layout. The boot blob fills the first three descriptor
// sectors; the stage-1 unit is the last sector, which El Torito
// addresses as four 512-byte virtual sectors.
var (
	// CDBootBlobRegion holds the descriptor/catalog blob: sectors 16-18.
	CDBootBlobRegion = media.Region{Sector: 16, Count: 3, SectorSize: iso9660.SectorSize}

	// CDStageRegion holds the loader, addressed in 512-byte units:
	// sectors 76-79, the start of the 20th 2048-byte sector.
	CDStageRegion = media.Region{Sector: 19 * 4, Count: 4, SectorSize: sector.Size}

	// FloppyBootRegion is sector 0 of a floppy image.
	FloppyBootRegion = media.Region{Sector: 0, Count: 1, SectorSize: sector.Size}
)

// CDCatalogSector is the image sector holding the boot catalog.
const CDCatalogSector = 18

// CDStageSector is the image sector holding the stage-1 loader, in
// optical sectors.
const CDStageSector = 19

// DefaultMessages are the diagnostic strings the stock loader prints:
// the first from the primary boot sector, the second from the extended
// region reached by the jump.
var DefaultMessages = [][]byte{
	[]byte("hello world!\x0a\x0d"),
	[]byte("hello meme!"),
}

// DefaultStage1 builds the stock loader. With extended set it carries
// both messages in a 2048-byte optical unit; otherwise it is a plain
// 512-byte boot sector printing only the first message.
func DefaultStage1(extended bool) ([]byte, error) {
	p := &stage1.Program{Messages: DefaultMessages[:1]}
	if extended {
		p.Messages = DefaultMessages
	}
	return p.Build()
}

// DefaultBootBlob is the auxiliary artifact for the standard optical
// layout.
func DefaultBootBlob() []byte {
	return iso9660.BootBlob{
		CatalogSector: CDCatalogSector,
		ImageSector:   CDStageSector,
		SectorCount:   uint16(CDStageRegion.Count),
	}.Dump()
}

// prepareStage frames a raw stage-1 binary if needed and checks it.
func prepareStage(stage []byte) ([]byte, error) {
	if !sector.IsFramed(stage) {
		framed, err := sector.Frame(stage)
		if err != nil {
			return nil, err
		}
		return framed, nil
	}
	if err := sector.Validate(stage); err != nil {
		return nil, err
	}
	return stage, nil
}

// BuildFloppy assembles a FAT-formatted 1.44M floppy image with the
// stage-1 loader at sector 0. Unframed loaders are padded and signed
// first; the loader must fit one sector.
func BuildFloppy(path string, stage []byte, progress io.Writer) error {
	if len(stage) > sector.Size {
		return fmt.Errorf("floppy stage-1: %w: %d bytes", media.ErrRegionOverflow, len(stage))
	}
	framed, err := prepareStage(stage)
	if err != nil {
		return fmt.Errorf("floppy stage-1: %w", err)
	}

	img, err := media.Create(path, media.Floppy144, progress)
	if err != nil {
		return err
	}
	defer img.Close()

	if err := fat.Format(img, fat.Floppy144()); err != nil {
		return err
	}
	if err := img.WriteRegion(FloppyBootRegion, framed); err != nil {
		return fmt.Errorf("place stage-1: %w", err)
	}
	return img.Close()
}

// BuildCD assembles the minimal bootable optical image: boot blob at
// sectors 16-18, stage-1 at sector 19. The stage-1 binary may be a bare
// 512-byte sector (extended with zero fill) or a full 2048-byte unit.
func BuildCD(path string, stage, blob []byte, progress io.Writer) error {
	framed, err := prepareStage(stage)
	if err != nil {
		return fmt.Errorf("cd stage-1: %w", err)
	}
	if len(framed) < sector.ExtendedSize {
		framed, err = sector.Extend(framed, sector.ExtendedSize)
		if err != nil {
			return fmt.Errorf("cd stage-1: %w", err)
		}
	}

	img, err := media.Create(path, media.BootCD, progress)
	if err != nil {
		return err
	}
	defer img.Close()

	err = img.Compose([]media.Placement{
		{Name: "boot blob", Region: CDBootBlobRegion, Blob: blob},
		{Name: "stage-1", Region: CDStageRegion, Blob: framed},
	})
	if err != nil {
		return err
	}
	return img.Close()
}

// BootResult reports what a Boot run observed.
type BootResult struct {
	// Instructions is the number of instructions retired.
	Instructions uint64
}

// Boot loads the boot code from an image file the way firmware would
// (sector 0 of a floppy, or the El Torito catalog's image sectors of an
// optical disk), places it at the conventional load address and runs it
// until it halts. Teletype output goes to w.
func Boot(ctx context.Context, path string, w io.Writer) (*BootResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	code, err := ExtractBootCode(data)
	if err != nil {
		return nil, err
	}

	m := rm16.NewMachine()
	rm16.InstallVideoService(m, w)
	if err := m.Load(sector.LoadAddress, code); err != nil {
		return nil, err
	}

	// A stage-1 loader runs a few hundred instructions; the budget only
	// guards against a runaway image.
	if err := m.Run(ctx, 1<<20); err != nil {
		return nil, err
	}
	return &BootResult{Instructions: m.CPU.Instret}, nil
}

// ExtractBootCode pulls the bytes the firmware would load out of a raw
// image: the geometry is recognized from the file size.
func ExtractBootCode(image []byte) ([]byte, error) {
	switch int64(len(image)) {
	case media.Floppy144.Size():
		code := image[:sector.Size]
		if err := sector.Validate(code); err != nil {
			return nil, fmt.Errorf("floppy boot sector: %w", err)
		}
		return code, nil

	case media.BootCD.Size():
		br, err := iso9660.ParseBootRecord(image[(CDCatalogSector-1)*iso9660.SectorSize:])
		if err != nil {
			return nil, fmt.Errorf("boot record: %w", err)
		}
		cat, err := iso9660.ParseCatalog(image[br.CatalogSector*iso9660.SectorSize:])
		if err != nil {
			return nil, fmt.Errorf("boot catalog: %w", err)
		}
		if cat.Initial.BootIndicator != iso9660.Bootable {
			return nil, fmt.Errorf("initial catalog entry is not bootable")
		}

		off := int64(cat.Initial.ImageSector) * iso9660.SectorSize
		length := int64(cat.Initial.SectorCount) * sector.Size
		if off+length > int64(len(image)) {
			return nil, fmt.Errorf("catalog points past the image: sector %d + %d virtual sectors",
				cat.Initial.ImageSector, cat.Initial.SectorCount)
		}
		code := image[off : off+length]
		if err := sector.Validate(code[:sector.Size]); err != nil {
			return nil, fmt.Errorf("optical boot sector: %w", err)
		}
		return code, nil

	default:
		return nil, fmt.Errorf("unrecognized image size %d bytes", len(image))
	}
}
