// Command bootcat emits the three-sector El Torito boot blob (primary
// descriptor header, boot record, boot catalog) to standard output, for
// embedding at sector 16 of an optical image:
//
//	bootcat > catalog.bin
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bootforge/bootforge/internal/iso9660"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	catalogSector := fs.Int("catalog-sector", 18, "Image sector holding the boot catalog")
	imageSector := fs.Int("image-sector", 19, "Image sector holding the boot image (2048-byte sectors)")
	sectorCount := fs.Int("sector-count", 4, "Virtual 512-byte sectors the firmware loads")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	blob := iso9660.BootBlob{
		CatalogSector: uint32(*catalogSector),
		ImageSector:   uint32(*imageSector),
		SectorCount:   uint16(*sectorCount),
	}.Dump()

	if _, err := os.Stdout.Write(blob); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write boot blob: %v\n", err)
		os.Exit(1)
	}
}
