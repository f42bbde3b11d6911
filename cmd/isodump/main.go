// Command isodump walks the volume descriptor area of an optical image
// and prints what it finds: descriptor headers, the primary volume
// descriptor, the El Torito boot record and the boot catalog it points
// at.
//
//	isodump -image boot.iso
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/bootforge/bootforge/internal/iso9660"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	imagePath := fs.String("image", "", "Optical image to inspect")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if *imagePath == "" {
		fs.Usage()
		os.Exit(1)
	}

	if err := dump(*imagePath); err != nil {
		slog.Error("Inspection failed", "image", *imagePath, "error", err)
		os.Exit(1)
	}
}

func dump(path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(image) < iso9660.DataStart+iso9660.SectorSize {
		return fmt.Errorf("image is %d bytes, too short for a descriptor area", len(image))
	}

	// Walk descriptors from sector 16 until the set terminator, the end
	// of the image, or a sector that is not a descriptor at all.
	for sec := iso9660.DataStart / iso9660.SectorSize; (sec+1)*iso9660.SectorSize <= len(image); sec++ {
		buf := image[sec*iso9660.SectorSize:]

		vd, err := iso9660.ParseVolumeDescriptor(buf)
		if err != nil {
			fmt.Printf("sector %d: no descriptor (%v)\n", sec, err)
			break
		}
		fmt.Printf("sector %d: %s\n", sec, vd.TypeString())

		switch vd.Type {
		case iso9660.TypePrimary:
			if err := dumpPVD(buf); err != nil {
				fmt.Printf("  unreadable: %v\n", err)
			}
		case iso9660.TypeBootRecord:
			if err := dumpBoot(image, buf); err != nil {
				fmt.Printf("  unreadable: %v\n", err)
			}
		case iso9660.TypeTerminator:
			return nil
		}
	}
	return nil
}

func dumpPVD(buf []byte) error {
	pvd, err := iso9660.ParsePVD(buf)
	if err != nil {
		return err
	}

	fmt.Printf("  system identifier:  %q\n", pvd.SystemIdent)
	fmt.Printf("  volume identifier:  %q\n", pvd.VolumeIdent)
	fmt.Printf("  volume space size:  %d blocks\n", pvd.VolumeSpaceSize)
	fmt.Printf("  logical block size: %d\n", pvd.LogicalBlockSize)
	if pvd.PathTableSize != 0 {
		fmt.Printf("  path table:         %d bytes at %d (M at %d)\n",
			pvd.PathTableSize, pvd.PathTableLoc, pvd.PathTableLocM)
	}
	return nil
}

func dumpBoot(image, buf []byte) error {
	br, err := iso9660.ParseBootRecord(buf)
	if err != nil {
		return err
	}

	fmt.Printf("  boot system:  %q\n", br.BootSystemIdent)
	fmt.Printf("  boot catalog: sector %d\n", br.CatalogSector)

	off := int(br.CatalogSector) * iso9660.SectorSize
	if off+iso9660.SectorSize > len(image) {
		return fmt.Errorf("catalog sector %d is past the image", br.CatalogSector)
	}

	cat, err := iso9660.ParseCatalog(image[off:])
	if err != nil {
		return err
	}

	fmt.Printf("  validation:   platform %s, manufacturer %q\n",
		cat.Validation.PlatformID, cat.Validation.ManufacturerID)
	fmt.Printf("  initial:      %s, %d virtual sectors at sector %d\n",
		cat.Initial.BootMedia, cat.Initial.SectorCount, cat.Initial.ImageSector)
	if cat.Initial.BootIndicator != iso9660.Bootable {
		fmt.Printf("  initial:      not bootable\n")
	}
	fmt.Printf("  section:      %s, %d entries\n", cat.Header.PlatformID, cat.Header.Entries)
	fmt.Printf("  entry:        %s, %d virtual sectors at sector %d\n",
		cat.Section.BootMedia, cat.Section.SectorCount, cat.Section.ImageSector)
	return nil
}
