package iso9660

import "testing"

func TestBootBlobLayout(t *testing.T) {
	blob := BootBlob{CatalogSector: 18, ImageSector: 19, SectorCount: 4}.Dump()

	if len(blob) != 3*SectorSize {
		t.Fatalf("blob is %d bytes, want %d", len(blob), 3*SectorSize)
	}

	// Sector 0: a primary descriptor header.
	vd, err := ParseVolumeDescriptor(blob)
	if err != nil {
		t.Fatalf("first sector: %v", err)
	}
	if vd.Type != TypePrimary {
		t.Fatalf("first sector type %d, want primary", vd.Type)
	}

	// Sector 1: the boot record pointing at the catalog.
	br, err := ParseBootRecord(blob[SectorSize:])
	if err != nil {
		t.Fatalf("boot record: %v", err)
	}
	if br.CatalogSector != 18 {
		t.Fatalf("catalog sector %d, want 18", br.CatalogSector)
	}

	// Sector 2: the catalog itself.
	cat, err := ParseCatalog(blob[2*SectorSize:])
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if cat.Validation.PlatformID != PlatformX86 {
		t.Fatalf("validation platform %v", cat.Validation.PlatformID)
	}
	if cat.Initial.BootIndicator != Bootable {
		t.Fatal("initial entry not bootable")
	}
	if cat.Initial.ImageSector != 19 || cat.Initial.SectorCount != 4 {
		t.Fatalf("initial entry %+v", cat.Initial)
	}
	if cat.Header.Indicator != HeaderFinal || cat.Header.Entries != 1 {
		t.Fatalf("section header %+v", cat.Header)
	}
	if cat.Section.ImageSector != 19 || cat.Section.SectorCount != 4 {
		t.Fatalf("section entry %+v", cat.Section)
	}
}

func TestParseCatalogShort(t *testing.T) {
	if _, err := ParseCatalog(make([]byte, 64)); err == nil {
		t.Fatal("short catalog accepted")
	}
}

func TestParseCatalogBadValidation(t *testing.T) {
	blob := BootBlob{CatalogSector: 18, ImageSector: 19, SectorCount: 4}.Dump()
	cat := blob[2*SectorSize:]
	cat[30] = 0
	if _, err := ParseCatalog(cat); err == nil {
		t.Fatal("catalog with broken validation entry accepted")
	}
}
