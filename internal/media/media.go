// Package media assembles bootable disk images. An image is a
// zero-filled backing file of fixed geometry; finished artifacts are
// copied into it at absolute sector offsets. Writes never extend the
// file and never cross their designated region, so a failed build can
// not leave a silently truncated or overlapping image behind.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// Geometry fixes the sector size and total sector count of an image.
type Geometry struct {
	SectorSize int
	Sectors    int
}

// Size returns the total byte size of the image.
func (g Geometry) Size() int64 {
	return int64(g.SectorSize) * int64(g.Sectors)
}

// Standard geometries.
var (
	// Floppy144 is a raw 1.44M floppy: 2880 sectors of 512 bytes.
	Floppy144 = Geometry{SectorSize: 512, Sectors: 2880}

	// BootCD is the minimal bootable optical image: 20 sectors of 2048
	// bytes, leaving the 16-sector system area, three descriptor
	// sectors, and one sector of boot code.
	BootCD = Geometry{SectorSize: 2048, Sectors: 20}
)

// Region is a span of sectors in an image. The sector size is explicit
// so a 2048-byte-sector image can still address 512-byte units, the way
// El Torito counts virtual sectors.
type Region struct {
	Sector     int
	Count      int
	SectorSize int
}

// ByteOffset returns the region's start offset.
func (r Region) ByteOffset() int64 {
	return int64(r.Sector) * int64(r.SectorSize)
}

// ByteLen returns the region's length.
func (r Region) ByteLen() int64 {
	return int64(r.Count) * int64(r.SectorSize)
}

func (r Region) String() string {
	return fmt.Sprintf("%d sectors of %d bytes at sector %d", r.Count, r.SectorSize, r.Sector)
}

// overlaps reports whether two regions share any bytes.
func (r Region) overlaps(o Region) bool {
	return r.ByteOffset() < o.ByteOffset()+o.ByteLen() &&
		o.ByteOffset() < r.ByteOffset()+r.ByteLen()
}

var (
	ErrRegionOverflow = errors.New("artifact larger than its region")
	ErrImageBounds    = errors.New("region exceeds image bounds")
	ErrRegionOverlap  = errors.New("regions overlap")
)

// Image is an open backing file with fixed geometry.
type Image struct {
	f   *os.File
	geo Geometry
}

// Create allocates a zero-filled backing file for the geometry,
// replacing any existing file so reruns start from the same bytes. If
// progress is non-nil the zero fill is mirrored to it, which lets
// callers attach a progress bar for large media.
func Create(path string, geo Geometry, progress io.Writer) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	var w io.Writer = f
	if progress != nil {
		w = io.MultiWriter(f, progress)
	}

	zero := bytes.NewReader(make([]byte, geo.SectorSize))
	for i := 0; i < geo.Sectors; i++ {
		zero.Seek(0, io.SeekStart)
		if _, err := io.Copy(w, zero); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("zero-fill image: %w", err)
		}
	}

	return &Image{f: f, geo: geo}, nil
}

// Open opens an existing image and checks it matches the geometry.
func Open(path string, geo Geometry) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() != geo.Size() {
		f.Close()
		return nil, fmt.Errorf("image is %d bytes, geometry wants %d", st.Size(), geo.Size())
	}
	return &Image{f: f, geo: geo}, nil
}

// Geometry returns the image geometry.
func (img *Image) Geometry() Geometry { return img.geo }

// Close closes the backing file.
func (img *Image) Close() error { return img.f.Close() }

// checkRegion validates a region against the image extent.
func (img *Image) checkRegion(r Region) error {
	if r.Sector < 0 || r.Count <= 0 || r.SectorSize <= 0 {
		return fmt.Errorf("invalid region: %s", r)
	}
	if r.ByteOffset()+r.ByteLen() > img.geo.Size() {
		return fmt.Errorf("%w: %s in a %d-byte image", ErrImageBounds, r, img.geo.Size())
	}
	return nil
}

// WriteRegion copies blob into the region. The blob must fit the
// region; shorter blobs leave the pre-existing zero fill as implicit
// padding. The write is positioned and never changes the file size.
func (img *Image) WriteRegion(r Region, blob []byte) error {
	if err := img.checkRegion(r); err != nil {
		return err
	}
	if int64(len(blob)) > r.ByteLen() {
		return fmt.Errorf("%w: %d bytes into %s", ErrRegionOverflow, len(blob), r)
	}
	if _, err := img.f.WriteAt(blob, r.ByteOffset()); err != nil {
		return fmt.Errorf("write region %s: %w", r, err)
	}
	return nil
}

// ReadRegion reads the full region back.
func (img *Image) ReadRegion(r Region) ([]byte, error) {
	if err := img.checkRegion(r); err != nil {
		return nil, err
	}
	buf := make([]byte, r.ByteLen())
	if _, err := img.f.ReadAt(buf, r.ByteOffset()); err != nil {
		return nil, fmt.Errorf("read region %s: %w", r, err)
	}
	return buf, nil
}

// Placement pairs an artifact with its destination region.
type Placement struct {
	Name   string
	Region Region
	Blob   []byte
}

// Compose validates that all placements fit the image and do not
// overlap each other, then writes them. Nothing is written if
// validation fails.
func (img *Image) Compose(placements []Placement) error {
	for _, p := range placements {
		if err := img.checkRegion(p.Region); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		if int64(len(p.Blob)) > p.Region.ByteLen() {
			return fmt.Errorf("%s: %w: %d bytes into %s", p.Name, ErrRegionOverflow, len(p.Blob), p.Region)
		}
	}

	sorted := append([]Placement(nil), placements...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Region.ByteOffset() < sorted[j].Region.ByteOffset()
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Region.overlaps(sorted[i].Region) {
			return fmt.Errorf("%w: %s (%s) and %s (%s)", ErrRegionOverlap,
				sorted[i-1].Name, sorted[i-1].Region, sorted[i].Name, sorted[i].Region)
		}
	}

	for _, p := range placements {
		if err := img.WriteRegion(p.Region, p.Blob); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	return nil
}

// WriterAt exposes the backing file for collaborators that format
// structures in place (the FAT formatter).
func (img *Image) WriterAt() io.WriterAt { return img.f }
