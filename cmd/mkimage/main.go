// Command mkimage assembles a bootable disk image from finished
// artifacts: a stage-1 binary and, for optical media, the El Torito
// boot blob. Either artifact can be omitted to use the built-in stock
// loader and layout.
//
//	mkimage -media floppy -o boot.img
//	mkimage -media cd -stage1 stage1.bin -catalog catalog.bin -o boot.iso
//	mkimage -config build.yaml
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/bootforge/bootforge"
	"github.com/bootforge/bootforge/internal/media"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	mediaKind := fs.String("media", "floppy", "Image shape: floppy or cd")
	stage1Path := fs.String("stage1", "", "Stage-1 binary (default: built-in loader)")
	catalogPath := fs.String("catalog", "", "Boot blob for optical media (default: built-in)")
	output := fs.String("o", "", "Output image file")
	config := fs.String("config", "", "YAML build manifest (overrides the other flags)")
	quiet := fs.Bool("q", false, "Suppress the progress bar")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	m := &Manifest{
		Media:   *mediaKind,
		Output:  *output,
		Stage1:  *stage1Path,
		Catalog: *catalogPath,
	}
	if *config != "" {
		var err error
		m, err = LoadManifest(*config)
		if err != nil {
			slog.Error("Failed to load manifest", "path", *config, "error", err)
			os.Exit(1)
		}
	}

	if m.Output == "" {
		fs.Usage()
		os.Exit(1)
	}

	if err := build(m, *quiet); err != nil {
		slog.Error("Image build failed", "output", m.Output, "error", err)
		os.Exit(1)
	}
	slog.Info("Image built", "media", m.Media, "output", m.Output)
}

// loadArtifact reads an artifact file, or builds the fallback when no
// path was given. A named artifact that is missing fails the build
// outright.
func loadArtifact(path string, fallback func() ([]byte, error)) ([]byte, error) {
	if path == "" {
		return fallback()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func build(m *Manifest, quiet bool) error {
	var geo media.Geometry
	switch m.Media {
	case "floppy":
		geo = media.Floppy144
	case "cd":
		geo = media.BootCD
	default:
		return fmt.Errorf("unknown media %q (want floppy or cd)", m.Media)
	}

	var progress io.Writer
	if !quiet && term.IsTerminal(int(os.Stderr.Fd())) {
		bar := progressbar.DefaultBytes(geo.Size(), fmt.Sprintf("allocate %s", m.Output))
		defer bar.Close()
		progress = bar
	}

	switch m.Media {
	case "floppy":
		stage, err := loadArtifact(m.Stage1, func() ([]byte, error) {
			return bootforge.DefaultStage1(false)
		})
		if err != nil {
			return fmt.Errorf("stage-1 artifact: %w", err)
		}
		return bootforge.BuildFloppy(m.Output, stage, progress)

	default:
		stage, err := loadArtifact(m.Stage1, func() ([]byte, error) {
			return bootforge.DefaultStage1(true)
		})
		if err != nil {
			return fmt.Errorf("stage-1 artifact: %w", err)
		}
		blob, err := loadArtifact(m.Catalog, func() ([]byte, error) {
			return bootforge.DefaultBootBlob(), nil
		})
		if err != nil {
			return fmt.Errorf("boot blob artifact: %w", err)
		}
		return bootforge.BuildCD(m.Output, stage, blob, progress)
	}
}
