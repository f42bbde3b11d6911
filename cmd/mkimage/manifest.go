package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML build description mkimage accepts instead of
// individual flags:
//
//	media: cd
//	output: boot.iso
//	stage1: build/stage1.bin
//	catalog: build/catalog.bin
type Manifest struct {
	// Media selects the image shape: "floppy" or "cd".
	Media string `yaml:"media"`
	// Output is the image file to produce.
	Output string `yaml:"output"`
	// Stage1 is the stage-1 binary. Empty means the built-in loader.
	Stage1 string `yaml:"stage1,omitempty"`
	// Catalog is the boot blob for optical media. Empty means the
	// built-in blob for the standard layout.
	Catalog string `yaml:"catalog,omitempty"`
}

// LoadManifest reads and validates a build manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if m.Media == "" {
		m.Media = "floppy"
	}
	if m.Output == "" {
		return nil, fmt.Errorf("manifest is missing output")
	}
	return &m, nil
}
