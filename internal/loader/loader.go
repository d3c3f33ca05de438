// Package loader reads program images from disk: raw binaries, CP/M .com
// files and Intel HEX.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format of a program image.
type Format int

const (
	FormatRaw Format = iota
	FormatCOM
	FormatHex
)

func (f Format) String() string {
	switch f {
	case FormatCOM:
		return "com"
	case FormatHex:
		return "hex"
	default:
		return "raw"
	}
}

// COMOrigin is where CP/M loads transient programs.
const COMOrigin = 0x0100

var (
	ErrChecksum = errors.New("hex record checksum mismatch")
	ErrRecord   = errors.New("malformed hex record")
)

// Segment is a contiguous run of bytes to place at Origin.
type Segment struct {
	Origin uint16
	Data   []byte
}

// Image is a loaded program.
type Image struct {
	Format   Format
	Segments []Segment
	// Entry is the start address. HasEntry is false for raw images that do
	// not carry one; callers then use their configured start PC.
	Entry    uint16
	HasEntry bool
}

// Size returns the number of bytes in all segments.
func (img *Image) Size() int {
	n := 0
	for _, s := range img.Segments {
		n += len(s.Data)
	}
	return n
}

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".com":
		return FormatCOM
	case ".hex", ".ihx":
		return FormatHex
	default:
		return FormatRaw
	}
}

// Load reads a file and parses it according to its extension. Raw images
// are placed at origin.
func Load(path string, origin uint16) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}
	img, err := Parse(data, DetectFormat(path), origin)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format, origin uint16) (*Image, error) {
	switch format {
	case FormatCOM:
		return &Image{
			Format:   FormatCOM,
			Segments: []Segment{{Origin: COMOrigin, Data: data}},
			Entry:    COMOrigin,
			HasEntry: true,
		}, nil
	case FormatHex:
		return ParseHex(data)
	default:
		return &Image{
			Format:   FormatRaw,
			Segments: []Segment{{Origin: origin, Data: data}},
			Entry:    origin,
		}, nil
	}
}
