// Package gramfile implements the gram bundle container.
//
// A bundle is a single memory-mappable file holding a trained gram table
// together with its training metadata and, optionally, a corpus encoded
// against it. It describes data only; the gram and idstream packages give the
// sections meaning.
package gramfile

import "errors"

// Format constants must never change.
const (
	// Magic is encoded as "GRM\0".
	Magic = "GRM\x00"

	// CurrentMajor changes on breaking format changes only.
	CurrentMajor uint16 = 1
	// CurrentMinor may add optional sections or fields.
	CurrentMinor uint16 = 0

	// FlagUnitsWide marks a units section written with 32-bit ids instead of 16.
	FlagUnitsWide uint64 = 1 << 0

	headerSize  = 40
	sectionSize = 24
	align       = 8
)

type SectionType uint32

const (
	// SectionTable holds 9-byte gram records.
	SectionTable SectionType = 0x0001
	// SectionInfo holds JSON training metadata.
	SectionInfo SectionType = 0x0002
	// SectionUnitIndex holds 8-byte span records.
	SectionUnitIndex SectionType = 0x0003
	// SectionUnits holds the encoded unit stream.
	SectionUnits SectionType = 0x0004
)

func (t SectionType) String() string {
	switch t {
	case SectionTable:
		return "table"
	case SectionInfo:
		return "info"
	case SectionUnitIndex:
		return "unit-index"
	case SectionUnits:
		return "units"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidMagic     = errors.New("gramfile: invalid magic")
	ErrUnsupportedMajor = errors.New("gramfile: unsupported major version")
	ErrCorruptFile      = errors.New("gramfile: corrupt file")
)

type Header struct {
	Magic            [4]byte
	Major            uint16
	Minor            uint16
	HeaderSize       uint32
	SectionCount     uint32
	SectionDirOffset uint64
	FileSize         uint64
	Flags            uint64
}

func (h Header) Valid() bool {
	return string(h.Magic[:]) == Magic && h.HeaderSize >= headerSize
}

func (h Header) Compatible() bool {
	return h.Major == CurrentMajor
}

type Section struct {
	Type    uint32
	Version uint32
	Offset  uint64
	Size    uint64
}

func (s Section) End() uint64 {
	return s.Offset + s.Size
}
