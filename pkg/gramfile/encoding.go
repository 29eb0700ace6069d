package gramfile

import (
	"encoding/binary"
	"fmt"
)

var le = binary.LittleEndian

func appendHeader(dst []byte, h Header) []byte {
	dst = append(dst, h.Magic[:]...)
	dst = le.AppendUint16(dst, h.Major)
	dst = le.AppendUint16(dst, h.Minor)
	dst = le.AppendUint32(dst, h.HeaderSize)
	dst = le.AppendUint32(dst, h.SectionCount)
	dst = le.AppendUint64(dst, h.SectionDirOffset)
	dst = le.AppendUint64(dst, h.FileSize)
	return le.AppendUint64(dst, h.Flags)
}

func parseHeader(src []byte) (Header, error) {
	var h Header
	if len(src) < headerSize {
		return h, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptFile, len(src))
	}
	copy(h.Magic[:], src[0:4])
	h.Major = le.Uint16(src[4:])
	h.Minor = le.Uint16(src[6:])
	h.HeaderSize = le.Uint32(src[8:])
	h.SectionCount = le.Uint32(src[12:])
	h.SectionDirOffset = le.Uint64(src[16:])
	h.FileSize = le.Uint64(src[24:])
	h.Flags = le.Uint64(src[32:])
	return h, nil
}

func appendSection(dst []byte, s Section) []byte {
	dst = le.AppendUint32(dst, s.Type)
	dst = le.AppendUint32(dst, s.Version)
	dst = le.AppendUint64(dst, s.Offset)
	return le.AppendUint64(dst, s.Size)
}

func parseSection(src []byte) Section {
	return Section{
		Type:    le.Uint32(src[0:]),
		Version: le.Uint32(src[4:]),
		Offset:  le.Uint64(src[8:]),
		Size:    le.Uint64(src[16:]),
	}
}
