// Package archive reads and writes packed cache files: a cache map
// compressed with zstd behind a small header that records its build
// string and checksum.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Magic identifies a packed cache.
var Magic = [4]byte{'B', 'L', 'M', 'Z'}

const (
	// Version is the only header version written and accepted.
	Version = 1
	// HeaderSize is the fixed binary size of a header.
	HeaderSize = 64
	// BuildSize is the space reserved for the build string.
	BuildSize = 32
)

var (
	ErrInvalidMagic   = errors.New("invalid packed cache magic")
	ErrInvalidVersion = errors.New("unsupported packed cache version")
	ErrCorrupt        = errors.New("corrupt packed cache")
)

// Header describes a packed cache.
//
// Layout, little endian:
//   - 0-3:   Magic ("BLMZ")
//   - 4-7:   Version
//   - 8-15:  Length of the unpacked cache
//   - 16-23: CompressedLength of the zstd stream
//   - 24-27: DataCRC32 of the unpacked cache
//   - 28-59: Build, NUL padded
//   - 60-63: HeaderCRC32 of bytes 0-59
type Header struct {
	Magic            [4]byte
	Version          uint32
	Length           uint64
	CompressedLength uint64
	DataCRC32        uint32
	Build            [BuildSize]byte
	HeaderCRC32      uint32
}

// NewHeader returns a header for a cache of the given build.
func NewHeader(build string) *Header {
	h := &Header{Magic: Magic, Version: Version}
	copy(h.Build[:], build)
	return h
}

// BuildString returns the build without padding.
func (h *Header) BuildString() string {
	if i := bytes.IndexByte(h.Build[:], 0); i >= 0 {
		return string(h.Build[:i])
	}
	return string(h.Build[:])
}

// MarshalBinary encodes the header and fills HeaderCRC32.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the header into buf, which must hold HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint64(buf[8:16], h.Length)
	binary.LittleEndian.PutUint64(buf[16:24], h.CompressedLength)
	binary.LittleEndian.PutUint32(buf[24:28], h.DataCRC32)
	copy(buf[28:60], h.Build[:])
	h.HeaderCRC32 = crc32.ChecksumIEEE(buf[:60])
	binary.LittleEndian.PutUint32(buf[60:64], h.HeaderCRC32)
}

// UnmarshalBinary decodes and validates a header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: header needs %d bytes, got %d", ErrCorrupt, HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	if err := h.Validate(); err != nil {
		return err
	}
	if crc32.ChecksumIEEE(data[:60]) != h.HeaderCRC32 {
		return fmt.Errorf("%w: header checksum", ErrCorrupt)
	}
	return nil
}

// DecodeFrom reads the header from data without validating it.
func (h *Header) DecodeFrom(data []byte) {
	copy(h.Magic[:], data[0:4])
	h.Version = binary.LittleEndian.Uint32(data[4:8])
	h.Length = binary.LittleEndian.Uint64(data[8:16])
	h.CompressedLength = binary.LittleEndian.Uint64(data[16:24])
	h.DataCRC32 = binary.LittleEndian.Uint32(data[24:28])
	copy(h.Build[:], data[28:60])
	h.HeaderCRC32 = binary.LittleEndian.Uint32(data[60:64])
}

// Validate checks the magic, version and sizes.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: %q", ErrInvalidMagic, h.Magic[:])
	}
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	if h.Length == 0 {
		return fmt.Errorf("%w: empty cache", ErrCorrupt)
	}
	if h.CompressedLength == 0 {
		return fmt.Errorf("%w: empty stream", ErrCorrupt)
	}
	return nil
}

// IsPacked reports whether head starts with the packed cache magic.
func IsPacked(head []byte) bool {
	return len(head) >= len(Magic) && bytes.Equal(head[:len(Magic)], Magic[:])
}
