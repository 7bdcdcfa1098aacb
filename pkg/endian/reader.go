// Package endian provides a byte-order aware random access reader used to
// decode cache file structures.
//
// A Reader never shares its cursor. Readers built over the same source are
// independent, so concurrent reads are safe as long as the source is an
// io.ReaderAt that tolerates concurrent calls (files, byte slices, mappings).
package endian

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrOutOfBounds is returned when a seek or read falls outside the source.
var ErrOutOfBounds = errors.New("position out of bounds")

// Reader reads primitive values from a random access source.
type Reader struct {
	src    io.ReaderAt
	size   int64
	origin int64 // absolute offset that position 0 maps to
	pos    int64 // absolute offset of the cursor
	order  binary.ByteOrder
	buf    [8]byte
}

// NewReader creates a reader over src, which holds size bytes.
func NewReader(src io.ReaderAt, size int64, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Reader{src: src, size: size, order: order}
}

// NewBytesReader creates a reader over an in-memory buffer.
func NewBytesReader(data []byte, order binary.ByteOrder) *Reader {
	return NewReader(bytes.NewReader(data), int64(len(data)), order)
}

// ByteOrder returns the default byte order of the reader.
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}

// Size returns the size of the underlying source.
func (r *Reader) Size() int64 {
	return r.size
}

// Origin returns the absolute offset that position 0 maps to.
func (r *Reader) Origin() int64 {
	return r.origin
}

// Position returns the cursor relative to the origin.
func (r *Reader) Position() int64 {
	return r.pos - r.origin
}

// Seek moves the cursor. SeekStart offsets are relative to the origin.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = r.origin + offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 || abs > r.size {
		return 0, fmt.Errorf("%w: seek to %d (size %d)", ErrOutOfBounds, abs, r.size)
	}
	r.pos = abs
	return abs - r.origin, nil
}

// Remaining returns the number of bytes between the cursor and the end of
// the source.
func (r *Reader) Remaining() int64 {
	return max(r.size-r.pos, 0)
}

// Clone returns an independent reader sharing the source and origin.
func (r *Reader) Clone() *Reader {
	c := *r
	return &c
}

// Virtual returns a reader whose position 0 is the current cursor.
func (r *Reader) Virtual() *Reader {
	return r.VirtualAt(r.Position())
}

// VirtualAt returns a reader whose position 0 maps to offset, relative to
// this reader's origin.
func (r *Reader) VirtualAt(offset int64) *Reader {
	c := *r
	c.origin = r.origin + offset
	c.pos = c.origin
	return &c
}

// WithByteOrder returns a copy of the reader using order by default.
func (r *Reader) WithByteOrder(order binary.ByteOrder) *Reader {
	c := *r
	c.order = order
	return &c
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= r.size {
		return 0, io.EOF
	}
	n, err := r.src.ReadAt(p, r.pos)
	r.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadFull fills p or fails with io.ErrUnexpectedEOF.
func (r *Reader) ReadFull(p []byte) error {
	if r.pos+int64(len(p)) > r.size {
		return fmt.Errorf("%w: read %d bytes at %d (size %d)", io.ErrUnexpectedEOF, len(p), r.pos, r.size)
	}
	n, err := r.src.ReadAt(p, r.pos)
	r.pos += int64(n)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// ReadBytes reads n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	if int64(n) > r.Remaining() {
		return nil, fmt.Errorf("%w: read %d bytes at %d (size %d)", io.ErrUnexpectedEOF, n, r.pos, r.size)
	}
	data := make([]byte, n)
	if err := r.ReadFull(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Reader) fill(n int) ([]byte, error) {
	b := r.buf[:n]
	if err := r.ReadFull(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadInt8 reads one signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadUint16 reads a 16-bit value in the default byte order.
func (r *Reader) ReadUint16() (uint16, error) {
	return r.ReadUint16Order(r.order)
}

// ReadUint16Order reads a 16-bit value in the given byte order.
func (r *Reader) ReadUint16Order(order binary.ByteOrder) (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

// ReadInt16 reads a signed 16-bit value.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads a 32-bit value in the default byte order.
func (r *Reader) ReadUint32() (uint32, error) {
	return r.ReadUint32Order(r.order)
}

// ReadUint32Order reads a 32-bit value in the given byte order.
func (r *Reader) ReadUint32Order(order binary.ByteOrder) (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// ReadInt32 reads a signed 32-bit value.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a 64-bit value in the default byte order.
func (r *Reader) ReadUint64() (uint64, error) {
	return r.ReadUint64Order(r.order)
}

// ReadUint64Order reads a 64-bit value in the given byte order.
func (r *Reader) ReadUint64Order(order binary.ByteOrder) (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

// ReadInt64 reads a signed 64-bit value.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads an IEEE 754 single.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE 754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadInt32s reads count signed 32-bit values.
func (r *Reader) ReadInt32s(count int) ([]int32, error) {
	if count < 0 {
		return nil, fmt.Errorf("negative count %d", count)
	}
	if int64(count) > r.Remaining()/4 {
		return nil, fmt.Errorf("%w: read %d values at %d (size %d)", io.ErrUnexpectedEOF, count, r.pos, r.size)
	}
	raw, err := r.ReadBytes(count * 4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := range out {
		out[i] = int32(r.order.Uint32(raw[i*4:]))
	}
	return out, nil
}

// ReadNullTerminatedString reads bytes up to a NUL terminator.
// The terminator is consumed. A maxLen of zero or less means unbounded.
func (r *Reader) ReadNullTerminatedString(maxLen int) (string, error) {
	var sb []byte
	for maxLen <= 0 || len(sb) < maxLen {
		c, err := r.ReadUint8()
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) && len(sb) > 0 {
				return string(sb), nil
			}
			return "", err
		}
		if c == 0 {
			break
		}
		sb = append(sb, c)
	}
	return string(sb), nil
}

// ReadFixedString reads exactly n bytes and trims at the first NUL.
func (r *Reader) ReadFixedString(n int) (string, error) {
	data, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data), nil
}
