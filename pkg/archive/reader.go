package archive

import (
	"bytes"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/DataDog/zstd"
)

// maxPrealloc caps the buffer reserved from an unverified header.
const maxPrealloc = 64 << 20

// Reader decompresses the cache stored in a packed file.
type Reader struct {
	header  Header
	zReader io.ReadCloser
	crc     hash.Hash32
	read    uint64
}

// NewReader reads and validates the header at the current position of r.
func NewReader(r io.Reader) (*Reader, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	reader := &Reader{crc: crc32.NewIEEE()}
	if err := reader.header.UnmarshalBinary(buf[:]); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	reader.zReader = zstd.NewReader(io.LimitReader(r, int64(reader.header.CompressedLength)))
	return reader, nil
}

// Header returns the packed cache header.
func (r *Reader) Header() *Header {
	return &r.header
}

// Read reads unpacked cache bytes. At the end of the stream it checks
// the length and checksum recorded in the header.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.zReader.Read(p)
	r.crc.Write(p[:n])
	r.read += uint64(n)
	if r.read > r.header.Length {
		return n, fmt.Errorf("%w: unpacked more than %d bytes", ErrCorrupt, r.header.Length)
	}
	if err == io.EOF {
		if verr := r.verify(); verr != nil {
			return n, verr
		}
	}
	return n, err
}

func (r *Reader) verify() error {
	if r.read != r.header.Length {
		return fmt.Errorf("%w: unpacked %d bytes, header says %d", ErrCorrupt, r.read, r.header.Length)
	}
	if r.crc.Sum32() != r.header.DataCRC32 {
		return fmt.Errorf("%w: data checksum", ErrCorrupt)
	}
	return nil
}

// Close releases the decompressor.
func (r *Reader) Close() error {
	return r.zReader.Close()
}

// ReadAll unpacks a whole packed cache into memory.
func ReadAll(r io.Reader) ([]byte, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if reader.header.Length > uint64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: length %d", ErrCorrupt, reader.header.Length)
	}
	// Grow with the data actually unpacked; the header length is only a
	// hint until the stream has been checked.
	var buf bytes.Buffer
	buf.Grow(int(min(reader.header.Length, maxPrealloc)))
	if _, err := io.CopyN(&buf, reader, int64(reader.header.Length)); err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	// Drain so the reader sees EOF and checks length and checksum.
	var tail [1]byte
	n, err := reader.Read(tail[:])
	if n > 0 {
		return nil, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return buf.Bytes(), nil
}
