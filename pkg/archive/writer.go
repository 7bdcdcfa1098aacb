package archive

import (
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/DataDog/zstd"
)

// DefaultCompressionLevel trades ratio for speed; cache maps are large.
const DefaultCompressionLevel = zstd.BestSpeed

// Writer packs a cache into dst.
type Writer struct {
	dst     io.WriteSeeker
	start   int64
	zWriter *zstd.Writer
	header  *Header
	crc     hash.Hash32
	level   int
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the zstd level.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// NewWriter writes a placeholder header to dst and returns a writer for the
// cache bytes. Close finalizes the header.
func NewWriter(dst io.WriteSeeker, build string, opts ...WriterOption) (*Writer, error) {
	start, err := dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	w := &Writer{
		dst:    dst,
		start:  start,
		level:  DefaultCompressionLevel,
		header: NewHeader(build),
		crc:    crc32.NewIEEE(),
	}
	for _, opt := range opts {
		opt(w)
	}

	var placeholder [HeaderSize]byte
	if _, err := dst.Write(placeholder[:]); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	w.zWriter = zstd.NewWriterLevel(dst, w.level)
	return w, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.zWriter.Write(p)
	w.crc.Write(p[:n])
	w.header.Length += uint64(n)
	return n, err
}

// Close flushes the stream and rewrites the header with the final sizes
// and checksum.
func (w *Writer) Close() error {
	if err := w.zWriter.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}

	end, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	w.header.CompressedLength = uint64(end - w.start - HeaderSize)
	w.header.DataCRC32 = w.crc.Sum32()

	if _, err := w.dst.Seek(w.start, io.SeekStart); err != nil {
		return fmt.Errorf("seek to header: %w", err)
	}
	buf, err := w.header.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if _, err := w.dst.Write(buf); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.dst.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	return nil
}

// Pack compresses the cache read from src into dst.
func Pack(dst io.WriteSeeker, src io.Reader, build string, opts ...WriterOption) (*Header, error) {
	w, err := NewWriter(dst, build, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(w, src); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return w.header, nil
}

// Unpack writes the cache stored in src to dst.
func Unpack(dst io.Writer, src io.Reader) (*Header, error) {
	r, err := NewReader(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return r.Header(), nil
}
