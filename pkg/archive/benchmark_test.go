package archive

import (
	"bytes"
	"testing"

	"github.com/DataDog/zstd"
)

// BenchmarkCompression compares levels on map-like data.
func BenchmarkCompression(b *testing.B) {
	data := make([]byte, 256*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}

	for _, level := range []int{zstd.BestSpeed, zstd.DefaultCompression} {
		b.Run(levelName(level), func(b *testing.B) {
			for b.Loop() {
				if _, err := zstd.CompressLevel(nil, data, level); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func levelName(level int) string {
	if level == zstd.BestSpeed {
		return "BestSpeed"
	}
	return "Default"
}

// BenchmarkHeader measures header encoding with checksums.
func BenchmarkHeader(b *testing.B) {
	header := NewHeader("11.1.498295.Omaha_Release")
	header.Length = 1 << 20
	header.CompressedLength = 1 << 19

	b.Run("EncodeTo", func(b *testing.B) {
		buf := make([]byte, HeaderSize)
		for b.Loop() {
			header.EncodeTo(buf)
		}
	})

	data, _ := header.MarshalBinary()
	b.Run("Unmarshal", func(b *testing.B) {
		for b.Loop() {
			var h Header
			if err := h.UnmarshalBinary(data); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkPackReadAll measures a full pack and unpack of 1MB.
func BenchmarkPackReadAll(b *testing.B) {
	data := make([]byte, 1<<20)
	for i := range data {
		data[i] = byte(i % 251)
	}

	b.Run("Pack", func(b *testing.B) {
		for b.Loop() {
			var buf seekableBuffer
			if _, err := Pack(&buf, bytes.NewReader(data), "bench"); err != nil {
				b.Fatal(err)
			}
		}
	})

	var buf seekableBuffer
	if _, err := Pack(&buf, bytes.NewReader(data), "bench"); err != nil {
		b.Fatal(err)
	}
	b.Run("ReadAll", func(b *testing.B) {
		for b.Loop() {
			if _, err := ReadAll(bytes.NewReader(buf.Bytes())); err != nil {
				b.Fatal(err)
			}
		}
	})
}
