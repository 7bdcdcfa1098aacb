package cache

import (
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/EchoTools/blamFileTools/pkg/endian"
)

const (
	// LittleHeader is the header magic "head" read as a little endian int.
	LittleHeader = 0x68656164
	// BigHeader is the header magic read from a big endian file.
	BigHeader = 0x64616568

	buildStringLength = 32
)

var buildPattern = regexp.MustCompile(`^[A-Za-z0-9\. _:]{10,32}$`)

// Detection is the result of sniffing a cache header.
type Detection struct {
	ByteOrder   binary.ByteOrder
	Version     int32
	BuildString string
	Metadata    Metadata
}

// CacheType returns the detected cache type, or Unknown.
func (d *Detection) CacheType() CacheType {
	return d.Metadata.CacheType
}

// Detect identifies the byte order, file version and build of a cache.
// A build missing from res yields a Detection with an Unknown cache type.
func Detect(src io.ReaderAt, size int64, res *Resources) (*Detection, error) {
	r := endian.NewReader(src, size, binary.LittleEndian)

	magic, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	switch magic {
	case LittleHeader:
	case BigHeader:
		r = r.WithByteOrder(binary.BigEndian)
	default:
		return nil, fmt.Errorf("%w: magic %#08x", ErrInvalidHeader, magic)
	}

	version, err := r.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrInvalidHeader, err)
	}

	addr, err := buildAddress(r, version)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(addr, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: build string: %v", ErrInvalidHeader, err)
	}
	build, err := r.ReadNullTerminatedString(buildStringLength)
	if err != nil {
		return nil, fmt.Errorf("%w: build string: %v", ErrInvalidHeader, err)
	}

	d := &Detection{
		ByteOrder:   r.ByteOrder(),
		Version:     version,
		BuildString: build,
		Metadata:    Metadata{CacheType: Unknown, Build: build},
	}
	if res != nil {
		if m, ok := res.Lookup(build); ok {
			d.Metadata = m
		}
	}
	return d, nil
}

func buildAddress(r *endian.Reader, version int32) (int64, error) {
	switch version {
	case 5, 6, 7, 609: // Halo 1 Xbox, PC, CE
		return 64, nil

	case 8: // Halo 2
		x, err := readInt32At(r, 36)
		if err != nil {
			return 0, err
		}
		switch x {
		case 0:
			return 288, nil
		case -1:
			return 300, nil
		}
		return 0, fmt.Errorf("%w: halo 2 platform marker %d", ErrInvalidHeader, x)

	case 13: // MCC
		pad, err := readInt32At(r, 64)
		if err != nil {
			return 0, err
		}
		if pad == 0 {
			return 288, nil
		}
		if s, err := readStringAt(r, 64); err == nil && buildPattern.MatchString(s) {
			return 64, nil
		}
		if s, err := readStringAt(r, 160); err == nil && isBuildDate(s) {
			return 160, nil
		}
		return 152, nil
	}

	if r.ByteOrder() == binary.LittleEndian {
		return 288, nil
	}
	return 284, nil
}

func readInt32At(r *endian.Reader, addr int64) (int32, error) {
	if _, err := r.Seek(addr, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	v, err := r.ReadInt32()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	return v, nil
}

func readStringAt(r *endian.Reader, addr int64) (string, error) {
	if _, err := r.Seek(addr, io.SeekStart); err != nil {
		return "", err
	}
	return r.ReadNullTerminatedString(buildStringLength)
}

// Build dates are formatted like "Sep 13 2021 09:49:52", day padded with a
// space.
func isBuildDate(s string) bool {
	_, err := time.Parse("Jan _2 2006 15:04:05", s)
	return err == nil
}

// errUnknownBuild wraps ErrUnsupportedCache with the offending build.
func errUnknownBuild(build string) error {
	return fmt.Errorf("%w: unknown build %q", ErrUnsupportedCache, build)
}
