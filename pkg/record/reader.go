// Package record decodes typed records from cache files using the layout
// tables registered in package structdef.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/endian"
	"github.com/EchoTools/blamFileTools/pkg/structdef"
)

// ErrUnsupportedType is returned for types with no definition and no
// decoder.
var ErrUnsupportedType = errors.New("unsupported record type")

// NoVersion requests default or self-describing layout resolution.
const NoVersion = structdef.NoVersion

// Decoder is implemented by types that read themselves. The reader is
// positioned at the start of the value when DecodeRecord is called.
type Decoder interface {
	DecodeRecord(r *Reader, version int) error
}

// Reader is an endian.Reader plus a registry of ambient values (the cache
// file, the tag being read, the active translator) that constructors and
// decoders can resolve by type.
type Reader struct {
	*endian.Reader
	deps map[reflect.Type]any
}

// NewReader wraps r.
func NewReader(r *endian.Reader) *Reader {
	return &Reader{Reader: r, deps: make(map[reflect.Type]any)}
}

// Clone returns a reader with its own cursor and a copy of the ambient
// registry.
func (r *Reader) Clone() *Reader {
	deps := make(map[reflect.Type]any, len(r.deps))
	for k, v := range r.deps {
		deps[k] = v
	}
	return &Reader{Reader: r.Reader.Clone(), deps: deps}
}

func (r *Reader) withOrder(order binary.ByteOrder) *Reader {
	if order == nil || order == r.ByteOrder() {
		return r
	}
	return &Reader{Reader: r.Reader.WithByteOrder(order), deps: r.deps}
}

// Resolve implements structdef.Resolver.
func (r *Reader) Resolve(t reflect.Type) (any, bool) {
	v, ok := r.deps[t]
	return v, ok
}

// Provide registers v as the ambient value of type D.
func Provide[D any](r *Reader, v D) {
	r.deps[reflect.TypeFor[D]()] = v
}

// Ambient returns the ambient value of type D.
func Ambient[D any](r *Reader) (D, bool) {
	return structdef.Resolve[D](r)
}

// Translator returns the ambient address translator, or nil.
func (r *Reader) Translator() address.Translator {
	t, _ := Ambient[address.Translator](r)
	return t
}

// Expander returns the ambient pointer expander, or the identity.
func (r *Reader) Expander() address.Expander {
	e, _ := Ambient[address.Expander](r)
	return e
}

// Read decodes a T at addr. Types without a registered definition must
// implement Decoder on their pointer.
func Read[T any](r *Reader, addr int64, version int) (*T, error) {
	if def, ok := structdef.Lookup[T](); ok {
		return ReadWith(r, def, addr, version)
	}

	v := new(T)
	d, ok := any(v).(Decoder)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, reflect.TypeFor[T]())
	}
	if _, err := r.Seek(addr, io.SeekStart); err != nil {
		return nil, err
	}
	if err := d.DecodeRecord(r, version); err != nil {
		return nil, err
	}
	return v, nil
}

// ReadWith decodes a T at addr using def.
func ReadWith[T any](r *Reader, def *structdef.Definition[T], addr int64, version int) (*T, error) {
	var (
		v   *T
		err error
	)
	if def.New != nil {
		if v, err = def.New(r); err != nil {
			return nil, fmt.Errorf("construct %s: %w", def.Name, err)
		}
	} else {
		v = new(T)
	}

	order := def.Order
	if order == nil {
		order = r.ByteOrder()
	}

	if def.Version != nil {
		ver, err := readVersion(r, def.Version, addr, order, v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.Name, err)
		}
		version = ver
	}

	layout, err := def.Resolve(version)
	if err != nil {
		return nil, err
	}

	for _, f := range layout.Fields {
		if err := readField(r, f, addr, order, version, v); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, f.Name, err)
		}
	}

	if layout.FixedSize > 0 {
		if _, err := r.Seek(addr+layout.FixedSize, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%s: skip to end: %w", def.Name, err)
		}
	}
	return v, nil
}

// ReadArray decodes count contiguous values of T starting at addr.
func ReadArray[T any](r *Reader, addr int64, count int, version int) ([]T, error) {
	if count <= 0 {
		return nil, nil
	}
	stride, err := FixedSize[T](version)
	if err != nil {
		return nil, err
	}
	if avail := r.Size() - r.Origin() - addr; avail < 0 || int64(count) > avail/stride {
		return nil, fmt.Errorf("%w: %d elements of %d bytes at %d (size %d)", endian.ErrOutOfBounds, count, stride, addr, r.Size())
	}
	out := make([]T, count)
	for i := range count {
		v, err := Read[T](r, addr+int64(i)*stride, version)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = *v
	}
	return out, nil
}

// FixedSize returns the fixed record size of T for version.
func FixedSize[T any](version int) (int64, error) {
	def, ok := structdef.Lookup[T]()
	if !ok {
		return 0, fmt.Errorf("%w: %s has no definition", ErrUnsupportedType, reflect.TypeFor[T]())
	}
	l, err := def.Resolve(version)
	if err != nil {
		return 0, err
	}
	if l.FixedSize <= 0 {
		return 0, fmt.Errorf("%w: %s has no fixed size", ErrUnsupportedType, def.Name)
	}
	return l.FixedSize, nil
}

func readVersion[T any](r *Reader, f *structdef.Field[T], addr int64, order binary.ByteOrder, v *T) (int, error) {
	if _, err := r.Seek(addr+f.Offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("version field: %w", err)
	}
	if f.Order != nil {
		order = f.Order
	}
	n, err := readInt(r, f.Storage, order)
	if err != nil {
		return 0, fmt.Errorf("version field: %w", err)
	}
	if err := assignInt(f.Access(v), n); err != nil {
		return 0, fmt.Errorf("version field: %w", err)
	}
	return int(n), nil
}

func readField[T any](r *Reader, f *structdef.Field[T], base int64, order binary.ByteOrder, version int, v *T) error {
	if _, err := r.Seek(base+f.Offset, io.SeekStart); err != nil {
		return err
	}
	if f.Order != nil {
		order = f.Order
	}
	return decodeValue(r, f.Access(v), f.Storage, f.Length, order, version)
}

func decodeValue(r *Reader, dst any, kind structdef.Kind, length int, order binary.ByteOrder, version int) error {
	switch d := dst.(type) {
	case Decoder:
		return d.DecodeRecord(r.withOrder(order), version)

	case *string:
		var (
			s   string
			err error
		)
		if length > 0 {
			s, err = r.ReadFixedString(length)
		} else {
			s, err = r.ReadNullTerminatedString(0)
		}
		if err != nil {
			return err
		}
		*d = s
		return nil

	case *[]byte:
		b, err := r.ReadBytes(length)
		if err != nil {
			return err
		}
		*d = b
		return nil

	case *address.Pointer:
		n, err := readInt(r, kind, order)
		if err != nil {
			return err
		}
		*d = address.NewPointer(int32(n), r.Translator())
		return nil

	case *address.Pointer64:
		n, err := readInt(r, kind, order)
		if err != nil {
			return err
		}
		if kind.Size() < 8 {
			*d = address.NewExpandedPointer64(int32(n), r.Expander(), r.Translator())
		} else {
			*d = address.NewPointer64(n, r.Translator())
		}
		return nil

	case *float32:
		f, err := readFloat(r, kind, order)
		if err != nil {
			return err
		}
		*d = float32(f)
		return nil

	case *float64:
		f, err := readFloat(r, kind, order)
		if err != nil {
			return err
		}
		*d = f
		return nil
	}

	n, err := readInt(r, kind, order)
	if err != nil {
		return err
	}
	return assignInt(dst, n)
}

func assignInt(dst any, n int64) error {
	switch d := dst.(type) {
	case *int8:
		*d = int8(n)
	case *uint8:
		*d = uint8(n)
	case *int16:
		*d = int16(n)
	case *uint16:
		*d = uint16(n)
	case *int32:
		*d = int32(n)
	case *uint32:
		*d = uint32(n)
	case *int64:
		*d = n
	case *uint64:
		*d = uint64(n)
	case *int:
		*d = int(n)
	case *bool:
		*d = n != 0
	case *address.DataPointer:
		*d = address.DataPointer(uint32(n))
	default:
		return fmt.Errorf("%w: destination %T", ErrUnsupportedType, dst)
	}
	return nil
}

func readInt(r *Reader, kind structdef.Kind, order binary.ByteOrder) (int64, error) {
	switch kind {
	case structdef.Int8:
		v, err := r.ReadInt8()
		return int64(v), err
	case structdef.Uint8:
		v, err := r.ReadUint8()
		return int64(v), err
	case structdef.Int16:
		v, err := r.ReadUint16Order(order)
		return int64(int16(v)), err
	case structdef.Uint16:
		v, err := r.ReadUint16Order(order)
		return int64(v), err
	case structdef.Int32:
		v, err := r.ReadUint32Order(order)
		return int64(int32(v)), err
	case structdef.Uint32:
		v, err := r.ReadUint32Order(order)
		return int64(v), err
	case structdef.Int64, structdef.Uint64:
		v, err := r.ReadUint64Order(order)
		return int64(v), err
	}
	return 0, fmt.Errorf("%w: integer storage %v", ErrUnsupportedType, kind)
}

func readFloat(r *Reader, kind structdef.Kind, order binary.ByteOrder) (float64, error) {
	switch kind {
	case structdef.Float32:
		v, err := r.ReadUint32Order(order)
		return float64(math.Float32frombits(v)), err
	case structdef.Float64:
		v, err := r.ReadUint64Order(order)
		return math.Float64frombits(v), err
	}
	n, err := readInt(r, kind, order)
	return float64(n), err
}
