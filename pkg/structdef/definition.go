// Package structdef holds the per-type, per-version field layout tables that
// drive record decoding.
//
// A definition is data: for each version range it lists the fields of a Go
// type with their byte offset, storage type and byte order. Definitions are
// built once with a Builder and cached process-wide by type.
package structdef

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/EchoTools/blamFileTools/pkg/address"
)

// ErrNoVersionMatch is returned when no layout covers the requested version.
var ErrNoVersionMatch = errors.New("no layout matches version")

const (
	// Unbounded is the open upper bound of a version range.
	Unbounded = math.MaxInt
	// NoVersion requests default or self-describing resolution.
	NoVersion = math.MinInt
)

// Kind is the storage type of a field in the file.
type Kind int

const (
	Auto Kind = iota // decided by the destination type
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	String // fixed length, trimmed at the first NUL; unbounded when Length is 0
	Bytes
)

var kindNames = [...]string{"auto", "int8", "uint8", "int16", "uint16", "int32", "uint32", "int64", "uint64", "float32", "float64", "string", "bytes"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Size returns the stored width of fixed-width kinds and 0 otherwise.
func (k Kind) Size() int64 {
	switch k {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

// Field describes one property of T within one layout.
type Field[T any] struct {
	Name    string
	Offset  int64
	Order   binary.ByteOrder // nil inherits the definition or reader order
	Storage Kind
	Length  int // string or byte length
	Access  func(*T) any
}

// Size returns the number of bytes the field occupies, or 0 when it depends
// on the destination type.
func (f *Field[T]) Size() int64 {
	switch f.Storage {
	case String, Bytes:
		return int64(f.Length)
	}
	return f.Storage.Size()
}

// Layout is the field set of T for versions in [Min, Max).
type Layout[T any] struct {
	Min, Max  int
	FixedSize int64 // 0 when the record has no fixed size
	Fields    []*Field[T]
}

// Contains reports whether version falls in [Min, Max).
func (l *Layout[T]) Contains(version int) bool {
	return version >= l.Min && version < l.Max
}

// Field returns the field with the given name, if the layout has it.
func (l *Layout[T]) Field(name string) (*Field[T], bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Overlaps returns pairs of field names whose byte ranges intersect.
// Fields of unknown size are ignored.
func (l *Layout[T]) Overlaps() [][2]string {
	var out [][2]string
	for i, a := range l.Fields {
		as := a.Size()
		if as == 0 {
			continue
		}
		for _, b := range l.Fields[i+1:] {
			bs := b.Size()
			if bs == 0 {
				continue
			}
			if a.Offset < b.Offset+bs && b.Offset < a.Offset+as {
				out = append(out, [2]string{a.Name, b.Name})
			}
		}
	}
	return out
}

// Definition is the full layout table of T.
type Definition[T any] struct {
	Name    string
	Order   binary.ByteOrder // nil inherits the reader order
	Layouts []*Layout[T]

	// Version is the version-defining field, or nil.
	Version *Field[T]

	// New constructs an instance, resolving ambient values from r. When nil
	// the zero value is used.
	New func(r Resolver) (*T, error)
}

// Resolve returns the first layout that covers version.
func (d *Definition[T]) Resolve(version int) (*Layout[T], error) {
	for _, l := range d.Layouts {
		if l.Contains(version) {
			return l, nil
		}
	}
	if version == NoVersion {
		return nil, fmt.Errorf("%w: %s requires a version", ErrNoVersionMatch, d.Name)
	}
	return nil, fmt.Errorf("%w: %s version %d", ErrNoVersionMatch, d.Name, version)
}

// HasVersionField reports whether the type describes its own version.
func (d *Definition[T]) HasVersionField() bool {
	return d.Version != nil
}

func (d *Definition[T]) finish() {
	for _, l := range d.Layouts {
		for _, f := range l.Fields {
			if f.Storage == Auto {
				f.Storage = inferKind(f.Access(new(T)))
			}
		}
		sort.SliceStable(l.Fields, func(i, j int) bool {
			return l.Fields[i].Offset < l.Fields[j].Offset
		})
	}
	if d.Version != nil && d.Version.Storage == Auto {
		d.Version.Storage = inferKind(d.Version.Access(new(T)))
	}
}

// inferKind maps a destination pointer to its natural storage kind.
func inferKind(dst any) Kind {
	switch dst.(type) {
	case *int8:
		return Int8
	case *uint8, *bool:
		return Uint8
	case *int16:
		return Int16
	case *uint16:
		return Uint16
	case *int32, *int, *address.Pointer:
		return Int32
	case *uint32, *address.DataPointer:
		return Uint32
	case *int64, *address.Pointer64:
		return Int64
	case *uint64:
		return Uint64
	case *float32:
		return Float32
	case *float64:
		return Float64
	case *string:
		return String
	case *[]byte:
		return Bytes
	}
	return Auto
}

// Resolver supplies ambient values to constructors by type.
type Resolver interface {
	Resolve(t reflect.Type) (any, bool)
}

// Resolve fetches an ambient value of type D from r.
func Resolve[D any](r Resolver) (D, bool) {
	var zero D
	if r == nil {
		return zero, false
	}
	v, ok := r.Resolve(reflect.TypeFor[D]())
	if !ok {
		return zero, false
	}
	d, ok := v.(D)
	return d, ok
}
