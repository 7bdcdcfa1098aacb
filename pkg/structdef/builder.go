package structdef

import (
	"encoding/binary"
	"reflect"
	"sync"
)

// Builder declares the layouts of T.
type Builder[T any] struct {
	def *Definition[T]
}

// VersionBuilder declares the fields of one version range.
type VersionBuilder[T any] struct {
	layout *Layout[T]
}

// FieldBuilder configures one field.
type FieldBuilder[T any] struct {
	field *Field[T]
}

// AddVersion starts a layout for versions in [min, max).
func (b *Builder[T]) AddVersion(min, max int) *VersionBuilder[T] {
	l := &Layout[T]{Min: min, Max: max}
	b.def.Layouts = append(b.def.Layouts, l)
	return &VersionBuilder[T]{layout: l}
}

// AddVersionFrom starts a layout for versions from min onwards.
func (b *Builder[T]) AddVersionFrom(min int) *VersionBuilder[T] {
	return b.AddVersion(min, Unbounded)
}

// AddDefaultVersion starts a layout that matches every version.
func (b *Builder[T]) AddDefaultVersion() *VersionBuilder[T] {
	return b.AddVersion(NoVersion, Unbounded)
}

// HasByteOrder sets the default byte order of the type.
func (b *Builder[T]) HasByteOrder(order binary.ByteOrder) *Builder[T] {
	b.def.Order = order
	return b
}

// VersionProperty declares the version-defining field.
func (b *Builder[T]) VersionProperty(name string, access func(*T) any) *FieldBuilder[T] {
	f := &Field[T]{Name: name, Access: access}
	b.def.Version = f
	return &FieldBuilder[T]{field: f}
}

// ConstructedBy sets a constructor that receives the ambient values of the
// reader.
func (b *Builder[T]) ConstructedBy(fn func(r Resolver) (*T, error)) *Builder[T] {
	b.def.New = fn
	return b
}

// HasFixedSize sets the size of the record in this layout.
func (v *VersionBuilder[T]) HasFixedSize(n int64) *VersionBuilder[T] {
	v.layout.FixedSize = n
	return v
}

// Property adds a field to this layout.
func (v *VersionBuilder[T]) Property(name string, access func(*T) any) *FieldBuilder[T] {
	f := &Field[T]{Name: name, Access: access}
	v.layout.Fields = append(v.layout.Fields, f)
	return &FieldBuilder[T]{field: f}
}

// HasOffset sets the byte offset of the field relative to the record.
func (f *FieldBuilder[T]) HasOffset(offset int64) *FieldBuilder[T] {
	f.field.Offset = offset
	return f
}

// HasByteOrder overrides the byte order of the field.
func (f *FieldBuilder[T]) HasByteOrder(order binary.ByteOrder) *FieldBuilder[T] {
	f.field.Order = order
	return f
}

// StoreType overrides the stored width of the field.
func (f *FieldBuilder[T]) StoreType(k Kind) *FieldBuilder[T] {
	f.field.Storage = k
	return f
}

// IsNullTerminated marks a string field of at most length bytes.
// A length of 0 reads up to the terminator.
func (f *FieldBuilder[T]) IsNullTerminated(length int) *FieldBuilder[T] {
	f.field.Storage = String
	f.field.Length = length
	return f
}

// HasLength sets the byte length of string and byte fields.
func (f *FieldBuilder[T]) HasLength(n int) *FieldBuilder[T] {
	f.field.Length = n
	return f
}

// Build runs build and returns the resulting definition without registering
// it.
func Build[T any](build func(b *Builder[T])) *Definition[T] {
	def := &Definition[T]{Name: reflect.TypeFor[T]().String()}
	build(&Builder[T]{def: def})
	def.finish()
	return def
}

var registry sync.Map // reflect.Type -> *Definition[T]

// Register builds and caches the definition of T. Only the first
// registration of a type is kept; later calls return the cached one.
func Register[T any](build func(b *Builder[T])) *Definition[T] {
	key := reflect.TypeFor[T]()
	if d, ok := registry.Load(key); ok {
		return d.(*Definition[T])
	}
	d, _ := registry.LoadOrStore(key, Build(build))
	return d.(*Definition[T])
}

// Lookup returns the registered definition of T.
func Lookup[T any]() (*Definition[T], bool) {
	d, ok := registry.Load(reflect.TypeFor[T]())
	if !ok {
		return nil, false
	}
	return d.(*Definition[T]), true
}
