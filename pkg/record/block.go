package record

import (
	"errors"
	"fmt"

	"github.com/EchoTools/blamFileTools/pkg/address"
)

// ErrDetached is returned when a block collection was not read from a file.
var ErrDetached = errors.New("block collection has no reader")

type nested[U any] struct {
	p *U
}

// Nest returns a field destination that decodes a nested U in place. The
// nested record uses the parent version unless U has a version field.
func Nest[U any](p *U) Decoder {
	return nested[U]{p: p}
}

func (n nested[U]) DecodeRecord(r *Reader, version int) error {
	v, err := Read[U](r, r.Position(), version)
	if err != nil {
		return err
	}
	*n.p = *v
	return nil
}

// Block is a (count, pointer) pair referencing count contiguous E records.
// Elements are read on demand by Items.
type Block[E any] struct {
	Count   int32
	Pointer address.Pointer

	reader  *Reader
	version int
}

// DecodeRecord reads the count and the pointer.
func (b *Block[E]) DecodeRecord(r *Reader, version int) error {
	count, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("block count: %w", err)
	}
	ptr, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("block pointer: %w", err)
	}
	b.Count = count
	b.Pointer = address.NewPointer(ptr, r.Translator())
	b.reader = r.Clone()
	b.version = version
	return nil
}

// Len returns the number of elements.
func (b *Block[E]) Len() int {
	return int(b.Count)
}

// Items reads every element of the collection.
func (b *Block[E]) Items() ([]E, error) {
	if b.Count <= 0 {
		return nil, nil
	}
	if b.reader == nil {
		return nil, ErrDetached
	}
	addr, err := b.Pointer.Address()
	if err != nil {
		return nil, fmt.Errorf("block address: %w", err)
	}
	return ReadArray[E](b.reader.Clone(), addr, int(b.Count), b.version)
}

// Block64 is a block collection whose pointer resolves to a 64-bit virtual
// address. The stored pointer is 32 bits and is widened with the ambient
// expander.
type Block64[E any] struct {
	Count   int32
	Pointer address.Pointer64

	reader  *Reader
	version int
}

// DecodeRecord reads the count and the expanded pointer.
func (b *Block64[E]) DecodeRecord(r *Reader, version int) error {
	count, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("block count: %w", err)
	}
	ptr, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("block pointer: %w", err)
	}
	b.Count = count
	b.Pointer = address.NewExpandedPointer64(ptr, r.Expander(), r.Translator())
	b.reader = r.Clone()
	b.version = version
	return nil
}

// Len returns the number of elements.
func (b *Block64[E]) Len() int {
	return int(b.Count)
}

// Items reads every element of the collection.
func (b *Block64[E]) Items() ([]E, error) {
	if b.Count <= 0 {
		return nil, nil
	}
	if b.reader == nil {
		return nil, ErrDetached
	}
	addr, err := b.Pointer.Address()
	if err != nil {
		return nil, fmt.Errorf("block address: %w", err)
	}
	return ReadArray[E](b.reader.Clone(), addr, int(b.Count), b.version)
}
