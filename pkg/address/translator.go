// Package address converts between the virtual pointers stored in cache
// files and absolute file offsets.
//
// Every strategy reduces to a single additive constant, the magic:
//
//	address = pointer - magic
//	pointer = address + magic
//
// The magic is derived once from header fields. Until those fields are
// populated the derivation fails with ErrNotReady instead of producing a
// wrong constant.
package address

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotReady is returned when the inputs of a translator are not yet
	// available, usually because the header has not been parsed.
	ErrNotReady = errors.New("address translator not ready")

	// ErrNoTranslator is returned when resolving a pointer that carries no
	// translator.
	ErrNoTranslator = errors.New("pointer has no translator")
)

// Translator converts between stored pointers and file addresses.
type Translator interface {
	Address(pointer int64) (int64, error)
	Pointer(address int64) (int64, error)
}

// Strategy identifies how a translator derives its magic.
type Strategy int

const (
	Fixed Strategy = iota
	Flat
	TagData
	Section
	SectionLocal
	BspLocal
	HeaderRelative
)

var strategyNames = [...]string{"fixed", "flat", "tag-data", "section", "section-local", "bsp-local", "header-relative"}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// Offset is a translator whose magic is derived lazily from an input
// function. It is safe for concurrent use.
type Offset struct {
	strategy Strategy
	derive   func() (int64, error)

	mu    sync.Mutex
	ready bool
	magic int64
}

func newOffset(s Strategy, derive func() (int64, error)) *Offset {
	return &Offset{strategy: s, derive: derive}
}

// Strategy returns the strategy the translator was built with.
func (t *Offset) Strategy() Strategy {
	return t.strategy
}

// Magic returns the translation constant, deriving it on first use.
// A failed derivation is not cached.
func (t *Offset) Magic() (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		return t.magic, nil
	}
	m, err := t.derive()
	if err != nil {
		return 0, fmt.Errorf("%s translator: %w", t.strategy, err)
	}
	t.magic, t.ready = m, true
	return m, nil
}

// Address converts a stored pointer into a file address.
func (t *Offset) Address(pointer int64) (int64, error) {
	m, err := t.Magic()
	if err != nil {
		return 0, err
	}
	return pointer - m, nil
}

// Pointer converts a file address into a stored pointer.
func (t *Offset) Pointer(address int64) (int64, error) {
	m, err := t.Magic()
	if err != nil {
		return 0, err
	}
	return address + m, nil
}

// NewFixed returns a translator with a constant magic.
func NewFixed(magic int64) *Offset {
	return newOffset(Fixed, func() (int64, error) { return magic, nil })
}

// FlatInputs feed the flat strategy used by the first two generations.
type FlatInputs struct {
	IndexMagic      int64 // magic field stored in the tag index header
	IndexAddress    int64 // file offset of the tag index
	IndexHeaderSize int64 // size of the tag index header (or the whole index)
}

// NewFlat derives magic = IndexMagic - (IndexAddress + IndexHeaderSize).
func NewFlat(inputs func() (FlatInputs, error)) *Offset {
	return newOffset(Flat, func() (int64, error) {
		in, err := inputs()
		if err != nil {
			return 0, err
		}
		return in.IndexMagic - (in.IndexAddress + in.IndexHeaderSize), nil
	})
}

// TagDataInputs feed the tag-data strategy.
type TagDataInputs struct {
	VirtualBaseAddress int64
	TagDataAddress     int64
	Modifier           int64
}

// NewTagData derives magic = VirtualBaseAddress - (TagDataAddress + Modifier).
func NewTagData(inputs func() (TagDataInputs, error)) *Offset {
	return newOffset(TagData, func() (int64, error) {
		in, err := inputs()
		if err != nil {
			return 0, err
		}
		return in.VirtualBaseAddress - (in.TagDataAddress + in.Modifier), nil
	})
}

// SectionInputs feed both section strategies.
type SectionInputs struct {
	VirtualBaseAddress int64 // unused by the section-local strategy
	SectionAddress     int64 // section table entry address
	SectionOffset      int64 // section offset table entry
}

// NewSection derives the tag translator of sectioned caches:
// magic = VirtualBaseAddress - (SectionAddress + SectionOffset), using the
// tag section (index 2).
func NewSection(inputs func() (SectionInputs, error)) *Offset {
	return newOffset(Section, func() (int64, error) {
		in, err := inputs()
		if err != nil {
			return 0, err
		}
		return in.VirtualBaseAddress - (in.SectionAddress + in.SectionOffset), nil
	})
}

// NewSectionLocal derives a translator for pointers relative to one section:
// address = pointer - SectionAddress + SectionOffset.
func NewSectionLocal(inputs func() (SectionInputs, error)) *Offset {
	return newOffset(SectionLocal, func() (int64, error) {
		in, err := inputs()
		if err != nil {
			return 0, err
		}
		return in.SectionAddress - in.SectionOffset, nil
	})
}

// BspInputs feed the structure BSP strategy.
type BspInputs struct {
	Magic           int64 // magic field of the scenario BSP block
	MetadataAddress int64 // file offset of the BSP metadata
}

// NewBspLocal derives magic = Magic - MetadataAddress.
func NewBspLocal(inputs func() (BspInputs, error)) *Offset {
	return newOffset(BspLocal, func() (int64, error) {
		in, err := inputs()
		if err != nil {
			return 0, err
		}
		return in.Magic - in.MetadataAddress, nil
	})
}

// HeaderRelativeInputs feed the header-relative strategy.
type HeaderRelativeInputs struct {
	StringTableIndexPointer int64
	HeaderSize              int64
}

// NewHeaderRelative derives magic = StringTableIndexPointer - HeaderSize.
func NewHeaderRelative(inputs func() (HeaderRelativeInputs, error)) *Offset {
	return newOffset(HeaderRelative, func() (int64, error) {
		in, err := inputs()
		if err != nil {
			return 0, err
		}
		return in.StringTableIndexPointer - in.HeaderSize, nil
	})
}
