package cache

import (
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/record"
)

type cellKey struct {
	id  int
	typ reflect.Type
}

// cell holds one parsed system tag. Failed parses leave it empty so the
// next caller retries.
type cell struct {
	mu    sync.Mutex
	done  bool
	value any
}

func (f *File) cell(k cellKey) *cell {
	f.cellsMu.Lock()
	defer f.cellsMu.Unlock()
	c, ok := f.cells[k]
	if !ok {
		c = &cell{}
		f.cells[k] = c
	}
	return c
}

// ReadMetadata decodes the metadata of t as a T. Results for system classes
// are parsed once per cache and shared; concurrent callers wait for the
// first parse. Other classes are parsed on every call.
func ReadMetadata[T any](t *Tag) (*T, error) {
	if t == nil || t.file == nil {
		return nil, fmt.Errorf("%w: tag has no cache", ErrNotFound)
	}
	if !IsSystemClass(t.ClassCode) {
		return readTag[T](t)
	}

	c := t.file.cell(cellKey{id: t.ID, typ: reflect.TypeFor[T]()})
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return c.value.(*T), nil
	}
	v, err := readTag[T](t)
	if err != nil {
		return nil, err
	}
	c.value, c.done = v, true
	return v, nil
}

// ReadRecord is ReadMetadata.
func ReadRecord[T any](t *Tag) (*T, error) {
	return ReadMetadata[T](t)
}

func readTag[T any](t *Tag) (*T, error) {
	f := t.file
	addr, translator, err := f.metadataLocation(t)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", t, err)
	}
	r := f.reader(translator)
	record.Provide(r, t)
	v, err := record.Read[T](r, addr, int(f.CacheType))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t, err)
	}
	return v, nil
}

// metadataLocation returns the address of the tag data of t and the
// translator of the pointers inside it.
func (f *File) metadataLocation(t *Tag) (int64, address.Translator, error) {
	if t.ClassCode == "sbsp" && f.CacheType.Generation() < Gen3 {
		return f.bspLocation(t)
	}
	addr, err := t.MetaPointer.Address()
	if err != nil {
		return 0, nil, err
	}
	return addr, f.tagTranslator, nil
}

// bspPointerOffset is the position of the BSP data pointer within the BSP
// header at MetadataAddress.
func bspPointerOffset(g Generation) int64 {
	if g == Gen2 {
		return 4
	}
	return 0
}

// bspLocation finds the scenario entry of a structure BSP stored outside
// the tag data. Its pointers are relative to the BSP block.
func (f *File) bspLocation(t *Tag) (int64, address.Translator, error) {
	scnr, err := f.GetTagByClass("scnr")
	if err != nil {
		return 0, nil, err
	}
	scenario, err := ReadMetadata[Scenario](scnr)
	if err != nil {
		return 0, nil, err
	}
	blocks, err := scenario.StructureBsps.Items()
	if err != nil {
		return 0, nil, fmt.Errorf("structure bsps: %w", err)
	}

	for _, b := range blocks {
		if b.BspReference.TagID != t.ID {
			continue
		}
		translator := address.NewBspLocal(func() (address.BspInputs, error) {
			return address.BspInputs{
				Magic:           int64(b.Magic),
				MetadataAddress: int64(b.MetadataAddress),
			}, nil
		})

		r := f.reader(translator)
		if _, err := r.Seek(int64(b.MetadataAddress)+bspPointerOffset(f.CacheType.Generation()), io.SeekStart); err != nil {
			return 0, nil, fmt.Errorf("bsp header: %w", err)
		}
		ptr, err := r.ReadInt32()
		if err != nil {
			return 0, nil, fmt.Errorf("bsp header: %w", err)
		}
		addr, err := address.NewPointer(ptr, translator).Address()
		if err != nil {
			return 0, nil, err
		}
		return addr, translator, nil
	}
	return 0, nil, fmt.Errorf("%w: no structure bsp block references tag %d", ErrNotFound, t.ID)
}
