package cache

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/EchoTools/blamFileTools/pkg/endian"
)

// StringIndex holds the string table of a cache and resolves string ids
// against it.
type StringIndex struct {
	file       *File
	translator StringIDTranslator
	load       func() ([]*string, error)

	mu          sync.Mutex
	initialized bool
	items       []*string
	slots       map[string]int
}

func newStringIndex(f *File, t StringIDTranslator, load func() ([]*string, error)) *StringIndex {
	if t == nil {
		t = identityTranslator{}
	}
	return &StringIndex{file: f, translator: t, load: load}
}

// ReadItems loads the table. It runs once; later calls return
// ErrAlreadyInitialized.
func (s *StringIndex) ReadItems() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true

	items, err := s.load()
	if err != nil {
		return fmt.Errorf("read string table: %w", err)
	}
	s.items = items
	s.slots = make(map[string]int, len(items))
	for i, v := range items {
		if v == nil {
			continue
		}
		if _, dup := s.slots[*v]; !dup {
			s.slots[*v] = i
		}
	}
	return nil
}

// Count returns the number of slots, including empty ones.
func (s *StringIndex) Count() int {
	return len(s.items)
}

// Translator returns the id translator of the index.
func (s *StringIndex) Translator() StringIDTranslator {
	return s.translator
}

// Slot returns the string at a table slot. The second result is false for
// empty slots and slots outside the table.
func (s *StringIndex) Slot(i int) (string, bool) {
	if i < 0 || i >= len(s.items) || s.items[i] == nil {
		return "", false
	}
	return *s.items[i], true
}

// Get resolves a string id.
func (s *StringIndex) Get(id int32) (string, bool) {
	return s.Slot(s.translator.Index(id))
}

// StringID returns the id of value, the inverse of Get.
func (s *StringIndex) StringID(value string) (int32, bool) {
	i, ok := s.slots[value]
	if !ok {
		return 0, false
	}
	return s.translator.StringID(i), true
}

// readStringTable reads table through the header translator: Count int32
// offsets into a blob of Size bytes, decrypted with key when key is set.
// Negative offsets yield nil entries.
func readStringTable(f *File, table Table, key string) ([]*string, error) {
	if table.IsEmpty() {
		return nil, nil
	}
	r := f.reader(table.Index.Translator).Reader

	indexAddr, err := table.Index.Address()
	if err != nil {
		return nil, fmt.Errorf("index address: %w", err)
	}
	if _, err := r.Seek(indexAddr, io.SeekStart); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	offsets, err := r.ReadInt32s(int(table.Count))
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	dataAddr, err := table.Data.Address()
	if err != nil {
		return nil, fmt.Errorf("data address: %w", err)
	}
	if _, err := r.Seek(dataAddr, io.SeekStart); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	var blob []byte
	if key != "" {
		blob, err = r.ReadAES(int(table.Size), key)
	} else {
		blob, err = r.ReadBytes(int(table.Size))
	}
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}

	return splitStrings(blob, offsets)
}

// splitStrings reads the null-terminated string at each offset of blob.
func splitStrings(blob []byte, offsets []int32) ([]*string, error) {
	out := make([]*string, len(offsets))
	for i, off := range offsets {
		if off < 0 {
			continue
		}
		if int(off) > len(blob) {
			return nil, fmt.Errorf("%w: string %d at %d (table size %d)", endian.ErrOutOfBounds, i, off, len(blob))
		}
		b := blob[off:]
		if n := bytes.IndexByte(b, 0); n >= 0 {
			b = b[:n]
		}
		s := string(b)
		out[i] = &s
	}
	return out, nil
}
