package cache

import (
	"fmt"
	"io"
	"sort"

	"github.com/EchoTools/blamFileTools/pkg/record"
)

// StringIDTranslator maps string ids to string table slots and back.
type StringIDTranslator interface {
	Index(id int32) int
	StringID(index int) int32
}

type identityTranslator struct{}

func (identityTranslator) Index(id int32) int      { return int(id) }
func (identityTranslator) StringID(index int) int32 { return int32(index) }

// NamespaceTranslator decodes ids that pack a namespace above the slot
// index. Each namespace maps its ids from Min upwards to slots from Start.
type NamespaceTranslator struct {
	indexBits     uint
	namespaceBits uint
	byID          map[int]Namespace
	byStart       []Namespace
}

// NewNamespaceTranslator builds a translator for the given bit layout.
func NewNamespaceTranslator(indexBits, namespaceBits int, namespaces []Namespace) *NamespaceTranslator {
	t := &NamespaceTranslator{
		indexBits:     uint(indexBits),
		namespaceBits: uint(namespaceBits),
		byID:          make(map[int]Namespace, len(namespaces)),
	}
	for _, ns := range namespaces {
		t.byID[ns.ID] = ns
		t.byStart = append(t.byStart, ns)
	}
	sort.SliceStable(t.byStart, func(i, j int) bool { return t.byStart[i].Start < t.byStart[j].Start })
	return t
}

// Index returns the slot of id. Missing namespaces fall back to the
// nearest lower one.
func (t *NamespaceTranslator) Index(id int32) int {
	index := int(uint32(id) & (1<<t.indexBits - 1))
	if len(t.byID) == 0 {
		return index
	}
	ns := int(uint32(id) >> t.indexBits & (1<<t.namespaceBits - 1))
	for ns > 0 {
		if _, ok := t.byID[ns]; ok {
			break
		}
		ns--
	}
	n, ok := t.byID[ns]
	if !ok || index < n.Min {
		return index
	}
	return index - n.Min + n.Start
}

// StringID returns the id that Index maps to index.
func (t *NamespaceTranslator) StringID(index int) int32 {
	i := sort.Search(len(t.byStart), func(i int) bool { return t.byStart[i].Start > index }) - 1
	if i < 0 {
		return int32(index)
	}
	n := t.byStart[i]
	return int32(index - n.Start + (n.ID<<t.indexBits | n.Min))
}

// RangeTranslator remaps ids with ordered (threshold, delta) bands.
type RangeTranslator struct {
	bands []RangeBand
}

// NewRangeTranslator returns a translator over bands, checked in order.
func NewRangeTranslator(bands []RangeBand) *RangeTranslator {
	return &RangeTranslator{bands: bands}
}

// Index applies the first band whose threshold id exceeds.
func (t *RangeTranslator) Index(id int32) int {
	for _, b := range t.bands {
		if id > b.Above {
			return int(id + b.Delta)
		}
	}
	return int(id)
}

// StringID returns the first candidate id that maps back to index.
func (t *RangeTranslator) StringID(index int) int32 {
	for _, b := range t.bands {
		c := int32(index) - b.Delta
		if t.Index(c) == index {
			return c
		}
	}
	return int32(index)
}

// headerNamespaces builds the namespace list stored in MCC headers: one
// count per namespace, namespace 0 last in slot order.
func headerNamespaces(counts []int32, indexBits int) []Namespace {
	if len(counts) <= 1 {
		return nil
	}
	mask := int32(1)<<indexBits - 1
	start := int(counts[0] & mask)
	out := make([]Namespace, 0, len(counts))
	for i := 1; i < len(counts); i++ {
		out = append(out, Namespace{ID: i, Min: 0, Start: start})
		start += int(counts[i] & mask)
	}
	return append(out, Namespace{ID: 0, Min: int(counts[0] & mask), Start: start})
}

// collectionFor names the string collection of a cache type.
func collectionFor(c CacheType) string {
	switch c.Game() {
	case Halo3, Halo3ODSTGame:
		if !c.IsMcc() {
			return "halo3"
		}
	case HaloReach:
		if c.IsMcc() {
			return "mccHaloReach"
		}
	}
	return ""
}

func gen3StringTranslator(f *File, h *gen3Header) (StringIDTranslator, error) {
	ct := f.CacheType
	if ct == HaloReachBeta || ct == HaloReachRetail {
		bands, ok := f.res.Strings.Ranges[ct]
		if !ok {
			return identityTranslator{}, nil
		}
		return NewRangeTranslator(bands), nil
	}

	name := collectionFor(ct)
	coll, ok := f.res.Strings.Collections[name]
	if !ok {
		return identityTranslator{}, nil
	}

	if ct >= MccHaloReachU8 {
		if h.StringNamespaceCount <= 1 {
			return NewNamespaceTranslator(coll.IndexBits, coll.NamespaceBits, nil), nil
		}
		addr, err := h.StringNamespaceTablePointer.Address()
		if err != nil {
			return nil, fmt.Errorf("string namespace table: %w", err)
		}
		r := f.reader(f.headerTranslator)
		if _, err := r.Seek(addr, io.SeekStart); err != nil {
			return nil, fmt.Errorf("string namespace table: %w", err)
		}
		counts, err := r.ReadInt32s(int(h.StringNamespaceCount))
		if err != nil {
			return nil, fmt.Errorf("string namespace table: %w", err)
		}
		return NewNamespaceTranslator(coll.IndexBits, coll.NamespaceBits, headerNamespaces(counts, coll.IndexBits)), nil
	}

	return NewNamespaceTranslator(coll.IndexBits, coll.NamespaceBits, coll.Sets[f.Metadata.StringIDs]), nil
}

// StringID is a string id read from tag data.
type StringID struct {
	Value int32
	file  *File
}

// DecodeRecord reads the id and binds it to the ambient cache file.
func (s *StringID) DecodeRecord(r *record.Reader, _ int) error {
	v, err := r.ReadInt32()
	if err != nil {
		return err
	}
	s.Value = v
	s.file, _ = record.Ambient[*File](r)
	return nil
}

// String returns the referenced string, or "" when it cannot be resolved.
func (s StringID) String() string {
	if s.file == nil {
		return ""
	}
	v, _ := s.file.GetString(s.Value)
	return v
}

// Equal reports whether both ids come from the same cache and hold the same
// value.
func (s StringID) Equal(o StringID) bool {
	return s.Value == o.Value && cacheID(s.file) == cacheID(o.file)
}
