package cache

import (
	"fmt"

	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/record"
	"github.com/EchoTools/blamFileTools/pkg/structdef"
)

type gen2Header struct {
	FileLength              int32
	IndexAddress            int32
	IndexSize               int32
	BuildString             string
	StringCount             int32
	StringTableSize         int32
	StringTableIndexAddress address.Pointer
	StringTableAddress      address.Pointer
	ScenarioName            string
	FileCount               int32
	FileTableAddress        address.Pointer
	FileTableSize           int32
	FileTableIndexAddress   address.Pointer

	size int64
}

func (h *gen2Header) Size() int64      { return h.size }
func (h *gen2Header) FileSize() int64  { return int64(h.FileLength) }
func (h *gen2Header) Build() string    { return h.BuildString }
func (h *gen2Header) Scenario() string { return h.ScenarioName }

// TagIndexPointer returns the file offset of the tag index.
func (h *gen2Header) TagIndexPointer() address.Pointer64 {
	return address.NewPointer64(int64(h.IndexAddress), address.NewFixed(0))
}

func (h *gen2Header) StringTable() Table {
	return Table{Count: h.StringCount, Size: h.StringTableSize, Index: h.StringTableIndexAddress, Data: h.StringTableAddress}
}

func (h *gen2Header) FileTable() Table {
	return Table{Count: h.FileCount, Size: h.FileTableSize, Index: h.FileTableIndexAddress, Data: h.FileTableAddress}
}

type gen2IndexHeader struct {
	Magic          int32
	TagClassCount  int32
	TagDataAddress address.Pointer
	TagCount       int32
}

type gen2Item struct {
	ClassID     uint32
	ID          int16
	MetaPointer address.Pointer
	MetaSize    int32
}

type gen2Offsets struct {
	build    int64
	strings  [4]int64 // count, size, index, data
	scenario int64
	files    [4]int64 // count, data, size, index
}

func init() {
	structdef.Register(func(b *structdef.Builder[gen2Header]) {
		add := func(min, max CacheType, o gen2Offsets) {
			v := b.AddVersion(int(min), int(max)).HasFixedSize(0x800)
			v.Property("FileLength", func(x *gen2Header) any { return &x.FileLength }).HasOffset(8)
			v.Property("IndexAddress", func(x *gen2Header) any { return &x.IndexAddress }).HasOffset(16)
			v.Property("IndexSize", func(x *gen2Header) any { return &x.IndexSize }).HasOffset(20)
			v.Property("BuildString", func(x *gen2Header) any { return &x.BuildString }).HasOffset(o.build).IsNullTerminated(buildStringLength)
			v.Property("StringCount", func(x *gen2Header) any { return &x.StringCount }).HasOffset(o.strings[0])
			v.Property("StringTableSize", func(x *gen2Header) any { return &x.StringTableSize }).HasOffset(o.strings[1])
			v.Property("StringTableIndexAddress", func(x *gen2Header) any { return &x.StringTableIndexAddress }).HasOffset(o.strings[2])
			v.Property("StringTableAddress", func(x *gen2Header) any { return &x.StringTableAddress }).HasOffset(o.strings[3])
			v.Property("ScenarioName", func(x *gen2Header) any { return &x.ScenarioName }).HasOffset(o.scenario).IsNullTerminated(256)
			v.Property("FileCount", func(x *gen2Header) any { return &x.FileCount }).HasOffset(o.files[0])
			v.Property("FileTableAddress", func(x *gen2Header) any { return &x.FileTableAddress }).HasOffset(o.files[1])
			v.Property("FileTableSize", func(x *gen2Header) any { return &x.FileTableSize }).HasOffset(o.files[2])
			v.Property("FileTableIndexAddress", func(x *gen2Header) any { return &x.FileTableIndexAddress }).HasOffset(o.files[3])
		}
		add(Halo2Xbox, Halo2Vista, gen2Offsets{
			build:    288,
			strings:  [4]int64{356, 360, 364, 368},
			scenario: 444,
			files:    [4]int64{704, 708, 712, 716},
		})
		add(Halo2Vista, MccHalo2, gen2Offsets{
			build:    300,
			strings:  [4]int64{356, 360, 364, 368},
			scenario: 456,
			files:    [4]int64{716, 720, 724, 728},
		})
	})

	structdef.Register(func(b *structdef.Builder[gen2IndexHeader]) {
		v := b.AddDefaultVersion().HasFixedSize(32)
		v.Property("Magic", func(x *gen2IndexHeader) any { return &x.Magic }).HasOffset(0)
		v.Property("TagClassCount", func(x *gen2IndexHeader) any { return &x.TagClassCount }).HasOffset(4)
		v.Property("TagDataAddress", func(x *gen2IndexHeader) any { return &x.TagDataAddress }).HasOffset(8)
		v.Property("TagCount", func(x *gen2IndexHeader) any { return &x.TagCount }).HasOffset(24)
	})

	structdef.Register(func(b *structdef.Builder[gen2Item]) {
		v := b.AddDefaultVersion().HasFixedSize(16)
		v.Property("ClassID", func(x *gen2Item) any { return &x.ClassID }).HasOffset(0)
		v.Property("ID", func(x *gen2Item) any { return &x.ID }).HasOffset(4)
		v.Property("MetaPointer", func(x *gen2Item) any { return &x.MetaPointer }).HasOffset(8)
		v.Property("MetaSize", func(x *gen2Item) any { return &x.MetaSize }).HasOffset(12)
	})
}

// loadGen2 bootstraps a Halo 2 cache. Header tables hold plain file
// offsets; tag pointers use the flat translator sized by IndexSize.
func loadGen2(f *File) error {
	ct := f.CacheType
	f.headerTranslator = address.NewFixed(0)

	hdr, err := record.Read[gen2Header](f.reader(f.headerTranslator), 0, int(ct))
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if hdr.size, err = record.FixedSize[gen2Header](int(ct)); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	f.header = hdr

	var idx *gen2IndexHeader
	f.tagTranslator = address.NewFlat(func() (address.FlatInputs, error) {
		if idx == nil {
			return address.FlatInputs{}, fmt.Errorf("%w: tag index header not read", address.ErrNotReady)
		}
		return address.FlatInputs{
			IndexMagic:      int64(idx.Magic),
			IndexAddress:    int64(hdr.IndexAddress),
			IndexHeaderSize: int64(hdr.IndexSize),
		}, nil
	})

	idx, err = record.Read[gen2IndexHeader](f.reader(f.tagTranslator), int64(hdr.IndexAddress), int(ct))
	if err != nil {
		return fmt.Errorf("read tag index header: %w", err)
	}

	f.tags = newTagIndex(f, hdr.ScenarioName, false, func() ([]TagClass, []*Tag, error) {
		return readGen2Tags(f, hdr, idx)
	})
	f.strings = newStringIndex(f, identityTranslator{}, func() ([]*string, error) {
		return readStringTable(f, hdr.StringTable(), "")
	})
	return nil
}

func readGen2Tags(f *File, h *gen2Header, idx *gen2IndexHeader) ([]TagClass, []*Tag, error) {
	addr, err := idx.TagDataAddress.Address()
	if err != nil {
		return nil, nil, fmt.Errorf("tag item address: %w", err)
	}
	items, err := record.ReadArray[gen2Item](f.reader(f.tagTranslator), addr, int(idx.TagCount), int(f.CacheType))
	if err != nil {
		return nil, nil, fmt.Errorf("read tag items: %w", err)
	}

	names := h.FileTable()
	names.Count = idx.TagCount
	paths, err := readStringTable(f, names, "")
	if err != nil {
		return nil, nil, fmt.Errorf("read tag names: %w", err)
	}

	tags := make([]*Tag, len(items))
	for i, item := range items {
		if item.ID < 0 {
			continue
		}
		t := &Tag{
			ID:          i,
			ClassCode:   classCode(item.ClassID),
			MetaPointer: address.NewPointer64(int64(item.MetaPointer.Value), f.tagTranslator),
			MetaSize:    item.MetaSize,
			file:        f,
		}
		if i < len(paths) && paths[i] != nil {
			t.FullPath = *paths[i]
		}
		tags[i] = t
	}
	return nil, tags, nil
}
