package cache

import (
	"fmt"

	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/record"
	"github.com/EchoTools/blamFileTools/pkg/structdef"
)

// gen3Header is the header of Halo 3, ODST and Halo Reach caches, on Xbox
// 360 and in MCC. Fields a build does not store stay zero.
type gen3Header struct {
	FileLength                  int64
	IndexPointer                address.Pointer64
	TagDataAddress              int32
	VirtualSize                 int32
	BuildString                 string
	StringCount                 int32
	StringTableSize             int32
	StringTableIndexPointer     address.Pointer
	StringTablePointer          address.Pointer
	StringNamespaceCount        int32
	StringNamespaceTablePointer address.Pointer
	ScenarioName                string
	FileCount                   int32
	FileTablePointer            address.Pointer
	FileTableSize               int32
	FileTableIndexPointer       address.Pointer
	VirtualBaseAddress          int64
	PartitionTable              PartitionTable
	SectionOffsetTable          SectionOffsetTable
	SectionTable                SectionTable
	DataTableAddress            int32
	LocaleModifier              int32
	DataTableSize               int32

	size int64
}

func (h *gen3Header) Size() int64                        { return h.size }
func (h *gen3Header) FileSize() int64                    { return h.FileLength }
func (h *gen3Header) Build() string                      { return h.BuildString }
func (h *gen3Header) Scenario() string                   { return h.ScenarioName }
func (h *gen3Header) TagIndexPointer() address.Pointer64 { return h.IndexPointer }

func (h *gen3Header) StringTable() Table {
	return Table{
		Count: h.StringCount,
		Size:  h.StringTableSize,
		Index: h.StringTableIndexPointer,
		Data:  h.StringTablePointer,
	}
}

func (h *gen3Header) FileTable() Table {
	return Table{
		Count: h.FileCount,
		Size:  h.FileTableSize,
		Index: h.FileTableIndexPointer,
		Data:  h.FileTablePointer,
	}
}

// gen3Layout is the offset table of one header version range. Offsets set
// to absent are not stored by the range.
type gen3Layout struct {
	min, max CacheType
	size     int64
	wide     bool // 64-bit file size, index pointer and base address

	narrowFileSize bool

	fileSize, index, tagData, virtualSize, build int64

	strings    [4]int64 // count, size, index, data
	namespaces [2]int64 // count, table
	scenario   int64
	files      [4]int64 // count, data, size, index

	baseAddress, partitions, sectionOffsets, sections int64
	dataTable                                         [3]int64 // address, locale modifier, size
}

var (
	noNamespaces = [2]int64{absent, absent}
	noDataTable  = [3]int64{absent, absent, absent}
)

var gen3Layouts = []gen3Layout{
	{
		min: Halo3Beta, max: Halo3Retail, size: 0x800,
		fileSize: 8, index: 16, tagData: 20, virtualSize: 24, build: 284,
		strings: [4]int64{352, 356, 360, 364}, namespaces: noNamespaces,
		scenario: 440, files: [4]int64{700, 704, 708, 712},
		baseAddress: 752, partitions: absent, sectionOffsets: absent, sections: absent,
		dataTable: noDataTable,
	},
	{
		min: Halo3Retail, max: MccHalo3, size: 0x3000,
		fileSize: 8, index: 16, tagData: 20, virtualSize: 24, build: 284,
		strings: [4]int64{344, 348, 352, 356}, namespaces: noNamespaces,
		scenario: 432, files: [4]int64{692, 696, 700, 704},
		baseAddress: 744, partitions: 752, sectionOffsets: 1132, sections: 1148,
		dataTable: noDataTable,
	},
	{
		min: Halo3ODST, max: MccHalo3ODST, size: 0x3000,
		fileSize: 8, index: 16, tagData: 20, virtualSize: 24, build: 284,
		strings: [4]int64{344, 348, 352, 356}, namespaces: noNamespaces,
		scenario: 432, files: [4]int64{692, 696, 700, 704},
		baseAddress: 744, partitions: 752, sectionOffsets: 1132, sections: 1148,
		dataTable: noDataTable,
	},
	{
		min: HaloReachBeta, max: HaloReachRetail, size: 0x4000,
		fileSize: 8, index: 16, tagData: absent, virtualSize: absent, build: 284,
		strings: [4]int64{344, 348, 352, 356}, namespaces: noNamespaces,
		scenario: 432, files: [4]int64{692, 696, 700, 704},
		baseAddress: 744, partitions: absent, sectionOffsets: absent, sections: absent,
		dataTable: [3]int64{1136, 1144, 1160},
	},
	{
		min: HaloReachRetail, max: MccHaloReach, size: 0xA000,
		fileSize: 8, index: 16, tagData: absent, virtualSize: absent, build: 284,
		strings: [4]int64{344, 348, 352, 356}, namespaces: noNamespaces,
		scenario: 432, files: [4]int64{692, 696, 700, 704},
		baseAddress: 744, partitions: absent, sectionOffsets: absent, sections: absent,
		dataTable: [3]int64{1136, 1144, 1160},
	},
	{
		min: MccHaloReach, max: MccHaloReachU3, size: 0xA000, wide: true,
		fileSize: 8, index: 16, tagData: 24, virtualSize: 28, build: 288,
		strings: [4]int64{348, 352, 356, 360}, namespaces: noNamespaces,
		scenario: 444, files: [4]int64{704, 708, 712, 716},
		baseAddress: 760, partitions: 776, sectionOffsets: 1204, sections: 1220,
		dataTable: noDataTable,
	},
	{
		min: MccHaloReachU3, max: MccHaloReachU8, size: 0xA000, wide: true,
		fileSize: 8, index: 16, tagData: 24, virtualSize: 28, build: 288,
		strings: [4]int64{336, 340, 344, 348}, namespaces: [2]int64{352, 356},
		scenario: 440, files: [4]int64{700, 704, 708, 712},
		baseAddress: 752, partitions: 768, sectionOffsets: 1196, sections: 1212,
		dataTable: noDataTable,
	},
	{
		// U8 stores a 32-bit file size and reorders the tables.
		min: MccHaloReachU8, max: MccHaloReachU10, size: 0xA000, wide: true,
		fileSize: 8, narrowFileSize: true, index: 744, tagData: 16, virtualSize: 20, build: 160,
		strings: [4]int64{48, 56, 60, 52}, namespaces: [2]int64{64, 68},
		scenario: 224, files: [4]int64{32, 36, 40, 44},
		baseAddress: 736, partitions: 768, sectionOffsets: 1196, sections: 1212,
		dataTable: noDataTable,
	},
	{
		min: MccHaloReachU10, max: cacheTypeCount, size: 0xA000, wide: true,
		fileSize: 8, narrowFileSize: true, index: 744, tagData: 16, virtualSize: 20, build: 160,
		strings: [4]int64{48, 56, 60, 52}, namespaces: [2]int64{64, 68},
		scenario: 224, files: [4]int64{32, 36, 40, 44},
		baseAddress: 736, partitions: 768, sectionOffsets: 1228, sections: 1244,
		dataTable: noDataTable,
	},
}

func init() {
	structdef.Register(func(b *structdef.Builder[gen3Header]) {
		for _, l := range gen3Layouts {
			registerGen3Layout(b, l)
		}
	})
	structdef.Register(func(b *structdef.Builder[gen3IndexHeader]) {
		v := b.AddVersion(int(Halo3Beta), int(MccHaloReach)).HasFixedSize(32)
		v.Property("ClassCount", func(x *gen3IndexHeader) any { return &x.ClassCount }).HasOffset(0)
		v.Property("ClassPointer", func(x *gen3IndexHeader) any { return &x.ClassPointer }).HasOffset(4).StoreType(structdef.Int32)
		v.Property("TagCount", func(x *gen3IndexHeader) any { return &x.TagCount }).HasOffset(8)
		v.Property("ItemPointer", func(x *gen3IndexHeader) any { return &x.ItemPointer }).HasOffset(12).StoreType(structdef.Int32)

		v = b.AddVersion(int(MccHaloReach), int(cacheTypeCount)).HasFixedSize(76)
		v.Property("ClassCount", func(x *gen3IndexHeader) any { return &x.ClassCount }).HasOffset(0)
		v.Property("ClassPointer", func(x *gen3IndexHeader) any { return &x.ClassPointer }).HasOffset(8)
		v.Property("TagCount", func(x *gen3IndexHeader) any { return &x.TagCount }).HasOffset(16)
		v.Property("ItemPointer", func(x *gen3IndexHeader) any { return &x.ItemPointer }).HasOffset(24)
	})
	structdef.Register(func(b *structdef.Builder[gen3Class]) {
		v := b.AddDefaultVersion().HasFixedSize(16)
		v.Property("ClassID", func(x *gen3Class) any { return &x.ClassID }).HasOffset(0)
		v.Property("Parent", func(x *gen3Class) any { return &x.Parent }).HasOffset(4)
		v.Property("Parent2", func(x *gen3Class) any { return &x.Parent2 }).HasOffset(8)
		v.Property("NameID", func(x *gen3Class) any { return &x.NameID }).HasOffset(12)
	})
	structdef.Register(func(b *structdef.Builder[gen3Item]) {
		v := b.AddDefaultVersion().HasFixedSize(8)
		v.Property("ClassIndex", func(x *gen3Item) any { return &x.ClassIndex }).HasOffset(0)
		v.Property("Salt", func(x *gen3Item) any { return &x.Salt }).HasOffset(2)
		v.Property("MetaPointer", func(x *gen3Item) any { return &x.MetaPointer }).HasOffset(4).StoreType(structdef.Int32)
	})
}

func registerGen3Layout(b *structdef.Builder[gen3Header], l gen3Layout) {
	v := b.AddVersion(int(l.min), int(l.max)).HasFixedSize(l.size)
	prop := func(name string, offset int64, access func(*gen3Header) any) *structdef.FieldBuilder[gen3Header] {
		if offset == absent {
			return nil
		}
		return v.Property(name, access).HasOffset(offset)
	}
	narrow := func(f *structdef.FieldBuilder[gen3Header]) {
		if f != nil && !l.wide {
			f.StoreType(structdef.Int32)
		}
	}

	fileSize := prop("FileLength", l.fileSize, func(x *gen3Header) any { return &x.FileLength })
	if l.narrowFileSize {
		fileSize.StoreType(structdef.Int32)
	}
	narrow(fileSize)
	narrow(prop("IndexPointer", l.index, func(x *gen3Header) any { return &x.IndexPointer }))
	prop("TagDataAddress", l.tagData, func(x *gen3Header) any { return &x.TagDataAddress })
	prop("VirtualSize", l.virtualSize, func(x *gen3Header) any { return &x.VirtualSize })
	prop("BuildString", l.build, func(x *gen3Header) any { return &x.BuildString }).IsNullTerminated(buildStringLength)

	prop("StringCount", l.strings[0], func(x *gen3Header) any { return &x.StringCount })
	prop("StringTableSize", l.strings[1], func(x *gen3Header) any { return &x.StringTableSize })
	prop("StringTableIndexPointer", l.strings[2], func(x *gen3Header) any { return &x.StringTableIndexPointer })
	prop("StringTablePointer", l.strings[3], func(x *gen3Header) any { return &x.StringTablePointer })
	prop("StringNamespaceCount", l.namespaces[0], func(x *gen3Header) any { return &x.StringNamespaceCount })
	prop("StringNamespaceTablePointer", l.namespaces[1], func(x *gen3Header) any { return &x.StringNamespaceTablePointer })

	prop("ScenarioName", l.scenario, func(x *gen3Header) any { return &x.ScenarioName }).IsNullTerminated(256)
	prop("FileCount", l.files[0], func(x *gen3Header) any { return &x.FileCount })
	prop("FileTablePointer", l.files[1], func(x *gen3Header) any { return &x.FileTablePointer })
	prop("FileTableSize", l.files[2], func(x *gen3Header) any { return &x.FileTableSize })
	prop("FileTableIndexPointer", l.files[3], func(x *gen3Header) any { return &x.FileTableIndexPointer })

	narrow(prop("VirtualBaseAddress", l.baseAddress, func(x *gen3Header) any { return &x.VirtualBaseAddress }))
	prop("PartitionTable", l.partitions, func(x *gen3Header) any { return &x.PartitionTable })
	prop("SectionOffsetTable", l.sectionOffsets, func(x *gen3Header) any { return &x.SectionOffsetTable })
	prop("SectionTable", l.sections, func(x *gen3Header) any { return &x.SectionTable })

	prop("DataTableAddress", l.dataTable[0], func(x *gen3Header) any { return &x.DataTableAddress })
	prop("LocaleModifier", l.dataTable[1], func(x *gen3Header) any { return &x.LocaleModifier })
	prop("DataTableSize", l.dataTable[2], func(x *gen3Header) any { return &x.DataTableSize })
}

type gen3IndexHeader struct {
	ClassCount   int32
	ClassPointer address.Pointer64
	TagCount     int32
	ItemPointer  address.Pointer64
}

type gen3Class struct {
	ClassID uint32
	Parent  uint32
	Parent2 uint32
	NameID  int32
}

type gen3Item struct {
	ClassIndex  int16
	Salt        uint16
	MetaPointer address.Pointer64
}

// gen3Sectioned reports whether the header carries section tables.
func gen3Sectioned(c CacheType) bool {
	switch {
	case c == Halo3Retail, c == Halo3ODST:
		return true
	case c >= MccHaloReach:
		return true
	}
	return false
}

// gen3HeaderRelativeSize is the header size used by header-relative
// translators.
func gen3HeaderRelativeSize(c CacheType) int64 {
	switch c {
	case Halo3Beta:
		return 0x800
	case HaloReachBeta:
		return 0x4000
	}
	return 0xA000
}

// loadGen3 bootstraps a Halo 3, ODST or Halo Reach cache.
func loadGen3(f *File) error {
	var h *gen3Header
	parsed := func() (*gen3Header, error) {
		if h == nil {
			return nil, fmt.Errorf("%w: header not read", address.ErrNotReady)
		}
		return h, nil
	}

	ct := f.CacheType
	if ct.IsMcc() {
		f.expander = address.MccExpander
	}

	switch {
	case gen3Sectioned(ct):
		sectionLocal := func(i int) *address.Offset {
			return address.NewSectionLocal(func() (address.SectionInputs, error) {
				h, err := parsed()
				if err != nil {
					return address.SectionInputs{}, err
				}
				return sectionInputs(h.VirtualBaseAddress, &h.SectionTable, &h.SectionOffsetTable, i), nil
			})
		}
		f.headerTranslator = sectionLocal(SectionDebug)
		f.localeTranslator = sectionLocal(SectionLocalization)
		f.tagTranslator = address.NewSection(func() (address.SectionInputs, error) {
			h, err := parsed()
			if err != nil {
				return address.SectionInputs{}, err
			}
			return sectionInputs(h.VirtualBaseAddress, &h.SectionTable, &h.SectionOffsetTable, SectionTag), nil
		})

	default:
		headerSize := gen3HeaderRelativeSize(ct)
		f.headerTranslator = address.NewHeaderRelative(func() (address.HeaderRelativeInputs, error) {
			h, err := parsed()
			if err != nil {
				return address.HeaderRelativeInputs{}, err
			}
			return address.HeaderRelativeInputs{
				StringTableIndexPointer: int64(h.StringTableIndexPointer.Value),
				HeaderSize:              headerSize,
			}, nil
		})
		f.tagTranslator = address.NewTagData(func() (address.TagDataInputs, error) {
			h, err := parsed()
			if err != nil {
				return address.TagDataInputs{}, err
			}
			if ct.Game() == HaloReach {
				return address.TagDataInputs{
					VirtualBaseAddress: h.VirtualBaseAddress,
					TagDataAddress:     int64(h.DataTableAddress),
					Modifier:           int64(h.DataTableSize),
				}, nil
			}
			return address.TagDataInputs{
				VirtualBaseAddress: h.VirtualBaseAddress,
				TagDataAddress:     int64(h.TagDataAddress),
			}, nil
		})
		if ct == Halo3Beta {
			f.localeTranslator = address.NewFixed(0)
		}
	}

	hdr, err := record.Read[gen3Header](f.reader(f.headerTranslator), 0, int(ct))
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	hdr.size, err = record.FixedSize[gen3Header](int(ct))
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	hdr.IndexPointer = hdr.IndexPointer.Rebind(f.tagTranslator)
	h = hdr
	f.header = hdr

	keys, encrypted := f.res.KeysFor(ct)

	f.tags = newTagIndex(f, hdr.ScenarioName, true, func() ([]TagClass, []*Tag, error) {
		return readGen3Tags(f, hdr, keys.FileNames, encrypted)
	})

	translator, err := gen3StringTranslator(f, hdr)
	if err != nil {
		return err
	}
	key := ""
	if encrypted {
		key = keys.Strings
	}
	f.strings = newStringIndex(f, translator, func() ([]*string, error) {
		return readStringTable(f, hdr.StringTable(), key)
	})

	if layout, ok := gen3Locales(ct); ok && f.localeTranslator != nil {
		f.localeLayout = &layout
	}
	return nil
}

func readGen3Tags(f *File, h *gen3Header, namesKey string, encrypted bool) ([]TagClass, []*Tag, error) {
	version := int(f.CacheType)
	r := f.reader(f.tagTranslator)

	indexAddr, err := h.IndexPointer.Address()
	if err != nil {
		return nil, nil, fmt.Errorf("tag index address: %w", err)
	}
	idx, err := record.Read[gen3IndexHeader](r, indexAddr, version)
	if err != nil {
		return nil, nil, fmt.Errorf("read tag index header: %w", err)
	}

	var classes []gen3Class
	if idx.ClassCount > 0 {
		addr, err := idx.ClassPointer.Address()
		if err != nil {
			return nil, nil, fmt.Errorf("tag class address: %w", err)
		}
		if classes, err = record.ReadArray[gen3Class](r, addr, int(idx.ClassCount), version); err != nil {
			return nil, nil, fmt.Errorf("read tag classes: %w", err)
		}
	}

	var items []gen3Item
	if idx.TagCount > 0 {
		addr, err := idx.ItemPointer.Address()
		if err != nil {
			return nil, nil, fmt.Errorf("tag item address: %w", err)
		}
		if items, err = record.ReadArray[gen3Item](r, addr, int(idx.TagCount), version); err != nil {
			return nil, nil, fmt.Errorf("read tag items: %w", err)
		}
	}

	key := ""
	if encrypted {
		key = namesKey
	}
	names := h.FileTable()
	names.Count = idx.TagCount
	paths, err := readStringTable(f, names, key)
	if err != nil {
		return nil, nil, fmt.Errorf("read tag names: %w", err)
	}

	outClasses := make([]TagClass, len(classes))
	for i, c := range classes {
		outClasses[i] = TagClass{
			Code:    classCode(c.ClassID),
			Parent:  classCode(c.Parent),
			Parent2: classCode(c.Parent2),
			NameID:  c.NameID,
		}
	}

	tags := make([]*Tag, len(items))
	for i, item := range items {
		if item.ClassIndex < 0 || int(item.ClassIndex) >= len(outClasses) {
			continue
		}
		t := &Tag{
			ID:          i,
			Class:       &outClasses[item.ClassIndex],
			ClassCode:   outClasses[item.ClassIndex].Code,
			Salt:        item.Salt,
			MetaPointer: item.MetaPointer.Rebind(f.tagTranslator),
			file:        f,
		}
		if i < len(paths) && paths[i] != nil {
			t.FullPath = *paths[i]
		}
		tags[i] = t
	}
	return outClasses, tags, nil
}
