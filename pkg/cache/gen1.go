package cache

import (
	"fmt"
	"io"

	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/record"
	"github.com/EchoTools/blamFileTools/pkg/structdef"
)

type gen1Header struct {
	Head         int32
	Version      int32
	FileLength   int32
	IndexAddress int32
	BuildString  string

	size int64
}

func (h *gen1Header) Size() int64      { return h.size }
func (h *gen1Header) FileSize() int64  { return int64(h.FileLength) }
func (h *gen1Header) Build() string    { return h.BuildString }
func (h *gen1Header) Scenario() string { return "" }
func (h *gen1Header) StringTable() Table {
	return Table{}
}
func (h *gen1Header) FileTable() Table {
	return Table{}
}

// TagIndexPointer returns the file offset of the tag index.
func (h *gen1Header) TagIndexPointer() address.Pointer64 {
	return address.NewPointer64(int64(h.IndexAddress), address.NewFixed(0))
}

type gen1IndexHeader struct {
	Magic            int32
	TagCount         int32
	VertexDataCount  int32
	VertexDataOffset int32
	IndexDataCount   int32
	IndexDataOffset  int32
}

type gen1Item struct {
	ClassID         uint32
	Parent          uint32
	Parent2         uint32
	ID              uint16
	FileNamePointer address.Pointer
	MetaPointer     address.Pointer
}

func init() {
	structdef.Register(func(b *structdef.Builder[gen1Header]) {
		v := b.AddVersion(int(Halo1Xbox), int(Halo2Beta)).HasFixedSize(0x800)
		v.Property("Head", func(x *gen1Header) any { return &x.Head }).HasOffset(0)
		v.Property("Version", func(x *gen1Header) any { return &x.Version }).HasOffset(4)
		v.Property("FileLength", func(x *gen1Header) any { return &x.FileLength }).HasOffset(8)
		v.Property("IndexAddress", func(x *gen1Header) any { return &x.IndexAddress }).HasOffset(16)
		v.Property("BuildString", func(x *gen1Header) any { return &x.BuildString }).HasOffset(64).IsNullTerminated(buildStringLength)
	})

	structdef.Register(func(b *structdef.Builder[gen1IndexHeader]) {
		indexFields := func(v *structdef.VersionBuilder[gen1IndexHeader]) {
			v.Property("Magic", func(x *gen1IndexHeader) any { return &x.Magic }).HasOffset(0)
			v.Property("TagCount", func(x *gen1IndexHeader) any { return &x.TagCount }).HasOffset(12)
			v.Property("VertexDataCount", func(x *gen1IndexHeader) any { return &x.VertexDataCount }).HasOffset(16)
			v.Property("VertexDataOffset", func(x *gen1IndexHeader) any { return &x.VertexDataOffset }).HasOffset(20)
			v.Property("IndexDataCount", func(x *gen1IndexHeader) any { return &x.IndexDataCount }).HasOffset(24)
			v.Property("IndexDataOffset", func(x *gen1IndexHeader) any { return &x.IndexDataOffset }).HasOffset(28)
		}
		indexFields(b.AddVersion(int(Halo1Xbox), int(Halo1PC)).HasFixedSize(36))
		indexFields(b.AddVersion(int(Halo1PC), int(Halo2Beta)).HasFixedSize(40))
	})

	structdef.Register(func(b *structdef.Builder[gen1Item]) {
		v := b.AddDefaultVersion().HasFixedSize(32)
		v.Property("ClassID", func(x *gen1Item) any { return &x.ClassID }).HasOffset(0)
		v.Property("Parent", func(x *gen1Item) any { return &x.Parent }).HasOffset(4)
		v.Property("Parent2", func(x *gen1Item) any { return &x.Parent2 }).HasOffset(8)
		v.Property("ID", func(x *gen1Item) any { return &x.ID }).HasOffset(12)
		v.Property("FileNamePointer", func(x *gen1Item) any { return &x.FileNamePointer }).HasOffset(16)
		v.Property("MetaPointer", func(x *gen1Item) any { return &x.MetaPointer }).HasOffset(20)
	})
}

// loadGen1 bootstraps a Halo 1 cache. The tag index sits at a plain file
// offset; its header supplies the magic of the flat tag translator.
func loadGen1(f *File) error {
	ct := f.CacheType
	f.headerTranslator = address.NewFixed(0)

	hdr, err := record.Read[gen1Header](f.reader(f.headerTranslator), 0, int(ct))
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if hdr.size, err = record.FixedSize[gen1Header](int(ct)); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	f.header = hdr

	indexSize, err := record.FixedSize[gen1IndexHeader](int(ct))
	if err != nil {
		return fmt.Errorf("tag index header: %w", err)
	}
	idx, err := record.Read[gen1IndexHeader](f.reader(f.headerTranslator), int64(hdr.IndexAddress), int(ct))
	if err != nil {
		return fmt.Errorf("read tag index header: %w", err)
	}

	f.tagTranslator = address.NewFlat(func() (address.FlatInputs, error) {
		return address.FlatInputs{
			IndexMagic:      int64(idx.Magic),
			IndexAddress:    int64(hdr.IndexAddress),
			IndexHeaderSize: indexSize,
		}, nil
	})

	itemsAddr := int64(hdr.IndexAddress) + indexSize
	f.tags = newTagIndex(f, "", false, func() ([]TagClass, []*Tag, error) {
		return readGen1Tags(f, itemsAddr, int(idx.TagCount))
	})
	f.strings = newStringIndex(f, identityTranslator{}, func() ([]*string, error) {
		return nil, nil
	})
	return nil
}

func readGen1Tags(f *File, itemsAddr int64, count int) ([]TagClass, []*Tag, error) {
	r := f.reader(f.tagTranslator)
	items, err := record.ReadArray[gen1Item](r, itemsAddr, count, int(f.CacheType))
	if err != nil {
		return nil, nil, fmt.Errorf("read tag items: %w", err)
	}

	tags := make([]*Tag, len(items))
	for i, item := range items {
		t := &Tag{
			ID:          i,
			ClassCode:   classCode(item.ClassID),
			MetaPointer: address.NewPointer64(int64(item.MetaPointer.Value), f.tagTranslator),
			file:        f,
		}
		if !item.FileNamePointer.IsNull() {
			addr, err := item.FileNamePointer.Address()
			if err != nil {
				return nil, nil, fmt.Errorf("tag %d name: %w", i, err)
			}
			if _, err := r.Seek(addr, io.SeekStart); err != nil {
				return nil, nil, fmt.Errorf("tag %d name: %w", i, err)
			}
			if t.FullPath, err = r.ReadNullTerminatedString(0); err != nil {
				return nil, nil, fmt.Errorf("tag %d name: %w", i, err)
			}
		}
		tags[i] = t
	}
	return nil, tags, nil
}
