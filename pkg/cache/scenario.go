package cache

import (
	"github.com/EchoTools/blamFileTools/pkg/record"
	"github.com/EchoTools/blamFileTools/pkg/structdef"
)

// Scenario is the part of the scenario tag the reader needs: the list of
// structure BSPs.
type Scenario struct {
	StructureBsps record.Block64[StructureBspBlock]
}

// StructureBspBlock is one structure BSP entry of a scenario. Halo 1 and
// Halo 2 store BSPs outside the tag data; MetadataAddress and Magic locate
// them.
type StructureBspBlock struct {
	MetadataAddress int32
	Size            int32
	Magic           int32
	BspReference    TagReference
}

func init() {
	structdef.Register(func(b *structdef.Builder[Scenario]) {
		bsps := func(min, max CacheType, offset int64) {
			b.AddVersion(int(min), int(max)).
				Property("StructureBsps", func(x *Scenario) any { return &x.StructureBsps }).HasOffset(offset)
		}
		bsps(Halo1Xbox, Halo2Beta, 1444)
		bsps(Halo2Xbox, MccHalo2, 528)
		bsps(Halo3Beta, Halo3Retail, 12)
		bsps(Halo3Retail, MccHalo3, 20)
		bsps(Halo3ODST, MccHalo3ODST, 20)
		bsps(HaloReachBeta, HaloReachRetail, 68)
		bsps(HaloReachRetail, MccHaloReachU13, 76)
		bsps(MccHaloReachU13, cacheTypeCount, 80)
	})

	structdef.Register(func(b *structdef.Builder[StructureBspBlock]) {
		external := func(min, max CacheType, size int64) {
			v := b.AddVersion(int(min), int(max)).HasFixedSize(size)
			v.Property("MetadataAddress", func(x *StructureBspBlock) any { return &x.MetadataAddress }).HasOffset(0)
			v.Property("Size", func(x *StructureBspBlock) any { return &x.Size }).HasOffset(4)
			v.Property("Magic", func(x *StructureBspBlock) any { return &x.Magic }).HasOffset(8)
			v.Property("BspReference", func(x *StructureBspBlock) any { return &x.BspReference }).HasOffset(16)
		}
		external(Halo1Xbox, Halo2Beta, 32)
		external(Halo2Xbox, MccHalo2, 68)

		internal := func(min, max CacheType, size int64) {
			b.AddVersion(int(min), int(max)).HasFixedSize(size).
				Property("BspReference", func(x *StructureBspBlock) any { return &x.BspReference }).HasOffset(0)
		}
		internal(Halo3Beta, Halo3Retail, 104)
		internal(Halo3Retail, HaloReachBeta, 108)
		internal(HaloReachBeta, cacheTypeCount, 172)
	})
}
