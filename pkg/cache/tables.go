package cache

import (
	"fmt"

	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/record"
)

// Section indices of sectioned caches.
const (
	SectionDebug = iota // strings and file names
	SectionResource
	SectionTag
	SectionLocalization
	sectionCount
)

// Section is one entry of the section table.
type Section struct {
	Address int32
	Size    int32
}

// SectionTable lists the four sections of a sectioned cache.
type SectionTable [sectionCount]Section

// DecodeRecord reads four (address, size) pairs.
func (t *SectionTable) DecodeRecord(r *record.Reader, _ int) error {
	for i := range t {
		addr, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		size, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		t[i] = Section{Address: addr, Size: size}
	}
	return nil
}

// SectionOffsetTable holds the file offset of each section.
type SectionOffsetTable [sectionCount]int32

// DecodeRecord reads four offsets.
func (t *SectionOffsetTable) DecodeRecord(r *record.Reader, _ int) error {
	for i := range t {
		v, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("section offset %d: %w", i, err)
		}
		t[i] = v
	}
	return nil
}

// Partition is one (address, size) entry of the partition table.
type Partition struct {
	Address int64
	Size    int64
}

const partitionCount = 6

// PartitionTable lists the virtual memory partitions of a gen3 cache. MCC
// builds store 64-bit entries.
type PartitionTable [partitionCount]Partition

// DecodeRecord reads the table using 32 or 64-bit entries depending on the
// cache type.
func (t *PartitionTable) DecodeRecord(r *record.Reader, version int) error {
	wide := CacheType(version).IsMcc()
	for i := range t {
		var addr, size int64
		if wide {
			a, err := r.ReadInt64()
			if err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			s, err := r.ReadInt64()
			if err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			addr, size = a, s
		} else {
			a, err := r.ReadInt32()
			if err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			s, err := r.ReadInt32()
			if err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			addr, size = int64(uint32(a)), int64(s)
		}
		t[i] = Partition{Address: addr, Size: size}
	}
	return nil
}

// sectionInputs returns translator inputs for section i.
func sectionInputs(vba int64, sections *SectionTable, offsets *SectionOffsetTable, i int) address.SectionInputs {
	return address.SectionInputs{
		VirtualBaseAddress: vba,
		SectionAddress:     int64(sections[i].Address),
		SectionOffset:      int64(offsets[i]),
	}
}
