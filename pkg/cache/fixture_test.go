package cache

import (
	"bytes"
	"encoding/binary"
	"testing"
)

const (
	fixtureBuild    = "11855.07.08.20.2317.halo3_ship"
	fixtureScenario = `levels\solo\010_jungle\010_jungle`
	fixtureSize     = 0x4000

	fixtureIndex      = 0x3000
	fixtureClasses    = 0x3100
	fixtureItems      = 0x3200
	fixtureStrIndex   = 0x3400
	fixtureStrData    = 0x3440
	fixtureNameIndex  = 0x3500
	fixtureNameData   = 0x3600
	fixtureMeta       = 0x3800 // tag i has metadata at fixtureMeta + i*0x40
	fixtureBspEntries = 0x3E00
)

// fixtureStrings are the string ids of the fixture, slot 2 is unused.
var fixtureStrings = []string{"biped", "scenario", "", "globals"}

// fixtureTag describes one index entry. class is an index into
// fixtureClassCodes or -1 for an empty slot.
type fixtureTag struct {
	class int16
	path  string
}

var fixtureClassCodes = []struct {
	code   string
	nameID int32
}{
	{"scnr", 1},
	{"bipd", 0},
	{"matg", 3},
}

func defaultFixtureTags() []fixtureTag {
	return []fixtureTag{
		{class: 1, path: `objects\characters\masterchief\masterchief`},
		{class: -1},
		{class: 0, path: fixtureScenario},
	}
}

// image is a big endian byte buffer with positioned writes.
type image []byte

func (b image) u16(off int, v uint16) { binary.BigEndian.PutUint16(b[off:], v) }
func (b image) u32(off int, v uint32) { binary.BigEndian.PutUint32(b[off:], v) }
func (b image) i32(off int, v int32)  { b.u32(off, uint32(v)) }
func (b image) str(off int, s string) { copy(b[off:], s) }

func classValue(code string) uint32 {
	return binary.BigEndian.Uint32([]byte(code))
}

// buildHalo3 returns a minimal Xbox 360 Halo 3 retail cache. Every section
// table is zero so every pointer is a plain file offset.
func buildHalo3(t *testing.T, tags []fixtureTag) []byte {
	t.Helper()
	b := make(image, fixtureSize)

	b.str(0, "head")
	b.i32(4, 11)
	b.i32(8, fixtureSize)
	b.i32(16, fixtureIndex)
	b.str(284, fixtureBuild)
	b.str(432, fixtureScenario)

	strOffsets, strBlob := stringBlob(fixtureStrings, map[int]bool{2: true})
	b.i32(344, int32(len(strOffsets)))
	b.i32(348, int32(len(strBlob)))
	b.i32(352, fixtureStrIndex)
	b.i32(356, fixtureStrData)
	for i, off := range strOffsets {
		b.i32(fixtureStrIndex+4*i, off)
	}
	copy(b[fixtureStrData:], strBlob)

	paths := make([]string, len(tags))
	empty := make(map[int]bool)
	for i, tag := range tags {
		paths[i] = tag.path
		if tag.class < 0 {
			empty[i] = true
		}
	}
	nameOffsets, nameBlob := stringBlob(paths, empty)
	b.i32(692, int32(len(tags)))
	b.i32(696, fixtureNameData)
	b.i32(700, int32(len(nameBlob)))
	b.i32(704, fixtureNameIndex)
	for i, off := range nameOffsets {
		b.i32(fixtureNameIndex+4*i, off)
	}
	copy(b[fixtureNameData:], nameBlob)

	b.i32(fixtureIndex, int32(len(fixtureClassCodes)))
	b.i32(fixtureIndex+4, fixtureClasses)
	b.i32(fixtureIndex+8, int32(len(tags)))
	b.i32(fixtureIndex+12, fixtureItems)
	for i, c := range fixtureClassCodes {
		off := fixtureClasses + 16*i
		b.u32(off, classValue(c.code))
		b.u32(off+4, 0xFFFFFFFF)
		b.u32(off+8, 0xFFFFFFFF)
		b.i32(off+12, c.nameID)
	}
	for i, tag := range tags {
		off := fixtureItems + 8*i
		b.u16(off, uint16(tag.class))
		if tag.class < 0 {
			continue
		}
		b.u16(off+2, 0xE174+uint16(i))
		b.i32(off+4, int32(fixtureMeta+0x40*i))
	}
	return b
}

// addBspEntry points the scenario at index scnr to a single structure BSP
// entry referencing tag bsp.
func addBspEntry(b []byte, scnr, bsp int) {
	img := image(b)
	meta := fixtureMeta + 0x40*scnr
	img.i32(meta+20, 1)
	img.i32(meta+24, fixtureBspEntries)
	img.u32(fixtureBspEntries, classValue("sbsp"))
	img.i32(fixtureBspEntries+12, int32(0xE1740000|bsp))
}

// stringBlob packs values into a NUL separated blob. Indices in empty get
// offset -1.
func stringBlob(values []string, empty map[int]bool) ([]int32, []byte) {
	var blob bytes.Buffer
	offsets := make([]int32, len(values))
	for i, v := range values {
		if empty[i] {
			offsets[i] = -1
			continue
		}
		offsets[i] = int32(blob.Len())
		blob.WriteString(v)
		blob.WriteByte(0)
	}
	return offsets, blob.Bytes()
}

func openFixture(t *testing.T, data []byte, opts ...Option) *File {
	t.Helper()
	opts = append([]Option{WithoutPrewarm()}, opts...)
	f, err := OpenReaderAt(bytes.NewReader(data), int64(len(data)), "010_jungle.map", opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}
