package cache

import (
	"github.com/EchoTools/blamFileTools/pkg/address"
)

// Header exposes the header fields every engine family provides.
type Header interface {
	// Size is the byte size of the header record.
	Size() int64
	FileSize() int64
	Build() string
	// Scenario is the full path of the primary scenario tag, or "" for
	// engines that do not record it.
	Scenario() string
	// TagIndexPointer locates the tag index. Its translator is the tag
	// translator once the cache is open.
	TagIndexPointer() address.Pointer64
	StringTable() Table
	FileTable() Table
}

// Table locates a string table: Count int32 offsets at Index into a blob of
// Size bytes at Data.
type Table struct {
	Count int32
	Size  int32
	Index address.Pointer
	Data  address.Pointer
}

// IsEmpty reports whether the table has no entries.
func (t Table) IsEmpty() bool {
	return t.Count <= 0
}

const absent = -1

// systemClasses are the classes indexed by class code.
var systemClasses = map[string]bool{
	"scnr": true,
	"matg": true,
	"ugh!": true,
	"play": true,
	"zone": true,
}

// IsSystemClass reports whether code is a class with a single global
// instance per cache.
func IsSystemClass(code string) bool {
	return systemClasses[code]
}

// classCode converts a class id to its four character code. The id reads
// as the same integer in either byte order, so the code is its big endian
// spelling.
func classCode(id uint32) string {
	if id == 0 || id == 0xFFFFFFFF {
		return ""
	}
	b := [4]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	return string(b[:])
}

// ClassID is the inverse of classCode.
func ClassID(code string) uint32 {
	var b [4]byte
	copy(b[:], code)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
