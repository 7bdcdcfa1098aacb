package cache

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/EchoTools/blamFileTools/pkg/record"
)

// TagReference is a (class, tag id) reference stored in tag data.
type TagReference struct {
	ClassCode string
	TagID     int // -1 for null references

	file *File
}

// DecodeRecord reads a reference: the class at 0 and the tag id at 12, or
// at 4 for Halo 2.
func (t *TagReference) DecodeRecord(r *record.Reader, version int) error {
	start := r.Position()
	class, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("reference class: %w", err)
	}

	idOffset := int64(12)
	if CacheType(version).Generation() == Gen2 {
		idOffset = 4
	}
	if _, err := r.Seek(start+idOffset, io.SeekStart); err != nil {
		return fmt.Errorf("reference id: %w", err)
	}
	id, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("reference id: %w", err)
	}

	t.ClassCode = classCode(class)
	t.TagID = -1
	if id != -1 {
		t.TagID = int(id & 0xFFFF)
	}
	t.file, _ = record.Ambient[*File](r)
	return nil
}

// IsNull reports whether the reference points nowhere.
func (t TagReference) IsNull() bool {
	return t.TagID < 0
}

// Tag resolves the reference.
func (t TagReference) Tag() (*Tag, error) {
	if t.IsNull() || t.file == nil {
		return nil, fmt.Errorf("%w: null tag reference", ErrNotFound)
	}
	return t.file.GetTag(t.TagID)
}

// Equal reports whether both references come from the same cache and
// point to the same tag.
func (t TagReference) Equal(o TagReference) bool {
	return t.TagID == o.TagID && cacheID(t.file) == cacheID(o.file)
}

func cacheID(f *File) uuid.UUID {
	if f == nil {
		return uuid.Nil
	}
	return f.ID
}
