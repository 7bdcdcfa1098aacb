package record

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/endian"
	"github.com/EchoTools/blamFileTools/pkg/structdef"
)

type bandRecord struct {
	Value int32
}

func init() {
	structdef.Register(func(b *structdef.Builder[bandRecord]) {
		b.AddVersion(0, 2).HasFixedSize(12).
			Property("Value", func(x *bandRecord) any { return &x.Value }).HasOffset(0)
		b.AddVersion(2, 4).HasFixedSize(12).
			Property("Value", func(x *bandRecord) any { return &x.Value }).HasOffset(4)
		b.AddVersionFrom(4).HasFixedSize(12).
			Property("Value", func(x *bandRecord) any { return &x.Value }).HasOffset(8)
	})
}

func newReader(data []byte, order binary.ByteOrder) *Reader {
	return NewReader(endian.NewBytesReader(data, order))
}

func TestVersionBands(t *testing.T) {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 10)
	binary.LittleEndian.PutUint32(data[4:8], 20)
	binary.LittleEndian.PutUint32(data[8:12], 30)

	tests := []struct {
		version int
		want    int32
	}{
		{0, 10},
		{1, 10},
		{2, 20},
		{3, 20},
		{4, 30},
		{5, 30},
	}
	for _, tc := range tests {
		r := newReader(data, binary.LittleEndian)
		got, err := Read[bandRecord](r, 0, tc.version)
		if err != nil {
			t.Fatalf("version %d: %v", tc.version, err)
		}
		if got.Value != tc.want {
			t.Errorf("version %d: got %d, want %d", tc.version, got.Value, tc.want)
		}
		if r.Position() != 12 {
			t.Errorf("version %d: position %d, want 12", tc.version, r.Position())
		}
	}

	r := newReader(data, binary.LittleEndian)
	if _, err := Read[bandRecord](r, 0, -1); !errors.Is(err, structdef.ErrNoVersionMatch) {
		t.Errorf("out of band: got %v, want ErrNoVersionMatch", err)
	}
}

type header struct {
	Magic   uint32
	Short   int32
	Name    string
	Ptr     address.Pointer
	Wide    address.Pointer64
	Ratio   float32
	Flag    bool
	Payload []byte
}

func init() {
	structdef.Register(func(b *structdef.Builder[header]) {
		v := b.AddDefaultVersion().HasFixedSize(40)
		v.Property("Magic", func(x *header) any { return &x.Magic }).HasOffset(0).HasByteOrder(binary.BigEndian)
		v.Property("Short", func(x *header) any { return &x.Short }).HasOffset(4).StoreType(structdef.Int16)
		v.Property("Name", func(x *header) any { return &x.Name }).HasOffset(8).IsNullTerminated(8)
		v.Property("Ptr", func(x *header) any { return &x.Ptr }).HasOffset(16)
		v.Property("Wide", func(x *header) any { return &x.Wide }).HasOffset(20).StoreType(structdef.Int32)
		v.Property("Ratio", func(x *header) any { return &x.Ratio }).HasOffset(24)
		v.Property("Flag", func(x *header) any { return &x.Flag }).HasOffset(28)
		v.Property("Payload", func(x *header) any { return &x.Payload }).HasOffset(29).HasLength(3)
	})
}

func TestFieldKinds(t *testing.T) {
	data := make([]byte, 48)
	copy(data[0:4], "head")
	binary.LittleEndian.PutUint16(data[4:6], 0xfffe) // -2
	copy(data[8:16], "map\x00junk")
	binary.LittleEndian.PutUint32(data[16:20], 0x1100)
	binary.LittleEndian.PutUint32(data[20:24], 0x40)
	binary.LittleEndian.PutUint32(data[24:28], 0x3f800000) // 1.0
	data[28] = 1
	copy(data[29:32], "abc")

	r := newReader(data, binary.LittleEndian)
	Provide[address.Translator](r, address.NewFixed(0x1000))
	Provide(r, address.Expander{Base: 0x100, Shift: 2})

	h, err := Read[header](r, 0, NoVersion)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if h.Magic != 0x68656164 {
		t.Errorf("magic: got %#x, want %#x", h.Magic, 0x68656164)
	}
	if h.Short != -2 {
		t.Errorf("short: got %d, want -2", h.Short)
	}
	if h.Name != "map" {
		t.Errorf("name: got %q, want %q", h.Name, "map")
	}
	if addr, err := h.Ptr.Address(); err != nil || addr != 0x100 {
		t.Errorf("ptr: got %#x, %v; want 0x100", addr, err)
	}
	if h.Wide.Value != 0x40<<2+0x100 {
		t.Errorf("wide: got %#x, want %#x", h.Wide.Value, 0x40<<2+0x100)
	}
	if h.Ratio != 1 {
		t.Errorf("ratio: got %v, want 1", h.Ratio)
	}
	if !h.Flag {
		t.Error("flag: got false, want true")
	}
	if string(h.Payload) != "abc" {
		t.Errorf("payload: got %q, want %q", h.Payload, "abc")
	}
	if r.Position() != 40 {
		t.Errorf("position: got %d, want 40", r.Position())
	}
}

type element struct {
	ID int16
}

type parent struct {
	Child    element
	Elements Block[element]
}

func init() {
	structdef.Register(func(b *structdef.Builder[element]) {
		b.AddDefaultVersion().HasFixedSize(4).
			Property("ID", func(x *element) any { return &x.ID }).HasOffset(2)
	})
	structdef.Register(func(b *structdef.Builder[parent]) {
		v := b.AddDefaultVersion().HasFixedSize(16)
		v.Property("Child", func(x *parent) any { return Nest(&x.Child) }).HasOffset(0)
		v.Property("Elements", func(x *parent) any { return &x.Elements }).HasOffset(4)
	})
}

func TestNestedAndBlocks(t *testing.T) {
	data := make([]byte, 64)
	binary.BigEndian.PutUint16(data[2:4], 7)       // child id
	binary.BigEndian.PutUint32(data[4:8], 3)       // count
	binary.BigEndian.PutUint32(data[8:12], 0x8020) // pointer -> 0x20
	for i := 0; i < 3; i++ {
		binary.BigEndian.PutUint16(data[0x20+i*4+2:], uint16(100+i))
	}

	r := newReader(data, binary.BigEndian)
	Provide[address.Translator](r, address.NewFixed(0x8000))

	p, err := Read[parent](r, 0, NoVersion)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if p.Child.ID != 7 {
		t.Errorf("child: got %d, want 7", p.Child.ID)
	}
	if p.Elements.Len() != 3 {
		t.Fatalf("count: got %d, want 3", p.Elements.Len())
	}

	items, err := p.Elements.Items()
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	for i, e := range items {
		if e.ID != int16(100+i) {
			t.Errorf("item %d: got %d, want %d", i, e.ID, 100+i)
		}
	}

	if _, err := ReadArray[element](r, 0x20, 1<<30, NoVersion); !errors.Is(err, endian.ErrOutOfBounds) {
		t.Errorf("oversized array: got %v, want ErrOutOfBounds", err)
	}

	var detached Block[element]
	detached.Count = 1
	if _, err := detached.Items(); !errors.Is(err, ErrDetached) {
		t.Errorf("detached: got %v, want ErrDetached", err)
	}
}

type selfVersioned struct {
	Version int16
	Value   int32
}

func init() {
	structdef.Register(func(b *structdef.Builder[selfVersioned]) {
		b.VersionProperty("Version", func(x *selfVersioned) any { return &x.Version }).HasOffset(0)
		b.AddVersion(1, 2).HasFixedSize(8).
			Property("Value", func(x *selfVersioned) any { return &x.Value }).HasOffset(2)
		b.AddVersionFrom(2).HasFixedSize(8).
			Property("Value", func(x *selfVersioned) any { return &x.Value }).HasOffset(4)
	})
}

func TestVersionField(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint16(data[0:2], 1)
	binary.LittleEndian.PutUint32(data[2:6], 11)
	binary.LittleEndian.PutUint16(data[8:10], 2)
	binary.LittleEndian.PutUint32(data[12:16], 22)

	r := newReader(data, binary.LittleEndian)
	a, err := Read[selfVersioned](r, 0, 99)
	if err != nil {
		t.Fatalf("read a: %v", err)
	}
	if a.Version != 1 || a.Value != 11 {
		t.Errorf("a: got %+v, want {1 11}", *a)
	}
	b, err := Read[selfVersioned](r, 8, NoVersion)
	if err != nil {
		t.Fatalf("read b: %v", err)
	}
	if b.Version != 2 || b.Value != 22 {
		t.Errorf("b: got %+v, want {2 22}", *b)
	}
}

type tagContext struct{ name string }

type injected struct {
	Owner *tagContext
	Value uint8
}

func init() {
	structdef.Register(func(b *structdef.Builder[injected]) {
		b.ConstructedBy(func(r structdef.Resolver) (*injected, error) {
			ctx, ok := structdef.Resolve[*tagContext](r)
			if !ok {
				return nil, errors.New("no tag context")
			}
			return &injected{Owner: ctx}, nil
		})
		b.AddDefaultVersion().Property("Value", func(x *injected) any { return &x.Value })
	})
}

func TestAmbientConstruction(t *testing.T) {
	r := newReader([]byte{42}, binary.LittleEndian)
	if _, err := Read[injected](r, 0, NoVersion); err == nil {
		t.Fatal("expected error without ambient context")
	}

	ctx := &tagContext{name: "globals"}
	Provide(r, ctx)
	v, err := Read[injected](r, 0, NoVersion)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v.Owner != ctx || v.Value != 42 {
		t.Errorf("got %+v", v)
	}

	clone := r.Clone()
	Provide(clone, &tagContext{name: "other"})
	if got, _ := Ambient[*tagContext](r); got != ctx {
		t.Error("clone registrations leaked into the parent")
	}
}

type counter struct {
	N uint32
}

func (c *counter) DecodeRecord(r *Reader, version int) error {
	v, err := r.ReadUint32()
	c.N = v + uint32(version)
	return err
}

type unsupported struct{ X int }

func TestDecoderAndErrors(t *testing.T) {
	data := []byte{1, 0, 0, 0}

	t.Run("Decoder", func(t *testing.T) {
		r := newReader(data, binary.LittleEndian)
		c, err := Read[counter](r, 0, 2)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if c.N != 3 {
			t.Errorf("got %d, want 3", c.N)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		r := newReader(data, binary.LittleEndian)
		if _, err := Read[unsupported](r, 0, NoVersion); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("got %v, want ErrUnsupportedType", err)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		r := newReader(data, binary.LittleEndian)
		if _, err := Read[bandRecord](r, 64, 0); !errors.Is(err, endian.ErrOutOfBounds) {
			t.Errorf("got %v, want ErrOutOfBounds", err)
		}
		if _, err := Read[bandRecord](r, 0, 4); !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, endian.ErrOutOfBounds) {
			t.Errorf("got %v, want an I/O error", err)
		}
	})

	t.Run("ReadArray", func(t *testing.T) {
		r := newReader(make([]byte, 8), binary.LittleEndian)
		if _, err := ReadArray[unsupported](r, 0, 2, NoVersion); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("got %v, want ErrUnsupportedType", err)
		}
		got, err := ReadArray[element](r, 0, 2, NoVersion)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("got %d elements, want 2", len(got))
		}
	})
}
