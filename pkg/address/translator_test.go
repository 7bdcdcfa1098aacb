package address

import (
	"errors"
	"math"
	"sync"
	"testing"
)

var roundTripValues = []int64{
	0,
	1,
	0x800,
	0x7fffffff,
	0x80000000,
	0xffffffff,
	-1,
	-0x7fffffff,
	0x1_0000_0000,
}

func allStrategies() map[string]*Offset {
	return map[string]*Offset{
		"Fixed": NewFixed(0x1000),
		"Flat": NewFlat(func() (FlatInputs, error) {
			return FlatInputs{IndexMagic: 0x80061000, IndexAddress: 0x4000, IndexHeaderSize: 40}, nil
		}),
		"TagData": NewTagData(func() (TagDataInputs, error) {
			return TagDataInputs{VirtualBaseAddress: 0x80000000, TagDataAddress: 0x5000, Modifier: 0x10}, nil
		}),
		"Section": NewSection(func() (SectionInputs, error) {
			return SectionInputs{VirtualBaseAddress: 0x50000000, SectionAddress: 0x200, SectionOffset: 0x3000}, nil
		}),
		"SectionLocal": NewSectionLocal(func() (SectionInputs, error) {
			return SectionInputs{SectionAddress: 0x100, SectionOffset: 0x3000}, nil
		}),
		"BspLocal": NewBspLocal(func() (BspInputs, error) {
			return BspInputs{Magic: 0x81000000, MetadataAddress: 0x9000}, nil
		}),
		"HeaderRelative": NewHeaderRelative(func() (HeaderRelativeInputs, error) {
			return HeaderRelativeInputs{StringTableIndexPointer: 0x2000, HeaderSize: 0x3000}, nil
		}),
	}
}

func TestRoundTrip(t *testing.T) {
	for name, tr := range allStrategies() {
		t.Run(name, func(t *testing.T) {
			for _, x := range roundTripValues {
				p, err := tr.Pointer(x)
				if err != nil {
					t.Fatalf("pointer(%#x): %v", x, err)
				}
				a, err := tr.Address(p)
				if err != nil {
					t.Fatalf("address(%#x): %v", p, err)
				}
				if a != x {
					t.Errorf("address(pointer(%#x)) = %#x", x, a)
				}

				a, err = tr.Address(x)
				if err != nil {
					t.Fatalf("address(%#x): %v", x, err)
				}
				p, err = tr.Pointer(a)
				if err != nil {
					t.Fatalf("pointer(%#x): %v", a, err)
				}
				if p != x {
					t.Errorf("pointer(address(%#x)) = %#x", x, p)
				}
			}
		})
	}
}

func TestMagic(t *testing.T) {
	tests := []struct {
		name string
		tr   *Offset
		want int64
	}{
		{
			name: "Flat",
			tr: NewFlat(func() (FlatInputs, error) {
				return FlatInputs{IndexMagic: 0x40440000, IndexAddress: 0x1000, IndexHeaderSize: 36}, nil
			}),
			want: 0x40440000 - 0x1024,
		},
		{
			name: "TagData",
			tr: NewTagData(func() (TagDataInputs, error) {
				return TagDataInputs{VirtualBaseAddress: 0x80000000, TagDataAddress: 0x3000, Modifier: 0x100}, nil
			}),
			want: 0x80000000 - 0x3100,
		},
		{
			name: "Section",
			tr: NewSection(func() (SectionInputs, error) {
				return SectionInputs{VirtualBaseAddress: 0xa0000000, SectionAddress: 0x10, SectionOffset: 0x8000}, nil
			}),
			want: 0xa0000000 - 0x8010,
		},
		{
			name: "SectionLocal",
			tr: NewSectionLocal(func() (SectionInputs, error) {
				return SectionInputs{SectionAddress: 0x10, SectionOffset: 0x8000}, nil
			}),
			want: 0x10 - 0x8000,
		},
		{
			name: "BspLocal",
			tr: NewBspLocal(func() (BspInputs, error) {
				return BspInputs{Magic: 0x81000000, MetadataAddress: 0x9000}, nil
			}),
			want: 0x81000000 - 0x9000,
		},
		{
			name: "HeaderRelative",
			tr: NewHeaderRelative(func() (HeaderRelativeInputs, error) {
				return HeaderRelativeInputs{StringTableIndexPointer: 0x2000, HeaderSize: 0x800}, nil
			}),
			want: 0x1800,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.tr.Magic()
			if err != nil {
				t.Fatalf("magic: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %#x, want %#x", got, tc.want)
			}
		})
	}
}

func TestNotReady(t *testing.T) {
	var (
		mu    sync.Mutex
		ready bool
		calls int
	)
	tr := NewTagData(func() (TagDataInputs, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if !ready {
			return TagDataInputs{}, ErrNotReady
		}
		return TagDataInputs{VirtualBaseAddress: 0x1000}, nil
	})

	if _, err := tr.Address(0x1234); !errors.Is(err, ErrNotReady) {
		t.Fatalf("got %v, want ErrNotReady", err)
	}

	mu.Lock()
	ready = true
	mu.Unlock()

	got, err := tr.Address(0x1234)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if got != 0x234 {
		t.Errorf("got %#x, want %#x", got, 0x234)
	}

	if _, err := tr.Address(0x2000); err != nil {
		t.Fatalf("address: %v", err)
	}
	if calls != 2 {
		t.Errorf("derive calls: got %d, want 2", calls)
	}
}

func TestPointer(t *testing.T) {
	tr := NewFixed(0x100)

	t.Run("Address", func(t *testing.T) {
		p := NewPointer(0x180, tr)
		got, err := p.Address()
		if err != nil {
			t.Fatalf("address: %v", err)
		}
		if got != 0x80 {
			t.Errorf("got %#x, want %#x", got, 0x80)
		}
	})

	t.Run("EqualIgnoresTranslator", func(t *testing.T) {
		a := NewPointer(0x180, tr)
		b := NewPointer(0x180, NewFixed(0))
		if !a.Equal(b) {
			t.Error("pointers with equal values should be equal")
		}
		if a.Equal(NewPointer(0x181, tr)) {
			t.Error("pointers with different values should differ")
		}
	})

	t.Run("Rebind", func(t *testing.T) {
		p := NewPointer(0x180, tr).Rebind(NewFixed(0x80))
		got, err := p.Address()
		if err != nil {
			t.Fatalf("address: %v", err)
		}
		if got != 0x100 {
			t.Errorf("got %#x, want %#x", got, 0x100)
		}
	})

	t.Run("NoTranslator", func(t *testing.T) {
		if _, err := (Pointer{Value: 1}).Address(); !errors.Is(err, ErrNoTranslator) {
			t.Errorf("got %v, want ErrNoTranslator", err)
		}
		if _, err := (Pointer64{Value: 1}).Address(); !errors.Is(err, ErrNoTranslator) {
			t.Errorf("got %v, want ErrNoTranslator", err)
		}
	})

	t.Run("Pointer64", func(t *testing.T) {
		p := NewPointer64(0x1_0000_0100, tr)
		got, err := p.Address()
		if err != nil {
			t.Fatalf("address: %v", err)
		}
		if got != 0x1_0000_0000 {
			t.Errorf("got %#x, want %#x", got, int64(0x1_0000_0000))
		}
	})
}

func TestExpander(t *testing.T) {
	t.Run("Identity", func(t *testing.T) {
		var e Expander
		for _, v := range []int32{0, 1, -1, math.MaxInt32} {
			if got := e.Expand(v); got != int64(v) {
				t.Errorf("expand(%d) = %d", v, got)
			}
		}
	})

	t.Run("Mcc", func(t *testing.T) {
		e := MccExpander
		got := e.Expand(0x100)
		if got != 0x50000400 {
			t.Errorf("got %#x, want %#x", got, 0x50000400)
		}
		if back := e.Contract(got); back != 0x100 {
			t.Errorf("contract: got %#x, want %#x", back, 0x100)
		}
		if e.Expand(0) != 0 {
			t.Error("null pointer should stay null")
		}
		p := NewExpandedPointer64(0x100, e, NewFixed(0x50000000))
		addr, err := p.Address()
		if err != nil {
			t.Fatalf("address: %v", err)
		}
		if addr != 0x400 {
			t.Errorf("address: got %#x, want %#x", addr, 0x400)
		}
	})
}

func TestDataPointer(t *testing.T) {
	tests := []struct {
		value    uint32
		location int
		address  int64
	}{
		{0x00001234, 0, 0x1234},
		{0x40001234, 1, 0x1234},
		{0x80000010, 2, 0x10},
		{0xffffffff, 3, 0x3fffffff},
	}
	for _, tc := range tests {
		d := DataPointer(tc.value)
		if d.Location() != tc.location {
			t.Errorf("%#x location: got %d, want %d", tc.value, d.Location(), tc.location)
		}
		if d.Address() != tc.address {
			t.Errorf("%#x address: got %#x, want %#x", tc.value, d.Address(), tc.address)
		}
	}
	if !DataPointer(0x10).IsInternal() {
		t.Error("location 0 should be internal")
	}
}
