package cache

import (
	"errors"
	"slices"
	"testing"

	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/endian"
)

func TestLocaleTable(t *testing.T) {
	_, blob := stringBlob([]string{"Assault Rifle", "Battle Rifle", "Fusil d'assaut"}, nil)

	img := make(image, 0x200+len(blob))
	entries := []struct{ id, off int32 }{{0x100, 0}, {0x101, 14}, {0x100, 27}, {0x102, -1}}
	for i, e := range entries {
		img.i32(0x100+8*i, e.id)
		img.i32(0x104+8*i, e.off)
	}
	copy(img[0x200:], blob)

	f := rawFile(img)
	f.localeTranslator = address.NewFixed(0)
	li := &LocaleIndex{
		file: f,
		defs: []languageDefinition{{
			StringCount:   int32(len(entries)),
			StringsSize:   int32(len(blob)),
			IndicesOffset: address.NewPointer(0x100, f.localeTranslator),
			StringsOffset: address.NewPointer(0x200, f.localeTranslator),
		}},
		tables: make(map[Language]*LocaleTable),
	}

	table, err := li.Table(English)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if table.Count() != 3 {
		t.Errorf("count: got %d, want 3", table.Count())
	}
	if v, ok := table.Get(0x101); !ok || v != "Battle Rifle" {
		t.Errorf("get: got %q, %v", v, ok)
	}
	if got := table.Values(0x100); !slices.Equal(got, []string{"Assault Rifle", "Fusil d'assaut"}) {
		t.Errorf("values: got %q", got)
	}
	if _, ok := table.Get(0x102); ok {
		t.Error("negative offset resolved")
	}
	ids := table.IDs()
	slices.Sort(ids)
	if !slices.Equal(ids, []int32{0x100, 0x101}) {
		t.Errorf("ids: got %v", ids)
	}

	again, _ := li.Table(English)
	if again != table {
		t.Error("table read twice")
	}

	t.Run("CorruptCount", func(t *testing.T) {
		li := &LocaleIndex{
			file: f,
			defs: []languageDefinition{{
				StringCount:   1 << 30,
				StringsSize:   int32(len(blob)),
				IndicesOffset: address.NewPointer(0x100, f.localeTranslator),
				StringsOffset: address.NewPointer(0x200, f.localeTranslator),
			}},
			tables: make(map[Language]*LocaleTable),
		}
		if _, err := li.Table(English); !errors.Is(err, endian.ErrOutOfBounds) {
			t.Errorf("got %v, want ErrOutOfBounds", err)
		}
	})
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		in    string
		count int
		want  Language
		err   bool
	}{
		{"english", 12, English, false},
		{"german", 12, German, false},
		{"de-AT", 12, German, false},
		{"es-419", 12, LatinAmericanSpanish, false},
		{"zh-Hant", 12, ChineseTraditional, false},
		{"norwegian", 12, 0, true},
		{"!!", 12, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := MatchLanguage(tt.in, tt.count)
			if tt.err {
				if err == nil {
					t.Errorf("got %s, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
