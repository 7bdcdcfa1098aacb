package cache

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/text/language"

	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/endian"
	"github.com/EchoTools/blamFileTools/pkg/record"
	"github.com/EchoTools/blamFileTools/pkg/structdef"
)

// Language indexes the localized string tables of a cache.
type Language int

const (
	English Language = iota
	Japanese
	German
	French
	Spanish
	LatinAmericanSpanish
	Italian
	Korean
	ChineseTraditional
	ChineseSimplified
	Portuguese
	Polish
	Russian
	Danish
	Finnish
	Dutch
	Norwegian
	languageCount
)

var languageTags = [languageCount]language.Tag{
	English:              language.English,
	Japanese:             language.Japanese,
	German:               language.German,
	French:               language.French,
	Spanish:              language.Spanish,
	LatinAmericanSpanish: language.LatinAmericanSpanish,
	Italian:              language.Italian,
	Korean:               language.Korean,
	ChineseTraditional:   language.TraditionalChinese,
	ChineseSimplified:    language.SimplifiedChinese,
	Portuguese:           language.Portuguese,
	Polish:               language.Polish,
	Russian:              language.Russian,
	Danish:               language.Danish,
	Finnish:              language.Finnish,
	Dutch:                language.Dutch,
	Norwegian:            language.Norwegian,
}

var languageNames = [languageCount]string{
	"english", "japanese", "german", "french", "spanish", "latinamericanspanish",
	"italian", "korean", "chinesetraditional", "chinesesimplified", "portuguese",
	"polish", "russian", "danish", "finnish", "dutch", "norwegian",
}

// Tag returns the BCP 47 tag of the language.
func (l Language) Tag() language.Tag {
	if l < 0 || l >= languageCount {
		return language.Und
	}
	return languageTags[l]
}

func (l Language) String() string {
	if l < 0 || l >= languageCount {
		return fmt.Sprintf("language(%d)", int(l))
	}
	return languageNames[l]
}

// MatchLanguage picks the language closest to a BCP 47 tag or language
// name among the first count languages.
func MatchLanguage(s string, count int) (Language, error) {
	for i, name := range languageNames {
		if name == s && i < count {
			return Language(i), nil
		}
	}
	want, err := language.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("parse language %q: %w", s, err)
	}
	count = min(count, int(languageCount))
	if count <= 0 {
		return 0, fmt.Errorf("%w: no languages", ErrNotFound)
	}
	m := language.NewMatcher(languageTags[:count])
	_, index, conf := m.Match(want)
	if conf == language.No {
		return 0, fmt.Errorf("%w: language %q", ErrNotFound, s)
	}
	return Language(index), nil
}

// localeLayout locates the language definitions within the globals tag.
type localeLayout struct {
	offset int64
	size   int64
	count  int
}

func gen3Locales(c CacheType) (localeLayout, bool) {
	switch {
	case c == Halo3Beta:
		return localeLayout{offset: 488, size: 28, count: 11}, true
	case c == Halo3Retail:
		return localeLayout{offset: 452, size: 68, count: 12}, true
	case c == Halo3ODST:
		return localeLayout{offset: 508, size: 68, count: 12}, true
	case c >= MccHaloReach && c < MccHaloReachU13:
		return localeLayout{offset: 664, size: 80, count: 12}, true
	case c >= MccHaloReachU13:
		return localeLayout{offset: 24, size: 80, count: 12}, true
	}
	return localeLayout{}, false
}

// languageDefinition is one entry of the language list in the globals tag.
type languageDefinition struct {
	StringCount   int32
	StringsSize   int32
	IndicesOffset address.Pointer
	StringsOffset address.Pointer
}

func init() {
	structdef.Register(func(b *structdef.Builder[languageDefinition]) {
		v := b.AddDefaultVersion()
		v.Property("StringCount", func(x *languageDefinition) any { return &x.StringCount }).HasOffset(0)
		v.Property("StringsSize", func(x *languageDefinition) any { return &x.StringsSize }).HasOffset(4)
		v.Property("IndicesOffset", func(x *languageDefinition) any { return &x.IndicesOffset }).HasOffset(8)
		v.Property("StringsOffset", func(x *languageDefinition) any { return &x.StringsOffset }).HasOffset(12)
	})
}

// LocaleIndex holds the localized string tables of a cache. Tables are read
// on first use.
type LocaleIndex struct {
	file *File
	defs []languageDefinition

	mu     sync.Mutex
	tables map[Language]*LocaleTable
}

func newLocaleIndex(f *File, layout localeLayout) (*LocaleIndex, error) {
	globals, err := f.GetTagByClass("matg")
	if err != nil {
		return nil, err
	}
	base, err := globals.MetaPointer.Address()
	if err != nil {
		return nil, fmt.Errorf("globals address: %w", err)
	}

	r := f.reader(f.localeTranslator)
	defs := make([]languageDefinition, layout.count)
	for i := range defs {
		d, err := record.Read[languageDefinition](r, base+layout.offset+int64(i)*layout.size, int(f.CacheType))
		if err != nil {
			return nil, fmt.Errorf("language %d: %w", i, err)
		}
		defs[i] = *d
	}
	return &LocaleIndex{
		file:   f,
		defs:   defs,
		tables: make(map[Language]*LocaleTable),
	}, nil
}

// Languages returns the number of languages in the cache.
func (li *LocaleIndex) Languages() int {
	return len(li.defs)
}

// Table returns the string table of a language.
func (li *LocaleIndex) Table(lang Language) (*LocaleTable, error) {
	if lang < 0 || int(lang) >= len(li.defs) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, lang)
	}
	li.mu.Lock()
	defer li.mu.Unlock()
	if t, ok := li.tables[lang]; ok {
		return t, nil
	}
	t, err := li.readTable(li.defs[lang])
	if err != nil {
		return nil, fmt.Errorf("read %s strings: %w", lang, err)
	}
	t.Language = lang
	li.tables[lang] = t
	return t, nil
}

func (li *LocaleIndex) readTable(def languageDefinition) (*LocaleTable, error) {
	t := &LocaleTable{values: make(map[int32][]string)}
	if def.StringCount <= 0 {
		return t, nil
	}
	r := li.file.reader(li.file.localeTranslator).Reader

	indexAddr, err := def.IndicesOffset.Address()
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(indexAddr, io.SeekStart); err != nil {
		return nil, err
	}
	if int64(def.StringCount) > r.Remaining()/8 {
		return nil, fmt.Errorf("%w: %d locale entries at %d", endian.ErrOutOfBounds, def.StringCount, indexAddr)
	}
	type entry struct{ id, offset int32 }
	entries := make([]entry, def.StringCount)
	for i := range entries {
		if entries[i].id, err = r.ReadInt32(); err != nil {
			return nil, err
		}
		if entries[i].offset, err = r.ReadInt32(); err != nil {
			return nil, err
		}
	}

	dataAddr, err := def.StringsOffset.Address()
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(dataAddr, io.SeekStart); err != nil {
		return nil, err
	}
	blob, err := r.ReadBytes(int(def.StringsSize))
	if err != nil {
		return nil, err
	}

	strs := endian.NewBytesReader(blob, r.ByteOrder())
	for _, e := range entries {
		if e.offset < 0 {
			continue
		}
		if _, err := strs.Seek(int64(e.offset), io.SeekStart); err != nil {
			return nil, err
		}
		s, err := strs.ReadNullTerminatedString(0)
		if err != nil {
			return nil, err
		}
		t.values[e.id] = append(t.values[e.id], s)
		t.count++
	}
	return t, nil
}

// LocaleTable maps string ids to the localized strings of one language.
type LocaleTable struct {
	Language Language

	values map[int32][]string
	count  int
}

// Count returns the number of strings in the table.
func (t *LocaleTable) Count() int {
	return t.count
}

// Get returns the first string stored for id.
func (t *LocaleTable) Get(id int32) (string, bool) {
	v := t.values[id]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Values returns every string stored for id, in table order.
func (t *LocaleTable) Values(id int32) []string {
	return t.values[id]
}

// IDs returns the ids present in the table.
func (t *LocaleTable) IDs() []int32 {
	out := make([]int32, 0, len(t.values))
	for id := range t.values {
		out = append(out, id)
	}
	return out
}
