package cache

import (
	"fmt"
	"strings"
	"sync"

	"github.com/EchoTools/blamFileTools/pkg/address"
)

// TagClass is one entry of the class table.
type TagClass struct {
	Code    string
	Parent  string
	Parent2 string
	NameID  int32
	Name    string
}

// Tag is one entry of the tag index.
type Tag struct {
	ID          int
	ClassCode   string
	ClassName   string
	Class       *TagClass // nil for engines without a class table
	Salt        uint16
	MetaPointer address.Pointer64
	MetaSize    int32
	FullPath    string

	file *File
}

// File returns the cache the tag belongs to.
func (t *Tag) File() *File {
	return t.file
}

// FileName returns the last component of the tag path.
func (t *Tag) FileName() string {
	if i := strings.LastIndexByte(t.FullPath, '\\'); i >= 0 {
		return t.FullPath[i+1:]
	}
	return t.FullPath
}

func (t *Tag) String() string {
	return t.FullPath + "." + strings.TrimRight(t.ClassCode, " ")
}

// TagIndex is the tag table of a cache.
type TagIndex struct {
	file          *File
	scenarioName  string
	matchScenario bool
	load          func() ([]TagClass, []*Tag, error)

	mu          sync.Mutex
	initialized bool
	classes     []TagClass
	tags        []*Tag // by id; nil for skipped entries
	count       int
	system      map[string]*Tag
}

func newTagIndex(f *File, scenario string, matchScenario bool, load func() ([]TagClass, []*Tag, error)) *TagIndex {
	return &TagIndex{
		file:          f,
		scenarioName:  scenario,
		matchScenario: matchScenario,
		load:          load,
		system:        make(map[string]*Tag),
	}
}

// ReadItems loads the index. It runs once; later calls return
// ErrAlreadyInitialized.
func (ti *TagIndex) ReadItems() error {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.initialized {
		return ErrAlreadyInitialized
	}
	ti.initialized = true

	classes, tags, err := ti.load()
	if err != nil {
		return err
	}
	ti.classes = classes
	ti.tags = tags
	for _, t := range tags {
		if t != nil {
			ti.count++
		}
	}
	return ti.registerSystemClasses()
}

func (ti *TagIndex) registerSystemClasses() error {
	var scenarios []*Tag
	for _, t := range ti.tags {
		if t == nil || !IsSystemClass(t.ClassCode) {
			continue
		}
		if t.ClassCode == "scnr" && ti.matchScenario {
			if t.FullPath == ti.scenarioName {
				scenarios = append(scenarios, t)
			}
			continue
		}
		if _, ok := ti.system[t.ClassCode]; !ok {
			ti.system[t.ClassCode] = t
		}
	}
	if !ti.matchScenario {
		return nil
	}
	if len(scenarios) != 1 {
		return fmt.Errorf("%w: %d tags match %q", ErrAmbiguousScenario, len(scenarios), ti.scenarioName)
	}
	ti.system["scnr"] = scenarios[0]
	return nil
}

// resolveClassNames fills class names from the string index.
func (ti *TagIndex) resolveClassNames(s *StringIndex) {
	for i := range ti.classes {
		c := &ti.classes[i]
		if name, ok := s.Get(c.NameID); ok {
			c.Name = name
		}
	}
	for _, t := range ti.tags {
		if t != nil && t.Class != nil {
			t.ClassName = t.Class.Name
		}
	}
}

// Count returns the number of tags, excluding skipped entries.
func (ti *TagIndex) Count() int {
	return ti.count
}

// Classes returns the class table.
func (ti *TagIndex) Classes() []TagClass {
	return ti.classes
}

// Get returns the tag with the given id.
func (ti *TagIndex) Get(id int) (*Tag, error) {
	if id < 0 || id >= len(ti.tags) || ti.tags[id] == nil {
		return nil, fmt.Errorf("%w: tag id %d", ErrNotFound, id)
	}
	return ti.tags[id], nil
}

// GetByClass returns the global tag of a system class.
func (ti *TagIndex) GetByClass(code string) (*Tag, error) {
	if t, ok := ti.system[code]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: global %q tag", ErrNotFound, code)
}

// Tags returns every tag in id order.
func (ti *TagIndex) Tags() []*Tag {
	out := make([]*Tag, 0, ti.count)
	for _, t := range ti.tags {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
