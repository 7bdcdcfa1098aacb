package cache

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed resources/*.yaml
var embedded embed.FS

// BuildEntry is one recognised build string.
type BuildEntry struct {
	Build     string `yaml:"build"`
	StringIDs string `yaml:"strings"`
	Flags     *Flags `yaml:"flags"`
}

// BuildSet groups the build strings of one cache type.
type BuildSet struct {
	Type   CacheType    `yaml:"type"`
	Builds []BuildEntry `yaml:"builds"`
}

// Namespace is one string-id namespace: ids of the namespace below Min map
// to themselves, the rest are offset to Start.
type Namespace struct {
	ID    int `yaml:"id"`
	Min   int `yaml:"min"`
	Start int `yaml:"start"`
}

// StringCollection fixes the string-id bit layout of an engine and lists
// the namespace sets of its builds.
type StringCollection struct {
	IndexBits     int                    `yaml:"indexBits"`
	NamespaceBits int                    `yaml:"namespaceBits"`
	LengthBits    int                    `yaml:"lengthBits"`
	Sets          map[string][]Namespace `yaml:"sets"`
}

// RangeBand remaps ids greater than Above by Delta.
type RangeBand struct {
	Above int32 `yaml:"above"`
	Delta int32 `yaml:"delta"`
}

// StringResources holds every string-id translation table.
type StringResources struct {
	Collections map[string]StringCollection `yaml:"collections"`
	Ranges      map[CacheType][]RangeBand   `yaml:"ranges"`
}

// Keys are the AES keys of the encrypted tables of a cache type.
type Keys struct {
	FileNames string `yaml:"fileNames"`
	Strings   string `yaml:"strings"`
}

// Metadata describes a detected build.
type Metadata struct {
	CacheType CacheType
	Build     string
	StringIDs string
	Flags     Flags
}

// Resources are the lookup tables used to identify and decode caches.
type Resources struct {
	Builds  []BuildSet
	Strings StringResources
	Keys    map[CacheType]Keys

	byBuild map[string]Metadata
}

// LoadResources reads builds.yaml, strings.yaml and keys.yaml from fsys.
func LoadResources(fsys fs.FS) (*Resources, error) {
	res := &Resources{}
	if err := decodeResource(fsys, "builds.yaml", &res.Builds); err != nil {
		return nil, err
	}
	if err := decodeResource(fsys, "strings.yaml", &res.Strings); err != nil {
		return nil, err
	}
	if err := decodeResource(fsys, "keys.yaml", &res.Keys); err != nil {
		return nil, err
	}
	res.index()
	return res, nil
}

func decodeResource(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read resource %s: %w", name, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse resource %s: %w", name, err)
	}
	return nil
}

func (r *Resources) index() {
	r.byBuild = make(map[string]Metadata)
	for _, set := range r.Builds {
		for _, b := range set.Builds {
			if _, dup := r.byBuild[b.Build]; dup {
				continue
			}
			flags := set.Type.Flags()
			if b.Flags != nil {
				flags = *b.Flags
			}
			r.byBuild[b.Build] = Metadata{
				CacheType: set.Type,
				Build:     b.Build,
				StringIDs: b.StringIDs,
				Flags:     flags,
			}
		}
	}
}

// Lookup returns the metadata of a build string.
func (r *Resources) Lookup(build string) (Metadata, bool) {
	m, ok := r.byBuild[build]
	return m, ok
}

// KeysFor returns the AES keys of a cache type. The second result is false
// when the cache type stores its tables in plain text.
func (r *Resources) KeysFor(c CacheType) (Keys, bool) {
	k, ok := r.Keys[c]
	return k, ok
}

var defaultResources = sync.OnceValues(func() (*Resources, error) {
	sub, err := fs.Sub(embedded, "resources")
	if err != nil {
		return nil, err
	}
	return LoadResources(sub)
})

// DefaultResources returns the embedded resource tables.
func DefaultResources() (*Resources, error) {
	return defaultResources()
}
