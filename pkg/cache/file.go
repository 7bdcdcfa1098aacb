// Package cache reads Halo cache files: the header, the tag index, the
// string id table, the localized strings and the metadata of single tags.
package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/EchoTools/blamFileTools/internal/logger"
	"github.com/EchoTools/blamFileTools/pkg/address"
	"github.com/EchoTools/blamFileTools/pkg/archive"
	"github.com/EchoTools/blamFileTools/pkg/endian"
	"github.com/EchoTools/blamFileTools/pkg/record"
)

// File is an open cache file. It is safe for concurrent use once Open
// returns.
type File struct {
	FileName    string
	ByteOrder   binary.ByteOrder
	CacheType   CacheType
	BuildString string
	Metadata    Metadata
	// ID distinguishes this instance from other opens of the same file.
	ID uuid.UUID

	src  *guardedReaderAt
	size int64
	res  *Resources
	log  logger.Logger

	header           Header
	headerTranslator *address.Offset
	tagTranslator    *address.Offset
	localeTranslator *address.Offset // nil when the cache has no locale tables
	expander         address.Expander

	tags         *TagIndex
	strings      *StringIndex
	locale       *LocaleIndex
	localeLayout *localeLayout

	cellsMu sync.Mutex
	cells   map[cellKey]*cell
}

// Open opens the cache at path. Files are memory mapped where the platform
// allows it; packed caches are unpacked into memory.
func Open(path string, opts ...Option) (*File, error) {
	fd, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open cache: %w: %w", ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	stat, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("stat cache: %w", err)
	}
	size := stat.Size()

	var head [4]byte
	if _, err := fd.ReadAt(head[:], 0); err != nil {
		fd.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	var src *guardedReaderAt
	switch {
	case archive.IsPacked(head[:]):
		data, err := archive.ReadAll(fd)
		fd.Close()
		if err != nil {
			return nil, fmt.Errorf("unpack cache: %w", err)
		}
		size = int64(len(data))
		src = guard(bytes.NewReader(data), nil)

	default:
		src = mapFile(fd, size)
	}

	f, err := newFile(src, size, filepath.Base(path), opts)
	if err != nil {
		src.Close()
		return nil, err
	}
	return f, nil
}

// OpenReaderAt reads a cache from r. Closing the File does not close r.
func OpenReaderAt(r io.ReaderAt, size int64, name string, opts ...Option) (*File, error) {
	return newFile(guard(r, nil), size, name, opts)
}

func newFile(src *guardedReaderAt, size int64, name string, opts []Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.res == nil {
		res, err := DefaultResources()
		if err != nil {
			return nil, fmt.Errorf("load resources: %w", err)
		}
		o.res = res
	}

	d, err := Detect(src, size, o.res)
	if err != nil {
		return nil, err
	}
	meta := d.Metadata
	if o.cacheType != Unknown && o.cacheType != meta.CacheType {
		meta = Metadata{CacheType: o.cacheType, Build: d.BuildString, Flags: o.cacheType.Flags()}
	}

	f := &File{
		FileName:    name,
		ByteOrder:   d.ByteOrder,
		CacheType:   meta.CacheType,
		BuildString: d.BuildString,
		Metadata:    meta,
		ID:          uuid.New(),
		src:         src,
		size:        size,
		res:         o.res,
		log:         o.log.With("cache", name),
		cells:       make(map[cellKey]*cell),
	}

	if err := f.load(); err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	f.log.Debug("opened cache",
		"type", f.CacheType.String(),
		"build", f.BuildString,
		"tags", f.tags.Count(),
		"strings", f.strings.Count())

	if o.prewarm {
		go f.prewarmGlobals()
	}
	return f, nil
}

func (f *File) load() error {
	var load func(*File) error
	switch f.CacheType {
	case Halo1Xbox, Halo1PC, Halo1CE:
		load = loadGen1
	case Halo2Xbox, Halo2Vista:
		load = loadGen2
	case Halo3Beta, Halo3Retail, Halo3ODST, HaloReachBeta, HaloReachRetail,
		MccHaloReach, MccHaloReachU3, MccHaloReachU8, MccHaloReachU10, MccHaloReachU13:
		load = loadGen3
	case Unknown:
		return errUnknownBuild(f.BuildString)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCache, f.CacheType)
	}

	if err := load(f); err != nil {
		return err
	}
	if err := f.tags.ReadItems(); err != nil {
		return fmt.Errorf("read tag index: %w", err)
	}
	if err := f.strings.ReadItems(); err != nil {
		return fmt.Errorf("read string index: %w", err)
	}
	f.tags.resolveClassNames(f.strings)

	if f.localeLayout == nil {
		return nil
	}
	if _, err := f.tags.GetByClass("matg"); err != nil {
		f.log.Debug("no globals tag, skipping locale tables")
		return nil
	}
	locale, err := newLocaleIndex(f, *f.localeLayout)
	if err != nil {
		return fmt.Errorf("read locale index: %w", err)
	}
	f.locale = locale
	return nil
}

// reader returns a record reader over the whole file whose pointers
// resolve through t.
func (f *File) reader(t address.Translator) *record.Reader {
	r := record.NewReader(endian.NewReader(f.src, f.size, f.ByteOrder))
	if t != nil {
		record.Provide[address.Translator](r, t)
	}
	record.Provide(r, f)
	record.Provide(r, f.expander)
	return r
}

// prewarmClasses are the global tags parsed in the background after open,
// in order.
var prewarmClasses = []string{"play", "zone", "scnr"}

// globalReaders parse the metadata of a global tag. Classes without an
// entry are skipped by pre-warm.
var globalReaders = map[string]func(*Tag) error{
	"scnr": func(t *Tag) error {
		_, err := ReadMetadata[Scenario](t)
		return err
	},
}

// prewarmGlobals parses the global tags in the background so the first
// metadata read of a BSP does not pay for them.
func (f *File) prewarmGlobals() {
	for _, code := range prewarmClasses {
		read, ok := globalReaders[code]
		if !ok {
			continue
		}
		t, err := f.tags.GetByClass(code)
		if err != nil {
			continue
		}
		if err := read(t); err != nil {
			f.log.Debug("prewarm failed", "tag", t.String(), "error", err)
		}
	}
}

// Header returns the parsed header.
func (f *File) Header() Header {
	return f.header
}

// TagIndex returns the tag index.
func (f *File) TagIndex() *TagIndex {
	return f.tags
}

// StringIndex returns the string id table.
func (f *File) StringIndex() *StringIndex {
	return f.strings
}

// GetTag returns the tag with the given id.
func (f *File) GetTag(id int) (*Tag, error) {
	return f.tags.Get(id)
}

// GetTagByClass returns the global tag of a system class.
func (f *File) GetTagByClass(code string) (*Tag, error) {
	return f.tags.GetByClass(code)
}

// Tags returns every tag in id order.
func (f *File) Tags() []*Tag {
	return f.tags.Tags()
}

// GetString resolves a string id.
func (f *File) GetString(id int32) (string, bool) {
	return f.strings.Get(id)
}

// StringID returns the string id of value.
func (f *File) StringID(value string) (int32, bool) {
	return f.strings.StringID(value)
}

// Locale returns the localized string tables.
func (f *File) Locale() (*LocaleIndex, error) {
	if f.locale == nil {
		return nil, fmt.Errorf("%w: %s has no locale tables", ErrNotFound, f.CacheType)
	}
	return f.locale, nil
}

// Close releases the file. Reads in flight finish first; later reads
// fail with ErrClosed.
func (f *File) Close() error {
	return f.src.Close()
}

// guardedReaderAt serializes Close against in-flight reads so a mapping
// is never released under a reader.
type guardedReaderAt struct {
	mu      sync.RWMutex
	r       io.ReaderAt
	release func() error
	closed  bool
}

func guard(r io.ReaderAt, release func() error) *guardedReaderAt {
	return &guardedReaderAt{r: r, release: release}
}

func (g *guardedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return 0, ErrClosed
	}
	return g.r.ReadAt(p, off)
}

func (g *guardedReaderAt) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if g.release == nil {
		return nil
	}
	return g.release()
}

// mapFile maps fd read-only, falling back to reading through the file
// descriptor.
func mapFile(fd *os.File, size int64) *guardedReaderAt {
	if size > 0 && size <= int64(int(^uint(0)>>1)) {
		data, err := unix.Mmap(int(fd.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
		if err == nil {
			fd.Close()
			return guard(bytes.NewReader(data), func() error {
				return unix.Munmap(data)
			})
		}
	}
	return guard(fd, fd.Close)
}
