package api

import (
	"github.com/EchoTools/blamFileTools/pkg/cache"
)

// FileInfo summarizes an open cache file.
type FileInfo struct {
	ID        string `json:"id"`
	File      string `json:"file"`
	Build     string `json:"build"`
	CacheType string `json:"cache_type"`
	Game      string `json:"game"`
	Platform  string `json:"platform"`
	Flags     string `json:"flags,omitempty"`
	ByteOrder string `json:"byte_order"`
	Scenario  string `json:"scenario,omitempty"`
	Tags      int    `json:"tags"`
	Classes   int    `json:"classes"`
	Strings   int    `json:"strings"`
	Languages int    `json:"languages"`
}

// NewFileInfo collects the summary of f.
func NewFileInfo(f *cache.File) FileInfo {
	info := FileInfo{
		ID:        f.ID.String(),
		File:      f.FileName,
		Build:     f.BuildString,
		CacheType: f.CacheType.String(),
		Game:      f.CacheType.Game().String(),
		Platform:  f.CacheType.Platform().String(),
		ByteOrder: f.ByteOrder.String(),
		Scenario:  f.Header().Scenario(),
		Tags:      f.TagIndex().Count(),
		Classes:   len(f.TagIndex().Classes()),
		Strings:   f.StringIndex().Count(),
	}
	if f.Metadata.Flags != 0 {
		info.Flags = f.Metadata.Flags.String()
	}
	if li, err := f.Locale(); err == nil {
		info.Languages = li.Languages()
	}
	return info
}

// TagInfo describes one tag index entry.
type TagInfo struct {
	ID          int    `json:"id"`
	Class       string `json:"class"`
	ClassName   string `json:"class_name,omitempty"`
	Path        string `json:"path"`
	MetaAddress int64  `json:"meta_address"`
	MetaSize    int32  `json:"meta_size,omitempty"`
}

// NewTagInfo converts t. Tags whose pointer does not translate report a
// zero address.
func NewTagInfo(t *cache.Tag) TagInfo {
	addr, _ := t.MetaPointer.Address()
	return TagInfo{
		ID:          t.ID,
		Class:       t.ClassCode,
		ClassName:   t.ClassName,
		Path:        t.FullPath,
		MetaAddress: addr,
		MetaSize:    t.MetaSize,
	}
}

// StringInfo is a resolved string id.
type StringInfo struct {
	ID    int32  `json:"id"`
	Value string `json:"value"`
}

// LocaleInfo describes the string table of one language.
type LocaleInfo struct {
	Language string `json:"language"`
	Tag      string `json:"tag"`
	Count    int    `json:"count"`
}

// LocaleString is one localized string.
type LocaleString struct {
	Language string   `json:"language"`
	ID       int32    `json:"id"`
	Values   []string `json:"values"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
