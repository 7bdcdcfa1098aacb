// Package api serves a read-only JSON view of an open cache file.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/EchoTools/blamFileTools/pkg/cache"
)

// Server answers queries against one cache file.
type Server struct {
	file *cache.File
}

// NewServer returns a Server for f. The caller keeps ownership of f.
func NewServer(f *cache.File) *Server {
	return &Server{file: f}
}

// Register adds the API routes to e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/api/info", s.handleInfo)
	e.GET("/api/tags", s.handleListTags)
	e.GET("/api/tags/:id", s.handleGetTag)
	e.GET("/api/strings/:id", s.handleGetString)
	e.GET("/api/locale/:lang", s.handleGetLocale)
	e.GET("/api/locale/:lang/:id", s.handleGetLocaleString)
}

func (s *Server) handleInfo(c *echo.Context) error {
	return c.JSON(http.StatusOK, NewFileInfo(s.file))
}

// handleListTags lists the tag index, optionally filtered by ?class=.
func (s *Server) handleListTags(c *echo.Context) error {
	class := c.QueryParam("class")
	out := make([]TagInfo, 0, s.file.TagIndex().Count())
	for _, t := range s.file.Tags() {
		if class != "" && t.ClassCode != class {
			continue
		}
		out = append(out, NewTagInfo(t))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetTag(c *echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid tag id")
	}
	t, err := s.file.GetTag(id)
	if err != nil {
		return writeCacheError(c, err)
	}
	return c.JSON(http.StatusOK, NewTagInfo(t))
}

func (s *Server) handleGetString(c *echo.Context) error {
	id, err := parseStringID(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid string id")
	}
	v, ok := s.file.GetString(id)
	if !ok {
		return writeError(c, http.StatusNotFound, "string not found")
	}
	return c.JSON(http.StatusOK, StringInfo{ID: id, Value: v})
}

func (s *Server) handleGetLocale(c *echo.Context) error {
	table, err := s.localeTable(c.Param("lang"))
	if err != nil {
		return writeCacheError(c, err)
	}
	return c.JSON(http.StatusOK, LocaleInfo{
		Language: table.Language.String(),
		Tag:      table.Language.Tag().String(),
		Count:    table.Count(),
	})
}

func (s *Server) handleGetLocaleString(c *echo.Context) error {
	id, err := parseStringID(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid string id")
	}
	table, err := s.localeTable(c.Param("lang"))
	if err != nil {
		return writeCacheError(c, err)
	}
	values := table.Values(id)
	if len(values) == 0 {
		return writeError(c, http.StatusNotFound, "string not found")
	}
	return c.JSON(http.StatusOK, LocaleString{Language: table.Language.String(), ID: id, Values: values})
}

func (s *Server) localeTable(name string) (*cache.LocaleTable, error) {
	li, err := s.file.Locale()
	if err != nil {
		return nil, err
	}
	lang, err := cache.MatchLanguage(name, li.Languages())
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", cache.ErrNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return li.Table(lang)
}

// parseStringID accepts decimal or 0x-prefixed ids.
func parseStringID(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

func writeError(c *echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{Error: msg})
}

func writeCacheError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, cache.ErrClosed):
		return writeError(c, http.StatusServiceUnavailable, err.Error())
	}
	return writeError(c, http.StatusInternalServerError, err.Error())
}
