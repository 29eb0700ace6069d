// Package api serves a frozen vocabulary over HTTP.
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru"
	"github.com/labstack/echo/v5"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/logger"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
)

const (
	DefaultCacheSize = 4096
	maxListLimit     = 1000
	maxBodyBytes     = 1 << 20
)

type Config struct {
	// CacheSize bounds the encode result cache. Zero uses DefaultCacheSize,
	// negative disables caching.
	CacheSize int
	// RateLimit is requests per second allowed per client. Zero disables throttling.
	RateLimit float64
	Burst     int
	Logger    logger.Logger
}

type Server struct {
	vocab   *vocab.Vocabulary
	info    *vocab.Info
	cache   *lru.Cache
	limiter *clientLimiter
	log     logger.Logger
}

// NewServer serves v. info may be nil when the vocabulary came from a bare table.
func NewServer(v *vocab.Vocabulary, info *vocab.Info, cfg Config) (*Server, error) {
	s := &Server{vocab: v, info: info, log: cfg.Logger}
	if s.log == nil {
		s.log = logger.Default()
	}
	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New(size)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	if cfg.RateLimit > 0 {
		limiter, err := newClientLimiter(cfg.RateLimit, cfg.Burst)
		if err != nil {
			return nil, err
		}
		s.limiter = limiter
	}
	return s, nil
}

func (s *Server) Register(e *echo.Echo) {
	g := e.Group("/v1")
	if s.limiter != nil {
		g.Use(s.throttle)
	}
	g.POST("/encode", s.handleEncode)
	g.POST("/decode", s.handleDecode)
	g.GET("/grams", s.handleListGrams)
	g.GET("/grams/:id", s.handleGetGram)
	g.GET("/info", s.handleInfo)
}

func (s *Server) handleEncode(c *echo.Context) error {
	req, err := decodeJSON[EncodeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	ids, err := s.encode(req.Text)
	if err != nil {
		return writeGramError(c, err)
	}
	resp := EncodeResponse{Object: "encoding", IDs: ids, Count: len(ids)}
	if req.Segments {
		resp.Segments = make([]string, len(ids))
		for i, id := range ids {
			if resp.Segments[i], err = s.vocab.Render(id); err != nil {
				return writeGramError(c, err)
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) encode(text string) ([]gram.ID, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(text); ok {
			return v.([]gram.ID), nil
		}
	}
	ids, err := s.vocab.Encode(text)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(text, ids)
	}
	return ids, nil
}

func (s *Server) handleDecode(c *echo.Context) error {
	req, err := decodeJSON[DecodeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	text, err := s.vocab.Decode(req.IDs)
	if err != nil {
		return writeGramError(c, err)
	}
	return c.JSON(http.StatusOK, DecodeResponse{Object: "decoding", Text: text})
}

func (s *Server) handleListGrams(c *echo.Context) error {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	entries, err := s.vocab.Entries(offset, limit)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, GramList{
		Object: "list",
		Data:   entries,
		Offset: offset,
		Total:  s.vocab.Len(),
	})
}

func (s *Server) handleGetGram(c *echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return writeBadRequest(c, "id must be a non-negative integer")
	}
	entry, err := s.vocab.Entry(gram.ID(id))
	if err != nil {
		var invalid *gram.InvalidIDError
		if errors.As(err, &invalid) {
			return writeNotFound(c, err.Error())
		}
		return writeGramError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleInfo(c *echo.Context) error {
	t := s.vocab.Table()
	literals := t.Literals()
	return c.JSON(http.StatusOK, InfoResponse{
		Object:     "vocabulary",
		Grams:      t.Len(),
		Literals:   literals,
		Composites: t.Len() - literals,
		Boundary:   vocab.BoundaryName(s.vocab.Boundary()),
		Training:   s.info,
	})
}

func queryInt(c *echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, newInvalidRequest(name + " must be a non-negative integer")
	}
	return n, nil
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
