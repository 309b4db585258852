package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/leapstack-labs/pbilens/internal/state"
)

// DefaultCacheSize is the number of sessions kept when no size is given.
const DefaultCacheSize = 16

// Cache keeps recent sessions keyed by the fingerprints of their documents.
type Cache struct {
	sessions *lru.Cache[string, *Session]
	logger   *slog.Logger
}

// NewCache creates a cache holding up to size sessions.
func NewCache(size int, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sessions, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Cache{sessions: sessions, logger: logger}, nil
}

// Session returns the cached session for docs, creating it when absent.
func (c *Cache) Session(docs ...*state.Document) *Session {
	key := cacheKey(docs)
	if s, ok := c.sessions.Get(key); ok {
		return s
	}
	s := NewSession(c.logger, docs...)
	c.sessions.Add(key, s)
	c.logger.Debug("created analysis session", "key", key)
	return s
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	return c.sessions.Len()
}

// Purge drops every cached session.
func (c *Cache) Purge() {
	c.sessions.Purge()
}

func cacheKey(docs []*state.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		fp := d.Fingerprint
		if fp == "" {
			fp = Fingerprint(d.Content)
		}
		parts = append(parts, string(d.Kind)+":"+fp)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// LoadLatest reads the latest document of every kind from store. Missing
// kinds are skipped.
func LoadLatest(ctx context.Context, store state.Store) ([]*state.Document, error) {
	var docs []*state.Document
	for _, kind := range state.Kinds {
		doc, err := store.Latest(ctx, kind)
		if errors.Is(err, state.ErrNoDocument) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
