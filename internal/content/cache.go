package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"readaloud/internal/domain/chapter"
	"readaloud/internal/storage"
)

const cachePrefix = "cache/chapters"

// CachedProvider keeps fetched chapters in a storage adapter and serves them
// until they are older than maxAge.
type CachedProvider struct {
	next   Provider
	store  storage.Adapter
	maxAge time.Duration
	now    func() time.Time
	log    logrus.FieldLogger
}

// cachedChapter represents the cached chapter data
type cachedChapter struct {
	Chapter     chapter.Chapter `json:"chapter"`
	LastUpdated time.Time       `json:"last_updated"`
}

// CacheInfo describes one cached chapter
type CacheInfo struct {
	Path        string
	BookID      string
	Chapter     int
	LastUpdated time.Time
	Fresh       bool
}

func NewCachedProvider(next Provider, store storage.Adapter, maxAge time.Duration, log logrus.FieldLogger) *CachedProvider {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedProvider{
		next:   next,
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
		log:    log,
	}
}

func cachePath(bookID string, index int) string {
	return fmt.Sprintf("%s/%s/%03d.json", cachePrefix, bookID, index)
}

// FetchChapter returns the cached chapter when fresh, otherwise fetches and caches it.
// A failed fetch is returned as is; stale entries are never served.
func (c *CachedProvider) FetchChapter(ctx context.Context, bookID string, index int) (chapter.Chapter, error) {
	fields := logrus.Fields{"book": bookID, "chapter": index}

	if cached, err := c.load(ctx, bookID, index); err == nil {
		if c.isFresh(cached.LastUpdated) {
			c.log.WithFields(fields).Debug("loaded chapter from cache")
			return cached.Chapter, nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		c.log.WithError(err).WithFields(fields).Warn("failed to read chapter cache")
	}

	ch, err := c.next.FetchChapter(ctx, bookID, index)
	if err != nil {
		return chapter.Chapter{}, err
	}

	if err := c.save(ctx, ch); err != nil {
		c.log.WithError(err).WithFields(fields).Warn("failed to save chapter to cache")
	}
	return ch, nil
}

func (c *CachedProvider) isFresh(updated time.Time) bool {
	return c.now().Sub(updated) < c.maxAge
}

func (c *CachedProvider) load(ctx context.Context, bookID string, index int) (*cachedChapter, error) {
	data, err := storage.ReadAll(ctx, c.store, cachePath(bookID, index))
	if err != nil {
		return nil, err
	}
	var cached cachedChapter
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &cached, nil
}

func (c *CachedProvider) save(ctx context.Context, ch chapter.Chapter) error {
	data, err := json.MarshalIndent(cachedChapter{Chapter: ch, LastUpdated: c.now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache data: %w", err)
	}
	return c.store.Put(ctx, cachePath(ch.BookID, ch.Index), bytes.NewReader(data))
}

// Clear removes cached chapters. An empty bookID clears every book.
func (c *CachedProvider) Clear(ctx context.Context, bookID string) (int, error) {
	prefix := cachePrefix + "/"
	if bookID != "" {
		prefix += bookID + "/"
	}
	paths, err := c.store.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache: %w", err)
	}
	for i, path := range paths {
		if err := c.store.Delete(ctx, path); err != nil {
			return i, fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	c.log.WithField("entries", len(paths)).Info("cleared chapter cache")
	return len(paths), nil
}

// Info returns information about the cache
func (c *CachedProvider) Info(ctx context.Context) ([]CacheInfo, error) {
	paths, err := c.store.List(ctx, cachePrefix+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}

	infos := make([]CacheInfo, 0, len(paths))
	for _, path := range paths {
		data, err := storage.ReadAll(ctx, c.store, path)
		if err != nil {
			continue
		}
		var cached cachedChapter
		if err := json.Unmarshal(data, &cached); err != nil {
			c.log.WithError(err).WithField("path", path).Warn("skipping corrupt cache entry")
			continue
		}
		infos = append(infos, CacheInfo{
			Path:        path,
			BookID:      cached.Chapter.BookID,
			Chapter:     cached.Chapter.Index,
			LastUpdated: cached.LastUpdated,
			Fresh:       c.isFresh(cached.LastUpdated),
		})
	}
	return infos, nil
}

func (c *CachedProvider) MaxAge() time.Duration {
	return c.maxAge
}
