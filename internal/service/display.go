package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/cache"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

const (
	BarCacheKey = "bookmarks:bar"

	cacheWriteTimeout = 5 * time.Second
)

// Display serves the public, read-only projections. It fails open: a store
// failure yields empty results instead of an error.
type Display struct {
	bookmarks *Bookmarks
	kv        cache.KV
	ttl       time.Duration
	logger    *zap.SugaredLogger

	refills sync.WaitGroup
	// bumped by every Invalidate
	generation atomic.Uint64
}

func NewDisplay(cfg *config.Config, bookmarks *Bookmarks, kv cache.KV, l *zap.SugaredLogger) *Display {
	return &Display{
		bookmarks: bookmarks,
		kv:        kv,
		ttl:       cfg.CacheTTL,
		logger:    l,
	}
}

func (d *Display) Tree(ctx context.Context) *models.TreeResponse {
	all, err := d.bookmarks.GetAll(ctx)
	if err != nil {
		d.logger.Errorw("load bookmarks for tree", "error", err)
		all = &models.BookmarksResponse{}
	}

	return &models.TreeResponse{
		Tree: BuildTree(all.Folders, all.Bookmarks),
		Stats: models.SyncStats{
			Folders:   len(all.Folders),
			Bookmarks: len(all.Bookmarks),
		},
	}
}

// Bar answers from the cache when it can. A miss is answered from the store
// and the cache is refilled in the background.
func (d *Display) Bar(ctx context.Context) *models.BookmarksBarResponse {
	cached := models.BookmarksBarResponse{}
	hit, err := d.kv.Get(ctx, BarCacheKey, &cached)
	if err != nil {
		d.logger.Warnw("read bar cache", "error", err)
	}
	if hit {
		return &cached
	}

	gen := d.generation.Load()
	all, err := d.bookmarks.GetAll(ctx)
	if err != nil {
		d.logger.Errorw("load bookmarks for bar", "error", err)
		return BuildBar(nil, nil)
	}

	bar := BuildBar(all.Folders, all.Bookmarks)
	d.refill(bar, gen)
	return bar
}

// refill stores bar unless an Invalidate happened after it was read. The
// generation is checked again once the entry is written, so an Invalidate
// racing with the Put either deletes the entry itself or is seen here.
func (d *Display) refill(bar *models.BookmarksBarResponse, gen uint64) {
	d.refills.Add(1)
	go func() {
		defer d.refills.Done()

		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()

		if d.generation.Load() != gen {
			return
		}
		if err := d.kv.Put(ctx, BarCacheKey, bar, d.ttl); err != nil {
			d.logger.Warnw("write bar cache", "error", err)
			return
		}
		if d.generation.Load() != gen {
			if err := d.kv.Delete(ctx, BarCacheKey); err != nil {
				d.logger.Warnw("drop stale bar cache", "error", err)
			}
		}
	}()
}

// Invalidate drops cached projections after a write. Failures are only logged.
func (d *Display) Invalidate(ctx context.Context) {
	d.generation.Add(1)
	if err := d.kv.Delete(ctx, BarCacheKey); err != nil {
		d.logger.Warnw("invalidate bar cache", "error", err)
	}
}

// Wait blocks until background cache refills are done.
func (d *Display) Wait() {
	d.refills.Wait()
}
