package services

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/coursechat-backend/internal/blob"
	"github.com/yungbote/coursechat-backend/internal/observability"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/platform/rediscache"
)

// BlobCleaner deletes blobs of removed messages in the background. Failures are logged
// and counted, never returned to the request that caused them.
type BlobCleaner interface {
	Enqueue(names ...string)
	// Run drains the queue until ctx is done, then deletes whatever is still queued.
	Run(ctx context.Context)
}

type blobCleaner struct {
	log     *logger.Logger
	store   blob.Store
	cache   rediscache.Cache
	queue   chan string
	timeout time.Duration
}

func NewBlobCleaner(baseLog *logger.Logger, store blob.Store, cache rediscache.Cache, queueSize int, timeout time.Duration) BlobCleaner {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cache == nil {
		cache = rediscache.Noop{}
	}
	return &blobCleaner{
		log:     baseLog.With("service", "BlobCleaner"),
		store:   store,
		cache:   cache,
		queue:   make(chan string, queueSize),
		timeout: timeout,
	}
}

func (c *blobCleaner) Enqueue(names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		select {
		case c.queue <- name:
		default:
			// queue full: the blob is orphaned rather than blocking the request
			c.log.Warn("Blob cleanup queue full; dropping", "blob", name)
			observability.Current().IncBlobCleanup("dropped")
		}
	}
}

func (c *blobCleaner) Run(ctx context.Context) {
	for {
		select {
		case name := <-c.queue:
			c.delete(ctx, name)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *blobCleaner) drain() {
	for {
		select {
		case name := <-c.queue:
			c.delete(context.Background(), name)
		default:
			return
		}
	}
}

func (c *blobCleaner) delete(ctx context.Context, name string) {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.cache.Delete(ctx, name); err != nil {
		c.log.Warn("Context cache eviction failed", "blob", name, "error", err)
	}

	err := c.store.Delete(ctx, name)
	switch {
	case err == nil:
		c.log.Debug("Blob deleted", "blob", name)
		observability.Current().IncBlobCleanup("ok")
	case errors.Is(err, blob.ErrNotFound):
		c.log.Warn("Blob already gone", "blob", name)
		observability.Current().IncBlobCleanup("missing")
	default:
		c.log.Error("Blob delete failed", "blob", name, "error", err)
		observability.Current().IncBlobCleanup("failed")
	}
}
