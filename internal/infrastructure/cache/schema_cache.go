package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"facet/internal/domain/attribute"
	"facet/internal/domain/attributeset"
	"facet/pkg/logger"
)

// SchemaLoader supplies the definitions the cache holds. Implemented by
// the schema repositories.
type SchemaLoader interface {
	LoadAttributes(ctx context.Context) ([]*attribute.Attribute, error)
	LoadAttributeSets(ctx context.Context) ([]*attributeset.AttributeSet, error)
}

// SchemaCache keeps attribute and set definitions in memory, keyed by
// code, and reloads them on NOTIFY events published by the schema
// repositories through an Invalidator.
type SchemaCache struct {
	pool   *pgxpool.Pool
	loader SchemaLoader

	mu         sync.RWMutex
	attributes map[string]*attribute.Attribute
	sets       map[string]*attributeset.AttributeSet

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewSchemaCache creates a schema cache over a dedicated pool connection.
func NewSchemaCache(pool *pgxpool.Pool, loader SchemaLoader) *SchemaCache {
	return &SchemaCache{
		pool:       pool,
		loader:     loader,
		attributes: make(map[string]*attribute.Attribute),
		sets:       make(map[string]*attributeset.AttributeSet),
	}
}

// Start loads the initial snapshot and begins listening for NOTIFY
// events.
func (c *SchemaCache) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	if c.started {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lifecycleMu.Unlock()

	if err := c.reload(c.ctx, ""); err != nil {
		c.Stop()
		return err
	}

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "schema cache started")
	return nil
}

// Stop gracefully stops the cache listener.
func (c *SchemaCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	logger.Info(context.Background(), "schema cache stopped")
}

// Attribute returns the cached definition for a code, or nil.
func (c *SchemaCache) Attribute(code string) *attribute.Attribute {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attributes[code]
}

// AttributeSet returns the cached definition for a code, or nil.
func (c *SchemaCache) AttributeSet(code string) *attributeset.AttributeSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sets[code]
}

// listenLoop holds a dedicated connection on the NOTIFY channel,
// reacquiring after errors.
func (c *SchemaCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(c.ctx, "LISTEN "+channel); err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		c.waitForNotifications(conn)
		conn.Release()
	}
}

func (c *SchemaCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Timeout bounds how long shutdown waits for the blocking read.
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			continue
		}

		kind := strings.TrimSpace(notification.Payload)
		logger.Debug(c.ctx, "schema change notification", "kind", kind)
		if err := c.reload(c.ctx, kind); err != nil {
			logger.Error(c.ctx, "failed to reload schema cache", "kind", kind, "error", err)
		}
	}
}

// reload refreshes the portions of the snapshot the kind names; an empty
// or unknown kind refreshes everything.
func (c *SchemaCache) reload(ctx context.Context, kind string) error {
	reloadAttrs := kind == "" || kind == KindAttributes
	reloadSets := kind == "" || kind == KindAttributeSets || kind == KindAttributes

	var (
		attrs []*attribute.Attribute
		sets  []*attributeset.AttributeSet
		err   error
	)
	if reloadAttrs {
		if attrs, err = c.loader.LoadAttributes(ctx); err != nil {
			return err
		}
	}
	if reloadSets {
		if sets, err = c.loader.LoadAttributeSets(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	if reloadAttrs {
		c.attributes = make(map[string]*attribute.Attribute, len(attrs))
		for _, a := range attrs {
			c.attributes[a.Code] = a
		}
	}
	if reloadSets {
		c.sets = make(map[string]*attributeset.AttributeSet, len(sets))
		for _, s := range sets {
			c.sets[s.Code] = s
		}
	}
	c.mu.Unlock()

	logger.Info(ctx, "schema cache reloaded",
		"kind", kind, "attributes", len(attrs), "sets", len(sets))
	return nil
}
