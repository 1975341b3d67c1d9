package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// Coordinator is the only component that reads or writes cache entries.
//
// Entries are filled on the read path only, after the loader's read transaction has
// finished, and removed by prefix on the write path after commit. Each prefix carries a
// generation counter: a load only stores its result if no invalidation of its prefix
// happened since it started. A Coordinator never caches the result of a failed load.
type Coordinator struct {
	store   Store
	enc     encoder
	logger  *slog.Logger
	metrics *Metrics
	group   singleflight.Group
}

// NewCoordinator creates a Coordinator over store. Keys are namespaced with namespace;
// metrics may be nil.
func NewCoordinator(store Store, namespace string, logger *slog.Logger, metrics *Metrics) *Coordinator {
	return &Coordinator{
		store:   store,
		enc:     encoder{namespace: namespace},
		logger:  logger.With(slog.String("service", "cache")),
		metrics: metrics,
	}
}

// LoaderFunc produces the value for a cache miss.
type LoaderFunc[T any] func(ctx context.Context) (T, error)

// GetOrSet returns the cached value for key, or calls loader, caches its result for ttl
// and returns it. Concurrent misses on one key share a single loader call. Store failures
// degrade to a miss; they never fail the read.
func GetOrSet[T any](ctx context.Context, c *Coordinator, key Key, ttl time.Duration, loader LoaderFunc[T]) (T, error) {
	var zero T
	storeKey := c.enc.key(key)

	if raw, ok := c.get(ctx, key, storeKey); ok {
		var value T
		err := json.Unmarshal(raw, &value)
		if err == nil {
			c.countLookup(key, "hit")
			return value, nil
		}

		c.logger.WarnContext(ctx, "dropping undecodable cache entry",
			slog.String("key", storeKey),
			slog.Any("error", err),
		)
		c.deleteQuietly(ctx, key, storeKey)
	}
	c.countLookup(key, "miss")

	genKey := c.enc.generation(key.Prefix)
	gen, err := c.store.Generation(ctx, genKey)
	if err != nil {
		c.countStoreError(key.Resource, "generation")
		c.logger.WarnContext(ctx, "error reading cache generation",
			slog.String("key", genKey),
			slog.Any("error", err),
		)
		value, err := loader(ctx)
		if err != nil {
			c.countLoadError(key)
			return zero, err
		}
		return value, nil
	}

	// Loads started before an invalidation never serve readers that arrive after it.
	flightKey := storeKey + "#" + strconv.FormatInt(gen, 10)

	raw, err, _ := c.group.Do(flightKey, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode cache value: %w", err)
		}

		stored, err := c.store.SetIfGeneration(ctx, genKey, gen, storeKey, encoded, ttl)
		if err != nil {
			c.countStoreError(key.Resource, "set")
			c.logger.WarnContext(ctx, "error writing cache entry",
				slog.String("key", storeKey),
				slog.Any("error", err),
			)
		} else if !stored {
			c.logger.DebugContext(ctx, "discarding load invalidated while in flight",
				slog.String("key", storeKey),
			)
		}

		return encoded, nil
	})
	if err != nil {
		c.countLoadError(key)
		return zero, err
	}

	// Each caller decodes its own copy so shared loads never alias maps or slices.
	var value T
	if err := json.Unmarshal(raw.([]byte), &value); err != nil {
		return zero, fmt.Errorf("decode cache value: %w", err)
	}

	return value, nil
}

// Delete removes a single entry. Deleting an absent entry is a no-op.
func (c *Coordinator) Delete(ctx context.Context, key Key) error {
	storeKey := c.enc.key(key)
	if err := c.store.Delete(ctx, storeKey); err != nil {
		c.countStoreError(key.Resource, "delete")
		return fmt.Errorf("delete cache key: %w", err)
	}
	c.countInvalidation(key.Resource)
	return nil
}

// DeleteByPrefix removes every entry under prefix. It is idempotent and safe to call
// concurrently for the same prefix.
//
// The prefix generation is bumped before entries are removed, so a load that read the
// old generation can no longer store its result.
func (c *Coordinator) DeleteByPrefix(ctx context.Context, prefix Prefix) error {
	if _, err := c.store.IncrGeneration(ctx, c.enc.generation(prefix)); err != nil {
		c.countStoreError(prefix.Resource, "generation")
		return fmt.Errorf("bump cache generation: %w", err)
	}

	storePrefix := c.enc.prefix(prefix)
	n, err := c.store.DeletePrefix(ctx, storePrefix)
	if err != nil {
		c.countStoreError(prefix.Resource, "delete_prefix")
		return fmt.Errorf("delete cache prefix: %w", err)
	}

	c.countInvalidation(prefix.Resource)
	c.logger.DebugContext(ctx, "cache prefix invalidated",
		slog.String("prefix", storePrefix),
		slog.Int("removed", n),
	)
	return nil
}

func (c *Coordinator) get(ctx context.Context, key Key, storeKey string) ([]byte, bool) {
	raw, ok, err := c.store.Get(ctx, storeKey)
	if err != nil {
		c.countStoreError(key.Resource, "get")
		c.logger.WarnContext(ctx, "error reading cache entry",
			slog.String("key", storeKey),
			slog.Any("error", err),
		)
		return nil, false
	}
	return raw, ok
}

func (c *Coordinator) deleteQuietly(ctx context.Context, key Key, storeKey string) {
	if err := c.store.Delete(ctx, storeKey); err != nil {
		c.countStoreError(key.Resource, "delete")
	}
}

func (c *Coordinator) countLookup(key Key, result string) {
	if c.metrics != nil {
		c.metrics.Lookups.WithLabelValues(string(key.Resource), result).Inc()
	}
}

func (c *Coordinator) countLoadError(key Key) {
	if c.metrics != nil {
		c.metrics.LoadErrors.WithLabelValues(string(key.Resource)).Inc()
	}
}

func (c *Coordinator) countInvalidation(resource Resource) {
	if c.metrics != nil {
		c.metrics.Invalidations.WithLabelValues(string(resource)).Inc()
	}
}

func (c *Coordinator) countStoreError(resource Resource, op string) {
	if c.metrics != nil {
		c.metrics.StoreErrors.WithLabelValues(string(resource), op).Inc()
	}
}
