// Package assetcache is the local content-addressed asset store: a memory
// tier for the current process plus a durable sqlite tier shared across
// runs. Both tiers are keyed by content hash, so writes are idempotent and
// concurrent writers need no coordination beyond the database itself.
package assetcache

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openpaint/cloudsync/cloud"
	"github.com/openpaint/cloudsync/db"
	"github.com/openpaint/cloudsync/errors"
)

// Cache is a two-tier asset store. The durable tier is consulted only on a
// memory-tier miss; durable hits are promoted back into memory.
type Cache struct {
	sqlDB  *sql.DB
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	memory map[string]*cloud.Asset
}

// Open opens (creating if needed) the durable cache at path and runs
// pending migrations.
func Open(path string, logger *zap.SugaredLogger) (*Cache, error) {
	sqlDB, err := db.Open(path, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open asset cache database")
	}
	if err := db.Migrate(sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to migrate asset cache database")
	}
	return New(sqlDB, logger), nil
}

// New wraps an already-open database. The caller owns migrations.
func New(sqlDB *sql.DB, logger *zap.SugaredLogger) *Cache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cache{
		sqlDB:  sqlDB,
		logger: logger,
		memory: make(map[string]*cloud.Asset),
	}
}

// Close closes the durable tier.
func (c *Cache) Close() error {
	return c.sqlDB.Close()
}

// Get returns the cached asset for hash, or (nil, false, nil) on a miss.
// A durable-tier hit refreshes the entry's last-access time, which is what
// Prune orders eviction by.
func (c *Cache) Get(ctx context.Context, hash string) (*cloud.Asset, bool, error) {
	c.mu.RLock()
	asset, ok := c.memory[hash]
	c.mu.RUnlock()
	if ok {
		return asset, true, nil
	}

	row := c.sqlDB.QueryRowContext(ctx,
		`SELECT blob, content_type, size_bytes FROM assets WHERE hash = ?`, hash)

	var data []byte
	var contentType string
	var sizeBytes int64
	if err := row.Scan(&data, &contentType, &sizeBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "failed to read cached asset %s", hash)
	}

	if _, err := c.sqlDB.ExecContext(ctx,
		`UPDATE assets SET last_accessed_at = ? WHERE hash = ?`,
		time.Now().UTC(), hash); err != nil {
		c.logger.Warnw("failed to touch asset access time", "hash", hash, "error", err)
	}

	asset = &cloud.Asset{
		Hash:        hash,
		Data:        data,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
	}

	c.mu.Lock()
	c.memory[hash] = asset
	c.mu.Unlock()
	return asset, true, nil
}

// Put writes an asset through both tiers. Same hash always means same
// bytes, so a replace never changes content, only timestamps.
func (c *Cache) Put(ctx context.Context, asset *cloud.Asset) error {
	if !cloud.ValidContentHash(asset.Hash) {
		return errors.Newf("refusing to cache asset with malformed hash %q", asset.Hash)
	}

	now := time.Now().UTC()
	_, err := c.sqlDB.ExecContext(ctx,
		`INSERT OR REPLACE INTO assets (hash, blob, content_type, size_bytes, updated_at, last_accessed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		asset.Hash, asset.Data, asset.ContentType, int64(len(asset.Data)), now, now)
	if err != nil {
		return errors.Wrapf(err, "failed to cache asset %s", asset.Hash)
	}

	c.mu.Lock()
	c.memory[asset.Hash] = asset
	c.mu.Unlock()
	return nil
}

// Stats summarizes the durable tier plus the current memory tier.
type Stats struct {
	Entries       int   `json:"entries"`
	TotalBytes    int64 `json:"totalBytes"`
	MemoryEntries int   `json:"memoryEntries"`
}

// Stats reports cache occupancy.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := c.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM assets`)
	if err := row.Scan(&stats.Entries, &stats.TotalBytes); err != nil {
		return Stats{}, errors.Wrap(err, "failed to read cache stats")
	}

	c.mu.RLock()
	stats.MemoryEntries = len(c.memory)
	c.mu.RUnlock()
	return stats, nil
}

// Prune evicts least-recently-accessed assets until the durable tier holds
// at most maxBytes. Eviction is explicit: nothing in the engine evicts
// automatically, so cached assets survive until the user asks for space
// back. Returns the number of assets removed and the bytes freed.
func (c *Cache) Prune(ctx context.Context, maxBytes int64) (int, int64, error) {
	stats, err := c.Stats(ctx)
	if err != nil {
		return 0, 0, err
	}
	if stats.TotalBytes <= maxBytes {
		return 0, 0, nil
	}

	rows, err := c.sqlDB.QueryContext(ctx,
		`SELECT hash, size_bytes FROM assets ORDER BY last_accessed_at ASC`)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to list assets for prune")
	}
	defer rows.Close()

	var victims []string
	var freed int64
	remaining := stats.TotalBytes
	for rows.Next() && remaining > maxBytes {
		var hash string
		var size int64
		if err := rows.Scan(&hash, &size); err != nil {
			return 0, 0, errors.Wrap(err, "failed to scan asset row")
		}
		victims = append(victims, hash)
		freed += size
		remaining -= size
	}
	if err := rows.Err(); err != nil {
		return 0, 0, errors.Wrap(err, "failed iterating assets for prune")
	}

	for _, hash := range victims {
		if _, err := c.sqlDB.ExecContext(ctx, `DELETE FROM assets WHERE hash = ?`, hash); err != nil {
			return 0, 0, errors.Wrapf(err, "failed to evict asset %s", hash)
		}
	}

	c.mu.Lock()
	for _, hash := range victims {
		delete(c.memory, hash)
	}
	c.mu.Unlock()

	c.logger.Infow("asset cache pruned",
		"evicted", len(victims),
		"freed_bytes", freed,
		"remaining_bytes", remaining)
	return len(victims), freed, nil
}
