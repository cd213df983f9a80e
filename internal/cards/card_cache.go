package cards

import (
	"encoding/json"
	"fmt"
	"time"

	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

// cardStore is the durable L2 contract the cache runs against.
type cardStore interface {
	Get(key models.StockKey) (*models.CardEntry, error)
	Upsert(key models.StockKey, payload []byte, imageRef string) error
	UpdateImageRef(key models.StockKey, imageRef string) error
	Delete(keys ...models.StockKey) error
	DeleteTx(tx *goqu.TxDatabase, keys ...models.StockKey) error
}

// stockGetter resolves the ledger row behind a card on render.
type stockGetter interface {
	Get(deptID, article string) (*models.StockItem, error)
}

// CardCache serves rendered item cards from two tiers: a process-local
// LRU with TTL (L1) and a durable shared store (L2). The cache is a pure
// derived view of the ledger; no entry is ever treated as authoritative.
type CardCache struct {
	l1        *l1Cache
	l2        cardStore
	l2Enabled bool
	stocks    stockGetter
	renderer  Renderer
	logger    *zap.Logger
}

func NewCardCache(l2 cardStore, stocks stockGetter, renderer Renderer, maxItems int, ttl time.Duration, l2Enabled bool, logger *zap.Logger) *CardCache {
	return &CardCache{
		l1:        newL1Cache(maxItems, ttl),
		l2:        l2,
		l2Enabled: l2Enabled,
		stocks:    stocks,
		renderer:  renderer,
		logger:    logger,
	}
}

// Get checks L1 first, then L2 (populating L1 on an L2 hit). A miss
// returns found=false.
func (c *CardCache) Get(key models.StockKey) (models.CardPayload, string, bool, error) {
	if entry, ok := c.l1.get(key); ok {
		return entry.Payload, entry.ImageRef, true, nil
	}

	if !c.l2Enabled {
		return models.CardPayload{}, "", false, nil
	}

	row, err := c.l2.Get(key)
	if err != nil {
		return models.CardPayload{}, "", false, err
	}
	if row == nil {
		return models.CardPayload{}, "", false, nil
	}

	var payload models.CardPayload
	if err := json.Unmarshal(row.Payload, &payload); err != nil {
		// A corrupt L2 row is treated as a miss and dropped.
		c.logger.Warn("dropping unreadable card cache entry", zap.String("key", key.String()), zap.Error(err))
		if delErr := c.l2.Delete(key); delErr != nil {
			return models.CardPayload{}, "", false, delErr
		}
		return models.CardPayload{}, "", false, nil
	}

	c.l1.set(key, l1Entry{Payload: payload, ImageRef: row.ImageRef})
	return payload, row.ImageRef, true, nil
}

// Set always writes L1 and writes L2 when the durable tier is enabled.
func (c *CardCache) Set(key models.StockKey, payload models.CardPayload, imageRef string) error {
	c.l1.set(key, l1Entry{Payload: payload, ImageRef: imageRef})

	if !c.l2Enabled {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode card payload for %s: %w", key, err)
	}
	return c.l2.Upsert(key, raw, imageRef)
}

// UpdateImageRef patches only the image reference in both tiers.
func (c *CardCache) UpdateImageRef(key models.StockKey, imageRef string) error {
	if entry, ok := c.l1.get(key); ok {
		entry.ImageRef = imageRef
		c.l1.set(key, entry)
	}

	if !c.l2Enabled {
		return nil
	}
	return c.l2.UpdateImageRef(key, imageRef)
}

// Invalidate removes keys from both tiers. Absent keys are a no-op.
func (c *CardCache) Invalidate(keys ...models.StockKey) error {
	for _, key := range keys {
		c.l1.invalidate(key)
	}
	if !c.l2Enabled {
		return nil
	}
	return c.l2.Delete(keys...)
}

// InvalidateL2Tx deletes the L2 rows inside a caller transaction, so the
// invalidation commits atomically with the ledger write. The caller must
// follow a successful commit with DropL1 for the same keys.
func (c *CardCache) InvalidateL2Tx(tx *goqu.TxDatabase, keys ...models.StockKey) error {
	if !c.l2Enabled {
		return nil
	}
	return c.l2.DeleteTx(tx, keys...)
}

// DropL1 removes keys from the process-local tier only. Called after a
// transaction carrying InvalidateL2Tx has committed.
func (c *CardCache) DropL1(keys ...models.StockKey) {
	for _, key := range keys {
		c.l1.invalidate(key)
	}
}

// GetOrRender returns the cached card or renders one through the
// collaborator and stores it. This is the only path allowed to observe a
// missing ledger row; it renders a well-formed "not found" payload.
func (c *CardCache) GetOrRender(key models.StockKey) (models.CardPayload, string, error) {
	payload, imageRef, found, err := c.Get(key)
	if err != nil {
		return models.CardPayload{}, "", err
	}
	if found {
		return payload, imageRef, nil
	}

	item, err := c.stocks.Get(key.DeptID, key.Article)
	if err != nil && !custom_error.IsNotFound(err) {
		return models.CardPayload{}, "", err
	}

	payload, imageRef = c.renderer.Render(key, item)
	if err := c.Set(key, payload, imageRef); err != nil {
		return models.CardPayload{}, "", err
	}
	return payload, imageRef, nil
}

// Clear empties the process-local tier, for shutdown or releases.
func (c *CardCache) Clear() {
	c.l1.clear()
}
