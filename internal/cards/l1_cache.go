package cards

import (
	"time"

	"stockdesk/pkg/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type l1Entry struct {
	Payload  models.CardPayload
	ImageRef string
}

// l1Cache is the process-local tier: bounded LRU with a per-entry TTL.
// It is constructed per CardCache instance, never shared as package
// state, so tests can run isolated instances.
type l1Cache struct {
	lru *expirable.LRU[models.StockKey, l1Entry]
}

func newL1Cache(maxItems int, ttl time.Duration) *l1Cache {
	return &l1Cache{
		lru: expirable.NewLRU[models.StockKey, l1Entry](maxItems, nil, ttl),
	}
}

func (c *l1Cache) get(key models.StockKey) (l1Entry, bool) {
	return c.lru.Get(key)
}

func (c *l1Cache) set(key models.StockKey, entry l1Entry) {
	c.lru.Add(key, entry)
}

func (c *l1Cache) invalidate(key models.StockKey) {
	c.lru.Remove(key)
}

func (c *l1Cache) clear() {
	c.lru.Purge()
}
