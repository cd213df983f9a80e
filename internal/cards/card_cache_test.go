package cards

import (
	"encoding/json"
	"testing"
	"time"

	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeCardStore is an in-memory stand-in for the durable tier.
type fakeCardStore struct {
	rows map[models.StockKey]*models.CardEntry
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{rows: make(map[models.StockKey]*models.CardEntry)}
}

func (f *fakeCardStore) Get(key models.StockKey) (*models.CardEntry, error) {
	return f.rows[key], nil
}

func (f *fakeCardStore) Upsert(key models.StockKey, payload []byte, imageRef string) error {
	f.rows[key] = &models.CardEntry{DeptID: key.DeptID, Article: key.Article, Payload: payload, ImageRef: imageRef}
	return nil
}

func (f *fakeCardStore) UpdateImageRef(key models.StockKey, imageRef string) error {
	if row, ok := f.rows[key]; ok {
		row.ImageRef = imageRef
	}
	return nil
}

func (f *fakeCardStore) Delete(keys ...models.StockKey) error {
	for _, key := range keys {
		delete(f.rows, key)
	}
	return nil
}

func (f *fakeCardStore) DeleteTx(tx *goqu.TxDatabase, keys ...models.StockKey) error {
	return f.Delete(keys...)
}

type fakeStockGetter struct {
	items map[models.StockKey]*models.StockItem
}

func (f *fakeStockGetter) Get(deptID, article string) (*models.StockItem, error) {
	key := models.StockKey{DeptID: deptID, Article: article}
	if item, ok := f.items[key]; ok {
		return item, nil
	}
	return nil, custom_error.NewNotFoundError("stock item", key.String())
}

func newTestCache(t *testing.T, l2 cardStore, stocks stockGetter, l2Enabled bool) *CardCache {
	t.Helper()
	return NewCardCache(l2, stocks, NewCardRenderer(), 16, time.Minute, l2Enabled, zap.NewNop())
}

func TestCardCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, newFakeCardStore(), &fakeStockGetter{}, true)
	key := models.StockKey{DeptID: "100", Article: "12345678"}

	err := cache.Set(key, models.CardPayload{Title: "X", Found: true}, "img-1")
	assert.NoError(t, err)

	payload, imageRef, found, err := cache.Get(key)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "X", payload.Title)
	assert.Equal(t, "img-1", imageRef)
}

func TestCardCacheInvalidateIsIdempotent(t *testing.T) {
	cache := newTestCache(t, newFakeCardStore(), &fakeStockGetter{}, true)
	key := models.StockKey{DeptID: "100", Article: "12345678"}

	assert.NoError(t, cache.Set(key, models.CardPayload{Title: "X"}, ""))
	assert.NoError(t, cache.Invalidate(key))

	_, _, found, err := cache.Get(key)
	assert.NoError(t, err)
	assert.False(t, found)

	// Invalidating an absent key is a no-op.
	assert.NoError(t, cache.Invalidate(key))
}

func TestCardCacheL2HitPopulatesL1(t *testing.T) {
	l2 := newFakeCardStore()
	cache := newTestCache(t, l2, &fakeStockGetter{}, true)
	key := models.StockKey{DeptID: "100", Article: "12345678"}

	raw, _ := json.Marshal(models.CardPayload{Title: "warm", Found: true})
	assert.NoError(t, l2.Upsert(key, raw, "img-2"))

	payload, imageRef, found, err := cache.Get(key)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "warm", payload.Title)
	assert.Equal(t, "img-2", imageRef)

	// A second lookup is served from L1 even after the L2 row is gone.
	assert.NoError(t, l2.Delete(key))
	_, _, found, err = cache.Get(key)
	assert.NoError(t, err)
	assert.True(t, found)
}

func TestCardCacheCorruptL2RowIsDropped(t *testing.T) {
	l2 := newFakeCardStore()
	cache := newTestCache(t, l2, &fakeStockGetter{}, true)
	key := models.StockKey{DeptID: "100", Article: "12345678"}

	assert.NoError(t, l2.Upsert(key, []byte("{not json"), ""))

	_, _, found, err := cache.Get(key)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, l2.rows[key])
}

func TestCardCacheL2Disabled(t *testing.T) {
	l2 := newFakeCardStore()
	cache := newTestCache(t, l2, &fakeStockGetter{}, false)
	key := models.StockKey{DeptID: "100", Article: "12345678"}

	assert.NoError(t, cache.Set(key, models.CardPayload{Title: "local"}, ""))
	assert.Empty(t, l2.rows)

	payload, _, found, err := cache.Get(key)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "local", payload.Title)
}

func TestGetOrRenderMissingItem(t *testing.T) {
	cache := newTestCache(t, newFakeCardStore(), &fakeStockGetter{}, true)
	key := models.StockKey{DeptID: "100", Article: "99999999"}

	payload, imageRef, err := cache.GetOrRender(key)

	assert.NoError(t, err)
	assert.False(t, payload.Found)
	assert.Equal(t, "100", payload.DeptID)
	assert.Equal(t, "99999999", payload.Article)
	assert.Empty(t, imageRef)
}

func TestGetOrRenderFromLedger(t *testing.T) {
	key := models.StockKey{DeptID: "100", Article: "12345678"}
	stocks := &fakeStockGetter{items: map[models.StockKey]*models.StockItem{
		key: {DeptID: "100", Article: "12345678", Name: "Widget", Qty: 7, Price: 2, Active: true},
	}}
	cache := newTestCache(t, newFakeCardStore(), stocks, true)

	payload, _, err := cache.GetOrRender(key)

	assert.NoError(t, err)
	assert.True(t, payload.Found)
	assert.Equal(t, "Widget", payload.Title)
	assert.Equal(t, 14.0, payload.StockSum)

	// Rendered card is now cached.
	_, _, found, err := cache.Get(key)
	assert.NoError(t, err)
	assert.True(t, found)
}

func TestUpdateImageRefTouchesBothTiers(t *testing.T) {
	l2 := newFakeCardStore()
	cache := newTestCache(t, l2, &fakeStockGetter{}, true)
	key := models.StockKey{DeptID: "100", Article: "12345678"}

	assert.NoError(t, cache.Set(key, models.CardPayload{Title: "X"}, "old"))
	assert.NoError(t, cache.UpdateImageRef(key, "new"))

	_, imageRef, _, err := cache.Get(key)
	assert.NoError(t, err)
	assert.Equal(t, "new", imageRef)
	assert.Equal(t, "new", l2.rows[key].ImageRef)
}

func TestL1CacheExpires(t *testing.T) {
	l1 := newL1Cache(4, 20*time.Millisecond)
	key := models.StockKey{DeptID: "100", Article: "12345678"}

	l1.set(key, l1Entry{Payload: models.CardPayload{Title: "short-lived"}})
	_, ok := l1.get(key)
	assert.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = l1.get(key)
	assert.False(t, ok)
}

func TestL1CacheEvictsBeyondCapacity(t *testing.T) {
	l1 := newL1Cache(2, time.Minute)

	l1.set(models.StockKey{DeptID: "1", Article: "a"}, l1Entry{})
	l1.set(models.StockKey{DeptID: "1", Article: "b"}, l1Entry{})
	l1.set(models.StockKey{DeptID: "1", Article: "c"}, l1Entry{})

	_, ok := l1.get(models.StockKey{DeptID: "1", Article: "a"})
	assert.False(t, ok)
	_, ok = l1.get(models.StockKey{DeptID: "1", Article: "c"})
	assert.True(t, ok)
}
