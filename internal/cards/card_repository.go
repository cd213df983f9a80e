package cards

import (
	"fmt"

	"stockdesk/internal/repository"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

const cardTable = "card_cache"

// CardRepository is the durable L2 tier, shared across processes.
type CardRepository struct {
	repository *repository.Repository
}

func NewCardRepository(r *repository.Repository) *CardRepository {
	return &CardRepository{repository: r}
}

func (r *CardRepository) Get(key models.StockKey) (*models.CardEntry, error) {
	var entry models.CardEntry
	query := r.repository.GoquDBWrapper.
		From(cardTable).
		Where(goqu.Ex{"dept_id": key.DeptID, "article": key.Article})

	found, err := query.Executor().ScanStruct(&entry)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch card cache entry %s: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	return &entry, nil
}

func (r *CardRepository) Upsert(key models.StockKey, payload []byte, imageRef string) error {
	query := r.repository.GoquDBWrapper.Insert(cardTable).
		Rows(goqu.Record{
			"dept_id":   key.DeptID,
			"article":   key.Article,
			"payload":   payload,
			"image_ref": imageRef,
		}).
		OnConflict(
			goqu.DoUpdate(
				"dept_id, article",
				goqu.Record{
					"payload":    goqu.L("EXCLUDED.payload"),
					"image_ref":  goqu.L("EXCLUDED.image_ref"),
					"updated_at": goqu.L("now()"),
				},
			),
		)

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to upsert card cache entry %s: %w", key, err)
	}
	return nil
}

// UpdateImageRef patches only the image reference, leaving the payload
// untouched.
func (r *CardRepository) UpdateImageRef(key models.StockKey, imageRef string) error {
	query := r.repository.GoquDBWrapper.Update(cardTable).
		Set(goqu.Record{
			"image_ref":  imageRef,
			"updated_at": goqu.L("now()"),
		}).
		Where(goqu.Ex{"dept_id": key.DeptID, "article": key.Article})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update image ref for %s: %w", key, err)
	}
	return nil
}

func (r *CardRepository) Delete(keys ...models.StockKey) error {
	for _, key := range keys {
		query := r.repository.GoquDBWrapper.Delete(cardTable).
			Where(goqu.Ex{"dept_id": key.DeptID, "article": key.Article})
		if _, err := query.Executor().Exec(); err != nil {
			return fmt.Errorf("failed to delete card cache entry %s: %w", key, err)
		}
	}
	return nil
}

// DeleteTx removes entries inside a caller transaction so the
// invalidation commits atomically with the ledger write that motivated
// it.
func (r *CardRepository) DeleteTx(tx *goqu.TxDatabase, keys ...models.StockKey) error {
	for _, key := range keys {
		query := tx.Delete(cardTable).
			Where(goqu.Ex{"dept_id": key.DeptID, "article": key.Article})
		if _, err := query.Executor().Exec(); err != nil {
			return fmt.Errorf("failed to delete card cache entry %s: %w", key, err)
		}
	}
	return nil
}
