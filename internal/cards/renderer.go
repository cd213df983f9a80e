package cards

import "stockdesk/pkg/models"

// Renderer produces the display payload for one ledger item. A nil item
// means the ledger has no such row; the renderer must still return a
// well-formed payload so the calling UI always has something displayable.
type Renderer interface {
	Render(key models.StockKey, item *models.StockItem) (models.CardPayload, string)
}

// CardRenderer is the default renderer assembling a card straight from
// the ledger row. Image references come from an external collaborator
// and are patched in separately via UpdateImageRef.
type CardRenderer struct{}

func NewCardRenderer() *CardRenderer {
	return &CardRenderer{}
}

func (r *CardRenderer) Render(key models.StockKey, item *models.StockItem) (models.CardPayload, string) {
	if item == nil {
		return models.CardPayload{
			DeptID:  key.DeptID,
			Article: key.Article,
			Found:   false,
		}, ""
	}

	return models.CardPayload{
		Title:        item.Name,
		DeptID:       item.DeptID,
		Article:      item.Article,
		Qty:          item.Qty,
		Price:        item.Price,
		StockSum:     item.StockSum(),
		MonthsNoMove: item.MonthsNoMove,
		Active:       item.Active,
		Found:        true,
	}, ""
}
