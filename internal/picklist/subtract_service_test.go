package picklist

import (
	"errors"
	"testing"

	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newSubtractService(stocks *MockStockStore, cache *MockCacheInvalidator, audit *MockAuditor) *SubtractService {
	return &SubtractService{
		stocks: stocks,
		cache:  cache,
		audit:  audit,
		logger: zap.NewNop(),
		runTx:  passthroughTx,
	}
}

func TestSubtractBatchClampsAtZero(t *testing.T) {
	stocks := new(MockStockStore)
	cache := new(MockCacheInvalidator)
	audit := new(MockAuditor)
	service := newSubtractService(stocks, cache, audit)

	key := models.StockKey{DeptID: "100", Article: "12345678"}

	stocks.On("GetForUpdate", mock.Anything, "100", "12345678").
		Return(&models.StockItem{DeptID: "100", Article: "12345678", Qty: 0}, nil).Once()
	stocks.On("UpdateQty", mock.Anything, "100", "12345678", 0.0).Return(nil).Once()
	cache.On("InvalidateL2Tx", mock.Anything, []models.StockKey{key}).Return(nil).Once()
	cache.On("DropL1", []models.StockKey{key}).Once()
	audit.On("Log", "subtract", mock.Anything, mock.Anything).Once()

	report, err := service.SubtractBatch([]SubtractItem{{DeptID: "100", Article: "12345678", Qty: 4}})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.OK)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0.0, report.Lines[0].Before)
	assert.Equal(t, 0.0, report.Lines[0].After)
	assert.Empty(t, report.Lines[0].Error)

	stocks.AssertExpectations(t)
}

func TestSubtractBatchAggregatesDuplicates(t *testing.T) {
	stocks := new(MockStockStore)
	cache := new(MockCacheInvalidator)
	audit := new(MockAuditor)
	service := newSubtractService(stocks, cache, audit)

	key := models.StockKey{DeptID: "100", Article: "12345678"}

	stocks.On("GetForUpdate", mock.Anything, "100", "12345678").
		Return(&models.StockItem{DeptID: "100", Article: "12345678", Qty: 10}, nil).Once()
	stocks.On("UpdateQty", mock.Anything, "100", "12345678", 5.0).Return(nil).Once()
	cache.On("InvalidateL2Tx", mock.Anything, []models.StockKey{key}).Return(nil).Once()
	cache.On("DropL1", []models.StockKey{key}).Once()
	audit.On("Log", "subtract", mock.Anything, mock.Anything).Once()

	report, err := service.SubtractBatch([]SubtractItem{
		{DeptID: "100", Article: "12345678", Qty: 2},
		{DeptID: "100", Article: "12345678", Qty: 3},
	})

	assert.NoError(t, err)
	assert.Len(t, report.Lines, 1)
	assert.Equal(t, 5.0, report.Lines[0].Requested)
	assert.Equal(t, 5.0, report.Lines[0].After)
}

func TestSubtractBatchMissingItemContinues(t *testing.T) {
	stocks := new(MockStockStore)
	cache := new(MockCacheInvalidator)
	audit := new(MockAuditor)
	service := newSubtractService(stocks, cache, audit)

	missing := models.StockKey{DeptID: "100", Article: "00000001"}
	present := models.StockKey{DeptID: "100", Article: "00000002"}

	stocks.On("GetForUpdate", mock.Anything, "100", "00000001").
		Return(nil, custom_error.NewNotFoundError("stock item", missing.String())).Once()
	stocks.On("GetForUpdate", mock.Anything, "100", "00000002").
		Return(&models.StockItem{DeptID: "100", Article: "00000002", Qty: 8}, nil).Once()
	stocks.On("UpdateQty", mock.Anything, "100", "00000002", 6.0).Return(nil).Once()
	cache.On("InvalidateL2Tx", mock.Anything, []models.StockKey{present}).Return(nil).Once()
	cache.On("DropL1", []models.StockKey{present}).Once()
	audit.On("Log", "subtract", mock.Anything, mock.Anything).Once()

	report, err := service.SubtractBatch([]SubtractItem{
		{DeptID: "100", Article: "00000001", Qty: 1},
		{DeptID: "100", Article: "00000002", Qty: 2},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.OK)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "item not found", report.Lines[0].Error)
	assert.Equal(t, 6.0, report.Lines[1].After)
}

func TestSubtractBatchStoreFailureRollsBack(t *testing.T) {
	stocks := new(MockStockStore)
	cache := new(MockCacheInvalidator)
	audit := new(MockAuditor)
	service := newSubtractService(stocks, cache, audit)

	key := models.StockKey{DeptID: "100", Article: "12345678"}

	stocks.On("GetForUpdate", mock.Anything, "100", "12345678").
		Return(&models.StockItem{DeptID: "100", Article: "12345678", Qty: 10}, nil).Once()
	stocks.On("UpdateQty", mock.Anything, "100", "12345678", 7.0).
		Return(errors.New("deadlock detected")).Once()

	_, err := service.SubtractBatch([]SubtractItem{{DeptID: "100", Article: key.Article, Qty: 3}})

	assert.Error(t, err)
	cache.AssertNotCalled(t, "DropL1", mock.Anything)
	audit.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubtractBatchValidation(t *testing.T) {
	service := newSubtractService(new(MockStockStore), new(MockCacheInvalidator), new(MockAuditor))

	_, err := service.SubtractBatch(nil)
	assert.True(t, custom_error.IsValidation(err))

	_, err = service.SubtractBatch([]SubtractItem{{DeptID: "", Article: "12345678", Qty: 1}})
	assert.True(t, custom_error.IsValidation(err))

	_, err = service.SubtractBatch([]SubtractItem{{DeptID: "100", Article: "12345678", Qty: -1}})
	assert.True(t, custom_error.IsValidation(err))
}

func TestAggregateItemsKeepsFirstAppearanceOrder(t *testing.T) {
	keys, quantities := aggregateItems([]SubtractItem{
		{DeptID: "100", Article: "b", Qty: 1},
		{DeptID: "100", Article: "a", Qty: 2},
		{DeptID: "100", Article: "b", Qty: 4},
	})

	assert.Equal(t, []models.StockKey{
		{DeptID: "100", Article: "b"},
		{DeptID: "100", Article: "a"},
	}, keys)
	assert.Equal(t, 5.0, quantities[models.StockKey{DeptID: "100", Article: "b"}])
	assert.Equal(t, 2.0, quantities[models.StockKey{DeptID: "100", Article: "a"}])
}
