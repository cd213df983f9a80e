package picklist

import (
	"errors"
	"testing"

	"stockdesk/pkg/auditlog"
	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockStockStore struct {
	mock.Mock
}

func (m *MockStockStore) GetForUpdate(tx *goqu.TxDatabase, deptID, article string) (*models.StockItem, error) {
	args := m.Called(tx, deptID, article)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockItem), args.Error(1)
}

func (m *MockStockStore) UpdateQty(tx *goqu.TxDatabase, deptID, article string, qty float64) error {
	args := m.Called(tx, deptID, article, qty)
	return args.Error(0)
}

type MockPicklistStore struct {
	mock.Mock
}

func (m *MockPicklistStore) UpsertAllocation(tx *goqu.TxDatabase, userID string, key models.StockKey, qty, price float64) error {
	args := m.Called(tx, userID, key, qty, price)
	return args.Error(0)
}

func (m *MockPicklistStore) UpsertOverflow(tx *goqu.TxDatabase, userID string, key models.StockKey, qty, price float64) error {
	args := m.Called(tx, userID, key, qty, price)
	return args.Error(0)
}

func (m *MockPicklistStore) UserDepartment(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *MockPicklistStore) ListForUser(userID string) ([]models.PicklistLine, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PicklistLine), args.Error(1)
}

func (m *MockPicklistStore) ClearForUser(tx *goqu.TxDatabase, userID string) error {
	args := m.Called(tx, userID)
	return args.Error(0)
}

type MockCacheInvalidator struct {
	mock.Mock
}

func (m *MockCacheInvalidator) InvalidateL2Tx(tx *goqu.TxDatabase, keys ...models.StockKey) error {
	args := m.Called(tx, keys)
	return args.Error(0)
}

func (m *MockCacheInvalidator) DropL1(keys ...models.StockKey) {
	m.Called(keys)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) Log(action string, data interface{}, item auditlog.Auditable) {
	m.Called(action, data, item)
}

func passthroughTx(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) error {
	return fn(nil)
}

func newAllocationService(stocks *MockStockStore, picklists *MockPicklistStore, cache *MockCacheInvalidator, audit *MockAuditor) *AllocationService {
	return &AllocationService{
		stocks:    stocks,
		picklists: picklists,
		cache:     cache,
		audit:     audit,
		logger:    zap.NewNop(),
		runTx:     passthroughTx,
	}
}

func TestAllocatePartialFill(t *testing.T) {
	stocks := new(MockStockStore)
	picklists := new(MockPicklistStore)
	cache := new(MockCacheInvalidator)
	audit := new(MockAuditor)
	service := newAllocationService(stocks, picklists, cache, audit)

	key := models.StockKey{DeptID: "100", Article: "12345678"}

	picklists.On("UserDepartment", "1").Return("", nil).Once()
	stocks.On("GetForUpdate", mock.Anything, "100", "12345678").
		Return(&models.StockItem{DeptID: "100", Article: "12345678", Qty: 10, Price: 2.5}, nil).Once()
	stocks.On("UpdateQty", mock.Anything, "100", "12345678", 0.0).Return(nil).Once()
	picklists.On("UpsertAllocation", mock.Anything, "1", key, 10.0, 2.5).Return(nil).Once()
	picklists.On("UpsertOverflow", mock.Anything, "1", key, 5.0, 2.5).Return(nil).Once()
	cache.On("InvalidateL2Tx", mock.Anything, []models.StockKey{key}).Return(nil).Once()
	cache.On("DropL1", []models.StockKey{key}).Once()
	audit.On("Log", "allocate", mock.Anything, mock.Anything).Once()

	result, err := service.Allocate("1", "100", "12345678", 15)

	assert.NoError(t, err)
	assert.Equal(t, 10.0, result.Alloc)
	assert.Equal(t, 5.0, result.Overflow)

	stocks.AssertExpectations(t)
	picklists.AssertExpectations(t)
	cache.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestAllocateFullFillSkipsOverflow(t *testing.T) {
	stocks := new(MockStockStore)
	picklists := new(MockPicklistStore)
	cache := new(MockCacheInvalidator)
	audit := new(MockAuditor)
	service := newAllocationService(stocks, picklists, cache, audit)

	key := models.StockKey{DeptID: "100", Article: "12345678"}

	picklists.On("UserDepartment", "1").Return("", nil).Once()
	stocks.On("GetForUpdate", mock.Anything, "100", "12345678").
		Return(&models.StockItem{DeptID: "100", Article: "12345678", Qty: 10, Price: 1.0}, nil).Once()
	stocks.On("UpdateQty", mock.Anything, "100", "12345678", 7.0).Return(nil).Once()
	picklists.On("UpsertAllocation", mock.Anything, "1", key, 3.0, 1.0).Return(nil).Once()
	cache.On("InvalidateL2Tx", mock.Anything, []models.StockKey{key}).Return(nil).Once()
	cache.On("DropL1", []models.StockKey{key}).Once()
	audit.On("Log", "allocate", mock.Anything, mock.Anything).Once()

	result, err := service.Allocate("1", "100", "12345678", 3)

	assert.NoError(t, err)
	assert.Equal(t, 3.0, result.Alloc)
	assert.Equal(t, 0.0, result.Overflow)
	picklists.AssertNotCalled(t, "UpsertOverflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAllocateMissingItemBecomesOverflow(t *testing.T) {
	stocks := new(MockStockStore)
	picklists := new(MockPicklistStore)
	cache := new(MockCacheInvalidator)
	audit := new(MockAuditor)
	service := newAllocationService(stocks, picklists, cache, audit)

	key := models.StockKey{DeptID: "100", Article: "99999999"}

	picklists.On("UserDepartment", "1").Return("", nil).Once()
	stocks.On("GetForUpdate", mock.Anything, "100", "99999999").
		Return(nil, custom_error.NewNotFoundError("stock item", key.String())).Once()
	picklists.On("UpsertAllocation", mock.Anything, "1", key, 0.0, 0.0).Return(nil).Once()
	picklists.On("UpsertOverflow", mock.Anything, "1", key, 4.0, 0.0).Return(nil).Once()
	cache.On("InvalidateL2Tx", mock.Anything, []models.StockKey{key}).Return(nil).Once()
	cache.On("DropL1", []models.StockKey{key}).Once()
	audit.On("Log", "allocate", mock.Anything, mock.Anything).Once()

	result, err := service.Allocate("1", "100", "99999999", 4)

	assert.NoError(t, err)
	assert.Equal(t, 0.0, result.Alloc)
	assert.Equal(t, 4.0, result.Overflow)
	stocks.AssertNotCalled(t, "UpdateQty", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAllocateRejectsForeignDepartment(t *testing.T) {
	stocks := new(MockStockStore)
	picklists := new(MockPicklistStore)
	cache := new(MockCacheInvalidator)
	audit := new(MockAuditor)
	service := newAllocationService(stocks, picklists, cache, audit)

	picklists.On("UserDepartment", "1").Return("200", nil).Once()

	_, err := service.Allocate("1", "100", "12345678", 5)

	assert.Error(t, err)
	assert.True(t, custom_error.IsValidation(err))
	stocks.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAllocateValidation(t *testing.T) {
	service := newAllocationService(new(MockStockStore), new(MockPicklistStore), new(MockCacheInvalidator), new(MockAuditor))

	_, err := service.Allocate("", "100", "12345678", 5)
	assert.True(t, custom_error.IsValidation(err))

	_, err = service.Allocate("1", "100", "12345678", 0)
	assert.True(t, custom_error.IsValidation(err))

	_, err = service.Allocate("1", "100", "12345678", -2)
	assert.True(t, custom_error.IsValidation(err))
}

func TestAllocateRollsBackOnDebitFailure(t *testing.T) {
	stocks := new(MockStockStore)
	picklists := new(MockPicklistStore)
	cache := new(MockCacheInvalidator)
	audit := new(MockAuditor)
	service := newAllocationService(stocks, picklists, cache, audit)

	picklists.On("UserDepartment", "1").Return("", nil).Once()
	stocks.On("GetForUpdate", mock.Anything, "100", "12345678").
		Return(&models.StockItem{DeptID: "100", Article: "12345678", Qty: 10}, nil).Once()
	stocks.On("UpdateQty", mock.Anything, "100", "12345678", 5.0).
		Return(errors.New("connection reset")).Once()

	_, err := service.Allocate("1", "100", "12345678", 5)

	assert.Error(t, err)
	cache.AssertNotCalled(t, "DropL1", mock.Anything)
	audit.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything)
}
