package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"stockledger/internal/models"
	"stockledger/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transferFixture struct {
	svc       *transferService
	movements *movementService
	store     *memStore
	mock      sqlmock.Sqlmock
	publisher *recordingPublisher
	w1, w2    int64
	w3        int64
}

func newTransferFixture(t *testing.T) *transferFixture {
	db, mock := newMockDB(t)
	m := newMemStore()
	pub := &recordingPublisher{}
	f := &transferFixture{
		store:     m,
		mock:      mock,
		publisher: pub,
		w1:        m.addWarehouse("W1", models.WarehouseStatusActive),
		w2:        m.addWarehouse("W2", models.WarehouseStatusActive),
		w3:        m.addWarehouse("W3", models.WarehouseStatusActive),
	}
	f.svc = &transferService{
		db:            db,
		itemRepo:      fakeItemRepo{m},
		movementRepo:  fakeMovementRepo{m},
		warehouseRepo: fakeWarehouseRepo{m},
		publisher:     pub,
		timeout:       time.Second,
		now:           fixedNow,
		backoff:       func(int) time.Duration { return 0 },
	}
	f.movements = &movementService{
		db:           db,
		itemRepo:     fakeItemRepo{m},
		movementRepo: fakeMovementRepo{m},
		publisher:    pub,
		timeout:      time.Second,
		now:          fixedNow,
	}
	return f
}

func (f *transferFixture) widget(qty string) int64 {
	return f.store.addItem(models.InventoryItem{
		Name:         "Widget",
		SKU:          "WID-1",
		Category:     "Electronics",
		Quantity:     dec(qty),
		ReorderPoint: dec("10"),
		UnitPrice:    dec("2.50"),
		Location:     strPtr("Shelf A"),
		WarehouseID:  f.w1,
	})
}

func (f *transferFixture) request(itemID, from, to int64, qty string) TransferRequest {
	return TransferRequest{ItemID: ptr(itemID), FromWarehouseID: ptr(from), ToWarehouseID: ptr(to), Quantity: decPtr(qty)}
}

func assertQty(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want quantity %s, got %s", want, got)
}

func TestTransfer_CreatesMirrorThenIncrementsIt(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	itemID := f.widget("100")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	res, err := f.svc.Transfer(ctx, adminAccess, f.request(itemID, f.w1, f.w2, "30"))
	require.NoError(t, err)

	assert.True(t, res.DestinationCreated)
	assertQty(t, "70", f.store.item(t, itemID).Quantity)
	skuItems := f.store.itemsBySKU("WID-1")
	require.Len(t, skuItems, 2)
	mirror := skuItems[1]
	assert.Equal(t, f.w2, mirror.WarehouseID)
	assert.Equal(t, "Widget", mirror.Name)
	assert.Equal(t, "Electronics", mirror.Category)
	assert.Nil(t, mirror.Location)
	assertQty(t, "30", mirror.Quantity)
	assertQty(t, "2.50", mirror.UnitPrice)

	transfers := f.store.movementsOfType(models.MovementTypeTransfer)
	require.Len(t, transfers, 1)
	mv := transfers[0]
	assertQty(t, "30", mv.Quantity)
	assert.Equal(t, itemID, mv.ItemID)
	assert.Equal(t, f.w1, *mv.FromWarehouseID)
	assert.Equal(t, f.w2, *mv.ToWarehouseID)
	assert.Equal(t, mirror.ID, *mv.ToItemID)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	res, err = f.svc.Transfer(ctx, adminAccess, f.request(itemID, f.w1, f.w2, "40"))
	require.NoError(t, err)

	assert.False(t, res.DestinationCreated)
	assertQty(t, "30", f.store.item(t, itemID).Quantity)
	skuItems = f.store.itemsBySKU("WID-1")
	require.Len(t, skuItems, 2, "mirror must be found, not duplicated")
	assertQty(t, "70", skuItems[1].Quantity)
	assert.Len(t, f.store.movementsOfType(models.MovementTypeTransfer), 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTransfer_ConservesTotalAcrossWarehouses(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("12.5")

	for _, q := range []string{"2.25", "0.25", "10"} {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, q))
		require.NoError(t, err)

		total := decimal.Zero
		for _, it := range f.store.itemsBySKU("WID-1") {
			total = total.Add(it.Quantity)
		}
		assertQty(t, "12.5", total)
	}
	assertQty(t, "0", f.store.item(t, itemID).Quantity)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTransfer_MovementVisibleToBothWarehouses(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("100")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "30"))
	require.NoError(t, err)

	for _, tc := range []struct {
		warehouse int64
		visible   bool
	}{{f.w1, true}, {f.w2, true}, {f.w3, false}} {
		got, err := f.movements.ListMovements(context.Background(), userAccess(tc.warehouse), models.MovementFilters{})
		require.NoError(t, err)
		if tc.visible {
			require.Len(t, got, 1, "warehouse %d", tc.warehouse)
			assert.Equal(t, models.MovementTypeTransfer, got[0].MovementType)
		} else {
			assert.Empty(t, got, "warehouse %d", tc.warehouse)
		}
	}
}

func TestTransfer_RejectsSameWarehouseRegardlessOfOtherFields(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("5")

	for _, req := range []TransferRequest{
		f.request(itemID, f.w1, f.w1, "1"),
		f.request(itemID, f.w1, f.w1, "1000"),
		f.request(9999, f.w2, f.w2, "1"),
	} {
		_, err := f.svc.Transfer(context.Background(), adminAccess, req)
		assert.ErrorIs(t, err, ErrSameWarehouse)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assertQty(t, "5", f.store.item(t, itemID).Quantity)
	assert.NoError(t, f.mock.ExpectationsWereMet(), "no transaction may be opened")
}

func TestTransfer_MissingFields(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("5")

	cases := map[string]TransferRequest{
		"no item":       {FromWarehouseID: ptr(f.w1), ToWarehouseID: ptr(f.w2), Quantity: decPtr("1")},
		"no from":       {ItemID: ptr(itemID), ToWarehouseID: ptr(f.w2), Quantity: decPtr("1")},
		"no to":         {ItemID: ptr(itemID), FromWarehouseID: ptr(f.w1), Quantity: decPtr("1")},
		"no quantity":   {ItemID: ptr(itemID), FromWarehouseID: ptr(f.w1), ToWarehouseID: ptr(f.w2)},
		"zero quantity": f.request(itemID, f.w1, f.w2, "0"),
		"negative":      f.request(itemID, f.w1, f.w2, "-3"),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Transfer(context.Background(), adminAccess, req)
			assert.ErrorIs(t, err, ErrMissingFields)
		})
	}
}

func TestTransfer_InsufficientQuantityLeavesSourceUnchanged(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("10")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "10.01"))

	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.ErrorIs(t, err, ErrConflict)
	assertQty(t, "10", f.store.item(t, itemID).Quantity)
	assert.Empty(t, f.store.movementsOfType(models.MovementTypeTransfer))
	assert.Len(t, f.store.itemsBySKU("WID-1"), 1)
	assert.Empty(t, f.publisher.events)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTransfer_SourceNotInFromWarehouse(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("10")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w3, f.w2, "1"))
	assert.ErrorIs(t, err, ErrSourceItemNotFound)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Transfer(context.Background(), adminAccess, f.request(424242, f.w1, f.w2, "1"))
	assert.ErrorIs(t, err, ErrSourceItemNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTransfer_DestinationWarehouseChecks(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("10")
	inactive := f.store.addWarehouse("Closed", models.WarehouseStatusInactive)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, 777777, "1"))
	assert.ErrorIs(t, err, ErrWarehouseNotFound)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, inactive, "1"))
	assert.ErrorIs(t, err, ErrWarehouseInactive)

	assertQty(t, "10", f.store.item(t, itemID).Quantity)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTransfer_UserMayOnlyTransferOutOfOwnWarehouse(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("10")

	_, err := f.svc.Transfer(context.Background(), userAccess(f.w2), f.request(itemID, f.w1, f.w2, "1"))
	assert.ErrorIs(t, err, ErrForbidden)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Transfer(context.Background(), userAccess(f.w1), f.request(itemID, f.w1, f.w2, "1"))
	require.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTransfer_RetriesSerializationFailure(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("10")
	serialization := fmt.Errorf("%w: locking item: %w", repositories.ErrDatabaseError, &pq.Error{Code: "40001"})
	f.store.failOnce("item.GetByIDForUpdate", serialization)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "4"))
	require.NoError(t, err)
	assertQty(t, "6", res.SourceItem.Quantity)
	assertQty(t, "4", res.DestinationItem.Quantity)
	assert.Len(t, f.store.movementsOfType(models.MovementTypeTransfer), 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTransfer_RetriesMirrorInsertRaceFromRolledBackState(t *testing.T) {
	f := newTransferFixture(t)
	f.svc.db = newMemTxDB(t, f.store)
	itemID := f.widget("10")
	race := fmt.Errorf("%w: creating inventory item (constraint: inventory_items_warehouse_sku_key)", repositories.ErrDuplicateKey)
	f.store.failOnce("item.Create", race)

	res, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "4"))
	require.NoError(t, err)
	assert.True(t, res.DestinationCreated)

	assert.Equal(t, []string{"rollback", "commit"}, f.store.txLog)
	assertQty(t, "6", f.store.item(t, itemID).Quantity)
	copies := f.store.itemsBySKU("WID-1")
	require.Len(t, copies, 2)
	assert.Equal(t, f.w2, copies[1].WarehouseID)
	assertQty(t, "4", copies[1].Quantity)
	transfers := f.store.movementsOfType(models.MovementTypeTransfer)
	require.Len(t, transfers, 1)
	assert.Equal(t, copies[1].ID, *transfers[0].ToItemID)
}

func TestTransfer_MirrorInsertRaceGivesUpAfterLastAttempt(t *testing.T) {
	f := newTransferFixture(t)
	f.svc.db = newMemTxDB(t, f.store)
	itemID := f.widget("10")
	f.store.failOnce("item.Create", repositories.ErrDuplicateKey)
	f.svc.backoff = func(int) time.Duration {
		f.store.failOnce("item.Create", repositories.ErrDuplicateKey)
		return 0
	}

	_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "4"))

	var storage *StorageError
	require.True(t, errors.As(err, &storage))
	assert.Equal(t, "create destination item", storage.Step)
	assert.True(t, storage.Retryable())
	assert.Equal(t, []string{"rollback", "rollback", "rollback"}, f.store.txLog)
	assertQty(t, "10", f.store.item(t, itemID).Quantity)
	assert.Empty(t, f.store.movementsOfType(models.MovementTypeTransfer))
}

func TestTransfer_RejectsQuantityFinerThanStoredPrecision(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("100")

	for _, qty := range []string{"0.0005", "1.2345", "100000000000"} {
		_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, qty))
		assert.ErrorIs(t, err, ErrValidation, qty)
	}
	assertQty(t, "100", f.store.item(t, itemID).Quantity)
	assert.Len(t, f.store.itemsBySKU("WID-1"), 1)
	assert.NoError(t, f.mock.ExpectationsWereMet(), "no transaction may be opened")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	res, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "0.125"))
	require.NoError(t, err)
	assertQty(t, "99.875", res.SourceItem.Quantity)
	assertQty(t, "0.125", res.DestinationItem.Quantity)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTransfer_StorageFailureNamesStep(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("10")
	f.store.failOnce("item.AdjustQuantity", fmt.Errorf("%w: boom", repositories.ErrDatabaseError))

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "1"))

	var storage *StorageError
	require.True(t, errors.As(err, &storage))
	assert.Equal(t, "transfer", storage.Op)
	assert.Equal(t, "decrement source item", storage.Step)
	assert.False(t, storage.Retryable())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTransfer_BeginFailureIsStorageError(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("10")
	f.mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "1"))

	var storage *StorageError
	require.True(t, errors.As(err, &storage))
	assert.Equal(t, "begin transaction", storage.Step)
	assertQty(t, "10", f.store.item(t, itemID).Quantity)
}

func TestTransfer_PublishesEventAndIgnoresPublishFailure(t *testing.T) {
	f := newTransferFixture(t)
	itemID := f.widget("10")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "3"))
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, models.EventStockTransferred, event.Type)
	assert.Equal(t, "WID-1", event.SKU)
	assert.Equal(t, f.w2, *event.ToWarehouseID)
	assertQty(t, "7", event.QuantityAfter)
	assert.NotEmpty(t, event.EventID)

	f.publisher.err = errors.New("broker down")
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Transfer(context.Background(), adminAccess, f.request(itemID, f.w1, f.w2, "3"))
	assert.NoError(t, err)
	assertQty(t, "4", f.store.item(t, itemID).Quantity)
}
