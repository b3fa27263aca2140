package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"stockledger/internal/models"
	"stockledger/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memStore backs the fake repositories. It ignores the executor; sqlmock
// observes the transaction boundaries instead, or newMemTxDB makes them
// snapshot and restore the store.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	items      map[int64]models.InventoryItem
	warehouses map[int64]models.Warehouse
	suppliers  map[int64]models.Supplier
	categories map[int64]models.CustomCategory
	users      map[int64]models.User
	hashes     map[int64]string
	movements  []models.StockMovement

	// failures injects an error the next time the named method runs.
	failures map[string]error

	// txLog records "commit" and "rollback" for transactions of newMemTxDB.
	txLog []string
}

type memSnapshot struct {
	nextID     int64
	items      map[int64]models.InventoryItem
	warehouses map[int64]models.Warehouse
	users      map[int64]models.User
	movements  []models.StockMovement
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memSnapshot{
		nextID:     m.nextID,
		items:      make(map[int64]models.InventoryItem, len(m.items)),
		warehouses: make(map[int64]models.Warehouse, len(m.warehouses)),
		users:      make(map[int64]models.User, len(m.users)),
		movements:  append([]models.StockMovement(nil), m.movements...),
	}
	for k, v := range m.items {
		snap.items[k] = v
	}
	for k, v := range m.warehouses {
		snap.warehouses[k] = v
	}
	for k, v := range m.users {
		snap.users[k] = v
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = snap.nextID
	m.items = snap.items
	m.warehouses = snap.warehouses
	m.users = snap.users
	m.movements = snap.movements
	m.txLog = append(m.txLog, "rollback")
}

func (m *memStore) committed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txLog = append(m.txLog, "commit")
}

func newMemStore() *memStore {
	return &memStore{
		nextID:     100,
		items:      map[int64]models.InventoryItem{},
		warehouses: map[int64]models.Warehouse{},
		suppliers:  map[int64]models.Supplier{},
		categories: map[int64]models.CustomCategory{},
		users:      map[int64]models.User{},
		hashes:     map[int64]string{},
		failures:   map[string]error{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) failOnce(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = err
}

func (m *memStore) injected(method string) error {
	if err, ok := m.failures[method]; ok {
		delete(m.failures, method)
		return err
	}
	return nil
}

func (m *memStore) addWarehouse(name, status string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.warehouses[id] = models.Warehouse{ID: id, Name: name, Branch: "Main", Status: status}
	return id
}

func (m *memStore) addItem(item models.InventoryItem) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.id()
	if item.Unit == "" {
		item.Unit = "pcs"
	}
	m.items[item.ID] = item
	return item.ID
}

func (m *memStore) item(t *testing.T, id int64) models.InventoryItem {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	require.True(t, ok, "item %d missing", id)
	return item
}

func (m *memStore) itemsBySKU(sku string) []models.InventoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InventoryItem
	for _, it := range m.items {
		if it.SKU == sku {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out
}

func (m *memStore) movementsOfType(movementType string) []models.StockMovement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StockMovement
	for _, mv := range m.movements {
		if mv.MovementType == movementType {
			out = append(out, mv)
		}
	}
	return out
}

// --- items ---

type fakeItemRepo struct{ m *memStore }

func (r fakeItemRepo) Create(_ context.Context, _ repositories.SQLExecutor, item *models.InventoryItem) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("item.Create"); err != nil {
		return err
	}
	for _, it := range r.m.items {
		if it.WarehouseID == item.WarehouseID && it.SKU == item.SKU {
			return repositories.ErrDuplicateKey
		}
	}
	item.ID = r.m.id()
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	r.m.items[item.ID] = *item
	return nil
}

func (r fakeItemRepo) get(method string, id int64) (*models.InventoryItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected(method); err != nil {
		return nil, err
	}
	item, ok := r.m.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &item, nil
}

func (r fakeItemRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int64) (*models.InventoryItem, error) {
	return r.get("item.GetByID", id)
}

func (r fakeItemRepo) GetByIDForUpdate(_ context.Context, _ repositories.SQLExecutor, id int64) (*models.InventoryItem, error) {
	return r.get("item.GetByIDForUpdate", id)
}

func (r fakeItemRepo) FindBySKUForUpdate(_ context.Context, _ repositories.SQLExecutor, warehouseID int64, sku string) (*models.InventoryItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, it := range r.m.items {
		if it.WarehouseID == warehouseID && it.SKU == sku {
			found := it
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r fakeItemRepo) SKUExists(_ context.Context, _ repositories.SQLExecutor, warehouseID int64, sku string, excludeID *int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, it := range r.m.items {
		if it.WarehouseID == warehouseID && it.SKU == sku && (excludeID == nil || *excludeID != it.ID) {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeItemRepo) List(_ context.Context, _ repositories.SQLExecutor, f models.ItemFilters) ([]models.InventoryItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("item.List"); err != nil {
		return nil, err
	}
	out := []models.InventoryItem{}
	for _, it := range r.m.items {
		if f.WarehouseID != nil && it.WarehouseID != *f.WarehouseID {
			continue
		}
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(it.Name), q) && !strings.Contains(strings.ToLower(it.SKU), q) {
				continue
			}
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r fakeItemRepo) Update(_ context.Context, _ repositories.SQLExecutor, item *models.InventoryItem) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.items[item.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	// Quantity and warehouse are not part of an update.
	item.Quantity = stored.Quantity
	item.WarehouseID = stored.WarehouseID
	r.m.items[item.ID] = *item
	return nil
}

func (r fakeItemRepo) AdjustQuantity(_ context.Context, _ repositories.SQLExecutor, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("item.AdjustQuantity"); err != nil {
		return decimal.Zero, err
	}
	item, ok := r.m.items[id]
	if !ok {
		return decimal.Zero, repositories.ErrNotFound
	}
	item.Quantity = item.Quantity.Add(delta)
	r.m.items[id] = item
	return item.Quantity, nil
}

func (r fakeItemRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.items[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.items, id)
	return nil
}

func (r fakeItemRepo) CountByWarehouse(_ context.Context, _ repositories.SQLExecutor, warehouseID int64) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, it := range r.m.items {
		if it.WarehouseID == warehouseID {
			n++
		}
	}
	return n, nil
}

// --- movements ---

type fakeMovementRepo struct{ m *memStore }

func (r fakeMovementRepo) Create(_ context.Context, _ repositories.SQLExecutor, mv *models.StockMovement) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("movement.Create"); err != nil {
		return err
	}
	mv.ID = r.m.id()
	mv.CreatedAt = time.Now().UTC()
	r.m.movements = append(r.m.movements, *mv)
	return nil
}

func (r fakeMovementRepo) List(_ context.Context, _ repositories.SQLExecutor, f models.MovementFilters) ([]models.StockMovement, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.StockMovement{}
	for i := len(r.m.movements) - 1; i >= 0; i-- {
		mv := r.m.movements[i]
		if f.WarehouseID != nil {
			w := *f.WarehouseID
			if mv.WarehouseID != w && (mv.FromWarehouseID == nil || *mv.FromWarehouseID != w) &&
				(mv.ToWarehouseID == nil || *mv.ToWarehouseID != w) {
				continue
			}
		}
		if f.MovementType != "" && mv.MovementType != f.MovementType {
			continue
		}
		if f.ItemID != nil && mv.ItemID != *f.ItemID && (mv.ToItemID == nil || *mv.ToItemID != *f.ItemID) {
			continue
		}
		out = append(out, mv)
		if len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// --- warehouses ---

type fakeWarehouseRepo struct{ m *memStore }

func (r fakeWarehouseRepo) Create(_ context.Context, _ repositories.SQLExecutor, w *models.Warehouse) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	w.ID = r.m.id()
	r.m.warehouses[w.ID] = *w
	return nil
}

func (r fakeWarehouseRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int64) (*models.Warehouse, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	w, ok := r.m.warehouses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &w, nil
}

func (r fakeWarehouseRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]models.Warehouse, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Warehouse{}
	for _, w := range r.m.warehouses {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeWarehouseRepo) Update(_ context.Context, _ repositories.SQLExecutor, w *models.Warehouse) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.warehouses[w.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.m.warehouses[w.ID] = *w
	return nil
}

func (r fakeWarehouseRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.warehouses[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.warehouses, id)
	return nil
}

// --- suppliers ---

type fakeSupplierRepo struct{ m *memStore }

func (r fakeSupplierRepo) Create(_ context.Context, _ repositories.SQLExecutor, s *models.Supplier) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s.ID = r.m.id()
	r.m.suppliers[s.ID] = *s
	return nil
}

func (r fakeSupplierRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int64) (*models.Supplier, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.suppliers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r fakeSupplierRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]models.Supplier, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Supplier{}
	for _, s := range r.m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeSupplierRepo) Update(_ context.Context, _ repositories.SQLExecutor, s *models.Supplier) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.suppliers[s.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.m.suppliers[s.ID] = *s
	return nil
}

func (r fakeSupplierRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.suppliers[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.suppliers, id)
	return nil
}

// --- categories ---

type fakeCategoryRepo struct{ m *memStore }

func (r fakeCategoryRepo) Create(_ context.Context, _ repositories.SQLExecutor, c *models.CustomCategory) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return repositories.ErrDuplicateKey
		}
	}
	c.ID = r.m.id()
	r.m.categories[c.ID] = *c
	return nil
}

func (r fakeCategoryRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]models.CustomCategory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.CustomCategory{}
	for _, c := range r.m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeCategoryRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.categories[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.m.categories, id)
	return nil
}

// --- users ---

type fakeAuthRepo struct{ m *memStore }

func (r fakeAuthRepo) CreateUser(_ context.Context, _ repositories.SQLExecutor, u *models.User, hash string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		if existing.Username == u.Username {
			return repositories.ErrDuplicateKey
		}
	}
	u.ID = r.m.id()
	r.m.users[u.ID] = *u
	r.m.hashes[u.ID] = hash
	return nil
}

func (r fakeAuthRepo) FindUserByUsername(_ context.Context, _ repositories.SQLExecutor, username string) (*models.User, string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == username {
			found := u
			return &found, r.m.hashes[u.ID], nil
		}
	}
	return nil, "", repositories.ErrNotFound
}

func (r fakeAuthRepo) FindUserByID(_ context.Context, _ repositories.SQLExecutor, id int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r fakeAuthRepo) ListUsers(_ context.Context, _ repositories.SQLExecutor) ([]models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.User{}
	for _, u := range r.m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeAuthRepo) SetUserWarehouse(_ context.Context, _ repositories.SQLExecutor, userID, warehouseID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.injected("auth.SetUserWarehouse"); err != nil {
		return err
	}
	u, ok := r.m.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.WarehouseID = &warehouseID
	r.m.users[userID] = u
	return nil
}

// --- publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, e *models.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// --- transactions over memStore ---

// newMemTxDB returns a *sql.DB whose transactions snapshot m on Begin and
// restore it on Rollback, the way a database discards an aborted attempt.
// It accepts no SQL.
func newMemTxDB(t *testing.T, m *memStore) *sql.DB {
	t.Helper()
	db := sql.OpenDB(memConnector{m})
	t.Cleanup(func() { db.Close() })
	return db
}

type memConnector struct{ m *memStore }

func (c memConnector) Connect(context.Context) (driver.Conn, error) { return memConn{c.m}, nil }
func (c memConnector) Driver() driver.Driver                        { return memDriver{} }

type memDriver struct{}

func (memDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("memDriver: open through memConnector")
}

type memConn struct{ m *memStore }

func (c memConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("memConn: unexpected query %q", query)
}
func (c memConn) Close() error { return nil }
func (c memConn) Begin() (driver.Tx, error) {
	return &memTx{m: c.m, snap: c.m.snapshot()}, nil
}

type memTx struct {
	m    *memStore
	snap memSnapshot
}

func (tx *memTx) Commit() error {
	tx.m.committed()
	return nil
}

func (tx *memTx) Rollback() error {
	tx.m.restore(tx.snap)
	return nil
}

// --- helpers ---

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

var (
	adminAccess   = models.AccessContext{UserID: 1, Username: "admin", Role: models.RoleAdmin}
	supportAccess = models.AccessContext{UserID: 2, Username: "support", Role: models.RoleSupport}
)

func userAccess(warehouseID int64) models.AccessContext {
	return models.AccessContext{UserID: 50 + warehouseID, Username: "clerk", Role: models.RoleUser, WarehouseID: ptr(warehouseID)}
}

// fixedNow is 2024-03-01 12:00 UTC.
func fixedNow() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
