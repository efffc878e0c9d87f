// Package offline tests for the offline-aware facade.
package offline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EMMADEKO10/restaurant-sub000/internal/db"
	apperrors "github.com/EMMADEKO10/restaurant-sub000/internal/errors"
	"github.com/EMMADEKO10/restaurant-sub000/internal/models"
	syncpkg "github.com/EMMADEKO10/restaurant-sub000/internal/sync"
)

// stubSyncer satisfies the Syncer interface without touching the network.
type stubSyncer struct {
	mu      sync.Mutex
	online  bool
	pending int
	synced  chan struct{}
}

func (s *stubSyncer) Sync(ctx context.Context) (*syncpkg.Result, error) {
	if s.synced != nil {
		s.synced <- struct{}{}
	}
	return &syncpkg.Result{}, nil
}

func (s *stubSyncer) Pending() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, nil
}

func (s *stubSyncer) LastSync() (*time.Time, error) { return nil, nil }

func (s *stubSyncer) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = online
}

func (s *stubSyncer) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// stubRemote serves canned lists for refresh-through-cache tests.
type stubRemote struct {
	lists map[models.Collection][]map[string]any
	err   error
}

func (r *stubRemote) FetchAll(ctx context.Context, collection models.Collection) ([]map[string]any, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.lists[collection], nil
}

func (r *stubRemote) Create(ctx context.Context, collection models.Collection, payload map[string]any) (map[string]any, error) {
	return nil, apperrors.New(apperrors.ErrNetwork, "not implemented")
}

func (r *stubRemote) Update(ctx context.Context, collection models.Collection, id string, payload map[string]any) error {
	return apperrors.New(apperrors.ErrNetwork, "not implemented")
}

func (r *stubRemote) Ping(ctx context.Context) error { return r.err }

func setupFacade(t *testing.T) (*Facade, *db.Store, *stubSyncer, *stubRemote) {
	t.Helper()

	database, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	migrator := db.NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		t.Fatalf("failed to initialize migrator: %v", err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	store := db.NewStore(database)
	engine := &stubSyncer{}
	remote := &stubRemote{lists: map[models.Collection][]map[string]any{}}
	facade := NewFacade(store, remote, engine, "user-1")
	return facade, store, engine, remote
}

// TestFacade_CreateDish_offline covers the local-first write contract: the
// record and its queue item both exist the moment the call returns.
func TestFacade_CreateDish_offline(t *testing.T) {
	facade, store, _, _ := setupFacade(t)

	dish, err := facade.CreateDish(context.Background(), DishInput{
		Name: "Burger", Price: 5000, Category: "mains", IsAvailable: true,
	})
	if err != nil {
		t.Fatalf("CreateDish() error = %v", err)
	}

	if !strings.HasPrefix(dish.ID, "offline_") {
		t.Errorf("dish id = %q, want offline_ prefix", dish.ID)
	}

	rec, err := store.Get(models.CollectionDishes, dish.ID)
	if err != nil {
		t.Fatalf("record not durable after CreateDish: %v", err)
	}
	if rec.Payload["name"] != "Burger" || rec.Payload["price"] != float64(5000) {
		t.Errorf("stored payload = %v", rec.Payload)
	}
	if !rec.NeedsSync {
		t.Error("new record must be flagged needsSync")
	}

	items, err := store.ListUnsynced(syncpkg.DefaultMaxRetries)
	if err != nil {
		t.Fatalf("ListUnsynced() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("queue items = %d, want exactly 1 per mutation", len(items))
	}
	if items[0].Action != models.ActionCreate || items[0].TargetID() != dish.ID {
		t.Errorf("queue item = %+v", items[0])
	}
	if items[0].UserID != "user-1" {
		t.Errorf("queue item userID = %q, want user-1", items[0].UserID)
	}

	dishes, err := facade.GetDishes(context.Background())
	if err != nil {
		t.Fatalf("GetDishes() error = %v", err)
	}
	if len(dishes) != 1 || dishes[0].Name != "Burger" {
		t.Errorf("GetDishes() = %v, want the new dish", dishes)
	}
}

// TestFacade_CreateDish_validation verifies invalid input never reaches the
// store or the queue.
func TestFacade_CreateDish_validation(t *testing.T) {
	facade, store, _, _ := setupFacade(t)

	tests := []struct {
		name  string
		input DishInput
	}{
		{"missing name", DishInput{Price: 100}},
		{"negative price", DishInput{Name: "Burger", Price: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := facade.CreateDish(context.Background(), tt.input)
			if !apperrors.Is(err, apperrors.ErrValidation) {
				t.Errorf("CreateDish() error = %v, want VALIDATION_ERROR", err)
			}
		})
	}

	count, _ := store.CountUnsynced()
	if count != 0 {
		t.Errorf("queue count = %d, want 0 after rejected input", count)
	}
}

// TestFacade_UpdateDish verifies patch merging and its queue item.
func TestFacade_UpdateDish(t *testing.T) {
	facade, store, _, _ := setupFacade(t)

	dish, err := facade.CreateDish(context.Background(), DishInput{Name: "Burger", Price: 5000, IsAvailable: true})
	if err != nil {
		t.Fatalf("CreateDish() error = %v", err)
	}

	price := int64(4500)
	if err := facade.UpdateDish(context.Background(), dish.ID, DishPatch{Price: &price}); err != nil {
		t.Fatalf("UpdateDish() error = %v", err)
	}

	rec, err := store.Get(models.CollectionDishes, dish.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Payload["price"] != float64(4500) {
		t.Errorf("price = %v, want 4500", rec.Payload["price"])
	}
	if rec.Payload["name"] != "Burger" {
		t.Error("patch must not clobber untouched fields")
	}

	count, _ := store.CountUnsynced()
	if count != 2 {
		t.Errorf("queue count = %d, want create + update", count)
	}

	if err := facade.UpdateDish(context.Background(), dish.ID, DishPatch{}); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty patch error = %v, want VALIDATION_ERROR", err)
	}
}

// TestFacade_DeleteDish covers soft-delete visibility: gone from reads,
// retained as a tombstone, delete mutation queued.
func TestFacade_DeleteDish(t *testing.T) {
	facade, store, _, _ := setupFacade(t)

	dish, err := facade.CreateDish(context.Background(), DishInput{Name: "Burger", Price: 5000, IsAvailable: true})
	if err != nil {
		t.Fatalf("CreateDish() error = %v", err)
	}

	if err := facade.DeleteDish(context.Background(), dish.ID); err != nil {
		t.Fatalf("DeleteDish() error = %v", err)
	}

	dishes, err := facade.GetDishes(context.Background())
	if err != nil {
		t.Fatalf("GetDishes() error = %v", err)
	}
	if len(dishes) != 0 {
		t.Errorf("GetDishes() = %d dishes, want 0 after delete", len(dishes))
	}

	rec, err := store.GetAny(models.CollectionDishes, dish.ID)
	if err != nil {
		t.Fatalf("tombstone lookup error = %v", err)
	}
	if !rec.IsDeleted {
		t.Error("record should be tombstoned, not removed")
	}

	items, _ := store.ListUnsynced(syncpkg.DefaultMaxRetries)
	if len(items) != 2 || items[1].Action != models.ActionDelete {
		t.Errorf("queue should end with the delete mutation, got %d items", len(items))
	}
}

// TestFacade_OrderLifecycle covers create, status transition, and status
// validation.
func TestFacade_OrderLifecycle(t *testing.T) {
	facade, store, _, _ := setupFacade(t)

	order, err := facade.CreateOrder(context.Background(), OrderInput{
		Items: []OrderItemInput{{Name: "Burger", Quantity: 2, Price: 5000}},
		Total: 10000,
		Table: "7",
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if !strings.HasPrefix(order.ID, "offline_order_") {
		t.Errorf("order id = %q, want offline_order_ prefix", order.ID)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("new order status = %q, want pending", order.Status)
	}

	if err := facade.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusPreparing); err != nil {
		t.Fatalf("UpdateOrderStatus() error = %v", err)
	}

	// Both mutations reference the same offline id, create first.
	items, _ := store.ListUnsynced(syncpkg.DefaultMaxRetries)
	if len(items) != 2 {
		t.Fatalf("queue items = %d, want 2", len(items))
	}
	if items[0].Action != models.ActionCreate || items[1].Action != models.ActionUpdate {
		t.Error("queue must hold create then update, in that order")
	}
	if items[0].TargetID() != order.ID || items[1].TargetID() != order.ID {
		t.Error("both mutations must reference the offline order id")
	}

	orders, err := facade.GetOrders(context.Background())
	if err != nil {
		t.Fatalf("GetOrders() error = %v", err)
	}
	if len(orders) != 1 || orders[0].Status != models.OrderStatusPreparing {
		t.Errorf("GetOrders() = %v, want one preparing order", orders)
	}

	if err := facade.UpdateOrderStatus(context.Background(), order.ID, "done"); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("unknown status error = %v, want VALIDATION_ERROR", err)
	}

	_, err = facade.CreateOrder(context.Background(), OrderInput{Table: "7"})
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty order error = %v, want VALIDATION_ERROR", err)
	}
}

// TestFacade_GetDishes_refreshThroughCache verifies an online read trusts
// the server list and updates the local cache.
func TestFacade_GetDishes_refreshThroughCache(t *testing.T) {
	facade, store, engine, remote := setupFacade(t)
	engine.SetOnline(true)
	remote.lists[models.CollectionDishes] = []map[string]any{
		{"id": "srv1", "name": "Burger", "price": float64(5000), "isAvailable": true},
		{"id": "srv2", "name": "Fries", "price": float64(2000), "isAvailable": true},
	}

	dishes, err := facade.GetDishes(context.Background())
	if err != nil {
		t.Fatalf("GetDishes() error = %v", err)
	}
	if len(dishes) != 2 {
		t.Fatalf("GetDishes() = %d dishes, want 2", len(dishes))
	}

	// The server records are now cached locally.
	rec, err := store.Get(models.CollectionDishes, "srv1")
	if err != nil {
		t.Fatalf("remote record not cached: %v", err)
	}
	if rec.NeedsSync {
		t.Error("cached remote record must not be flagged needsSync")
	}

	// When the refresh fails the local snapshot serves the read.
	remote.err = apperrors.New(apperrors.ErrNetwork, "down")
	dishes, err = facade.GetDishes(context.Background())
	if err != nil {
		t.Fatalf("GetDishes() with failing remote error = %v", err)
	}
	if len(dishes) != 2 {
		t.Errorf("local fallback = %d dishes, want 2", len(dishes))
	}
}

// TestFacade_kickSyncOnWrite verifies a write while online triggers a
// background pass.
func TestFacade_kickSyncOnWrite(t *testing.T) {
	facade, _, engine, _ := setupFacade(t)
	engine.SetOnline(true)
	engine.synced = make(chan struct{}, 1)

	if _, err := facade.CreateDish(context.Background(), DishInput{Name: "Burger", Price: 5000}); err != nil {
		t.Fatalf("CreateDish() error = %v", err)
	}

	select {
	case <-engine.synced:
	case <-time.After(5 * time.Second):
		t.Fatal("online write never kicked the sync engine")
	}
}

// TestFacade_ClearCache verifies the full wipe resets data, queue, and sync
// history.
func TestFacade_ClearCache(t *testing.T) {
	facade, store, _, _ := setupFacade(t)

	if _, err := facade.CreateDish(context.Background(), DishInput{Name: "Burger", Price: 5000}); err != nil {
		t.Fatalf("CreateDish() error = %v", err)
	}
	if _, err := facade.CreateOrder(context.Background(), OrderInput{
		Items: []OrderItemInput{{Name: "Burger", Quantity: 1, Price: 5000}},
		Total: 5000,
		Table: "3",
	}); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if err := store.SetMeta(models.MetaLastSync, "12345"); err != nil {
		t.Fatalf("SetMeta() error = %v", err)
	}

	if err := facade.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}

	dishes, _ := facade.GetDishes(context.Background())
	orders, _ := facade.GetOrders(context.Background())
	if len(dishes) != 0 || len(orders) != 0 {
		t.Error("both collections should be empty after ClearCache")
	}
	count, _ := store.CountUnsynced()
	if count != 0 {
		t.Errorf("queue count = %d, want 0 after ClearCache", count)
	}
	value, _ := store.GetMeta(models.MetaLastSync)
	if value != "" {
		t.Error("ClearCache should reset the sync history")
	}
}
