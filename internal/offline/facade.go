// Package offline provides the collection-scoped CRUD surface the rest of
// the application uses. Every write commits locally and enqueues its
// mutation before returning; network confirmation is never waited on.
package offline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/EMMADEKO10/restaurant-sub000/internal/db"
	apperrors "github.com/EMMADEKO10/restaurant-sub000/internal/errors"
	"github.com/EMMADEKO10/restaurant-sub000/internal/logging"
	"github.com/EMMADEKO10/restaurant-sub000/internal/models"
	syncpkg "github.com/EMMADEKO10/restaurant-sub000/internal/sync"
)

// DishInput carries the fields of a new dish.
type DishInput struct {
	Name        string `json:"name" validate:"required"`
	Price       int64  `json:"price" validate:"gte=0"`
	Category    string `json:"category"`
	IsAvailable bool   `json:"isAvailable"`
}

// DishPatch carries a partial dish update. Nil fields are left untouched.
type DishPatch struct {
	Name        *string `json:"name,omitempty"`
	Price       *int64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	Category    *string `json:"category,omitempty"`
	IsAvailable *bool   `json:"isAvailable,omitempty"`
}

// OrderItemInput carries one line of a new order.
type OrderItemInput struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Price    int64  `json:"price" validate:"gte=0"`
}

// OrderInput carries the fields of a new order.
type OrderInput struct {
	Items []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	Total int64            `json:"total" validate:"gte=0"`
	Table string           `json:"table" validate:"required"`
}

// Facade is the offline-aware entry point for dish and order CRUD. Reads
// refresh through the cache while online and fall back to the local snapshot
// on any failure; writes are local-first with a best-effort sync kick.
type Facade struct {
	store    *db.Store
	remote   syncpkg.RemoteService
	engine   syncpkg.Syncer
	validate *validator.Validate
	userID   string
	log      *logrus.Entry
}

// NewFacade creates a Facade. userID, when non-empty, is carried on every
// enqueued mutation for attribution.
func NewFacade(store *db.Store, remote syncpkg.RemoteService, engine syncpkg.Syncer, userID string) *Facade {
	return &Facade{
		store:    store,
		remote:   remote,
		engine:   engine,
		validate: validator.New(),
		userID:   userID,
		log:      logging.Component("offline"),
	}
}

// =====================================================
// Dishes
// =====================================================

// GetDishes returns all available dishes, refreshing the local cache from
// the remote when online.
func (f *Facade) GetDishes(ctx context.Context) ([]*models.Dish, error) {
	f.refresh(ctx, models.CollectionDishes)

	records, err := f.store.GetAll(models.CollectionDishes)
	if err != nil {
		return nil, err
	}

	dishes := make([]*models.Dish, 0, len(records))
	for _, rec := range records {
		dish, err := models.DishFromPayload(rec.Merged())
		if err != nil {
			f.log.WithError(err).WithField("id", rec.ID).Warn("skipping undecodable dish record")
			continue
		}
		dishes = append(dishes, dish)
	}
	return dishes, nil
}

// CreateDish persists a new dish locally, enqueues its create mutation, and
// kicks the sync engine when online. The returned dish carries the locally
// minted id until the create syncs.
func (f *Facade) CreateDish(ctx context.Context, input DishInput) (*models.Dish, error) {
	if err := f.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "invalid dish", err)
	}

	dish := &models.Dish{
		ID:          syncpkg.OfflineID(models.CollectionDishes),
		Name:        input.Name,
		Price:       input.Price,
		Category:    input.Category,
		IsAvailable: input.IsAvailable,
	}

	if err := f.create(models.CollectionDishes, dish.ID, dish.ToPayload()); err != nil {
		return nil, err
	}
	f.kickSync()
	return dish, nil
}

// UpdateDish merges a patch into a dish and enqueues the update.
func (f *Facade) UpdateDish(ctx context.Context, id string, patch DishPatch) error {
	if err := f.validate.Struct(patch); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "invalid dish patch", err)
	}

	fields := map[string]any{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Price != nil {
		fields["price"] = *patch.Price
	}
	if patch.Category != nil {
		fields["category"] = *patch.Category
	}
	if patch.IsAvailable != nil {
		fields["isAvailable"] = *patch.IsAvailable
	}
	if len(fields) == 0 {
		return apperrors.New(apperrors.ErrValidation, "empty dish patch")
	}

	if err := f.updateFields(models.CollectionDishes, id, fields); err != nil {
		return err
	}
	f.kickSync()
	return nil
}

// DeleteDish tombstones a dish locally and enqueues the delete. Dishes are
// never hard-deleted remotely; the engine maps the delete to an availability
// update.
func (f *Facade) DeleteDish(ctx context.Context, id string) error {
	data, err := json.Marshal(map[string]any{"id": id})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode mutation", err)
	}

	err = f.store.SoftDeleteWithMutation(models.CollectionDishes, id, &models.Mutation{
		Collection: models.CollectionDishes,
		Action:     models.ActionDelete,
		Data:       data,
		Timestamp:  time.Now().UnixMilli(),
		UserID:     f.userID,
	})
	if err != nil {
		return err
	}
	f.kickSync()
	return nil
}

// =====================================================
// Orders
// =====================================================

// GetOrders returns all non-deleted orders, refreshing from the remote when
// online.
func (f *Facade) GetOrders(ctx context.Context) ([]*models.Order, error) {
	f.refresh(ctx, models.CollectionOrders)

	records, err := f.store.GetAll(models.CollectionOrders)
	if err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(records))
	for _, rec := range records {
		order, err := models.OrderFromPayload(rec.Merged())
		if err != nil {
			f.log.WithError(err).WithField("id", rec.ID).Warn("skipping undecodable order record")
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// CreateOrder persists a new order locally with status pending and enqueues
// its create mutation.
func (f *Facade) CreateOrder(ctx context.Context, input OrderInput) (*models.Order, error) {
	if err := f.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "invalid order", err)
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for _, it := range input.Items {
		items = append(items, models.OrderItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}

	order := &models.Order{
		ID:     syncpkg.OfflineID(models.CollectionOrders),
		Items:  items,
		Total:  input.Total,
		Table:  input.Table,
		Status: models.OrderStatusPending,
	}

	if err := f.create(models.CollectionOrders, order.ID, order.ToPayload()); err != nil {
		return nil, err
	}
	f.kickSync()
	return order, nil
}

// UpdateOrderStatus moves an order to a new status. Orders have no delete
// operation; status transitions are their whole lifecycle.
func (f *Facade) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if !models.IsValidOrderStatus(status) {
		return apperrors.New(apperrors.ErrValidation, "unknown order status "+status)
	}

	if err := f.updateFields(models.CollectionOrders, id, map[string]any{"status": status}); err != nil {
		return err
	}
	f.kickSync()
	return nil
}

// =====================================================
// Status and maintenance
// =====================================================

// IsOnline reports the current connectivity as seen by the sync engine.
func (f *Facade) IsOnline() bool {
	return f.engine.IsOnline()
}

// PendingSyncCount returns the authoritative pending count.
func (f *Facade) PendingSyncCount() (int, error) {
	return f.engine.Pending()
}

// ForceSync runs one sync pass immediately, regardless of the timer.
func (f *Facade) ForceSync(ctx context.Context) (*syncpkg.Result, error) {
	return f.engine.Sync(ctx)
}

// ClearCache wipes both collections and the queue, and clears the sync
// history: a last-sync time for data that no longer exists locally would be
// misleading.
func (f *Facade) ClearCache() error {
	if err := f.store.ClearAll(); err != nil {
		return err
	}
	return f.store.DeleteMeta(models.MetaLastSync)
}

// PurgeTombstones garbage-collects tombstones whose delete mutations have
// synced. Explicit maintenance only.
func (f *Facade) PurgeTombstones() (int, error) {
	total := 0
	for _, c := range models.Collections() {
		n, err := f.store.PurgeTombstones(c)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// =====================================================
// Internals
// =====================================================

func (f *Facade) create(collection models.Collection, id string, payload map[string]any) error {
	withID := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		withID[k] = v
	}
	withID["id"] = id

	data, err := json.Marshal(withID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode mutation", err)
	}

	rec := &models.Record{
		ID:           id,
		Payload:      payload,
		LastModified: time.Now().UnixMilli(),
		NeedsSync:    true,
	}
	return f.store.SaveWithMutation(collection, rec, &models.Mutation{
		Collection: collection,
		Action:     models.ActionCreate,
		Data:       data,
		Timestamp:  time.Now().UnixMilli(),
		UserID:     f.userID,
	})
}

func (f *Facade) updateFields(collection models.Collection, id string, fields map[string]any) error {
	withID := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		withID[k] = v
	}
	withID["id"] = id

	data, err := json.Marshal(withID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode mutation", err)
	}

	return f.store.UpdateWithMutation(collection, id, fields, &models.Mutation{
		Collection: collection,
		Action:     models.ActionUpdate,
		Data:       data,
		Timestamp:  time.Now().UnixMilli(),
		UserID:     f.userID,
	})
}

// refresh best-effort replaces local records with the server list. Failures
// are swallowed: the caller falls back to the local snapshot.
func (f *Facade) refresh(ctx context.Context, collection models.Collection) {
	if !f.engine.IsOnline() {
		return
	}

	list, err := f.remote.FetchAll(ctx, collection)
	if err != nil {
		f.log.WithError(err).WithField("collection", collection).Debug("remote refresh failed, serving local snapshot")
		return
	}

	for _, item := range list {
		id, _ := item["id"].(string)
		if id == "" {
			continue
		}
		payload := make(map[string]any, len(item))
		for k, v := range item {
			if k == "id" {
				continue
			}
			payload[k] = v
		}
		rec := &models.Record{
			ID:           id,
			Payload:      payload,
			LastModified: time.Now().UnixMilli(),
		}
		if err := f.store.Save(collection, rec); err != nil {
			f.log.WithError(err).WithField("id", id).Warn("failed to cache remote record")
		}
	}
}

// kickSync triggers a background pass after a local write while online. The
// timer and reconnect triggers make this an optimization, not a correctness
// requirement, so busy and offline results are dropped.
func (f *Facade) kickSync() {
	if !f.engine.IsOnline() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := f.engine.Sync(ctx); err != nil &&
			!apperrors.Is(err, apperrors.ErrSyncInProgress) && !apperrors.Is(err, apperrors.ErrOffline) {
			f.log.WithError(err).Warn("post-write sync failed")
		}
	}()
}
