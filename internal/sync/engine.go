package sync

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/EMMADEKO10/restaurant-sub000/internal/db"
	apperrors "github.com/EMMADEKO10/restaurant-sub000/internal/errors"
	"github.com/EMMADEKO10/restaurant-sub000/internal/logging"
	"github.com/EMMADEKO10/restaurant-sub000/internal/models"
)

// DefaultMaxRetries is the per-item retry cap. An item that fails this many
// times stays in the queue but is never attempted again.
const DefaultMaxRetries = 3

// Engine drains the mutation queue against the remote service. Passes are
// single-flight: a trigger while a pass is running is a no-op.
type Engine struct {
	store      *db.Store
	remote     RemoteService
	maxRetries int
	online     atomic.Bool
	mu         sync.Mutex
	log        *logrus.Entry
}

// NewEngine creates an Engine with the given per-item retry cap;
// maxRetries <= 0 falls back to DefaultMaxRetries. The engine starts
// offline; the connectivity bridge flips it online once the first probe
// succeeds.
func NewEngine(store *db.Store, remote RemoteService, maxRetries int) *Engine {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Engine{
		store:      store,
		remote:     remote,
		maxRetries: maxRetries,
		log:        logging.Component("sync"),
	}
}

// Result summarizes one sync pass.
type Result struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Processed int
	Synced    int
	Failed    int
	Skipped   int
}

// SetOnline updates the engine's connectivity flag.
func (e *Engine) SetOnline(online bool) {
	e.online.Store(online)
}

// IsOnline reports the engine's connectivity flag.
func (e *Engine) IsOnline() bool {
	return e.online.Load()
}

// Pending returns the number of unsynced queue items, including exhausted
// ones.
func (e *Engine) Pending() (int, error) {
	return e.store.CountUnsynced()
}

// LastSync returns the time of the last successful pass.
func (e *Engine) LastSync() (*time.Time, error) {
	raw, err := e.store.GetMeta(models.MetaLastSync)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "corrupt last_sync value", err)
	}
	t := time.UnixMilli(ms)
	return &t, nil
}

// Sync performs one sync pass: load the processing set, drain it in enqueue
// order, purge confirmed items, record the sync time. A single item's
// failure never aborts the pass.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	if !e.IsOnline() {
		return nil, apperrors.New(apperrors.ErrOffline, "sync skipped: offline")
	}
	if !e.mu.TryLock() {
		return nil, apperrors.New(apperrors.ErrSyncInProgress, "sync already in progress")
	}
	defer e.mu.Unlock()

	result := &Result{StartTime: time.Now()}
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	items, err := e.store.ListUnsynced(e.maxRetries)
	if err != nil {
		return result, err
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		result.Processed++

		skipped, err := e.processItem(ctx, item, items)
		if skipped {
			result.Skipped++
			continue
		}
		if err != nil {
			result.Failed++
			e.log.WithError(err).WithFields(logrus.Fields{
				"queue_id":   item.ID,
				"collection": item.Collection,
				"action":     item.Action,
				"retries":    item.RetryCount,
			}).Warn("sync item failed")
			if rerr := e.store.IncrementRetry(item.ID); rerr != nil {
				e.log.WithError(rerr).Error("failed to record retry")
			}
			continue
		}

		if err := e.store.MarkSynced(item.ID); err != nil {
			return result, err
		}
		result.Synced++
	}

	if err := e.store.PurgeSynced(); err != nil {
		return result, err
	}
	if err := e.store.SetMeta(models.MetaLastSync, strconv.FormatInt(time.Now().UnixMilli(), 10)); err != nil {
		return result, err
	}

	e.log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"synced":    result.Synced,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	}).Info("sync pass completed")

	return result, nil
}

// processItem dispatches one queue item to the remote. The returned bool
// marks items skipped because their target id is still offline-minted: those
// are neither failures nor successes and keep their retry budget.
func (e *Engine) processItem(ctx context.Context, item *models.Mutation, pass []*models.Mutation) (bool, error) {
	data, err := item.DataMap()
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInvalid, "corrupt mutation data", err)
	}
	targetID, _ := data["id"].(string)

	switch item.Action {
	case models.ActionCreate:
		return false, e.syncCreate(ctx, item, data, targetID, pass)

	case models.ActionUpdate:
		if IsOfflineID(targetID) {
			// The backing create has not reached the server yet;
			// leave the item queued for a later pass.
			return true, nil
		}
		delete(data, "id")
		return false, e.remote.Update(ctx, item.Collection, targetID, data)

	case models.ActionDelete:
		if IsOfflineID(targetID) {
			return true, nil
		}
		switch item.Collection {
		case models.CollectionDishes:
			// Dishes are never hard-deleted remotely; the tombstone
			// maps to an availability update.
			return false, e.remote.Update(ctx, item.Collection, targetID, map[string]any{
				"isAvailable": false,
				"isDeleted":   true,
			})
		default:
			return false, apperrors.New(apperrors.ErrInvalid,
				"delete is not supported for collection "+string(item.Collection))
		}
	}

	return false, apperrors.New(apperrors.ErrInvalid, "unknown action "+string(item.Action))
}

// syncCreate posts the record and migrates the locally minted id to the
// server-assigned one, remapping still-pending queue items in the store and
// in the rest of the current pass.
func (e *Engine) syncCreate(ctx context.Context, item *models.Mutation, data map[string]any, localID string, pass []*models.Mutation) error {
	payload := make(map[string]any, len(data))
	for k, v := range data {
		if k == "id" {
			continue
		}
		payload[k] = v
	}

	created, err := e.remote.Create(ctx, item.Collection, payload)
	if err != nil {
		return err
	}

	serverID, _ := created["id"].(string)
	if serverID == "" || serverID == localID {
		return nil
	}

	if err := e.store.MigrateID(item.Collection, localID, serverID); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"collection": item.Collection,
		"local_id":   localID,
		"server_id":  serverID,
	}).Info("migrated record id")

	// Keep the in-flight working set consistent with the store remap so
	// updates enqueued behind this create sync in the same pass.
	for _, other := range pass {
		if other.ID == item.ID || other.Collection != item.Collection {
			continue
		}
		otherData, err := other.DataMap()
		if err != nil {
			continue
		}
		if id, _ := otherData["id"].(string); id == localID {
			otherData["id"] = serverID
			if raw, err := json.Marshal(otherData); err == nil {
				other.Data = raw
			}
		}
	}

	return nil
}
