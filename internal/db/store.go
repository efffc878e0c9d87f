// Package db provides the Local Store: collection-scoped record persistence,
// the outbound mutation queue, and the metadata table.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/EMMADEKO10/restaurant-sub000/internal/errors"
	"github.com/EMMADEKO10/restaurant-sub000/internal/models"
)

// Store provides all persistence operations of the offline core. Every write
// path the facade exposes goes through one of the *WithMutation combos so the
// record write and its queue entry commit in a single transaction.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store on an opened database.
func NewStore(database *DB) *Store {
	return &Store{db: database.DB}
}

// querier abstracts *sql.DB and *sql.Tx so record and queue operations can
// run standalone or inside a combo transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// =====================================================
// Record operations
// =====================================================

// Save upserts a record by id.
func (s *Store) Save(collection models.Collection, rec *models.Record) error {
	return s.save(s.db, collection, rec)
}

func (s *Store) save(q querier, collection models.Collection, rec *models.Record) error {
	if err := collection.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "save", err)
	}
	if rec.ID == "" {
		return apperrors.New(apperrors.ErrInvalid, "record id is required")
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to encode payload", err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, payload, last_modified, is_deleted, needs_sync)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		payload = excluded.payload,
		last_modified = excluded.last_modified,
		is_deleted = excluded.is_deleted,
		needs_sync = excluded.needs_sync
	`, collection)

	if _, err := q.Exec(query, rec.ID, string(payload), rec.LastModified, rec.IsDeleted, rec.NeedsSync); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to save record", err)
	}
	return nil
}

// GetAll returns all non-deleted records of a collection.
func (s *Store) GetAll(collection models.Collection) ([]*models.Record, error) {
	if err := collection.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "getAll", err)
	}

	query := fmt.Sprintf(`
	SELECT id, payload, last_modified, is_deleted, needs_sync
	FROM %s WHERE is_deleted = 0
	`, collection)

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list records", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list records", err)
	}
	return records, nil
}

// Get returns one non-deleted record, or a NOT_FOUND error. Soft-deleted
// records are invisible here; GetAny sees them.
func (s *Store) Get(collection models.Collection, id string) (*models.Record, error) {
	return s.get(collection, id, false)
}

// GetAny returns one record regardless of its tombstone flag. Used for
// internal inspection and tests.
func (s *Store) GetAny(collection models.Collection, id string) (*models.Record, error) {
	return s.get(collection, id, true)
}

func (s *Store) get(collection models.Collection, id string, includeDeleted bool) (*models.Record, error) {
	if err := collection.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "get", err)
	}

	query := fmt.Sprintf(`
	SELECT id, payload, last_modified, is_deleted, needs_sync
	FROM %s WHERE id = ?
	`, collection)
	if !includeDeleted {
		query += " AND is_deleted = 0"
	}

	rec, err := scanRecord(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("record %s not found in %s", id, collection))
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Update merges fields into an existing record's payload and bumps
// last_modified and needs_sync. A missing id is a no-op, not an error:
// updates may race with creates that have not synced yet.
func (s *Store) Update(collection models.Collection, id string, fields map[string]any) error {
	return s.update(s.db, collection, id, fields)
}

func (s *Store) update(q querier, collection models.Collection, id string, fields map[string]any) error {
	if err := collection.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "update", err)
	}

	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = ?", collection)
	var raw string
	err := q.QueryRow(query, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to load record for update", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to decode payload", err)
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		payload[k] = v
	}

	merged, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to encode payload", err)
	}

	query = fmt.Sprintf("UPDATE %s SET payload = ?, last_modified = ?, needs_sync = 1 WHERE id = ?", collection)
	if _, err := q.Exec(query, string(merged), nowMillis(), id); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to update record", err)
	}
	return nil
}

// SoftDelete flags a record as deleted, retaining all other fields.
func (s *Store) SoftDelete(collection models.Collection, id string) error {
	return s.softDelete(s.db, collection, id)
}

func (s *Store) softDelete(q querier, collection models.Collection, id string) error {
	if err := collection.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "softDelete", err)
	}

	query := fmt.Sprintf("UPDATE %s SET is_deleted = 1, needs_sync = 1, last_modified = ? WHERE id = ?", collection)
	if _, err := q.Exec(query, nowMillis(), id); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to soft-delete record", err)
	}
	return nil
}

// MigrateID re-keys a record from a locally minted id to the server-assigned
// one and rewrites still-unsynced queue items that target the old id, so that
// updates enqueued before the create synced can still be delivered.
func (s *Store) MigrateID(collection models.Collection, oldID, newID string) error {
	if err := collection.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "migrateID", err)
	}
	if oldID == newID {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("UPDATE %s SET id = ?, needs_sync = 0 WHERE id = ?", collection)
	if _, err := tx.Exec(query, newID, oldID); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to migrate record id", err)
	}

	rows, err := tx.Query(
		"SELECT id, data FROM sync_queue WHERE collection = ? AND synced = 0",
		collection,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to list queue for remap", err)
	}

	type remap struct {
		id   int64
		data string
	}
	var remaps []remap
	for rows.Next() {
		var qid int64
		var raw string
		if err := rows.Scan(&qid, &raw); err != nil {
			rows.Close()
			return apperrors.Wrap(apperrors.ErrStorage, "failed to scan queue item", err)
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			continue
		}
		if target, _ := data["id"].(string); target != oldID {
			continue
		}
		data["id"] = newID
		updated, err := json.Marshal(data)
		if err != nil {
			continue
		}
		remaps = append(remaps, remap{id: qid, data: string(updated)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to list queue for remap", err)
	}

	for _, r := range remaps {
		if _, err := tx.Exec("UPDATE sync_queue SET data = ? WHERE id = ?", r.data, r.id); err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, "failed to remap queue item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to commit id migration", err)
	}
	return nil
}

// PurgeTombstones removes soft-deleted records that no unsynced queue item
// still references. Never run automatically; exposed for explicit
// maintenance since the default behavior retains tombstones until the cache
// is cleared.
func (s *Store) PurgeTombstones(collection models.Collection) (int, error) {
	if err := collection.Validate(); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInvalid, "purgeTombstones", err)
	}

	pending, err := s.listUnsynced(-1)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]bool)
	for _, m := range pending {
		if m.Collection == collection {
			referenced[m.TargetID()] = true
		}
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT id FROM %s WHERE is_deleted = 1", collection))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to list tombstones", err)
	}
	var purgeable []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to scan tombstone", err)
		}
		if !referenced[id] {
			purgeable = append(purgeable, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to list tombstones", err)
	}

	for _, id := range purgeable {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", collection), id); err != nil {
			return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to purge tombstone", err)
		}
	}
	return len(purgeable), nil
}

func scanRecord(row interface{ Scan(...any) error }) (*models.Record, error) {
	var rec models.Record
	var raw string
	var isDeleted, needsSync int
	if err := row.Scan(&rec.ID, &raw, &rec.LastModified, &isDeleted, &needsSync); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan record", err)
	}
	if err := json.Unmarshal([]byte(raw), &rec.Payload); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to decode payload", err)
	}
	rec.IsDeleted = isDeleted != 0
	rec.NeedsSync = needsSync != 0
	return &rec, nil
}

// =====================================================
// Queue operations
// =====================================================

// Enqueue appends a mutation to the queue and assigns its sequence id.
func (s *Store) Enqueue(m *models.Mutation) error {
	return s.enqueue(s.db, m)
}

func (s *Store) enqueue(q querier, m *models.Mutation) error {
	if err := m.Collection.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "enqueue", err)
	}
	if err := m.Action.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "enqueue", err)
	}
	if m.Timestamp == 0 {
		m.Timestamp = nowMillis()
	}

	res, err := q.Exec(`
	INSERT INTO sync_queue (collection, action, data, timestamp, synced, retry_count, user_id)
	VALUES (?, ?, ?, ?, 0, 0, ?)
	`, m.Collection, m.Action, string(m.Data), m.Timestamp, m.UserID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to enqueue mutation", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to read mutation id", err)
	}
	m.ID = id
	return nil
}

// ListQueue returns all queue items, synced and unsynced, in enqueue order.
func (s *Store) ListQueue() ([]*models.Mutation, error) {
	return s.listMutations("SELECT id, collection, action, data, timestamp, synced, retry_count, user_id FROM sync_queue ORDER BY id")
}

// ListUnsynced returns unsynced items below the retry cap in enqueue order.
// This is the sync engine's processing set; items at or above the cap stay
// queued but are never attempted again.
func (s *Store) ListUnsynced(maxRetries int) ([]*models.Mutation, error) {
	return s.listUnsynced(maxRetries)
}

func (s *Store) listUnsynced(maxRetries int) ([]*models.Mutation, error) {
	if maxRetries < 0 {
		return s.listMutations("SELECT id, collection, action, data, timestamp, synced, retry_count, user_id FROM sync_queue WHERE synced = 0 ORDER BY id")
	}
	return s.listMutations(
		"SELECT id, collection, action, data, timestamp, synced, retry_count, user_id FROM sync_queue WHERE synced = 0 AND retry_count < ? ORDER BY id",
		maxRetries,
	)
}

func (s *Store) listMutations(query string, args ...any) ([]*models.Mutation, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list queue", err)
	}
	defer rows.Close()

	var items []*models.Mutation
	for rows.Next() {
		var m models.Mutation
		var data string
		var synced int
		if err := rows.Scan(&m.ID, &m.Collection, &m.Action, &data, &m.Timestamp, &synced, &m.RetryCount, &m.UserID); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan queue item", err)
		}
		m.Data = json.RawMessage(data)
		m.Synced = synced != 0
		items = append(items, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list queue", err)
	}
	return items, nil
}

// CountUnsynced returns the authoritative pending count: all unsynced queue
// items, including those past the retry cap.
func (s *Store) CountUnsynced() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sync_queue WHERE synced = 0").Scan(&count); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to count queue", err)
	}
	return count, nil
}

// MarkSynced flags a queue item as confirmed by the remote.
func (s *Store) MarkSynced(id int64) error {
	if _, err := s.db.Exec("UPDATE sync_queue SET synced = 1 WHERE id = ?", id); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to mark queue item synced", err)
	}
	return nil
}

// IncrementRetry bumps a queue item's retry counter after a failed attempt.
func (s *Store) IncrementRetry(id int64) error {
	if _, err := s.db.Exec("UPDATE sync_queue SET retry_count = retry_count + 1 WHERE id = ?", id); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to increment retry count", err)
	}
	return nil
}

// PurgeSynced removes all confirmed queue items.
func (s *Store) PurgeSynced() error {
	if _, err := s.db.Exec("DELETE FROM sync_queue WHERE synced = 1"); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to purge synced items", err)
	}
	return nil
}

// =====================================================
// Metadata operations
// =====================================================

// GetMeta returns a metadata value, or "" if the key is absent.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrStorage, "failed to read metadata", err)
	}
	return value, nil
}

// SetMeta upserts a metadata value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`
	INSERT INTO metadata (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to write metadata", err)
	}
	return nil
}

// DeleteMeta removes a metadata key.
func (s *Store) DeleteMeta(key string) error {
	if _, err := s.db.Exec("DELETE FROM metadata WHERE key = ?", key); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to delete metadata", err)
	}
	return nil
}

// ClearAll wipes both collections and the queue. Metadata is left intact;
// the caller decides whether the sync history goes too.
func (s *Store) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, c := range models.Collections() {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", c)); err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, "failed to clear collection", err)
		}
	}
	if _, err := tx.Exec("DELETE FROM sync_queue"); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to clear queue", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to commit clear", err)
	}
	return nil
}

// =====================================================
// Transactional write+enqueue combos
// =====================================================

// SaveWithMutation commits a record upsert and its queue entry atomically.
// Either both exist afterwards or neither does.
func (s *Store) SaveWithMutation(collection models.Collection, rec *models.Record, m *models.Mutation) error {
	return s.withTx(func(tx *sql.Tx) error {
		if err := s.save(tx, collection, rec); err != nil {
			return err
		}
		return s.enqueue(tx, m)
	})
}

// UpdateWithMutation commits a payload merge and its queue entry atomically.
func (s *Store) UpdateWithMutation(collection models.Collection, id string, fields map[string]any, m *models.Mutation) error {
	return s.withTx(func(tx *sql.Tx) error {
		if err := s.update(tx, collection, id, fields); err != nil {
			return err
		}
		return s.enqueue(tx, m)
	})
}

// SoftDeleteWithMutation commits a tombstone and its queue entry atomically.
func (s *Store) SoftDeleteWithMutation(collection models.Collection, id string, m *models.Mutation) error {
	return s.withTx(func(tx *sql.Tx) error {
		if err := s.softDelete(tx, collection, id); err != nil {
			return err
		}
		return s.enqueue(tx, m)
	})
}

func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to commit transaction", err)
	}
	return nil
}
