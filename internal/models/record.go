package models

// Record is the storage-level wrapper around a domain payload. The payload is
// kept schemaless at this layer; the facade maps it to and from the typed
// Dish/Order shapes.
type Record struct {
	ID           string         `db:"id" json:"id"`
	Payload      map[string]any `db:"payload" json:"payload"`
	LastModified int64          `db:"last_modified" json:"last_modified"` // unix ms
	IsDeleted    bool           `db:"is_deleted" json:"is_deleted"`
	NeedsSync    bool           `db:"needs_sync" json:"needs_sync"`
}

// Merged returns the payload with the record id folded back in, which is the
// shape read APIs hand out.
func (r *Record) Merged() map[string]any {
	out := make(map[string]any, len(r.Payload)+1)
	for k, v := range r.Payload {
		out[k] = v
	}
	out["id"] = r.ID
	return out
}

// Metadata keys used by the sync layer.
const (
	MetaLastSync = "last_sync"
)
