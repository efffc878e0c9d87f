package models

import "encoding/json"

// Mutation is one pending entry of the outbound sync queue. ID is assigned by
// the store on enqueue and defines the drain order.
type Mutation struct {
	ID         int64           `db:"id" json:"id"`
	Collection Collection      `db:"collection" json:"collection"`
	Action     Action          `db:"action" json:"action"`
	Data       json.RawMessage `db:"data" json:"data"`
	Timestamp  int64           `db:"timestamp" json:"timestamp"` // unix ms
	Synced     bool            `db:"synced" json:"synced"`
	RetryCount int             `db:"retry_count" json:"retry_count"`
	UserID     string          `db:"user_id" json:"user_id,omitempty"`
}

// TableName returns the table name for Mutation.
func (Mutation) TableName() string {
	return "sync_queue"
}

// DataMap decodes the mutation data into a map. For creates this is the full
// record payload plus id; for updates and deletes it is the target id plus
// the changed fields.
func (m *Mutation) DataMap() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(m.Data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TargetID returns the record id the mutation refers to, or "" if the data
// carries none.
func (m *Mutation) TargetID() string {
	data, err := m.DataMap()
	if err != nil {
		return ""
	}
	id, _ := data["id"].(string)
	return id
}
