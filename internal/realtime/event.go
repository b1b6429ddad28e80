// Package realtime carries row-change notifications from the services to live
// admin dashboards.
package realtime

import (
	"encoding/json"
	"time"
)

const (
	Insert = "INSERT"
	Update = "UPDATE"
	Delete = "DELETE"
)

// ChangeEvent describes one row-level change.
type ChangeEvent struct {
	Table    string          `json:"table"`
	Type     string          `json:"type"`
	RecordID string          `json:"record_id"`
	Record   json.RawMessage `json:"record,omitempty"`
	At       time.Time       `json:"at"`
}

// NewChangeEvent snapshots record as JSON. A record that cannot be encoded is
// dropped from the event; the table, type and id still go out.
func NewChangeEvent(table, typ, recordID string, record interface{}) ChangeEvent {
	ev := ChangeEvent{
		Table:    table,
		Type:     typ,
		RecordID: recordID,
		At:       time.Now().UTC(),
	}
	if record != nil {
		if raw, err := json.Marshal(record); err == nil {
			ev.Record = raw
		}
	}
	return ev
}
