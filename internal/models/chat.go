// Package models provides data model definitions for the PetChecky offline
// subsystem.
package models

import "encoding/json"

// OfflineChat is a snapshot of an AI symptom-advisor chat thread held
// locally until it can be uploaded.
type OfflineChat struct {
	ID       string          `db:"id" json:"id"`
	PetID    string          `db:"pet_id" json:"pet_id"`
	Messages json.RawMessage `db:"messages" json:"messages"`
	Severity string          `db:"severity" json:"severity"` // low, medium, high, emergency

	Synced         bool  `db:"synced" json:"_synced"`
	LocalUpdatedAt int64 `db:"local_updated_at" json:"_localUpdatedAt"`
}

// TableName returns the table name for OfflineChat.
func (OfflineChat) TableName() string {
	return string(CollectionOfflineChats)
}
