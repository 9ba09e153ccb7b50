// Package models provides data model definitions for the PetChecky offline
// subsystem.
package models

import (
	"encoding/json"
	"time"
)

// MutationType classifies a pending mutation intent.
type MutationType string

const (
	MutationCreate MutationType = "create"
	MutationUpdate MutationType = "update"
	MutationDelete MutationType = "delete"
)

// Valid reports whether t is a known mutation type.
func (t MutationType) Valid() bool {
	return t == MutationCreate || t == MutationUpdate || t == MutationDelete
}

// PendingSyncItem is a durable record of an intended mutation not yet
// confirmed against the server. Items are drained in ascending Timestamp
// order; Seq breaks ties so creation order is stable when timestamps
// collide.
type PendingSyncItem struct {
	ID         string          `db:"id" json:"id"`
	Seq        int64           `db:"seq" json:"seq"`
	Type       MutationType    `db:"type" json:"type"`
	Store      Collection      `db:"store" json:"store"`
	Data       json.RawMessage `db:"data" json:"data"`
	Timestamp  int64           `db:"timestamp" json:"timestamp"` // unix milliseconds
	RetryCount int             `db:"retry_count" json:"retry_count"`
}

// TableName returns the table name for PendingSyncItem.
func (PendingSyncItem) TableName() string {
	return string(CollectionPendingSync)
}

// Time returns the Timestamp as time.Time.
func (i *PendingSyncItem) Time() time.Time {
	return time.UnixMilli(i.Timestamp)
}

// RecordID extracts the "id" field from the item payload, or "" if absent.
func (i *PendingSyncItem) RecordID() string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(i.Data, &probe); err != nil {
		return ""
	}
	return probe.ID
}
