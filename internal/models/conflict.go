// Package models provides data model definitions for the PetChecky offline
// subsystem.
package models

// SyncConflict describes a divergence between the locally-held and
// server-held versions of the same logical record. It is computed during a
// drain pass and never persisted; the caller writes the resolved record
// back into the durable store.
type SyncConflict struct {
	ID              string         `json:"id"`
	Store           Collection     `json:"store"`
	LocalData       map[string]any `json:"local_data"`
	ServerData      map[string]any `json:"server_data"`
	LocalTimestamp  int64          `json:"local_timestamp"`  // unix milliseconds
	ServerTimestamp int64          `json:"server_timestamp"` // unix milliseconds
}
