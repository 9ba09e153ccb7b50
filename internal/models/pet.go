// Package models provides data model definitions for the PetChecky offline
// subsystem.
package models

// OfflinePet mirrors a server-side pet profile for offline use.
// Synced=false implies a pending-sync item referencing this record exists
// (or will, once the enqueue completes); otherwise the record is orphaned
// and will never reach the server.
type OfflinePet struct {
	ID        string  `db:"id" json:"id"`
	OwnerID   string  `db:"owner_id" json:"owner_id"`
	Name      string  `db:"name" json:"name"`
	Species   string  `db:"species" json:"species"` // dog, cat, ...
	Breed     string  `db:"breed" json:"breed,omitempty"`
	BirthDate string  `db:"birth_date" json:"birth_date,omitempty"`
	WeightKg  float64 `db:"weight_kg" json:"weight_kg,omitempty"`

	// Local-only bookkeeping, never sent to the server.
	Synced         bool  `db:"synced" json:"_synced"`
	LocalUpdatedAt int64 `db:"local_updated_at" json:"_localUpdatedAt"`
}

// TableName returns the table name for OfflinePet.
func (OfflinePet) TableName() string {
	return string(CollectionOfflinePets)
}
