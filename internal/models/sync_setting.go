// Package models provides data model definitions for the PetChecky offline
// subsystem.
package models

// SyncSetting is a flat key/value record persisted in the durable store.
// The sync engine upserts lastSync timestamps here after every drain pass.
type SyncSetting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}

// TableName returns the table name for SyncSetting.
func (SyncSetting) TableName() string {
	return string(CollectionSyncSettings)
}

// LastSyncGlobalKey is the settings key recording the end of the most
// recent full drain pass.
const LastSyncGlobalKey = "lastSync_global"

// LastSyncKey returns the settings key recording the last successful sync
// involving the given collection.
func LastSyncKey(c Collection) string {
	return "lastSync_" + string(c)
}
