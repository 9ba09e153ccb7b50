// Package models provides data model definitions for the PetChecky offline
// subsystem.
package models

// Collection names a group of like-shaped records in the durable local store.
type Collection string

const (
	CollectionPhotos       Collection = "photos"
	CollectionAlbums       Collection = "albums"
	CollectionOfflinePets  Collection = "offline_pets"
	CollectionOfflineChats Collection = "offline_chats"
	CollectionPendingSync  Collection = "pending_sync"
	CollectionSyncSettings Collection = "sync_settings"
)

// DataCollections lists the record collections exposed to application code.
// The pending-sync queue and sync settings are infrastructure collections
// owned by the sync engine and are not included here.
func DataCollections() []Collection {
	return []Collection{
		CollectionPhotos,
		CollectionAlbums,
		CollectionOfflinePets,
		CollectionOfflineChats,
	}
}

// Indexes returns the secondary index fields of a collection. Index names
// double as column names in the durable store and as top-level JSON field
// names in the record payload.
func (c Collection) Indexes() []string {
	switch c {
	case CollectionPhotos:
		return []string{"album_id", "pet_id"}
	case CollectionAlbums:
		return []string{"pet_id"}
	case CollectionOfflinePets:
		return []string{"owner_id"}
	case CollectionOfflineChats:
		return []string{"pet_id"}
	default:
		return nil
	}
}

// Valid reports whether c names a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionPhotos, CollectionAlbums, CollectionOfflinePets,
		CollectionOfflineChats, CollectionPendingSync, CollectionSyncSettings:
		return true
	}
	return false
}
