// Package models provides data model definitions for the PetChecky offline
// subsystem.
package models

// Photo is a locally stored pet photo. Photos belong to an Album; deleting
// an album cascades to its photos.
type Photo struct {
	ID        string `db:"id" json:"id"`
	AlbumID   string `db:"album_id" json:"album_id"`
	PetID     string `db:"pet_id" json:"pet_id"`
	Caption   string `db:"caption" json:"caption,omitempty"`
	DataURL   string `db:"data_url" json:"data_url"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// TableName returns the table name for Photo.
func (Photo) TableName() string {
	return string(CollectionPhotos)
}

// Album groups photos for one pet.
type Album struct {
	ID        string `db:"id" json:"id"`
	PetID     string `db:"pet_id" json:"pet_id"`
	Title     string `db:"title" json:"title"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// TableName returns the table name for Album.
func (Album) TableName() string {
	return string(CollectionAlbums)
}
