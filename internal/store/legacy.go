// Package store provides the durable local store for offline collections.
package store

import (
	"os"

	"github.com/araeLaver/petchecky-sub002/internal/logging"
	"github.com/araeLaver/petchecky-sub002/internal/models"
)

// MigrateLegacy performs the one-time migration from the flat keyed storage
// into the durable store: for each data collection it reads the legacy flat
// value, inserts every entry, then deletes the legacy key. Collections whose
// legacy value is missing or malformed are skipped; a failure in one
// collection does not block the others.
func MigrateLegacy(s Store, dataDir string) {
	for _, collection := range models.DataCollections() {
		path := FlatKeyPath(dataDir, collection)
		records := readFlatArray(path)
		if records == nil {
			continue
		}

		migrated := 0
		failed := false
		for _, record := range records {
			id, ok := record["id"].(string)
			if !ok || id == "" {
				continue
			}
			if err := s.Put(collection, id, record); err != nil {
				logging.Error("Legacy migration insert failed", err,
					map[string]any{"collection": collection, "id": id})
				failed = true
				break
			}
			migrated++
		}

		// Keep the legacy key if anything failed so a later startup can
		// retry the migration.
		if failed {
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to delete legacy key after migration",
				map[string]any{"path": path})
			continue
		}

		logging.Info("Migrated legacy flat collection",
			map[string]any{"collection": collection, "records": migrated})
	}
}
